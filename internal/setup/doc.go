// Package setup resolves the on-disk locations shared with BentoML: the
// BENTOML_HOME directory, the yatai context file and the local bento store.
//
// This package is essentially a collection of resolvers and constants, and is
// therefore the only package that is allowed to call a global logger.
package setup
