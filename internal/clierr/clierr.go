// Package clierr holds the user-facing error type reported by the command
// line. Errors carry a short summary, a kind that decides the exit status, and
// an optional cause kept for diagnostics.
package clierr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies fatal errors raised before the builder runs.
type Kind int

const (
	KindGeneral Kind = iota
	KindUsage
	KindAuthentication
	KindResolution
	KindLaunch
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindAuthentication:
		return "authentication"
	case KindResolution:
		return "resolution"
	case KindLaunch:
		return "launch"
	default:
		return "general"
	}
}

// Kinded is implemented by errors that know their own Kind.
type Kinded interface {
	error
	Kind() Kind
}

// Error is the user-facing error.
type Error struct {
	summary string
	verbose string
	kind    Kind
	cause   error
}

type Option func(*Error)

// New creates an error with the given summary.
func New(summary string, options ...Option) *Error {
	err := &Error{summary: summary}
	for _, o := range options {
		o(err)
	}
	return err
}

// Newf is New with a formatted summary and no options.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(fmt.Sprintf(format, args...), WithKind(kind))
}

func WithKind(kind Kind) Option {
	return func(e *Error) { e.kind = kind }
}

func WithCause(err error) Option {
	return func(e *Error) { e.cause = err }
}

func WithVerbose(verbose string) Option {
	return func(e *Error) { e.verbose = verbose }
}

func (e *Error) Error() string {
	return e.summary
}

func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Verbose renders the summary followed by the chain of causes.
func (e *Error) Verbose() string {
	lines := []string{e.summary}
	if e.verbose != "" {
		lines = append(lines, "("+e.verbose+")")
	}
	switch cause := e.cause.(type) {
	case nil:
	case interface{ Verbose() string }:
		lines = append(lines, "caused by: "+cause.Verbose())
	default:
		lines = append(lines, "caused by: "+cause.Error())
	}
	return strings.Join(lines, "\n")
}

// KindOf returns the kind of the outermost Kinded error in the chain, or
// KindGeneral.
func KindOf(err error) Kind {
	var kinded Kinded
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return KindGeneral
}
