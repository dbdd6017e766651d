package build

import (
	"fmt"

	"github.com/cochaviz/bento-kaniko/internal/clierr"
)

// LaunchError reports that the builder could not be started at all.
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("cannot launch %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

func (e *LaunchError) Kind() clierr.Kind {
	return clierr.KindLaunch
}
