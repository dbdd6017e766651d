package exitcode

import (
	"context"
	"errors"
	"os"

	"github.com/cochaviz/bento-kaniko/internal/clierr"
)

// Exit codes for failures that happen before the builder reports its own.
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates an unclassified failure
	GeneralError = 1

	// UsageError indicates invalid flags, arguments or environment
	UsageError = 2

	// AuthError indicates the control plane did not accept the token
	AuthError = 3

	// ResolveError indicates the bento could not be pulled or resolved
	ResolveError = 4

	// LaunchError indicates the builder executable could not be started
	LaunchError = 127

	// Interrupted indicates the process received an interrupt
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// FromError maps an error to the exit code reported for it.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	switch clierr.KindOf(err) {
	case clierr.KindUsage:
		return UsageError
	case clierr.KindAuthentication:
		return AuthError
	case clierr.KindResolution:
		return ResolveError
	case clierr.KindLaunch:
		return LaunchError
	default:
		return GeneralError
	}
}

// Describe returns a human-readable description of an exit code
func Describe(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case AuthError:
		return "Authentication error"
	case ResolveError:
		return "Bento resolution error"
	case LaunchError:
		return "Builder could not be launched"
	case Interrupted:
		return "Interrupted"
	default:
		return "Builder exit status"
	}
}
