package bento

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cochaviz/bento-kaniko/internal/artifacts"
	"github.com/cochaviz/bento-kaniko/internal/clierr"
)

// Resolver force-pulls a bento and then resolves it locally.
type Resolver struct {
	Store  artifacts.Store
	Logger *slog.Logger
}

// Resolve returns a handle for a freshly pulled copy of id. Every failure is
// reported as one resolution error that wraps the underlying cause.
func (r *Resolver) Resolve(ctx context.Context, id string) (artifacts.Handle, error) {
	if r.Store == nil {
		return artifacts.Handle{}, errors.New("bento resolver is not configured")
	}

	if err := r.Store.ForcePull(ctx, id); err != nil {
		return artifacts.Handle{}, resolutionError(id, err)
	}

	handle, err := r.Store.Resolve(ctx, id)
	if err != nil {
		return artifacts.Handle{}, resolutionError(id, err)
	}

	r.logger().Debug("resolved bento", "bento", handle.Tag().String(), "path", handle.Path)
	return handle, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func resolutionError(id string, cause error) error {
	if errors.Is(cause, context.Canceled) {
		return cause
	}
	return clierr.New(
		fmt.Sprintf("cannot resolve bento %q", id),
		clierr.WithKind(clierr.KindResolution),
		clierr.WithCause(cause),
	)
}
