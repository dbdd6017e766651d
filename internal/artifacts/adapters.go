package artifacts

import "context"

// Store fetches bentos from the control plane and resolves them locally.
type Store interface {
	// ForcePull replaces any local copy of id with a fresh one.
	ForcePull(ctx context.Context, id string) error
	// Resolve looks id up locally.
	Resolve(ctx context.Context, id string) (Handle, error)
}
