package session

// Store persists contexts keyed by name.
type Store interface {
	// Put appends ctx, or replaces the context with the same name.
	Put(ctx Context) error
	Get(name string) (Context, error)
}
