package session

import (
	"fmt"
	"sync"
)

// MemoryStore keeps contexts in memory.
type MemoryStore struct {
	mu     sync.Mutex
	config config
	// Puts counts successful Put calls.
	Puts int
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Put(ctx Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.put(ctx)
	s.Puts++
	return nil
}

func (s *MemoryStore) Get(name string) (Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.config.get(name)
	if !ok {
		return Context{}, fmt.Errorf("%w: %s", ErrContextNotFound, name)
	}
	return ctx, nil
}
