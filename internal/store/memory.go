package store

import (
	"context"

	"github.com/patrickmn/go-cache"
)

type memoryStore struct {
	c *cache.Cache
}

// NewMemoryStore returns a process-local store. Entries never expire.
func NewMemoryStore() Store {
	return &memoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := s.c.Get(key)
	if !found {
		return nil, false, nil
	}
	b := v.([]byte)
	return append([]byte(nil), b...), true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte) error {
	s.c.Set(key, append([]byte(nil), value...), cache.NoExpiration)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}
