package storage

import (
	"context"
	"fmt"
	"sync"
)

// Backend stores serialized values under fixed keys. Values are rewritten wholesale.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

type Memory struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (s *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Memory) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key] = append([]byte(nil), value...)
	return nil
}

// Open returns the backend named by driver ("memory", "file" or "postgres") and a closer for it.
func Open(ctx context.Context, driver, dataDir, dsn string) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch driver {
	case "memory":
		return NewMemory(), noop, nil
	case "", "file":
		b, err := NewFile(dataDir)
		if err != nil {
			return nil, nil, err
		}
		return b, noop, nil
	case "postgres":
		b, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
