package memory

import (
	"context"
	"sync"

	"github.com/YelzhanWeb/fieldops/internal/interfaces"
)

// CounterStore is a process-local CounterStore. Each instance is
// independent, so tests get a fresh one.
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewCounterStore() *CounterStore {
	return &CounterStore{counters: make(map[string]int64)}
}

var _ interfaces.CounterStore = (*CounterStore)(nil)

func (s *CounterStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *CounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

func (s *CounterStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}
