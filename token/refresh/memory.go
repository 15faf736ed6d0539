package refresh

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a process-local Store. Expired entries are dropped lazily
// whenever MarkUsed runs past the next cleanup deadline.
type InMemoryStore struct {
	used        map[string]time.Time
	mu          sync.Mutex
	nowFunc     func() time.Time
	nextCleanup time.Time
}

var _ Store = (*InMemoryStore)(nil)

const cleanupInterval = time.Minute

type InMemoryOption func(*InMemoryStore)

func WithNowFunc(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		s.nowFunc = now
	}
}

func NewInMemoryStore(options ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		used:    make(map[string]time.Time),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) MarkUsed(_ context.Context, jti string, exp time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if now.After(s.nextCleanup) {
		s.cleanup(now)
		s.nextCleanup = now.Add(cleanupInterval)
	}

	if until, ok := s.used[jti]; ok && now.Before(until) {
		return false, nil
	}
	s.used[jti] = exp
	return true, nil
}

// Len reports how many ids are currently tracked.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.used)
}

func (s *InMemoryStore) cleanup(now time.Time) {
	for jti, exp := range s.used {
		if !now.Before(exp) {
			delete(s.used, jti)
		}
	}
}
