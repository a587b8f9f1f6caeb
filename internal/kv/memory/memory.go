package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pressbox/pressbox/internal/model"
)

var _ model.KV = (*Store)(nil)

// Store is a process-local KV fallback for environments without the
// remote store. It keeps two synchronized maps (value, expiry) and purges
// expired entries lazily on access, preserving the remote store's TTL
// contract exactly. Not suitable for quota enforcement behind a load
// balancer: counters are per-process.
type Store struct {
	mu     sync.Mutex
	values map[string]string
	expiry map[string]time.Time
	now    func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		values: make(map[string]string),
		expiry: make(map[string]time.Time),
		now:    time.Now,
	}
}

// NewWithClock creates a store with an injected clock, used in tests to
// exercise expiry without sleeping.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// purgeLocked removes key if its expiry elapsed. Caller holds mu.
func (s *Store) purgeLocked(key string) {
	if exp, ok := s.expiry[key]; ok && !s.now().Before(exp) {
		delete(s.values, key)
		delete(s.expiry, key)
	}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	if ttl > 0 {
		s.expiry[key] = s.now().Add(ttl)
	} else {
		delete(s.expiry, key)
	}
	return nil
}

func (s *Store) Del(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	if _, ok := s.values[key]; !ok {
		return 0, nil
	}
	delete(s.values, key)
	delete(s.expiry, key)
	return 1, nil
}

func (s *Store) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	n, err := strconv.ParseInt(s.values[key], 10, 64)
	if err != nil && s.values[key] != "" {
		return 0, err
	}
	n++
	s.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	if _, ok := s.values[key]; !ok {
		return false, nil
	}
	s.expiry[key] = s.now().Add(ttl)
	return true, nil
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(key)
	if _, ok := s.values[key]; !ok {
		return model.TTLMissing, nil
	}
	exp, ok := s.expiry[key]
	if !ok {
		return model.TTLNone, nil
	}
	return exp.Sub(s.now()), nil
}

// Remote reports false: this store lives in one process only.
func (s *Store) Remote() bool {
	return false
}
