// Package memstore is an in-memory storage.Backend for tests and ephemeral sessions.
package memstore

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/storage"
)

var _ storage.Backend = (*Store)(nil)

type entry struct {
	value     string
	expiresAt time.Time
}

type Store struct {
	name    string
	entries map[string]entry
	lock    sync.RWMutex
	nowFunc func() time.Time

	// FailWrites makes Set return this error, for exercising partial-write paths
	FailWrites error
}

func New(name string) *Store {
	return &Store{
		name:    name,
		entries: make(map[string]entry),
		nowFunc: time.Now,
	}
}

// WithNowFunc overrides the clock used for ttl expiry.
func (s *Store) WithNowFunc(now func() time.Time) *Store {
	s.nowFunc = now
	return s
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Get(key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.nowFunc().Before(e.expiresAt) {
		return "", storage.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) Set(key, value string, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.FailWrites != nil {
		return s.FailWrites
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.nowFunc().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *Store) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.entries, key)
	return nil
}

// ExpiresAt reports the expiry recorded for key, zero when none.
func (s *Store) ExpiresAt(key string) (time.Time, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	e, ok := s.entries[key]
	return e.expiresAt, ok
}

// Len is the number of stored keys, expired or not.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.entries)
}
