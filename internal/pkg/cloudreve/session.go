package cloudreve

import (
	"sync"
	"time"
)

// SessionStore keeps the authenticated Cloudreve session cookie between
// republish calls. It is injected into the client so its lifecycle is owned
// by whoever wires the application, not by a process-wide global.
type SessionStore interface {
	Get() (value string, ok bool)
	Put(value string, expiresAt time.Time)
	Clear()
}

type memorySessionStore struct {
	mu        sync.Mutex
	value     string
	expiresAt time.Time
}

// NewMemorySessionStore returns an in-memory single-session store.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{}
}

// Get returns the stored session if it is still comfortably inside its
// validity window.
func (s *memorySessionStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value == "" {
		return "", false
	}
	// 10s safety margin so a session never expires mid-request
	if time.Now().Add(10 * time.Second).After(s.expiresAt) {
		return "", false
	}
	return s.value, true
}

func (s *memorySessionStore) Put(value string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.expiresAt = expiresAt
}

func (s *memorySessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = ""
	s.expiresAt = time.Time{}
}
