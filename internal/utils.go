// Package internal provides internal utility functions and types used across the viewsync package.
package internal

import (
	"sync"
	"time"
)

// Elapsed returns true if the grace period starting at t has passed
func Elapsed(t time.Time, grace time.Duration) bool {
	return time.Now().After(t.Add(grace))
}

// SafeSet is a thread-safe string set
type SafeSet struct {
	mu   sync.RWMutex
	data map[string]struct{}
}

// NewSafeSet creates a new thread-safe string set
func NewSafeSet() *SafeSet {
	return &SafeSet{data: make(map[string]struct{})}
}

// Add inserts a member into the set, reporting whether it was absent
func (s *SafeSet) Add(member string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[member]; ok {
		return false
	}
	s.data[member] = struct{}{}
	return true
}

// Remove deletes a member from the set
func (s *SafeSet) Remove(member string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, member)
}

// Has reports whether a member is present
func (s *SafeSet) Has(member string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[member]
	return ok
}

// Size returns the number of members in the set
func (s *SafeSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
