// Package mapping holds the in-memory GID to LID table for one document
// type. Change notification for the table lives in package notify; the
// table itself is a plain lookup structure.
package mapping

import (
	"sync"

	"github.com/hupe1980/docmap/core"
)

// Store maps GIDs to their dense local identifiers.
// Safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[core.GID]core.LID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		m: make(map[core.GID]core.LID),
	}
}

// Lookup returns the LID for gid.
func (s *Store) Lookup(gid core.GID) (core.LID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lid, ok := s.m[gid]
	return lid, ok
}

// Put records gid as mapped to lid, replacing any previous mapping.
func (s *Store) Put(gid core.GID, lid core.LID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[gid] = lid
}

// Remove tears down the mapping for gid. Returns the removed LID, or false
// if no mapping existed.
func (s *Store) Remove(gid core.GID) (core.LID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lid, ok := s.m[gid]
	if ok {
		delete(s.m, gid)
	}
	return lid, ok
}

// Len returns the number of mapped documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
