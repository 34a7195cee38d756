// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package annotation

import (
	"sync"

	"github.com/timecoding/portal/models"
)

// Manager tracks the live annotation session of each signed-in coder.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session // keyed by user id
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the live session for a user, if one exists.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// GetOrCreate returns the user's session, creating an empty one on first
// use. The second return reports whether a new session was created, so the
// caller knows to load the batch into it.
func (m *Manager) GetOrCreate(userID, batchID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s, false
	}
	s := NewSession(userID, batchID)
	m.sessions[userID] = s
	return s, true
}

// Drop tears down a user's session, on sign-out or provider-side
// invalidation.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// ReplaceBatch pushes a fresh snapshot of a batch into every session
// walking it. Sessions on other batches are untouched.
func (m *Manager) ReplaceBatch(batchID string, items []models.TextItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.BatchID() == batchID {
			s.ReplaceItems(items)
		}
	}
}
