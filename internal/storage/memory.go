// Package storage keeps per-session workflow state in memory. Go keeps each
// package in its own folder; files in the folder share a namespace.
package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/metrics"
	"github.com/dharsanguruparan/omnigo/internal/workflow"
)

var (
	// ErrNotFound is exported so callers elsewhere can compare errors using
	// errors.Is.
	ErrNotFound = errors.New("session not found")
)

// Factory builds a fresh workflow for a session id.
type Factory func(sessionID string) *workflow.Workflow

// MemoryStore maps session ids to their workflows using an RWMutex. Lookups
// of existing sessions take the read lock; only creation and removal write.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*workflow.Workflow
	factory  Factory
	now      func() time.Time
}

// NewMemoryStore constructs a MemoryStore that creates sessions with factory.
func NewMemoryStore(factory Factory) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*workflow.Workflow),
		factory:  factory,
		now:      time.Now,
	}
}

// GetOrCreate returns the session's workflow, creating it on first use.
func (m *MemoryStore) GetOrCreate(id string) *workflow.Workflow {
	m.mu.RLock()
	wf, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return wf
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have created it between the two locks.
	if wf, ok := m.sessions[id]; ok {
		return wf
	}
	wf = m.factory(id)
	m.sessions[id] = wf
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return wf
}

// Get returns an existing session's workflow.
func (m *MemoryStore) Get(id string) (*workflow.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wf, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return wf, nil
}

// Delete stops and forgets a session.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	wf.Close()
	delete(m.sessions, id)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

// Sweep drops sessions idle for longer than limit and returns how many it
// removed. A non-positive limit keeps everything.
func (m *MemoryStore) Sweep(limit time.Duration) int {
	if limit <= 0 {
		return 0
	}
	cutoff := m.now().Add(-limit)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, wf := range m.sessions {
		if wf.UpdatedAt().Before(cutoff) {
			wf.Close()
			delete(m.sessions, id)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return removed
}

// Len reports how many sessions are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
