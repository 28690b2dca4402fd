// internal/store/memory.go
//
// In-memory implementation of Store.
// Used by tests and when durability is not required (STORE_URL=memory).
//
// Characteristics:
//   - Keeps a deep copy of the last saved snapshot.
//   - Concurrency-safe via RWMutex.
//   - State is lost when the process restarts.
//   - SetFailure injects a Save error, for exercising storage-failure paths.

package store

import (
	"context"
	"sync"

	"github.com/robalobadob/wordle/apps/round-server/internal/game"
)

// Memory holds the most recent snapshot in process memory.
type Memory struct {
	mu    sync.RWMutex
	snap  *Snapshot
	saves int
	fail  error
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *Memory {
	return &Memory{}
}

// Load returns a copy of the last saved snapshot, or nil.
func (m *Memory) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return nil, nil
	}
	return cloneSnapshot(m.snap), nil
}

// Save stores a copy of s unless a failure was injected.
func (m *Memory) Save(ctx context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.snap = cloneSnapshot(s)
	m.saves++
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// SetFailure makes every following Save return err; nil clears it.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

// Saves reports how many snapshots were stored successfully.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func cloneSnapshot(s *Snapshot) *Snapshot {
	out := &Snapshot{RoundIndex: s.RoundIndex, Accounts: make([]*game.Account, len(s.Accounts))}
	for i, a := range s.Accounts {
		out.Accounts[i] = a.Clone()
	}
	return out
}
