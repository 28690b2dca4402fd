// internal/store/store.go
//
// Persistence for the engine's durable state.
//
// The engine saves a full Snapshot (every account in registration order plus
// the round counter) after each state change and loads it once at startup.
// Live sessions and the current secret word are never persisted.
//
// Backends:
//   - memory:   process-local, for tests and ephemeral runs.
//   - sqlite:   mattn/go-sqlite3 ("sqlite3") or modernc.org/sqlite ("sqlite").
//   - postgres: jackc/pgx/v5 pool.

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/robalobadob/wordle/apps/round-server/internal/game"
)

// Snapshot is the persisted engine state.
type Snapshot struct {
	RoundIndex int64
	Accounts   []*game.Account
}

// Store loads and saves snapshots. Implementations must be safe for
// concurrent use, though the engine serializes its own saves.
type Store interface {
	// Load returns the last saved snapshot, or nil when nothing was saved yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the persisted state with s.
	Save(ctx context.Context, s *Snapshot) error

	// Close releases the backend.
	Close() error
}

// Open selects a backend from url:
//   - "memory"                             → in-memory store
//   - "postgres://…" or "postgresql://…"   → Postgres via pgx
//   - anything else                        → SQLite file opened with driver
func Open(ctx context.Context, url, driver string) (Store, error) {
	switch {
	case url == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url)
	case url == "":
		return nil, fmt.Errorf("store: empty url")
	default:
		return OpenSQLite(ctx, driver, url)
	}
}
