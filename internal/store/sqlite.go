// internal/store/sqlite.go
//
// SQLite-backed Store.
// Responsibilities:
//   - Opening the database file with safe defaults (WAL, busy timeout).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Replacing the accounts table and server_state row on every Save.
//
// Two drivers are supported through database/sql:
//   "sqlite3": github.com/mattn/go-sqlite3 (cgo)
//   "sqlite":  modernc.org/sqlite (pure Go)

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/robalobadob/wordle/apps/round-server/assets"
	"github.com/robalobadob/wordle/apps/round-server/internal/game"
)

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if missing) the database at path and
// applies migrations. driver is "sqlite3" or "sqlite"; empty means "sqlite3".
func OpenSQLite(ctx context.Context, driver, path string) (*SQLite, error) {
	if driver == "" {
		driver = "sqlite3"
	}
	db, err := openDB(driver, path)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// openDB ensures the parent directory exists for relative paths such as
// ./data/wordle.db, then opens the database with WAL journaling and a busy
// timeout. A single connection is kept so pragmas apply to every query.
func openDB(driver, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	dsn := path
	if driver == "sqlite3" && path != ":memory:" {
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not enable WAL")
		}
	}
	return db, nil
}

// migrate applies the embedded sqlite migrations in lexical order, each in
// its own transaction, skipping files already recorded in _migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := migrationFiles("sqlite")
	if err != nil {
		return err
	}

	for _, f := range files {
		var done int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, f.name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f.name).Msg("already applied")
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, f.body); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f.name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, f.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f.name, err)
		}
		log.Info().Str("migration", f.name).Msg("applied")
	}
	return nil
}

type migrationFile struct {
	name string
	body string
}

// migrationFiles lists the embedded *.sql files for dialect, sorted by name.
func migrationFiles(dialect string) ([]migrationFile, error) {
	fsys, err := assets.Migrations(dialect)
	if err != nil {
		return nil, fmt.Errorf("migrations %s: %w", dialect, err)
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var out []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		b, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		out = append(out, migrationFile{name: e.Name(), body: string(b)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// Load reads every account ordered by registration sequence and the stored
// round counter. It returns nil when the database holds no state yet.
func (s *SQLite) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	var found bool

	err := s.db.QueryRowContext(ctx, `SELECT round_index FROM server_state WHERE id = 1`).Scan(&snap.RoundIndex)
	switch {
	case err == nil:
		found = true
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("load server_state: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, games_played, games_won, current_streak,
		       best_streak, histogram, attempts, round_index, round_won
		FROM accounts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a                   game.Account
			histogram, attempts string
			roundWon            int
		)
		if err := rows.Scan(&a.Username, &a.PasswordHash, &a.GamesPlayed, &a.GamesWon, &a.CurrentStreak,
			&a.BestStreak, &histogram, &attempts, &a.Round, &roundWon); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if err := decodeHistogram(histogram, &a.Histogram); err != nil {
			return nil, fmt.Errorf("account %s: %w", a.Username, err)
		}
		if err := json.Unmarshal([]byte(attempts), &a.Attempts); err != nil {
			return nil, fmt.Errorf("account %s attempts: %w", a.Username, err)
		}
		a.RoundWon = roundWon != 0
		snap.Accounts = append(snap.Accounts, &a)
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return snap, nil
}

// Save rewrites the accounts table and the server_state row in one
// transaction.
func (s *SQLite) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accounts (username, seq, password_hash, games_played, games_won, current_streak,
		                      best_streak, histogram, attempts, round_index, round_won)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range snap.Accounts {
		histogram, err := json.Marshal(a.Histogram[:])
		if err != nil {
			return err
		}
		attempts := a.Attempts
		if attempts == nil {
			attempts = []string{}
		}
		attemptsJSON, err := json.Marshal(attempts)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a.Username, i, a.PasswordHash, a.GamesPlayed, a.GamesWon,
			a.CurrentStreak, a.BestStreak, string(histogram), string(attemptsJSON), a.Round, boolInt(a.RoundWon)); err != nil {
			return fmt.Errorf("insert %s: %w", a.Username, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO server_state (id, round_index, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET round_index = excluded.round_index, updated_at = excluded.updated_at`,
		snap.RoundIndex, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("save server_state: %w", err)
	}
	return tx.Commit()
}

// Close closes the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func decodeHistogram(raw string, dst *[game.MaxAttempts]int) error {
	var h []int
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	if len(h) > game.MaxAttempts {
		return fmt.Errorf("histogram: %d buckets, want at most %d", len(h), game.MaxAttempts)
	}
	copy(dst[:], h)
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
