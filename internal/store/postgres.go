// internal/store/postgres.go
//
// Postgres-backed Store using a pgx connection pool.
// Schema matches the sqlite flavour but uses native INTEGER[]/TEXT[] columns
// for the histogram and attempt list.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/round-server/internal/game"
)

// Postgres is a Store backed by a Postgres database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to url, pings the server and applies migrations.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	files, err := migrationFiles("postgres")
	if err != nil {
		return err
	}
	for _, f := range files {
		var done int
		err := p.pool.QueryRow(ctx, `SELECT 1 FROM _migrations WHERE name=$1`, f.name).Scan(&done)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}
		err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, f.body); err != nil {
				return fmt.Errorf("apply %s: %w", f.name, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO _migrations(name) VALUES ($1)`, f.name); err != nil {
				return fmt.Errorf("record %s: %w", f.name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		log.Info().Str("migration", f.name).Msg("applied")
	}
	return nil
}

// Load reads every account in registration order and the round counter.
func (p *Postgres) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	var found bool

	err := p.pool.QueryRow(ctx, `SELECT round_index FROM server_state WHERE id = 1`).Scan(&snap.RoundIndex)
	switch {
	case err == nil:
		found = true
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("load server_state: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT username, password_hash, games_played, games_won, current_streak,
		       best_streak, histogram, attempts, round_index, round_won
		FROM accounts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a         game.Account
			histogram []int32
		)
		if err := rows.Scan(&a.Username, &a.PasswordHash, &a.GamesPlayed, &a.GamesWon, &a.CurrentStreak,
			&a.BestStreak, &histogram, &a.Attempts, &a.Round, &a.RoundWon); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if len(histogram) > game.MaxAttempts {
			return nil, fmt.Errorf("account %s: histogram has %d buckets", a.Username, len(histogram))
		}
		for i, n := range histogram {
			a.Histogram[i] = int(n)
		}
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

// Save replaces all accounts and the server_state row in one transaction,
// sending the inserts as a single batch.
func (p *Postgres) Save(ctx context.Context, snap *Snapshot) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM accounts`)
		for i, a := range snap.Accounts {
			histogram := make([]int32, len(a.Histogram))
			for k, n := range a.Histogram {
				histogram[k] = int32(n)
			}
			attempts := a.Attempts
			if attempts == nil {
				attempts = []string{}
			}
			batch.Queue(`
				INSERT INTO accounts (username, seq, password_hash, games_played, games_won, current_streak,
				                      best_streak, histogram, attempts, round_index, round_won)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
				a.Username, i, a.PasswordHash, a.GamesPlayed, a.GamesWon, a.CurrentStreak,
				a.BestStreak, histogram, attempts, a.Round, a.RoundWon)
		}
		batch.Queue(`
			INSERT INTO server_state (id, round_index, updated_at) VALUES (1, $1, $2)
			ON CONFLICT (id) DO UPDATE SET round_index = EXCLUDED.round_index, updated_at = EXCLUDED.updated_at`,
			snap.RoundIndex, time.Now().UTC())

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		return nil
	})
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
