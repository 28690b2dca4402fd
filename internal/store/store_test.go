package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordle/apps/round-server/internal/game"
)

// sampleSnapshot has one finished and one fresh account, in that
// registration order.
func sampleSnapshot() *Snapshot {
	ada := game.NewAccount("ada", "$2a$hash-ada")
	ada.BeginRound(3)
	ada.Record("X?XX+")
	ada.Record("+++++")

	bob := game.NewAccount("bob", "$2a$hash-bob")
	return &Snapshot{RoundIndex: 4, Accounts: []*game.Account{ada, bob}}
}

// exerciseStore runs the shared round-trip contract against any backend.
func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "fresh store holds no snapshot")

	want := sampleSnapshot()
	require.NoError(t, st.Save(ctx, want))

	got, err = st.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.RoundIndex)
	require.Len(t, got.Accounts, 2)
	assert.Equal(t, "ada", got.Accounts[0].Username)
	assert.Equal(t, "bob", got.Accounts[1].Username)

	ada := got.Accounts[0]
	assert.Equal(t, "$2a$hash-ada", ada.PasswordHash)
	assert.Equal(t, 1, ada.GamesPlayed)
	assert.Equal(t, 1, ada.GamesWon)
	assert.Equal(t, 1, ada.CurrentStreak)
	assert.Equal(t, 1, ada.BestStreak)
	assert.Equal(t, 1, ada.Histogram[1])
	assert.Equal(t, []string{"X?XX+", "+++++"}, ada.Attempts)
	assert.Equal(t, int64(3), ada.Round)
	assert.True(t, ada.RoundWon)

	// A later snapshot without bob replaces the earlier one entirely.
	want.Accounts = want.Accounts[:1]
	want.RoundIndex = 5
	require.NoError(t, st.Save(ctx, want))

	got, err = st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.RoundIndex)
	require.Len(t, got.Accounts, 1)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesOnSave(t *testing.T) {
	m := NewMemoryStore()
	snap := sampleSnapshot()
	require.NoError(t, m.Save(context.Background(), snap))

	snap.Accounts[0].GamesPlayed = 99
	got, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Accounts[0].GamesPlayed)
}

func TestMemoryStoreInjectedFailure(t *testing.T) {
	m := NewMemoryStore()
	boom := errors.New("disk full")
	m.SetFailure(boom)
	require.ErrorIs(t, m.Save(context.Background(), sampleSnapshot()), boom)
	assert.Equal(t, 0, m.Saves())

	m.SetFailure(nil)
	require.NoError(t, m.Save(context.Background(), sampleSnapshot()))
	assert.Equal(t, 1, m.Saves())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "wordle.db")
	st, err := OpenSQLite(context.Background(), "sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	exerciseStore(t, st)
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordle.db")
	ctx := context.Background()

	st, err := OpenSQLite(ctx, "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, sampleSnapshot()))
	require.NoError(t, st.Close())

	st, err = OpenSQLite(ctx, "sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	got, err := st.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Accounts, 2)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, "memory", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, st)

	st, err = Open(ctx, filepath.Join(t.TempDir(), "w.db"), "sqlite")
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, st)
	require.NoError(t, st.Close())

	_, err = Open(ctx, "", "")
	require.Error(t, err)
}
