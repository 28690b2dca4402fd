package protocol

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/wordle/apps/round-server/internal/engine"
	"github.com/robalobadob/wordle/apps/round-server/internal/notify"
	"github.com/robalobadob/wordle/apps/round-server/internal/store"
	"github.com/robalobadob/wordle/apps/round-server/internal/words"
)

// startServer runs a Server over a real engine whose dictionary holds a
// single word, so every round's secret is "crane".
func startServer(t *testing.T) (*Server, *engine.Engine, *fakeSharer) {
	t.Helper()
	dict, err := words.New([]string{"crane"})
	require.NoError(t, err)
	eng := engine.New(dict, store.NewMemoryStore(), engine.Options{HashCost: bcrypt.MinCost})
	require.NoError(t, eng.Start(context.Background()))
	require.Equal(t, engine.RegisterOK, eng.Register(context.Background(), "ada", "secret"))

	sharer := &fakeSharer{}
	srv := NewServer(NewHandler(eng, notify.NewHub(8), sharer))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(context.Background(), ln) }()
	t.Cleanup(func() {
		_ = srv.Close()
		srv.CloseConnections()
		assert.NoError(t, <-served)
	})
	return srv, eng, sharer
}

func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, time.Millisecond)
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn}
}

func TestServerPlaysAFullRound(t *testing.T) {
	srv, eng, sharer := startServer(t)
	c := dial(t, srv)

	c.send("ada", "secret")
	require.Equal(t, int32(engine.LoginOK), c.readInt())

	other := dial(t, srv)
	other.send("ada", "secret")
	assert.Equal(t, int32(engine.LoginAlreadyOnline), other.readInt())

	c.send(CmdGuess, "crane")
	assert.Equal(t, ReplyNotAllow, c.readFrame(), "guessing before joining")

	c.send(CmdPlay)
	assert.Equal(t, PlayJoined, c.readInt())
	c.send(CmdGuess, "zzzzz")
	assert.Equal(t, ReplyError, c.readFrame(), "not in the dictionary")
	c.send(CmdGuess, "CRANE")
	assert.Equal(t, "win_crane", c.readFrame())
	c.send(CmdGuess, "crane")
	assert.Equal(t, ReplyJustWin, c.readFrame())
	c.send(CmdPlay)
	assert.Equal(t, PlayAlreadyDone, c.readInt())

	c.send(CmdShare)
	assert.Equal(t, int32(0), c.readInt())
	assert.Equal(t, []string{"ada"}, sharer.sharedBy())

	c.send(CmdStatistics)
	assert.Contains(t, c.readFrame(), "Games played: 1\n")

	eng.AdvanceRound(context.Background())
	c.send(CmdPlay)
	assert.Equal(t, PlayJoined, c.readInt(), "a finished player gets no round-ended word")

	c.send(CmdLogout)
	assert.Equal(t, int32(0), c.readInt())
	require.Eventually(t, func() bool { return eng.Online() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServerReportsRoundEndToUnfinishedPlayer(t *testing.T) {
	srv, eng, _ := startServer(t)
	c := dial(t, srv)
	c.send("ada", "secret")
	require.Equal(t, int32(0), c.readInt())

	c.send(CmdPlay)
	require.Equal(t, PlayJoined, c.readInt())
	eng.AdvanceRound(context.Background())

	c.send(CmdGuess, "crane")
	assert.Equal(t, "timeout_crane", c.readFrame())
}

func TestServerRejectsGuessesOutsideARound(t *testing.T) {
	srv, _, _ := startServer(t)
	c := dial(t, srv)
	c.send("ada", "secret")
	require.Equal(t, int32(engine.LoginOK), c.readInt())

	c.send(CmdGuess, "zzzzz")
	assert.Equal(t, ReplyNotAllow, c.readFrame(), "any word before play")
	c.send(CmdPlay)
	require.Equal(t, PlayJoined, c.readInt())
	c.send(CmdGuess, "zzzzz")
	assert.Equal(t, ReplyError, c.readFrame())
	c.send(CmdGuess, "crane")
	assert.Equal(t, "win_crane", c.readFrame(), "rejected words cost no attempt")
}

func TestCloseConnectionsLogsEveryoneOut(t *testing.T) {
	srv, eng, _ := startServer(t)
	c := dial(t, srv)
	c.send("ada", "secret")
	require.Equal(t, int32(0), c.readInt())
	require.Equal(t, 1, eng.Online())

	require.NoError(t, srv.Close())
	srv.CloseConnections()

	assert.Equal(t, 0, eng.Online())
	assert.Equal(t, 0, srv.Open())
	_, err := ReadInt(c.conn)
	assert.Error(t, err)
}
