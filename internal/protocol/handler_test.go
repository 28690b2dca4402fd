package protocol

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/wordle/apps/round-server/internal/engine"
	"github.com/robalobadob/wordle/apps/round-server/internal/game"
	"github.com/robalobadob/wordle/apps/round-server/internal/notify"
)

// fakeGame scripts engine replies and records what the handler did.
type fakeGame struct {
	mu       sync.Mutex
	password string
	join     engine.JoinResult
	guess    engine.GuessResult
	attempts []string
	guesses  []string
	logouts  int
	sink     engine.Sink
}

func (f *fakeGame) Login(username, password string) (engine.LoginStatus, *engine.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if username != "ada" {
		return engine.LoginNotRegistered, nil
	}
	if password != f.password {
		return engine.LoginBadPassword, nil
	}
	return engine.LoginOK, &engine.Session{ID: "s1", Username: username}
}

func (f *fakeGame) AttachSink(username string, sink engine.Sink) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = sink
	return true
}

func (f *fakeGame) Logout(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
}

func (f *fakeGame) JoinRound(context.Context, string) engine.JoinResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.join
}

func (f *fakeGame) SubmitGuess(_ context.Context, _ string, guess string) engine.GuessResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guesses = append(f.guesses, guess)
	return f.guess
}

func (f *fakeGame) Statistics(string) (string, bool) {
	return "Games played: 1\n", true
}

func (f *fakeGame) LastRoundAttempts(string) ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts, f.attempts != nil
}

func (f *fakeGame) logoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

type fakeSharer struct {
	mu     sync.Mutex
	shared []string
	err    error
}

func (s *fakeSharer) Share(username string, attempts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.shared = append(s.shared, username)
	return nil
}

func (s *fakeSharer) sharedBy() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shared...)
}

// testClient drives the client end of a connection.
type testClient struct {
	t    *testing.T
	conn net.Conn
}

func (c *testClient) send(frames ...string) {
	c.t.Helper()
	for _, f := range frames {
		require.NoError(c.t, WriteFrame(c.conn, f))
	}
}

func (c *testClient) readInt() int32 {
	c.t.Helper()
	n, err := ReadInt(c.conn)
	require.NoError(c.t, err)
	return n
}

func (c *testClient) readFrame() string {
	c.t.Helper()
	s, err := ReadFrame(c.conn)
	require.NoError(c.t, err)
	return s
}

// startHandler serves one side of a pipe and returns the other side plus a
// channel closed when Serve returns.
func startHandler(t *testing.T, h *Handler) (*testClient, <-chan struct{}) {
	t.Helper()
	server, client := net.Pipe()
	_ = client.SetDeadline(time.Now().Add(5 * time.Second))
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer server.Close()
		h.Serve(context.Background(), server)
	}()
	t.Cleanup(func() { _ = client.Close() })
	return &testClient{t: t, conn: client}, done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not terminate")
	}
}

func TestLoginLoopAndCommands(t *testing.T) {
	g := &fakeGame{
		password: "secret",
		guess:    engine.GuessResult{Kind: engine.GuessPattern, Pattern: game.Pattern("X?+XX")},
		attempts: []string{"+++++"},
	}
	sharer := &fakeSharer{}
	hub := notify.NewHub(4)
	c, done := startHandler(t, NewHandler(g, hub, sharer))

	c.send("bob", "secret")
	assert.Equal(t, int32(engine.LoginNotRegistered), c.readInt())
	c.send("ada", "wrong")
	assert.Equal(t, int32(engine.LoginBadPassword), c.readInt())
	c.send("ada", "secret")
	assert.Equal(t, int32(engine.LoginOK), c.readInt())

	c.send(CmdPlay)
	assert.Equal(t, PlayJoined, c.readInt())

	c.send(CmdGuess, "slate")
	assert.Equal(t, "X?+XX", c.readFrame())

	c.send(CmdStatistics)
	assert.Equal(t, "Games played: 1\n", c.readFrame())

	c.send(CmdShare)
	assert.Equal(t, int32(0), c.readInt())

	_, ok := hub.Get("ada")
	assert.True(t, ok, "mailbox opened after login")

	c.send(CmdLogout)
	assert.Equal(t, int32(0), c.readInt())
	waitDone(t, done)

	assert.Equal(t, []string{"slate"}, g.guesses)
	assert.Equal(t, []string{"ada"}, sharer.sharedBy())
	assert.GreaterOrEqual(t, g.logoutCount(), 1)
	_, ok = hub.Get("ada")
	assert.False(t, ok, "mailbox released on exit")
	_, isMailbox := g.sink.(*notify.Mailbox)
	assert.True(t, isMailbox)
}

func TestPlayAfterRoundEnded(t *testing.T) {
	g := &fakeGame{password: "pw", join: engine.JoinResult{Status: engine.JoinJoined, Ended: "gru"}}
	c, _ := startHandler(t, NewHandler(g, nil, nil))
	c.send("ada", "pw")
	require.Equal(t, int32(0), c.readInt())

	c.send(CmdPlay)
	assert.Equal(t, PlayJoined, c.readInt())
	// One int per play; the next reply belongs to the next command.
	c.send(CmdLogout)
	assert.Equal(t, int32(0), c.readInt())
}

func TestPlayReplies(t *testing.T) {
	cases := map[engine.JoinStatus]int32{
		engine.JoinAlreadyDone: PlayAlreadyDone,
		engine.JoinNotOnline:   PlayNotOnline,
	}
	for status, want := range cases {
		g := &fakeGame{password: "pw", join: engine.JoinResult{Status: status}}
		c, _ := startHandler(t, NewHandler(g, nil, nil))
		c.send("ada", "pw")
		require.Equal(t, int32(0), c.readInt())
		c.send(CmdPlay)
		assert.Equal(t, want, c.readInt())
	}
}

func TestShareFailures(t *testing.T) {
	g := &fakeGame{password: "pw"}
	sharer := &fakeSharer{}
	c, _ := startHandler(t, NewHandler(g, nil, sharer))
	c.send("ada", "pw")
	require.Equal(t, int32(0), c.readInt())

	c.send(CmdShare)
	assert.Equal(t, int32(-1), c.readInt(), "nothing finished yet")

	g.mu.Lock()
	g.attempts = []string{"XXXXX"}
	g.mu.Unlock()
	sharer.mu.Lock()
	sharer.err = errors.New("network down")
	sharer.mu.Unlock()

	c.send(CmdShare)
	assert.Equal(t, int32(-1), c.readInt())
}

func TestDisconnectLogsOut(t *testing.T) {
	g := &fakeGame{password: "pw"}
	hub := notify.NewHub(4)
	c, done := startHandler(t, NewHandler(g, hub, nil))
	c.send("ada", "pw")
	require.Equal(t, int32(0), c.readInt())

	require.NoError(t, c.conn.Close())
	waitDone(t, done)

	assert.Equal(t, 1, g.logoutCount())
	assert.Equal(t, 0, hub.Len())
}

func TestUnknownCommandTerminates(t *testing.T) {
	g := &fakeGame{password: "pw"}
	c, done := startHandler(t, NewHandler(g, nil, nil))
	c.send("ada", "pw")
	require.Equal(t, int32(0), c.readInt())

	c.send("dance")
	waitDone(t, done)
	assert.Equal(t, 1, g.logoutCount())
}

func TestOversizeFrameTerminates(t *testing.T) {
	g := &fakeGame{password: "pw"}
	c, done := startHandler(t, NewHandler(g, nil, nil))
	c.send("ada", "pw")
	require.Equal(t, int32(0), c.readInt())

	require.NoError(t, WriteInt(c.conn, MaxFrame+1))
	waitDone(t, done)
	assert.Equal(t, 1, g.logoutCount())
}

func TestDisconnectBeforeLogin(t *testing.T) {
	g := &fakeGame{password: "pw"}
	c, done := startHandler(t, NewHandler(g, nil, nil))
	c.send("ada")
	require.NoError(t, c.conn.Close())
	waitDone(t, done)
	assert.Zero(t, g.logoutCount())
}

func TestGuessReply(t *testing.T) {
	cases := []struct {
		in   engine.GuessResult
		want string
	}{
		{engine.GuessResult{Kind: engine.GuessPattern, Pattern: "??+X+"}, "??+X+"},
		{engine.GuessResult{Kind: engine.GuessWin, Pattern: "+++++", Word: "gru"}, "win_gru"},
		{engine.GuessResult{Kind: engine.GuessRoundEnded, Word: "gru"}, "timeout_gru"},
		{engine.GuessResult{Kind: engine.GuessAlreadyWon}, "justWin"},
		{engine.GuessResult{Kind: engine.GuessTooManyAttempts}, "maxAtt"},
		{engine.GuessResult{Kind: engine.GuessNotInDictionary}, "error"},
		{engine.GuessResult{Kind: engine.GuessNotPlaying}, "notAllow"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GuessReply(tc.in))
	}
}
