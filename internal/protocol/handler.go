// internal/protocol/handler.go
//
// Per-connection state machine of the game protocol.
//
//	AwaitingCredentials ──login OK──▶ Authenticated ──logout / error──▶ Terminated
//
// While awaiting credentials the client sends a username frame and a
// password frame and gets the login code back, repeating until it succeeds.
// Once authenticated it sends command frames:
//
//	play        → int: 0 joined, 1 already won or out of attempts, -1 not
//	              online
//	gw <word>   → string: pattern, "win_<word>", "timeout_<word>",
//	              "justWin", "maxAtt", "notAllow" (not joined) or "error"
//	              (not in the dictionary)
//	statistics  → string
//	share       → int: 0 published, -1 nothing to share or send failed
//	logout      → int 0, then the connection ends
//
// Any other token or a framing error ends the connection. However it ends,
// an authenticated session is logged out.

package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rs/zerolog"

	"github.com/robalobadob/wordle/apps/round-server/internal/engine"
	"github.com/robalobadob/wordle/apps/round-server/internal/notify"
)

// Command tokens.
const (
	CmdPlay       = "play"
	CmdGuess      = "gw"
	CmdStatistics = "statistics"
	CmdShare      = "share"
	CmdLogout     = "logout"
)

// Guess replies that are not tile patterns.
const (
	ReplyError     = "error"
	ReplyMaxAtt    = "maxAtt"
	ReplyNotAllow  = "notAllow"
	ReplyJustWin   = "justWin"
	ReplyWinPrefix = "win_"
	ReplyTimeout   = "timeout_"
)

// play replies.
const (
	PlayJoined      int32 = 0
	PlayAlreadyDone int32 = 1
	PlayNotOnline   int32 = -1
)

// Game is the engine surface the handler drives.
type Game interface {
	Login(username, password string) (engine.LoginStatus, *engine.Session)
	AttachSink(username string, sink engine.Sink) bool
	Logout(username string)
	JoinRound(ctx context.Context, username string) engine.JoinResult
	SubmitGuess(ctx context.Context, username, guess string) engine.GuessResult
	Statistics(username string) (string, bool)
	LastRoundAttempts(username string) ([]string, bool)
}

// Sharer publishes a player's finished round.
type Sharer interface {
	Share(username string, attempts []string) error
}

// Handler serves connections against a Game.
type Handler struct {
	game   Game
	hub    *notify.Hub
	sharer Sharer
}

// NewHandler wires a handler. hub and sharer may be nil.
func NewHandler(g Game, hub *notify.Hub, sharer Sharer) *Handler {
	return &Handler{game: g, hub: hub, sharer: sharer}
}

// Serve runs the protocol on conn until it terminates. It does not close
// conn. The logger is taken from ctx.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	logger := zerolog.Ctx(ctx)

	username, err := h.authenticate(conn)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			logger.Debug().Err(err).Msg("connection closed before login")
		}
		return
	}
	logger.Info().Str("user", username).Msg("authenticated")

	var mb *notify.Mailbox
	if h.hub != nil {
		mb = h.hub.Open(username)
		h.game.AttachSink(username, mb)
	}
	defer func() {
		h.game.Logout(username)
		if mb != nil {
			h.hub.Release(mb)
		}
	}()

	if err := h.commands(ctx, conn, username); err != nil && !errors.Is(err, io.EOF) {
		logger.Debug().Err(err).Str("user", username).Msg("connection terminated")
	}
}

// authenticate runs the credential loop and returns the logged-in username.
func (h *Handler) authenticate(conn net.Conn) (string, error) {
	for {
		username, err := ReadFrame(conn)
		if err != nil {
			return "", err
		}
		password, err := ReadFrame(conn)
		if err != nil {
			return "", err
		}
		status, s := h.game.Login(username, password)
		if err := WriteInt(conn, int32(status)); err != nil {
			if status == engine.LoginOK {
				h.game.Logout(s.Username)
			}
			return "", err
		}
		if status == engine.LoginOK {
			return s.Username, nil
		}
	}
}

func (h *Handler) commands(ctx context.Context, conn net.Conn, username string) error {
	for {
		cmd, err := ReadFrame(conn)
		if err != nil {
			return err
		}
		switch cmd {
		case CmdPlay:
			err = h.play(ctx, conn, username)
		case CmdGuess:
			err = h.guess(ctx, conn, username)
		case CmdStatistics:
			stats, ok := h.game.Statistics(username)
			if !ok {
				stats = ReplyError
			}
			err = WriteFrame(conn, stats)
		case CmdShare:
			err = WriteInt(conn, h.share(ctx, username))
		case CmdLogout:
			h.game.Logout(username)
			_ = WriteInt(conn, 0)
			zerolog.Ctx(ctx).Info().Str("user", username).Msg("client logged out")
			return nil
		default:
			return &UnknownCommandError{Token: cmd}
		}
		if err != nil {
			return err
		}
	}
}

func (h *Handler) play(ctx context.Context, conn net.Conn, username string) error {
	res := h.game.JoinRound(ctx, username)
	switch res.Status {
	case engine.JoinNotOnline:
		return WriteInt(conn, PlayNotOnline)
	case engine.JoinAlreadyDone:
		return WriteInt(conn, PlayAlreadyDone)
	}
	if res.Ended != "" {
		// The word already went out as a round_ended notification.
		zerolog.Ctx(ctx).Debug().Str("user", username).Str("word", res.Ended).Msg("joined after missed round end")
	}
	return WriteInt(conn, PlayJoined)
}

func (h *Handler) guess(ctx context.Context, conn net.Conn, username string) error {
	word, err := ReadFrame(conn)
	if err != nil {
		return err
	}
	return WriteFrame(conn, GuessReply(h.game.SubmitGuess(ctx, username, word)))
}

func (h *Handler) share(ctx context.Context, username string) int32 {
	attempts, ok := h.game.LastRoundAttempts(username)
	if !ok || h.sharer == nil {
		return -1
	}
	if err := h.sharer.Share(username, attempts); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user", username).Msg("share failed")
		return -1
	}
	return 0
}

// GuessReply maps a guess result to its wire string.
func GuessReply(r engine.GuessResult) string {
	switch r.Kind {
	case engine.GuessPattern:
		return string(r.Pattern)
	case engine.GuessWin:
		return ReplyWinPrefix + r.Word
	case engine.GuessRoundEnded:
		return ReplyTimeout + r.Word
	case engine.GuessAlreadyWon:
		return ReplyJustWin
	case engine.GuessTooManyAttempts:
		return ReplyMaxAtt
	case engine.GuessNotPlaying:
		return ReplyNotAllow
	case engine.GuessNotInDictionary:
		return ReplyError
	default:
		return ReplyError
	}
}

// UnknownCommandError is returned for an unrecognized command token.
type UnknownCommandError struct{ Token string }

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("protocol: unknown command %q", e.Token)
}
