package engine

import (
	"time"

	"github.com/robalobadob/wordle/apps/round-server/internal/game"
)

// Session is the runtime record of an online account. Only the exported
// identity fields may be read outside the engine; everything else is
// guarded by the engine lock.
type Session struct {
	ID       string
	Username string
	LoginAt  time.Time

	account *game.Account
	sink    Sink

	playing bool
	won     bool

	// pendingEnded is the revealed word of a round that ended while this
	// session was still playing it; delivered once on the next join/guess.
	pendingEnded string
	hasPending   bool
}

// SessionState is a point-in-time copy of a session's play flags.
type SessionState struct {
	Playing      bool
	Won          bool
	HasPending   bool
	PendingEnded string
	HasSink      bool
}

func (s *Session) state() SessionState {
	return SessionState{
		Playing:      s.playing,
		Won:          s.won,
		HasPending:   s.hasPending,
		PendingEnded: s.pendingEnded,
		HasSink:      s.sink != nil,
	}
}

// takePending returns and clears the pending round-end word.
func (s *Session) takePending() (string, bool) {
	if !s.hasPending {
		return "", false
	}
	w := s.pendingEnded
	s.pendingEnded, s.hasPending = "", false
	return w, true
}
