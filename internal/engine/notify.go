package engine

import "github.com/rs/zerolog/log"

// Sink receives push notifications for one online session.
//
// Implementations must not block: the engine delivers after releasing its
// lock, but in the goroutine of the operation that caused the event. A
// returned error is logged and otherwise ignored.
type Sink interface {
	LeaderboardChanged(top []string) error
	RoundEnded(word string) error
}

// target is a session sink captured under the engine lock.
type target struct {
	username string
	sink     Sink
}

// fanout is the set of events one operation produced, computed under the
// lock and delivered after it is released.
type fanout struct {
	targets  []target
	ended    string
	hasEnded bool
	top      []string
	hasBoard bool
}

// targetsLocked lists every online session with a sink. e.mu must be held.
func (e *Engine) targetsLocked() []target {
	out := make([]target, 0, len(e.sessions))
	for name, s := range e.sessions {
		if s.sink != nil {
			out = append(out, target{username: name, sink: s.sink})
		}
	}
	return out
}

// leaderboardFanoutLocked recomputes the ranking and prepares a leaderboard
// event for every online session. e.mu must be held.
func (e *Engine) leaderboardFanoutLocked() fanout {
	e.board = rank(e.order)
	return fanout{targets: e.targetsLocked(), top: topLines(e.board), hasBoard: true}
}

// deliver pushes f to each target independently. Must be called without
// holding e.mu.
func (e *Engine) deliver(f fanout) {
	for _, t := range f.targets {
		if f.hasEnded {
			if err := t.sink.RoundEnded(f.ended); err != nil {
				log.Warn().Err(err).Str("user", t.username).Msg("round-ended notification dropped")
			}
		}
		if f.hasBoard {
			if err := t.sink.LeaderboardChanged(f.top); err != nil {
				log.Warn().Err(err).Str("user", t.username).Msg("leaderboard notification dropped")
			}
		}
	}
}
