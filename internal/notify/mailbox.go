// internal/notify/mailbox.go
//
// Per-session notification buffering.
//
// A Mailbox is the engine-facing sink of one online session. Delivery never
// blocks: events are queued on a bounded channel and dropped when the
// consumer (the websocket stream) is absent or too slow. The first drop of
// a run is reported to the caller; the rest are only counted.

package notify

import (
	"errors"
	"sync"
)

var (
	ErrFull   = errors.New("notify: mailbox full")
	ErrClosed = errors.New("notify: mailbox closed")
)

// Event types as sent to websocket clients.
const (
	TypeLeaderboard = "leaderboard"
	TypeRoundEnded  = "round_ended"
)

// Event is one push notification.
type Event struct {
	Type string   `json:"type"`
	Top  []string `json:"top,omitempty"`
	Word string   `json:"word,omitempty"`
}

// Mailbox queues events for a single session.
type Mailbox struct {
	username string
	ch       chan Event

	mu      sync.Mutex
	closed  bool
	claimed bool
	dropped int
	drops   int
}

// NewMailbox returns a mailbox holding up to size undelivered events.
func NewMailbox(username string, size int) *Mailbox {
	if size <= 0 {
		size = 1
	}
	return &Mailbox{username: username, ch: make(chan Event, size)}
}

// Username is the session owner.
func (m *Mailbox) Username() string { return m.username }

// LeaderboardChanged queues a leaderboard event.
func (m *Mailbox) LeaderboardChanged(top []string) error {
	return m.offer(Event{Type: TypeLeaderboard, Top: append([]string(nil), top...)})
}

// RoundEnded queues a round-ended event.
func (m *Mailbox) RoundEnded(word string) error {
	return m.offer(Event{Type: TypeRoundEnded, Word: word})
}

func (m *Mailbox) offer(ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	select {
	case m.ch <- ev:
		m.dropped = 0
		return nil
	default:
		m.dropped++
		m.drops++
		if m.dropped == 1 {
			return ErrFull
		}
		return nil
	}
}

// Events is the receive side. It is closed by Close.
func (m *Mailbox) Events() <-chan Event { return m.ch }

// Claim marks the mailbox as having a consumer. Only the first call
// succeeds until Unclaim.
func (m *Mailbox) Claim() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed || m.closed {
		return false
	}
	m.claimed = true
	return true
}

// Unclaim releases a successful Claim.
func (m *Mailbox) Unclaim() {
	m.mu.Lock()
	m.claimed = false
	m.mu.Unlock()
}

// Drops is the total number of events discarded on a full buffer.
func (m *Mailbox) Drops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}

// Close stops accepting events and closes the channel. Safe to call twice.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}
