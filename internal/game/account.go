// internal/game/account.go
//
// Durable per-account state: credentials, lifetime statistics and the
// attempts of the account's most recent round.
//
// Accounts are plain data. They are not safe for concurrent use; the engine
// owns them and mutates them only while holding its state lock.

package game

import (
	"fmt"
	"strings"
)

// MaxAttempts is the number of guesses allowed per round.
const MaxAttempts = 12

// Account is a registered player.
type Account struct {
	Username      string
	PasswordHash  string `json:"-"`
	GamesPlayed   int
	GamesWon      int
	CurrentStreak int
	BestStreak    int
	// Histogram[k-1] counts rounds won on the k-th attempt.
	Histogram [MaxAttempts]int
	// Attempts holds the tile patterns of the round identified by Round.
	Attempts []string
	Round    int64
	RoundWon bool
}

// NewAccount returns an account with zeroed statistics.
func NewAccount(username, passwordHash string) *Account {
	return &Account{Username: username, PasswordHash: passwordHash}
}

// BeginRound counts a new game and clears the attempt list.
func (a *Account) BeginRound(round int64) {
	a.GamesPlayed++
	a.Attempts = make([]string, 0, MaxAttempts)
	a.Round = round
	a.RoundWon = false
}

// Exhausted reports whether every attempt of the current round is used.
func (a *Account) Exhausted() bool { return len(a.Attempts) >= MaxAttempts }

// Finished reports whether the account's current round is over for it.
func (a *Account) Finished() bool { return a.RoundWon || a.Exhausted() }

// Record appends p to the attempt list and updates statistics. It reports
// whether p won the round.
func (a *Account) Record(p Pattern) (won bool) {
	a.Attempts = append(a.Attempts, string(p))
	if p.Winning() {
		a.RoundWon = true
		a.GamesWon++
		a.CurrentStreak++
		if a.CurrentStreak > a.BestStreak {
			a.BestStreak = a.CurrentStreak
		}
		a.Histogram[len(a.Attempts)-1]++
		return true
	}
	if a.Exhausted() {
		a.CurrentStreak = 0
	}
	return false
}

// Abandon breaks the streak of a round that ended before the account
// finished it.
func (a *Account) Abandon() { a.CurrentStreak = 0 }

// LastAttempts returns a copy of the latest round's attempts, but only once
// that round is won or exhausted.
func (a *Account) LastAttempts() ([]string, bool) {
	if len(a.Attempts) == 0 || !a.Finished() {
		return nil, false
	}
	out := make([]string, len(a.Attempts))
	copy(out, a.Attempts)
	return out, true
}

// Score is the average number of attempts per game, counting a lost or
// unfinished game as MaxAttempts+1. Lower is better. ok is false for an
// account that has not played.
func (a *Account) Score() (score float64, ok bool) {
	if a.GamesPlayed == 0 {
		return 0, false
	}
	total := 0
	for i, n := range a.Histogram {
		total += (i + 1) * n
	}
	total += (MaxAttempts + 1) * (a.GamesPlayed - a.GamesWon)
	return float64(total) / float64(a.GamesPlayed), true
}

// WinPercentage is GamesWon over GamesPlayed, 0 when nothing was played.
func (a *Account) WinPercentage() float64 {
	if a.GamesPlayed == 0 {
		return 0
	}
	return float64(a.GamesWon) * 100 / float64(a.GamesPlayed)
}

// Statistics renders the summary sent for the "statistics" command.
func (a *Account) Statistics() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Games played: %d\n", a.GamesPlayed)
	fmt.Fprintf(&b, "Win percentage: %.1f%%\n", a.WinPercentage())
	fmt.Fprintf(&b, "Current streak: %d\n", a.CurrentStreak)
	fmt.Fprintf(&b, "Best streak: %d\n", a.BestStreak)
	b.WriteString("Guess distribution:\n")
	for i, n := range a.Histogram {
		fmt.Fprintf(&b, "%2d: %d\n", i+1, n)
	}
	return b.String()
}

// Clone returns a deep copy suitable for handing to a persistence layer.
func (a *Account) Clone() *Account {
	c := *a
	if a.Attempts != nil {
		c.Attempts = append([]string(nil), a.Attempts...)
	}
	return &c
}
