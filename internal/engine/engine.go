// internal/engine/engine.go
//
// The game engine: single owner of all mutable shared state.
//
// Responsibilities:
//   - Account store (registration order preserved for leaderboard ties).
//   - Session registry (at most one session per account).
//   - Round state (one active round; replaced only by AdvanceRound).
//   - Leaderboard recompute and notification fan-out.
//
// Every public operation runs under one exclusive lock so that operations
// touching accounts, sessions and the round together are linearizable.
// Slow work stays off that lock: bcrypt, translation lookups, snapshot
// persistence, and notification delivery.

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/wordle/apps/round-server/internal/game"
	"github.com/robalobadob/wordle/apps/round-server/internal/store"
	"github.com/robalobadob/wordle/apps/round-server/internal/words"
)

// Translator looks up a best-effort translation of the secret word.
type Translator interface {
	Translate(ctx context.Context, word string) (string, error)
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// Translator is optional; without one rounds carry no translation.
	Translator Translator
	// HashCost is the bcrypt cost for new passwords (default bcrypt.DefaultCost).
	HashCost int
}

// Round is the active round.
type Round struct {
	Secret      string
	Translation string
	Index       int64
	StartedAt   time.Time
}

// reveal is the word shown to players when the round is over: the
// translation when one was found, the secret otherwise.
func (r Round) reveal() string {
	if r.Translation != "" {
		return r.Translation
	}
	return r.Secret
}

// RoundInfo is the public view of the active round; it never includes the
// secret.
type RoundInfo struct {
	Index      int64     `json:"index"`
	WordLength int       `json:"wordLength"`
	StartedAt  time.Time `json:"startedAt"`
	Online     int       `json:"online"`
}

// Engine is the aggregate of account store, session registry, round state
// and leaderboard.
type Engine struct {
	dict       *words.Dictionary
	store      store.Store
	translator Translator
	hashCost   int

	mu       sync.Mutex
	accounts map[string]*game.Account
	order    []*game.Account
	sessions map[string]*Session
	round    Round
	board    []Standing
	version  uint64

	saveMu       sync.Mutex
	savedVersion uint64
}

// New constructs an Engine. Call Start before serving players.
func New(dict *words.Dictionary, st store.Store, opts Options) *Engine {
	cost := opts.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Engine{
		dict:       dict,
		store:      st,
		translator: opts.Translator,
		hashCost:   cost,
		accounts:   make(map[string]*game.Account),
		sessions:   make(map[string]*Session),
	}
}

// Start restores the persisted snapshot, if any, and opens the first round.
func (e *Engine) Start(ctx context.Context) error {
	snap, err := e.store.Load(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if snap != nil {
		for _, a := range snap.Accounts {
			e.accounts[a.Username] = a
			e.order = append(e.order, a)
		}
		e.round.Index = snap.RoundIndex
		e.board = rank(e.order)
		log.Info().Int("accounts", len(e.order)).Int64("round", snap.RoundIndex).Msg("snapshot restored")
	}
	e.mu.Unlock()

	e.AdvanceRound(ctx)
	return nil
}

// Flush synchronously persists the current state.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	snap, v := e.snapshotLocked()
	e.mu.Unlock()
	return e.save(ctx, snap, v)
}

// ------------------------------ accounts -----------------------------------

// Register creates an account with zeroed statistics and persists it. A
// failed save removes the account again so the caller can retry.
func (e *Engine) Register(ctx context.Context, username, password string) RegisterStatus {
	username = normalizeUsername(username)
	if err := validateCredentials(username, password); err != nil {
		log.Debug().Err(err).Str("user", username).Msg("register rejected")
		return RegisterInvalid
	}

	e.mu.Lock()
	_, exists := e.accounts[username]
	e.mu.Unlock()
	if exists {
		return RegisterExists
	}

	hash, err := hashPassword(password, e.hashCost)
	if err != nil {
		log.Error().Err(err).Str("user", username).Msg("hash password")
		return RegisterInvalid
	}

	e.mu.Lock()
	if _, exists := e.accounts[username]; exists {
		e.mu.Unlock()
		return RegisterExists
	}
	acc := game.NewAccount(username, hash)
	e.accounts[username] = acc
	e.order = append(e.order, acc)
	snap, v := e.snapshotLocked()
	e.mu.Unlock()

	if err := e.save(ctx, snap, v); err != nil {
		log.Error().Err(err).Str("user", username).Msg("persist new account")
		e.rollbackRegistration(ctx, acc)
		return RegisterStorageError
	}
	log.Info().Str("user", username).Msg("account registered")
	return RegisterOK
}

// rollbackRegistration drops acc unless it has already been used. A
// snapshot taken by another operation after the registration may still be
// queued with acc in it, so the removal is saved under a newer version that
// supersedes it.
func (e *Engine) rollbackRegistration(ctx context.Context, acc *game.Account) {
	e.mu.Lock()
	if e.accounts[acc.Username] != acc || acc.GamesPlayed > 0 {
		e.mu.Unlock()
		return
	}
	if _, online := e.sessions[acc.Username]; online {
		e.mu.Unlock()
		return
	}
	delete(e.accounts, acc.Username)
	for i, a := range e.order {
		if a == acc {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	snap, v := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(ctx, snap, v)
}

// Authenticate checks credentials without opening a session.
func (e *Engine) Authenticate(username, password string) bool {
	username = normalizeUsername(username)
	e.mu.Lock()
	acc := e.accounts[username]
	e.mu.Unlock()
	if acc == nil || password == "" {
		return false
	}
	return checkPassword(acc.PasswordHash, password)
}

// ------------------------------ sessions -----------------------------------

// Login opens a session for username. The password check runs outside the
// lock; the one-session-per-account rule is enforced under it.
func (e *Engine) Login(username, password string) (LoginStatus, *Session) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return LoginError, nil
	}

	e.mu.Lock()
	acc := e.accounts[username]
	e.mu.Unlock()
	if acc == nil {
		return LoginNotRegistered, nil
	}
	if !checkPassword(acc.PasswordHash, password) {
		return LoginBadPassword, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.accounts[username] != acc {
		return LoginNotRegistered, nil
	}
	if _, online := e.sessions[username]; online {
		return LoginAlreadyOnline, nil
	}
	s := &Session{
		ID:       uuid.NewString(),
		Username: username,
		LoginAt:  time.Now(),
		account:  acc,
	}
	// Resume a round the account joined before reconnecting.
	if acc.Round == e.round.Index && acc.Round != 0 && acc.GamesPlayed > 0 {
		s.playing = true
		s.won = acc.RoundWon
	}
	e.sessions[username] = s
	log.Info().Str("user", username).Str("session", s.ID).Msg("login")
	return LoginOK, s
}

// AttachSink binds the notification target of username's session,
// replacing any previous one. It reports false when the account is offline.
func (e *Engine) AttachSink(username string, sink Sink) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[username]
	if !ok {
		return false
	}
	s.sink = sink
	return true
}

// Logout removes username's session; it is a no-op when offline.
func (e *Engine) Logout(username string) {
	e.mu.Lock()
	s, ok := e.sessions[username]
	if ok {
		delete(e.sessions, username)
	}
	e.mu.Unlock()
	if ok {
		log.Info().Str("user", username).Str("session", s.ID).Msg("logout")
	}
}

// SessionState returns a copy of username's session flags.
func (e *Engine) SessionState(username string) (SessionState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[username]
	if !ok {
		return SessionState{}, false
	}
	return s.state(), true
}

// -------------------------------- play -------------------------------------

// JoinRound enters username into the active round.
func (e *Engine) JoinRound(ctx context.Context, username string) JoinResult {
	e.mu.Lock()
	s, ok := e.sessions[username]
	if !ok {
		e.mu.Unlock()
		return JoinResult{Status: JoinNotOnline}
	}
	ended, _ := s.takePending()

	if s.playing {
		status := JoinJoined
		if s.won || s.account.Exhausted() {
			status = JoinAlreadyDone
		}
		e.mu.Unlock()
		return JoinResult{Status: status, Ended: ended}
	}

	s.account.BeginRound(e.round.Index)
	s.playing = true
	s.won = false
	snap, v := e.snapshotLocked()
	f := e.leaderboardFanoutLocked()
	round := e.round.Index
	e.mu.Unlock()

	log.Debug().Str("user", username).Int64("round", round).Msg("joined round")
	e.persist(ctx, snap, v)
	e.deliver(f)
	return JoinResult{Status: JoinJoined, Ended: ended}
}

// SubmitGuess evaluates guess for username against the active round.
//
// Checks run in a fixed order: a pending round-end word is returned first,
// then not playing, already won, attempts exhausted, and not in the
// dictionary (which consumes no attempt). Only an evaluated guess changes
// durable state.
func (e *Engine) SubmitGuess(ctx context.Context, username, guess string) GuessResult {
	guess = strings.ToLower(strings.TrimSpace(guess))

	e.mu.Lock()
	s, ok := e.sessions[username]
	if !ok {
		e.mu.Unlock()
		return GuessResult{Kind: GuessNotPlaying}
	}
	if w, ok := s.takePending(); ok {
		e.mu.Unlock()
		return GuessResult{Kind: GuessRoundEnded, Word: w}
	}
	acc := s.account
	switch {
	case !s.playing:
		e.mu.Unlock()
		return GuessResult{Kind: GuessNotPlaying}
	case s.won:
		e.mu.Unlock()
		return GuessResult{Kind: GuessAlreadyWon}
	case acc.Exhausted():
		e.mu.Unlock()
		return GuessResult{Kind: GuessTooManyAttempts}
	case !e.dict.Contains(guess):
		e.mu.Unlock()
		return GuessResult{Kind: GuessNotInDictionary}
	}

	p, ok := game.Evaluate(e.round.Secret, guess)
	if !ok {
		e.mu.Unlock()
		return GuessResult{Kind: GuessNotInDictionary}
	}
	res := GuessResult{Kind: GuessPattern, Pattern: p}
	if acc.Record(p) {
		s.won = true
		res = GuessResult{Kind: GuessWin, Pattern: p, Word: e.round.reveal()}
	}
	attempts := len(acc.Attempts)
	snap, v := e.snapshotLocked()
	f := e.leaderboardFanoutLocked()
	e.mu.Unlock()

	log.Debug().Str("user", username).Str("pattern", string(p)).Int("attempt", attempts).Msg("guess evaluated")
	e.persist(ctx, snap, v)
	e.deliver(f)
	return res
}

// Statistics returns username's formatted statistics.
func (e *Engine) Statistics(username string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc, ok := e.accounts[username]
	if !ok {
		return "", false
	}
	return acc.Statistics(), true
}

// LastRoundAttempts returns the tile patterns of username's latest round,
// only once that round is won or its attempts are exhausted.
func (e *Engine) LastRoundAttempts(username string) ([]string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc, ok := e.accounts[username]
	if !ok {
		return nil, false
	}
	return acc.LastAttempts()
}

// ------------------------------- rounds ------------------------------------

// AdvanceRound ends the active round and opens a new one. The new word and
// its translation are chosen before the lock is taken; the swap itself,
// the session bookkeeping and the snapshot happen atomically under it.
func (e *Engine) AdvanceRound(ctx context.Context) {
	word := e.dict.Random()
	translation := e.translate(ctx, word)

	e.mu.Lock()
	old := e.round
	revealed := old.reveal()
	pending := 0
	for _, s := range e.sessions {
		if s.playing && !s.won && !s.account.Exhausted() {
			s.pendingEnded, s.hasPending = revealed, true
			pending++
		}
		s.playing = false
		s.won = false
	}
	if old.Index != 0 {
		for _, a := range e.order {
			if a.Round == old.Index && a.GamesPlayed > 0 && !a.Finished() {
				a.Abandon()
			}
		}
	}
	e.round = Round{Secret: word, Translation: translation, Index: old.Index + 1, StartedAt: time.Now()}
	snap, v := e.snapshotLocked()
	f := e.leaderboardFanoutLocked()
	if old.Secret != "" {
		f.ended, f.hasEnded = revealed, true
	}
	e.mu.Unlock()

	log.Info().Int64("round", old.Index+1).Int("pending", pending).Int("notified", len(f.targets)).Msg("round advanced")
	log.Debug().Str("secret", word).Str("translation", translation).Msg("new secret word")
	e.persist(ctx, snap, v)
	e.deliver(f)
}

func (e *Engine) translate(ctx context.Context, word string) string {
	if e.translator == nil {
		return ""
	}
	t, err := e.translator.Translate(ctx, word)
	if err != nil {
		log.Warn().Err(err).Msg("translation lookup failed")
		return ""
	}
	return t
}

// ------------------------------- views -------------------------------------

// Leaderboard returns a copy of the current ranking.
func (e *Engine) Leaderboard() []Standing {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Standing, len(e.board))
	copy(out, e.board)
	return out
}

// Top returns the leaderboard notification lines.
func (e *Engine) Top() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return topLines(e.board)
}

// Round describes the active round without revealing its word.
func (e *Engine) Round() RoundInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return RoundInfo{
		Index:      e.round.Index,
		WordLength: e.dict.WordLength(),
		StartedAt:  e.round.StartedAt,
		Online:     len(e.sessions),
	}
}

// Online is the number of open sessions.
func (e *Engine) Online() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// ----------------------------- persistence ---------------------------------

// snapshotLocked copies the durable state and stamps it with a new version.
// e.mu must be held.
func (e *Engine) snapshotLocked() (*store.Snapshot, uint64) {
	e.version++
	snap := &store.Snapshot{RoundIndex: e.round.Index, Accounts: make([]*game.Account, len(e.order))}
	for i, a := range e.order {
		snap.Accounts[i] = a.Clone()
	}
	return snap, e.version
}

// save writes snap unless a newer version has already been written. Saves
// are serialized so snapshots reach the store in version order.
func (e *Engine) save(ctx context.Context, snap *store.Snapshot, v uint64) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	if v <= e.savedVersion {
		return nil
	}
	if err := e.store.Save(ctx, snap); err != nil {
		return err
	}
	e.savedVersion = v
	return nil
}

// persist is save for operations where a storage failure is logged and the
// in-memory result stands.
func (e *Engine) persist(ctx context.Context, snap *store.Snapshot, v uint64) {
	if err := e.save(ctx, snap, v); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Uint64("version", v).Msg("persist snapshot")
	}
}
