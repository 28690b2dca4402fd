package engine

import "github.com/robalobadob/wordle/apps/round-server/internal/game"

// RegisterStatus is the outcome of Register.
type RegisterStatus int

const (
	RegisterOK RegisterStatus = iota
	RegisterExists
	RegisterStorageError
	RegisterInvalid
)

func (s RegisterStatus) String() string {
	switch s {
	case RegisterOK:
		return "ok"
	case RegisterExists:
		return "already_exists"
	case RegisterStorageError:
		return "storage_error"
	default:
		return "invalid"
	}
}

// LoginStatus is the outcome of Login. The numeric values are the codes sent
// on the wire.
type LoginStatus int

const (
	LoginOK            LoginStatus = 0
	LoginNotRegistered LoginStatus = 1
	LoginBadPassword   LoginStatus = 2
	LoginAlreadyOnline LoginStatus = 3
	LoginError         LoginStatus = -1
)

// JoinStatus is the outcome of JoinRound.
type JoinStatus int

const (
	JoinJoined JoinStatus = iota
	JoinAlreadyDone
	JoinNotOnline
)

// JoinResult carries the join outcome plus the revealed word of a round
// that ended while the account was still playing it, if one was pending.
type JoinResult struct {
	Status JoinStatus
	Ended  string
}

// GuessKind classifies a SubmitGuess result.
type GuessKind int

const (
	GuessPattern GuessKind = iota
	GuessWin
	GuessRoundEnded
	GuessNotPlaying
	GuessAlreadyWon
	GuessTooManyAttempts
	GuessNotInDictionary
)

// GuessResult is the outcome of SubmitGuess. Pattern is set for GuessPattern
// and GuessWin; Word carries the translated word for GuessWin and the
// revealed word for GuessRoundEnded.
type GuessResult struct {
	Kind    GuessKind
	Pattern game.Pattern
	Word    string
}
