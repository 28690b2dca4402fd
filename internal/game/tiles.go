// internal/game/tiles.go
//
// Guess evaluation for a round.
//
// A guess is scored tile by tile against the secret:
//   '+' exact:   letter in the right position.
//   '?' present: letter occurs elsewhere in the secret.
//   'X' absent:  no unconsumed occurrence left in the secret.
//
// Letters of the secret are consumed as they are credited, so a letter that
// appears once in the secret is never credited to two positions of the guess.

package game

import "strings"

// Tile is the evaluation of a single letter.
type Tile byte

const (
	TileExact   Tile = '+'
	TilePresent Tile = '?'
	TileAbsent  Tile = 'X'
)

// Pattern is the ordered tile sequence for one guess, e.g. "+?XX+".
type Pattern string

// Winning reports whether every tile is exact.
func (p Pattern) Winning() bool {
	if p == "" {
		return false
	}
	return strings.Count(string(p), string(TileExact)) == len(p)
}

// Evaluate scores guess against secret. ok is false when the two words do
// not have the same number of letters.
//
// Pass 1 marks exact positions; every other secret letter goes into a
// remaining-letter count. Pass 2 walks the non-exact positions left to
// right, crediting present while the count for that letter is positive.
func Evaluate(secret, guess string) (p Pattern, ok bool) {
	s := []rune(secret)
	g := []rune(guess)
	if len(s) != len(g) || len(s) == 0 {
		return "", false
	}

	tiles := make([]Tile, len(g))
	remaining := make(map[rune]int, len(s))

	for i := range g {
		if g[i] == s[i] {
			tiles[i] = TileExact
		} else {
			remaining[s[i]]++
		}
	}

	for i := range g {
		if tiles[i] == TileExact {
			continue
		}
		if remaining[g[i]] > 0 {
			tiles[i] = TilePresent
			remaining[g[i]]--
		} else {
			tiles[i] = TileAbsent
		}
	}

	b := make([]byte, len(tiles))
	for i, t := range tiles {
		b[i] = byte(t)
	}
	return Pattern(b), true
}

// WinningPattern returns the all-exact pattern for a word of n letters.
func WinningPattern(n int) Pattern {
	return Pattern(strings.Repeat(string(TileExact), n))
}
