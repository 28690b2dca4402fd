package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		guess  string
		want   Pattern
	}{
		{"self is all exact", "crane", "crane", "+++++"},
		{"no shared letters", "crane", "blimp", "XXXXX"},
		{"anagram", "crane", "nacre", "????+"},
		// secret ALLOY has two Ls: the guess's first two non-exact Ls take
		// them, the third finds none left.
		{"repeated guess letter", "alloy", "lolly", "??+X+"},
		// SPEED has two Es, both already matched or consumed once each.
		{"repeated secret letter", "speed", "erase", "?XX??"},
		{"exact consumes before present", "speed", "geese", "X?+?X"},
		{"single letter credited once", "robot", "ooooo", "X+X+X"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Evaluate(tc.secret, tc.guess)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateNeverOverCredits(t *testing.T) {
	secret, guess := "speed", "erase"
	p, ok := Evaluate(secret, guess)
	require.True(t, ok)

	credited := map[rune]int{}
	for i, r := range guess {
		if Tile(p[i]) != TileAbsent {
			credited[r]++
		}
	}
	available := map[rune]int{}
	for _, r := range secret {
		available[r]++
	}
	for r, n := range credited {
		assert.LessOrEqualf(t, n, available[r], "letter %q credited %d times", r, n)
	}
}

func TestEvaluateLengthMismatch(t *testing.T) {
	_, ok := Evaluate("crane", "cranes")
	assert.False(t, ok)
	_, ok = Evaluate("", "")
	assert.False(t, ok)
}

func TestPatternWinning(t *testing.T) {
	assert.True(t, WinningPattern(5).Winning())
	assert.Equal(t, Pattern("++++++++++"), WinningPattern(10))
	assert.False(t, Pattern("++?++").Winning())
	assert.False(t, Pattern("").Winning())
}
