package engine

import (
	"fmt"
	"sort"

	"github.com/robalobadob/wordle/apps/round-server/internal/game"
)

// TopN is the number of leaderboard entries pushed to players.
const TopN = 3

// Standing is one ranked leaderboard entry.
type Standing struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	Played   int     `json:"played"`
	Won      int     `json:"won"`
}

// rank scores every account that has played and sorts ascending by score.
// accounts must be in registration order; the stable sort keeps that order
// for ties.
func rank(accounts []*game.Account) []Standing {
	out := make([]Standing, 0, len(accounts))
	for _, a := range accounts {
		score, ok := a.Score()
		if !ok {
			continue
		}
		out = append(out, Standing{Username: a.Username, Score: score, Played: a.GamesPlayed, Won: a.GamesWon})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// topLines renders the first TopN standings as notification lines.
func topLines(board []Standing) []string {
	n := min(TopN, len(board))
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		lines[i] = formatStanding(board[i])
	}
	return lines
}

func formatStanding(s Standing) string {
	return fmt.Sprintf("%d) %s – score: %.2f", s.Rank, s.Username, s.Score)
}
