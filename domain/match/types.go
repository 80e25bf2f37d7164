package match

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Match is one historical head-to-head result. It is populated once by the
// loader and never mutated afterwards.
type Match struct {
	Row         int       `json:"row"` // position in the source table, breaks date ties
	Date        time.Time `json:"date"`
	PlayerA     string    `json:"player_a"`
	PlayerB     string    `json:"player_b"`
	Winner      string    `json:"winner"`
	Loser       string    `json:"loser"`
	AvgWinOdds  float64   `json:"avg_win_odds"`
	AvgLossOdds float64   `json:"avg_loss_odds"`
	Tournament  string    `json:"tournament,omitempty"`
	Series      string    `json:"series,omitempty"`
	EloWinner   *float64  `json:"elo_winner,omitempty"` // pre-match rating of the winner
	EloLoser    *float64  `json:"elo_loser,omitempty"`
}

// Involves reports whether both players of the pair took part in m.
func (m Match) Involves(p Pair) bool {
	return (m.PlayerA == p.P1 && m.PlayerB == p.P2) || (m.PlayerA == p.P2 && m.PlayerB == p.P1)
}

// Pair is an unordered competitor pair held in canonical order (P1 < P2).
// Build it with NewPair so that swapped arguments compare equal.
type Pair struct {
	P1 string `json:"player1"`
	P2 string `json:"player2"`
}

// NewPair canonicalizes a and b lexicographically.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{P1: a, P2: b}
}

// Other returns the opponent of player within the pair.
func (p Pair) Other(player string) (string, bool) {
	switch player {
	case p.P1:
		return p.P2, true
	case p.P2:
		return p.P1, true
	}
	return "", false
}

// IsSelf is true for the degenerate pair of a competitor with itself.
func (p Pair) IsSelf() bool { return p.P1 == p.P2 }

func (p Pair) String() string { return p.P1 + " vs " + p.P2 }

// UpsetBasis selects what defines the favourite of a match.
type UpsetBasis string

const (
	BasisOdds UpsetBasis = "odds"
	BasisElo  UpsetBasis = "elo"
)

// ParseUpsetBasis accepts "odds" or "elo", case-insensitively.
func ParseUpsetBasis(s string) (UpsetBasis, error) {
	switch UpsetBasis(strings.ToLower(strings.TrimSpace(s))) {
	case BasisOdds, "":
		return BasisOdds, nil
	case BasisElo:
		return BasisElo, nil
	}
	return "", fmt.Errorf("unknown upset basis %q (want odds or elo)", s)
}

// SortChronologically orders matches by ascending date, ties by source row.
// The input slice is not modified.
func SortChronologically(matches []Match) []Match {
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Row < sorted[j].Row
	})
	return sorted
}
