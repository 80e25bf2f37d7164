package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gobogey/domain/match"
)

// MatchGeneratorConfig configures the synthetic match table generator.
type MatchGeneratorConfig struct {
	PlayerCount        int       `json:"player_count"`
	AvgMatchesPerPair  float64   `json:"avg_matches_per_pair"`
	PairDensity        float64   `json:"pair_density"` // share of possible pairs that ever meet
	UpsetRate          float64   `json:"upset_rate"`
	StartDate          time.Time `json:"start_date"`
	DaysBetweenMatches int       `json:"days_between_matches"`
	Seed               int64     `json:"seed"`
}

// DefaultMatchConfig returns a small, dense tour.
func DefaultMatchConfig() MatchGeneratorConfig {
	return MatchGeneratorConfig{
		PlayerCount:        12,
		AvgMatchesPerPair:  6,
		PairDensity:        0.6,
		UpsetRate:          0.3,
		StartDate:          time.Date(2010, 1, 4, 0, 0, 0, 0, time.UTC),
		DaysBetweenMatches: 9,
		Seed:               42,
	}
}

// MatchGenerator produces reproducible match tables.
type MatchGenerator struct {
	config MatchGeneratorConfig
	rng    *rand.Rand
}

// NewMatchGenerator creates a generator seeded from config.
func NewMatchGenerator(config MatchGeneratorConfig) *MatchGenerator {
	return &MatchGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// PlayerName is the synthetic identity of player i.
func PlayerName(i int) string {
	return fmt.Sprintf("Player %03d", i+1)
}

// Generate returns a chronological table with Row set to the position.
func (g *MatchGenerator) Generate() []match.Match {
	var out []match.Match
	date := g.config.StartDate

	for i := 0; i < g.config.PlayerCount; i++ {
		for j := i + 1; j < g.config.PlayerCount; j++ {
			if g.rng.Float64() >= g.config.PairDensity {
				continue
			}
			count := int(math.Round(g.config.AvgMatchesPerPair + g.rng.NormFloat64()))
			if count < 1 {
				count = 1
			}
			for k := 0; k < count; k++ {
				a, b := PlayerName(i), PlayerName(j)
				if g.rng.Intn(2) == 0 {
					a, b = b, a
				}
				date = date.AddDate(0, 0, 1+g.rng.Intn(g.config.DaysBetweenMatches))
				out = append(out, g.match(len(out), date, a, b))
			}
		}
	}
	return out
}

// match draws a favourite and then lets the underdog win with UpsetRate.
func (g *MatchGenerator) match(row int, date time.Time, a, b string) match.Match {
	favourite, underdog := a, b
	if g.rng.Intn(2) == 0 {
		favourite, underdog = b, a
	}
	favOdds := 1.1 + g.rng.Float64()*0.8  // 1.1 to 1.9
	dogOdds := 2.05 + g.rng.Float64()*3.0 // 2.05 to 5.05

	m := match.Match{Row: row, Date: date, PlayerA: a, PlayerB: b, Tournament: "Synthetic Open", Series: "ATP250"}
	if g.rng.Float64() < g.config.UpsetRate {
		m.Winner, m.Loser = underdog, favourite
		m.AvgWinOdds, m.AvgLossOdds = dogOdds, favOdds
	} else {
		m.Winner, m.Loser = favourite, underdog
		m.AvgWinOdds, m.AvgLossOdds = favOdds, dogOdds
	}
	return m
}

// Script builds the history of one pair from a pattern read from p1's side:
//
//	N  p1 wins as favourite      n  p2 wins as favourite
//	W  p1 wins as underdog (UW)  L  p1 loses as favourite (UL)
//
// Matches are one week apart starting at start; rows start at firstRow.
func Script(p1, p2, pattern string, start time.Time, firstRow int) []match.Match {
	out := make([]match.Match, 0, len(pattern))
	for i, c := range pattern {
		m := match.Match{
			Row:     firstRow + i,
			Date:    start.AddDate(0, 0, 7*i),
			PlayerA: p1,
			PlayerB: p2,
		}
		switch c {
		case 'N':
			m.Winner, m.Loser, m.AvgWinOdds, m.AvgLossOdds = p1, p2, 1.4, 3.0
		case 'n':
			m.Winner, m.Loser, m.AvgWinOdds, m.AvgLossOdds = p2, p1, 1.4, 3.0
		case 'W':
			m.Winner, m.Loser, m.AvgWinOdds, m.AvgLossOdds = p1, p2, 3.0, 1.4
		case 'L':
			m.Winner, m.Loser, m.AvgWinOdds, m.AvgLossOdds = p2, p1, 3.0, 1.4
		default:
			panic(fmt.Sprintf("testkit: unknown script symbol %q", c))
		}
		if i%2 == 1 {
			m.PlayerA, m.PlayerB = p2, p1
		}
		out = append(out, m)
	}
	return out
}
