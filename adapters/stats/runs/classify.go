package runs

import (
	"fmt"
	"math"

	"gobogey/domain/bogey"
	"gobogey/domain/core"
	"gobogey/domain/match"
)

// Classifier labels matches of a competitor pair as upsets or non-upsets.
// A match is an upset when the winner's implied win probability is strictly
// below the loser's.
type Classifier struct {
	basis match.UpsetBasis
}

// NewClassifier creates a classifier for the given favourite definition.
// An empty basis means betting odds.
func NewClassifier(basis match.UpsetBasis) *Classifier {
	if basis == "" {
		basis = match.BasisOdds
	}
	return &Classifier{basis: basis}
}

// Basis returns the favourite definition in use.
func (c *Classifier) Basis() match.UpsetBasis { return c.basis }

// WinProbabilities returns the pre-match win probabilities of the winner and
// the loser of m. Odds are converted as 1/odds without removing the margin.
func (c *Classifier) WinProbabilities(m match.Match) (pWin, pLose float64, err error) {
	switch c.basis {
	case match.BasisElo:
		if m.EloWinner == nil || m.EloLoser == nil {
			return 0, 0, core.NewMalformedMatchError(m.Row, "missing pre-match Elo rating")
		}
		if !finite(*m.EloWinner) || !finite(*m.EloLoser) {
			return 0, 0, core.NewMalformedMatchError(m.Row, "non-numeric Elo rating")
		}
		pWin = eloExpectation(*m.EloWinner, *m.EloLoser)
		return pWin, 1 - pWin, nil
	default:
		if err := checkOdds(m.Row, "AvgW", m.AvgWinOdds); err != nil {
			return 0, 0, err
		}
		if err := checkOdds(m.Row, "AvgL", m.AvgLossOdds); err != nil {
			return 0, 0, err
		}
		return 1 / m.AvgWinOdds, 1 / m.AvgLossOdds, nil
	}
}

// IsUpset reports whether the bettor (or rating) favourite lost m.
// Equal probabilities are never an upset.
func (c *Classifier) IsUpset(m match.Match) (bool, error) {
	pWin, pLose, err := c.WinProbabilities(m)
	if err != nil {
		return false, err
	}
	return pWin < pLose, nil
}

// ClassifyHistorical returns U for an upset and N otherwise.
func (c *Classifier) ClassifyHistorical(pair match.Pair, m match.Match) (bogey.Label, error) {
	if err := checkParticipants(pair, m); err != nil {
		return "", err
	}
	upset, err := c.IsUpset(m)
	if err != nil {
		return "", err
	}
	if upset {
		return bogey.Upset, nil
	}
	return bogey.NonUpset, nil
}

// ClassifyUpsetType labels m from P1's perspective: UW when P1 won as the
// underdog, UL when P2 did, N for non-upsets.
func (c *Classifier) ClassifyUpsetType(pair match.Pair, m match.Match) (bogey.Label, error) {
	return c.ClassifyUpsetTypeFor(pair, m, pair.P1)
}

// ClassifyUpsetTypeFor labels m from the perspective of either pair member.
// For any upset the P1 and P2 labels are complements over {UW, UL}.
func (c *Classifier) ClassifyUpsetTypeFor(pair match.Pair, m match.Match, perspective string) (bogey.Label, error) {
	if _, ok := pair.Other(perspective); !ok {
		return "", fmt.Errorf("%q is not a member of pair %s", perspective, pair)
	}
	label, err := c.ClassifyHistorical(pair, m)
	if err != nil {
		return "", err
	}
	if label == bogey.NonUpset {
		return bogey.NonUpset, nil
	}
	if m.Winner == perspective {
		return bogey.UpsetWin, nil
	}
	return bogey.UpsetLoss, nil
}

// ExpectedWin is the probability, normalised to sum to one across the two
// players, that player wins m.
func (c *Classifier) ExpectedWin(m match.Match, player string) (float64, error) {
	pWin, pLose, err := c.WinProbabilities(m)
	if err != nil {
		return 0, err
	}
	total := pWin + pLose
	if total <= 0 {
		return 0, core.NewMalformedMatchError(m.Row, "implied probabilities sum to zero")
	}
	if player == m.Winner {
		return pWin / total, nil
	}
	return pLose / total, nil
}

func checkParticipants(pair match.Pair, m match.Match) error {
	if !m.Involves(pair) {
		return core.NewMalformedMatchError(m.Row, fmt.Sprintf("players %s/%s do not form pair %s", m.PlayerA, m.PlayerB, pair))
	}
	if m.Winner == m.Loser {
		return core.NewMalformedMatchError(m.Row, "winner equals loser")
	}
	if _, ok := pair.Other(m.Winner); !ok {
		return core.NewMalformedMatchError(m.Row, fmt.Sprintf("winner %q not in pair %s", m.Winner, pair))
	}
	if _, ok := pair.Other(m.Loser); !ok {
		return core.NewMalformedMatchError(m.Row, fmt.Sprintf("loser %q not in pair %s", m.Loser, pair))
	}
	return nil
}

func checkOdds(row int, column string, odds float64) error {
	if !finite(odds) {
		return core.NewMalformedMatchError(row, column+" is not numeric")
	}
	if odds <= 0 {
		return core.NewMalformedMatchError(row, fmt.Sprintf("%s must be positive, got %v", column, odds))
	}
	return nil
}

// eloExpectation is the logistic Elo win expectation of a rated r against opp.
func eloExpectation(r, opp float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opp-r)/400.0))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
