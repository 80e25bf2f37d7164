package detection

import (
	"sort"

	"gobogey/domain/match"
)

// Partition groups a match table by canonical pair. It is built once per
// batch so that each pair's history is found with a single lookup.
type Partition struct {
	byPair     map[match.Pair][]match.Match
	identities []string
}

// NewPartition indexes matches by pair; each pair's slice is chronological.
func NewPartition(matches []match.Match) *Partition {
	byPair := make(map[match.Pair][]match.Match)
	seen := make(map[string]struct{})
	var identities []string

	for _, m := range matches {
		for _, name := range []string{m.PlayerA, m.PlayerB} {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				identities = append(identities, name)
			}
		}
		pair := match.NewPair(m.PlayerA, m.PlayerB)
		byPair[pair] = append(byPair[pair], m)
	}

	for pair, ms := range byPair {
		byPair[pair] = match.SortChronologically(ms)
	}
	sort.Strings(identities)

	return &Partition{byPair: byPair, identities: identities}
}

// Matches returns the chronological history of pair, or nil.
func (p *Partition) Matches(pair match.Pair) []match.Match {
	return p.byPair[pair]
}

// Has reports whether pair met at least once.
func (p *Partition) Has(pair match.Pair) bool {
	_, ok := p.byPair[pair]
	return ok
}

// Identities returns every competitor seen on either side, sorted.
func (p *Partition) Identities() []string {
	return append([]string(nil), p.identities...)
}

// Len is the number of distinct pairs with history.
func (p *Partition) Len() int { return len(p.byPair) }
