package runs

import (
	"gobogey/domain/bogey"
	"gobogey/domain/core"
)

// Encoding summarises a label sequence for the runs test.
type Encoding struct {
	Runs       int
	Length     int
	Counts     map[bogey.Label]int
	Categories []bogey.Label // distinct labels in first-seen order
}

// Count returns how often label occurred.
func (e Encoding) Count(label bogey.Label) int { return e.Counts[label] }

// Constant reports whether the sequence is a single run.
func (e Encoding) Constant() bool { return e.Runs == 1 }

// Encode counts maximal runs and per-label frequencies in a single pass.
// Labels outside the outcome alphabet are rejected.
func Encode(labels []bogey.Label) (Encoding, error) {
	if len(labels) == 0 {
		return Encoding{}, core.ErrDegenerateSequence
	}

	enc := Encoding{
		Length: len(labels),
		Counts: make(map[bogey.Label]int, 3),
	}
	for i, l := range labels {
		if i == 0 || l != labels[i-1] {
			enc.Runs++
		}
		if _, seen := enc.Counts[l]; !seen {
			if _, err := bogey.ParseLabel(string(l)); err != nil {
				return Encoding{}, err
			}
			enc.Categories = append(enc.Categories, l)
		}
		enc.Counts[l]++
	}
	return enc, nil
}

// RunLengths returns the length of every maximal run, in order.
func RunLengths(labels []bogey.Label) []int {
	var lengths []int
	for i, l := range labels {
		if i == 0 || l != labels[i-1] {
			lengths = append(lengths, 0)
		}
		lengths[len(lengths)-1]++
	}
	return lengths
}
