package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestParseRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := ParseRunID("  " + id.String() + " ")
	if err != nil {
		t.Fatalf("ParseRunID(%q) failed: %v", id, err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	for _, bad := range []string{"", "   ", "not-a-uuid"} {
		if _, err := ParseRunID(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	recoverable := []error{
		ErrDegenerateSequence,
		ErrUndefinedStatistic,
		ErrInsufficientRuns,
		ErrNoHistoricalData,
		NewUndefinedStatisticError(2, 2, "zero variance"),
	}
	for _, err := range recoverable {
		if !IsInconclusive(err) {
			t.Errorf("%v should be inconclusive", err)
		}
		if IsMalformed(err) {
			t.Errorf("%v should not be malformed", err)
		}
	}

	malformed := NewMalformedMatchError(7, "AvgW is not positive")
	if !IsMalformed(malformed) || IsInconclusive(malformed) {
		t.Errorf("unexpected classification for %v", malformed)
	}
	if !errors.Is(NewUndefinedStatisticError(1, 1, "n <= 1"), ErrUndefinedStatistic) {
		t.Error("wrapped error lost its sentinel")
	}
}
