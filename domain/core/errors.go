package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Recoverable per-pair conditions. The detection protocol records these as
	// an inconclusive stage instead of returning them.
	ErrInconclusive       = errors.New("inconclusive")
	ErrDegenerateSequence = fmt.Errorf("%w: empty label sequence", ErrInconclusive)
	ErrUndefinedStatistic = fmt.Errorf("%w: runs statistic undefined", ErrInconclusive)
	ErrInsufficientRuns   = fmt.Errorf("%w: single run, bogey effect not assessable", ErrInconclusive)
	ErrNoHistoricalData   = fmt.Errorf("%w: no historical matches for pair", ErrInconclusive)

	// Fatal precondition violations
	ErrMalformedMatch = errors.New("malformed match record")
	ErrUnknownLabel   = errors.New("unknown outcome label")
	ErrUnknownMethod  = errors.New("unknown p-value adjustment method")
)

// NewMalformedMatchError describes which field of which record broke the classifier precondition.
func NewMalformedMatchError(row int, reason string) error {
	return fmt.Errorf("%w: row %d: %s", ErrMalformedMatch, row, reason)
}

// NewUndefinedStatisticError attaches the offending inputs to ErrUndefinedStatistic.
func NewUndefinedStatisticError(runs, n int, reason string) error {
	return fmt.Errorf("%w: R=%d n=%d: %s", ErrUndefinedStatistic, runs, n, reason)
}

// IsInconclusive reports whether err is one of the recoverable per-pair conditions.
func IsInconclusive(err error) bool {
	return errors.Is(err, ErrInconclusive)
}

// IsMalformed reports whether err stems from bad input data.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedMatch) || errors.Is(err, ErrUnknownLabel)
}
