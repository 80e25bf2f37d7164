package main

import (
	"fmt"
	"io"

	"gobogey/adapters/stats/runs"
	"gobogey/domain/bogey"
)

// printPairReport writes the detail block for a single evaluated pair.
func printPairReport(w io.Writer, r *bogey.Record, alpha float64) {
	fmt.Fprintf(w, "\n🎾 %s: %d matches, state %s\n", r.Pair, r.Matches(), r.State)
	fmt.Fprintf(w, "\nHistorical sequence:\n  %s\n", bogey.FormatSequence(r.Historical))
	fmt.Fprintf(w, "Longest run:   %d matches\n", longest(runs.RunLengths(bogey.Labels(r.Historical))))
	if len(r.Upsets) > 0 {
		fmt.Fprintf(w, "Upset sequence (%s perspective):\n  %s\n", r.Pair.P1, bogey.FormatSequence(r.Upsets))
	}

	fmt.Fprintln(w, "\nStep 1 (U/N):")
	printStage(w, r.Step1, r.Adjusted.POneSidedStep1, bogey.Upset, bogey.NonUpset)
	if r.Step2.Performed {
		fmt.Fprintln(w, "Step 2:")
		printStage(w, r.Step2, r.Adjusted.POneSidedStep2, bogey.UpsetWin, bogey.UpsetLoss)
	}

	e := r.Expectation
	fmt.Fprintf(w, "\nExpected wins: %s %.2f, %s %.2f\n", r.Pair.P1, e.ExpectedWinsP1, r.Pair.P2, e.ExpectedWinsP2)
	fmt.Fprintf(w, "Actual wins:   %s %d, %s %d\n", r.Pair.P1, e.ActualWinsP1, r.Pair.P2, e.ActualWinsP2)
	if s := r.Shares.UpsetWinOfUpsets; s != nil {
		fmt.Fprintf(w, "Upset wins:    %.1f%% of upsets\n", *s*100)
	}

	switch {
	case r.State != bogey.StateComplete:
	case r.Adjusted.POneSidedStep2 != nil && *r.Adjusted.POneSidedStep2 < alpha:
		fmt.Fprintf(w, "\n⚠️  upsets cluster beyond chance at alpha %.3g\n", alpha)
	default:
		fmt.Fprintf(w, "\nno evidence of clustered upsets at alpha %.3g\n", alpha)
	}
}

func printStage(w io.Writer, s bogey.StageResult, adjusted *float64, a, b bogey.Label) {
	fmt.Fprintf(w, "  runs %d, %s %d, %s %d", s.Runs, a, s.Count(a), b, s.Count(b))
	if n := s.Count(bogey.NonUpset); a != bogey.Upset && n > 0 {
		fmt.Fprintf(w, ", N %d", n)
	}
	fmt.Fprintln(w)
	if s.Inconclusive != "" {
		fmt.Fprintf(w, "  inconclusive: %s\n", s.Inconclusive)
		return
	}
	if !s.Defined() {
		return
	}
	fmt.Fprintf(w, "  mean %.3f, se %.3f, z %.4f\n", *s.Mean, *s.StdErr, *s.Z)
	fmt.Fprintf(w, "  p one-sided %.4g, two-sided %.4g", *s.POneSided, *s.PTwoSided)
	if adjusted != nil {
		fmt.Fprintf(w, ", adjusted %.4g", *adjusted)
	}
	fmt.Fprintln(w)
}

func longest(lengths []int) int {
	m := 0
	for _, l := range lengths {
		if l > m {
			m = l
		}
	}
	return m
}
