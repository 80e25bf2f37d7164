package runs

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"gobogey/domain/bogey"
	"gobogey/domain/core"
	"gobogey/domain/match"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(s ...string) []bogey.Label {
	out := make([]bogey.Label, len(s))
	for i, v := range s {
		out[i] = bogey.Label(v)
	}
	return out
}

func bruteForceRuns(seq []bogey.Label) int {
	runs := 0
	for i := range seq {
		if i == 0 || seq[i] != seq[i-1] {
			runs++
		}
	}
	return runs
}

func TestEncode_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []bogey.Label{bogey.UpsetWin, bogey.UpsetLoss, bogey.NonUpset}

	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.Intn(40)
		seq := make([]bogey.Label, n)
		for i := range seq {
			seq[i] = alphabet[rng.Intn(len(alphabet))]
		}

		enc, err := Encode(seq)
		require.NoError(t, err)
		assert.Equal(t, bruteForceRuns(seq), enc.Runs)

		total := 0
		for _, c := range enc.Counts {
			total += c
		}
		assert.Equal(t, n, total, "category counts must sum to the sequence length")

		lengths := RunLengths(seq)
		assert.Len(t, lengths, enc.Runs)
		sum := 0
		for _, l := range lengths {
			sum += l
		}
		assert.Equal(t, n, sum)
	}
}

func TestEncode_ConstantAndAlternating(t *testing.T) {
	for n := 1; n <= 12; n++ {
		constant := make([]bogey.Label, n)
		alternating := make([]bogey.Label, n)
		for i := range constant {
			constant[i] = bogey.NonUpset
			if i%2 == 0 {
				alternating[i] = bogey.Upset
			} else {
				alternating[i] = bogey.NonUpset
			}
		}

		enc, err := Encode(constant)
		require.NoError(t, err)
		assert.Equal(t, 1, enc.Runs)
		assert.True(t, enc.Constant())

		enc, err = Encode(alternating)
		require.NoError(t, err)
		assert.Equal(t, n, enc.Runs)
	}
}

func TestEncode_Empty(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, core.ErrDegenerateSequence)
	assert.True(t, core.IsInconclusive(err))
}

func TestEncode_UnknownLabel(t *testing.T) {
	_, err := Encode(labels("N", "X", "N"))
	assert.ErrorIs(t, err, core.ErrUnknownLabel)
	assert.True(t, core.IsMalformed(err))
}

func TestEncode_CategoriesInFirstSeenOrder(t *testing.T) {
	enc, err := Encode(labels("N", "N", "U", "U", "U", "N"))
	require.NoError(t, err)
	assert.Equal(t, []bogey.Label{bogey.NonUpset, bogey.Upset}, enc.Categories)
	assert.Equal(t, 3, enc.Count(bogey.Upset))
	assert.Equal(t, 3, enc.Count(bogey.NonUpset))
	assert.Equal(t, 0, enc.Count(bogey.UpsetWin))
}

func TestTwoCategory_WorkedExample(t *testing.T) {
	enc, err := Encode(labels("N", "N", "U", "U", "U", "N"))
	require.NoError(t, err)
	require.Equal(t, 3, enc.Runs)

	stat, err := TwoCategory(enc.Runs, enc.Count(bogey.Upset), enc.Count(bogey.NonUpset), ZStandard)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, stat.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(216.0/180.0), stat.StdErr, 1e-12)
	assert.InDelta(t, -0.9128709291752769, stat.Z, 1e-9)
	assert.InDelta(t, 0.18065521426308942, stat.POneSided, 1e-9)
	assert.InDelta(t, 0.36131042852617884, stat.PTwoSided, 1e-9)
}

func TestTwoCategory_ContinuityCorrection(t *testing.T) {
	stat, err := TwoCategory(3, 3, 3, ZContinuity)
	require.NoError(t, err)
	// R < muR, so the correction moves z toward zero by 0.5/seR
	assert.InDelta(t, -0.45643546458763845, stat.Z, 1e-9)
	assert.InDelta(t, 0.32403843406957306, stat.POneSided, 1e-9)

	above, err := TwoCategory(6, 3, 3, ZContinuity)
	require.NoError(t, err)
	standard, err := TwoCategory(6, 3, 3, ZStandard)
	require.NoError(t, err)
	assert.InDelta(t, standard.Z-0.5/standard.StdErr, above.Z, 1e-12)
}

func TestTwoCategory_SwapInvariance(t *testing.T) {
	for n1 := 1; n1 < 8; n1++ {
		for n2 := 1; n2 < 8; n2++ {
			if n1+n2 < 3 {
				continue
			}
			a, errA := TwoCategory(2, n1, n2, ZStandard)
			b, errB := TwoCategory(2, n2, n1, ZStandard)
			require.NoError(t, errA)
			require.NoError(t, errB)
			assert.InDelta(t, a.Mean, b.Mean, 1e-12)
			assert.InDelta(t, a.StdErr, b.StdErr, 1e-12)
			assert.InDelta(t, a.Z, b.Z, 1e-12)
		}
	}
}

func TestTwoCategory_Undefined(t *testing.T) {
	cases := []struct {
		name         string
		runs, n1, n2 int
	}{
		{"single observation", 1, 1, 0},
		{"empty", 0, 0, 0},
		{"one of each", 2, 1, 1},
		{"constant", 1, 5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := TwoCategory(tc.runs, tc.n1, tc.n2, ZContinuity)
			assert.ErrorIs(t, err, core.ErrUndefinedStatistic)
		})
	}
}

func TestThreeCategory_RegressionFixture(t *testing.T) {
	raw := []int{1, 0, 1, 1, 2, 0, 0, 0, 1, 1, 1, 2, 2, 2, 2}
	alphabet := []bogey.Label{bogey.NonUpset, bogey.UpsetWin, bogey.UpsetLoss}
	seq := make([]bogey.Label, len(raw))
	for i, v := range raw {
		seq[i] = alphabet[v]
	}

	enc, err := Encode(seq)
	require.NoError(t, err)
	assert.Equal(t, 7, enc.Runs)
	n0, n1, n2 := enc.Count(bogey.NonUpset), enc.Count(bogey.UpsetWin), enc.Count(bogey.UpsetLoss)
	assert.Equal(t, []int{4, 6, 5}, []int{n0, n1, n2})

	cc, err := ThreeCategory(enc.Runs, n0, n1, n2, ZContinuity)
	require.NoError(t, err)
	std, err := ThreeCategory(enc.Runs, n0, n1, n2, ZStandard)
	require.NoError(t, err)

	// direct recomputation of the formula
	n := 15.0
	s := 16.0 + 36.0 + 25.0
	mu := (n*(n+1) - s) / n
	se := math.Sqrt((s*(s+n*(n+1)) - 2*n*(64+216+125) - n*n*n) / (n * n * (n - 1)))

	assert.InDelta(t, mu, cc.Mean, 1e-12)
	assert.InDelta(t, se, cc.StdErr, 1e-12)
	assert.InDelta(t, (7-mu+0.5)/se, cc.Z, 1e-12)
	assert.InDelta(t, -2.004707988652181, cc.Z, 1e-9)
	assert.InDelta(t, -2.3024368978579504, std.Z, 1e-9)
	assert.InDelta(t, 0.02249713699391991, cc.POneSided, 1e-9)

	viaTest, err := Test(enc, ZContinuity)
	require.NoError(t, err)
	assert.InDelta(t, cc.Z, viaTest.Z, 1e-12)
}

func TestThreeCategory_ReducesToTwoCategory(t *testing.T) {
	for _, tc := range [][3]int{{4, 3, 5}, {6, 2, 7}, {3, 10, 10}} {
		runs, n1, n2 := tc[0], tc[1], tc[2]
		two, err := TwoCategory(runs, n1, n2, ZStandard)
		require.NoError(t, err)
		three, err := ThreeCategory(runs, n1, n2, 0, ZStandard)
		require.NoError(t, err)
		assert.InDelta(t, two.Mean, three.Mean, 1e-9)
		assert.InDelta(t, two.StdErr, three.StdErr, 1e-9)
	}
}

func TestTest_Dispatch(t *testing.T) {
	enc, err := Encode(labels("UW", "UW", "UW", "UL", "UL"))
	require.NoError(t, err)
	stat, err := Test(enc, ZStandard)
	require.NoError(t, err)
	assert.InDelta(t, -1.5275252316519465, stat.Z, 1e-9)
	assert.InDelta(t, 0.06331522897380862, stat.POneSided, 1e-9)

	enc, err = Encode(labels("UW", "UW"))
	require.NoError(t, err)
	_, err = Test(enc, ZStandard)
	assert.ErrorIs(t, err, core.ErrInsufficientRuns)
}

func TestPValues_TwoSidedCapped(t *testing.T) {
	one, two := PValues(0)
	assert.InDelta(t, 0.5, one, 1e-12)
	assert.Equal(t, 1.0, two)

	one, two = PValues(-1.96)
	assert.InDelta(t, 0.025, one, 1e-3)
	assert.InDelta(t, 2*one, two, 1e-12)
}

func TestParseZType(t *testing.T) {
	z, err := ParseZType("")
	require.NoError(t, err)
	assert.Equal(t, ZContinuity, z)
	z, err = ParseZType("STD")
	require.NoError(t, err)
	assert.Equal(t, ZStandard, z)
	_, err = ParseZType("exact")
	assert.Error(t, err)
}

func oddsMatch(row int, winner, loser string, avgW, avgL float64) match.Match {
	return match.Match{
		Row:         row,
		Date:        time.Date(2020, 1, row+1, 0, 0, 0, 0, time.UTC),
		PlayerA:     winner,
		PlayerB:     loser,
		Winner:      winner,
		Loser:       loser,
		AvgWinOdds:  avgW,
		AvgLossOdds: avgL,
	}
}

func TestClassifier_Historical(t *testing.T) {
	c := NewClassifier(match.BasisOdds)
	pair := match.NewPair("Tsonga J.W.", "Nishikori K.")

	cases := []struct {
		name string
		m    match.Match
		want bogey.Label
	}{
		{"favourite wins", oddsMatch(0, "Nishikori K.", "Tsonga J.W.", 1.5, 2.6), bogey.NonUpset},
		{"underdog wins", oddsMatch(1, "Tsonga J.W.", "Nishikori K.", 2.6, 1.5), bogey.Upset},
		{"equal odds never upset", oddsMatch(2, "Tsonga J.W.", "Nishikori K.", 1.9, 1.9), bogey.NonUpset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.ClassifyHistorical(pair, tc.m)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifier_UpsetTypePerspectivesAreComplements(t *testing.T) {
	c := NewClassifier(match.BasisOdds)
	pair := match.NewPair("A", "B")

	matches := []match.Match{
		oddsMatch(0, "A", "B", 3.0, 1.3),
		oddsMatch(1, "B", "A", 3.0, 1.3),
		oddsMatch(2, "A", "B", 1.3, 3.0),
	}
	want := []bogey.Label{bogey.UpsetWin, bogey.UpsetLoss, bogey.NonUpset}

	for i, m := range matches {
		p1, err := c.ClassifyUpsetType(pair, m)
		require.NoError(t, err)
		p2, err := c.ClassifyUpsetTypeFor(pair, m, "B")
		require.NoError(t, err)
		assert.Equal(t, want[i], p1)

		switch p1 {
		case bogey.UpsetWin:
			assert.Equal(t, bogey.UpsetLoss, p2)
		case bogey.UpsetLoss:
			assert.Equal(t, bogey.UpsetWin, p2)
		default:
			assert.Equal(t, bogey.NonUpset, p2)
		}
	}

	_, err := c.ClassifyUpsetTypeFor(pair, matches[0], "C")
	assert.Error(t, err)
}

func TestClassifier_MalformedInputFailsFast(t *testing.T) {
	c := NewClassifier(match.BasisOdds)
	pair := match.NewPair("A", "B")

	cases := []match.Match{
		oddsMatch(0, "A", "B", 0, 1.5),
		oddsMatch(1, "A", "B", math.NaN(), 1.5),
		oddsMatch(2, "A", "B", 1.5, -2),
		oddsMatch(3, "A", "C", 1.5, 2.5),
	}
	for _, m := range cases {
		_, err := c.ClassifyHistorical(pair, m)
		assert.ErrorIs(t, err, core.ErrMalformedMatch, "row %d", m.Row)
		assert.False(t, core.IsInconclusive(err))
	}
}

func TestClassifier_EloBasis(t *testing.T) {
	c := NewClassifier(match.BasisElo)
	pair := match.NewPair("A", "B")

	m := oddsMatch(0, "A", "B", 1.2, 4.0)
	_, err := c.ClassifyHistorical(pair, m)
	assert.ErrorIs(t, err, core.ErrMalformedMatch, "missing ratings must not default")

	m.EloWinner = bogey.Float(1800)
	m.EloLoser = bogey.Float(1900)
	label, err := c.ClassifyHistorical(pair, m)
	require.NoError(t, err)
	assert.Equal(t, bogey.Upset, label, "lower-rated winner is an upset even when odds disagree")

	expected, err := c.ExpectedWin(m, "A")
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Pow(10, 100.0/400.0)), expected, 1e-12)
}

func TestClassifier_ExpectedWinNormalised(t *testing.T) {
	c := NewClassifier(match.BasisOdds)
	m := oddsMatch(0, "A", "B", 1.5, 2.5)

	pa, err := c.ExpectedWin(m, "A")
	require.NoError(t, err)
	pb, err := c.ExpectedWin(m, "B")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pa+pb, 1e-12)
	assert.Greater(t, pa, pb)
}
