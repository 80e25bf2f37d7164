package excel

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gobogey/domain/core"
	"gobogey/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var quiet = internal.NewLogger(internal.LogLevelError)

const header = "Date,P_i,P_j,Winner,Loser,AvgW,AvgL,B365W,B365L,Tournament,Series,Elo_i_before_match,Elo_j_before_match"

var sampleRows = []string{
	"2012-01-16,Federer R.,Nadal R.,Nadal R.,Federer R.,2.10,1.75,2.2,1.7,Australian Open,Grand Slam,2100,2150",
	"2012-03-12,Nadal R.,Federer R.,Federer R.,Nadal R.,,,2.5,1.5,Indian Wells,Masters 1000,2160,2110",
	"2012-05-14,Federer R.,Nadal R.,Nadal R.,Federer R.,2.75,1.45,,,Madrid Open,Masters 1000,,",
	"2013-01-14,Djokovic N.,Federer R.,Djokovic N.,Federer R.,1.30,3.60,1.3,3.5,Australian Open,Grand Slam,2200,2100",
}

func writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matches.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func date(s string) *time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return &d
}

func TestMatchReader_CSV(t *testing.T) {
	path := writeCSV(t, append([]string{header}, sampleRows...)...)

	matches, err := NewMatchReader(path, DefaultFilter(), quiet).ReadMatches()
	require.NoError(t, err)
	require.Len(t, matches, 4)

	first := matches[0]
	assert.Equal(t, 1, first.Row)
	assert.Equal(t, "Federer R.", first.PlayerA)
	assert.Equal(t, "Nadal R.", first.Winner)
	assert.Equal(t, 2.10, first.AvgWinOdds)
	assert.Equal(t, 1.75, first.AvgLossOdds)
	require.NotNil(t, first.EloWinner)
	assert.Equal(t, 2150.0, *first.EloWinner) // Nadal is P_j
	assert.Equal(t, 2100.0, *first.EloLoser)

	// AvgW/AvgL backfilled from B365.
	assert.Equal(t, 2.5, matches[1].AvgWinOdds)
	assert.Equal(t, 1.5, matches[1].AvgLossOdds)

	// Missing Elo stays nil.
	assert.Nil(t, matches[2].EloWinner)
}

func TestMatchReader_Filters(t *testing.T) {
	path := writeCSV(t, append([]string{header}, sampleRows...)...)

	testCases := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"grand slams only", Filter{GrandSlam: GrandSlamOnly}, 2},
		{"no grand slams", Filter{GrandSlam: GrandSlamExclude}, 2},
		{"tournament", Filter{Tournament: "Australian Open", GrandSlam: GrandSlamBoth}, 2},
		{"start date", Filter{GrandSlam: GrandSlamBoth, StartDate: date("2012-03-12")}, 3},
		{"date window", Filter{GrandSlam: GrandSlamBoth, StartDate: date("2012-03-01"), EndDate: date("2012-12-31")}, 2},
		{"everything", DefaultFilter(), 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			matches, err := NewMatchReader(path, tc.filter, quiet).ReadMatches()
			require.NoError(t, err)
			assert.Len(t, matches, tc.want)
		})
	}
}

func TestMatchReader_MissingOddsBackfilled(t *testing.T) {
	path := writeCSV(t, header,
		"2012-01-16,A,B,A,B,NA,NA,1.5,2.6,X,ATP250,NA,NA",
		"2012-01-23,A,B,B,A,nan,2.0,1.8,,X,ATP250,,",
		"2012-01-30,A,B,A,B,NA,1.9,NA,,X,ATP250,,",
	)

	matches, err := NewMatchReader(path, DefaultFilter(), quiet).ReadMatches()
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, 1.5, matches[0].AvgWinOdds)
	assert.Equal(t, 2.6, matches[0].AvgLossOdds)
	assert.Nil(t, matches[0].EloWinner)
	assert.Equal(t, 1.8, matches[1].AvgWinOdds)
	assert.Equal(t, 2.0, matches[1].AvgLossOdds)
	// NA in both columns stays missing for the classifier to reject.
	assert.True(t, math.IsNaN(matches[2].AvgWinOdds))
	assert.Equal(t, 1.9, matches[2].AvgLossOdds)
}

func TestMatchReader_Malformed(t *testing.T) {
	testCases := map[string][]string{
		"bad odds":       {header, "2012-01-16,A,B,A,B,abc,1.75,,,X,ATP250,,"},
		"bad date":       {header, "16th Jan,A,B,A,B,2.0,1.75,,,X,ATP250,,"},
		"missing winner": {header, "2012-01-16,A,B,,B,2.0,1.75,,,X,ATP250,,"},
		"bad elo":        {header, "2012-01-16,A,B,A,B,2.0,1.75,,,X,ATP250,high,"},
		"missing column": {"Date,P_i,P_j,Winner", "2012-01-16,A,B,A"},
	}

	for name, lines := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := NewMatchReader(writeCSV(t, lines...), DefaultFilter(), quiet).ReadMatches()
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrMalformedMatch)
		})
	}
}

func TestMatchReader_InvalidFilter(t *testing.T) {
	path := writeCSV(t, header)
	_, err := NewMatchReader(path, Filter{GrandSlam: 3}, quiet).ReadMatches()
	assert.Error(t, err)

	_, err = NewMatchReader(path, Filter{StartDate: date("2013-01-01"), EndDate: date("2012-01-01")}, quiet).ReadMatches()
	assert.Error(t, err)
}

func TestMatchReader_MissingFile(t *testing.T) {
	_, err := NewMatchReader(filepath.Join(t.TempDir(), "nope.csv"), DefaultFilter(), quiet).ReadMatches()
	assert.Error(t, err)
}

func TestMatchReader_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.xlsx")

	f := excelize.NewFile()
	for i, line := range append([]string{header}, sampleRows[:2]...) {
		cells := strings.Split(line, ",")
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	matches, err := NewMatchReader(path, DefaultFilter(), quiet).ReadMatches()
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Indian Wells", matches[1].Tournament)
	assert.Equal(t, 2.5, matches[1].AvgWinOdds)
}
