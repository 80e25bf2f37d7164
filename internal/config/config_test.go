package config

import (
	"testing"

	"gobogey/adapters/stats/adjust"
	"gobogey/adapters/stats/runs"
	"gobogey/domain/match"
	"gobogey/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ALPHA", "Z_TYPE", "STEP2_MODE", "P_ADJUST_METHOD", "UPSET_BASIS", "WORKERS",
		"START_DATE", "END_DATE", "MATCH_FILE", "TOURNAMENT", "GRAND_SLAM", "PLAYER_1", "PLAYER_2", "RESULT_FILE", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Detection.Alpha)
	assert.Equal(t, runs.ZContinuity, cfg.Detection.ZType)
	assert.Equal(t, "two", cfg.Detection.Step2Mode)
	assert.Equal(t, adjust.BH, cfg.Detection.AdjustMethod)
	assert.Equal(t, match.BasisOdds, cfg.Detection.UpsetBasis)
	assert.GreaterOrEqual(t, cfg.Detection.Workers, 1)
	assert.Equal(t, "all", cfg.Data.Player1)
	assert.Equal(t, 2, cfg.Data.GrandSlam)
	assert.Nil(t, cfg.Data.StartDate)
	assert.Equal(t, "bogey_results.csv", cfg.Output.ResultFile)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ALPHA", "0.01")
	t.Setenv("Z_TYPE", "std")
	t.Setenv("STEP2_MODE", "three")
	t.Setenv("P_ADJUST_METHOD", "holm")
	t.Setenv("UPSET_BASIS", "elo")
	t.Setenv("WORKERS", "3")
	t.Setenv("START_DATE", "2010-01-01")
	t.Setenv("END_DATE", "max")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.Detection.Alpha)
	assert.Equal(t, runs.ZStandard, cfg.Detection.ZType)
	assert.Equal(t, "three", cfg.Detection.Step2Mode)
	assert.Equal(t, adjust.Holm, cfg.Detection.AdjustMethod)
	assert.Equal(t, match.BasisElo, cfg.Detection.UpsetBasis)
	assert.Equal(t, 3, cfg.Detection.Workers)
	require.NotNil(t, cfg.Data.StartDate)
	assert.Equal(t, 2010, cfg.Data.StartDate.Year())
	assert.Nil(t, cfg.Data.EndDate)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := map[string][2]string{
		"bad method": {"P_ADJUST_METHOD", "sidak"},
		"bad z":      {"Z_TYPE", "exact"},
		"bad alpha":  {"ALPHA", "1.5"},
		"bad step2":  {"STEP2_MODE", "four"},
		"bad date":   {"START_DATE", "01/02/2010"},
		"bad basis":  {"UPSET_BASIS", "ranking"},
		"bad slam":   {"GRAND_SLAM", "5"},
	}
	for name, kv := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
