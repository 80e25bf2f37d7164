package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"gobogey/domain/core"
	"gobogey/internal"
	"gobogey/internal/detection"
	"gobogey/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *detection.Batch) {
	t.Helper()
	quiet := internal.NewLogger(internal.LogLevelError)
	day0 := time.Date(2016, 1, 4, 0, 0, 0, 0, time.UTC)

	matches := testkit.Script("Alpha", "Beta", "NNNNNNNNNNWWWWLLLL", day0, 0)
	matches = append(matches, testkit.Script("Alpha", "Gamma", "NNWNLNNWNNLN", day0, len(matches))...)

	opts := detection.DefaultOptions()
	opts.Workers = 1
	batch, err := detection.NewEvaluator(opts, quiet).Evaluate(context.Background(), matches, detection.Candidates{})
	require.NoError(t, err)

	store := NewMemoryStore()
	require.NoError(t, store.SaveBatch(context.Background(), batch))
	return NewServer(store, "test", quiet), batch
}

func get(t *testing.T, s *Server, path string, out interface{}) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, get(t, s, "/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListRuns(t *testing.T) {
	s, batch := newTestServer(t)

	var body struct {
		Count int `json:"count"`
		Runs  []struct {
			ID        string `json:"id"`
			PairCount int    `json:"pair_count"`
		} `json:"runs"`
	}
	assert.Equal(t, http.StatusOK, get(t, s, "/runs", &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, batch.ID.String(), body.Runs[0].ID)
	assert.Equal(t, 2, body.Runs[0].PairCount)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/runs?limit=zero", nil))
}

func TestResults(t *testing.T) {
	s, batch := newTestServer(t)

	var body struct {
		Count   int `json:"count"`
		Results []struct {
			State string `json:"state"`
		} `json:"results"`
	}
	assert.Equal(t, http.StatusOK, get(t, s, "/runs/"+batch.ID.String()+"/results", &body))
	assert.Equal(t, 2, body.Count)

	assert.Equal(t, http.StatusOK, get(t, s, "/runs/"+batch.ID.String()+"/results?significant=true", &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "complete", body.Results[0].State)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/runs/"+batch.ID.String()+"/results?significant=maybe", nil))
}

func TestPair(t *testing.T) {
	s, batch := newTestServer(t)
	base := "/runs/" + batch.ID.String() + "/pairs/"

	var body struct {
		Pair struct {
			P1 string `json:"player1"`
			P2 string `json:"player2"`
		} `json:"pair"`
		State string `json:"state"`
	}
	// Either player order finds the pair.
	assert.Equal(t, http.StatusOK, get(t, s, base+"Gamma/Alpha", &body))
	assert.Equal(t, "Alpha", body.Pair.P1)
	assert.Equal(t, "not_significant", body.State)

	assert.Equal(t, http.StatusNotFound, get(t, s, base+"Beta/Gamma", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, s, base+"Beta/Beta", nil))
	assert.Equal(t, http.StatusOK, get(t, s, base+url.PathEscape("Beta")+"/Alpha", nil))
}

func TestRunErrors(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/runs/not-a-uuid/results", nil))
	assert.Equal(t, http.StatusNotFound, get(t, s, "/runs/"+core.NewRunID().String()+"/results", nil))
	assert.Equal(t, http.StatusNotFound, get(t, s, "/runs/"+core.NewRunID().String(), nil))
}
