package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/boxes/internal/store"
)

func TestObserveEpisode(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveEpisode("tictactoe", "first", 0)
	m.ObserveEpisode("tictactoe", "first", 2)
	m.ObserveEpisode("tictactoe", "draw", 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.episodes.WithLabelValues("tictactoe", "first")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.episodes.WithLabelValues("tictactoe", "draw")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.underflows.WithLabelValues("tictactoe")))
}

func TestObserveBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBatch("tictactoe", store.Batch{Episodes: 100, FirstWins: 20, SecondWins: 5, Draws: 75}, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("tictactoe")))
	assert.InDelta(t, 0.75, testutil.ToFloat64(m.drawRatio), 1e-12)

	m.ObserveBatch("balltrack", store.Batch{Episodes: 50, MeanReward: 0.6, MeanAbsError: 0.1}, time.Millisecond)
	assert.InDelta(t, 0.6, testutil.ToFloat64(m.meanReward), 1e-12)
	assert.InDelta(t, 0.1, testutil.ToFloat64(m.meanAbsError), 1e-12)
	// A ball-track window leaves the tic-tac-toe gauge alone.
	assert.InDelta(t, 0.75, testutil.ToFloat64(m.drawRatio), 1e-12)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEpisode("tictactoe", "draw", 1)
		m.ObserveBatch("tictactoe", store.Batch{}, time.Second)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveEpisode("balltrack", "step", 0)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `boxes_training_episodes_total{kind="balltrack",outcome="step"} 1`), body)
}
