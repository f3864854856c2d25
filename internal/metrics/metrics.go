// Package metrics exposes training progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvandessel/boxes/internal/store"
)

const namespace = "boxes"

// Metrics holds the training collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	episodes      *prometheus.CounterVec
	underflows    *prometheus.CounterVec
	batches       *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	drawRatio     prometheus.Gauge
	meanReward    prometheus.Gauge
	meanAbsError  prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		episodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "episodes_total",
			Help:      "Completed episodes by run kind and outcome.",
		}, []string{"kind", "outcome"}),
		underflows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "underflows_total",
			Help:      "Weight rows refilled because the eligible mass ran out.",
		}, []string{"kind"}),
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "batches_total",
			Help:      "Statistics batches closed.",
		}, []string{"kind"}),
		batchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "batch_duration_seconds",
			Help:      "Wall time spent per statistics batch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),
		drawRatio: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tictactoe",
			Name:      "draw_ratio",
			Help:      "Fraction of draws in the last closed batch.",
		}),
		meanReward: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "balltrack",
			Name:      "mean_reward",
			Help:      "Mean reward over the last report window.",
		}),
		meanAbsError: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "balltrack",
			Name:      "mean_abs_error",
			Help:      "Mean absolute setpoint error over the last report window.",
		}),
	}
}

// ObserveEpisode counts one finished episode.
func (m *Metrics) ObserveEpisode(kind, outcome string, underflows int) {
	if m == nil {
		return
	}
	m.episodes.WithLabelValues(kind, outcome).Inc()
	if underflows > 0 {
		m.underflows.WithLabelValues(kind).Add(float64(underflows))
	}
}

// ObserveBatch records a closed statistics batch.
func (m *Metrics) ObserveBatch(kind string, b store.Batch, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(kind).Inc()
	m.batchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if b.Episodes > 0 && (b.FirstWins+b.SecondWins+b.Draws) > 0 {
		m.drawRatio.Set(float64(b.Draws) / float64(b.Episodes))
	}
	if b.MeanReward != 0 || b.MeanAbsError != 0 {
		m.meanReward.Set(b.MeanReward)
		m.meanAbsError.Set(b.MeanAbsError)
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
