package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nvandessel/boxes/internal/config"
	"github.com/nvandessel/boxes/internal/logging"
	"github.com/nvandessel/boxes/internal/metrics"
	"github.com/nvandessel/boxes/internal/store"
	"github.com/nvandessel/boxes/internal/telemetry"
	"github.com/nvandessel/boxes/internal/training"
)

// loadConfig reads --config (or the default file), then applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.BoxesConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg, nil
}

// openJournal opens the SQLite journal, or returns nil when journaling is off.
func openJournal(ctx context.Context, cfg *config.BoxesConfig) (store.Journal, error) {
	if cfg.Journal.Path == "" {
		return nil, nil
	}
	j, err := store.NewSQLiteJournal(ctx, cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

// requireJournal is openJournal for commands that only read the journal.
func requireJournal(ctx context.Context, cfg *config.BoxesConfig) (store.Journal, error) {
	j, err := openJournal(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("journal is disabled (set journal.path or BOXES_JOURNAL)")
	}
	return j, nil
}

// signalContext is cancelled on SIGINT/SIGTERM so a run can stop between
// episodes and still journal its partial result.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// session holds the infrastructure around one training run.
type session struct {
	logger  *slog.Logger
	runner  *training.Runner
	closers []func()
}

func newSession(ctx context.Context, cmd *cobra.Command, cfg *config.BoxesConfig, onBatch func(store.Batch)) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &session{logger: logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())}

	logDir := cfg.Logging.Dir
	if logDir == "" {
		logDir = config.DefaultDir()
	}
	episodes := logging.NewEpisodeLogger(logDir, cfg.Logging.Level)
	s.closers = append(s.closers, episodes.Close)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		s.closers = append(s.closers, cancel)
		go func() {
			if err := metrics.Serve(srvCtx, cfg.Metrics.Addr, reg); err != nil {
				s.logger.Warn("metrics server stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		s.logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	if cfg.Tracing.Enabled {
		shutdown, err := telemetry.Init(ctx, cmd.ErrOrStderr(), version)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		s.closers = append(s.closers, func() { _ = shutdown(context.Background()) })
	}

	journal, err := openJournal(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	if journal != nil {
		s.closers = append(s.closers, func() { journal.Close() })
	}

	runner, err := training.NewRunner(training.Options{
		Config:   cfg,
		Journal:  journal,
		Metrics:  m,
		Tracer:   telemetry.NewTracer(s.logger, cfg.Tracing.Enabled),
		Logger:   s.logger,
		Episodes: episodes,
		OnBatch:  onBatch,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.runner = runner
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
