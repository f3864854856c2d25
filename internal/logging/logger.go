// Package logging provides leveled logging and episode tracing for boxes.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EpisodeLogger for structured JSONL episode traces (~/.boxes/episodes.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/boxes/internal/constants"
)

// LevelTrace is a custom slog level below Debug for per-decision logging.
// At this level, underflow refills and other high-volume events are included.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Episode is one finished game or control step, as written to the trace.
type Episode struct {
	RunID      string  `json:"run_id"`
	Kind       string  `json:"kind"`
	Index      int64   `json:"index"`
	Outcome    string  `json:"outcome,omitempty"`
	Moves      int     `json:"moves,omitempty"`
	Underflows int     `json:"underflows,omitempty"`
	Reward     float64 `json:"reward,omitempty"`
	Time       string  `json:"time"`
}

// EpisodeLogger writes episode records to a JSONL file.
// It is safe for concurrent use. A nil EpisodeLogger is safe to use;
// all methods are no-ops on nil receiver.
type EpisodeLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewEpisodeLogger creates an episode logger writing to dir/episodes.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewEpisodeLogger(dir string, level string) *EpisodeLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo || dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, constants.EpisodeLogFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EpisodeLogger{file: f}
}

// Log writes an episode as a single JSONL line, stamping Time if unset.
// Safe to call on nil receiver.
func (el *EpisodeLogger) Log(ep Episode) {
	if el == nil {
		return
	}
	if ep.Time == "" {
		ep.Time = time.Now().UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(ep)
	if err != nil {
		return
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()

	if el.file == nil {
		return
	}
	_, _ = el.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (el *EpisodeLogger) Close() {
	if el == nil {
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	if el.file == nil {
		return
	}
	el.file.Close()
	el.file = nil
}
