// Package config provides unified configuration loading for boxes.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/boxes/internal/balltrack"
	"github.com/nvandessel/boxes/internal/boxes"
	"github.com/nvandessel/boxes/internal/constants"
	"gopkg.in/yaml.v3"
)

// BoxesConfig contains all boxes configuration settings.
type BoxesConfig struct {
	// Engine contains settings shared by every table and selector.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Outcomes are the learning adjustments applied at the end of a game.
	Outcomes OutcomesConfig `json:"outcomes" yaml:"outcomes"`

	TicTacToe TicTacToeConfig `json:"tictactoe" yaml:"tictactoe"`
	BallTrack BallTrackConfig `json:"balltrack" yaml:"balltrack"`

	// Logging contains settings for operational and episode logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Backup  BackupConfig  `json:"backup" yaml:"backup"`
}

// EngineConfig configures weight tables and action selection.
type EngineConfig struct {
	// TokenMin is the floor learned weights are clamped to.
	TokenMin float64 `json:"token_min" yaml:"token_min"`

	// UnderflowThreshold is the eligible weight mass at or below which a
	// state's pool is refilled.
	UnderflowThreshold float64 `json:"underflow_threshold" yaml:"underflow_threshold"`

	// Exponent sharpens (>1) or flattens (<1) the action distribution.
	// 1 is classic proportional sampling.
	Exponent float64 `json:"exponent" yaml:"exponent"`

	// Recorder selects the trajectory implementation: "chain" or "block".
	Recorder string `json:"recorder" yaml:"recorder"`

	// Seed seeds the random source. Runs with the same seed and config
	// produce the same results.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// TableOptions returns the table options implied by the engine settings.
func (e EngineConfig) TableOptions() []boxes.TableOption {
	return []boxes.TableOption{
		boxes.WithTokenMin(e.TokenMin),
		boxes.WithUnderflowThreshold(e.UnderflowThreshold),
	}
}

// OutcomesConfig holds the win/lose/draw adjustments.
type OutcomesConfig struct {
	Win  boxes.Adjustment `json:"win" yaml:"win"`
	Lose boxes.Adjustment `json:"lose" yaml:"lose"`
	Draw boxes.Adjustment `json:"draw" yaml:"draw"`
}

// TicTacToeConfig configures tic-tac-toe self-play runs.
type TicTacToeConfig struct {
	// Games is the number of double-games; each table moves first once per
	// double-game.
	Games int `json:"games" yaml:"games"`

	// BatchSize is the number of double-games per statistics batch.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// MaxTurns caps the moves in a single game.
	MaxTurns int `json:"max_turns" yaml:"max_turns"`

	// Tokens is the initial weight of every box.
	Tokens float64 `json:"tokens" yaml:"tokens"`
}

// BallTrackConfig configures ball-on-track runs.
type BallTrackConfig struct {
	Steps       int     `json:"steps" yaml:"steps"`
	History     int     `json:"history" yaml:"history"`
	BallStates  int     `json:"ball_states" yaml:"ball_states"`
	TrackStates int     `json:"track_states" yaml:"track_states"`
	Actions     int     `json:"actions" yaml:"actions"`
	Tokens      float64 `json:"tokens" yaml:"tokens"`
	Setpoint    float64 `json:"setpoint" yaml:"setpoint"`

	// ReportEvery is the number of steps aggregated into one batch.
	ReportEvery int `json:"report_every" yaml:"report_every"`
}

// LoggingConfig configures boxes's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables episode logging to <dir>/episodes.jsonl.
	// "trace" additionally logs every underflow refill.
	Level string `json:"level" yaml:"level"`

	// Dir is where the episode trace is written. Defaults to ~/.boxes.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics, e.g. ":9090". Empty disables it.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	// Enabled installs a stdout span exporter for the run.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// JournalConfig configures the SQLite run journal.
type JournalConfig struct {
	// Path is the journal database. Empty disables journaling.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// BackupConfig configures journal archives and their retention.
type BackupConfig struct {
	// Dir holds boxes-backup-*.boxes archives. Defaults to ~/.boxes/backups.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// MaxCount keeps the N newest archives. 0 disables the count rule.
	MaxCount int `json:"max_count" yaml:"max_count"`

	// MaxAge keeps archives younger than this, e.g. "30d" or "2w".
	// An archive is kept if either rule keeps it.
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// Default returns a BoxesConfig with sensible defaults.
func Default() *BoxesConfig {
	return &BoxesConfig{
		Engine: EngineConfig{
			TokenMin:           boxes.DefaultTokenMin,
			UnderflowThreshold: boxes.DefaultUnderflowThreshold,
			Exponent:           constants.DefaultExponent,
			Recorder:           constants.DefaultRecorder,
			Seed:               constants.DefaultSeed,
		},
		Outcomes: OutcomesConfig{
			Win:  boxes.Adjustment{Add: constants.WinAdd, Multiply: constants.WinMultiply},
			Lose: boxes.Adjustment{Add: constants.LoseAdd, Multiply: constants.LoseMultiply},
			Draw: boxes.Adjustment{Add: constants.DrawAdd, Multiply: constants.DrawMultiply},
		},
		TicTacToe: TicTacToeConfig{
			Games:     constants.DefaultTicTacToeGames,
			BatchSize: constants.DefaultTicTacToeBatch,
			MaxTurns:  constants.DefaultMaxTurns,
			Tokens:    constants.DefaultTicTacToeTokens,
		},
		BallTrack: BallTrackConfig{
			Steps:       constants.DefaultBallSteps,
			History:     constants.DefaultHistory,
			BallStates:  constants.DefaultBallStates,
			TrackStates: constants.DefaultTrackStates,
			Actions:     constants.DefaultBallActions,
			Tokens:      constants.DefaultBallTokens,
			Setpoint:    constants.DefaultSetpoint,
			ReportEvery: constants.DefaultBallReportEvery,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Journal: JournalConfig{
			Path: defaultJournalPath(),
		},
		Backup: BackupConfig{
			MaxCount: constants.DefaultBackupKeep,
		},
	}
}

// DefaultPath returns ~/.boxes/config.yaml, or "" if the home directory
// cannot be determined.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, constants.DefaultDirName, "config.yaml")
}

// DefaultDir returns ~/.boxes, or "" if the home directory cannot be determined.
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, constants.DefaultDirName)
}

func defaultJournalPath() string {
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, constants.JournalFileName)
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.boxes/config.yaml -> environment variables
func Load() (*BoxesConfig, error) {
	config := Default()

	// Try to load from default config file
	if configPath := DefaultPath(); configPath != "" {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadPath loads an explicit config file and then applies environment
// overrides. An empty path behaves like Load.
func LoadPath(path string) (*BoxesConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*BoxesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Logging.Dir = expandEnvVars(config.Logging.Dir)
	config.Journal.Path = expandEnvVars(config.Journal.Path)
	config.Backup.Dir = expandEnvVars(config.Backup.Dir)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *BoxesConfig) Validate() error {
	if !(c.Engine.TokenMin > 0) || math.IsInf(c.Engine.TokenMin, 0) {
		return fmt.Errorf("token_min must be positive, got %v", c.Engine.TokenMin)
	}
	if math.IsNaN(c.Engine.UnderflowThreshold) || c.Engine.UnderflowThreshold < 0 {
		return fmt.Errorf("underflow_threshold must be non-negative, got %v", c.Engine.UnderflowThreshold)
	}
	if math.IsNaN(c.Engine.Exponent) || math.IsInf(c.Engine.Exponent, 0) || c.Engine.Exponent < 0 {
		return fmt.Errorf("exponent must be finite and non-negative, got %v", c.Engine.Exponent)
	}
	if !boxes.Recorder(c.Engine.Recorder).Valid() {
		return fmt.Errorf("invalid recorder: %s (valid: chain, block)", c.Engine.Recorder)
	}

	for name, adj := range map[string]boxes.Adjustment{
		"win": c.Outcomes.Win, "lose": c.Outcomes.Lose, "draw": c.Outcomes.Draw,
	} {
		if !finite(adj.Add) || !finite(adj.Multiply) {
			return fmt.Errorf("outcome %s must have finite add and multiply, got %+v", name, adj)
		}
	}

	if c.TicTacToe.Games <= 0 {
		return fmt.Errorf("tictactoe.games must be positive, got %d", c.TicTacToe.Games)
	}
	if c.TicTacToe.BatchSize <= 0 {
		return fmt.Errorf("tictactoe.batch_size must be positive, got %d", c.TicTacToe.BatchSize)
	}
	if c.TicTacToe.MaxTurns <= 0 {
		return fmt.Errorf("tictactoe.max_turns must be positive, got %d", c.TicTacToe.MaxTurns)
	}
	if !finite(c.TicTacToe.Tokens) || c.TicTacToe.Tokens < 0 {
		return fmt.Errorf("tictactoe.tokens must be finite and non-negative, got %v", c.TicTacToe.Tokens)
	}

	bt := c.BallTrack
	if bt.Steps <= 0 || bt.History <= 0 || bt.BallStates <= 0 || bt.TrackStates <= 0 || bt.ReportEvery <= 0 {
		return fmt.Errorf("balltrack steps, history, ball_states, track_states and report_every must be positive")
	}
	if _, err := balltrack.StateCount(bt.BallStates, bt.TrackStates, bt.History); err != nil {
		return fmt.Errorf("balltrack state space: %w", err)
	}
	if bt.Actions < 2 {
		return fmt.Errorf("balltrack.actions must be at least 2, got %d", bt.Actions)
	}
	if !finite(bt.Tokens) || bt.Tokens < 0 {
		return fmt.Errorf("balltrack.tokens must be finite and non-negative, got %v", bt.Tokens)
	}
	if bt.Setpoint < 0 || bt.Setpoint > constants.TrackLength {
		return fmt.Errorf("balltrack.setpoint must be on the track [0, %v], got %v", constants.TrackLength, bt.Setpoint)
	}

	if c.Backup.MaxCount < 0 {
		return fmt.Errorf("backup.max_count must be non-negative, got %d", c.Backup.MaxCount)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *BoxesConfig) {
	if v := os.Getenv("BOXES_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("BOXES_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Engine.Seed = n
		}
	}

	if v := os.Getenv("BOXES_RECORDER"); v != "" {
		config.Engine.Recorder = v
	}

	if v := os.Getenv("BOXES_EXPONENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Engine.Exponent = f
		}
	}

	if v := os.Getenv("BOXES_METRICS_ADDR"); v != "" {
		config.Metrics.Addr = v
	}

	// "off" disables the journal without editing the config file.
	if v := os.Getenv("BOXES_JOURNAL"); v != "" {
		if v == "off" {
			config.Journal.Path = ""
		} else {
			config.Journal.Path = v
		}
	}

	if v := os.Getenv("BOXES_TRACING"); v != "" {
		config.Tracing.Enabled = v == "true" || v == "1"
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
