package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/boxes/internal/backup"
	"github.com/nvandessel/boxes/internal/boxes"
	"github.com/nvandessel/boxes/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage boxes configuration",
		Long: `View and modify boxes configuration settings.

Configuration is stored in ~/.boxes/config.yaml unless --config is given.

Examples:
  boxes config list                          # Show all settings
  boxes config get engine.exponent           # Get a specific setting
  boxes config set engine.recorder block     # Set a setting
  boxes config set tictactoe.games 50000`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintf(out, "Configuration (%s):\n\n", valueOrDefault(configPath(cmd), "(defaults)"))
			fmt.Fprint(out, string(data))
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Unknown configuration key: %s\n", key)
				}
				return nil
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(out, "%s = %v\n", key, value)
			}

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := setConfigValue(cfg, key, value); err != nil {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": err.Error(),
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Error: %v\n", err)
				}
				return nil
			}

			path := configPath(cmd)
			if err := saveConfig(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			} else {
				fmt.Fprintf(out, "Set %s = %s\n", key, value)
			}

			return nil
		},
	}
}

// configPath is --config if given, else ~/.boxes/config.yaml.
func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	return config.DefaultPath()
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.BoxesConfig, key string) (interface{}, bool) {
	switch key {
	case "engine.token_min":
		return cfg.Engine.TokenMin, true
	case "engine.underflow_threshold":
		return cfg.Engine.UnderflowThreshold, true
	case "engine.exponent":
		return cfg.Engine.Exponent, true
	case "engine.recorder":
		return cfg.Engine.Recorder, true
	case "engine.seed":
		return cfg.Engine.Seed, true
	case "outcomes.win.add":
		return cfg.Outcomes.Win.Add, true
	case "outcomes.win.multiply":
		return cfg.Outcomes.Win.Multiply, true
	case "outcomes.lose.add":
		return cfg.Outcomes.Lose.Add, true
	case "outcomes.lose.multiply":
		return cfg.Outcomes.Lose.Multiply, true
	case "outcomes.draw.add":
		return cfg.Outcomes.Draw.Add, true
	case "outcomes.draw.multiply":
		return cfg.Outcomes.Draw.Multiply, true
	case "tictactoe.games":
		return cfg.TicTacToe.Games, true
	case "tictactoe.batch_size":
		return cfg.TicTacToe.BatchSize, true
	case "tictactoe.max_turns":
		return cfg.TicTacToe.MaxTurns, true
	case "tictactoe.tokens":
		return cfg.TicTacToe.Tokens, true
	case "balltrack.steps":
		return cfg.BallTrack.Steps, true
	case "balltrack.history":
		return cfg.BallTrack.History, true
	case "balltrack.ball_states":
		return cfg.BallTrack.BallStates, true
	case "balltrack.track_states":
		return cfg.BallTrack.TrackStates, true
	case "balltrack.actions":
		return cfg.BallTrack.Actions, true
	case "balltrack.tokens":
		return cfg.BallTrack.Tokens, true
	case "balltrack.setpoint":
		return cfg.BallTrack.Setpoint, true
	case "balltrack.report_every":
		return cfg.BallTrack.ReportEvery, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "logging.dir":
		return cfg.Logging.Dir, true
	case "metrics.addr":
		return cfg.Metrics.Addr, true
	case "tracing.enabled":
		return cfg.Tracing.Enabled, true
	case "journal.path":
		return cfg.Journal.Path, true
	case "backup.dir":
		return cfg.Backup.Dir, true
	case "backup.max_count":
		return cfg.Backup.MaxCount, true
	case "backup.max_age":
		return cfg.Backup.MaxAge, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key and
// validates the result.
func setConfigValue(cfg *config.BoxesConfig, key, value string) error {
	parseFloat := func(dst *float64) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for %s: %s", key, value)
		}
		*dst = f
		return nil
	}
	parseInt := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		*dst = n
		return nil
	}

	var err error
	switch key {
	case "engine.token_min":
		err = parseFloat(&cfg.Engine.TokenMin)
	case "engine.underflow_threshold":
		err = parseFloat(&cfg.Engine.UnderflowThreshold)
	case "engine.exponent":
		err = parseFloat(&cfg.Engine.Exponent)
	case "engine.recorder":
		if !boxes.Recorder(value).Valid() {
			return fmt.Errorf("invalid recorder: %s (valid: chain, block)", value)
		}
		cfg.Engine.Recorder = value
	case "engine.seed":
		n, perr := strconv.ParseUint(value, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid seed: %s", value)
		}
		cfg.Engine.Seed = n
	case "outcomes.win.add":
		err = parseFloat(&cfg.Outcomes.Win.Add)
	case "outcomes.win.multiply":
		err = parseFloat(&cfg.Outcomes.Win.Multiply)
	case "outcomes.lose.add":
		err = parseFloat(&cfg.Outcomes.Lose.Add)
	case "outcomes.lose.multiply":
		err = parseFloat(&cfg.Outcomes.Lose.Multiply)
	case "outcomes.draw.add":
		err = parseFloat(&cfg.Outcomes.Draw.Add)
	case "outcomes.draw.multiply":
		err = parseFloat(&cfg.Outcomes.Draw.Multiply)
	case "tictactoe.games":
		err = parseInt(&cfg.TicTacToe.Games)
	case "tictactoe.batch_size":
		err = parseInt(&cfg.TicTacToe.BatchSize)
	case "tictactoe.max_turns":
		err = parseInt(&cfg.TicTacToe.MaxTurns)
	case "tictactoe.tokens":
		err = parseFloat(&cfg.TicTacToe.Tokens)
	case "balltrack.steps":
		err = parseInt(&cfg.BallTrack.Steps)
	case "balltrack.history":
		err = parseInt(&cfg.BallTrack.History)
	case "balltrack.ball_states":
		err = parseInt(&cfg.BallTrack.BallStates)
	case "balltrack.track_states":
		err = parseInt(&cfg.BallTrack.TrackStates)
	case "balltrack.actions":
		err = parseInt(&cfg.BallTrack.Actions)
	case "balltrack.tokens":
		err = parseFloat(&cfg.BallTrack.Tokens)
	case "balltrack.setpoint":
		err = parseFloat(&cfg.BallTrack.Setpoint)
	case "balltrack.report_every":
		err = parseInt(&cfg.BallTrack.ReportEvery)
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.dir":
		cfg.Logging.Dir = value
	case "metrics.addr":
		cfg.Metrics.Addr = value
	case "tracing.enabled":
		cfg.Tracing.Enabled = value == "true" || value == "1"
	case "journal.path":
		cfg.Journal.Path = value
	case "backup.dir":
		cfg.Backup.Dir = value
	case "backup.max_count":
		err = parseInt(&cfg.Backup.MaxCount)
	case "backup.max_age":
		if _, perr := backup.ParseDuration(value); perr != nil {
			return perr
		}
		cfg.Backup.MaxAge = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// saveConfig writes the configuration to path, creating its directory.
func saveConfig(cfg *config.BoxesConfig, path string) error {
	if path == "" {
		return fmt.Errorf("cannot determine config path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
