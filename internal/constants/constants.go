// Package constants provides named constants used throughout the boxes codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Engine defaults
const (
	// DefaultExponent is the exploration exponent that reproduces classic
	// proportional sampling.
	DefaultExponent = 1.0

	// DefaultSeed seeds the PCG source when no seed is configured.
	DefaultSeed = 1

	// DefaultRecorder is the trajectory recorder used by the CLI drivers.
	DefaultRecorder = "chain"
)

// Outcome adjustments applied to a player's trajectory at the end of a game.
// Each outcome is (add, multiply); learning computes add + multiply*w.
const (
	WinAdd       = 1.0
	WinMultiply  = 1.0
	LoseAdd      = -1.0
	LoseMultiply = 1.0
	DrawAdd      = 0.01
	DrawMultiply = 1.0
)

// Tic-tac-toe self-play
const (
	// TicTacToeCells is the number of squares on the board and the action count.
	TicTacToeCells = 9

	// TicTacToeStates is 3^9: every board encoded in base 3, reachable or not.
	TicTacToeStates = 19683

	// DefaultTicTacToeTokens is the initial weight of every box.
	DefaultTicTacToeTokens = 1000

	// DefaultMaxTurns caps the moves in one game. With nine squares the board
	// fills first, so the cap only matters when lowered.
	DefaultMaxTurns = 10

	// DefaultTicTacToeGames is the number of double-games (each table moves
	// first once per double-game).
	DefaultTicTacToeGames = 200000

	// DefaultTicTacToeBatch is the number of double-games per statistics batch.
	DefaultTicTacToeBatch = 10000
)

// Ball-on-track physics. SI units: meters, seconds, radians; ball mass is
// normalized to 1.
const (
	Timestep           = 0.0333
	TrackLength        = 1.0
	TrackAngleMin      = -0.2
	TrackAngleMax      = 0.2
	TrackSlewRate      = 0.5 // rad/s
	BallMass           = 1.0
	BallBounce         = 0.5  // coefficient of restitution at the end stops
	BallFrictionSwitch = 0.05 // m/s; below this static friction applies
	BallStaticFriction = 0.05
	BallDynFriction    = 0.02
)

// Ball-on-track quantization and learning
const (
	DefaultBallStates  = 5
	DefaultTrackStates = 5

	// DefaultHistory is how many past quantized observations form one state,
	// and how many chain steps survive truncation.
	DefaultHistory = 1

	// MaxBallTrackStates caps the ball-track table at about a million
	// states (8MB of weights per action).
	MaxBallTrackStates = 1 << 20

	// DefaultBallActions is tilt left, level, tilt right.
	DefaultBallActions = 3

	DefaultBallTokens = 100
	DefaultBallSteps  = 500
	DefaultSetpoint   = 0.5

	// Reward is MaxReward - AbsTaper*|err| - SquaredTaper*err^2.
	BallMaxReward    = 1.0
	BallAbsTaper     = 2.0
	BallSquaredTaper = 4.0

	// DefaultBallReportEvery is the number of steps aggregated into one batch.
	DefaultBallReportEvery = 50
)

// Storage
const (
	// DefaultDirName is the per-user directory holding config, journal and traces.
	DefaultDirName = ".boxes"

	// JournalFileName is the SQLite run journal inside DefaultDirName.
	JournalFileName = "boxes.db"

	// EpisodeLogFileName is the JSONL episode trace written at debug level.
	EpisodeLogFileName = "episodes.jsonl"

	// BackupDirName is the archive directory inside DefaultDirName.
	BackupDirName = "backups"

	// DefaultBackupKeep is how many journal archives retention keeps.
	DefaultBackupKeep = 10
)
