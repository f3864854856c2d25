package balltrack

import (
	"fmt"
	"math"

	"github.com/nvandessel/boxes/internal/boxes"
	"github.com/nvandessel/boxes/internal/constants"
)

// Config sizes the learning problem.
type Config struct {
	Params      Params
	BallStates  int
	TrackStates int
	History     int
	Actions     int
	Setpoint    float64
}

// DefaultConfig returns the reference problem: 5x5 quantization, one step
// of history, three tilt actions, setpoint mid-track.
func DefaultConfig() Config {
	return Config{
		Params:      DefaultParams(),
		BallStates:  constants.DefaultBallStates,
		TrackStates: constants.DefaultTrackStates,
		History:     constants.DefaultHistory,
		Actions:     constants.DefaultBallActions,
		Setpoint:    constants.DefaultSetpoint,
	}
}

// States returns the table state count the config requires. It fails when
// the count exceeds constants.MaxBallTrackStates.
func (c Config) States() (int, error) {
	return StateCount(c.BallStates, c.TrackStates, c.History)
}

// Reward scores the true ball position: full marks at the setpoint, tapering
// linearly and quadratically with distance.
func Reward(x, setpoint float64) float64 {
	e := math.Abs(x - setpoint)
	return constants.BallMaxReward - constants.BallAbsTaper*e - constants.BallSquaredTaper*e*e
}

// StepReport is what happened in one control step.
type StepReport struct {
	Step      int64   `json:"step"`
	Angle     float64 `json:"angle"`
	X         float64 `json:"x"`
	V         float64 `json:"v"`
	Error     float64 `json:"error"` // setpoint - x
	Reward    float64 `json:"reward"`
	State     int     `json:"state"`
	Action    int     `json:"action"` // command for the next step
	Underflow bool    `json:"underflow"`
}

// Controller learns online: every step is rewarded as soon as it happens,
// crediting only the last History decisions.
type Controller struct {
	cfg      Config
	table    *boxes.Table
	selector *boxes.Selector
	tr       boxes.Trajectory
	phys     *Physics
	obs      *Observer
	cmd      int
	step     int64
}

// NewController binds a controller to table, which must be sized
// cfg.States() x cfg.Actions.
func NewController(cfg Config, table *boxes.Table, sel *boxes.Selector, rec boxes.Recorder) (*Controller, error) {
	if cfg.Actions <= 0 {
		return nil, fmt.Errorf("%w: balltrack dimensions must be positive", boxes.ErrInvalidConfiguration)
	}
	states, err := cfg.States()
	if err != nil {
		return nil, err
	}
	if table.States() != states || table.Actions() != cfg.Actions {
		return nil, fmt.Errorf("%w: table is %dx%d, problem needs %dx%d", boxes.ErrInvalidConfiguration,
			table.States(), table.Actions(), states, cfg.Actions)
	}
	tr, err := boxes.NewTrajectory(table, rec)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:      cfg,
		table:    table,
		selector: sel,
		tr:       tr,
		phys:     NewPhysics(cfg.Params),
		obs:      NewObserver(cfg.BallStates, cfg.TrackStates, cfg.History),
		cmd:      (cfg.Actions - 1) / 2,
	}, nil
}

// Physics exposes the true model state.
func (c *Controller) Physics() *Physics { return c.phys }

// Step runs one control cycle: move, observe, reward, learn, choose.
func (c *Controller) Step() (StepReport, error) {
	c.phys.Step(c.cmd, c.cfg.Actions)
	c.obs.Observe(c.phys)
	reward := Reward(c.phys.X, c.cfg.Setpoint)
	state := c.obs.State()

	if err := c.tr.Append(state, c.cmd, nil); err != nil {
		return StepReport{}, err
	}
	c.tr.Truncate(c.cfg.History)

	// Learn only once the observation window is filled with real data.
	if c.step > int64(c.cfg.History) {
		if err := c.table.UpdateTrajectory(c.tr, boxes.Adjustment{Add: reward, Multiply: 1}); err != nil {
			return StepReport{}, err
		}
	}

	pick, err := c.selector.Select(c.table, state, nil)
	if err != nil {
		return StepReport{}, err
	}
	c.cmd = pick.Action

	r := StepReport{
		Step:      c.step,
		Angle:     c.phys.Angle,
		X:         c.phys.X,
		V:         c.phys.V,
		Error:     c.cfg.Setpoint - c.phys.X,
		Reward:    reward,
		State:     state,
		Action:    pick.Action,
		Underflow: pick.Underflow,
	}
	c.step++
	return r, nil
}

// Close releases the controller's trajectory. The table stays open.
func (c *Controller) Close() error {
	return c.tr.Close()
}
