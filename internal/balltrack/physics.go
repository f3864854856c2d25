// Package balltrack simulates a ball rolling on a servo-tilted track and
// drives a BOXES table to hold the ball at a setpoint. The table never sees
// the physics: only quantized ball positions and track angles over a short
// history window, and a reward after every step.
package balltrack

import (
	"math"

	"github.com/nvandessel/boxes/internal/constants"
)

// Params describes the hidden physical model. SI units throughout.
type Params struct {
	Timestep       float64 `json:"timestep" yaml:"timestep"`
	TrackLength    float64 `json:"track_length" yaml:"track_length"`
	AngleMin       float64 `json:"angle_min" yaml:"angle_min"`
	AngleMax       float64 `json:"angle_max" yaml:"angle_max"`
	SlewRate       float64 `json:"slew_rate" yaml:"slew_rate"`
	Mass           float64 `json:"mass" yaml:"mass"`
	Bounce         float64 `json:"bounce" yaml:"bounce"`
	FrictionSwitch float64 `json:"friction_switch" yaml:"friction_switch"`
	StaticFriction float64 `json:"static_friction" yaml:"static_friction"`
	DynFriction    float64 `json:"dyn_friction" yaml:"dyn_friction"`
}

// DefaultParams returns the reference track.
func DefaultParams() Params {
	return Params{
		Timestep:       constants.Timestep,
		TrackLength:    constants.TrackLength,
		AngleMin:       constants.TrackAngleMin,
		AngleMax:       constants.TrackAngleMax,
		SlewRate:       constants.TrackSlewRate,
		Mass:           constants.BallMass,
		Bounce:         constants.BallBounce,
		FrictionSwitch: constants.BallFrictionSwitch,
		StaticFriction: constants.BallStaticFriction,
		DynFriction:    constants.BallDynFriction,
	}
}

// Physics is the true state of the ball and track.
type Physics struct {
	Params

	Angle float64 // track tilt, radians; positive rolls the ball toward TrackLength
	X     float64 // ball position along the track, [0, TrackLength]
	V     float64 // ball velocity, m/s
}

// NewPhysics returns a level track with the ball at rest at position 0.
func NewPhysics(p Params) *Physics {
	return &Physics{Params: p}
}

// CommandAngle maps an action in [0, actions) onto evenly spaced tilt
// setpoints spanning [AngleMin, AngleMax].
func (p *Physics) CommandAngle(cmd, actions int) float64 {
	if actions < 2 {
		return (p.AngleMin + p.AngleMax) / 2
	}
	return p.AngleMin + float64(cmd)*(p.AngleMax-p.AngleMin)/float64(actions-1)
}

// Step advances the model by one timestep: the servo slews toward the
// commanded angle, then the ball moves.
func (p *Physics) Step(cmd, actions int) {
	p.moveTrack(p.CommandAngle(cmd, actions))
	p.moveBall()
}

func (p *Physics) moveTrack(target float64) {
	maxStep := p.SlewRate * p.Timestep
	switch d := target - p.Angle; {
	case math.Abs(d) <= maxStep:
		p.Angle = target
	case d > 0:
		p.Angle += maxStep
	default:
		p.Angle -= maxStep
	}
}

func (p *Physics) moveBall() {
	drive := p.Mass * math.Sin(p.Angle)
	force := drive

	if math.Abs(p.V) < p.FrictionSwitch {
		// Static friction holds the ball until the drive overcomes it.
		static := p.Mass * p.StaticFriction
		if math.Abs(drive) <= static {
			p.V = 0
			return
		}
		force -= math.Copysign(static, drive)
	} else {
		force -= math.Copysign(p.Mass*p.DynFriction, p.V)
	}

	p.V += force / p.Mass * p.Timestep
	p.X += p.V * p.Timestep

	// Bumpers at both ends. For small timesteps reflecting the overshoot is
	// close enough to splitting the motion at impact.
	if p.X < 0 {
		p.X = -p.X * p.Bounce
		p.V = -p.V * p.Bounce
	}
	if p.X > p.TrackLength {
		p.X = p.TrackLength - (p.X-p.TrackLength)*p.Bounce
		p.V = -p.V * p.Bounce
	}
}
