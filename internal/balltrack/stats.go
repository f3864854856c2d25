package balltrack

import "math"

// Window aggregates consecutive control steps.
type Window struct {
	Index        int     `json:"index"`
	Start        int64   `json:"start"`
	Steps        int     `json:"steps"`
	MeanReward   float64 `json:"mean_reward"`
	MeanAbsError float64 `json:"mean_abs_error"`
	Underflows   int     `json:"underflows"`

	rewardSum float64
	errSum    float64
}

// Add folds one step into the window.
func (w *Window) Add(r StepReport) {
	if w.Steps == 0 {
		w.Start = r.Step
	}
	w.Steps++
	w.rewardSum += r.Reward
	w.errSum += math.Abs(r.Error)
	if r.Underflow {
		w.Underflows++
	}
	w.MeanReward = w.rewardSum / float64(w.Steps)
	w.MeanAbsError = w.errSum / float64(w.Steps)
}
