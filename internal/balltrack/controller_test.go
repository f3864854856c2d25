package balltrack

import (
	"errors"
	"testing"

	"github.com/nvandessel/boxes/internal/boxes"
)

func mustStates(t *testing.T, cfg Config) int {
	t.Helper()
	n, err := cfg.States()
	if err != nil {
		t.Fatalf("States: %v", err)
	}
	return n
}

func newController(t *testing.T, cfg Config, rec boxes.Recorder, seed uint64) (*Controller, *boxes.Table) {
	t.Helper()
	tbl, err := boxes.NewTable(mustStates(t, cfg), cfg.Actions, 100)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	sel := boxes.NewSelector(boxes.NewRandomSource(seed), boxes.DefaultSelectorConfig())
	c, err := NewController(cfg, tbl, sel, rec)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c, tbl
}

func TestController_RunsAndLearns(t *testing.T) {
	for _, rec := range []boxes.Recorder{boxes.RecorderChain, boxes.RecorderBlock} {
		t.Run(string(rec), func(t *testing.T) {
			cfg := DefaultConfig()
			c, tbl := newController(t, cfg, rec, 1)

			for i := 0; i < 500; i++ {
				r, err := c.Step()
				if err != nil {
					t.Fatalf("step %d: %v", i, err)
				}
				if r.Step != int64(i) {
					t.Fatalf("report step = %d, want %d", r.Step, i)
				}
				if r.X < 0 || r.X > cfg.Params.TrackLength {
					t.Fatalf("step %d: x = %v off the track", i, r.X)
				}
				if r.Action < 0 || r.Action >= cfg.Actions {
					t.Fatalf("step %d: action %d out of range", i, r.Action)
				}
				if r.State < 0 || r.State >= tbl.States() {
					t.Fatalf("step %d: state %d out of range", i, r.State)
				}
				if c.tr.Len() > cfg.History {
					t.Fatalf("step %d: trajectory holds %d steps, want <= %d", i, c.tr.Len(), cfg.History)
				}
			}

			snap, _ := tbl.Snapshot()
			changed := false
			for _, w := range snap {
				if w != 100 {
					changed = true
					break
				}
			}
			if !changed {
				t.Error("no weight changed after 500 rewarded steps")
			}

			if err := c.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if err := tbl.Close(); err != nil {
				t.Errorf("table Close after controller Close: %v", err)
			}
		})
	}
}

func TestController_NoLearningBeforeWindowFills(t *testing.T) {
	cfg := DefaultConfig()
	cfg.History = 2
	c, tbl := newController(t, cfg, boxes.RecorderChain, 4)
	defer c.Close()

	// Steps 0..History learn nothing.
	for i := 0; i <= cfg.History; i++ {
		if _, err := c.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	snap, _ := tbl.Snapshot()
	for i, w := range snap {
		if w != 100 {
			t.Fatalf("weight[%d] = %v changed before the window filled", i, w)
		}
	}
}

func TestController_TableMismatch(t *testing.T) {
	cfg := DefaultConfig()
	tbl, err := boxes.NewTable(mustStates(t, cfg)+1, cfg.Actions, 1)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	sel := boxes.NewSelector(boxes.NewRandomSource(1), boxes.DefaultSelectorConfig())
	if _, err := NewController(cfg, tbl, sel, boxes.RecorderChain); !errors.Is(err, boxes.ErrInvalidConfiguration) {
		t.Errorf("err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestController_Deterministic(t *testing.T) {
	run := func() []StepReport {
		c, _ := newController(t, DefaultConfig(), boxes.RecorderChain, 9)
		defer c.Close()
		var out []StepReport
		for i := 0; i < 200; i++ {
			r, err := c.Step()
			if err != nil {
				t.Fatalf("Step: %v", err)
			}
			out = append(out, r)
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestController_RejectsOversizedWindow(t *testing.T) {
	cfg := DefaultConfig()
	tbl, err := boxes.NewTable(25, cfg.Actions, 1)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	sel := boxes.NewSelector(boxes.NewRandomSource(1), boxes.DefaultSelectorConfig())
	cfg.History = 14
	if _, err := NewController(cfg, tbl, sel, boxes.RecorderChain); !errors.Is(err, boxes.ErrInvalidConfiguration) {
		t.Errorf("err = %v, want ErrInvalidConfiguration", err)
	}
}
