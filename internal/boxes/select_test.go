package boxes

import (
	"errors"
	"math"
	"testing"
)

// seqSource replays a fixed stream of uniform draws, cycling at the end.
type seqSource struct {
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

// gridSource returns k/n for k = 0..n-1 in order: an evenly spread stream
// whose empirical frequencies match exact probabilities to within 1/n.
func gridSource(n int) *seqSource {
	vals := make([]float64, n)
	for k := range vals {
		vals[k] = float64(k) / float64(n)
	}
	return &seqSource{vals: vals}
}

func counts(t *testing.T, sel *Selector, tbl *Table, state int, mask Mask, exponent float64, draws int) []int {
	t.Helper()
	out := make([]int, tbl.Actions())
	for i := 0; i < draws; i++ {
		pick, err := sel.SelectWithExponent(tbl, state, mask, exponent)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		out[pick.Action]++
	}
	return out
}

func TestSelect_DrawWalksAscendingIndex(t *testing.T) {
	tbl := newTestTable(t, 1, 3, 1)
	setWeight(t, tbl, 0, 0, 1)
	setWeight(t, tbl, 0, 1, 2)
	setWeight(t, tbl, 0, 2, 3)

	tests := []struct {
		r    float64
		want int
	}{
		{0.0, 0},
		{0.1, 0}, // 0.6 - 1 <= 0
		{0.2, 1}, // 1.2 - 1 - 2 <= 0
		{0.5, 1}, // remainder hits exactly 0 on action 1
		{0.9, 2},
		{0.999999, 2},
	}
	for _, tt := range tests {
		sel := NewSelector(&seqSource{vals: []float64{tt.r}}, DefaultSelectorConfig())
		pick, err := sel.Select(tbl, 0, nil)
		if err != nil {
			t.Fatalf("Select(r=%v): %v", tt.r, err)
		}
		if pick.Action != tt.want {
			t.Errorf("Select(r=%v) = %d, want %d", tt.r, pick.Action, tt.want)
		}
		if pick.Underflow {
			t.Errorf("Select(r=%v) reported underflow", tt.r)
		}
	}
}

func TestSelect_Proportionality(t *testing.T) {
	tbl := newTestTable(t, 2, 3, 1)
	weights := []float64{10, 30, 60}
	for a, w := range weights {
		setWeight(t, tbl, 1, a, w)
	}

	const draws = 100000
	sel := NewSelector(NewRandomSource(1), DefaultSelectorConfig())
	got := counts(t, sel, tbl, 1, nil, 1, draws)

	for a, w := range weights {
		freq := float64(got[a]) / draws
		want := w / 100
		if math.Abs(freq-want) > 0.01 {
			t.Errorf("action %d frequency = %.4f, want %.4f +/- 0.01", a, freq, want)
		}
	}
}

func TestSelect_MaskExcludesForbiddenActions(t *testing.T) {
	tbl := newTestTable(t, 1, 4, 1)
	setWeight(t, tbl, 0, 0, 1000)
	setWeight(t, tbl, 0, 1, 2)
	setWeight(t, tbl, 0, 2, 1000)
	setWeight(t, tbl, 0, 3, 2)

	mask := Mask{false, true, false, true}
	sel := NewSelector(NewRandomSource(9), DefaultSelectorConfig())
	got := counts(t, sel, tbl, 0, mask, 1, 5000)

	if got[0] != 0 || got[2] != 0 {
		t.Fatalf("forbidden actions drawn: %v", got)
	}
	if got[1] == 0 || got[3] == 0 {
		t.Errorf("permitted actions never drawn: %v", got)
	}
}

func TestSelect_MaskedScenario(t *testing.T) {
	tbl := newTestTable(t, 1, 3, 10)
	mask := Mask{true, true, false}
	sel := NewSelector(NewRandomSource(7), DefaultSelectorConfig())

	got := counts(t, sel, tbl, 0, mask, 1, 10000)

	if got[2] != 0 {
		t.Fatalf("action 2 drawn %d times under mask", got[2])
	}
	for _, a := range []int{0, 1} {
		if got[a] < 4700 || got[a] > 5300 {
			t.Errorf("action %d drawn %d times, want about 5000", a, got[a])
		}
	}
}

func TestSelect_MonotonicSharpening(t *testing.T) {
	tbl := newTestTable(t, 1, 3, 1)
	setWeight(t, tbl, 0, 0, 1)
	setWeight(t, tbl, 0, 1, 2)
	setWeight(t, tbl, 0, 2, 4)

	const draws = 10000
	exponents := []float64{0.5, 1, 2, 3}
	prevMax, prevMin := -1.0, 2.0
	for _, e := range exponents {
		sel := NewSelector(gridSource(draws), DefaultSelectorConfig())
		got := counts(t, sel, tbl, 0, nil, e, draws)
		pMax := float64(got[2]) / draws
		pMin := float64(got[0]) / draws

		if pMax <= prevMax {
			t.Errorf("exponent %v: P(max) = %.4f, not above %.4f", e, pMax, prevMax)
		}
		if pMin >= prevMin {
			t.Errorf("exponent %v: P(min) = %.4f, not below %.4f", e, pMin, prevMin)
		}
		prevMax, prevMin = pMax, pMin
	}
}

func TestSelect_ExponentMatchesClosedForm(t *testing.T) {
	tbl := newTestTable(t, 1, 3, 1)
	weights := []float64{1, 2, 4}
	for a, w := range weights {
		setWeight(t, tbl, 0, a, w)
	}

	const draws = 10000
	for _, e := range []float64{0, 0.5, 1, 2} {
		sel := NewSelector(gridSource(draws), DefaultSelectorConfig())
		got := counts(t, sel, tbl, 0, nil, e, draws)

		var z float64
		for _, w := range weights {
			z += math.Pow(w, e)
		}
		for a, w := range weights {
			want := math.Pow(w, e) / z
			freq := float64(got[a]) / draws
			if math.Abs(freq-want) > 0.002 {
				t.Errorf("exponent %v action %d: freq %.4f, want %.4f", e, a, freq, want)
			}
		}
	}
}

func TestSelect_ExponentOneIsClassic(t *testing.T) {
	tbl := newTestTable(t, 1, 4, 1)
	for a, w := range []float64{3, 0.5, 7, 1.25} {
		setWeight(t, tbl, 0, a, w)
	}

	stream := gridSource(997).vals
	classic := NewSelector(&seqSource{vals: stream}, DefaultSelectorConfig())
	explicit := NewSelector(&seqSource{vals: stream}, SelectorConfig{Exponent: 3})

	for i := range stream {
		a, err := classic.Select(tbl, 0, nil)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		b, err := explicit.SelectWithExponent(tbl, 0, nil, 1)
		if err != nil {
			t.Fatalf("SelectWithExponent: %v", err)
		}
		if a != b {
			t.Fatalf("draw %d: classic %+v, exponent-1 override %+v", i, a, b)
		}
	}
}

func TestSelect_UnderflowRecovery(t *testing.T) {
	tbl := newTestTable(t, 2, 3, 10)
	drain := Adjustment{Add: -1, Multiply: 1}
	for a := 0; a < 3; a++ {
		for i := 0; i < 10; i++ {
			if err := tbl.UpdateCell(0, a, nil, drain); err != nil {
				t.Fatalf("UpdateCell: %v", err)
			}
		}
		if w, _ := tbl.Weight(0, a); w > 1 {
			t.Fatalf("weight(0, %d) = %v after draining, want <= 1", a, w)
		}
	}

	sel := NewSelector(NewRandomSource(3), DefaultSelectorConfig())
	pick, err := sel.Select(tbl, 0, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !pick.Underflow {
		t.Fatal("expected underflow on drained state")
	}
	row, _ := tbl.Row(0)
	for a, w := range row {
		if w != 10 {
			t.Errorf("weight(0, %d) = %v after refill, want 10", a, w)
		}
	}
	if tbl.Underflows() != 1 {
		t.Errorf("Underflows = %d, want 1", tbl.Underflows())
	}

	pick, err = sel.Select(tbl, 0, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if pick.Underflow {
		t.Error("second selection reported underflow with ample weight")
	}

	// The untouched state is unaffected.
	if row, _ := tbl.Row(1); row[0] != 10 || row[1] != 10 || row[2] != 10 {
		t.Errorf("state 1 changed: %v", row)
	}
}

func TestSelect_UnderflowSumIgnoresForbidden(t *testing.T) {
	tbl := newTestTable(t, 1, 3, 10)
	setWeight(t, tbl, 0, 0, 100)
	setWeight(t, tbl, 0, 1, 0.3)
	setWeight(t, tbl, 0, 2, 0.3)

	sel := NewSelector(NewRandomSource(5), DefaultSelectorConfig())
	pick, err := sel.Select(tbl, 0, Mask{false, true, true})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !pick.Underflow {
		t.Fatal("expected underflow: eligible mass is 0.6")
	}
	if pick.Action == 0 {
		t.Error("forbidden action selected")
	}
	row, _ := tbl.Row(0)
	if row[0] != 100 {
		t.Errorf("forbidden weight reset to %v, want untouched 100", row[0])
	}
	if row[1] != 10 || row[2] != 10 {
		t.Errorf("eligible weights = %v, want refilled to 10", row[1:])
	}
}

func TestSelect_ConfigurableThreshold(t *testing.T) {
	tbl := newTestTable(t, 1, 2, 10, WithUnderflowThreshold(25))
	sel := NewSelector(NewRandomSource(1), DefaultSelectorConfig())

	pick, err := sel.Select(tbl, 0, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !pick.Underflow {
		t.Error("expected underflow: mass 20 is under threshold 25")
	}
}

func TestSelect_Errors(t *testing.T) {
	tbl := newTestTable(t, 2, 3, 10)
	sel := NewSelector(NewRandomSource(1), DefaultSelectorConfig())

	tests := []struct {
		name     string
		state    int
		mask     Mask
		exponent float64
		want     error
	}{
		{"negative state", -1, nil, 1, ErrIndex},
		{"state past end", 2, nil, 1, ErrIndex},
		{"short mask", 0, Mask{true, true}, 1, ErrIndex},
		{"long mask", 0, Mask{true, true, true, true}, 1, ErrIndex},
		{"all forbidden", 0, Mask{false, false, false}, 1, ErrNoLegalAction},
		{"negative exponent", 0, nil, -1, ErrInvalidConfiguration},
		{"NaN exponent", 0, nil, math.NaN(), ErrInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sel.SelectWithExponent(tbl, tt.state, tt.mask, tt.exponent)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSelect_SaturatedWeightDominates(t *testing.T) {
	tbl := newTestTable(t, 1, 3, 10)
	setWeight(t, tbl, 0, 1, math.Inf(1))

	for _, r := range []float64{0.3, 0.5, 0.9} {
		sel := NewSelector(&seqSource{vals: []float64{r}}, DefaultSelectorConfig())
		pick, err := sel.Select(tbl, 0, nil)
		if err != nil {
			t.Fatalf("Select(r=%v): %v", r, err)
		}
		if pick.Action != 1 {
			t.Errorf("Select(r=%v) = %d, want 1", r, pick.Action)
		}
	}
}

func TestSelect_SaturatedRowStaysProportional(t *testing.T) {
	tbl := newTestTable(t, 1, 3, 10)
	if err := tbl.UpdateAll(Adjustment{Add: math.Inf(1), Multiply: 1}); err != nil {
		t.Fatalf("UpdateAll: %v", err)
	}

	tests := []struct {
		r    float64
		want int
	}{
		{0.2, 0},
		{0.5, 1},
		{0.8, 2},
	}
	for _, tt := range tests {
		sel := NewSelector(&seqSource{vals: []float64{tt.r}}, DefaultSelectorConfig())
		pick, err := sel.Select(tbl, 0, nil)
		if err != nil {
			t.Fatalf("Select(r=%v): %v", tt.r, err)
		}
		if pick.Action != tt.want {
			t.Errorf("Select(r=%v) = %d, want %d", tt.r, pick.Action, tt.want)
		}
	}
}

func TestSelect_ExponentOverflow(t *testing.T) {
	tests := []struct {
		name     string
		weights  []float64
		exponent float64
		r        float64
		want     int
	}{
		// 3^1000 overflows; the other two underflow to zero.
		{"single infinite weight low draw", []float64{1, 1e6, 1}, 1000, 0.1, 1},
		{"single infinite weight high draw", []float64{1, 1e6, 1}, 1000, 0.9, 1},
		// 1.5^2000 overflows for both heavy actions, which split the draw.
		{"tied infinite weights low draw", []float64{1e6, 1, 1e6}, 2000, 0.3, 0},
		{"tied infinite weights high draw", []float64{1e6, 1, 1e6}, 2000, 0.7, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTestTable(t, 1, len(tt.weights), 1)
			for a, w := range tt.weights {
				setWeight(t, tbl, 0, a, w)
			}
			sel := NewSelector(&seqSource{vals: []float64{tt.r}}, DefaultSelectorConfig())
			pick, err := sel.SelectWithExponent(tbl, 0, nil, tt.exponent)
			if err != nil {
				t.Fatalf("SelectWithExponent: %v", err)
			}
			if pick.Action != tt.want {
				t.Errorf("action = %d, want %d", pick.Action, tt.want)
			}
		})
	}
}
