package tictactoe

import "testing"

func TestBatch_Add(t *testing.T) {
	var b Batch
	b.Add(Game{Result: FirstWins, Underflows: 2})
	b.Add(Game{Result: SecondWins})
	b.Add(Game{Result: Draw})
	b.Add(Game{Result: Draw, Underflows: 1})

	if b.Games != 4 || b.FirstWins != 1 || b.SecondWins != 1 || b.Draws != 2 || b.Underflows != 3 {
		t.Errorf("batch = %+v", b)
	}
}

func TestSummarize(t *testing.T) {
	batches := []Batch{
		{Start: 0, FirstWins: 50, SecondWins: 30, Draws: 20, Underflows: 4},
		{Start: 100, FirstWins: 20, SecondWins: 15, Draws: 65, Underflows: 1},
		{Start: 200, FirstWins: 10, SecondWins: 2, Draws: 88},
		{Start: 300, FirstWins: 1, SecondWins: 0, Draws: 99, Underflows: 1},
		{Start: 400, FirstWins: 0, SecondWins: 0, Draws: 100},
	}

	m := Summarize(batches)
	if m.P50 != 100 {
		t.Errorf("P50 = %d, want 100", m.P50)
	}
	if m.P90 != 300 {
		t.Errorf("P90 = %d, want 300", m.P90)
	}
	if m.LastUnderflow != 300 {
		t.Errorf("LastUnderflow = %d, want 300", m.LastUnderflow)
	}
}

func TestSummarize_NeverConverged(t *testing.T) {
	m := Summarize([]Batch{{Start: 0, FirstWins: 10, SecondWins: 10, Draws: 10}})
	if m.P50 != -1 || m.P90 != -1 || m.LastUnderflow != -1 {
		t.Errorf("milestones = %+v, want all -1", m)
	}
}

func TestResult_String(t *testing.T) {
	for r, want := range map[Result]string{FirstWins: "first", SecondWins: "second", Draw: "draw"} {
		if got := r.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", r, got, want)
		}
	}
}
