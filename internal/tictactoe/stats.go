package tictactoe

// Batch tallies a run of consecutive double-games.
type Batch struct {
	Index      int   `json:"index"`
	Start      int64 `json:"start"` // double-game number of the first game in the batch
	Games      int   `json:"games"`
	FirstWins  int   `json:"first_wins"`
	SecondWins int   `json:"second_wins"`
	Draws      int   `json:"draws"`
	Underflows int   `json:"underflows"`
}

// Add counts one finished game.
func (b *Batch) Add(g Game) {
	b.Games++
	b.Underflows += g.Underflows
	switch g.Result {
	case FirstWins:
		b.FirstWins++
	case SecondWins:
		b.SecondWins++
	default:
		b.Draws++
	}
}

// DrawsDominate reports whether draws exceed factor times each win count.
func (b Batch) DrawsDominate(factor int) bool {
	return factor*b.FirstWins < b.Draws && factor*b.SecondWins < b.Draws
}

// Milestones mark how quickly play converged on draws. Each is the Start
// of the first qualifying batch, or -1 if none qualified.
type Milestones struct {
	// P50 is where draws first outnumbered both win counts.
	P50 int64 `json:"p50"`

	// P90 is where draws first outnumbered both win counts tenfold.
	P90 int64 `json:"p90"`

	// LastUnderflow is the Start of the last batch that needed a refill.
	LastUnderflow int64 `json:"last_underflow"`
}

// Summarize computes milestones over batches in order.
func Summarize(batches []Batch) Milestones {
	m := Milestones{P50: -1, P90: -1, LastUnderflow: -1}
	for _, b := range batches {
		if m.P50 < 0 && b.DrawsDominate(1) {
			m.P50 = b.Start
		}
		if m.P90 < 0 && b.DrawsDominate(10) {
			m.P90 = b.Start
		}
		if b.Underflows > 0 {
			m.LastUnderflow = b.Start
		}
	}
	return m
}
