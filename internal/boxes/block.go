package boxes

// Block records steps in a growable arena plus a dense per-cell visit
// counter sized like the table. Appends are two slice writes; Reset clears
// the counter with a full-table scan so one Block can serve many episodes.
// Each walks steps in insertion order.
type Block struct {
	table  *Table
	steps  []Step
	counts []int32 // indexed state*actions+action
}

// NewBlock creates an empty block bound to t.
func NewBlock(t *Table) (*Block, error) {
	if err := t.attach(); err != nil {
		return nil, err
	}
	return &Block{
		table:  t,
		counts: make([]int32, t.states*t.actions),
	}, nil
}

// Table implements Trajectory.
func (b *Block) Table() *Table { return b.table }

// Append implements Trajectory.
func (b *Block) Append(state, action int, mask Mask) error {
	if err := checkStep(b.table, state, action, mask); err != nil {
		return err
	}
	b.steps = append(b.steps, Step{State: state, Action: action, Mask: mask.Clone()})
	b.counts[b.table.offset(state, action)]++
	return nil
}

// Count returns how many times state/action has been recorded.
func (b *Block) Count(state, action int) int {
	if b.table == nil || state < 0 || state >= b.table.states || action < 0 || action >= b.table.actions {
		return 0
	}
	return int(b.counts[b.table.offset(state, action)])
}

// Truncate implements Trajectory.
func (b *Block) Truncate(keepLast int) int {
	if keepLast < 0 {
		keepLast = 0
	}
	n := len(b.steps)
	if n <= keepLast {
		return 0
	}
	drop := n - keepLast
	for _, s := range b.steps[:drop] {
		b.counts[b.table.offset(s.State, s.Action)]--
	}
	copy(b.steps, b.steps[drop:])
	clear(b.steps[keepLast:])
	b.steps = b.steps[:keepLast]
	return drop
}

// Len implements Trajectory.
func (b *Block) Len() int { return len(b.steps) }

// Each implements Trajectory, oldest step first.
func (b *Block) Each(fn func(Step) bool) {
	for _, s := range b.steps {
		if !fn(s) {
			return
		}
	}
}

// Reset implements Trajectory.
func (b *Block) Reset() {
	clear(b.steps)
	b.steps = b.steps[:0]
	clear(b.counts)
}

// Close implements Trajectory.
func (b *Block) Close() error {
	if b.table == nil {
		return nil
	}
	b.table.detach()
	b.table = nil
	b.steps = nil
	b.counts = nil
	return nil
}
