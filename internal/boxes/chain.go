package boxes

// link is one chain element.
type link struct {
	step Step
	next *link
}

// Chain records steps as a singly linked list grown at the front, so
// Each walks the most recent step first. Appends allocate one link; learning
// and release cost is proportional to the chain's length, not the table's.
type Chain struct {
	table *Table
	head  *link
	n     int
}

// NewChain creates an empty chain bound to t.
func NewChain(t *Table) (*Chain, error) {
	if err := t.attach(); err != nil {
		return nil, err
	}
	return &Chain{table: t}, nil
}

// Table implements Trajectory.
func (c *Chain) Table() *Table { return c.table }

// Append implements Trajectory.
func (c *Chain) Append(state, action int, mask Mask) error {
	if err := checkStep(c.table, state, action, mask); err != nil {
		return err
	}
	c.head = &link{
		step: Step{State: state, Action: action, Mask: mask.Clone()},
		next: c.head,
	}
	c.n++
	return nil
}

// Truncate implements Trajectory.
func (c *Chain) Truncate(keepLast int) int {
	if keepLast < 0 {
		keepLast = 0
	}
	if c.n <= keepLast {
		return 0
	}
	if keepLast == 0 {
		dropped := release(c.head)
		c.head = nil
		c.n = 0
		return dropped
	}
	// Walk to the last link that survives and cut the chain after it.
	tail := c.head
	for i := 1; i < keepLast; i++ {
		tail = tail.next
	}
	dropped := release(tail.next)
	tail.next = nil
	c.n = keepLast
	return dropped
}

// Len implements Trajectory.
func (c *Chain) Len() int { return c.n }

// Each implements Trajectory, most recent step first.
func (c *Chain) Each(fn func(Step) bool) {
	for l := c.head; l != nil; l = l.next {
		if !fn(l.step) {
			return
		}
	}
}

// Reset implements Trajectory.
func (c *Chain) Reset() {
	release(c.head)
	c.head = nil
	c.n = 0
}

// Close implements Trajectory.
func (c *Chain) Close() error {
	if c.table == nil {
		return nil
	}
	c.Reset()
	c.table.detach()
	c.table = nil
	return nil
}

// release unlinks every element from l onward, dropping mask snapshots, and
// returns how many were released.
func release(l *link) int {
	n := 0
	for l != nil {
		next := l.next
		l.next = nil
		l.step.Mask = nil
		l = next
		n++
	}
	return n
}
