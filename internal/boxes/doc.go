// Package boxes implements Michie's BOXES learning algorithm.
//
// A Table holds one weighted pool of candidate actions ("tokens") per
// discrete problem state. A Selector draws an action for a state with
// probability proportional to its weight, restricted by a legality Mask.
// The decisions of an episode are recorded in a Trajectory (a Block or a
// Chain), and once the outcome is known the table learns from it with an
// affine Adjustment: w = Add + Multiply*w, floored at the table's TokenMin.
//
// The package keeps no global state. The random source is injected so that
// a fixed stream yields reproducible selections. A Table is not safe for
// concurrent use; independent tables may be used from different goroutines.
//
// Usage:
//
//	table, err := boxes.NewTable(19683, 9, 100)
//	if err != nil { ... }
//	defer table.Close()
//	sel := boxes.NewSelector(boxes.NewRandomSource(42), boxes.DefaultSelectorConfig())
//
//	chain, _ := boxes.NewChain(table)
//	for !done {
//	    pick, _ := sel.Select(table, state, legal)
//	    chain.Append(state, pick.Action, legal)
//	    state, done = step(pick.Action)
//	}
//	table.UpdateTrajectory(chain, boxes.Adjustment{Add: 1, Multiply: 1})
//	chain.Close()
package boxes
