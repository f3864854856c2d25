// Package training orchestrates tic-tac-toe and ball-on-track learning runs.
//
// A Runner owns everything around the engine: batching and statistics, the
// run journal, Prometheus metrics, tracing spans and the episode trace. The
// context is checked between episodes; a cancelled run is journaled as
// cancelled and its partial result returned.
package training
