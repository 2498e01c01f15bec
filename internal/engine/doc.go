// Package engine drives a pipeline run: it walks the static stage graph
// in topological parallel groups, executes group members concurrently,
// applies their updates to the shared state at group join, consults the
// retry governor on critic verdicts, and re-enters the walk at a retry
// target after invalidating everything downstream of it. Every stage
// transition is recorded and snapshotted.
//
// A single orchestrator goroutine owns the walk. Concurrency exists only
// inside a group, behind an errgroup joined before the next group
// starts; sequence numbers are assigned at join time, so records are
// totally ordered even though execution within a group is not.
package engine
