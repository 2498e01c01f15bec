// Package graph builds the static stage dependency graph of a pipeline.
//
// Edges are inferred from declared input/output field sets: the producer
// of a field gains an edge to every consumer of that field. The graph is
// immutable once built; critic retries are engine-internal re-entries
// into the topological walk, never run-time graph mutation. Besides the
// usual topological concerns (cycle detection, parallel level grouping)
// the build step validates every critic's retry targets, so an illegal
// back-edge is impossible by the time a run starts.
package graph
