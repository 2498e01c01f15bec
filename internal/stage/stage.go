// Package stage defines the contracts between the graph engine and the
// external units of work it orchestrates. Processing stages consume a
// declared subset of workflow state and produce a partial update; critic
// stages consume state and return a verdict grading upstream output.
// The engine never interprets the meaning of any field either kind
// touches.
package stage

import (
	"context"

	"github.com/vk/docgraphgo/internal/state"
)

// Kind discriminates the two node flavors in the stage graph.
type Kind string

const (
	KindProcessing Kind = "processing"
	KindCritic     Kind = "critic"
)

// Definition is the static declaration an embedding application supplies
// per stage. Input and output field sets drive dependency-edge inference
// and build-time validation; the engine derives everything else.
type Definition struct {
	// ID is the unique stage identifier.
	ID string
	// Kind is processing or critic.
	Kind Kind
	// Inputs are the state fields the stage reads.
	Inputs []string
	// Outputs are the state fields the stage writes. Critics declare none.
	Outputs []string
	// RetryTargets are the stage IDs a critic may request re-execution
	// of. Each must transitively produce a field the critic reads and
	// must not be downstream of the critic.
	RetryTargets []string
	// BestEffort marks a processing stage whose failure downgrades to a
	// warning instead of aborting the run.
	BestEffort bool
	// Blocking marks a critic whose failure verdict (after retry
	// exhaustion) aborts the run.
	Blocking bool
}

// Worker is the executable behind a processing stage. The view exposes
// only the stage's declared inputs. A returned error is fatal for the
// run unless the stage is best-effort.
type Worker interface {
	Run(ctx context.Context, view state.View) (state.Update, error)
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(ctx context.Context, view state.View) (state.Update, error)

// Run implements Worker.
func (f WorkerFunc) Run(ctx context.Context, view state.View) (state.Update, error) {
	return f(ctx, view)
}

// Critic is the executable behind a quality gate.
type Critic interface {
	Evaluate(ctx context.Context, view state.View) (Verdict, error)
}

// CriticFunc adapts a plain function to the Critic interface.
type CriticFunc func(ctx context.Context, view state.View) (Verdict, error)

// Evaluate implements Critic.
func (f CriticFunc) Evaluate(ctx context.Context, view state.View) (Verdict, error) {
	return f(ctx, view)
}
