package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vk/docgraphgo/internal/budget"
	"github.com/vk/docgraphgo/internal/ctxlog"
	"github.com/vk/docgraphgo/internal/graph"
	"github.com/vk/docgraphgo/internal/registry"
	"github.com/vk/docgraphgo/internal/snapshot"
	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
)

// Options tunes a single run.
type Options struct {
	// Workers caps concurrent stage executions within a group.
	// 0 means no cap beyond group size.
	Workers int
	// DisabledCritics are recorded as skipped instead of evaluated.
	DisabledCritics map[string]bool
}

// Engine executes one pipeline run. It is single-use: New seeds the
// state, Run drives it to a terminal status.
type Engine struct {
	graph    *graph.Graph
	registry *registry.Registry
	store    *state.Store
	snaps    *snapshot.Logger
	governor *budget.Governor
	opts     Options

	seq     uint64
	records []snapshot.ExecutionRecord
	ran     bool
}

// New validates the registered stages against the seed fields, builds
// the static graph, and prepares the shared state. All configuration
// errors surface here; Run never sees them.
func New(ctx context.Context, reg *registry.Registry, seed state.Update, snaps *snapshot.Logger, governor *budget.Governor, opts Options) (*Engine, error) {
	seeded := make(map[string]struct{}, len(seed)+1)
	for name := range seed {
		seeded[name] = struct{}{}
	}
	// The engine owns the warnings field; stages may read it.
	seeded[state.WarningsField] = struct{}{}

	if err := reg.Validate(ctx, seeded); err != nil {
		return nil, err
	}
	g, err := graph.Build(reg.Definitions(), seeded)
	if err != nil {
		return nil, fmt.Errorf("building stage graph: %w", err)
	}

	store := state.NewStore()
	if _, err := store.Seed(seed); err != nil {
		return nil, fmt.Errorf("seeding state: %w", err)
	}
	if _, err := store.Apply(state.WorkflowWriter, state.Update{state.WarningsField: []string{}}); err != nil {
		return nil, fmt.Errorf("initializing warnings field: %w", err)
	}

	return &Engine{
		graph:    g,
		registry: reg,
		store:    store,
		snaps:    snaps,
		governor: governor,
		opts:     opts,
	}, nil
}

// Store exposes the run's state, primarily for inspection after Run.
func (e *Engine) Store() *state.Store { return e.store }

// Graph exposes the built stage graph.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// outcome carries one stage's execution result from its goroutine to the
// group join.
type outcome struct {
	update     state.Update
	verdict    stage.Verdict
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// Run walks the graph to a terminal status. The returned error is nil
// for completed and degraded runs; aborted runs return the fatal cause
// wrapped in ErrStageExecution or ErrQualityGate alongside the result.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.ran {
		return nil, errors.New("engine is single-use; construct a new run instead")
	}
	e.ran = true

	logger := ctxlog.FromContext(ctx)
	result := &Result{RunID: uuid.NewString(), Status: StatusCompleted}
	logger = logger.With("runID", result.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)

	executed := make(map[string]bool, e.graph.Len())
	degraded := false
	groups := e.graph.Groups()

	logger.Info("▶️ Starting run", "stages", e.graph.Len(), "groups", len(groups))

	gi := 0
	for gi < len(groups) {
		var pending []string
		for _, id := range groups[gi] {
			if !executed[id] {
				pending = append(pending, id)
			}
		}
		if len(pending) == 0 {
			gi++
			continue
		}

		logger.Debug("Executing parallel group.", "group", gi, "stages", pending)
		outcomes := e.runGroup(ctx, pending)

		// A failed non-best-effort stage aborts the whole run; handle
		// that join separately so sibling bookkeeping stays readable.
		if fatal := e.findFatal(pending, outcomes); fatal != "" {
			return e.abortGroup(ctx, result, pending, outcomes, fatal)
		}

		jumpGroup := -1
		invalidated := make(map[string]struct{})

		for _, id := range pending {
			out := outcomes[id]
			def, _ := e.graph.Definition(id)

			switch def.Kind {
			case stage.KindProcessing:
				if out.err != nil {
					// Best-effort: the stage contributes nothing and
					// the run moves on with a warning.
					e.warn(ctx, result, id, WarnBestEffortFailure,
						fmt.Sprintf("best-effort stage failed: %v", out.err))
					e.record(ctx, result, id, snapshot.StatusFailed, out, nil, out.err.Error())
					executed[id] = true
					continue
				}
				if _, err := e.store.Apply(id, out.update); err != nil {
					// Ownership was validated at build time, so this is
					// an engine defect, not a configuration problem.
					e.record(ctx, result, id, snapshot.StatusFailed, out, nil, err.Error())
					e.finalize(ctx, result, StatusAborted)
					return result, fmt.Errorf("stage %q: %w: %v", id, ErrStageExecution, err)
				}
				e.record(ctx, result, id, snapshot.StatusCompleted, out, nil, "")
				executed[id] = true

			case stage.KindCritic:
				if e.opts.DisabledCritics[id] {
					e.record(ctx, result, id, snapshot.StatusSkipped, out, nil, "critic disabled by configuration")
					executed[id] = true
					continue
				}

				verdict := out.verdict
				switch {
				case out.err != nil:
					// An erroring gate cannot vouch for quality; treat
					// it as a failing verdict.
					verdict = stage.Fail(fmt.Sprintf("critic evaluation error: %v", out.err))
				case verdict.Kind != stage.VerdictPass && verdict.Kind != stage.VerdictRetry && verdict.Kind != stage.VerdictFail:
					// Same for a critic that returned no usable verdict;
					// the audit trail stays gapless either way.
					verdict = stage.Fail(fmt.Sprintf("critic returned unknown verdict kind %q", verdict.Kind))
				}

				switch verdict.Kind {
				case stage.VerdictPass:
					e.record(ctx, result, id, snapshot.StatusCompleted, out, &snapshot.VerdictPayload{Kind: string(verdict.Kind)}, "")
					executed[id] = true

				case stage.VerdictFail:
					payload := &snapshot.VerdictPayload{Kind: string(verdict.Kind), Reason: verdict.Reason}
					if def.Blocking {
						e.record(ctx, result, id, snapshot.StatusFailed, out, payload, verdict.Reason)
						e.finalize(ctx, result, StatusAbortedQualityGate)
						return result, fmt.Errorf("critic %q: %w: %s", id, ErrQualityGate, verdict.Reason)
					}
					e.warn(ctx, result, id, WarnGateFailure, verdict.Reason)
					e.record(ctx, result, id, snapshot.StatusCompleted, out, payload, "")
					executed[id] = true

				case stage.VerdictRetry:
					decision := e.governor.RequestRetry(id, verdict.Target)
					payload := &snapshot.VerdictPayload{
						Kind:     string(verdict.Kind),
						Target:   verdict.Target,
						Reason:   verdict.Reason,
						Decision: decision.String(),
					}
					logger.Info("Critic requested retry.",
						"critic", id, "target", verdict.Target, "decision", decision.String())

					switch decision {
					case budget.Allow:
						e.record(ctx, result, id, snapshot.StatusCompleted, out, payload, "")
						executed[id] = true
						invalidated[verdict.Target] = struct{}{}
						for _, downstream := range e.graph.Downstream(verdict.Target) {
							invalidated[downstream] = struct{}{}
						}
						if tg := e.graph.GroupIndex(verdict.Target); jumpGroup == -1 || tg < jumpGroup {
							jumpGroup = tg
						}

					case budget.DenyBudget, budget.DenyGlobalBudget:
						if decision == budget.DenyGlobalBudget {
							degraded = true
						}
						reason := fmt.Sprintf("retry of %q denied (%s): %s", verdict.Target, decision, verdict.Reason)
						if def.Blocking {
							e.record(ctx, result, id, snapshot.StatusFailed, out, payload, reason)
							e.finalize(ctx, result, StatusAbortedQualityGate)
							return result, fmt.Errorf("critic %q: %w: %s", id, ErrQualityGate, reason)
						}
						e.warn(ctx, result, id, WarnRetryDenied, reason)
						e.record(ctx, result, id, snapshot.StatusCompleted, out, payload, "")
						executed[id] = true
					}
				}
			}
		}

		if jumpGroup >= 0 {
			for id := range invalidated {
				if executed[id] {
					logger.Debug("Invalidating stage for re-execution.", "stage", id)
					executed[id] = false
				}
			}
			gi = jumpGroup
			continue
		}
		gi++
	}

	status := StatusCompleted
	if degraded {
		status = StatusDegraded
	}
	e.finalize(ctx, result, status)
	return result, nil
}

// runGroup executes the pending members of one parallel group
// concurrently. The first fatal error cancels the sibling context;
// best-effort failures and critic errors are carried in outcomes
// instead of canceling anyone.
func (e *Engine) runGroup(ctx context.Context, pending []string) map[string]*outcome {
	outcomes := make(map[string]*outcome, len(pending))
	eg, gctx := errgroup.WithContext(ctx)
	if e.opts.Workers > 0 {
		eg.SetLimit(e.opts.Workers)
	}

	for _, id := range pending {
		out := &outcome{}
		outcomes[id] = out
		def, _ := e.graph.Definition(id)

		if def.Kind == stage.KindCritic && e.opts.DisabledCritics[id] {
			now := time.Now()
			out.startedAt, out.finishedAt = now, now
			continue
		}

		eg.Go(func() error {
			out.startedAt = time.Now()
			defer func() { out.finishedAt = time.Now() }()

			view := state.NewView(e.store, def.Inputs)
			switch def.Kind {
			case stage.KindProcessing:
				worker, _ := e.registry.Worker(id)
				update, err := worker.Run(gctx, view)
				if err != nil {
					out.err = err
					if !def.BestEffort {
						return err
					}
					return nil
				}
				out.update = update
			case stage.KindCritic:
				critic, _ := e.registry.Critic(id)
				verdict, err := critic.Evaluate(gctx, view)
				if err != nil {
					out.err = err
					return nil
				}
				out.verdict = verdict
			}
			return nil
		})
	}

	// The root cause travels in outcomes; Wait's error is redundant here.
	_ = eg.Wait()
	return outcomes
}

// findFatal returns the non-best-effort processing stage whose failure
// aborted the group, or "". Siblings that returned the group
// cancellation error are casualties of the abort, not its cause, so
// they are only reported when every failure in the group is a
// cancellation (the caller's own context died).
func (e *Engine) findFatal(pending []string, outcomes map[string]*outcome) string {
	firstCanceled := ""
	for _, id := range pending {
		def, _ := e.graph.Definition(id)
		if def.Kind != stage.KindProcessing || def.BestEffort || outcomes[id].err == nil {
			continue
		}
		if !errors.Is(outcomes[id].err, context.Canceled) {
			return id
		}
		if firstCanceled == "" {
			firstCanceled = id
		}
	}
	return firstCanceled
}

// abortGroup writes the final records for a group containing a fatal
// failure: committed siblings keep their updates, canceled or failed
// siblings are recorded skipped, and the run aborts with the last
// snapshot preserved.
func (e *Engine) abortGroup(ctx context.Context, result *Result, pending []string, outcomes map[string]*outcome, fatal string) (*Result, error) {
	var fatalErr error
	for _, id := range pending {
		out := outcomes[id]
		def, _ := e.graph.Definition(id)

		switch {
		case id == fatal:
			fatalErr = out.err
			e.record(ctx, result, id, snapshot.StatusFailed, out, nil, out.err.Error())
		case out.err != nil:
			e.record(ctx, result, id, snapshot.StatusSkipped, out, nil,
				fmt.Sprintf("canceled by failure of %q: %v", fatal, out.err))
		case def.Kind == stage.KindProcessing:
			// Committed work survives the abort.
			if _, err := e.store.Apply(id, out.update); err != nil {
				e.record(ctx, result, id, snapshot.StatusFailed, out, nil, err.Error())
				continue
			}
			e.record(ctx, result, id, snapshot.StatusCompleted, out, nil, "")
		default:
			// A critic verdict alongside a fatal failure is recorded but
			// not acted on; the run is over either way.
			e.record(ctx, result, id, snapshot.StatusCompleted, out,
				&snapshot.VerdictPayload{Kind: string(out.verdict.Kind), Target: out.verdict.Target, Reason: out.verdict.Reason}, "")
		}
	}
	e.finalize(ctx, result, StatusAborted)
	return result, fmt.Errorf("stage %q: %w: %v", fatal, ErrStageExecution, fatalErr)
}

// record assigns the next sequence number, writes the execution record,
// and snapshots the state it left behind.
func (e *Engine) record(ctx context.Context, result *Result, id string, status snapshot.RecordStatus, out *outcome, payload *snapshot.VerdictPayload, errMsg string) {
	e.seq++
	rec := snapshot.ExecutionRecord{
		Sequence:   e.seq,
		StageID:    id,
		Status:     status,
		StartedAt:  out.startedAt,
		FinishedAt: out.finishedAt,
		Verdict:    payload,
		Error:      errMsg,
	}
	e.records = append(e.records, rec)
	result.Records = append(result.Records, rec)
	e.snaps.Record(ctx, rec, snapshot.Capture(rec, e.store.Version(), e.store.Latest()))
}

// warn accumulates a warning on the result and mirrors it into the
// reserved state field so the next snapshot carries it.
func (e *Engine) warn(ctx context.Context, result *Result, id string, kind WarningKind, msg string) {
	result.Warnings = append(result.Warnings, Warning{StageID: id, Kind: kind, Message: msg})
	if _, err := e.store.AppendWarning(fmt.Sprintf("%s: %s", id, msg)); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to append warning to state.", "stage", id, "error", err)
	}
}

// finalize freezes the state and stamps the terminal status.
func (e *Engine) finalize(ctx context.Context, result *Result, status Status) {
	e.store.Freeze()
	result.Status = status
	result.StateVersion = e.store.Version()
	result.GlobalRetries = e.governor.GlobalCount()
	ctxlog.FromContext(ctx).Info("🏁 Run finished.",
		"status", status,
		"records", len(result.Records),
		"warnings", len(result.Warnings),
		"stateVersion", result.StateVersion,
		"globalRetries", result.GlobalRetries)
}
