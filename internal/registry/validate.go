package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/docgraphgo/internal/ctxlog"
	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
)

// Validate performs a strict consistency check between the registered
// stage definitions, their executables, and the seeded field set. All
// findings are collected and reported together. Structural checks that
// need the dependency graph (cycles, retry-target legality) live in
// graph.Build; everything local to the declarations is checked here.
func (r *Registry) Validate(ctx context.Context, seeded map[string]struct{}) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	producers := make(map[string]string)
	for _, id := range r.order {
		def := r.definitions[id]

		switch def.Kind {
		case stage.KindProcessing:
			if _, ok := r.workers[id]; !ok {
				errs = append(errs, fmt.Sprintf("processing stage '%s': no worker registered", id))
			}
			if len(def.Outputs) == 0 {
				logger.Warn("Processing stage declares no outputs; nothing downstream can depend on it.", "stage", id)
			}
			if def.Blocking {
				errs = append(errs, fmt.Sprintf("processing stage '%s': blocking flag is only meaningful on critics", id))
			}
		case stage.KindCritic:
			if _, ok := r.critics[id]; !ok {
				errs = append(errs, fmt.Sprintf("critic '%s': no critic registered", id))
			}
			if len(def.Outputs) > 0 {
				errs = append(errs, fmt.Sprintf("critic '%s': critics only read state, but outputs are declared: %s",
					id, strings.Join(def.Outputs, ", ")))
			}
			if len(def.Inputs) == 0 {
				errs = append(errs, fmt.Sprintf("critic '%s': declares no inputs, nothing to evaluate", id))
			}
			if def.BestEffort {
				errs = append(errs, fmt.Sprintf("critic '%s': best-effort flag is only meaningful on processing stages", id))
			}
		default:
			errs = append(errs, fmt.Sprintf("stage '%s': unknown kind '%s'", id, def.Kind))
		}

		if id == state.SeedWriter || id == state.WorkflowWriter {
			errs = append(errs, fmt.Sprintf("stage '%s': id collides with a reserved writer identity", id))
		}

		for _, out := range def.Outputs {
			if out == state.WarningsField {
				errs = append(errs, fmt.Sprintf("stage '%s': output field '%s' is reserved for the engine", id, out))
				continue
			}
			if prior, ok := producers[out]; ok {
				errs = append(errs, fmt.Sprintf("stage '%s': output field '%s' already produced by '%s'", id, out, prior))
				continue
			}
			if _, ok := seeded[out]; ok {
				errs = append(errs, fmt.Sprintf("stage '%s': output field '%s' is already a seed input", id, out))
				continue
			}
			producers[out] = id
		}
	}

	// Unsatisfied inputs are a configuration error here, not a run-time
	// MissingField surprise later.
	for _, id := range r.order {
		for _, in := range r.definitions[id].Inputs {
			if _, ok := producers[in]; ok {
				continue
			}
			if _, ok := seeded[in]; ok {
				continue
			}
			if in == state.WarningsField {
				continue
			}
			errs = append(errs, fmt.Sprintf("stage '%s': input field '%s' is neither seeded nor produced by any stage", id, in))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
