package graph

import (
	"fmt"
	"sort"

	"github.com/vk/docgraphgo/internal/stage"
)

// Graph is the immutable static dependency graph of a pipeline. Stage
// order within levels follows registration order, which keeps walks
// deterministic run over run.
type Graph struct {
	stages     map[string]stage.Definition
	order      []string
	producers  map[string]string
	deps       map[string]map[string]struct{}
	dependents map[string]map[string]struct{}
	groups     [][]string
	groupIndex map[string]int
}

// Build constructs and validates the graph from stage definitions and
// the set of seeded field names. All configuration-class errors
// (write conflicts, unsatisfied inputs, illegal retry targets, cycles)
// surface here and never at run time.
func Build(defs []stage.Definition, seeded map[string]struct{}) (*Graph, error) {
	g := &Graph{
		stages:     make(map[string]stage.Definition, len(defs)),
		producers:  make(map[string]string),
		deps:       make(map[string]map[string]struct{}, len(defs)),
		dependents: make(map[string]map[string]struct{}, len(defs)),
		groupIndex: make(map[string]int, len(defs)),
	}

	for _, def := range defs {
		if _, ok := g.stages[def.ID]; ok {
			return nil, fmt.Errorf("duplicate stage id %q", def.ID)
		}
		g.stages[def.ID] = def
		g.order = append(g.order, def.ID)
		g.deps[def.ID] = make(map[string]struct{})
		g.dependents[def.ID] = make(map[string]struct{})
	}

	// Single-writer invariant: at most one producer per field.
	for _, id := range g.order {
		for _, out := range g.stages[id].Outputs {
			if prior, ok := g.producers[out]; ok {
				return nil, fmt.Errorf("field %q produced by both %q and %q", out, prior, id)
			}
			if _, ok := seeded[out]; ok {
				return nil, fmt.Errorf("field %q produced by %q is already seeded", out, id)
			}
			g.producers[out] = id
		}
	}

	// Infer edges: producer -> consumer for every declared input that
	// some stage produces. Inputs covered by neither a producer nor the
	// seed set are a configuration error.
	for _, id := range g.order {
		for _, in := range g.stages[id].Inputs {
			producer, ok := g.producers[in]
			if !ok {
				if _, isSeed := seeded[in]; isSeed {
					continue
				}
				return nil, fmt.Errorf("stage %q reads field %q which is neither seeded nor produced by any stage", id, in)
			}
			if producer == id {
				return nil, fmt.Errorf("stage %q reads its own output field %q", id, in)
			}
			g.deps[id][producer] = struct{}{}
			g.dependents[producer][id] = struct{}{}
		}
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	g.buildGroups()

	if err := g.validateRetryTargets(); err != nil {
		return nil, err
	}
	return g, nil
}

// detectCycles runs a classic depth-first search with permanent and
// temporary marks over the dependent edges.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("dependency cycle detected involving stage %q", id)
		}
		temporary[id] = true
		for dependent := range g.dependents[id] {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildGroups computes the topological level grouping: level 0 holds
// stages with no dependencies, level n+1 holds stages whose deepest
// dependency sits at level n. Stages sharing a level have no dependency
// among themselves and may execute concurrently.
func (g *Graph) buildGroups() {
	level := make(map[string]int, len(g.order))

	var depth func(id string) int
	depth = func(id string) int {
		if d, ok := level[id]; ok {
			return d
		}
		d := 0
		for dep := range g.deps[id] {
			if dd := depth(dep) + 1; dd > d {
				d = dd
			}
		}
		level[id] = d
		return d
	}

	maxLevel := 0
	for _, id := range g.order {
		if d := depth(id); d > maxLevel {
			maxLevel = d
		}
	}

	g.groups = make([][]string, maxLevel+1)
	for _, id := range g.order {
		g.groups[level[id]] = append(g.groups[level[id]], id)
		g.groupIndex[id] = level[id]
	}
}

// validateRetryTargets enforces the two legality rules on critic retry
// targets: the target must (transitively) produce a field the critic
// reads, and must not be downstream of the critic (no forward retries).
func (g *Graph) validateRetryTargets() error {
	for _, id := range g.order {
		def := g.stages[id]
		if def.Kind != stage.KindCritic {
			if len(def.RetryTargets) > 0 {
				return fmt.Errorf("processing stage %q declares retry targets", id)
			}
			continue
		}
		criticDownstream := g.downstreamSet(id)
		for _, target := range def.RetryTargets {
			targetDef, ok := g.stages[target]
			if !ok {
				return fmt.Errorf("critic %q names unknown retry target %q", id, target)
			}
			if targetDef.Kind != stage.KindProcessing {
				return fmt.Errorf("critic %q retry target %q is not a processing stage", id, target)
			}
			if _, ok := criticDownstream[target]; ok {
				return fmt.Errorf("critic %q retry target %q is downstream of the critic", id, target)
			}
			if _, feeds := g.downstreamSet(target)[id]; !feeds {
				return fmt.Errorf("critic %q retry target %q does not feed any field the critic reads", id, target)
			}
		}
	}
	return nil
}

// downstreamSet returns the transitive dependent closure of a stage,
// excluding the stage itself.
func (g *Graph) downstreamSet(id string) map[string]struct{} {
	out := make(map[string]struct{})
	var walk func(string)
	walk = func(cur string) {
		for dependent := range g.dependents[cur] {
			if _, seen := out[dependent]; seen {
				continue
			}
			out[dependent] = struct{}{}
			walk(dependent)
		}
	}
	walk(id)
	return out
}

// Downstream returns the transitive dependent closure of a stage in
// topological order.
func (g *Graph) Downstream(id string) []string {
	set := g.downstreamSet(id)
	out := make([]string, 0, len(set))
	for dependent := range set {
		out = append(out, dependent)
	}
	sort.Slice(out, func(i, j int) bool {
		gi, gj := g.groupIndex[out[i]], g.groupIndex[out[j]]
		if gi != gj {
			return gi < gj
		}
		return out[i] < out[j]
	})
	return out
}

// Groups returns the parallel execution groups in topological order.
func (g *Graph) Groups() [][]string {
	return g.groups
}

// GroupIndex returns the group a stage belongs to.
func (g *Graph) GroupIndex(id string) int {
	return g.groupIndex[id]
}

// Definition returns a stage's definition.
func (g *Graph) Definition(id string) (stage.Definition, bool) {
	def, ok := g.stages[id]
	return def, ok
}

// Len returns the number of stages.
func (g *Graph) Len() int {
	return len(g.order)
}

// Producer reports which stage produces a field, if any.
func (g *Graph) Producer(fieldName string) (string, bool) {
	producer, ok := g.producers[fieldName]
	return producer, ok
}
