// Package registry holds the stage definitions and executables an
// embedding application contributes to a pipeline, and validates their
// mutual consistency before any graph is built.
package registry

import (
	"github.com/vk/docgraphgo/internal/stage"
)

// Module is the interface all built-in stage modules implement to be
// registered with an application instance.
type Module interface {
	Register(r *Registry)
}

// Registry collects stage definitions with their workers and critics for
// a single application instance.
type Registry struct {
	order       []string
	definitions map[string]stage.Definition
	workers     map[string]stage.Worker
	critics     map[string]stage.Critic
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		definitions: make(map[string]stage.Definition),
		workers:     make(map[string]stage.Worker),
		critics:     make(map[string]stage.Critic),
	}
}

// RegisterProcessing adds a processing stage. Consistency is checked
// later by Validate so registration order never matters.
func (r *Registry) RegisterProcessing(def stage.Definition, worker stage.Worker) {
	def.Kind = stage.KindProcessing
	r.add(def)
	r.workers[def.ID] = worker
}

// RegisterCritic adds a critic stage.
func (r *Registry) RegisterCritic(def stage.Definition, critic stage.Critic) {
	def.Kind = stage.KindCritic
	r.add(def)
	r.critics[def.ID] = critic
}

func (r *Registry) add(def stage.Definition) {
	if _, ok := r.definitions[def.ID]; !ok {
		r.order = append(r.order, def.ID)
	}
	r.definitions[def.ID] = def
}

// Definitions returns all stage definitions in registration order.
func (r *Registry) Definitions() []stage.Definition {
	out := make([]stage.Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.definitions[id])
	}
	return out
}

// Definition returns one stage definition.
func (r *Registry) Definition(id string) (stage.Definition, bool) {
	def, ok := r.definitions[id]
	return def, ok
}

// Worker returns the executable behind a processing stage.
func (r *Registry) Worker(id string) (stage.Worker, bool) {
	w, ok := r.workers[id]
	return w, ok
}

// Critic returns the executable behind a critic stage.
func (r *Registry) Critic(id string) (stage.Critic, bool) {
	c, ok := r.critics[id]
	return c, ok
}

// SetCriticBlocking overrides a critic's blocking flag from
// configuration. Returns false if the id is not a registered critic.
func (r *Registry) SetCriticBlocking(id string, blocking bool) bool {
	def, ok := r.definitions[id]
	if !ok || def.Kind != stage.KindCritic {
		return false
	}
	def.Blocking = blocking
	r.definitions[id] = def
	return true
}
