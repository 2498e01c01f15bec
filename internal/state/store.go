package state

import (
	"fmt"
	"sync"
)

// Reserved writer identities. Stage IDs and output fields are validated
// against these at graph-build time, so they can never collide with a
// real stage.
const (
	// SeedWriter owns all fields supplied as run inputs.
	SeedWriter = "seed"
	// WorkflowWriter owns engine-produced bookkeeping fields.
	WorkflowWriter = "workflow"
	// WarningsField accumulates engine warnings (denied retries,
	// best-effort failures, non-blocking gate failures).
	WarningsField = "workflow_warnings"
)

// Update is the partial state update produced by a processing stage:
// a mapping from output field name to its new value.
type Update map[string]any

// revision is one accepted value of a field, tagged with the store
// version at which it was written.
type revision struct {
	version uint64
	value   any
}

// field holds the single owner of a field and its revision history.
type field struct {
	owner     string
	revisions []revision
}

// Store is the shared, versioned workflow state. All access is
// concurrency-safe, though the engine serializes writes at group joins.
type Store struct {
	mu      sync.RWMutex
	version uint64
	fields  map[string]*field
	frozen  bool
}

// NewStore returns an empty store at version 0.
func NewStore() *Store {
	return &Store{fields: make(map[string]*field)}
}

// Seed applies the run's input fields under the reserved seed writer.
func (s *Store) Seed(u Update) (uint64, error) {
	return s.Apply(SeedWriter, u)
}

// Apply writes a partial update on behalf of the given writer. The whole
// update is validated before anything is written: if any field is owned
// by a different writer, nothing is applied and ErrWriteConflict is
// returned. An accepted non-empty update bumps the store version exactly
// once and appends one new revision per written field.
func (s *Store) Apply(writer string, u Update) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return s.version, fmt.Errorf("apply by %q: %w", writer, ErrFrozen)
	}
	if len(u) == 0 {
		return s.version, nil
	}

	for name := range u {
		if f, ok := s.fields[name]; ok && f.owner != writer {
			return s.version, fmt.Errorf("field %q owned by %q, written by %q: %w",
				name, f.owner, writer, ErrWriteConflict)
		}
	}

	s.version++
	for name, value := range u {
		f, ok := s.fields[name]
		if !ok {
			f = &field{owner: writer}
			s.fields[name] = f
		}
		f.revisions = append(f.revisions, revision{version: s.version, value: value})
	}
	return s.version, nil
}

// Get returns the latest value of every named field, failing with
// ErrMissingField if any of them was never produced.
func (s *Store) Get(names []string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(names))
	for _, name := range names {
		f, ok := s.fields[name]
		if !ok {
			return nil, fmt.Errorf("field %q: %w", name, ErrMissingField)
		}
		out[name] = f.revisions[len(f.revisions)-1].value
	}
	return out, nil
}

// Value returns the latest value of a single field.
func (s *Store) Value(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.fields[name]
	if !ok {
		return nil, false
	}
	return f.revisions[len(f.revisions)-1].value, true
}

// Owner reports which writer produced a field.
func (s *Store) Owner(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.fields[name]
	if !ok {
		return "", false
	}
	return f.owner, true
}

// Version returns the current store version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// AppendWarning appends a message to the reserved warnings field on
// behalf of the engine.
func (s *Store) AppendWarning(msg string) (uint64, error) {
	s.mu.RLock()
	var prior []string
	if f, ok := s.fields[WarningsField]; ok {
		if existing, ok := f.revisions[len(f.revisions)-1].value.([]string); ok {
			prior = existing
		}
	}
	s.mu.RUnlock()

	next := make([]string, 0, len(prior)+1)
	next = append(next, prior...)
	next = append(next, msg)
	return s.Apply(WorkflowWriter, Update{WarningsField: next})
}

// Latest returns a shallow copy of the newest value of every field,
// suitable for snapshotting. The snapshot package deep-copies values
// before anything retains them.
func (s *Store) Latest() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.fields))
	for name, f := range s.fields {
		out[name] = f.revisions[len(f.revisions)-1].value
	}
	return out
}

// RevisionCount returns how many revisions a field has accumulated.
func (s *Store) RevisionCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.fields[name]
	if !ok {
		return 0
	}
	return len(f.revisions)
}

// Freeze finalizes the store. Any later Apply fails with ErrFrozen.
func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
}
