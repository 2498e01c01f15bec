// Package state implements the versioned workflow state shared by all
// stages of a pipeline run.
//
// The store is an append-only container of named fields. Every accepted
// update bumps a monotonically increasing version and appends a new
// revision per written field; prior revisions are never mutated. Each
// field is owned by the stage that first produced it, and only that
// stage may write it again (a re-run after an allowed retry). Stages
// never touch the store directly: the engine hands each stage a View
// restricted to its declared input fields.
package state
