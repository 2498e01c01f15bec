package state

import "errors"

var (
	// ErrMissingField is returned when a read names a field that was
	// never produced during the run.
	ErrMissingField = errors.New("missing field")

	// ErrWriteConflict is returned when an update attempts to write a
	// field already owned by a different writer in this run.
	ErrWriteConflict = errors.New("write conflict")

	// ErrFrozen is returned when an update arrives after the run has
	// been finalized.
	ErrFrozen = errors.New("state is frozen")

	// ErrFieldNotDeclared is returned when a stage reads a field outside
	// its declared input set.
	ErrFieldNotDeclared = errors.New("field not declared as input")
)
