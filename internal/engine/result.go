package engine

import (
	"errors"

	"github.com/vk/docgraphgo/internal/snapshot"
)

// Status is the terminal state of a run. Running is implicit: Run only
// returns once a terminal transition happened. There is no resume; the
// only way forward from a terminal state is a fresh run, optionally
// seeded from a historical snapshot.
type Status string

const (
	// StatusCompleted means all groups walked with no pending retry.
	StatusCompleted Status = "completed"
	// StatusDegraded means the run finished but the global retry budget
	// was exhausted along the way; the final state exists but at least
	// one quality gate never got the re-execution it asked for.
	StatusDegraded Status = "degraded"
	// StatusAborted means a non-best-effort processing stage failed.
	StatusAborted Status = "aborted"
	// StatusAbortedQualityGate means a blocking critic failed (directly
	// or through a denied retry).
	StatusAbortedQualityGate Status = "aborted-quality-gate"
)

// Error classes for terminal aborts, matchable with errors.Is.
var (
	// ErrStageExecution wraps the failure of a non-best-effort
	// processing stage.
	ErrStageExecution = errors.New("stage execution failed")
	// ErrQualityGate marks an abort caused by a blocking critic.
	ErrQualityGate = errors.New("quality gate failed")
)

// WarningKind classifies an accumulated run warning.
type WarningKind string

const (
	// WarnBestEffortFailure: a best-effort stage failed and produced no fields.
	WarnBestEffortFailure WarningKind = "best_effort_failure"
	// WarnGateFailure: a non-blocking critic returned a failing verdict.
	WarnGateFailure WarningKind = "quality_gate_failure"
	// WarnRetryDenied: the governor denied a requested retry.
	WarnRetryDenied WarningKind = "retry_denied"
)

// Warning is one entry of the manual-review list a finished run reports.
// A completed run with warnings succeeded mechanically but deserves a
// human look.
type Warning struct {
	StageID string      `json:"stageId"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Result is the outcome of a run: terminal status, the audit trail, and
// every warning accumulated on the way.
type Result struct {
	RunID         string
	Status        Status
	StateVersion  uint64
	GlobalRetries int
	Warnings      []Warning
	Records       []snapshot.ExecutionRecord
}
