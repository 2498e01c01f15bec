// Package snapshot persists the audit trail of a run: one execution
// record plus one deep state snapshot per stage transition. The ordered
// snapshot log is the durable artifact an operator inspects after a run;
// sink failures degrade observability, never correctness.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vk/docgraphgo/internal/state"
)

// RecordStatus is the terminal status of one stage execution.
type RecordStatus string

const (
	StatusCompleted RecordStatus = "completed"
	StatusFailed    RecordStatus = "failed"
	StatusSkipped   RecordStatus = "skipped"
)

// VerdictPayload is the critic outcome attached to a record, including
// the governor's answer when the verdict requested a retry.
type VerdictPayload struct {
	Kind     string `json:"kind"`
	Target   string `json:"target,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Decision string `json:"decision,omitempty"`
}

// ExecutionRecord is one entry of the audit trail. Records are immutable
// once written and totally ordered by Sequence, which the engine assigns
// at group-join time.
type ExecutionRecord struct {
	Sequence   uint64          `json:"sequence"`
	StageID    string          `json:"stageId"`
	Status     RecordStatus    `json:"status"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Verdict    *VerdictPayload `json:"verdict,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Snapshot is a deep, read-only copy of workflow state taken immediately
// after a stage transition. Field values are held as encoded JSON so no
// live state is aliased by the audit trail.
type Snapshot struct {
	Sequence     uint64                     `json:"sequence"`
	StageID      string                     `json:"stageId"`
	Status       RecordStatus               `json:"status"`
	StateVersion uint64                     `json:"stateVersion"`
	FieldValues  map[string]json.RawMessage `json:"fieldValues"`
}

// Capture deep-copies the given field values into a snapshot tagged with
// the triggering record. Values that cannot be marshaled are stored as
// their string rendering rather than dropping the field.
func Capture(rec ExecutionRecord, stateVersion uint64, values map[string]any) Snapshot {
	fields := make(map[string]json.RawMessage, len(values))
	for name, value := range values {
		encoded, err := json.Marshal(value)
		if err != nil {
			encoded, _ = json.Marshal(fmt.Sprintf("%v", value))
		}
		fields[name] = encoded
	}
	return Snapshot{
		Sequence:     rec.Sequence,
		StageID:      rec.StageID,
		Status:       rec.Status,
		StateVersion: stateVersion,
		FieldValues:  fields,
	}
}

// Seed decodes a snapshot's field values into a state update, the input
// for constructing a fresh run from a historical snapshot. Reseeding is
// a capability the caller invokes explicitly; it is never automatic.
func (s Snapshot) Seed() (state.Update, error) {
	update := make(state.Update, len(s.FieldValues))
	for name, raw := range s.FieldValues {
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decoding field %q from snapshot %d: %w", name, s.Sequence, err)
		}
		update[name] = value
	}
	return update, nil
}
