package config

import (
	"fmt"

	"github.com/vk/docgraphgo/internal/budget"
)

// Snapshot sink names recognized by the engine.
const (
	SinkMemory = "memory"
	SinkJSONL  = "jsonl"
	SinkBadger = "badger"
)

// CriticConfig is the per-critic configuration surface.
type CriticConfig struct {
	// RetryBudget is the maximum retries this critic may be granted.
	RetryBudget int
	// Blocking makes the critic's failure verdict abort the run.
	Blocking bool
	// Enabled gates the critic entirely; a disabled critic is recorded
	// as skipped.
	Enabled bool
}

// SnapshotConfig selects where the audit trail is persisted.
type SnapshotConfig struct {
	Sink string
	Path string
}

// Model is the decoded, format-agnostic pipeline configuration.
type Model struct {
	Name              string
	Workers           int
	GlobalRetryBudget int
	Snapshots         SnapshotConfig
	Seed              map[string]any
	Critics           map[string]CriticConfig
}

// Default returns a model with the usual deployment values.
func Default() *Model {
	return &Model{
		Workers:           4,
		GlobalRetryBudget: budget.DefaultGlobalBudget,
		Snapshots:         SnapshotConfig{Sink: SinkMemory},
		Seed:              make(map[string]any),
		Critics:           make(map[string]CriticConfig),
	}
}

// Validate checks field-level constraints that do not need the registry.
func (m *Model) Validate() error {
	if m.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", m.Workers)
	}
	if m.GlobalRetryBudget < 0 {
		return fmt.Errorf("global_retry_budget must be >= 0, got %d", m.GlobalRetryBudget)
	}
	switch m.Snapshots.Sink {
	case SinkMemory:
	case SinkJSONL, SinkBadger:
		if m.Snapshots.Path == "" {
			return fmt.Errorf("snapshot sink %q requires a path", m.Snapshots.Sink)
		}
	default:
		return fmt.Errorf("unknown snapshot sink %q", m.Snapshots.Sink)
	}
	for id, critic := range m.Critics {
		if critic.RetryBudget < 0 {
			return fmt.Errorf("critic %q: retry_budget must be >= 0, got %d", id, critic.RetryBudget)
		}
	}
	return nil
}

// CriticBudgets extracts the per-critic budget overrides for the
// governor.
func (m *Model) CriticBudgets() map[string]int {
	out := make(map[string]int, len(m.Critics))
	for id, critic := range m.Critics {
		out[id] = critic.RetryBudget
	}
	return out
}
