package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPipeline = `
workflow "contract_analysis" {
  workers             = 8
  global_retry_budget = 5

  snapshots {
    sink = "jsonl"
    path = "/tmp/audit.jsonl"
  }

  seed {
    target_document_path = "./contract.txt"
    terminology_path     = "./terms.yaml"
    min_coverage         = 0.3
    strict               = true
    reviewers            = ["alice", "bob"]
    limits = {
      pages = 100
    }
  }

  critic "classification_critic" {
    retry_budget = 3
    blocking     = true
  }

  critic "questionnaire_critic" {
    enabled = false
  }
}
`

func TestLoadBytesFull(t *testing.T) {
	model, err := LoadBytes([]byte(fullPipeline), "pipeline.hcl")
	require.NoError(t, err)

	assert.Equal(t, "contract_analysis", model.Name)
	assert.Equal(t, 8, model.Workers)
	assert.Equal(t, 5, model.GlobalRetryBudget)
	assert.Equal(t, SnapshotConfig{Sink: SinkJSONL, Path: "/tmp/audit.jsonl"}, model.Snapshots)

	t.Run("seed values decode to plain Go", func(t *testing.T) {
		assert.Equal(t, "./contract.txt", model.Seed["target_document_path"])
		assert.Equal(t, 0.3, model.Seed["min_coverage"])
		assert.Equal(t, true, model.Seed["strict"])
		assert.Equal(t, []any{"alice", "bob"}, model.Seed["reviewers"])
		assert.Equal(t, map[string]any{"pages": float64(100)}, model.Seed["limits"])
	})

	t.Run("critic blocks", func(t *testing.T) {
		require.Len(t, model.Critics, 2)
		assert.Equal(t, CriticConfig{RetryBudget: 3, Blocking: true, Enabled: true},
			model.Critics["classification_critic"])
		assert.Equal(t, CriticConfig{RetryBudget: 2, Blocking: false, Enabled: false},
			model.Critics["questionnaire_critic"])
	})
}

func TestLoadBytesDefaults(t *testing.T) {
	model, err := LoadBytes([]byte(`workflow "minimal" {}`), "pipeline.hcl")
	require.NoError(t, err)

	assert.Equal(t, "minimal", model.Name)
	assert.Equal(t, 4, model.Workers)
	assert.Equal(t, 10, model.GlobalRetryBudget)
	assert.Equal(t, SinkMemory, model.Snapshots.Sink)
	assert.Empty(t, model.Seed)
	assert.Empty(t, model.Critics)
}

func TestLoadBytesErrors(t *testing.T) {
	cases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "syntax error",
			src:     `workflow "x" {`,
			wantErr: "parsing",
		},
		{
			name:    "missing label",
			src:     `workflow {}`,
			wantErr: "decoding workflow block",
		},
		{
			name:    "zero workers",
			src:     `workflow "x" { workers = 0 }`,
			wantErr: "workers must be positive",
		},
		{
			name:    "negative global budget",
			src:     `workflow "x" { global_retry_budget = -1 }`,
			wantErr: "global_retry_budget must be >= 0",
		},
		{
			name: "unknown sink",
			src: `workflow "x" {
				snapshots {
					sink = "s3"
				}
			}`,
			wantErr: `unknown snapshot sink "s3"`,
		},
		{
			name: "file sink without path",
			src: `workflow "x" {
				snapshots {
					sink = "badger"
				}
			}`,
			wantErr: "requires a path",
		},
		{
			name: "duplicate critic",
			src: `workflow "x" {
				critic "gate" {}
				critic "gate" {}
			}`,
			wantErr: `duplicate critic block "gate"`,
		},
		{
			name: "negative critic budget",
			src: `workflow "x" {
				critic "gate" {
					retry_budget = -2
				}
			}`,
			wantErr: "retry_budget must be >= 0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tc.src), "pipeline.hcl")
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(fullPipeline), 0o644))

	model, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "contract_analysis", model.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestCriticBudgets(t *testing.T) {
	model, err := LoadBytes([]byte(`
workflow "x" {
  critic "a" { retry_budget = 1 }
  critic "b" {}
}`), "pipeline.hcl")
	require.NoError(t, err)

	budgets := model.CriticBudgets()
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, budgets)
}
