package config

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/docgraphgo/internal/budget"
)

// fileHCL is the top-level schema of a pipeline file.
type fileHCL struct {
	Workflow workflowHCL `hcl:"workflow,block"`
}

type workflowHCL struct {
	Name              string        `hcl:"name,label"`
	Workers           *int          `hcl:"workers,optional"`
	GlobalRetryBudget *int          `hcl:"global_retry_budget,optional"`
	Snapshots         *snapshotsHCL `hcl:"snapshots,block"`
	Seed              *seedHCL      `hcl:"seed,block"`
	Critics           []criticHCL   `hcl:"critic,block"`
}

type snapshotsHCL struct {
	Sink string `hcl:"sink"`
	Path string `hcl:"path,optional"`
}

// seedHCL captures arbitrary attributes; seed field names are the
// embedding pipeline's business, not part of the engine schema.
type seedHCL struct {
	Remain hcl.Body `hcl:",remain"`
}

type criticHCL struct {
	Name        string `hcl:"name,label"`
	RetryBudget *int   `hcl:"retry_budget,optional"`
	Blocking    *bool  `hcl:"blocking,optional"`
	Enabled     *bool  `hcl:"enabled,optional"`
}

// Load parses and decodes a pipeline file into a validated Model.
func Load(path string) (*Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}
	return decode(file.Body)
}

// LoadBytes decodes an in-memory pipeline definition; filename is only
// used in diagnostics.
func LoadBytes(src []byte, filename string) (*Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (*Model, error) {
	var root fileHCL
	// Seed values are literals; no variables or functions are in scope.
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("decoding workflow block: %w", diags)
	}

	model := Default()
	model.Name = root.Workflow.Name
	if root.Workflow.Workers != nil {
		model.Workers = *root.Workflow.Workers
	}
	if root.Workflow.GlobalRetryBudget != nil {
		model.GlobalRetryBudget = *root.Workflow.GlobalRetryBudget
	}
	if root.Workflow.Snapshots != nil {
		model.Snapshots = SnapshotConfig{
			Sink: root.Workflow.Snapshots.Sink,
			Path: root.Workflow.Snapshots.Path,
		}
	}

	if root.Workflow.Seed != nil {
		attrs, diags := root.Workflow.Seed.Remain.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("decoding seed block: %w", diags)
		}
		// Deterministic decode order so diagnostics are stable.
		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value, diags := attrs[name].Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("evaluating seed field %q: %w", name, diags)
			}
			goValue, err := ctyToGo(value)
			if err != nil {
				return nil, fmt.Errorf("seed field %q: %w", name, err)
			}
			model.Seed[name] = goValue
		}
	}

	for _, critic := range root.Workflow.Critics {
		if _, ok := model.Critics[critic.Name]; ok {
			return nil, fmt.Errorf("duplicate critic block %q", critic.Name)
		}
		cc := CriticConfig{RetryBudget: budget.DefaultCriticBudget, Enabled: true}
		if critic.RetryBudget != nil {
			cc.RetryBudget = *critic.RetryBudget
		}
		if critic.Blocking != nil {
			cc.Blocking = *critic.Blocking
		}
		if critic.Enabled != nil {
			cc.Enabled = *critic.Enabled
		}
		model.Critics[critic.Name] = cc
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}
