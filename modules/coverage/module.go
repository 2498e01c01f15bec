// Package coverage implements the classification-coverage critic: the
// quality gate that checks whether enough of the document was actually
// classified before downstream stages consume the labels. On poor
// coverage it requests re-execution of the classifier; whether that
// happens is entirely the retry governor's call.
package coverage

import (
	"context"
	"fmt"

	"github.com/vk/docgraphgo/internal/registry"
	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
	"github.com/vk/docgraphgo/modules/classify"
)

// StageID is the critic's identity in the stage graph.
const StageID = "classification_critic"

// Defaults match the usual deployment thresholds.
const (
	DefaultMinCoverage   = 0.3
	DefaultMinConfidence = 0.5
)

// Module implements the registry.Module interface for this package.
// Zero values fall back to the package defaults.
type Module struct {
	MinCoverage   float64
	MinConfidence float64
}

// Register registers the critic with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterCritic(stage.Definition{
		ID:           StageID,
		Inputs:       []string{"classification_metrics"},
		RetryTargets: []string{classify.StageID},
	}, stage.CriticFunc(m.evaluate))
}

func (m *Module) evaluate(ctx context.Context, view state.View) (stage.Verdict, error) {
	minCoverage := m.MinCoverage
	if minCoverage == 0 {
		minCoverage = DefaultMinCoverage
	}
	minConfidence := m.MinConfidence
	if minConfidence == 0 {
		minConfidence = DefaultMinConfidence
	}

	value, err := view.Get("classification_metrics")
	if err != nil {
		return stage.Verdict{}, err
	}
	metrics, ok := value.(map[string]any)
	if !ok {
		return stage.Verdict{}, fmt.Errorf("classification_metrics has unexpected type %T", value)
	}

	if metricNumber(metrics, "total_sentences") == 0 {
		return stage.Fail("no sentences were classified"), nil
	}

	coverage := metricNumber(metrics, "coverage")
	avgConfidence := metricNumber(metrics, "average_confidence")

	if coverage < minCoverage {
		return stage.Retry(classify.StageID,
			fmt.Sprintf("classification coverage %.2f below threshold %.2f", coverage, minCoverage)), nil
	}
	if avgConfidence < minConfidence {
		return stage.Retry(classify.StageID,
			fmt.Sprintf("average confidence %.2f below threshold %.2f", avgConfidence, minConfidence)), nil
	}
	return stage.Pass(), nil
}

// metricNumber tolerates both the classifier's in-process int counts and
// the float64 shape every number takes after a snapshot reseed.
func metricNumber(metrics map[string]any, key string) float64 {
	switch n := metrics[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
