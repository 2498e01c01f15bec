// Package report implements the final rendering stage: it folds the
// questionnaire answers, classification metrics, extracted entities,
// and accumulated run warnings into a single YAML report.
package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vk/docgraphgo/internal/registry"
	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
	"github.com/vk/docgraphgo/modules/questionnaire"
)

// StageID is the renderer's identity in the stage graph.
const StageID = "report_renderer"

// Report is the rendered document shape. Entities are omitted when the
// best-effort extractor produced nothing.
type Report struct {
	GeneratedAt   string                   `yaml:"generated_at"`
	Summary       Summary                  `yaml:"summary"`
	Questionnaire []questionnaire.Response `yaml:"questionnaire"`
	Entities      map[string][]string      `yaml:"entities,omitempty"`
	Warnings      []string                 `yaml:"warnings,omitempty"`
}

// Summary carries the classification headline numbers.
type Summary struct {
	TotalSentences      int     `yaml:"total_sentences"`
	ClassifiedSentences int     `yaml:"classified_sentences"`
	Coverage            float64 `yaml:"coverage"`
	AverageConfidence   float64 `yaml:"average_confidence"`
	QuestionsAnswered   int     `yaml:"questions_answered"`
	QuestionsTotal      int     `yaml:"questions_total"`
}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the renderer stage with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProcessing(stage.Definition{
		ID: StageID,
		Inputs: []string{
			"questionnaire_responses",
			"classification_metrics",
			"extracted_entities",
			"workflow_warnings",
			"output_path",
		},
		Outputs: []string{"final_report"},
	}, stage.WorkerFunc(run))
}

func run(ctx context.Context, view state.View) (state.Update, error) {
	value, err := view.Get("questionnaire_responses")
	if err != nil {
		return nil, err
	}
	responses, ok := value.([]questionnaire.Response)
	if !ok {
		return nil, fmt.Errorf("questionnaire_responses has unexpected type %T", value)
	}

	metricsValue, err := view.Get("classification_metrics")
	if err != nil {
		return nil, err
	}
	metrics, ok := metricsValue.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("classification_metrics has unexpected type %T", metricsValue)
	}

	warnings, err := view.GetStringSlice("workflow_warnings")
	if err != nil {
		return nil, err
	}

	rendered := Report{
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		Summary:       summarize(metrics, responses),
		Questionnaire: responses,
		Warnings:      warnings,
	}

	// The extractor is best-effort; on failure the field is simply
	// never produced and the report ships without an entities section.
	if view.Has("extracted_entities") {
		entitiesValue, err := view.Get("extracted_entities")
		if err != nil {
			return nil, err
		}
		entities, ok := entitiesValue.(map[string][]string)
		if !ok {
			return nil, fmt.Errorf("extracted_entities has unexpected type %T", entitiesValue)
		}
		rendered.Entities = entities
	}

	raw, err := yaml.Marshal(rendered)
	if err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	outputPath, err := view.GetString("output_path")
	if err != nil {
		return nil, err
	}
	if outputPath != "" {
		if err := os.WriteFile(outputPath, raw, 0o644); err != nil {
			return nil, fmt.Errorf("writing report to %q: %w", outputPath, err)
		}
	}

	return state.Update{"final_report": string(raw)}, nil
}

func summarize(metrics map[string]any, responses []questionnaire.Response) Summary {
	s := Summary{QuestionsTotal: len(responses)}
	if n, ok := metrics["total_sentences"].(int); ok {
		s.TotalSentences = n
	}
	if n, ok := metrics["classified_sentences"].(int); ok {
		s.ClassifiedSentences = n
	}
	if f, ok := metrics["coverage"].(float64); ok {
		s.Coverage = f
	}
	if f, ok := metrics["average_confidence"].(float64); ok {
		s.AverageConfidence = f
	}
	for _, response := range responses {
		if response.Answered {
			s.QuestionsAnswered++
		}
	}
	return s
}
