// Package classify implements the sentence classification stage: every
// document sentence is tagged with the terminology terms it matches.
// Classification runs against an OpenAI-compatible chat endpoint when
// the module is constructed with one, and falls back to a deterministic
// lexicon matcher otherwise, so pipelines stay runnable offline.
package classify

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vk/docgraphgo/internal/registry"
	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
)

// StageID is the classifier's identity in the stage graph.
const StageID = "target_classifier"

// Sentence is one classified sentence. Downstream stages (critics, the
// questionnaire processor) consume this shape.
type Sentence struct {
	Text       string   `json:"sentence"`
	Classes    []string `json:"classes"`
	Confidence float64  `json:"confidence"`
}

// Term is one terminology entry from the terms file.
type Term struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type termsFile struct {
	Terms []Term `yaml:"terms"`
}

// Module implements the registry.Module interface for this package.
// With a zero value it classifies by lexicon matching; set Endpoint
// (plus Model, and APIKey if the server wants one) to route sentences
// through an OpenAI-compatible chat endpoint instead.
type Module struct {
	Endpoint string
	Model    string
	APIKey   string
}

// Register registers the classifier stage with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProcessing(stage.Definition{
		ID:      StageID,
		Inputs:  []string{"document_sentences", "terminology_path"},
		Outputs: []string{"classified_sentences", "classification_metrics"},
	}, stage.WorkerFunc(m.run))
}

func (m *Module) run(ctx context.Context, view state.View) (state.Update, error) {
	sentences, err := view.GetStringSlice("document_sentences")
	if err != nil {
		return nil, err
	}
	termsPath, err := view.GetString("terminology_path")
	if err != nil {
		return nil, err
	}
	terms, err := LoadTerms(termsPath)
	if err != nil {
		return nil, err
	}

	var classified []Sentence
	if m.Endpoint != "" {
		classified, err = m.classifyLLM(ctx, sentences, terms)
	} else {
		classified = ClassifyLexicon(sentences, terms)
	}
	if err != nil {
		return nil, fmt.Errorf("classifying %d sentences: %w", len(sentences), err)
	}

	return state.Update{
		"classified_sentences":   classified,
		"classification_metrics": Metrics(classified),
	}, nil
}

// LoadTerms reads the terminology file.
func LoadTerms(path string) ([]Term, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading terminology %q: %w", path, err)
	}
	var file termsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing terminology %q: %w", path, err)
	}
	if len(file.Terms) == 0 {
		return nil, fmt.Errorf("terminology %q declares no terms", path)
	}
	return file.Terms, nil
}

// ClassifyLexicon tags each sentence with every term whose keywords it
// contains. Confidence grows with the number of keyword hits and is
// fully deterministic.
func ClassifyLexicon(sentences []string, terms []Term) []Sentence {
	out := make([]Sentence, len(sentences))
	for i, text := range sentences {
		lower := strings.ToLower(text)
		var classes []string
		hits := 0
		for _, term := range terms {
			matched := false
			for _, keyword := range term.Keywords {
				if strings.Contains(lower, strings.ToLower(keyword)) {
					matched = true
					hits++
				}
			}
			if matched {
				classes = append(classes, term.Name)
			}
		}
		confidence := 0.0
		if len(classes) > 0 {
			confidence = 0.6 + 0.1*float64(hits)
			if confidence > 0.95 {
				confidence = 0.95
			}
		}
		out[i] = Sentence{Text: text, Classes: classes, Confidence: confidence}
	}
	return out
}

// Metrics summarizes a classification pass for the coverage critic and
// the final report.
func Metrics(classified []Sentence) map[string]any {
	total := len(classified)
	withClass := 0
	confidenceSum := 0.0
	for _, s := range classified {
		if len(s.Classes) > 0 {
			withClass++
			confidenceSum += s.Confidence
		}
	}
	coverage := 0.0
	avgConfidence := 0.0
	if total > 0 {
		coverage = float64(withClass) / float64(total)
	}
	if withClass > 0 {
		avgConfidence = confidenceSum / float64(withClass)
	}
	return map[string]any{
		"total_sentences":      total,
		"classified_sentences": withClass,
		"coverage":             coverage,
		"average_confidence":   avgConfidence,
	}
}
