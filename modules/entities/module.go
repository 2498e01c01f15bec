// Package entities implements deterministic entity extraction over the
// loaded document text: dates, monetary amounts, organization names, and
// contact addresses. The stage is best-effort; a document without
// recognizable entities degrades to a run warning, never an abort.
package entities

import (
	"context"
	"fmt"
	"regexp"

	"github.com/vk/docgraphgo/internal/registry"
	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
)

// StageID is the extractor's identity in the stage graph.
const StageID = "entity_extractor"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the extractor stage with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProcessing(stage.Definition{
		ID:         StageID,
		Inputs:     []string{"document_text"},
		Outputs:    []string{"extracted_entities"},
		BestEffort: true,
	}, stage.WorkerFunc(run))
}

var (
	dateRe   = regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4})\b`)
	amountRe = regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d{2})?`)
	orgRe    = regexp.MustCompile(`\b(?:[A-Z][A-Za-z&]+\s)+(?:Inc|LLC|Ltd|Corp|Corporation|Company|GmbH)\.?\b`)
	emailRe  = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+\b`)
)

func run(ctx context.Context, view state.View) (state.Update, error) {
	text, err := view.GetString("document_text")
	if err != nil {
		return nil, err
	}

	extracted := map[string][]string{
		"dates":         dedupe(dateRe.FindAllString(text, -1)),
		"amounts":       dedupe(amountRe.FindAllString(text, -1)),
		"organizations": dedupe(orgRe.FindAllString(text, -1)),
		"emails":        dedupe(emailRe.FindAllString(text, -1)),
	}

	total := 0
	for _, values := range extracted {
		total += len(values)
	}
	if total == 0 {
		return nil, fmt.Errorf("no entities recognized in %d bytes of text", len(text))
	}

	return state.Update{"extracted_entities": extracted}, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
