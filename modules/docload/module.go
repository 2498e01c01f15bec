// Package docload implements the document loading stage: it reads the
// target document from disk, normalizes its text, and splits it into
// the sentence list every downstream analysis stage consumes.
package docload

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/vk/docgraphgo/internal/registry"
	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
)

// StageID is the loader's identity in the stage graph.
const StageID = "loader"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the loader stage with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProcessing(stage.Definition{
		ID:      StageID,
		Inputs:  []string{"target_document_path"},
		Outputs: []string{"document_text", "document_sentences", "document_metadata"},
	}, stage.WorkerFunc(run))
}

func run(ctx context.Context, view state.View) (state.Update, error) {
	path, err := view.GetString("target_document_path")
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %q: %w", path, err)
	}

	text := CleanText(string(raw))
	sentences := ExtractSentences(text)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("document %q contains no extractable sentences", path)
	}

	return state.Update{
		"document_text":      text,
		"document_sentences": sentences,
		"document_metadata": map[string]any{
			"path":      path,
			"bytes":     len(raw),
			"sentences": len(sentences),
		},
	}, nil
}

var (
	headerRe     = regexp.MustCompile(`^#+\s*`)
	pageAnchorRe = regexp.MustCompile(`\[\[page=\d+\]\]`)
	sentenceRe   = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
)

// CleanText normalizes whitespace while preserving paragraph structure,
// and strips page anchors and HTML entities left over from conversion.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = pageAnchorRe.ReplaceAllString(text, "")

	paragraphs := strings.Split(text, "\n\n")
	cleaned := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		var lines []string
		for _, line := range strings.Split(p, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if joined := strings.Join(lines, " "); joined != "" {
			cleaned = append(cleaned, joined)
		}
	}
	return strings.Join(cleaned, "\n\n")
}

// ExtractSentences splits cleaned text into sentences, keeping
// substantial markdown headers as standalone entries and skipping
// HTML comments and trivially short fragments.
func ExtractSentences(text string) []string {
	var sentences []string
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if strings.HasPrefix(paragraph, "<!--") && strings.HasSuffix(paragraph, "-->") {
			continue
		}
		if strings.HasPrefix(paragraph, "#") {
			content := headerRe.ReplaceAllString(paragraph, "")
			// Only keep substantial headers.
			if len(content) > 15 {
				sentences = append(sentences, content)
			}
			continue
		}
		for _, match := range sentenceRe.FindAllString(paragraph, -1) {
			candidate := strings.TrimSpace(match)
			if len(candidate) >= 10 {
				sentences = append(sentences, candidate)
			}
		}
	}
	return sentences
}
