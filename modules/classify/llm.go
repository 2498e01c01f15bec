package classify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// llmConfidence is assigned to every model-tagged sentence; the chat
// API gives no calibrated per-label score to pass through.
const llmConfidence = 0.8

// classifyLLM sends the whole sentence batch to an OpenAI-compatible
// chat endpoint in one request and parses the line-oriented reply.
// Request retry/backoff is deliberately not implemented here; a failed
// call is a stage failure and the critic/retry machinery upstream
// decides what happens next.
func (m *Module) classifyLLM(ctx context.Context, sentences []string, terms []Term) ([]Sentence, error) {
	cfg := openai.DefaultConfig(m.APIKey)
	cfg.BaseURL = m.Endpoint
	client := openai.NewClientWithConfig(cfg)

	names := make([]string, len(terms))
	for i, term := range terms {
		names[i] = term.Name
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Classify each numbered sentence with zero or more of these terms: %s.\n", strings.Join(names, ", "))
	prompt.WriteString("Reply with one line per sentence in the form `<number>: <term,term,...>` or `<number>: none`.\n\n")
	for i, text := range sentences {
		fmt.Fprintf(&prompt, "%d: %s\n", i+1, text)
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.Model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a contract terminology classifier. Answer in the exact line format requested."},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}

	out := make([]Sentence, len(sentences))
	for i, text := range sentences {
		out[i] = Sentence{Text: text}
	}
	for _, line := range strings.Split(resp.Choices[0].Message.Content, "\n") {
		idxStr, labels, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
		if err != nil || idx < 1 || idx > len(sentences) {
			continue
		}
		var classes []string
		for _, label := range strings.Split(labels, ",") {
			label = strings.TrimSpace(label)
			if _, ok := known[label]; ok {
				classes = append(classes, label)
			}
		}
		if len(classes) > 0 {
			out[idx-1].Classes = classes
			out[idx-1].Confidence = llmConfidence
		}
	}
	return out, nil
}
