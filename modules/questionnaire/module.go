// Package questionnaire implements the questionnaire stages: a
// processing stage that answers an evaluation questionnaire by
// collecting classified evidence sentences per question, and a
// completeness critic gating on the fraction of questions that found
// any evidence at all.
package questionnaire

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vk/docgraphgo/internal/registry"
	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
	"github.com/vk/docgraphgo/modules/classify"
)

// Stage identities in the stage graph.
const (
	ProcessorID = "questionnaire_processor"
	CriticID    = "questionnaire_critic"
)

// DefaultMinAnswered is the completeness threshold below which the
// critic asks for a re-run of the processor.
const DefaultMinAnswered = 0.6

// Question is one questionnaire entry: evidence is any classified
// sentence tagged with one of the question's terms.
type Question struct {
	ID    string   `yaml:"id"`
	Text  string   `yaml:"text"`
	Terms []string `yaml:"terms"`
}

type questionnaireFile struct {
	Title     string     `yaml:"title"`
	Questions []Question `yaml:"questions"`
}

// Response is the answer produced for one question.
type Response struct {
	QuestionID string   `json:"questionId"`
	Question   string   `json:"question"`
	Answered   bool     `json:"answered"`
	Evidence   []string `json:"evidence,omitempty"`
}

// Module implements the registry.Module interface for this package.
type Module struct {
	MinAnswered float64
}

// Register registers the processor and the completeness critic.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProcessing(stage.Definition{
		ID:      ProcessorID,
		Inputs:  []string{"questionnaire_path", "classified_sentences"},
		Outputs: []string{"questionnaire_responses"},
	}, stage.WorkerFunc(runProcessor))

	r.RegisterCritic(stage.Definition{
		ID:           CriticID,
		Inputs:       []string{"questionnaire_responses"},
		RetryTargets: []string{ProcessorID},
	}, stage.CriticFunc(m.evaluate))
}

func runProcessor(ctx context.Context, view state.View) (state.Update, error) {
	path, err := view.GetString("questionnaire_path")
	if err != nil {
		return nil, err
	}
	questions, err := LoadQuestions(path)
	if err != nil {
		return nil, err
	}

	value, err := view.Get("classified_sentences")
	if err != nil {
		return nil, err
	}
	classified, ok := value.([]classify.Sentence)
	if !ok {
		return nil, fmt.Errorf("classified_sentences has unexpected type %T", value)
	}

	responses := Answer(questions, classified)
	return state.Update{"questionnaire_responses": responses}, nil
}

// LoadQuestions reads the questionnaire file.
func LoadQuestions(path string) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading questionnaire %q: %w", path, err)
	}
	var file questionnaireFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing questionnaire %q: %w", path, err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("questionnaire %q declares no questions", path)
	}
	return file.Questions, nil
}

// Answer collects evidence sentences per question by class overlap.
func Answer(questions []Question, classified []classify.Sentence) []Response {
	responses := make([]Response, len(questions))
	for i, q := range questions {
		wanted := make(map[string]struct{}, len(q.Terms))
		for _, term := range q.Terms {
			wanted[strings.ToLower(term)] = struct{}{}
		}

		var evidence []string
		for _, sentence := range classified {
			for _, class := range sentence.Classes {
				if _, ok := wanted[strings.ToLower(class)]; ok {
					evidence = append(evidence, sentence.Text)
					break
				}
			}
		}
		responses[i] = Response{
			QuestionID: q.ID,
			Question:   q.Text,
			Answered:   len(evidence) > 0,
			Evidence:   evidence,
		}
	}
	return responses
}

func (m *Module) evaluate(ctx context.Context, view state.View) (stage.Verdict, error) {
	minAnswered := m.MinAnswered
	if minAnswered == 0 {
		minAnswered = DefaultMinAnswered
	}

	value, err := view.Get("questionnaire_responses")
	if err != nil {
		return stage.Verdict{}, err
	}
	responses, ok := value.([]Response)
	if !ok {
		return stage.Verdict{}, fmt.Errorf("questionnaire_responses has unexpected type %T", value)
	}
	if len(responses) == 0 {
		return stage.Fail("questionnaire produced no responses"), nil
	}

	answered := 0
	for _, response := range responses {
		if response.Answered {
			answered++
		}
	}
	ratio := float64(answered) / float64(len(responses))
	if ratio < minAnswered {
		return stage.Retry(ProcessorID,
			fmt.Sprintf("only %d of %d questions answered (%.2f < %.2f)", answered, len(responses), ratio, minAnswered)), nil
	}
	return stage.Pass(), nil
}
