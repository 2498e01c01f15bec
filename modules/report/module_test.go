package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vk/docgraphgo/internal/state"
	"github.com/vk/docgraphgo/modules/questionnaire"
)

var reportInputs = []string{
	"questionnaire_responses",
	"classification_metrics",
	"extracted_entities",
	"workflow_warnings",
	"output_path",
}

func baseStore(t *testing.T, outputPath string) *state.Store {
	t.Helper()
	store := state.NewStore()
	_, err := store.Seed(state.Update{"output_path": outputPath})
	require.NoError(t, err)

	_, err = store.Apply("target_classifier", state.Update{
		"classification_metrics": map[string]any{
			"total_sentences":      5,
			"classified_sentences": 3,
			"coverage":             0.6,
			"average_confidence":   0.75,
		},
	})
	require.NoError(t, err)

	_, err = store.Apply("questionnaire_processor", state.Update{
		"questionnaire_responses": []questionnaire.Response{
			{QuestionID: "q1", Question: "Payment terms?", Answered: true, Evidence: []string{"Payment is due."}},
			{QuestionID: "q2", Question: "Termination?", Answered: false},
		},
	})
	require.NoError(t, err)

	_, err = store.Apply(state.WorkflowWriter, state.Update{
		state.WarningsField: []string{"entity_extractor: best-effort stage failed"},
	})
	require.NoError(t, err)
	return store
}

func TestRunRendersReport(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.yaml")
	store := baseStore(t, outputPath)
	_, err := store.Apply("entity_extractor", state.Update{
		"extracted_entities": map[string][]string{"dates": {"January 5, 2024"}},
	})
	require.NoError(t, err)

	update, err := run(t.Context(), state.NewView(store, reportInputs))
	require.NoError(t, err)

	rendered := update["final_report"].(string)

	var decoded Report
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &decoded))

	assert.Equal(t, 5, decoded.Summary.TotalSentences)
	assert.Equal(t, 3, decoded.Summary.ClassifiedSentences)
	assert.InDelta(t, 0.6, decoded.Summary.Coverage, 1e-9)
	assert.Equal(t, 1, decoded.Summary.QuestionsAnswered)
	assert.Equal(t, 2, decoded.Summary.QuestionsTotal)
	assert.Equal(t, []string{"January 5, 2024"}, decoded.Entities["dates"])
	require.Len(t, decoded.Warnings, 1)
	assert.Contains(t, decoded.Warnings[0], "entity_extractor")
	assert.NotEmpty(t, decoded.GeneratedAt)

	t.Run("report is written to the output path", func(t *testing.T) {
		onDisk, err := os.ReadFile(outputPath)
		require.NoError(t, err)
		assert.Equal(t, rendered, string(onDisk))
	})
}

func TestRunWithoutEntities(t *testing.T) {
	// The extractor is best-effort; the report must render without it.
	store := baseStore(t, "")

	update, err := run(t.Context(), state.NewView(store, reportInputs))
	require.NoError(t, err)

	rendered := update["final_report"].(string)
	var decoded Report
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &decoded))
	assert.Nil(t, decoded.Entities)
	assert.Equal(t, 2, decoded.Summary.QuestionsTotal)
}

func TestRunEmptyOutputPathSkipsFile(t *testing.T) {
	store := baseStore(t, "")

	update, err := run(t.Context(), state.NewView(store, reportInputs))
	require.NoError(t, err)
	assert.NotEmpty(t, update["final_report"])
}

func TestRunRejectsUnexpectedShapes(t *testing.T) {
	store := state.NewStore()
	_, err := store.Seed(state.Update{"output_path": ""})
	require.NoError(t, err)
	_, err = store.Apply("questionnaire_processor", state.Update{
		"questionnaire_responses": "not a slice",
	})
	require.NoError(t, err)

	_, err = run(t.Context(), state.NewView(store, reportInputs))
	assert.ErrorContains(t, err, "unexpected type")
}
