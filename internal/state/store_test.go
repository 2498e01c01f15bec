package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAndGet(t *testing.T) {
	s := NewStore()
	version, err := s.Seed(Update{"document_path": "/tmp/doc.txt", "threshold": 0.5})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)

	values, err := s.Get([]string{"document_path", "threshold"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/doc.txt", values["document_path"])
	assert.Equal(t, 0.5, values["threshold"])

	owner, ok := s.Owner("document_path")
	require.True(t, ok)
	assert.Equal(t, SeedWriter, owner)
}

func TestGetMissingField(t *testing.T) {
	s := NewStore()
	_, err := s.Get([]string{"never_written"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, ok := s.Value("never_written")
	assert.False(t, ok)
}

func TestApplySingleWriterConflict(t *testing.T) {
	s := NewStore()
	_, err := s.Apply("loader", Update{"document_text": "hello"})
	require.NoError(t, err)

	t.Run("other writer is rejected", func(t *testing.T) {
		_, err := s.Apply("classifier", Update{"document_text": "stolen"})
		assert.ErrorIs(t, err, ErrWriteConflict)

		value, ok := s.Value("document_text")
		require.True(t, ok)
		assert.Equal(t, "hello", value)
	})

	t.Run("owner may revise", func(t *testing.T) {
		_, err := s.Apply("loader", Update{"document_text": "hello again"})
		require.NoError(t, err)
		assert.Equal(t, 2, s.RevisionCount("document_text"))
	})
}

func TestApplyAllOrNothing(t *testing.T) {
	s := NewStore()
	_, err := s.Apply("loader", Update{"document_text": "hello"})
	require.NoError(t, err)
	before := s.Version()

	// One conflicting field poisons the whole update.
	_, err = s.Apply("classifier", Update{
		"classified_sentences": []string{"a"},
		"document_text":        "stolen",
	})
	assert.ErrorIs(t, err, ErrWriteConflict)
	assert.Equal(t, before, s.Version())

	_, ok := s.Value("classified_sentences")
	assert.False(t, ok, "no field of a rejected update may be written")
}

func TestApplyVersioning(t *testing.T) {
	s := NewStore()
	v1, err := s.Apply("loader", Update{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v1, "multi-field update bumps version once")

	v2, err := s.Apply("loader", Update{"a": 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v2)

	vEmpty, err := s.Apply("loader", Update{})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), vEmpty, "empty update is a no-op")
}

func TestAppendWarning(t *testing.T) {
	s := NewStore()
	_, err := s.AppendWarning("first")
	require.NoError(t, err)
	_, err = s.AppendWarning("second")
	require.NoError(t, err)

	value, ok := s.Value(WarningsField)
	require.True(t, ok)
	assert.Equal(t, []string{"first", "second"}, value)

	owner, ok := s.Owner(WarningsField)
	require.True(t, ok)
	assert.Equal(t, WorkflowWriter, owner)
	assert.Equal(t, 2, s.RevisionCount(WarningsField))
}

func TestFreeze(t *testing.T) {
	s := NewStore()
	_, err := s.Apply("loader", Update{"a": 1})
	require.NoError(t, err)

	s.Freeze()
	_, err = s.Apply("loader", Update{"a": 2})
	assert.ErrorIs(t, err, ErrFrozen)

	value, ok := s.Value("a")
	require.True(t, ok)
	assert.Equal(t, 1, value, "frozen state stays readable")
}

func TestLatest(t *testing.T) {
	s := NewStore()
	_, err := s.Apply("loader", Update{"a": 1})
	require.NoError(t, err)
	_, err = s.Apply("loader", Update{"a": 2, "b": "x"})
	require.NoError(t, err)

	latest := s.Latest()
	assert.Equal(t, map[string]any{"a": 2, "b": "x"}, latest)
}

func TestViewCapabilities(t *testing.T) {
	s := NewStore()
	_, err := s.Apply("loader", Update{
		"document_text":      "hello",
		"document_sentences": []string{"hello"},
		"secret":             "hidden",
	})
	require.NoError(t, err)

	view := NewView(s, []string{"document_text", "document_sentences", "pending"})

	t.Run("declared fields are readable", func(t *testing.T) {
		text, err := view.GetString("document_text")
		require.NoError(t, err)
		assert.Equal(t, "hello", text)

		sentences, err := view.GetStringSlice("document_sentences")
		require.NoError(t, err)
		assert.Equal(t, []string{"hello"}, sentences)
	})

	t.Run("undeclared fields fail closed", func(t *testing.T) {
		_, err := view.Get("secret")
		assert.ErrorIs(t, err, ErrFieldNotDeclared)
		assert.False(t, view.Has("secret"))
	})

	t.Run("declared but unproduced", func(t *testing.T) {
		_, err := view.Get("pending")
		assert.ErrorIs(t, err, ErrMissingField)
		assert.False(t, view.Has("pending"))
	})

	t.Run("typed getter mismatch", func(t *testing.T) {
		_, err := view.GetFloat("document_text")
		assert.ErrorContains(t, err, "expected number")
	})

	assert.Equal(t, []string{"document_sentences", "document_text", "pending"}, view.Fields())
}

func TestViewStringSliceFromAny(t *testing.T) {
	s := NewStore()
	_, err := s.Seed(Update{"tags": []any{"a", "b"}})
	require.NoError(t, err)

	view := NewView(s, []string{"tags"})
	tags, err := view.GetStringSlice("tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)
}
