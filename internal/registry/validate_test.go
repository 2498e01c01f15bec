package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/docgraphgo/internal/stage"
	"github.com/vk/docgraphgo/internal/state"
)

func seeded(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		out[name] = struct{}{}
	}
	return out
}

var (
	noopWorker = stage.WorkerFunc(func(ctx context.Context, view state.View) (state.Update, error) {
		return nil, nil
	})
	noopCritic = stage.CriticFunc(func(ctx context.Context, view state.View) (stage.Verdict, error) {
		return stage.Pass(), nil
	})
)

func TestValidateHappyPath(t *testing.T) {
	r := New()
	r.RegisterProcessing(stage.Definition{
		ID: "load", Inputs: []string{"path"}, Outputs: []string{"text"},
	}, noopWorker)
	r.RegisterCritic(stage.Definition{
		ID: "gate", Inputs: []string{"text"}, RetryTargets: []string{"load"},
	}, noopCritic)

	assert.NoError(t, r.Validate(context.Background(), seeded("path")))
}

func TestValidateCollectsAllFindings(t *testing.T) {
	r := New()
	r.RegisterProcessing(stage.Definition{
		ID: "a", Inputs: []string{"nowhere"}, Outputs: []string{"text"}, Blocking: true,
	}, noopWorker)
	r.RegisterCritic(stage.Definition{
		ID: "gate", BestEffort: true,
	}, noopCritic)

	err := r.Validate(context.Background(), seeded())
	require.Error(t, err)
	assert.ErrorContains(t, err, "blocking flag is only meaningful on critics")
	assert.ErrorContains(t, err, "best-effort flag is only meaningful on processing stages")
	assert.ErrorContains(t, err, "declares no inputs")
	assert.ErrorContains(t, err, "'nowhere' is neither seeded nor produced")
}

func TestValidateCriticOutputs(t *testing.T) {
	r := New()
	r.RegisterCritic(stage.Definition{
		ID: "gate", Inputs: []string{"path"}, Outputs: []string{"verdict_field"},
	}, noopCritic)

	err := r.Validate(context.Background(), seeded("path"))
	assert.ErrorContains(t, err, "critics only read state")
}

func TestValidateReservedIdentities(t *testing.T) {
	t.Run("reserved stage id", func(t *testing.T) {
		r := New()
		r.RegisterProcessing(stage.Definition{
			ID: state.SeedWriter, Inputs: []string{"path"}, Outputs: []string{"text"},
		}, noopWorker)
		err := r.Validate(context.Background(), seeded("path"))
		assert.ErrorContains(t, err, "reserved writer identity")
	})

	t.Run("reserved output field", func(t *testing.T) {
		r := New()
		r.RegisterProcessing(stage.Definition{
			ID: "a", Inputs: []string{"path"}, Outputs: []string{state.WarningsField},
		}, noopWorker)
		err := r.Validate(context.Background(), seeded("path"))
		assert.ErrorContains(t, err, "reserved for the engine")
	})

	t.Run("warnings field is always readable", func(t *testing.T) {
		r := New()
		r.RegisterProcessing(stage.Definition{
			ID: "a", Inputs: []string{state.WarningsField}, Outputs: []string{"text"},
		}, noopWorker)
		assert.NoError(t, r.Validate(context.Background(), seeded()))
	})
}

func TestValidateDuplicateProducer(t *testing.T) {
	r := New()
	r.RegisterProcessing(stage.Definition{ID: "a", Outputs: []string{"text"}}, noopWorker)
	r.RegisterProcessing(stage.Definition{ID: "b", Outputs: []string{"text"}}, noopWorker)

	err := r.Validate(context.Background(), seeded())
	assert.ErrorContains(t, err, "already produced by 'a'")
}

func TestValidateSeedShadowing(t *testing.T) {
	r := New()
	r.RegisterProcessing(stage.Definition{ID: "a", Outputs: []string{"path"}}, noopWorker)

	err := r.Validate(context.Background(), seeded("path"))
	assert.ErrorContains(t, err, "already a seed input")
}

func TestDefinitionsOrder(t *testing.T) {
	r := New()
	r.RegisterProcessing(stage.Definition{ID: "z", Outputs: []string{"fz"}}, noopWorker)
	r.RegisterProcessing(stage.Definition{ID: "a", Outputs: []string{"fa"}}, noopWorker)
	r.RegisterCritic(stage.Definition{ID: "m", Inputs: []string{"fa"}}, noopCritic)

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "z", defs[0].ID)
	assert.Equal(t, "a", defs[1].ID)
	assert.Equal(t, "m", defs[2].ID)
	assert.Equal(t, stage.KindCritic, defs[2].Kind, "kind is forced at registration")
}

func TestSetCriticBlocking(t *testing.T) {
	r := New()
	r.RegisterProcessing(stage.Definition{ID: "a", Outputs: []string{"fa"}}, noopWorker)
	r.RegisterCritic(stage.Definition{ID: "gate", Inputs: []string{"fa"}}, noopCritic)

	assert.False(t, r.SetCriticBlocking("a", true), "processing stages cannot be made blocking")
	assert.False(t, r.SetCriticBlocking("missing", true))
	assert.True(t, r.SetCriticBlocking("gate", true))

	def, ok := r.Definition("gate")
	require.True(t, ok)
	assert.True(t, def.Blocking)
}
