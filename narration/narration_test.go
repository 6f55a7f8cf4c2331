package narration

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/storymesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService returns a fixed completion / error without any mock bookkeeping.
type stubService struct {
	text string
	err  error
}

func (s stubService) Generate(context.Context, Prompt) (string, error) { return s.text, s.err }
func (s stubService) Info() Info                                       { return Info{Name: "stub", Provider: "stub"} }

func TestGenerate_Success(t *testing.T) {
	svc := NewMockService()
	svc.AddResponse("describe the tavern", "The tavern hums with low conversation.")

	text, err := Generate(context.Background(), svc, Prompt{Text: "describe the tavern"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "The tavern hums with low conversation.", text)
	assert.Equal(t, 1, svc.Calls())
}

func TestGenerate_ClassifiesTimeout(t *testing.T) {
	svc := NewMockService()
	svc.SetLatency(200 * time.Millisecond)

	start := time.Now()
	_, err := Generate(context.Background(), svc, Prompt{Text: "slow"}, 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrServiceTimeout)
	assert.Less(t, time.Since(start), 150*time.Millisecond, "call must not block past its deadline")
}

func TestGenerate_ClassifiesFailure(t *testing.T) {
	svc := NewMockService()
	svc.FailNext(1)

	_, err := Generate(context.Background(), svc, Prompt{Text: "boom"}, time.Second)
	assert.ErrorIs(t, err, core.ErrServiceError)

	// The mock recovers after the scripted failure.
	text, err := Generate(context.Background(), svc, Prompt{Text: "boom"}, time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestGenerate_EmptyCompletionIsError(t *testing.T) {
	_, err := Generate(context.Background(), stubService{text: ""}, Prompt{Text: "x"}, time.Second)
	assert.ErrorIs(t, err, core.ErrServiceError)
}

func TestGenerate_NilService(t *testing.T) {
	_, err := Generate(context.Background(), nil, Prompt{Text: "x"}, time.Second)
	assert.ErrorIs(t, err, core.ErrServiceError)
}

func TestGenerateOr_Provenance(t *testing.T) {
	fallback := func() string { return "A quiet room." }

	// Success path.
	svc := NewMockService()
	svc.AddResponse("scene", "A loud room.")
	text, prov, err := GenerateOr(context.Background(), svc, Prompt{Text: "scene"}, time.Second, fallback)
	require.NoError(t, err)
	assert.Equal(t, "A loud room.", text)
	assert.Equal(t, core.ProvenanceGenerated, prov)

	// Failure degrades to fallback and reports the recoverable cause.
	svc.FailNext(1)
	text, prov, err = GenerateOr(context.Background(), svc, Prompt{Text: "scene"}, time.Second, fallback)
	assert.ErrorIs(t, err, core.ErrServiceError)
	assert.Equal(t, "A quiet room.", text)
	assert.Equal(t, core.ProvenanceFallback, prov)

	// No service configured is deterministic operation, not degradation.
	text, prov, err = GenerateOr(context.Background(), nil, Prompt{Text: "scene"}, time.Second, fallback)
	require.NoError(t, err)
	assert.Equal(t, "A quiet room.", text)
	assert.Equal(t, core.ProvenanceDeterministic, prov)
}

func TestLimitedService_CallCap(t *testing.T) {
	inner := NewMockService()
	limited := NewLimitedService(inner, func(o *LimiterOptions) { o.MaxCalls = 2 })

	for i := 0; i < 2; i++ {
		_, err := limited.Generate(context.Background(), Prompt{Text: "x"})
		require.NoError(t, err)
	}
	_, err := limited.Generate(context.Background(), Prompt{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded max narration calls")

	assert.Equal(t, 3, limited.Count())
	assert.Equal(t, -1, NewLimitedService(inner).Remaining())
}

func TestLimitedService_Passthrough(t *testing.T) {
	inner := NewMockService()
	inner.AddResponse("x", "y")
	limited := NewLimitedService(inner, func(o *LimiterOptions) {
		o.RPS = 1000
		o.Burst = 1
	})

	text, err := limited.Generate(context.Background(), Prompt{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "y", text)
	assert.Equal(t, inner.Info(), limited.Info())
}
