package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/storymesh/agent"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/narration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNarrator builds a narrator over the default world with its quests
// stripped, so sessions never stop before the configured round limit. Tests
// exercising quest termination pass their own world.
func testNarrator(t *testing.T, optFns ...func(o *agent.NarratorOptions)) *agent.Narrator {
	t.Helper()
	cfg := core.DefaultWorldConfig()
	cfg.Quests = nil

	merged := append([]func(o *agent.NarratorOptions){func(o *agent.NarratorOptions) {
		o.World = cfg
	}}, optFns...)

	n, err := agent.NewNarrator("DM", merged...)
	require.NoError(t, err)
	return n
}

func testActor(t *testing.T, name string, optFns ...func(o *agent.ActorOptions)) *agent.Actor {
	t.Helper()
	a, err := agent.NewActor(name, optFns...)
	require.NoError(t, err)
	return a
}

func TestNew_ConfigurationErrors(t *testing.T) {
	narrator := testNarrator(t)
	hero := testActor(t, "Hero1")

	_, err := New(nil, []*agent.Actor{hero})
	assert.ErrorIs(t, err, core.ErrConfiguration, "missing narrator")

	_, err = New(narrator, nil)
	assert.ErrorIs(t, err, core.ErrConfiguration, "empty actor list")

	_, err = New(narrator, []*agent.Actor{hero, testActor(t, "Hero1")})
	assert.ErrorIs(t, err, core.ErrConfiguration, "duplicate actor name")

	_, err = New(narrator, []*agent.Actor{hero}, func(o *Options) { o.Rounds = 0 })
	assert.ErrorIs(t, err, core.ErrConfiguration, "non-positive round limit")

	_, err = New(narrator, []*agent.Actor{hero}, func(o *Options) { o.Backpressure = "spill" })
	assert.ErrorIs(t, err, core.ErrConfiguration, "unknown backpressure policy")
}

func TestEngine_RunSync_RoundAndRecordCounts(t *testing.T) {
	narrator := testNarrator(t)
	actors := []*agent.Actor{testActor(t, "Hero1"), testActor(t, "Hero2")}

	eng, err := New(narrator, actors, func(o *Options) { o.Rounds = 3 })
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, eng.Phase())

	records, err := eng.RunSync(context.Background())
	require.NoError(t, err)

	// 3 rounds x 2 actors, plus the opening scene.
	require.Len(t, records, 7)
	assert.True(t, records[0].IsScene())
	assert.NotEmpty(t, records[0].Result.Description)
	assert.Equal(t, 3, eng.Round())
	assert.Equal(t, PhaseTerminated, eng.Phase())
}

func TestEngine_ResultsFollowRegistrationOrder(t *testing.T) {
	// Hero1's narration calls are slow, Hero2's instant; order must not care.
	slow := narration.NewMockService()
	slow.SetLatency(50 * time.Millisecond)

	narrator := testNarrator(t)
	hero1 := testActor(t, "Hero1", func(o *agent.ActorOptions) {
		o.Service = slow
		o.Timeout = time.Second
	})
	hero2 := testActor(t, "Hero2")

	eng, err := New(narrator, []*agent.Actor{hero1, hero2}, func(o *Options) { o.Rounds = 2 })
	require.NoError(t, err)

	records, err := eng.RunSync(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 5)

	for round := 1; round <= 2; round++ {
		base := 1 + (round-1)*2
		assert.Equal(t, "Hero1", records[base].Actor, "round %d", round)
		assert.Equal(t, "Hero2", records[base+1].Actor, "round %d", round)
		assert.Equal(t, round, records[base].Round)
		assert.Equal(t, round, records[base+1].Round)
	}
}

func TestEngine_SceneBroadcastBeforeRoundOne(t *testing.T) {
	narrator := testNarrator(t)
	hero := testActor(t, "Hero1")

	eng, err := New(narrator, []*agent.Actor{hero}, func(o *Options) { o.Rounds = 1 })
	require.NoError(t, err)

	_, err = eng.RunSync(context.Background())
	require.NoError(t, err)

	events, err := hero.RecentMemories(hero.MemoryLen())
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.IsType(t, core.ScenePayload{}, events[0].Payload, "scene lands in actor memory first")
}

func TestEngine_NarrationTimeoutNeverBlocksRound(t *testing.T) {
	svc := narration.NewMockService()
	svc.SetLatency(time.Hour)

	narrator := testNarrator(t, func(o *agent.NarratorOptions) {
		o.Service = svc
		o.Timeout = 10 * time.Millisecond
	})
	hero := testActor(t, "Hero1", func(o *agent.ActorOptions) {
		o.Service = svc
		o.Timeout = 10 * time.Millisecond
	})

	eng, err := New(narrator, []*agent.Actor{hero}, func(o *Options) { o.Rounds = 2 })
	require.NoError(t, err)

	done := make(chan struct{})
	var records []core.Record
	go func() {
		defer close(done)
		records, err = eng.RunSync(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not complete in bounded time with the service stalled")
	}
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, core.ProvenanceFallback, records[0].Result.Provenance)
	assert.NotEmpty(t, records[0].Result.Description)
	assert.Equal(t, 2, eng.Round())
}

func TestEngine_TerminalQuestStopsEarly(t *testing.T) {
	cfg := core.DefaultWorldConfig()
	cfg.Quests = []core.Quest{{
		Name:      "instant",
		Condition: `time_of_day != "morning"`,
		Terminal:  true,
	}}
	narrator := testNarrator(t, func(o *agent.NarratorOptions) { o.World = cfg })
	hero := testActor(t, "Hero1")

	eng, err := New(narrator, []*agent.Actor{hero}, func(o *Options) { o.Rounds = 10 })
	require.NoError(t, err)

	records, err := eng.RunSync(context.Background())
	require.NoError(t, err)

	// The quest completes at the end of round 1; round 2 never starts.
	assert.Equal(t, 1, eng.Round())
	assert.Len(t, records, 2)
	assert.Equal(t, PhaseTerminated, eng.Phase())
}

func TestEngine_DropBackpressureNeverBlocks(t *testing.T) {
	narrator := testNarrator(t)
	actors := []*agent.Actor{testActor(t, "Hero1"), testActor(t, "Hero2")}
	store := newCountingStore()

	eng, err := New(narrator, actors, func(o *Options) {
		o.Rounds = 3
		o.RecordBufferSize = 1
		o.Backpressure = BackpressureDrop
		o.TranscriptStore = store
	})
	require.NoError(t, err)

	// Nobody reads the live stream until the session is over; with a
	// one-slot buffer most records are dropped, but the engine finishes
	// and the store still holds everything.
	recordsCh, errorsCh := eng.Run(context.Background())

	select {
	case err := <-errorsCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine blocked despite drop policy")
	}

	var streamed int
	for range recordsCh {
		streamed++
	}
	assert.LessOrEqual(t, streamed, 7)
	assert.Equal(t, 7, store.count(eng.SessionID()))
}

func TestEngine_BlockBackpressureCancellation(t *testing.T) {
	narrator := testNarrator(t)
	actors := []*agent.Actor{testActor(t, "Hero1"), testActor(t, "Hero2")}

	eng, err := New(narrator, actors, func(o *Options) {
		o.Rounds = 5
		o.RecordBufferSize = 1
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	recordsCh, errorsCh := eng.Run(ctx)

	// Consume one record, then cancel with the producer blocked.
	<-recordsCh
	cancel()

	for range recordsCh {
	}
	err = <-errorsCh
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, PhaseTerminated, eng.Phase())
}

func TestEngine_RunsOnlyOnce(t *testing.T) {
	eng, err := New(testNarrator(t), []*agent.Actor{testActor(t, "Hero1")}, func(o *Options) { o.Rounds = 1 })
	require.NoError(t, err)

	_, err = eng.RunSync(context.Background())
	require.NoError(t, err)

	_, err = eng.RunSync(context.Background())
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestEngine_CallbacksFire(t *testing.T) {
	callbacks := NewCallbackRegistry()
	var order []CallbackType
	for _, ct := range []CallbackType{CallbackOnScene, CallbackBeforeRound, CallbackBeforeTurn, CallbackAfterTurn, CallbackAfterRound} {
		ct := ct
		callbacks.Register(ct, func(CallbackPayload) { order = append(order, ct) })
	}

	eng, err := New(testNarrator(t), []*agent.Actor{testActor(t, "Hero1")}, func(o *Options) {
		o.Rounds = 1
		o.Callbacks = callbacks
	})
	require.NoError(t, err)

	_, err = eng.RunSync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []CallbackType{
		CallbackOnScene,
		CallbackBeforeRound,
		CallbackBeforeTurn,
		CallbackAfterTurn,
		CallbackAfterRound,
	}, order)
}

// countingStore is a minimal TranscriptStore for backpressure tests.
type countingStore struct {
	records map[string][]core.Record
}

func newCountingStore() *countingStore {
	return &countingStore{records: make(map[string][]core.Record)}
}

func (s *countingStore) Append(sessionID string, rec core.Record) error {
	s.records[sessionID] = append(s.records[sessionID], rec)
	return nil
}

func (s *countingStore) List(sessionID string) ([]core.Record, error) {
	return s.records[sessionID], nil
}

func (s *countingStore) Sessions() ([]string, error) {
	var out []string
	for id := range s.records {
		out = append(out, id)
	}
	return out, nil
}

func (s *countingStore) count(sessionID string) int { return len(s.records[sessionID]) }
