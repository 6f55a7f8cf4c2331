package agent

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/testutil"
	"github.com/hupe1980/storymesh/narration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNarrator(t *testing.T, optFns ...func(o *NarratorOptions)) *Narrator {
	t.Helper()
	n, err := NewNarrator("DM", optFns...)
	require.NoError(t, err)
	return n
}

func TestNewNarrator_InvalidWorld(t *testing.T) {
	_, err := NewNarrator("DM", func(o *NarratorOptions) {
		o.World = core.WorldConfig{}
	})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestNewNarrator_InvalidQuestCondition(t *testing.T) {
	cfg := core.DefaultWorldConfig()
	cfg.Quests = []core.Quest{{Name: "broken", Condition: "((("}}

	_, err := NewNarrator("DM", func(o *NarratorOptions) { o.World = cfg })
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestNarrator_DescribeScene_FallbackOnFailure(t *testing.T) {
	svc := narration.NewMockService()
	svc.FailNext(1)

	n := testNarrator(t, func(o *NarratorOptions) {
		o.Service = svc
		o.Timeout = time.Second
	})

	text, prov := n.DescribeScene(context.Background())
	assert.NotEmpty(t, text)
	assert.Contains(t, text, "Tavern")
	assert.Equal(t, core.ProvenanceFallback, prov)

	// The degradation leaves a diagnostic notice in the narrator's memory.
	events, err := n.RecentMemories(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.IsType(t, core.NoticePayload{}, events[0].Payload)
}

func TestNarrator_DescribeScene_TimeoutFallsBack(t *testing.T) {
	svc := narration.NewMockService()
	svc.SetLatency(500 * time.Millisecond)

	n := testNarrator(t, func(o *NarratorOptions) {
		o.Service = svc
		o.Timeout = 10 * time.Millisecond
	})

	start := time.Now()
	text, prov := n.DescribeScene(context.Background())
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.NotEmpty(t, text)
	assert.Equal(t, core.ProvenanceFallback, prov)
}

func TestNarrator_DescribeScene_NoServiceIsDeterministic(t *testing.T) {
	n := testNarrator(t)

	text, prov := n.DescribeScene(context.Background())
	assert.Contains(t, text, "Tavern")
	assert.Equal(t, core.ProvenanceDeterministic, prov)
}

func TestNarrator_ResolveLookAround_PureAndDeterministic(t *testing.T) {
	n := testNarrator(t)
	action := core.Action{Kind: core.KindLookAround, Actor: "Hero1"}

	first := n.ResolveAction(context.Background(), action)
	second := n.ResolveAction(context.Background(), action)

	assert.NotEmpty(t, first.Description)
	assert.Contains(t, first.Description, "Tavern")
	assert.Equal(t, first.Description, second.Description)
	assert.Equal(t, core.ProvenanceDeterministic, first.Provenance)
}

func TestNarrator_ResolveMove(t *testing.T) {
	n := testNarrator(t)

	// Connected destination moves the party.
	res := n.ResolveAction(context.Background(), core.Action{
		Kind:       core.KindMove,
		Actor:      "Hero1",
		Parameters: map[string]string{"destination": "Town Square"},
	})
	assert.Equal(t, core.OutcomeSuccess, res.Outcome)
	assert.Equal(t, "Town Square", n.WorldSnapshot().Location)
	assert.Equal(t, "Town Square", res.StateDelta[core.DeltaLocation])

	// Unconnected destination is refused without moving anyone.
	res = n.ResolveAction(context.Background(), core.Action{
		Kind:       core.KindMove,
		Actor:      "Hero1",
		Parameters: map[string]string{"destination": "Cellar"},
	})
	assert.Equal(t, core.OutcomeFailure, res.Outcome)
	assert.Equal(t, "Town Square", n.WorldSnapshot().Location)
}

func TestNarrator_ResolveAskNPC_DeterministicFallback(t *testing.T) {
	n := testNarrator(t)

	res := n.ResolveAction(context.Background(), core.Action{
		Kind:       core.KindAskNPC,
		Actor:      "Hero1",
		Parameters: map[string]string{"npc": "barkeep"},
	})
	assert.Equal(t, core.OutcomeSuccess, res.Outcome)
	assert.Contains(t, res.Description, "shipment")
	assert.Equal(t, core.ProvenanceDeterministic, res.Provenance)

	// The barkeep's lore carries a quest clue.
	quest, ok := n.WorldSnapshot().Quest("missing-shipment")
	require.True(t, ok)
	assert.Equal(t, 1, quest.Progress)
}

func TestNarrator_ResolveAskNPC_AbsentNPC(t *testing.T) {
	n := testNarrator(t)

	// The merchant stands in the Town Square, not the Tavern.
	res := n.ResolveAction(context.Background(), core.Action{
		Kind:       core.KindAskNPC,
		Actor:      "Hero1",
		Parameters: map[string]string{"npc": "merchant"},
	})
	assert.Equal(t, core.OutcomeFailure, res.Outcome)
	assert.Empty(t, res.StateDelta)
}

func TestNarrator_ResolveInteract_UnknownTarget(t *testing.T) {
	n := testNarrator(t)

	res := n.ResolveAction(context.Background(), core.Action{
		Kind:       core.KindInteract,
		Actor:      "Hero1",
		Parameters: map[string]string{"target": "dragon statue"},
	})
	assert.Equal(t, core.OutcomeNeutral, res.Outcome)
	assert.Equal(t, "Nothing special happens.", res.Description)
}

func TestNarrator_ResolveUnrecognizedKind(t *testing.T) {
	n := testNarrator(t)

	res := n.ResolveAction(context.Background(), core.Action{Kind: "cast-fireball", Actor: "Hero1"})
	assert.Equal(t, core.OutcomeNeutral, res.Outcome)
	assert.Equal(t, "Nothing happens.", res.Description)

	events, err := n.RecentMemories(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	notice, ok := events[0].Payload.(core.NoticePayload)
	require.True(t, ok)
	assert.Contains(t, notice.Note, "cast-fireball")
}

func TestNarrator_EndRound_AdvancesTimeOfDay(t *testing.T) {
	n := testNarrator(t)

	require.NoError(t, n.EndRound(1))
	assert.Equal(t, "afternoon", n.WorldSnapshot().TimeOfDay)

	require.NoError(t, n.EndRound(2))
	require.NoError(t, n.EndRound(3))
	require.NoError(t, n.EndRound(4))
	assert.Equal(t, "morning", n.WorldSnapshot().TimeOfDay, "day cycle wraps around")
}

func TestNarrator_EndRound_CompletesQuest(t *testing.T) {
	cfg := core.DefaultWorldConfig()
	cfg.Quests = []core.Quest{{
		Name:      "instant",
		Condition: `time_of_day == "afternoon"`,
		Terminal:  true,
	}}
	n := testNarrator(t, func(o *NarratorOptions) { o.World = cfg })

	require.NoError(t, n.EndRound(1))
	assert.True(t, n.WorldSnapshot().TerminalQuestComplete())
}

func TestNarrator_CustomWorld_ClueDrivenQuest(t *testing.T) {
	cfg := testutil.NewWorldBuilder("Crypt").
		Place("Crypt", "A cold stone crypt", "Stairs").Items("old key").
		Place("Stairs", "Worn steps leading up", "Crypt").
		NPC("ghost", "restless spirit", "Crypt", "The key opens the warden's chest.").
		Quest("find-the-key", `quests["find-the-key"].progress >= 1`, true, "key").
		Build()

	n := testNarrator(t, func(o *NarratorOptions) { o.World = cfg })

	res := n.ResolveAction(context.Background(), core.Action{
		Kind:       core.KindAskNPC,
		Actor:      "Hero1",
		Parameters: map[string]string{"npc": "ghost"},
	})
	assert.Equal(t, core.OutcomeSuccess, res.Outcome)

	require.NoError(t, n.EndRound(1))
	assert.True(t, n.WorldSnapshot().TerminalQuestComplete(), "the ghost's lore mentions the key clue")
}

func TestNarrator_RecentMemories_NegativeLimit(t *testing.T) {
	n := testNarrator(t)

	_, err := n.RecentMemories(-1)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
