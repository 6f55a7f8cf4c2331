package agent

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/narration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both variants implement the shared capability interface.
var (
	_ core.Agent = (*Narrator)(nil)
	_ core.Agent = (*Actor)(nil)
)

func testTurnContext(t *testing.T) core.TurnContext {
	t.Helper()
	world, err := core.NewWorldState(core.DefaultWorldConfig())
	require.NoError(t, err)
	return core.TurnContext{
		Round: 1,
		Scene: "The tavern hums with low conversation.",
		World: world.Snapshot(),
	}
}

func TestCharacterSheet_Modifier(t *testing.T) {
	tests := []struct {
		score    int
		expected int
	}{
		{3, -4},
		{8, -1},
		{9, -1},
		{10, 0},
		{11, 0},
		{12, 1},
		{15, 2},
		{20, 5},
	}

	for _, tt := range tests {
		sheet := CharacterSheet{Abilities: map[Ability]int{AbilityStrength: tt.score}}
		assert.Equal(t, tt.expected, sheet.Modifier(AbilityStrength), "score %d", tt.score)
	}

	// Missing abilities count as the neutral 10.
	assert.Equal(t, 0, CharacterSheet{}.Modifier(AbilityWisdom))
}

func TestActor_DecideNextAction_MalformedContext(t *testing.T) {
	actor, err := NewActor("Hero1")
	require.NoError(t, err)

	_, err = actor.DecideNextAction(context.Background(), core.TurnContext{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	turn := testTurnContext(t)
	turn.Scene = ""
	_, err = actor.DecideNextAction(context.Background(), turn)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestActor_DecideNextAction_DefaultRules(t *testing.T) {
	actor, err := NewActor("Hero1", func(o *ActorOptions) {
		o.Sheet.Abilities = map[Ability]int{AbilityCharisma: 14}
	})
	require.NoError(t, err)

	// NPCs stand in the tavern, so the first turn opens a conversation.
	action, err := actor.DecideNextAction(context.Background(), testTurnContext(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindAskNPC, action.Kind)
	assert.Equal(t, "barkeep", action.Param("npc"), "NPCs at a place are picked in sorted order")
	assert.Equal(t, "Hero1", action.Actor)
	assert.Equal(t, 2, action.Modifier, "ask-npc leans on charisma")

	// The decision is recorded in the actor's own memory.
	events, err := actor.RecentMemories(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.IsType(t, core.ActionPayload{}, events[0].Payload)
}

func TestActor_DecideNextAction_LingeringMovesOn(t *testing.T) {
	actor, err := NewActor("Hero1")
	require.NoError(t, err)

	turn := testTurnContext(t)
	var kinds []core.ActionKind
	for i := 0; i < 3; i++ {
		action, err := actor.DecideNextAction(context.Background(), turn)
		require.NoError(t, err)
		kinds = append(kinds, action.Kind)
	}

	assert.Equal(t, core.KindAskNPC, kinds[0])
	assert.Equal(t, core.KindInteract, kinds[1])
	assert.Equal(t, core.KindMove, kinds[2], "three turns in one place pushes the actor onward")
}

func TestActor_DecideNextAction_GoalFallback(t *testing.T) {
	// An empty rule set forces the goal table.
	actor, err := NewActor("Hero1", func(o *ActorOptions) {
		o.Rules = nil
		o.Goal = "explore the old forest"
	})
	require.NoError(t, err)

	action, err := actor.DecideNextAction(context.Background(), testTurnContext(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindMove, action.Kind)
	assert.NotEmpty(t, action.Param("destination"))
}

func TestActor_DecideNextAction_EnrichmentFlavor(t *testing.T) {
	svc := narration.NewMockService()
	actor, err := NewActor("Hero1", func(o *ActorOptions) {
		o.Service = svc
		o.Timeout = time.Second
	})
	require.NoError(t, err)

	action, err := actor.DecideNextAction(context.Background(), testTurnContext(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindAskNPC, action.Kind, "enrichment never overrides the rule kind")
	assert.NotEmpty(t, action.Flavor)
}

func TestActor_DecideNextAction_EnrichmentFailureKeepsRuleAction(t *testing.T) {
	svc := narration.NewMockService()
	svc.FailNext(1)

	actor, err := NewActor("Hero1", func(o *ActorOptions) {
		o.Service = svc
		o.Timeout = time.Second
	})
	require.NoError(t, err)

	action, err := actor.DecideNextAction(context.Background(), testTurnContext(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindAskNPC, action.Kind)
	assert.Empty(t, action.Flavor)

	// Degradation leaves a notice next to the recorded action.
	events, err := actor.RecentMemories(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.IsType(t, core.NoticePayload{}, events[0].Payload)
	assert.IsType(t, core.ActionPayload{}, events[1].Payload)
}

func TestActor_RecentMemories_NegativeLimit(t *testing.T) {
	actor, err := NewActor("Hero1")
	require.NoError(t, err)

	_, err = actor.RecentMemories(-1)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestCore_DefaultResponse(t *testing.T) {
	c := NewCore("Hero1", "actor")
	assert.Equal(t, "Hero1 acknowledges message from DM", c.DefaultResponse("DM"))
	assert.Equal(t, c.DefaultResponse("DM"), c.DefaultResponse("DM"), "pure function of identities")
}
