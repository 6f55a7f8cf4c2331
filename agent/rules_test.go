package agent

import (
	"testing"

	"github.com/hupe1980/storymesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) core.Snapshot {
	t.Helper()
	world, err := core.NewWorldState(core.DefaultWorldConfig())
	require.NoError(t, err)
	return world.Snapshot()
}

func TestNewRuleSet_CompileError(t *testing.T) {
	_, err := NewRuleSet([]Rule{{When: "((", Kind: core.KindLookAround}})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestRuleSet_Decide_FirstMatchWins(t *testing.T) {
	rs, err := NewRuleSet([]Rule{
		{When: `hp < 3`, Kind: core.KindMove, Parameters: map[string]string{"destination": "$here.connection"}},
		{When: `hp >= 3`, Kind: core.KindLookAround},
		{Kind: core.KindInteract},
	})
	require.NoError(t, err)

	action, ok := rs.Decide(map[string]any{"hp": 10}, testSnapshot(t))
	require.True(t, ok)
	assert.Equal(t, core.KindLookAround, action.Kind)

	action, ok = rs.Decide(map[string]any{"hp": 1}, testSnapshot(t))
	require.True(t, ok)
	assert.Equal(t, core.KindMove, action.Kind)
	assert.Equal(t, "Town Square", action.Param("destination"))
}

func TestRuleSet_Decide_EmptyGuardAlwaysMatches(t *testing.T) {
	rs, err := NewRuleSet([]Rule{
		{When: `false`, Kind: core.KindMove},
		{Kind: core.KindLookAround},
	})
	require.NoError(t, err)

	action, ok := rs.Decide(map[string]any{}, testSnapshot(t))
	require.True(t, ok)
	assert.Equal(t, core.KindLookAround, action.Kind)
}

func TestRuleSet_Decide_NoMatch(t *testing.T) {
	rs, err := NewRuleSet([]Rule{{When: `false`, Kind: core.KindMove}})
	require.NoError(t, err)

	_, ok := rs.Decide(map[string]any{}, testSnapshot(t))
	assert.False(t, ok)
}

func TestResolveParam_HereLookups(t *testing.T) {
	snap := testSnapshot(t)

	assert.Equal(t, "Town Square", resolveParam("$here.connection", snap), "prefers unvisited places")
	assert.Equal(t, "barkeep", resolveParam("$here.npc", snap))
	assert.Equal(t, "notice board", resolveParam("$here.item", snap))
	assert.Equal(t, "literal", resolveParam("literal", snap))
}
