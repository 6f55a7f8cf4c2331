package agent

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/hupe1980/storymesh/core"
)

// Rule pairs a boolean condition with the action an actor takes when it
// holds. Conditions are expr programs evaluated against the actor's decision
// environment (see Actor.decisionEnv); the first matching rule wins.
type Rule struct {
	// When is the guard expression, e.g. `hp < 5 && location != "Tavern"`.
	When string
	// Kind of action to take when the guard holds.
	Kind core.ActionKind
	// Parameters for the action. Values support a single lookup form:
	// "$here.connection" picks the first unvisited (else first) connection,
	// "$here.npc" the first NPC at the current place, "$here.item" the
	// first item lying there. Anything else is passed through literally.
	Parameters map[string]string
}

// RuleSet holds pre-compiled decision rules. Compile once, decide many times.
type RuleSet struct {
	rules    []Rule
	programs []*vm.Program
}

// NewRuleSet compiles the rules. A rule with an empty When always matches,
// which makes it a natural terminal entry.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	rs := &RuleSet{
		rules:    append([]Rule{}, rules...),
		programs: make([]*vm.Program, len(rules)),
	}
	for i, r := range rules {
		if r.When == "" {
			continue
		}
		program, err := expr.Compile(r.When, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d condition %q: %v", core.ErrConfiguration, i, r.When, err)
		}
		rs.programs[i] = program
	}
	return rs, nil
}

// Decide evaluates the rules against env in order and returns the action of
// the first rule whose guard holds. Rules whose guard fails to evaluate are
// skipped rather than treated as matches.
func (rs *RuleSet) Decide(env map[string]any, world core.Snapshot) (core.Action, bool) {
	for i, r := range rs.rules {
		if rs.programs[i] != nil {
			out, err := expr.Run(rs.programs[i], env)
			if err != nil {
				continue
			}
			if ok, _ := out.(bool); !ok {
				continue
			}
		}

		action := core.Action{Kind: r.Kind}
		for k, v := range r.Parameters {
			action = action.WithParam(k, resolveParam(v, world))
		}
		return action, true
	}
	return core.Action{}, false
}

// resolveParam expands the "$here.*" lookup forms against the snapshot.
func resolveParam(value string, world core.Snapshot) string {
	here := world.Here()
	switch value {
	case "$here.connection":
		for _, conn := range here.ConnectedTo {
			if p, ok := world.Place(conn); ok && !p.Visited {
				return conn
			}
		}
		if len(here.ConnectedTo) > 0 {
			return here.ConnectedTo[0]
		}
		return ""
	case "$here.npc":
		if npcs := world.NPCsAt(world.Location); len(npcs) > 0 {
			return npcs[0].Name
		}
		return ""
	case "$here.item":
		if len(here.Items) > 0 {
			return here.Items[0]
		}
		return ""
	default:
		return value
	}
}

// DefaultRules is the baseline decision policy: question whoever is around,
// poke at whatever is lying there, push into unvisited territory, and fall
// back to looking around.
func DefaultRules() []Rule {
	return []Rule{
		{When: `npcs_here > 0 && turns_here <= 1`, Kind: core.KindAskNPC, Parameters: map[string]string{"npc": "$here.npc"}},
		{When: `items_here > 0 && turns_here == 2`, Kind: core.KindInteract, Parameters: map[string]string{"target": "$here.item"}},
		{When: `turns_here >= 3 && connections > 0`, Kind: core.KindMove, Parameters: map[string]string{"destination": "$here.connection"}},
		{Kind: core.KindLookAround},
	}
}

// goalFallback maps goal keywords to an action kind, mirroring the shape of
// the rule table but requiring no compilation. Used when no rule matched.
func goalFallback(goal string, world core.Snapshot) core.Action {
	goal = strings.ToLower(goal)
	switch {
	case strings.Contains(goal, "talk") || strings.Contains(goal, "ask") || strings.Contains(goal, "find"):
		if npcs := world.NPCsAt(world.Location); len(npcs) > 0 {
			return core.Action{Kind: core.KindAskNPC}.WithParam("npc", npcs[0].Name)
		}
	case strings.Contains(goal, "explore") || strings.Contains(goal, "travel"):
		if dest := resolveParam("$here.connection", world); dest != "" {
			return core.Action{Kind: core.KindMove}.WithParam("destination", dest)
		}
	}
	return core.Action{Kind: core.KindLookAround}
}
