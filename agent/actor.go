package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/logging"
	"github.com/hupe1980/storymesh/narration"
)

// Ability names a character ability score.
type Ability string

const (
	AbilityStrength     Ability = "strength"
	AbilityDexterity    Ability = "dexterity"
	AbilityConstitution Ability = "constitution"
	AbilityIntelligence Ability = "intelligence"
	AbilityWisdom       Ability = "wisdom"
	AbilityCharisma     Ability = "charisma"
)

// abilityForKind maps an action kind to the ability it leans on, so the
// narrator can shade resolution with the right modifier.
var abilityForKind = map[core.ActionKind]Ability{
	core.KindLookAround: AbilityWisdom,
	core.KindMove:       AbilityDexterity,
	core.KindAskNPC:     AbilityCharisma,
	core.KindInteract:   AbilityStrength,
	core.KindUseItem:    AbilityIntelligence,
}

// CharacterSheet describes an actor's fixed traits and ability scores.
type CharacterSheet struct {
	Class      string          `json:"class"`
	Race       string          `json:"race"`
	Background string          `json:"background"`
	Level      int             `json:"level"`
	HP         int             `json:"hp"`
	Abilities  map[Ability]int `json:"abilities"`
}

// DefaultCharacterSheet returns a level-1 everyman: all scores 10, 10 HP.
func DefaultCharacterSheet() CharacterSheet {
	return CharacterSheet{
		Class: "adventurer",
		Race:  "human",
		Level: 1,
		HP:    10,
		Abilities: map[Ability]int{
			AbilityStrength:     10,
			AbilityDexterity:    10,
			AbilityConstitution: 10,
			AbilityIntelligence: 10,
			AbilityWisdom:       10,
			AbilityCharisma:     10,
		},
	}
}

// Modifier derives the ability modifier from a score: (score-10)/2 rounded
// toward negative infinity, so a score of 9 yields -1, not 0.
func (cs CharacterSheet) Modifier(a Ability) int {
	score, ok := cs.Abilities[a]
	if !ok {
		score = 10
	}
	d := score - 10
	if d < 0 {
		// Go integer division truncates toward zero; floor it instead.
		return -((-d + 1) / 2)
	}
	return d / 2
}

// ActorOptions configure an Actor beyond its identity.
type ActorOptions struct {
	// Sheet is the character sheet; zero-value fields fall back to
	// DefaultCharacterSheet.
	Sheet CharacterSheet
	// Inventory the actor starts with.
	Inventory []string
	// Goal steers the decision fallback when no rule fires.
	Goal string
	// Rules override DefaultRules as the baseline decision policy.
	Rules []Rule
	// Service optionally enriches decisions with generated flavor text.
	// Nil runs the rule policy alone.
	Service narration.Service
	// Timeout bounds each narration call.
	Timeout time.Duration
	// Retention caps the actor's memory (see CoreOptions).
	Retention int
	// Logger receives the actor's diagnostics.
	Logger logging.Logger
}

// Actor is a character-role agent. Each round it receives a frozen turn
// context and decides exactly one action: a compiled rule table picks the
// structural kind, and an optional narration call adds a flavor phrase on
// top. Narration failure never costs the actor its turn.
//
// Actor owns its state exclusively: the narrator and the round engine read
// actions, never the sheet or inventory behind them.
type Actor struct {
	Core

	sheet     CharacterSheet
	inventory []string
	goal      string
	rules     *RuleSet
	svc       narration.Service
	timeout   time.Duration

	// Decision-local state: how long the actor has lingered at a place.
	lastLocation string
	turnsHere    int
}

// NewActor constructs an actor with the given name.
func NewActor(name string, optFns ...func(o *ActorOptions)) (*Actor, error) {
	opts := ActorOptions{
		Sheet:     DefaultCharacterSheet(),
		Rules:     DefaultRules(),
		Timeout:   narration.DefaultTimeout,
		Retention: DefaultRetention,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Sheet.Abilities == nil {
		opts.Sheet.Abilities = DefaultCharacterSheet().Abilities
	}
	if opts.Sheet.HP == 0 {
		opts.Sheet.HP = DefaultCharacterSheet().HP
	}
	if opts.Sheet.Level == 0 {
		opts.Sheet.Level = 1
	}

	rules, err := NewRuleSet(opts.Rules)
	if err != nil {
		return nil, fmt.Errorf("actor %q: %w", name, err)
	}

	return &Actor{
		Core: NewCore(name, "actor", func(o *CoreOptions) {
			o.Retention = opts.Retention
			o.Logger = opts.Logger
		}),
		sheet:     opts.Sheet,
		inventory: append([]string{}, opts.Inventory...),
		goal:      opts.Goal,
		rules:     rules,
		svc:       opts.Service,
		timeout:   opts.Timeout,
	}, nil
}

// Sheet returns a copy of the actor's character sheet.
func (a *Actor) Sheet() CharacterSheet {
	sheet := a.sheet
	sheet.Abilities = make(map[Ability]int, len(a.sheet.Abilities))
	for k, v := range a.sheet.Abilities {
		sheet.Abilities[k] = v
	}
	return sheet
}

// Inventory returns a copy of the actor's items.
func (a *Actor) Inventory() []string { return append([]string{}, a.inventory...) }

// Goal returns the actor's current goal.
func (a *Actor) Goal() string { return a.goal }

// DecideNextAction returns the actor's single action for the turn.
//
// A malformed context fails with core.ErrInvalidArgument: the engine is
// contractually obliged to supply a well-formed one, so this is a caller bug,
// not a runtime condition to recover from. Everything downstream degrades
// instead of failing: no matching rule falls back to the goal table, and a
// failed enrichment call keeps the rule action and records a notice.
func (a *Actor) DecideNextAction(ctx context.Context, turn core.TurnContext) (core.Action, error) {
	if err := turn.Validate(); err != nil {
		return core.Action{}, fmt.Errorf("actor %q: %w", a.Name(), err)
	}

	a.trackLocation(turn.World.Location)

	action, ok := a.rules.Decide(a.decisionEnv(turn), turn.World)
	if !ok {
		action = goalFallback(a.goal, turn.World)
	}
	action.Actor = a.Name()
	action.Modifier = a.sheet.Modifier(abilityForKind[action.Kind])

	if a.svc != nil {
		action = a.enrich(ctx, turn, action)
	}

	a.RecordEvent(core.NewActionEvent(a.Name(), turn.Round, action))
	return action, nil
}

// trackLocation maintains the lingering counter the default rules key on.
func (a *Actor) trackLocation(location string) {
	if location != a.lastLocation {
		a.lastLocation = location
		a.turnsHere = 0
	}
	a.turnsHere++
}

// decisionEnv flattens the actor's own state and the frozen world snapshot
// into the environment rule guards evaluate against.
func (a *Actor) decisionEnv(turn core.TurnContext) map[string]any {
	here := turn.World.Here()
	env := turn.World.StateMap()
	env["round"] = turn.Round
	env["scene"] = turn.Scene
	env["goal"] = a.goal
	env["hp"] = a.sheet.HP
	env["level"] = a.sheet.Level
	env["inventory"] = append([]string{}, a.inventory...)
	env["turns_here"] = a.turnsHere
	env["npcs_here"] = len(turn.World.NPCsAt(turn.World.Location))
	env["items_here"] = len(here.Items)
	env["connections"] = len(here.ConnectedTo)
	return env
}

// enrich asks the narration service for a short in-character phrase and
// attaches it as the action's flavor. The structural kind the rules picked is
// never overridden; a failed or timed-out call records a notice and moves on.
func (a *Actor) enrich(ctx context.Context, turn core.TurnContext, action core.Action) core.Action {
	prompt := a.decisionPrompt(turn, action)
	text, prov, err := narration.GenerateOr(ctx, a.svc, prompt, a.timeout, func() string { return "" })
	if err != nil {
		a.RecordEvent(core.NewNoticeEvent(a.Name(), turn.Round, fmt.Sprintf("decision enrichment degraded: %v", err)))
		a.Logger().Warn("decision enrichment degraded", "actor", a.Name(), "round", turn.Round, "error", err)
		return action
	}
	if prov == core.ProvenanceGenerated {
		action.Flavor = firstLine(text)
	}
	return action
}

// decisionPrompt builds the enrichment request deterministically from the
// turn context, the sheet and the chosen action.
func (a *Actor) decisionPrompt(turn core.TurnContext, action core.Action) narration.Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Character: %s, a %s %s", a.Name(), a.sheet.Race, a.sheet.Class)
	if a.goal != "" {
		fmt.Fprintf(&sb, " whose goal is to %s", a.goal)
	}
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Scene: %s\n", turn.Scene)
	fmt.Fprintf(&sb, "Location: %s\n", turn.World.Location)
	fmt.Fprintf(&sb, "The character is about to %s", action.Kind)
	if dest := action.Param("destination"); dest != "" {
		fmt.Fprintf(&sb, " to %s", dest)
	}
	if npc := action.Param("npc"); npc != "" {
		fmt.Fprintf(&sb, " with %s", npc)
	}
	sb.WriteString(".\nWrite one short sentence, in third person, describing how they do it.")

	return narration.Prompt{
		System: "You narrate a character's small moment in a fantasy story. One sentence only.",
		Text:   sb.String(),
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
