package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/dice"
	"github.com/hupe1980/storymesh/logging"
	"github.com/hupe1980/storymesh/narration"
)

// checkDifficulty is the baseline difficulty for interact/use checks.
const checkDifficulty = 10

// NarratorOptions configure a Narrator.
type NarratorOptions struct {
	// World seeds the narrator-owned world state. Defaults to
	// core.DefaultWorldConfig.
	World core.WorldConfig
	// Service optionally enriches scene and dialog text. Nil keeps every
	// resolution on the deterministic path.
	Service narration.Service
	// Timeout bounds each narration call.
	Timeout time.Duration
	// Seed drives the narrator's dice; a fixed seed replays a session.
	Seed int64
	// Retention caps the narrator's memory (see CoreOptions).
	Retention int
	// Logger receives the narrator's diagnostics.
	Logger logging.Logger
}

// Narrator is the world-owning agent. It is the only component that mutates
// WorldState, and every mutation funnels through applyDelta so a resolved
// Result carries the exact changes it caused.
//
// Resolution is a dispatch table over action kinds. Recognized kinds with
// deterministic outcomes (look-around, move) never consult the narration
// service; dialog and scene text may, and degrade to deterministic fallback
// text when the call fails or times out. Unrecognized kinds resolve to a
// neutral no-op and a diagnostic notice in the narrator's own memory — they
// are never an error.
type Narrator struct {
	Core

	world   *core.WorldState
	svc     narration.Service
	timeout time.Duration
	roller  *dice.Roller

	// questPrograms holds the pre-compiled completion condition per quest
	// name, evaluated against the snapshot state map at round end.
	questPrograms map[string]*vm.Program
}

// NewNarrator constructs the narrator and its world.
func NewNarrator(name string, optFns ...func(o *NarratorOptions)) (*Narrator, error) {
	opts := NarratorOptions{
		World:     core.DefaultWorldConfig(),
		Timeout:   narration.DefaultTimeout,
		Retention: DefaultRetention,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	world, err := core.NewWorldState(opts.World)
	if err != nil {
		return nil, fmt.Errorf("narrator %q: %w", name, err)
	}

	programs := make(map[string]*vm.Program)
	for _, q := range opts.World.Quests {
		if q.Condition == "" {
			continue
		}
		program, err := expr.Compile(q.Condition, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("%w: quest %q condition %q: %v", core.ErrConfiguration, q.Name, q.Condition, err)
		}
		programs[q.Name] = program
	}

	return &Narrator{
		Core: NewCore(name, "narrator", func(o *CoreOptions) {
			o.Retention = opts.Retention
			o.Logger = opts.Logger
		}),
		world:         world,
		svc:           opts.Service,
		timeout:       opts.Timeout,
		roller:        dice.NewRoller(opts.Seed),
		questPrograms: programs,
	}, nil
}

// WorldSnapshot returns an immutable copy of the current world.
func (n *Narrator) WorldSnapshot() core.Snapshot { return n.world.Snapshot() }

// DescribeScene produces the narrative description of the current location.
// The prompt is built deterministically from world state; when the narration
// call fails or times out the returned text is the deterministic fallback and
// the provenance says so. DescribeScene never blocks past the configured
// timeout and never fails.
func (n *Narrator) DescribeScene(ctx context.Context) (string, core.Provenance) {
	snap := n.world.Snapshot()
	start := time.Now()

	text, prov, err := narration.GenerateOr(ctx, n.svc, n.scenePrompt(snap), n.timeout, func() string {
		return fallbackScene(snap)
	})
	if err != nil {
		n.RecordEvent(core.NewNoticeEvent(n.Name(), 0, fmt.Sprintf("scene narration degraded: %v", err)))
	}
	n.Logger().Debug("scene described", "narrator", n.Name(), "provenance", string(prov), "duration", time.Since(start))
	return text, prov
}

// resolver handles one action kind against a frozen snapshot, returning the
// result and the world delta to apply.
type resolver func(ctx context.Context, snap core.Snapshot, action core.Action) (core.Result, map[string]any)

// ResolveAction resolves a single actor action against live world state.
//
// The actor decided on a snapshot frozen at round start; ResolveAction
// re-validates against the world as it is now, so a stale decision loses its
// effect (a neutral or failure result) but can never corrupt the world. The
// delta produced by the handler is applied in one explicit step before the
// result is emitted; on a delta application error the result is downgraded
// rather than half-applied.
func (n *Narrator) ResolveAction(ctx context.Context, action core.Action) core.Result {
	table := map[core.ActionKind]resolver{
		core.KindLookAround: n.resolveLook,
		core.KindMove:       n.resolveMove,
		core.KindAskNPC:     n.resolveAskNPC,
		core.KindInteract:   n.resolveInteract,
		core.KindUseItem:    n.resolveUse,
	}

	snap := n.world.Snapshot()

	handle, ok := table[action.Kind]
	if !ok {
		n.RecordEvent(core.NewNoticeEvent(n.Name(), 0, fmt.Sprintf("unrecognized action kind %q from %s", action.Kind, action.Actor)))
		return core.Result{
			Description: "Nothing happens.",
			Outcome:     core.OutcomeNeutral,
			Provenance:  core.ProvenanceDeterministic,
		}
	}

	result, delta := handle(ctx, snap, action)
	if delta == nil {
		delta = map[string]any{}
	}
	n.accumulateQuestProgress(snap, result.Description, delta)

	return n.applyDelta(result, delta)
}

// applyDelta is the single mutation step: the handler's delta hits the world
// exactly once, and only a fully applied delta travels on the result.
func (n *Narrator) applyDelta(result core.Result, delta map[string]any) core.Result {
	if len(delta) == 0 {
		return result
	}
	if err := n.world.Apply(delta); err != nil {
		n.RecordEvent(core.NewNoticeEvent(n.Name(), 0, fmt.Sprintf("delta application refused: %v", err)))
		result.Outcome = core.OutcomeNeutral
		result.StateDelta = nil
		return result
	}
	result.StateDelta = delta
	return result
}

func (n *Narrator) resolveLook(_ context.Context, snap core.Snapshot, _ core.Action) (core.Result, map[string]any) {
	return core.Result{
		Description: fallbackScene(snap),
		Outcome:     core.OutcomeSuccess,
		Provenance:  core.ProvenanceDeterministic,
	}, nil
}

func (n *Narrator) resolveMove(_ context.Context, snap core.Snapshot, action core.Action) (core.Result, map[string]any) {
	dest := action.Param("destination")
	if dest == "" {
		return core.Result{
			Description: fmt.Sprintf("%s hesitates, unsure where to go.", action.Actor),
			Outcome:     core.OutcomeFailure,
			Provenance:  core.ProvenanceDeterministic,
		}, nil
	}

	here := snap.Here()
	for _, conn := range here.ConnectedTo {
		if conn == dest {
			return core.Result{
				Description: fmt.Sprintf("%s leaves %s and arrives at %s.", action.Actor, snap.Location, dest),
				Outcome:     core.OutcomeSuccess,
				Provenance:  core.ProvenanceDeterministic,
			}, map[string]any{core.DeltaLocation: dest}
		}
	}

	return core.Result{
		Description: fmt.Sprintf("There is no way from %s to %s.", snap.Location, dest),
		Outcome:     core.OutcomeFailure,
		Provenance:  core.ProvenanceDeterministic,
	}, nil
}

func (n *Narrator) resolveAskNPC(ctx context.Context, snap core.Snapshot, action core.Action) (core.Result, map[string]any) {
	name := action.Param("npc")
	npc, ok := snap.NPCs[name]
	if !ok || npc.Location != snap.Location {
		return core.Result{
			Description: fmt.Sprintf("%s looks around for %s, but they are nowhere to be seen.", action.Actor, name),
			Outcome:     core.OutcomeFailure,
			Provenance:  core.ProvenanceDeterministic,
		}, nil
	}

	lore := npc.Lore
	if lore == "" {
		lore = fmt.Sprintf("%s has little to say.", npc.Name)
	}
	deterministic := fmt.Sprintf("%s the %s says: %q", npc.Name, npc.Role, lore)

	text, prov, err := narration.GenerateOr(ctx, n.svc, n.dialogPrompt(snap, npc, action), n.timeout, func() string {
		return deterministic
	})
	if err != nil {
		n.RecordEvent(core.NewNoticeEvent(n.Name(), 0, fmt.Sprintf("dialog narration degraded: %v", err)))
	}

	// Quest clues live in the lore; progress keys off it even when the
	// spoken line was generated and phrased the clue differently.
	delta := map[string]any{core.DeltaProgress + "conversations": 1}
	n.accumulateQuestProgress(snap, lore, delta)

	return core.Result{
		Description: text,
		Outcome:     core.OutcomeSuccess,
		Provenance:  prov,
	}, delta
}

func (n *Narrator) resolveInteract(_ context.Context, snap core.Snapshot, action core.Action) (core.Result, map[string]any) {
	target := action.Param("target")
	if !itemAt(snap, target) {
		return core.Result{
			Description: "Nothing special happens.",
			Outcome:     core.OutcomeNeutral,
			Provenance:  core.ProvenanceDeterministic,
		}, nil
	}

	check, err := n.roller.AbilityCheck(action.Modifier, checkDifficulty)
	if err != nil {
		n.RecordEvent(core.NewNoticeEvent(n.Name(), 0, fmt.Sprintf("ability check refused: %v", err)))
		return core.Result{
			Description: fmt.Sprintf("%s fumbles with the %s.", action.Actor, target),
			Outcome:     core.OutcomeNeutral,
			Provenance:  core.ProvenanceDeterministic,
		}, nil
	}

	if !check.Success() {
		return core.Result{
			Description: fmt.Sprintf("%s tries the %s, but nothing comes of it (rolled %d).", action.Actor, target, check.Total),
			Outcome:     core.OutcomeFailure,
			Provenance:  core.ProvenanceDeterministic,
		}, nil
	}

	desc := fmt.Sprintf("%s examines the %s closely and finds something worth noting (rolled %d).", action.Actor, target, check.Total)
	if check.Critical() {
		desc = fmt.Sprintf("%s examines the %s and uncovers a detail everyone else missed (natural 20).", action.Actor, target)
	}
	return core.Result{
		Description: desc,
		Outcome:     core.OutcomeSuccess,
		Provenance:  core.ProvenanceDeterministic,
	}, map[string]any{core.DeltaProgress + "discoveries": 1}
}

func (n *Narrator) resolveUse(_ context.Context, snap core.Snapshot, action core.Action) (core.Result, map[string]any) {
	item := action.Param("item")
	if !itemAt(snap, item) {
		return core.Result{
			Description: fmt.Sprintf("There is no %s here to use.", item),
			Outcome:     core.OutcomeFailure,
			Provenance:  core.ProvenanceDeterministic,
		}, nil
	}

	check, err := n.roller.AbilityCheck(action.Modifier, checkDifficulty)
	if err != nil || !check.Success() {
		return core.Result{
			Description: fmt.Sprintf("%s tries to make use of the %s without much luck.", action.Actor, item),
			Outcome:     core.OutcomeFailure,
			Provenance:  core.ProvenanceDeterministic,
		}, nil
	}

	return core.Result{
		Description: fmt.Sprintf("%s puts the %s to good use.", action.Actor, item),
		Outcome:     core.OutcomeSuccess,
		Provenance:  core.ProvenanceDeterministic,
	}, map[string]any{core.DeltaItemRemove + snap.Location: item}
}

// accumulateQuestProgress bumps a quest's progress when the resolution text
// mentions one of its clues. The bump rides the handler's delta so it lands
// in the same applyDelta step.
func (n *Narrator) accumulateQuestProgress(snap core.Snapshot, description string, delta map[string]any) {
	lowered := strings.ToLower(description)
	for _, q := range snap.Quests {
		if q.Complete {
			continue
		}
		for _, clue := range q.Clues {
			if strings.Contains(lowered, strings.ToLower(clue)) {
				delta[core.DeltaQuestProgress+q.Name] = 1
				break
			}
		}
	}
}

// EndRound is the narrator's between-rounds tick: the time of day advances,
// NPCs drift between connected places, and quest completion conditions are
// re-evaluated against the fresh snapshot. Everything goes through one delta.
func (n *Narrator) EndRound(round int) error {
	snap := n.world.Snapshot()
	delta := map[string]any{core.DeltaTimeOfDay: nextTimeOfDay(snap.TimeOfDay)}

	n.driftNPCs(snap, delta)

	for name, program := range n.questPrograms {
		q, ok := snap.Quest(name)
		if !ok || q.Complete {
			continue
		}
		out, err := expr.Run(program, snap.StateMap())
		if err != nil {
			n.RecordEvent(core.NewNoticeEvent(n.Name(), round, fmt.Sprintf("quest %q condition error: %v", name, err)))
			continue
		}
		if done, _ := out.(bool); done {
			delta[core.DeltaQuestComplete+name] = true
			n.Logger().Info("quest completed", "quest", name, "round", round)
		}
	}

	if err := n.world.Apply(delta); err != nil {
		return fmt.Errorf("end of round %d: %w", round, err)
	}
	return nil
}

// driftNPCs occasionally moves an NPC to a connected place. Rolls go through
// the session roller, so drift replays identically from the same seed.
func (n *Narrator) driftNPCs(snap core.Snapshot, delta map[string]any) {
	names := make([]string, 0, len(snap.NPCs))
	for name := range snap.NPCs {
		names = append(names, name)
	}
	// Map iteration order is random; roll in a stable order instead.
	sort.Strings(names)

	for _, name := range names {
		npc := snap.NPCs[name]
		place, ok := snap.Place(npc.Location)
		if !ok || len(place.ConnectedTo) == 0 {
			continue
		}
		roll, err := n.roller.Roll(20)
		if err != nil || roll < 18 {
			continue
		}
		pick, err := n.roller.Roll(len(place.ConnectedTo))
		if err != nil {
			continue
		}
		delta[core.DeltaNPCLocation+name] = place.ConnectedTo[pick-1]
	}
}

func nextTimeOfDay(current string) string {
	for i, t := range core.TimesOfDay {
		if t == current {
			return core.TimesOfDay[(i+1)%len(core.TimesOfDay)]
		}
	}
	return core.TimesOfDay[0]
}

func itemAt(snap core.Snapshot, item string) bool {
	if item == "" {
		return false
	}
	for _, it := range snap.Here().Items {
		if it == item {
			return true
		}
	}
	return false
}

// scenePrompt builds the generation request for the opening scene. Fields are
// emitted in a fixed order so the same world always yields the same prompt.
func (n *Narrator) scenePrompt(snap core.Snapshot) narration.Prompt {
	here := snap.Here()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Location: %s\n", snap.Location)
	fmt.Fprintf(&sb, "Description: %s\n", here.Description)
	fmt.Fprintf(&sb, "Atmosphere: %s\n", here.Atmosphere)
	fmt.Fprintf(&sb, "Time of day: %s, weather: %s\n", snap.TimeOfDay, snap.Weather)
	if npcs := snap.NPCsAt(snap.Location); len(npcs) > 0 {
		names := make([]string, len(npcs))
		for i, npc := range npcs {
			names[i] = npc.Name
		}
		fmt.Fprintf(&sb, "Present: %s\n", strings.Join(names, ", "))
	}
	if len(here.Items) > 0 {
		fmt.Fprintf(&sb, "Notable: %s\n", strings.Join(here.Items, ", "))
	}
	sb.WriteString("Describe this scene in two or three vivid sentences.")

	return narration.Prompt{
		System: "You are the narrator of a fantasy adventure. Set scenes concisely and atmospherically.",
		Text:   sb.String(),
	}
}

// dialogPrompt builds the generation request for an NPC reply.
func (n *Narrator) dialogPrompt(snap core.Snapshot, npc core.NPC, action core.Action) narration.Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "NPC: %s, a %s at the %s.\n", npc.Name, npc.Role, npc.Location)
	if npc.Lore != "" {
		fmt.Fprintf(&sb, "What they know: %s\n", npc.Lore)
	}
	fmt.Fprintf(&sb, "%s approaches and asks them a question.\n", action.Actor)
	sb.WriteString("Write the NPC's spoken reply in one or two sentences. Work in what they know.")

	return narration.Prompt{
		System: "You voice non-player characters in a fantasy adventure. Stay in character.",
		Text:   sb.String(),
	}
}

// fallbackScene derives a scene description from world state alone. It is
// the deterministic stand-in for a failed scene narration and the canonical
// look-around text.
func fallbackScene(snap core.Snapshot) string {
	here := snap.Here()

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are at the %s.", snap.Location)
	if here.Description != "" {
		fmt.Fprintf(&sb, " %s.", here.Description)
	}
	fmt.Fprintf(&sb, " It is %s and the weather is %s.", snap.TimeOfDay, snap.Weather)
	if npcs := snap.NPCsAt(snap.Location); len(npcs) > 0 {
		names := make([]string, len(npcs))
		for i, npc := range npcs {
			names[i] = npc.Name
		}
		fmt.Fprintf(&sb, " You can see %s.", strings.Join(names, ", "))
	}
	if len(here.Items) > 0 {
		fmt.Fprintf(&sb, " Nearby: %s.", strings.Join(here.Items, ", "))
	}
	return sb.String()
}
