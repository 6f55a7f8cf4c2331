package core

// ActionKind identifies the structural category of an action. The narrator's
// resolution table dispatches on it; kinds outside the recognized vocabulary
// resolve to a neutral no-op rather than an error.
type ActionKind string

const (
	// KindLookAround surveys the actor's current location.
	KindLookAround ActionKind = "look-around"
	// KindMove travels to a connected location. Parameter "destination".
	KindMove ActionKind = "move"
	// KindAskNPC questions a character at the current location. Parameter "npc".
	KindAskNPC ActionKind = "ask-npc"
	// KindInteract engages an object at the current location. Parameter "target".
	KindInteract ActionKind = "interact"
	// KindUseItem applies an item found at the current location. Parameter "item".
	KindUseItem ActionKind = "use"
)

// Recognized reports whether k belongs to the structural action vocabulary.
func (k ActionKind) Recognized() bool {
	switch k {
	case KindLookAround, KindMove, KindAskNPC, KindInteract, KindUseItem:
		return true
	default:
		return false
	}
}

// Action is an actor's declared intent for one turn. Parameters carry
// kind-specific arguments; Modifier is the ability modifier the narrator
// applies when a resolution involves a check; Flavor is an optional generated
// phrase describing how the actor performs the action.
type Action struct {
	Kind       ActionKind        `json:"kind"`
	Actor      string            `json:"actor"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Modifier   int               `json:"modifier"`
	Flavor     string            `json:"flavor,omitempty"`
}

// Param returns the named parameter, or "" when absent.
func (a Action) Param(key string) string {
	if a.Parameters == nil {
		return ""
	}
	return a.Parameters[key]
}

// WithParam returns a copy of the action with the parameter set.
func (a Action) WithParam(key, value string) Action {
	params := make(map[string]string, len(a.Parameters)+1)
	for k, v := range a.Parameters {
		params[k] = v
	}
	params[key] = value
	a.Parameters = params
	return a
}

// Provenance distinguishes where narrative text came from, so hosts can tell
// generated prose apart from deterministic or degraded output.
type Provenance string

const (
	// ProvenanceDeterministic text was derived from world state alone;
	// no narration service was consulted.
	ProvenanceDeterministic Provenance = "deterministic"
	// ProvenanceGenerated text came from a successful narration call.
	ProvenanceGenerated Provenance = "generated"
	// ProvenanceFallback text replaced a failed or timed-out narration call.
	ProvenanceFallback Provenance = "fallback"
)

// Outcome shades how a resolution went for the acting agent.
type Outcome string

const (
	// OutcomeSuccess marks an action that achieved its intent.
	OutcomeSuccess Outcome = "success"
	// OutcomeNeutral marks an action that resolved without effect.
	OutcomeNeutral Outcome = "neutral"
	// OutcomeFailure marks an action that was refused or went wrong.
	OutcomeFailure Outcome = "failure"
)

// Result is the narrator's resolution of a single action. StateDelta lists
// the world mutations the resolution produced; it has already been applied by
// the world owner when the result is emitted and is carried for transparency.
type Result struct {
	Description string         `json:"description"`
	Outcome     Outcome        `json:"outcome"`
	Provenance  Provenance     `json:"provenance"`
	StateDelta  map[string]any `json:"state_delta,omitempty"`
}
