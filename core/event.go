package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is the primary unit of agent memory and inter-agent communication.
// After recording it should be treated as immutable. It captures:
//   - Correlation (ID, Source agent, Round)
//   - Ordering (Sequence, assigned by the owning Memory on append)
//   - The payload (scene text, an action, a result, or a diagnostic notice)
//   - High precision UTC timestamp
//
// Sequence is scoped to a single agent's Memory and increases monotonically
// over the agent's lifetime, even when a retention policy trims old entries.
type Event struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Round     int       `json:"round"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
}

// NewEvent creates an event from 'source' carrying the given payload.
// Sequence is zero until a Memory assigns it on append.
func NewEvent(source string, round int, payload Payload) Event {
	return Event{
		ID:        NewID(),
		Source:    source,
		Round:     round,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// NewSceneEvent constructs a scene-description event authored by the narrator.
func NewSceneEvent(source string, description string, prov Provenance) Event {
	return NewEvent(source, 0, ScenePayload{Description: description, Provenance: prov})
}

// NewActionEvent records an action an actor decided on.
func NewActionEvent(source string, round int, action Action) Event {
	return NewEvent(source, round, ActionPayload{Action: action})
}

// NewResultEvent records a resolved result.
func NewResultEvent(source string, round int, result Result) Event {
	return NewEvent(source, round, ResultPayload{Result: result})
}

// NewNoticeEvent records a diagnostic note (unrecognized action kind,
// degraded narration call). Notices stay in memory; they are never errors.
func NewNoticeEvent(source string, round int, note string) Event {
	return NewEvent(source, round, NoticePayload{Note: note})
}

// NewID generates a new unique identifier for events and sessions.
//
// This function creates a UUID-based unique identifier that can be used
// for event tracking and correlation throughout the framework.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }

// Payload represents the polymorphic content of an Event. Concrete payload
// types implement the unexported isPayload marker enabling a closed set.
type Payload interface{ isPayload() }

// ScenePayload carries a scene description broadcast at session start.
type ScenePayload struct {
	Description string     `json:"description"`
	Provenance  Provenance `json:"provenance"`
}

// isPayload implements the Payload interface for ScenePayload.
func (ScenePayload) isPayload() {}

// ActionPayload carries an actor's decided action.
type ActionPayload struct {
	Action Action `json:"action"`
}

// isPayload implements the Payload interface for ActionPayload.
func (ActionPayload) isPayload() {}

// ResultPayload carries a narrator-resolved result.
type ResultPayload struct {
	Result Result `json:"result"`
}

// isPayload implements the Payload interface for ResultPayload.
func (ResultPayload) isPayload() {}

// NoticePayload carries a diagnostic note recorded alongside the narrative
// flow (e.g. an unrecognized action kind, a degraded narration call).
type NoticePayload struct {
	Note string `json:"note"`
}

// isPayload implements the Payload interface for NoticePayload.
func (NoticePayload) isPayload() {}

// Text extracts a human-readable line from the event payload. Used by hosts
// and log output; returns "" for payloads without natural text.
func (e Event) Text() string {
	switch p := e.Payload.(type) {
	case ScenePayload:
		return p.Description
	case ActionPayload:
		return p.Action.Flavor
	case ResultPayload:
		return p.Result.Description
	case NoticePayload:
		return p.Note
	default:
		return ""
	}
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
// Useful for metrics & numeric serialization paths.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
