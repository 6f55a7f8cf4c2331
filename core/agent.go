package core

// Agent defines the capability set shared by every session participant.
//
// Narrator and actor variants satisfy it by composing the same building
// blocks (identity, memory, default response) rather than inheriting from a
// common base. The round engine relies only on this surface plus the
// variant-specific operations (scene description, action decisions).
//
// Implementations must:
//   - Treat recorded events as immutable
//   - Keep RecordEvent infallible (memory appends cannot be refused)
//   - Validate RecentMemories limits (negative fails with ErrInvalidArgument)
type Agent interface {
	// Name returns the agent's unique identifier within a session.
	Name() string

	// RecordEvent appends an event to the agent's memory.
	RecordEvent(ev Event)

	// RecentMemories returns the most recent min(limit, stored) events in
	// insertion order. Negative limits fail with ErrInvalidArgument.
	RecentMemories(limit int) ([]Event, error)

	// DefaultResponse produces the agent's canned acknowledgment for an
	// incoming message from sender. Pure: no memory or state access.
	DefaultResponse(sender string) string
}

// AgentInfo carries identifying details about an agent used in logs & events.
// Name is the external identifier; Role categorizes the variant ("narrator", "actor").
type AgentInfo struct{ Name, Role string }
