package core

// Record is one entry in a session's observable output: the opening scene or
// a single resolved turn. Records leave the engine in resolution order, which
// matches actor registration order within each round.
type Record struct {
	// Round the record belongs to; the opening scene is round 0.
	Round int `json:"round"`
	// Actor is the acting agent (the narrator for the opening scene).
	Actor string `json:"actor"`
	// Action the actor took; nil for the opening scene.
	Action *Action `json:"action,omitempty"`
	// Result of resolving the action, or the scene text itself.
	Result Result `json:"result"`
}

// IsScene reports whether the record carries the opening scene.
func (r Record) IsScene() bool { return r.Action == nil }

// TranscriptStore persists the ordered record stream of sessions. The engine
// only appends; hosts read. Implementations must preserve append order and be
// safe for concurrent use.
type TranscriptStore interface {
	// Append adds rec to the session's transcript.
	Append(sessionID string, rec Record) error

	// List returns the session's records in append order.
	List(sessionID string) ([]Record, error)

	// Sessions returns the known session identifiers.
	Sessions() ([]string, error)
}
