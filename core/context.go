package core

import "fmt"

// TurnContext is the frozen view handed to an actor for a single decision.
// The engine builds one world snapshot per round and reuses it for every
// actor in that round; the narrator re-validates against live state at
// resolution time, so a stale snapshot can cost an action its effect but
// never corrupts the world.
type TurnContext struct {
	// Round is the current round number, starting at 1.
	Round int
	// Scene is the session's opening scene description.
	Scene string
	// World is the read-only world snapshot for this round.
	World Snapshot
}

// Validate checks the context is well-formed. Actors call it before
// deciding; a malformed context fails with ErrInvalidArgument.
func (tc TurnContext) Validate() error {
	if tc.Round < 1 {
		return fmt.Errorf("%w: turn context round %d", ErrInvalidArgument, tc.Round)
	}
	if tc.Scene == "" {
		return fmt.Errorf("%w: turn context has no scene", ErrInvalidArgument)
	}
	if tc.World.Location == "" {
		return fmt.Errorf("%w: turn context has no world snapshot", ErrInvalidArgument)
	}
	return nil
}
