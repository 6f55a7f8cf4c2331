// Package engine implements the session coordinator for StoryMesh.
//
// The Engine advances a turn-based narrative session through a small state
// machine:
//
//	Idle → SceneInitialized → RoundRunning → RoundComplete → (RoundRunning | Terminated)
//
// # Responsibilities
//
// Round sequencing:
//   - Exactly one opening scene, broadcast to every agent before round 1
//   - Actors processed strictly sequentially in registration order
//   - One frozen world snapshot per round; the narrator re-validates at
//     resolution time
//   - Round counter incremented exactly once per completed round
//
// Record emission:
//   - Every turn yields one {round, actor, action, result} record
//   - Records are persisted to the transcript store, then streamed on a
//     bounded channel under an explicit backpressure policy (block or drop)
//
// Termination:
//   - Configured round limit, or a completed terminal quest at round end
//   - Terminated is final
//
// # Error Handling
//
// Only configuration errors (missing narrator, empty actor list, duplicate
// names, bad round limit) are fatal, and only at construction. Narration
// failures never reach the engine: narrator and actors degrade to their
// deterministic paths, so a round always completes in bounded time even with
// the narration service entirely unavailable.
//
// # Usage
//
//	eng, err := engine.New(narrator, actors, func(o *engine.Options) {
//	    o.Rounds = 5
//	})
//	if err != nil {
//	    return err
//	}
//	records, errs := eng.Run(ctx)
//	for rec := range records {
//	    render(rec)
//	}
//	if err := <-errs; err != nil {
//	    return err
//	}
package engine
