package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/storymesh/agent"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/logging"
	"github.com/hupe1980/storymesh/session"
)

// Phase names a state of the round engine's lifecycle.
type Phase string

const (
	// PhaseIdle: narrator and actors constructed, no scene emitted yet.
	PhaseIdle Phase = "idle"
	// PhaseSceneInitialized: the opening scene has been broadcast.
	PhaseSceneInitialized Phase = "scene_initialized"
	// PhaseRoundRunning: actors are being processed in registration order.
	PhaseRoundRunning Phase = "round_running"
	// PhaseRoundComplete: the last actor of the round has been resolved.
	PhaseRoundComplete Phase = "round_complete"
	// PhaseTerminated is final; no transitions leave it.
	PhaseTerminated Phase = "terminated"
)

// Backpressure selects what Run does when the record channel is full.
type Backpressure string

const (
	// BackpressureBlock makes the engine wait for the consumer. Default:
	// no record is ever lost, a stalled consumer stalls the session.
	BackpressureBlock Backpressure = "block"
	// BackpressureDrop discards the record and logs a warning. The
	// transcript store still receives every record; only the live stream
	// is lossy.
	BackpressureDrop Backpressure = "drop"
)

// DefaultRecordBufferSize bounds the live record channel. The channel is
// always bounded; an unbounded queue under a stalled consumer grows without
// limit.
const DefaultRecordBufferSize = 100

// Options configure an Engine instance using the functional options pattern.
type Options struct {
	// Rounds to run before the session terminates. Must be positive.
	Rounds int
	// SessionID identifies the transcript; defaults to a new UUID.
	SessionID string
	// TranscriptStore receives every record in emission order. Defaults to
	// an in-memory store.
	TranscriptStore core.TranscriptStore
	// RecordBufferSize bounds the live record channel.
	RecordBufferSize int
	// Backpressure selects the full-channel policy for the live stream.
	Backpressure Backpressure
	// Callbacks hook into lifecycle points (see callbacks.go).
	Callbacks *CallbackRegistry
	// Logger receives engine diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Engine is the session coordinator: it owns round sequencing, the bounded
// record handoff and the termination policy. It composes one narrator and an
// ordered list of actors; it never mutates world or actor state itself, it
// only sequences calls and records results.
//
// The engine runs a single logical thread of control. The only suspension
// points are the narration calls inside the narrator and the actors, each
// bounded by its own timeout, so a round always completes in bounded time
// even with the narration service down.
type Engine struct {
	narrator *agent.Narrator
	actors   []*agent.Actor

	rounds       int
	sessionID    string
	store        core.TranscriptStore
	bufferSize   int
	backpressure Backpressure
	callbacks    *CallbackRegistry
	logger       logging.Logger

	mu      sync.RWMutex
	phase   Phase
	round   int
	scene   string
	started bool
}

// New validates the session composition and constructs the engine. A missing
// narrator, an empty actor list, a duplicate agent name or a non-positive
// round count is a configuration error — fatal before the first round, the
// only error kind that ever is.
func New(narrator *agent.Narrator, actors []*agent.Actor, optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{
		Rounds:           3,
		RecordBufferSize: DefaultRecordBufferSize,
		Backpressure:     BackpressureBlock,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SessionID == "" {
		opts.SessionID = core.NewID()
	}
	if opts.TranscriptStore == nil {
		opts.TranscriptStore = session.NewInMemoryStore()
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackRegistry()
	}
	if opts.RecordBufferSize <= 0 {
		opts.RecordBufferSize = DefaultRecordBufferSize
	}

	if narrator == nil {
		return nil, fmt.Errorf("%w: session needs a narrator", core.ErrConfiguration)
	}
	if len(actors) == 0 {
		return nil, fmt.Errorf("%w: session needs at least one actor", core.ErrConfiguration)
	}
	seen := map[string]struct{}{narrator.Name(): {}}
	for _, a := range actors {
		if _, dup := seen[a.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate agent name %q", core.ErrConfiguration, a.Name())
		}
		seen[a.Name()] = struct{}{}
	}
	if opts.Rounds <= 0 {
		return nil, fmt.Errorf("%w: round limit %d must be positive", core.ErrConfiguration, opts.Rounds)
	}
	switch opts.Backpressure {
	case BackpressureBlock, BackpressureDrop:
	default:
		return nil, fmt.Errorf("%w: unknown backpressure policy %q", core.ErrConfiguration, opts.Backpressure)
	}

	return &Engine{
		narrator:     narrator,
		actors:       append([]*agent.Actor{}, actors...),
		rounds:       opts.Rounds,
		sessionID:    opts.SessionID,
		store:        opts.TranscriptStore,
		bufferSize:   opts.RecordBufferSize,
		backpressure: opts.Backpressure,
		callbacks:    opts.Callbacks,
		logger:       opts.Logger,
		phase:        PhaseIdle,
	}, nil
}

// SessionID returns the transcript identifier.
func (e *Engine) SessionID() string { return e.sessionID }

// Phase returns the engine's current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// Round returns the last completed round; zero before round 1 finishes.
func (e *Engine) Round() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

func (e *Engine) setRound(r int) {
	e.mu.Lock()
	e.round = r
	e.mu.Unlock()
}

// Run executes the session and streams its records. The record channel is
// bounded by RecordBufferSize and closed when the session terminates; the
// error channel carries at most one terminal error. An engine runs once.
func (e *Engine) Run(ctx context.Context) (<-chan core.Record, <-chan error) {
	recordsCh := make(chan core.Record, e.bufferSize)
	errorsCh := make(chan error, 1)

	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		errorsCh <- fmt.Errorf("%w: engine already ran", core.ErrConfiguration)
		close(recordsCh)
		close(errorsCh)
		return recordsCh, errorsCh
	}
	e.started = true
	e.mu.Unlock()

	go func() {
		defer close(recordsCh)
		defer close(errorsCh)

		if err := e.run(ctx, recordsCh); err != nil {
			e.callbacks.fire(CallbackOnError, CallbackPayload{SessionID: e.sessionID, Err: err})
			errorsCh <- err
		}
		e.setPhase(PhaseTerminated)
	}()

	return recordsCh, errorsCh
}

// RunSync executes the session and returns the collected records.
func (e *Engine) RunSync(ctx context.Context) ([]core.Record, error) {
	recordsCh, errorsCh := e.Run(ctx)

	var records []core.Record
	for rec := range recordsCh {
		records = append(records, rec)
	}
	if err := <-errorsCh; err != nil {
		return records, err
	}
	return records, nil
}

func (e *Engine) run(ctx context.Context, recordsCh chan<- core.Record) error {
	if err := e.initializeScene(ctx, recordsCh); err != nil {
		return err
	}

	for round := 1; ; round++ {
		e.setPhase(PhaseRoundRunning)
		e.callbacks.fire(CallbackBeforeRound, CallbackPayload{SessionID: e.sessionID, Round: round})

		if err := e.runRound(ctx, round, recordsCh); err != nil {
			return err
		}

		e.setPhase(PhaseRoundComplete)
		e.setRound(round)

		if err := e.narrator.EndRound(round); err != nil {
			// A refused world tick is diagnostic, not fatal: the round
			// itself completed and its records are already out.
			e.logger.Warn("end-of-round tick refused", "session", e.sessionID, "round", round, "error", err)
		}
		e.callbacks.fire(CallbackAfterRound, CallbackPayload{SessionID: e.sessionID, Round: round})

		if round >= e.rounds {
			e.logger.Info("round limit reached", "session", e.sessionID, "rounds", round)
			return nil
		}
		if e.narrator.WorldSnapshot().TerminalQuestComplete() {
			e.logger.Info("terminal quest complete", "session", e.sessionID, "round", round)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("session canceled after round %d: %w", round, err)
		}
	}
}

// initializeScene performs the Idle → SceneInitialized transition: exactly
// one DescribeScene call, broadcast into every agent's memory before round 1.
func (e *Engine) initializeScene(ctx context.Context, recordsCh chan<- core.Record) error {
	scene, prov := e.narrator.DescribeScene(ctx)

	ev := core.NewSceneEvent(e.narrator.Name(), scene, prov)
	e.narrator.RecordEvent(ev)
	for _, a := range e.actors {
		a.RecordEvent(ev)
	}
	e.mu.Lock()
	e.scene = scene
	e.mu.Unlock()

	e.setPhase(PhaseSceneInitialized)
	e.callbacks.fire(CallbackOnScene, CallbackPayload{SessionID: e.sessionID, Scene: scene})

	rec := core.Record{
		Round:  0,
		Actor:  e.narrator.Name(),
		Result: core.Result{Description: scene, Outcome: core.OutcomeNeutral, Provenance: prov},
	}
	return e.emit(ctx, rec, recordsCh)
}

// runRound processes every actor strictly sequentially in registration
// order against one frozen world snapshot. Results are recorded into the
// acting actor's memory, then the narrator's, then the transcript, in that
// order — the per-round result order always equals registration order.
func (e *Engine) runRound(ctx context.Context, round int, recordsCh chan<- core.Record) error {
	scene := e.sceneText()
	snap := e.narrator.WorldSnapshot()

	for _, actor := range e.actors {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("session canceled in round %d: %w", round, err)
		}

		turn := core.TurnContext{Round: round, Scene: scene, World: snap}
		action, err := actor.DecideNextAction(ctx, turn)
		if err != nil {
			// Validation failure here means the engine broke its own
			// contract; nothing downstream can fix that.
			return fmt.Errorf("round %d: %w", round, err)
		}

		e.callbacks.fire(CallbackBeforeTurn, CallbackPayload{SessionID: e.sessionID, Round: round, Actor: actor.Name(), Action: &action})

		result := e.narrator.ResolveAction(ctx, action)

		resultEv := core.NewResultEvent(e.narrator.Name(), round, result)
		actor.RecordEvent(resultEv)
		e.narrator.RecordEvent(resultEv)

		rec := core.Record{Round: round, Actor: actor.Name(), Action: &action, Result: result}
		if err := e.emit(ctx, rec, recordsCh); err != nil {
			return err
		}

		e.callbacks.fire(CallbackAfterTurn, CallbackPayload{SessionID: e.sessionID, Round: round, Actor: actor.Name(), Action: &action, Result: &result})
	}
	return nil
}

// sceneText returns the opening scene captured at initialization.
func (e *Engine) sceneText() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scene
}

// emit persists the record, then hands it to the live stream under the
// configured backpressure policy. The store sees every record regardless of
// policy; only the channel may drop.
func (e *Engine) emit(ctx context.Context, rec core.Record, recordsCh chan<- core.Record) error {
	if err := e.store.Append(e.sessionID, rec); err != nil {
		return fmt.Errorf("append record (round %d, actor %s): %w", rec.Round, rec.Actor, err)
	}

	switch e.backpressure {
	case BackpressureDrop:
		select {
		case recordsCh <- rec:
		default:
			e.logger.Warn("record dropped from live stream", "session", e.sessionID, "round", rec.Round, "actor", rec.Actor)
		}
	default: // BackpressureBlock
		select {
		case recordsCh <- rec:
		case <-ctx.Done():
			return fmt.Errorf("session canceled while emitting round %d: %w", rec.Round, ctx.Err())
		}
	}
	return nil
}
