// Package storymesh provides a high-level façade over the round engine and
// its collaborators (agents, narration backends, transcript stores, logging)
// enabling rapid construction of turn-based narrative sessions. Most
// applications interact with this package by:
//  1. Creating a StoryMesh via New() (optionally overriding the world, the
//     narration service and the transcript store)
//  2. Registering one or more actors
//  3. Running sessions asynchronously (Run) or synchronously (RunSync)
//
// The façade delegates round sequencing to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing: no narration service (deterministic text everywhere), an
// in-memory transcript store and a no-op logger. Production hosts typically
// supply a real backend, a durable store and a structured logger.
package storymesh

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/storymesh/agent"
	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/engine"
	"github.com/hupe1980/storymesh/logging"
	"github.com/hupe1980/storymesh/narration"
	"github.com/hupe1980/storymesh/session"
)

// Options configure the StoryMesh instance.
type Options struct {
	// NarratorName identifies the narrator agent.
	NarratorName string

	// World seeds the narrator-owned world state.
	World core.WorldConfig

	// Service is the narration backend shared by the narrator and all
	// registered actors. Nil keeps every agent on its deterministic path.
	Service narration.Service

	// NarrationTimeout bounds every narration call.
	NarrationTimeout time.Duration

	// Rounds to run per session.
	Rounds int

	// Seed drives the session dice; a fixed seed replays a session.
	Seed int64

	// TranscriptStore receives every record (defaults to in-memory).
	TranscriptStore core.TranscriptStore

	// RecordBufferSize bounds the live record channel.
	RecordBufferSize int

	// Backpressure selects the full-channel policy for the live stream.
	Backpressure engine.Backpressure

	// Callbacks hook into session lifecycle points.
	Callbacks *engine.CallbackRegistry

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// StoryMesh is the high-level façade aggregating the world-owning narrator,
// the registered actors and the session store.
type StoryMesh struct {
	opts     Options
	narrator *agent.Narrator
	actors   []*agent.Actor
}

// New creates a StoryMesh instance with optional overrides. The narrator and
// its world are constructed eagerly, so world misconfiguration surfaces here
// rather than at session start.
func New(optFns ...func(o *Options)) (*StoryMesh, error) {
	opts := Options{
		NarratorName:     "Narrator",
		World:            core.DefaultWorldConfig(),
		NarrationTimeout: narration.DefaultTimeout,
		Rounds:           3,
		Seed:             1,
		RecordBufferSize: engine.DefaultRecordBufferSize,
		Backpressure:     engine.BackpressureBlock,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TranscriptStore == nil {
		opts.TranscriptStore = session.NewInMemoryStore()
	}

	narrator, err := agent.NewNarrator(opts.NarratorName, func(o *agent.NarratorOptions) {
		o.World = opts.World
		o.Service = opts.Service
		o.Timeout = opts.NarrationTimeout
		o.Seed = opts.Seed
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &StoryMesh{opts: opts, narrator: narrator}, nil
}

// RegisterActor constructs an actor wired to the mesh's narration service
// and timeout, then appends it to the registration order. Options passed
// here can still override both.
func (m *StoryMesh) RegisterActor(name string, optFns ...func(o *agent.ActorOptions)) (*agent.Actor, error) {
	merged := append([]func(o *agent.ActorOptions){func(o *agent.ActorOptions) {
		o.Service = m.opts.Service
		o.Timeout = m.opts.NarrationTimeout
		o.Logger = m.opts.Logger
	}}, optFns...)

	actor, err := agent.NewActor(name, merged...)
	if err != nil {
		return nil, err
	}
	m.actors = append(m.actors, actor)
	return actor, nil
}

// Narrator returns the world-owning narrator agent.
func (m *StoryMesh) Narrator() *agent.Narrator { return m.narrator }

// Actors returns the registered actors in registration order.
func (m *StoryMesh) Actors() []*agent.Actor { return append([]*agent.Actor{}, m.actors...) }

// newEngine assembles a single-run engine for one session.
func (m *StoryMesh) newEngine(sessionID string) (*engine.Engine, error) {
	return engine.New(m.narrator, m.actors, func(o *engine.Options) {
		o.Rounds = m.opts.Rounds
		o.SessionID = sessionID
		o.TranscriptStore = m.opts.TranscriptStore
		o.RecordBufferSize = m.opts.RecordBufferSize
		o.Backpressure = m.opts.Backpressure
		o.Callbacks = m.opts.Callbacks
		o.Logger = m.opts.Logger
	})
}

// Run starts a session and streams its records. It returns the session ID,
// the bounded record channel and the terminal error channel.
func (m *StoryMesh) Run(ctx context.Context) (string, <-chan core.Record, <-chan error, error) {
	sessionID := core.NewID()
	eng, err := m.newEngine(sessionID)
	if err != nil {
		return "", nil, nil, err
	}

	recordsCh, errorsCh := eng.Run(ctx)
	return sessionID, recordsCh, errorsCh, nil
}

// RunSync runs a session to completion and returns its records.
func (m *StoryMesh) RunSync(ctx context.Context) (string, []core.Record, error) {
	sessionID := core.NewID()
	eng, err := m.newEngine(sessionID)
	if err != nil {
		return "", nil, err
	}

	records, err := eng.RunSync(ctx)
	if err != nil {
		return sessionID, records, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sessionID, records, nil
}

// Transcript returns a session's persisted records in emission order.
func (m *StoryMesh) Transcript(sessionID string) ([]core.Record, error) {
	return m.opts.TranscriptStore.List(sessionID)
}
