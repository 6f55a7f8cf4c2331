package engine

import (
	"sync"

	"github.com/hupe1980/storymesh/core"
)

// CallbackType names a lifecycle point callbacks can hook into.
//
// Callbacks let hosts observe the round engine without touching its control
// flow: metrics, live rendering, audit trails. They run synchronously on the
// engine goroutine in registration order, so they should return quickly; a
// callback cannot veto or alter the session.
type CallbackType string

const (
	// CallbackOnScene fires once after the opening scene is broadcast.
	CallbackOnScene CallbackType = "on_scene"

	// CallbackBeforeRound fires as a round starts, before any actor acts.
	CallbackBeforeRound CallbackType = "before_round"

	// CallbackAfterRound fires after the end-of-round world tick.
	CallbackAfterRound CallbackType = "after_round"

	// CallbackBeforeTurn fires after an actor decided, before resolution.
	CallbackBeforeTurn CallbackType = "before_turn"

	// CallbackAfterTurn fires after a result is recorded and emitted.
	CallbackAfterTurn CallbackType = "after_turn"

	// CallbackOnError fires when the session terminates with an error.
	CallbackOnError CallbackType = "on_error"
)

// CallbackPayload carries the context of a lifecycle point. Fields are set
// as applicable: Scene only for on_scene, Action/Result only around turns,
// Err only for on_error.
type CallbackPayload struct {
	SessionID string
	Round     int
	Actor     string
	Scene     string
	Action    *core.Action
	Result    *core.Result
	Err       error
}

// Callback is a single lifecycle hook.
type Callback func(payload CallbackPayload)

// CallbackRegistry holds callbacks per lifecycle point. Safe for concurrent
// registration, though sessions typically wire callbacks before Run.
type CallbackRegistry struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackRegistry constructs an empty registry.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{callbacks: make(map[CallbackType][]Callback)}
}

// Register adds a callback for the given lifecycle point.
func (r *CallbackRegistry) Register(t CallbackType, cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[t] = append(r.callbacks[t], cb)
}

// fire invokes the callbacks registered for t in registration order.
func (r *CallbackRegistry) fire(t CallbackType, payload CallbackPayload) {
	r.mu.RLock()
	cbs := r.callbacks[t]
	r.mu.RUnlock()

	for _, cb := range cbs {
		cb(payload)
	}
}
