package agent

import (
	"fmt"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/logging"
)

// DefaultRetention caps how many events an agent's memory keeps by default.
const DefaultRetention = 100

// CoreOptions configure the shared agent core.
type CoreOptions struct {
	// Retention caps the agent's memory; zero keeps the default, a negative
	// value makes memory unbounded.
	Retention int
	// Logger receives the agent's diagnostics; defaults to NoOpLogger.
	Logger logging.Logger
}

// Core bundles the identity, memory and acknowledgment behavior shared by
// narrator and actor variants. Variants embed it and add their own
// operations; there is no deeper hierarchy. All methods are goroutine-safe.
type Core struct {
	name   string
	role   string
	memory *core.Memory
	logger logging.Logger
}

// NewCore constructs an agent core with the given identity.
func NewCore(name, role string, optFns ...func(o *CoreOptions)) Core {
	opts := CoreOptions{Retention: DefaultRetention}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Retention < 0 {
		opts.Retention = 0
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return Core{
		name:   name,
		role:   role,
		memory: core.NewMemory(opts.Retention),
		logger: opts.Logger,
	}
}

// Name returns the agent's unique identifier within a session.
func (c *Core) Name() string { return c.name }

// Role returns the agent variant ("narrator", "actor").
func (c *Core) Role() string { return c.role }

// Info returns the agent's identifying details for logs and events.
func (c *Core) Info() core.AgentInfo { return core.AgentInfo{Name: c.name, Role: c.role} }

// Logger returns the agent's logger.
func (c *Core) Logger() logging.Logger { return c.logger }

// RecordEvent appends an event to the agent's memory. It never fails;
// retention trimming happens inside the memory itself.
func (c *Core) RecordEvent(ev core.Event) {
	c.memory.Append(ev)
}

// RecentMemories returns the most recent min(limit, stored) events in
// insertion order. Negative limits fail with core.ErrInvalidArgument.
func (c *Core) RecentMemories(limit int) ([]core.Event, error) {
	return c.memory.Recent(limit)
}

// MemoryLen returns how many events the agent currently retains.
func (c *Core) MemoryLen() int { return c.memory.Len() }

// DefaultResponse produces the agent's canned acknowledgment for a message
// from sender. Pure: same inputs, same string, no state touched.
func (c *Core) DefaultResponse(sender string) string {
	return fmt.Sprintf("%s acknowledges message from %s", c.name, sender)
}
