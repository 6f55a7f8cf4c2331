package narration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/storymesh/core"
)

// DefaultTimeout bounds a narration call when the caller does not configure
// its own deadline.
const DefaultTimeout = 10 * time.Second

// Prompt captures the normalized narration input produced by agents.
type Prompt struct {
	// System sets the persona / register for the backend (optional).
	System string `json:"system,omitempty"`
	// Text is the concrete generation request.
	Text string `json:"text"`
}

// Info contains metadata about a narration backend.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Service is the boundary to the text-generation backend. Implementations
// must honor context cancellation; everything else (timeouts, fallback,
// retry policy) is the caller's concern. The session engine never retries:
// one failure triggers immediate fallback.
type Service interface {
	// Generate produces a single completion for the prompt.
	Generate(ctx context.Context, prompt Prompt) (string, error)

	// Info returns information about the backend implementation.
	Info() Info
}

// Generate runs one bounded narration call against svc and classifies
// failures into the module's error taxonomy: deadline expiry becomes
// core.ErrServiceTimeout, everything else core.ErrServiceError. An empty
// completion counts as a service error.
func Generate(ctx context.Context, svc Service, prompt Prompt, timeout time.Duration) (string, error) {
	if svc == nil {
		return "", fmt.Errorf("%w: no narration service configured", core.ErrServiceError)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := svc.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", core.ErrServiceTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", core.ErrServiceError, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", core.ErrServiceError)
	}
	return text, nil
}

// GenerateOr runs Generate and degrades to fallback() when the call fails,
// reporting where the returned text came from. The returned error is the
// recoverable cause behind a fallback (nil on success) so callers can record
// a diagnostic without treating it as fatal. A nil svc is not a failure:
// the session is simply running without narration, so the fallback text is
// deterministic rather than degraded.
func GenerateOr(ctx context.Context, svc Service, prompt Prompt, timeout time.Duration, fallback func() string) (string, core.Provenance, error) {
	if svc == nil {
		return fallback(), core.ProvenanceDeterministic, nil
	}

	text, err := Generate(ctx, svc, prompt, timeout)
	if err != nil {
		return fallback(), core.ProvenanceFallback, err
	}
	return text, core.ProvenanceGenerated, nil
}

// MockService is a lightweight in-memory Service useful for tests & examples.
// It supports canned responses, injected latency and scripted failures.
type MockService struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	failures  int
	latency   time.Duration
	calls     int
}

// NewMockService constructs a MockService.
func NewMockService() *MockService {
	return &MockService{
		info:      Info{Name: "mock", Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a prompt text.
func (m *MockService) AddResponse(promptText, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[promptText] = response
}

// FailNext makes the next n calls fail with a generation error.
func (m *MockService) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// SetLatency delays every call by d, honoring context cancellation.
func (m *MockService) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Calls returns how many times Generate was invoked.
func (m *MockService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Service.
func (m *MockService) Generate(ctx context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	m.calls++
	latency := m.latency
	fail := false
	if m.failures > 0 {
		m.failures--
		fail = true
	}
	response := m.responses[prompt.Text]
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fail {
		return "", fmt.Errorf("mock narration failure")
	}
	if response == "" {
		response = fmt.Sprintf("Mock narration for: %s", prompt.Text)
	}
	return response, nil
}

// Info implements Service.
func (m *MockService) Info() Info { return m.info }
