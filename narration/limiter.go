package narration

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// LimiterOptions configure a LimitedService.
type LimiterOptions struct {
	// RPS paces requests per second; zero leaves calls unpaced.
	RPS float64
	// Burst is the pacing burst size (minimum 1 when RPS is set).
	Burst int
	// MaxCalls caps total calls through this service; zero means unlimited.
	MaxCalls int
}

// LimitedService decorates a Service with request pacing and a total call
// cap. Hosts that pay per generation wrap their backend in one per session.
type LimitedService struct {
	inner   Service
	limiter *rate.Limiter
	max     int

	mu    sync.Mutex
	count int
}

// NewLimitedService wraps inner with the configured limits.
func NewLimitedService(inner Service, optFns ...func(o *LimiterOptions)) *LimitedService {
	opts := LimiterOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	return &LimitedService{inner: inner, limiter: limiter, max: opts.MaxCalls}
}

// Generate implements Service. The call cap is checked before pacing so a
// capped-out service fails fast instead of queueing.
func (l *LimitedService) Generate(ctx context.Context, prompt Prompt) (string, error) {
	l.mu.Lock()
	l.count++
	if l.max > 0 && l.count > l.max {
		l.mu.Unlock()
		return "", fmt.Errorf("exceeded max narration calls: %d", l.max)
	}
	l.mu.Unlock()

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	return l.inner.Generate(ctx, prompt)
}

// Info implements Service.
func (l *LimitedService) Info() Info { return l.inner.Info() }

// Count returns the number of calls made through the service.
func (l *LimitedService) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Remaining returns how many calls are left before hitting the cap, or -1
// when uncapped.
func (l *LimitedService) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1
	}
	return l.max - l.count
}
