package plugin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agentcrew/agentcrew/provider"
)

// RetryOptions configure the retry plugin.
type RetryOptions struct {
	MaxRetries int           // retries per provider call, not counting the first attempt
	BaseDelay  time.Duration // doubled per attempt
	// BreakerThreshold opens the circuit after this many consecutive
	// failures; 0 disables the breaker.
	BreakerThreshold int
	// BreakerCooldown is how long the circuit stays open.
	BreakerCooldown time.Duration
}

// RetryPlugin intercepts provider errors with exponential backoff and a
// simple circuit breaker. Only errors the provider marks retryable are
// retried; while the circuit is open no retries are granted, so failures
// surface immediately.
type RetryPlugin struct {
	opts RetryOptions

	mu          sync.Mutex
	consecutive int
	openedAt    time.Time
}

// NewRetryPlugin creates the retry plugin.
func NewRetryPlugin(optFns ...func(o *RetryOptions)) *RetryPlugin {
	opts := RetryOptions{
		MaxRetries:      2,
		BaseDelay:       500 * time.Millisecond,
		BreakerCooldown: 30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RetryPlugin{opts: opts}
}

// Name implements Plugin.
func (p *RetryPlugin) Name() string { return "retry" }

// ShouldRetry implements RetryPolicy.
func (p *RetryPlugin) ShouldRetry(attempt int, err error) (time.Duration, bool) {
	var perr *provider.Error
	if !errors.As(err, &perr) || !perr.Retryable {
		p.recordFailure()
		return 0, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.opts.BreakerThreshold > 0 && !p.openedAt.IsZero() {
		if time.Since(p.openedAt) < p.opts.BreakerCooldown {
			return 0, false
		}
		// Cooldown elapsed: half-open, allow one attempt through.
		p.openedAt = time.Time{}
		p.consecutive = 0
	}

	if attempt > p.opts.MaxRetries {
		p.noteFailureLocked()
		return 0, false
	}

	delay := p.opts.BaseDelay << (attempt - 1)
	return delay, true
}

// AfterExecute implements AfterExecuteHook; a successful provider call
// closes the circuit.
func (p *RetryPlugin) AfterExecute(_ context.Context, pc *Context) error {
	if pc.Stage == StageProviderCall {
		p.mu.Lock()
		p.consecutive = 0
		p.openedAt = time.Time{}
		p.mu.Unlock()
	}
	return nil
}

func (p *RetryPlugin) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.noteFailureLocked()
}

func (p *RetryPlugin) noteFailureLocked() {
	p.consecutive++
	if p.opts.BreakerThreshold > 0 && p.consecutive >= p.opts.BreakerThreshold && p.openedAt.IsZero() {
		p.openedAt = time.Now()
	}
}
