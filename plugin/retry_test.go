package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcrew/agentcrew/provider"
)

var _ RetryPolicy = (*RetryPlugin)(nil)

func retryableErr() error {
	return &provider.Error{
		Provider:  "openai",
		Code:      provider.ErrCodeRateLimit,
		Message:   "rate limited",
		Retryable: true,
	}
}

func fatalErr() error {
	return &provider.Error{
		Provider:  "openai",
		Code:      provider.ErrCodeAuth,
		Message:   "bad key",
		Retryable: false,
	}
}

func TestRetryGrantsBackoff(t *testing.T) {
	p := NewRetryPlugin(func(o *RetryOptions) {
		o.MaxRetries = 3
		o.BaseDelay = 100 * time.Millisecond
	})

	d1, ok := p.ShouldRetry(1, retryableErr())
	require.True(t, ok)
	assert.Equal(t, 100*time.Millisecond, d1)

	d2, ok := p.ShouldRetry(2, retryableErr())
	require.True(t, ok)
	assert.Equal(t, 200*time.Millisecond, d2)

	d3, ok := p.ShouldRetry(3, retryableErr())
	require.True(t, ok)
	assert.Equal(t, 400*time.Millisecond, d3)

	_, ok = p.ShouldRetry(4, retryableErr())
	assert.False(t, ok, "budget exhausted")
}

func TestRetryRefusesNonRetryable(t *testing.T) {
	p := NewRetryPlugin()

	_, ok := p.ShouldRetry(1, fatalErr())
	assert.False(t, ok)

	_, ok = p.ShouldRetry(1, errors.New("not a provider error"))
	assert.False(t, ok)
}

func TestRetryWrappedProviderError(t *testing.T) {
	p := NewRetryPlugin()

	wrapped := errors.Join(errors.New("outer"), retryableErr())
	_, ok := p.ShouldRetry(1, wrapped)
	assert.True(t, ok, "errors.As unwraps to the provider error")
}

func TestRetryCircuitBreaker(t *testing.T) {
	p := NewRetryPlugin(func(o *RetryOptions) {
		o.MaxRetries = 0 // every failure is terminal, feeding the breaker
		o.BreakerThreshold = 2
		o.BreakerCooldown = time.Hour
	})

	// Two consecutive failures open the circuit.
	_, ok := p.ShouldRetry(1, retryableErr())
	assert.False(t, ok)
	_, ok = p.ShouldRetry(1, retryableErr())
	assert.False(t, ok)

	// Open circuit: even a fresh retryable error gets no retries.
	p2 := NewRetryPlugin(func(o *RetryOptions) {
		o.MaxRetries = 3
		o.BreakerThreshold = 1
		o.BreakerCooldown = time.Hour
	})
	_, _ = p2.ShouldRetry(4, retryableErr()) // attempt beyond budget opens the breaker
	_, ok = p2.ShouldRetry(1, retryableErr())
	assert.False(t, ok, "circuit is open")
}

func TestRetryBreakerHalfOpenAfterCooldown(t *testing.T) {
	p := NewRetryPlugin(func(o *RetryOptions) {
		o.MaxRetries = 3
		o.BaseDelay = time.Millisecond
		o.BreakerThreshold = 1
		o.BreakerCooldown = 10 * time.Millisecond
	})

	_, _ = p.ShouldRetry(4, retryableErr()) // open the breaker
	_, ok := p.ShouldRetry(1, retryableErr())
	require.False(t, ok)

	time.Sleep(15 * time.Millisecond)

	_, ok = p.ShouldRetry(1, retryableErr())
	assert.True(t, ok, "half-open after cooldown lets one attempt through")
}

func TestRetrySuccessClosesCircuit(t *testing.T) {
	p := NewRetryPlugin(func(o *RetryOptions) {
		o.MaxRetries = 3
		o.BreakerThreshold = 1
		o.BreakerCooldown = time.Hour
	})

	_, _ = p.ShouldRetry(4, retryableErr()) // open the breaker
	_, ok := p.ShouldRetry(1, retryableErr())
	require.False(t, ok)

	require.NoError(t, p.AfterExecute(context.Background(), &Context{Stage: StageProviderCall}))

	_, ok = p.ShouldRetry(1, retryableErr())
	assert.True(t, ok, "provider success closes the circuit")
}
