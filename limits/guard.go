// Package limits enforces token and request budgets around provider calls.
// The guard pre-checks the estimated cost of a call before the network
// round trip so a request that would exceed the budget is denied without
// spending anything, and records actual usage afterwards.
package limits

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/logging"
)

// BudgetExceededError is returned by Precheck when a call would exceed the
// configured budget. No provider call is made when it is returned.
type BudgetExceededError struct {
	Dimension string // "tokens" or "requests"
	Estimated int    // estimated cost of the denied call (tokens only)
	Used      int
	Max       int
}

func (e *BudgetExceededError) Error() string {
	if e.Dimension == "requests" {
		return fmt.Sprintf("budget exceeded: request limit reached (%d/%d)", e.Used, e.Max)
	}
	return fmt.Sprintf(
		"budget exceeded: estimated %d tokens would exceed limit (%d used of %d)",
		e.Estimated, e.Used, e.Max,
	)
}

// RequestRecord is one entry of the per-request usage log.
type RequestRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Model     string          `json:"model"`
	Usage     core.TokenUsage `json:"usage"`
	Cost      decimal.Decimal `json:"cost"`
}

// Info is a snapshot of the guard state.
type Info struct {
	TokensUsed        int             `json:"tokens_used"`
	MaxTokens         int             `json:"max_tokens"`
	RemainingTokens   int             `json:"remaining_tokens"` // -1 when unlimited
	TokensUnlimited   bool            `json:"tokens_unlimited"`
	RequestsUsed      int             `json:"requests_used"`
	MaxRequests       int             `json:"max_requests"`
	RemainingRequests int             `json:"remaining_requests"` // -1 when unlimited
	RequestsUnlimited bool            `json:"requests_unlimited"`
	Cost              decimal.Decimal `json:"cost"` // cumulative USD cost
}

// Options configure a Guard.
type Options struct {
	MaxTokens   int // 0 = unlimited
	MaxRequests int // 0 = unlimited
	Pricing     map[string]ModelPricing
	Logger      logging.Logger
}

// Guard tracks budget consumption for one agent. Counters are monotonically
// non-decreasing between resets and mutated only by Record. Safe for
// concurrent use.
type Guard struct {
	mu          sync.Mutex
	maxTokens   int
	maxRequests int
	tokensUsed  int
	requests    int
	cost        decimal.Decimal
	log         []RequestRecord
	pricing     map[string]ModelPricing
	logger      logging.Logger
}

// NewGuard creates a guard. A limit of 0 means unlimited for that
// dimension.
func NewGuard(optFns ...func(o *Options)) *Guard {
	opts := Options{
		Pricing: DefaultPricing,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Guard{
		maxTokens:   opts.MaxTokens,
		maxRequests: opts.MaxRequests,
		cost:        decimal.Zero,
		pricing:     opts.Pricing,
		logger:      opts.Logger,
	}
}

// Precheck decides whether a call with the given estimated token cost may
// proceed. A denial consumes nothing. Limit changes made via SetMaxTokens
// or SetMaxRequests are visible from the next Precheck on.
func (g *Guard) Precheck(estimatedTokens int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.maxRequests > 0 && g.requests >= g.maxRequests {
		g.logger.Warn("limits.precheck.denied",
			"dimension", "requests", "used", g.requests, "max", g.maxRequests)
		return &BudgetExceededError{
			Dimension: "requests",
			Used:      g.requests,
			Max:       g.maxRequests,
		}
	}
	if g.maxTokens > 0 && g.tokensUsed+estimatedTokens > g.maxTokens {
		g.logger.Warn("limits.precheck.denied",
			"dimension", "tokens", "estimated", estimatedTokens,
			"used", g.tokensUsed, "max", g.maxTokens)
		return &BudgetExceededError{
			Dimension: "tokens",
			Estimated: estimatedTokens,
			Used:      g.tokensUsed,
			Max:       g.maxTokens,
		}
	}
	return nil
}

// Record accounts for one completed provider call: increments the request
// counter, adds the actual token usage, accrues cost and appends to the
// per-request log.
func (g *Guard) Record(model string, usage core.TokenUsage) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests++
	g.tokensUsed += usage.TotalTokens

	cost := decimal.Zero
	if pricing, ok := g.pricing[model]; ok {
		cost = pricing.Cost(usage.PromptTokens, usage.CompletionTokens)
		g.cost = g.cost.Add(cost)
	}

	g.log = append(g.log, RequestRecord{
		Timestamp: time.Now(),
		Model:     model,
		Usage:     usage,
		Cost:      cost,
	})

	g.logger.Debug("limits.request.recorded",
		"model", model,
		"total_tokens", usage.TotalTokens,
		"tokens_used", g.tokensUsed,
		"requests", g.requests,
		"cost", cost.String(),
	)
}

// Reset clears all counters and the request log without reconstructing the
// guard. Limits are kept.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokensUsed = 0
	g.requests = 0
	g.cost = decimal.Zero
	g.log = nil
}

// SetMaxTokens changes the token limit; takes effect on the next Precheck.
func (g *Guard) SetMaxTokens(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maxTokens = n
}

// SetMaxRequests changes the request limit; takes effect on the next Precheck.
func (g *Guard) SetMaxRequests(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maxRequests = n
}

// TokensUsed returns the total tokens consumed since the last reset.
func (g *Guard) TokensUsed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokensUsed
}

// Requests returns the number of recorded provider calls since the last reset.
func (g *Guard) Requests() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests
}

// RequestLog returns a copy of the per-request usage log.
func (g *Guard) RequestLog() []RequestRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]RequestRecord, len(g.log))
	copy(out, g.log)
	return out
}

// Info returns a snapshot of the guard state. Remaining is -1 for an
// unlimited dimension.
func (g *Guard) Info() Info {
	g.mu.Lock()
	defer g.mu.Unlock()

	info := Info{
		TokensUsed:        g.tokensUsed,
		MaxTokens:         g.maxTokens,
		RemainingTokens:   -1,
		TokensUnlimited:   g.maxTokens == 0,
		RequestsUsed:      g.requests,
		MaxRequests:       g.maxRequests,
		RemainingRequests: -1,
		RequestsUnlimited: g.maxRequests == 0,
		Cost:              g.cost,
	}
	if g.maxTokens > 0 {
		info.RemainingTokens = g.maxTokens - g.tokensUsed
	}
	if g.maxRequests > 0 {
		info.RemainingRequests = g.maxRequests - g.requests
	}
	return info
}
