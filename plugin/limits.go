package plugin

import (
	"context"

	"github.com/agentcrew/agentcrew/limits"
	"github.com/agentcrew/agentcrew/logging"
)

// LimitsPlugin surfaces budget guard state on the hook path. Enforcement
// (precheck and record) is done by the engine against the guard directly so
// a denial can abort the call; this plugin is the observability face: it
// logs a budget snapshot after every provider call and flags exhaustion
// early.
type LimitsPlugin struct {
	guard  *limits.Guard
	logger logging.Logger
}

// NewLimitsPlugin creates the limits plugin over the agent's guard.
func NewLimitsPlugin(guard *limits.Guard, logger logging.Logger) *LimitsPlugin {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LimitsPlugin{guard: guard, logger: logger}
}

// Name implements Plugin.
func (p *LimitsPlugin) Name() string { return "limits" }

// AfterExecute implements AfterExecuteHook.
func (p *LimitsPlugin) AfterExecute(_ context.Context, pc *Context) error {
	if pc.Stage != StageProviderCall {
		return nil
	}
	info := p.guard.Info()
	p.logger.Info("limits.snapshot",
		"agent_id", pc.AgentID,
		"tokens_used", info.TokensUsed,
		"remaining_tokens", info.RemainingTokens,
		"requests_used", info.RequestsUsed,
		"remaining_requests", info.RemainingRequests,
		"cost", info.Cost.String(),
	)
	if !info.TokensUnlimited && info.RemainingTokens <= 0 {
		p.logger.Warn("limits.tokens.exhausted", "agent_id", pc.AgentID, "max", info.MaxTokens)
	}
	if !info.RequestsUnlimited && info.RemainingRequests <= 0 {
		p.logger.Warn("limits.requests.exhausted", "agent_id", pc.AgentID, "max", info.MaxRequests)
	}
	return nil
}

// Info exposes the guard snapshot for callers holding only the plugin.
func (p *LimitsPlugin) Info() limits.Info { return p.guard.Info() }
