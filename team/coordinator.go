package team

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentcrew/agentcrew/agent"
	"github.com/agentcrew/agentcrew/internal/util"
	"github.com/agentcrew/agentcrew/logging"
)

// adHocPrompt is rendered into the system prompt of dynamically synthesized
// agents when no template is named.
const adHocPrompt = `You are {{.name}}, a specialist agent created to complete a single task.

Task: {{.job}}

Complete the task thoroughly and reply with the final result only.`

// CoordinatorOptions configure a coordinator.
type CoordinatorOptions struct {
	// MaxDepth bounds recursive delegation when AllowFurtherDelegation is
	// set. 0 means unlimited.
	MaxDepth int

	// DynamicAgents permits ad-hoc agent synthesis from the job
	// description when no template is named.
	DynamicAgents bool

	// DefaultMaxTokenLimit / DefaultMaxRequestLimit bound ephemeral agents
	// whose template does not set limits. 0 means unlimited.
	DefaultMaxTokenLimit   int
	DefaultMaxRequestLimit int

	Logger logging.Logger
}

// Coordinator routes delegation requests to ephemeral agents. Each request
// gets a freshly built agent that is unconditionally destroyed when the
// request completes, whatever the outcome.
type Coordinator struct {
	factory   *Factory
	templates *Templates
	opts      CoordinatorOptions
}

// NewCoordinator creates a coordinator over the given factory.
func NewCoordinator(factory *Factory, optFns ...func(o *CoordinatorOptions)) *Coordinator {
	opts := CoordinatorOptions{
		DynamicAgents: true,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Coordinator{
		factory:   factory,
		templates: NewTemplates(),
		opts:      opts,
	}
}

// Templates exposes the template registry for registration.
func (c *Coordinator) Templates() *Templates { return c.templates }

// AssignTask validates the request, builds an ephemeral agent, runs it to
// completion and returns its outcome. The ephemeral agent is destroyed on
// every exit path. A malformed request returns an error before any agent
// exists; failures of the ephemeral run are reported inside a failed
// DelegationResult, never as an error, so one failed delegation cannot
// abort the parent conversation.
func (c *Coordinator) AssignTask(ctx context.Context, req DelegationRequest) (DelegationResult, error) {
	if err := c.validate(req); err != nil {
		return DelegationResult{}, err
	}

	spec, err := c.resolveSpec(req)
	if err != nil {
		return DelegationResult{}, err
	}

	if req.AllowFurtherDelegation {
		spec.ExtraTools = append(spec.ExtraTools, c.delegationTool(req.Depth+1))
	}

	worker, err := c.factory.Build(spec)
	if err != nil {
		return DelegationResult{}, fmt.Errorf("build ephemeral agent: %w", err)
	}

	c.opts.Logger.Info("team.assign.start",
		"agent_id", worker.ID(),
		"template", req.AgentTemplate,
		"priority", req.Priority,
		"depth", req.Depth,
	)

	start := time.Now()
	result := c.execute(ctx, worker, req)
	result.Metadata.ExecutionTime = time.Since(start)

	c.opts.Logger.Info("team.assign.complete",
		"agent_id", result.AgentID,
		"success", result.Metadata.Success,
		"duration_ms", result.Metadata.ExecutionTime.Milliseconds(),
		"tokens_used", result.Metadata.TokensUsed,
	)
	return result, nil
}

// execute runs the ephemeral agent and guarantees teardown on all exit
// paths, including panicking tool handlers deeper in the run.
func (c *Coordinator) execute(ctx context.Context, worker *agent.Agent, req DelegationRequest) (result DelegationResult) {
	result = DelegationResult{AgentID: worker.ID()}

	defer func() {
		if err := worker.Destroy(); err != nil {
			c.opts.Logger.Warn("team.worker.destroy_failed",
				"agent_id", worker.ID(), "error", err.Error())
		}
		if r := recover(); r != nil {
			result.Result = fmt.Sprintf("Delegation failed: panic: %v", r)
			result.Metadata.Success = false
			result.Metadata.TokensUsed = worker.TotalTokensUsed()
		}
	}()

	input := req.JobDescription
	if req.Context != "" {
		input = input + "\n\nContext:\n" + req.Context
	}

	text, err := worker.Run(ctx, input)
	result.Metadata.TokensUsed = worker.TotalTokensUsed()
	if err != nil {
		result.Result = "Delegation failed: " + err.Error()
		result.Metadata.Success = false
		return result
	}

	result.Result = text
	result.Metadata.Success = true
	return result
}

// validate rejects malformed requests before any side effect.
func (c *Coordinator) validate(req DelegationRequest) error {
	if strings.TrimSpace(req.JobDescription) == "" {
		return &ValidationError{Field: "job_description", Message: "must not be empty"}
	}
	if req.AgentTemplate != "" {
		if _, ok := c.templates.Get(req.AgentTemplate); !ok {
			return &ValidationError{
				Field:   "agent_template",
				Message: fmt.Sprintf("unknown template %q, available: %s", req.AgentTemplate, strings.Join(c.templates.Names(), ", ")),
			}
		}
	} else if !c.opts.DynamicAgents {
		return &ValidationError{Field: "agent_template", Message: "required, dynamic agent creation is disabled"}
	}
	for _, name := range req.RequiredTools {
		if !c.factory.HasTool(name) {
			return &ValidationError{
				Field:   "required_tools",
				Message: fmt.Sprintf("tool %q not in catalog", name),
			}
		}
	}
	if c.opts.MaxDepth > 0 && req.Depth >= c.opts.MaxDepth {
		return &ValidationError{
			Field:   "depth",
			Message: fmt.Sprintf("delegation depth %d reached the configured maximum %d", req.Depth, c.opts.MaxDepth),
		}
	}
	return nil
}

// resolveSpec turns a request into a build spec, from a template when one
// is named or by synthesizing an ad-hoc configuration otherwise.
func (c *Coordinator) resolveSpec(req DelegationRequest) (Spec, error) {
	if req.AgentTemplate != "" {
		tpl, _ := c.templates.Get(req.AgentTemplate)
		providerKey := tpl.Provider
		toolNames := append([]string{}, tpl.Tools...)
		toolNames = append(toolNames, req.RequiredTools...)
		return Spec{
			Name:            tpl.Name + "-" + shortID(),
			Provider:        providerKey,
			SystemPrompt:    tpl.SystemPrompt,
			ToolNames:       toolNames,
			MaxTokenLimit:   tpl.MaxTokenLimit,
			MaxRequestLimit: tpl.MaxRequestLimit,
		}, nil
	}

	name := "dynamic-" + shortID()
	prompt, err := util.RenderTemplate(adHocPrompt, map[string]any{
		"name": name,
		"job":  req.JobDescription,
	})
	if err != nil {
		return Spec{}, fmt.Errorf("render ad-hoc prompt: %w", err)
	}
	return Spec{
		Name:            name,
		SystemPrompt:    prompt,
		ToolNames:       req.RequiredTools,
		MaxTokenLimit:   c.opts.DefaultMaxTokenLimit,
		MaxRequestLimit: c.opts.DefaultMaxRequestLimit,
	}, nil
}
