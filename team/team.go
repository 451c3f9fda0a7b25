// Package team implements delegation of sub-tasks to short-lived
// specialist agents. A coordinator accepts a delegation request, selects or
// synthesizes an agent configuration, builds an ephemeral agent through the
// factory, runs it to completion and guarantees teardown. The only artifact
// that survives the ephemeral agent is the DelegationResult.
package team

import (
	"fmt"
	"time"
)

// DelegationRequest describes one sub-task to hand to an ephemeral agent.
type DelegationRequest struct {
	// JobDescription is the task the ephemeral agent must complete.
	JobDescription string `json:"job_description" description:"The task to delegate"`

	// Context is optional background appended to the job description.
	Context string `json:"context,omitempty" description:"Additional background for the task"`

	// RequiredTools names tools from the coordinator's catalog to wire
	// into the ephemeral agent.
	RequiredTools []string `json:"required_tools,omitempty" description:"Tool names the agent needs"`

	// Priority is advisory metadata carried through to logs.
	Priority string `json:"priority,omitempty" description:"Task priority: low, normal or high"`

	// AgentTemplate names a registered template. Empty selects ad-hoc
	// synthesis from the job description when dynamic agents are enabled.
	AgentTemplate string `json:"agent_template,omitempty" description:"Name of the agent template to use"`

	// AllowFurtherDelegation controls whether the ephemeral agent gets its
	// own delegation tool. When false recursive fan-out is impossible.
	AllowFurtherDelegation bool `json:"allow_further_delegation,omitempty" description:"Whether the agent may delegate further"`

	// Depth is the recursion depth of this request; populated by the
	// coordinator when a delegated agent delegates further.
	Depth int `json:"-"`
}

// DelegationMetadata captures execution facts about one delegation.
type DelegationMetadata struct {
	ExecutionTime time.Duration `json:"execution_time"`
	TokensUsed    int           `json:"tokens_used"`
	Success       bool          `json:"success"`
}

// DelegationResult is the immutable outcome of one delegation. Failures of
// the ephemeral run are encoded here, never thrown at the parent.
type DelegationResult struct {
	AgentID  string             `json:"agent_id"`
	Result   string             `json:"result"`
	Metadata DelegationMetadata `json:"metadata"`
}

// ValidationError reports a malformed delegation request, raised before
// any ephemeral agent is constructed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid delegation request: %s: %s", e.Field, e.Message)
}
