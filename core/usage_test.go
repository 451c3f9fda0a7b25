package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsageAdd(t *testing.T) {
	a := TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	b := TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}

	sum := a.Add(b)
	assert.Equal(t, TokenUsage{PromptTokens: 13, CompletionTokens: 7, TotalTokens: 20}, sum)
	assert.Equal(t, 15, a.TotalTokens, "Add does not mutate the receiver")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("hi"))
	assert.Equal(t, 26, EstimateTokens(string(make([]byte, 100))))
}

func TestEstimateMessagesTokens(t *testing.T) {
	msgs := []Message{
		NewSystemMessage("You are terse."),
		NewUserMessage("What is the capital of France?"),
	}

	est := EstimateMessagesTokens(msgs)
	assert.Greater(t, est, 0)
	assert.Greater(t, est, EstimateTokens("You are terse."), "includes per-message overhead")

	withCalls := append(msgs, NewAssistantToolCallMessage("", []ToolCall{
		{ID: "c1", Name: "search", Arguments: `{"query":"capital of France"}`},
	}))
	assert.Greater(t, EstimateMessagesTokens(withCalls), est, "tool call arguments add cost")
}
