package core

// TokenUsage captures token counts reported by a provider for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the element-wise sum of two usage records.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// EstimateTokens approximates the token cost of a text for pre-flight budget
// checks. Four characters per token is the usual rule of thumb for English
// text; the estimate only needs to be good enough to deny obviously
// over-budget requests before any network call is made.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}

// EstimateMessagesTokens sums EstimateTokens over message contents plus a
// small fixed per-message overhead for role/framing tokens.
func EstimateMessagesTokens(msgs []Message) int {
	const perMessageOverhead = 4
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content) + perMessageOverhead
		for _, tc := range m.ToolCalls {
			total += EstimateTokens(tc.Arguments) + EstimateTokens(tc.Name)
		}
	}
	return total
}
