package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArgs(t *testing.T) {
	type req struct {
		Job      string   `json:"job_description"`
		Tools    []string `json:"required_tools,omitempty"`
		Priority string   `json:"priority,omitempty"`
		Allow    bool     `json:"allow,omitempty"`
	}

	var out req
	err := DecodeArgs(map[string]any{
		"job_description": "summarize the report",
		"required_tools":  []any{"search", "calculator"},
		"priority":        "high",
		"allow":           true,
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "summarize the report", out.Job)
	assert.Equal(t, []string{"search", "calculator"}, out.Tools)
	assert.Equal(t, "high", out.Priority)
	assert.True(t, out.Allow)
}

func TestDecodeArgsWeakNumbers(t *testing.T) {
	type req struct {
		Count int `json:"count"`
	}

	// JSON unmarshaling produces float64 for all numbers.
	var out req
	require.NoError(t, DecodeArgs(map[string]any{"count": 3.0}, &out))
	assert.Equal(t, 3, out.Count)
}

func TestDecodeArgsIgnoresUnknownFields(t *testing.T) {
	type req struct {
		Name string `json:"name"`
	}

	var out req
	require.NoError(t, DecodeArgs(map[string]any{"name": "x", "extra": "y"}, &out))
	assert.Equal(t, "x", out.Name)
}
