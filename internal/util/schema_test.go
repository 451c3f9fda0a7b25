package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Schema Generation Tests --------------------

func TestCreateSchemaFromStruct(t *testing.T) {
	type searchArgs struct {
		Query string `json:"query" jsonschema:"required,description=Search query"`
		Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum results"`
	}

	schema := CreateSchema(searchArgs{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)

	query, ok := props["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Search query", query["description"])

	limit, ok := props["limit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "integer", limit["type"])

	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.Contains(t, required, "query")
	assert.NotContains(t, required, "limit")
}

func TestCreateSchemaEnumAndArray(t *testing.T) {
	type args struct {
		Mode string   `json:"mode" jsonschema:"required,enum=fast,enum=thorough"`
		Tags []string `json:"tags,omitempty"`
	}

	schema := CreateSchema(args{})
	props := schema["properties"].(map[string]any)

	mode := props["mode"].(map[string]any)
	assert.ElementsMatch(t, []any{"fast", "thorough"}, mode["enum"])

	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	items, ok := tags["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", items["type"])
}

// -------------------- Validation Tests --------------------

func TestValidateParametersRequiredMissing(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	}

	err := ValidateParameters(map[string]any{}, schema)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.Contains(t, verr.Message, "required")
}

func TestValidateParametersRequiredAsAnySlice(t *testing.T) {
	// A schema decoded from JSON carries required as []any.
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
		"required": []any{"name"},
	}

	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"name": "x"}, schema))
}

func TestValidateParametersTypeChecks(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"count":   map[string]any{"type": "integer"},
			"ratio":   map[string]any{"type": "number"},
			"enabled": map[string]any{"type": "boolean"},
			"items":   map[string]any{"type": "array"},
			"config":  map[string]any{"type": "object"},
		},
	}

	tests := []struct {
		name   string
		params map[string]any
		valid  bool
	}{
		{"json number as integer", map[string]any{"count": 3.0}, true},
		{"fractional number as integer", map[string]any{"count": 3.5}, false},
		{"int as number", map[string]any{"ratio": 2}, true},
		{"string as boolean", map[string]any{"enabled": "yes"}, false},
		{"slice as array", map[string]any{"items": []any{"a"}}, true},
		{"map as object", map[string]any{"config": map[string]any{}}, true},
		{"nil is valid for any type", map[string]any{"count": nil}, true},
		{"unknown field is allowed", map[string]any{"extra": 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParameters(tt.params, schema)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateParametersEnum(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"priority": map[string]any{
				"type": "string",
				"enum": []string{"low", "normal", "high"},
			},
		},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"priority": "high"}, schema))

	err := ValidateParameters(map[string]any{"priority": "urgent"}, schema)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "priority", verr.Field)
}
