package internal

import (
	"encoding/json"
	"testing"

	"github.com/lychee-technology/scorekeep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateIsValidResultsSchema(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      []violation
	}{
		{
			name:      "two player schema",
			candidate: twoPlayerResultsSchema,
		},
		{
			name: "extra properties and required entries",
			candidate: `{
				"type": "object",
				"required": ["winner", "player", "points"],
				"properties": {
					"player": {"type": "string", "minLength": 1},
					"winner": {"type": "boolean"},
					"points": {"type": "number"}
				}
			}`,
		},
		{
			name:      "empty object",
			candidate: `{}`,
			want: []violation{
				{Path: "type", Message: "should have required property 'type'"},
				{Path: "required", Message: "should have required property 'required'"},
				{Path: "properties", Message: "should have required property 'properties'"},
			},
		},
		{
			name:      "no declared properties",
			candidate: `{"type":"object","required":["player","winner"],"properties":{}}`,
			want: []violation{
				{Path: "properties.player", Message: "should have required property 'player'"},
				{Path: "properties.winner", Message: "should have required property 'winner'"},
			},
		},
		{
			name: "required does not start with player and winner",
			candidate: `{"type":"object","required":["test","foo"],"properties":{
				"player":{"type":"string"},"winner":{"type":"boolean"}}}`,
			want: []violation{
				{Path: "required[0]", Message: "should be equal to one of the allowed values"},
				{Path: "required[1]", Message: "should be equal to one of the allowed values"},
			},
		},
		{
			name: "player listed twice",
			candidate: `{"type":"object","required":["player","player"],"properties":{
				"player":{"type":"string"},"winner":{"type":"boolean"}}}`,
			want: []violation{
				{Path: "required", Message: "should NOT have duplicate items (items ## 0 and 1 are identical)"},
			},
		},
		{
			name: "only one required entry",
			candidate: `{"type":"object","required":["player"],"properties":{
				"player":{"type":"string"},"winner":{"type":"boolean"}}}`,
			want: []violation{
				{Path: "required", Message: "should NOT have fewer than 2 items"},
			},
		},
		{
			name: "winner declared as a string",
			candidate: `{"type":"object","required":["player","winner"],"properties":{
				"player":{"type":"string"},"winner":{"type":"string"}}}`,
			want: []violation{
				{Path: "properties.winner.type", Message: "should be equal to one of the allowed values"},
			},
		},
		{
			name:      "array instead of object",
			candidate: `{"type":"array","required":["player","winner"],"properties":{"player":{"type":"string"},"winner":{"type":"boolean"}}}`,
			want: []violation{
				{Path: "type", Message: "should be equal to one of the allowed values"},
			},
		},
		{
			name:      "not an object",
			candidate: `"object"`,
			want: []violation{
				{Path: "", Message: "should be object"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIsValidResultsSchema(json.RawMessage(tt.candidate))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, violationsOf(t, err))
		})
	}
}

func TestValidateIsValidResultsSchema_KindAndLabel(t *testing.T) {
	err := ValidateIsValidResultsSchema(`{}`)
	require.Error(t, err)

	assert.True(t, scorekeep.IsValidationErrors(err, scorekeep.SchemaShapeInvalid))
	ve, ok := scorekeep.AsValidationErrors(err)
	require.True(t, ok)
	assert.Equal(t, scorekeep.LabelInvalidSchema, ve.Label)
	assert.Contains(t, err.Error(), "Invalid schema!")
}

func TestValidateIsValidResultsSchema_AcceptsTypedSchemas(t *testing.T) {
	schema := mustSchema(t, twoPlayerResultsSchema)
	assert.NoError(t, ValidateIsValidResultsSchema(schema))
	assert.NoError(t, ValidateIsValidResultsSchema(&schema))
	assert.NoError(t, ValidateIsValidResultsSchema(twoPlayerResultsSchema))

	assert.Equal(t, []violation{{Path: "", Message: "should be object"}},
		violationsOf(t, ValidateIsValidResultsSchema(scorekeep.BoolSchema(true))))
}

func TestValidateIsValidResultsSchema_CoercesScalars(t *testing.T) {
	// trailing required entries only need to be strings, so numbers coerce
	candidate := map[string]any{
		"type":     "object",
		"required": []any{"player", "winner", 3},
		"properties": map[string]any{
			"player": map[string]any{"type": "string"},
			"winner": map[string]any{"type": "boolean"},
		},
	}
	assert.NoError(t, ValidateIsValidResultsSchema(candidate))

	// the caller's value is left untouched
	assert.Equal(t, 3, candidate["required"].([]any)[2])
}

func TestMinimumResultsSchemaCompiles(t *testing.T) {
	_, err := Compile(MinimumResultsSchema, CompileOptions{CoerceTypes: true})
	assert.NoError(t, err)
}
