package internal

import (
	"encoding/json"
	"testing"

	"github.com/lychee-technology/scorekeep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileViolations(t *testing.T, raw string) []violation {
	t.Helper()
	v, err := Compile(mustSchema(t, raw), CompileOptions{})
	require.Error(t, err)
	assert.Nil(t, v)
	assert.True(t, scorekeep.IsValidationErrors(err, scorekeep.SchemaCompilationError), "unexpected error: %v", err)
	return violationsOf(t, err)
}

func TestCompile_AcceptsValidSchemas(t *testing.T) {
	schemas := []string{
		twoPlayerResultsSchema,
		`true`,
		`false`,
		`{"type":"null"}`,
		`{"type":"string","minLength":1,"maxLength":10,"pattern":"^[a-z]+$","format":"date","enum":["a"]}`,
		`{"type":"number","minimum":0,"exclusiveMaximum":100,"multipleOf":0.25}`,
		`{"type":"array","items":[{"type":"string"},{"type":"number"}],"additionalItems":false,"minItems":1,"uniqueItems":true}`,
		`{"type":"array","items":{"type":"boolean"},"required":["ignored"]}`,
		`{"type":"object","additionalProperties":true,"propertyNames":{"pattern":"^x"},"dependencies":{"a":["b"]}}`,
	}
	for _, raw := range schemas {
		_, err := Compile(mustSchema(t, raw), CompileOptions{})
		assert.NoError(t, err, raw)
	}
}

func TestCompile_RejectsInconsistentSchemas(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []violation
	}{
		{
			name: "keyword of another type",
			raw:  `{"type":"string","minimum":1}`,
			want: []violation{{Path: "minimum", Message: "keyword 'minimum' does not apply to type 'string'"}},
		},
		{
			name: "missing type",
			raw:  `{"minLength":1}`,
			want: []violation{{Path: "", Message: "schema must declare a type"}},
		},
		{
			name: "unknown type",
			raw:  `{"type":"integer"}`,
			want: []violation{{Path: "type", Message: "unknown type 'integer'"}},
		},
		{
			name: "nested invalid pattern",
			raw:  `{"type":"object","properties":{"a":{"type":"string","pattern":"("}}}`,
			want: []violation{{Path: "properties.a.pattern", Message: "invalid pattern: error parsing regexp: missing closing ): `(`"}},
		},
		{
			name: "unknown format",
			raw:  `{"type":"string","format":"phone"}`,
			want: []violation{{Path: "format", Message: `unknown format "phone"`}},
		},
		{
			name: "non-positive multipleOf",
			raw:  `{"type":"number","multipleOf":0}`,
			want: []violation{{Path: "multipleOf", Message: "multipleOf must be greater than 0"}},
		},
		{
			name: "negative bound",
			raw:  `{"type":"array","minItems":-1}`,
			want: []violation{{Path: "minItems", Message: "minItems must be a non-negative integer"}},
		},
		{
			name: "positional item",
			raw:  `{"type":"array","items":[{"type":"string"},{"type":"foo"}]}`,
			want: []violation{{Path: "items[1].type", Message: "unknown type 'foo'"}},
		},
		{
			name: "all violations collected",
			raw:  `{"type":"object","properties":{"a":{"type":"boolean","maxLength":1},"b":{"type":"string","pattern":"[","items":true}}}`,
			want: []violation{
				{Path: "properties.a.maxLength", Message: "keyword 'maxLength' does not apply to type 'boolean'"},
				{Path: "properties.b.items", Message: "keyword 'items' does not apply to type 'string'"},
				{Path: "properties.b.pattern", Message: "invalid pattern: error parsing regexp: missing closing ]: `[`"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compileViolations(t, tt.raw))
		})
	}
}

func TestCompile_RejectsNullSubschema(t *testing.T) {
	schema := scorekeep.PropertySchema{
		Type:       scorekeep.SchemaTypeObject,
		Properties: map[string]*scorekeep.PropertySchema{"a": nil},
	}
	_, err := Compile(schema, CompileOptions{})
	assert.Equal(t, []violation{{Path: "properties.a", Message: "schema must be an object or a boolean"}}, violationsOf(t, err))
}

func TestCompile_DoesNotMutateSchema(t *testing.T) {
	schema := mustSchema(t, `{"type":"array","items":[{"type":"string"}],"additionalItems":{"type":"number"},"maxItems":3}`)
	before, err := json.Marshal(schema)
	require.NoError(t, err)

	_, err = Compile(schema, CompileOptions{CoerceTypes: true})
	require.NoError(t, err)

	after, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestCompile_AcceptsAnnotations(t *testing.T) {
	raw := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$id": "wingspan-result.json",
		"title": "Wingspan result",
		"type": "object",
		"x-display": {"order": ["player", "winner"]},
		"properties": {
			"player": {"type": "string", "description": "who", "examples": ["ana"]},
			"winner": {"type": "boolean", "default": false, "$comment": "ties share the win"}
		}
	}`
	_, err := Compile(mustSchema(t, raw), CompileOptions{})
	assert.NoError(t, err)
}

func TestCompile_RejectsUnsupportedKeywords(t *testing.T) {
	got := compileViolations(t, `{
		"type": "object",
		"const": {},
		"properties": {
			"score": {"type": "number", "anyOf": [{"minimum": 0}, {"maximum": -10}]},
			"faction": {"type": "string", "$ref": "#/definitions/faction"}
		}
	}`)
	assert.Equal(t, []violation{
		{Path: "const", Message: "keyword 'const' is not supported"},
		{Path: "properties.faction.$ref", Message: "keyword '$ref' is not supported"},
		{Path: "properties.score.anyOf", Message: "keyword 'anyOf' is not supported"},
	}, got)
}

func TestCompile_RejectsMalformedAnnotations(t *testing.T) {
	t.Run("wrong annotation type", func(t *testing.T) {
		got := compileViolations(t, `{"type":"string","title":5}`)
		require.Len(t, got, 1)
		assert.Equal(t, "", got[0].Path)
		assert.Contains(t, got[0].Message, "invalid keywords")
	})

	t.Run("unresolvable id", func(t *testing.T) {
		got := compileViolations(t, `{"type":"string","$id":"https://example.com/result.json#player"}`)
		require.Len(t, got, 1)
		assert.Equal(t, "", got[0].Path)
		assert.Contains(t, got[0].Message, "invalid annotations")
	})
}

func TestMustCompilePanicsOnInvalidSchema(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile(scorekeep.PropertySchema{Type: "integer"}, CompileOptions{})
	})
}
