package internal

import (
	"sync"

	"github.com/lychee-technology/scorekeep"
)

var playerOrWinner = []string{"player", "winner"}

// MinimumResultsSchema is the shape every results schema must have: an object
// whose required list starts with player and winner, declaring player as a
// string and winner as a boolean.
var MinimumResultsSchema = scorekeep.PropertySchema{
	Type:     scorekeep.SchemaTypeObject,
	Required: []string{"type", "required", "properties"},
	Properties: map[string]*scorekeep.PropertySchema{
		"type": {
			Type: scorekeep.SchemaTypeString,
			Enum: []string{"object"},
		},
		"required": {
			Type: scorekeep.SchemaTypeArray,
			TupleItems: []*scorekeep.PropertySchema{
				{Type: scorekeep.SchemaTypeString, Enum: playerOrWinner},
				{Type: scorekeep.SchemaTypeString, Enum: playerOrWinner},
			},
			AdditionalItems: &scorekeep.PropertySchema{Type: scorekeep.SchemaTypeString},
			MinItems:        intRef(2),
			UniqueItems:     true,
		},
		"properties": {
			Type:     scorekeep.SchemaTypeObject,
			Required: playerOrWinner,
			Properties: map[string]*scorekeep.PropertySchema{
				"player": typedPropertyShape("string"),
				"winner": typedPropertyShape("boolean"),
			},
		},
	},
}

// typedPropertyShape matches a property declaration whose type is exactly t.
func typedPropertyShape(t string) *scorekeep.PropertySchema {
	return &scorekeep.PropertySchema{
		Type:     scorekeep.SchemaTypeObject,
		Required: []string{"type"},
		Properties: map[string]*scorekeep.PropertySchema{
			"type": {Type: scorekeep.SchemaTypeString, Enum: []string{t}},
		},
	}
}

var (
	minimumResultsOnce      sync.Once
	minimumResultsValidator *CompiledValidator
)

func minimumResultsSchemaValidator() *CompiledValidator {
	minimumResultsOnce.Do(func() {
		minimumResultsValidator = MustCompile(MinimumResultsSchema, CompileOptions{CoerceTypes: true})
	})
	return minimumResultsValidator
}

// ValidateIsValidResultsSchema checks that candidate, treated as data, has
// the minimum results schema shape. Raw JSON may be passed as []byte,
// json.RawMessage or string. Violation paths are relative to candidate.
func ValidateIsValidResultsSchema(candidate any) error {
	if s, ok := candidate.(string); ok {
		candidate = []byte(s)
	}

	err := minimumResultsSchemaValidator().Evaluate(candidate, "")
	if err == nil {
		return nil
	}
	ve, ok := scorekeep.AsValidationErrors(err)
	if !ok {
		return err
	}
	return ve.WithKind(scorekeep.SchemaShapeInvalid).WithLabel(scorekeep.LabelInvalidSchema)
}
