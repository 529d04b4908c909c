package scorekeep

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// SchemaType is the JSON type a PropertySchema declares.
type SchemaType string

const (
	SchemaTypeString  SchemaType = "string"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeNull    SchemaType = "null"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
)

// Valid reports whether t is one of the recognised JSON types.
func (t SchemaType) Valid() bool {
	switch t {
	case SchemaTypeString, SchemaTypeNumber, SchemaTypeBoolean, SchemaTypeNull, SchemaTypeObject, SchemaTypeArray:
		return true
	}
	return false
}

// StringFormat names a string format check.
type StringFormat string

const (
	FormatDateTime StringFormat = "date-time"
	FormatTime     StringFormat = "time"
	FormatDate     StringFormat = "date"
	FormatEmail    StringFormat = "email"
	FormatHostname StringFormat = "hostname"
	FormatIPv4     StringFormat = "ipv4"
	FormatIPv6     StringFormat = "ipv6"
	FormatURI      StringFormat = "uri"
	FormatIRI      StringFormat = "iri"
	FormatRegex    StringFormat = "regex"
)

// PropertySchema is a JSON-Schema-like property declaration. It is one of the
// string, number, object, array, boolean or null variants, or one of the
// boolean literals true/false when Literal is set.
//
// Only the keywords of the declared Type may be populated; Required is
// accepted on both objects and arrays. Keywords without a field of their own
// (title, description, vendor extensions) are kept verbatim in Extra.
type PropertySchema struct {
	Literal *bool      `json:"-"`
	Type    SchemaType `json:"type,omitempty"`

	// string
	MinLength *int         `json:"minLength,omitempty"`
	MaxLength *int         `json:"maxLength,omitempty"`
	Pattern   string       `json:"pattern,omitempty"`
	Enum      []string     `json:"enum,omitempty"`
	Format    StringFormat `json:"format,omitempty"`

	// number
	MultipleOf       *float64 `json:"multipleOf,omitempty"`
	Minimum          *float64 `json:"minimum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`

	// object
	Properties           map[string]*PropertySchema `json:"properties,omitempty"`
	Required             []string                   `json:"required,omitempty"`
	AdditionalProperties *PropertySchema            `json:"additionalProperties,omitempty"`
	PropertyNames        *PropertyNamesSchema       `json:"propertyNames,omitempty"`
	MinProperties        *int                       `json:"minProperties,omitempty"`
	MaxProperties        *int                       `json:"maxProperties,omitempty"`
	Dependencies         map[string][]string        `json:"dependencies,omitempty"`

	// array
	Items           *PropertySchema   `json:"-"`
	TupleItems      []*PropertySchema `json:"-"`
	AdditionalItems *PropertySchema   `json:"additionalItems,omitempty"`
	MinItems        *int              `json:"minItems,omitempty"`
	MaxItems        *int              `json:"maxItems,omitempty"`
	UniqueItems     bool              `json:"uniqueItems,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// modelledKeywords are the keywords PropertySchema has a field for.
var modelledKeywords = map[string]struct{}{
	"type": {}, "minLength": {}, "maxLength": {}, "pattern": {}, "enum": {}, "format": {},
	"multipleOf": {}, "minimum": {}, "exclusiveMinimum": {}, "maximum": {}, "exclusiveMaximum": {},
	"properties": {}, "required": {}, "additionalProperties": {}, "propertyNames": {},
	"minProperties": {}, "maxProperties": {}, "dependencies": {},
	"items": {}, "additionalItems": {}, "minItems": {}, "maxItems": {}, "uniqueItems": {},
}

// ExtraKeywords returns the names of the unmodelled keywords in sorted order.
func (s *PropertySchema) ExtraKeywords() []string {
	names := make([]string, 0, len(s.Extra))
	for name := range s.Extra {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PropertyNamesSchema constrains the keys of an object.
type PropertyNamesSchema struct {
	Pattern string `json:"pattern"`
}

// BoolSchema returns the literal schema true (accept anything) or false
// (accept nothing).
func BoolSchema(accept bool) *PropertySchema {
	return &PropertySchema{Literal: &accept}
}

// IsLiteral reports whether s is one of the boolean literal schemas.
func (s *PropertySchema) IsLiteral() bool {
	return s != nil && s.Literal != nil
}

// PropertyNamesSorted returns the declared property names in sorted order.
func (s *PropertySchema) PropertyNamesSorted() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *PropertySchema) hasStringKeywords() []string {
	var out []string
	if s.MinLength != nil {
		out = append(out, "minLength")
	}
	if s.MaxLength != nil {
		out = append(out, "maxLength")
	}
	if s.Pattern != "" {
		out = append(out, "pattern")
	}
	if s.Enum != nil {
		out = append(out, "enum")
	}
	if s.Format != "" {
		out = append(out, "format")
	}
	return out
}

func (s *PropertySchema) hasNumberKeywords() []string {
	var out []string
	if s.MultipleOf != nil {
		out = append(out, "multipleOf")
	}
	if s.Minimum != nil {
		out = append(out, "minimum")
	}
	if s.ExclusiveMinimum != nil {
		out = append(out, "exclusiveMinimum")
	}
	if s.Maximum != nil {
		out = append(out, "maximum")
	}
	if s.ExclusiveMaximum != nil {
		out = append(out, "exclusiveMaximum")
	}
	return out
}

func (s *PropertySchema) hasObjectKeywords() []string {
	var out []string
	if s.Properties != nil {
		out = append(out, "properties")
	}
	if s.AdditionalProperties != nil {
		out = append(out, "additionalProperties")
	}
	if s.PropertyNames != nil {
		out = append(out, "propertyNames")
	}
	if s.MinProperties != nil {
		out = append(out, "minProperties")
	}
	if s.MaxProperties != nil {
		out = append(out, "maxProperties")
	}
	if s.Dependencies != nil {
		out = append(out, "dependencies")
	}
	return out
}

func (s *PropertySchema) hasArrayKeywords() []string {
	var out []string
	if s.Items != nil || s.TupleItems != nil {
		out = append(out, "items")
	}
	if s.AdditionalItems != nil {
		out = append(out, "additionalItems")
	}
	if s.MinItems != nil {
		out = append(out, "minItems")
	}
	if s.MaxItems != nil {
		out = append(out, "maxItems")
	}
	if s.UniqueItems {
		out = append(out, "uniqueItems")
	}
	return out
}

// ConflictingKeywords lists the populated keywords that do not belong to the
// declared type. A schema without a declared type never conflicts.
func (s *PropertySchema) ConflictingKeywords() []string {
	if s == nil || s.Literal != nil || s.Type == "" {
		return nil
	}

	var conflicts []string
	if s.Type != SchemaTypeString {
		conflicts = append(conflicts, s.hasStringKeywords()...)
	}
	if s.Type != SchemaTypeNumber {
		conflicts = append(conflicts, s.hasNumberKeywords()...)
	}
	if s.Type != SchemaTypeObject {
		conflicts = append(conflicts, s.hasObjectKeywords()...)
	}
	if s.Type != SchemaTypeArray {
		conflicts = append(conflicts, s.hasArrayKeywords()...)
	}
	if s.Required != nil && s.Type != SchemaTypeObject && s.Type != SchemaTypeArray {
		conflicts = append(conflicts, "required")
	}
	return conflicts
}

// propertySchemaWire is the on-the-wire shape; items is polymorphic. Slices
// and maps are pointers so that an empty enum, required or properties is
// written back instead of being dropped.
type propertySchemaWire struct {
	Type SchemaType `json:"type,omitempty"`

	MinLength *int         `json:"minLength,omitempty"`
	MaxLength *int         `json:"maxLength,omitempty"`
	Pattern   string       `json:"pattern,omitempty"`
	Enum      *[]string    `json:"enum,omitempty"`
	Format    StringFormat `json:"format,omitempty"`

	MultipleOf       *float64 `json:"multipleOf,omitempty"`
	Minimum          *float64 `json:"minimum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`

	Properties           *map[string]*PropertySchema `json:"properties,omitempty"`
	Required             *[]string                   `json:"required,omitempty"`
	AdditionalProperties *PropertySchema             `json:"additionalProperties,omitempty"`
	PropertyNames        *PropertyNamesSchema        `json:"propertyNames,omitempty"`
	MinProperties        *int                        `json:"minProperties,omitempty"`
	MaxProperties        *int                        `json:"maxProperties,omitempty"`
	Dependencies         *map[string][]string        `json:"dependencies,omitempty"`

	Items           json.RawMessage `json:"items,omitempty"`
	AdditionalItems *PropertySchema `json:"additionalItems,omitempty"`
	MinItems        *int            `json:"minItems,omitempty"`
	MaxItems        *int            `json:"maxItems,omitempty"`
	UniqueItems     bool            `json:"uniqueItems,omitempty"`
}

// MarshalJSON encodes literals as true/false and items as either a schema or
// a positional list.
func (s PropertySchema) MarshalJSON() ([]byte, error) {
	if s.Literal != nil {
		return json.Marshal(*s.Literal)
	}

	wire := propertySchemaWire{
		Type:                 s.Type,
		MinLength:            s.MinLength,
		MaxLength:            s.MaxLength,
		Pattern:              s.Pattern,
		Format:               s.Format,
		MultipleOf:           s.MultipleOf,
		Minimum:              s.Minimum,
		ExclusiveMinimum:     s.ExclusiveMinimum,
		Maximum:              s.Maximum,
		ExclusiveMaximum:     s.ExclusiveMaximum,
		AdditionalProperties: s.AdditionalProperties,
		PropertyNames:        s.PropertyNames,
		MinProperties:        s.MinProperties,
		MaxProperties:        s.MaxProperties,
		AdditionalItems:      s.AdditionalItems,
		MinItems:             s.MinItems,
		MaxItems:             s.MaxItems,
		UniqueItems:          s.UniqueItems,
	}
	if s.Enum != nil {
		wire.Enum = &s.Enum
	}
	if s.Properties != nil {
		wire.Properties = &s.Properties
	}
	if s.Required != nil {
		wire.Required = &s.Required
	}
	if s.Dependencies != nil {
		wire.Dependencies = &s.Dependencies
	}

	switch {
	case s.TupleItems != nil:
		raw, err := json.Marshal(s.TupleItems)
		if err != nil {
			return nil, fmt.Errorf("marshal tuple items: %w", err)
		}
		wire.Items = raw
	case s.Items != nil:
		raw, err := json.Marshal(s.Items)
		if err != nil {
			return nil, fmt.Errorf("marshal items: %w", err)
		}
		wire.Items = raw
	}

	out, err := json.Marshal(wire)
	if err != nil || len(s.Extra) == 0 {
		return out, err
	}

	merged := make(map[string]json.RawMessage, len(s.Extra)+8)
	if err := json.Unmarshal(out, &merged); err != nil {
		return nil, err
	}
	for name, value := range s.Extra {
		if _, modelled := modelledKeywords[name]; modelled {
			continue
		}
		merged[name] = value
	}
	return json.Marshal(merged)
}

// UnmarshalJSON accepts the boolean literal schemas as well as objects.
func (s *PropertySchema) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("true")):
		*s = *BoolSchema(true)
		return nil
	case bytes.Equal(trimmed, []byte("false")):
		*s = *BoolSchema(false)
		return nil
	case len(trimmed) == 0 || trimmed[0] != '{':
		return fmt.Errorf("property schema must be an object or a boolean, got %s", truncate(trimmed, 32))
	}

	var wire propertySchemaWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return err
	}

	*s = PropertySchema{
		Type:                 wire.Type,
		MinLength:            wire.MinLength,
		MaxLength:            wire.MaxLength,
		Pattern:              wire.Pattern,
		Format:               wire.Format,
		MultipleOf:           wire.MultipleOf,
		Minimum:              wire.Minimum,
		ExclusiveMinimum:     wire.ExclusiveMinimum,
		Maximum:              wire.Maximum,
		ExclusiveMaximum:     wire.ExclusiveMaximum,
		AdditionalProperties: wire.AdditionalProperties,
		PropertyNames:        wire.PropertyNames,
		MinProperties:        wire.MinProperties,
		MaxProperties:        wire.MaxProperties,
		AdditionalItems:      wire.AdditionalItems,
		MinItems:             wire.MinItems,
		MaxItems:             wire.MaxItems,
		UniqueItems:          wire.UniqueItems,
	}
	if wire.Enum != nil {
		s.Enum = *wire.Enum
	}
	if wire.Properties != nil {
		s.Properties = *wire.Properties
	}
	if wire.Required != nil {
		s.Required = *wire.Required
	}
	if wire.Dependencies != nil {
		s.Dependencies = *wire.Dependencies
	}

	extra, err := unmodelledKeywords(trimmed)
	if err != nil {
		return err
	}
	s.Extra = extra

	items := bytes.TrimSpace(wire.Items)
	switch {
	case len(items) == 0:
	case items[0] == '[':
		var tuple []*PropertySchema
		if err := json.Unmarshal(items, &tuple); err != nil {
			return fmt.Errorf("items: %w", err)
		}
		s.TupleItems = tuple
	default:
		var single PropertySchema
		if err := json.Unmarshal(items, &single); err != nil {
			return fmt.Errorf("items: %w", err)
		}
		s.Items = &single
	}

	return nil
}

// unmodelledKeywords collects the members of a schema object that have no
// field, compacted. It returns nil when there are none.
func unmodelledKeywords(data []byte) (map[string]json.RawMessage, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}

	var extra map[string]json.RawMessage
	for name, value := range members {
		if _, modelled := modelledKeywords[name]; modelled {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, value); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[name] = buf.Bytes()
	}
	return extra, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
