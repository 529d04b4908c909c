package internal

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/scorekeep"
)

// CompileOptions tunes evaluation behaviour of a compiled validator.
type CompileOptions struct {
	// CoerceTypes converts stringly-typed scalars to the declared type before
	// checking them. Only the results schema shape check turns this on.
	CoerceTypes bool
}

// CompiledValidator is an immutable, goroutine-safe validator for one schema.
type CompiledValidator struct {
	root *compiledNode
	opts CompileOptions
}

type compiledNode struct {
	literal *bool
	schema  *scorekeep.PropertySchema

	pattern       *regexp.Regexp
	propertyNames *regexp.Regexp
	checkFormat   formatChecker

	propertyOrder        []string
	properties           map[string]*compiledNode
	additionalProperties *compiledNode

	items           *compiledNode
	tupleItems      []*compiledNode
	additionalItems *compiledNode
}

// Compile checks schema for internal consistency and prepares it for
// evaluation. It never mutates schema.
func Compile(schema scorekeep.PropertySchema, opts CompileOptions) (*CompiledValidator, error) {
	errs := scorekeep.NewValidationErrors(scorekeep.SchemaCompilationError)
	root := compileNode(&schema, scorekeep.Path{}, errs)
	if errs.HasErrors() {
		return nil, errs
	}

	return &CompiledValidator{root: root, opts: opts}, nil
}

// MustCompile is like Compile but panics on error. It is meant for schema
// constants.
func MustCompile(schema scorekeep.PropertySchema, opts CompileOptions) *CompiledValidator {
	v, err := Compile(schema, opts)
	if err != nil {
		panic(err)
	}
	return v
}

func compileNode(s *scorekeep.PropertySchema, path scorekeep.Path, errs *scorekeep.ValidationErrors) *compiledNode {
	if s == nil {
		errs.Add(path, "schema", "schema must be an object or a boolean")
		return nil
	}
	if s.IsLiteral() {
		return &compiledNode{literal: s.Literal}
	}

	node := &compiledNode{schema: s}

	switch {
	case s.Type == "":
		errs.Add(path, "type", "schema must declare a type")
		return node
	case !s.Type.Valid():
		errs.Add(path.Append(scorekeep.Key("type")), "type", fmt.Sprintf("unknown type '%s'", s.Type))
		return node
	}

	checkExtraKeywords(s, path, errs)

	for _, kw := range s.ConflictingKeywords() {
		errs.Add(path.Append(scorekeep.Key(kw)), kw, fmt.Sprintf("keyword '%s' does not apply to type '%s'", kw, s.Type))
	}

	checkNonNegative(path, "minLength", s.MinLength, errs)
	checkNonNegative(path, "maxLength", s.MaxLength, errs)
	checkNonNegative(path, "minProperties", s.MinProperties, errs)
	checkNonNegative(path, "maxProperties", s.MaxProperties, errs)
	checkNonNegative(path, "minItems", s.MinItems, errs)
	checkNonNegative(path, "maxItems", s.MaxItems, errs)

	if s.MultipleOf != nil && *s.MultipleOf <= 0 {
		errs.Add(path.Append(scorekeep.Key("multipleOf")), "multipleOf", "multipleOf must be greater than 0")
	}

	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			errs.Add(path.Append(scorekeep.Key("pattern")), "pattern", fmt.Sprintf("invalid pattern: %v", err))
		}
		node.pattern = re
	}

	if s.Format != "" {
		if !isKnownFormat(s.Format) {
			errs.Add(path.Append(scorekeep.Key("format")), "format", fmt.Sprintf("unknown format \"%s\"", s.Format))
		}
		node.checkFormat = formatCheckers[s.Format]
	}

	if s.PropertyNames != nil {
		re, err := regexp.Compile(s.PropertyNames.Pattern)
		if err != nil {
			errs.Add(scorekeep.ParsePath("propertyNames", "pattern").Prefix(path...), "propertyNames", fmt.Sprintf("invalid pattern: %v", err))
		}
		node.propertyNames = re
	}

	if s.Properties != nil {
		node.propertyOrder = s.PropertyNamesSorted()
		node.properties = make(map[string]*compiledNode, len(s.Properties))
		for _, name := range node.propertyOrder {
			childPath := scorekeep.ParsePath("properties", name).Prefix(path...)
			node.properties[name] = compileNode(s.Properties[name], childPath, errs)
		}
	}

	if s.AdditionalProperties != nil {
		node.additionalProperties = compileNode(s.AdditionalProperties, path.Append(scorekeep.Key("additionalProperties")), errs)
	}

	if s.Items != nil {
		node.items = compileNode(s.Items, path.Append(scorekeep.Key("items")), errs)
	}
	if s.TupleItems != nil {
		node.tupleItems = make([]*compiledNode, len(s.TupleItems))
		for i, item := range s.TupleItems {
			node.tupleItems[i] = compileNode(item, scorekeep.ParsePath("items", i).Prefix(path...), errs)
		}
	}
	if s.AdditionalItems != nil {
		node.additionalItems = compileNode(s.AdditionalItems, path.Append(scorekeep.Key("additionalItems")), errs)
	}

	return node
}

func checkNonNegative(path scorekeep.Path, keyword string, v *int, errs *scorekeep.ValidationErrors) {
	if v != nil && *v < 0 {
		errs.Add(path.Append(scorekeep.Key(keyword)), keyword, fmt.Sprintf("%s must be a non-negative integer", keyword))
	}
}

// annotationKeywords are the JSON Schema keywords that carry no assertion and
// may accompany a schema. Vocabulary keywords outside this set would change
// what validates, so they are rejected rather than silently ignored.
var annotationKeywords = map[string]struct{}{
	"$schema": {}, "$id": {}, "$comment": {}, "$anchor": {}, "$defs": {}, "definitions": {},
	"title": {}, "description": {}, "default": {}, "examples": {},
	"deprecated": {}, "readOnly": {}, "writeOnly": {},
	"contentEncoding": {}, "contentMediaType": {},
}

// annotationBaseURI anchors relative $id values during resolution.
const annotationBaseURI = "urn:scorekeep:schema"

// checkExtraKeywords classifies the unmodelled keywords of s through the
// jsonschema vocabulary: annotations are resolved, keywords unknown to JSON
// Schema pass through, and assertion keywords are reported as unsupported.
func checkExtraKeywords(s *scorekeep.PropertySchema, path scorekeep.Path, errs *scorekeep.ValidationErrors) {
	if len(s.Extra) == 0 {
		return
	}

	raw, err := json.Marshal(s.Extra)
	if err != nil {
		errs.Add(path, "schema", fmt.Sprintf("invalid keywords: %v", err))
		return
	}
	var annotations jsonschema.Schema
	if err := json.Unmarshal(raw, &annotations); err != nil {
		errs.Add(path, "schema", fmt.Sprintf("invalid keywords: %v", err))
		return
	}

	supported := true
	for _, name := range s.ExtraKeywords() {
		if _, custom := annotations.Extra[name]; custom {
			continue
		}
		if _, ok := annotationKeywords[name]; ok {
			continue
		}
		supported = false
		errs.Add(path.Append(scorekeep.Key(name)), name, fmt.Sprintf("keyword '%s' is not supported", name))
	}
	if !supported {
		return
	}

	if _, err := annotations.Resolve(&jsonschema.ResolveOptions{BaseURI: annotationBaseURI}); err != nil {
		errs.Add(path, "schema", fmt.Sprintf("invalid annotations: %v", err))
	}
}
