package internal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lychee-technology/scorekeep"
)

type evaluation struct {
	coerce bool
	errs   *scorekeep.ValidationErrors
}

// Evaluate validates data and returns a *scorekeep.ValidationErrors of kind
// DataValidationFailed carrying every violation, or nil. A non-empty
// rootPath becomes the first segment of every violation path.
func (v *CompiledValidator) Evaluate(data any, rootPath string) error {
	path := scorekeep.Path{}
	if rootPath != "" {
		path = path.Append(scorekeep.Key(rootPath))
	}

	ev := &evaluation{
		coerce: v.opts.CoerceTypes,
		errs:   scorekeep.NewValidationErrors(scorekeep.DataValidationFailed),
	}

	value, err := normalizeJSON(data)
	if err != nil {
		ev.errs.Add(path, "type", "should be valid JSON")
		return ev.errs
	}

	ev.validate(v.root, value, path)
	return ev.errs.ToError()
}

// validate checks value against node and returns the value after coercion.
func (ev *evaluation) validate(node *compiledNode, value any, path scorekeep.Path) any {
	if node.literal != nil {
		if !*node.literal {
			ev.errs.Add(path, "false schema", "boolean schema is false")
		}
		return value
	}

	s := node.schema
	value, ok := ev.checkType(s.Type, value, path)
	if !ok {
		return value
	}

	switch s.Type {
	case scorekeep.SchemaTypeObject:
		ev.validateObject(node, value.(map[string]any), path)
	case scorekeep.SchemaTypeArray:
		ev.validateArray(node, value.([]any), path)
	case scorekeep.SchemaTypeString:
		ev.validateString(node, value.(string), path)
	case scorekeep.SchemaTypeNumber:
		ev.validateNumber(s, value.(float64), path)
	}
	return value
}

func (ev *evaluation) checkType(want scorekeep.SchemaType, value any, path scorekeep.Path) (any, bool) {
	if jsonTypeOf(value) == string(want) {
		return value, true
	}
	if ev.coerce {
		if coerced, ok := coerceScalar(want, value); ok {
			return coerced, true
		}
	}
	ev.errs.Add(path, "type", "should be "+string(want))
	return value, false
}

// coerceScalar converts between scalar JSON types the way form-encoded input
// is usually interpreted.
func coerceScalar(want scorekeep.SchemaType, value any) (any, bool) {
	switch want {
	case scorekeep.SchemaTypeString:
		switch v := value.(type) {
		case float64:
			return formatNumber(v), true
		case bool:
			return strconv.FormatBool(v), true
		case nil:
			return "", true
		}
	case scorekeep.SchemaTypeNumber:
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return nil, false
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
				return nil, false
			}
			return f, true
		case bool:
			if v {
				return float64(1), true
			}
			return float64(0), true
		case nil:
			return float64(0), true
		}
	case scorekeep.SchemaTypeBoolean:
		switch v := value.(type) {
		case string:
			switch v {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		case float64:
			switch v {
			case 1:
				return true, true
			case 0:
				return false, true
			}
		case nil:
			return false, true
		}
	case scorekeep.SchemaTypeNull:
		switch v := value.(type) {
		case string:
			if v == "" {
				return nil, true
			}
		case float64:
			if v == 0 {
				return nil, true
			}
		case bool:
			if !v {
				return nil, true
			}
		}
	}
	return nil, false
}

func (ev *evaluation) validateObject(node *compiledNode, obj map[string]any, path scorekeep.Path) {
	s := node.schema

	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			ev.errs.Add(path.Append(scorekeep.Key(name)), "required", fmt.Sprintf("should have required property '%s'", name))
		}
	}

	for _, name := range node.propertyOrder {
		child, ok := obj[name]
		if !ok {
			continue
		}
		obj[name] = ev.validate(node.properties[name], child, path.Append(scorekeep.Key(name)))
	}

	keys := sortedKeys(obj)

	if node.additionalProperties != nil {
		for _, key := range keys {
			if _, declared := node.properties[key]; declared {
				continue
			}
			extra := node.additionalProperties
			if extra.literal != nil && !*extra.literal {
				ev.errs.Add(path.Append(scorekeep.Key(key)), "additionalProperties", "should NOT have additional properties")
				continue
			}
			obj[key] = ev.validate(extra, obj[key], path.Append(scorekeep.Key(key)))
		}
	}

	if node.propertyNames != nil {
		for _, key := range keys {
			if !node.propertyNames.MatchString(key) {
				ev.errs.Add(path.Append(scorekeep.Key(key)), "propertyNames", fmt.Sprintf("property name '%s' is invalid", key))
			}
		}
	}

	if s.MinProperties != nil && len(obj) < *s.MinProperties {
		ev.errs.Add(path, "minProperties", fmt.Sprintf("should NOT have fewer than %d properties", *s.MinProperties))
	}
	if s.MaxProperties != nil && len(obj) > *s.MaxProperties {
		ev.errs.Add(path, "maxProperties", fmt.Sprintf("should NOT have more than %d properties", *s.MaxProperties))
	}

	if s.Dependencies != nil {
		for _, key := range sortedDependencyKeys(s.Dependencies) {
			if _, present := obj[key]; !present {
				continue
			}
			for _, dep := range s.Dependencies[key] {
				if _, ok := obj[dep]; !ok {
					ev.errs.Add(path, "dependencies", fmt.Sprintf("should have property %s when property %s is present", dep, key))
				}
			}
		}
	}
}

func sortedDependencyKeys(deps map[string][]string) []string {
	m := make(map[string]any, len(deps))
	for k := range deps {
		m[k] = nil
	}
	return sortedKeys(m)
}

func (ev *evaluation) validateArray(node *compiledNode, arr []any, path scorekeep.Path) {
	s := node.schema

	if s.MinItems != nil && len(arr) < *s.MinItems {
		ev.errs.Add(path, "minItems", fmt.Sprintf("should NOT have fewer than %d items", *s.MinItems))
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		ev.errs.Add(path, "maxItems", fmt.Sprintf("should NOT have more than %d items", *s.MaxItems))
	}

	switch {
	case node.tupleItems != nil:
		for i := 0; i < len(arr) && i < len(node.tupleItems); i++ {
			arr[i] = ev.validate(node.tupleItems[i], arr[i], path.Append(scorekeep.Index(i)))
		}
		if len(arr) > len(node.tupleItems) && node.additionalItems != nil {
			extra := node.additionalItems
			if extra.literal != nil && !*extra.literal {
				ev.errs.Add(path, "additionalItems", fmt.Sprintf("should NOT have more than %d items", len(node.tupleItems)))
				break
			}
			for i := len(node.tupleItems); i < len(arr); i++ {
				arr[i] = ev.validate(extra, arr[i], path.Append(scorekeep.Index(i)))
			}
		}
	case node.items != nil:
		for i := range arr {
			arr[i] = ev.validate(node.items, arr[i], path.Append(scorekeep.Index(i)))
		}
	}

	if s.UniqueItems {
		if i, j, dup := firstDuplicate(arr); dup {
			ev.errs.Add(path, "uniqueItems", fmt.Sprintf("should NOT have duplicate items (items ## %d and %d are identical)", j, i))
		}
	}
}

// firstDuplicate scans from the end and reports the highest index i that
// repeats an earlier element j.
func firstDuplicate(arr []any) (int, int, bool) {
	for i := len(arr) - 1; i > 0; i-- {
		for j := i - 1; j >= 0; j-- {
			if jsonEqual(arr[i], arr[j]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func (ev *evaluation) validateString(node *compiledNode, str string, path scorekeep.Path) {
	s := node.schema
	length := utf8.RuneCountInString(str)

	if s.MinLength != nil && length < *s.MinLength {
		ev.errs.Add(path, "minLength", fmt.Sprintf("should NOT be shorter than %d characters", *s.MinLength))
	}
	if s.MaxLength != nil && length > *s.MaxLength {
		ev.errs.Add(path, "maxLength", fmt.Sprintf("should NOT be longer than %d characters", *s.MaxLength))
	}
	if node.pattern != nil && !node.pattern.MatchString(str) {
		ev.errs.Add(path, "pattern", fmt.Sprintf("should match pattern \"%s\"", s.Pattern))
	}
	if node.checkFormat != nil && !node.checkFormat(str) {
		ev.errs.Add(path, "format", fmt.Sprintf("should match format \"%s\"", s.Format))
	}
	if s.Enum != nil && !containsString(s.Enum, str) {
		ev.errs.Add(path, "enum", "should be equal to one of the allowed values")
	}
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func (ev *evaluation) validateNumber(s *scorekeep.PropertySchema, n float64, path scorekeep.Path) {
	if s.Minimum != nil && n < *s.Minimum {
		ev.errs.Add(path, "minimum", "should be >= "+formatNumber(*s.Minimum))
	}
	if s.ExclusiveMinimum != nil && n <= *s.ExclusiveMinimum {
		ev.errs.Add(path, "exclusiveMinimum", "should be > "+formatNumber(*s.ExclusiveMinimum))
	}
	if s.Maximum != nil && n > *s.Maximum {
		ev.errs.Add(path, "maximum", "should be <= "+formatNumber(*s.Maximum))
	}
	if s.ExclusiveMaximum != nil && n >= *s.ExclusiveMaximum {
		ev.errs.Add(path, "exclusiveMaximum", "should be < "+formatNumber(*s.ExclusiveMaximum))
	}
	if s.MultipleOf != nil && !isMultipleOf(n, *s.MultipleOf) {
		ev.errs.Add(path, "multipleOf", "should be multiple of "+formatNumber(*s.MultipleOf))
	}
}

// isMultipleOf tolerates the rounding error of decimal divisors such as 0.1.
func isMultipleOf(n, divisor float64) bool {
	q := n / divisor
	if math.IsInf(q, 0) || math.IsNaN(q) {
		return false
	}
	return math.Abs(q-math.Round(q)) <= 1e-9*math.Max(1, math.Abs(q))
}
