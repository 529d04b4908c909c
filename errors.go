package scorekeep

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrorType represents the category of an infrastructure error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeSeed       ErrorType = "seed"
)

// Error codes
const (
	ErrCodeEntityNotFound      = "ENTITY_NOT_FOUND"
	ErrCodeEntityAlreadyExists = "ENTITY_ALREADY_EXISTS"
	ErrCodeBadUserInput        = "BAD_USER_INPUT"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeSeedFailed          = "SEED_FAILED"
	ErrCodeInvalidJSON         = "INVALID_JSON"
)

// User facing labels for validation failures.
const (
	LabelInvalidSchema   = "Invalid schema!"
	LabelInvalidResults  = "Invalid results!"
	LabelInvalidMetadata = "Invalid metadata!"
	LabelInvalidGame     = "Invalid boardgame!"
)

// ScorekeepError is the error returned by persistence, seeding and lookups.
type ScorekeepError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *ScorekeepError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ScorekeepError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to the error
func (e *ScorekeepError) WithDetail(key string, value any) *ScorekeepError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithField adds field context to the error
func (e *ScorekeepError) WithField(field string) *ScorekeepError {
	e.Field = field
	return e
}

// NewNotFoundError creates an entity not found error
func NewNotFoundError(entity, id string) *ScorekeepError {
	return &ScorekeepError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeEntityNotFound,
		Message: fmt.Sprintf("%s '%s' not found", entity, id),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

// NewAlreadyExistsError creates an entity already exists error
func NewAlreadyExistsError(entity, field, value string) *ScorekeepError {
	return &ScorekeepError{
		Type:    ErrorTypeConflict,
		Code:    ErrCodeEntityAlreadyExists,
		Message: fmt.Sprintf("%s with %s '%s' already exists", entity, field, value),
		Field:   field,
		Details: map[string]any{"entity": entity, "value": value},
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *ScorekeepError {
	return &ScorekeepError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// NewSeedError creates a seed import error
func NewSeedError(message string, cause error) *ScorekeepError {
	return &ScorekeepError{
		Type:    ErrorTypeSeed,
		Code:    ErrCodeSeedFailed,
		Message: message,
		Cause:   cause,
	}
}

// IsNotFoundError reports whether err wraps a not found error
func IsNotFoundError(err error) bool {
	var se *ScorekeepError
	return errors.As(err, &se) && se.Code == ErrCodeEntityNotFound
}

// IsAlreadyExistsError reports whether err wraps an already exists error
func IsAlreadyExistsError(err error) bool {
	var se *ScorekeepError
	return errors.As(err, &se) && se.Code == ErrCodeEntityAlreadyExists
}

// ============================================================================
// Paths
// ============================================================================

// PathSegment is one step of a violation path: a property name or an array index.
type PathSegment struct {
	name    string
	index   int
	isIndex bool
}

// Key returns a property name segment.
func Key(name string) PathSegment {
	return PathSegment{name: name}
}

// Index returns an array index segment.
func Index(i int) PathSegment {
	return PathSegment{index: i, isIndex: true}
}

// IsIndex reports whether the segment addresses an array element.
func (s PathSegment) IsIndex() bool { return s.isIndex }

// Name returns the property name of a key segment.
func (s PathSegment) Name() string { return s.name }

// Position returns the array index of an index segment.
func (s PathSegment) Position() int { return s.index }

func (s PathSegment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.name
}

func (s PathSegment) MarshalJSON() ([]byte, error) {
	if s.isIndex {
		return json.Marshal(s.index)
	}
	return json.Marshal(s.name)
}

func (s *PathSegment) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = Key(t)
	case float64:
		*s = Index(int(t))
	default:
		return fmt.Errorf("path segment must be a string or a number, got %T", v)
	}
	return nil
}

// Path locates a violation inside the validated value.
type Path []PathSegment

// ParsePath builds a path from a mix of strings and ints.
func ParsePath(segments ...any) Path {
	p := make(Path, 0, len(segments))
	for _, seg := range segments {
		switch v := seg.(type) {
		case int:
			p = append(p, Index(v))
		case string:
			p = append(p, Key(v))
		case PathSegment:
			p = append(p, v)
		default:
			p = append(p, Key(fmt.Sprint(v)))
		}
	}
	return p
}

// Append returns a new path extended by seg; p is left untouched.
func (p Path) Append(seg PathSegment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// Prefix returns a new path with prefix in front of p.
func (p Path) Prefix(prefix ...PathSegment) Path {
	out := make(Path, 0, len(prefix)+len(p))
	out = append(out, prefix...)
	return append(out, p...)
}

// String renders the path as results[0].winner.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if seg.isIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.name)
	}
	return b.String()
}

// ============================================================================
// Validation errors
// ============================================================================

// ErrorKind classifies a ValidationErrors value.
type ErrorKind string

const (
	SchemaShapeInvalid     ErrorKind = "SchemaShapeInvalid"
	DataValidationFailed   ErrorKind = "DataValidationFailed"
	SchemaCompilationError ErrorKind = "SchemaCompilationError"
	BoardgameInvalid       ErrorKind = "BoardgameInvalid"
)

// SchemaViolation is a single failed check.
type SchemaViolation struct {
	Path    Path   `json:"path"`
	Keyword string `json:"keyword,omitempty"`
	Message string `json:"message"`
}

func (v *SchemaViolation) Error() string {
	if len(v.Path) == 0 {
		return v.Message
	}
	return v.Path.String() + ": " + v.Message
}

// ValidationErrors carries every violation found in one validation pass, in
// the order they were found.
type ValidationErrors struct {
	Kind       ErrorKind          `json:"kind"`
	Label      string             `json:"label,omitempty"`
	Violations []*SchemaViolation `json:"violations"`
}

// NewValidationErrors creates an empty ValidationErrors of the given kind
func NewValidationErrors(kind ErrorKind) *ValidationErrors {
	return &ValidationErrors{
		Kind:       kind,
		Violations: make([]*SchemaViolation, 0),
	}
}

// Error implements the error interface for ValidationErrors
func (ve *ValidationErrors) Error() string {
	head := string(ve.Kind)
	if ve.Label != "" {
		head = ve.Label
	}
	switch len(ve.Violations) {
	case 0:
		return head + ": no validation errors"
	case 1:
		return head + " " + ve.Violations[0].Error()
	}
	parts := make([]string, len(ve.Violations))
	for i, v := range ve.Violations {
		parts[i] = v.Error()
	}
	return fmt.Sprintf("%s %d errors: %s", head, len(ve.Violations), strings.Join(parts, "; "))
}

// Add appends a violation
func (ve *ValidationErrors) Add(path Path, keyword, message string) {
	ve.Violations = append(ve.Violations, &SchemaViolation{Path: path, Keyword: keyword, Message: message})
}

// Merge appends the violations of other
func (ve *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	ve.Violations = append(ve.Violations, other.Violations...)
}

// HasErrors returns true if there are any violations
func (ve *ValidationErrors) HasErrors() bool {
	return ve != nil && len(ve.Violations) > 0
}

// ToError returns ve as an error if there are any violations, nil otherwise
func (ve *ValidationErrors) ToError() error {
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// WithKind returns a copy of ve reclassified as kind.
func (ve *ValidationErrors) WithKind(kind ErrorKind) *ValidationErrors {
	out := *ve
	out.Kind = kind
	return &out
}

// WithLabel returns a copy of ve carrying label.
func (ve *ValidationErrors) WithLabel(label string) *ValidationErrors {
	out := *ve
	out.Label = label
	return &out
}

// WithPathPrefix returns a copy of ve with prefix prepended to every path.
func (ve *ValidationErrors) WithPathPrefix(prefix ...PathSegment) *ValidationErrors {
	out := *ve
	out.Violations = make([]*SchemaViolation, len(ve.Violations))
	for i, v := range ve.Violations {
		out.Violations[i] = &SchemaViolation{Path: v.Path.Prefix(prefix...), Keyword: v.Keyword, Message: v.Message}
	}
	return &out
}

// AsValidationErrors unwraps err into a ValidationErrors.
func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsValidationErrors reports whether err is a ValidationErrors of the given kind
func IsValidationErrors(err error, kind ErrorKind) bool {
	ve, ok := AsValidationErrors(err)
	return ok && ve.Kind == kind
}

// MatchValidationError reports the independent outcomes of validating a
// match's results and metadata. Either side may be nil.
type MatchValidationError struct {
	Results  *ValidationErrors `json:"results,omitempty"`
	Metadata *ValidationErrors `json:"metadata,omitempty"`
}

func (e *MatchValidationError) Error() string {
	var parts []string
	if e.Results != nil {
		parts = append(parts, e.Results.Error())
	}
	if e.Metadata != nil {
		parts = append(parts, e.Metadata.Error())
	}
	if len(parts) == 0 {
		return "match validation failed"
	}
	return strings.Join(parts, "; ")
}

func (e *MatchValidationError) Unwrap() []error {
	var errs []error
	if e.Results != nil {
		errs = append(errs, e.Results)
	}
	if e.Metadata != nil {
		errs = append(errs, e.Metadata)
	}
	return errs
}
