package entities

import (
	"errors"
	"fmt"
)

// Schema error codes. Every SchemaError carries one of these plus the
// offending literal value so callers can act on the message alone.
const (
	CodeInvalidEntityName   = "INVALID_ENTITY_NAME"
	CodeInvalidFieldName    = "INVALID_FIELD_NAME"
	CodeInvalidFieldType    = "INVALID_FIELD_TYPE"
	CodeInvalidExpression   = "INVALID_FIELD_EXPRESSION"
	CodeInvalidRelationship = "INVALID_RELATIONSHIP"
	CodeUnknownTargetType   = "UNKNOWN_TARGET_TYPE"
)

// SchemaError is a parse-time schema validation failure. Path locates the
// offending construct ("Blog" or "Blog.topics"), Value is the literal that
// was rejected, Message is a one-line reason.
type SchemaError struct {
	Code    string
	Path    string
	Value   string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error %s at %s: %s (got %q)", e.Code, e.Path, e.Message, e.Value)
}

// NotFoundError reports a missing entity or relation.
type NotFoundError struct {
	Kind string // "entity" or "relation"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ConflictError reports a duplicate key on create.
type ConflictError struct {
	Kind string
	Key  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.Key)
}

// CapabilityError reports an operation that requires a collaborator the
// session was not constructed with, e.g. generation without a generator.
type CapabilityError struct {
	Capability string
	Detail     string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability unavailable: %s (%s)", e.Capability, e.Detail)
}

// GenerationError wraps a failure of the generation collaborator, keeping
// the field and target type so cascade error handlers can report it.
type GenerationError struct {
	Field      string
	TargetType string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for field %s (target %s): %v", e.Field, e.TargetType, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is (or wraps) a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is (or wraps) a ConflictError
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
