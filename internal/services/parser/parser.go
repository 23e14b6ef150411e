// Package parser turns raw schema declarations (entity name → field name →
// field expression string) into a validated, typed schema. Parsing is
// staged so each validation concern is independently testable: name
// grammar, primitive whitelist, modifiers, relationship operator grammar,
// and finally a cross-reference pass over relationship targets.
package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/entigraph/entigraph/internal/entities"
)

// ParseSchema parses and validates a raw schema. It fails fast with a
// *entities.SchemaError on the first invalid construct; on success the
// returned schema is immutable and safe for concurrent reads.
func ParseSchema(raw entities.RawSchema) (*entities.Schema, error) {
	if len(raw) == 0 {
		return nil, &entities.SchemaError{
			Code:    entities.CodeInvalidExpression,
			Path:    "/",
			Message: "schema must declare at least one entity",
		}
	}

	schema := &entities.Schema{}
	for _, entityName := range sortedKeys(raw) {
		if reason := nameReason(entityName); reason != "" {
			return nil, &entities.SchemaError{
				Code:    entities.CodeInvalidEntityName,
				Path:    entityName,
				Value:   entityName,
				Message: "invalid entity name: " + reason,
			}
		}

		et := &entities.EntityType{Name: entityName}
		fields := raw[entityName]
		for _, fieldName := range sortedKeys(fields) {
			if strings.HasPrefix(fieldName, entities.ReservedPrefix) {
				if err := parseMetadata(et, fieldName, fields[fieldName]); err != nil {
					return nil, err
				}
				continue
			}
			if reason := nameReason(fieldName); reason != "" {
				return nil, &entities.SchemaError{
					Code:    entities.CodeInvalidFieldName,
					Path:    entityName + "." + fieldName,
					Value:   fieldName,
					Message: "invalid field name: " + reason,
				}
			}

			expr, isArray, err := unwrapExpr(entityName, fieldName, fields[fieldName])
			if err != nil {
				return nil, err
			}
			fd, err := ParseField(entityName, fieldName, expr)
			if err != nil {
				return nil, err
			}
			fd.IsArray = isArray
			et.Fields = append(et.Fields, fd)
		}
		schema.Entities = append(schema.Entities, et)
	}

	if err := validateTargets(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// unwrapExpr extracts the expression string from a raw field value.
// A single-element array marks the field as repeatable.
func unwrapExpr(entityName, fieldName string, value any) (string, bool, error) {
	path := entityName + "." + fieldName
	switch v := value.(type) {
	case string:
		return v, false, nil
	case []string:
		if len(v) != 1 {
			return "", false, arrayArityError(path, len(v))
		}
		return v[0], true, nil
	case []any:
		if len(v) != 1 {
			return "", false, arrayArityError(path, len(v))
		}
		s, ok := v[0].(string)
		if !ok {
			return "", false, &entities.SchemaError{
				Code:    entities.CodeInvalidExpression,
				Path:    path,
				Value:   fmt.Sprintf("%v", v[0]),
				Message: "repeatable field must wrap a string expression",
			}
		}
		return s, true, nil
	default:
		return "", false, &entities.SchemaError{
			Code:    entities.CodeInvalidExpression,
			Path:    path,
			Value:   fmt.Sprintf("%v", value),
			Message: "field expression must be a string or a single-element array of one string",
		}
	}
}

func arrayArityError(path string, n int) error {
	return &entities.SchemaError{
		Code:    entities.CodeInvalidExpression,
		Path:    path,
		Value:   fmt.Sprintf("array of %d", n),
		Message: "repeatable field must wrap exactly one expression",
	}
}

// parseMetadata handles entity-level "$" keys. Unrecognized metadata keys
// are ignored so callers can attach their own annotations.
func parseMetadata(et *entities.EntityType, key string, value any) error {
	switch key {
	case "$instructions":
		if s, ok := value.(string); ok {
			et.Instructions = s
		}
	case "$context":
		if s, ok := value.(string); ok {
			et.Context = s
		}
	case "$seed":
		et.Seed = value
	case "$fuzzyThreshold":
		f, ok := toFloat(value)
		if !ok {
			return &entities.SchemaError{
				Code:    entities.CodeInvalidExpression,
				Path:    et.Name + ".$fuzzyThreshold",
				Value:   fmt.Sprintf("%v", value),
				Message: "$fuzzyThreshold must be a number between 0 and 1",
			}
		}
		f = clamp01(f)
		et.FuzzyThreshold = &f
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// validateTargets checks that every relationship target type names a
// declared entity. Runs after all entities are parsed so declaration order
// does not matter.
func validateTargets(schema *entities.Schema) error {
	for _, et := range schema.Entities {
		for _, fd := range et.Fields {
			if fd.Kind != entities.KindRelationship {
				continue
			}
			for _, target := range fd.Relationship.TargetTypes {
				if schema.GetEntity(target) == nil {
					return &entities.SchemaError{
						Code:    entities.CodeUnknownTargetType,
						Path:    et.Name + "." + fd.Name,
						Value:   target,
						Message: "relationship target type is not declared in the schema",
					}
				}
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
