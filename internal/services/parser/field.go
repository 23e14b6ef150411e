package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/entigraph/entigraph/internal/entities"
)

// namePattern is the identifier grammar shared by entity names, field
// names, union members and backref names: 64 characters max, no leading
// digit, letters/digits/underscore only.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

var primitives = map[string]entities.PrimitiveType{
	"string":   entities.TypeString,
	"number":   entities.TypeNumber,
	"boolean":  entities.TypeBoolean,
	"date":     entities.TypeDate,
	"datetime": entities.TypeDatetime,
	"markdown": entities.TypeMarkdown,
	"json":     entities.TypeJSON,
	"url":      entities.TypeURL,
}

// synonyms maps common foreign type tokens to the primitive the author
// probably meant, used only to improve error messages.
var synonyms = map[string]entities.PrimitiveType{
	"int":       entities.TypeNumber,
	"integer":   entities.TypeNumber,
	"float":     entities.TypeNumber,
	"double":    entities.TypeNumber,
	"decimal":   entities.TypeNumber,
	"bigint":    entities.TypeNumber,
	"str":       entities.TypeString,
	"text":      entities.TypeString,
	"varchar":   entities.TypeString,
	"char":      entities.TypeString,
	"bool":      entities.TypeBoolean,
	"timestamp": entities.TypeDatetime,
	"time":      entities.TypeDatetime,
	"uri":       entities.TypeURL,
	"link":      entities.TypeURL,
	"object":    entities.TypeJSON,
	"dict":      entities.TypeJSON,
	"map":       entities.TypeJSON,
	"md":        entities.TypeMarkdown,
}

// operators maps the four relationship operator tokens to their semantics,
// checked in order so two-character prefixes are unambiguous.
var operators = []struct {
	token     string
	direction entities.Direction
	mode      entities.MatchMode
}{
	{"->", entities.DirectionForward, entities.MatchExact},
	{"~>", entities.DirectionForward, entities.MatchFuzzy},
	{"<-", entities.DirectionBackward, entities.MatchExact},
	{"<~", entities.DirectionBackward, entities.MatchFuzzy},
}

// nameReason returns an empty string for a valid identifier, otherwise a
// one-line reason suitable for a SchemaError message.
func nameReason(name string) string {
	switch {
	case name == "":
		return "name is empty"
	case len(name) > 64:
		return "name exceeds 64 characters"
	case strings.TrimSpace(name) != name || strings.ContainsAny(name, " \t\n"):
		return "name must not contain whitespace"
	case name[0] >= '0' && name[0] <= '9':
		return "name must not start with a digit"
	case !namePattern.MatchString(name):
		return "name may only contain letters, digits and underscore"
	default:
		return ""
	}
}

// ParseField parses one field expression into a typed descriptor. The
// array wrapper is handled by ParseSchema; expressions passed here are the
// inner string. entityName/fieldName are used only for error paths.
func ParseField(entityName, fieldName, expr string) (*entities.FieldDescriptor, error) {
	path := entityName + "." + fieldName
	raw := strings.TrimSpace(expr)

	if strings.HasSuffix(raw, "??") {
		return nil, &entities.SchemaError{
			Code:    entities.CodeInvalidExpression,
			Path:    path,
			Value:   expr,
			Message: "field may be marked optional at most once",
		}
	}
	optional := strings.HasSuffix(raw, "?")
	raw = strings.TrimSuffix(raw, "?")

	if raw == "" {
		return nil, &entities.SchemaError{
			Code:    entities.CodeInvalidFieldType,
			Path:    path,
			Value:   expr,
			Message: "field expression is empty",
		}
	}

	fd := &entities.FieldDescriptor{Name: fieldName, IsOptional: optional}

	for _, op := range operators {
		if strings.HasPrefix(raw, op.token) {
			rel, err := parseRelationship(path, raw[len(op.token):])
			if err != nil {
				return nil, err
			}
			rel.Direction = op.direction
			rel.MatchMode = op.mode
			fd.Kind = entities.KindRelationship
			fd.Relationship = rel
			return fd, nil
		}
	}

	// A non-identifier leading character means a malformed operator rather
	// than a bad type token.
	if strings.ContainsAny(raw[:1], "<>~-=") {
		return nil, &entities.SchemaError{
			Code:    entities.CodeInvalidRelationship,
			Path:    path,
			Value:   raw,
			Message: "unknown relationship operator; expected ->, ~>, <- or <~",
		}
	}

	prim, ok := primitives[raw]
	if !ok {
		msg := "unknown field type; expected one of string, number, boolean, date, datetime, markdown, json, url"
		if suggestion, found := primitives[strings.ToLower(raw)]; found {
			msg = "unknown field type; did you mean " + strconv.Quote(string(suggestion)) + "?"
		} else if suggestion, found := synonyms[strings.ToLower(raw)]; found {
			msg = "unknown field type; did you mean " + strconv.Quote(string(suggestion)) + "?"
		}
		return nil, &entities.SchemaError{
			Code:    entities.CodeInvalidFieldType,
			Path:    path,
			Value:   raw,
			Message: msg,
		}
	}
	fd.Kind = entities.KindPrimitive
	fd.Primitive = prim
	return fd, nil
}

// parseRelationship parses the remainder of a relationship expression:
// Target[|Target...][(threshold)][.backref]
func parseRelationship(path, body string) (*entities.RelationshipSpec, error) {
	rel := &entities.RelationshipSpec{}

	targetPart := body
	tail := ""
	if open := strings.Index(body, "("); open >= 0 {
		closing := strings.Index(body[open:], ")")
		if closing < 0 {
			return nil, &entities.SchemaError{
				Code:    entities.CodeInvalidRelationship,
				Path:    path,
				Value:   body,
				Message: "unterminated threshold: missing ')'",
			}
		}
		targetPart = body[:open]
		thresholdText := strings.TrimSpace(body[open+1 : open+closing])
		tail = body[open+closing+1:]

		// Non-numeric threshold text is tolerated and left unset;
		// numeric values outside [0,1] are clamped.
		if f, err := strconv.ParseFloat(thresholdText, 64); err == nil {
			f = clamp01(f)
			rel.Threshold = &f
		}
	} else if dot := strings.Index(body, "."); dot >= 0 {
		targetPart = body[:dot]
		tail = body[dot:]
	}

	if strings.TrimSpace(targetPart) == "" {
		return nil, &entities.SchemaError{
			Code:    entities.CodeInvalidRelationship,
			Path:    path,
			Value:   body,
			Message: "relationship operator requires a target type",
		}
	}

	for _, member := range strings.Split(targetPart, "|") {
		if reason := nameReason(member); reason != "" {
			return nil, &entities.SchemaError{
				Code:    entities.CodeInvalidRelationship,
				Path:    path,
				Value:   member,
				Message: "invalid union target type: " + reason,
			}
		}
		rel.TargetTypes = append(rel.TargetTypes, member)
	}

	switch {
	case tail == "":
	case strings.HasPrefix(tail, "."):
		backref := tail[1:]
		if strings.Contains(backref, ".") {
			return nil, &entities.SchemaError{
				Code:    entities.CodeInvalidRelationship,
				Path:    path,
				Value:   backref,
				Message: "backref must be a single identifier segment",
			}
		}
		if reason := nameReason(backref); reason != "" {
			return nil, &entities.SchemaError{
				Code:    entities.CodeInvalidRelationship,
				Path:    path,
				Value:   backref,
				Message: "invalid backref name: " + reason,
			}
		}
		rel.BackrefField = backref
	default:
		return nil, &entities.SchemaError{
			Code:    entities.CodeInvalidRelationship,
			Path:    path,
			Value:   tail,
			Message: "unexpected characters after threshold",
		}
	}

	return rel, nil
}
