package entities

import (
	"strconv"
	"strings"
)

// FieldKind discriminates the two variants of a field descriptor
type FieldKind int

const (
	KindPrimitive FieldKind = iota
	KindRelationship
)

// PrimitiveType is one of the whitelisted scalar field types
type PrimitiveType string

const (
	TypeString   PrimitiveType = "string"
	TypeNumber   PrimitiveType = "number"
	TypeBoolean  PrimitiveType = "boolean"
	TypeDate     PrimitiveType = "date"
	TypeDatetime PrimitiveType = "datetime"
	TypeMarkdown PrimitiveType = "markdown"
	TypeJSON     PrimitiveType = "json"
	TypeURL      PrimitiveType = "url"
)

// Direction of a relationship field. Forward fields own the edge and may
// create their target; backward fields aggregate or ground against
// existing data.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionBackward
)

// MatchMode of a relationship field. Exact links or creates without
// searching; fuzzy consults the similarity collaborator first.
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchFuzzy
)

// RelationshipSpec holds the relationship half of a field descriptor.
// TargetTypes is a union in declared priority order; the first entry is the
// default creation target for exact modes.
type RelationshipSpec struct {
	Direction    Direction
	MatchMode    MatchMode
	TargetTypes  []string
	Threshold    *float64 // nil means "inherit entity/global default"
	BackrefField string   // inverse forward field name, optional
}

// Operator returns the relationship's two-character operator token
func (r *RelationshipSpec) Operator() string {
	switch {
	case r.Direction == DirectionForward && r.MatchMode == MatchExact:
		return "->"
	case r.Direction == DirectionForward && r.MatchMode == MatchFuzzy:
		return "~>"
	case r.Direction == DirectionBackward && r.MatchMode == MatchExact:
		return "<-"
	default:
		return "<~"
	}
}

// FieldDescriptor is the parsed, typed representation of one schema field
// expression. Exactly one of Primitive / Relationship is meaningful,
// selected by Kind.
type FieldDescriptor struct {
	Name         string
	Kind         FieldKind
	Primitive    PrimitiveType
	IsArray      bool
	IsOptional   bool
	Relationship *RelationshipSpec
}

// IsForward reports whether the field is a forward relationship
// (the kind the cascade orchestrator recurses into).
func (f *FieldDescriptor) IsForward() bool {
	return f.Kind == KindRelationship && f.Relationship != nil &&
		f.Relationship.Direction == DirectionForward
}

// Expr returns the canonical field expression for the descriptor, without
// the array wrapper (arrays are represented at the raw-schema level).
// Parsing the result yields a structurally identical descriptor.
func (f *FieldDescriptor) Expr() string {
	var b strings.Builder
	if f.Kind == KindPrimitive {
		b.WriteString(string(f.Primitive))
	} else {
		r := f.Relationship
		b.WriteString(r.Operator())
		b.WriteString(strings.Join(r.TargetTypes, "|"))
		if r.Threshold != nil {
			b.WriteString("(")
			b.WriteString(strconv.FormatFloat(*r.Threshold, 'g', -1, 64))
			b.WriteString(")")
		}
		if r.BackrefField != "" {
			b.WriteString(".")
			b.WriteString(r.BackrefField)
		}
	}
	if f.IsOptional {
		b.WriteString("?")
	}
	return b.String()
}
