package entities

// RawSchema is the wire form a caller supplies: entity name → field name →
// field expression. A field expression is a string, or a single-element
// array of one string for repeatable fields. Keys starting with "$" are
// entity-level metadata, not declared fields.
type RawSchema map[string]map[string]any

// EntityType is one parsed entity declaration: its declared fields plus
// entity-level metadata.
type EntityType struct {
	Name           string
	Fields         []*FieldDescriptor // sorted by field name
	Instructions   string             // $instructions: generation guidance
	FuzzyThreshold *float64           // $fuzzyThreshold: entity-level default
	Seed           any                // $seed: opaque seed data
	Context        string             // $context: extra generation context
}

// GetField returns the field descriptor by name
func (e *EntityType) GetField(name string) *FieldDescriptor {
	for _, f := range e.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ForwardFields returns the forward relationship fields in declaration order
func (e *EntityType) ForwardFields() []*FieldDescriptor {
	var out []*FieldDescriptor
	for _, f := range e.Fields {
		if f.IsForward() {
			out = append(out, f)
		}
	}
	return out
}

// Schema is the parsed, validated schema for a database session. It is
// immutable after construction and safe for concurrent reads.
type Schema struct {
	Entities []*EntityType // sorted by entity name
}

// GetEntity returns the entity type declaration by name
func (s *Schema) GetEntity(name string) *EntityType {
	for _, e := range s.Entities {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Raw re-emits the canonical raw expression mapping for the schema.
// Parsing the result yields a structurally identical schema.
func (s *Schema) Raw() RawSchema {
	raw := make(RawSchema, len(s.Entities))
	for _, e := range s.Entities {
		fields := make(map[string]any, len(e.Fields))
		for _, f := range e.Fields {
			if f.IsArray {
				fields[f.Name] = []any{f.Expr()}
			} else {
				fields[f.Name] = f.Expr()
			}
		}
		if e.Instructions != "" {
			fields["$instructions"] = e.Instructions
		}
		if e.FuzzyThreshold != nil {
			fields["$fuzzyThreshold"] = *e.FuzzyThreshold
		}
		if e.Seed != nil {
			fields["$seed"] = e.Seed
		}
		if e.Context != "" {
			fields["$context"] = e.Context
		}
		raw[e.Name] = fields
	}
	return raw
}
