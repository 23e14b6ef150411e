package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/entigraph/entigraph/internal/entities"
)

func mustParseField(t *testing.T, expr string) *entities.FieldDescriptor {
	t.Helper()
	fd, err := ParseField("Blog", "field", expr)
	if err != nil {
		t.Fatalf("ParseField(%q) error: %v", expr, err)
	}
	return fd
}

func schemaErr(t *testing.T, err error) *entities.SchemaError {
	t.Helper()
	var se *entities.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *entities.SchemaError, got %T: %v", err, err)
	}
	return se
}

func TestParseField_Primitives(t *testing.T) {
	tests := []struct {
		expr         string
		wantType     entities.PrimitiveType
		wantOptional bool
	}{
		{"string", entities.TypeString, false},
		{"number", entities.TypeNumber, false},
		{"boolean", entities.TypeBoolean, false},
		{"date", entities.TypeDate, false},
		{"datetime", entities.TypeDatetime, false},
		{"markdown", entities.TypeMarkdown, false},
		{"json", entities.TypeJSON, false},
		{"url", entities.TypeURL, false},
		{"string?", entities.TypeString, true},
		{"number?", entities.TypeNumber, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			fd := mustParseField(t, tt.expr)
			if fd.Kind != entities.KindPrimitive {
				t.Fatalf("expected primitive kind, got %v", fd.Kind)
			}
			if fd.Primitive != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, fd.Primitive)
			}
			if fd.IsOptional != tt.wantOptional {
				t.Errorf("expected optional=%v, got %v", tt.wantOptional, fd.IsOptional)
			}
		})
	}
}

func TestParseField_InvalidType(t *testing.T) {
	tests := []struct {
		expr        string
		wantSuggest string
	}{
		{"int", "number"},
		{"integer", "number"},
		{"varchar", "string"},
		{"bool", "boolean"},
		{"timestamp", "datetime"},
		{"String", "string"},
		{"uuid", ""},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run("expr="+tt.expr, func(t *testing.T) {
			_, err := ParseField("Blog", "field", tt.expr)
			se := schemaErr(t, err)
			if se.Code != entities.CodeInvalidFieldType {
				t.Fatalf("expected code %s, got %s", entities.CodeInvalidFieldType, se.Code)
			}
			if tt.expr != "" && strings.TrimSpace(tt.expr) != "" && !strings.Contains(se.Error(), strings.TrimSpace(tt.expr)) {
				t.Errorf("error does not name offending token %q: %v", tt.expr, se)
			}
			if tt.wantSuggest != "" && !strings.Contains(se.Message, tt.wantSuggest) {
				t.Errorf("expected suggestion %q in message %q", tt.wantSuggest, se.Message)
			}
		})
	}
}

func TestParseField_DoubleOptional(t *testing.T) {
	_, err := ParseField("Blog", "field", "string??")
	se := schemaErr(t, err)
	if se.Code != entities.CodeInvalidExpression {
		t.Errorf("expected code %s, got %s", entities.CodeInvalidExpression, se.Code)
	}
}

func TestParseField_RelationshipOperators(t *testing.T) {
	tests := []struct {
		expr     string
		wantDir  entities.Direction
		wantMode entities.MatchMode
	}{
		{"->Topic", entities.DirectionForward, entities.MatchExact},
		{"~>Topic", entities.DirectionForward, entities.MatchFuzzy},
		{"<-Topic", entities.DirectionBackward, entities.MatchExact},
		{"<~Topic", entities.DirectionBackward, entities.MatchFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			fd := mustParseField(t, tt.expr)
			if fd.Kind != entities.KindRelationship {
				t.Fatalf("expected relationship kind, got %v", fd.Kind)
			}
			rel := fd.Relationship
			if rel.Direction != tt.wantDir {
				t.Errorf("expected direction %v, got %v", tt.wantDir, rel.Direction)
			}
			if rel.MatchMode != tt.wantMode {
				t.Errorf("expected mode %v, got %v", tt.wantMode, rel.MatchMode)
			}
			if len(rel.TargetTypes) != 1 || rel.TargetTypes[0] != "Topic" {
				t.Errorf("expected target [Topic], got %v", rel.TargetTypes)
			}
		})
	}
}

func TestParseField_Union(t *testing.T) {
	fd := mustParseField(t, "~>Cafe|Restaurant|Bar")
	got := fd.Relationship.TargetTypes
	want := []string{"Cafe", "Restaurant", "Bar"}
	if len(got) != len(want) {
		t.Fatalf("expected %d targets, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("target %d: expected %s, got %s (priority order must be preserved)", i, want[i], got[i])
		}
	}
}

func TestParseField_Threshold(t *testing.T) {
	tests := []struct {
		expr string
		want *float64
	}{
		{"~>Topic(0.9)", float(0.9)},
		{"~>Topic(0)", float(0)},
		{"~>Topic(1)", float(1)},
		{"~>Topic(1.5)", float(1)},  // clamped
		{"~>Topic(-0.3)", float(0)}, // clamped
		{"~>Topic(high)", nil},      // non-numeric: ignored
		{"~>Topic()", nil},
		{"~>Topic", nil},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			fd := mustParseField(t, tt.expr)
			got := fd.Relationship.Threshold
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected unset threshold, got %v", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected threshold %v, got unset", *tt.want)
			}
			if *got != *tt.want {
				t.Errorf("expected threshold %v, got %v", *tt.want, *got)
			}
		})
	}
}

func TestParseField_Backref(t *testing.T) {
	fd := mustParseField(t, "<-Post.author")
	if fd.Relationship.BackrefField != "author" {
		t.Errorf("expected backref 'author', got %q", fd.Relationship.BackrefField)
	}

	fd = mustParseField(t, "~>Topic(0.8).subject")
	if fd.Relationship.BackrefField != "subject" {
		t.Errorf("expected backref 'subject', got %q", fd.Relationship.BackrefField)
	}
	if fd.Relationship.Threshold == nil || *fd.Relationship.Threshold != 0.8 {
		t.Errorf("expected threshold 0.8 alongside backref, got %v", fd.Relationship.Threshold)
	}
}

func TestParseField_InvalidRelationships(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"missing target", "->"},
		{"whitespace target", "->   "},
		{"unknown operator", "=>Topic"},
		{"empty union member", "->Topic|"},
		{"union member with space", "->Topic| Cafe"},
		{"injection in target", "->Topic;DROP"},
		{"markup in target", "-><script>"},
		{"double backref segment", "<-Post.author.name"},
		{"invalid backref", "<-Post.9lives"},
		{"unterminated threshold", "~>Topic(0.9"},
		{"trailing garbage", "~>Topic(0.9)x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseField("Blog", "field", tt.expr)
			se := schemaErr(t, err)
			if se.Code != entities.CodeInvalidRelationship {
				t.Errorf("expected code %s, got %s (%v)", entities.CodeInvalidRelationship, se.Code, se)
			}
		})
	}
}

func float(v float64) *float64 { return &v }
