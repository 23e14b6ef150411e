package entities

import "testing"

func TestEntity_Clone(t *testing.T) {
	e := &Entity{ID: "e1", Type: "Blog", Data: map[string]any{"title": "X"}}
	c := e.Clone()

	c.Data["title"] = "Y"
	if e.Data["title"] != "X" {
		t.Errorf("clone mutated original data: got %v", e.Data["title"])
	}
	if c.ID != e.ID || c.Type != e.Type {
		t.Errorf("clone lost identity: got %s/%s", c.ID, c.Type)
	}
}

func TestEntity_Generated(t *testing.T) {
	plain := &Entity{Type: "Topic", Data: map[string]any{"name": "go"}}
	if plain.Generated() {
		t.Error("expected plain entity to not be generated")
	}

	gen := &Entity{Type: "Topic", Data: map[string]any{"name": "go", "$generated": true}}
	if !gen.Generated() {
		t.Error("expected $generated entity to report Generated")
	}
}

func TestEntity_TextValues(t *testing.T) {
	e := &Entity{Type: "Post", Data: map[string]any{
		"title":      "hello world",
		"views":      42,
		"$generated": true,
		"body":       "some text",
	}}

	values := e.TextValues()
	if len(values) != 2 {
		t.Fatalf("expected 2 text values, got %d: %v", len(values), values)
	}
	for _, v := range values {
		if v != "hello world" && v != "some text" {
			t.Errorf("unexpected text value %q", v)
		}
	}
}
