package entities

import (
	"fmt"
	"strings"
	"time"
)

// ReservedPrefix marks system metadata keys inside an entity's data document.
// Keys starting with this prefix are never part of the declared field set.
const ReservedPrefix = "$"

// Entity represents a typed record in the graph store.
// Example: {id: "a1", type: "Blog", data: {title: "X"}}
type Entity struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Validate checks if the entity is well-formed for storage
func (e *Entity) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("entity type is required")
	}
	return nil
}

// Clone returns a deep-enough copy: the data map is copied one level deep,
// which is sufficient because callers only ever shallow-merge.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		data[k] = v
	}
	c := *e
	c.Data = data
	return &c
}

// Generated reports whether the entity was produced by the generation
// collaborator rather than supplied by a caller.
func (e *Entity) Generated() bool {
	v, ok := e.Data["$generated"].(bool)
	return ok && v
}

// TextValues returns the string-valued declared fields of the entity,
// used by the fallback text matcher. Reserved keys are skipped.
func (e *Entity) TextValues() []string {
	var out []string
	for k, v := range e.Data {
		if strings.HasPrefix(k, ReservedPrefix) {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
