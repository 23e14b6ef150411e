package entities

import (
	"fmt"
	"time"
)

// Relation represents a directed, named edge between two entities.
// Example: blog1 --topics--> topic3
// The triple (FromID, Relation, ToID) is the primary key: at most one edge
// per triple. Duplicate insertion is an idempotent no-op (see repository
// documentation).
type Relation struct {
	FromID    string         `json:"fromId"`
	Relation  string         `json:"relation"`
	ToID      string         `json:"toId"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Key returns the canonical triple key of the edge.
func (r *Relation) Key() string {
	return fmt.Sprintf("%s#%s#%s", r.FromID, r.Relation, r.ToID)
}

// String returns a string representation of the edge.
// Format: from_id --relation--> to_id
func (r *Relation) String() string {
	return fmt.Sprintf("%s --%s--> %s", r.FromID, r.Relation, r.ToID)
}

// Validate checks if the relation is well-formed
func (r *Relation) Validate() error {
	if r.FromID == "" {
		return fmt.Errorf("relation from ID is required")
	}
	if r.Relation == "" {
		return fmt.Errorf("relation name is required")
	}
	if r.ToID == "" {
		return fmt.Errorf("relation to ID is required")
	}
	return nil
}
