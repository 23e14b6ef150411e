package repositories

import (
	"context"

	"github.com/entigraph/entigraph/internal/entities"
)

// RelationFilter defines filter criteria for querying relations.
// Unset fields act as wildcards.
type RelationFilter struct {
	FromID   string // Filter by from entity ID (optional)
	Relation string // Filter by relation name (optional)
	ToID     string // Filter by to entity ID (optional)
}

// RelationRepository defines the interface for edge data access.
// The (from, relation, to) triple is unique; duplicate creation is an
// idempotent no-op, leaving the existing edge untouched.
type RelationRepository interface {
	// Create stores a new edge. Inserting an existing triple succeeds
	// without modifying the stored edge.
	Create(ctx context.Context, relation *entities.Relation) error

	// Delete removes an edge by its triple. Returns false on miss.
	Delete(ctx context.Context, fromID, relation, toID string) (bool, error)

	// Query retrieves edges matching the filter, created_at ascending.
	Query(ctx context.Context, filter *RelationFilter) ([]*entities.Relation, error)
}
