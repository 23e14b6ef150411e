package repositories

import (
	"context"

	"github.com/entigraph/entigraph/internal/entities"
)

// EntityFilter defines filter criteria for listing entities
type EntityFilter struct {
	Type   string // Filter by entity type (optional)
	Limit  int    // Maximum number of results (0 = no limit)
	Offset int    // Number of results to skip
}

// EntityRepository defines the interface for entity data access.
// Listing is ordered ascending by creation time.
type EntityRepository interface {
	// Create stores a new entity. The caller supplies the ID.
	// Returns *entities.ConflictError if the ID already exists.
	Create(ctx context.Context, entity *entities.Entity) error

	// Get retrieves an entity by ID.
	// Returns *entities.NotFoundError if it does not exist.
	Get(ctx context.Context, id string) (*entities.Entity, error)

	// Update replaces the entity's data document and refreshes UpdatedAt.
	// Type and CreatedAt are never changed.
	// Returns *entities.NotFoundError if it does not exist.
	Update(ctx context.Context, entity *entities.Entity) error

	// Delete removes the entity and, atomically, every edge where it is
	// the from or to endpoint. Returns false (not an error) when the
	// entity does not exist.
	Delete(ctx context.Context, id string) (bool, error)

	// List retrieves entities matching the filter, created_at ascending.
	List(ctx context.Context, filter *EntityFilter) ([]*entities.Entity, error)
}
