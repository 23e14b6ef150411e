// Package search defines the similarity and generation collaborator
// interfaces consumed by relationship resolution, plus a degraded
// text-match fallback that keeps fuzzy operators working without an
// external similarity provider.
package search

import (
	"context"

	"github.com/entigraph/entigraph/internal/entities"
)

// Match is one ranked search result
type Match struct {
	Entity *entities.Entity
	Score  float64 // 0..1, higher is better
}

// Searcher finds existing entities of a type similar to the query text
type Searcher interface {
	Search(ctx context.Context, entityType, query string, limit int) ([]Match, error)
}

// Generator produces data for a new entity from a prompt. It is opaque to
// the core and may fail; failures surface as GenerationError.
type Generator interface {
	Generate(ctx context.Context, prompt string, context map[string]any) (map[string]any, error)
}
