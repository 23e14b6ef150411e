// Package graph implements the storage backend of the entity graph:
// schema-checked entity CRUD, deduplicated directed edges, cascade delete
// and multi-hop traversal, layered over the repository interfaces.
package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/events"
	"github.com/entigraph/entigraph/internal/infrastructure/metrics"
	"github.com/entigraph/entigraph/internal/repositories"
	"github.com/google/uuid"
)

// Service is the graph storage backend for one database session. All
// collaborators are injected; the service holds no global state. The
// parsed schema is read-only and safe for concurrent reads.
type Service struct {
	schema    *entities.Schema
	entities  repositories.EntityRepository
	relations repositories.RelationRepository
	reporter  events.Reporter
	collector *metrics.Collector
}

// NewService creates a graph service bound to its collaborators.
// reporter may be nil (events are discarded); collector may be nil.
func NewService(
	schema *entities.Schema,
	entityRepo repositories.EntityRepository,
	relationRepo repositories.RelationRepository,
	reporter events.Reporter,
	collector *metrics.Collector,
) *Service {
	if reporter == nil {
		reporter = events.NewNop()
	}
	return &Service{
		schema:    schema,
		entities:  entityRepo,
		relations: relationRepo,
		reporter:  reporter,
		collector: collector,
	}
}

// Schema returns the parsed schema the service was constructed with
func (s *Service) Schema() *entities.Schema {
	return s.schema
}

// Reporter returns the event reporter for collaborating services
func (s *Service) Reporter() events.Reporter {
	return s.reporter
}

// CreateEntity stores a new entity. An ID is assigned when absent; a
// caller-supplied ID that already exists yields a ConflictError. The type
// must be declared in the schema.
func (s *Service) CreateEntity(ctx context.Context, entity *entities.Entity) (*entities.Entity, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	if s.schema.GetEntity(entity.Type) == nil {
		return nil, fmt.Errorf("entity type %q is not declared in the schema", entity.Type)
	}

	stored := entity.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Data == nil {
		stored.Data = map[string]any{}
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := s.entities.Create(ctx, stored); err != nil {
		return nil, err
	}

	s.collector.RecordEntityCreate()
	s.reporter.Report(ctx, events.Event{
		Kind: events.KindEntityCreated, EntityType: stored.Type, EntityID: stored.ID, At: now,
	})
	return stored, nil
}

// GetEntity retrieves an entity by ID
func (s *Service) GetEntity(ctx context.Context, id string) (*entities.Entity, error) {
	return s.entities.Get(ctx, id)
}

// UpdateEntity shallow-merges patch into the entity's data. The type is
// immutable: a "$type" patch key naming a different type is rejected.
func (s *Service) UpdateEntity(ctx context.Context, id string, patch map[string]any) (*entities.Entity, error) {
	current, err := s.entities.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if v, ok := patch["$type"]; ok {
		if typ, _ := v.(string); typ != current.Type {
			return nil, fmt.Errorf("entity type is immutable: cannot change %q to %v", current.Type, v)
		}
	}

	for k, v := range patch {
		if k == "$type" {
			continue
		}
		current.Data[k] = v
	}
	current.UpdatedAt = time.Now().UTC()

	if err := s.entities.Update(ctx, current); err != nil {
		return nil, err
	}

	s.collector.RecordEntityUpdate()
	s.reporter.Report(ctx, events.Event{
		Kind: events.KindEntityUpdated, EntityType: current.Type, EntityID: id, At: current.UpdatedAt,
	})
	return current, nil
}

// DeleteEntity removes the entity and every edge touching it. Returns
// false without error when the entity does not exist.
func (s *Service) DeleteEntity(ctx context.Context, id string) (bool, error) {
	current, err := s.entities.Get(ctx, id)
	if err != nil {
		if entities.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	deleted, err := s.entities.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.collector.RecordEntityDelete()
		s.reporter.Report(ctx, events.Event{
			Kind: events.KindEntityDeleted, EntityType: current.Type, EntityID: id, At: time.Now().UTC(),
		})
	}
	return deleted, nil
}

// ListEntities retrieves entities matching the filter, creation order
func (s *Service) ListEntities(ctx context.Context, filter *repositories.EntityFilter) ([]*entities.Entity, error) {
	return s.entities.List(ctx, filter)
}

// CreateRelation stores an edge. Inserting an existing triple is an
// idempotent no-op.
func (s *Service) CreateRelation(ctx context.Context, relation *entities.Relation) (*entities.Relation, error) {
	if err := relation.Validate(); err != nil {
		return nil, err
	}
	if relation.CreatedAt.IsZero() {
		relation.CreatedAt = time.Now().UTC()
	}

	if err := s.relations.Create(ctx, relation); err != nil {
		return nil, err
	}

	s.collector.RecordRelationCreate()
	s.reporter.Report(ctx, events.Event{
		Kind:     events.KindRelationCreated,
		Relation: relation.Relation, FromID: relation.FromID, ToID: relation.ToID,
		At: relation.CreatedAt,
	})
	return relation, nil
}

// QueryRelations retrieves edges matching the filter; unset fields are
// wildcards
func (s *Service) QueryRelations(ctx context.Context, filter *repositories.RelationFilter) ([]*entities.Relation, error) {
	return s.relations.Query(ctx, filter)
}

// DeleteRelation removes one edge by its triple. Returns false on miss.
func (s *Service) DeleteRelation(ctx context.Context, fromID, relation, toID string) (bool, error) {
	deleted, err := s.relations.Delete(ctx, fromID, relation, toID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.collector.RecordRelationDelete()
		s.reporter.Report(ctx, events.Event{
			Kind:     events.KindRelationDeleted,
			Relation: relation, FromID: fromID, ToID: toID,
			At: time.Now().UTC(),
		})
	}
	return deleted, nil
}

// Traverse follows a comma-separated relation path from the given entity
// and returns the entities at the end of the walk, deduplicated and
// optionally filtered by type. A hop that yields nothing produces an
// empty result, not an error.
func (s *Service) Traverse(ctx context.Context, fromID, relationPath, typeFilter string) ([]*entities.Entity, error) {
	var hops []string
	for _, hop := range strings.Split(relationPath, ",") {
		hop = strings.TrimSpace(hop)
		if hop == "" {
			return nil, fmt.Errorf("traversal path contains an empty relation: %q", relationPath)
		}
		hops = append(hops, hop)
	}

	frontier := []string{fromID}
	for _, hop := range hops {
		var next []string
		seen := map[string]bool{}
		for _, id := range frontier {
			rels, err := s.relations.Query(ctx, &repositories.RelationFilter{FromID: id, Relation: hop})
			if err != nil {
				return nil, fmt.Errorf("failed to traverse %q from %s: %w", hop, id, err)
			}
			for _, rel := range rels {
				if !seen[rel.ToID] {
					seen[rel.ToID] = true
					next = append(next, rel.ToID)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			return []*entities.Entity{}, nil
		}
	}

	out := make([]*entities.Entity, 0, len(frontier))
	for _, id := range frontier {
		entity, err := s.entities.Get(ctx, id)
		if err != nil {
			if entities.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if typeFilter != "" && entity.Type != typeFilter {
			continue
		}
		out = append(out, entity)
	}
	return out, nil
}
