// Package memory provides in-process implementations of the repository
// interfaces. It backs unit tests and hosts that embed the graph store
// without a database; the durable implementation lives in the postgres
// package.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/repositories"
)

// Store holds entities and edges behind one lock so that entity deletion
// removes touching edges atomically with respect to readers.
type Store struct {
	mu        sync.RWMutex
	seq       int64
	entities  map[string]*entityRecord
	relations map[string]*relationRecord
}

type entityRecord struct {
	entity *entities.Entity
	seq    int64
}

type relationRecord struct {
	relation *entities.Relation
	seq      int64
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		entities:  make(map[string]*entityRecord),
		relations: make(map[string]*relationRecord),
	}
}

// Entities returns the entity repository view of the store
func (s *Store) Entities() repositories.EntityRepository {
	return &entityRepository{store: s}
}

// Relations returns the relation repository view of the store
func (s *Store) Relations() repositories.RelationRepository {
	return &relationRepository{store: s}
}

type entityRepository struct {
	store *Store
}

func (r *entityRepository) Create(ctx context.Context, entity *entities.Entity) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entities[entity.ID]; exists {
		return &entities.ConflictError{Kind: "entity", Key: entity.ID}
	}
	s.seq++
	s.entities[entity.ID] = &entityRecord{entity: entity.Clone(), seq: s.seq}
	return nil
}

func (r *entityRepository) Get(ctx context.Context, id string) (*entities.Entity, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.entities[id]
	if !ok {
		return nil, &entities.NotFoundError{Kind: "entity", ID: id}
	}
	return rec.entity.Clone(), nil
}

func (r *entityRepository) Update(ctx context.Context, entity *entities.Entity) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entities[entity.ID]
	if !ok {
		return &entities.NotFoundError{Kind: "entity", ID: entity.ID}
	}
	updated := entity.Clone()
	updated.Type = rec.entity.Type
	updated.CreatedAt = rec.entity.CreatedAt
	rec.entity = updated
	return nil
}

func (r *entityRepository) Delete(ctx context.Context, id string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[id]; !ok {
		return false, nil
	}
	delete(s.entities, id)
	for key, rec := range s.relations {
		if rec.relation.FromID == id || rec.relation.ToID == id {
			delete(s.relations, key)
		}
	}
	return true, nil
}

func (r *entityRepository) List(ctx context.Context, filter *repositories.EntityFilter) ([]*entities.Entity, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*entityRecord, 0, len(s.entities))
	for _, rec := range s.entities {
		if filter != nil && filter.Type != "" && rec.entity.Type != filter.Type {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	if filter != nil && filter.Offset > 0 {
		if filter.Offset >= len(records) {
			return nil, nil
		}
		records = records[filter.Offset:]
	}
	if filter != nil && filter.Limit > 0 && filter.Limit < len(records) {
		records = records[:filter.Limit]
	}

	out := make([]*entities.Entity, len(records))
	for i, rec := range records {
		out[i] = rec.entity.Clone()
	}
	return out, nil
}

type relationRepository struct {
	store *Store
}

func (r *relationRepository) Create(ctx context.Context, relation *entities.Relation) error {
	if err := relation.Validate(); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := relation.Key()
	if _, exists := s.relations[key]; exists {
		// Duplicate triple: idempotent no-op, existing edge wins.
		return nil
	}
	s.seq++
	clone := *relation
	if relation.Metadata != nil {
		clone.Metadata = make(map[string]any, len(relation.Metadata))
		for k, v := range relation.Metadata {
			clone.Metadata[k] = v
		}
	}
	s.relations[key] = &relationRecord{relation: &clone, seq: s.seq}
	return nil
}

func (r *relationRepository) Delete(ctx context.Context, fromID, relation, toID string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := (&entities.Relation{FromID: fromID, Relation: relation, ToID: toID}).Key()
	if _, ok := s.relations[key]; !ok {
		return false, nil
	}
	delete(s.relations, key)
	return true, nil
}

func (r *relationRepository) Query(ctx context.Context, filter *repositories.RelationFilter) ([]*entities.Relation, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*relationRecord, 0, len(s.relations))
	for _, rec := range s.relations {
		if filter != nil {
			if filter.FromID != "" && rec.relation.FromID != filter.FromID {
				continue
			}
			if filter.Relation != "" && rec.relation.Relation != filter.Relation {
				continue
			}
			if filter.ToID != "" && rec.relation.ToID != filter.ToID {
				continue
			}
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	out := make([]*entities.Relation, len(records))
	for i, rec := range records {
		clone := *rec.relation
		out[i] = &clone
	}
	return out, nil
}
