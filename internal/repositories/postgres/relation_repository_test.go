package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/repositories"
)

func TestPostgresRelationRepository_DuplicateIsIdempotent(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	entityRepo := NewPostgresEntityRepository(db)
	repo := NewPostgresRelationRepository(db)
	now := time.Now().UTC()

	for _, id := range []string{"a", "b"} {
		err := entityRepo.Create(ctx, &entities.Entity{
			ID: id, Type: "Node", Data: map[string]any{}, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	first := &entities.Relation{
		FromID: "a", Relation: "next", ToID: "b",
		Metadata: map[string]any{"score": 0.9}, CreatedAt: now,
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := &entities.Relation{
		FromID: "a", Relation: "next", ToID: "b",
		Metadata: map[string]any{"score": 0.1}, CreatedAt: now.Add(time.Second),
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("duplicate create must succeed: %v", err)
	}

	rels, err := repo.Query(ctx, &repositories.RelationFilter{FromID: "a"})
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(rels))
	}
	if rels[0].Metadata["score"] != 0.9 {
		t.Errorf("duplicate insert overwrote metadata: %v", rels[0].Metadata)
	}
}

func TestPostgresRelationRepository_QueryAndDelete(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	entityRepo := NewPostgresEntityRepository(db)
	repo := NewPostgresRelationRepository(db)
	now := time.Now().UTC()

	for _, id := range []string{"alice", "post1", "tech"} {
		err := entityRepo.Create(ctx, &entities.Entity{
			ID: id, Type: "Node", Data: map[string]any{}, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	edges := []*entities.Relation{
		{FromID: "alice", Relation: "wrote", ToID: "post1", CreatedAt: now},
		{FromID: "post1", Relation: "tagged", ToID: "tech", CreatedAt: now},
	}
	for _, e := range edges {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("create edge %s: %v", e, err)
		}
	}

	byRel, err := repo.Query(ctx, &repositories.RelationFilter{Relation: "wrote"})
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	if len(byRel) != 1 || byRel[0].ToID != "post1" {
		t.Errorf("unexpected result: %+v", byRel)
	}

	deleted, err := repo.Delete(ctx, "alice", "wrote", "post1")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.Delete(ctx, "alice", "wrote", "post1")
	if err != nil || deleted {
		t.Errorf("second delete: deleted=%v err=%v", deleted, err)
	}
}
