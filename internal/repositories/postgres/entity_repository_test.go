package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/repositories"
)

func TestPostgresEntityRepository_CRUD(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewPostgresEntityRepository(db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	entity := &entities.Entity{
		ID:        "blog-1",
		Type:      "Blog",
		Data:      map[string]any{"title": "Hello"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, entity); err != nil {
		t.Fatalf("create error: %v", err)
	}

	if err := repo.Create(ctx, entity); !entities.IsConflict(err) {
		t.Errorf("expected ConflictError on duplicate create, got %v", err)
	}

	got, err := repo.Get(ctx, "blog-1")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got.Type != "Blog" || got.Data["title"] != "Hello" {
		t.Errorf("unexpected entity: %+v", got)
	}

	got.Data["title"] = "Updated"
	got.UpdatedAt = now.Add(time.Second)
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("update error: %v", err)
	}
	got, _ = repo.Get(ctx, "blog-1")
	if got.Data["title"] != "Updated" {
		t.Errorf("update did not persist: %v", got.Data)
	}

	deleted, err := repo.Delete(ctx, "blog-1")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.Delete(ctx, "blog-1")
	if err != nil || deleted {
		t.Errorf("second delete: deleted=%v err=%v", deleted, err)
	}

	if _, err := repo.Get(ctx, "blog-1"); !entities.IsNotFound(err) {
		t.Errorf("expected NotFoundError after delete, got %v", err)
	}
}

func TestPostgresEntityRepository_DeleteCascadesEdges(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	entityRepo := NewPostgresEntityRepository(db)
	relationRepo := NewPostgresRelationRepository(db)
	now := time.Now().UTC()

	for _, id := range []string{"a", "b", "c"} {
		err := entityRepo.Create(ctx, &entities.Entity{
			ID: id, Type: "Node", Data: map[string]any{}, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	for _, edge := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}} {
		err := relationRepo.Create(ctx, &entities.Relation{
			FromID: edge[0], Relation: "next", ToID: edge[1], CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("link %v: %v", edge, err)
		}
	}

	if _, err := entityRepo.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete error: %v", err)
	}

	rels, err := relationRepo.Query(ctx, &repositories.RelationFilter{})
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("expected 1 surviving edge, got %d", len(rels))
	}
	if rels[0].FromID != "b" || rels[0].ToID != "c" {
		t.Errorf("wrong surviving edge: %s", rels[0])
	}
}

func TestPostgresEntityRepository_ListOrdering(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewPostgresEntityRepository(db)
	base := time.Now().UTC().Add(-time.Hour)

	for i, id := range []string{"e1", "e2", "e3"} {
		err := repo.Create(ctx, &entities.Entity{
			ID: id, Type: "Blog", Data: map[string]any{},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	listed, err := repo.List(ctx, &repositories.EntityFilter{Type: "Blog", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "e2" || listed[1].ID != "e3" {
		t.Errorf("unexpected page: %+v", listed)
	}
}
