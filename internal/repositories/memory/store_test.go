package memory

import (
	"context"
	"testing"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/repositories"
)

func seed(t *testing.T, s *Store, id, typ string) {
	t.Helper()
	err := s.Entities().Create(context.Background(), &entities.Entity{
		ID: id, Type: typ, Data: map[string]any{"name": id},
	})
	if err != nil {
		t.Fatalf("failed to seed entity %s: %v", id, err)
	}
}

func link(t *testing.T, s *Store, from, rel, to string) {
	t.Helper()
	err := s.Relations().Create(context.Background(), &entities.Relation{
		FromID: from, Relation: rel, ToID: to,
	})
	if err != nil {
		t.Fatalf("failed to link %s --%s--> %s: %v", from, rel, to, err)
	}
}

func TestEntityRepository_CreateConflict(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", "Blog")

	err := s.Entities().Create(ctx, &entities.Entity{ID: "e1", Type: "Blog"})
	if !entities.IsConflict(err) {
		t.Errorf("expected ConflictError on duplicate ID, got %v", err)
	}
}

func TestEntityRepository_GetNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Entities().Get(context.Background(), "missing")
	if !entities.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestEntityRepository_UpdatePreservesTypeAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", "Blog")

	created, _ := s.Entities().Get(ctx, "e1")
	err := s.Entities().Update(ctx, &entities.Entity{
		ID: "e1", Type: "Hacked", Data: map[string]any{"name": "new"},
	})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}

	got, _ := s.Entities().Get(ctx, "e1")
	if got.Type != "Blog" {
		t.Errorf("update changed type to %q", got.Type)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("update changed createdAt")
	}
	if got.Data["name"] != "new" {
		t.Errorf("update did not apply data: %v", got.Data)
	}
}

func TestEntityRepository_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "e1", "Blog")

	deleted, err := s.Entities().Delete(ctx, "e1")
	if err != nil || !deleted {
		t.Fatalf("first delete: deleted=%v err=%v", deleted, err)
	}

	deleted, err = s.Entities().Delete(ctx, "e1")
	if err != nil {
		t.Fatalf("second delete must not error: %v", err)
	}
	if deleted {
		t.Error("second delete must report false")
	}
}

// Deleting a node in a 3-node cycle removes exactly its 2 edges; edges in a
// disjoint graph are untouched.
func TestEntityRepository_DeleteCascadesEdges(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"a", "b", "c", "x", "y"} {
		seed(t, s, id, "Node")
	}
	link(t, s, "a", "next", "b")
	link(t, s, "b", "next", "c")
	link(t, s, "c", "next", "a")
	link(t, s, "x", "next", "y") // disjoint

	if _, err := s.Entities().Delete(ctx, "a"); err != nil {
		t.Fatalf("delete error: %v", err)
	}

	rels, err := s.Relations().Query(ctx, nil)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("expected 2 surviving edges, got %d", len(rels))
	}
	for _, r := range rels {
		if r.FromID == "a" || r.ToID == "a" {
			t.Errorf("edge touching deleted entity survived: %s", r)
		}
	}
}

func TestEntityRepository_ListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "b1", "Blog")
	seed(t, s, "t1", "Topic")
	seed(t, s, "b2", "Blog")
	seed(t, s, "b3", "Blog")

	blogs, err := s.Entities().List(ctx, &repositories.EntityFilter{Type: "Blog"})
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(blogs) != 3 {
		t.Fatalf("expected 3 blogs, got %d", len(blogs))
	}
	// Creation order ascending
	if blogs[0].ID != "b1" || blogs[1].ID != "b2" || blogs[2].ID != "b3" {
		t.Errorf("unexpected order: %s %s %s", blogs[0].ID, blogs[1].ID, blogs[2].ID)
	}

	page, err := s.Entities().List(ctx, &repositories.EntityFilter{Type: "Blog", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(page) != 1 || page[0].ID != "b2" {
		t.Errorf("expected page [b2], got %v", page)
	}

	empty, err := s.Entities().List(ctx, &repositories.EntityFilter{Type: "Blog", Offset: 10})
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(empty))
	}
}

func TestRelationRepository_DuplicateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s, "a", "Node")
	seed(t, s, "b", "Node")

	first := &entities.Relation{FromID: "a", Relation: "next", ToID: "b", Metadata: map[string]any{"score": 0.9}}
	if err := s.Relations().Create(ctx, first); err != nil {
		t.Fatalf("first create: %v", err)
	}
	second := &entities.Relation{FromID: "a", Relation: "next", ToID: "b", Metadata: map[string]any{"score": 0.1}}
	if err := s.Relations().Create(ctx, second); err != nil {
		t.Fatalf("duplicate create must be an idempotent no-op: %v", err)
	}

	rels, _ := s.Relations().Query(ctx, &repositories.RelationFilter{FromID: "a"})
	if len(rels) != 1 {
		t.Fatalf("expected 1 edge after duplicate insert, got %d", len(rels))
	}
	if rels[0].Metadata["score"] != 0.9 {
		t.Errorf("duplicate insert overwrote existing edge metadata: %v", rels[0].Metadata)
	}
}

func TestRelationRepository_QueryWildcards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"a", "b", "c"} {
		seed(t, s, id, "Node")
	}
	link(t, s, "a", "wrote", "b")
	link(t, s, "a", "liked", "c")
	link(t, s, "b", "wrote", "c")

	byFrom, _ := s.Relations().Query(ctx, &repositories.RelationFilter{FromID: "a"})
	if len(byFrom) != 2 {
		t.Errorf("expected 2 edges from a, got %d", len(byFrom))
	}

	byRel, _ := s.Relations().Query(ctx, &repositories.RelationFilter{Relation: "wrote"})
	if len(byRel) != 2 {
		t.Errorf("expected 2 wrote edges, got %d", len(byRel))
	}

	exact, _ := s.Relations().Query(ctx, &repositories.RelationFilter{FromID: "b", Relation: "wrote", ToID: "c"})
	if len(exact) != 1 {
		t.Errorf("expected 1 exact match, got %d", len(exact))
	}

	all, _ := s.Relations().Query(ctx, nil)
	if len(all) != 3 {
		t.Errorf("expected 3 edges total, got %d", len(all))
	}
}
