package metrics

import "testing"

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.RecordEntityCreate()
	c.RecordEntityCreate()
	c.RecordEntityUpdate()
	c.RecordRelationCreate()
	c.RecordResolutionLinked()
	c.RecordResolutionGenerated()
	c.RecordResolutionDeclined()
	c.RecordCascadeEntity()

	stats := c.Stats()
	if stats.EntityCreates != 2 {
		t.Errorf("expected 2 entity creates, got %d", stats.EntityCreates)
	}
	if stats.EntityUpdates != 1 {
		t.Errorf("expected 1 entity update, got %d", stats.EntityUpdates)
	}
	if stats.RelationCreates != 1 {
		t.Errorf("expected 1 relation create, got %d", stats.RelationCreates)
	}
	if stats.ResolutionsLinked != 1 || stats.ResolutionsGenerated != 1 || stats.ResolutionsDeclined != 1 {
		t.Errorf("unexpected resolution stats: %+v", stats)
	}
	if stats.CascadeEntities != 1 {
		t.Errorf("expected 1 cascade entity, got %d", stats.CascadeEntities)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.RecordEntityCreate()
	c.RecordResolutionDeclined()

	stats := c.Stats()
	if stats.EntityCreates != 0 {
		t.Errorf("nil collector must report zero stats, got %+v", stats)
	}
}
