package metrics

import "sync/atomic"

// Collector collects operation counters for the graph store. All methods
// are safe for concurrent use and nil-safe so call sites never need a
// guard.
type Collector struct {
	entityCreates   atomic.Int64
	entityUpdates   atomic.Int64
	entityDeletes   atomic.Int64
	relationCreates atomic.Int64
	relationDeletes atomic.Int64

	resolutionsLinked    atomic.Int64
	resolutionsGenerated atomic.Int64
	resolutionsDeclined  atomic.Int64

	cascadeEntities atomic.Int64
}

// Stats is a point-in-time snapshot of the collector
type Stats struct {
	EntityCreates   int64
	EntityUpdates   int64
	EntityDeletes   int64
	RelationCreates int64
	RelationDeletes int64

	ResolutionsLinked    int64
	ResolutionsGenerated int64
	ResolutionsDeclined  int64

	CascadeEntities int64
}

// NewCollector creates a new Collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordEntityCreate increments the entity creation counter
func (c *Collector) RecordEntityCreate() {
	if c != nil {
		c.entityCreates.Add(1)
	}
}

// RecordEntityUpdate increments the entity update counter
func (c *Collector) RecordEntityUpdate() {
	if c != nil {
		c.entityUpdates.Add(1)
	}
}

// RecordEntityDelete increments the entity deletion counter
func (c *Collector) RecordEntityDelete() {
	if c != nil {
		c.entityDeletes.Add(1)
	}
}

// RecordRelationCreate increments the edge creation counter
func (c *Collector) RecordRelationCreate() {
	if c != nil {
		c.relationCreates.Add(1)
	}
}

// RecordRelationDelete increments the edge deletion counter
func (c *Collector) RecordRelationDelete() {
	if c != nil {
		c.relationDeletes.Add(1)
	}
}

// RecordResolutionLinked counts a resolution that linked an existing entity
func (c *Collector) RecordResolutionLinked() {
	if c != nil {
		c.resolutionsLinked.Add(1)
	}
}

// RecordResolutionGenerated counts a resolution that generated a new entity
func (c *Collector) RecordResolutionGenerated() {
	if c != nil {
		c.resolutionsGenerated.Add(1)
	}
}

// RecordResolutionDeclined counts a resolution that produced no link
func (c *Collector) RecordResolutionDeclined() {
	if c != nil {
		c.resolutionsDeclined.Add(1)
	}
}

// RecordCascadeEntity counts an entity created during a cascade run
func (c *Collector) RecordCascadeEntity() {
	if c != nil {
		c.cascadeEntities.Add(1)
	}
}

// Stats returns a snapshot of all counters
func (c *Collector) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		EntityCreates:        c.entityCreates.Load(),
		EntityUpdates:        c.entityUpdates.Load(),
		EntityDeletes:        c.entityDeletes.Load(),
		RelationCreates:      c.relationCreates.Load(),
		RelationDeletes:      c.relationDeletes.Load(),
		ResolutionsLinked:    c.resolutionsLinked.Load(),
		ResolutionsGenerated: c.resolutionsGenerated.Load(),
		ResolutionsDeclined:  c.resolutionsDeclined.Load(),
		CascadeEntities:      c.cascadeEntities.Load(),
	}
}
