// Package cascade implements cascade generation: creating a root entity
// from seed data and recursively resolving its relationship fields, so a
// single call can materialize a connected subgraph.
package cascade

import (
	"context"
	"fmt"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/infrastructure/metrics"
	"github.com/entigraph/entigraph/internal/services/graph"
	"github.com/entigraph/entigraph/internal/services/resolver"
)

// Options controls one cascade run
type Options struct {
	// MaxDepth is the number of relationship hops below the root that may
	// still resolve fields. 0 creates the root only.
	MaxDepth int
	// CascadeTypes, when non-empty, restricts which target types cascade:
	// a field is skipped unless at least one union member is listed.
	CascadeTypes []string
	// StopOnError aborts the run on the first field failure. When false,
	// failed fields are reported through OnError and skipped.
	StopOnError bool
	// OnProgress, when set, receives the running count of entities created
	// so far after each creation.
	OnProgress func(created int)
	// OnError, when set, receives field failures that were skipped
	OnError func(err error)
}

// FieldError wraps a resolution failure with the field it occurred on
type FieldError struct {
	EntityType string
	Field      string
	Err        error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("cascade failed on %s.%s: %v", e.EntityType, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Orchestrator drives cascade creation over the graph backend and the
// resolution engine.
type Orchestrator struct {
	graph     *graph.Service
	resolver  *resolver.Engine
	collector *metrics.Collector
}

// NewOrchestrator creates a cascade orchestrator. collector may be nil.
func NewOrchestrator(g *graph.Service, engine *resolver.Engine, collector *metrics.Collector) *Orchestrator {
	return &Orchestrator{graph: g, resolver: engine, collector: collector}
}

// run is the mutable state of one cascade invocation
type run struct {
	opts    Options
	visited map[string]bool
	created int
}

func (r *run) countCreated(collector *metrics.Collector) {
	collector.RecordCascadeEntity()
	r.created++
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(r.created)
	}
}

// Create builds a root entity of rootType from the seed document, then
// resolves its relationship fields depth-first down to opts.MaxDepth.
// Seed keys naming relationship fields become resolution inputs instead of
// stored data; everything else is stored verbatim. Newly created targets
// cascade in turn; entities linked to existing records do not.
//
// With StopOnError set the root (when already created) is returned
// alongside the error so the caller can inspect or remove partial work.
func (o *Orchestrator) Create(ctx context.Context, rootType string, seed map[string]any, opts Options) (*entities.Entity, error) {
	et := o.graph.Schema().GetEntity(rootType)
	if et == nil {
		return nil, fmt.Errorf("entity type %q is not declared in the schema", rootType)
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}

	data, inputs := splitSeed(et, seed)
	root, err := o.graph.CreateEntity(ctx, &entities.Entity{Type: rootType, Data: data})
	if err != nil {
		return nil, err
	}

	r := &run{opts: opts, visited: map[string]bool{root.ID: true}}
	r.countCreated(o.collector)

	if err := o.resolveEntity(ctx, r, root, et, inputs, 0); err != nil {
		return root, err
	}
	return root, nil
}

// resolveEntity resolves every relationship field of one entity, recursing
// into newly created targets. depth is the entity's distance from the
// root; fields resolve only while depth < MaxDepth.
func (o *Orchestrator) resolveEntity(ctx context.Context, r *run, owner *entities.Entity, et *entities.EntityType, inputs map[string]any, depth int) error {
	if depth >= r.opts.MaxDepth {
		return nil
	}

	for _, field := range et.Fields {
		if field.Kind != entities.KindRelationship {
			continue
		}
		if !o.cascades(r.opts, field) {
			continue
		}

		input := inputs[field.Name]
		elements := []any{input}
		if field.IsArray {
			if list, ok := input.([]any); ok {
				elements = list
			} else if input == nil {
				// A repeatable field with no input resolves nothing:
				// the cardinality is the caller's to choose.
				continue
			}
		}

		for _, element := range elements {
			res, err := o.resolver.ResolveField(ctx, owner, field, element)
			if err != nil {
				fieldErr := &FieldError{EntityType: et.Name, Field: field.Name, Err: err}
				if r.opts.StopOnError {
					return fieldErr
				}
				if r.opts.OnError != nil {
					r.opts.OnError(fieldErr)
				}
				continue
			}
			if res == nil || !res.Created {
				continue
			}

			r.countCreated(o.collector)
			if r.visited[res.Target.ID] {
				continue
			}
			r.visited[res.Target.ID] = true

			targetType := o.graph.Schema().GetEntity(res.Target.Type)
			if targetType == nil {
				continue
			}
			if err := o.resolveEntity(ctx, r, res.Target, targetType, res.Target.Data, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// cascades reports whether the field participates in this run's cascade
func (o *Orchestrator) cascades(opts Options, field *entities.FieldDescriptor) bool {
	if len(opts.CascadeTypes) == 0 {
		return true
	}
	for _, target := range field.Relationship.TargetTypes {
		for _, allowed := range opts.CascadeTypes {
			if target == allowed {
				return true
			}
		}
	}
	return false
}

// splitSeed separates a seed document into stored data and relationship
// inputs keyed by field name.
func splitSeed(et *entities.EntityType, seed map[string]any) (map[string]any, map[string]any) {
	data := map[string]any{}
	inputs := map[string]any{}
	for k, v := range seed {
		if f := et.GetField(k); f != nil && f.Kind == entities.KindRelationship {
			inputs[k] = v
			continue
		}
		data[k] = v
	}
	return data, inputs
}
