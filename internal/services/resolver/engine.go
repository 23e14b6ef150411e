// Package resolver implements relationship resolution: given a parsed
// relationship field and input data, it decides whether to link an
// existing entity, create a new one, or decline, and records the
// resulting edge in the graph backend.
//
// The decision table over direction × match mode:
//
//	forward  exact (->)  link explicit value, otherwise generate a target
//	forward  fuzzy (~>)  search first, link above threshold, generate on miss
//	backward exact (<-)  aggregation view only, never writes at creation
//	backward fuzzy (<~)  grounding: search only, never creates
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/events"
	"github.com/entigraph/entigraph/internal/infrastructure/metrics"
	"github.com/entigraph/entigraph/internal/repositories"
	"github.com/entigraph/entigraph/internal/services/graph"
	"github.com/entigraph/entigraph/internal/services/search"
)

// DefaultThreshold applies when neither the field nor the entity declares
// a fuzzy match threshold.
const DefaultThreshold = 0.7

// HintSuffix is appended to a field name to look up its natural-language
// hint in the owner's data, e.g. "venueHint" for a "venue" field.
const HintSuffix = "Hint"

// Resolution is the outcome of resolving one relationship field
type Resolution struct {
	Target    *entities.Entity
	MatchType string  // which union member matched or was created
	Score     float64 // similarity score for fuzzy links, 1 for exact
	Generated bool    // target was produced by the generation collaborator
	Created   bool    // target entity was newly persisted by this resolution
	Relation  *entities.Relation
}

// Engine resolves relationship fields. All collaborators are injected at
// construction; there is no ambient provider state. When searcher is nil
// the engine degrades to plain text matching against existing entities,
// which preserves the creation contract of every operator.
type Engine struct {
	graph            *graph.Service
	searcher         search.Searcher
	generator        search.Generator
	collector        *metrics.Collector
	defaultThreshold float64
}

// NewEngine creates a resolution engine bound to the graph backend.
// searcher, generator and collector may be nil.
func NewEngine(g *graph.Service, searcher search.Searcher, generator search.Generator, collector *metrics.Collector) *Engine {
	if searcher == nil {
		searcher = search.NewTextMatcher(g)
	}
	return &Engine{
		graph:            g,
		searcher:         searcher,
		generator:        generator,
		collector:        collector,
		defaultThreshold: DefaultThreshold,
	}
}

// SetDefaultThreshold overrides the global fuzzy threshold default
func (e *Engine) SetDefaultThreshold(threshold float64) {
	e.defaultThreshold = threshold
}

// ResolveField resolves one relationship field for the given owner entity.
// input may be an explicit entity ID, a hint string, an explicit data
// document, or nil. A nil resolution with nil error means the field
// produced no link (backward modes).
func (e *Engine) ResolveField(ctx context.Context, owner *entities.Entity, field *entities.FieldDescriptor, input any) (*Resolution, error) {
	if field.Kind != entities.KindRelationship || field.Relationship == nil {
		return nil, fmt.Errorf("field %s is not a relationship", field.Name)
	}
	rel := field.Relationship

	switch {
	case rel.Direction == entities.DirectionForward && rel.MatchMode == entities.MatchExact:
		return e.resolveForwardExact(ctx, owner, field, input)
	case rel.Direction == entities.DirectionForward && rel.MatchMode == entities.MatchFuzzy:
		return e.resolveForwardFuzzy(ctx, owner, field, input)
	case rel.Direction == entities.DirectionBackward && rel.MatchMode == entities.MatchFuzzy:
		return e.resolveBackwardFuzzy(ctx, owner, field, input)
	default:
		// Backward-exact is an aggregation view over forward edges;
		// nothing is resolved or written at creation time.
		return nil, nil
	}
}

// QueryBackward lists the entities whose forward field (the backref, or
// this field's name) points at the owner — the read side of backward
// relationship fields.
func (e *Engine) QueryBackward(ctx context.Context, owner *entities.Entity, field *entities.FieldDescriptor) ([]*entities.Entity, error) {
	if field.Kind != entities.KindRelationship || field.Relationship == nil {
		return nil, fmt.Errorf("field %s is not a relationship", field.Name)
	}
	rel := field.Relationship

	name := rel.BackrefField
	if name == "" {
		name = field.Name
	}
	edges, err := e.graph.QueryRelations(ctx, &repositories.RelationFilter{ToID: owner.ID, Relation: name})
	if err != nil {
		return nil, err
	}

	var out []*entities.Entity
	for _, edge := range edges {
		entity, err := e.graph.GetEntity(ctx, edge.FromID)
		if err != nil {
			if entities.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if containsType(rel.TargetTypes, entity.Type) {
			out = append(out, entity)
		}
	}
	return out, nil
}

func (e *Engine) resolveForwardExact(ctx context.Context, owner *entities.Entity, field *entities.FieldDescriptor, input any) (*Resolution, error) {
	rel := field.Relationship

	switch v := input.(type) {
	case string:
		// Explicit ID: link without creating.
		target, err := e.graph.GetEntity(ctx, v)
		if err != nil {
			return nil, err
		}
		if !containsType(rel.TargetTypes, target.Type) {
			return nil, fmt.Errorf("field %s expects one of %v, entity %s has type %s",
				field.Name, rel.TargetTypes, target.ID, target.Type)
		}
		return e.link(ctx, owner, field, target, linkInfo{score: 1})
	case map[string]any:
		target, err := e.createFromValue(ctx, field, v)
		if err != nil {
			return nil, err
		}
		return e.link(ctx, owner, field, target, linkInfo{score: 1, created: true})
	case nil:
		target, err := e.generate(ctx, owner, field, rel.TargetTypes[0], hintFor(owner, field, nil))
		if err != nil {
			return nil, err
		}
		return e.link(ctx, owner, field, target, linkInfo{score: 1, created: true, generated: true})
	default:
		return nil, fmt.Errorf("field %s: unsupported input value of type %T", field.Name, input)
	}
}

func (e *Engine) resolveForwardFuzzy(ctx context.Context, owner *entities.Entity, field *entities.FieldDescriptor, input any) (*Resolution, error) {
	rel := field.Relationship

	if value, ok := input.(map[string]any); ok {
		target, err := e.createFromValue(ctx, field, value)
		if err != nil {
			return nil, err
		}
		return e.link(ctx, owner, field, target, linkInfo{score: 1, created: true})
	}

	query := hintFor(owner, field, input)
	threshold := e.threshold(owner, field)

	if query != "" {
		match, err := e.searchUnion(ctx, field, query, threshold)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return e.link(ctx, owner, field, match.Entity, linkInfo{score: match.Score})
		}
	}

	// Creates-on-miss: no existing entity cleared the threshold.
	target, err := e.generate(ctx, owner, field, rel.TargetTypes[0], query)
	if err != nil {
		return nil, err
	}
	return e.link(ctx, owner, field, target, linkInfo{score: 1, created: true, generated: true})
}

// resolveBackwardFuzzy is the grounding pattern: match against existing
// reference data, never fabricate. No match means no link and no error.
func (e *Engine) resolveBackwardFuzzy(ctx context.Context, owner *entities.Entity, field *entities.FieldDescriptor, input any) (*Resolution, error) {
	query := hintFor(owner, field, input)
	if query == "" {
		e.collector.RecordResolutionDeclined()
		return nil, nil
	}

	match, err := e.searchUnion(ctx, field, query, e.threshold(owner, field))
	if err != nil {
		return nil, err
	}
	if match == nil {
		e.collector.RecordResolutionDeclined()
		return nil, nil
	}
	return e.link(ctx, owner, field, match.Entity, linkInfo{score: match.Score})
}

// searchUnion tries each union member strictly in declared priority order
// and returns the first match clearing the threshold. Ties between union
// members resolve to declaration order, not score order.
func (e *Engine) searchUnion(ctx context.Context, field *entities.FieldDescriptor, query string, threshold float64) (*search.Match, error) {
	for _, targetType := range field.Relationship.TargetTypes {
		matches, err := e.searcher.Search(ctx, targetType, query, 5)
		if err != nil {
			return nil, fmt.Errorf("similarity search for field %s failed: %w", field.Name, err)
		}
		if len(matches) > 0 && matches[0].Score >= threshold {
			return &matches[0], nil
		}
	}
	return nil, nil
}

// createFromValue persists a target entity from explicit caller data. A
// "$type" key may disambiguate the union member; otherwise the first
// declared target is used.
func (e *Engine) createFromValue(ctx context.Context, field *entities.FieldDescriptor, value map[string]any) (*entities.Entity, error) {
	rel := field.Relationship
	targetType := rel.TargetTypes[0]
	if t, ok := value["$type"].(string); ok && containsType(rel.TargetTypes, t) {
		targetType = t
	}

	data := make(map[string]any, len(value))
	for k, v := range value {
		if k == "$type" {
			continue
		}
		data[k] = v
	}
	return e.graph.CreateEntity(ctx, &entities.Entity{Type: targetType, Data: data})
}

// generate asks the generation collaborator for target data and persists
// the result, marked as generated.
func (e *Engine) generate(ctx context.Context, owner *entities.Entity, field *entities.FieldDescriptor, targetType, hint string) (*entities.Entity, error) {
	if e.generator == nil {
		return nil, &entities.CapabilityError{
			Capability: "generation",
			Detail:     fmt.Sprintf("field %s needs to create a %s but no generator is configured", field.Name, targetType),
		}
	}

	genContext := map[string]any{
		"ownerType":  owner.Type,
		"ownerId":    owner.ID,
		"field":      field.Name,
		"targetType": targetType,
	}
	if et := e.graph.Schema().GetEntity(targetType); et != nil && et.Context != "" {
		genContext["context"] = et.Context
	}

	data, err := e.generator.Generate(ctx, e.buildPrompt(owner, field, targetType, hint), genContext)
	if err != nil {
		return nil, &entities.GenerationError{Field: field.Name, TargetType: targetType, Err: err}
	}
	if data == nil {
		data = map[string]any{}
	}
	data["$generated"] = true

	return e.graph.CreateEntity(ctx, &entities.Entity{Type: targetType, Data: data})
}

// buildPrompt synthesizes the generation prompt from the field, the target
// type's $instructions metadata, and the hint text.
func (e *Engine) buildPrompt(owner *entities.Entity, field *entities.FieldDescriptor, targetType, hint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a %s entity for the %s field of a %s.", targetType, field.Name, owner.Type)
	if et := e.graph.Schema().GetEntity(targetType); et != nil && et.Instructions != "" {
		b.WriteString(" ")
		b.WriteString(et.Instructions)
	}
	if hint != "" {
		fmt.Fprintf(&b, " Hint: %s", hint)
	}
	return b.String()
}

type linkInfo struct {
	score     float64
	created   bool
	generated bool
}

// link writes exactly one edge for a successful resolution. Forward
// fields record owner→target under the field name; a backref (and every
// backward field) records target→owner under the inverse forward field,
// so one edge row serves both directions.
func (e *Engine) link(ctx context.Context, owner *entities.Entity, field *entities.FieldDescriptor, target *entities.Entity, info linkInfo) (*Resolution, error) {
	rel := field.Relationship

	edge := &entities.Relation{FromID: owner.ID, Relation: field.Name, ToID: target.ID}
	if rel.Direction == entities.DirectionBackward || rel.BackrefField != "" {
		name := rel.BackrefField
		if name == "" {
			name = field.Name
		}
		edge = &entities.Relation{FromID: target.ID, Relation: name, ToID: owner.ID}
	}
	if rel.MatchMode == entities.MatchFuzzy {
		edge.Metadata = map[string]any{"score": info.score, "matchType": target.Type}
		if info.generated {
			edge.Metadata["generated"] = true
		}
	}

	written, err := e.graph.CreateRelation(ctx, edge)
	if err != nil {
		return nil, err
	}

	if info.generated {
		e.collector.RecordResolutionGenerated()
	} else {
		e.collector.RecordResolutionLinked()
	}
	e.graph.Reporter().Report(ctx, events.Event{
		Kind:       events.KindRelationResolved,
		EntityType: target.Type, EntityID: target.ID,
		Relation: written.Relation, FromID: written.FromID, ToID: written.ToID,
		At: time.Now().UTC(),
	})

	return &Resolution{
		Target:    target,
		MatchType: target.Type,
		Score:     info.score,
		Generated: info.generated,
		Created:   info.created,
		Relation:  written,
	}, nil
}

func (e *Engine) threshold(owner *entities.Entity, field *entities.FieldDescriptor) float64 {
	if t := field.Relationship.Threshold; t != nil {
		return *t
	}
	if et := e.graph.Schema().GetEntity(owner.Type); et != nil && et.FuzzyThreshold != nil {
		return *et.FuzzyThreshold
	}
	return e.defaultThreshold
}

// hintFor extracts the query text for a field: an explicit string input
// wins, otherwise the "${field}Hint" convention on the owner's data.
func hintFor(owner *entities.Entity, field *entities.FieldDescriptor, input any) string {
	if s, ok := input.(string); ok && s != "" {
		return s
	}
	if s, ok := owner.Data[field.Name+HintSuffix].(string); ok {
		return s
	}
	return ""
}

func containsType(types []string, typ string) bool {
	for _, t := range types {
		if t == typ {
			return true
		}
	}
	return false
}
