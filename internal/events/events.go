// Package events emits change notifications for the graph store. Reporting
// is fire-and-forget: a failed publish is logged and never fails the
// storage operation that triggered it.
package events

import (
	"context"
	"time"
)

// Kind identifies the change an event describes
type Kind string

const (
	KindEntityCreated    Kind = "entity.created"
	KindEntityUpdated    Kind = "entity.updated"
	KindEntityDeleted    Kind = "entity.deleted"
	KindRelationCreated  Kind = "relation.created"
	KindRelationDeleted  Kind = "relation.deleted"
	KindRelationResolved Kind = "relation.resolved"
)

// Event is one change notification
type Event struct {
	Kind       Kind      `json:"kind"`
	EntityType string    `json:"entityType,omitempty"`
	EntityID   string    `json:"entityId,omitempty"`
	Relation   string    `json:"relation,omitempty"`
	FromID     string    `json:"fromId,omitempty"`
	ToID       string    `json:"toId,omitempty"`
	At         time.Time `json:"at"`
}

// Reporter consumes change notifications
type Reporter interface {
	Report(ctx context.Context, event Event)
}

// Nop is a Reporter that discards all events
type Nop struct{}

// NewNop creates a no-op reporter
func NewNop() *Nop {
	return &Nop{}
}

// Report discards the event
func (n *Nop) Report(ctx context.Context, event Event) {}
