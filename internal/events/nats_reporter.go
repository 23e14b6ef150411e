package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
)

// NATSReporter publishes events as JSON to NATS subjects of the form
// <prefix>.<kind>.
type NATSReporter struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSReporter creates a reporter over an existing connection
func NewNATSReporter(conn *nats.Conn, prefix string) *NATSReporter {
	return &NATSReporter{conn: conn, prefix: prefix}
}

// Connect dials NATS and returns a reporter bound to the connection
func Connect(url, prefix string) (*NATSReporter, error) {
	conn, err := nats.Connect(url,
		nats.Name("entigraph"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return NewNATSReporter(conn, prefix), nil
}

// Report publishes the event. Publish failures are logged, never returned:
// notification must not fail the underlying storage operation.
func (r *NATSReporter) Report(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: failed to marshal %s event: %v", event.Kind, err)
		return
	}
	subject := r.prefix + "." + string(event.Kind)
	if err := r.conn.Publish(subject, data); err != nil {
		log.Printf("events: failed to publish %s event: %v", event.Kind, err)
	}
}

// Close flushes and closes the underlying connection
func (r *NATSReporter) Close() {
	if r.conn != nil {
		_ = r.conn.Flush()
		r.conn.Close()
	}
}
