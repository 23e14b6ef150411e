package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter exposes the collector's counters as Prometheus
// metrics. Counters are exported as gauge functions reading the live
// atomics, so no sync loop is required.
type PrometheusExporter struct {
	collector *Collector
}

// NewPrometheusExporter registers the collector's metrics with the given
// registerer (use prometheus.DefaultRegisterer for the default registry).
func NewPrometheusExporter(collector *Collector, reg prometheus.Registerer) (*PrometheusExporter, error) {
	e := &PrometheusExporter{collector: collector}

	gauges := []struct {
		name string
		help string
		read func() int64
	}{
		{"entigraph_entity_creates_total", "Total number of entity create operations", func() int64 { return collector.entityCreates.Load() }},
		{"entigraph_entity_updates_total", "Total number of entity update operations", func() int64 { return collector.entityUpdates.Load() }},
		{"entigraph_entity_deletes_total", "Total number of entity delete operations", func() int64 { return collector.entityDeletes.Load() }},
		{"entigraph_relation_creates_total", "Total number of edge create operations", func() int64 { return collector.relationCreates.Load() }},
		{"entigraph_relation_deletes_total", "Total number of edge delete operations", func() int64 { return collector.relationDeletes.Load() }},
		{"entigraph_resolutions_linked_total", "Resolutions that linked an existing entity", func() int64 { return collector.resolutionsLinked.Load() }},
		{"entigraph_resolutions_generated_total", "Resolutions that generated a new entity", func() int64 { return collector.resolutionsGenerated.Load() }},
		{"entigraph_resolutions_declined_total", "Resolutions that produced no link", func() int64 { return collector.resolutionsDeclined.Load() }},
		{"entigraph_cascade_entities_total", "Entities created during cascade runs", func() int64 { return collector.cascadeEntities.Load() }},
	}

	for _, g := range gauges {
		read := g.read
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}, func() float64 { return float64(read()) })
		if err := reg.Register(gauge); err != nil {
			return nil, err
		}
	}

	return e, nil
}
