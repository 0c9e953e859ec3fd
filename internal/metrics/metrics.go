// Package metrics holds the Prometheus collectors of the enrichment pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kgeditor"

// Metrics groups every collector exported by the service.
type Metrics struct {
	typeFetches   *prometheus.CounterVec
	typesResolved prometheus.Counter
	typeErrors    prometheus.Counter
	enriched      *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		typeFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "typegraph",
			Name:      "fetches_total",
			Help:      "Total number of batched type structure fetches issued to the metadata source",
		}, []string{"with_properties"}),
		typesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "typegraph",
			Name:      "types_resolved_total",
			Help:      "Total number of type structures resolved",
		}),
		typeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "typegraph",
			Name:      "type_errors_total",
			Help:      "Total number of type names excluded after a per-name fetch error",
		}),
		enriched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "instances_total",
			Help:      "Total number of instances enriched, by outcome",
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of type structure cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of type structure cache misses",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.typeFetches, m.typesResolved, m.typeErrors, m.enriched, m.cacheHits, m.cacheMisses,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TypeFetch records one batched fetch of n type structures.
func (m *Metrics) TypeFetch(withProperties bool, resolved, failed int) {
	if m == nil {
		return
	}
	m.typeFetches.WithLabelValues(strconv.FormatBool(withProperties)).Inc()
	m.typesResolved.Add(float64(resolved))
	m.typeErrors.Add(float64(failed))
}

// Enriched records the outcome of enriching one instance.
func (m *Metrics) Enriched(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.enriched.WithLabelValues(outcome).Inc()
}

// CacheLookup records cache hits and misses of one lookup.
func (m *Metrics) CacheLookup(hits, misses int) {
	if m == nil {
		return
	}
	m.cacheHits.Add(float64(hits))
	m.cacheMisses.Add(float64(misses))
}
