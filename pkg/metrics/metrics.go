// Package metrics exposes prometheus instrumentation for the sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus collectors for the service.
type Metrics struct {
	SyncsTotal        *prometheus.CounterVec
	BookingsImported  *prometheus.CounterVec
	BlocksImported    *prometheus.CounterVec
	ConflictsDetected prometheus.Counter
	SyncDuration      prometheus.Histogram
}

// New registers and returns the service metrics under the given namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		SyncsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Completed calendar sync runs by platform and outcome",
		}, []string{"platform", "status"}),
		BookingsImported: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_imported_total",
			Help:      "Reservation bookings imported from calendar feeds",
		}, []string{"platform"}),
		BlocksImported: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_imported_total",
			Help:      "Administrative blocks imported from calendar feeds",
		}, []string{"platform"}),
		ConflictsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_detected_total",
			Help:      "Double-bookings detected after sync runs",
		}),
		SyncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of full sync runs",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
