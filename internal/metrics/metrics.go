// Package metrics holds the Prometheus instruments for the registration
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	Registrations  prometheus.Counter
	BadgesCreated  prometheus.Counter
	ImagesUpdated  prometheus.Counter
	ImagesSkipped  prometheus.Counter
	UpsertFailures *prometheus.CounterVec
	UpsertLatency  prometheus.Histogram
}

// New creates all metrics against the given registerer. Production passes
// prometheus.DefaultRegisterer so the /metrics endpoint picks them up; tests
// pass a fresh registry to avoid duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "conbadge_registrations_total",
			Help: "Total number of registration upserts processed",
		}),
		BadgesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "conbadge_badges_created_total",
			Help: "Total number of badge records created on first registration",
		}),
		ImagesUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "conbadge_images_updated_total",
			Help: "Total number of thumbnail derivations (fingerprint changed)",
		}),
		ImagesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "conbadge_images_skipped_total",
			Help: "Total number of upserts that skipped the thumbnail (fingerprint unchanged)",
		}),
		UpsertFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conbadge_upsert_failures_total",
			Help: "Total number of failed upserts by pipeline stage",
		}, []string{"stage"}),
		UpsertLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "conbadge_upsert_latency_seconds",
			Help:    "Wall time of the full upsert pipeline including gate wait",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
