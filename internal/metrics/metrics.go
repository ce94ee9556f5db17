package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testimonial_generation_attempts_total",
			Help: "Backend calls made by the fallback driver, by outcome.",
		},
		[]string{"backend", "model", "outcome"},
	)
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "testimonial_generation_duration_seconds",
			Help:    "Latency of single backend calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
	testimonialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testimonials_total",
			Help: "Products processed, by caller and status.",
		},
		[]string{"source", "status"},
	)
	catalogLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testimonial_catalog_lookups_total",
			Help: "Candidate discovery lookups, by result.",
		},
		[]string{"result"},
	)
)

func ObserveAttempt(backend, model, outcome string, took time.Duration) {
	generationAttempts.WithLabelValues(backend, model, outcome).Inc()
	generationDuration.WithLabelValues(backend).Observe(took.Seconds())
}

func ObserveTestimonial(source string, ok bool) {
	status := "success"
	if !ok {
		status = "failed"
	}
	testimonialsTotal.WithLabelValues(source, status).Inc()
}

// ObserveCatalog records "hit", "fetched" or "fallback".
func ObserveCatalog(result string) {
	catalogLookups.WithLabelValues(result).Inc()
}
