package catalog

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoutd",
			Subsystem: "catalog",
			Name:      "runs_total",
			Help:      "Total classification runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	candidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scoutd",
			Subsystem: "catalog",
			Name:      "candidates_total",
			Help:      "Candidates classified, by classification bucket",
		},
		[]string{"classification"},
	)

	rateLimited429Total = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scoutd",
			Subsystem: "catalog",
			Name:      "rate_limited_total",
			Help:      "HTTP 429 responses observed from the hub",
		},
	)

	listingPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scoutd",
			Subsystem: "catalog",
			Name:      "listing_pages_total",
			Help:      "Listing pages fetched",
		},
	)

	effectiveConcurrency = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scoutd",
			Subsystem: "catalog",
			Name:      "effective_concurrency",
			Help:      "Current metadata-fetch concurrency after rate-limit adaptation",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, candidatesTotal, rateLimited429Total, listingPagesTotal, effectiveConcurrency)
}
