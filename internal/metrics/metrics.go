package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraping pipeline. All
// methods are nil-safe so instrumented code never has to guard.
type Metrics struct {
	Registry *prometheus.Registry

	FetchesTotal       *prometheus.CounterVec
	FetchDuration      prometheus.Histogram
	RetriesTotal       prometheus.Counter
	BreakerOpensTotal  prometheus.Counter
	ProductsTotal      prometheus.Counter
	ExtractionFailures prometheus.Counter
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopscan_fetches_total",
			Help: "Page fetches by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopscan_fetch_duration_seconds",
			Help:    "Latency of page fetches including retries.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopscan_retries_total",
			Help: "Retry attempts scheduled by the fetch pipeline.",
		},
	)
	breakerOpens := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopscan_breaker_rejections_total",
			Help: "Fetches rejected because the circuit breaker was open.",
		},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopscan_products_extracted_total",
			Help: "Products successfully extracted.",
		},
	)
	extractionFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopscan_extraction_failures_total",
			Help: "Product pages that yielded no valid product.",
		},
	)

	registry.MustRegister(fetches, fetchDuration, retries, breakerOpens, products, extractionFailures)

	return &Metrics{
		Registry:           registry,
		FetchesTotal:       fetches,
		FetchDuration:      fetchDuration,
		RetriesTotal:       retries,
		BreakerOpensTotal:  breakerOpens,
		ProductsTotal:      products,
		ExtractionFailures: extractionFailures,
	}
}

// ObserveFetch records one completed fetch with its outcome label.
func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

// IncRetries counts one scheduled retry attempt.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncBreakerRejections counts one breaker fast-fail.
func (m *Metrics) IncBreakerRejections() {
	if m == nil {
		return
	}
	m.BreakerOpensTotal.Inc()
}

// IncProducts counts one successfully extracted product.
func (m *Metrics) IncProducts() {
	if m == nil {
		return
	}
	m.ProductsTotal.Inc()
}

// IncExtractionFailures counts one page with no extractable product.
func (m *Metrics) IncExtractionFailures() {
	if m == nil {
		return
	}
	m.ExtractionFailures.Inc()
}
