// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus collectors for pmid2nct. All
// collectors register with the default registry through promauto and are
// exposed by the server on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesTotal counts efetch batches processed.
	BatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmid2nct_batches_total",
		Help: "Total efetch batches processed",
	})

	// FetchDuration observes efetch request latency.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pmid2nct_fetch_duration_seconds",
		Help:    "efetch request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// FetchErrors counts failed efetch requests by error class.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmid2nct_fetch_errors_total",
		Help: "Total failed efetch requests by error class",
	}, []string{"class"})

	// ParseFallbacks counts batches that fell back from the structured
	// parser to the element-tree parser.
	ParseFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmid2nct_parse_fallbacks_total",
		Help: "Total batches parsed with the element-tree fallback",
	})

	// Records counts extracted citation records by the tier that matched.
	Records = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmid2nct_records_total",
		Help: "Total citation records by extraction tier",
	}, []string{"tier"})

	// MissingRecords counts requested PMIDs absent from the efetch response.
	MissingRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmid2nct_missing_records_total",
		Help: "Total requested PMIDs with no record in the response",
	})

	// HTTPRequests counts web requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pmid2nct_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"route", "status"})
)
