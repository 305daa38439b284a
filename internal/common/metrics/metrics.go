// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Total number of chat requests processed",
		},
		[]string{"intent", "status"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_pipeline_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_lookups_total",
			Help: "Reply cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	EnrichmentRoundTrips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_field_enrichment_round_trips_total",
			Help: "Number of extra bulk lookups performed by the field resolver",
		},
	)

	ComponentsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_components_built_total",
			Help: "Components rendered per type",
		},
		[]string{"component_type"},
	)

	ReplyCorrections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_reply_corrections_total",
			Help: "Replies rewritten by the consistency policy",
		},
	)
)
