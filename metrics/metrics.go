package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SentencesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psyctx_sentences_processed_total",
			Help: "Number of sentences annotated, by configuration and row status",
		},
		[]string{"config", "status"},
	)

	EntitiesAnnotated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psyctx_entities_annotated_total",
			Help: "Number of entities that received a context vector",
		},
		[]string{"config", "rule"},
	)

	OutOfRangeEntities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psyctx_out_of_range_entities_total",
			Help: "Entities that did not fit their sentence and got default labels",
		},
		[]string{"config"},
	)

	SentenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "psyctx_sentence_duration_seconds",
			Help:    "Time spent on one sentence, parsing included",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"config"},
	)

	ParseCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psyctx_parse_cache_total",
			Help: "Parse cache lookups by result",
		},
		[]string{"result"},
	)

	DeliveriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psyctx_worker_deliveries_total",
			Help: "RMQ deliveries handled by the worker, by outcome",
		},
		[]string{"outcome"},
	)

	DeliveriesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "psyctx_worker_deliveries_in_flight",
			Help: "RMQ deliveries currently being processed",
		},
	)

	ChunkRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psyctx_worker_chunk_rows_total",
			Help: "Rows of completed chunk tasks, by row status",
		},
		[]string{"status"},
	)
)
