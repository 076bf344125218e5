package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ChunksProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_chunks_processed_total",
			Help: "Total chunk send attempts processed",
		},
	)

	ChunksFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_chunks_failed_total",
			Help: "Total chunks that failed entirely at the transport layer",
		},
	)

	RecipientsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_recipients_sent_total",
			Help: "Total recipients delivered",
		},
	)

	RecipientsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_recipients_failed_total",
			Help: "Total recipient delivery failures",
		},
	)

	RetryRounds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_retry_rounds_total",
			Help: "Total retry rounds driven over failed recipients",
		},
	)

	ChunkSendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsletter_chunk_send_duration_seconds",
			Help:    "Duration of a single chunk send attempt",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init() {
	prometheus.MustRegister(ChunksProcessed)
	prometheus.MustRegister(ChunksFailed)
	prometheus.MustRegister(RecipientsSent)
	prometheus.MustRegister(RecipientsFailed)
	prometheus.MustRegister(RetryRounds)
	prometheus.MustRegister(ChunkSendDuration)
}
