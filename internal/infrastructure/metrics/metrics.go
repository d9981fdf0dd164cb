package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the webhook pipeline and
// the backfill jobs. A single instance is wired through the services at
// startup.
type Metrics struct {
	WebhooksReceived  *prometheus.CounterVec
	WebhooksDuplicate *prometheus.CounterVec
	WebhooksRejected  *prometheus.CounterVec
	WebhookDuration   *prometheus.HistogramVec

	BackfillRuns    *prometheus.CounterVec
	BackfillRecords *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopsight_webhooks_received_total",
			Help: "Webhook deliveries accepted for processing, by topic.",
		}, []string{"topic"}),
		WebhooksDuplicate: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopsight_webhooks_duplicate_total",
			Help: "Webhook deliveries skipped as duplicates, by topic.",
		}, []string{"topic"}),
		WebhooksRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopsight_webhooks_rejected_total",
			Help: "Webhook deliveries rejected before processing, by reason.",
		}, []string{"reason"}),
		WebhookDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopsight_webhook_duration_seconds",
			Help:    "Time spent processing one webhook delivery, by topic.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		BackfillRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopsight_backfill_runs_total",
			Help: "Backfill executions, by resource and outcome.",
		}, []string{"resource", "outcome"}),
		BackfillRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopsight_backfill_records_total",
			Help: "Records upserted by backfill runs, by resource.",
		}, []string{"resource"}),
	}
}
