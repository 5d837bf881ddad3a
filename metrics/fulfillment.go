package metrics

import "github.com/prometheus/client_golang/prometheus"

// Fulfillment outcomes used as the "outcome" label.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

var (
	fulfillmentEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "fulfillment_events_total",
			Help:      "Webhook events by fulfillment outcome.",
		},
		[]string{"outcome"},
	)
	fulfillmentInconsistencies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "fulfillment_inconsistencies_total",
			Help:      "Stock decremented but the order record could not be written.",
		},
	)
	webhookSignatureFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "webhook_signature_failures_total",
			Help:      "Webhook deliveries rejected by signature verification.",
		},
	)
	stockSwapRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "stock_swap_retries_total",
			Help:      "Lost compare-and-swap races on product stock.",
		},
	)
)

func init() {
	prometheus.MustRegister(fulfillmentEvents, fulfillmentInconsistencies, webhookSignatureFailures, stockSwapRetries)
}

func RecordFulfillment(outcome string) {
	fulfillmentEvents.WithLabelValues(outcome).Inc()
}

func RecordInconsistency() {
	fulfillmentInconsistencies.Inc()
}

func RecordSignatureFailure() {
	webhookSignatureFailures.Inc()
}

func RecordStockRetry() {
	stockSwapRetries.Inc()
}
