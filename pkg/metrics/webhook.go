package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records gateway callback processing outcomes.
type WebhookMetrics struct {
	callbacks      *prometheus.CounterVec
	creditFailures *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// NewWebhookMetrics registers the callback metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_callbacks_total",
		Help: "Gateway callbacks processed, by outcome.",
	}, []string{"gateway", "result"})
	creditFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "balance_credit_failures_total",
		Help: "Trading platform credit attempts that did not complete.",
	}, []string{"gateway", "reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_callback_duration_seconds",
		Help:    "Duration of callback processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})
	reg.MustRegister(callbacks, creditFailures, duration)
	return &WebhookMetrics{
		callbacks:      callbacks,
		creditFailures: creditFailures,
		duration:       duration,
	}
}

// IncCallback increments the callback counter for the outcome label.
func (w *WebhookMetrics) IncCallback(gateway, result string) {
	if w == nil || w.callbacks == nil {
		return
	}
	w.callbacks.WithLabelValues(normalizeLabel(gateway), normalizeLabel(result)).Inc()
}

// IncCreditFailure increments the crediting failure counter.
func (w *WebhookMetrics) IncCreditFailure(gateway, reason string) {
	if w == nil || w.creditFailures == nil {
		return
	}
	w.creditFailures.WithLabelValues(normalizeLabel(gateway), normalizeLabel(reason)).Inc()
}

// ObserveDuration records how long a callback took to process.
func (w *WebhookMetrics) ObserveDuration(gateway string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(gateway)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
