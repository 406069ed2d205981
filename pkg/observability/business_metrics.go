package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment link metrics
	paymentLinksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mercantil_payment_links_total",
		Help: "Total payment links built",
	}, []string{
		"rate_source", // fixed, ingested, default
		"status",      // success, config_missing, invalid, failed
	})

	rateFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mercantil_rate_fallback_total",
		Help: "Payment links built with the default rate of 1 because no rate was available",
	})

	// Confirmation webhook metrics
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mercantil_notifications_total",
		Help: "Bank confirmation callbacks by outcome",
	}, []string{
		"outcome", // applied, duplicate, unknown_invoice, decrypt_failed, ...
	})

	notificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mercantil_notification_duration_seconds",
		Help:    "Time to process a bank confirmation callback",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{
		"outcome",
	})

	// Rate ingestion metrics
	rateIngestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_rate_ingestions_total",
		Help: "BCV rate ingestion runs",
	}, []string{
		"status", // success, fetch_failed, partial, failed
	})

	exchangeRateValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "exchange_rate_value",
		Help: "Last ingested settlement rate",
	}, []string{
		"currency",
	})

	// Storefront order metrics
	shopifyOrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_orders_total",
		Help: "Storefront order webhooks by outcome",
	}, []string{
		"outcome",
	})

	paymentLinkEmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_link_emails_total",
		Help: "Payment link emails sent",
	}, []string{
		"status", // sent, failed
	})
)

// RecordPaymentLink records a link build attempt
func RecordPaymentLink(rateSource, status string) {
	paymentLinksTotal.WithLabelValues(rateSource, status).Inc()
}

// RecordRateFallback records a link priced with the default rate
func RecordRateFallback() {
	rateFallbackTotal.Inc()
}

// RecordNotification records a processed bank callback
func RecordNotification(outcome string, duration time.Duration) {
	notificationsTotal.WithLabelValues(outcome).Inc()
	notificationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordRateIngestion records one ingestion run
func RecordRateIngestion(status string) {
	rateIngestionsTotal.WithLabelValues(status).Inc()
}

// SetExchangeRate publishes the last ingested rate
func SetExchangeRate(currency string, value float64) {
	exchangeRateValue.WithLabelValues(currency).Set(value)
}

// RecordShopifyOrder records a storefront order webhook outcome
func RecordShopifyOrder(outcome string) {
	shopifyOrdersTotal.WithLabelValues(outcome).Inc()
}

// RecordPaymentLinkEmail records a payment link email attempt
func RecordPaymentLinkEmail(status string) {
	paymentLinkEmailsTotal.WithLabelValues(status).Inc()
}
