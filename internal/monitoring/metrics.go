package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbooking_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airbooking_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	nlQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbooking_nl_queries_total",
			Help: "Natural-language queries by resolved action and envelope status",
		},
		[]string{"action", "status"},
	)

	extractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airbooking_intent_extraction_seconds",
			Help:    "Time spent extracting an intent from a prompt",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"outcome"},
	)

	orderEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbooking_order_events_total",
			Help: "Order lifecycle transitions",
		},
		[]string{"event"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbooking_webhook_events_total",
			Help: "Payment webhook events by type and processing outcome",
		},
		[]string{"type", "outcome"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airbooking_cache_lookups_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)
)

func TrackHTTPRequest(method, route string, code int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func TrackQuery(action, status string) {
	nlQueries.WithLabelValues(action, status).Inc()
}

func TrackExtraction(outcome string, d time.Duration) {
	extractionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func TrackOrderEvent(event string) {
	orderEvents.WithLabelValues(event).Inc()
}

func TrackOrderEvents(event string, n int) {
	if n > 0 {
		orderEvents.WithLabelValues(event).Add(float64(n))
	}
}

func TrackWebhook(eventType, outcome string) {
	webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func TrackCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}
