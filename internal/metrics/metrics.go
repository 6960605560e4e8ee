package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_settlements_total",
			Help: "Settlement attempts by request kind, requested outcome and result",
		},
		[]string{"kind", "outcome", "result"},
	)

	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_settlement_duration_seconds",
			Help:    "Duration of settlement transactions including retries",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2},
		},
		[]string{"kind"},
	)

	requestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_requests_created_total",
			Help: "Deposit, withdrawal and exchange requests created",
		},
		[]string{"kind"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Change events published by topic kind and result",
		},
		[]string{"type", "result"},
	)
)

// ObserveSettlement records one settle call; result is "ok" or an error kind.
func ObserveSettlement(kind, outcome, result string, started time.Time) {
	settlementsTotal.WithLabelValues(kind, outcome, result).Inc()
	settlementDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

func RequestCreated(kind string) {
	requestsCreated.WithLabelValues(kind).Inc()
}

func ObserveHTTP(route, method, code string, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, method, code).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func EventPublished(typ string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsPublished.WithLabelValues(typ, result).Inc()
}
