package client

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes recorded in docs_client_refreshes_total.
const (
	refreshSucceeded = "success"
	refreshFailed    = "failure"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	refreshesTotal *prometheus.CounterVec
	retriesTotal   prometheus.Counter
	refreshWaiters prometheus.Gauge
}

// NewMetrics creates the pipeline collectors and registers them with reg.
// A nil reg yields working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_client_requests_total",
				Help: "Total number of API responses by status code",
			},
			[]string{"status"},
		),
		refreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_client_refreshes_total",
				Help: "Total number of token refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		retriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_client_retries_total",
				Help: "Total number of requests re-issued after a token refresh",
			},
		),
		refreshWaiters: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "docs_client_refresh_waiters",
				Help: "Number of requests waiting for an in-flight token refresh",
			},
		),
	}
}

func (m *Metrics) observeStatus(code int) {
	m.requestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Metrics) observeRefresh(err error) {
	if err != nil {
		m.refreshesTotal.WithLabelValues(refreshFailed).Inc()
		return
	}
	m.refreshesTotal.WithLabelValues(refreshSucceeded).Inc()
}
