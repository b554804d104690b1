// Package metrics exposes Prometheus counters for the auth client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the request interceptor and auth service report into.
type Recorder interface {
	RecordRequest(statusCode int, duration time.Duration)
	RecordForcedLogout()
	RecordRefresh(result string)
}

const (
	RefreshSuccess   = "success"
	RefreshFailure   = "failure"
	RefreshNoToken   = "no_token"
	statusNoResponse = "none"
)

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	requests       *prometheus.CounterVec
	latency        prometheus.Histogram
	forcedLogouts  prometheus.Counter
	refreshResults *prometheus.CounterVec
}

// NewCollector registers the client metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_requests_total",
			Help: "Backend requests by HTTP status code",
		}, []string{"status_code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authclient_request_duration_seconds",
			Help:    "Backend request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		forcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authclient_forced_logouts_total",
			Help: "Sessions cleared because the backend answered 401",
		}),
		refreshResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_refresh_total",
			Help: "Token refresh attempts by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.forcedLogouts,
		c.refreshResults,
	)

	return c
}

// RecordRequest counts a request. A zero status means no response was received.
func (c *Collector) RecordRequest(statusCode int, duration time.Duration) {
	label := statusNoResponse
	if statusCode > 0 {
		label = strconv.Itoa(statusCode)
	}
	c.requests.WithLabelValues(label).Inc()
	c.latency.Observe(duration.Seconds())
}

func (c *Collector) RecordForcedLogout() {
	c.forcedLogouts.Inc()
}

func (c *Collector) RecordRefresh(result string) {
	c.refreshResults.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(int, time.Duration) {}

func (Nop) RecordForcedLogout() {}

func (Nop) RecordRefresh(string) {}
