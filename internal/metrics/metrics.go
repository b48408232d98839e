// Package metrics holds the Prometheus collectors of the records service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/evidenca/internal/ledger"
)

// Label values used in place of caller-supplied strings outside the known set.
const (
	UnknownKind = "unknown"
	OtherMethod = "other"
)

// Outcomes of a decision attempt.
const (
	OutcomeApproved     = "approved"
	OutcomeDeclined     = "declined"
	OutcomeInsufficient = "insufficient"
	OutcomeNotPending   = "not_pending"
	OutcomeConflict     = "conflict"
	OutcomeLimit        = "over_limit"
)

// Metrics bundles the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RecordsCreated  *prometheus.CounterVec
	RecordsRejected *prometheus.CounterVec
	Decisions       *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evidenca",
			Name:      "records_created_total",
			Help:      "Adjustment requests accepted into the pending queue.",
		}, []string{"block", "kind"}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evidenca",
			Name:      "records_rejected_total",
			Help:      "Adjustment requests refused by validation before being stored.",
		}, []string{"block", "kind"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evidenca",
			Name:      "record_decisions_total",
			Help:      "Approve and decline attempts by outcome.",
		}, []string{"block", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evidenca",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "evidenca",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RecordsCreated,
		m.RecordsRejected,
		m.Decisions,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished HTTP request. A nil receiver is a no-op
// so callers need not check whether metrics are enabled.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	method = methodLabel(method)
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordCreated counts an accepted request.
func (m *Metrics) RecordCreated(block, kind string) {
	if m == nil {
		return
	}
	m.RecordsCreated.WithLabelValues(block, kindLabel(kind)).Inc()
}

// RecordRejected counts a request refused by validation. Kinds outside the
// known set are counted as UnknownKind.
func (m *Metrics) RecordRejected(block, kind string) {
	if m == nil {
		return
	}
	m.RecordsRejected.WithLabelValues(block, kindLabel(kind)).Inc()
}

// Decision counts an approve or decline attempt.
func (m *Metrics) Decision(block, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(block, outcome).Inc()
}

func kindLabel(kind string) string {
	if ledger.Kind(kind).Valid() {
		return kind
	}
	return UnknownKind
}

func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	}
	return OtherMethod
}
