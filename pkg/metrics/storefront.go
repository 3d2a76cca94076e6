package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records order lifecycle, payment and HTTP metrics. A nil receiver
// is a no-op so callers never need to guard.
type Storefront struct {
	transitions     *prometheus.CounterVec
	settlements     *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	httpDuration    *prometheus.HistogramVec
}

// NewStorefront registers the storefront metrics on the provided registerer.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_transitions_total",
		Help: "Order status transitions by source and target status.",
	}, []string{"from", "to"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_settlements_total",
		Help: "Payment settlement attempts by method and result.",
	}, []string{"method", "result"})
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_gateway_request_duration_seconds",
		Help:    "Latency of payment processor calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route pattern and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(transitions, settlements, gatewayDuration, httpDuration)
	return &Storefront{
		transitions:     transitions,
		settlements:     settlements,
		gatewayDuration: gatewayDuration,
		httpDuration:    httpDuration,
	}
}

// OrderTransition counts a committed status change.
func (s *Storefront) OrderTransition(from, to string) {
	if s == nil || s.transitions == nil {
		return
	}
	s.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// Settlement counts a settlement attempt for the method ("gateway" or "cod").
func (s *Storefront) Settlement(method string, ok bool) {
	if s == nil || s.settlements == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	s.settlements.WithLabelValues(normalizeLabel(method), result).Inc()
}

// ObserveGateway records the latency of one processor operation.
func (s *Storefront) ObserveGateway(operation string, duration time.Duration) {
	if s == nil || s.gatewayDuration == nil {
		return
	}
	s.gatewayDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// ObserveHTTP records the latency of one served request. route is the
// matched pattern such as /api/v1/products/{id}, never the raw path, so
// label cardinality stays bounded.
func (s *Storefront) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if s == nil || s.httpDuration == nil {
		return
	}
	s.httpDuration.WithLabelValues(normalizeLabel(method), normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
