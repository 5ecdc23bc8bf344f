package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics tracks supplier dispatch outcomes and stuck orders.
type FulfillmentMetrics struct {
	dispatches  *prometheus.CounterVec
	stuckOrders prometheus.Gauge
}

// NewFulfillmentMetrics registers fulfillment metrics on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_dispatch_total",
		Help: "Supplier dispatch attempts by service type and outcome.",
	}, []string{"service_type", "outcome"})
	stuckOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fulfillment_stuck_orders",
		Help: "Orders observed in a non-terminal state past the stuck threshold.",
	})
	reg.MustRegister(dispatches, stuckOrders)
	return &FulfillmentMetrics{
		dispatches:  dispatches,
		stuckOrders: stuckOrders,
	}
}

// IncDispatch records one supplier dispatch attempt.
func (f *FulfillmentMetrics) IncDispatch(serviceType, outcome string) {
	if f == nil || f.dispatches == nil {
		return
	}
	f.dispatches.WithLabelValues(normalizeLabel(serviceType), normalizeLabel(outcome)).Inc()
}

// SetStuckOrders records the current stuck-order count.
func (f *FulfillmentMetrics) SetStuckOrders(count int64) {
	if f == nil || f.stuckOrders == nil {
		return
	}
	f.stuckOrders.Set(float64(count))
}
