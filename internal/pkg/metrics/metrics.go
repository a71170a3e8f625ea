// Package metrics exposes the order core's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SagaOutcomes counts terminal saga outcomes by saga and tag.
	SagaOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopcart",
		Subsystem: "order",
		Name:      "saga_outcomes_total",
		Help:      "Terminal saga outcomes by saga and outcome tag.",
	}, []string{"saga", "outcome"})

	// CompensationFailures counts compensating calls that themselves
	// failed, leaving an external reference dangling.
	CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shopcart",
		Subsystem: "order",
		Name:      "compensation_failures_total",
		Help:      "Compensating calls that failed and require operator attention.",
	})

	// GatewayCalls observes remote call latency by service and operation.
	GatewayCalls = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shopcart",
		Subsystem: "order",
		Name:      "gateway_call_seconds",
		Help:      "Latency of calls to the stock and logistics services.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "op", "result"})
)
