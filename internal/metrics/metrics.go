// Package metrics provides Prometheus metrics instrumentation for the operator.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector provides metrics recording interface.
// This allows components to record metrics without direct prometheus dependency.
type Collector interface {
	// Reconcile metrics
	RecordReconcile(ctx context.Context, outcome string, duration time.Duration)
	RecordReconcileError(ctx context.Context, errorType string)

	// Derived object metrics
	RecordChildOperation(ctx context.Context, kind, operation string)

	// Fleet metrics
	RecordManagedDeployments(ctx context.Context, phase string, count int)
}

// Reconcile outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeInvalid  = "invalid"
	OutcomeTeardown = "teardown"
)

// Child operation labels.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// prometheusCollector implements Collector using Prometheus metrics.
type prometheusCollector struct {
	reconcileDuration    *prometheus.HistogramVec
	reconcilesTotal      *prometheus.CounterVec
	reconcileErrorsTotal *prometheus.CounterVec
	childOpsTotal        *prometheus.CounterVec
	managedDeployments   *prometheus.GaugeVec
}

// NewCollector creates a new Prometheus metrics collector and registers metrics.
func NewCollector(reg prometheus.Registerer) Collector {
	c := &prometheusCollector{}
	c.initReconcileMetrics()
	c.initChildMetrics()
	c.register(reg)

	return c
}

// RecordReconcile records the duration and outcome of one reconcile pass.
func (c *prometheusCollector) RecordReconcile(_ context.Context, outcome string, duration time.Duration) {
	c.reconcileDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	c.reconcilesTotal.WithLabelValues(outcome).Inc()
}

// RecordReconcileError records a reconcile error by classified type.
func (c *prometheusCollector) RecordReconcileError(_ context.Context, errorType string) {
	c.reconcileErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordChildOperation records a mutating call against a derived object kind.
func (c *prometheusCollector) RecordChildOperation(_ context.Context, kind, operation string) {
	c.childOpsTotal.WithLabelValues(kind, operation).Inc()
}

// RecordManagedDeployments records the number of ModelDeployments per phase.
func (c *prometheusCollector) RecordManagedDeployments(_ context.Context, phase string, count int) {
	c.managedDeployments.WithLabelValues(phase).Set(float64(count))
}

func (c *prometheusCollector) initReconcileMetrics() {
	c.reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelop_reconcile_duration_seconds",
			Help:    "Duration of ModelDeployment reconcile passes",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)
	c.reconcilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelop_reconciles_total",
			Help: "Total reconcile passes by outcome",
		},
		[]string{"outcome"},
	)
	c.reconcileErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelop_reconcile_errors_total",
			Help: "Total reconcile errors by type",
		},
		[]string{"error_type"},
	)
}

func (c *prometheusCollector) initChildMetrics() {
	c.childOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelop_child_operations_total",
			Help: "Mutating calls issued against derived objects",
		},
		[]string{"kind", "operation"},
	)
	c.managedDeployments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "modelop_managed_deployments",
			Help: "Number of ModelDeployments by phase",
		},
		[]string{"phase"},
	)
}

func (c *prometheusCollector) register(reg prometheus.Registerer) {
	reg.MustRegister(
		c.reconcileDuration,
		c.reconcilesTotal,
		c.reconcileErrorsTotal,
		c.childOpsTotal,
		c.managedDeployments,
	)
}

// NoopCollector is a Collector that discards all recordings. Used in tests
// and as a default when no registry is wired.
type NoopCollector struct{}

// NewNoopCollector creates a new no-op collector.
func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (*NoopCollector) RecordReconcile(_ context.Context, _ string, _ time.Duration) {}

func (*NoopCollector) RecordReconcileError(_ context.Context, _ string) {}

func (*NoopCollector) RecordChildOperation(_ context.Context, _, _ string) {}

func (*NoopCollector) RecordManagedDeployments(_ context.Context, _ string, _ int) {}
