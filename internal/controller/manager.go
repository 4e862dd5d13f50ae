package controller

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
	"sigs.k8s.io/controller-runtime/pkg/metrics/server"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
	"github.com/jedimindtricks/model-operator/internal/metrics"
)

// operatorName identifies this operator in events and the leader lease.
const operatorName = "model-operator"

// Config holds all configuration options for the controller manager.
// Values are typically populated from CLI flags or environment variables.
type Config struct {
	// MetricsAddr is the address for the Prometheus metrics endpoint.
	MetricsAddr string

	// HealthAddr is the address for health and readiness probe endpoints.
	HealthAddr string

	// LeaderElect enables leader election for high availability.
	// Required when running multiple replicas.
	LeaderElect bool

	// LeaderElectNS is the namespace for the leader election lease.
	LeaderElectNS string

	// LeaderElectName is the name of the leader election lease.
	LeaderElectName string

	// MaxConcurrentReconciles sizes the reconcile worker pool.
	MaxConcurrentReconciles int

	// RequeueInterval is the per-object periodic resync interval.
	RequeueInterval time.Duration

	// RetryBaseDelay and RetryMaxDelay bound per-key retry backoff.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Run initializes and starts the controller manager with the provided
// configuration. It registers the ModelDeployment scheme, wires the
// reconciler with metrics and event recording, and blocks until the context
// is cancelled or an error occurs.
//
//nolint:noinlineerr // controller setup requires multiple steps
func Run(ctx context.Context, cfg *Config) error {
	logger := log.FromContext(ctx).WithName("manager")
	logger.Info("initializing controller manager")

	mgrOptions := ctrl.Options{
		Metrics: server.Options{
			BindAddress: cfg.MetricsAddr,
		},
		HealthProbeBindAddress: cfg.HealthAddr,
	}

	if cfg.LeaderElect {
		mgrOptions.LeaderElection = true
		mgrOptions.LeaderElectionID = cfg.LeaderElectName
		mgrOptions.LeaderElectionNamespace = cfg.LeaderElectNS
		// Release the lease on clean shutdown so the standby takes over
		// without waiting out the lease duration.
		mgrOptions.LeaderElectionReleaseOnCancel = true

		logger.Info("leader election enabled",
			"id", cfg.LeaderElectName,
			"namespace", cfg.LeaderElectNS,
		)
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), mgrOptions)
	if err != nil {
		return errors.Wrap(err, "failed to create manager")
	}

	if err := clientgoscheme.AddToScheme(mgr.GetScheme()); err != nil {
		return errors.Wrap(err, "failed to add client-go scheme")
	}

	if err := mlv1alpha1.AddToScheme(mgr.GetScheme()); err != nil {
		return errors.Wrap(err, "failed to add ModelDeployment scheme")
	}

	collector := metrics.NewCollector(ctrlmetrics.Registry)

	reconciler := &ModelDeploymentReconciler{
		Client:                  mgr.GetClient(),
		Scheme:                  mgr.GetScheme(),
		Recorder:                mgr.GetEventRecorderFor(operatorName),
		Metrics:                 collector,
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
		RequeueInterval:         cfg.RequeueInterval,
		RetryBaseDelay:          cfg.RetryBaseDelay,
		RetryMaxDelay:           cfg.RetryMaxDelay,
	}

	if err := reconciler.SetupWithManager(mgr); err != nil {
		return errors.Wrap(err, "failed to setup modeldeployment controller")
	}

	if err := mgr.Add(&FleetObserver{Client: mgr.GetClient(), Metrics: collector}); err != nil {
		return errors.Wrap(err, "failed to add fleet observer")
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return errors.Wrap(err, "failed to set up health check")
	}

	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return errors.Wrap(err, "failed to set up ready check")
	}

	logger.Info("starting manager")

	if err := mgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start manager")
	}

	return nil
}
