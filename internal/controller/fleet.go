package controller

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
	"github.com/jedimindtricks/model-operator/internal/logging"
	"github.com/jedimindtricks/model-operator/internal/metrics"
)

// defaultFleetInterval is how often the per-phase gauge is refreshed.
const defaultFleetInterval = 30 * time.Second

// fleetPhases are the phases always present on the gauge, so counts that drop
// to zero are reported as zero instead of going stale.
//
//nolint:gochecknoglobals // static label set
var fleetPhases = []string{
	mlv1alpha1.PhasePending,
	mlv1alpha1.PhaseProgressing,
	mlv1alpha1.PhaseAvailable,
	mlv1alpha1.PhaseDegraded,
	mlv1alpha1.PhaseTerminating,
}

// FleetObserver periodically counts ModelDeployments by phase and exports the
// counts as a gauge. It runs as a manager runnable so it only executes on the
// elected leader.
type FleetObserver struct {
	Client   client.Reader
	Metrics  metrics.Collector
	Interval time.Duration
}

// Start runs the observer loop until the context is cancelled.
func (o *FleetObserver) Start(ctx context.Context) error {
	interval := o.Interval
	if interval <= 0 {
		interval = defaultFleetInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.observe(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.observe(ctx)
		}
	}
}

func (o *FleetObserver) observe(ctx context.Context) {
	var list mlv1alpha1.ModelDeploymentList

	if err := o.Client.List(ctx, &list); err != nil {
		logging.FromContext(ctx).Error("failed to list ModelDeployments for fleet metrics",
			"error", err)

		return
	}

	counts := make(map[string]int, len(fleetPhases))

	for i := range list.Items {
		md := &list.Items[i]

		phase := md.Status.Phase
		if !md.DeletionTimestamp.IsZero() {
			phase = mlv1alpha1.PhaseTerminating
		}

		if phase == "" {
			phase = mlv1alpha1.PhasePending
		}

		counts[phase]++
	}

	for _, phase := range fleetPhases {
		o.Metrics.RecordManagedDeployments(ctx, phase, counts[phase])
	}
}
