package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
	"github.com/jedimindtricks/model-operator/internal/metrics"
	"github.com/jedimindtricks/model-operator/internal/workload"
)

const (
	// degradedFailureThreshold is the number of consecutive reconcile
	// failures for one key after which the Degraded condition is raised.
	degradedFailureThreshold = 5

	// defaultRetryBaseDelay and defaultRetryMaxDelay bound the per-key
	// exponential backoff of the workqueue.
	defaultRetryBaseDelay = 5 * time.Second
	defaultRetryMaxDelay  = 5 * time.Minute
)

// Event reasons emitted on ModelDeployment objects.
const (
	reasonCreated         = "Created"
	reasonUpdated         = "Updated"
	reasonDeleted         = "Deleted"
	reasonInvalidSpec     = "InvalidSpec"
	reasonReconcileFailed = "ReconcileFailed"
)

// ModelDeploymentReconciler reconciles ModelDeployment resources against the
// Deployments, Services, Ingresses and HorizontalPodAutoscalers derived from
// them.
type ModelDeploymentReconciler struct {
	client.Client

	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Metrics  metrics.Collector

	// MaxConcurrentReconciles sizes the worker pool. Distinct keys reconcile
	// concurrently; the workqueue guarantees a single key is never in flight
	// twice.
	MaxConcurrentReconciles int

	// RequeueInterval triggers a periodic resync per object even without
	// watch events. Zero disables periodic resync.
	RequeueInterval time.Duration

	// RetryBaseDelay and RetryMaxDelay bound per-key retry backoff.
	// Zero values fall back to 5s/5m.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// failureCounts tracks consecutive reconcile failures per key.
	// Written only from reconcile passes of that key, so entries never race.
	failureCounts sync.Map
}

//nolint:noinlineerr // controller reconcile logic
func (r *ModelDeploymentReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)
	started := time.Now()

	var md mlv1alpha1.ModelDeployment

	if err := r.Get(ctx, req.NamespacedName, &md); err != nil {
		if apierrors.IsNotFound(err) {
			// Already deleted; nothing left to converge.
			r.failureCounts.Delete(req.NamespacedName)

			return ctrl.Result{}, nil
		}

		return ctrl.Result{}, errors.Wrap(err, "failed to get ModelDeployment")
	}

	if !md.DeletionTimestamp.IsZero() {
		result, err := r.handleDeletion(ctx, &md)
		r.observeOutcome(ctx, metrics.OutcomeTeardown, started, err)

		return result, err
	}

	// Teardown capability must exist before the first derived object does.
	if !controllerutil.ContainsFinalizer(&md, mlv1alpha1.Finalizer) {
		controllerutil.AddFinalizer(&md, mlv1alpha1.Finalizer)

		if err := r.Update(ctx, &md); err != nil {
			return ctrl.Result{}, errors.Wrap(err, "failed to add finalizer")
		}

		// The update event re-enqueues this key; children are created on
		// the next pass, after the finalizer is durably recorded.
		return ctrl.Result{}, nil
	}

	if problems := workload.Validate(&md); len(problems) > 0 {
		err := r.reportInvalidSpec(ctx, &md, problems)
		r.observeOutcome(ctx, metrics.OutcomeInvalid, started, err)

		// Terminal for this generation: no retry until the spec changes.
		return ctrl.Result{}, err
	}

	logger.Info("reconciling ModelDeployment",
		"name", md.Name,
		"namespace", md.Namespace,
		"generation", md.Generation,
	)

	if err := r.ensureChildren(ctx, &md); err != nil {
		r.recordFailure(ctx, &md, err)
		r.observeOutcome(ctx, metrics.OutcomeError, started, err)

		return ctrl.Result{}, err
	}

	if err := r.updateStatus(ctx, &md); err != nil {
		r.recordFailure(ctx, &md, err)
		r.observeOutcome(ctx, metrics.OutcomeError, started, err)

		return ctrl.Result{}, errors.Wrap(err, "failed to update status")
	}

	r.failureCounts.Delete(req.NamespacedName)
	r.observeOutcome(ctx, metrics.OutcomeSuccess, started, nil)

	return ctrl.Result{RequeueAfter: r.RequeueInterval}, nil
}

// handleDeletion deletes all derived objects, then releases the finalizer.
// Derived objects that are already gone are treated as achieved state.
//
//nolint:funcorder // deletion handler
func (r *ModelDeploymentReconciler) handleDeletion(
	ctx context.Context,
	md *mlv1alpha1.ModelDeployment,
) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	if !controllerutil.ContainsFinalizer(md, mlv1alpha1.Finalizer) {
		return ctrl.Result{}, nil
	}

	logger.Info("tearing down ModelDeployment", "name", md.Name, "namespace", md.Namespace)

	if err := r.deleteChildren(ctx, md); err != nil {
		return ctrl.Result{}, errors.Wrap(err, "failed to delete derived objects")
	}

	controllerutil.RemoveFinalizer(md, mlv1alpha1.Finalizer)

	if err := r.Update(ctx, md); err != nil {
		return ctrl.Result{}, errors.Wrap(err, "failed to remove finalizer")
	}

	r.failureCounts.Delete(types.NamespacedName{Namespace: md.Namespace, Name: md.Name})

	return ctrl.Result{}, nil
}

// reportInvalidSpec surfaces validation problems in status and events. The
// failure is terminal for the current generation, so the key is not requeued.
//
//nolint:funcorder // error reporting helper
func (r *ModelDeploymentReconciler) reportInvalidSpec(
	ctx context.Context,
	md *mlv1alpha1.ModelDeployment,
	problems []string,
) error {
	message := strings.Join(problems, "; ")

	log.FromContext(ctx).Info("ModelDeployment spec is invalid",
		"name", md.Name,
		"namespace", md.Namespace,
		"problems", message,
	)

	r.Recorder.Event(md, "Warning", reasonInvalidSpec, message)
	r.Metrics.RecordReconcileError(ctx, metrics.ErrorTypeInvalid)

	return r.writeDegradedStatus(ctx, md, reasonInvalidSpec, message)
}

// recordFailure classifies the error, bumps the consecutive failure counter
// and raises the Degraded condition once the threshold is crossed. Status
// writes here are best-effort: the original error drives the retry.
//
//nolint:funcorder // error reporting helper
func (r *ModelDeploymentReconciler) recordFailure(
	ctx context.Context,
	md *mlv1alpha1.ModelDeployment,
	reconcileErr error,
) {
	logger := log.FromContext(ctx)
	key := types.NamespacedName{Namespace: md.Namespace, Name: md.Name}

	errorType := metrics.ClassifyAPIError(reconcileErr)
	r.Metrics.RecordReconcileError(ctx, errorType)

	count := 1
	if previous, ok := r.failureCounts.Load(key); ok {
		if n, isInt := previous.(int); isInt {
			count = n + 1
		}
	}

	r.failureCounts.Store(key, count)

	logger.Error(reconcileErr, "reconcile failed",
		"name", md.Name,
		"namespace", md.Namespace,
		"errorType", errorType,
		"consecutiveFailures", count,
	)

	if metrics.IsTerminal(errorType) || count >= degradedFailureThreshold {
		r.Recorder.Event(md, "Warning", reasonReconcileFailed, reconcileErr.Error())

		if statusErr := r.writeDegradedStatus(ctx, md, reasonReconcileFailed, reconcileErr.Error()); statusErr != nil {
			logger.Error(statusErr, "failed to write degraded status")
		}
	}
}

//nolint:funcorder // metrics helper
func (r *ModelDeploymentReconciler) observeOutcome(
	ctx context.Context,
	outcome string,
	started time.Time,
	err error,
) {
	if err != nil {
		outcome = metrics.OutcomeError
	}

	r.Metrics.RecordReconcile(ctx, outcome, time.Since(started))
}

// SetupWithManager sets up the controller with the Manager. The workqueue
// uses per-key exponential backoff so transient API failures retry with
// increasing delays instead of hot-looping.
func (r *ModelDeploymentReconciler) SetupWithManager(mgr ctrl.Manager) error {
	baseDelay := r.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultRetryBaseDelay
	}

	maxDelay := r.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}

	workers := r.MaxConcurrentReconciles
	if workers <= 0 {
		workers = 1
	}

	//nolint:wrapcheck // controller-runtime builder pattern
	return ctrl.NewControllerManagedBy(mgr).
		For(&mlv1alpha1.ModelDeployment{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Owns(&networkingv1.Ingress{}).
		Owns(&autoscalingv2.HorizontalPodAutoscaler{}).
		Watches(
			&corev1.ConfigMap{},
			handler.EnqueueRequestsFromMapFunc(r.configMapToModelDeployments),
		).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: workers,
			RateLimiter: workqueue.NewTypedItemExponentialFailureRateLimiter[reconcile.Request](
				baseDelay, maxDelay,
			),
		}).
		Complete(r)
}
