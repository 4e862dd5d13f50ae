package controller

import (
	"context"

	"github.com/cockroachdb/errors"
	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	apimeta "k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
	"github.com/jedimindtricks/model-operator/internal/workload"
)

// Condition reasons written by the status reporter.
const (
	reasonReplicasReady   = "MinimumReplicasAvailable"
	reasonReplicasPending = "MinimumReplicasUnavailable"
	reasonRollingOut      = "RollingOut"
	reasonConverged       = "Converged"
	reasonAsExpected      = "AsExpected"
)

// updateStatus aggregates child readiness into the parent's status and writes
// it through the status subresource. The write is skipped entirely when the
// computed status equals the cached one, so a converged object produces zero
// mutating calls and status writes cannot re-trigger reconciliation forever.
func (r *ModelDeploymentReconciler) updateStatus(ctx context.Context, md *mlv1alpha1.ModelDeployment) error {
	computed := r.computeStatus(ctx, md)

	if equality.Semantic.DeepEqual(md.Status, computed) {
		return nil
	}

	return r.writeStatus(ctx, md, computed)
}

// computeStatus derives the full status from cached child state. Status is
// output only: nothing read here feeds back into desired-state computation.
func (r *ModelDeploymentReconciler) computeStatus(
	ctx context.Context,
	md *mlv1alpha1.ModelDeployment,
) mlv1alpha1.ModelDeploymentStatus {
	status := mlv1alpha1.ModelDeploymentStatus{
		ObservedGeneration: md.Generation,
		Conditions:         cloneConditions(md.Status.Conditions),
	}

	liveChild, liveFound := r.childStatus(ctx, md, workload.RoleLive)
	status.LiveStatus = liveChild

	if md.Spec.Shadow != nil {
		shadowChild, _ := r.childStatus(ctx, md, workload.RoleShadow)
		status.ShadowStatus = shadowChild
	}

	desiredLive := md.Spec.Live.GetReplicas()
	if md.Spec.IsAutoscalingEnabled() {
		// The autoscaler owns the count; whatever it currently requests is
		// the convergence target, floored at the configured minimum.
		desiredLive = md.Spec.Autoscaling.GetMinReplicas()
		if liveFound && liveChild.Replicas > desiredLive {
			desiredLive = liveChild.Replicas
		}
	}

	available := liveFound && liveChild.ReadyReplicas >= desiredLive
	progressing := !liveFound || liveChild.UpdatedReplicas < desiredLive || liveChild.ReadyReplicas < desiredLive

	setCondition(&status.Conditions, md.Generation, mlv1alpha1.ConditionAvailable,
		available, reasonReplicasReady, reasonReplicasPending,
		"all desired replicas are ready", "waiting for replicas to become ready")

	setCondition(&status.Conditions, md.Generation, mlv1alpha1.ConditionProgressing,
		progressing, reasonRollingOut, reasonConverged,
		"rollout in progress", "observed state matches desired state")

	// Degraded is cleared here; the failure paths set it explicitly.
	setCondition(&status.Conditions, md.Generation, mlv1alpha1.ConditionDegraded,
		false, "", reasonAsExpected, "", "")

	switch {
	case available:
		status.Phase = mlv1alpha1.PhaseAvailable
	case liveFound:
		status.Phase = mlv1alpha1.PhaseProgressing
	default:
		status.Phase = mlv1alpha1.PhasePending
	}

	return status
}

// childStatus mirrors the replica counters of one variant's Deployment out
// of the cache.
func (r *ModelDeploymentReconciler) childStatus(
	ctx context.Context,
	md *mlv1alpha1.ModelDeployment,
	role workload.Role,
) (*mlv1alpha1.ChildStatus, bool) {
	var deployment appsv1.Deployment

	key := types.NamespacedName{
		Namespace: md.Namespace,
		Name:      workload.DeploymentName(md, role),
	}

	if err := r.Get(ctx, key, &deployment); err != nil {
		// NotFound means not created yet; anything else is reported by the
		// next reconcile error path, not by status aggregation.
		return nil, false
	}

	return &mlv1alpha1.ChildStatus{
		Replicas:          deployment.Status.Replicas,
		UpdatedReplicas:   deployment.Status.UpdatedReplicas,
		ReadyReplicas:     deployment.Status.ReadyReplicas,
		AvailableReplicas: deployment.Status.AvailableReplicas,
	}, true
}

// writeDegradedStatus marks the object Degraded with the given reason while
// keeping the rest of the status intact.
func (r *ModelDeploymentReconciler) writeDegradedStatus(
	ctx context.Context,
	md *mlv1alpha1.ModelDeployment,
	reason, message string,
) error {
	computed := md.Status
	computed.Conditions = cloneConditions(md.Status.Conditions)
	computed.Phase = mlv1alpha1.PhaseDegraded
	computed.ObservedGeneration = md.Generation

	apimeta.SetStatusCondition(&computed.Conditions, metav1.Condition{
		Type:               mlv1alpha1.ConditionDegraded,
		Status:             metav1.ConditionTrue,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: md.Generation,
	})

	if equality.Semantic.DeepEqual(md.Status, computed) {
		return nil
	}

	return r.writeStatus(ctx, md, computed)
}

// writeStatus updates the status subresource, re-reading the object and
// retrying when the write hits a stale resource version.
func (r *ModelDeploymentReconciler) writeStatus(
	ctx context.Context,
	md *mlv1alpha1.ModelDeployment,
	computed mlv1alpha1.ModelDeploymentStatus,
) error {
	key := types.NamespacedName{Namespace: md.Namespace, Name: md.Name}

	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		var latest mlv1alpha1.ModelDeployment

		if getErr := r.Get(ctx, key, &latest); getErr != nil {
			return getErr
		}

		latest.Status = computed

		return r.Status().Update(ctx, &latest)
	})
	if apierrors.IsNotFound(err) {
		// Deleted between reconcile and status write.
		return nil
	}

	if err != nil {
		return errors.Wrap(err, "failed to update ModelDeployment status")
	}

	md.Status = computed

	return nil
}

// setCondition applies a boolean condition with per-polarity reasons and
// messages. LastTransitionTime only moves when the status value flips, which
// keeps repeated aggregation idempotent.
func setCondition(
	conditions *[]metav1.Condition,
	generation int64,
	conditionType string,
	value bool,
	trueReason, falseReason string,
	trueMessage, falseMessage string,
) {
	status := metav1.ConditionFalse
	reason := falseReason
	message := falseMessage

	if value {
		status = metav1.ConditionTrue
		reason = trueReason
		message = trueMessage
	}

	apimeta.SetStatusCondition(conditions, metav1.Condition{
		Type:               conditionType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: generation,
	})
}

func cloneConditions(conditions []metav1.Condition) []metav1.Condition {
	if conditions == nil {
		return nil
	}

	cloned := make([]metav1.Condition, len(conditions))
	copy(cloned, conditions)

	return cloned
}
