package controller

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
	"github.com/jedimindtricks/model-operator/internal/metrics"
	"github.com/jedimindtricks/model-operator/internal/workload"
)

// Derived object kind labels used in metrics and events.
const (
	kindDeployment = "Deployment"
	kindService    = "Service"
	kindIngress    = "Ingress"
	kindAutoscaler = "HorizontalPodAutoscaler"
)

// ensureChildren converges every derived object kind toward the desired
// state computed from the spec. Kinds that are no longer desired (shadow
// removed, mirroring disabled, autoscaling disabled) are deleted.
func (r *ModelDeploymentReconciler) ensureChildren(ctx context.Context, md *mlv1alpha1.ModelDeployment) error {
	if err := r.ensureVariant(ctx, md, workload.RoleLive); err != nil {
		return err
	}

	if md.Spec.Shadow != nil {
		if err := r.ensureVariant(ctx, md, workload.RoleShadow); err != nil {
			return err
		}
	} else {
		if err := r.deleteVariant(ctx, md, workload.RoleShadow); err != nil {
			return err
		}
	}

	if err := r.ensureIngress(ctx, md); err != nil {
		return err
	}

	return r.ensureAutoscaler(ctx, md)
}

// ensureVariant converges the Deployment and Service of one variant.
func (r *ModelDeploymentReconciler) ensureVariant(
	ctx context.Context,
	md *mlv1alpha1.ModelDeployment,
	role workload.Role,
) error {
	desired, err := workload.BuildDeployment(md, role)
	if err != nil {
		return errors.Wrapf(err, "failed to build %s deployment", role)
	}

	err = ensureChild(ctx, r, md, desired, &appsv1.Deployment{}, kindDeployment,
		workload.DeploymentNeedsUpdate, workload.CopyDeploymentFields)
	if err != nil {
		return err
	}

	return ensureChild(ctx, r, md, workload.BuildService(md, role), &corev1.Service{}, kindService,
		workload.ServiceNeedsUpdate, workload.CopyServiceFields)
}

// deleteVariant removes the Deployment and Service of a variant that is no
// longer declared.
func (r *ModelDeploymentReconciler) deleteVariant(
	ctx context.Context,
	md *mlv1alpha1.ModelDeployment,
	role workload.Role,
) error {
	deployment := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{
		Name:      workload.DeploymentName(md, role),
		Namespace: md.Namespace,
	}}
	if err := deleteChild(ctx, r, md, deployment, kindDeployment); err != nil {
		return err
	}

	service := &corev1.Service{ObjectMeta: metav1.ObjectMeta{
		Name:      workload.ServiceName(md, role),
		Namespace: md.Namespace,
	}}

	return deleteChild(ctx, r, md, service, kindService)
}

func (r *ModelDeploymentReconciler) ensureIngress(ctx context.Context, md *mlv1alpha1.ModelDeployment) error {
	if md.Spec.TrafficMirror && md.Spec.Shadow != nil {
		return ensureChild(ctx, r, md, workload.BuildIngress(md), &networkingv1.Ingress{}, kindIngress,
			workload.IngressNeedsUpdate, workload.CopyIngressFields)
	}

	ingress := &networkingv1.Ingress{ObjectMeta: metav1.ObjectMeta{
		Name:      workload.IngressName(md),
		Namespace: md.Namespace,
	}}

	return deleteChild(ctx, r, md, ingress, kindIngress)
}

func (r *ModelDeploymentReconciler) ensureAutoscaler(ctx context.Context, md *mlv1alpha1.ModelDeployment) error {
	if md.Spec.IsAutoscalingEnabled() {
		return ensureChild(ctx, r, md, workload.BuildAutoscaler(md),
			&autoscalingv2.HorizontalPodAutoscaler{}, kindAutoscaler,
			workload.AutoscalerNeedsUpdate, workload.CopyAutoscalerFields)
	}

	hpa := &autoscalingv2.HorizontalPodAutoscaler{ObjectMeta: metav1.ObjectMeta{
		Name:      workload.AutoscalerName(md),
		Namespace: md.Namespace,
	}}

	return deleteChild(ctx, r, md, hpa, kindAutoscaler)
}

// deleteChildren removes every derived object during teardown. Objects that
// are already gone are achieved state, not errors.
func (r *ModelDeploymentReconciler) deleteChildren(ctx context.Context, md *mlv1alpha1.ModelDeployment) error {
	if err := r.deleteVariant(ctx, md, workload.RoleLive); err != nil {
		return err
	}

	if err := r.deleteVariant(ctx, md, workload.RoleShadow); err != nil {
		return err
	}

	ingress := &networkingv1.Ingress{ObjectMeta: metav1.ObjectMeta{
		Name:      workload.IngressName(md),
		Namespace: md.Namespace,
	}}
	if err := deleteChild(ctx, r, md, ingress, kindIngress); err != nil {
		return err
	}

	hpa := &autoscalingv2.HorizontalPodAutoscaler{ObjectMeta: metav1.ObjectMeta{
		Name:      workload.AutoscalerName(md),
		Namespace: md.Namespace,
	}}

	return deleteChild(ctx, r, md, hpa, kindAutoscaler)
}

// ensureChild converges one derived object: create when absent, update when a
// managed field diverged, no write when convergent. Updates re-read the live
// object and retry on conflict, so a racing writer never surfaces as a
// user-visible failure.
func ensureChild[T client.Object](
	ctx context.Context,
	r *ModelDeploymentReconciler,
	md *mlv1alpha1.ModelDeployment,
	desired T,
	observed T,
	kind string,
	needsUpdate func(desired, observed T) bool,
	copyFields func(desired, observed T),
) error {
	logger := log.FromContext(ctx)

	if err := controllerutil.SetControllerReference(md, desired, r.Scheme); err != nil {
		return errors.Wrapf(err, "failed to set owner reference on %s %s", kind, desired.GetName())
	}

	key := types.NamespacedName{Namespace: desired.GetNamespace(), Name: desired.GetName()}

	err := r.Get(ctx, key, observed)
	if apierrors.IsNotFound(err) {
		if createErr := r.Create(ctx, desired); createErr != nil {
			return errors.Wrapf(createErr, "failed to create %s %s", kind, desired.GetName())
		}

		logger.Info("created derived object", "kind", kind, "name", desired.GetName())
		r.Metrics.RecordChildOperation(ctx, kind, metrics.OpCreate)
		r.Recorder.Event(md, corev1.EventTypeNormal, reasonCreated,
			fmt.Sprintf("Created %s %s", kind, desired.GetName()))

		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "failed to get %s %s", kind, desired.GetName())
	}

	// An existing object at the managed name without our controller reference
	// is an orphan (parent deleted and re-created); adopt it so cascading
	// deletion covers it again.
	needsAdoption := !metav1.IsControlledBy(observed, md)

	if !needsUpdate(desired, observed) && !needsAdoption {
		return nil
	}

	logger.V(1).Info("derived object diverged",
		"kind", kind,
		"name", desired.GetName(),
		"adopt", needsAdoption,
		"diff", workload.Diff(desired, observed),
	)

	updateErr := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		if getErr := r.Get(ctx, key, observed); getErr != nil {
			return getErr
		}

		copyFields(desired, observed)

		if refErr := controllerutil.SetControllerReference(md, observed, r.Scheme); refErr != nil {
			return refErr
		}

		return r.Update(ctx, observed)
	})
	if updateErr != nil {
		return errors.Wrapf(updateErr, "failed to update %s %s", kind, desired.GetName())
	}

	logger.Info("updated derived object", "kind", kind, "name", desired.GetName())
	r.Metrics.RecordChildOperation(ctx, kind, metrics.OpUpdate)
	r.Recorder.Event(md, corev1.EventTypeNormal, reasonUpdated,
		fmt.Sprintf("Updated %s %s", kind, desired.GetName()))

	return nil
}

// deleteChild removes one derived object, treating NotFound as success.
func deleteChild[T client.Object](
	ctx context.Context,
	r *ModelDeploymentReconciler,
	md *mlv1alpha1.ModelDeployment,
	obj T,
	kind string,
) error {
	key := types.NamespacedName{Namespace: obj.GetNamespace(), Name: obj.GetName()}

	err := r.Get(ctx, key, obj)
	if apierrors.IsNotFound(err) {
		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "failed to get %s %s", kind, obj.GetName())
	}

	if deleteErr := r.Delete(ctx, obj); deleteErr != nil && !apierrors.IsNotFound(deleteErr) {
		return errors.Wrapf(deleteErr, "failed to delete %s %s", kind, obj.GetName())
	}

	log.FromContext(ctx).Info("deleted derived object", "kind", kind, "name", obj.GetName())
	r.Metrics.RecordChildOperation(ctx, kind, metrics.OpDelete)
	r.Recorder.Event(md, corev1.EventTypeNormal, reasonDeleted,
		fmt.Sprintf("Deleted %s %s", kind, obj.GetName()))

	return nil
}
