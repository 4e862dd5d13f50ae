package controller

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
	"github.com/jedimindtricks/model-operator/internal/logging"
)

// configMapToModelDeployments maps a ConfigMap event to reconcile requests
// for every ModelDeployment in the same namespace whose spec.configRef names
// that ConfigMap. Config changes then roll out without touching the parents.
func (r *ModelDeploymentReconciler) configMapToModelDeployments(
	ctx context.Context,
	obj client.Object,
) []reconcile.Request {
	configMap, ok := obj.(*corev1.ConfigMap)
	if !ok {
		return nil
	}

	var list mlv1alpha1.ModelDeploymentList

	if err := r.List(ctx, &list, client.InNamespace(configMap.Namespace)); err != nil {
		logging.FromContext(ctx).Error("failed to list ModelDeployments for ConfigMap event",
			"configmap", configMap.Namespace+"/"+configMap.Name,
			"error", err)

		return nil
	}

	var requests []reconcile.Request

	for i := range list.Items {
		md := &list.Items[i]
		if md.Spec.ConfigRef != configMap.Name {
			continue
		}

		requests = append(requests, reconcile.Request{
			NamespacedName: types.NamespacedName{
				Namespace: md.Namespace,
				Name:      md.Name,
			},
		})
	}

	return requests
}
