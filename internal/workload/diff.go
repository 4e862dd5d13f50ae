package workload

import (
	"github.com/google/go-cmp/cmp"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/equality"
)

// DeploymentNeedsUpdate reports whether the observed Deployment diverges from
// the desired one on a managed field. A nil desired replica pointer means the
// count is externally owned (autoscaler) and is not compared.
func DeploymentNeedsUpdate(desired, observed *appsv1.Deployment) bool {
	if desired.Spec.Replicas != nil &&
		!equality.Semantic.DeepEqual(desired.Spec.Replicas, observed.Spec.Replicas) {
		return true
	}

	if !equality.Semantic.DeepEqual(desired.Spec.Selector, observed.Spec.Selector) {
		return true
	}

	if !strategyEqual(&desired.Spec.Strategy, &observed.Spec.Strategy) {
		return true
	}

	if !equality.Semantic.DeepEqual(desired.Spec.Template.Labels, observed.Spec.Template.Labels) {
		return true
	}

	return !containersEqual(desired.Spec.Template.Spec.Containers, observed.Spec.Template.Spec.Containers)
}

// containersEqual compares only the container fields this controller sets, so
// that server-side defaulting (imagePullPolicy, termination message settings,
// probe timings) never registers as divergence.
func containersEqual(desired, observed []corev1.Container) bool {
	if len(desired) != len(observed) {
		return false
	}

	for i := range desired {
		want, got := &desired[i], &observed[i]

		if want.Name != got.Name || want.Image != got.Image {
			return false
		}

		if !equality.Semantic.DeepEqual(want.Ports, got.Ports) {
			return false
		}

		if !equality.Semantic.DeepEqual(want.EnvFrom, got.EnvFrom) {
			return false
		}

		if !equality.Semantic.DeepEqual(want.Resources, got.Resources) {
			return false
		}

		if !probesEqual(want.LivenessProbe, got.LivenessProbe) {
			return false
		}

		if !probesEqual(want.ReadinessProbe, got.ReadinessProbe) {
			return false
		}
	}

	return true
}

func probesEqual(desired, observed *corev1.Probe) bool {
	if desired == nil || observed == nil {
		return desired == observed
	}

	want, got := desired.HTTPGet, observed.HTTPGet
	if want == nil || got == nil {
		return want == got
	}
	// Only the HTTP target is managed; scheme, thresholds and timings are
	// defaulted server-side.
	return want.Path == got.Path && want.Port == got.Port
}

// strategyEqual compares the rollout strategy, skipping rolling-update bounds
// the desired spec leaves unset so server-side defaulting (25%/25%) never
// registers as divergence.
func strategyEqual(desired, observed *appsv1.DeploymentStrategy) bool {
	if desired.Type != observed.Type {
		return false
	}

	if desired.RollingUpdate == nil {
		return true
	}

	observedRolling := observed.RollingUpdate
	if observedRolling == nil {
		observedRolling = &appsv1.RollingUpdateDeployment{}
	}

	if desired.RollingUpdate.MaxUnavailable != nil &&
		!equality.Semantic.DeepEqual(desired.RollingUpdate.MaxUnavailable, observedRolling.MaxUnavailable) {
		return false
	}

	if desired.RollingUpdate.MaxSurge != nil &&
		!equality.Semantic.DeepEqual(desired.RollingUpdate.MaxSurge, observedRolling.MaxSurge) {
		return false
	}

	return true
}

// CopyDeploymentFields copies the managed fields of desired onto observed,
// leaving everything else (annotations from other actors, injected sidecar
// mutations on metadata) untouched.
func CopyDeploymentFields(desired, observed *appsv1.Deployment) {
	if desired.Spec.Replicas != nil {
		observed.Spec.Replicas = desired.Spec.Replicas
	}

	observed.Spec.Selector = desired.Spec.Selector
	copyStrategy(&desired.Spec.Strategy, &observed.Spec.Strategy)
	observed.Spec.Template = desired.Spec.Template
	observed.Labels = mergeLabels(observed.Labels, desired.Labels)
}

// copyStrategy writes the managed strategy fields onto observed, keeping
// server-defaulted rolling-update bounds the desired spec leaves unset.
func copyStrategy(desired, observed *appsv1.DeploymentStrategy) {
	observed.Type = desired.Type

	if desired.RollingUpdate == nil {
		observed.RollingUpdate = nil

		return
	}

	if observed.RollingUpdate == nil {
		observed.RollingUpdate = &appsv1.RollingUpdateDeployment{}
	}

	if desired.RollingUpdate.MaxUnavailable != nil {
		observed.RollingUpdate.MaxUnavailable = desired.RollingUpdate.MaxUnavailable
	}

	if desired.RollingUpdate.MaxSurge != nil {
		observed.RollingUpdate.MaxSurge = desired.RollingUpdate.MaxSurge
	}
}

// ServiceNeedsUpdate reports whether the observed Service diverges from the
// desired one on a managed field. ClusterIP and node ports are never compared.
func ServiceNeedsUpdate(desired, observed *corev1.Service) bool {
	if !equality.Semantic.DeepEqual(desired.Spec.Selector, observed.Spec.Selector) {
		return true
	}

	return !portsEqual(desired.Spec.Ports, observed.Spec.Ports)
}

func portsEqual(desired, observed []corev1.ServicePort) bool {
	if len(desired) != len(observed) {
		return false
	}

	for i := range desired {
		want, got := &desired[i], &observed[i]
		if want.Name != got.Name || want.Port != got.Port ||
			want.TargetPort != got.TargetPort || want.Protocol != got.Protocol {
			return false
		}
	}

	return true
}

// CopyServiceFields copies the managed fields of desired onto observed,
// preserving clusterIP and other server-assigned fields.
func CopyServiceFields(desired, observed *corev1.Service) {
	observed.Spec.Selector = desired.Spec.Selector
	observed.Spec.Ports = desired.Spec.Ports
	observed.Labels = mergeLabels(observed.Labels, desired.Labels)
}

// IngressNeedsUpdate reports whether the observed Ingress diverges from the
// desired one on a managed field.
func IngressNeedsUpdate(desired, observed *networkingv1.Ingress) bool {
	if observed.Annotations[MirrorTargetAnnotation] != desired.Annotations[MirrorTargetAnnotation] {
		return true
	}

	return !equality.Semantic.DeepEqual(desired.Spec.Rules, observed.Spec.Rules)
}

// CopyIngressFields copies the managed fields of desired onto observed.
func CopyIngressFields(desired, observed *networkingv1.Ingress) {
	if observed.Annotations == nil {
		observed.Annotations = map[string]string{}
	}

	observed.Annotations[MirrorTargetAnnotation] = desired.Annotations[MirrorTargetAnnotation]
	observed.Spec.Rules = desired.Spec.Rules
	observed.Labels = mergeLabels(observed.Labels, desired.Labels)
}

// AutoscalerNeedsUpdate reports whether the observed autoscaler diverges from
// the desired one. Behavior is server-defaulted and not compared.
func AutoscalerNeedsUpdate(desired, observed *autoscalingv2.HorizontalPodAutoscaler) bool {
	if !equality.Semantic.DeepEqual(desired.Spec.ScaleTargetRef, observed.Spec.ScaleTargetRef) {
		return true
	}

	if !equality.Semantic.DeepEqual(desired.Spec.MinReplicas, observed.Spec.MinReplicas) {
		return true
	}

	if desired.Spec.MaxReplicas != observed.Spec.MaxReplicas {
		return true
	}

	return !equality.Semantic.DeepEqual(desired.Spec.Metrics, observed.Spec.Metrics)
}

// CopyAutoscalerFields copies the managed fields of desired onto observed.
func CopyAutoscalerFields(desired, observed *autoscalingv2.HorizontalPodAutoscaler) {
	observed.Spec.ScaleTargetRef = desired.Spec.ScaleTargetRef
	observed.Spec.MinReplicas = desired.Spec.MinReplicas
	observed.Spec.MaxReplicas = desired.Spec.MaxReplicas
	observed.Spec.Metrics = desired.Spec.Metrics
	observed.Labels = mergeLabels(observed.Labels, desired.Labels)
}

// Diff renders a human-readable diff of two objects for debug logging.
func Diff(desired, observed any) string {
	return cmp.Diff(observed, desired)
}

func mergeLabels(existing, managed map[string]string) map[string]string {
	if existing == nil {
		existing = map[string]string{}
	}

	for key, value := range managed {
		existing[key] = value
	}

	return existing
}
