package workload

import (
	"github.com/cockroachdb/errors"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
)

// BuildDeployment computes the desired Deployment for one variant.
// It fails only on malformed resource quantities, which validation reports
// before any build is attempted.
func BuildDeployment(md *mlv1alpha1.ModelDeployment, role Role) (*appsv1.Deployment, error) {
	variant := Variant(md, role)
	if variant == nil {
		return nil, errors.Newf("variant %q is not configured", role)
	}

	resources, err := buildResourceRequirements(md.Spec.Resources)
	if err != nil {
		return nil, err
	}

	port := md.Spec.GetPort()

	container := corev1.Container{
		Name:  containerName,
		Image: variant.Image,
		Ports: []corev1.ContainerPort{
			{
				Name:          "http",
				ContainerPort: port,
				Protocol:      corev1.ProtocolTCP,
			},
		},
		Resources:      resources,
		LivenessProbe:  buildProbe(md.Spec.GetLivenessPath(), port),
		ReadinessProbe: buildProbe(md.Spec.GetReadinessPath(), port),
	}

	if md.Spec.ConfigRef != "" {
		container.EnvFrom = []corev1.EnvFromSource{
			{
				ConfigMapRef: &corev1.ConfigMapEnvSource{
					LocalObjectReference: corev1.LocalObjectReference{
						Name: md.Spec.ConfigRef,
					},
				},
			},
		}
	}

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      DeploymentName(md, role),
			Namespace: md.Namespace,
			Labels:    Labels(md, role),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: replicasFor(md, role, variant),
			Selector: &metav1.LabelSelector{
				MatchLabels: SelectorLabels(md, role),
			},
			Strategy: buildStrategy(&md.Spec),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: Labels(md, role),
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
				},
			},
		},
	}

	return deployment, nil
}

// replicasFor returns the desired replica pointer for a variant. When
// autoscaling owns the live Deployment, replicas are left unset so the
// controller never fights the autoscaler over the count.
func replicasFor(md *mlv1alpha1.ModelDeployment, role Role, variant *mlv1alpha1.ModelVariant) *int32 {
	if role == RoleLive && md.Spec.IsAutoscalingEnabled() {
		return nil
	}
	return ptr.To(variant.GetReplicas())
}

func buildStrategy(spec *mlv1alpha1.ModelDeploymentSpec) appsv1.DeploymentStrategy {
	if spec.GetRolloutStrategy() == mlv1alpha1.RolloutRecreate {
		return appsv1.DeploymentStrategy{
			Type: appsv1.RecreateDeploymentStrategyType,
		}
	}

	rolling := &appsv1.RollingUpdateDeployment{}
	if spec.MaxUnavailable != nil {
		rolling.MaxUnavailable = spec.MaxUnavailable
	}

	if spec.MaxSurge != nil {
		rolling.MaxSurge = spec.MaxSurge
	}

	return appsv1.DeploymentStrategy{
		Type:          appsv1.RollingUpdateDeploymentStrategyType,
		RollingUpdate: rolling,
	}
}

func buildProbe(path string, port int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: path,
				Port: intstr.FromInt32(port),
			},
		},
	}
}

func buildResourceRequirements(spec *mlv1alpha1.ResourceSpec) (corev1.ResourceRequirements, error) {
	var requirements corev1.ResourceRequirements

	if spec == nil {
		return requirements, nil
	}

	requests, err := buildResourceList(spec.Requests)
	if err != nil {
		return requirements, errors.Wrap(err, "invalid resource requests")
	}

	limits, err := buildResourceList(spec.Limits)
	if err != nil {
		return requirements, errors.Wrap(err, "invalid resource limits")
	}

	requirements.Requests = requests
	requirements.Limits = limits

	return requirements, nil
}

func buildResourceList(limits *mlv1alpha1.ResourceLimits) (corev1.ResourceList, error) {
	if limits == nil {
		return nil, nil
	}

	list := corev1.ResourceList{}

	if limits.CPU != "" {
		quantity, err := resource.ParseQuantity(limits.CPU)
		if err != nil {
			return nil, errors.Wrapf(err, "cpu quantity %q", limits.CPU)
		}

		list[corev1.ResourceCPU] = quantity
	}

	if limits.Memory != "" {
		quantity, err := resource.ParseQuantity(limits.Memory)
		if err != nil {
			return nil, errors.Wrapf(err, "memory quantity %q", limits.Memory)
		}

		list[corev1.ResourceMemory] = quantity
	}

	if len(list) == 0 {
		return nil, nil
	}

	return list, nil
}
