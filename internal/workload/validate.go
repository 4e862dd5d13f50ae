package workload

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
)

// Validate checks a ModelDeployment spec for problems that no API call can
// fix. A non-empty result is terminal for the current generation: the
// controller reports it in status and waits for a spec edit instead of
// retrying.
func Validate(md *mlv1alpha1.ModelDeployment) []string {
	var problems []string

	if md.Spec.Live.Image == "" {
		problems = append(problems, "spec.live.image must not be empty")
	}

	if md.Spec.Live.Replicas != nil && *md.Spec.Live.Replicas < 0 {
		problems = append(problems, "spec.live.replicas must not be negative")
	}

	if md.Spec.Shadow != nil {
		if md.Spec.Shadow.Image == "" {
			problems = append(problems, "spec.shadow.image must not be empty")
		}

		if md.Spec.Shadow.Replicas != nil && *md.Spec.Shadow.Replicas < 0 {
			problems = append(problems, "spec.shadow.replicas must not be negative")
		}
	}

	if md.Spec.TrafficMirror && md.Spec.Shadow == nil {
		problems = append(problems, "spec.trafficMirror requires spec.shadow to be set")
	}

	switch md.Spec.GetRolloutStrategy() {
	case mlv1alpha1.RolloutRolling, mlv1alpha1.RolloutRecreate:
	default:
		problems = append(problems,
			fmt.Sprintf("spec.rolloutStrategy %q is not one of rolling, recreate", md.Spec.RolloutStrategy))
	}

	problems = append(problems, validateResources(md.Spec.Resources)...)
	problems = append(problems, validateAutoscaling(md.Spec.Autoscaling)...)

	return problems
}

func validateResources(spec *mlv1alpha1.ResourceSpec) []string {
	if spec == nil {
		return nil
	}

	var problems []string

	problems = append(problems, validateQuantities("spec.resources.requests", spec.Requests)...)
	problems = append(problems, validateQuantities("spec.resources.limits", spec.Limits)...)

	return problems
}

func validateQuantities(path string, limits *mlv1alpha1.ResourceLimits) []string {
	if limits == nil {
		return nil
	}

	var problems []string

	if limits.CPU != "" {
		if _, err := resource.ParseQuantity(limits.CPU); err != nil {
			problems = append(problems, fmt.Sprintf("%s.cpu %q is not a valid quantity", path, limits.CPU))
		}
	}

	if limits.Memory != "" {
		if _, err := resource.ParseQuantity(limits.Memory); err != nil {
			problems = append(problems, fmt.Sprintf("%s.memory %q is not a valid quantity", path, limits.Memory))
		}
	}

	return problems
}

func validateAutoscaling(spec *mlv1alpha1.AutoScalingSpec) []string {
	if spec == nil || !spec.Enabled {
		return nil
	}

	var problems []string

	if spec.MinReplicas != nil && *spec.MinReplicas < 1 {
		problems = append(problems, "spec.autoscaling.minReplicas must be at least 1")
	}

	if spec.MaxReplicas != nil && spec.MinReplicas != nil && *spec.MaxReplicas < *spec.MinReplicas {
		problems = append(problems, "spec.autoscaling.maxReplicas must not be below minReplicas")
	}

	if spec.MaxReplicas == nil {
		problems = append(problems, "spec.autoscaling.maxReplicas is required when autoscaling is enabled")
	}

	return problems
}
