package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/utils/ptr"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(md *mlv1alpha1.ModelDeployment)
		problems int
	}{
		{
			name:     "valid minimal spec",
			mutate:   func(_ *mlv1alpha1.ModelDeployment) {},
			problems: 0,
		},
		{
			name: "empty live image",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.Live.Image = ""
			},
			problems: 1,
		},
		{
			name: "negative replicas",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.Live.Replicas = ptr.To(int32(-1))
			},
			problems: 1,
		},
		{
			name: "shadow without image",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.Shadow = &mlv1alpha1.ModelVariant{}
			},
			problems: 1,
		},
		{
			name: "traffic mirror without shadow",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.TrafficMirror = true
			},
			problems: 1,
		},
		{
			name: "unknown rollout strategy",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.RolloutStrategy = "blue-green"
			},
			problems: 1,
		},
		{
			name: "malformed cpu quantity",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.Resources = &mlv1alpha1.ResourceSpec{
					Limits: &mlv1alpha1.ResourceLimits{CPU: "two"},
				}
			},
			problems: 1,
		},
		{
			name: "autoscaling without max",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.Autoscaling = &mlv1alpha1.AutoScalingSpec{Enabled: true}
			},
			problems: 1,
		},
		{
			name: "autoscaling max below min",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.Autoscaling = &mlv1alpha1.AutoScalingSpec{
					Enabled:     true,
					MinReplicas: ptr.To(int32(5)),
					MaxReplicas: ptr.To(int32(2)),
				}
			},
			problems: 1,
		},
		{
			name: "disabled autoscaling is not validated",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.Autoscaling = &mlv1alpha1.AutoScalingSpec{Enabled: false}
			},
			problems: 0,
		},
		{
			name: "multiple problems accumulate",
			mutate: func(md *mlv1alpha1.ModelDeployment) {
				md.Spec.Live.Image = ""
				md.Spec.TrafficMirror = true
				md.Spec.RolloutStrategy = "canary"
			},
			problems: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			md := newModelDeployment()
			tc.mutate(md)

			assert.Len(t, Validate(md), tc.problems)
		})
	}
}
