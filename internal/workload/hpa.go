package workload

import (
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
)

// BuildAutoscaler computes the desired HorizontalPodAutoscaler targeting the
// live Deployment. Callers only invoke this when autoscaling is enabled.
func BuildAutoscaler(md *mlv1alpha1.ModelDeployment) *autoscalingv2.HorizontalPodAutoscaler {
	scaling := md.Spec.Autoscaling

	return &autoscalingv2.HorizontalPodAutoscaler{
		ObjectMeta: metav1.ObjectMeta{
			Name:      AutoscalerName(md),
			Namespace: md.Namespace,
			Labels:    Labels(md, RoleLive),
		},
		Spec: autoscalingv2.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: autoscalingv2.CrossVersionObjectReference{
				APIVersion: "apps/v1",
				Kind:       "Deployment",
				Name:       DeploymentName(md, RoleLive),
			},
			MinReplicas: ptr.To(scaling.GetMinReplicas()),
			MaxReplicas: scaling.GetMaxReplicas(),
			Metrics: []autoscalingv2.MetricSpec{
				{
					Type: autoscalingv2.ResourceMetricSourceType,
					Resource: &autoscalingv2.ResourceMetricSource{
						Name: corev1.ResourceCPU,
						Target: autoscalingv2.MetricTarget{
							Type:               autoscalingv2.UtilizationMetricType,
							AverageUtilization: ptr.To(scaling.GetTargetCPUUtilization()),
						},
					},
				},
			},
		},
	}
}
