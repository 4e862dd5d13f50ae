package workload

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
)

// BuildService computes the desired Service for one variant. The service
// exposes the serving port and selects the variant's pods.
func BuildService(md *mlv1alpha1.ModelDeployment, role Role) *corev1.Service {
	port := md.Spec.GetPort()

	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ServiceName(md, role),
			Namespace: md.Namespace,
			Labels:    Labels(md, role),
		},
		Spec: corev1.ServiceSpec{
			Selector: SelectorLabels(md, role),
			Ports: []corev1.ServicePort{
				{
					Name:       "http",
					Port:       port,
					TargetPort: intstr.FromInt32(port),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}
