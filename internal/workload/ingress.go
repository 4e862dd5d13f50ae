package workload

import (
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
)

// MirrorTargetAnnotation instructs the nginx ingress controller to mirror
// request traffic to the shadow service.
const MirrorTargetAnnotation = "nginx.ingress.kubernetes.io/mirror-target"

// BuildIngress computes the desired Ingress routing production traffic to the
// live service while mirroring requests to the shadow service. Callers only
// invoke this when trafficMirror is enabled, which validation ties to a
// configured shadow variant.
func BuildIngress(md *mlv1alpha1.ModelDeployment) *networkingv1.Ingress {
	port := md.Spec.GetPort()
	pathType := networkingv1.PathTypePrefix

	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      IngressName(md),
			Namespace: md.Namespace,
			Labels:    Labels(md, RoleLive),
			Annotations: map[string]string{
				MirrorTargetAnnotation: mirrorTarget(md),
			},
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{
					Host: fmt.Sprintf("%s.local", md.Name),
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{
								{
									Path:     "/",
									PathType: &pathType,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: ServiceName(md, RoleLive),
											Port: networkingv1.ServiceBackendPort{
												Number: port,
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func mirrorTarget(md *mlv1alpha1.ModelDeployment) string {
	return fmt.Sprintf("http://%s.%s.svc.cluster.local:%d%s",
		ServiceName(md, RoleShadow), md.Namespace, md.Spec.GetPort(), "/")
}
