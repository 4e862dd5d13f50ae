package workload

import (
	"fmt"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
)

// Role identifies which serving variant a derived object belongs to.
type Role string

const (
	// RoleLive is the variant receiving production traffic.
	RoleLive Role = "live"

	// RoleShadow is the candidate variant receiving mirrored traffic only.
	RoleShadow Role = "shadow"
)

// Label keys applied to every derived object.
const (
	// LabelApp carries the parent ModelDeployment name.
	LabelApp = "app"

	// LabelRole distinguishes live from shadow objects.
	LabelRole = "role"

	// LabelManagedBy marks objects owned by this controller.
	LabelManagedBy = "app.kubernetes.io/managed-by"

	// ManagedByValue is the value recorded under LabelManagedBy.
	ManagedByValue = "model-operator"
)

// containerName is the name of the serving container in derived Deployments.
const containerName = "model-server"

// DeploymentName returns the derived Deployment name for a variant.
func DeploymentName(md *mlv1alpha1.ModelDeployment, role Role) string {
	return fmt.Sprintf("%s-%s", md.Name, role)
}

// ServiceName returns the derived Service name for a variant.
func ServiceName(md *mlv1alpha1.ModelDeployment, role Role) string {
	return fmt.Sprintf("%s-%s-svc", md.Name, role)
}

// IngressName returns the derived Ingress name.
func IngressName(md *mlv1alpha1.ModelDeployment) string {
	return md.Name
}

// AutoscalerName returns the derived HorizontalPodAutoscaler name.
// The autoscaler always targets the live Deployment and shares its name.
func AutoscalerName(md *mlv1alpha1.ModelDeployment) string {
	return DeploymentName(md, RoleLive)
}

// Labels returns the label set for a variant's derived objects. The same set
// is used as the Deployment selector and the Service selector, so it must
// stay stable across controller versions.
func Labels(md *mlv1alpha1.ModelDeployment, role Role) map[string]string {
	return map[string]string{
		LabelApp:       md.Name,
		LabelRole:      string(role),
		LabelManagedBy: ManagedByValue,
	}
}

// SelectorLabels returns the pod selector labels for a variant. Selector
// labels exclude LabelManagedBy so that relabeling managed-by in a future
// release cannot orphan running pods behind an immutable selector.
func SelectorLabels(md *mlv1alpha1.ModelDeployment, role Role) map[string]string {
	return map[string]string{
		LabelApp:  md.Name,
		LabelRole: string(role),
	}
}

// Variant returns the ModelVariant for a role, or nil when the role is not
// configured (shadow absent).
func Variant(md *mlv1alpha1.ModelDeployment, role Role) *mlv1alpha1.ModelVariant {
	if role == RoleLive {
		return &md.Spec.Live
	}
	return md.Spec.Shadow
}
