package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	mlv1alpha1 "github.com/jedimindtricks/model-operator/api/v1alpha1"
)

func TestDeploymentNeedsUpdate_Converged(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()

	desired, err := BuildDeployment(md, RoleLive)
	require.NoError(t, err)

	observed := desired.DeepCopy()
	// Fields written by the server or other actors must not count as drift.
	observed.ResourceVersion = "42"
	observed.Spec.Template.Spec.Containers[0].ImagePullPolicy = corev1.PullIfNotPresent
	observed.Annotations = map[string]string{"fluxcd.io/sync": "whatever"}

	assert.False(t, DeploymentNeedsUpdate(desired, observed))
}

func TestDeploymentNeedsUpdate_ServerDefaultedFieldsIgnored(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()

	desired, err := BuildDeployment(md, RoleLive)
	require.NoError(t, err)

	// What the API server hands back after defaulting a freshly created
	// Deployment: rolling-update bounds, probe scheme and timings.
	observed := desired.DeepCopy()
	observed.Spec.Strategy.RollingUpdate = &appsv1.RollingUpdateDeployment{
		MaxUnavailable: ptr.To(intstr.FromString("25%")),
		MaxSurge:       ptr.To(intstr.FromString("25%")),
	}

	for _, probe := range []*corev1.Probe{
		observed.Spec.Template.Spec.Containers[0].LivenessProbe,
		observed.Spec.Template.Spec.Containers[0].ReadinessProbe,
	} {
		probe.HTTPGet.Scheme = corev1.URISchemeHTTP
		probe.TimeoutSeconds = 1
		probe.PeriodSeconds = 10
		probe.SuccessThreshold = 1
		probe.FailureThreshold = 3
	}

	assert.False(t, DeploymentNeedsUpdate(desired, observed))
}

func TestDeploymentNeedsUpdate_DeclaredSurgeCompared(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()
	md.Spec.MaxSurge = ptr.To(intstr.FromInt32(2))

	desired, err := BuildDeployment(md, RoleLive)
	require.NoError(t, err)

	observed := desired.DeepCopy()
	observed.Spec.Strategy.RollingUpdate.MaxSurge = ptr.To(intstr.FromString("25%"))

	assert.True(t, DeploymentNeedsUpdate(desired, observed))
}

func TestDeploymentNeedsUpdate_ProbePathChanged(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()

	desired, err := BuildDeployment(md, RoleLive)
	require.NoError(t, err)

	observed := desired.DeepCopy()
	observed.Spec.Template.Spec.Containers[0].LivenessProbe.HTTPGet.Path = "/livez"

	assert.True(t, DeploymentNeedsUpdate(desired, observed))
}

func TestCopyDeploymentFields_KeepsDefaultedStrategyBounds(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()

	desired, err := BuildDeployment(md, RoleLive)
	require.NoError(t, err)

	observed := desired.DeepCopy()
	observed.Spec.Strategy.RollingUpdate = &appsv1.RollingUpdateDeployment{
		MaxUnavailable: ptr.To(intstr.FromString("25%")),
		MaxSurge:       ptr.To(intstr.FromString("25%")),
	}

	CopyDeploymentFields(desired, observed)

	require.NotNil(t, observed.Spec.Strategy.RollingUpdate)
	assert.Equal(t, intstr.FromString("25%"), *observed.Spec.Strategy.RollingUpdate.MaxUnavailable)
	assert.Equal(t, intstr.FromString("25%"), *observed.Spec.Strategy.RollingUpdate.MaxSurge)
}

func TestDeploymentNeedsUpdate_ImageChanged(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()

	desired, err := BuildDeployment(md, RoleLive)
	require.NoError(t, err)

	observed := desired.DeepCopy()
	observed.Spec.Template.Spec.Containers[0].Image = "registry.local/srv:v0"

	assert.True(t, DeploymentNeedsUpdate(desired, observed))
}

func TestDeploymentNeedsUpdate_ReplicasChanged(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()

	desired, err := BuildDeployment(md, RoleLive)
	require.NoError(t, err)

	observed := desired.DeepCopy()
	observed.Spec.Replicas = ptr.To(int32(5))

	assert.True(t, DeploymentNeedsUpdate(desired, observed))
}

func TestDeploymentNeedsUpdate_AutoscaledReplicasIgnored(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()
	md.Spec.Autoscaling = &mlv1alpha1.AutoScalingSpec{
		Enabled:     true,
		MaxReplicas: ptr.To(int32(10)),
	}

	desired, err := BuildDeployment(md, RoleLive)
	require.NoError(t, err)

	observed := desired.DeepCopy()
	// The autoscaler has scaled the deployment; the controller must not care.
	observed.Spec.Replicas = ptr.To(int32(7))

	assert.False(t, DeploymentNeedsUpdate(desired, observed))
}

func TestCopyDeploymentFields_PreservesUnmanaged(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()

	desired, err := BuildDeployment(md, RoleLive)
	require.NoError(t, err)

	observed := desired.DeepCopy()
	observed.Spec.Template.Spec.Containers[0].Image = "registry.local/srv:v0"
	observed.ResourceVersion = "42"
	observed.Annotations = map[string]string{"unmanaged": "kept"}
	observed.Labels["extra"] = "kept"

	CopyDeploymentFields(desired, observed)

	assert.Equal(t, "registry.local/srv:v1", observed.Spec.Template.Spec.Containers[0].Image)
	assert.Equal(t, "42", observed.ResourceVersion)
	assert.Equal(t, "kept", observed.Annotations["unmanaged"])
	assert.Equal(t, "kept", observed.Labels["extra"])
	assert.Equal(t, "sentiment", observed.Labels["app"])
}

func TestServiceNeedsUpdate(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()
	desired := BuildService(md, RoleLive)

	converged := desired.DeepCopy()
	converged.Spec.ClusterIP = "10.0.0.7"
	assert.False(t, ServiceNeedsUpdate(desired, converged))

	diverged := desired.DeepCopy()
	diverged.Spec.Ports[0].Port = 1234
	assert.True(t, ServiceNeedsUpdate(desired, diverged))
}

func TestCopyServiceFields_PreservesClusterIP(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()
	desired := BuildService(md, RoleLive)

	observed := desired.DeepCopy()
	observed.Spec.ClusterIP = "10.0.0.7"
	observed.Spec.Ports[0].Port = 1234

	CopyServiceFields(desired, observed)

	assert.Equal(t, "10.0.0.7", observed.Spec.ClusterIP)
	assert.Equal(t, int32(8000), observed.Spec.Ports[0].Port)
}

func TestIngressNeedsUpdate(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()
	md.Spec.Shadow = &mlv1alpha1.ModelVariant{Image: "registry.local/srv:v2"}
	desired := BuildIngress(md)

	converged := desired.DeepCopy()
	converged.Annotations["kubernetes.io/ingress.class"] = "nginx"
	assert.False(t, IngressNeedsUpdate(desired, converged))

	diverged := desired.DeepCopy()
	diverged.Annotations[MirrorTargetAnnotation] = "http://elsewhere/"
	assert.True(t, IngressNeedsUpdate(desired, diverged))
}

func TestAutoscalerNeedsUpdate(t *testing.T) {
	t.Parallel()

	md := newModelDeployment()
	md.Spec.Autoscaling = &mlv1alpha1.AutoScalingSpec{
		Enabled:     true,
		MaxReplicas: ptr.To(int32(8)),
	}
	desired := BuildAutoscaler(md)

	converged := desired.DeepCopy()
	assert.False(t, AutoscalerNeedsUpdate(desired, converged))

	diverged := desired.DeepCopy()
	diverged.Spec.MaxReplicas = 3
	assert.True(t, AutoscalerNeedsUpdate(desired, diverged))
}
