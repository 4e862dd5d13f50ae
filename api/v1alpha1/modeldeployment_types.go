package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// Default values applied by the controller when optional spec fields are unset.
const (
	// DefaultReplicas is the replica count for a variant that does not set one.
	DefaultReplicas int32 = 1

	// DefaultPort is the serving port exposed by model-server containers.
	DefaultPort int32 = 8000

	// DefaultLivenessPath is the liveness probe path for serving containers.
	DefaultLivenessPath = "/health"

	// DefaultReadinessPath is the readiness probe path for serving containers.
	DefaultReadinessPath = "/ready"
)

// Rollout strategies supported by ModelDeployment.
const (
	// RolloutRolling replaces pods gradually, bounded by maxUnavailable/maxSurge.
	RolloutRolling = "rolling"

	// RolloutRecreate terminates all pods before starting replacements.
	RolloutRecreate = "recreate"
)

// Finalizer is held on every ModelDeployment while its derived objects exist,
// so that teardown always runs before the object is removed from storage.
const Finalizer = "ml.jedimindtricks.example/finalizer"

// ModelVariant describes a single serving variant (live or shadow).
type ModelVariant struct {
	// Image is the container image reference for the model server.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Image string `json:"image"`

	// Replicas is the number of serving pods for this variant.
	// +optional
	// +kubebuilder:default=1
	// +kubebuilder:validation:Minimum=0
	Replicas *int32 `json:"replicas,omitempty"`
}

// ResourceLimits holds cpu/memory quantity strings.
type ResourceLimits struct {
	// +optional
	CPU string `json:"cpu,omitempty"`

	// +optional
	Memory string `json:"memory,omitempty"`
}

// ResourceSpec describes compute resources for serving containers.
type ResourceSpec struct {
	// +optional
	Requests *ResourceLimits `json:"requests,omitempty"`

	// +optional
	Limits *ResourceLimits `json:"limits,omitempty"`
}

// AutoScalingSpec configures a HorizontalPodAutoscaler for the live variant.
// When enabled, the autoscaler owns the live Deployment's replica count and
// spec.live.replicas is ignored.
type AutoScalingSpec struct {
	// Enabled controls whether an autoscaler is created.
	Enabled bool `json:"enabled"`

	// MinReplicas is the lower autoscaling bound. Defaults to 1.
	// +optional
	// +kubebuilder:validation:Minimum=1
	MinReplicas *int32 `json:"minReplicas,omitempty"`

	// MaxReplicas is the upper autoscaling bound.
	// +optional
	// +kubebuilder:validation:Minimum=1
	MaxReplicas *int32 `json:"maxReplicas,omitempty"`

	// TargetCPUUtilizationPercentage is the average CPU target. Defaults to 80.
	// +optional
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=100
	TargetCPUUtilizationPercentage *int32 `json:"targetCPUUtilizationPercentage,omitempty"`
}

// ProbeSpec configures HTTP probe paths on the serving port.
type ProbeSpec struct {
	// +optional
	// +kubebuilder:default="/health"
	LivenessPath string `json:"livenessPath,omitempty"`

	// +optional
	// +kubebuilder:default="/ready"
	ReadinessPath string `json:"readinessPath,omitempty"`
}

// ModelDeploymentSpec defines the desired state of a ModelDeployment.
// The controller never writes to this struct.
type ModelDeploymentSpec struct {
	// Live is the serving variant that receives production traffic.
	// +kubebuilder:validation:Required
	Live ModelVariant `json:"live"`

	// Shadow is an optional candidate variant deployed alongside live.
	// It receives mirrored traffic only, never production responses.
	// +optional
	Shadow *ModelVariant `json:"shadow,omitempty"`

	// TrafficMirror creates an Ingress that mirrors live traffic to the
	// shadow service. Requires shadow to be set.
	// +optional
	TrafficMirror bool `json:"trafficMirror,omitempty"`

	// RolloutStrategy selects how deployments roll out new images.
	// +optional
	// +kubebuilder:default="rolling"
	// +kubebuilder:validation:Enum=rolling;recreate
	RolloutStrategy string `json:"rolloutStrategy,omitempty"`

	// MaxUnavailable bounds pods taken down during a rolling update.
	// +optional
	MaxUnavailable *intstr.IntOrString `json:"maxUnavailable,omitempty"`

	// MaxSurge bounds pods created above desired count during a rolling update.
	// +optional
	MaxSurge *intstr.IntOrString `json:"maxSurge,omitempty"`

	// Port is the serving port exposed by the model server.
	// +optional
	// +kubebuilder:default=8000
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	Port int32 `json:"port,omitempty"`

	// Resources are compute resources applied to serving containers.
	// +optional
	Resources *ResourceSpec `json:"resources,omitempty"`

	// Autoscaling configures a HorizontalPodAutoscaler for the live variant.
	// +optional
	Autoscaling *AutoScalingSpec `json:"autoscaling,omitempty"`

	// Probes configures HTTP probe paths for serving containers.
	// +optional
	Probes *ProbeSpec `json:"probes,omitempty"`

	// ConfigRef names a ConfigMap in the same namespace whose keys are
	// exposed to serving containers as environment variables.
	// +optional
	ConfigRef string `json:"configRef,omitempty"`
}

// Condition types reported on ModelDeployment status.
const (
	// ConditionAvailable is true when all desired live replicas are ready.
	ConditionAvailable = "Available"

	// ConditionProgressing is true while a rollout is in flight.
	ConditionProgressing = "Progressing"

	// ConditionDegraded is true when the spec is invalid or reconciliation
	// keeps failing.
	ConditionDegraded = "Degraded"
)

// Phases summarizing ModelDeployment status for kubectl columns.
const (
	PhasePending     = "Pending"
	PhaseProgressing = "Progressing"
	PhaseAvailable   = "Available"
	PhaseDegraded    = "Degraded"
	PhaseTerminating = "Terminating"
)

// ChildStatus mirrors replica counters of one derived Deployment.
type ChildStatus struct {
	// +optional
	Replicas int32 `json:"replicas,omitempty"`

	// +optional
	UpdatedReplicas int32 `json:"updatedReplicas,omitempty"`

	// +optional
	ReadyReplicas int32 `json:"readyReplicas,omitempty"`

	// +optional
	AvailableReplicas int32 `json:"availableReplicas,omitempty"`
}

// ModelDeploymentStatus is the observed state of a ModelDeployment.
// It is written exclusively by the controller and is never an input
// to reconciliation.
type ModelDeploymentStatus struct {
	// Phase is a single-word summary of the deployment state.
	// +optional
	Phase string `json:"phase,omitempty"`

	// LiveStatus reports replica counters of the live Deployment.
	// +optional
	LiveStatus *ChildStatus `json:"liveStatus,omitempty"`

	// ShadowStatus reports replica counters of the shadow Deployment.
	// +optional
	ShadowStatus *ChildStatus `json:"shadowStatus,omitempty"`

	// Conditions describe the current state of the ModelDeployment.
	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// ObservedGeneration is the spec generation last processed by the
	// controller.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=md
// +kubebuilder:printcolumn:name="Image",type=string,JSONPath=`.spec.live.image`
// +kubebuilder:printcolumn:name="Replicas",type=integer,JSONPath=`.spec.live.replicas`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// ModelDeployment is the Schema for the modeldeployments API.
// It declares a model-serving workload; the controller derives Deployments,
// Services and optionally an Ingress and HorizontalPodAutoscaler from it.
type ModelDeployment struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ModelDeploymentSpec   `json:"spec,omitempty"`
	Status ModelDeploymentStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ModelDeploymentList contains a list of ModelDeployment.
type ModelDeploymentList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ModelDeployment `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ModelDeployment{}, &ModelDeploymentList{})
}

// GetReplicas returns the variant replica count, defaulting to 1.
func (v *ModelVariant) GetReplicas() int32 {
	if v.Replicas == nil {
		return DefaultReplicas
	}
	return *v.Replicas
}

// GetPort returns the serving port, defaulting to 8000.
func (s *ModelDeploymentSpec) GetPort() int32 {
	if s.Port == 0 {
		return DefaultPort
	}
	return s.Port
}

// GetRolloutStrategy returns the rollout strategy, defaulting to rolling.
func (s *ModelDeploymentSpec) GetRolloutStrategy() string {
	if s.RolloutStrategy == "" {
		return RolloutRolling
	}
	return s.RolloutStrategy
}

// GetLivenessPath returns the liveness probe path, defaulting to /health.
func (s *ModelDeploymentSpec) GetLivenessPath() string {
	if s.Probes == nil || s.Probes.LivenessPath == "" {
		return DefaultLivenessPath
	}
	return s.Probes.LivenessPath
}

// GetReadinessPath returns the readiness probe path, defaulting to /ready.
func (s *ModelDeploymentSpec) GetReadinessPath() string {
	if s.Probes == nil || s.Probes.ReadinessPath == "" {
		return DefaultReadinessPath
	}
	return s.Probes.ReadinessPath
}

// IsAutoscalingEnabled returns whether an autoscaler should exist.
func (s *ModelDeploymentSpec) IsAutoscalingEnabled() bool {
	return s.Autoscaling != nil && s.Autoscaling.Enabled
}

// GetMinReplicas returns the autoscaling lower bound, defaulting to 1.
func (a *AutoScalingSpec) GetMinReplicas() int32 {
	if a.MinReplicas == nil {
		return 1
	}
	return *a.MinReplicas
}

// GetMaxReplicas returns the autoscaling upper bound, never below the lower.
func (a *AutoScalingSpec) GetMaxReplicas() int32 {
	minReplicas := a.GetMinReplicas()
	if a.MaxReplicas == nil || *a.MaxReplicas < minReplicas {
		return minReplicas
	}
	return *a.MaxReplicas
}

// GetTargetCPUUtilization returns the CPU target, defaulting to 80 percent.
func (a *AutoScalingSpec) GetTargetCPUUtilization() int32 {
	if a.TargetCPUUtilizationPercentage == nil {
		return 80
	}
	return *a.TargetCPUUtilizationPercentage
}
