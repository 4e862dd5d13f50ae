// Package workload computes the desired derived objects for a ModelDeployment.
//
// # Overview
//
// Builders map a ModelDeployment spec to the Kubernetes objects the controller
// owns:
//
//   - one apps/v1 Deployment per variant (live, and shadow when configured)
//   - one core/v1 Service per variant exposing the serving port
//   - one networking/v1 Ingress mirroring live traffic to the shadow service
//     when trafficMirror is enabled
//   - one autoscaling/v2 HorizontalPodAutoscaler targeting the live Deployment
//     when autoscaling is enabled
//
// Builders are pure: the same spec always produces the same objects, and no
// cluster state is consulted. Owner references are attached by the controller,
// not here.
//
// # Divergence checks
//
// The NeedsUpdate functions compare only the fields this controller manages
// (image, replicas, port, probes, resources, rollout strategy, selector,
// mirror annotations). Fields written by other actors, such as a Service's
// clusterIP or annotations added by admission webhooks, never count as
// divergence and are preserved on update.
package workload
