// Package controller implements the ModelDeployment reconciliation loop.
//
// The reconciler is level-triggered: every pass re-reads the ModelDeployment
// and its derived objects from the manager cache, recomputes the full desired
// state with package workload, and issues only the mutations needed to
// converge. Events are signals to look again, never payloads to act on.
//
// Derived objects (Deployment, Service, Ingress, HorizontalPodAutoscaler)
// carry a controller owner reference back to the parent ModelDeployment, so
// cluster-side garbage collection removes them if the controller is absent
// during parent deletion. Ordered teardown still runs through a finalizer:
// the finalizer is added before any derived object is created, and removed
// only after all derived objects are deleted.
package controller
