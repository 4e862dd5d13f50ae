package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

func TestConfigMapToModelDeployments_MatchesReferencingObjects(t *testing.T) {
	t.Parallel()

	scheme := newTestScheme(t)

	referencing := newTestModelDeployment()
	referencing.Spec.ConfigRef = "sentiment-config"

	other := newTestModelDeployment()
	other.Name = "toxicity"
	other.Spec.ConfigRef = "toxicity-config"

	unbound := newTestModelDeployment()
	unbound.Name = "summarizer"

	fakeClient := fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(referencing, other, unbound).
		Build()
	r := newTestReconciler(fakeClient, scheme)

	requests := r.configMapToModelDeployments(context.Background(), &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "sentiment-config",
			Namespace: "serving",
		},
	})

	require.Len(t, requests, 1)
	assert.Equal(t, "sentiment", requests[0].Name)
	assert.Equal(t, "serving", requests[0].Namespace)
}

func TestConfigMapToModelDeployments_IgnoresOtherNamespaces(t *testing.T) {
	t.Parallel()

	scheme := newTestScheme(t)

	md := newTestModelDeployment()
	md.Spec.ConfigRef = "sentiment-config"

	fakeClient := fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(md).
		Build()
	r := newTestReconciler(fakeClient, scheme)

	requests := r.configMapToModelDeployments(context.Background(), &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "sentiment-config",
			Namespace: "staging",
		},
	})

	assert.Empty(t, requests)
}

func TestConfigMapToModelDeployments_NonConfigMapObject(t *testing.T) {
	t.Parallel()

	scheme := newTestScheme(t)
	fakeClient := fake.NewClientBuilder().WithScheme(scheme).Build()
	r := newTestReconciler(fakeClient, scheme)

	requests := r.configMapToModelDeployments(context.Background(), &corev1.Secret{})

	assert.Nil(t, requests)
}
