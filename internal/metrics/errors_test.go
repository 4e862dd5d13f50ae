package metrics

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestClassifyAPIError_Nil(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ClassifyAPIError(nil))
}

func TestClassifyAPIError_APIErrors(t *testing.T) {
	t.Parallel()

	gr := schema.GroupResource{Group: "apps", Resource: "deployments"}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "not found",
			err:  apierrors.NewNotFound(gr, "srv-live"),
			want: ErrorTypeNotFound,
		},
		{
			name: "conflict",
			err:  apierrors.NewConflict(gr, "srv-live", errors.New("stale")),
			want: ErrorTypeConflict,
		},
		{
			name: "throttled",
			err:  apierrors.NewTooManyRequests("slow down", 5),
			want: ErrorTypeThrottled,
		},
		{
			name: "unavailable",
			err:  apierrors.NewServiceUnavailable("down"),
			want: ErrorTypeUnavailable,
		},
		{
			name: "bad request",
			err:  apierrors.NewBadRequest("nope"),
			want: ErrorTypeInvalid,
		},
		{
			name: "forbidden",
			err:  apierrors.NewForbidden(gr, "srv-live", errors.New("rbac")),
			want: ErrorTypeForbidden,
		},
		{
			name: "server timeout",
			err:  apierrors.NewServerTimeout(gr, "get", 3),
			want: ErrorTypeUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, ClassifyAPIError(tc.err))
		})
	}
}

func TestClassifyAPIError_Wrapped(t *testing.T) {
	t.Parallel()

	gr := schema.GroupResource{Group: "apps", Resource: "deployments"}
	wrapped := errors.Wrap(apierrors.NewConflict(gr, "srv-live", errors.New("stale")), "update deployment")

	assert.Equal(t, ErrorTypeConflict, ClassifyAPIError(wrapped))
}

func TestClassifyAPIError_Fallbacks(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorTypeTimeout, ClassifyAPIError(errors.New("context deadline exceeded")))
	assert.Equal(t, ErrorTypeNetwork, ClassifyAPIError(errors.New("dial tcp: connection refused")))
	assert.Equal(t, ErrorTypeUnknown, ClassifyAPIError(errors.New("something else")))
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTerminal(ErrorTypeInvalid))
	assert.True(t, IsTerminal(ErrorTypeForbidden))
	assert.False(t, IsTerminal(ErrorTypeConflict))
	assert.False(t, IsTerminal(ErrorTypeThrottled))
	assert.False(t, IsTerminal(ErrorTypeUnknown))
}
