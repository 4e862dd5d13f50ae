package metrics

import (
	"context"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Error type constants for metrics labels. They mirror the retry policy:
// not_found and conflict are self-correcting, throttled and unavailable back
// off, invalid and forbidden are terminal until an operator intervenes.
const (
	ErrorTypeNotFound    = "not_found"
	ErrorTypeConflict    = "conflict"
	ErrorTypeThrottled   = "throttled"
	ErrorTypeUnavailable = "unavailable"
	ErrorTypeInvalid     = "invalid"
	ErrorTypeForbidden   = "forbidden"
	ErrorTypeTimeout     = "timeout"
	ErrorTypeNetwork     = "network"
	ErrorTypeUnknown     = "unknown"
)

// ClassifyAPIError classifies an error from the Kubernetes API for metrics
// labeling and retry decisions. Returns an empty string for nil errors.
func ClassifyAPIError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case apierrors.IsNotFound(err):
		return ErrorTypeNotFound
	case apierrors.IsConflict(err):
		return ErrorTypeConflict
	case apierrors.IsTooManyRequests(err):
		return ErrorTypeThrottled
	case apierrors.IsServiceUnavailable(err) || apierrors.IsServerTimeout(err) || apierrors.IsInternalError(err):
		return ErrorTypeUnavailable
	case apierrors.IsInvalid(err) || apierrors.IsBadRequest(err):
		return ErrorTypeInvalid
	case apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err):
		return ErrorTypeForbidden
	case apierrors.IsTimeout(err):
		return ErrorTypeTimeout
	}

	return classifyByErrorMessage(err.Error())
}

// IsTerminal reports whether an error type cannot be fixed by retrying:
// the spec is rejected by the API server or the controller lacks RBAC.
func IsTerminal(errorType string) bool {
	return errorType == ErrorTypeInvalid || errorType == ErrorTypeForbidden
}

func classifyByErrorMessage(errStr string) string {
	errLower := strings.ToLower(errStr)

	switch {
	case strings.Contains(errLower, "timeout") || strings.Contains(errLower, "deadline"):
		return ErrorTypeTimeout
	case strings.Contains(errLower, "connection refused") || strings.Contains(errLower, "no such host"):
		return ErrorTypeNetwork
	case strings.Contains(errLower, context.Canceled.Error()):
		return ErrorTypeTimeout
	default:
		return ErrorTypeUnknown
	}
}
