package redpanda

import (
	"context"
	"errors"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Status labels for profile event metrics.
const (
	statusOK          = "ok"
	statusInvalid     = "invalid"
	statusNotFound    = "not_found"
	statusRateLimited = "rate_limited"
	statusTimeout     = "timeout"
	statusError       = "error"
)

// classifyFailure maps a handler error to a stable metric label.
func classifyFailure(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, domain.ErrInvalidInput):
		return statusInvalid
	case errors.Is(err, domain.ErrNotFound):
		return statusNotFound
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return statusRateLimited
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return statusTimeout
	default:
		return statusError
	}
}

// retryable reports whether redelivering the event could succeed.
func retryable(err error) bool {
	switch classifyFailure(err) {
	case statusInvalid, statusNotFound:
		return false
	default:
		return err != nil
	}
}
