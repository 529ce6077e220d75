package services

import (
	"errors"
	"fmt"
	"strings"

	"swipely/internal/store"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrForbidden     = errors.New("forbidden")
)

// ErrorKind classifies a failure for user-facing messages and API responses.
type ErrorKind string

const (
	KindExternal      ErrorKind = "external"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindTransient     ErrorKind = "transient"
	KindLimit         ErrorKind = "limit"
	KindForbidden     ErrorKind = "forbidden"
	KindUnknown       ErrorKind = "unknown"
)

// ErrorDetails is the classified view of a wrapped error.
type ErrorDetails struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Details classifies err by its marker.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindUnknown}
	}
	details := ErrorDetails{Kind: KindUnknown, Message: err.Error(), Cause: errors.Unwrap(err)}
	switch {
	case errors.Is(err, ErrLimitExceeded):
		details.Kind = KindLimit
	case errors.Is(err, ErrForbidden):
		details.Kind = KindForbidden
	case errors.Is(err, ErrValidation):
		details.Kind = KindValidation
	case errors.Is(err, ErrConfiguration):
		details.Kind = KindConfiguration
	case errors.Is(err, ErrNotFound), errors.Is(err, store.ErrNotFound):
		details.Kind = KindNotFound
	case errors.Is(err, ErrTimeout):
		details.Kind = KindTimeout
	case errors.Is(err, ErrExternalTool):
		details.Kind = KindExternal
	case errors.Is(err, ErrTransient):
		details.Kind = KindTransient
	}
	return details
}

// Retryable reports whether an operator retry could plausibly succeed.
func Retryable(err error) bool {
	switch Details(err).Kind {
	case KindValidation, KindConfiguration, KindLimit, KindForbidden, KindNotFound:
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
