package models

import (
	"errors"
	"fmt"
)

var (
	ErrMissingID        = errors.New("event id is required")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidScore     = errors.New("invalid risk score")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrDuplicateEvent   = errors.New("duplicate event")
	ErrFutureTimestamp  = errors.New("timestamp too far in the future")
	ErrStaleTimestamp   = errors.New("timestamp older than retention horizon")

	ErrConfiguration     = errors.New("invalid engine configuration")
	ErrEngineUnavailable = errors.New("aggregation engine unavailable")
)

// IngressError reports a rejected event. It unwraps to one of the Err* sentinels.
type IngressError struct {
	EventID string
	Reason  string
	Err     error
}

func (e *IngressError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("event %q: %v: %s", e.EventID, e.Err, e.Reason)
	}
	return fmt.Sprintf("event %q: %v", e.EventID, e.Err)
}

func (e *IngressError) Unwrap() error { return e.Err }

// Code returns a stable machine-readable code for the rejection.
func (e *IngressError) Code() string { return IngressCode(e.Err) }

// IngressCode maps an ingress sentinel to its error code.
func IngressCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingID):
		return "ERR_MISSING_ID"
	case errors.Is(err, ErrInvalidAmount):
		return "ERR_INVALID_AMOUNT"
	case errors.Is(err, ErrInvalidScore):
		return "ERR_INVALID_SCORE"
	case errors.Is(err, ErrInvalidTimestamp):
		return "ERR_INVALID_TIMESTAMP"
	case errors.Is(err, ErrDuplicateEvent):
		return "ERR_DUPLICATE_EVENT"
	case errors.Is(err, ErrFutureTimestamp):
		return "ERR_FUTURE_TIMESTAMP"
	case errors.Is(err, ErrStaleTimestamp):
		return "ERR_STALE_TIMESTAMP"
	default:
		return "ERR_UNKNOWN"
	}
}

// ConfigError is a fatal startup error; the engine refuses to initialize.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }
