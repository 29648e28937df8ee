package models

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks a provider-level rate limit. Dispatch retries these
// with bounded backoff; nothing else does.
var ErrRateLimited = errors.New("rate limited by provider")

// ValidationError is bad caller input. Never retried, maps to HTTP 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// SourceConnectionError means the message source is unreachable. Scans fall
// back to degraded mock data instead of aborting.
type SourceConnectionError struct {
	Err error
}

func (e *SourceConnectionError) Error() string {
	return fmt.Sprintf("message source unreachable: %v", e.Err)
}

func (e *SourceConnectionError) Unwrap() error {
	return e.Err
}

// LeadNotFoundError means a lead reference (stale index or unknown ID)
// resolved to nothing.
type LeadNotFoundError struct {
	Ref string
}

func (e *LeadNotFoundError) Error() string {
	return fmt.Sprintf("lead not found: %s", e.Ref)
}

// ParseError means the classifier response was malformed beyond repair.
// Analysis degrades to an empty lead list rather than failing the cycle.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return e.Msg
}
