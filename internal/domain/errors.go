package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrInputDisabled   = errors.New("conversation does not accept input")
	ErrProfileActive   = errors.New("a profile creation flow is already running")
)

// FailureKind categorizes user-visible failures so the conversation layer
// can render a localized message while keeping the raw cause for
// diagnostics.
type FailureKind int

const (
	FailureStream FailureKind = iota + 1
	FailureDispatchConfig
	FailureEndpointNotFound
	FailureDispatchTimeout
	FailureUnreachable
	FailureDispatchStatus
	FailureJobReported
	FailurePollTimeout
	FailureUpload
)

func (k FailureKind) String() string {
	switch k {
	case FailureStream:
		return "stream"
	case FailureDispatchConfig:
		return "dispatch_config"
	case FailureEndpointNotFound:
		return "endpoint_not_found"
	case FailureDispatchTimeout:
		return "dispatch_timeout"
	case FailureUnreachable:
		return "unreachable"
	case FailureDispatchStatus:
		return "dispatch_status"
	case FailureJobReported:
		return "job_failed"
	case FailurePollTimeout:
		return "poll_timeout"
	case FailureUpload:
		return "upload"
	}
	return "unknown"
}

// Failure wraps a raw error with its user-facing category. Detail carries
// collaborator-authored text that must surface verbatim (job error messages,
// missing-configuration descriptions).
type Failure struct {
	Kind   FailureKind
	Detail string
	Cause  error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Cause)
	}
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return f.Kind.String()
}

func (f *Failure) Unwrap() error { return f.Cause }

// NewFailure builds a categorized failure.
func NewFailure(kind FailureKind, detail string, cause error) *Failure {
	return &Failure{Kind: kind, Detail: detail, Cause: cause}
}

// FailureOf extracts the category from an error chain, defaulting to the
// given kind when the chain carries no Failure.
func FailureOf(err error, fallback FailureKind) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: fallback, Cause: err}
}
