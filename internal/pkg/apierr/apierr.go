package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes surfaced by the orchestration core. Absorbed codes never leave the
// orchestrator; they exist for logging and routing-history records.
const (
	CodeTenantNotFound         = "TENANT_NOT_FOUND"
	CodeCheckpointWriteFailed  = "CHECKPOINT_WRITE_FAILED"
	CodeCheckpointUnavailable  = "CHECKPOINT_UNAVAILABLE"
	CodeAgentUnresolved        = "AGENT_UNRESOLVED"
	CodeAgentExecutionFailed   = "AGENT_EXECUTION_FAILED"
	CodeClassificationDegraded = "CLASSIFICATION_DEGRADED"
	CodeRerouteLimitExceeded   = "REROUTE_LIMIT_EXCEEDED"
	CodeInvalidRequest         = "INVALID_REQUEST"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func TenantNotFound(err error) *Error {
	return New(http.StatusUnauthorized, CodeTenantNotFound, err)
}

// CheckpointWriteFailed is retryable by the gateway, hence 503.
func CheckpointWriteFailed(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeCheckpointWriteFailed, err)
}

// CheckpointUnavailable covers read-side persistence failures; same 503
// outcome as a failed write, distinct code so logs tell the paths apart.
func CheckpointUnavailable(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeCheckpointUnavailable, err)
}

func InvalidRequest(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidRequest, err)
}

// From extracts an *Error from err, or wraps it as a generic 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, "INTERNAL", err)
}
