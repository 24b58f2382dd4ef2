package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidSubstrate = errors.New("substrate has no base price")
	ErrInvalidArea      = errors.New("area must be greater than zero")
	ErrVersionConflict  = errors.New("concurrent job mutation rejected")
	ErrJobTerminal      = errors.New("job is in a terminal state")
	ErrQueueFull        = errors.New("worker queue full")
	ErrReadDatabaseRow  = errors.New("failed to read database row")
)

// RateLimitError is returned when a tenant's admission quota is exhausted.
// RetryAfter carries the remaining window time as a hint to the caller.
type RateLimitError struct {
	Operation  string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q, retry after %s", e.Operation, e.RetryAfter)
}

// ErrorKind is a stable identifier for a stage failure, recorded on the job
// and exposed to pollers. Kinds never change once shipped.
type ErrorKind string

const (
	KindPredictionError  ErrorKind = "prediction_error"
	KindInvalidSubstrate ErrorKind = "invalid_substrate"
	KindInvalidArea      ErrorKind = "invalid_area"
	KindRenderError      ErrorKind = "render_error"
	KindStageTimeout     ErrorKind = "stage_timeout"
	KindStorageError     ErrorKind = "storage_error"
	KindCRMError         ErrorKind = "crm_error"
	KindQueueFull        ErrorKind = "queue_full"
	KindRulesError       ErrorKind = "rules_error"
)
