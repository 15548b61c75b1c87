package praxis

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by praxis.
var (
	// ErrTimeout is returned when an AI call exceeds its wall-clock budget.
	ErrTimeout = errors.New("operation timeout")

	// ErrCapabilityUnavailable is returned when a capability is absent or still downloading.
	ErrCapabilityUnavailable = errors.New("capability not available")

	// ErrInvalidResponse is returned when model output cannot be parsed.
	ErrInvalidResponse = errors.New("invalid model response")

	// ErrSessionCreate is returned when an engine session cannot be created.
	ErrSessionCreate = errors.New("session creation failed")

	// ErrAdapterDestroyed is returned when the adapter has released its sessions.
	ErrAdapterDestroyed = errors.New("adapter destroyed: capability unavailable")

	// ErrNoActiveDialogue is returned when sending a message without a started dialogue.
	ErrNoActiveDialogue = errors.New("no active dialogue")

	// ErrNoScenario is returned when a dialogue is started without any scenario.
	ErrNoScenario = errors.New("no scenario generated yet")

	// ErrNotFound is returned when a stored record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrSessionRefNotFound is returned when a scenario reference cannot be resolved.
	ErrSessionRefNotFound = errors.New("session reference not found")
)

// ErrorCode is the fixed failure taxonomy of the adapter.
type ErrorCode string

const (
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeAPIUnavailable  ErrorCode = "API_UNAVAILABLE"
	CodeAPINotReady     ErrorCode = "API_NOT_READY"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
	CodeInvalidResponse ErrorCode = "INVALID_RESPONSE"
	CodeSessionLost     ErrorCode = "SESSION_LOST"
	CodeUnknown         ErrorCode = "UNKNOWN"
)

// AIError is the classified failure carried by an error Result.
// Extractable via errors.As(). Supports Unwrap().
type AIError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *AIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AIError) Unwrap() error { return e.Err }

// InputError is returned for requests that fail validation before any AI call.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

// ValidationError is returned when configuration validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}
