package orbit

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors. Every typed error below matches exactly one of these via errors.Is.
var (
	ErrInvalidParameter = errors.New("orbit: invalid parameter")
	ErrUnsupportedChain = errors.New("orbit: unsupported chain")
	ErrMissingEvent     = errors.New("orbit: expected event not found")
	ErrMissingField     = errors.New("orbit: required field missing")
	ErrRetryableTimeout = errors.New("orbit: retryable not executed in time")
)

// InvalidParameterError reports malformed or missing caller input. It is
// always raised before any network call is made.
type InvalidParameterError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

// Is implements the errors.Is interface.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// NewInvalidParameterError creates a new InvalidParameterError.
func NewInvalidParameterError(field, reason string) *InvalidParameterError {
	return &InvalidParameterError{Field: field, Reason: reason}
}

// UnsupportedChainError reports that no factory or contract mapping is known
// for a chain and no override was supplied.
type UnsupportedChainError struct {
	ChainID uint64
	What    string
}

// Error implements the error interface.
func (e *UnsupportedChainError) Error() string {
	if e.What == "" {
		return fmt.Sprintf("unsupported chain %d", e.ChainID)
	}
	return fmt.Sprintf("unsupported chain %d: no known %s", e.ChainID, e.What)
}

// Is implements the errors.Is interface.
func (e *UnsupportedChainError) Is(target error) bool {
	return target == ErrUnsupportedChain
}

// MissingEventError reports that a receipt does not contain the expected event,
// usually because the wrong transaction hash was supplied or the node queried
// has not seen the deployment yet.
type MissingEventError struct {
	Event  string
	TxHash common.Hash
}

// Error implements the error interface.
func (e *MissingEventError) Error() string {
	return fmt.Sprintf("%s event not found in receipt of %s", e.Event, e.TxHash.Hex())
}

// Is implements the errors.Is interface.
func (e *MissingEventError) Is(target error) bool {
	return target == ErrMissingEvent
}

// MissingFieldError reports that upstream data needed to compose a derived
// config is absent.
type MissingFieldError struct {
	Field   string
	Context string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("missing required field %s", e.Field)
	}
	return fmt.Sprintf("%s: missing required field %s", e.Context, e.Field)
}

// Is implements the errors.Is interface.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// RetryableTimeoutError reports that a retryable ticket was not observed as
// executed on the child chain before the deadline.
type RetryableTimeoutError struct {
	Ticket  common.Hash
	Timeout time.Duration
	Err     error
}

// Error implements the error interface.
func (e *RetryableTimeoutError) Error() string {
	return fmt.Sprintf("retryable %s not executed within %s: %v", e.Ticket.Hex(), e.Timeout, e.Err)
}

// Is implements the errors.Is interface.
func (e *RetryableTimeoutError) Is(target error) bool {
	return target == ErrRetryableTimeout
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *RetryableTimeoutError) Unwrap() error {
	return e.Err
}
