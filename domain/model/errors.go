package model

import (
	"errors"
	"fmt"
)

// Auth error kinds. Match them with errors.Is against an *AuthError.
var (
	ErrNotConnected       = errors.New("workspace not connected")
	ErrRefreshUnavailable = errors.New("refresh token unavailable")
	ErrRefreshFailed      = errors.New("failed to refresh token")
)

var (
	ErrMessageAlreadyResolved = errors.New("scheduled message not found or already resolved")
	ErrValidation             = errors.New("validation failed")
)

// AuthError reports why no usable access token could be produced for a workspace.
type AuthError struct {
	WorkspaceID string
	Kind        error
	Err         error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workspace %s: %v: %v", e.WorkspaceID, e.Kind, e.Err)
	}
	return fmt.Sprintf("workspace %s: %v", e.WorkspaceID, e.Kind)
}

func (e *AuthError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ProviderError carries the error string Slack reported with ok=false.
type ProviderError struct {
	Code string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("slack api error: %s", e.Code)
}

// DispatchError records why a scheduled message could not be delivered.
type DispatchError struct {
	MessageID int64
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch message %d: %v", e.MessageID, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps ErrValidation with a field level reason.
func NewValidationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}
