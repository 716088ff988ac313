package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for consistent error handling across the finance core.

// ErrKeyNotFound is returned by blob stores for a missing key.
var ErrKeyNotFound = errors.New("key not found")

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in a remote call: network error,
// timeout, open circuit or non-2xx status all collapse into this type.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrStatus is a non-2xx response from a remote API.
type ErrStatus struct {
	Service    string
	StatusCode int
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("%s API returned status %d", e.Service, e.StatusCode)
}

// ErrPersistence indicates the local store failed. When it surfaces from the
// transaction service both the remote and the local leg failed.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("local store %s failed: %v", e.Op, e.Err)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrValidation carries every rule violation of a candidate transaction.
type ErrValidation struct {
	Messages []string
}

func (e *ErrValidation) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// ErrBridge is a labelled device bridge failure.
type ErrBridge struct {
	Code    string
	Message string
	Err     error
}

func (e *ErrBridge) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ErrBridge) Unwrap() error {
	return e.Err
}

// IsPermissionDenied reports a calendar permission failure anywhere in err's chain.
func IsPermissionDenied(err error) bool {
	var b *ErrBridge
	return errors.As(err, &b) && b.Code == CodeCalendarPermission
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
