/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a document is not found
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when inserting a document whose id is taken
	ErrAlreadyExists = errors.New("document already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a CAS or version check fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrConnection is matched by every ConnectionError
	ErrConnection = errors.New("cluster connection failed")

	// ErrUnsupportedCapability is matched by every UnsupportedCapabilityError
	ErrUnsupportedCapability = errors.New("capability not supported by cluster")

	// ErrBackendExecution is matched by every BackendExecutionError
	ErrBackendExecution = errors.New("backend execution failed")
)

// NotFoundError represents an error when a document is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when a document already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional mutation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// ConnectionError reports that a bucket or scope could not be reached or resolved.
type ConnectionError struct {
	Bucket string
	Scope  string
	Cause  error
}

func (e *ConnectionError) Error() string {
	target := "cluster"
	switch {
	case e.Bucket != "" && e.Scope != "":
		target = fmt.Sprintf("bucket %q scope %q", e.Bucket, e.Scope)
	case e.Bucket != "":
		target = fmt.Sprintf("bucket %q", e.Bucket)
	}
	if e.Cause == nil {
		return fmt.Sprintf("connection to %s failed", target)
	}
	return fmt.Sprintf("connection to %s failed: %v", target, e.Cause)
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// UnsupportedCapabilityError is returned when an operation needs a capability
// the connected cluster does not advertise.
type UnsupportedCapabilityError struct {
	Capability string
	Operation  string
}

func (e *UnsupportedCapabilityError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("capability %q is not supported by the cluster (required by %s)", e.Capability, e.Operation)
	}
	return fmt.Sprintf("capability %q is not supported by the cluster", e.Capability)
}

func (e *UnsupportedCapabilityError) Is(target error) bool {
	return target == ErrUnsupportedCapability
}

// BackendExecutionError wraps a backend failure that was recognized as one of
// the known categories.
type BackendExecutionError struct {
	Category  Category
	Statement string
	Cause     error
}

func (e *BackendExecutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: backend execution failed", e.Category)
	}
	return fmt.Sprintf("%s: backend execution failed: %v", e.Category, e.Cause)
}

func (e *BackendExecutionError) Is(target error) bool {
	return target == ErrBackendExecution
}

func (e *BackendExecutionError) Unwrap() error {
	return e.Cause
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(bucket, scope string, cause error) error {
	return &ConnectionError{Bucket: bucket, Scope: scope, Cause: cause}
}

// NewUnsupportedCapabilityError creates a new UnsupportedCapabilityError
func NewUnsupportedCapabilityError(capability, operation string) error {
	return &UnsupportedCapabilityError{Capability: capability, Operation: operation}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsConnection checks if an error is a ConnectionError
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsUnsupportedCapability checks if an error is an UnsupportedCapabilityError
func IsUnsupportedCapability(err error) bool {
	return errors.Is(err, ErrUnsupportedCapability)
}

// IsBackendExecution checks if an error is a BackendExecutionError
func IsBackendExecution(err error) bool {
	return errors.Is(err, ErrBackendExecution)
}

// CategoryOf returns the category carried by a BackendExecutionError in the
// chain, or CategoryUnknown.
func CategoryOf(err error) Category {
	var be *BackendExecutionError
	if errors.As(err, &be) {
		return be.Category
	}
	return CategoryUnknown
}

// CapabilityOf returns the missing capability named by an
// UnsupportedCapabilityError in the chain.
func CapabilityOf(err error) (string, bool) {
	var ue *UnsupportedCapabilityError
	if errors.As(err, &ue) {
		return ue.Capability, true
	}
	return "", false
}
