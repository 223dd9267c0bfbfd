package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrCollision     = errors.New("backup container already exists")
	ErrTargetExists  = errors.New("target already exists")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRemote        = errors.New("remote operation failed")
)

// OperationError carries the failing operation and its subject. It matches
// its Kind sentinel with errors.Is and unwraps to the cause.
type OperationError struct {
	Kind   error
	Op     string
	Target string
	Err    error
}

func (e *OperationError) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Target != "" {
		msg += " (" + e.Target + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NewValidationError(format string, args ...any) error {
	return &OperationError{Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

func NewCollisionError(containerID string) error {
	return &OperationError{Kind: ErrCollision, Op: "create container", Target: containerID}
}

func NewTargetExistsError(resourceID, memberID string) error {
	return &OperationError{Kind: ErrTargetExists, Op: "clone", Target: resourceID + "." + memberID}
}

func NewNotFoundError(op, target string) error {
	return &OperationError{Kind: ErrNotFound, Op: op, Target: target}
}

func NewRemoteError(op, target string, err error) error {
	return &OperationError{Kind: ErrRemote, Op: op, Target: target, Err: err}
}
