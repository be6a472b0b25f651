package persistence

import (
	"errors"
	"fmt"
)

var (
	ErrWorkflowNotFound      = errors.New("workflow not found")
	ErrExecutionNotFound     = errors.New("execution not found")
	ErrStepExecutionNotFound = errors.New("step execution not found")
	ErrInvalidWorkflow       = errors.New("invalid workflow definition")
)

// StoreError wraps persistence failures with the operation and record they
// concern.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, ID: id, Err: err}
}

func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
