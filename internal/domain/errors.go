package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDate reports a date argument outside YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrNotFound reports a missing row.
	ErrNotFound = errors.New("not found")
)

// StoreError wraps failures raised by the item store collaborator.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStore tags err with the failing store operation; nil stays nil.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
