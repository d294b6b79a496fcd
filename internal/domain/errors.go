package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrTypeConflict     = errors.New("type conflict")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrIOFailure        = errors.New("io failure")
	ErrCancelled        = errors.New("cancelled")
)

// IOError carries a failed store or chat call. It matches ErrIOFailure.
type IOError struct {
	Op  string
	Err error
}

func NewIOError(op string, err error) *IOError {
	return &IOError{Op: op, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIOFailure }

// CancelledError reports a confirmation that was declined or never answered.
type CancelledError struct {
	TimedOut bool
}

func (e *CancelledError) Error() string {
	if e.TimedOut {
		return "cancelled: no response before timeout"
	}
	return "cancelled by user"
}

func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }

// NotFoundKind names what a NotFoundError could not find.
type NotFoundKind string

const (
	NotFoundMessage NotFoundKind = "message"
	NotFoundChannel NotFoundKind = "channel"
	NotFoundRole    NotFoundKind = "role"
	NotFoundBinding NotFoundKind = "binding"
	NotFoundCommand NotFoundKind = "command"
)

// NotFoundError matches ErrNotFound.
type NotFoundError struct {
	Kind NotFoundKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
