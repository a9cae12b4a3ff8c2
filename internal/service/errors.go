package service

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by the question bank for unknown modules or indexes.
	ErrNotFound = errors.New("not found")
	// ErrModuleNotFound is returned when a user selects a module the bank does not have.
	ErrModuleNotFound = errors.New("module not found")
	// ErrIndexOutOfRange marks a session that points past its module outside the
	// completion check. The session is reset when this happens.
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// PersistenceError wraps a score store failure that survived a retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("score store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
