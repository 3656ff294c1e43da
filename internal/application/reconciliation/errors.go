package reconciliation

import (
	"errors"
	"fmt"
)

// Operations reported by PersistenceError
const (
	OpPushProducts  = "push products"
	OpPushDocuments = "push documents"
	OpPushLedgers   = "push ledgers"
	OpPushProfile   = "push profile"
	OpPull          = "pull"
	OpCheckpoint    = "checkpoint"
	OpRestore       = "restore"
)

var (
	// ErrNoRemoteStore is returned when no remote store is configured
	ErrNoRemoteStore = errors.New("reconciliation: no remote store configured")
	// ErrCycleInProgress is returned when a cycle is requested while one runs
	ErrCycleInProgress = errors.New("reconciliation: cycle already in progress")
)

// PersistenceError wraps a store failure. Local state is never rolled back
// because of it; the next cycle retries.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err is a PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
