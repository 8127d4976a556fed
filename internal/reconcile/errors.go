package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/fdsync/internal/models"
)

var (
	// ErrTenantGroupNotFound means the configured tenant group name does not
	// exist in the destination.
	ErrTenantGroupNotFound = errors.New("tenant group not found")

	// ErrMalformedFilename means a stored screenshot name does not follow the
	// "<d>/<d>/<d>/<d>/<32 hex>.<ext>" layout the derived log fields rely on.
	ErrMalformedFilename = errors.New("malformed screenshot filename")

	// ErrRunInProgress is returned when a run is requested while another one
	// is still active in the same process.
	ErrRunInProgress = errors.New("sync run already in progress")
)

// ConnectionError means a store could not be reached. It is always raised
// before any mutation.
type ConnectionError struct {
	Store string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Store, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError is a failing read or write against a store. It aborts the run;
// rows committed before it stay committed.
type QueryError struct {
	Op     string
	Entity models.Entity
	Err    error
}

func (e *QueryError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// FilesystemError is a blob replication failure. It is logged and the run
// continues.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("replicate %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// queryError wraps err as a QueryError unless it already carries a kind of
// its own or is a cancellation.
func queryError(op string, entity models.Entity, err error) error {
	var (
		qe *QueryError
		ce *ConnectionError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &qe), errors.As(err, &ce):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &QueryError{Op: op, Entity: entity, Err: err}
}
