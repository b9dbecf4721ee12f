package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Error implements repositories.RepositoryError for Postgres backed repositories.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound reports whether the error represents a missing row.
func (e *Error) IsNotFound() bool {
	return e != nil && e.notFound
}

// IsConflict reports whether the error represents a constraint violation or a
// serialization failure.
func (e *Error) IsConflict() bool {
	return e != nil && e.conflict
}

// IsUnavailable reports whether the error represents a transient backend outage.
func (e *Error) IsUnavailable() bool {
	return e != nil && e.unavailable
}

func newError(op string, err error) *Error {
	if err == nil {
		return nil
	}

	e := &Error{op: op, err: err}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		e.notFound = true
	case errors.Is(err, context.DeadlineExceeded):
		e.unavailable = true
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, sql.ErrTxDone):
		e.unavailable = true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505", pqErr.Code == "23503", pqErr.Code == "40001":
			// unique violation, foreign key violation, serialization failure
			e.conflict = true
		case pqErr.Code.Class() == "08", pqErr.Code == "53300", pqErr.Code == "57014":
			// connection failures, too many connections, statement cancelled
			e.unavailable = true
		}
	}
	return e
}

// WrapError annotates database errors with repository semantics. Context
// cancellations are passed through untouched so callers can detect shutdown.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return newError(op, err)
}
