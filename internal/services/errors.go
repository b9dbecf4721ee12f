package services

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the import pipeline. Handlers map them to
// structured HTTP envelopes, the controller maps them to error kinds.
var (
	// ErrImportURLRequired signals an empty source URL on the job itself.
	ErrImportURLRequired = errors.New("import url is required")
	// ErrPrincipalRequired signals a job without a requesting principal.
	ErrPrincipalRequired = errors.New("import principal is required")
	// ErrPrincipalNotShop signals a principal without the shop capability.
	ErrPrincipalNotShop = errors.New("principal lacks shop capability")
	// ErrInvalidURL signals a source URL that failed the existence probe.
	ErrInvalidURL = errors.New("invalid url")
	// ErrShopOwnedByAnother signals an import into a shop bound to a different principal.
	ErrShopOwnedByAnother = errors.New("shop is owned by another principal")
	// ErrJobAccessDenied signals a status read by neither the requester nor an admin.
	ErrJobAccessDenied = errors.New("job belongs to another principal")
)

// FetchError reports a transport-level failure while downloading the catalog.
// It is the only retryable stage error.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap exposes the underlying transport error, if any.
func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ParseError reports a catalog document that is not well-formed.
type ParseError struct {
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("parse catalog: %v", e.Err)
}

// Unwrap exposes the decoder error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SchemaError reports a well-formed document missing a required top-level key.
type SchemaError struct {
	Key string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("catalog document is missing required key %q", e.Key)
}

// ItemSchemaError reports a good missing a required field. It names the field
// and the offending item so a single bad entry is reported with its context.
type ItemSchemaError struct {
	Index int
	Field string
}

// Error implements the error interface.
func (e *ItemSchemaError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("good %d is missing required field %q", e.Index, e.Field)
}
