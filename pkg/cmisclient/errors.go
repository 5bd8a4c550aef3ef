package cmisclient

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrObjectNotFound indicates a queried repository object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrDocumentNotFound indicates a document was not found
	ErrDocumentNotFound = errors.New("document not found")

	// ErrFolderNotFound indicates a folder was not found
	ErrFolderNotFound = errors.New("folder not found")

	// ErrDocumentExists indicates a document with the same identification
	// already exists
	ErrDocumentExists = errors.New("document identification is not unique")

	// ErrAlreadyLocked indicates a checkout was attempted on a version series
	// that already has a tagged private working copy
	ErrAlreadyLocked = errors.New("document was already checked out")

	// ErrNotLocked indicates an update or unlock was attempted on a series
	// with no private working copy or an untagged one
	ErrNotLocked = errors.New("document is not checked out and/or locked")

	// ErrLockMismatch indicates the supplied lock token does not match the
	// stored one
	ErrLockMismatch = errors.New("lock did not match")

	// ErrDocumentConflict indicates the repository detected a concurrent
	// modification while applying an update; the caller's lock was valid but
	// the node changed underneath
	ErrDocumentConflict = errors.New("document was modified concurrently")

	// ErrUpdateConflict is the raw repository-side conflict signal (HTTP 409)
	ErrUpdateConflict = errors.New("update conflict")

	// ErrPermissionDenied indicates the repository rejected the credentials
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidArgument indicates malformed caller input; no remote call
	// was made unless the repository itself reported it
	ErrInvalidArgument = errors.New("invalid argument")
)

// TransportError represents a failed remote call with unknown or partially
// known server-side effect. Err carries a sentinel from this package when
// the HTTP status maps to one; otherwise it is the underlying network or
// decoding error.
type TransportError struct {
	Binding string
	Op      string
	URL     string
	Status  int
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cmis %s operation %s failed with status %d on %s: %v", e.Binding, e.Op, e.Status, e.URL, e.Err)
	}
	return fmt.Sprintf("cmis %s operation %s failed on %s: %v", e.Binding, e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DocumentError represents an error related to a document operation.
type DocumentError struct {
	UUID string
	Op   string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document operation %s failed for %s: %v", e.Op, e.UUID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}
