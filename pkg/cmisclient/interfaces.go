package cmisclient

import (
	"context"
	"io"
)

// Binding defines the CMIS operation set both wire strategies implement.
//
// Every operation is a remote round trip. Implementations translate wire
// errors into the taxonomy of this package: repository-detected conflicts
// unwrap to ErrUpdateConflict, authentication failures to
// ErrPermissionDenied, malformed statements to ErrInvalidArgument; anything
// else surfaces as a *TransportError. A query returning zero rows is not an
// error.
type Binding interface {
	// RepositoryInfo returns the repository and root folder identifiers.
	RepositoryInfo(ctx context.Context) (*RepositoryInfo, error)

	// Query executes a CMIS SQL statement and returns the matching records.
	Query(ctx context.Context, statement string) ([]ObjectRecord, error)

	// CreateFolder creates a folder inside the given parent.
	CreateFolder(ctx context.Context, parentID string, props PropertySet) (ObjectRecord, error)

	// CreateDocument creates a document (or secondary content object) inside
	// the given folder. A nil content reader creates the object without a
	// content stream.
	CreateDocument(ctx context.Context, folderID string, props PropertySet, content io.Reader, filename string) (ObjectRecord, error)

	// GetObject fetches a single object by objectId.
	GetObject(ctx context.Context, objectID string) (ObjectRecord, error)

	// GetObjectParents returns the parent folders of an object.
	GetObjectParents(ctx context.Context, objectID string) ([]ObjectRecord, error)

	// GetAllVersions lists all versions of a version series, most recent
	// first, with the private working copy (if any) first.
	GetAllVersions(ctx context.Context, objectID string) ([]ObjectRecord, error)

	// CheckOut creates the private working copy of a document.
	CheckOut(ctx context.Context, objectID string) (ObjectRecord, error)

	// CheckIn turns the private working copy into a new immutable version.
	CheckIn(ctx context.Context, objectID, comment string, major bool) (ObjectRecord, error)

	// CancelCheckOut discards the private working copy.
	CancelCheckOut(ctx context.Context, objectID string) error

	// UpdateProperties applies a property delta to an object.
	UpdateProperties(ctx context.Context, objectID string, props PropertySet) (ObjectRecord, error)

	// SetContentStream replaces the content stream of an object.
	SetContentStream(ctx context.Context, objectID string, content io.Reader, filename string) (ObjectRecord, error)

	// GetContentStream retrieves the content stream of an object.
	GetContentStream(ctx context.Context, objectID string) (io.ReadCloser, error)

	// MoveObject moves an object between folders.
	MoveObject(ctx context.Context, objectID, sourceFolderID, targetFolderID string) (ObjectRecord, error)

	// DeleteObject permanently deletes an object with all its versions.
	DeleteObject(ctx context.Context, objectID string) error

	// DeleteTree recursively deletes a folder and all its descendants.
	DeleteTree(ctx context.Context, folderID string) error
}

// RelationResolver looks up the business objects (zaak, zaaktype, besluit)
// that documents get related to. The embedding registry service implements
// it against its catalogue APIs; the core only needs the placement fields.
type RelationResolver interface {
	Zaak(ctx context.Context, url string) (*ZaakInfo, error)
	ZaakType(ctx context.Context, url string) (*ZaakTypeInfo, error)
	Besluit(ctx context.Context, url string) (*BesluitInfo, error)
}
