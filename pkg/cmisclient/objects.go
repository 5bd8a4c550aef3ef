package cmisclient

import (
	"context"
	"errors"
	"io"
	"time"
)

// Object wraps an ObjectRecord with its domain kind and the binding it was
// fetched through. Accessors resolve domain keys through a fallback chain:
// the key as given, then the cmis: namespace, then the kind's property map.
type Object struct {
	rec  ObjectRecord
	kind ObjectKind
	bind Binding
}

func newObject(rec ObjectRecord, kind ObjectKind, bind Binding) Object {
	return Object{rec: rec, kind: kind, bind: bind}
}

// ObjectID returns the version-specific repository identifier.
func (o *Object) ObjectID() string {
	return o.rec.ObjectID
}

// Record returns the underlying property record.
func (o *Object) Record() ObjectRecord {
	return o.rec
}

// Kind returns the domain kind this object was wrapped as.
func (o *Object) Kind() ObjectKind {
	return o.kind
}

// UUID returns the bare uuid of the object: the value of the kind's uuid
// property when present, otherwise the uuid embedded in the objectId.
func (o *Object) UUID() string {
	if v, ok := o.Value("uuid"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return shortUUID(o.rec.ObjectID)
}

// Value resolves a domain key to a property value. Lookup order: the key
// itself, "cmis:"+key, then the kind's mapped qualified name. Missing keys
// report absent rather than error.
func (o *Object) Value(key string) (any, bool) {
	if v, ok := o.rec.Prop(key); ok {
		return v, true
	}
	if v, ok := o.rec.Prop("cmis:" + key); ok {
		return v, true
	}
	if qualified, ok := ToRepository(key, o.kind); ok {
		if v, ok := o.rec.Prop(qualified); ok {
			return v, true
		}
	}
	return nil, false
}

// String resolves a domain key to a string value, or "" when absent.
func (o *Object) String(key string) string {
	v, ok := o.Value(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Bool resolves a domain key to a boolean. Textual booleans are accepted,
// matching what the XML binding delivers.
func (o *Object) Bool(key string) bool {
	v, ok := o.Value(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "TRUE" || b == "True"
	}
	return false
}

// Time resolves a domain key to a datetime value.
func (o *Object) Time(key string) (time.Time, bool) {
	v, ok := o.Value(key)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

// Refresh re-fetches the object's record from the repository.
func (o *Object) Refresh(ctx context.Context) error {
	rec, err := o.bind.GetObject(ctx, o.rec.ObjectID)
	if err != nil {
		return err
	}
	o.rec = rec
	return nil
}

// ParentFolders returns the folders the object is filed in.
func (o *Object) ParentFolders(ctx context.Context) ([]*Folder, error) {
	recs, err := o.bind.GetObjectParents(ctx, o.rec.ObjectID)
	if err != nil {
		return nil, err
	}
	folders := make([]*Folder, 0, len(recs))
	for _, rec := range recs {
		folders = append(folders, &Folder{newObject(rec, KindFolder, o.bind)})
	}
	return folders, nil
}

// MoveTo moves the object from its current parent into the target folder.
func (o *Object) MoveTo(ctx context.Context, target *Folder) error {
	parents, err := o.ParentFolders(ctx)
	if err != nil {
		return err
	}
	if len(parents) == 0 {
		return ErrFolderNotFound
	}
	rec, err := o.bind.MoveObject(ctx, o.rec.ObjectID, parents[0].ObjectID(), target.ObjectID())
	if err != nil {
		return err
	}
	o.rec = rec
	return nil
}

// Delete permanently removes the object from the repository.
func (o *Object) Delete(ctx context.Context) error {
	return o.bind.DeleteObject(ctx, o.rec.ObjectID)
}

// Document is the entity wrapper for version-managed content objects. It
// carries the checkout state and lock token properties of its record.
type Document struct {
	Object
}

func newDocument(rec ObjectRecord, bind Binding) *Document {
	return &Document{newObject(rec, KindDocument, bind)}
}

// VersionLabel returns the cmis:versionLabel of this version.
func (d *Document) VersionLabel() string {
	return d.String("versionLabel")
}

// Lock returns the stored lock token, or "" when the document is unlocked.
func (d *Document) Lock() string {
	return d.String("lock")
}

// IsPrivateWorkingCopy reports whether this version is the mutable working
// copy of its series. Repositories differ in whether they flag the record or
// only label it, so both signals are honored.
func (d *Document) IsPrivateWorkingCopy() bool {
	if d.Bool("isPrivateWorkingCopy") {
		return true
	}
	return d.VersionLabel() == "pwc"
}

// IsCheckedOut reports whether the version series currently has a private
// working copy.
func (d *Document) IsCheckedOut() bool {
	return d.Bool("isVersionSeriesCheckedOut")
}

// Checkout creates the private working copy of the series and returns it.
// A result that is not flagged as the working copy means the series was
// already checked out elsewhere.
func (d *Document) Checkout(ctx context.Context) (*Document, error) {
	rec, err := d.bind.CheckOut(ctx, d.rec.ObjectID)
	if err != nil {
		if errors.Is(err, ErrUpdateConflict) {
			return nil, &DocumentError{UUID: d.UUID(), Op: "checkout", Err: ErrAlreadyLocked}
		}
		return nil, err
	}
	pwc := newDocument(rec, d.bind)
	if !pwc.IsPrivateWorkingCopy() {
		return nil, &DocumentError{UUID: d.UUID(), Op: "checkout", Err: ErrAlreadyLocked}
	}
	return pwc, nil
}

// Checkin turns the private working copy into a new immutable version.
func (d *Document) Checkin(ctx context.Context, comment string, major bool) (*Document, error) {
	rec, err := d.bind.CheckIn(ctx, d.rec.ObjectID, comment, major)
	if err != nil {
		return nil, err
	}
	return newDocument(rec, d.bind), nil
}

// CancelCheckout discards the private working copy.
func (d *Document) CancelCheckout(ctx context.Context) error {
	return d.bind.CancelCheckOut(ctx, d.rec.ObjectID)
}

// PrivateWorkingCopy returns the working copy of this document's series.
// It returns ErrNotLocked when the series has none.
func (d *Document) PrivateWorkingCopy(ctx context.Context) (*Document, error) {
	versions, err := d.AllVersions(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if v.IsPrivateWorkingCopy() {
			return v, nil
		}
	}
	return nil, &DocumentError{UUID: d.UUID(), Op: "pwc", Err: ErrNotLocked}
}

// LatestVersion returns the newest non-working-copy version of the series.
func (d *Document) LatestVersion(ctx context.Context) (*Document, error) {
	versions, err := d.AllVersions(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if !v.IsPrivateWorkingCopy() {
			return v, nil
		}
	}
	return nil, &DocumentError{UUID: d.UUID(), Op: "latest", Err: ErrDocumentNotFound}
}

// AllVersions lists every version of the series, working copy first.
func (d *Document) AllVersions(ctx context.Context) ([]*Document, error) {
	recs, err := d.bind.GetAllVersions(ctx, d.rec.ObjectID)
	if err != nil {
		return nil, err
	}
	docs := make([]*Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, newDocument(rec, d.bind))
	}
	return docs, nil
}

// UpdateProperties applies a property delta to this version and returns the
// updated document.
func (d *Document) UpdateProperties(ctx context.Context, props PropertySet) (*Document, error) {
	rec, err := d.bind.UpdateProperties(ctx, d.rec.ObjectID, props)
	if err != nil {
		return nil, err
	}
	d.rec = rec
	return d, nil
}

// SetContentStream replaces the document's content.
func (d *Document) SetContentStream(ctx context.Context, content io.Reader, filename string) error {
	rec, err := d.bind.SetContentStream(ctx, d.rec.ObjectID, content, filename)
	if err != nil {
		return err
	}
	d.rec = rec
	return nil
}

// ContentStream retrieves the document's content. The caller owns the
// returned reader and must close it.
func (d *Document) ContentStream(ctx context.Context) (io.ReadCloser, error) {
	return d.bind.GetContentStream(ctx, d.rec.ObjectID)
}

// Delete removes the whole version series. An outstanding working copy is
// cancelled first since repositories refuse to delete a checked-out series.
func (d *Document) Delete(ctx context.Context) error {
	if pwc, err := d.PrivateWorkingCopy(ctx); err == nil {
		if err := pwc.CancelCheckout(ctx); err != nil {
			return err
		}
	} else if !errors.Is(err, ErrNotLocked) {
		return err
	}
	return d.bind.DeleteObject(ctx, versionlessID(d.rec.ObjectID))
}

// Folder is the entity wrapper for cmis:folder objects.
type Folder struct {
	Object
}

func newFolder(rec ObjectRecord, kind ObjectKind, bind Binding) *Folder {
	return &Folder{newObject(rec, kind, bind)}
}

// Name returns the cmis:name of the folder.
func (f *Folder) Name() string {
	return f.String("name")
}

// ChildFolders lists the immediate subfolders.
func (f *Folder) ChildFolders(ctx context.Context) ([]*Folder, error) {
	stmt := queryInFolder.Statement("cmis:folder", f.ObjectID())
	recs, err := f.bind.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	folders := make([]*Folder, 0, len(recs))
	for _, rec := range recs {
		folders = append(folders, newFolder(rec, KindFolder, f.bind))
	}
	return folders, nil
}

// DeleteTree removes the folder and everything beneath it.
func (f *Folder) DeleteTree(ctx context.Context) error {
	return f.bind.DeleteTree(ctx, f.ObjectID())
}
