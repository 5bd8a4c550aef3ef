package cmisclient

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

const checkinComment = "Updated via Documenten API"

// locksEqual compares lock tokens in constant time.
func locksEqual(stored, supplied string) bool {
	a := sha256.Sum256([]byte(stored))
	b := sha256.Sum256([]byte(supplied))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// CreateDocument creates a new document in the date-partitioned temp folder
// and returns its first version. The identificatie/bronorganisatie pair must
// be unique across the repository. A missing uuid is generated; the
// registration timestamp is always set here.
func (c *Client) CreateDocument(ctx context.Context, data map[string]any, content io.Reader, filename string) (*Document, error) {
	identificatie, _ := data["identificatie"].(string)
	bronorganisatie, _ := data["bronorganisatie"].(string)
	if identificatie != "" {
		exists, err := c.DocumentExists(ctx, identificatie, bronorganisatie)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, &DocumentError{UUID: identificatie, Op: "create", Err: ErrDocumentExists}
		}
	}

	values := make(map[string]any, len(data)+2)
	for k, v := range data {
		values[k] = v
	}
	if _, ok := values["uuid"]; !ok {
		values["uuid"] = uuid.NewString()
	}
	values["begin_registratie"] = c.clock().UTC()

	props := c.buildProperties(KindDocument, values)
	props["cmis:objectTypeId"] = Property{Value: c.objectTypeID(KindDocument), Type: TypeID}

	name, _ := values["titel"].(string)
	if name == "" {
		name = fmt.Sprint(values["uuid"])
	}
	props["cmis:name"] = Property{Value: uniqueName(name), Type: TypeString}

	folder, err := c.TempDocumentFolder(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("creating document",
		"uuid", values["uuid"],
		"identificatie", identificatie,
		"folder", folder.ObjectID())

	rec, err := c.bind.CreateDocument(ctx, folder.ObjectID(), props, content, filename)
	if err != nil {
		return nil, err
	}
	return newDocument(rec, c.bind), nil
}

// LockDocument checks the document out and stores the caller's lock token on
// the working copy. A series that is already checked out, whether tagged or
// not, cannot be locked again.
func (c *Client) LockDocument(ctx context.Context, docUUID, lock string) error {
	if lock == "" {
		return fmt.Errorf("%w: empty lock token", ErrInvalidArgument)
	}
	doc, err := c.GetDocument(ctx, docUUID, false)
	if err != nil {
		return err
	}

	pwc, err := doc.Checkout(ctx)
	if err != nil {
		return err
	}
	if pwc.Lock() != "" {
		return &DocumentError{UUID: docUUID, Op: "lock", Err: ErrAlreadyLocked}
	}

	c.logger.Info("locking document", "uuid", docUUID)
	_, err = pwc.UpdateProperties(ctx, c.buildProperties(KindDocument, map[string]any{
		"lock": lock,
	}))
	return err
}

// UnlockDocument verifies the lock token, clears it and checks the working
// copy in as a new version. With force set the token check is skipped.
// It returns the new latest version.
func (c *Client) UnlockDocument(ctx context.Context, docUUID, lock string, force bool) (*Document, error) {
	pwc, err := c.GetDocument(ctx, docUUID, true)
	if err != nil {
		return nil, err
	}
	if !force && !locksEqual(pwc.Lock(), lock) {
		return nil, &DocumentError{UUID: docUUID, Op: "unlock", Err: ErrLockMismatch}
	}

	if _, err := pwc.UpdateProperties(ctx, c.buildProperties(KindDocument, map[string]any{
		"lock": "",
	})); err != nil {
		return nil, err
	}

	c.logger.Info("unlocking document", "uuid", docUUID, "force", force)
	return pwc.Checkin(ctx, checkinComment, false)
}

// UpdateDocument applies a property delta and optionally new content to a
// locked document's working copy. The series must be checked out, tagged
// with a lock, and the supplied token must match. Only values that differ
// from the working copy are sent.
func (c *Client) UpdateDocument(ctx context.Context, docUUID, lock string, data map[string]any, content io.Reader, filename string) (*Document, error) {
	doc, err := c.GetDocument(ctx, docUUID, false)
	if err != nil {
		return nil, err
	}
	if !doc.IsCheckedOut() {
		return nil, &DocumentError{UUID: docUUID, Op: "update", Err: ErrNotLocked}
	}
	if doc.IsPrivateWorkingCopy() {
		return nil, fmt.Errorf("%w: update must target the version series, not the working copy", ErrInvalidArgument)
	}

	pwc, err := doc.PrivateWorkingCopy(ctx)
	if err != nil {
		return nil, err
	}
	if pwc.Lock() == "" {
		return nil, &DocumentError{UUID: docUUID, Op: "update", Err: ErrNotLocked}
	}
	if !locksEqual(pwc.Lock(), lock) {
		return nil, &DocumentError{UUID: docUUID, Op: "update", Err: ErrLockMismatch}
	}

	diff := make(map[string]any, len(data))
	for key, value := range data {
		if current, ok := pwc.Value(key); ok && current == value {
			continue
		}
		diff[key] = value
	}

	if len(diff) > 0 {
		c.logger.Info("updating document", "uuid", docUUID, "fields", len(diff))
		if _, err := pwc.UpdateProperties(ctx, c.buildProperties(KindDocument, diff)); err != nil {
			if errors.Is(err, ErrUpdateConflict) {
				return nil, &DocumentError{UUID: docUUID, Op: "update", Err: ErrDocumentConflict}
			}
			return nil, err
		}
	}

	if content != nil {
		if err := pwc.SetContentStream(ctx, content, filename); err != nil {
			return nil, err
		}
	}
	return pwc, nil
}
