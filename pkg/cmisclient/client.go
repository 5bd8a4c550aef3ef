package cmisclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Client is the high-level facade over a Binding. It owns repository
// discovery, folder placement, document lifecycle and relation bookkeeping.
// A Client is safe for concurrent use.
type Client struct {
	bind     Binding
	resolver RelationResolver
	logger   *slog.Logger
	clock    func() time.Time

	baseFolderName string
	vendorPrefixes bool

	mu         sync.Mutex
	repoInfo   *RepositoryInfo
	baseFolder *Folder
}

// Option configures the client
type Option func(*Client)

// WithBinding sets the wire strategy the client talks through. Required.
func WithBinding(b Binding) Option {
	return func(c *Client) {
		c.bind = b
	}
}

// WithRelationResolver sets the lookup service for zaak, zaaktype and
// besluit data. Required for relation (oio) operations.
func WithRelationResolver(r RelationResolver) Option {
	return func(c *Client) {
		c.resolver = r
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithBaseFolderName sets the name of the root working folder under the
// repository root. Defaults to "DRC".
func WithBaseFolderName(name string) Option {
	return func(c *Client) {
		c.baseFolderName = name
	}
}

// WithVendorPrefixes enables the D:/F: object type prefixes some
// repositories (Alfresco) require on create calls.
func WithVendorPrefixes(enabled bool) Option {
	return func(c *Client) {
		c.vendorPrefixes = enabled
	}
}

// WithClock overrides the time source used for date-partitioned folder
// paths and registration timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// New creates a client with the given options.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		logger:         slog.Default(),
		clock:          time.Now,
		baseFolderName: "DRC",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bind == nil {
		return nil, fmt.Errorf("%w: binding is required", ErrInvalidArgument)
	}
	return c, nil
}

// RepositoryInfo returns the repository identifiers, fetching them once and
// caching them for the lifetime of the client.
func (c *Client) RepositoryInfo(ctx context.Context) (*RepositoryInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.repoInfo != nil {
		return c.repoInfo, nil
	}
	info, err := c.bind.RepositoryInfo(ctx)
	if err != nil {
		return nil, err
	}
	c.repoInfo = info
	return info, nil
}

// BaseFolder returns the root working folder, creating it under the
// repository root on first use.
func (c *Client) BaseFolder(ctx context.Context) (*Folder, error) {
	c.mu.Lock()
	cached := c.baseFolder
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	info, err := c.RepositoryInfo(ctx)
	if err != nil {
		return nil, err
	}
	root := newFolder(ObjectRecord{ObjectID: info.RootFolderID, BaseType: BaseTypeFolder}, KindFolder, c.bind)
	base, err := c.GetOrCreateFolder(ctx, root, c.baseFolderName, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.baseFolder = base
	c.mu.Unlock()
	return base, nil
}

// objectTypeID renders the repository type name of a kind for create calls,
// applying vendor prefixes when configured.
func (c *Client) objectTypeID(kind ObjectKind) string {
	var name, prefix string
	switch kind {
	case KindDocument:
		name, prefix = "drc:document", "D:"
	case KindGebruiksrechten:
		name, prefix = "drc:gebruiksrechten", "D:"
	case KindOio:
		name, prefix = "drc:oio", "D:"
	case KindVerzending:
		name, prefix = "drc:verzending", "D:"
	case KindZaakFolder:
		name, prefix = "drc:zaakfolder", "F:"
	case KindZaakTypeFolder:
		name, prefix = "drc:zaaktypefolder", "F:"
	default:
		name, prefix = "cmis:folder", ""
	}
	if c.vendorPrefixes && prefix != "" {
		return prefix + name
	}
	return name
}

// buildProperties converts domain-keyed values into a repository property
// set for the given kind. Unmapped keys are dropped. Nil values are dropped
// as well; an explicit empty value must be sent as its zero value.
func (c *Client) buildProperties(kind ObjectKind, values map[string]any) PropertySet {
	props := make(PropertySet, len(values))
	for key, value := range values {
		if value == nil {
			continue
		}
		qualified, ok := ToRepository(key, kind)
		if !ok {
			c.logger.Debug("dropping unmapped property", "key", key, "kind", string(kind))
			continue
		}
		ptype, _ := TypeOf(key, kind)
		props[qualified] = Property{Value: value, Type: ptype}
	}
	return props
}

// domainValues converts a record's qualified properties back into
// domain-keyed values for the given kind. Unmapped properties are skipped.
func domainValues(rec ObjectRecord, kind ObjectKind) map[string]any {
	out := make(map[string]any, len(rec.Properties))
	for qualified, p := range rec.Properties {
		key, ok := ToDomain(qualified, kind)
		if !ok || p.Value == nil {
			continue
		}
		out[key] = p.Value
	}
	return out
}

// GetOrCreateFolder returns the child folder of parent with the given name,
// creating it with the given extra properties when absent. Matching is by
// exact cmis:name.
func (c *Client) GetOrCreateFolder(ctx context.Context, parent *Folder, name string, props PropertySet) (*Folder, error) {
	children, err := parent.ChildFolders(ctx)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if child.Name() == name {
			return child, nil
		}
	}

	c.logger.Debug("creating folder", "name", name, "parent", parent.ObjectID())
	all := make(PropertySet, len(props)+2)
	all["cmis:name"] = Property{Value: name, Type: TypeString}
	all["cmis:objectTypeId"] = Property{Value: c.objectTypeID(KindFolder), Type: TypeID}
	for k, v := range props {
		all[k] = v
	}
	rec, err := c.bind.CreateFolder(ctx, parent.ObjectID(), all)
	if err != nil {
		return nil, err
	}
	return newFolder(rec, KindFolder, c.bind), nil
}

// GetFolder fetches a folder by objectId.
func (c *Client) GetFolder(ctx context.Context, objectID string) (*Folder, error) {
	rec, err := c.bind.GetObject(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if rec.BaseType != BaseTypeFolder {
		return nil, fmt.Errorf("%w: %s is not a folder", ErrFolderNotFound, objectID)
	}
	return newFolder(rec, KindFolder, c.bind), nil
}

// QueryDocuments runs a filtered query against the document table. Filters
// use domain keys; see BuildFilters for the value conventions.
func (c *Client) QueryDocuments(ctx context.Context, filters map[string]any) ([]*Document, error) {
	var stmt string
	if len(filters) == 0 {
		stmt = queryDocumentsAll.Statement()
	} else {
		stmt = queryDocuments.Statement(BuildFilters(KindDocument, filters))
	}
	recs, err := c.bind.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	docs := make([]*Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, newDocument(rec, c.bind))
	}
	return docs, nil
}

// GetDocument fetches the latest version of a document by its bare uuid.
// With viaPWC set, the working copy is returned instead; that requires the
// document to be checked out.
func (c *Client) GetDocument(ctx context.Context, uuid string, viaPWC bool) (*Document, error) {
	docs, err := c.QueryDocuments(ctx, map[string]any{"uuid": uuid})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, &DocumentError{UUID: uuid, Op: "get", Err: ErrDocumentNotFound}
	}
	doc := docs[0]
	if viaPWC {
		return doc.PrivateWorkingCopy(ctx)
	}
	return doc.LatestVersion(ctx)
}

// DocumentExists reports whether a document with the given identificatie
// and bronorganisatie already exists.
func (c *Client) DocumentExists(ctx context.Context, identificatie, bronorganisatie string) (bool, error) {
	docs, err := c.QueryDocuments(ctx, map[string]any{
		"identificatie":   identificatie,
		"bronorganisatie": bronorganisatie,
	})
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// DeleteDocument removes a document's whole version series by uuid.
func (c *Client) DeleteDocument(ctx context.Context, uuid string) error {
	doc, err := c.GetDocument(ctx, uuid, false)
	if err != nil {
		return err
	}
	return doc.Delete(ctx)
}
