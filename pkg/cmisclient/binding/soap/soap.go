// Package soap implements the CMIS web services binding: SOAP envelopes in
// multipart/related MIME bodies, one endpoint per service. It exists for
// repositories that only expose the web services interface.
package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tendant/cmis-client/pkg/cmisclient"
)

const bindingName = "webservice"

var _ cmisclient.Binding = (*Binding)(nil)

// Service endpoint suffixes, appended to the base URL.
const (
	repositoryService = "RepositoryService"
	objectService     = "ObjectService"
	versioningService = "VersioningService"
	navigationService = "NavigationService"
	discoveryService  = "DiscoveryService"
)

// Binding talks to the CMIS web services endpoints under one base URL.
type Binding struct {
	base     string
	client   *http.Client
	username string
	password string
	logger   *slog.Logger

	mu   sync.Mutex
	info *cmisclient.RepositoryInfo
}

// Option configures the binding
type Option func(*Binding)

// WithHTTPClient overrides the HTTP client used for all calls.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Binding) {
		b.client = c
	}
}

// WithUsernameToken sets the WS-Security credentials sent in every envelope.
func WithUsernameToken(username, password string) Option {
	return func(b *Binding) {
		b.username = username
		b.password = password
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(b *Binding) {
		b.logger = l
	}
}

// New creates a binding against the given web services base URL.
func New(baseURL string, opts ...Option) *Binding {
	b := &Binding{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// call sends one SOAP request and parses the response envelope. Faults map
// to the package error taxonomy regardless of HTTP status.
func (b *Binding) call(ctx context.Context, op, service, body string, attachment []byte) (*parsedResponse, error) {
	endpoint := b.base + "/" + service
	contentType, reqBody := multipartBody(envelope(b.username, b.password, body), attachment)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("SOAPAction", "")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &cmisclient.TransportError{Binding: bindingName, Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	root, err := responseRoot(resp)
	if err != nil {
		return nil, &cmisclient.TransportError{Binding: bindingName, Op: op, URL: endpoint, Status: resp.StatusCode, Err: err}
	}
	parsed, err := parseResponse(root)
	if err != nil {
		return nil, &cmisclient.TransportError{Binding: bindingName, Op: op, URL: endpoint, Status: resp.StatusCode, Err: err}
	}
	if parsed.fault != nil {
		b.logger.Debug("soap fault", "op", op, "code", parsed.fault.Code, "message", parsed.fault.Message)
		return nil, &cmisclient.TransportError{
			Binding: bindingName,
			Op:      op,
			URL:     endpoint,
			Status:  resp.StatusCode,
			Err:     parsed.fault.sentinel(),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &cmisclient.TransportError{
			Binding: bindingName,
			Op:      op,
			URL:     endpoint,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return parsed, nil
}

// responseRoot returns the reader of the envelope part: the root part of a
// multipart/related response, or the whole body for plain XML.
func responseRoot(resp *http.Response) (io.Reader, error) {
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return resp.Body, nil
	}
	mr := multipart.NewReader(resp.Body, params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func (b *Binding) repositoryID(ctx context.Context) (string, error) {
	info, err := b.RepositoryInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.RepositoryID, nil
}

func (b *Binding) RepositoryInfo(ctx context.Context) (*cmisclient.RepositoryInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.info != nil {
		return b.info, nil
	}

	parsed, err := b.call(ctx, "getRepositories", repositoryService, `<ns:getRepositories/>`, nil)
	if err != nil {
		return nil, err
	}
	repoID := parsed.scalar("repositoryId")
	if repoID == "" {
		return nil, &cmisclient.TransportError{
			Binding: bindingName,
			Op:      "getRepositories",
			URL:     b.base,
			Err:     fmt.Errorf("service lists no repositories"),
		}
	}

	parsed, err = b.call(ctx, "getRepositoryInfo", repositoryService,
		`<ns:getRepositoryInfo><ns:repositoryId>`+escape(repoID)+`</ns:repositoryId></ns:getRepositoryInfo>`, nil)
	if err != nil {
		return nil, err
	}
	b.info = &cmisclient.RepositoryInfo{
		RepositoryID: repoID,
		RootFolderID: parsed.scalar("rootFolderId"),
	}
	return b.info, nil
}

func (b *Binding) Query(ctx context.Context, statement string) ([]cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return nil, err
	}
	var body strings.Builder
	body.WriteString(`<ns:query>`)
	body.WriteString(`<ns:repositoryId>` + escape(repoID) + `</ns:repositoryId>`)
	body.WriteString(`<ns:statement>` + escape(statement) + `</ns:statement>`)
	body.WriteString(`<ns:searchAllVersions>false</ns:searchAllVersions>`)
	body.WriteString(`</ns:query>`)

	parsed, err := b.call(ctx, "query", discoveryService, body.String(), nil)
	if err != nil {
		return nil, err
	}
	if n := parsed.scalar("numItems"); n != "" {
		if count, err := strconv.Atoi(n); err == nil && count < len(parsed.records) {
			return parsed.records[:count], nil
		}
	}
	return parsed.records, nil
}

// createObject issues a createDocument or createFolder call and fetches the
// full record of the result.
func (b *Binding) createObject(ctx context.Context, op, folderID string, props cmisclient.PropertySet, attachment []byte, filename string) (cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	var body strings.Builder
	body.WriteString(`<ns:` + op + `>`)
	body.WriteString(`<ns:repositoryId>` + escape(repoID) + `</ns:repositoryId>`)
	body.WriteString(propertiesXML(props))
	body.WriteString(`<ns:folderId>` + escape(folderID) + `</ns:folderId>`)
	if attachment != nil {
		body.WriteString(contentStreamXML(filename))
	}
	if op == "createDocument" {
		body.WriteString(`<ns:versioningState>major</ns:versioningState>`)
	}
	body.WriteString(`</ns:` + op + `>`)

	parsed, err := b.call(ctx, op, objectService, body.String(), attachment)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	return b.GetObject(ctx, parsed.scalar("objectId"))
}

func (b *Binding) CreateFolder(ctx context.Context, parentID string, props cmisclient.PropertySet) (cmisclient.ObjectRecord, error) {
	return b.createObject(ctx, "createFolder", parentID, props, nil, "")
}

func (b *Binding) CreateDocument(ctx context.Context, folderID string, props cmisclient.PropertySet, content io.Reader, filename string) (cmisclient.ObjectRecord, error) {
	var attachment []byte
	if content != nil {
		data, err := io.ReadAll(content)
		if err != nil {
			return cmisclient.ObjectRecord{}, err
		}
		attachment = data
	}
	return b.createObject(ctx, "createDocument", folderID, props, attachment, filename)
}

// objectIDBody renders the common repositoryId+objectId call body.
func (b *Binding) objectIDBody(repoID, op, objectID, extra string) string {
	var body strings.Builder
	body.WriteString(`<ns:` + op + `>`)
	body.WriteString(`<ns:repositoryId>` + escape(repoID) + `</ns:repositoryId>`)
	body.WriteString(`<ns:objectId>` + escape(objectID) + `</ns:objectId>`)
	body.WriteString(extra)
	body.WriteString(`</ns:` + op + `>`)
	return body.String()
}

func (b *Binding) GetObject(ctx context.Context, objectID string) (cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	body := b.objectIDBody(repoID, "getObject", objectID, `<ns:filter>*</ns:filter>`)
	parsed, err := b.call(ctx, "getObject", objectService, body, nil)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	if len(parsed.records) == 0 {
		return cmisclient.ObjectRecord{}, &cmisclient.TransportError{
			Binding: bindingName,
			Op:      "getObject",
			URL:     objectID,
			Err:     cmisclient.ErrObjectNotFound,
		}
	}
	return parsed.records[0], nil
}

func (b *Binding) GetObjectParents(ctx context.Context, objectID string) ([]cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return nil, err
	}
	body := b.objectIDBody(repoID, "getObjectParents", objectID, `<ns:filter>*</ns:filter>`)
	parsed, err := b.call(ctx, "getObjectParents", navigationService, body, nil)
	if err != nil {
		return nil, err
	}
	return parsed.records, nil
}

func (b *Binding) GetAllVersions(ctx context.Context, objectID string) ([]cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return nil, err
	}
	body := b.objectIDBody(repoID, "getAllVersions", objectID, `<ns:filter>*</ns:filter>`)
	parsed, err := b.call(ctx, "getAllVersions", versioningService, body, nil)
	if err != nil {
		return nil, err
	}
	return parsed.records, nil
}

func (b *Binding) CheckOut(ctx context.Context, objectID string) (cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	body := b.objectIDBody(repoID, "checkOut", objectID, "")
	parsed, err := b.call(ctx, "checkOut", versioningService, body, nil)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	return b.GetObject(ctx, parsed.scalar("objectId"))
}

func (b *Binding) CheckIn(ctx context.Context, objectID, comment string, major bool) (cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	extra := `<ns:major>` + strconv.FormatBool(major) + `</ns:major>`
	if comment != "" {
		extra += `<ns:checkinComment>` + escape(comment) + `</ns:checkinComment>`
	}
	body := b.objectIDBody(repoID, "checkIn", objectID, extra)
	parsed, err := b.call(ctx, "checkIn", versioningService, body, nil)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	return b.GetObject(ctx, parsed.scalar("objectId"))
}

func (b *Binding) CancelCheckOut(ctx context.Context, objectID string) error {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return err
	}
	body := b.objectIDBody(repoID, "cancelCheckOut", objectID, "")
	_, err = b.call(ctx, "cancelCheckOut", versioningService, body, nil)
	return err
}

func (b *Binding) UpdateProperties(ctx context.Context, objectID string, props cmisclient.PropertySet) (cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	body := b.objectIDBody(repoID, "updateProperties", objectID, propertiesXML(props))
	parsed, err := b.call(ctx, "updateProperties", objectService, body, nil)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	id := parsed.scalar("objectId")
	if id == "" {
		id = objectID
	}
	return b.GetObject(ctx, id)
}

func (b *Binding) SetContentStream(ctx context.Context, objectID string, content io.Reader, filename string) (cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	extra := `<ns:overwriteFlag>true</ns:overwriteFlag>` + contentStreamXML(filename)
	body := b.objectIDBody(repoID, "setContentStream", objectID, extra)
	if _, err := b.call(ctx, "setContentStream", objectService, body, data); err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	return b.GetObject(ctx, objectID)
}

func (b *Binding) GetContentStream(ctx context.Context, objectID string) (io.ReadCloser, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return nil, err
	}
	body := b.objectIDBody(repoID, "getContentStream", objectID, "")
	parsed, err := b.call(ctx, "getContentStream", objectService, body, nil)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(parsed.stream)), nil
}

func (b *Binding) MoveObject(ctx context.Context, objectID, sourceFolderID, targetFolderID string) (cmisclient.ObjectRecord, error) {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	extra := `<ns:targetFolderId>` + escape(targetFolderID) + `</ns:targetFolderId>` +
		`<ns:sourceFolderId>` + escape(sourceFolderID) + `</ns:sourceFolderId>`
	body := b.objectIDBody(repoID, "moveObject", objectID, extra)
	parsed, err := b.call(ctx, "moveObject", objectService, body, nil)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	id := parsed.scalar("objectId")
	if id == "" {
		id = objectID
	}
	return b.GetObject(ctx, id)
}

func (b *Binding) DeleteObject(ctx context.Context, objectID string) error {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return err
	}
	body := b.objectIDBody(repoID, "deleteObject", objectID, `<ns:allVersions>true</ns:allVersions>`)
	_, err = b.call(ctx, "deleteObject", objectService, body, nil)
	return err
}

func (b *Binding) DeleteTree(ctx context.Context, folderID string) error {
	repoID, err := b.repositoryID(ctx)
	if err != nil {
		return err
	}
	var body strings.Builder
	body.WriteString(`<ns:deleteTree>`)
	body.WriteString(`<ns:repositoryId>` + escape(repoID) + `</ns:repositoryId>`)
	body.WriteString(`<ns:folderId>` + escape(folderID) + `</ns:folderId>`)
	body.WriteString(`<ns:allVersions>true</ns:allVersions>`)
	body.WriteString(`<ns:continueOnFailure>false</ns:continueOnFailure>`)
	body.WriteString(`</ns:deleteTree>`)
	_, err = b.call(ctx, "deleteTree", objectService, body.String(), nil)
	return err
}
