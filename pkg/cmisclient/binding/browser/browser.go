// Package browser implements the CMIS browser binding: form-encoded
// operations against a JSON endpoint. It is the lighter of the two wire
// strategies and the default choice for Alfresco-backed repositories.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tendant/cmis-client/pkg/cmisclient"
)

const bindingName = "browser"

var _ cmisclient.Binding = (*Binding)(nil)

// Binding talks to a CMIS browser binding endpoint. The zero value is not
// usable; construct with New.
type Binding struct {
	base     string
	client   *http.Client
	username string
	password string
	logger   *slog.Logger

	mu      sync.Mutex
	repoURL string
	rootURL string
	info    *cmisclient.RepositoryInfo
}

// Option configures the binding
type Option func(*Binding)

// WithHTTPClient overrides the HTTP client used for all calls.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Binding) {
		b.client = c
	}
}

// WithBasicAuth sets the credentials sent with every request.
func WithBasicAuth(username, password string) Option {
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

// New creates a binding against the given browser endpoint URL.
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

// jsonProperty is one property in the browser binding's object envelope.
type jsonProperty struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// jsonObject is the browser binding's object envelope.
type jsonObject struct {
	Properties map[string]jsonProperty `json:"properties"`
	// Alfresco nests the envelope once more under "object" in some
	// responses.
	Object *jsonObject `json:"object"`
}

// jsonRepository is one entry of the service document.
type jsonRepository struct {
	RepositoryID  string `json:"repositoryId"`
	RootFolderID  string `json:"rootFolderId"`
	RepositoryURL string `json:"repositoryUrl"`
	RootFolderURL string `json:"rootFolderUrl"`
}

func (b *Binding) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if b.username != "" {
		req.SetBasicAuth(b.username, b.password)
	}
	return req, nil
}

// statusError maps a response status to a sentinel, or nil for success.
func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest, status == http.StatusMethodNotAllowed:
		return cmisclient.ErrInvalidArgument
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return cmisclient.ErrPermissionDenied
	case status == http.StatusNotFound:
		return cmisclient.ErrObjectNotFound
	case status == http.StatusConflict:
		return cmisclient.ErrUpdateConflict
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

func (b *Binding) do(op string, req *http.Request) (*http.Response, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &cmisclient.TransportError{Binding: bindingName, Op: op, URL: req.URL.String(), Err: err}
	}
	if err := statusError(resp.StatusCode); err != nil {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		b.logger.Debug("request failed", "op", op, "status", resp.StatusCode, "body", string(body))
		return nil, &cmisclient.TransportError{
			Binding: bindingName,
			Op:      op,
			URL:     req.URL.String(),
			Status:  resp.StatusCode,
			Err:     err,
		}
	}
	return resp, nil
}

// endpoints resolves and caches the repository and root folder URLs from the
// service document.
func (b *Binding) endpoints(ctx context.Context) (repoURL, rootURL string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.repoURL != "" {
		return b.repoURL, b.rootURL, nil
	}

	req, err := b.newRequest(ctx, http.MethodGet, b.base, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := b.do("getRepositories", req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var repos map[string]jsonRepository
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return "", "", &cmisclient.TransportError{Binding: bindingName, Op: "getRepositories", URL: b.base, Err: err}
	}
	for _, repo := range repos {
		b.repoURL = repo.RepositoryURL
		b.rootURL = repo.RootFolderURL
		b.info = &cmisclient.RepositoryInfo{
			RepositoryID: repo.RepositoryID,
			RootFolderID: repo.RootFolderID,
		}
		return b.repoURL, b.rootURL, nil
	}
	return "", "", &cmisclient.TransportError{
		Binding: bindingName,
		Op:      "getRepositories",
		URL:     b.base,
		Err:     fmt.Errorf("service document lists no repositories"),
	}
}

func (b *Binding) RepositoryInfo(ctx context.Context) (*cmisclient.RepositoryInfo, error) {
	if _, _, err := b.endpoints(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info, nil
}

// postForm sends a cmisaction as form fields and decodes the JSON object
// envelope of the response.
func (b *Binding) postForm(ctx context.Context, op, endpoint string, form url.Values) (cmisclient.ObjectRecord, error) {
	req, err := b.newRequest(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.do(op, req)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	defer resp.Body.Close()
	return decodeObject(resp.Body, op, endpoint)
}

// postDiscard is postForm for actions whose response body carries nothing
// the caller needs.
func (b *Binding) postDiscard(ctx context.Context, op, endpoint string, form url.Values) error {
	req, err := b.newRequest(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.do(op, req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func decodeObject(r io.Reader, op, endpoint string) (cmisclient.ObjectRecord, error) {
	var obj jsonObject
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return cmisclient.ObjectRecord{}, &cmisclient.TransportError{Binding: bindingName, Op: op, URL: endpoint, Err: err}
	}
	return toRecord(obj), nil
}

// toRecord flattens a JSON object envelope into an ObjectRecord, converting
// values to their native types. Datetimes arrive as epoch milliseconds.
func toRecord(obj jsonObject) cmisclient.ObjectRecord {
	if obj.Object != nil {
		return toRecord(*obj.Object)
	}
	rec := cmisclient.ObjectRecord{Properties: make(cmisclient.PropertySet, len(obj.Properties))}
	for name, p := range obj.Properties {
		ptype := cmisclient.PropertyType(p.Type)
		value := convertValue(p.Value, ptype)
		rec.Properties[name] = cmisclient.Property{Value: value, Type: ptype}
	}
	if id, ok := rec.StringProp("cmis:objectId"); ok {
		rec.ObjectID = id
	}
	if base, ok := rec.StringProp("cmis:baseTypeId"); ok {
		rec.BaseType = cmisclient.BaseType(base)
	}
	return rec
}

func convertValue(v any, ptype cmisclient.PropertyType) any {
	if v == nil {
		return nil
	}
	switch ptype {
	case cmisclient.TypeDateTime:
		if millis, ok := v.(float64); ok {
			return time.UnixMilli(int64(millis)).UTC()
		}
	case cmisclient.TypeInteger:
		if f, ok := v.(float64); ok {
			return int64(f)
		}
	}
	return v
}

// encodeProperties appends a property set as indexed propertyId/propertyValue
// form fields. Datetimes are sent as epoch milliseconds.
func encodeProperties(form url.Values, props cmisclient.PropertySet) {
	i := 0
	for name, p := range props {
		form.Set(fmt.Sprintf("propertyId[%d]", i), name)
		form.Set(fmt.Sprintf("propertyValue[%d]", i), formatValue(p))
		i++
	}
}

func formatValue(p cmisclient.Property) string {
	switch v := p.Value.(type) {
	case time.Time:
		return strconv.FormatInt(v.UnixMilli(), 10)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (b *Binding) Query(ctx context.Context, statement string) ([]cmisclient.ObjectRecord, error) {
	repoURL, _, err := b.endpoints(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("cmisaction", "query")
	form.Set("statement", statement)
	form.Set("succinct", "false")

	req, err := b.newRequest(ctx, http.MethodPost, repoURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.do("query", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Results  []jsonObject `json:"results"`
		NumItems int          `json:"numItems"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &cmisclient.TransportError{Binding: bindingName, Op: "query", URL: repoURL, Err: err}
	}
	recs := make([]cmisclient.ObjectRecord, 0, len(result.Results))
	for _, obj := range result.Results {
		recs = append(recs, toRecord(obj))
	}
	return recs, nil
}

func (b *Binding) CreateFolder(ctx context.Context, parentID string, props cmisclient.PropertySet) (cmisclient.ObjectRecord, error) {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}

	form := url.Values{}
	form.Set("cmisaction", "createFolder")
	form.Set("objectId", parentID)
	encodeProperties(form, props)
	return b.postForm(ctx, "createFolder", rootURL, form)
}

func (b *Binding) CreateDocument(ctx context.Context, folderID string, props cmisclient.PropertySet, content io.Reader, filename string) (cmisclient.ObjectRecord, error) {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}

	form := url.Values{}
	form.Set("cmisaction", "createDocument")
	form.Set("objectId", folderID)
	form.Set("versioningState", "major")
	encodeProperties(form, props)

	if content == nil {
		return b.postForm(ctx, "createDocument", rootURL, form)
	}
	return b.postMultipart(ctx, "createDocument", rootURL, form, content, filename)
}

// postMultipart sends form fields plus a content part, streaming the body
// through a pipe.
func (b *Binding) postMultipart(ctx context.Context, op, endpoint string, form url.Values, content io.Reader, filename string) (cmisclient.ObjectRecord, error) {
	if filename == "" {
		filename = "content"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()
		for name := range form {
			if err = mw.WriteField(name, form.Get(name)); err != nil {
				return
			}
		}
		var part io.Writer
		if part, err = mw.CreateFormFile("content", filename); err != nil {
			return
		}
		if _, err = io.Copy(part, content); err != nil {
			return
		}
		err = mw.Close()
	}()

	req, err := b.newRequest(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.do(op, req)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	defer resp.Body.Close()
	return decodeObject(resp.Body, op, endpoint)
}

// get issues a cmisselector read against the root folder URL.
func (b *Binding) get(ctx context.Context, op, objectID, selector string) (*http.Response, error) {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(rootURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("objectId", objectID)
	q.Set("cmisselector", selector)
	u.RawQuery = q.Encode()

	req, err := b.newRequest(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return b.do(op, req)
}

func (b *Binding) GetObject(ctx context.Context, objectID string) (cmisclient.ObjectRecord, error) {
	resp, err := b.get(ctx, "getObject", objectID, "object")
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	defer resp.Body.Close()
	return decodeObject(resp.Body, "getObject", objectID)
}

func (b *Binding) GetObjectParents(ctx context.Context, objectID string) ([]cmisclient.ObjectRecord, error) {
	resp, err := b.get(ctx, "getObjectParents", objectID, "parents")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parents []jsonObject
	if err := json.NewDecoder(resp.Body).Decode(&parents); err != nil {
		return nil, &cmisclient.TransportError{Binding: bindingName, Op: "getObjectParents", URL: objectID, Err: err}
	}
	recs := make([]cmisclient.ObjectRecord, 0, len(parents))
	for _, obj := range parents {
		recs = append(recs, toRecord(obj))
	}
	return recs, nil
}

func (b *Binding) GetAllVersions(ctx context.Context, objectID string) ([]cmisclient.ObjectRecord, error) {
	resp, err := b.get(ctx, "getAllVersions", objectID, "versions")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var versions []jsonObject
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, &cmisclient.TransportError{Binding: bindingName, Op: "getAllVersions", URL: objectID, Err: err}
	}
	recs := make([]cmisclient.ObjectRecord, 0, len(versions))
	for _, obj := range versions {
		recs = append(recs, toRecord(obj))
	}
	return recs, nil
}

func (b *Binding) CheckOut(ctx context.Context, objectID string) (cmisclient.ObjectRecord, error) {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	form := url.Values{}
	form.Set("cmisaction", "checkOut")
	form.Set("objectId", objectID)
	return b.postForm(ctx, "checkOut", rootURL, form)
}

func (b *Binding) CheckIn(ctx context.Context, objectID, comment string, major bool) (cmisclient.ObjectRecord, error) {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	form := url.Values{}
	form.Set("cmisaction", "checkIn")
	form.Set("objectId", objectID)
	form.Set("major", strconv.FormatBool(major))
	if comment != "" {
		form.Set("checkinComment", comment)
	}
	return b.postForm(ctx, "checkIn", rootURL, form)
}

func (b *Binding) CancelCheckOut(ctx context.Context, objectID string) error {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("cmisaction", "cancelCheckOut")
	form.Set("objectId", objectID)
	return b.postDiscard(ctx, "cancelCheckOut", rootURL, form)
}

func (b *Binding) UpdateProperties(ctx context.Context, objectID string, props cmisclient.PropertySet) (cmisclient.ObjectRecord, error) {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	form := url.Values{}
	form.Set("cmisaction", "update")
	form.Set("objectId", objectID)
	encodeProperties(form, props)
	return b.postForm(ctx, "updateProperties", rootURL, form)
}

func (b *Binding) SetContentStream(ctx context.Context, objectID string, content io.Reader, filename string) (cmisclient.ObjectRecord, error) {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	form := url.Values{}
	form.Set("cmisaction", "setContent")
	form.Set("objectId", objectID)
	form.Set("overwriteFlag", "true")
	return b.postMultipart(ctx, "setContentStream", rootURL, form, content, filename)
}

func (b *Binding) GetContentStream(ctx context.Context, objectID string) (io.ReadCloser, error) {
	resp, err := b.get(ctx, "getContentStream", objectID, "content")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (b *Binding) MoveObject(ctx context.Context, objectID, sourceFolderID, targetFolderID string) (cmisclient.ObjectRecord, error) {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	form := url.Values{}
	form.Set("cmisaction", "move")
	form.Set("objectId", objectID)
	form.Set("sourceFolderId", sourceFolderID)
	form.Set("targetFolderId", targetFolderID)
	return b.postForm(ctx, "moveObject", rootURL, form)
}

func (b *Binding) DeleteObject(ctx context.Context, objectID string) error {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("cmisaction", "delete")
	form.Set("objectId", objectID)
	form.Set("allVersions", "true")
	return b.postDiscard(ctx, "deleteObject", rootURL, form)
}

func (b *Binding) DeleteTree(ctx context.Context, folderID string) error {
	_, rootURL, err := b.endpoints(ctx)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("cmisaction", "deleteTree")
	form.Set("objectId", folderID)
	form.Set("allVersions", "true")
	form.Set("continueOnFailure", "false")
	return b.postDiscard(ctx, "deleteTree", rootURL, form)
}
