package soap

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/cmis-client/pkg/cmisclient"
)

const repositoriesResponse = `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <getRepositoriesResponse>
      <repositories>
        <repositoryId>repo-1</repositoryId>
        <repositoryName>Main Repository</repositoryName>
      </repositories>
    </getRepositoriesResponse>
  </soap:Body>
</soap:Envelope>`

const repositoryInfoResponse = `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <getRepositoryInfoResponse>
      <repositoryInfo>
        <repositoryId>repo-1</repositoryId>
        <rootFolderId>workspace://SpacesStore/root-id</rootFolderId>
      </repositoryInfo>
    </getRepositoryInfoResponse>
  </soap:Body>
</soap:Envelope>`

const queryResponse = `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <queryResponse>
      <objects>
        <objects>
          <object>
            <properties>
              <propertyId propertyDefinitionId="cmis:objectId"><value>workspace://SpacesStore/d-1;1.0</value></propertyId>
              <propertyId propertyDefinitionId="cmis:baseTypeId"><value>cmis:document</value></propertyId>
              <propertyString propertyDefinitionId="drc:document__uuid"><value>u-1</value></propertyString>
              <propertyDateTime propertyDefinitionId="drc:document__creatiedatum"><value>2024-07-09T10:00:00Z</value></propertyDateTime>
              <propertyInteger propertyDefinitionId="drc:document__bestandsomvang"><value>12</value></propertyInteger>
              <propertyBoolean propertyDefinitionId="drc:document__verwijderd"><value>false</value></propertyBoolean>
            </properties>
          </object>
        </objects>
        <numItems>1</numItems>
      </objects>
    </queryResponse>
  </soap:Body>
</soap:Envelope>`

const conflictFaultResponse = `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Update conflict</faultstring>
      <detail>
        <cmisFault>
          <type>updateConflict</type>
          <message>Object is checked out</message>
        </cmisFault>
      </detail>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

func TestParseRepositoriesResponse(t *testing.T) {
	parsed, err := parseResponse(strings.NewReader(repositoriesResponse))
	require.NoError(t, err)
	assert.Equal(t, "repo-1", parsed.scalar("repositoryId"))
	assert.Equal(t, "Main Repository", parsed.scalar("repositoryName"))
	assert.Nil(t, parsed.fault)
}

func TestParseQueryResponse(t *testing.T) {
	parsed, err := parseResponse(strings.NewReader(queryResponse))
	require.NoError(t, err)
	require.Len(t, parsed.records, 1)

	rec := parsed.records[0]
	assert.Equal(t, "workspace://SpacesStore/d-1;1.0", rec.ObjectID)
	assert.Equal(t, cmisclient.BaseTypeDocument, rec.BaseType)

	uuid, _ := rec.StringProp("drc:document__uuid")
	assert.Equal(t, "u-1", uuid)

	ts, ok := rec.TimeProp("drc:document__creatiedatum")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 7, 9, 10, 0, 0, 0, time.UTC), ts)

	size, ok := rec.Prop("drc:document__bestandsomvang")
	require.True(t, ok)
	assert.Equal(t, int64(12), size)

	deleted, ok := rec.BoolProp("drc:document__verwijderd")
	require.True(t, ok)
	assert.False(t, deleted)

	assert.Equal(t, "1", parsed.scalar("numItems"))
}

func TestParseFault(t *testing.T) {
	parsed, err := parseResponse(strings.NewReader(conflictFaultResponse))
	require.NoError(t, err)
	require.NotNil(t, parsed.fault)
	assert.ErrorIs(t, parsed.fault.sentinel(), cmisclient.ErrUpdateConflict)
}

func TestFaultSentinels(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"updateConflict", cmisclient.ErrUpdateConflict},
		{"objectNotFound", cmisclient.ErrObjectNotFound},
		{"permissionDenied", cmisclient.ErrPermissionDenied},
		{"invalidArgument", cmisclient.ErrInvalidArgument},
		{"constraint", cmisclient.ErrInvalidArgument},
	}
	for _, tt := range tests {
		f := &soapFault{Code: tt.code}
		assert.ErrorIs(t, f.sentinel(), tt.want, "code %s", tt.code)
	}

	unknown := &soapFault{Code: "storage", Message: "disk full"}
	assert.Error(t, unknown.sentinel())
}

func TestPropertiesXML(t *testing.T) {
	props := cmisclient.PropertySet{
		"drc:document__titel":        {Value: "A <title>", Type: cmisclient.TypeString},
		"drc:document__verwijderd":   {Value: false, Type: cmisclient.TypeBoolean},
		"drc:document__creatiedatum": {Value: time.Date(2024, 7, 9, 10, 0, 0, 0, time.UTC), Type: cmisclient.TypeDateTime},
	}
	got := propertiesXML(props)

	// Sorted by property name, values escaped and typed.
	wantOrder := []string{
		`propertyDateTime propertyDefinitionId="drc:document__creatiedatum"`,
		`propertyString propertyDefinitionId="drc:document__titel"`,
		`propertyBoolean propertyDefinitionId="drc:document__verwijderd"`,
	}
	last := -1
	for _, fragment := range wantOrder {
		idx := strings.Index(got, fragment)
		assert.Greater(t, idx, last, "fragment %s out of order", fragment)
		last = idx
	}
	assert.Contains(t, got, "A &lt;title&gt;")
	assert.Contains(t, got, "2024-07-09T10:00:00Z")
	assert.Contains(t, got, "<cmis:value>false</cmis:value>")
}

func TestMultipartBody(t *testing.T) {
	contentType, body := multipartBody("<env/>", []byte("payload"))
	assert.Contains(t, contentType, "multipart/related")
	assert.Contains(t, contentType, requestBoundary)

	text := string(body)
	assert.Contains(t, text, "Content-ID: <rootMessage>")
	assert.Contains(t, text, "<env/>")
	assert.Contains(t, text, "Content-ID: <"+contentID+">")
	assert.Contains(t, text, "payload")
	assert.True(t, strings.HasSuffix(text, "--"+requestBoundary+"--\r\n"))
}

// fixtureServer answers each CMIS service with a canned or custom handler.
func fixtureServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/"+repositoryService, func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(string(body), "getRepositoryInfo") {
			io.WriteString(w, repositoryInfoResponse)
			return
		}
		io.WriteString(w, repositoriesResponse)
	})
	for service, handler := range handlers {
		mux.HandleFunc("/"+service, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRepositoryInfo(t *testing.T) {
	server := fixtureServer(t, nil)
	b := New(server.URL)

	info, err := b.RepositoryInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "repo-1", info.RepositoryID)
	assert.Equal(t, "workspace://SpacesStore/root-id", info.RootFolderID)
}

func TestQueryRoundTrip(t *testing.T) {
	var gotBody string
	server := fixtureServer(t, map[string]http.HandlerFunc{
		discoveryService: func(w http.ResponseWriter, req *http.Request) {
			assert.Contains(t, req.Header.Get("Content-Type"), "multipart/related")
			body, _ := io.ReadAll(req.Body)
			gotBody = string(body)
			io.WriteString(w, queryResponse)
		},
	})

	b := New(server.URL, WithUsernameToken("admin", "secret"))
	recs, err := b.Query(context.Background(), "SELECT * FROM drc:document WHERE drc:document__uuid = 'u-1'")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "workspace://SpacesStore/d-1;1.0", recs[0].ObjectID)

	// The request envelope carries the statement, escaped, and the
	// credentials header.
	assert.Contains(t, gotBody, "SELECT * FROM drc:document WHERE drc:document__uuid = &#39;u-1&#39;")
	assert.Contains(t, gotBody, "<Username>admin</Username>")
}

func TestCheckOutFault(t *testing.T) {
	server := fixtureServer(t, map[string]http.HandlerFunc{
		versioningService: func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, conflictFaultResponse)
		},
	})

	b := New(server.URL)
	_, err := b.CheckOut(context.Background(), "workspace://SpacesStore/d-1;1.0")
	assert.ErrorIs(t, err, cmisclient.ErrUpdateConflict)
}

func TestGetContentStream(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("file data"))
	response := `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <getContentStreamResponse>
      <contentStream>
        <mimeType>text/plain</mimeType>
        <stream>` + payload + `</stream>
      </contentStream>
    </getContentStreamResponse>
  </soap:Body>
</soap:Envelope>`

	server := fixtureServer(t, map[string]http.HandlerFunc{
		objectService: func(w http.ResponseWriter, req *http.Request) {
			io.WriteString(w, response)
		},
	})

	b := New(server.URL)
	stream, err := b.GetContentStream(context.Background(), "workspace://SpacesStore/d-1;1.0")
	require.NoError(t, err)
	defer stream.Close()
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "file data", string(data))
}
