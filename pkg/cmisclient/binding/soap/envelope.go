package soap

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/tendant/cmis-client/pkg/cmisclient"
)

// Fixed multipart boundary for request bodies. The repository only cares
// that the Content-Type header and the body agree.
const requestBoundary = "----=_Part_cmisclient_0"

const contentID = "content-stream"

const (
	soapNS  = "http://schemas.xmlsoap.org/soap/envelope/"
	cmismNS = "http://docs.oasis-open.org/ns/cmis/messaging/200908/"
	cmisNS  = "http://docs.oasis-open.org/ns/cmis/core/200908/"
	wsseNS  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	xopNS   = "http://www.w3.org/2004/08/xop/include"
)

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// envelope wraps a messaging body element in a SOAP 1.1 envelope, with a
// WS-Security username token when credentials are set.
func envelope(username, password, body string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="` + soapNS + `" xmlns:ns="` + cmismNS + `" xmlns:cmis="` + cmisNS + `">`)
	if username != "" {
		b.WriteString(`<soapenv:Header><Security xmlns="` + wsseNS + `"><UsernameToken>`)
		b.WriteString(`<Username>` + escape(username) + `</Username>`)
		b.WriteString(`<Password>` + escape(password) + `</Password>`)
		b.WriteString(`</UsernameToken></Security></soapenv:Header>`)
	}
	b.WriteString(`<soapenv:Body>`)
	b.WriteString(body)
	b.WriteString(`</soapenv:Body></soapenv:Envelope>`)
	return b.String()
}

// propertyElement returns the messaging element name for a property type.
func propertyElement(t cmisclient.PropertyType) string {
	switch t {
	case cmisclient.TypeInteger:
		return "propertyInteger"
	case cmisclient.TypeDecimal:
		return "propertyDecimal"
	case cmisclient.TypeBoolean:
		return "propertyBoolean"
	case cmisclient.TypeDateTime:
		return "propertyDateTime"
	case cmisclient.TypeID:
		return "propertyId"
	default:
		return "propertyString"
	}
}

// propertiesXML renders a property set as a cmis:properties element.
// Iteration is sorted so request bodies are reproducible.
func propertiesXML(props cmisclient.PropertySet) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(`<ns:properties>`)
	for _, name := range names {
		p := props[name]
		elem := propertyElement(p.Type)
		b.WriteString(`<cmis:` + elem + ` propertyDefinitionId="` + escape(name) + `">`)
		b.WriteString(`<cmis:value>` + escape(propertyText(p)) + `</cmis:value>`)
		b.WriteString(`</cmis:` + elem + `>`)
	}
	b.WriteString(`</ns:properties>`)
	return b.String()
}

func propertyText(p cmisclient.Property) string {
	switch v := p.Value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// contentStreamXML renders a contentStream element referencing a MIME
// attachment by Content-ID.
func contentStreamXML(filename string) string {
	if filename == "" {
		filename = "content"
	}
	var b strings.Builder
	b.WriteString(`<ns:contentStream>`)
	b.WriteString(`<ns:mimeType>application/octet-stream</ns:mimeType>`)
	b.WriteString(`<ns:filename>` + escape(filename) + `</ns:filename>`)
	b.WriteString(`<ns:stream><inc:Include xmlns:inc="` + xopNS + `" href="cid:` + contentID + `"/></ns:stream>`)
	b.WriteString(`</ns:contentStream>`)
	return b.String()
}

// multipartBody assembles a multipart/related request body: the envelope as
// the root part, plus an optional binary attachment.
func multipartBody(env string, attachment []byte) (contentType string, body []byte) {
	var b strings.Builder
	b.WriteString("--" + requestBoundary + "\r\n")
	b.WriteString("Content-Type: text/xml; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("Content-ID: <rootMessage>\r\n\r\n")
	b.WriteString(env)
	b.WriteString("\r\n")
	if attachment != nil {
		b.WriteString("--" + requestBoundary + "\r\n")
		b.WriteString("Content-Type: application/octet-stream\r\n")
		b.WriteString("Content-Transfer-Encoding: binary\r\n")
		b.WriteString("Content-ID: <" + contentID + ">\r\n\r\n")
		b.Write(attachment)
		b.WriteString("\r\n")
	}
	b.WriteString("--" + requestBoundary + "--\r\n")

	contentType = `multipart/related; boundary="` + requestBoundary + `"; type="text/xml"; start="<rootMessage>"`
	return contentType, []byte(b.String())
}

// soapFault is the fault detail extracted from an error response.
type soapFault struct {
	Code    string
	Message string
}

// sentinel maps the CMIS fault type to the package error taxonomy.
func (f *soapFault) sentinel() error {
	switch {
	case strings.Contains(f.Code, "updateConflict"), strings.Contains(f.Code, "versioning"):
		return cmisclient.ErrUpdateConflict
	case strings.Contains(f.Code, "objectNotFound"):
		return cmisclient.ErrObjectNotFound
	case strings.Contains(f.Code, "permissionDenied"), strings.Contains(f.Code, "notAuthorized"):
		return cmisclient.ErrPermissionDenied
	case strings.Contains(f.Code, "invalidArgument"), strings.Contains(f.Code, "constraint"):
		return cmisclient.ErrInvalidArgument
	default:
		return fmt.Errorf("cmis fault %s: %s", f.Code, f.Message)
	}
}

// parsedResponse is the walk result of one response envelope.
type parsedResponse struct {
	records []cmisclient.ObjectRecord
	// scalar elements collected outside property lists, e.g. objectId,
	// repositoryId, rootFolderId, numItems.
	scalars map[string]string
	stream  []byte
	fault   *soapFault
}

func (p *parsedResponse) scalar(name string) string {
	return p.scalars[name]
}

// parseResponse walks a response envelope with a token decoder. Objects are
// recognized by their cmis:properties element; property values are converted
// to native types by element name.
func parseResponse(r io.Reader) (*parsedResponse, error) {
	out := &parsedResponse{scalars: make(map[string]string)}
	dec := xml.NewDecoder(r)

	var (
		current     cmisclient.PropertySet
		propName    string
		propType    cmisclient.PropertyType
		inValue     bool
		valueText   strings.Builder
		scalarName  string
		scalarText  strings.Builder
		inFault     bool
		faultField  string
		fault       soapFault
		streamText  strings.Builder
		inStream    bool
	)

	finishProperty := func() {
		if propName == "" {
			return
		}
		text := valueText.String()
		current[propName] = cmisclient.Property{Value: convertText(text, propType), Type: propType}
		propName = ""
		valueText.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			switch {
			case local == "Fault":
				inFault = true
			case inFault && (local == "faultcode" || local == "faultstring" || local == "type"):
				faultField = local
				scalarText.Reset()
			case local == "properties":
				current = make(cmisclient.PropertySet)
			case current != nil && strings.HasPrefix(local, "property"):
				propName = attr(t, "propertyDefinitionId")
				propType = elementType(local)
			case propName != "" && local == "value":
				inValue = true
				valueText.Reset()
			case local == "stream":
				inStream = true
				streamText.Reset()
			case current == nil && isScalarElement(local):
				scalarName = local
				scalarText.Reset()
			}

		case xml.CharData:
			if inValue {
				valueText.Write(t)
			}
			if inStream {
				streamText.Write(t)
			}
			if scalarName != "" || faultField != "" {
				scalarText.Write(t)
			}

		case xml.EndElement:
			local := t.Name.Local
			switch {
			case local == "Fault":
				inFault = false
				out.fault = &fault
			case faultField != "":
				switch faultField {
				case "faultcode", "type":
					if fault.Code == "" || faultField == "type" {
						fault.Code = strings.TrimSpace(scalarText.String())
					}
				case "faultstring":
					fault.Message = strings.TrimSpace(scalarText.String())
				}
				faultField = ""
			case local == "value" && inValue:
				inValue = false
				finishProperty()
			case local == "properties" && current != nil:
				out.records = append(out.records, recordFrom(current))
				current = nil
			case local == "stream" && inStream:
				inStream = false
				data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(streamText.String()))
				if err == nil {
					out.stream = data
				}
			case scalarName == local:
				out.scalars[local] = strings.TrimSpace(scalarText.String())
				scalarName = ""
			}
		}
	}
	return out, nil
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func isScalarElement(local string) bool {
	switch local {
	case "objectId", "repositoryId", "rootFolderId", "numItems", "repositoryName":
		return true
	}
	return false
}

func elementType(local string) cmisclient.PropertyType {
	switch local {
	case "propertyInteger":
		return cmisclient.TypeInteger
	case "propertyDecimal":
		return cmisclient.TypeDecimal
	case "propertyBoolean":
		return cmisclient.TypeBoolean
	case "propertyDateTime":
		return cmisclient.TypeDateTime
	case "propertyId":
		return cmisclient.TypeID
	default:
		return cmisclient.TypeString
	}
}

// convertText turns a wire value into its native representation. Datetime
// formats vary between repositories, so parsing is lenient.
func convertText(text string, t cmisclient.PropertyType) any {
	if text == "" {
		return ""
	}
	switch t {
	case cmisclient.TypeInteger:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
	case cmisclient.TypeDecimal:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case cmisclient.TypeBoolean:
		return text == "true"
	case cmisclient.TypeDateTime:
		if ts, err := dateparse.ParseAny(text); err == nil {
			return ts.UTC()
		}
	}
	return text
}

func recordFrom(props cmisclient.PropertySet) cmisclient.ObjectRecord {
	rec := cmisclient.ObjectRecord{Properties: props}
	if id, ok := rec.StringProp("cmis:objectId"); ok {
		rec.ObjectID = id
	} else if v, ok := rec.Prop("cmis:objectId"); ok {
		rec.ObjectID = fmt.Sprint(v)
	}
	if base, ok := rec.Prop("cmis:baseTypeId"); ok {
		rec.BaseType = cmisclient.BaseType(fmt.Sprint(base))
	}
	return rec
}
