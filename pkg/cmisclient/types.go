package cmisclient

import (
	"strings"
	"time"
)

// PropertyType is the repository-native scalar type of a property.
type PropertyType string

// Property type constants (typed).
const (
	TypeString   PropertyType = "string"
	TypeInteger  PropertyType = "integer"
	TypeDecimal  PropertyType = "decimal"
	TypeBoolean  PropertyType = "boolean"
	TypeDateTime PropertyType = "datetime"
	TypeID       PropertyType = "id"
)

// BaseType discriminates the fundamental CMIS object categories.
type BaseType string

const (
	BaseTypeFolder   BaseType = "cmis:folder"
	BaseTypeDocument BaseType = "cmis:document"
)

// ObjectKind identifies the domain object kind an entity wrapper exposes.
// Each kind has its own property map and repository table.
type ObjectKind string

const (
	KindDocument        ObjectKind = "document"
	KindGebruiksrechten ObjectKind = "gebruiksrechten"
	KindOio             ObjectKind = "oio"
	KindVerzending      ObjectKind = "verzending"
	KindFolder          ObjectKind = "folder"
	KindZaakFolder      ObjectKind = "zaakfolder"
	KindZaakTypeFolder  ObjectKind = "zaaktypefolder"
)

// Property is a single typed property value as stored in the repository.
type Property struct {
	Value any
	Type  PropertyType
}

// PropertySet is the unit of property reads and writes across both bindings.
// Keys are repository-qualified names (e.g. "drc:document__titel").
type PropertySet map[string]Property

// ObjectRecord is the binding-neutral result of every transport call: one
// repository object, identified by its objectId (unique per version).
// Records are immutable once constructed; mutating operations always return
// a new record.
type ObjectRecord struct {
	ObjectID   string
	BaseType   BaseType
	Properties PropertySet
}

// Prop returns the raw property value for a qualified name.
func (r ObjectRecord) Prop(name string) (any, bool) {
	p, ok := r.Properties[name]
	if !ok || p.Value == nil {
		return nil, false
	}
	return p.Value, true
}

// StringProp returns a string property value, or "" if absent or not a string.
func (r ObjectRecord) StringProp(name string) (string, bool) {
	v, ok := r.Prop(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// BoolProp returns a boolean property value. String representations
// ("true"/"false") are accepted since the SOAP binding transports booleans
// as text.
func (r ObjectRecord) BoolProp(name string) (bool, bool) {
	v, ok := r.Prop(name)
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		return strings.EqualFold(b, "true"), true
	}
	return false, false
}

// TimeProp returns a datetime property value.
func (r ObjectRecord) TimeProp(name string) (time.Time, bool) {
	v, ok := r.Prop(name)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

// RepositoryInfo describes the remote repository a binding is connected to.
type RepositoryInfo struct {
	RepositoryID string
	RootFolderID string
}

// ZaakInfo carries the case (zaak) fields needed for folder placement.
type ZaakInfo struct {
	URL             string
	Identificatie   string
	Bronorganisatie string
	ZaakTypeURL     string
}

// ZaakTypeInfo carries the case-type (zaaktype) fields needed for folder
// placement.
type ZaakTypeInfo struct {
	URL           string
	Identificatie string
	Omschrijving  string
}

// BesluitInfo carries the decision (besluit) fields needed to resolve the
// zaak a besluit belongs to.
type BesluitInfo struct {
	URL     string
	ZaakURL string
}
