// Package memory provides an in-memory Binding implementation with the
// version-series semantics the client relies on: checkout/checkin, private
// working copies, folder containment and a CMIS SQL subset for queries. It
// backs the test suites and local development.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/cmis-client/pkg/cmisclient"
)

const idPrefix = "workspace://SpacesStore/"

var _ cmisclient.Binding = (*Repo)(nil)

// object is one repository node: a folder, a document version or a private
// working copy.
type object struct {
	id       string // bare node uuid
	label    string // version label, "" for folders
	seriesID string // shared across versions of one document
	baseType cmisclient.BaseType
	parentID string
	props    cmisclient.PropertySet
	content  []byte
	filename string
}

func (o *object) objectID() string {
	if o.label == "" {
		return idPrefix + o.id
	}
	return idPrefix + o.id + ";" + o.label
}

func (o *object) record() cmisclient.ObjectRecord {
	props := make(cmisclient.PropertySet, len(o.props))
	for k, v := range o.props {
		props[k] = v
	}
	return cmisclient.ObjectRecord{
		ObjectID:   o.objectID(),
		BaseType:   o.baseType,
		Properties: props,
	}
}

// series tracks the version history of one document.
type series struct {
	id       string
	major    int
	versions []*object // newest first, working copy excluded
	pwc      *object
}

// Repo is an in-memory CMIS repository.
type Repo struct {
	mu      sync.Mutex
	repoID  string
	rootID  string
	objects map[string]*object // bare node uuid -> object
	series  map[string]*series
}

// New creates an empty repository with a root folder.
func New() *Repo {
	rootID := uuid.NewString()
	r := &Repo{
		repoID:  uuid.NewString(),
		rootID:  rootID,
		objects: make(map[string]*object),
		series:  make(map[string]*series),
	}
	r.objects[rootID] = &object{
		id:       rootID,
		baseType: cmisclient.BaseTypeFolder,
		props: cmisclient.PropertySet{
			"cmis:name":         {Value: "Company Home", Type: cmisclient.TypeString},
			"cmis:objectTypeId": {Value: "cmis:folder", Type: cmisclient.TypeID},
		},
	}
	return r
}

func (r *Repo) RepositoryInfo(ctx context.Context) (*cmisclient.RepositoryInfo, error) {
	return &cmisclient.RepositoryInfo{
		RepositoryID: r.repoID,
		RootFolderID: idPrefix + r.rootID,
	}, nil
}

// resolve looks up a node by objectId. Document ids without a version label
// resolve to the latest version of their series.
func (r *Repo) resolve(objectID string) (*object, error) {
	s := strings.TrimPrefix(objectID, idPrefix)
	bare := s
	label := ""
	if i := strings.Index(s, ";"); i >= 0 {
		bare, label = s[:i], s[i+1:]
	}
	if o, ok := r.objects[bare]; ok {
		if label == "" || o.label == label {
			return o, nil
		}
		// A stale label on a known node: answer from its series.
		if ser, ok := r.series[o.seriesID]; ok {
			for _, v := range ser.versions {
				if v.label == label {
					return v, nil
				}
			}
			if ser.pwc != nil && label == "pwc" {
				return ser.pwc, nil
			}
		}
	}
	// A series uuid with a label names that version; without one, the
	// latest version.
	if ser, ok := r.series[bare]; ok {
		if label == "" || label == "latest" {
			if len(ser.versions) > 0 {
				return ser.versions[0], nil
			}
		}
		for _, v := range ser.versions {
			if v.label == label {
				return v, nil
			}
		}
		if ser.pwc != nil && (label == "pwc" || label == "") {
			return ser.pwc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", cmisclient.ErrObjectNotFound, objectID)
}

func (r *Repo) folder(objectID string) (*object, error) {
	o, err := r.resolve(objectID)
	if err != nil {
		return nil, err
	}
	if o.baseType != cmisclient.BaseTypeFolder {
		return nil, fmt.Errorf("%w: %s is not a folder", cmisclient.ErrInvalidArgument, objectID)
	}
	return o, nil
}

func (r *Repo) CreateFolder(ctx context.Context, parentID string, props cmisclient.PropertySet) (cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, err := r.folder(parentID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	o := &object{
		id:       uuid.NewString(),
		baseType: cmisclient.BaseTypeFolder,
		parentID: parent.id,
		props:    clone(props),
	}
	r.objects[o.id] = o
	return o.record(), nil
}

func (r *Repo) CreateDocument(ctx context.Context, folderID string, props cmisclient.PropertySet, content io.Reader, filename string) (cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, err := r.folder(folderID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	var data []byte
	if content != nil {
		data, err = io.ReadAll(content)
		if err != nil {
			return cmisclient.ObjectRecord{}, err
		}
	}

	ser := &series{id: uuid.NewString(), major: 1}
	o := &object{
		id:       uuid.NewString(),
		label:    "1.0",
		seriesID: ser.id,
		baseType: cmisclient.BaseTypeDocument,
		parentID: parent.id,
		props:    clone(props),
		content:  data,
		filename: filename,
	}
	o.props["cmis:versionLabel"] = cmisclient.Property{Value: "1.0", Type: cmisclient.TypeString}
	o.props["cmis:versionSeriesId"] = cmisclient.Property{Value: idPrefix + ser.id, Type: cmisclient.TypeID}
	o.props["cmis:isPrivateWorkingCopy"] = cmisclient.Property{Value: false, Type: cmisclient.TypeBoolean}
	o.props["cmis:isVersionSeriesCheckedOut"] = cmisclient.Property{Value: false, Type: cmisclient.TypeBoolean}
	if _, ok := o.props["cmis:contentStreamLength"]; !ok {
		o.props["cmis:contentStreamLength"] = cmisclient.Property{Value: len(data), Type: cmisclient.TypeInteger}
	}

	ser.versions = []*object{o}
	r.series[ser.id] = ser
	r.objects[o.id] = o
	return o.record(), nil
}

func (r *Repo) GetObject(ctx context.Context, objectID string) (cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	return o.record(), nil
}

func (r *Repo) GetObjectParents(ctx context.Context, objectID string) ([]cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return nil, err
	}
	if o.parentID == "" {
		return nil, nil
	}
	parent, ok := r.objects[o.parentID]
	if !ok {
		return nil, nil
	}
	return []cmisclient.ObjectRecord{parent.record()}, nil
}

func (r *Repo) GetAllVersions(ctx context.Context, objectID string) ([]cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return nil, err
	}
	ser, ok := r.series[o.seriesID]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no version series", cmisclient.ErrObjectNotFound, objectID)
	}
	var recs []cmisclient.ObjectRecord
	if ser.pwc != nil {
		recs = append(recs, ser.pwc.record())
	}
	for _, v := range ser.versions {
		recs = append(recs, v.record())
	}
	return recs, nil
}

func (r *Repo) CheckOut(ctx context.Context, objectID string) (cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	ser, ok := r.series[o.seriesID]
	if !ok {
		return cmisclient.ObjectRecord{}, fmt.Errorf("%w: %s is not versionable", cmisclient.ErrInvalidArgument, objectID)
	}
	if ser.pwc != nil {
		return cmisclient.ObjectRecord{}, fmt.Errorf("%w: series %s is already checked out", cmisclient.ErrUpdateConflict, ser.id)
	}

	latest := ser.versions[0]
	pwc := &object{
		id:       uuid.NewString(),
		label:    "pwc",
		seriesID: ser.id,
		baseType: cmisclient.BaseTypeDocument,
		parentID: latest.parentID,
		props:    clone(latest.props),
		content:  append([]byte(nil), latest.content...),
		filename: latest.filename,
	}
	pwc.props["cmis:versionLabel"] = cmisclient.Property{Value: "pwc", Type: cmisclient.TypeString}
	pwc.props["cmis:isPrivateWorkingCopy"] = cmisclient.Property{Value: true, Type: cmisclient.TypeBoolean}

	ser.pwc = pwc
	r.objects[pwc.id] = pwc
	r.markCheckedOut(ser, true)
	return pwc.record(), nil
}

func (r *Repo) markCheckedOut(ser *series, checkedOut bool) {
	var pwcID any
	if checkedOut && ser.pwc != nil {
		pwcID = ser.pwc.objectID()
	}
	all := append([]*object{}, ser.versions...)
	if ser.pwc != nil {
		all = append(all, ser.pwc)
	}
	for _, v := range all {
		v.props["cmis:isVersionSeriesCheckedOut"] = cmisclient.Property{Value: checkedOut, Type: cmisclient.TypeBoolean}
		if pwcID != nil {
			v.props["cmis:versionSeriesCheckedOutId"] = cmisclient.Property{Value: pwcID, Type: cmisclient.TypeID}
		} else {
			delete(v.props, "cmis:versionSeriesCheckedOutId")
		}
	}
}

func (r *Repo) CheckIn(ctx context.Context, objectID, comment string, major bool) (cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	ser, ok := r.series[o.seriesID]
	if !ok || ser.pwc == nil || ser.pwc != o {
		return cmisclient.ObjectRecord{}, fmt.Errorf("%w: %s is not a private working copy", cmisclient.ErrUpdateConflict, objectID)
	}

	var label string
	if major {
		ser.major++
		label = fmt.Sprintf("%d.0", ser.major)
	} else {
		label = fmt.Sprintf("%d.%d", ser.major, len(ser.versions))
	}

	o.label = label
	o.props["cmis:versionLabel"] = cmisclient.Property{Value: label, Type: cmisclient.TypeString}
	o.props["cmis:isPrivateWorkingCopy"] = cmisclient.Property{Value: false, Type: cmisclient.TypeBoolean}
	if comment != "" {
		o.props["cmis:checkinComment"] = cmisclient.Property{Value: comment, Type: cmisclient.TypeString}
	}

	ser.versions = append([]*object{o}, ser.versions...)
	ser.pwc = nil
	r.markCheckedOut(ser, false)
	return o.record(), nil
}

func (r *Repo) CancelCheckOut(ctx context.Context, objectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return err
	}
	ser, ok := r.series[o.seriesID]
	if !ok || ser.pwc == nil {
		return fmt.Errorf("%w: series is not checked out", cmisclient.ErrUpdateConflict)
	}
	delete(r.objects, ser.pwc.id)
	ser.pwc = nil
	r.markCheckedOut(ser, false)
	return nil
}

func (r *Repo) UpdateProperties(ctx context.Context, objectID string, props cmisclient.PropertySet) (cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	for k, v := range props {
		o.props[k] = v
	}
	return o.record(), nil
}

func (r *Repo) SetContentStream(ctx context.Context, objectID string, content io.Reader, filename string) (cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	o.content = data
	o.filename = filename
	o.props["cmis:contentStreamLength"] = cmisclient.Property{Value: len(data), Type: cmisclient.TypeInteger}
	return o.record(), nil
}

func (r *Repo) GetContentStream(ctx context.Context, objectID string) (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), o.content...))), nil
}

func (r *Repo) MoveObject(ctx context.Context, objectID, sourceFolderID, targetFolderID string) (cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	source, err := r.folder(sourceFolderID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	target, err := r.folder(targetFolderID)
	if err != nil {
		return cmisclient.ObjectRecord{}, err
	}
	if o.parentID != source.id {
		return cmisclient.ObjectRecord{}, fmt.Errorf("%w: %s is not filed in %s", cmisclient.ErrInvalidArgument, objectID, sourceFolderID)
	}

	// Moving a document moves its whole series, working copy included.
	if ser, ok := r.series[o.seriesID]; ok {
		for _, v := range ser.versions {
			v.parentID = target.id
		}
		if ser.pwc != nil {
			ser.pwc.parentID = target.id
		}
	} else {
		o.parentID = target.id
	}
	return o.record(), nil
}

func (r *Repo) DeleteObject(ctx context.Context, objectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.resolve(objectID)
	if err != nil {
		return err
	}
	if ser, ok := r.series[o.seriesID]; ok {
		if ser.pwc != nil {
			return fmt.Errorf("%w: series is checked out", cmisclient.ErrUpdateConflict)
		}
		for _, v := range ser.versions {
			delete(r.objects, v.id)
		}
		delete(r.series, ser.id)
		return nil
	}
	if o.id == r.rootID {
		return fmt.Errorf("%w: cannot delete the root folder", cmisclient.ErrInvalidArgument)
	}
	delete(r.objects, o.id)
	return nil
}

func (r *Repo) DeleteTree(ctx context.Context, folderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	folder, err := r.folder(folderID)
	if err != nil {
		return err
	}
	if folder.id == r.rootID {
		return fmt.Errorf("%w: cannot delete the root folder", cmisclient.ErrInvalidArgument)
	}
	r.deleteRecursive(folder.id)
	return nil
}

func (r *Repo) deleteRecursive(folderID string) {
	var children []*object
	for _, o := range r.objects {
		if o.parentID == folderID {
			children = append(children, o)
		}
	}
	for _, child := range children {
		if child.baseType == cmisclient.BaseTypeFolder {
			r.deleteRecursive(child.id)
			delete(r.objects, child.id)
			continue
		}
		if ser, ok := r.series[child.seriesID]; ok {
			for _, v := range ser.versions {
				delete(r.objects, v.id)
			}
			if ser.pwc != nil {
				delete(r.objects, ser.pwc.id)
			}
			delete(r.series, ser.id)
			continue
		}
		delete(r.objects, child.id)
	}
	delete(r.objects, folderID)
}

func (r *Repo) Query(ctx context.Context, statement string) ([]cmisclient.ObjectRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, err := parseStatement(statement)
	if err != nil {
		return nil, err
	}

	candidates := r.candidates(q.table)
	var out []cmisclient.ObjectRecord
	for _, o := range candidates {
		if q.matches(o) {
			out = append(out, o.record())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	return out, nil
}

// candidates returns the queryable nodes of a table: folders for folder
// tables, the latest version of every matching document series otherwise.
func (r *Repo) candidates(table string) []*object {
	var out []*object
	if table == "cmis:folder" || strings.HasSuffix(table, "folder") {
		for _, o := range r.objects {
			if o.baseType != cmisclient.BaseTypeFolder {
				continue
			}
			if typeMatches(o, table) {
				out = append(out, o)
			}
		}
		return out
	}
	for _, ser := range r.series {
		if len(ser.versions) == 0 {
			continue
		}
		latest := ser.versions[0]
		if typeMatches(latest, table) {
			out = append(out, latest)
		}
	}
	return out
}

// typeMatches compares a node's objectTypeId with a table name, ignoring
// vendor prefixes. cmis:folder matches any folder.
func typeMatches(o *object, table string) bool {
	if table == "cmis:folder" {
		return o.baseType == cmisclient.BaseTypeFolder
	}
	typeID, _ := o.record().StringProp("cmis:objectTypeId")
	typeID = strings.TrimPrefix(strings.TrimPrefix(typeID, "D:"), "F:")
	return typeID == table
}

func clone(props cmisclient.PropertySet) cmisclient.PropertySet {
	out := make(cmisclient.PropertySet, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
