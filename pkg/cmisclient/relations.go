package cmisclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// urlUUID extracts the trailing uuid segment of a resource URL.
func urlUUID(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// Oio wraps a document-to-case relation object.
type Oio struct {
	Object
}

// Gebruiksrechten wraps a usage rights object.
type Gebruiksrechten struct {
	Object
}

// Verzending wraps a dispatch record object.
type Verzending struct {
	Object
}

// QueryOios returns the relation objects matching the domain-keyed filters.
func (c *Client) QueryOios(ctx context.Context, filters map[string]any) ([]*Oio, error) {
	recs, err := c.queryKind(ctx, queryOios, KindOio, filters)
	if err != nil {
		return nil, err
	}
	out := make([]*Oio, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &Oio{newObject(rec, KindOio, c.bind)})
	}
	return out, nil
}

// QueryGebruiksrechten returns the usage rights objects matching the
// domain-keyed filters.
func (c *Client) QueryGebruiksrechten(ctx context.Context, filters map[string]any) ([]*Gebruiksrechten, error) {
	recs, err := c.queryKind(ctx, queryGebruiksrechten, KindGebruiksrechten, filters)
	if err != nil {
		return nil, err
	}
	out := make([]*Gebruiksrechten, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &Gebruiksrechten{newObject(rec, KindGebruiksrechten, c.bind)})
	}
	return out, nil
}

// QueryVerzendingen returns the dispatch records matching the domain-keyed
// filters.
func (c *Client) QueryVerzendingen(ctx context.Context, filters map[string]any) ([]*Verzending, error) {
	recs, err := c.queryKind(ctx, queryVerzendingen, KindVerzending, filters)
	if err != nil {
		return nil, err
	}
	out := make([]*Verzending, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &Verzending{newObject(rec, KindVerzending, c.bind)})
	}
	return out, nil
}

func (c *Client) queryKind(ctx context.Context, q Query, kind ObjectKind, filters map[string]any) ([]ObjectRecord, error) {
	predicates := BuildFilters(kind, filters)
	if predicates == "" {
		return nil, fmt.Errorf("%w: at least one filter is required", ErrInvalidArgument)
	}
	return c.bind.Query(ctx, q.Statement(predicates))
}

// createRelated creates a contentless secondary object of the given kind in
// the target folder.
func (c *Client) createRelated(ctx context.Context, folder *Folder, kind ObjectKind, data map[string]any) (ObjectRecord, error) {
	values := make(map[string]any, len(data)+1)
	for k, v := range data {
		values[k] = v
	}
	if _, ok := values["uuid"]; !ok {
		values["uuid"] = uuid.NewString()
	}

	props := c.buildProperties(kind, values)
	props["cmis:objectTypeId"] = Property{Value: c.objectTypeID(kind), Type: TypeID}
	props["cmis:name"] = Property{Value: uniqueName(fmt.Sprint(values["uuid"])), Type: TypeString}

	return c.bind.CreateDocument(ctx, folder.ObjectID(), props, nil, "")
}

// relatedDataFolderFor returns the "Related data" folder belonging to the
// place a document is filed: the sibling of a temp "Documents" folder, or a
// child of a case folder.
func (c *Client) relatedDataFolderFor(ctx context.Context, doc *Document) (*Folder, error) {
	parents, err := doc.ParentFolders(ctx)
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 {
		return nil, ErrFolderNotFound
	}
	parent := parents[0]
	if parent.Name() == documentsFolderName {
		grandparents, err := parent.ParentFolders(ctx)
		if err != nil {
			return nil, err
		}
		if len(grandparents) == 0 {
			return nil, ErrFolderNotFound
		}
		parent = grandparents[0]
	}
	return c.RelatedDataFolder(ctx, parent)
}

// CreateGebruiksrechten creates a usage rights object next to the document
// it belongs to and flags the document accordingly.
func (c *Client) CreateGebruiksrechten(ctx context.Context, data map[string]any) (*Gebruiksrechten, error) {
	ioURL, _ := data["informatieobject"].(string)
	if ioURL == "" {
		return nil, fmt.Errorf("%w: informatieobject is required", ErrInvalidArgument)
	}
	doc, err := c.GetDocument(ctx, urlUUID(ioURL), false)
	if err != nil {
		return nil, err
	}
	folder, err := c.relatedDataFolderFor(ctx, doc)
	if err != nil {
		return nil, err
	}
	rec, err := c.createRelated(ctx, folder, KindGebruiksrechten, data)
	if err != nil {
		return nil, err
	}
	return &Gebruiksrechten{newObject(rec, KindGebruiksrechten, c.bind)}, nil
}

// CreateVerzending creates a dispatch record next to the document it belongs
// to.
func (c *Client) CreateVerzending(ctx context.Context, data map[string]any) (*Verzending, error) {
	ioURL, _ := data["informatieobject"].(string)
	if ioURL == "" {
		return nil, fmt.Errorf("%w: informatieobject is required", ErrInvalidArgument)
	}
	doc, err := c.GetDocument(ctx, urlUUID(ioURL), false)
	if err != nil {
		return nil, err
	}
	folder, err := c.relatedDataFolderFor(ctx, doc)
	if err != nil {
		return nil, err
	}
	rec, err := c.createRelated(ctx, folder, KindVerzending, data)
	if err != nil {
		return nil, err
	}
	return &Verzending{newObject(rec, KindVerzending, c.bind)}, nil
}

// CreateOio relates a document to a case (zaak) or decision (besluit) and
// files the document in the case folder. The first relation moves the
// document there; every further relation files a copy instead, marked with
// the uuid it was copied from. Usage rights follow the document either way.
func (c *Client) CreateOio(ctx context.Context, data map[string]any) (*Oio, error) {
	if c.resolver == nil {
		return nil, fmt.Errorf("%w: relation resolver is required for oio operations", ErrInvalidArgument)
	}
	ioURL, _ := data["informatieobject"].(string)
	if ioURL == "" {
		return nil, fmt.Errorf("%w: informatieobject is required", ErrInvalidArgument)
	}

	zaakURL, err := c.resolveZaakURL(ctx, data)
	if err != nil {
		return nil, err
	}
	zaak, err := c.resolver.Zaak(ctx, zaakURL)
	if err != nil {
		return nil, err
	}
	zaaktype, err := c.resolver.ZaakType(ctx, zaak.ZaakTypeURL)
	if err != nil {
		return nil, err
	}
	target, err := c.ZaakDayFolder(ctx, zaak, zaaktype)
	if err != nil {
		return nil, err
	}

	doc, err := c.GetDocument(ctx, urlUUID(ioURL), false)
	if err != nil {
		return nil, err
	}
	existing, err := c.QueryOios(ctx, map[string]any{"informatieobject": ioURL})
	if err != nil {
		return nil, err
	}
	rights, err := c.QueryGebruiksrechten(ctx, map[string]any{"informatieobject": ioURL})
	if err != nil {
		return nil, err
	}

	relatedData, err := c.RelatedDataFolder(ctx, target)
	if err != nil {
		return nil, err
	}

	if len(existing) == 0 {
		c.logger.Info("filing document in case folder", "uuid", doc.UUID(), "zaak", zaak.Identificatie)
		if err := doc.MoveTo(ctx, target); err != nil {
			return nil, err
		}
		for _, g := range rights {
			if err := g.MoveTo(ctx, relatedData); err != nil {
				return nil, err
			}
		}
	} else {
		c.logger.Info("copying document into case folder", "uuid", doc.UUID(), "zaak", zaak.Identificatie)
		if _, err := c.copyDocument(ctx, doc, target); err != nil {
			return nil, err
		}
		for _, g := range rights {
			if _, err := c.copyGebruiksrechten(ctx, g, relatedData); err != nil {
				return nil, err
			}
		}
	}

	rec, err := c.createRelated(ctx, relatedData, KindOio, data)
	if err != nil {
		return nil, err
	}
	return &Oio{newObject(rec, KindOio, c.bind)}, nil
}

// resolveZaakURL returns the case URL an oio targets, following a besluit
// relation to its case when needed.
func (c *Client) resolveZaakURL(ctx context.Context, data map[string]any) (string, error) {
	objectType, _ := data["object_type"].(string)
	switch objectType {
	case "zaak":
		zaakURL, _ := data["zaak"].(string)
		if zaakURL == "" {
			return "", fmt.Errorf("%w: zaak is required", ErrInvalidArgument)
		}
		return zaakURL, nil
	case "besluit":
		besluitURL, _ := data["besluit"].(string)
		if besluitURL == "" {
			return "", fmt.Errorf("%w: besluit is required", ErrInvalidArgument)
		}
		besluit, err := c.resolver.Besluit(ctx, besluitURL)
		if err != nil {
			return "", err
		}
		return besluit.ZaakURL, nil
	default:
		return "", fmt.Errorf("%w: unsupported object_type %q", ErrInvalidArgument, objectType)
	}
}

// copyDocument files a copy of the document's latest version in the target
// folder. The copy gets a fresh uuid, records the original's uuid and never
// inherits its lock.
func (c *Client) copyDocument(ctx context.Context, doc *Document, folder *Folder) (*Document, error) {
	values := domainValues(doc.Record(), KindDocument)
	delete(values, "lock")
	delete(values, "object_type_id")
	original := doc.UUID()
	values["uuid"] = uuid.NewString()
	values["kopie_van"] = original

	props := c.buildProperties(KindDocument, values)
	props["cmis:objectTypeId"] = Property{Value: c.objectTypeID(KindDocument), Type: TypeID}
	name, _ := values["titel"].(string)
	if name == "" {
		name = fmt.Sprint(values["uuid"])
	}
	props["cmis:name"] = Property{Value: uniqueName(name), Type: TypeString}

	content, err := doc.ContentStream(ctx)
	if err != nil {
		return nil, err
	}
	if content != nil {
		defer content.Close()
	}
	filename, _ := values["bestandsnaam"].(string)

	rec, err := c.bind.CreateDocument(ctx, folder.ObjectID(), props, content, filename)
	if err != nil {
		return nil, err
	}
	return newDocument(rec, c.bind), nil
}

// copyGebruiksrechten files a copy of a usage rights object in the target
// folder, marked with the original's uuid.
func (c *Client) copyGebruiksrechten(ctx context.Context, g *Gebruiksrechten, folder *Folder) (*Gebruiksrechten, error) {
	values := domainValues(g.Record(), KindGebruiksrechten)
	delete(values, "object_type_id")
	original := g.UUID()
	values["uuid"] = uuid.NewString()
	values["kopie_van"] = original

	rec, err := c.createRelated(ctx, folder, KindGebruiksrechten, values)
	if err != nil {
		return nil, err
	}
	return &Gebruiksrechten{newObject(rec, KindGebruiksrechten, c.bind)}, nil
}

// DeleteOio removes a relation object by uuid.
func (c *Client) DeleteOio(ctx context.Context, oioUUID string) error {
	oios, err := c.QueryOios(ctx, map[string]any{"uuid": oioUUID})
	if err != nil {
		return err
	}
	if len(oios) == 0 {
		return fmt.Errorf("%w: oio %s", ErrObjectNotFound, oioUUID)
	}
	return oios[0].Delete(ctx)
}

// DeleteGebruiksrechten removes a usage rights object by uuid.
func (c *Client) DeleteGebruiksrechten(ctx context.Context, gUUID string) error {
	rights, err := c.QueryGebruiksrechten(ctx, map[string]any{"uuid": gUUID})
	if err != nil {
		return err
	}
	if len(rights) == 0 {
		return fmt.Errorf("%w: gebruiksrechten %s", ErrObjectNotFound, gUUID)
	}
	return rights[0].Delete(ctx)
}

// DeleteVerzending removes a dispatch record by uuid.
func (c *Client) DeleteVerzending(ctx context.Context, vUUID string) error {
	verzendingen, err := c.QueryVerzendingen(ctx, map[string]any{"uuid": vUUID})
	if err != nil {
		return err
	}
	if len(verzendingen) == 0 {
		return fmt.Errorf("%w: verzending %s", ErrObjectNotFound, vUUID)
	}
	return verzendingen[0].Delete(ctx)
}
