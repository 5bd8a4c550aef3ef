package cmisclient_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/cmis-client/pkg/cmisclient"
)

// fakeResolver serves fixed zaak, zaaktype and besluit lookups.
type fakeResolver struct {
	zaken     map[string]*cmisclient.ZaakInfo
	zaaktypen map[string]*cmisclient.ZaakTypeInfo
	besluiten map[string]*cmisclient.BesluitInfo
}

func (r *fakeResolver) Zaak(ctx context.Context, url string) (*cmisclient.ZaakInfo, error) {
	if z, ok := r.zaken[url]; ok {
		return z, nil
	}
	return nil, fmt.Errorf("zaak %s: %w", url, cmisclient.ErrObjectNotFound)
}

func (r *fakeResolver) ZaakType(ctx context.Context, url string) (*cmisclient.ZaakTypeInfo, error) {
	if zt, ok := r.zaaktypen[url]; ok {
		return zt, nil
	}
	return nil, fmt.Errorf("zaaktype %s: %w", url, cmisclient.ErrObjectNotFound)
}

func (r *fakeResolver) Besluit(ctx context.Context, url string) (*cmisclient.BesluitInfo, error) {
	if b, ok := r.besluiten[url]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("besluit %s: %w", url, cmisclient.ErrObjectNotFound)
}

const (
	zaakURL     = "https://zaken.example.com/zaken/z-1"
	zaakTypeURL = "https://catalogus.example.com/zaaktypen/zt-1"
	besluitURL  = "https://besluiten.example.com/besluiten/b-1"
)

func newRelationClient(t *testing.T) *cmisclient.Client {
	t.Helper()
	resolver := &fakeResolver{
		zaken: map[string]*cmisclient.ZaakInfo{
			zaakURL: {
				URL:             zaakURL,
				Identificatie:   "ZAAK-1",
				Bronorganisatie: "123456782",
				ZaakTypeURL:     zaakTypeURL,
			},
		},
		zaaktypen: map[string]*cmisclient.ZaakTypeInfo{
			zaakTypeURL: {
				URL:           zaakTypeURL,
				Identificatie: "ZT-1",
				Omschrijving:  "Melding",
			},
		},
		besluiten: map[string]*cmisclient.BesluitInfo{
			besluitURL: {URL: besluitURL, ZaakURL: zaakURL},
		},
	}
	return newTestClient(t, cmisclient.WithRelationResolver(resolver))
}

func informatieobjectURL(uuid string) string {
	return "https://drc.example.com/enkelvoudiginformatieobjecten/" + uuid
}

// ancestorNames walks the parent chain of a folder, nearest first.
func ancestorNames(t *testing.T, ctx context.Context, folder *cmisclient.Folder, depth int) []string {
	t.Helper()
	var names []string
	current := folder
	for i := 0; i < depth; i++ {
		names = append(names, current.Name())
		parents, err := current.ParentFolders(ctx)
		require.NoError(t, err)
		if len(parents) == 0 {
			break
		}
		current = parents[0]
	}
	return names
}

func TestCreateOioMovesFirstRelation(t *testing.T) {
	ctx := context.Background()
	client := newRelationClient(t)

	doc, err := client.CreateDocument(ctx, documentData("DOC-1"), strings.NewReader("content"), "dummy.txt")
	require.NoError(t, err)
	ioURL := informatieobjectURL(doc.UUID())

	oio, err := client.CreateOio(ctx, map[string]any{
		"informatieobject": ioURL,
		"object_type":      "zaak",
		"zaak":             zaakURL,
	})
	require.NoError(t, err)
	assert.Equal(t, zaakURL, oio.String("zaak"))
	assert.NotEmpty(t, oio.UUID())

	// The document was moved into the case folder's date tree.
	moved, err := client.GetDocument(ctx, doc.UUID(), false)
	require.NoError(t, err)
	parents, err := moved.ParentFolders(ctx)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t,
		[]string{"9", "7", "2024", "zaak-ZAAK-1", "zaaktype-Melding-ZT-1"},
		ancestorNames(t, ctx, parents[0], 5))

	// The relation object sits in the related data folder next to it.
	oioParents, err := oio.ParentFolders(ctx)
	require.NoError(t, err)
	require.Len(t, oioParents, 1)
	assert.Equal(t,
		[]string{"Related data", "9", "7", "2024", "zaak-ZAAK-1"},
		ancestorNames(t, ctx, oioParents[0], 5))
}

func TestCreateOioCopiesSecondRelation(t *testing.T) {
	ctx := context.Background()
	client := newRelationClient(t)

	doc, err := client.CreateDocument(ctx, documentData("DOC-1"), strings.NewReader("content"), "dummy.txt")
	require.NoError(t, err)
	ioURL := informatieobjectURL(doc.UUID())

	_, err = client.CreateOio(ctx, map[string]any{
		"informatieobject": ioURL,
		"object_type":      "zaak",
		"zaak":             zaakURL,
	})
	require.NoError(t, err)

	_, err = client.CreateOio(ctx, map[string]any{
		"informatieobject": ioURL,
		"object_type":      "zaak",
		"zaak":             zaakURL,
	})
	require.NoError(t, err)

	// The second relation filed a copy marked with the original's uuid.
	copies, err := client.QueryDocuments(ctx, map[string]any{"kopie_van": doc.UUID()})
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.NotEqual(t, doc.UUID(), copies[0].UUID())
	assert.Empty(t, copies[0].Lock())

	oios, err := client.QueryOios(ctx, map[string]any{"informatieobject": ioURL})
	require.NoError(t, err)
	assert.Len(t, oios, 2)
}

func TestCreateOioViaBesluit(t *testing.T) {
	ctx := context.Background()
	client := newRelationClient(t)

	doc, err := client.CreateDocument(ctx, documentData("DOC-1"), nil, "")
	require.NoError(t, err)
	ioURL := informatieobjectURL(doc.UUID())

	oio, err := client.CreateOio(ctx, map[string]any{
		"informatieobject": ioURL,
		"object_type":      "besluit",
		"besluit":          besluitURL,
	})
	require.NoError(t, err)
	assert.Equal(t, besluitURL, oio.String("besluit"))

	// The besluit resolves to its case, which decides the folder.
	moved, err := client.GetDocument(ctx, doc.UUID(), false)
	require.NoError(t, err)
	parents, err := moved.ParentFolders(ctx)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Contains(t, ancestorNames(t, ctx, parents[0], 4), "zaak-ZAAK-1")
}

func TestCreateOioInvalidObjectType(t *testing.T) {
	ctx := context.Background()
	client := newRelationClient(t)

	_, err := client.CreateOio(ctx, map[string]any{
		"informatieobject": informatieobjectURL("some-uuid"),
		"object_type":      "verzoek",
	})
	assert.ErrorIs(t, err, cmisclient.ErrInvalidArgument)
}

func TestCreateOioRequiresResolver(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.CreateOio(ctx, map[string]any{
		"informatieobject": informatieobjectURL("some-uuid"),
		"object_type":      "zaak",
		"zaak":             zaakURL,
	})
	assert.ErrorIs(t, err, cmisclient.ErrInvalidArgument)
}

func TestCreateGebruiksrechten(t *testing.T) {
	ctx := context.Background()
	client := newRelationClient(t)

	doc, err := client.CreateDocument(ctx, documentData("DOC-1"), nil, "")
	require.NoError(t, err)
	ioURL := informatieobjectURL(doc.UUID())

	rights, err := client.CreateGebruiksrechten(ctx, map[string]any{
		"informatieobject":         ioURL,
		"omschrijving_voorwaarden": "niet openbaar",
		"startdatum":               time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "niet openbaar", rights.String("omschrijving_voorwaarden"))

	// Filed next to the document, in the related data folder.
	parents, err := rights.ParentFolders(ctx)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, "Related data", parents[0].Name())
}

func TestGebruiksrechtenFollowDocumentOnRelation(t *testing.T) {
	ctx := context.Background()
	client := newRelationClient(t)

	doc, err := client.CreateDocument(ctx, documentData("DOC-1"), nil, "")
	require.NoError(t, err)
	ioURL := informatieobjectURL(doc.UUID())

	_, err = client.CreateGebruiksrechten(ctx, map[string]any{
		"informatieobject":         ioURL,
		"omschrijving_voorwaarden": "intern",
	})
	require.NoError(t, err)

	_, err = client.CreateOio(ctx, map[string]any{
		"informatieobject": ioURL,
		"object_type":      "zaak",
		"zaak":             zaakURL,
	})
	require.NoError(t, err)

	rights, err := client.QueryGebruiksrechten(ctx, map[string]any{"informatieobject": ioURL})
	require.NoError(t, err)
	require.Len(t, rights, 1)

	parents, err := rights[0].ParentFolders(ctx)
	require.NoError(t, err)
	require.Len(t, parents, 1)

	// The folder is the one inside the case folder's date tree now.
	assert.Equal(t,
		[]string{"Related data", "9", "7", "2024", "zaak-ZAAK-1"},
		ancestorNames(t, ctx, parents[0], 5))
}

func TestCreateVerzending(t *testing.T) {
	ctx := context.Background()
	client := newRelationClient(t)

	doc, err := client.CreateDocument(ctx, documentData("DOC-1"), nil, "")
	require.NoError(t, err)

	verzending, err := client.CreateVerzending(ctx, map[string]any{
		"informatieobject": informatieobjectURL(doc.UUID()),
		"betrokkene":       "https://personen.example.com/p-1",
		"aard_relatie":     "geadresseerde",
		"verzenddatum":     time.Date(2024, 7, 8, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "geadresseerde", verzending.String("aard_relatie"))
}

func TestDeleteVerzending(t *testing.T) {
	ctx := context.Background()
	client := newRelationClient(t)

	doc, err := client.CreateDocument(ctx, documentData("DOC-1"), nil, "")
	require.NoError(t, err)
	ioURL := informatieobjectURL(doc.UUID())

	verzending, err := client.CreateVerzending(ctx, map[string]any{
		"informatieobject": ioURL,
		"betrokkene":       "https://personen.example.com/p-1",
		"aard_relatie":     "geadresseerde",
	})
	require.NoError(t, err)

	require.NoError(t, client.DeleteVerzending(ctx, verzending.UUID()))

	verzendingen, err := client.QueryVerzendingen(ctx, map[string]any{"informatieobject": ioURL})
	require.NoError(t, err)
	assert.Empty(t, verzendingen)

	err = client.DeleteVerzending(ctx, verzending.UUID())
	assert.ErrorIs(t, err, cmisclient.ErrObjectNotFound)
}

func TestDeleteOio(t *testing.T) {
	ctx := context.Background()
	client := newRelationClient(t)

	doc, err := client.CreateDocument(ctx, documentData("DOC-1"), nil, "")
	require.NoError(t, err)
	ioURL := informatieobjectURL(doc.UUID())

	oio, err := client.CreateOio(ctx, map[string]any{
		"informatieobject": ioURL,
		"object_type":      "zaak",
		"zaak":             zaakURL,
	})
	require.NoError(t, err)

	require.NoError(t, client.DeleteOio(ctx, oio.UUID()))

	oios, err := client.QueryOios(ctx, map[string]any{"informatieobject": ioURL})
	require.NoError(t, err)
	assert.Empty(t, oios)
}
