package cmisclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryStatement(t *testing.T) {
	got := queryDocuments.Statement("drc:document__uuid = 'abc'")
	assert.Equal(t, "SELECT * FROM drc:document WHERE drc:document__uuid = 'abc'", got)

	got = queryInFolder.Statement("cmis:folder", "workspace://SpacesStore/f1")
	assert.Equal(t, "SELECT * FROM cmis:folder WHERE IN_FOLDER('workspace://SpacesStore/f1')", got)
}

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		name    string
		kind    ObjectKind
		filters map[string]any
		want    string
	}{
		{
			name:    "empty",
			kind:    KindDocument,
			filters: nil,
			want:    "",
		},
		{
			name:    "mapped equality",
			kind:    KindDocument,
			filters: map[string]any{"uuid": "abc"},
			want:    "drc:document__uuid = 'abc'",
		},
		{
			name:    "unmapped key used verbatim",
			kind:    KindDocument,
			filters: map[string]any{"cmis:name": "x"},
			want:    "cmis:name = 'x'",
		},
		{
			name: "conjunction in sorted key order",
			kind: KindDocument,
			filters: map[string]any{
				"identificatie":   "DOC-1",
				"bronorganisatie": "123456782",
			},
			want: "drc:document__bronorganisatie = '123456782' AND drc:document__identificatie = 'DOC-1'",
		},
		{
			name:    "null marker",
			kind:    KindOio,
			filters: map[string]any{"verzoek": NullFilter},
			want:    "drc:oio__verzoek IS NULL",
		},
		{
			name:    "not null marker",
			kind:    KindOio,
			filters: map[string]any{"zaak": NotNullFilter},
			want:    "drc:oio__zaak IS NOT NULL",
		},
		{
			name:    "nil value",
			kind:    KindOio,
			filters: map[string]any{"besluit": nil},
			want:    "drc:oio__besluit IS NULL",
		},
		{
			name:    "list renders or group",
			kind:    KindDocument,
			filters: map[string]any{"identificatie": []string{"A", "B"}},
			want:    "( drc:document__identificatie = 'A' OR drc:document__identificatie = 'B' )",
		},
		{
			name:    "non-string scalar",
			kind:    KindDocument,
			filters: map[string]any{"bestandsomvang": 42},
			want:    "drc:document__bestandsomvang = '42'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilters(tt.kind, tt.filters))
		})
	}
}
