package cmisclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRepository(t *testing.T) {
	tests := []struct {
		name string
		key  string
		kind ObjectKind
		want string
		ok   bool
	}{
		{
			name: "document field",
			key:  "identificatie",
			kind: KindDocument,
			want: "drc:document__identificatie",
			ok:   true,
		},
		{
			name: "document lock",
			key:  "lock",
			kind: KindDocument,
			want: "drc:document__lock",
			ok:   true,
		},
		{
			name: "shared key resolves per kind",
			key:  "kopie_van",
			kind: KindGebruiksrechten,
			want: "drc:gebruiksrechten__kopievan",
			ok:   true,
		},
		{
			name: "object type id",
			key:  "object_type_id",
			kind: KindOio,
			want: "cmis:objectTypeId",
			ok:   true,
		},
		{
			name: "unknown key",
			key:  "does_not_exist",
			kind: KindDocument,
			ok:   false,
		},
		{
			name: "unknown kind",
			key:  "identificatie",
			kind: ObjectKind("unknown"),
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToRepository(tt.key, tt.kind)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	kinds := []ObjectKind{
		KindDocument,
		KindGebruiksrechten,
		KindOio,
		KindVerzending,
		KindZaakFolder,
		KindZaakTypeFolder,
	}
	for _, kind := range kinds {
		for _, key := range mappedKeys(kind) {
			qualified, ok := ToRepository(key, kind)
			require.True(t, ok, "key %s kind %s", key, kind)
			back, ok := ToDomain(qualified, kind)
			require.True(t, ok, "qualified %s kind %s", qualified, kind)
			assert.Equal(t, key, back)
		}
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		key  string
		kind ObjectKind
		want PropertyType
	}{
		{"titel", KindDocument, TypeString},
		{"bestandsomvang", KindDocument, TypeInteger},
		{"versie", KindDocument, TypeDecimal},
		{"verwijderd", KindDocument, TypeBoolean},
		{"creatiedatum", KindDocument, TypeDateTime},
		{"object_type_id", KindDocument, TypeID},
		{"startdatum", KindGebruiksrechten, TypeDateTime},
		{"mijn_overheid", KindVerzending, TypeBoolean},
	}
	for _, tt := range tests {
		got, ok := TypeOf(tt.key, tt.kind)
		require.True(t, ok, "key %s", tt.key)
		assert.Equal(t, tt.want, got, "key %s", tt.key)
	}

	_, ok := TypeOf("nope", KindDocument)
	assert.False(t, ok)
}
