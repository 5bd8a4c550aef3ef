package cmisclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conflictBinding serves a checked-out, locked document and fails every
// property update with a repository-side conflict.
type conflictBinding struct {
	Binding
	latest ObjectRecord
	pwc    ObjectRecord
}

func (b *conflictBinding) Query(ctx context.Context, statement string) ([]ObjectRecord, error) {
	return []ObjectRecord{b.latest}, nil
}

func (b *conflictBinding) GetAllVersions(ctx context.Context, objectID string) ([]ObjectRecord, error) {
	return []ObjectRecord{b.pwc, b.latest}, nil
}

func (b *conflictBinding) UpdateProperties(ctx context.Context, objectID string, props PropertySet) (ObjectRecord, error) {
	return ObjectRecord{}, ErrUpdateConflict
}

func TestUpdateDocumentConcurrentModification(t *testing.T) {
	bind := &conflictBinding{
		latest: ObjectRecord{
			ObjectID: "workspace://SpacesStore/a;1.0",
			Properties: PropertySet{
				"drc:document__uuid":             {Value: "u-1", Type: TypeString},
				"cmis:versionLabel":              {Value: "1.0", Type: TypeString},
				"cmis:isVersionSeriesCheckedOut": {Value: true, Type: TypeBoolean},
			},
		},
		pwc: ObjectRecord{
			ObjectID: "workspace://SpacesStore/b;pwc",
			Properties: PropertySet{
				"drc:document__uuid":        {Value: "u-1", Type: TypeString},
				"cmis:versionLabel":         {Value: "pwc", Type: TypeString},
				"cmis:isPrivateWorkingCopy": {Value: true, Type: TypeBoolean},
				"drc:document__lock":        {Value: "token", Type: TypeString},
			},
		},
	}
	client, err := New(WithBinding(bind))
	require.NoError(t, err)

	// The lock is valid, but the node changed underneath: the repository
	// conflict surfaces as a document conflict, not a lock mismatch.
	_, err = client.UpdateDocument(context.Background(), "u-1", "token", map[string]any{"titel": "new title"}, nil, "")
	assert.ErrorIs(t, err, ErrDocumentConflict)
	assert.NotErrorIs(t, err, ErrLockMismatch)

	var derr *DocumentError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "u-1", derr.UUID)
}
