package services

import (
	"context"
	"strings"
	"testing"

	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		entries, err := LoadManifest(strings.NewReader(`
entries:
  - asset_id: "2301326979"
    content_handle: handle-a
    display_name: shutterstock_2301326979.jpg
    file_size: 2048
  - asset_id: "1122334455"
    content_handle: handle-b
`))
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "2301326979", entries[0].AssetID)
		assert.Equal(t, int64(2048), entries[0].FileSize)
		assert.Equal(t, "handle-b", entries[1].ContentHandle)
	})

	tests := map[string]string{
		"empty document": "",
		"no entries":     "entries: []\n",
		"unknown key":    "entries:\n  - asset_id: \"1\"\n    content_handle: h\n    colour: red\n",
		"missing handle": "entries:\n  - asset_id: \"1\"\n",
		"not yaml":       "entries: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadManifest(strings.NewReader(doc))
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestLoadManifest_IngestBatch(t *testing.T) {
	db := newTestDB(t)
	catalog := NewCatalogService(db, testConfig().Catalog, logger.NewNop())

	entries, err := LoadManifest(strings.NewReader("entries:\n  - asset_id: \"555555\"\n    content_handle: h-5\n"))
	require.NoError(t, err)

	n, err := catalog.IngestBatch(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entry, err := catalog.Lookup(context.Background(), "555555")
	require.NoError(t, err)
	assert.Equal(t, "h-5", entry.ContentHandle)
}
