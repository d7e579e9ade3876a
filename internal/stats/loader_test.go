package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	content := `{
		"name": "shop",
		"tables": [
			{
				"name": "orders",
				"row_count": 500000,
				"avg_row_width": 120,
				"columns": [
					{"name": "id", "type": "int", "distinct_count": 500000},
					{"name": "status", "type": "text", "distinct_count": 5,
					 "most_common": [{"value": "shipped", "frequency": 0.6}]},
					{"name": "priority", "type": "int", "distinct_count": 10,
					 "most_common": [{"value": 5, "frequency": 0.4}]}
				],
				"indexes": [
					{"name": "orders_pkey", "key_columns": ["id"], "unique": true}
				]
			}
		]
	}`

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cat, err := LoadCatalog(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "shop", cat.Name)
	require.Len(t, cat.Tables, 1)

	tbl := cat.Tables[0]
	assert.Equal(t, int64(500000), tbl.RowCount)
	assert.False(t, tbl.AnalyzedAt.IsZero(), "missing analyzed_at should be stamped at load time")

	col, ok := tbl.Column("status")
	require.True(t, ok)
	freq, ok := col.MCVFrequency("shipped")
	require.True(t, ok)
	assert.Equal(t, 0.6, freq)

	// Numeric histogram entries unmarshal as float64; lookups with the
	// query side's int64 operands must still hit.
	priority, ok := tbl.Column("priority")
	require.True(t, ok)
	freq, ok = priority.MCVFrequency(int64(5))
	require.True(t, ok, "int64 lookup must match the JSON-loaded numeric MCV")
	assert.Equal(t, 0.4, freq)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.json"), nil)
	assert.Error(t, err)
}

func TestLoadCatalogRejectsUnnamedTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tables":[{"row_count": 1}]}`), 0644))

	_, err := LoadCatalog(path, nil)
	assert.Error(t, err)
}
