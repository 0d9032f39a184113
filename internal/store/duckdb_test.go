package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epl_v4/etl/internal/normalize"
)

func setupDuckStore(t *testing.T) (*DuckStore, context.Context) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.duckdb")

	s, err := NewDuckStore(ctx, path, zerolog.Nop())
	require.NoError(t, err, "Should open a fresh DuckDB file")
	t.Cleanup(s.Close)

	return s, ctx
}

func countRows(t *testing.T, s *DuckStore, table string) int {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM " + quoteIdent(table)).Scan(&count)
	require.NoError(t, err)
	return count
}

func TestDuckStore_Replace(t *testing.T) {
	s, ctx := setupDuckStore(t)

	rows := normalize.Flatten([]map[string]interface{}{
		{"id": float64(57), "name": "Arsenal", "area": map[string]interface{}{"name": "England"}},
		{"id": float64(61), "name": "Chelsea"},
	}, "")

	err := s.Replace(ctx, "teams", rows)
	require.NoError(t, err, "Should load the rows")
	assert.Equal(t, 2, countRows(t, s, "teams"))

	var areaName *string
	err = s.db.QueryRow(`SELECT "area.name" FROM "teams" WHERE "id" = 57`).Scan(&areaName)
	require.NoError(t, err)
	require.NotNil(t, areaName)
	assert.Equal(t, "England", *areaName, "Flattened columns should be addressable")
}

func TestDuckStore_ReplaceSupersedesPriorContents(t *testing.T) {
	s, ctx := setupDuckStore(t)

	first := normalize.Flatten([]map[string]interface{}{
		{"id": float64(1)}, {"id": float64(2)}, {"id": float64(3)},
	}, "")
	require.NoError(t, s.Replace(ctx, "teams", first))

	second := normalize.Flatten([]map[string]interface{}{
		{"id": float64(9), "name": "Only"},
	}, "")
	require.NoError(t, s.Replace(ctx, "teams", second))

	assert.Equal(t, 1, countRows(t, s, "teams"),
		"Replace fully supersedes the prior table contents")
}

func TestDuckStore_EmptyRowSetDropsTable(t *testing.T) {
	s, ctx := setupDuckStore(t)

	rows := normalize.Flatten([]map[string]interface{}{{"id": float64(1)}}, "")
	require.NoError(t, s.Replace(ctx, "players", rows))

	require.NoError(t, s.Replace(ctx, "players", normalize.Flatten(nil, "")))

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM \"players\"").Scan(&count)
	assert.Error(t, err, "An empty row set leaves no table behind")
}

func TestDuckStore_Health(t *testing.T) {
	s, ctx := setupDuckStore(t)
	assert.NoError(t, s.Health(ctx))
}
