package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "test_config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfigFile(t, `
api:
  token: TEST_TOKEN
  competition: PL
  season: 2024
etl:
  requests_per_min: 10
  retries_per_team: 1
  sleep_between_retries: 0
database:
  type: duckdb
  duckdb_path: /tmp/test.duckdb
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err, "Should load a valid config file")

	assert.Equal(t, "TEST_TOKEN", cfg.APIToken)
	assert.Equal(t, "PL", cfg.Competition)
	assert.Equal(t, 2024, cfg.Season)
	assert.Equal(t, float64(10), cfg.RequestsPerMin)
	assert.Equal(t, 1, cfg.RetriesPerTeam)
	assert.Equal(t, time.Duration(0), cfg.SleepBetweenRetries)
	assert.Equal(t, "duckdb", cfg.StoreKind)
	assert.Equal(t, "/tmp/test.duckdb", cfg.DuckDBPath)
}

func TestLoadFile_DefaultsSurviveOverlay(t *testing.T) {
	path := writeConfigFile(t, `
api:
  token: TEST_TOKEN
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.football-data.org/v4", cfg.APIBaseURL)
	assert.Equal(t, "duckdb", cfg.StoreKind)
	assert.Equal(t, 3, cfg.RetriesPerTeam)
	assert.Equal(t, 2*time.Second, cfg.SleepBetweenRetries)
}

func TestLoadFile_FractionalRetrySeconds(t *testing.T) {
	path := writeConfigFile(t, `
api:
  token: TEST_TOKEN
etl:
  sleep_between_retries: 0.5
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.SleepBetweenRetries)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("FOOTBALL_API_TOKEN", "ENV_TOKEN")
	t.Setenv("FOOTBALL_SEASON", "2023")
	t.Setenv("ETL_REQUESTS_PER_MIN", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ENV_TOKEN", cfg.APIToken)
	assert.Equal(t, 2023, cfg.Season)
	assert.Equal(t, float64(30), cfg.RequestsPerMin)
	assert.Equal(t, "PL", cfg.Competition, "Unset values keep their defaults")
}

func TestValidate_RequiresToken(t *testing.T) {
	t.Setenv("FOOTBALL_API_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOOTBALL_API_TOKEN")
}

func TestValidate_RejectsNonPositiveBudget(t *testing.T) {
	t.Setenv("FOOTBALL_API_TOKEN", "TOKEN")
	t.Setenv("ETL_REQUESTS_PER_MIN", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ETL_REQUESTS_PER_MIN")
}

func TestValidate_RejectsZeroRetries(t *testing.T) {
	t.Setenv("FOOTBALL_API_TOKEN", "TOKEN")
	t.Setenv("ETL_RETRIES_PER_TEAM", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ETL_RETRIES_PER_TEAM")
}

func TestValidate_RejectsUnknownStore(t *testing.T) {
	t.Setenv("FOOTBALL_API_TOKEN", "TOKEN")
	t.Setenv("STORE_KIND", "csv")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store kind")
}

func TestValidate_WarehouseNeedsPassword(t *testing.T) {
	t.Setenv("FOOTBALL_API_TOKEN", "TOKEN")
	t.Setenv("STORE_KIND", "warehouse")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WAREHOUSE_PASSWORD")
}

func TestStoreConfig(t *testing.T) {
	t.Setenv("FOOTBALL_API_TOKEN", "TOKEN")
	t.Setenv("STORE_KIND", "warehouse")
	t.Setenv("WAREHOUSE_PASSWORD", "secret")
	t.Setenv("WAREHOUSE_HOST", "wh.internal")

	cfg, err := Load()
	require.NoError(t, err)

	sc := cfg.StoreConfig()
	assert.Equal(t, "warehouse", sc.Kind)
	assert.Equal(t, "wh.internal", sc.Host)
	assert.Equal(t, "secret", sc.Password)
	assert.Equal(t, 5432, sc.Port)
}
