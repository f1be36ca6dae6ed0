package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, 10, cfg.Coffee.Batch.ChunkSize)
	assert.Equal(t, "INFO", cfg.Coffee.System.Logging.Level)
	assert.Equal(t, config.JobRepositorySQL, cfg.Coffee.Infrastructure.JobRepository)
	assert.Equal(t, config.DefaultDBName, cfg.Coffee.Infrastructure.JobRepositoryDBRef)
	assert.Equal(t, config.StorageLocal, cfg.Coffee.Batch.Storage)
	assert.Contains(t, cfg.Coffee.Database, config.DefaultDBName)
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	yamlBytes := []byte(`
coffee:
  batch:
    chunk_size: 3
  http:
    address: ":9090"
  database:
    coffee:
      type: sqlite
      database: ${COFFEE_TEST_DB_PATH}
`)
	t.Setenv("COFFEE_TEST_DB_PATH", "/tmp/coffee-test.db")

	cfg, err := config.LoadConfig("", yamlBytes)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Coffee.Batch.ChunkSize)
	assert.Equal(t, ":9090", cfg.Coffee.HTTP.Address)
	// Unmentioned keys keep their defaults.
	assert.Equal(t, "INFO", cfg.Coffee.System.Logging.Level)

	db, ok := cfg.Coffee.Database["coffee"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/tmp/coffee-test.db", db["database"])
}

func TestLoadConfig_EnvironmentOverridesYAML(t *testing.T) {
	t.Setenv("COFFEE_BATCH_CHUNK_SIZE", "25")
	t.Setenv("COFFEE_INFRASTRUCTURE_JOB_REPOSITORY", "inmemory")
	t.Setenv("COFFEE_DATABASE_COFFEE_DATABASE", "override.db")

	cfg, err := config.LoadConfig("", []byte("coffee:\n  batch:\n    chunk_size: 3\n"))
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Coffee.Batch.ChunkSize)
	assert.Equal(t, config.JobRepositoryInMemory, cfg.Coffee.Infrastructure.JobRepository)
	db := cfg.Coffee.Database["coffee"].(map[string]interface{})
	assert.Equal(t, "override.db", db["database"])
	assert.Equal(t, "sqlite", db["type"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero chunk size", "coffee:\n  batch:\n    chunk_size: -1\n"},
		{"unknown repository", "coffee:\n  infrastructure:\n    job_repository: redis\n"},
		{"gcs without bucket", "coffee:\n  batch:\n    storage: gcs\n"},
		{"malformed yaml", "coffee: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig("", []byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
