package gcs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage/gcs"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
)

func TestNewGCSAdapter_RequiresBucket(t *testing.T) {
	_, err := gcs.NewGCSAdapter(context.Background(), storageConfig.StorageConfig{Endpoint: "http://localhost:1"}, "export")
	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, gcs.ClientOptions(storageConfig.StorageConfig{}))
	assert.Len(t, gcs.ClientOptions(storageConfig.StorageConfig{CredentialsFile: "key.json"}), 1)
	assert.Len(t, gcs.ClientOptions(storageConfig.StorageConfig{Endpoint: "http://emulator", CredentialsFile: "key.json"}), 2)
}

func TestGCSAdapter_DeleteMissingObjectAgainstEmulator(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
	}))
	defer server.Close()

	cfg := config.NewConfig()
	cfg.Coffee.Batch.Storage = config.StorageGCS
	cfg.Coffee.Batch.GCSBucket = "coffee-exports"
	cfg.Coffee.Batch.GCSEndpoint = server.URL + "/storage/v1/"
	provider := gcs.NewGCSProvider(cfg)
	resolver := storage.NewConnectionResolverFromProviders(cfg, provider)
	defer func() { assert.NoError(t, resolver.CloseAll()) }()

	conn, err := resolver.ResolveStorageConnection(context.Background(), "export")
	require.NoError(t, err)
	assert.Equal(t, gcs.ProviderType, conn.Type())
	assert.Equal(t, "coffee-exports", conn.DefaultBucket())

	require.NoError(t, conn.DeleteObject(context.Background(), "", "coffee/missing.parquet"))
	assert.Positive(t, hits.Load())
}
