// Package storage defines the object storage abstraction used to publish batch exports.
// Adapters exist for the local file system and Google Cloud Storage.
package storage

import (
	"context"
	"io"

	coreAdapter "github.com/tigerroll/coffeebatch/pkg/batch/core/adapter"
)

// StorageExecutor defines generic object storage operations.
type StorageExecutor interface {
	// Upload stores data as bucket/objectName. contentType is the MIME type of the data.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens bucket/objectName. The caller closes the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn with the name of every object under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes bucket/objectName. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named connection to an object store.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor

	// DefaultBucket is the bucket used when callers pass an empty bucket name.
	DefaultBucket() string
}

// StorageProvider opens and caches connections of one storage type.
type StorageProvider interface {
	// GetConnection returns the connection with the given name, opening it on first use.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes every connection opened by this provider.
	CloseAll() error
	// Type returns the storage type handled by this provider (e.g., "local", "gcs").
	Type() string
}

// StorageConnectionResolver resolves a connection by name against the configured storage type.
type StorageConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// StorageProviderGroup is the fx value group collecting every StorageProvider.
const StorageProviderGroup = "storage_providers"
