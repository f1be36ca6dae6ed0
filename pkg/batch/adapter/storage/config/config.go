// Package config holds the settings of a storage connection.
package config

import (
	coreConfig "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // "local" or "gcs".
	BucketName      string `yaml:"bucket_name"`      // Default bucket for operations.
	CredentialsFile string `yaml:"credentials_file"` // Service account key for GCS.
	Endpoint        string `yaml:"endpoint"`         // API endpoint override for GCS emulators.
	BaseDir         string `yaml:"base_dir"`         // Root directory for local file system operations.
}

// FromBatchConfig derives the export storage settings from the batch section.
func FromBatchConfig(b coreConfig.BatchConfig) StorageConfig {
	return StorageConfig{
		Type:            b.Storage,
		BucketName:      b.GCSBucket,
		CredentialsFile: b.GCSCredentialsFile,
		Endpoint:        b.GCSEndpoint,
		BaseDir:         b.ExportDir,
	}
}
