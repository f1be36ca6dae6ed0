package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage"
)

// Module contributes the GCSProvider to the storage provider group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
