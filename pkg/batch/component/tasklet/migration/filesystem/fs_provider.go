// Package filesystem embeds the batch metadata migrations, one directory per database type.
package filesystem

import (
	"embed"
	"io/fs"

	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

//go:embed resource
var rawFrameworkMigrationFS embed.FS

// ProvideFrameworkMigrationsFS returns the embedded migrations rooted at the database type directories.
func ProvideFrameworkMigrationsFS() fs.FS {
	subFS, err := fs.Sub(rawFrameworkMigrationFS, "resource")
	if err != nil {
		logger.Fatalf("Failed to create subdirectory for framework migration FS: %v", err)
	}
	return subFS
}
