// Package sqlite provides a GORM DBProvider implementation for SQLite databases.
package sqlite

import (
	"errors"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
)

// ProviderType is the database type handled by this package.
const ProviderType = "sqlite"

// fileDSNOptions let a reading connection coexist with a writing one (WAL), make concurrent
// writers wait instead of failing, and take the write lock at BEGIN.
const fileDSNOptions = "_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the DSN for cfg. A plain file path gets the default options;
// a DSN that already carries options (or ":memory:") is used as is.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	if c.Database == ":memory:" || strings.Contains(c.Database, "?") {
		return c.Database
	}
	return "file:" + c.Database + "?" + fileDSNOptions
}

// SQLiteDBProvider implements database.DBProvider for SQLite connections.
type SQLiteDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates the SQLite DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &SQLiteDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, ProviderType)}
}
