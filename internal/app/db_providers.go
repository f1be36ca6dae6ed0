package app

import (
	"os"
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// DBProviderModules maps a database type to the module contributing its DBProvider.
var DBProviderModules = map[string]fx.Option{
	sqlite.ProviderType:   sqlite.Module,
	mysql.ProviderType:    mysql.Module,
	postgres.ProviderType: postgres.Module,
}

// defaultDBAdapters is used when DB_ADAPTORS is not set.
const defaultDBAdapters = "sqlite,mysql,postgres"

// DBProviderOptions selects the DB providers named in the comma-separated adapters list.
// Unknown names are skipped with a warning.
func DBProviderOptions(adapters string) []fx.Option {
	if strings.TrimSpace(adapters) == "" {
		adapters = defaultDBAdapters
	}
	options := make([]fx.Option, 0, len(DBProviderModules))
	seen := make(map[string]bool)
	for _, name := range strings.Split(adapters, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		module, ok := DBProviderModules[name]
		if !ok {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
			continue
		}
		seen[name] = true
		options = append(options, module)
		logger.Debugf("DB Provider '%s' selected and registered.", name)
	}
	return options
}

func dbProvidersFromEnv() fx.Option {
	return fx.Options(DBProviderOptions(os.Getenv("DB_ADAPTORS"))...)
}
