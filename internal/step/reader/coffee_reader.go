// Package reader builds the item readers of the coffee jobs.
package reader

import (
	_ "embed"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	batchReader "github.com/tigerroll/coffeebatch/pkg/batch/component/step/reader"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"

	"github.com/tigerroll/coffeebatch/internal/domain/entity"
)

// SampleCoffeeCSV is the input read by importCoffeeJob when no input file is configured.
//
//go:embed resource/coffee.csv
var SampleCoffeeCSV []byte

// coffeeFieldCount is the number of columns of the coffee CSV layout: brand, origin, characteristics.
const coffeeFieldCount = 3

// ItalianCoffeeCondition selects the rows promoted by multiStepCoffeeJob.
const ItalianCoffeeCondition = "LOWER(origin) = 'italy'"

func mapCoffee(fields []string) (*entity.CoffeeRecord, error) {
	return entity.NewCoffeeRecord(fields[0], fields[1], fields[2]), nil
}

func coffeeKey(c *entity.Coffee) int64 {
	return c.ID
}

// NewCoffeeCSVReader reads coffees from source, skipping the header line.
func NewCoffeeCSVReader(source batchReader.SourceFunc) *batchReader.CSVReader[*entity.CoffeeRecord] {
	return batchReader.NewCSVReader("coffeeItemReader", source, coffeeFieldCount, mapCoffee,
		batchReader.WithLinesToSkip(batchReader.DefaultLinesToSkip))
}

// CoffeeSource returns the configured input file, or the embedded sample when none is set.
func CoffeeSource(cfg *config.Config) batchReader.SourceFunc {
	if path := cfg.Coffee.Batch.InputFile; path != "" {
		logger.Debugf("Coffee input: %s", path)
		return batchReader.FileSource(path)
	}
	logger.Debugf("Coffee input: embedded coffee.csv")
	return batchReader.BytesSource(SampleCoffeeCSV)
}

// NewItalianCoffeeReader reads the coffees whose origin is Italy, in id order.
func NewItalianCoffeeReader(resolver database.DBConnectionResolver, pageSize int) *batchReader.SqlCursorReader[*entity.Coffee] {
	return batchReader.NewSqlCursorReader[*entity.Coffee]("italianCoffeeReader", resolver, config.DefaultDBName,
		ItalianCoffeeCondition, nil, "id", coffeeKey, pageSize)
}

// NewAllCoffeeReader reads every stored coffee, in id order.
func NewAllCoffeeReader(resolver database.DBConnectionResolver, pageSize int) *batchReader.SqlCursorReader[*entity.Coffee] {
	return batchReader.NewSqlCursorReader[*entity.Coffee]("allCoffeeReader", resolver, config.DefaultDBName,
		"", nil, "id", coffeeKey, pageSize)
}
