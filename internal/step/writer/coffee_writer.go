// Package writer builds the item writers of the coffee jobs.
package writer

import (
	"fmt"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/storage"
	batchWriter "github.com/tigerroll/coffeebatch/pkg/batch/component/step/writer"

	"github.com/tigerroll/coffeebatch/internal/domain/entity"
)

// NewCoffeeInsertWriter inserts (brand, origin, characteristics); storage assigns the id.
func NewCoffeeInsertWriter() *batchWriter.SqlInsertWriter[*entity.Coffee] {
	return batchWriter.NewSqlInsertWriter[*entity.Coffee]("coffeeInsertWriter", entity.CoffeeTableName)
}

// NewPremiumCoffeeWriter runs UPDATE coffee SET characteristics = ? WHERE id = ? for every item.
func NewPremiumCoffeeWriter() *batchWriter.SqlUpdateWriter[*entity.Coffee] {
	return batchWriter.NewSqlUpdateWriter("writerPremiumCoffee", entity.CoffeeTableName, "id",
		func(c *entity.Coffee) (interface{}, map[string]interface{}) {
			return c.ID, map[string]interface{}{"characteristics": c.Characteristics}
		})
}

// NewCoffeeParquetWriter exports coffees to Parquet files partitioned by origin under baseDir.
func NewCoffeeParquetWriter(resolver storage.StorageConnectionResolver, storageRef, baseDir string) (*batchWriter.ParquetWriter[*entity.Coffee], error) {
	return batchWriter.NewParquetWriter[*entity.Coffee]("coffeeParquetWriter", map[string]interface{}{
		"storageRef":      storageRef,
		"outputBaseDir":   baseDir,
		"compressionType": "SNAPPY",
	}, resolver, new(entity.Coffee), originPartition)
}

func originPartition(c *entity.Coffee) (string, error) {
	if c.Origin == "" {
		return "", fmt.Errorf("coffee %d has no origin", c.ID)
	}
	return "origin=" + c.Origin, nil
}
