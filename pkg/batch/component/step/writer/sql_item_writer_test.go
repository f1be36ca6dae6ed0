package writer_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/coffeebatch/pkg/batch/component/step/writer"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/test"
)

type bean struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement" parquet:"name=id,type=INT64"`
	Code   string `gorm:"column:code" parquet:"name=code,type=BYTE_ARRAY,convertedtype=UTF8"`
	Origin string `gorm:"column:origin" parquet:"name=origin,type=BYTE_ARRAY,convertedtype=UTF8"`
}

func (bean) TableName() string { return "bean" }

var beanMigrations = fstest.MapFS{
	"sqlite/000001_create_bean.up.sql":   {Data: []byte("CREATE TABLE bean (id INTEGER PRIMARY KEY AUTOINCREMENT, code TEXT UNIQUE, origin TEXT);")},
	"sqlite/000001_create_bean.down.sql": {Data: []byte("DROP TABLE bean;")},
}

func countBeans(t *testing.T, db *test.TestDB) int64 {
	t.Helper()
	n, err := db.Conn.Count(context.Background(), &bean{}, nil)
	require.NoError(t, err)
	return n
}

func TestSqlInsertWriter_AssignsKeys(t *testing.T) {
	db := test.NewSQLiteTestDB(t, beanMigrations)
	ctx := context.Background()
	w := writer.NewSqlInsertWriter[*bean]("beanWriter", "")

	items := []*bean{{Code: "a", Origin: "BRAZIL"}, {Code: "b", Origin: "ITALY"}}
	tx, err := db.TxManager.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, tx, items))
	require.NoError(t, db.TxManager.Commit(tx))

	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(2), items[1].ID)
	assert.Equal(t, int64(2), countBeans(t, db))
}

func TestSqlInsertWriter_ConflictAbortsChunk(t *testing.T) {
	db := test.NewSQLiteTestDB(t, beanMigrations)
	ctx := context.Background()
	w := writer.NewSqlInsertWriter[*bean]("beanWriter", "bean")

	tx, err := db.TxManager.Begin(ctx)
	require.NoError(t, err)
	err = w.Write(ctx, tx, []*bean{{Code: "dup"}, {Code: "dup"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrWriteConflict)
	require.NoError(t, db.TxManager.Rollback(tx))

	assert.Zero(t, countBeans(t, db), "the first insert of the chunk is rolled back too")
}

func TestSqlUpdateWriter(t *testing.T) {
	db := test.NewSQLiteTestDB(t, beanMigrations)
	ctx := context.Background()
	_, err := db.Conn.ExecuteRaw(ctx, "INSERT INTO bean (code, origin) VALUES ('a', 'ITALY'), ('b', 'BRAZIL')")
	require.NoError(t, err)

	w := writer.NewSqlUpdateWriter[*bean]("beanUpdater", "bean", "id", func(b *bean) (interface{}, map[string]interface{}) {
		return b.ID, map[string]interface{}{"origin": b.Origin}
	})
	tx, err := db.TxManager.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, tx, []*bean{{ID: 1, Origin: "Premium ITALY"}, {ID: 99, Origin: "ghost"}}))
	require.NoError(t, db.TxManager.Commit(tx))

	var rows []bean
	require.NoError(t, db.Conn.ExecuteQueryAdvanced(ctx, &rows, nil, "id", 0))
	require.Len(t, rows, 2)
	assert.Equal(t, "Premium ITALY", rows[0].Origin)
	assert.Equal(t, "BRAZIL", rows[1].Origin)
}

func TestSqlWriters_RequireTransaction(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, writer.NewSqlInsertWriter[*bean]("w", "bean").Write(ctx, nil, []*bean{{Code: "a"}}))
	update := func(b *bean) (interface{}, map[string]interface{}) { return b.ID, nil }
	assert.Error(t, writer.NewSqlUpdateWriter[*bean]("w", "bean", "id", update).Write(ctx, nil, []*bean{{ID: 1}}))
	assert.NoError(t, writer.NewSqlInsertWriter[*bean]("w", "bean").Write(ctx, nil, nil), "an empty chunk needs no transaction")
}
