// Package tasklet builds the tasklets of the coffee jobs.
package tasklet

import (
	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	"github.com/tigerroll/coffeebatch/pkg/batch/component/tasklet/generic"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
)

// DeleteTeaStatement removes the rows whose characteristics are exactly 'tea'.
const DeleteTeaStatement = "DELETE FROM coffee WHERE characteristics = ?"

// NewDeleteTeaTasklet creates the tasklet of deleteTeaStep. It logs the number of deleted rows.
func NewDeleteTeaTasklet(resolver database.DBConnectionResolver) *generic.SqlStatementTasklet {
	return generic.NewSqlStatementTasklet("deleteTeaTasklet", resolver, config.DefaultDBName, DeleteTeaStatement, "tea")
}
