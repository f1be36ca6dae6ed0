// Package listener holds the listeners specific to the coffee jobs.
package listener

import (
	"context"

	"github.com/tigerroll/coffeebatch/pkg/batch/adapter/database"
	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"

	"github.com/tigerroll/coffeebatch/internal/domain/entity"
)

// JobCompletionNotificationListener logs the content of the coffee table once a job completes.
// It only reads; a failing query is logged and does not change the job outcome.
type JobCompletionNotificationListener struct {
	resolver database.DBConnectionResolver
	// Found is called with every stored coffee. It defaults to logging the row.
	Found func(entity.Coffee)
}

// NewJobCompletionNotificationListener creates the listener.
func NewJobCompletionNotificationListener(resolver database.DBConnectionResolver) *JobCompletionNotificationListener {
	return &JobCompletionNotificationListener{
		resolver: resolver,
		Found: func(c entity.Coffee) {
			logger.Infof("Found <%s> in the database.", c)
		},
	}
}

func (l *JobCompletionNotificationListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
}

// AfterJob lists the stored coffees when the job completed.
func (l *JobCompletionNotificationListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	if jobExecution.Status != model.BatchStatusCompleted {
		return
	}
	logger.Infof("!!! JOB '%s' FINISHED! Time to verify the results", jobExecution.JobName)

	ctx = context.WithoutCancel(ctx)
	conn, err := l.resolver.ResolveDBConnection(ctx, config.DefaultDBName)
	if err != nil {
		logger.Warnf("JobCompletionNotificationListener: Failed to resolve connection: %v", err)
		return
	}
	var coffees []entity.Coffee
	if err := conn.ExecuteQueryAdvanced(ctx, &coffees, nil, "id ASC", 0); err != nil {
		logger.Warnf("JobCompletionNotificationListener: Failed to read coffee table: %v", err)
		return
	}
	for _, c := range coffees {
		l.Found(c)
	}
}

var _ port.JobExecutionListener = (*JobCompletionNotificationListener)(nil)
