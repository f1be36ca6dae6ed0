// Package notification reports finished job executions to the log or to an AMQP exchange.
package notification

import (
	"context"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/ports"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// LoggingNotifier writes one line per finished job.
type LoggingNotifier struct{}

// NewLoggingNotifier creates a new instance of LoggingNotifier.
func NewLoggingNotifier() *LoggingNotifier {
	return &LoggingNotifier{}
}

// NotifyJobCompletion logs the outcome, as a warning when the job did not complete.
func (n *LoggingNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) {
	if execution.Status == model.BatchStatusCompleted {
		logger.Infof("Job Notification: Job '%s' (ID: %s) finished with Status: %s. Duration: %s",
			execution.JobName, execution.ID, execution.Status, execution.Duration())
		return
	}
	logger.Warnf("Job Notification: Job '%s' (ID: %s) finished with Status: %s. Duration: %s, Failures: %d",
		execution.JobName, execution.ID, execution.Status, execution.Duration(), len(execution.Failures))
}

var _ ports.Notifier = (*LoggingNotifier)(nil)

// NotificationListener is a JobExecutionListener that hands every finished job to a Notifier.
type NotificationListener struct {
	notifier ports.Notifier
}

// NewNotificationListener creates a new instance of NotificationListener.
func NewNotificationListener(notifier ports.Notifier) *NotificationListener {
	return &NotificationListener{notifier: notifier}
}

// BeforeJob does nothing.
func (l *NotificationListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {}

// AfterJob sends the notification.
func (l *NotificationListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.notifier.NotifyJobCompletion(ctx, jobExecution)
}

var _ port.JobExecutionListener = (*NotificationListener)(nil)
