// Package ports declares outbound ports of the batch core that are implemented outside the engine.
package ports

import (
	"context"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
)

// Notifier is an abstract interface for notifying external systems about job execution results.
// A notification failure never changes the outcome of the job.
type Notifier interface {
	// NotifyJobCompletion notifies about job completion (success or failure).
	NotifyJobCompletion(ctx context.Context, execution *model.JobExecution)
}
