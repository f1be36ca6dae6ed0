// Package listener aggregates the listener modules of the batch framework.
package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/coffeebatch/pkg/batch/listener/logging"
	"github.com/tigerroll/coffeebatch/pkg/batch/listener/notification"
)

// Module aggregates all listener modules of the batch framework. Listeners are contributed to the
// "job_listeners", "step_listeners" and "chunk_listeners" value groups.
var Module = fx.Options(
	logging.Module,
	notification.Module,
)
