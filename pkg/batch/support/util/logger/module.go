package logger

import "go.uber.org/fx"

// Module routes fx lifecycle events through the package logger.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
