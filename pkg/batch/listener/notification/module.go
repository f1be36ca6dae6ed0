package notification

import (
	"context"

	"go.uber.org/fx"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/ports"
)

// NewNotifier returns an AMQPNotifier when coffee.notification.amqp.url is set and a LoggingNotifier otherwise.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config) (ports.Notifier, error) {
	amqpCfg := cfg.Coffee.Notification.AMQP
	if amqpCfg.URL == "" {
		return NewLoggingNotifier(), nil
	}
	n, err := DialAMQPNotifier(amqpCfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return n.Close() }})
	return n, nil
}

// Module provides the Notifier and contributes the NotificationListener to the job listener group.
var Module = fx.Options(
	fx.Provide(NewNotifier),
	fx.Provide(fx.Annotate(
		NewNotificationListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"job_listeners"`),
	)),
)
