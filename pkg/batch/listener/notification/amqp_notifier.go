package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	config "github.com/tigerroll/coffeebatch/pkg/batch/core/config"
	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/coffeebatch/pkg/batch/core/ports"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/retry"
)

// publishTimeout bounds a single publish so a stalled broker cannot hold up the launcher.
const publishTimeout = 5 * time.Second

// DefaultPublishRetryPolicy retries a failed publish twice, 200ms then 400ms later.
func DefaultPublishRetryPolicy() retry.Policy {
	return retry.NewPolicy(3, 200*time.Millisecond)
}

// Publisher is the subset of *amqp.Channel used to send notifications.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// JobEvent is the JSON body published for a finished job.
type JobEvent struct {
	JobExecutionID string            `json:"job_execution_id"`
	JobName        string            `json:"job_name"`
	Status         string            `json:"status"`
	ExitStatus     string            `json:"exit_status"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        *time.Time        `json:"end_time,omitempty"`
	Failures       model.FailureList `json:"failures,omitempty"`
	Steps          []StepSummary     `json:"steps"`
}

// StepSummary carries the counters of one step of a JobEvent.
type StepSummary struct {
	StepName    string `json:"step_name"`
	Status      string `json:"status"`
	ReadCount   int    `json:"read_count"`
	WriteCount  int    `json:"write_count"`
	FilterCount int    `json:"filter_count"`
}

// NewJobEvent builds the event published for execution.
func NewJobEvent(execution *model.JobExecution) JobEvent {
	ev := JobEvent{
		JobExecutionID: execution.ID,
		JobName:        execution.JobName,
		Status:         execution.Status.String(),
		ExitStatus:     string(execution.ExitStatus),
		StartTime:      execution.StartTime,
		EndTime:        execution.EndTime,
		Failures:       execution.Failures,
		Steps:          make([]StepSummary, 0, len(execution.StepExecutions)),
	}
	for _, se := range execution.StepExecutions {
		ev.Steps = append(ev.Steps, StepSummary{
			StepName:    se.StepName,
			Status:      se.Status.String(),
			ReadCount:   se.ReadCount,
			WriteCount:  se.WriteCount,
			FilterCount: se.FilterCount,
		})
	}
	return ev
}

// AMQPNotifier publishes a JobEvent to an exchange for every finished job.
type AMQPNotifier struct {
	publisher  Publisher
	exchange   string
	routingKey string
	retry      retry.Policy
	closeFn    func() error
}

// NewAMQPNotifier creates a notifier on an already opened publisher.
func NewAMQPNotifier(publisher Publisher, exchange, routingKey string) *AMQPNotifier {
	return &AMQPNotifier{
		publisher:  publisher,
		exchange:   exchange,
		routingKey: routingKey,
		retry:      DefaultPublishRetryPolicy(),
		closeFn:    func() error { return nil },
	}
}

// WithRetryPolicy replaces the policy applied to failed publishes.
func (n *AMQPNotifier) WithRetryPolicy(policy retry.Policy) *AMQPNotifier {
	n.retry = policy
	return n
}

// DialAMQPNotifier connects to cfg.URL, opens a channel and declares cfg.Exchange as a durable topic exchange.
func DialAMQPNotifier(cfg config.AMQPConfig) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, exception.NewBatchError("amqp_notifier", "Failed to connect to AMQP broker", err, false, true)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, exception.NewBatchError("amqp_notifier", "Failed to open AMQP channel", err, false, true)
	}
	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, exception.NewBatchErrorf("amqp_notifier", "Failed to declare exchange '%s'", cfg.Exchange, err)
	}

	n := NewAMQPNotifier(ch, cfg.Exchange, cfg.RoutingKey)
	n.closeFn = func() error {
		if err := ch.Close(); err != nil {
			logger.Warnf("AMQPNotifier: Failed to close channel: %v", err)
		}
		return conn.Close()
	}
	logger.Infof("AMQPNotifier: Publishing job events to exchange '%s' with routing key '%s'.", cfg.Exchange, cfg.RoutingKey)
	return n, nil
}

// NotifyJobCompletion publishes the event. Failures are logged and otherwise ignored.
func (n *AMQPNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) {
	if err := n.publish(ctx, execution); err != nil {
		logger.Errorf("AMQPNotifier: Failed to publish completion of job '%s' (ID: %s): %v", execution.JobName, execution.ID, err)
		return
	}
	logger.Debugf("AMQPNotifier: Published completion of job '%s' (ID: %s).", execution.JobName, execution.ID)
}

func (n *AMQPNotifier) publish(ctx context.Context, execution *model.JobExecution) error {
	body, err := json.Marshal(NewJobEvent(execution))
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    execution.ID,
	}
	// The event is published even when the caller's context has been canceled.
	return retry.Do(context.WithoutCancel(ctx), n.retry, "AMQPNotifier", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		err := n.publisher.PublishWithContext(
			ctx,
			n.exchange,   // exchange
			n.routingKey, // routing key
			false,        // mandatory
			false,        // immediate
			msg,
		)
		if err != nil {
			return exception.NewBatchError("amqp_notifier", fmt.Sprintf("Failed to publish to exchange '%s'", n.exchange), err, false, true)
		}
		return nil
	})
}

// Close closes the channel and connection opened by DialAMQPNotifier.
func (n *AMQPNotifier) Close() error {
	return n.closeFn()
}

var _ ports.Notifier = (*AMQPNotifier)(nil)
