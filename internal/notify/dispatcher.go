package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Dispatcher queues notification events. Implementations must be
// fire-and-forget: failures are logged, never propagated.
type Dispatcher interface {
	VarianceDetected(ctx context.Context, ev VarianceEvent)
	WithdrawalMade(ctx context.Context, ev WithdrawalEvent)
}

// AsynqDispatcher enqueues events onto the worker queue.
type AsynqDispatcher struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewAsynqDispatcher constructs the dispatcher.
func NewAsynqDispatcher(client *asynq.Client, logger *slog.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{client: client, logger: logger}
}

var _ Dispatcher = (*AsynqDispatcher)(nil)

// VarianceDetected queues a variance event.
func (d *AsynqDispatcher) VarianceDetected(ctx context.Context, ev VarianceEvent) {
	d.enqueue(ctx, TaskVarianceDetected, ev)
}

// WithdrawalMade queues a withdrawal event.
func (d *AsynqDispatcher) WithdrawalMade(ctx context.Context, ev WithdrawalEvent) {
	d.enqueue(ctx, TaskWithdrawalMade, ev)
}

func (d *AsynqDispatcher) enqueue(ctx context.Context, taskType string, payload any) {
	if d == nil || d.client == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		d.log(taskType, err)
		return
	}
	if _, err := d.client.EnqueueContext(ctx, asynq.NewTask(taskType, data)); err != nil {
		d.log(taskType, err)
	}
}

func (d *AsynqDispatcher) log(taskType string, err error) {
	if d.logger != nil {
		d.logger.Error("notification enqueue failed", slog.String("task", taskType), slog.Any("error", err))
	}
}

// NopDispatcher discards events. Used when the queue is not configured.
type NopDispatcher struct{}

// VarianceDetected discards the event.
func (NopDispatcher) VarianceDetected(context.Context, VarianceEvent) {}

// WithdrawalMade discards the event.
func (NopDispatcher) WithdrawalMade(context.Context, WithdrawalEvent) {}
