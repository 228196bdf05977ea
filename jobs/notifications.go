package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/notify"
)

// Notifier delivers a rendered message to a single manager. Delivery
// channels (push, SMS, email) plug in behind this interface.
type Notifier interface {
	Notify(ctx context.Context, userID int64, priority notify.Priority, message string) error
}

// LogNotifier writes notifications to the log. It is the default sink
// until a delivery channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs the log-backed sink.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the message.
func (n *LogNotifier) Notify(_ context.Context, userID int64, priority notify.Priority, message string) error {
	if n.logger != nil {
		n.logger.Info("manager notification",
			slog.Int64("user_id", userID),
			slog.String("priority", string(priority)),
			slog.String("message", message))
	}
	return nil
}

// NotificationTasks holds the handlers for queued notification events.
type NotificationTasks struct {
	logger   *slog.Logger
	notifier Notifier
}

// NewNotificationTasks constructs the task handlers.
func NewNotificationTasks(logger *slog.Logger, notifier Notifier) *NotificationTasks {
	return &NotificationTasks{logger: logger, notifier: notifier}
}

// HandleVariance processes notify:variance tasks.
func (t *NotificationTasks) HandleVariance(ctx context.Context, task *asynq.Task) error {
	var ev notify.VarianceEvent
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return asynq.SkipRetry
	}
	msg := fmt.Sprintf("Register %d closed on %s with variance %+.2f", ev.RegisterID, ev.Date.Format("2006-01-02"), ev.Variance)
	if ev.Reason != "" {
		msg += " (" + ev.Reason + ")"
	}
	return t.fanOut(ctx, ev.Managers, ev.Priority, msg)
}

// HandleWithdrawal processes notify:withdrawal tasks.
func (t *NotificationTasks) HandleWithdrawal(ctx context.Context, task *asynq.Task) error {
	var ev notify.WithdrawalEvent
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return asynq.SkipRetry
	}
	msg := fmt.Sprintf("Cash withdrawal of %.2f from register %d (%s, handed to %s)", ev.Amount, ev.RegisterID, ev.Purpose, ev.HandedTo)
	return t.fanOut(ctx, ev.Managers, ev.Priority, msg)
}

// fanOut delivers to every manager concurrently. A failure for one
// recipient does not block the others; the first error is returned so
// the task retries.
func (t *NotificationTasks) fanOut(ctx context.Context, managers []int64, priority notify.Priority, message string) error {
	if len(managers) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range managers {
		g.Go(func() error {
			if err := t.notifier.Notify(ctx, id, priority, message); err != nil {
				t.logger.Warn("notification delivery failed",
					slog.Int64("user_id", id), slog.Any("error", err))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
