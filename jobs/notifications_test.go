package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/notify"
)

type captureNotifier struct {
	mu      sync.Mutex
	sent    map[int64]string
	failFor int64
	failErr error
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{sent: make(map[int64]string)}
}

func (n *captureNotifier) Notify(ctx context.Context, userID int64, priority notify.Priority, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor == userID && n.failErr != nil {
		return n.failErr
	}
	n.sent[userID] = message
	return nil
}

func varianceTask(t *testing.T, managers []int64) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(notify.VarianceEvent{
		OutletID:   1,
		RegisterID: 5,
		Date:       time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Variance:   -50,
		Reason:     "short after evening rush",
		Priority:   notify.PriorityHigh,
		Managers:   managers,
	})
	require.NoError(t, err)
	return asynq.NewTask(notify.TaskVarianceDetected, payload)
}

func TestHandleVarianceFansOutToAllManagers(t *testing.T) {
	notifier := newCaptureNotifier()
	tasks := NewNotificationTasks(slog.Default(), notifier)

	err := tasks.HandleVariance(context.Background(), varianceTask(t, []int64{9, 11, 13}))
	require.NoError(t, err)
	require.Len(t, notifier.sent, 3)
	require.Contains(t, notifier.sent[9], "variance -50.00")
	require.Contains(t, notifier.sent[9], "short after evening rush")
}

func TestHandleVarianceReturnsErrorForRetry(t *testing.T) {
	notifier := newCaptureNotifier()
	notifier.failFor = 11
	notifier.failErr = errors.New("push gateway unavailable")
	tasks := NewNotificationTasks(slog.Default(), notifier)

	err := tasks.HandleVariance(context.Background(), varianceTask(t, []int64{9, 11}))
	require.Error(t, err)
	// the healthy recipient still got the message
	require.Contains(t, notifier.sent, int64(9))
}

func TestHandleWithdrawalSkipsBadPayload(t *testing.T) {
	tasks := NewNotificationTasks(slog.Default(), newCaptureNotifier())
	err := tasks.HandleWithdrawal(context.Background(), asynq.NewTask(notify.TaskWithdrawalMade, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleWithdrawalNoManagersIsNoop(t *testing.T) {
	notifier := newCaptureNotifier()
	tasks := NewNotificationTasks(slog.Default(), notifier)
	payload, err := json.Marshal(notify.WithdrawalEvent{RegisterID: 5, Amount: 200, Purpose: "BANK_DEPOSIT"})
	require.NoError(t, err)

	require.NoError(t, tasks.HandleWithdrawal(context.Background(), asynq.NewTask(notify.TaskWithdrawalMade, payload)))
	require.Empty(t, notifier.sent)
}
