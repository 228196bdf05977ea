package security

import (
	"context"
	"time"
)

// PINRepository persists per-user PIN state. IncrementFailed must be atomic:
// two concurrent wrong guesses may not both observe the same counter value.
type PINRepository interface {
	Get(ctx context.Context, userID int64) (UserPIN, error)
	Upsert(ctx context.Context, userID int64, hash string) error
	IncrementFailed(ctx context.Context, userID int64) (int, error)
	SetLock(ctx context.Context, userID int64, until time.Time) error
	ClearLock(ctx context.Context, userID int64) error
	MarkSuccess(ctx context.Context, userID int64, at time.Time) error
}

// SettingsRepository persists per-outlet policy.
type SettingsRepository interface {
	Get(ctx context.Context, outletID int64) (Settings, error)
	Save(ctx context.Context, s Settings) (Settings, error)
}
