package security

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

// PgPINRepository is the PostgreSQL implementation of PINRepository.
type PgPINRepository struct {
	pool *pgxpool.Pool
}

// NewPINRepository constructs the repository.
func NewPINRepository(pool *pgxpool.Pool) *PgPINRepository {
	return &PgPINRepository{pool: pool}
}

var _ PINRepository = (*PgPINRepository)(nil)

// Get loads the PIN record for a user.
func (r *PgPINRepository) Get(ctx context.Context, userID int64) (UserPIN, error) {
	var p UserPIN
	err := r.pool.QueryRow(ctx, `SELECT user_id, pin_hash, failed_attempts, locked_until, last_used_at, updated_at
FROM user_pins WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.PinHash, &p.FailedAttempts, &p.LockedUntil, &p.LastUsedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserPIN{}, shared.NotFoundf("security: pin for user %d", userID)
		}
		return UserPIN{}, err
	}
	return p, nil
}

// Upsert stores a new hash and resets all counters.
func (r *PgPINRepository) Upsert(ctx context.Context, userID int64, hash string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_pins (user_id, pin_hash, failed_attempts, locked_until, updated_at)
VALUES ($1, $2, 0, NULL, NOW())
ON CONFLICT (user_id) DO UPDATE
SET pin_hash = EXCLUDED.pin_hash, failed_attempts = 0, locked_until = NULL, updated_at = NOW()`, userID, hash)
	return err
}

// IncrementFailed bumps the failure counter atomically and returns the new
// value, so the lock threshold is evaluated against what the database saw.
func (r *PgPINRepository) IncrementFailed(ctx context.Context, userID int64) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `UPDATE user_pins
SET failed_attempts = failed_attempts + 1, updated_at = NOW()
WHERE user_id = $1
RETURNING failed_attempts`, userID).Scan(&attempts)
	return attempts, err
}

// SetLock starts a lockout window.
func (r *PgPINRepository) SetLock(ctx context.Context, userID int64, until time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE user_pins SET locked_until = $2, updated_at = NOW() WHERE user_id = $1`, userID, until)
	return err
}

// ClearLock removes an expired lock and resets the counter.
func (r *PgPINRepository) ClearLock(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE user_pins SET locked_until = NULL, failed_attempts = 0, updated_at = NOW() WHERE user_id = $1`, userID)
	return err
}

// MarkSuccess resets counters and stamps the successful use.
func (r *PgPINRepository) MarkSuccess(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE user_pins
SET failed_attempts = 0, locked_until = NULL, last_used_at = $2, updated_at = NOW()
WHERE user_id = $1`, userID, at)
	return err
}

// PgSettingsRepository is the PostgreSQL implementation of SettingsRepository.
type PgSettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(pool *pgxpool.Pool) *PgSettingsRepository {
	return &PgSettingsRepository{pool: pool}
}

var _ SettingsRepository = (*PgSettingsRepository)(nil)

// Get loads outlet policy, creating the default row on first read.
func (r *PgSettingsRepository) Get(ctx context.Context, outletID int64) (Settings, error) {
	s, err := r.scanOne(ctx, outletID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, err
	}
	def := DefaultSettings(outletID)
	// concurrent first reads race benignly: DO NOTHING, then re-select
	if _, err := r.pool.Exec(ctx, `INSERT INTO security_settings
(outlet_id, withdrawal_requires_pin, credit_payment_requires_pin, variance_threshold, manager_user_ids, notify_on_variance, notify_on_withdrawal, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (outlet_id) DO NOTHING`,
		def.OutletID, def.WithdrawalRequiresPIN, def.CreditPaymentRequiresPIN,
		def.VarianceThreshold, def.ManagerUserIDs, def.NotifyOnVariance, def.NotifyOnWithdrawal); err != nil {
		return Settings{}, err
	}
	return r.scanOne(ctx, outletID)
}

// Save upserts outlet policy.
func (r *PgSettingsRepository) Save(ctx context.Context, s Settings) (Settings, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO security_settings
(outlet_id, withdrawal_requires_pin, credit_payment_requires_pin, variance_threshold, manager_user_ids, notify_on_variance, notify_on_withdrawal, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (outlet_id) DO UPDATE SET
withdrawal_requires_pin = EXCLUDED.withdrawal_requires_pin,
credit_payment_requires_pin = EXCLUDED.credit_payment_requires_pin,
variance_threshold = EXCLUDED.variance_threshold,
manager_user_ids = EXCLUDED.manager_user_ids,
notify_on_variance = EXCLUDED.notify_on_variance,
notify_on_withdrawal = EXCLUDED.notify_on_withdrawal,
updated_at = NOW()`,
		s.OutletID, s.WithdrawalRequiresPIN, s.CreditPaymentRequiresPIN,
		s.VarianceThreshold, s.ManagerUserIDs, s.NotifyOnVariance, s.NotifyOnWithdrawal)
	if err != nil {
		return Settings{}, err
	}
	return r.scanOne(ctx, s.OutletID)
}

func (r *PgSettingsRepository) scanOne(ctx context.Context, outletID int64) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `SELECT outlet_id, withdrawal_requires_pin, credit_payment_requires_pin, variance_threshold, manager_user_ids, notify_on_variance, notify_on_withdrawal, updated_at
FROM security_settings WHERE outlet_id = $1`, outletID).
		Scan(&s.OutletID, &s.WithdrawalRequiresPIN, &s.CreditPaymentRequiresPIN,
			&s.VarianceThreshold, &s.ManagerUserIDs, &s.NotifyOnVariance, &s.NotifyOnWithdrawal, &s.UpdatedAt)
	return s, err
}
