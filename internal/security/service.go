// Package security implements the PIN authorization gate: hashed PIN storage,
// verification with a shared lockout budget, and the per-outlet policy that
// decides which cash operations require a PIN at all.
package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/audit"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

// Config tunes the lockout policy.
type Config struct {
	MaxAttempts   int
	LockoutWindow time.Duration
	BcryptCost    int
}

// DefaultConfig matches the documented policy: five failures, fifteen minutes.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, LockoutWindow: 15 * time.Minute, BcryptCost: bcrypt.DefaultCost}
}

// Service is the authorization gatekeeper.
type Service struct {
	pins     PINRepository
	settings SettingsRepository
	cache    *SettingsCache
	audit    *audit.Service
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the gatekeeper.
func NewService(pins PINRepository, settings SettingsRepository, cache *SettingsCache, auditSvc *audit.Service, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		pins:     pins,
		settings: settings,
		cache:    cache,
		audit:    auditSvc,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// GetSettings returns outlet policy, serving from cache when possible and
// creating defaults on first read.
func (s *Service) GetSettings(ctx context.Context, outletID int64) (Settings, error) {
	if cached, ok := s.cache.Get(ctx, outletID); ok {
		return cached, nil
	}
	settings, err := s.settings.Get(ctx, outletID)
	if err != nil {
		return Settings{}, err
	}
	s.cache.Put(ctx, settings)
	return settings, nil
}

// UpdateSettings persists outlet policy and invalidates the cache.
func (s *Service) UpdateSettings(ctx context.Context, actor shared.Actor, in Settings) (Settings, error) {
	if err := actor.CheckOutlet(in.OutletID); err != nil {
		return Settings{}, err
	}
	if in.VarianceThreshold < 0 {
		return Settings{}, shared.BadRequestf("security: variance threshold must not be negative")
	}
	saved, err := s.settings.Save(ctx, in)
	if err != nil {
		return Settings{}, err
	}
	s.cache.Invalidate(ctx, in.OutletID)
	return saved, nil
}

// SetPin stores a one-way hash of newPin. When a PIN already exists the
// current PIN must verify first. This path is exempt from the lockout budget.
func (s *Service) SetPin(ctx context.Context, actor shared.Actor, newPin, currentPin string) error {
	if !ValidPIN(newPin) {
		return shared.BadRequestf("security: pin must be exactly 4 digits")
	}
	existing, err := s.pins.Get(ctx, actor.UserID)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(existing.PinHash), []byte(currentPin)) != nil {
			return shared.Unauthorizedf("security: current pin does not match")
		}
	case isNotFound(err):
		// first PIN for this user
	default:
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPin), s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.pins.Upsert(ctx, actor.UserID, string(hash)); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		OutletID: actor.OutletID,
		ActorID:  actor.UserID,
		Action:   string(ActionPinChange),
		Status:   audit.StatusSuccess,
		At:       s.now(),
	})
	return nil
}

// Verify is the policy-aware gate. When the outlet policy does not require a
// PIN for the action it short-circuits to success without touching counters
// or the audit log.
func (s *Service) Verify(ctx context.Context, actor shared.Actor, action Action, target, pin string) (Verification, error) {
	settings, err := s.GetSettings(ctx, actor.OutletID)
	if err != nil {
		return Verification{}, err
	}
	if !requiresPIN(settings, action) {
		return Verification{Verified: true, PolicyDisabled: true}, nil
	}
	return s.MustVerify(ctx, actor, action, target, pin)
}

// MustVerify checks the PIN unconditionally, enforcing the lockout budget
// and writing an audit row for every attempt.
func (s *Service) MustVerify(ctx context.Context, actor shared.Actor, action Action, target, pin string) (Verification, error) {
	if pin == "" {
		s.record(ctx, actor, action, target, audit.StatusDenied, "pin required but not supplied")
		return Verification{}, shared.Unauthorizedf("security: pin required for %s", action)
	}
	if !ValidPIN(pin) {
		s.record(ctx, actor, action, target, audit.StatusDenied, "malformed pin")
		return Verification{}, shared.BadRequestf("security: pin must be exactly 4 digits")
	}

	rec, err := s.pins.Get(ctx, actor.UserID)
	if err != nil {
		if isNotFound(err) {
			return Verification{}, shared.NotFoundf("security: PIN not set")
		}
		return Verification{}, err
	}

	now := s.now()
	if rec.LockedUntil != nil {
		if rec.LockedUntil.After(now) {
			remaining := int(math.Ceil(rec.LockedUntil.Sub(now).Minutes()))
			s.record(ctx, actor, action, target, audit.StatusDenied, "lockout active")
			return Verification{Locked: true, RemainingMinutes: remaining, LockedUntil: rec.LockedUntil},
				fmt.Errorf("security: locked for %d more minutes: %w", remaining, shared.ErrLocked)
		}
		// lock expired: clear it and start a fresh budget
		if err := s.pins.ClearLock(ctx, actor.UserID); err != nil {
			return Verification{}, err
		}
		rec.FailedAttempts = 0
		rec.LockedUntil = nil
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PinHash), []byte(pin)) != nil {
		attempts, err := s.pins.IncrementFailed(ctx, actor.UserID)
		if err != nil {
			return Verification{}, err
		}
		if attempts >= s.cfg.MaxAttempts {
			until := now.Add(s.cfg.LockoutWindow)
			if err := s.pins.SetLock(ctx, actor.UserID, until); err != nil {
				return Verification{}, err
			}
			s.record(ctx, actor, action, target, audit.StatusFailed, "attempt limit reached, lockout started")
			zero := 0
			return Verification{Locked: true, RemainingAttempts: &zero, RemainingMinutes: int(s.cfg.LockoutWindow.Minutes()), LockedUntil: &until},
				shared.Unauthorizedf("security: pin mismatch, account locked")
		}
		left := s.cfg.MaxAttempts - attempts
		s.record(ctx, actor, action, target, audit.StatusFailed, attemptsDetail(left))
		return Verification{RemainingAttempts: &left},
			shared.Unauthorizedf("security: pin mismatch, %d attempts remaining", left)
	}

	if err := s.pins.MarkSuccess(ctx, actor.UserID, now); err != nil {
		return Verification{}, err
	}
	s.record(ctx, actor, action, target, audit.StatusSuccess, "")
	return Verification{Verified: true}, nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action Action, target string, status audit.Status, detail string) {
	s.audit.Record(ctx, audit.Entry{
		OutletID: actor.OutletID,
		ActorID:  actor.UserID,
		Action:   string(action),
		Status:   status,
		Target:   target,
		Detail:   detail,
		At:       s.now(),
	})
}

func requiresPIN(settings Settings, action Action) bool {
	switch action {
	case ActionWithdrawal:
		return settings.WithdrawalRequiresPIN
	case ActionCreditorPayment:
		return settings.CreditPaymentRequiresPIN
	default:
		// close-variance and explicit verifies are never policy-disabled
		return true
	}
}

func attemptsDetail(left int) string {
	if left == 1 {
		return "1 attempt remaining"
	}
	return fmt.Sprintf("%d attempts remaining", left)
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
