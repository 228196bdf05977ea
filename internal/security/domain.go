package security

import (
	"regexp"
	"time"
)

// Action enumerates the PIN-gated operations sharing one failure budget.
type Action string

const (
	// ActionWithdrawal gates cash leaving the drawer.
	ActionWithdrawal Action = "CASH_WITHDRAWAL"
	// ActionRegisterClose gates closing a register whose variance exceeds the threshold.
	ActionRegisterClose Action = "REGISTER_CLOSE_VARIANCE"
	// ActionCreditorPayment gates payments against a supplier balance.
	ActionCreditorPayment Action = "CREDITOR_PAYMENT"
	// ActionPinChange marks PIN set/rotate events in the audit log.
	ActionPinChange Action = "PIN_CHANGE"
	// ActionVerify marks explicit verification requests from the API.
	ActionVerify Action = "PIN_VERIFY"
)

// UserPIN holds one user's hashed PIN and lockout counters. The plaintext
// PIN is never stored anywhere.
type UserPIN struct {
	UserID         int64
	PinHash        string
	FailedAttempts int
	LockedUntil    *time.Time
	LastUsedAt     *time.Time
	UpdatedAt      time.Time
}

// Settings drives gatekeeper policy per outlet. Defaults are created lazily
// on first read.
type Settings struct {
	OutletID                 int64     `json:"outlet_id"`
	WithdrawalRequiresPIN    bool      `json:"withdrawal_requires_pin"`
	CreditPaymentRequiresPIN bool      `json:"credit_payment_requires_pin"`
	VarianceThreshold        float64   `json:"variance_threshold"`
	ManagerUserIDs           []int64   `json:"manager_user_ids"`
	NotifyOnVariance         bool      `json:"notify_on_variance"`
	NotifyOnWithdrawal       bool      `json:"notify_on_withdrawal"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// DefaultSettings returns the policy applied to an outlet that has never
// been configured.
func DefaultSettings(outletID int64) Settings {
	return Settings{
		OutletID:                 outletID,
		WithdrawalRequiresPIN:    true,
		CreditPaymentRequiresPIN: true,
		VarianceThreshold:        10,
		NotifyOnVariance:         true,
		NotifyOnWithdrawal:       true,
	}
}

// Verification is the structured outcome of a PIN check.
type Verification struct {
	Verified          bool       `json:"success"`
	PolicyDisabled    bool       `json:"policy_disabled,omitempty"`
	Locked            bool       `json:"locked,omitempty"`
	RemainingAttempts *int       `json:"remaining_attempts,omitempty"`
	RemainingMinutes  int        `json:"remaining_minutes,omitempty"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
}

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// ValidPIN reports whether the supplied secret is exactly four ASCII digits.
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}
