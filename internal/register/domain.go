package register

import (
	"strings"
	"time"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

// Status enumerates register lifecycle states.
type Status string

const (
	// StatusOpen accepts transactions.
	StatusOpen Status = "OPEN"
	// StatusClosed is terminal; no further mutation.
	StatusClosed Status = "CLOSED"
)

// TransactionType enumerates ledger entry types.
type TransactionType string

const (
	TypeSale       TransactionType = "SALE"
	TypeExpense    TransactionType = "EXPENSE"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypePayout     TransactionType = "PAYOUT"
	TypeManual     TransactionType = "MANUAL"
)

// PaymentMode enumerates payment channels.
type PaymentMode string

const (
	ModeCash   PaymentMode = "CASH"
	ModeUPI    PaymentMode = "UPI"
	ModeCard   PaymentMode = "CARD"
	ModeOnline PaymentMode = "ONLINE"
)

// WithdrawalPurpose enumerates why cash left the drawer.
type WithdrawalPurpose string

const (
	PurposeBankDeposit     WithdrawalPurpose = "BANK_DEPOSIT"
	PurposeOwnerWithdrawal WithdrawalPurpose = "OWNER_WITHDRAWAL"
	PurposeEmergency       WithdrawalPurpose = "EMERGENCY"
	PurposePettyCash       WithdrawalPurpose = "PETTY_CASH"
)

// Denominations maps note value to count at close.
type Denominations map[int]int

// Validate rejects non-positive note values and negative counts.
func (d Denominations) Validate() error {
	for value, count := range d {
		if value <= 0 {
			return shared.BadRequestf("register: denomination value %d invalid", value)
		}
		if count < 0 {
			return shared.BadRequestf("register: denomination %d has negative count", value)
		}
	}
	return nil
}

// Total returns the cash value represented by the counted notes.
func (d Denominations) Total() float64 {
	var total float64
	for value, count := range d {
		total += float64(value * count)
	}
	return total
}

// DailyRegister is the cash drawer ledger for one outlet on one calendar day.
// Accumulators are maintained by the repository with atomic increments; once
// Status is CLOSED every field is sealed.
type DailyRegister struct {
	ID              int64         `json:"id"`
	OutletID        int64         `json:"outlet_id"`
	Date            time.Time     `json:"date"`
	Status          Status        `json:"status"`
	ExpectedOpening float64       `json:"expected_opening"`
	ActualOpening   float64       `json:"actual_opening"`
	OpeningVariance float64       `json:"opening_variance"`
	OpeningNote     string        `json:"opening_note,omitempty"`
	TotalCashIn     float64       `json:"total_cash_in"`
	TotalCashOut    float64       `json:"total_cash_out"`
	TotalUPI        float64       `json:"total_upi"`
	TotalCard       float64       `json:"total_card"`
	TotalOnline     float64       `json:"total_online"`
	SystemCash      *float64      `json:"system_cash,omitempty"`
	PhysicalCash    *float64      `json:"physical_cash,omitempty"`
	ClosingVariance *float64      `json:"closing_variance,omitempty"`
	VarianceReason  string        `json:"variance_reason,omitempty"`
	Denominations   Denominations `json:"denominations,omitempty"`
	PinVerified     bool          `json:"pin_verified"`
	OpenedBy        int64         `json:"opened_by"`
	ClosedBy        *int64        `json:"closed_by,omitempty"`
	OpenedAt        time.Time     `json:"opened_at"`
	ClosedAt        *time.Time    `json:"closed_at,omitempty"`
}

// ExpectedCash is the drawer cash the system predicts at close.
func (r DailyRegister) ExpectedCash() float64 {
	return shared.Round2(r.ActualOpening + r.TotalCashIn - r.TotalCashOut)
}

// RegisterTransaction is an immutable ledger entry tied to a register.
type RegisterTransaction struct {
	ID          int64           `json:"id"`
	RegisterID  int64           `json:"register_id"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category,omitempty"`
	Amount      float64         `json:"amount"`
	IsInflow    bool            `json:"is_inflow"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	Description string          `json:"description,omitempty"`
	VendorName  string          `json:"vendor_name,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	PinVerified bool            `json:"pin_verified,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CashWithdrawal is an immutable cash-out entry, always CASH and always
// PIN-gated. Each withdrawal mirrors exactly one WITHDRAWAL transaction.
type CashWithdrawal struct {
	ID           int64             `json:"id"`
	RegisterID   int64             `json:"register_id"`
	Amount       float64           `json:"amount"`
	Purpose      WithdrawalPurpose `json:"purpose"`
	HandedTo     string            `json:"handed_to"`
	AuthorizedBy int64             `json:"authorized_by"`
	PinVerified  bool              `json:"pin_verified"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RegisterDetail bundles a register with its ledger for the detail endpoint.
type RegisterDetail struct {
	DailyRegister
	Transactions []RegisterTransaction `json:"transactions"`
	Withdrawals  []CashWithdrawal      `json:"withdrawals"`
}

// --- Inputs ---

// OpenInput creates a register for (outlet, date).
type OpenInput struct {
	OutletID        int64
	Date            time.Time
	ExpectedOpening float64
	ActualOpening   float64
	Note            string
	OpenedBy        int64
}

// Validate ensures correctness.
func (in OpenInput) Validate() error {
	if in.OutletID == 0 {
		return shared.BadRequestf("register: outlet required")
	}
	if in.Date.IsZero() {
		return shared.BadRequestf("register: date required")
	}
	if in.ExpectedOpening < 0 || in.ActualOpening < 0 {
		return shared.BadRequestf("register: opening amounts must not be negative")
	}
	if in.OpenedBy == 0 {
		return shared.BadRequestf("register: actor required")
	}
	return nil
}

// TransactionInput appends a ledger entry.
type TransactionInput struct {
	RegisterID  int64
	Type        TransactionType
	Category    string
	Amount      float64
	IsInflow    bool
	PaymentMode PaymentMode
	Description string
	VendorName  string
	Reference   string
	CreatedBy   int64
}

// Validate ensures correctness. Withdrawals may not be appended directly:
// they go through RecordWithdrawal so the mirrored entry and the PIN gate
// stay consistent.
func (in TransactionInput) Validate() error {
	if in.RegisterID == 0 {
		return shared.BadRequestf("register: register id required")
	}
	if in.Amount <= 0 {
		return shared.BadRequestf("register: amount must be positive")
	}
	switch in.Type {
	case TypeSale, TypeExpense, TypePayout, TypeManual:
	case TypeWithdrawal:
		return shared.BadRequestf("register: withdrawals must use the withdrawal operation")
	default:
		return shared.BadRequestf("register: unknown transaction type %q", in.Type)
	}
	switch in.PaymentMode {
	case ModeCash, ModeUPI, ModeCard, ModeOnline:
	default:
		return shared.BadRequestf("register: unknown payment mode %q", in.PaymentMode)
	}
	if in.CreatedBy == 0 {
		return shared.BadRequestf("register: actor required")
	}
	return nil
}

// WithdrawalInput removes cash from the drawer.
type WithdrawalInput struct {
	RegisterID int64
	Amount     float64
	Purpose    WithdrawalPurpose
	HandedTo   string
	Pin        string
}

// Validate ensures correctness.
func (in WithdrawalInput) Validate() error {
	if in.RegisterID == 0 {
		return shared.BadRequestf("register: register id required")
	}
	if in.Amount <= 0 {
		return shared.BadRequestf("register: amount must be positive")
	}
	switch in.Purpose {
	case PurposeBankDeposit, PurposeOwnerWithdrawal, PurposeEmergency, PurposePettyCash:
	default:
		return shared.BadRequestf("register: unknown withdrawal purpose %q", in.Purpose)
	}
	if strings.TrimSpace(in.HandedTo) == "" {
		return shared.BadRequestf("register: recipient required")
	}
	return nil
}

// CloseInput seals a register.
type CloseInput struct {
	RegisterID     int64
	PhysicalCash   float64
	Denominations  Denominations
	VarianceReason string
	Pin            string
}

// Validate ensures correctness.
func (in CloseInput) Validate() error {
	if in.RegisterID == 0 {
		return shared.BadRequestf("register: register id required")
	}
	if in.PhysicalCash < 0 {
		return shared.BadRequestf("register: physical cash must not be negative")
	}
	return in.Denominations.Validate()
}
