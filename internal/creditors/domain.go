package creditors

import (
	"fmt"
	"strings"
	"time"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

// PaymentMethod enumerates how a supplier was paid.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodUPI          PaymentMethod = "UPI"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCheque       PaymentMethod = "CHEQUE"
)

// LedgerEntry is an immutable row in a supplier's running-balance account.
// Debit is a payment made (reduces the balance owed), credit is a purchase
// taken on account (increases it). Balance snapshots the running sum of
// (credit - debit) up to and including this entry; ties on date are broken
// by insertion sequence, never by wall clock.
type LedgerEntry struct {
	ID          int64     `json:"id"`
	SupplierID  int64     `json:"supplier_id"`
	OutletID    int64     `json:"outlet_id"`
	Date        time.Time `json:"date"`
	Debit       float64   `json:"debit"`
	Credit      float64   `json:"credit"`
	Particulars string    `json:"particulars"`
	Notes       string    `json:"notes,omitempty"`
	Balance     float64   `json:"balance"`
	PinVerified bool      `json:"pin_verified,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ledger is a paginated window over a supplier account.
type Ledger struct {
	Entries        []LedgerEntry `json:"entries"`
	CurrentBalance float64       `json:"current_balance"`
	HasMore        bool          `json:"has_more"`
}

// SupplierBalance summarises one supplier's outstanding amount.
type SupplierBalance struct {
	SupplierID   int64   `json:"supplier_id"`
	SupplierName string  `json:"supplier_name"`
	Balance      float64 `json:"balance"`
}

// PaymentInput records money paid to a supplier.
type PaymentInput struct {
	SupplierID int64
	Amount     float64
	Method     PaymentMethod
	Reference  string
	Notes      string
	Pin        string
	Date       time.Time
}

// Validate ensures correctness.
func (in PaymentInput) Validate() error {
	if in.SupplierID == 0 {
		return shared.BadRequestf("creditors: supplier required")
	}
	if in.Amount <= 0 {
		return shared.BadRequestf("creditors: amount must be positive")
	}
	switch in.Method {
	case MethodCash, MethodUPI, MethodBankTransfer, MethodCheque:
	default:
		return shared.BadRequestf("creditors: unknown payment method %q", in.Method)
	}
	return nil
}

// Particulars derives the ledger description from method and reference.
func (in PaymentInput) Particulars() string {
	p := fmt.Sprintf("Payment via %s", in.Method)
	if ref := strings.TrimSpace(in.Reference); ref != "" {
		p += fmt.Sprintf(" (ref %s)", ref)
	}
	return p
}

// PurchaseInput records a purchase taken on credit, invoked by procurement
// receiving.
type PurchaseInput struct {
	SupplierID  int64
	Amount      float64
	Particulars string
	Notes       string
	Date        time.Time
}

// Validate ensures correctness.
func (in PurchaseInput) Validate() error {
	if in.SupplierID == 0 {
		return shared.BadRequestf("creditors: supplier required")
	}
	if in.Amount <= 0 {
		return shared.BadRequestf("creditors: amount must be positive")
	}
	if strings.TrimSpace(in.Particulars) == "" {
		return shared.BadRequestf("creditors: particulars required")
	}
	return nil
}
