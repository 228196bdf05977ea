package register

import (
	"context"
	"time"
)

// CloseParams carries everything the repository needs to seal a register in
// one transaction. VarianceThreshold and PinVerified are re-checked under
// the row lock so a concurrent transaction cannot slip the close past the
// PIN gate.
type CloseParams struct {
	RegisterID        int64
	PhysicalCash      float64
	Denominations     Denominations
	VarianceReason    string
	PinVerified       bool
	VarianceThreshold float64
	ClosedBy          int64
}

// Repository persists registers and their append-only ledger. Accumulator
// updates must be atomic increments, never read-modify-write.
type Repository interface {
	Create(ctx context.Context, in OpenInput, openingVariance float64) (DailyRegister, error)
	Get(ctx context.Context, id int64) (DailyRegister, error)
	GetOpen(ctx context.Context, outletID int64, date time.Time) (DailyRegister, error)
	History(ctx context.Context, outletID int64, from, to time.Time) ([]DailyRegister, error)
	Transactions(ctx context.Context, registerID int64) ([]RegisterTransaction, error)
	Withdrawals(ctx context.Context, registerID int64) ([]CashWithdrawal, error)
	AppendTransaction(ctx context.Context, txn RegisterTransaction) (RegisterTransaction, error)
	AppendWithdrawal(ctx context.Context, wd CashWithdrawal, mirror RegisterTransaction) (CashWithdrawal, RegisterTransaction, error)
	Close(ctx context.Context, p CloseParams) (DailyRegister, error)
}
