package creditors

import "context"

// Repository persists supplier ledgers. AppendEntry must serialize per
// supplier: the balance snapshot is computed under a row lock so two
// concurrent appends can never both read the same previous balance.
type Repository interface {
	SupplierExists(ctx context.Context, outletID, supplierID int64) (bool, error)
	CurrentBalance(ctx context.Context, supplierID int64) (float64, error)
	// AppendEntry writes the entry with its balance snapshot. When
	// guardOverpay is set the append fails with ErrBadRequest if the debit
	// exceeds the balance at lock time.
	AppendEntry(ctx context.Context, e LedgerEntry, guardOverpay bool) (LedgerEntry, error)
	// LedgerWindow returns a page of entries together with the balance read
	// from the same snapshot, so the balance always agrees with the last
	// entry visible to the page.
	LedgerWindow(ctx context.Context, supplierID int64, limit, offset int) ([]LedgerEntry, float64, error)
	Outstanding(ctx context.Context, outletID int64) ([]SupplierBalance, error)
}
