package creditors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/platform/db"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

// PgRepository is the PostgreSQL implementation of Repository.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

var _ Repository = (*PgRepository)(nil)

// SupplierExists reports whether the supplier belongs to the outlet.
func (r *PgRepository) SupplierExists(ctx context.Context, outletID, supplierID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1 AND outlet_id = $2)`,
		supplierID, outletID).Scan(&exists)
	return exists, err
}

// CurrentBalance returns the supplier's outstanding balance, zero when the
// account has never been touched.
func (r *PgRepository) CurrentBalance(ctx context.Context, supplierID int64) (float64, error) {
	var balance float64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM creditor_balances WHERE supplier_id = $1`, supplierID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

// AppendEntry locks the supplier's balance row, applies the overpay guard,
// and writes the entry with its snapshot in one transaction.
func (r *PgRepository) AppendEntry(ctx context.Context, e LedgerEntry, guardOverpay bool) (LedgerEntry, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO creditor_balances (supplier_id, balance, updated_at)
VALUES ($1, 0, NOW()) ON CONFLICT (supplier_id) DO NOTHING`, e.SupplierID); err != nil {
			return err
		}
		var balance float64
		if err := tx.QueryRow(ctx, `SELECT balance FROM creditor_balances WHERE supplier_id = $1 FOR UPDATE`,
			e.SupplierID).Scan(&balance); err != nil {
			return err
		}
		if guardOverpay && e.Debit > balance {
			return shared.BadRequestf("creditors: payment %.2f exceeds outstanding balance %.2f", e.Debit, balance)
		}
		e.Balance = shared.Round2(balance + e.Credit - e.Debit)
		if _, err := tx.Exec(ctx, `UPDATE creditor_balances SET balance = $2, updated_at = NOW() WHERE supplier_id = $1`,
			e.SupplierID, e.Balance); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `INSERT INTO creditor_ledger_entries
(supplier_id, outlet_id, entry_date, debit, credit, particulars, notes, balance, pin_verified, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
RETURNING id, created_at`,
			e.SupplierID, e.OutletID, shared.DayOf(e.Date), e.Debit, e.Credit, e.Particulars, e.Notes,
			e.Balance, e.PinVerified, e.CreatedBy).Scan(&e.ID, &e.CreatedAt)
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	return e, nil
}

// LedgerWindow lists entries date ascending with the insertion sequence as
// the tie-break, plus the current balance. Both reads happen inside one
// transaction so a concurrent append cannot make the balance disagree with
// the entries it returns.
func (r *PgRepository) LedgerWindow(ctx context.Context, supplierID int64, limit, offset int) ([]LedgerEntry, float64, error) {
	var entries []LedgerEntry
	var balance float64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT balance FROM creditor_balances WHERE supplier_id = $1`, supplierID).Scan(&balance)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT id, supplier_id, outlet_id, entry_date, debit, credit, particulars, notes, balance, pin_verified, created_by, created_at
FROM creditor_ledger_entries
WHERE supplier_id = $1
ORDER BY entry_date, id
LIMIT $2 OFFSET $3`, supplierID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e LedgerEntry
			if err := rows.Scan(&e.ID, &e.SupplierID, &e.OutletID, &e.Date, &e.Debit, &e.Credit,
				&e.Particulars, &e.Notes, &e.Balance, &e.PinVerified, &e.CreatedBy, &e.CreatedAt); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, balance, nil
}

// Outstanding lists suppliers with a positive balance, largest first.
func (r *PgRepository) Outstanding(ctx context.Context, outletID int64) ([]SupplierBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.name, b.balance
FROM creditor_balances b
JOIN suppliers s ON s.id = b.supplier_id
WHERE s.outlet_id = $1 AND b.balance > 0
ORDER BY b.balance DESC`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []SupplierBalance
	for rows.Next() {
		var b SupplierBalance
		if err := rows.Scan(&b.SupplierID, &b.SupplierName, &b.Balance); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
