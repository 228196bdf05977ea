package register

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const registerColumns = `id, outlet_id, register_date, status, expected_opening, actual_opening, opening_variance, opening_note,
total_cash_in, total_cash_out, total_upi, total_card, total_online,
system_cash, physical_cash, closing_variance, variance_reason, denominations, pin_verified,
opened_by, closed_by, opened_at, closed_at`

// Create inserts a new register. The (outlet_id, register_date) unique index
// turns a duplicate open into ErrAlreadyExists.
func (r *PgRepository) Create(ctx context.Context, in OpenInput, openingVariance float64) (DailyRegister, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO daily_registers
(outlet_id, register_date, status, expected_opening, actual_opening, opening_variance, opening_note, opened_by, opened_at)
VALUES ($1, $2, 'OPEN', $3, $4, $5, $6, $7, NOW())
RETURNING id`,
		in.OutletID, shared.DayOf(in.Date), in.ExpectedOpening, in.ActualOpening, openingVariance, in.Note, in.OpenedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return DailyRegister{}, shared.AlreadyExistsf("register: already open for outlet %d on %s",
				in.OutletID, shared.DayOf(in.Date).Format("2006-01-02"))
		}
		return DailyRegister{}, err
	}
	return r.Get(ctx, id)
}

// Get loads a register by id.
func (r *PgRepository) Get(ctx context.Context, id int64) (DailyRegister, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+registerColumns+` FROM daily_registers WHERE id = $1`, id)
	reg, err := scanRegister(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DailyRegister{}, shared.NotFoundf("register: %d", id)
		}
		return DailyRegister{}, err
	}
	return reg, nil
}

// GetOpen loads the open register for an outlet on the given date.
func (r *PgRepository) GetOpen(ctx context.Context, outletID int64, date time.Time) (DailyRegister, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+registerColumns+` FROM daily_registers
WHERE outlet_id = $1 AND register_date = $2 AND status = 'OPEN'`, outletID, shared.DayOf(date))
	reg, err := scanRegister(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DailyRegister{}, shared.NotFoundf("register: no open register for outlet %d", outletID)
		}
		return DailyRegister{}, err
	}
	return reg, nil
}

// History lists registers for an outlet between two dates, oldest first.
func (r *PgRepository) History(ctx context.Context, outletID int64, from, to time.Time) ([]DailyRegister, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+registerColumns+` FROM daily_registers
WHERE outlet_id = $1 AND register_date >= $2 AND register_date <= $3
ORDER BY register_date`, outletID, shared.DayOf(from), shared.DayOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var registers []DailyRegister
	for rows.Next() {
		reg, err := scanRegister(rows)
		if err != nil {
			return nil, err
		}
		registers = append(registers, reg)
	}
	return registers, rows.Err()
}

// Transactions lists the ledger for a register, oldest first.
func (r *PgRepository) Transactions(ctx context.Context, registerID int64) ([]RegisterTransaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, register_id, type, category, amount, is_inflow, payment_mode, description, vendor_name, reference, pin_verified, created_by, created_at
FROM register_transactions WHERE register_id = $1 ORDER BY id`, registerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txns []RegisterTransaction
	for rows.Next() {
		var t RegisterTransaction
		if err := rows.Scan(&t.ID, &t.RegisterID, &t.Type, &t.Category, &t.Amount, &t.IsInflow, &t.PaymentMode,
			&t.Description, &t.VendorName, &t.Reference, &t.PinVerified, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// Withdrawals lists withdrawals for a register, oldest first.
func (r *PgRepository) Withdrawals(ctx context.Context, registerID int64) ([]CashWithdrawal, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, register_id, amount, purpose, handed_to, authorized_by, pin_verified, created_at
FROM cash_withdrawals WHERE register_id = $1 ORDER BY id`, registerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var wds []CashWithdrawal
	for rows.Next() {
		var w CashWithdrawal
		if err := rows.Scan(&w.ID, &w.RegisterID, &w.Amount, &w.Purpose, &w.HandedTo, &w.AuthorizedBy, &w.PinVerified, &w.CreatedAt); err != nil {
			return nil, err
		}
		wds = append(wds, w)
	}
	return wds, rows.Err()
}

// AppendTransaction inserts the ledger entry and bumps the matching channel
// accumulator in one transaction. The UPDATE doubles as the open-state guard:
// zero rows touched means the register is closed or missing.
func (r *PgRepository) AppendTransaction(ctx context.Context, txn RegisterTransaction) (RegisterTransaction, error) {
	cashIn, cashOut, upi, card, online := channelDeltas(txn)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE daily_registers SET
total_cash_in = total_cash_in + $2,
total_cash_out = total_cash_out + $3,
total_upi = total_upi + $4,
total_card = total_card + $5,
total_online = total_online + $6
WHERE id = $1 AND status = 'OPEN'`, txn.RegisterID, cashIn, cashOut, upi, card, online)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.openGuardError(ctx, tx, txn.RegisterID)
		}
		return tx.QueryRow(ctx, `INSERT INTO register_transactions
(register_id, type, category, amount, is_inflow, payment_mode, description, vendor_name, reference, pin_verified, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
RETURNING id, created_at`,
			txn.RegisterID, txn.Type, txn.Category, txn.Amount, txn.IsInflow, txn.PaymentMode,
			txn.Description, txn.VendorName, txn.Reference, txn.PinVerified, txn.CreatedBy).
			Scan(&txn.ID, &txn.CreatedAt)
	})
	if err != nil {
		return RegisterTransaction{}, err
	}
	return txn, nil
}

// AppendWithdrawal records the withdrawal and its mirrored WITHDRAWAL
// transaction atomically, incrementing total_cash_out once.
func (r *PgRepository) AppendWithdrawal(ctx context.Context, wd CashWithdrawal, mirror RegisterTransaction) (CashWithdrawal, RegisterTransaction, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE daily_registers SET total_cash_out = total_cash_out + $2
WHERE id = $1 AND status = 'OPEN'`, wd.RegisterID, wd.Amount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.openGuardError(ctx, tx, wd.RegisterID)
		}
		if err := tx.QueryRow(ctx, `INSERT INTO cash_withdrawals
(register_id, amount, purpose, handed_to, authorized_by, pin_verified, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING id, created_at`,
			wd.RegisterID, wd.Amount, wd.Purpose, wd.HandedTo, wd.AuthorizedBy, wd.PinVerified).
			Scan(&wd.ID, &wd.CreatedAt); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `INSERT INTO register_transactions
(register_id, type, category, amount, is_inflow, payment_mode, description, vendor_name, reference, pin_verified, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
RETURNING id, created_at`,
			mirror.RegisterID, mirror.Type, mirror.Category, mirror.Amount, mirror.IsInflow, mirror.PaymentMode,
			mirror.Description, mirror.VendorName, mirror.Reference, mirror.PinVerified, mirror.CreatedBy).
			Scan(&mirror.ID, &mirror.CreatedAt)
	})
	if err != nil {
		return CashWithdrawal{}, RegisterTransaction{}, err
	}
	return wd, mirror, nil
}

// Close seals the register. The row is locked first so the variance is
// computed against final accumulators, and the PIN decision is re-checked
// against that final variance.
func (r *PgRepository) Close(ctx context.Context, p CloseParams) (DailyRegister, error) {
	var closed DailyRegister
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var status string
		var actualOpening, cashIn, cashOut float64
		err := tx.QueryRow(ctx, `SELECT status, actual_opening, total_cash_in, total_cash_out
FROM daily_registers WHERE id = $1 FOR UPDATE`, p.RegisterID).
			Scan(&status, &actualOpening, &cashIn, &cashOut)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.NotFoundf("register: %d", p.RegisterID)
			}
			return err
		}
		if Status(status) == StatusClosed {
			return shared.InvalidStatef("register: %d already closed", p.RegisterID)
		}

		systemCash := shared.Round2(actualOpening + cashIn - cashOut)
		variance := shared.Round2(p.PhysicalCash - systemCash)
		absVariance := variance
		if absVariance < 0 {
			absVariance = -absVariance
		}
		if absVariance > p.VarianceThreshold && !p.PinVerified {
			return shared.Unauthorizedf("register: variance %.2f exceeds threshold, pin verification required", variance)
		}

		denoms, err := json.Marshal(p.Denominations)
		if err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `UPDATE daily_registers SET
status = 'CLOSED', system_cash = $2, physical_cash = $3, closing_variance = $4,
variance_reason = $5, denominations = $6, pin_verified = $7, closed_by = $8, closed_at = NOW()
WHERE id = $1
RETURNING `+registerColumns,
			p.RegisterID, systemCash, p.PhysicalCash, variance, p.VarianceReason, denoms, p.PinVerified, p.ClosedBy)
		closed, err = scanRegister(row)
		return err
	})
	if err != nil {
		return DailyRegister{}, err
	}
	return closed, nil
}

func (r *PgRepository) openGuardError(ctx context.Context, tx pgx.Tx, registerID int64) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM daily_registers WHERE id = $1`, registerID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFoundf("register: %d", registerID)
	}
	if err != nil {
		return err
	}
	return shared.InvalidStatef("register: %d is %s", registerID, status)
}

func channelDeltas(txn RegisterTransaction) (cashIn, cashOut, upi, card, online float64) {
	switch txn.PaymentMode {
	case ModeCash:
		if txn.IsInflow {
			cashIn = txn.Amount
		} else {
			cashOut = txn.Amount
		}
	case ModeUPI:
		upi = signed(txn)
	case ModeCard:
		card = signed(txn)
	case ModeOnline:
		// informational only, never part of cash reconciliation
		online = signed(txn)
	}
	return
}

func signed(txn RegisterTransaction) float64 {
	if txn.IsInflow {
		return txn.Amount
	}
	return -txn.Amount
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegister(row rowScanner) (DailyRegister, error) {
	var reg DailyRegister
	var denoms []byte
	err := row.Scan(&reg.ID, &reg.OutletID, &reg.Date, &reg.Status,
		&reg.ExpectedOpening, &reg.ActualOpening, &reg.OpeningVariance, &reg.OpeningNote,
		&reg.TotalCashIn, &reg.TotalCashOut, &reg.TotalUPI, &reg.TotalCard, &reg.TotalOnline,
		&reg.SystemCash, &reg.PhysicalCash, &reg.ClosingVariance, &reg.VarianceReason,
		&denoms, &reg.PinVerified, &reg.OpenedBy, &reg.ClosedBy, &reg.OpenedAt, &reg.ClosedAt)
	if err != nil {
		return DailyRegister{}, err
	}
	if len(denoms) > 0 {
		if err := json.Unmarshal(denoms, &reg.Denominations); err != nil {
			return DailyRegister{}, fmt.Errorf("register: decode denominations: %w", err)
		}
	}
	return reg, nil
}
