// Package creditors keeps the supplier payables ledger: every purchase on
// credit and every payment lands as an immutable entry carrying a running
// balance snapshot.
package creditors

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/security"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

// Gatekeeper is the slice of the security service payments need. Payments
// always verify, regardless of outlet policy, because they move money out.
type Gatekeeper interface {
	MustVerify(ctx context.Context, actor shared.Actor, action security.Action, target, pin string) (security.Verification, error)
}

// Service coordinates supplier ledger operations.
type Service struct {
	repo   Repository
	gate   Gatekeeper
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the creditors service.
func NewService(repo Repository, gate Gatekeeper, logger *slog.Logger) *Service {
	return &Service{repo: repo, gate: gate, logger: logger, now: time.Now}
}

// RecordPayment pays a supplier. The PIN is mandatory and the amount may not
// exceed the live outstanding balance.
func (s *Service) RecordPayment(ctx context.Context, actor shared.Actor, in PaymentInput) (LedgerEntry, error) {
	if err := in.Validate(); err != nil {
		return LedgerEntry{}, err
	}
	if err := s.checkSupplier(ctx, actor, in.SupplierID); err != nil {
		return LedgerEntry{}, err
	}
	if _, err := s.gate.MustVerify(ctx, actor, security.ActionCreditorPayment, supplierTarget(in.SupplierID), in.Pin); err != nil {
		return LedgerEntry{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	return s.repo.AppendEntry(ctx, LedgerEntry{
		SupplierID:  in.SupplierID,
		OutletID:    actor.OutletID,
		Date:        date,
		Debit:       shared.Round2(in.Amount),
		Particulars: in.Particulars(),
		Notes:       in.Notes,
		PinVerified: true,
		CreatedBy:   actor.UserID,
	}, true)
}

// RecordPurchase appends a purchase taken on credit. Called by procurement
// receiving, so no PIN gate.
func (s *Service) RecordPurchase(ctx context.Context, actor shared.Actor, in PurchaseInput) (LedgerEntry, error) {
	if err := in.Validate(); err != nil {
		return LedgerEntry{}, err
	}
	if err := s.checkSupplier(ctx, actor, in.SupplierID); err != nil {
		return LedgerEntry{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	return s.repo.AppendEntry(ctx, LedgerEntry{
		SupplierID:  in.SupplierID,
		OutletID:    actor.OutletID,
		Date:        date,
		Credit:      shared.Round2(in.Amount),
		Particulars: in.Particulars,
		Notes:       in.Notes,
		CreatedBy:   actor.UserID,
	}, false)
}

// GetLedger returns a page of entries, date ascending, plus the live balance.
func (s *Service) GetLedger(ctx context.Context, actor shared.Actor, supplierID int64, page shared.Page) (Ledger, error) {
	if err := s.checkSupplier(ctx, actor, supplierID); err != nil {
		return Ledger{}, err
	}
	page = page.Normalize()
	// fetch one row past the page for has_more
	entries, balance, err := s.repo.LedgerWindow(ctx, supplierID, page.Limit+1, page.Offset)
	if err != nil {
		return Ledger{}, err
	}
	hasMore := len(entries) > page.Limit
	if hasMore {
		entries = entries[:page.Limit]
	}
	return Ledger{Entries: entries, CurrentBalance: balance, HasMore: hasMore}, nil
}

// GetBalance returns the supplier's outstanding balance.
func (s *Service) GetBalance(ctx context.Context, actor shared.Actor, supplierID int64) (float64, error) {
	if err := s.checkSupplier(ctx, actor, supplierID); err != nil {
		return 0, err
	}
	return s.repo.CurrentBalance(ctx, supplierID)
}

// Outstanding lists suppliers the outlet still owes.
func (s *Service) Outstanding(ctx context.Context, actor shared.Actor) ([]SupplierBalance, error) {
	return s.repo.Outstanding(ctx, actor.OutletID)
}

func (s *Service) checkSupplier(ctx context.Context, actor shared.Actor, supplierID int64) error {
	exists, err := s.repo.SupplierExists(ctx, actor.OutletID, supplierID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NotFoundf("creditors: supplier %d", supplierID)
	}
	return nil
}

func supplierTarget(id int64) string {
	return "supplier:" + strconv.FormatInt(id, 10)
}
