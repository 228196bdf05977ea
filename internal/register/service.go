// Package register owns the daily cash drawer: the open/transact/close
// lifecycle, the append-only transaction ledger with running channel totals,
// and the PIN-gated withdrawal and variance-close paths.
package register

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/notify"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/security"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

// criticalVarianceCutoff escalates a variance notification from HIGH to
// CRITICAL.
const criticalVarianceCutoff = 100.0

// Gatekeeper is the slice of the security service the register needs.
type Gatekeeper interface {
	GetSettings(ctx context.Context, outletID int64) (security.Settings, error)
	Verify(ctx context.Context, actor shared.Actor, action security.Action, target, pin string) (security.Verification, error)
	MustVerify(ctx context.Context, actor shared.Actor, action security.Action, target, pin string) (security.Verification, error)
}

// Service coordinates register operations.
type Service struct {
	repo       Repository
	gate       Gatekeeper
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the register service.
func NewService(repo Repository, gate Gatekeeper, dispatcher notify.Dispatcher, logger *slog.Logger) *Service {
	if dispatcher == nil {
		dispatcher = notify.NopDispatcher{}
	}
	return &Service{repo: repo, gate: gate, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// Open creates the register for (outlet, date). A second open for the same
// day fails with AlreadyExists.
func (s *Service) Open(ctx context.Context, actor shared.Actor, in OpenInput) (DailyRegister, error) {
	if err := in.Validate(); err != nil {
		return DailyRegister{}, err
	}
	if err := actor.CheckOutlet(in.OutletID); err != nil {
		return DailyRegister{}, err
	}
	openingVariance := shared.Round2(in.ActualOpening - in.ExpectedOpening)
	return s.repo.Create(ctx, in, openingVariance)
}

// Get returns a register with its full ledger.
func (s *Service) Get(ctx context.Context, actor shared.Actor, registerID int64) (RegisterDetail, error) {
	reg, err := s.loadScoped(ctx, actor, registerID)
	if err != nil {
		return RegisterDetail{}, err
	}
	txns, err := s.repo.Transactions(ctx, registerID)
	if err != nil {
		return RegisterDetail{}, err
	}
	wds, err := s.repo.Withdrawals(ctx, registerID)
	if err != nil {
		return RegisterDetail{}, err
	}
	return RegisterDetail{DailyRegister: reg, Transactions: txns, Withdrawals: wds}, nil
}

// GetOpen returns today's open register for the actor's outlet.
func (s *Service) GetOpen(ctx context.Context, actor shared.Actor) (DailyRegister, error) {
	return s.repo.GetOpen(ctx, actor.OutletID, s.now())
}

// History lists registers for the outlet between two dates.
func (s *Service) History(ctx context.Context, actor shared.Actor, from, to time.Time) ([]DailyRegister, error) {
	if to.Before(from) {
		return nil, shared.BadRequestf("register: end date before start date")
	}
	return s.repo.History(ctx, actor.OutletID, from, to)
}

// AddTransaction appends a ledger entry and bumps the matching channel
// accumulator. Fails with InvalidState once the register is closed.
func (s *Service) AddTransaction(ctx context.Context, actor shared.Actor, in TransactionInput) (RegisterTransaction, error) {
	if err := in.Validate(); err != nil {
		return RegisterTransaction{}, err
	}
	if _, err := s.loadScoped(ctx, actor, in.RegisterID); err != nil {
		return RegisterTransaction{}, err
	}
	return s.repo.AppendTransaction(ctx, RegisterTransaction{
		RegisterID:  in.RegisterID,
		Type:        in.Type,
		Category:    in.Category,
		Amount:      shared.Round2(in.Amount),
		IsInflow:    in.IsInflow,
		PaymentMode: in.PaymentMode,
		Description: in.Description,
		VendorName:  in.VendorName,
		Reference:   in.Reference,
		CreatedBy:   in.CreatedBy,
	})
}

// RecordWithdrawal takes cash out of the drawer. The PIN requirement follows
// outlet policy; the withdrawal and its mirrored WITHDRAWAL transaction are
// written atomically, and managers are notified at critical priority.
func (s *Service) RecordWithdrawal(ctx context.Context, actor shared.Actor, in WithdrawalInput) (CashWithdrawal, error) {
	if err := in.Validate(); err != nil {
		return CashWithdrawal{}, err
	}
	reg, err := s.loadScoped(ctx, actor, in.RegisterID)
	if err != nil {
		return CashWithdrawal{}, err
	}
	if reg.Status == StatusClosed {
		return CashWithdrawal{}, shared.InvalidStatef("register: %d already closed", reg.ID)
	}

	verification, err := s.gate.Verify(ctx, actor, security.ActionWithdrawal, registerTarget(reg.ID), in.Pin)
	if err != nil {
		return CashWithdrawal{}, err
	}

	amount := shared.Round2(in.Amount)
	wd := CashWithdrawal{
		RegisterID:   in.RegisterID,
		Amount:       amount,
		Purpose:      in.Purpose,
		HandedTo:     in.HandedTo,
		AuthorizedBy: actor.UserID,
		PinVerified:  verification.Verified && !verification.PolicyDisabled,
	}
	mirror := RegisterTransaction{
		RegisterID:  in.RegisterID,
		Type:        TypeWithdrawal,
		Amount:      amount,
		IsInflow:    false,
		PaymentMode: ModeCash,
		Description: "Cash withdrawal: " + string(in.Purpose),
		Reference:   in.HandedTo,
		PinVerified: wd.PinVerified,
		CreatedBy:   actor.UserID,
	}
	wd, _, err = s.repo.AppendWithdrawal(ctx, wd, mirror)
	if err != nil {
		return CashWithdrawal{}, err
	}

	s.notifyWithdrawal(ctx, reg, wd)
	return wd, nil
}

// Close seals the register. When the absolute variance exceeds the outlet
// threshold a PIN is mandatory and managers are notified.
func (s *Service) Close(ctx context.Context, actor shared.Actor, in CloseInput) (DailyRegister, error) {
	if err := in.Validate(); err != nil {
		return DailyRegister{}, err
	}
	reg, err := s.loadScoped(ctx, actor, in.RegisterID)
	if err != nil {
		return DailyRegister{}, err
	}
	if reg.Status == StatusClosed {
		return DailyRegister{}, shared.InvalidStatef("register: %d already closed", reg.ID)
	}

	settings, err := s.gate.GetSettings(ctx, reg.OutletID)
	if err != nil {
		return DailyRegister{}, err
	}

	// provisional variance from current totals decides whether to demand a
	// PIN; the repository re-checks against the locked row
	variance := shared.Round2(in.PhysicalCash - reg.ExpectedCash())
	pinVerified := false
	if math.Abs(variance) > settings.VarianceThreshold || in.Pin != "" {
		if _, err := s.gate.MustVerify(ctx, actor, security.ActionRegisterClose, registerTarget(reg.ID), in.Pin); err != nil {
			return DailyRegister{}, err
		}
		pinVerified = true
	}

	closed, err := s.repo.Close(ctx, CloseParams{
		RegisterID:        in.RegisterID,
		PhysicalCash:      shared.Round2(in.PhysicalCash),
		Denominations:     in.Denominations,
		VarianceReason:    in.VarianceReason,
		PinVerified:       pinVerified,
		VarianceThreshold: settings.VarianceThreshold,
		ClosedBy:          actor.UserID,
	})
	if err != nil {
		return DailyRegister{}, err
	}

	if closed.ClosingVariance != nil && math.Abs(*closed.ClosingVariance) > settings.VarianceThreshold {
		s.notifyVariance(ctx, closed, settings.ManagerUserIDs, settings.NotifyOnVariance)
	}
	return closed, nil
}

func (s *Service) loadScoped(ctx context.Context, actor shared.Actor, registerID int64) (DailyRegister, error) {
	reg, err := s.repo.Get(ctx, registerID)
	if err != nil {
		return DailyRegister{}, err
	}
	if err := actor.CheckOutlet(reg.OutletID); err != nil {
		return DailyRegister{}, err
	}
	return reg, nil
}

func (s *Service) notifyWithdrawal(ctx context.Context, reg DailyRegister, wd CashWithdrawal) {
	settings, err := s.gate.GetSettings(ctx, reg.OutletID)
	if err != nil {
		s.logger.Warn("withdrawal notification skipped", slog.Any("error", err))
		return
	}
	if !settings.NotifyOnWithdrawal {
		return
	}
	s.dispatcher.WithdrawalMade(ctx, notify.WithdrawalEvent{
		EventID:      uuid.New(),
		OutletID:     reg.OutletID,
		RegisterID:   reg.ID,
		Amount:       wd.Amount,
		Purpose:      string(wd.Purpose),
		HandedTo:     wd.HandedTo,
		Priority:     notify.PriorityCritical,
		Managers:     settings.ManagerUserIDs,
		AuthorizedBy: wd.AuthorizedBy,
		At:           s.now(),
	})
}

func (s *Service) notifyVariance(ctx context.Context, reg DailyRegister, managers []int64, enabled bool) {
	if !enabled {
		return
	}
	variance := *reg.ClosingVariance
	priority := notify.PriorityHigh
	if math.Abs(variance) > criticalVarianceCutoff {
		priority = notify.PriorityCritical
	}
	var closedBy int64
	if reg.ClosedBy != nil {
		closedBy = *reg.ClosedBy
	}
	s.dispatcher.VarianceDetected(ctx, notify.VarianceEvent{
		EventID:    uuid.New(),
		OutletID:   reg.OutletID,
		RegisterID: reg.ID,
		Date:       reg.Date,
		Variance:   variance,
		Reason:     reg.VarianceReason,
		Priority:   priority,
		Managers:   managers,
		ClosedBy:   closedBy,
		At:         s.now(),
	})
}

func registerTarget(id int64) string {
	return "register:" + strconv.FormatInt(id, 10)
}
