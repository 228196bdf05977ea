package register

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/notify"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/security"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

type memoryRegisterRepo struct {
	registers   map[int64]DailyRegister
	txns        map[int64][]RegisterTransaction
	withdrawals map[int64][]CashWithdrawal
	nextID      int64
	nextTxnID   int64
	nextWdID    int64
}

func newMemoryRegisterRepo() *memoryRegisterRepo {
	return &memoryRegisterRepo{
		registers:   make(map[int64]DailyRegister),
		txns:        make(map[int64][]RegisterTransaction),
		withdrawals: make(map[int64][]CashWithdrawal),
	}
}

func (r *memoryRegisterRepo) Create(ctx context.Context, in OpenInput, openingVariance float64) (DailyRegister, error) {
	day := shared.DayOf(in.Date)
	for _, reg := range r.registers {
		if reg.OutletID == in.OutletID && reg.Date.Equal(day) {
			return DailyRegister{}, shared.AlreadyExistsf("register: already open for outlet %d", in.OutletID)
		}
	}
	r.nextID++
	reg := DailyRegister{
		ID:              r.nextID,
		OutletID:        in.OutletID,
		Date:            day,
		Status:          StatusOpen,
		ExpectedOpening: in.ExpectedOpening,
		ActualOpening:   in.ActualOpening,
		OpeningVariance: openingVariance,
		OpeningNote:     in.Note,
		OpenedBy:        in.OpenedBy,
		OpenedAt:        time.Now(),
	}
	r.registers[reg.ID] = reg
	return reg, nil
}

func (r *memoryRegisterRepo) Get(ctx context.Context, id int64) (DailyRegister, error) {
	reg, ok := r.registers[id]
	if !ok {
		return DailyRegister{}, shared.NotFoundf("register: %d", id)
	}
	return reg, nil
}

func (r *memoryRegisterRepo) GetOpen(ctx context.Context, outletID int64, date time.Time) (DailyRegister, error) {
	day := shared.DayOf(date)
	for _, reg := range r.registers {
		if reg.OutletID == outletID && reg.Date.Equal(day) && reg.Status == StatusOpen {
			return reg, nil
		}
	}
	return DailyRegister{}, shared.NotFoundf("register: no open register for outlet %d", outletID)
}

func (r *memoryRegisterRepo) History(ctx context.Context, outletID int64, from, to time.Time) ([]DailyRegister, error) {
	var out []DailyRegister
	for _, reg := range r.registers {
		if reg.OutletID != outletID {
			continue
		}
		if reg.Date.Before(shared.DayOf(from)) || reg.Date.After(shared.DayOf(to)) {
			continue
		}
		out = append(out, reg)
	}
	return out, nil
}

func (r *memoryRegisterRepo) Transactions(ctx context.Context, registerID int64) ([]RegisterTransaction, error) {
	return append([]RegisterTransaction(nil), r.txns[registerID]...), nil
}

func (r *memoryRegisterRepo) Withdrawals(ctx context.Context, registerID int64) ([]CashWithdrawal, error) {
	return append([]CashWithdrawal(nil), r.withdrawals[registerID]...), nil
}

func (r *memoryRegisterRepo) AppendTransaction(ctx context.Context, txn RegisterTransaction) (RegisterTransaction, error) {
	reg, ok := r.registers[txn.RegisterID]
	if !ok {
		return RegisterTransaction{}, shared.NotFoundf("register: %d", txn.RegisterID)
	}
	if reg.Status != StatusOpen {
		return RegisterTransaction{}, shared.InvalidStatef("register: %d is %s", txn.RegisterID, reg.Status)
	}
	cashIn, cashOut, upi, card, online := channelDeltas(txn)
	reg.TotalCashIn += cashIn
	reg.TotalCashOut += cashOut
	reg.TotalUPI += upi
	reg.TotalCard += card
	reg.TotalOnline += online
	r.registers[reg.ID] = reg

	r.nextTxnID++
	txn.ID = r.nextTxnID
	txn.CreatedAt = time.Now()
	r.txns[reg.ID] = append(r.txns[reg.ID], txn)
	return txn, nil
}

func (r *memoryRegisterRepo) AppendWithdrawal(ctx context.Context, wd CashWithdrawal, mirror RegisterTransaction) (CashWithdrawal, RegisterTransaction, error) {
	reg, ok := r.registers[wd.RegisterID]
	if !ok {
		return CashWithdrawal{}, RegisterTransaction{}, shared.NotFoundf("register: %d", wd.RegisterID)
	}
	if reg.Status != StatusOpen {
		return CashWithdrawal{}, RegisterTransaction{}, shared.InvalidStatef("register: %d is %s", wd.RegisterID, reg.Status)
	}
	reg.TotalCashOut += wd.Amount
	r.registers[reg.ID] = reg

	r.nextWdID++
	wd.ID = r.nextWdID
	wd.CreatedAt = time.Now()
	r.withdrawals[reg.ID] = append(r.withdrawals[reg.ID], wd)

	r.nextTxnID++
	mirror.ID = r.nextTxnID
	mirror.CreatedAt = time.Now()
	r.txns[reg.ID] = append(r.txns[reg.ID], mirror)
	return wd, mirror, nil
}

func (r *memoryRegisterRepo) Close(ctx context.Context, p CloseParams) (DailyRegister, error) {
	reg, ok := r.registers[p.RegisterID]
	if !ok {
		return DailyRegister{}, shared.NotFoundf("register: %d", p.RegisterID)
	}
	if reg.Status == StatusClosed {
		return DailyRegister{}, shared.InvalidStatef("register: %d already closed", p.RegisterID)
	}
	systemCash := shared.Round2(reg.ActualOpening + reg.TotalCashIn - reg.TotalCashOut)
	variance := shared.Round2(p.PhysicalCash - systemCash)
	absVariance := variance
	if absVariance < 0 {
		absVariance = -absVariance
	}
	if absVariance > p.VarianceThreshold && !p.PinVerified {
		return DailyRegister{}, shared.Unauthorizedf("register: variance %.2f exceeds threshold, pin verification required", variance)
	}
	now := time.Now()
	reg.Status = StatusClosed
	reg.SystemCash = &systemCash
	reg.PhysicalCash = &p.PhysicalCash
	reg.ClosingVariance = &variance
	reg.VarianceReason = p.VarianceReason
	reg.Denominations = p.Denominations
	reg.PinVerified = p.PinVerified
	reg.ClosedBy = &p.ClosedBy
	reg.ClosedAt = &now
	r.registers[reg.ID] = reg
	return reg, nil
}

type stubGate struct {
	settings      security.Settings
	verifyErr     error
	mustVerifyErr error
	verified      []security.Action
}

func (g *stubGate) GetSettings(ctx context.Context, outletID int64) (security.Settings, error) {
	return g.settings, nil
}

func (g *stubGate) Verify(ctx context.Context, actor shared.Actor, action security.Action, target, pin string) (security.Verification, error) {
	if g.verifyErr != nil {
		return security.Verification{}, g.verifyErr
	}
	if !g.settings.WithdrawalRequiresPIN && action == security.ActionWithdrawal {
		return security.Verification{Verified: true, PolicyDisabled: true}, nil
	}
	g.verified = append(g.verified, action)
	return security.Verification{Verified: true}, nil
}

func (g *stubGate) MustVerify(ctx context.Context, actor shared.Actor, action security.Action, target, pin string) (security.Verification, error) {
	if g.mustVerifyErr != nil {
		return security.Verification{}, g.mustVerifyErr
	}
	g.verified = append(g.verified, action)
	return security.Verification{Verified: true}, nil
}

type captureDispatcher struct {
	variances   []notify.VarianceEvent
	withdrawals []notify.WithdrawalEvent
}

func (d *captureDispatcher) VarianceDetected(ctx context.Context, ev notify.VarianceEvent) {
	d.variances = append(d.variances, ev)
}

func (d *captureDispatcher) WithdrawalMade(ctx context.Context, ev notify.WithdrawalEvent) {
	d.withdrawals = append(d.withdrawals, ev)
}

func testSettings() security.Settings {
	s := security.DefaultSettings(1)
	s.ManagerUserIDs = []int64{9}
	return s
}

func newTestService(t *testing.T) (*Service, *memoryRegisterRepo, *stubGate, *captureDispatcher) {
	t.Helper()
	repo := newMemoryRegisterRepo()
	gate := &stubGate{settings: testSettings()}
	dispatcher := &captureDispatcher{}
	svc := NewService(repo, gate, dispatcher, slog.Default())
	return svc, repo, gate, dispatcher
}

var testActor = shared.Actor{UserID: 7, OutletID: 1}

func openTestRegister(t *testing.T, svc *Service, actualOpening float64) DailyRegister {
	t.Helper()
	reg, err := svc.Open(context.Background(), testActor, OpenInput{
		OutletID:        1,
		Date:            time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		ExpectedOpening: 1000,
		ActualOpening:   actualOpening,
		OpenedBy:        testActor.UserID,
	})
	require.NoError(t, err)
	return reg
}

func TestOpenRecordsOpeningVariance(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 980)
	require.Equal(t, StatusOpen, reg.Status)
	require.InDelta(t, -20, reg.OpeningVariance, 0.001)
}

func TestOpenTwiceSameDayFails(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	openTestRegister(t, svc, 1000)
	_, err := svc.Open(context.Background(), testActor, OpenInput{
		OutletID:        1,
		Date:            time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
		ExpectedOpening: 1000,
		ActualOpening:   1000,
		OpenedBy:        testActor.UserID,
	})
	require.ErrorIs(t, err, shared.ErrAlreadyExists)
	require.NotErrorIs(t, err, shared.ErrBadRequest)
}

func TestOpenRejectsForeignOutlet(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Open(context.Background(), testActor, OpenInput{
		OutletID:        2,
		Date:            time.Now(),
		ExpectedOpening: 100,
		ActualOpening:   100,
		OpenedBy:        testActor.UserID,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestAddTransactionUpdatesChannelTotals(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	add := func(typ TransactionType, amount float64, inflow bool, mode PaymentMode) {
		t.Helper()
		_, err := svc.AddTransaction(context.Background(), testActor, TransactionInput{
			RegisterID:  reg.ID,
			Type:        typ,
			Amount:      amount,
			IsInflow:    inflow,
			PaymentMode: mode,
			CreatedBy:   testActor.UserID,
		})
		require.NoError(t, err)
	}

	add(TypeSale, 500, true, ModeCash)
	add(TypeSale, 300, true, ModeUPI)
	add(TypeSale, 200, true, ModeCard)
	add(TypeSale, 150, true, ModeOnline)
	add(TypeExpense, 120, false, ModeCash)
	add(TypeExpense, 50, false, ModeUPI)

	got, err := repo.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	require.InDelta(t, 500, got.TotalCashIn, 0.001)
	require.InDelta(t, 120, got.TotalCashOut, 0.001)
	require.InDelta(t, 250, got.TotalUPI, 0.001)
	require.InDelta(t, 200, got.TotalCard, 0.001)
	require.InDelta(t, 150, got.TotalOnline, 0.001)
	require.InDelta(t, 1380, got.ExpectedCash(), 0.001)
}

func TestAddTransactionRejectsWithdrawalType(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 1000)
	_, err := svc.AddTransaction(context.Background(), testActor, TransactionInput{
		RegisterID:  reg.ID,
		Type:        TypeWithdrawal,
		Amount:      100,
		PaymentMode: ModeCash,
		CreatedBy:   testActor.UserID,
	})
	require.ErrorIs(t, err, shared.ErrBadRequest)
}

func TestAddTransactionOnClosedRegisterFails(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 1000)
	_, err := svc.Close(context.Background(), testActor, CloseInput{RegisterID: reg.ID, PhysicalCash: 1000})
	require.NoError(t, err)

	_, err = svc.AddTransaction(context.Background(), testActor, TransactionInput{
		RegisterID:  reg.ID,
		Type:        TypeSale,
		Amount:      50,
		IsInflow:    true,
		PaymentMode: ModeCash,
		CreatedBy:   testActor.UserID,
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestWithdrawalMirrorsLedgerEntry(t *testing.T) {
	svc, repo, _, dispatcher := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	wd, err := svc.RecordWithdrawal(context.Background(), testActor, WithdrawalInput{
		RegisterID: reg.ID,
		Amount:     200,
		Purpose:    PurposeBankDeposit,
		HandedTo:   "Ravi",
		Pin:        "1234",
	})
	require.NoError(t, err)
	require.True(t, wd.PinVerified)
	require.Equal(t, testActor.UserID, wd.AuthorizedBy)

	txns, err := repo.Transactions(context.Background(), reg.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, TypeWithdrawal, txns[0].Type)
	require.Equal(t, ModeCash, txns[0].PaymentMode)
	require.False(t, txns[0].IsInflow)
	require.InDelta(t, 200, txns[0].Amount, 0.001)

	got, err := repo.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	require.InDelta(t, 200, got.TotalCashOut, 0.001)

	require.Len(t, dispatcher.withdrawals, 1)
	require.Equal(t, notify.PriorityCritical, dispatcher.withdrawals[0].Priority)
	require.Equal(t, []int64{9}, dispatcher.withdrawals[0].Managers)
}

func TestWithdrawalSkipsPinWhenPolicyDisabled(t *testing.T) {
	svc, _, gate, _ := newTestService(t)
	gate.settings.WithdrawalRequiresPIN = false
	reg := openTestRegister(t, svc, 1000)

	wd, err := svc.RecordWithdrawal(context.Background(), testActor, WithdrawalInput{
		RegisterID: reg.ID,
		Amount:     100,
		Purpose:    PurposePettyCash,
		HandedTo:   "Asha",
	})
	require.NoError(t, err)
	require.False(t, wd.PinVerified)
	require.Empty(t, gate.verified)
}

func TestWithdrawalFailsWhenGateRejects(t *testing.T) {
	svc, repo, gate, _ := newTestService(t)
	gate.verifyErr = shared.Unauthorizedf("security: pin mismatch, 4 attempts remaining")
	reg := openTestRegister(t, svc, 1000)

	_, err := svc.RecordWithdrawal(context.Background(), testActor, WithdrawalInput{
		RegisterID: reg.ID,
		Amount:     100,
		Purpose:    PurposeEmergency,
		HandedTo:   "Asha",
		Pin:        "9999",
	})
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	got, err := repo.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	require.Zero(t, got.TotalCashOut)
	wds, err := repo.Withdrawals(context.Background(), reg.ID)
	require.NoError(t, err)
	require.Empty(t, wds)
}

func TestCloseWithinThresholdNeedsNoPin(t *testing.T) {
	svc, _, gate, dispatcher := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	closed, err := svc.Close(context.Background(), testActor, CloseInput{
		RegisterID:   reg.ID,
		PhysicalCash: 1005,
	})
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)
	require.NotNil(t, closed.SystemCash)
	require.InDelta(t, 1000, *closed.SystemCash, 0.001)
	require.NotNil(t, closed.ClosingVariance)
	require.InDelta(t, 5, *closed.ClosingVariance, 0.001)
	require.False(t, closed.PinVerified)
	require.Empty(t, gate.verified)
	require.Empty(t, dispatcher.variances)
}

func TestCloseOverThresholdRequiresPin(t *testing.T) {
	svc, _, gate, dispatcher := newTestService(t)
	gate.mustVerifyErr = shared.Unauthorizedf("security: pin required for %s", security.ActionRegisterClose)
	reg := openTestRegister(t, svc, 1000)

	_, err := svc.Close(context.Background(), testActor, CloseInput{
		RegisterID:   reg.ID,
		PhysicalCash: 950,
	})
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	require.Empty(t, dispatcher.variances)

	gate.mustVerifyErr = nil
	closed, err := svc.Close(context.Background(), testActor, CloseInput{
		RegisterID:     reg.ID,
		PhysicalCash:   950,
		VarianceReason: "short after evening rush",
		Pin:            "1234",
	})
	require.NoError(t, err)
	require.True(t, closed.PinVerified)
	require.InDelta(t, -50, *closed.ClosingVariance, 0.001)
	require.Contains(t, gate.verified, security.ActionRegisterClose)

	require.Len(t, dispatcher.variances, 1)
	require.Equal(t, notify.PriorityHigh, dispatcher.variances[0].Priority)
	require.Equal(t, "short after evening rush", dispatcher.variances[0].Reason)
}

func TestCloseCriticalVarianceEscalatesPriority(t *testing.T) {
	svc, _, _, dispatcher := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	_, err := svc.Close(context.Background(), testActor, CloseInput{
		RegisterID:   reg.ID,
		PhysicalCash: 800,
		Pin:          "1234",
	})
	require.NoError(t, err)
	require.Len(t, dispatcher.variances, 1)
	require.Equal(t, notify.PriorityCritical, dispatcher.variances[0].Priority)
}

func TestCloseTwiceFails(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	_, err := svc.Close(context.Background(), testActor, CloseInput{RegisterID: reg.ID, PhysicalCash: 1000})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), testActor, CloseInput{RegisterID: reg.ID, PhysicalCash: 1000})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCloseCountsWithdrawalsInSystemCash(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	_, err := svc.AddTransaction(context.Background(), testActor, TransactionInput{
		RegisterID:  reg.ID,
		Type:        TypeSale,
		Amount:      600,
		IsInflow:    true,
		PaymentMode: ModeCash,
		CreatedBy:   testActor.UserID,
	})
	require.NoError(t, err)

	_, err = svc.RecordWithdrawal(context.Background(), testActor, WithdrawalInput{
		RegisterID: reg.ID,
		Amount:     400,
		Purpose:    PurposeBankDeposit,
		HandedTo:   "Ravi",
		Pin:        "1234",
	})
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), testActor, CloseInput{
		RegisterID:   reg.ID,
		PhysicalCash: 1200,
	})
	require.NoError(t, err)
	require.InDelta(t, 1200, *closed.SystemCash, 0.001)
	require.InDelta(t, 0, *closed.ClosingVariance, 0.001)
}

func TestHistoryRejectsInvertedRange(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err := svc.History(context.Background(), testActor, from, to)
	require.ErrorIs(t, err, shared.ErrBadRequest)
}

func TestGetReturnsFullLedger(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	_, err := svc.AddTransaction(context.Background(), testActor, TransactionInput{
		RegisterID:  reg.ID,
		Type:        TypeSale,
		Amount:      100,
		IsInflow:    true,
		PaymentMode: ModeCash,
		CreatedBy:   testActor.UserID,
	})
	require.NoError(t, err)
	_, err = svc.RecordWithdrawal(context.Background(), testActor, WithdrawalInput{
		RegisterID: reg.ID,
		Amount:     50,
		Purpose:    PurposePettyCash,
		HandedTo:   "Asha",
		Pin:        "1234",
	})
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), testActor, reg.ID)
	require.NoError(t, err)
	require.Len(t, detail.Transactions, 2)
	require.Len(t, detail.Withdrawals, 1)
}
