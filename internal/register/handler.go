package register

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/platform/httpx"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler exposes the register endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers register routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/registers", func(r chi.Router) {
		r.Post("/", h.open)
		r.Get("/", h.history)
		r.Get("/open", h.getOpen)
		r.Get("/{id}", h.get)
		r.Post("/{id}/transactions", h.addTransaction)
		r.Post("/{id}/withdrawals", h.recordWithdrawal)
		r.Post("/{id}/close", h.close)
	})
}

type openRequest struct {
	Date            string  `json:"date" validate:"required"`
	ExpectedOpening float64 `json:"expected_opening" validate:"gte=0"`
	ActualOpening   float64 `json:"actual_opening" validate:"gte=0"`
	Note            string  `json:"note"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	var req openRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
		return
	}
	reg, err := h.service.Open(r.Context(), actor, OpenInput{
		OutletID:        actor.OutletID,
		Date:            date,
		ExpectedOpening: req.ExpectedOpening,
		ActualOpening:   req.ActualOpening,
		Note:            req.Note,
		OpenedBy:        actor.UserID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reg)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	q := r.URL.Query()
	from, err := time.Parse(dateLayout, q.Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, q.Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "to must be YYYY-MM-DD")
		return
	}
	registers, err := h.service.History(r.Context(), actor, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"registers": registers})
}

func (h *Handler) getOpen(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	reg, err := h.service.GetOpen(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid register id")
		return
	}
	detail, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

type transactionRequest struct {
	Type        string  `json:"type" validate:"required,oneof=SALE EXPENSE PAYOUT MANUAL"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	IsInflow    bool    `json:"is_inflow"`
	PaymentMode string  `json:"payment_mode" validate:"required,oneof=CASH UPI CARD ONLINE"`
	Description string  `json:"description"`
	VendorName  string  `json:"vendor_name"`
	Reference   string  `json:"reference"`
}

func (h *Handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid register id")
		return
	}
	var req transactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	txn, err := h.service.AddTransaction(r.Context(), actor, TransactionInput{
		RegisterID:  id,
		Type:        TransactionType(req.Type),
		Category:    req.Category,
		Amount:      req.Amount,
		IsInflow:    req.IsInflow,
		PaymentMode: PaymentMode(req.PaymentMode),
		Description: req.Description,
		VendorName:  req.VendorName,
		Reference:   req.Reference,
		CreatedBy:   actor.UserID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

type withdrawalRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Purpose  string  `json:"purpose" validate:"required,oneof=BANK_DEPOSIT OWNER_WITHDRAWAL EMERGENCY PETTY_CASH"`
	HandedTo string  `json:"handed_to" validate:"required"`
	Pin      string  `json:"pin" validate:"omitempty,len=4,numeric"`
}

func (h *Handler) recordWithdrawal(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid register id")
		return
	}
	var req withdrawalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	wd, err := h.service.RecordWithdrawal(r.Context(), actor, WithdrawalInput{
		RegisterID: id,
		Amount:     req.Amount,
		Purpose:    WithdrawalPurpose(req.Purpose),
		HandedTo:   req.HandedTo,
		Pin:        req.Pin,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, wd)
}

type closeRequest struct {
	PhysicalCash   float64        `json:"physical_cash" validate:"gte=0"`
	Denominations  map[string]int `json:"denominations"`
	VarianceReason string         `json:"variance_reason"`
	Pin            string         `json:"pin" validate:"omitempty,len=4,numeric"`
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid register id")
		return
	}
	var req closeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	denoms := make(Denominations, len(req.Denominations))
	for value, count := range req.Denominations {
		v, err := strconv.Atoi(value)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "denomination keys must be note values")
			return
		}
		denoms[v] = count
	}
	reg, err := h.service.Close(r.Context(), actor, CloseInput{
		RegisterID:     id,
		PhysicalCash:   req.PhysicalCash,
		Denominations:  denoms,
		VarianceReason: req.VarianceReason,
		Pin:            req.Pin,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
