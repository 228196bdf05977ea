package creditors

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

// Handler exposes the supplier ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers supplier ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/outstanding", h.outstanding)
		r.Post("/{id}/payments", h.recordPayment)
		r.Post("/{id}/purchases", h.recordPurchase)
		r.Get("/{id}/ledger", h.getLedger)
		r.Get("/{id}/balance", h.getBalance)
	})
}

type paymentRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method" validate:"required,oneof=CASH UPI BANK_TRANSFER CHEQUE"`
	Reference string  `json:"reference"`
	Notes     string  `json:"notes"`
	Date      string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Pin       string  `json:"pin" validate:"required,len=4,numeric"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	supplierID, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid supplier id")
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	date, err := parseEntryDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid date, expected YYYY-MM-DD")
		return
	}
	entry, err := h.service.RecordPayment(r.Context(), actor, PaymentInput{
		SupplierID: supplierID,
		Amount:     req.Amount,
		Method:     PaymentMethod(req.Method),
		Reference:  req.Reference,
		Notes:      req.Notes,
		Date:       date,
		Pin:        req.Pin,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

type purchaseRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Particulars string  `json:"particulars" validate:"required"`
	Notes       string  `json:"notes"`
	Date        string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) recordPurchase(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	supplierID, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid supplier id")
		return
	}
	var req purchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	date, err := parseEntryDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid date, expected YYYY-MM-DD")
		return
	}
	entry, err := h.service.RecordPurchase(r.Context(), actor, PurchaseInput{
		SupplierID:  supplierID,
		Amount:      req.Amount,
		Particulars: req.Particulars,
		Notes:       req.Notes,
		Date:        date,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) getLedger(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	supplierID, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid supplier id")
		return
	}
	q := r.URL.Query()
	page := shared.Page{}
	if limit := q.Get("limit"); limit != "" {
		page.Limit, _ = strconv.Atoi(limit)
	}
	if offset := q.Get("offset"); offset != "" {
		page.Offset, _ = strconv.Atoi(offset)
	}
	ledger, err := h.service.GetLedger(r.Context(), actor, supplierID, page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	supplierID, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid supplier id")
		return
	}
	balance, err := h.service.GetBalance(r.Context(), actor, supplierID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]float64{"current_balance": balance})
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	balances, err := h.service.Outstanding(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": balances})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// parseEntryDate turns an optional YYYY-MM-DD request field into a time.
// A zero time tells the service to stamp the entry with the current day.
func parseEntryDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
