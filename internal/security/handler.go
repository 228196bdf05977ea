package security

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/audit"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/platform/httpx"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

// Handler exposes the security endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	auditSvc *audit.Service
	validate *validator.Validate

	// VerifyLimiter, when set, rate limits the PIN verification endpoint.
	VerifyLimiter func(http.Handler) http.Handler
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, auditSvc *audit.Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		auditSvc: auditSvc,
		validate: validator.New(),
	}
}

// MountRoutes registers security routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/security", func(r chi.Router) {
		r.Post("/pin", h.setPin)
		if h.VerifyLimiter != nil {
			r.With(h.VerifyLimiter).Post("/pin/verify", h.verifyPin)
		} else {
			r.Post("/pin/verify", h.verifyPin)
		}
		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.updateSettings)
		r.Get("/audit", h.auditTimeline)
	})
}

type setPinRequest struct {
	NewPin     string `json:"new_pin" validate:"required,len=4,numeric"`
	CurrentPin string `json:"current_pin" validate:"omitempty,len=4,numeric"`
}

func (h *Handler) setPin(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	var req setPinRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "pin must be exactly 4 digits")
		return
	}
	if err := h.service.SetPin(r.Context(), actor, req.NewPin, req.CurrentPin); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type verifyPinRequest struct {
	Pin    string `json:"pin" validate:"required,len=4,numeric"`
	Action string `json:"action" validate:"omitempty,oneof=CASH_WITHDRAWAL REGISTER_CLOSE_VARIANCE CREDITOR_PAYMENT PIN_VERIFY"`
	Target string `json:"target"`
}

func (h *Handler) verifyPin(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	var req verifyPinRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "pin must be exactly 4 digits")
		return
	}
	action := Action(req.Action)
	if action == "" {
		action = ActionVerify
	}

	result, err := h.service.MustVerify(r.Context(), actor, action, req.Target, req.Pin)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, result)
	case errors.Is(err, shared.ErrLocked):
		httpx.JSON(w, http.StatusLocked, result)
	case errors.Is(err, shared.ErrUnauthorized):
		httpx.JSON(w, http.StatusUnauthorized, result)
	default:
		httpx.RespondError(w, err)
	}
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	settings, err := h.service.GetSettings(r.Context(), actor.OutletID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

type updateSettingsRequest struct {
	WithdrawalRequiresPIN    bool    `json:"withdrawal_requires_pin"`
	CreditPaymentRequiresPIN bool    `json:"credit_payment_requires_pin"`
	VarianceThreshold        float64 `json:"variance_threshold" validate:"gte=0"`
	ManagerUserIDs           []int64 `json:"manager_user_ids" validate:"dive,gt=0"`
	NotifyOnVariance         bool    `json:"notify_on_variance"`
	NotifyOnWithdrawal       bool    `json:"notify_on_withdrawal"`
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	var req updateSettingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), actor, Settings{
		OutletID:                 actor.OutletID,
		WithdrawalRequiresPIN:    req.WithdrawalRequiresPIN,
		CreditPaymentRequiresPIN: req.CreditPaymentRequiresPIN,
		VarianceThreshold:        req.VarianceThreshold,
		ManagerUserIDs:           req.ManagerUserIDs,
		NotifyOnVariance:         req.NotifyOnVariance,
		NotifyOnWithdrawal:       req.NotifyOnWithdrawal,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) auditTimeline(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity missing")
		return
	}
	q := r.URL.Query()
	filters := audit.Filters{
		OutletID: actor.OutletID,
		Action:   q.Get("action"),
		Status:   audit.Status(q.Get("status")),
		Page:     atoiOr(q.Get("page"), 1),
		PageSize: atoiOr(q.Get("page_size"), 20),
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filters.From = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filters.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	result, err := h.auditSvc.Timeline(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
