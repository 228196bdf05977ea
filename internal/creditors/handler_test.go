package creditors

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

func newCreditorRouter(t *testing.T) (chi.Router, *memoryCreditorRepo) {
	t.Helper()
	svc, repo, _ := newTestCreditors(t)
	router := chi.NewRouter()
	NewHandler(slog.Default(), svc).MountRoutes(router)
	return router, repo
}

func postJSON(t *testing.T, router chi.Router, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req = req.WithContext(shared.ContextWithActor(req.Context(), testActor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPurchaseHandlerUsesSuppliedDate(t *testing.T) {
	router, _ := newCreditorRouter(t)

	rec := postJSON(t, router, "/suppliers/3/purchases",
		`{"amount":500,"particulars":"Vegetable supply","date":"2026-08-25"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry LedgerEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), entry.Date)
}

func TestPaymentHandlerUsesSuppliedDate(t *testing.T) {
	router, _ := newCreditorRouter(t)
	require.Equal(t, http.StatusCreated, postJSON(t, router, "/suppliers/3/purchases",
		`{"amount":500,"particulars":"Vegetable supply"}`).Code)

	rec := postJSON(t, router, "/suppliers/3/payments",
		`{"amount":200,"method":"CASH","pin":"1234","date":"2026-08-26"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry LedgerEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Equal(t, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), entry.Date)
}

func TestPurchaseHandlerRejectsMalformedDate(t *testing.T) {
	router, repo := newCreditorRouter(t)

	rec := postJSON(t, router, "/suppliers/3/purchases",
		`{"amount":500,"particulars":"Vegetable supply","date":"25-08-2026"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, repo.entries[3])
}
