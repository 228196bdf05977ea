package register

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/shared"
)

func newCloseRequest(t *testing.T, registerID int64, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/registers/%d/close", registerID), strings.NewReader(body))
	return req.WithContext(shared.ContextWithActor(req.Context(), testActor))
}

func TestCloseHandlerParsesDenominationKeys(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	router := chi.NewRouter()
	NewHandler(slog.Default(), svc).MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCloseRequest(t, reg.ID,
		`{"physical_cash":1000,"denominations":{"500":1,"100":5}}`))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := repo.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, got.Status)
	require.Equal(t, Denominations{500: 1, 100: 5}, got.Denominations)
}

func TestCloseHandlerRejectsNonNumericDenominationKey(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	router := chi.NewRouter()
	NewHandler(slog.Default(), svc).MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCloseRequest(t, reg.ID,
		`{"physical_cash":1000,"denominations":{"fifty":2}}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	got, err := repo.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, got.Status)
}

func TestCloseHandlerRejectsNegativeDenominationCount(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	reg := openTestRegister(t, svc, 1000)

	router := chi.NewRouter()
	NewHandler(slog.Default(), svc).MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCloseRequest(t, reg.ID,
		`{"physical_cash":1000,"denominations":{"100":-2}}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	got, err := repo.Get(context.Background(), reg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, got.Status)
}
