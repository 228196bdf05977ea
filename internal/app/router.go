package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/creditors"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/observability"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/register"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/internal/security"
	"github.com/nxbeeeel/Beloop-Restaurant-management--sub001/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	RegisterHandler  *register.Handler
	SecurityHandler  *security.Handler
	CreditorsHandler *creditors.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.SecurityHandler != nil {
		if params.SecurityHandler.VerifyLimiter == nil {
			params.SecurityHandler.VerifyLimiter = PinVerifyLimiter()
		}
		params.SecurityHandler.MountRoutes(r)
	}
	if params.RegisterHandler != nil {
		params.RegisterHandler.MountRoutes(r)
	}
	if params.CreditorsHandler != nil {
		params.CreditorsHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
