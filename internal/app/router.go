package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/balcao-pdv/balcao-pdv/internal/auth"
	"github.com/balcao-pdv/balcao-pdv/internal/cashbox"
	"github.com/balcao-pdv/balcao-pdv/internal/catalog"
	"github.com/balcao-pdv/balcao-pdv/internal/customers"
	"github.com/balcao-pdv/balcao-pdv/internal/ledger"
	"github.com/balcao-pdv/balcao-pdv/internal/observability"
	"github.com/balcao-pdv/balcao-pdv/internal/quotes"
	"github.com/balcao-pdv/balcao-pdv/jobs"
	"github.com/balcao-pdv/balcao-pdv/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	CustomersHandler *customers.Handler
	CashboxHandler   *cashbox.Handler
	LedgerHandler    *ledger.Handler
	QuotesHandler    *quotes.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with PDV defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/login", params.AuthHandler.Login)
	r.Route("/usuarios", params.AuthHandler.MountUserRoutes)
	r.Route("/produtos", params.CatalogHandler.MountRoutes)
	r.Route("/clientes", params.CustomersHandler.MountRoutes)
	r.Route("/orcamentos", params.QuotesHandler.MountRoutes)
	r.Route("/caixa", params.CashboxHandler.MountRoutes)
	params.LedgerHandler.MountRoutes(r)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps the SPA file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
