package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/brightline-erp/brightline/internal/integration"
	"github.com/brightline-erp/brightline/internal/inventory"
	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/journals"
	"github.com/brightline-erp/brightline/internal/ledger/reports"
	"github.com/brightline-erp/brightline/internal/procurement"
	"github.com/brightline-erp/brightline/internal/sales"
	"github.com/brightline-erp/brightline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AccountsHandler    *accounts.Handler
	JournalsHandler    *journals.Handler
	ReportsHandler     *reports.Handler
	InventoryHandler   *inventory.Handler
	SalesHandler       *sales.Handler
	ProcurementHandler *procurement.Handler
	BridgeHandler      *integration.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Brightline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
		r.Route("/journals", params.JournalsHandler.MountRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/sales", params.SalesHandler.MountRoutes)
		r.Route("/purchases", params.ProcurementHandler.MountRoutes)
		if params.BridgeHandler != nil {
			params.BridgeHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
