package integration

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/platform/httpx"
)

// requiredRoles are the category roles automatic posting depends on. A
// missing role turns every approval into a ConfigurationError, so operators
// get an endpoint to check the wiring ahead of time.
var requiredRoles = []accounts.Category{
	accounts.CategoryReceivable,
	accounts.CategorySales,
	accounts.CategoryCOGS,
	accounts.CategoryInventory,
	accounts.CategoryPayable,
	accounts.CategoryCash,
}

// Handler exposes the bridge's operational endpoints.
type Handler struct {
	resolver AccountResolver
	logger   *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, resolver AccountResolver) *Handler {
	return &Handler{logger: logger, resolver: resolver}
}

// MountRoutes registers bridge routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/integration/roles", h.Roles)
}

type roleStatus struct {
	Role    string `json:"role"`
	Account string `json:"account,omitempty"`
	Code    string `json:"code,omitempty"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Roles reports whether every account role automatic posting needs resolves
// to an active account.
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	out := make([]roleStatus, 0, len(requiredRoles))
	healthy := true
	for _, role := range requiredRoles {
		status := roleStatus{Role: string(role)}
		account, err := h.resolver.ResolveRole(r.Context(), role)
		if err != nil {
			status.Error = err.Error()
			healthy = false
		} else {
			status.OK = true
			status.Account = account.Name
			status.Code = account.Code
		}
		out = append(out, status)
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	httpx.JSON(w, code, map[string]any{"healthy": healthy, "roles": out})
}
