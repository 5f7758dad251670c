package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/platform/httpx"
	"github.com/brightline-erp/brightline/internal/shared"
)

// Handler exposes inventory endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.ListItems)
	r.Post("/items", h.CreateItem)
	r.Get("/items/low-stock", h.LowStock)
	r.Get("/items/{id}", h.GetItem)
	r.Put("/items/{id}", h.UpdateItem)
	r.Post("/items/{id}/deactivate", h.Deactivate)
	r.Post("/items/{id}/reactivate", h.Reactivate)
	r.Get("/items/{id}/history", h.History)
	r.Post("/items/{id}/add-stock", h.AddStock)
	r.Post("/items/{id}/reduce-stock", h.ReduceStock)
	r.Post("/items/{id}/adjust-stock", h.AdjustStock)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context(), r.URL.Query().Get("includeInactive") == "true")
	if err != nil {
		h.logger.Error("list items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var in CreateItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	item, err := h.service.CreateItem(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid item id"))
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid item id"))
		return
	}
	var in UpdateItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	item, err := h.service.UpdateItem(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStock(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid item id"))
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid item id"))
		return
	}
	if err := h.service.Reactivate(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid item id"))
		return
	}
	q := r.URL.Query()
	rng, err := shared.ParseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))
	filter := HistoryFilter{
		Type:    StockTxType(q.Get("type")),
		Range:   rng,
		Page:    page,
		PerPage: perPage,
	}
	txs, pagination, err := h.service.History(r.Context(), id, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": txs, "pagination": pagination})
}

type movementRequest struct {
	Quantity        float64         `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unitCost"`
	ReferenceModule string          `json:"referenceModule"`
	ReferenceNumber string          `json:"referenceNumber"`
	Note            string          `json:"note"`
	CreatedBy       string          `json:"createdBy"`
}

func (req movementRequest) input() MovementInput {
	return MovementInput{
		Quantity:  req.Quantity,
		UnitCost:  req.UnitCost,
		Reference: Reference{Module: req.ReferenceModule, Number: req.ReferenceNumber},
		Note:      req.Note,
		CreatedBy: req.CreatedBy,
	}
}

func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.service.AddStock)
}

func (h *Handler) ReduceStock(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.service.ReduceStock)
}

func (h *Handler) movement(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, id uuid.UUID, in MovementInput) (StockTransaction, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid item id"))
		return
	}
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	tx, err := apply(r.Context(), id, req.input())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid item id"))
		return
	}
	var in AdjustInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	tx, err := h.service.AdjustStock(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}
