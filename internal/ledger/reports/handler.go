package reports

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightline-erp/brightline/internal/platform/httpx"
	"github.com/brightline-erp/brightline/internal/shared"
)

// Handler exposes the statement endpoints. Identical concurrent requests are
// coalesced through singleflight since every build walks the posted log.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/general-ledger", h.GeneralLedgerAll)
	r.Get("/general-ledger/{accountId}", h.GeneralLedger)
	r.Get("/general-journal", h.GeneralJournal)
	r.Get("/income-statement", h.IncomeStatement)
	r.Get("/balance-sheet", h.BalanceSheet)
	r.Get("/equity-statement", h.EquityStatement)
	r.Get("/cash-flow", h.CashFlow)
	r.Get("/dashboard", h.Dashboard)
}

func parseAsOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("asOf")
	if raw == "" {
		return time.Now(), nil
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, shared.Validationf("invalid asOf date %q", raw)
	}
	return asOf, nil
}

func parseRange(r *http.Request) (shared.DateRange, error) {
	q := r.URL.Query()
	return shared.ParseDateRange(q.Get("from"), q.Get("to"))
}

func rangeKey(r shared.DateRange) string {
	return r.From.Format("20060102") + ":" + r.To.Format("20060102")
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := coalesce(r.Context(), "tb:"+asOf.Format("20060102"), func(ctx context.Context) (TrialBalance, error) {
		return h.service.TrialBalance(ctx, asOf)
	})
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) GeneralLedger(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid account id"))
		return
	}
	dr, err := parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	card, err := coalesce(r.Context(), "gl:"+accountID.String()+":"+rangeKey(dr), func(ctx context.Context) (LedgerAccount, error) {
		return h.service.GeneralLedger(ctx, accountID, dr)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, card)
}

func (h *Handler) GeneralLedgerAll(w http.ResponseWriter, r *http.Request) {
	dr, err := parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	cards, err := coalesce(r.Context(), "glall:"+rangeKey(dr), func(ctx context.Context) ([]LedgerAccount, error) {
		return h.service.GeneralLedgerAll(ctx, dr)
	})
	if err != nil {
		h.logger.Error("general ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cards)
}

func (h *Handler) GeneralJournal(w http.ResponseWriter, r *http.Request) {
	dr, err := parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	gj, err := coalesce(r.Context(), "gj:"+rangeKey(dr), func(ctx context.Context) (GeneralJournal, error) {
		return h.service.GeneralJournal(ctx, dr)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, gj)
}

func (h *Handler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	dr, err := parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	is, err := coalesce(r.Context(), "is:"+rangeKey(dr), func(ctx context.Context) (IncomeStatement, error) {
		return h.service.IncomeStatement(ctx, dr)
	})
	if err != nil {
		h.logger.Error("income statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, is)
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bs, err := coalesce(r.Context(), "bs:"+asOf.Format("20060102"), func(ctx context.Context) (BalanceSheet, error) {
		return h.service.BalanceSheet(ctx, asOf)
	})
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) EquityStatement(w http.ResponseWriter, r *http.Request) {
	dr, err := parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := coalesce(r.Context(), "eq:"+rangeKey(dr), func(ctx context.Context) (EquityStatement, error) {
		return h.service.EquityStatement(ctx, dr)
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	dr, err := parseRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	st, err := coalesce(r.Context(), "cf:"+rangeKey(dr), func(ctx context.Context) (CashFlowStatement, error) {
		return h.service.CashFlow(ctx, dr)
	})
	if err != nil {
		h.logger.Error("cash flow", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, shared.Validationf("invalid year %q", raw))
			return
		}
		year = parsed
	}
	summary, err := coalesce(r.Context(), "dash:"+strconv.Itoa(year), func(ctx context.Context) (DashboardSummary, error) {
		return h.service.Dashboard(ctx, year)
	})
	if err != nil {
		h.logger.Error("dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
