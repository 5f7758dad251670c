package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/brightline-erp/brightline/internal/ledger/balance"
	"github.com/brightline-erp/brightline/internal/shared"
)

// Service loads statement inputs through the balance engine and the posted
// line repository. Nothing is cached; every call recomputes from the ledger.
type Service struct {
	engine   *balance.Engine
	repo     Repository
	accounts balance.AccountSource
	logger   *slog.Logger
}

// NewService constructs the service.
func NewService(engine *balance.Engine, repo Repository, accounts balance.AccountSource, logger *slog.Logger) *Service {
	return &Service{engine: engine, repo: repo, accounts: accounts, logger: logger}
}

// TrialBalance builds the trial balance as of a date.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalance, error) {
	rows, err := s.engine.Rows(ctx, shared.DateRange{To: asOf})
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(rows, asOf), nil
}

// GeneralLedger builds one account's ledger card. Opening and period lines
// load in parallel.
func (s *Service) GeneralLedger(ctx context.Context, accountID uuid.UUID, r shared.DateRange) (LedgerAccount, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return LedgerAccount{}, err
	}
	var (
		opening decimal.Decimal
		lines   []PostedLine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if r.From.IsZero() {
			opening = account.OpeningBalance
			return nil
		}
		var err error
		opening, err = s.engine.AccountBalance(gctx, accountID, r.From.AddDate(0, 0, -1))
		return err
	})
	g.Go(func() error {
		var err error
		lines, err = s.repo.PostedLinesForAccount(gctx, accountID, r)
		return err
	})
	if err := g.Wait(); err != nil {
		return LedgerAccount{}, err
	}
	return BuildLedgerAccount(account, opening, lines), nil
}

// GeneralLedgerAll builds the ledger card of every active account with
// movement or an opening position in the range.
func (s *Service) GeneralLedgerAll(ctx context.Context, r shared.DateRange) ([]LedgerAccount, error) {
	var (
		rows    []balance.Row
		entries []PostedEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.engine.Rows(gctx, r)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.repo.PostedEntries(gctx, r)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byAccount := make(map[uuid.UUID][]PostedLine)
	for _, entry := range entries {
		for _, line := range entry.Lines {
			byAccount[line.AccountID] = append(byAccount[line.AccountID], line)
		}
	}
	var cards []LedgerAccount
	for _, row := range rows {
		lines := byAccount[row.Account.ID]
		if len(lines) == 0 && row.Opening.IsZero() {
			continue
		}
		cards = append(cards, BuildLedgerAccount(row.Account, row.Opening, lines))
	}
	return cards, nil
}

// IncomeStatement builds the multi-step income statement for a period.
func (s *Service) IncomeStatement(ctx context.Context, r shared.DateRange) (IncomeStatement, error) {
	rows, err := s.engine.Rows(ctx, r)
	if err != nil {
		return IncomeStatement{}, err
	}
	return BuildIncomeStatement(rows), nil
}

// BalanceSheet builds the statement of financial position as of a date.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	rows, err := s.engine.Rows(ctx, shared.DateRange{To: asOf})
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BuildBalanceSheet(rows, asOf)
	if !bs.Balanced {
		s.logger.Warn("balance sheet out of balance",
			slog.String("assets", bs.Assets.Total.StringFixed(2)),
			slog.String("liabilitiesAndEquity", bs.TotalLiabilitiesAndEquity.StringFixed(2)))
	}
	return bs, nil
}

// EquityStatement builds the statement of changes in equity.
func (s *Service) EquityStatement(ctx context.Context, r shared.DateRange) (EquityStatement, error) {
	rows, err := s.engine.Rows(ctx, r)
	if err != nil {
		return EquityStatement{}, err
	}
	return BuildEquityStatement(rows, r), nil
}

// CashFlow builds the classified cash flow statement. The opening cash
// position and the period's entries load in parallel.
func (s *Service) CashFlow(ctx context.Context, r shared.DateRange) (CashFlowStatement, error) {
	var (
		rows    []balance.Row
		entries []PostedEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.engine.Rows(gctx, r)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.repo.PostedEntries(gctx, r)
		return err
	})
	if err := g.Wait(); err != nil {
		return CashFlowStatement{}, err
	}
	var openingCash decimal.Decimal
	for _, row := range rows {
		if isCashRole(row.Account.Category) {
			openingCash = openingCash.Add(row.Opening)
		}
	}
	return BuildCashFlow(entries, openingCash, r), nil
}

// GeneralJournal lists posted entries chronologically with totals.
func (s *Service) GeneralJournal(ctx context.Context, r shared.DateRange) (GeneralJournal, error) {
	entries, err := s.repo.PostedEntries(ctx, r)
	if err != nil {
		return GeneralJournal{}, err
	}
	return BuildGeneralJournal(entries), nil
}

// Dashboard builds the overview for one calendar year.
func (s *Service) Dashboard(ctx context.Context, year int) (DashboardSummary, error) {
	asOf := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	var (
		rows  []balance.Row
		trend []MonthlyPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.engine.Rows(gctx, shared.DateRange{To: asOf})
		return err
	})
	g.Go(func() error {
		var err error
		trend, err = s.repo.MonthlyTotals(gctx, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, err
	}
	return BuildDashboard(rows, trend), nil
}
