package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/ledger/balance"
	"github.com/brightline-erp/brightline/internal/ledger/journals"
	"github.com/brightline-erp/brightline/internal/ledger/reports"
	"github.com/brightline-erp/brightline/internal/shared"
)

// EntrySource loads posted entries for the check.
type EntrySource interface {
	PostedEntries(ctx context.Context, dr shared.DateRange) ([]reports.PostedEntry, error)
}

// RowSource loads per-account balance rows for the check.
type RowSource interface {
	Rows(ctx context.Context, r shared.DateRange) ([]balance.Row, error)
}

// IntegrityChecker re-verifies the two invariants the posting path is
// supposed to guarantee: every posted entry balances, and the trial balance
// columns agree. A failure means data was corrupted outside the application
// and needs operator attention.
type IntegrityChecker struct {
	entries EntrySource
	rows    RowSource
	logger  *slog.Logger
}

// NewIntegrityChecker constructs the checker.
func NewIntegrityChecker(entries EntrySource, rows RowSource, logger *slog.Logger) *IntegrityChecker {
	return &IntegrityChecker{entries: entries, rows: rows, logger: logger}
}

// Run executes the check over the given period.
func (c *IntegrityChecker) Run(ctx context.Context, dr shared.DateRange) error {
	entries, err := c.entries.PostedEntries(ctx, dr)
	if err != nil {
		return err
	}
	var unbalanced []string
	for _, entry := range entries {
		debit := entryTotal(entry, true)
		credit := entryTotal(entry, false)
		if debit.Sub(credit).Abs().GreaterThan(journals.BalanceTolerance) {
			unbalanced = append(unbalanced, entry.Number)
		}
	}
	if len(unbalanced) > 0 {
		c.logger.Error("unbalanced posted entries found", "entries", unbalanced)
		return fmt.Errorf("ledger integrity: %d posted entries out of balance", len(unbalanced))
	}

	rows, err := c.rows.Rows(ctx, dr)
	if err != nil {
		return err
	}
	tb := reports.BuildTrialBalance(rows, dr.To)
	if !tb.Balanced() {
		c.logger.Error("trial balance out of balance",
			"debit", tb.TotalDebit.String(), "credit", tb.TotalCredit.String())
		return fmt.Errorf("ledger integrity: trial balance differs by %s",
			tb.TotalDebit.Sub(tb.TotalCredit).Abs().String())
	}

	c.logger.Info("ledger integrity check passed", "entries", len(entries), "accounts", len(rows))
	return nil
}

func entryTotal(entry reports.PostedEntry, debit bool) decimal.Decimal {
	total := decimal.Zero
	for _, line := range entry.Lines {
		if debit {
			total = total.Add(line.Debit)
		} else {
			total = total.Add(line.Credit)
		}
	}
	return total
}

// HandleTask adapts Run to an asynq handler.
func (c *IntegrityChecker) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Scheduled runs carry an empty payload and cover the trailing month.
	if payload.To.IsZero() {
		payload.To = time.Now()
	}
	if payload.From.IsZero() {
		payload.From = payload.To.AddDate(0, -1, 0)
	}
	return c.Run(ctx, shared.DateRange{From: payload.From, To: payload.To})
}
