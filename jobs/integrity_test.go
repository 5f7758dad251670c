package jobs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/balance"
	"github.com/brightline-erp/brightline/internal/ledger/reports"
	"github.com/brightline-erp/brightline/internal/shared"
)

type stubEntries struct {
	entries []reports.PostedEntry
}

func (s stubEntries) PostedEntries(_ context.Context, _ shared.DateRange) ([]reports.PostedEntry, error) {
	return s.entries, nil
}

type stubRows struct {
	rows []balance.Row
}

func (s stubRows) Rows(_ context.Context, _ shared.DateRange) ([]balance.Row, error) {
	return s.rows, nil
}

func entryWith(number string, debit, credit float64) reports.PostedEntry {
	return reports.PostedEntry{
		Number: number,
		Date:   time.Now(),
		Lines: []reports.PostedLine{
			{Debit: decimal.NewFromFloat(debit)},
			{Credit: decimal.NewFromFloat(credit)},
		},
	}
}

func balancedRows() []balance.Row {
	return []balance.Row{
		{
			Account: accounts.Account{Category: accounts.CategoryCash, NormalBalance: accounts.NormalDebit},
			Debit:   decimal.NewFromFloat(1000),
		},
		{
			Account: accounts.Account{Category: accounts.CategorySales, NormalBalance: accounts.NormalCredit},
			Credit:  decimal.NewFromFloat(1000),
		},
	}
}

func testRange() shared.DateRange {
	now := time.Now()
	return shared.DateRange{From: now.AddDate(0, -1, 0), To: now}
}

func TestIntegrityPassesOnBalancedLedger(t *testing.T) {
	checker := NewIntegrityChecker(
		stubEntries{entries: []reports.PostedEntry{entryWith("JU-202605-0001", 1000, 1000)}},
		stubRows{rows: balancedRows()},
		slog.Default(),
	)

	require.NoError(t, checker.Run(context.Background(), testRange()))
}

func TestIntegrityFlagsUnbalancedEntry(t *testing.T) {
	checker := NewIntegrityChecker(
		stubEntries{entries: []reports.PostedEntry{
			entryWith("JU-202605-0001", 1000, 1000),
			entryWith("JU-202605-0002", 500, 450),
		}},
		stubRows{rows: balancedRows()},
		slog.Default(),
	)

	err := checker.Run(context.Background(), testRange())
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of balance")
}

func TestIntegrityFlagsSkewedTrialBalance(t *testing.T) {
	rows := balancedRows()
	rows[1].Credit = decimal.NewFromFloat(900)
	checker := NewIntegrityChecker(
		stubEntries{entries: []reports.PostedEntry{entryWith("JU-202605-0001", 1000, 1000)}},
		stubRows{rows: rows},
		slog.Default(),
	)

	err := checker.Run(context.Background(), testRange())
	require.Error(t, err)
	require.Contains(t, err.Error(), "trial balance")
}

func TestIntegrityToleratesRoundingResidue(t *testing.T) {
	checker := NewIntegrityChecker(
		stubEntries{entries: []reports.PostedEntry{entryWith("JU-202605-0001", 100.004, 100)}},
		stubRows{rows: balancedRows()},
		slog.Default(),
	)

	require.NoError(t, checker.Run(context.Background(), testRange()))
}
