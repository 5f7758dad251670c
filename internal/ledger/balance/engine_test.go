package balance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/shared"
)

type postedLine struct {
	accountID uuid.UUID
	date      time.Time
	debit     decimal.Decimal
	credit    decimal.Decimal
}

type memorySource struct {
	accounts []accounts.Account
	lines    []postedLine
}

func (m *memorySource) List(ctx context.Context, activeOnly bool) ([]accounts.Account, error) {
	out := make([]accounts.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memorySource) GetByID(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return accounts.Account{}, &shared.NotFoundError{Entity: "account", ID: id.String()}
}

func (m *memorySource) ActivityTotals(ctx context.Context, accountID uuid.UUID, r shared.DateRange) (Activity, error) {
	var activity Activity
	for _, l := range m.lines {
		if l.accountID != accountID || !r.Contains(l.date) {
			continue
		}
		activity.Debit = activity.Debit.Add(l.debit)
		activity.Credit = activity.Credit.Add(l.credit)
	}
	return activity, nil
}

func (m *memorySource) ActivityByAccount(ctx context.Context, r shared.DateRange) (map[uuid.UUID]Activity, error) {
	out := make(map[uuid.UUID]Activity)
	for _, l := range m.lines {
		if !r.Contains(l.date) {
			continue
		}
		activity := out[l.accountID]
		activity.Debit = activity.Debit.Add(l.debit)
		activity.Credit = activity.Credit.Add(l.credit)
		out[l.accountID] = activity
	}
	return out, nil
}

func dec(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDebitNormalBalance(t *testing.T) {
	cash := accounts.Account{ID: uuid.New(), Code: "1-1100", NormalBalance: accounts.NormalDebit,
		OpeningBalance: dec("1000"), IsActive: true}
	src := &memorySource{
		accounts: []accounts.Account{cash},
		lines: []postedLine{
			{accountID: cash.ID, date: day(2025, 1, 5), debit: dec("500")},
			{accountID: cash.ID, date: day(2025, 1, 9), credit: dec("200")},
		},
	}
	engine := NewEngine(src, src)

	got, err := engine.AccountBalance(context.Background(), cash.ID, day(2025, 1, 31))
	require.NoError(t, err)
	require.True(t, got.Equal(dec("1300")), "got %s", got)
}

func TestCreditNormalBalance(t *testing.T) {
	payable := accounts.Account{ID: uuid.New(), Code: "2-1100", NormalBalance: accounts.NormalCredit,
		OpeningBalance: dec("300"), IsActive: true}
	src := &memorySource{
		accounts: []accounts.Account{payable},
		lines: []postedLine{
			{accountID: payable.ID, date: day(2025, 1, 5), credit: dec("700")},
			{accountID: payable.ID, date: day(2025, 1, 15), debit: dec("100")},
		},
	}
	engine := NewEngine(src, src)

	got, err := engine.AccountBalance(context.Background(), payable.ID, day(2025, 1, 31))
	require.NoError(t, err)
	require.True(t, got.Equal(dec("900")), "got %s", got)
}

func TestBalanceHonorsAsOfDate(t *testing.T) {
	cash := accounts.Account{ID: uuid.New(), Code: "1-1100", NormalBalance: accounts.NormalDebit, IsActive: true}
	src := &memorySource{
		accounts: []accounts.Account{cash},
		lines: []postedLine{
			{accountID: cash.ID, date: day(2025, 1, 10), debit: dec("100")},
			{accountID: cash.ID, date: day(2025, 2, 10), debit: dec("50")},
		},
	}
	engine := NewEngine(src, src)

	got, err := engine.AccountBalance(context.Background(), cash.ID, day(2025, 1, 31))
	require.NoError(t, err)
	require.True(t, got.Equal(dec("100")))
}

func TestMovementExcludesOpening(t *testing.T) {
	cash := accounts.Account{ID: uuid.New(), Code: "1-1100", NormalBalance: accounts.NormalDebit,
		OpeningBalance: dec("9999"), IsActive: true}
	src := &memorySource{
		accounts: []accounts.Account{cash},
		lines: []postedLine{
			{accountID: cash.ID, date: day(2025, 1, 10), debit: dec("40"), credit: dec("10")},
		},
	}
	engine := NewEngine(src, src)

	got, err := engine.Movement(context.Background(), cash.ID, shared.DateRange{From: day(2025, 1, 1), To: day(2025, 1, 31)})
	require.NoError(t, err)
	require.True(t, got.Equal(dec("30")))
}

func TestRowsSplitOpeningAndPeriod(t *testing.T) {
	cash := accounts.Account{ID: uuid.New(), Code: "1-1100", NormalBalance: accounts.NormalDebit,
		OpeningBalance: dec("100"), IsActive: true}
	inactive := accounts.Account{ID: uuid.New(), Code: "1-9999", NormalBalance: accounts.NormalDebit, IsActive: false}
	src := &memorySource{
		accounts: []accounts.Account{cash, inactive},
		lines: []postedLine{
			{accountID: cash.ID, date: day(2025, 1, 10), debit: dec("50")},
			{accountID: cash.ID, date: day(2025, 2, 10), debit: dec("25")},
		},
	}
	engine := NewEngine(src, src)

	rows, err := engine.Rows(context.Background(), shared.DateRange{From: day(2025, 2, 1), To: day(2025, 2, 28)})
	require.NoError(t, err)
	require.Len(t, rows, 1, "inactive accounts are excluded")

	row := rows[0]
	require.True(t, row.Opening.Equal(dec("150")), "opening folds in pre-period activity, got %s", row.Opening)
	require.True(t, row.Debit.Equal(dec("25")))
	require.True(t, row.Closing().Equal(dec("175")))
}
