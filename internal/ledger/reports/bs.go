package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/balance"
)

// BalanceSheetSection contains the nonzero accounts and total for one side.
type BalanceSheetSection struct {
	Label string
	Lines []StatementLine
	Total decimal.Decimal
}

// BalanceSheet is the statement of financial position as of a date. Balanced
// is computed, never assumed: callers surface it so a drifting ledger is
// visible instead of silently reconciled.
type BalanceSheet struct {
	AsOf                      time.Time
	Assets                    BalanceSheetSection
	Liabilities               BalanceSheetSection
	Equity                    BalanceSheetSection
	CurrentEarnings           decimal.Decimal
	TotalLiabilitiesAndEquity decimal.Decimal
	Balanced                  bool
}

// BuildBalanceSheet folds closing balances into the two sides. Revenue and
// expense closings are rolled into equity as current earnings, since the
// ledger carries no closing entries.
func BuildBalanceSheet(rows []balance.Row, asOf time.Time) BalanceSheet {
	bs := BalanceSheet{
		AsOf:        asOf,
		Assets:      BalanceSheetSection{Label: "Assets"},
		Liabilities: BalanceSheetSection{Label: "Liabilities"},
		Equity:      BalanceSheetSection{Label: "Equity"},
	}
	var earnings decimal.Decimal
	for _, row := range rows {
		closing := row.Closing()
		switch row.Account.Type {
		case accounts.AccountTypeAsset:
			appendNonzero(&bs.Assets, row.Account, closing)
		case accounts.AccountTypeLiability:
			appendNonzero(&bs.Liabilities, row.Account, closing)
		case accounts.AccountTypeEquity:
			appendNonzero(&bs.Equity, row.Account, closing)
		case accounts.AccountTypeRevenue:
			earnings = earnings.Add(closing)
		case accounts.AccountTypeExpense:
			earnings = earnings.Sub(closing)
		}
	}
	for _, section := range []*BalanceSheetSection{&bs.Assets, &bs.Liabilities, &bs.Equity} {
		sort.Slice(section.Lines, func(i, j int) bool { return section.Lines[i].Code < section.Lines[j].Code })
	}
	bs.CurrentEarnings = earnings
	if !earnings.IsZero() {
		bs.Equity.Lines = append(bs.Equity.Lines, StatementLine{Name: "Current Period Earnings", Amount: earnings})
		bs.Equity.Total = bs.Equity.Total.Add(earnings)
	}
	bs.TotalLiabilitiesAndEquity = bs.Liabilities.Total.Add(bs.Equity.Total)
	bs.Balanced = bs.Assets.Total.Sub(bs.TotalLiabilitiesAndEquity).Abs().LessThan(decimal.NewFromFloat(0.01))
	return bs
}

func appendNonzero(section *BalanceSheetSection, account accounts.Account, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	section.Lines = append(section.Lines, StatementLine{Code: account.Code, Name: account.Name, Amount: amount})
	section.Total = section.Total.Add(amount)
}
