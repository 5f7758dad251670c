package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/balance"
)

// DashboardSummary is the landing-page financial overview.
type DashboardSummary struct {
	TotalsByType     map[accounts.AccountType]decimal.Decimal
	CashPosition     decimal.Decimal
	NetIncome        decimal.Decimal
	MonthlyTrend     []MonthlyPoint
	ExpenseBreakdown []StatementLine
	Ratios           FinancialRatios
}

// FinancialRatios carries the headline ratios, pre-rendered where division by
// zero must degrade to "0.00%".
type FinancialRatios struct {
	CurrentRatio  string
	ProfitMargin  string
	ReturnOnAsset string
	DebtToEquity  string
	AssetTurnover string
}

func isCurrentAssetRole(c accounts.Category) bool {
	switch c {
	case accounts.CategoryCash, accounts.CategoryBank, accounts.CategoryReceivable, accounts.CategoryInventory:
		return true
	}
	return false
}

// BuildDashboard condenses closing balances and the monthly trend into the
// overview payload.
func BuildDashboard(rows []balance.Row, trend []MonthlyPoint) DashboardSummary {
	summary := DashboardSummary{
		TotalsByType: make(map[accounts.AccountType]decimal.Decimal),
		MonthlyTrend: trend,
	}
	var currentAssets, currentLiabilities decimal.Decimal
	for _, row := range rows {
		closing := row.Closing()
		summary.TotalsByType[row.Account.Type] = summary.TotalsByType[row.Account.Type].Add(closing)
		if isCashRole(row.Account.Category) {
			summary.CashPosition = summary.CashPosition.Add(closing)
		}
		if row.Account.Type == accounts.AccountTypeAsset && isCurrentAssetRole(row.Account.Category) {
			currentAssets = currentAssets.Add(closing)
		}
		if row.Account.Type == accounts.AccountTypeLiability && row.Account.Category == accounts.CategoryPayable {
			currentLiabilities = currentLiabilities.Add(closing)
		}
		if row.Account.Type == accounts.AccountTypeExpense && !closing.IsZero() {
			summary.ExpenseBreakdown = append(summary.ExpenseBreakdown, StatementLine{
				Code:   row.Account.Code,
				Name:   row.Account.Name,
				Amount: closing,
			})
		}
	}
	sort.Slice(summary.ExpenseBreakdown, func(i, j int) bool {
		return summary.ExpenseBreakdown[i].Amount.GreaterThan(summary.ExpenseBreakdown[j].Amount)
	})

	revenue := summary.TotalsByType[accounts.AccountTypeRevenue]
	expense := summary.TotalsByType[accounts.AccountTypeExpense]
	assets := summary.TotalsByType[accounts.AccountTypeAsset]
	liabilities := summary.TotalsByType[accounts.AccountTypeLiability]
	equity := summary.TotalsByType[accounts.AccountTypeEquity]
	summary.NetIncome = revenue.Sub(expense)

	summary.Ratios = FinancialRatios{
		CurrentRatio:  Ratio(currentAssets, currentLiabilities),
		ProfitMargin:  Ratio(summary.NetIncome, revenue),
		ReturnOnAsset: Ratio(summary.NetIncome, assets),
		DebtToEquity:  Ratio(liabilities, equity),
		AssetTurnover: Ratio(revenue, assets),
	}
	return summary
}
