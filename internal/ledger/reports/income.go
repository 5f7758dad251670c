package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/balance"
)

// StatementLine is one account's contribution to a statement section.
type StatementLine struct {
	Code   string
	Name   string
	Amount decimal.Decimal
}

// StatementSection groups account lines under one heading.
type StatementSection struct {
	Label string
	Lines []StatementLine
	Total decimal.Decimal
	Ratio string
}

// Figure is a computed subtotal with its percent-of-revenue ratio.
type Figure struct {
	Amount decimal.Decimal
	Ratio  string
}

// IncomeStatement is the multi-step profit and loss report. Every subtotal
// carries its ratio against gross revenue.
type IncomeStatement struct {
	Revenue            StatementSection
	COGS               StatementSection
	GrossProfit        Figure
	OperatingExpenses  StatementSection
	OperatingIncome    Figure
	OtherIncome        StatementSection
	OtherExpenses      StatementSection
	FinanceCost        StatementSection
	AssociateLoss      StatementSection
	IncomeBeforeTax    Figure
	Tax                StatementSection
	NetIncome          Figure
	OCI                StatementSection
	TotalComprehensive Figure
}

// incomeSectionFor maps an account to the statement section it feeds, or ""
// when it does not participate. Uncategorised revenue falls back to other
// income and uncategorised expenses to operating expenses.
func incomeSectionFor(a accounts.Account) string {
	switch a.Category {
	case accounts.CategorySales, accounts.CategoryConsignment:
		return "revenue"
	case accounts.CategoryCOGS:
		return "cogs"
	case accounts.CategoryOperatingExpense:
		return "opex"
	case accounts.CategoryOtherIncome:
		return "other_income"
	case accounts.CategoryOtherExpense:
		return "other_expense"
	case accounts.CategoryFinanceCost:
		return "finance"
	case accounts.CategoryAssociateLoss:
		return "associate"
	case accounts.CategoryTax:
		return "tax"
	case accounts.CategoryOCI:
		return "oci"
	}
	switch a.Type {
	case accounts.AccountTypeRevenue:
		return "other_income"
	case accounts.AccountTypeExpense:
		return "opex"
	}
	return ""
}

// BuildIncomeStatement assembles the multi-step pipeline from period
// movements: gross revenue, gross profit after COGS, operating income, income
// before tax after the non-operating items, net income after tax and total
// comprehensive income after OCI.
func BuildIncomeStatement(rows []balance.Row) IncomeStatement {
	is := IncomeStatement{
		Revenue:           StatementSection{Label: "Revenue"},
		COGS:              StatementSection{Label: "Cost of Goods Sold"},
		OperatingExpenses: StatementSection{Label: "Operating Expenses"},
		OtherIncome:       StatementSection{Label: "Other Income"},
		OtherExpenses:     StatementSection{Label: "Other Expenses"},
		FinanceCost:       StatementSection{Label: "Finance Cost"},
		AssociateLoss:     StatementSection{Label: "Share of Associate Loss"},
		Tax:               StatementSection{Label: "Income Tax"},
		OCI:               StatementSection{Label: "Other Comprehensive Income"},
	}
	sections := map[string]*StatementSection{
		"revenue":       &is.Revenue,
		"cogs":          &is.COGS,
		"opex":          &is.OperatingExpenses,
		"other_income":  &is.OtherIncome,
		"other_expense": &is.OtherExpenses,
		"finance":       &is.FinanceCost,
		"associate":     &is.AssociateLoss,
		"tax":           &is.Tax,
		"oci":           &is.OCI,
	}

	for _, row := range rows {
		key := incomeSectionFor(row.Account)
		section, ok := sections[key]
		if !ok {
			continue
		}
		amount := row.Net()
		if amount.IsZero() {
			continue
		}
		section.Lines = append(section.Lines, StatementLine{
			Code:   row.Account.Code,
			Name:   row.Account.Name,
			Amount: amount,
		})
		section.Total = section.Total.Add(amount)
	}
	for _, section := range sections {
		sort.Slice(section.Lines, func(i, j int) bool { return section.Lines[i].Code < section.Lines[j].Code })
	}

	revenue := is.Revenue.Total
	gross := revenue.Sub(is.COGS.Total)
	operating := gross.Sub(is.OperatingExpenses.Total)
	beforeTax := operating.Add(is.OtherIncome.Total).
		Sub(is.OtherExpenses.Total).
		Sub(is.FinanceCost.Total).
		Sub(is.AssociateLoss.Total)
	net := beforeTax.Sub(is.Tax.Total)
	comprehensive := net.Add(is.OCI.Total)

	for _, section := range sections {
		section.Ratio = Ratio(section.Total, revenue)
	}
	is.GrossProfit = Figure{Amount: gross, Ratio: Ratio(gross, revenue)}
	is.OperatingIncome = Figure{Amount: operating, Ratio: Ratio(operating, revenue)}
	is.IncomeBeforeTax = Figure{Amount: beforeTax, Ratio: Ratio(beforeTax, revenue)}
	is.NetIncome = Figure{Amount: net, Ratio: Ratio(net, revenue)}
	is.TotalComprehensive = Figure{Amount: comprehensive, Ratio: Ratio(comprehensive, revenue)}
	return is
}
