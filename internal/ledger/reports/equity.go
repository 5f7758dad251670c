package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/balance"
	"github.com/brightline-erp/brightline/internal/shared"
)

// EquityChange is the roll-forward for one equity account.
type EquityChange struct {
	Code       string
	Name       string
	Opening    decimal.Decimal
	Additions  decimal.Decimal
	Reductions decimal.Decimal
	Closing    decimal.Decimal
}

// EquityStatement is the statement of changes in equity for a period. Net
// income for the same period is rolled into the ending total.
type EquityStatement struct {
	Period       shared.DateRange
	Rows         []EquityChange
	NetIncome    decimal.Decimal
	TotalOpening decimal.Decimal
	TotalClosing decimal.Decimal
}

// BuildEquityStatement rolls each equity account forward: opening plus
// credits minus debits, then adds the period's net income to the ending
// equity.
func BuildEquityStatement(rows []balance.Row, period shared.DateRange) EquityStatement {
	st := EquityStatement{Period: period}
	for _, row := range rows {
		if row.Account.Type != accounts.AccountTypeEquity {
			continue
		}
		change := EquityChange{
			Code:       row.Account.Code,
			Name:       row.Account.Name,
			Opening:    row.Opening,
			Additions:  row.Credit,
			Reductions: row.Debit,
			Closing:    row.Closing(),
		}
		st.Rows = append(st.Rows, change)
		st.TotalOpening = st.TotalOpening.Add(change.Opening)
		st.TotalClosing = st.TotalClosing.Add(change.Closing)
	}
	sort.Slice(st.Rows, func(i, j int) bool { return st.Rows[i].Code < st.Rows[j].Code })

	st.NetIncome = BuildIncomeStatement(rows).NetIncome.Amount
	st.TotalClosing = st.TotalClosing.Add(st.NetIncome)
	return st
}
