package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/balance"
)

// TrialBalanceRow is one account's net closing balance, placed in the column
// matching its sign.
type TrialBalanceRow struct {
	Code    string
	Name    string
	Type    accounts.AccountType
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Display string
}

// TrialBalance is the two-column statement over all active accounts.
type TrialBalance struct {
	AsOf        time.Time
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// Balanced reports whether the columns agree to the cent.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit.Sub(tb.TotalCredit).Abs().LessThan(decimal.NewFromFloat(0.01))
}

// BuildTrialBalance folds balance rows into the two-column layout. A
// debit-normal account with a positive closing lands in the debit column; a
// negative closing flips sides, and symmetrically for credit-normal accounts.
func BuildTrialBalance(rows []balance.Row, asOf time.Time) TrialBalance {
	tb := TrialBalance{AsOf: asOf}
	for _, row := range rows {
		closing := row.Closing()
		out := TrialBalanceRow{
			Code: row.Account.Code,
			Name: row.Account.Name,
			Type: row.Account.Type,
		}
		positive := !closing.IsNegative()
		debitSide := row.Account.NormalBalance == accounts.NormalDebit
		if debitSide == positive {
			out.Debit = closing.Abs()
		} else {
			out.Credit = closing.Abs()
		}
		out.Display = FormatAmount(closing.Abs())
		tb.Rows = append(tb.Rows, out)
		tb.TotalDebit = tb.TotalDebit.Add(out.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(out.Credit)
	}
	sort.Slice(tb.Rows, func(i, j int) bool { return tb.Rows[i].Code < tb.Rows[j].Code })
	return tb
}
