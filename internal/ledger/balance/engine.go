// Package balance computes account balances from the posted journal log.
// Nothing is cached: every figure is recomputed from posted lines plus the
// account's opening balance.
package balance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/shared"
)

// Activity is the posted debit/credit sums for one account over a range.
type Activity struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Repository loads posted-line sums.
type Repository interface {
	ActivityTotals(ctx context.Context, accountID uuid.UUID, r shared.DateRange) (Activity, error)
	ActivityByAccount(ctx context.Context, r shared.DateRange) (map[uuid.UUID]Activity, error)
}

// AccountSource provides the chart of accounts.
type AccountSource interface {
	List(ctx context.Context, activeOnly bool) ([]accounts.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (accounts.Account, error)
}

// Engine is the read-side balance calculator.
type Engine struct {
	repo     Repository
	accounts AccountSource
}

// NewEngine constructs the engine.
func NewEngine(repo Repository, accounts AccountSource) *Engine {
	return &Engine{repo: repo, accounts: accounts}
}

// Signed folds debit and credit activity into the account's increasing
// direction: debit-normal accounts grow with debits, credit-normal accounts
// with credits.
func Signed(nb accounts.NormalBalance, debit, credit decimal.Decimal) decimal.Decimal {
	if nb == accounts.NormalDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// AccountBalance returns the balance as of asOf (inclusive): opening balance
// plus all signed posted activity through the date.
func (e *Engine) AccountBalance(ctx context.Context, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	activity, err := e.repo.ActivityTotals(ctx, accountID, shared.DateRange{To: asOf})
	if err != nil {
		return decimal.Zero, err
	}
	return account.OpeningBalance.Add(Signed(account.NormalBalance, activity.Debit, activity.Credit)), nil
}

// Movement returns the signed net change over the range, excluding the
// opening balance.
func (e *Engine) Movement(ctx context.Context, accountID uuid.UUID, r shared.DateRange) (decimal.Decimal, error) {
	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	activity, err := e.repo.ActivityTotals(ctx, accountID, r)
	if err != nil {
		return decimal.Zero, err
	}
	return Signed(account.NormalBalance, activity.Debit, activity.Credit), nil
}

// Row is one account's opening position and period activity, the common
// input shape for the statement builders.
type Row struct {
	Account accounts.Account
	Opening decimal.Decimal
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// Net is the signed period movement.
func (r Row) Net() decimal.Decimal {
	return Signed(r.Account.NormalBalance, r.Debit, r.Credit)
}

// Closing is the opening position plus the period movement.
func (r Row) Closing() decimal.Decimal {
	return r.Opening.Add(r.Net())
}

// Rows loads every active account's opening position (as of the day before
// r.From) and activity inside r. With a zero From the opening is just the
// account's configured opening balance.
func (e *Engine) Rows(ctx context.Context, r shared.DateRange) ([]Row, error) {
	all, err := e.accounts.List(ctx, true)
	if err != nil {
		return nil, err
	}
	period, err := e.repo.ActivityByAccount(ctx, r)
	if err != nil {
		return nil, err
	}
	var prior map[uuid.UUID]Activity
	if !r.From.IsZero() {
		prior, err = e.repo.ActivityByAccount(ctx, shared.DateRange{To: r.From.AddDate(0, 0, -1)})
		if err != nil {
			return nil, err
		}
	}
	rows := make([]Row, 0, len(all))
	for _, account := range all {
		row := Row{Account: account, Opening: account.OpeningBalance}
		if pre, ok := prior[account.ID]; ok {
			row.Opening = row.Opening.Add(Signed(account.NormalBalance, pre.Debit, pre.Credit))
		}
		if act, ok := period[account.ID]; ok {
			row.Debit = act.Debit
			row.Credit = act.Credit
		}
		rows = append(rows, row)
	}
	return rows, nil
}
