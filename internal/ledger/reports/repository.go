// Package reports builds the financial statements. Builders are pure
// functions over balance rows and posted lines so they can be unit-tested
// against synthetic data; the service wires them to the balance engine.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/shared"
)

// PostedLine is a journal line joined with its entry header and the account's
// current classification.
type PostedLine struct {
	EntryID       uuid.UUID
	Number        string
	Date          time.Time
	Description   string
	AccountID     uuid.UUID
	AccountCode   string
	AccountName   string
	Category      accounts.Category
	NormalBalance accounts.NormalBalance
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Memo          string
}

// PostedEntry groups the lines of one posted journal entry.
type PostedEntry struct {
	ID          uuid.UUID
	Number      string
	Date        time.Time
	Description string
	Lines       []PostedLine
}

// MonthlyPoint is one month's revenue and expense activity.
type MonthlyPoint struct {
	Month   time.Month
	Revenue decimal.Decimal
	Expense decimal.Decimal
}

// Repository loads line-level report inputs. Only POSTED entries contribute.
type Repository interface {
	PostedLinesForAccount(ctx context.Context, accountID uuid.UUID, r shared.DateRange) ([]PostedLine, error)
	PostedEntries(ctx context.Context, r shared.DateRange) ([]PostedEntry, error)
	MonthlyTotals(ctx context.Context, year int) ([]MonthlyPoint, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed loader.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const postedLineSelect = `SELECT e.id, e.number, e.date, e.description,
l.account_id, l.account_code, l.account_name, a.category, a.normal_balance,
l.debit, l.credit, l.memo
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
JOIN accounts a ON a.id = l.account_id
WHERE e.status='POSTED'`

func appendRange(r shared.DateRange, args *[]any) string {
	clause := ""
	if !r.From.IsZero() {
		*args = append(*args, r.From)
		clause += fmt.Sprintf(" AND e.date >= $%d", len(*args))
	}
	if !r.To.IsZero() {
		*args = append(*args, r.ExclusiveEnd())
		clause += fmt.Sprintf(" AND e.date < $%d", len(*args))
	}
	return clause
}

func (r *repository) collectLines(ctx context.Context, query string, args ...any) ([]PostedLine, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PostedLine
	for rows.Next() {
		var l PostedLine
		if err := rows.Scan(&l.EntryID, &l.Number, &l.Date, &l.Description,
			&l.AccountID, &l.AccountCode, &l.AccountName, &l.Category, &l.NormalBalance,
			&l.Debit, &l.Credit, &l.Memo); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) PostedLinesForAccount(ctx context.Context, accountID uuid.UUID, dr shared.DateRange) ([]PostedLine, error) {
	args := []any{accountID}
	query := postedLineSelect + ` AND l.account_id=$1` + appendRange(dr, &args) +
		` ORDER BY e.date, e.number, l.position`
	return r.collectLines(ctx, query, args...)
}

func (r *repository) PostedEntries(ctx context.Context, dr shared.DateRange) ([]PostedEntry, error) {
	args := []any{}
	query := postedLineSelect + appendRange(dr, &args) +
		` ORDER BY e.date, e.number, l.position`
	lines, err := r.collectLines(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return groupEntries(lines), nil
}

func groupEntries(lines []PostedLine) []PostedEntry {
	var out []PostedEntry
	index := make(map[uuid.UUID]int)
	for _, l := range lines {
		i, ok := index[l.EntryID]
		if !ok {
			out = append(out, PostedEntry{ID: l.EntryID, Number: l.Number, Date: l.Date, Description: l.Description})
			i = len(out) - 1
			index[l.EntryID] = i
		}
		out[i].Lines = append(out[i].Lines, l)
	}
	return out
}

func (r *repository) MonthlyTotals(ctx context.Context, year int) ([]MonthlyPoint, error) {
	rows, err := r.db.Query(ctx, `SELECT EXTRACT(MONTH FROM e.date)::INT,
COALESCE(SUM(CASE WHEN a.type='REVENUE' THEN l.credit - l.debit ELSE 0 END), 0),
COALESCE(SUM(CASE WHEN a.type='EXPENSE' THEN l.debit - l.credit ELSE 0 END), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
JOIN accounts a ON a.id = l.account_id
WHERE e.status='POSTED' AND EXTRACT(YEAR FROM e.date)::INT = $1
GROUP BY 1 ORDER BY 1`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthlyPoint
	for rows.Next() {
		var month int
		var p MonthlyPoint
		if err := rows.Scan(&month, &p.Revenue, &p.Expense); err != nil {
			return nil, err
		}
		p.Month = time.Month(month)
		out = append(out, p)
	}
	return out, rows.Err()
}
