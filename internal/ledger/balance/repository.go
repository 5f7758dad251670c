package balance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightline-erp/brightline/internal/shared"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed sum loader. Only POSTED entries
// contribute.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func rangeClause(r shared.DateRange, args *[]any) string {
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

func (r *repository) ActivityTotals(ctx context.Context, accountID uuid.UUID, dr shared.DateRange) (Activity, error) {
	args := []any{accountID}
	query := `SELECT COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
WHERE e.status='POSTED' AND l.account_id=$1` + rangeClause(dr, &args)
	var activity Activity
	if err := r.db.QueryRow(ctx, query, args...).Scan(&activity.Debit, &activity.Credit); err != nil {
		return Activity{}, err
	}
	return activity, nil
}

func (r *repository) ActivityByAccount(ctx context.Context, dr shared.DateRange) (map[uuid.UUID]Activity, error) {
	args := []any{}
	query := `SELECT l.account_id, COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
WHERE e.status='POSTED'` + rangeClause(dr, &args) + `
GROUP BY l.account_id`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]Activity)
	for rows.Next() {
		var id uuid.UUID
		var activity Activity
		if err := rows.Scan(&id, &activity.Debit, &activity.Credit); err != nil {
			return nil, err
		}
		out[id] = activity
	}
	return out, rows.Err()
}
