package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightline-erp/brightline/internal/shared"
)

const accountColumns = `id, code, name, type, category, normal_balance, opening_balance, description, is_active, created_at, updated_at`

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	List(ctx context.Context, activeOnly bool) ([]Account, error)
	FindByType(ctx context.Context, t AccountType) ([]Account, error)
	FindByCategory(ctx context.Context, c Category) ([]Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	HasLines(ctx context.Context, id uuid.UUID) (bool, error)
	HasPostedLinesSince(ctx context.Context, id uuid.UUID, since time.Time) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.NormalBalance,
		&a.OpeningBalance, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (id, code, name, type, category, normal_balance, opening_balance, description, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING `+accountColumns,
		a.ID, a.Code, a.Name, a.Type, a.Category, a.NormalBalance, a.OpeningBalance, a.Description, a.IsActive)
	inserted, err := scanAccount(row)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return Account{}, &shared.DuplicateError{Entity: "account", Key: a.Code}
		}
		return Account{}, err
	}
	return inserted, nil
}

func (r *repository) Update(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts
SET name=$2, category=$3, opening_balance=$4, description=$5, updated_at=NOW()
WHERE id=$1
RETURNING `+accountColumns,
		a.ID, a.Name, a.Category, a.OpeningBalance, a.Description)
	updated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, &shared.NotFoundError{Entity: "account", ID: a.ID.String()}
		}
		return Account{}, err
	}
	return updated, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, &shared.NotFoundError{Entity: "account", ID: id.String()}
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, &shared.NotFoundError{Entity: "account", ID: code}
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY code`
	return r.collect(ctx, query)
}

func (r *repository) FindByType(ctx context.Context, t AccountType) ([]Account, error) {
	return r.collect(ctx, `SELECT `+accountColumns+` FROM accounts WHERE type=$1 AND is_active ORDER BY code`, t)
}

func (r *repository) FindByCategory(ctx context.Context, c Category) ([]Account, error) {
	return r.collect(ctx, `SELECT `+accountColumns+` FROM accounts WHERE category=$1 AND is_active ORDER BY code`, c)
}

func (r *repository) collect(ctx context.Context, query string, args ...any) ([]Account, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "account", ID: id.String()}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "account", ID: id.String()}
	}
	return nil
}

func (r *repository) HasLines(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *repository) HasPostedLinesSince(ctx context.Context, id uuid.UUID, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
WHERE l.account_id=$1 AND e.status='POSTED' AND e.date >= $2)`, id, since).Scan(&exists)
	return exists, err
}
