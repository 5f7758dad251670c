package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/platform/db"
	"github.com/brightline-erp/brightline/internal/shared"
)

const entryColumns = `id, number, date, description, kind, status, source_module, source_id, created_by, posted_at, voided_at, void_reason, created_at, updated_at`

// Repository encapsulates DB operations for journals.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, shared.Pagination, error)
	GetByID(ctx context.Context, id uuid.UUID) (JournalEntry, error)
	GetByNumber(ctx context.Context, number string) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations available within a transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, prefix string, date time.Time) (string, error)
	InsertEntry(ctx context.Context, e JournalEntry) error
	InsertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error
	DeleteLines(ctx context.Context, entryID uuid.UUID) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (JournalEntry, error)
	UpdateEntry(ctx context.Context, e JournalEntry) error
	UpdateStatus(ctx context.Context, e JournalEntry) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ResolveAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]accounts.Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.Number, &e.Date, &e.Description, &e.Kind, &e.Status,
		&e.SourceModule, &e.SourceID, &e.CreatedBy, &e.PostedAt, &e.VoidedAt, &e.VoidReason,
		&e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, shared.Pagination, error) {
	where := ` WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where += ` AND status=` + arg(filter.Status)
	}
	if filter.Kind != "" {
		where += ` AND kind=` + arg(filter.Kind)
	}
	if !filter.Range.From.IsZero() {
		where += ` AND date >= ` + arg(filter.Range.From)
	}
	if !filter.Range.To.IsZero() {
		where += ` AND date <= ` + arg(filter.Range.To)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries`+where, args...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, total)

	query := `SELECT ` + entryColumns + ` FROM journal_entries` + where +
		` ORDER BY date DESC, number DESC LIMIT ` + arg(page.PerPage) + ` OFFSET ` + arg(page.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range entries {
		lines, err := r.loadLines(ctx, r.db, entries[i].ID)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		entries[i].Lines = lines
	}
	return entries, page, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, &shared.NotFoundError{Entity: "journal entry", ID: id.String()}
		}
		return JournalEntry{}, err
	}
	e.Lines, err = r.loadLines(ctx, r.db, id)
	return e, err
}

func (r *repository) GetByNumber(ctx context.Context, number string) (JournalEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE number=$1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, &shared.NotFoundError{Entity: "journal entry", ID: number}
		}
		return JournalEntry{}, err
	}
	e.Lines, err = r.loadLines(ctx, r.db, e.ID)
	return e, err
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *repository) loadLines(ctx context.Context, q queryer, entryID uuid.UUID) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, journal_id, account_id, account_code, account_name, debit, credit, memo, position
FROM journal_lines WHERE journal_id=$1 ORDER BY position`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.AccountCode, &l.AccountName,
			&l.Debit, &l.Credit, &l.Memo, &l.Position); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, parent: r})
	})
}

type txRepository struct {
	tx     pgx.Tx
	parent *repository
}

// NextNumber claims the next sequence number for the prefix and month. The
// seed picks up behind journals that predate the sequence table, so numbering
// continues from the highest existing document.
func (r *txRepository) NextNumber(ctx context.Context, prefix string, date time.Time) (string, error) {
	pattern := fmt.Sprintf("%s-%s-%%", prefix, shared.PeriodKey(date))
	var seed int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(CAST(RIGHT(number, 4) AS BIGINT)), 0)
FROM journal_entries WHERE number LIKE $1`, pattern).Scan(&seed)
	if err != nil {
		return "", err
	}
	return shared.NextDocumentNumber(ctx, r.tx, prefix, date, seed)
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_entries (id, number, date, description, kind, status, source_module, source_id, created_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.Number, e.Date, e.Description, e.Kind, e.Status, e.SourceModule, e.SourceID, e.CreatedBy, e.PostedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return &shared.DuplicateError{Entity: "journal entry", Key: e.Number}
		}
		return err
	}
	return nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	for i, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (id, journal_id, account_id, account_code, account_name, debit, credit, memo, position)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			uuid.New(), entryID, line.AccountID, line.AccountCode, line.AccountName,
			line.Debit, line.Credit, line.Memo, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, entryID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id=$1`, entryID)
	return err
}

func (r *txRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	e, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, &shared.NotFoundError{Entity: "journal entry", ID: id.String()}
		}
		return JournalEntry{}, err
	}
	e.Lines, err = r.parent.loadLines(ctx, r.tx, id)
	return e, err
}

func (r *txRepository) UpdateEntry(ctx context.Context, e JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET date=$2, description=$3, kind=$4, updated_at=NOW()
WHERE id=$1`, e.ID, e.Date, e.Description, e.Kind)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "journal entry", ID: e.ID.String()}
	}
	return nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, e JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET status=$2, posted_at=$3, voided_at=$4, void_reason=$5, updated_at=NOW()
WHERE id=$1`, e.ID, e.Status, e.PostedAt, e.VoidedAt, e.VoidReason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "journal entry", ID: e.ID.String()}
	}
	return nil
}

func (r *txRepository) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := r.DeleteLines(ctx, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "journal entry", ID: id.String()}
	}
	return nil
}

// ResolveAccounts loads the referenced accounts for snapshotting. Missing or
// inactive accounts fail the whole batch.
func (r *txRepository) ResolveAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]accounts.Account, error) {
	out := make(map[uuid.UUID]accounts.Account, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		var a accounts.Account
		err := r.tx.QueryRow(ctx, `SELECT id, code, name, type, category, normal_balance, opening_balance, description, is_active, created_at, updated_at
FROM accounts WHERE id=$1`, id).
			Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.NormalBalance,
				&a.OpeningBalance, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &shared.NotFoundError{Entity: "account", ID: id.String()}
			}
			return nil, err
		}
		if !a.IsActive {
			return nil, shared.Validationf("account %s is inactive", a.Code)
		}
		out[id] = a
	}
	return out, nil
}
