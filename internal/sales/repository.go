package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightline-erp/brightline/internal/platform/db"
	"github.com/brightline-erp/brightline/internal/shared"
)

const saleColumns = `id, number, date, due_date, customer_name, customer_address, customer_phone,
subtotal, discount_total, tax_rate, tax_amount, total, paid_amount, status, payment_status,
journal_id, notes, created_by, approved_by, approved_at, cancelled_by, cancelled_at, cancel_reason,
created_at, updated_at`

// Repository encapsulates DB operations for sales.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Sale, shared.Pagination, error)
	GetByID(ctx context.Context, id uuid.UUID) (Sale, error)
	GetByNumber(ctx context.Context, number string) (Sale, error)
	Outstanding(ctx context.Context) ([]Sale, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations available within a transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, prefix string, date time.Time) (string, error)
	Insert(ctx context.Context, s Sale) error
	InsertLines(ctx context.Context, saleID uuid.UUID, lines []SaleLine) error
	DeleteLines(ctx context.Context, saleID uuid.UUID) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (Sale, error)
	Update(ctx context.Context, s Sale) error
	UpdateState(ctx context.Context, s Sale) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.Number, &s.Date, &s.DueDate, &s.CustomerName, &s.CustomerAddress, &s.CustomerPhone,
		&s.Subtotal, &s.DiscountTotal, &s.TaxRate, &s.TaxAmount, &s.Total, &s.PaidAmount, &s.Status, &s.PaymentStatus,
		&s.JournalID, &s.Notes, &s.CreatedBy, &s.ApprovedBy, &s.ApprovedAt, &s.CancelledBy, &s.CancelledAt, &s.CancelReason,
		&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Sale, shared.Pagination, error) {
	where := ` WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where += ` AND status=` + arg(filter.Status)
	}
	if filter.PaymentStatus != "" {
		where += ` AND payment_status=` + arg(filter.PaymentStatus)
	}
	if !filter.Range.From.IsZero() {
		where += ` AND date >= ` + arg(filter.Range.From)
	}
	if !filter.Range.To.IsZero() {
		where += ` AND date <= ` + arg(filter.Range.To)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sales`+where, args...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, total)

	query := `SELECT ` + saleColumns + ` FROM sales` + where +
		` ORDER BY date DESC, number DESC LIMIT ` + arg(page.PerPage) + ` OFFSET ` + arg(page.Offset())
	sales, err := r.collect(ctx, query, args...)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range sales {
		sales[i].Lines, err = r.loadLines(ctx, r.db, sales[i].ID)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
	}
	return sales, page, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (Sale, error) {
	s, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, &shared.NotFoundError{Entity: "sale", ID: id.String()}
		}
		return Sale{}, err
	}
	s.Lines, err = r.loadLines(ctx, r.db, id)
	return s, err
}

func (r *repository) GetByNumber(ctx context.Context, number string) (Sale, error) {
	s, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE number=$1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, &shared.NotFoundError{Entity: "sale", ID: number}
		}
		return Sale{}, err
	}
	s.Lines, err = r.loadLines(ctx, r.db, s.ID)
	return s, err
}

// Outstanding lists approved or completed sales that are not fully paid,
// oldest due date first.
func (r *repository) Outstanding(ctx context.Context) ([]Sale, error) {
	sales, err := r.collect(ctx, `SELECT `+saleColumns+` FROM sales
WHERE status IN ('APPROVED','COMPLETED') AND payment_status IN ('UNPAID','PARTIAL')
ORDER BY due_date`)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Lines, err = r.loadLines(ctx, r.db, sales[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (r *repository) collect(ctx context.Context, query string, args ...any) ([]Sale, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *repository) loadLines(ctx context.Context, q queryer, saleID uuid.UUID) ([]SaleLine, error) {
	rows, err := q.Query(ctx, `SELECT id, sale_id, item_id, item_sku, item_name, unit, quantity, unit_price, discount_amount, subtotal, position
FROM sale_lines WHERE sale_id=$1 ORDER BY position`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []SaleLine
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ItemID, &l.ItemSKU, &l.ItemName, &l.Unit,
			&l.Quantity, &l.UnitPrice, &l.DiscountAmount, &l.Subtotal, &l.Position); err != nil {
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

// NextNumber claims the next invoice number, seeding the counter from the
// highest number already stored for the prefix and month.
func (r *txRepository) NextNumber(ctx context.Context, prefix string, date time.Time) (string, error) {
	pattern := fmt.Sprintf("%s-%s-%%", prefix, shared.PeriodKey(date))
	var seed int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(CAST(RIGHT(number, 4) AS BIGINT)), 0)
FROM sales WHERE number LIKE $1`, pattern).Scan(&seed)
	if err != nil {
		return "", err
	}
	return shared.NextDocumentNumber(ctx, r.tx, prefix, date, seed)
}

func (r *txRepository) Insert(ctx context.Context, s Sale) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sales
(id, number, date, due_date, customer_name, customer_address, customer_phone,
subtotal, discount_total, tax_rate, tax_amount, total, paid_amount, status, payment_status, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		s.ID, s.Number, s.Date, s.DueDate, s.CustomerName, s.CustomerAddress, s.CustomerPhone,
		s.Subtotal, s.DiscountTotal, s.TaxRate, s.TaxAmount, s.Total, s.PaidAmount, s.Status, s.PaymentStatus,
		s.Notes, s.CreatedBy)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return &shared.DuplicateError{Entity: "sale", Key: s.Number}
		}
		return err
	}
	return nil
}

func (r *txRepository) InsertLines(ctx context.Context, saleID uuid.UUID, lines []SaleLine) error {
	for i, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sale_lines
(id, sale_id, item_id, item_sku, item_name, unit, quantity, unit_price, discount_amount, subtotal, position)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			uuid.New(), saleID, line.ItemID, line.ItemSKU, line.ItemName, line.Unit,
			line.Quantity, line.UnitPrice, line.DiscountAmount, line.Subtotal, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, saleID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM sale_lines WHERE sale_id=$1`, saleID)
	return err
}

func (r *txRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (Sale, error) {
	s, err := scanSale(r.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, &shared.NotFoundError{Entity: "sale", ID: id.String()}
		}
		return Sale{}, err
	}
	s.Lines, err = r.parent.loadLines(ctx, r.tx, id)
	return s, err
}

func (r *txRepository) Update(ctx context.Context, s Sale) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE sales
SET date=$2, due_date=$3, customer_name=$4, customer_address=$5, customer_phone=$6,
subtotal=$7, discount_total=$8, tax_rate=$9, tax_amount=$10, total=$11, payment_status=$12, notes=$13, updated_at=NOW()
WHERE id=$1`, s.ID, s.Date, s.DueDate, s.CustomerName, s.CustomerAddress, s.CustomerPhone,
		s.Subtotal, s.DiscountTotal, s.TaxRate, s.TaxAmount, s.Total, s.PaymentStatus, s.Notes)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale", ID: s.ID.String()}
	}
	return nil
}

// UpdateState writes lifecycle, payment and audit fields.
func (r *txRepository) UpdateState(ctx context.Context, s Sale) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE sales
SET status=$2, payment_status=$3, paid_amount=$4, journal_id=$5,
approved_by=$6, approved_at=$7, cancelled_by=$8, cancelled_at=$9, cancel_reason=$10, updated_at=NOW()
WHERE id=$1`, s.ID, s.Status, s.PaymentStatus, s.PaidAmount, s.JournalID,
		s.ApprovedBy, s.ApprovedAt, s.CancelledBy, s.CancelledAt, s.CancelReason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale", ID: s.ID.String()}
	}
	return nil
}

func (r *txRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DeleteLines(ctx, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM sales WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale", ID: id.String()}
	}
	return nil
}
