package procurement

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

const purchaseColumns = `id, number, date, due_date, supplier_name, supplier_address, supplier_phone,
subtotal, discount_total, tax_rate, tax_amount, total, paid_amount, status, payment_status,
journal_id, notes, created_by, approved_by, approved_at, received_by, received_at,
cancelled_by, cancelled_at, cancel_reason, created_at, updated_at`

// Repository encapsulates DB operations for purchases.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Purchase, shared.Pagination, error)
	GetByID(ctx context.Context, id uuid.UUID) (Purchase, error)
	GetByNumber(ctx context.Context, number string) (Purchase, error)
	Outstanding(ctx context.Context) ([]Purchase, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations available within a transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, prefix string, date time.Time) (string, error)
	Insert(ctx context.Context, p Purchase) error
	InsertLines(ctx context.Context, purchaseID uuid.UUID, lines []PurchaseLine) error
	DeleteLines(ctx context.Context, purchaseID uuid.UUID) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (Purchase, error)
	Update(ctx context.Context, p Purchase) error
	UpdateState(ctx context.Context, p Purchase) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.Number, &p.Date, &p.DueDate, &p.SupplierName, &p.SupplierAddress, &p.SupplierPhone,
		&p.Subtotal, &p.DiscountTotal, &p.TaxRate, &p.TaxAmount, &p.Total, &p.PaidAmount, &p.Status, &p.PaymentStatus,
		&p.JournalID, &p.Notes, &p.CreatedBy, &p.ApprovedBy, &p.ApprovedAt, &p.ReceivedBy, &p.ReceivedAt,
		&p.CancelledBy, &p.CancelledAt, &p.CancelReason, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Purchase, shared.Pagination, error) {
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
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchases`+where, args...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, total)

	query := `SELECT ` + purchaseColumns + ` FROM purchases` + where +
		` ORDER BY date DESC, number DESC LIMIT ` + arg(page.PerPage) + ` OFFSET ` + arg(page.Offset())
	purchases, err := r.collect(ctx, query, args...)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range purchases {
		purchases[i].Lines, err = r.loadLines(ctx, r.db, purchases[i].ID)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
	}
	return purchases, page, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (Purchase, error) {
	p, err := scanPurchase(r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, &shared.NotFoundError{Entity: "purchase", ID: id.String()}
		}
		return Purchase{}, err
	}
	p.Lines, err = r.loadLines(ctx, r.db, id)
	return p, err
}

func (r *repository) GetByNumber(ctx context.Context, number string) (Purchase, error) {
	p, err := scanPurchase(r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE number=$1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, &shared.NotFoundError{Entity: "purchase", ID: number}
		}
		return Purchase{}, err
	}
	p.Lines, err = r.loadLines(ctx, r.db, p.ID)
	return p, err
}

// Outstanding lists approved or received purchases that are not fully paid,
// oldest due date first.
func (r *repository) Outstanding(ctx context.Context) ([]Purchase, error) {
	purchases, err := r.collect(ctx, `SELECT `+purchaseColumns+` FROM purchases
WHERE status IN ('APPROVED','RECEIVED') AND payment_status IN ('UNPAID','PARTIAL')
ORDER BY due_date`)
	if err != nil {
		return nil, err
	}
	for i := range purchases {
		purchases[i].Lines, err = r.loadLines(ctx, r.db, purchases[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return purchases, nil
}

func (r *repository) collect(ctx context.Context, query string, args ...any) ([]Purchase, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var purchases []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *repository) loadLines(ctx context.Context, q queryer, purchaseID uuid.UUID) ([]PurchaseLine, error) {
	rows, err := q.Query(ctx, `SELECT id, purchase_id, item_id, item_sku, item_name, unit, quantity, unit_price, discount_amount, subtotal, position
FROM purchase_lines WHERE purchase_id=$1 ORDER BY position`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []PurchaseLine
	for rows.Next() {
		var l PurchaseLine
		if err := rows.Scan(&l.ID, &l.PurchaseID, &l.ItemID, &l.ItemSKU, &l.ItemName, &l.Unit,
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

// NextNumber claims the next order number, seeding the counter from the
// highest number already stored for the prefix and month.
func (r *txRepository) NextNumber(ctx context.Context, prefix string, date time.Time) (string, error) {
	pattern := fmt.Sprintf("%s-%s-%%", prefix, shared.PeriodKey(date))
	var seed int64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(CAST(RIGHT(number, 4) AS BIGINT)), 0)
FROM purchases WHERE number LIKE $1`, pattern).Scan(&seed)
	if err != nil {
		return "", err
	}
	return shared.NextDocumentNumber(ctx, r.tx, prefix, date, seed)
}

func (r *txRepository) Insert(ctx context.Context, p Purchase) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO purchases
(id, number, date, due_date, supplier_name, supplier_address, supplier_phone,
subtotal, discount_total, tax_rate, tax_amount, total, paid_amount, status, payment_status, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		p.ID, p.Number, p.Date, p.DueDate, p.SupplierName, p.SupplierAddress, p.SupplierPhone,
		p.Subtotal, p.DiscountTotal, p.TaxRate, p.TaxAmount, p.Total, p.PaidAmount, p.Status, p.PaymentStatus,
		p.Notes, p.CreatedBy)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return &shared.DuplicateError{Entity: "purchase", Key: p.Number}
		}
		return err
	}
	return nil
}

func (r *txRepository) InsertLines(ctx context.Context, purchaseID uuid.UUID, lines []PurchaseLine) error {
	for i, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO purchase_lines
(id, purchase_id, item_id, item_sku, item_name, unit, quantity, unit_price, discount_amount, subtotal, position)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			uuid.New(), purchaseID, line.ItemID, line.ItemSKU, line.ItemName, line.Unit,
			line.Quantity, line.UnitPrice, line.DiscountAmount, line.Subtotal, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, purchaseID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchase_lines WHERE purchase_id=$1`, purchaseID)
	return err
}

func (r *txRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (Purchase, error) {
	p, err := scanPurchase(r.tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, &shared.NotFoundError{Entity: "purchase", ID: id.String()}
		}
		return Purchase{}, err
	}
	p.Lines, err = r.parent.loadLines(ctx, r.tx, id)
	return p, err
}

func (r *txRepository) Update(ctx context.Context, p Purchase) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE purchases
SET date=$2, due_date=$3, supplier_name=$4, supplier_address=$5, supplier_phone=$6,
subtotal=$7, discount_total=$8, tax_rate=$9, tax_amount=$10, total=$11, payment_status=$12, notes=$13, updated_at=NOW()
WHERE id=$1`, p.ID, p.Date, p.DueDate, p.SupplierName, p.SupplierAddress, p.SupplierPhone,
		p.Subtotal, p.DiscountTotal, p.TaxRate, p.TaxAmount, p.Total, p.PaymentStatus, p.Notes)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase", ID: p.ID.String()}
	}
	return nil
}

// UpdateState writes lifecycle, payment and audit fields.
func (r *txRepository) UpdateState(ctx context.Context, p Purchase) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE purchases
SET status=$2, payment_status=$3, paid_amount=$4, journal_id=$5,
approved_by=$6, approved_at=$7, received_by=$8, received_at=$9,
cancelled_by=$10, cancelled_at=$11, cancel_reason=$12, updated_at=NOW()
WHERE id=$1`, p.ID, p.Status, p.PaymentStatus, p.PaidAmount, p.JournalID,
		p.ApprovedBy, p.ApprovedAt, p.ReceivedBy, p.ReceivedAt,
		p.CancelledBy, p.CancelledAt, p.CancelReason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase", ID: p.ID.String()}
	}
	return nil
}

func (r *txRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DeleteLines(ctx, id); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM purchases WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase", ID: id.String()}
	}
	return nil
}
