package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightline-erp/brightline/internal/platform/db"
	"github.com/brightline-erp/brightline/internal/shared"
)

const itemColumns = `id, sku, name, unit, cost_price, sell_price, current_stock, minimum_stock, is_active, created_at, updated_at`

// Repository encapsulates DB operations for items and the stock ledger.
type Repository interface {
	InsertItem(ctx context.Context, item Item) error
	UpdateItem(ctx context.Context, item Item) error
	GetItem(ctx context.Context, id uuid.UUID) (Item, error)
	GetItemBySKU(ctx context.Context, sku string) (Item, error)
	ListItems(ctx context.Context, includeInactive bool) ([]Item, error)
	LowStock(ctx context.Context) ([]Item, error)
	SetItemActive(ctx context.Context, id uuid.UUID, active bool) error
	History(ctx context.Context, itemID uuid.UUID, filter HistoryFilter) ([]StockTransaction, shared.Pagination, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the stock mutations available within a transaction.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id uuid.UUID) (Item, error)
	UpdateItemStock(ctx context.Context, id uuid.UUID, stock float64) error
	InsertTransaction(ctx context.Context, tx StockTransaction) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Unit, &it.CostPrice, &it.SellPrice,
		&it.CurrentStock, &it.MinimumStock, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (r *repository) InsertItem(ctx context.Context, item Item) error {
	_, err := r.db.Exec(ctx, `INSERT INTO items (id, sku, name, unit, cost_price, sell_price, current_stock, minimum_stock, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		item.ID, item.SKU, item.Name, item.Unit, item.CostPrice, item.SellPrice,
		item.CurrentStock, item.MinimumStock, item.IsActive)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return &shared.DuplicateError{Entity: "item", Key: item.SKU}
		}
		return err
	}
	return nil
}

func (r *repository) UpdateItem(ctx context.Context, item Item) error {
	cmd, err := r.db.Exec(ctx, `UPDATE items
SET name=$2, unit=$3, cost_price=$4, sell_price=$5, minimum_stock=$6, updated_at=NOW()
WHERE id=$1`, item.ID, item.Name, item.Unit, item.CostPrice, item.SellPrice, item.MinimumStock)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "item", ID: item.ID.String()}
	}
	return nil
}

func (r *repository) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	it, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, &shared.NotFoundError{Entity: "item", ID: id.String()}
		}
		return Item{}, err
	}
	return it, nil
}

func (r *repository) GetItemBySKU(ctx context.Context, sku string) (Item, error) {
	it, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE sku=$1`, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, &shared.NotFoundError{Entity: "item", ID: sku}
		}
		return Item{}, err
	}
	return it, nil
}

func (r *repository) ListItems(ctx context.Context, includeInactive bool) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY sku`
	return r.collectItems(ctx, query)
}

func (r *repository) LowStock(ctx context.Context) ([]Item, error) {
	return r.collectItems(ctx, `SELECT `+itemColumns+` FROM items
WHERE is_active AND current_stock <= minimum_stock ORDER BY sku`)
}

func (r *repository) collectItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) SetItemActive(ctx context.Context, id uuid.UUID, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE items SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "item", ID: id.String()}
	}
	return nil
}

func (r *repository) History(ctx context.Context, itemID uuid.UUID, filter HistoryFilter) ([]StockTransaction, shared.Pagination, error) {
	where := ` WHERE t.item_id=$1`
	args := []any{itemID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Type != "" {
		where += ` AND t.type=` + arg(filter.Type)
	}
	if !filter.Range.From.IsZero() {
		where += ` AND t.created_at >= ` + arg(filter.Range.From)
	}
	if !filter.Range.To.IsZero() {
		where += ` AND t.created_at < ` + arg(filter.Range.ExclusiveEnd())
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM stock_transactions t`+where, args...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, total)

	query := `SELECT t.id, t.item_id, i.sku, i.name, t.type, t.quantity, t.previous_stock, t.new_stock,
t.unit_cost, t.total_cost, t.reference_module, t.reference_id, t.reference_number, t.note, t.created_by, t.created_at
FROM stock_transactions t JOIN items i ON i.id = t.item_id` + where +
		` ORDER BY t.created_at DESC LIMIT ` + arg(page.PerPage) + ` OFFSET ` + arg(page.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var txs []StockTransaction
	for rows.Next() {
		var t StockTransaction
		if err := rows.Scan(&t.ID, &t.ItemID, &t.ItemSKU, &t.ItemName, &t.Type, &t.Quantity,
			&t.PreviousStock, &t.NewStock, &t.UnitCost, &t.TotalCost,
			&t.Reference.Module, &t.Reference.ID, &t.Reference.Number,
			&t.Note, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, shared.Pagination{}, err
		}
		txs = append(txs, t)
	}
	return txs, page, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetItemForUpdate(ctx context.Context, id uuid.UUID) (Item, error) {
	it, err := scanItem(r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, &shared.NotFoundError{Entity: "item", ID: id.String()}
		}
		return Item{}, err
	}
	return it, nil
}

func (r *txRepository) UpdateItemStock(ctx context.Context, id uuid.UUID, stock float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE items SET current_stock=$2, updated_at=NOW() WHERE id=$1`, id, stock)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "item", ID: id.String()}
	}
	return nil
}

func (r *txRepository) InsertTransaction(ctx context.Context, t StockTransaction) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_transactions
(id, item_id, type, quantity, previous_stock, new_stock, unit_cost, total_cost, reference_module, reference_id, reference_number, note, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		t.ID, t.ItemID, t.Type, t.Quantity, t.PreviousStock, t.NewStock,
		t.UnitCost, t.TotalCost, t.Reference.Module, t.Reference.ID, t.Reference.Number,
		t.Note, t.CreatedBy)
	return err
}
