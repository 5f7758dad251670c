package inventory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightline-erp/brightline/internal/shared"
)

type memoryRepo struct {
	items map[uuid.UUID]*Item
	txs   []StockTransaction
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[uuid.UUID]*Item)}
}

func (r *memoryRepo) addItem(sku, name string, stock float64, cost decimal.Decimal) uuid.UUID {
	id := uuid.New()
	r.items[id] = &Item{ID: id, SKU: sku, Name: name, Unit: "pcs", CostPrice: cost, CurrentStock: stock, IsActive: true}
	return id
}

func (r *memoryRepo) InsertItem(ctx context.Context, item Item) error {
	for _, existing := range r.items {
		if existing.SKU == item.SKU {
			return &shared.DuplicateError{Entity: "item", Key: item.SKU}
		}
	}
	clone := item
	r.items[item.ID] = &clone
	return nil
}

func (r *memoryRepo) UpdateItem(ctx context.Context, item Item) error {
	existing, ok := r.items[item.ID]
	if !ok {
		return &shared.NotFoundError{Entity: "item", ID: item.ID.String()}
	}
	stock := existing.CurrentStock
	clone := item
	clone.CurrentStock = stock
	r.items[item.ID] = &clone
	return nil
}

func (r *memoryRepo) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	if it, ok := r.items[id]; ok {
		return *it, nil
	}
	return Item{}, &shared.NotFoundError{Entity: "item", ID: id.String()}
}

func (r *memoryRepo) GetItemBySKU(ctx context.Context, sku string) (Item, error) {
	for _, it := range r.items {
		if it.SKU == sku {
			return *it, nil
		}
	}
	return Item{}, &shared.NotFoundError{Entity: "item", ID: sku}
}

func (r *memoryRepo) ListItems(ctx context.Context, includeInactive bool) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if it.IsActive || includeInactive {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *memoryRepo) LowStock(ctx context.Context) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if it.IsActive && it.CurrentStock <= it.MinimumStock {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *memoryRepo) SetItemActive(ctx context.Context, id uuid.UUID, active bool) error {
	it, ok := r.items[id]
	if !ok {
		return &shared.NotFoundError{Entity: "item", ID: id.String()}
	}
	it.IsActive = active
	return nil
}

func (r *memoryRepo) History(ctx context.Context, itemID uuid.UUID, filter HistoryFilter) ([]StockTransaction, shared.Pagination, error) {
	var out []StockTransaction
	for _, tx := range r.txs {
		if tx.ItemID != itemID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		out = append(out, tx)
	}
	return out, shared.NewPagination(filter.Page, filter.PerPage, len(out)), nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetItemForUpdate(ctx context.Context, id uuid.UUID) (Item, error) {
	return tx.repo.GetItem(ctx, id)
}

func (tx *memoryTx) UpdateItemStock(ctx context.Context, id uuid.UUID, stock float64) error {
	it, ok := tx.repo.items[id]
	if !ok {
		return &shared.NotFoundError{Entity: "item", ID: id.String()}
	}
	it.CurrentStock = stock
	return nil
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, t StockTransaction) error {
	tx.repo.txs = append(tx.repo.txs, t)
	return nil
}

func testService(repo Repository) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAddStockRecordsLedgerRow(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addItem("SKU-001", "Widget", 10, dec("5000"))
	svc := testService(repo)

	tx, err := svc.AddStock(context.Background(), id, MovementInput{
		Quantity:  4,
		Reference: Reference{Module: "purchase", Number: "PUR-202501-0001"},
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	require.Equal(t, StockIn, tx.Type)
	require.Equal(t, 4.0, tx.Quantity)
	require.Equal(t, 10.0, tx.PreviousStock)
	require.Equal(t, 14.0, tx.NewStock)
	require.Equal(t, tx.PreviousStock+tx.Quantity, tx.NewStock)
	// unit cost defaults to the item's cost price
	require.True(t, tx.UnitCost.Equal(dec("5000")))
	require.True(t, tx.TotalCost.Equal(dec("20000")))

	item, err := repo.GetItem(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 14.0, item.CurrentStock)
}

func TestAddStockKeepsExplicitUnitCost(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addItem("SKU-001", "Widget", 0, dec("5000"))
	svc := testService(repo)

	tx, err := svc.AddStock(context.Background(), id, MovementInput{Quantity: 2, UnitCost: dec("7500")})
	require.NoError(t, err)
	require.True(t, tx.UnitCost.Equal(dec("7500")))
	require.True(t, tx.TotalCost.Equal(dec("15000")))

	// receipts never rewrite the item's cost price
	item, err := repo.GetItem(context.Background(), id)
	require.NoError(t, err)
	require.True(t, item.CostPrice.Equal(dec("5000")))
}

func TestReduceStockStoresNegativeQuantity(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addItem("SKU-001", "Widget", 10, dec("5000"))
	svc := testService(repo)

	tx, err := svc.ReduceStock(context.Background(), id, MovementInput{
		Quantity:  3,
		Reference: Reference{Module: "sale", Number: "SAL-202501-0001"},
	})
	require.NoError(t, err)
	require.Equal(t, StockOut, tx.Type)
	require.Equal(t, -3.0, tx.Quantity)
	require.Equal(t, 7.0, tx.NewStock)
	require.True(t, tx.TotalCost.Equal(dec("-15000")))
}

func TestReduceStockRefusesShortfall(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addItem("SKU-001", "Widget", 5, dec("5000"))
	svc := testService(repo)

	_, err := svc.ReduceStock(context.Background(), id, MovementInput{Quantity: 8})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	var stockErr *shared.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Equal(t, "Widget", stockErr.ItemName)
	require.Equal(t, 5.0, stockErr.Available)
	require.Equal(t, 8.0, stockErr.Required)

	// refused movements leave stock and the ledger untouched
	item, err := repo.GetItem(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 5.0, item.CurrentStock)
	require.Empty(t, repo.txs)
}

func TestMovementRejectsNonPositiveQuantity(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addItem("SKU-001", "Widget", 5, dec("5000"))
	svc := testService(repo)

	_, err := svc.AddStock(context.Background(), id, MovementInput{Quantity: 0})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.ReduceStock(context.Background(), id, MovementInput{Quantity: -2})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAdjustStockRecordsDelta(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addItem("SKU-001", "Widget", 12, dec("5000"))
	svc := testService(repo)

	tx, err := svc.AdjustStock(context.Background(), id, AdjustInput{NewStock: 9, Note: "stock opname", CreatedBy: "tester"})
	require.NoError(t, err)
	require.Equal(t, StockAdjust, tx.Type)
	require.Equal(t, -3.0, tx.Quantity)
	require.Equal(t, 12.0, tx.PreviousStock)
	require.Equal(t, 9.0, tx.NewStock)
	require.Equal(t, "manual_adjustment", tx.Reference.Module)

	item, err := repo.GetItem(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 9.0, item.CurrentStock)
}

func TestAdjustStockRejectsNegativeLevel(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addItem("SKU-001", "Widget", 12, dec("5000"))
	svc := testService(repo)

	_, err := svc.AdjustStock(context.Background(), id, AdjustInput{NewStock: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateItemRecordsOpeningStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := testService(repo)

	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		SKU:          "SKU-010",
		Name:         "Gadget",
		CostPrice:    dec("2500"),
		SellPrice:    dec("4000"),
		CurrentStock: 6,
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, item.CurrentStock)

	txs, _, err := repo.History(context.Background(), item.ID, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, StockIn, txs[0].Type)
	require.Equal(t, "opening_balance", txs[0].Reference.Module)
}

func TestCreateItemRejectsDuplicateSKU(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem("SKU-001", "Widget", 0, dec("5000"))
	svc := testService(repo)

	_, err := svc.CreateItem(context.Background(), CreateItemInput{SKU: "SKU-001", Name: "Other"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestLowStockListsItemsAtOrBelowMinimum(t *testing.T) {
	repo := newMemoryRepo()
	low := repo.addItem("SKU-001", "Widget", 2, dec("5000"))
	repo.items[low].MinimumStock = 5
	ok := repo.addItem("SKU-002", "Gadget", 20, dec("2500"))
	repo.items[ok].MinimumStock = 5
	svc := testService(repo)

	items, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "SKU-001", items[0].SKU)
}

func TestHasStock(t *testing.T) {
	repo := newMemoryRepo()
	id := repo.addItem("SKU-001", "Widget", 5, dec("5000"))
	svc := testService(repo)

	got, err := svc.HasStock(context.Background(), id, 5)
	require.NoError(t, err)
	require.True(t, got)

	got, err = svc.HasStock(context.Background(), id, 6)
	require.NoError(t, err)
	require.False(t, got)
}
