package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightline-erp/brightline/internal/inventory"
	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/journals"
	"github.com/brightline-erp/brightline/internal/procurement"
	"github.com/brightline-erp/brightline/internal/sales"
	"github.com/brightline-erp/brightline/internal/shared"
)

type journalStub struct {
	created   []journals.CreateInput
	voided    []uuid.UUID
	lastID    uuid.UUID
	createErr error
	voidErr   error
}

func (j *journalStub) Create(ctx context.Context, in journals.CreateInput) (journals.JournalEntry, error) {
	if j.createErr != nil {
		return journals.JournalEntry{}, j.createErr
	}
	if err := in.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	j.created = append(j.created, in)
	j.lastID = uuid.New()
	return journals.JournalEntry{ID: j.lastID, Number: fmt.Sprintf("JU-202501-%04d", len(j.created)), Status: journals.JournalStatusPosted}, nil
}

func (j *journalStub) Void(ctx context.Context, in journals.VoidInput) (journals.JournalEntry, error) {
	if j.voidErr != nil {
		return journals.JournalEntry{}, j.voidErr
	}
	j.voided = append(j.voided, in.EntryID)
	return journals.JournalEntry{ID: in.EntryID, Status: journals.JournalStatusVoid}, nil
}

type resolverStub struct {
	roles map[accounts.Category]accounts.Account
}

func newResolverStub() *resolverStub {
	r := &resolverStub{roles: make(map[accounts.Category]accounts.Account)}
	for _, c := range []accounts.Category{
		accounts.CategoryReceivable, accounts.CategorySales,
		accounts.CategoryCOGS, accounts.CategoryInventory, accounts.CategoryPayable,
	} {
		r.roles[c] = accounts.Account{ID: uuid.New(), Code: string(c), Name: string(c), IsActive: true}
	}
	return r
}

func (r *resolverStub) ResolveRole(ctx context.Context, c accounts.Category) (accounts.Account, error) {
	if a, ok := r.roles[c]; ok {
		return a, nil
	}
	return accounts.Account{}, shared.Configurationf("no active account for role %s", c)
}

type stockCall struct {
	itemID uuid.UUID
	in     inventory.MovementInput
}

type stockStub struct {
	items        map[uuid.UUID]inventory.Item
	reduced      []stockCall
	added        []stockCall
	failReduceAt int // 1-based call index that fails, 0 = never
	failAddAt    int
}

func newStockStub() *stockStub {
	return &stockStub{items: make(map[uuid.UUID]inventory.Item)}
}

func (s *stockStub) add(sku, name string, stock float64, cost decimal.Decimal) uuid.UUID {
	id := uuid.New()
	s.items[id] = inventory.Item{ID: id, SKU: sku, Name: name, Unit: "pcs", CostPrice: cost, CurrentStock: stock, IsActive: true}
	return id
}

func (s *stockStub) GetItem(ctx context.Context, id uuid.UUID) (inventory.Item, error) {
	if it, ok := s.items[id]; ok {
		return it, nil
	}
	return inventory.Item{}, &shared.NotFoundError{Entity: "item", ID: id.String()}
}

func (s *stockStub) AddStock(ctx context.Context, itemID uuid.UUID, in inventory.MovementInput) (inventory.StockTransaction, error) {
	if s.failAddAt > 0 && len(s.added)+1 == s.failAddAt {
		return inventory.StockTransaction{}, errors.New("stock write failed")
	}
	it := s.items[itemID]
	it.CurrentStock += in.Quantity
	s.items[itemID] = it
	s.added = append(s.added, stockCall{itemID: itemID, in: in})
	return inventory.StockTransaction{ItemID: itemID, Type: inventory.StockIn, Quantity: in.Quantity, NewStock: it.CurrentStock}, nil
}

func (s *stockStub) ReduceStock(ctx context.Context, itemID uuid.UUID, in inventory.MovementInput) (inventory.StockTransaction, error) {
	if s.failReduceAt > 0 && len(s.reduced)+1 == s.failReduceAt {
		return inventory.StockTransaction{}, errors.New("stock write failed")
	}
	it := s.items[itemID]
	if it.CurrentStock < in.Quantity {
		return inventory.StockTransaction{}, &shared.InsufficientStockError{ItemName: it.Name, Available: it.CurrentStock, Required: in.Quantity}
	}
	it.CurrentStock -= in.Quantity
	s.items[itemID] = it
	s.reduced = append(s.reduced, stockCall{itemID: itemID, in: in})
	return inventory.StockTransaction{ItemID: itemID, Type: inventory.StockOut, Quantity: -in.Quantity, NewStock: it.CurrentStock}, nil
}

type guardStub struct {
	keys map[string]string
}

func newGuardStub() *guardStub {
	return &guardStub{keys: make(map[string]string)}
}

func (g *guardStub) CheckAndInsert(ctx context.Context, key, module string) error {
	if _, ok := g.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	g.keys[key] = module
	return nil
}

func (g *guardStub) Delete(ctx context.Context, key string) error {
	delete(g.keys, key)
	return nil
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func testHooks(j *journalStub, r *resolverStub, s *stockStub) *Hooks {
	return NewHooks(j, r, s, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testSale(lines ...sales.SaleLine) sales.Sale {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromFloat(l.Quantity)))
	}
	return sales.Sale{
		ID:           uuid.New(),
		Number:       "INV-202501-0001",
		Date:         time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		CustomerName: "PT Maju Jaya",
		Lines:        lines,
		Total:        total,
		Status:       sales.StatusDraft,
		CreatedBy:    "tester",
	}
}

func TestSaleApprovedPostsJournalAndIssuesStock(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 20, dec("5000"))
	itemB := stock.add("SKU-B", "Gadget", 10, dec("2000"))
	hooks := testHooks(journal, resolver, stock)

	sale := testSale(
		sales.SaleLine{ItemID: itemA, Quantity: 4, UnitPrice: dec("10000")},
		sales.SaleLine{ItemID: itemB, Quantity: 2, UnitPrice: dec("5000")},
	)
	journalID, err := hooks.SaleApproved(context.Background(), sale)
	require.NoError(t, err)
	require.Equal(t, journal.lastID, journalID)

	require.Len(t, journal.created, 1)
	in := journal.created[0]
	require.Equal(t, journals.KindSales, in.Kind)
	require.True(t, in.Post)
	require.Equal(t, "sales", in.SourceModule)
	require.Len(t, in.Lines, 4)
	// AR debit / revenue credit at invoice total
	require.True(t, in.Lines[0].Debit.Equal(dec("50000")))
	require.True(t, in.Lines[1].Credit.Equal(dec("50000")))
	// COGS at item cost: 4*5000 + 2*2000
	require.True(t, in.Lines[2].Debit.Equal(dec("24000")))
	require.True(t, in.Lines[3].Credit.Equal(dec("24000")))

	require.Len(t, stock.reduced, 2)
	require.Equal(t, 16.0, stock.items[itemA].CurrentStock)
	require.Equal(t, 8.0, stock.items[itemB].CurrentStock)
	// issues carry the item cost, not the sell price
	require.True(t, stock.reduced[0].in.UnitCost.Equal(dec("5000")))
}

func TestSaleApprovedFailsFastOnShortStock(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 20, dec("5000"))
	itemB := stock.add("SKU-B", "Gadget", 1, dec("2000"))
	hooks := testHooks(journal, resolver, stock)

	sale := testSale(
		sales.SaleLine{ItemID: itemA, Quantity: 4, UnitPrice: dec("10000")},
		sales.SaleLine{ItemID: itemB, Quantity: 5, UnitPrice: dec("5000")},
	)
	_, err := hooks.SaleApproved(context.Background(), sale)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// nothing was written: no journal, no movements, balances intact
	require.Empty(t, journal.created)
	require.Empty(t, stock.reduced)
	require.Equal(t, 20.0, stock.items[itemA].CurrentStock)
}

func TestSaleApprovedCompensatesMidFailure(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 20, dec("5000"))
	itemB := stock.add("SKU-B", "Gadget", 10, dec("2000"))
	hooks := testHooks(journal, resolver, stock)

	stock.failReduceAt = 2
	sale := testSale(
		sales.SaleLine{ItemID: itemA, Quantity: 4, UnitPrice: dec("10000")},
		sales.SaleLine{ItemID: itemB, Quantity: 2, UnitPrice: dec("5000")},
	)
	_, err := hooks.SaleApproved(context.Background(), sale)
	require.Error(t, err)
	require.NotErrorIs(t, err, shared.ErrPartialFailure)

	// the first issue was restored and the journal voided
	require.Len(t, stock.added, 1)
	require.Equal(t, itemA, stock.added[0].itemID)
	require.Equal(t, 20.0, stock.items[itemA].CurrentStock)
	require.Equal(t, []uuid.UUID{journal.lastID}, journal.voided)
}

func TestSaleApprovedSurfacesPartialFailure(t *testing.T) {
	journal := &journalStub{voidErr: errors.New("journal store down")}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 20, dec("5000"))
	itemB := stock.add("SKU-B", "Gadget", 10, dec("2000"))
	hooks := testHooks(journal, resolver, stock)

	stock.failReduceAt = 2
	sale := testSale(
		sales.SaleLine{ItemID: itemA, Quantity: 4, UnitPrice: dec("10000")},
		sales.SaleLine{ItemID: itemB, Quantity: 2, UnitPrice: dec("5000")},
	)
	_, err := hooks.SaleApproved(context.Background(), sale)
	require.ErrorIs(t, err, shared.ErrPartialFailure)
}

func TestSaleApprovedMissingRoleIsConfigurationError(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	delete(resolver.roles, accounts.CategorySales)
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 20, dec("5000"))
	hooks := testHooks(journal, resolver, stock)

	sale := testSale(sales.SaleLine{ItemID: itemA, Quantity: 1, UnitPrice: dec("10000")})
	_, err := hooks.SaleApproved(context.Background(), sale)
	require.ErrorIs(t, err, shared.ErrConfiguration)
	require.Empty(t, journal.created)
	require.Empty(t, stock.reduced)
}

func TestSaleApprovedRetriesAfterShortStock(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 2, dec("5000"))
	guard := newGuardStub()
	hooks := NewHooks(journal, resolver, stock, nil, guard, slog.New(slog.NewTextHandler(io.Discard, nil)))

	sale := testSale(sales.SaleLine{ItemID: itemA, Quantity: 4, UnitPrice: dec("10000")})
	_, err := hooks.SaleApproved(context.Background(), sale)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// a failed approval must not claim the fence
	require.Empty(t, guard.keys)

	// restock and retry the same sale
	it := stock.items[itemA]
	it.CurrentStock = 10
	stock.items[itemA] = it
	_, err = hooks.SaleApproved(context.Background(), sale)
	require.NoError(t, err)
	require.Len(t, journal.created, 1)
	require.Len(t, guard.keys, 1)
}

func TestSaleApprovedReleasesFenceWhenPostFails(t *testing.T) {
	journal := &journalStub{createErr: errors.New("journal store down")}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 20, dec("5000"))
	guard := newGuardStub()
	hooks := NewHooks(journal, resolver, stock, nil, guard, slog.New(slog.NewTextHandler(io.Discard, nil)))

	sale := testSale(sales.SaleLine{ItemID: itemA, Quantity: 4, UnitPrice: dec("10000")})
	_, err := hooks.SaleApproved(context.Background(), sale)
	require.Error(t, err)
	require.Empty(t, guard.keys)
	require.Empty(t, stock.reduced)

	// the store recovers and the retry goes through
	journal.createErr = nil
	_, err = hooks.SaleApproved(context.Background(), sale)
	require.NoError(t, err)
	require.Len(t, journal.created, 1)
	require.Len(t, stock.reduced, 1)
}

func TestSaleApprovedRefusesDuplicateApproval(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 20, dec("5000"))
	guard := newGuardStub()
	hooks := NewHooks(journal, resolver, stock, nil, guard, slog.New(slog.NewTextHandler(io.Discard, nil)))

	sale := testSale(sales.SaleLine{ItemID: itemA, Quantity: 4, UnitPrice: dec("10000")})
	_, err := hooks.SaleApproved(context.Background(), sale)
	require.NoError(t, err)

	_, err = hooks.SaleApproved(context.Background(), sale)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Len(t, journal.created, 1)
	require.Len(t, stock.reduced, 1)
}

func TestPurchaseApprovedReleasesFenceWhenPostFails(t *testing.T) {
	journal := &journalStub{createErr: errors.New("journal store down")}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 5, dec("5000"))
	guard := newGuardStub()
	hooks := NewHooks(journal, resolver, stock, nil, guard, slog.New(slog.NewTextHandler(io.Discard, nil)))

	purchase := procurement.Purchase{
		ID:           uuid.New(),
		Number:       "PO-202501-0001",
		Date:         time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		SupplierName: "CV Sumber Rejeki",
		Lines:        []procurement.PurchaseLine{{ItemID: itemA, Quantity: 10, UnitPrice: dec("4500")}},
		Total:        dec("45000"),
		CreatedBy:    "tester",
	}
	_, err := hooks.PurchaseApproved(context.Background(), purchase)
	require.Error(t, err)
	require.Empty(t, guard.keys)

	journal.createErr = nil
	_, err = hooks.PurchaseApproved(context.Background(), purchase)
	require.NoError(t, err)
	require.Len(t, guard.keys, 1)

	_, err = hooks.PurchaseApproved(context.Background(), purchase)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Len(t, journal.created, 1)
}

func TestSaleCancelledRestoresStockAndVoidsJournal(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 16, dec("5000"))
	hooks := testHooks(journal, resolver, stock)

	journalID := uuid.New()
	sale := testSale(sales.SaleLine{ItemID: itemA, Quantity: 4, UnitPrice: dec("10000")})
	sale.Status = sales.StatusApproved
	sale.JournalID = &journalID

	err := hooks.SaleCancelled(context.Background(), sale, "customer backed out")
	require.NoError(t, err)
	require.Len(t, stock.added, 1)
	require.Equal(t, "sales_return", stock.added[0].in.Reference.Module)
	require.Equal(t, 20.0, stock.items[itemA].CurrentStock)
	require.Equal(t, []uuid.UUID{journalID}, journal.voided)
}

func TestPurchaseApprovedPostsJournalAndReceivesStock(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 5, dec("5000"))
	hooks := testHooks(journal, resolver, stock)

	purchase := procurement.Purchase{
		ID:           uuid.New(),
		Number:       "PO-202501-0001",
		Date:         time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		SupplierName: "CV Sumber Rejeki",
		Lines:        []procurement.PurchaseLine{{ItemID: itemA, Quantity: 10, UnitPrice: dec("4500")}},
		Total:        dec("45000"),
		CreatedBy:    "tester",
	}
	journalID, err := hooks.PurchaseApproved(context.Background(), purchase)
	require.NoError(t, err)
	require.Equal(t, journal.lastID, journalID)

	require.Len(t, journal.created, 1)
	in := journal.created[0]
	require.Equal(t, journals.KindPurchase, in.Kind)
	require.Len(t, in.Lines, 2)
	require.True(t, in.Lines[0].Debit.Equal(dec("45000")))
	require.True(t, in.Lines[1].Credit.Equal(dec("45000")))

	require.Len(t, stock.added, 1)
	// received at the purchase unit price, not the old cost price
	require.True(t, stock.added[0].in.UnitCost.Equal(dec("4500")))
	require.Equal(t, 15.0, stock.items[itemA].CurrentStock)
}

func TestPurchaseCancelledRemovesStockAndVoidsJournal(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 15, dec("5000"))
	hooks := testHooks(journal, resolver, stock)

	journalID := uuid.New()
	purchase := procurement.Purchase{
		ID:        uuid.New(),
		Number:    "PO-202501-0001",
		Lines:     []procurement.PurchaseLine{{ItemID: itemA, Quantity: 10, UnitPrice: dec("4500")}},
		JournalID: &journalID,
		Status:    procurement.StatusApproved,
	}
	err := hooks.PurchaseCancelled(context.Background(), purchase, "wrong supplier")
	require.NoError(t, err)
	require.Equal(t, 5.0, stock.items[itemA].CurrentStock)
	require.Equal(t, "purchase_cancel", stock.reduced[0].in.Reference.Module)
	require.Equal(t, []uuid.UUID{journalID}, journal.voided)
}

func TestPurchaseCancelledFailsWhenGoodsAlreadySold(t *testing.T) {
	journal := &journalStub{}
	resolver := newResolverStub()
	stock := newStockStub()
	itemA := stock.add("SKU-A", "Widget", 3, dec("5000"))
	hooks := testHooks(journal, resolver, stock)

	purchase := procurement.Purchase{
		ID:     uuid.New(),
		Number: "PO-202501-0001",
		Lines:  []procurement.PurchaseLine{{ItemID: itemA, Quantity: 10, UnitPrice: dec("4500")}},
		Status: procurement.StatusApproved,
	}
	err := hooks.PurchaseCancelled(context.Background(), purchase, "wrong supplier")
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Empty(t, journal.voided)
}
