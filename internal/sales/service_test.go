package sales

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
	"github.com/brightline-erp/brightline/internal/shared"
)

type memoryRepo struct {
	sales    map[uuid.UUID]*Sale
	counters map[string]int64
	failNext bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sales: make(map[uuid.UUID]*Sale), counters: make(map[string]int64)}
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Sale, shared.Pagination, error) {
	var out []Sale
	for _, s := range r.sales {
		out = append(out, *s)
	}
	return out, shared.NewPagination(filter.Page, filter.PerPage, len(out)), nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (Sale, error) {
	if s, ok := r.sales[id]; ok {
		return *s, nil
	}
	return Sale{}, &shared.NotFoundError{Entity: "sale", ID: id.String()}
}

func (r *memoryRepo) GetByNumber(ctx context.Context, number string) (Sale, error) {
	for _, s := range r.sales {
		if s.Number == number {
			return *s, nil
		}
	}
	return Sale{}, &shared.NotFoundError{Entity: "sale", ID: number}
}

func (r *memoryRepo) Outstanding(ctx context.Context) ([]Sale, error) {
	var out []Sale
	for _, s := range r.sales {
		if (s.Status == StatusApproved || s.Status == StatusCompleted) &&
			(s.PaymentStatus == PaymentUnpaid || s.PaymentStatus == PaymentPartial) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.failNext {
		r.failNext = false
		return errors.New("database unavailable")
	}
	return fn(ctx, &memoryTx{repo: r})
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) NextNumber(ctx context.Context, prefix string, date time.Time) (string, error) {
	key := prefix + "-" + shared.PeriodKey(date)
	tx.repo.counters[key]++
	return fmt.Sprintf("%s-%04d", key, tx.repo.counters[key]), nil
}

func (tx *memoryTx) Insert(ctx context.Context, s Sale) error {
	clone := s
	tx.repo.sales[s.ID] = &clone
	return nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, saleID uuid.UUID, lines []SaleLine) error {
	if s, ok := tx.repo.sales[saleID]; ok {
		s.Lines = append([]SaleLine(nil), lines...)
	}
	return nil
}

func (tx *memoryTx) DeleteLines(ctx context.Context, saleID uuid.UUID) error {
	if s, ok := tx.repo.sales[saleID]; ok {
		s.Lines = nil
	}
	return nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (Sale, error) {
	return tx.repo.GetByID(ctx, id)
}

func (tx *memoryTx) Update(ctx context.Context, s Sale) error {
	existing, ok := tx.repo.sales[s.ID]
	if !ok {
		return &shared.NotFoundError{Entity: "sale", ID: s.ID.String()}
	}
	lines := existing.Lines
	clone := s
	clone.Lines = lines
	tx.repo.sales[s.ID] = &clone
	return nil
}

func (tx *memoryTx) UpdateState(ctx context.Context, s Sale) error {
	existing, ok := tx.repo.sales[s.ID]
	if !ok {
		return &shared.NotFoundError{Entity: "sale", ID: s.ID.String()}
	}
	existing.Status = s.Status
	existing.PaymentStatus = s.PaymentStatus
	existing.PaidAmount = s.PaidAmount
	existing.JournalID = s.JournalID
	existing.ApprovedBy = s.ApprovedBy
	existing.ApprovedAt = s.ApprovedAt
	existing.CancelledBy = s.CancelledBy
	existing.CancelledAt = s.CancelledAt
	existing.CancelReason = s.CancelReason
	return nil
}

func (tx *memoryTx) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := tx.repo.sales[id]; !ok {
		return &shared.NotFoundError{Entity: "sale", ID: id.String()}
	}
	delete(tx.repo.sales, id)
	return nil
}

type stubItems struct {
	items map[uuid.UUID]inventory.Item
}

func newStubItems() *stubItems {
	return &stubItems{items: make(map[uuid.UUID]inventory.Item)}
}

func (s *stubItems) add(sku, name string, stock float64, cost decimal.Decimal) uuid.UUID {
	id := uuid.New()
	s.items[id] = inventory.Item{ID: id, SKU: sku, Name: name, Unit: "pcs", CostPrice: cost, CurrentStock: stock, IsActive: true}
	return id
}

func (s *stubItems) GetItem(ctx context.Context, id uuid.UUID) (inventory.Item, error) {
	if it, ok := s.items[id]; ok {
		return it, nil
	}
	return inventory.Item{}, &shared.NotFoundError{Entity: "item", ID: id.String()}
}

type stubBridge struct {
	journalID  uuid.UUID
	approved   []string
	cancelled  []string
	approveErr error
	cancelErr  error
}

func (b *stubBridge) SaleApproved(ctx context.Context, s Sale) (uuid.UUID, error) {
	if b.approveErr != nil {
		return uuid.Nil, b.approveErr
	}
	b.approved = append(b.approved, s.Number)
	return b.journalID, nil
}

func (b *stubBridge) SaleCancelled(ctx context.Context, s Sale, reason string) error {
	if b.cancelErr != nil {
		return b.cancelErr
	}
	b.cancelled = append(b.cancelled, s.Number)
	return nil
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func testService(repo Repository, items ItemSource, bridge Bridge) *Service {
	return NewService(repo, items, bridge, "INV", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func saleInput(itemID uuid.UUID, qty float64, price string) CreateInput {
	return CreateInput{
		Date:         time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		CustomerName: "PT Maju Jaya",
		Lines:        []LineInput{{ItemID: itemID, Quantity: qty, UnitPrice: dec(price)}},
	}
}

func TestCreateComputesTotals(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	svc := testService(repo, items, &stubBridge{})

	in := saleInput(itemID, 4, "10000")
	in.Lines[0].DiscountAmount = dec("2000")
	in.TaxRate = dec("10")
	sale, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, "INV-202501-0001", sale.Number)
	require.Equal(t, StatusDraft, sale.Status)
	require.Equal(t, PaymentUnpaid, sale.PaymentStatus)
	require.True(t, sale.Subtotal.Equal(dec("40000")))
	require.True(t, sale.DiscountTotal.Equal(dec("2000")))
	require.True(t, sale.TaxAmount.Equal(dec("3800")))
	require.True(t, sale.Total.Equal(dec("41800")))
	require.Equal(t, "SKU-001", sale.Lines[0].ItemSKU)
	require.True(t, sale.Lines[0].Subtotal.Equal(dec("38000")))
	// due date defaults to 30 days after the invoice date
	require.Equal(t, in.Date.AddDate(0, 0, 30), sale.DueDate)
}

func TestCreateRefusesInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 3, dec("5000"))
	svc := testService(repo, items, &stubBridge{})

	_, err := svc.Create(context.Background(), saleInput(itemID, 5, "10000"))
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestApproveLinksJournal(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	bridge := &stubBridge{journalID: uuid.New()}
	svc := testService(repo, items, bridge)

	sale, err := svc.Create(context.Background(), saleInput(itemID, 4, "10000"))
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), sale.ID, "manager")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.JournalID)
	require.Equal(t, bridge.journalID, *approved.JournalID)
	require.Equal(t, "manager", approved.ApprovedBy)
	require.Equal(t, []string{sale.Number}, bridge.approved)
}

func TestApproveRefusesCancelledAndRepeated(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	bridge := &stubBridge{journalID: uuid.New()}
	svc := testService(repo, items, bridge)

	sale, err := svc.Create(context.Background(), saleInput(itemID, 1, "10000"))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), sale.ID, "manager")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), sale.ID, "manager")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	cancelled, err := svc.Cancel(context.Background(), sale.ID, "customer backed out", "manager")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Approve(context.Background(), sale.ID, "manager")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestApproveCompensatesWhenStateUpdateFails(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	bridge := &stubBridge{journalID: uuid.New()}
	svc := testService(repo, items, bridge)

	sale, err := svc.Create(context.Background(), saleInput(itemID, 1, "10000"))
	require.NoError(t, err)

	repo.failNext = true
	_, err = svc.Approve(context.Background(), sale.ID, "manager")
	require.Error(t, err)
	require.NotErrorIs(t, err, shared.ErrPartialFailure)
	// the bridge work was rolled back
	require.Equal(t, []string{sale.Number}, bridge.cancelled)

	stored, err := repo.GetByID(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, stored.Status)
}

func TestApproveReportsPartialFailure(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	bridge := &stubBridge{journalID: uuid.New(), cancelErr: errors.New("redis down")}
	svc := testService(repo, items, bridge)

	sale, err := svc.Create(context.Background(), saleInput(itemID, 1, "10000"))
	require.NoError(t, err)

	repo.failNext = true
	_, err = svc.Approve(context.Background(), sale.ID, "manager")
	require.ErrorIs(t, err, shared.ErrPartialFailure)
}

func TestCancelPaidSaleRefused(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	bridge := &stubBridge{journalID: uuid.New()}
	svc := testService(repo, items, bridge)

	sale, err := svc.Create(context.Background(), saleInput(itemID, 1, "10000"))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), sale.ID, "manager")
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), sale.ID, PaymentInput{Amount: dec("10000"), Method: "transfer"})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), sale.ID, "mistake", "manager")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Empty(t, bridge.cancelled)
}

func TestCancelDraftSkipsBridge(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	bridge := &stubBridge{journalID: uuid.New()}
	svc := testService(repo, items, bridge)

	sale, err := svc.Create(context.Background(), saleInput(itemID, 1, "10000"))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), sale.ID, "duplicate entry", "manager")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	// drafts never moved stock, so there is nothing to compensate
	require.Empty(t, bridge.cancelled)
}

func TestRecordPaymentDerivesStatus(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	bridge := &stubBridge{journalID: uuid.New()}
	svc := testService(repo, items, bridge)

	sale, err := svc.Create(context.Background(), saleInput(itemID, 2, "10000"))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), sale.ID, "manager")
	require.NoError(t, err)

	partial, err := svc.RecordPayment(context.Background(), sale.ID, PaymentInput{Amount: dec("5000"), Method: "cash"})
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, partial.PaymentStatus)
	require.True(t, partial.RemainingBalance().Equal(dec("15000")))

	_, err = svc.RecordPayment(context.Background(), sale.ID, PaymentInput{Amount: dec("20000"), Method: "cash"})
	require.ErrorIs(t, err, shared.ErrValidation)

	paid, err := svc.RecordPayment(context.Background(), sale.ID, PaymentInput{Amount: dec("15000"), Method: "cash"})
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, paid.PaymentStatus)
}

func TestCompleteRequiresFullPayment(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	bridge := &stubBridge{journalID: uuid.New()}
	svc := testService(repo, items, bridge)

	sale, err := svc.Create(context.Background(), saleInput(itemID, 1, "10000"))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), sale.ID, "manager")
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), sale.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.RecordPayment(context.Background(), sale.ID, PaymentInput{Amount: dec("10000"), Method: "cash"})
	require.NoError(t, err)

	completed, err := svc.Complete(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
}

func TestUpdateAndDeleteDraftOnly(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	itemID := items.add("SKU-001", "Widget", 50, dec("5000"))
	bridge := &stubBridge{journalID: uuid.New()}
	svc := testService(repo, items, bridge)

	sale, err := svc.Create(context.Background(), saleInput(itemID, 1, "10000"))
	require.NoError(t, err)

	in := saleInput(itemID, 3, "12000")
	updated, err := svc.Update(context.Background(), sale.ID, in)
	require.NoError(t, err)
	require.True(t, updated.Total.Equal(dec("36000")))

	_, err = svc.Approve(context.Background(), sale.ID, "manager")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), sale.ID, in)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	err = svc.Delete(context.Background(), sale.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestAgingBuckets(t *testing.T) {
	repo := newMemoryRepo()
	items := newStubItems()
	svc := testService(repo, items, &stubBridge{})
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	addOutstanding := func(number string, due time.Time, total string) {
		id := uuid.New()
		s := &Sale{
			ID: id, Number: number, DueDate: due,
			Total: dec(total), PaidAmount: decimal.Zero,
			Status: StatusApproved, PaymentStatus: PaymentUnpaid,
		}
		repo.sales[id] = s
	}
	addOutstanding("INV-1", now.AddDate(0, 0, 10), "100")   // not yet due
	addOutstanding("INV-2", now.AddDate(0, 0, -10), "200")  // 10 days overdue
	addOutstanding("INV-3", now.AddDate(0, 0, -45), "300")  // 45 days
	addOutstanding("INV-4", now.AddDate(0, 0, -75), "400")  // 75 days
	addOutstanding("INV-5", now.AddDate(0, 0, -120), "500") // 120 days

	report, err := svc.Aging(context.Background(), now)
	require.NoError(t, err)
	require.True(t, report.Current.Total.Equal(dec("100")))
	require.True(t, report.Days1To30.Total.Equal(dec("200")))
	require.True(t, report.Days31To60.Total.Equal(dec("300")))
	require.True(t, report.Days61To90.Total.Equal(dec("400")))
	require.True(t, report.Days90Plus.Total.Equal(dec("500")))
	require.True(t, report.Total.Equal(dec("1500")))
}
