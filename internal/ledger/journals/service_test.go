package journals

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/shared"
)

type memoryRepo struct {
	entries  map[uuid.UUID]*JournalEntry
	accounts map[uuid.UUID]accounts.Account
	counters map[string]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		entries:  make(map[uuid.UUID]*JournalEntry),
		accounts: make(map[uuid.UUID]accounts.Account),
		counters: make(map[string]int64),
	}
}

func (r *memoryRepo) addAccount(code, name string, active bool) uuid.UUID {
	id := uuid.New()
	r.accounts[id] = accounts.Account{ID: id, Code: code, Name: name, IsActive: active}
	return id
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]JournalEntry, shared.Pagination, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out, shared.NewPagination(filter.Page, filter.PerPage, len(out)), nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	if e, ok := r.entries[id]; ok {
		return *e, nil
	}
	return JournalEntry{}, &shared.NotFoundError{Entity: "journal entry", ID: id.String()}
}

func (r *memoryRepo) GetByNumber(ctx context.Context, number string) (JournalEntry, error) {
	for _, e := range r.entries {
		if e.Number == number {
			return *e, nil
		}
	}
	return JournalEntry{}, &shared.NotFoundError{Entity: "journal entry", ID: number}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

type memoryTx struct {
	repo *memoryRepo
}

// NextNumber mirrors the SQL upsert: the counter row starts from the highest
// number already stored for the prefix and month.
func (tx *memoryTx) NextNumber(ctx context.Context, prefix string, date time.Time) (string, error) {
	period := shared.PeriodKey(date)
	key := prefix + "-" + period
	if _, ok := tx.repo.counters[key]; !ok {
		var seed int64
		for _, e := range tx.repo.entries {
			if strings.HasPrefix(e.Number, key+"-") {
				if n, err := strconv.ParseInt(e.Number[len(e.Number)-4:], 10, 64); err == nil && n > seed {
					seed = n
				}
			}
		}
		tx.repo.counters[key] = seed
	}
	tx.repo.counters[key]++
	return fmt.Sprintf("%s-%s-%04d", prefix, period, tx.repo.counters[key]), nil
}

func (tx *memoryTx) InsertEntry(ctx context.Context, e JournalEntry) error {
	for _, existing := range tx.repo.entries {
		if existing.Number == e.Number {
			return &shared.DuplicateError{Entity: "journal entry", Key: e.Number}
		}
	}
	clone := e
	tx.repo.entries[e.ID] = &clone
	return nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	e, ok := tx.repo.entries[entryID]
	if !ok {
		return &shared.NotFoundError{Entity: "journal entry", ID: entryID.String()}
	}
	e.Lines = append([]JournalLine(nil), lines...)
	return nil
}

func (tx *memoryTx) DeleteLines(ctx context.Context, entryID uuid.UUID) error {
	if e, ok := tx.repo.entries[entryID]; ok {
		e.Lines = nil
	}
	return nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return tx.repo.GetByID(ctx, id)
}

func (tx *memoryTx) UpdateEntry(ctx context.Context, e JournalEntry) error {
	current, ok := tx.repo.entries[e.ID]
	if !ok {
		return &shared.NotFoundError{Entity: "journal entry", ID: e.ID.String()}
	}
	current.Date = e.Date
	current.Description = e.Description
	current.Kind = e.Kind
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, e JournalEntry) error {
	current, ok := tx.repo.entries[e.ID]
	if !ok {
		return &shared.NotFoundError{Entity: "journal entry", ID: e.ID.String()}
	}
	current.Status = e.Status
	current.PostedAt = e.PostedAt
	current.VoidedAt = e.VoidedAt
	current.VoidReason = e.VoidReason
	return nil
}

func (tx *memoryTx) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if _, ok := tx.repo.entries[id]; !ok {
		return &shared.NotFoundError{Entity: "journal entry", ID: id.String()}
	}
	delete(tx.repo.entries, id)
	return nil
}

func (tx *memoryTx) ResolveAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]accounts.Account, error) {
	out := make(map[uuid.UUID]accounts.Account, len(ids))
	for _, id := range ids {
		a, ok := tx.repo.accounts[id]
		if !ok {
			return nil, &shared.NotFoundError{Entity: "account", ID: id.String()}
		}
		if !a.IsActive {
			return nil, shared.Validationf("account %s is inactive", a.Code)
		}
		out[id] = a
	}
	return out, nil
}

func testService(repo *memoryRepo) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, "JU", logger)
}

func amount(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func balancedInput(cash, sales uuid.UUID, date time.Time) CreateInput {
	return CreateInput{
		Date:        date,
		Description: "Cash sale",
		Kind:        KindCashIn,
		Lines: []LineInput{
			{AccountID: cash, Debit: amount("150000")},
			{AccountID: sales, Credit: amount("150000")},
		},
	}
}

func TestCreateDraftThenPost(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	sales := repo.addAccount("4-1000", "Penjualan", true)
	svc := testService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(cash, sales, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, JournalStatusDraft, entry.Status)
	require.Equal(t, "JU-202503-0001", entry.Number)
	require.Equal(t, "Kas", entry.Lines[0].AccountName)
	require.Nil(t, entry.PostedAt)

	posted, err := svc.Post(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)

	_, err = svc.Post(ctx, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCreateImmediatelyPosted(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	sales := repo.addAccount("4-1000", "Penjualan", true)
	svc := testService(repo)

	in := balancedInput(cash, sales, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	in.Post = true
	entry, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, entry.Status)
	require.NotNil(t, entry.PostedAt)
}

func TestCreateRejectsUnbalanced(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	sales := repo.addAccount("4-1000", "Penjualan", true)
	svc := testService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		Date:        time.Now(),
		Description: "Unbalanced",
		Lines: []LineInput{
			{AccountID: cash, Debit: amount("100.00")},
			{AccountID: sales, Credit: amount("100.02")},
		},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateToleratesRoundingCent(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	sales := repo.addAccount("4-1000", "Penjualan", true)
	svc := testService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		Date:        time.Now(),
		Description: "Rounding",
		Lines: []LineInput{
			{AccountID: cash, Debit: amount("100.00")},
			{AccountID: sales, Credit: amount("100.01")},
		},
	})
	require.NoError(t, err)
}

func TestCreateRejectsInactiveAccount(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	dormant := repo.addAccount("4-9999", "Lama", false)
	svc := testService(repo)

	_, err := svc.Create(context.Background(), balancedInput(cash, dormant, time.Now()))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestVoidLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	sales := repo.addAccount("4-1000", "Penjualan", true)
	svc := testService(repo)
	ctx := context.Background()

	draft, err := svc.Create(ctx, balancedInput(cash, sales, time.Now()))
	require.NoError(t, err)

	// Drafts are deleted, never voided.
	_, err = svc.Void(ctx, VoidInput{EntryID: draft.ID, Reason: "mistake"})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	posted, err := svc.Post(ctx, draft.ID)
	require.NoError(t, err)

	voided, err := svc.Void(ctx, VoidInput{EntryID: posted.ID, Reason: "customer cancelled"})
	require.NoError(t, err)
	require.Equal(t, JournalStatusVoid, voided.Status)
	require.Equal(t, "customer cancelled", voided.VoidReason)
	require.NotNil(t, voided.VoidedAt)

	_, err = svc.Void(ctx, VoidInput{EntryID: posted.ID, Reason: "again"})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.Post(ctx, posted.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestVoidRequiresReason(t *testing.T) {
	repo := newMemoryRepo()
	svc := testService(repo)
	_, err := svc.Void(context.Background(), VoidInput{EntryID: uuid.New()})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateAndDeleteDraftOnly(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	sales := repo.addAccount("4-1000", "Penjualan", true)
	svc := testService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, balancedInput(cash, sales, time.Now()))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, entry.ID, UpdateInput{
		Date:        entry.Date,
		Description: "Edited",
		Lines: []LineInput{
			{AccountID: cash, Debit: amount("200000")},
			{AccountID: sales, Credit: amount("200000")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Edited", updated.Description)
	require.True(t, updated.Lines[0].Debit.Equal(amount("200000")))

	_, err = svc.Post(ctx, entry.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, entry.ID, UpdateInput{
		Date:        entry.Date,
		Description: "Too late",
		Lines: []LineInput{
			{AccountID: cash, Debit: amount("1")},
			{AccountID: sales, Credit: amount("1")},
		},
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	err = svc.Delete(ctx, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestNumberContinuesBehindLegacyDocuments(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	sales := repo.addAccount("4-1000", "Penjualan", true)

	// A document numbered before the sequence table existed.
	legacy := JournalEntry{ID: uuid.New(), Number: "JU-202501-0007", Status: JournalStatusPosted}
	repo.entries[legacy.ID] = &legacy

	svc := testService(repo)
	entry, err := svc.Create(context.Background(), balancedInput(cash, sales, time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, "JU-202501-0008", entry.Number)
}

func TestNumberScopedPerMonth(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	sales := repo.addAccount("4-1000", "Penjualan", true)
	svc := testService(repo)
	ctx := context.Background()

	jan, err := svc.Create(ctx, balancedInput(cash, sales, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, "JU-202501-0001", jan.Number)

	jan2, err := svc.Create(ctx, balancedInput(cash, sales, time.Date(2025, 1, 28, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, "JU-202501-0002", jan2.Number)

	feb, err := svc.Create(ctx, balancedInput(cash, sales, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, "JU-202502-0001", feb.Number)
}

func TestReverseSwapsSides(t *testing.T) {
	repo := newMemoryRepo()
	cash := repo.addAccount("1-1100", "Kas", true)
	sales := repo.addAccount("4-1000", "Penjualan", true)
	svc := testService(repo)
	ctx := context.Background()

	in := balancedInput(cash, sales, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	in.Kind = KindSales
	in.Post = true
	original, err := svc.Create(ctx, in)
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, original.ID, "tester", "")
	require.NoError(t, err)
	require.Equal(t, KindSalesReversal, reversal.Kind)
	require.Equal(t, JournalStatusPosted, reversal.Status)
	require.True(t, reversal.Lines[0].Credit.Equal(original.Lines[0].Debit))
	require.True(t, reversal.Lines[1].Debit.Equal(original.Lines[1].Credit))
	require.Contains(t, reversal.Description, original.Number)
}
