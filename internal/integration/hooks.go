// Package integration bridges the document modules to the ledger and the
// stock ledger: approving a sale or purchase posts its journal and moves
// stock, cancelling reverses both.
package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/inventory"
	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/journals"
	"github.com/brightline-erp/brightline/internal/procurement"
	"github.com/brightline-erp/brightline/internal/sales"
	"github.com/brightline-erp/brightline/internal/shared"
)

// JournalPort is the slice of the journal service the bridge needs.
type JournalPort interface {
	Create(ctx context.Context, in journals.CreateInput) (journals.JournalEntry, error)
	Void(ctx context.Context, in journals.VoidInput) (journals.JournalEntry, error)
}

// AccountResolver maps category roles to active accounts.
type AccountResolver interface {
	ResolveRole(ctx context.Context, c accounts.Category) (accounts.Account, error)
}

// StockMover is the slice of the inventory service the bridge needs.
type StockMover interface {
	GetItem(ctx context.Context, id uuid.UUID) (inventory.Item, error)
	AddStock(ctx context.Context, itemID uuid.UUID, in inventory.MovementInput) (inventory.StockTransaction, error)
	ReduceStock(ctx context.Context, itemID uuid.UUID, in inventory.MovementInput) (inventory.StockTransaction, error)
}

// IdempotencyGuard fences duplicate event processing.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Hooks implements sales.Bridge and procurement.Bridge. The journal is
// always posted before stock moves; a failure mid-stock-mutation restores
// the already-applied movements and voids the journal.
type Hooks struct {
	journals    JournalPort
	accounts    AccountResolver
	stock       StockMover
	locker      *shared.DocumentLocker
	idempotency IdempotencyGuard
	logger      *slog.Logger
}

// NewHooks constructs the bridge. locker and idempotency may be nil in
// tests; both degrade to no-ops.
func NewHooks(journalPort JournalPort, resolver AccountResolver, stock StockMover,
	locker *shared.DocumentLocker, idempotency IdempotencyGuard, logger *slog.Logger) *Hooks {
	return &Hooks{
		journals:    journalPort,
		accounts:    resolver,
		stock:       stock,
		locker:      locker,
		idempotency: idempotency,
		logger:      logger,
	}
}

var _ sales.Bridge = (*Hooks)(nil)
var _ procurement.Bridge = (*Hooks)(nil)

// SaleApproved posts the sales journal (AR/Sales plus COGS/Inventory) and
// issues stock for every line. Stock is verified up front so the usual
// failure mode hits before anything is written.
func (h *Hooks) SaleApproved(ctx context.Context, s sales.Sale) (uuid.UUID, error) {
	release, err := h.acquire(ctx, "sales", s.ID)
	if err != nil {
		return uuid.Nil, err
	}
	defer release()

	// Verify availability for all lines before any mutation.
	costs := make(map[uuid.UUID]decimal.Decimal, len(s.Lines))
	cogs := decimal.Zero
	for _, line := range s.Lines {
		item, err := h.stock.GetItem(ctx, line.ItemID)
		if err != nil {
			return uuid.Nil, err
		}
		if !item.HasStock(line.Quantity) {
			return uuid.Nil, &shared.InsufficientStockError{
				ItemName:  item.Name,
				Available: item.CurrentStock,
				Required:  line.Quantity,
			}
		}
		costs[line.ItemID] = item.CostPrice
		cogs = cogs.Add(item.CostPrice.Mul(decimal.NewFromFloat(line.Quantity)))
	}

	receivable, err := h.accounts.ResolveRole(ctx, accounts.CategoryReceivable)
	if err != nil {
		return uuid.Nil, err
	}
	revenue, err := h.accounts.ResolveRole(ctx, accounts.CategorySales)
	if err != nil {
		return uuid.Nil, err
	}
	lines := []journals.LineInput{
		{AccountID: receivable.ID, Debit: s.Total, Memo: "Receivable - " + s.Number},
		{AccountID: revenue.ID, Credit: s.Total, Memo: "Sales - " + s.CustomerName},
	}
	if cogs.IsPositive() {
		cogsAccount, err := h.accounts.ResolveRole(ctx, accounts.CategoryCOGS)
		if err != nil {
			return uuid.Nil, err
		}
		inventoryAccount, err := h.accounts.ResolveRole(ctx, accounts.CategoryInventory)
		if err != nil {
			return uuid.Nil, err
		}
		lines = append(lines,
			journals.LineInput{AccountID: cogsAccount.ID, Debit: cogs, Memo: "COGS - " + s.Number},
			journals.LineInput{AccountID: inventoryAccount.ID, Credit: cogs, Memo: "Inventory issue - " + s.Number},
		)
	}

	// Claim the fence only once validation has passed, right before the
	// first durable side effect. A failed post releases it so the caller
	// can retry; retrying a completed approval still conflicts.
	fenceKey := "sale-approve:" + s.ID.String()
	if err := h.fence(ctx, fenceKey, "sales"); err != nil {
		return uuid.Nil, err
	}
	entry, err := h.journals.Create(ctx, journals.CreateInput{
		Date:         s.Date,
		Description:  fmt.Sprintf("Sale to %s - %s", s.CustomerName, s.Number),
		Kind:         journals.KindSales,
		Post:         true,
		SourceModule: "sales",
		SourceID:     &s.ID,
		CreatedBy:    s.CreatedBy,
		Lines:        lines,
	})
	if err != nil {
		_ = h.clearFence(ctx, fenceKey)
		return uuid.Nil, err
	}

	// Issue stock per line; undo everything on failure.
	var applied []sales.SaleLine
	for _, line := range s.Lines {
		_, err := h.stock.ReduceStock(ctx, line.ItemID, inventory.MovementInput{
			Quantity:  line.Quantity,
			UnitCost:  costs[line.ItemID],
			Reference: inventory.Reference{Module: "sales", ID: &s.ID, Number: s.Number},
			Note:      "Sales: " + s.Number,
			CreatedBy: s.CreatedBy,
		})
		if err != nil {
			if comp := h.compensateSale(ctx, s, entry.ID, applied); comp != nil {
				return uuid.Nil, &shared.PartialFailureError{Op: "approve sale " + s.Number, Cause: err, Compensation: comp}
			}
			return uuid.Nil, err
		}
		applied = append(applied, line)
	}

	h.logger.Info("sale posted", "number", s.Number, "journal", entry.Number, "cogs", cogs.String())
	return entry.ID, nil
}

// SaleCancelled restores stock at cost and voids the linked journal.
func (h *Hooks) SaleCancelled(ctx context.Context, s sales.Sale, reason string) error {
	release, err := h.acquire(ctx, "sales", s.ID)
	if err != nil {
		return err
	}
	defer release()
	_ = h.clearFence(ctx, "sale-approve:"+s.ID.String())

	for _, line := range s.Lines {
		item, err := h.stock.GetItem(ctx, line.ItemID)
		if err != nil {
			return err
		}
		if _, err := h.stock.AddStock(ctx, line.ItemID, inventory.MovementInput{
			Quantity:  line.Quantity,
			UnitCost:  item.CostPrice,
			Reference: inventory.Reference{Module: "sales_return", ID: &s.ID, Number: s.Number},
			Note:      fmt.Sprintf("Sales Cancelled: %s - %s", s.Number, reason),
		}); err != nil {
			return err
		}
	}
	if err := h.voidJournal(ctx, s.JournalID, reason); err != nil {
		return err
	}
	h.logger.Info("sale reversed", "number", s.Number, "reason", reason)
	return nil
}

// PurchaseApproved posts the purchase journal (Inventory/Payable) and
// receives stock at the purchase unit price.
func (h *Hooks) PurchaseApproved(ctx context.Context, p procurement.Purchase) (uuid.UUID, error) {
	release, err := h.acquire(ctx, "purchases", p.ID)
	if err != nil {
		return uuid.Nil, err
	}
	defer release()

	inventoryAccount, err := h.accounts.ResolveRole(ctx, accounts.CategoryInventory)
	if err != nil {
		return uuid.Nil, err
	}
	payable, err := h.accounts.ResolveRole(ctx, accounts.CategoryPayable)
	if err != nil {
		return uuid.Nil, err
	}

	fenceKey := "purchase-approve:" + p.ID.String()
	if err := h.fence(ctx, fenceKey, "purchases"); err != nil {
		return uuid.Nil, err
	}
	entry, err := h.journals.Create(ctx, journals.CreateInput{
		Date:         p.Date,
		Description:  fmt.Sprintf("Purchase from %s - %s", p.SupplierName, p.Number),
		Kind:         journals.KindPurchase,
		Post:         true,
		SourceModule: "purchases",
		SourceID:     &p.ID,
		CreatedBy:    p.CreatedBy,
		Lines: []journals.LineInput{
			{AccountID: inventoryAccount.ID, Debit: p.Total, Memo: "Inventory receipt - " + p.Number},
			{AccountID: payable.ID, Credit: p.Total, Memo: "Payable - " + p.SupplierName},
		},
	})
	if err != nil {
		_ = h.clearFence(ctx, fenceKey)
		return uuid.Nil, err
	}

	var applied []procurement.PurchaseLine
	for _, line := range p.Lines {
		_, err := h.stock.AddStock(ctx, line.ItemID, inventory.MovementInput{
			Quantity:  line.Quantity,
			UnitCost:  line.UnitPrice,
			Reference: inventory.Reference{Module: "purchase", ID: &p.ID, Number: p.Number},
			Note:      "Purchase: " + p.Number,
			CreatedBy: p.CreatedBy,
		})
		if err != nil {
			if comp := h.compensatePurchase(ctx, p, entry.ID, applied); comp != nil {
				return uuid.Nil, &shared.PartialFailureError{Op: "approve purchase " + p.Number, Cause: err, Compensation: comp}
			}
			return uuid.Nil, err
		}
		applied = append(applied, line)
	}

	h.logger.Info("purchase posted", "number", p.Number, "journal", entry.Number)
	return entry.ID, nil
}

// PurchaseCancelled removes the received stock and voids the linked journal.
// Removing stock can legitimately fail when the goods were already sold;
// that error surfaces to the caller and the purchase stays approved.
func (h *Hooks) PurchaseCancelled(ctx context.Context, p procurement.Purchase, reason string) error {
	release, err := h.acquire(ctx, "purchases", p.ID)
	if err != nil {
		return err
	}
	defer release()
	_ = h.clearFence(ctx, "purchase-approve:"+p.ID.String())

	for _, line := range p.Lines {
		if _, err := h.stock.ReduceStock(ctx, line.ItemID, inventory.MovementInput{
			Quantity:  line.Quantity,
			UnitCost:  line.UnitPrice,
			Reference: inventory.Reference{Module: "purchase_cancel", ID: &p.ID, Number: p.Number},
			Note:      fmt.Sprintf("Purchase Cancelled: %s - %s", p.Number, reason),
		}); err != nil {
			return err
		}
	}
	if err := h.voidJournal(ctx, p.JournalID, reason); err != nil {
		return err
	}
	h.logger.Info("purchase reversed", "number", p.Number, "reason", reason)
	return nil
}

// compensateSale restores the stock movements already applied and voids the
// freshly posted journal.
func (h *Hooks) compensateSale(ctx context.Context, s sales.Sale, journalID uuid.UUID, applied []sales.SaleLine) error {
	for _, line := range applied {
		if _, err := h.stock.AddStock(ctx, line.ItemID, inventory.MovementInput{
			Quantity:  line.Quantity,
			Reference: inventory.Reference{Module: "sales_return", ID: &s.ID, Number: s.Number},
			Note:      "Rollback: " + s.Number,
		}); err != nil {
			return err
		}
	}
	if _, err := h.journals.Void(ctx, journals.VoidInput{
		EntryID: journalID,
		Actor:   "system",
		Reason:  "rollback of failed approval " + s.Number,
	}); err != nil {
		return err
	}
	_ = h.clearFence(ctx, "sale-approve:"+s.ID.String())
	return nil
}

func (h *Hooks) compensatePurchase(ctx context.Context, p procurement.Purchase, journalID uuid.UUID, applied []procurement.PurchaseLine) error {
	for _, line := range applied {
		if _, err := h.stock.ReduceStock(ctx, line.ItemID, inventory.MovementInput{
			Quantity:  line.Quantity,
			UnitCost:  line.UnitPrice,
			Reference: inventory.Reference{Module: "purchase_cancel", ID: &p.ID, Number: p.Number},
			Note:      "Rollback: " + p.Number,
		}); err != nil {
			return err
		}
	}
	if _, err := h.journals.Void(ctx, journals.VoidInput{
		EntryID: journalID,
		Actor:   "system",
		Reason:  "rollback of failed approval " + p.Number,
	}); err != nil {
		return err
	}
	_ = h.clearFence(ctx, "purchase-approve:"+p.ID.String())
	return nil
}

// voidJournal voids the linked entry, tolerating documents that never got
// one or whose entry is no longer posted.
func (h *Hooks) voidJournal(ctx context.Context, journalID *uuid.UUID, reason string) error {
	if journalID == nil {
		return nil
	}
	_, err := h.journals.Void(ctx, journals.VoidInput{
		EntryID: *journalID,
		Actor:   "system",
		Reason:  reason,
	})
	if err != nil && !errors.Is(err, shared.ErrInvalidState) && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	return nil
}

func (h *Hooks) acquire(ctx context.Context, module string, id uuid.UUID) (func(), error) {
	return h.locker.Acquire(ctx, shared.DocumentLockKey(module, id))
}

func (h *Hooks) fence(ctx context.Context, key, module string) error {
	if h.idempotency == nil {
		return nil
	}
	err := h.idempotency.CheckAndInsert(ctx, key, module)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return shared.InvalidStatef("document already processed")
	}
	return err
}

func (h *Hooks) clearFence(ctx context.Context, key string) error {
	if h.idempotency == nil {
		return nil
	}
	return h.idempotency.Delete(ctx, key)
}
