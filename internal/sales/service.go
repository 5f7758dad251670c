package sales

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/inventory"
	"github.com/brightline-erp/brightline/internal/shared"
)

// Bridge posts the accounting journal and moves stock when a sale changes
// state. The integration package provides the production implementation.
type Bridge interface {
	// SaleApproved posts the sales journal and issues stock, returning the
	// journal entry id.
	SaleApproved(ctx context.Context, s Sale) (uuid.UUID, error)
	// SaleCancelled restores stock and voids the linked journal.
	SaleCancelled(ctx context.Context, s Sale, reason string) error
}

// ItemSource resolves items for line snapshots and stock checks.
type ItemSource interface {
	GetItem(ctx context.Context, id uuid.UUID) (inventory.Item, error)
}

// Service owns the sale document lifecycle.
type Service struct {
	repo   Repository
	items  ItemSource
	bridge Bridge
	prefix string
	logger *slog.Logger
}

// NewService constructs the sales service.
func NewService(repo Repository, items ItemSource, bridge Bridge, prefix string, logger *slog.Logger) *Service {
	if prefix == "" {
		prefix = "INV"
	}
	return &Service{repo: repo, items: items, bridge: bridge, prefix: prefix, logger: logger}
}

// Create persists a new draft sale. Item snapshots are taken now so later
// master-data edits do not rewrite history; stock is checked but not moved
// until approval.
func (s *Service) Create(ctx context.Context, in CreateInput) (Sale, error) {
	if err := in.Validate(); err != nil {
		return Sale{}, err
	}
	lines, err := s.snapshotLines(ctx, in.Lines)
	if err != nil {
		return Sale{}, err
	}
	dueDate := in.DueDate
	if dueDate.IsZero() {
		dueDate = in.Date.AddDate(0, 0, 30)
	}
	sale := Sale{
		ID:              uuid.New(),
		Date:            in.Date,
		DueDate:         dueDate,
		CustomerName:    in.CustomerName,
		CustomerAddress: in.CustomerAddress,
		CustomerPhone:   in.CustomerPhone,
		TaxRate:         in.TaxRate,
		Lines:           lines,
		Status:          StatusDraft,
		Notes:           in.Notes,
		CreatedBy:       in.CreatedBy,
	}
	sale.Recalculate()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, s.prefix, sale.Date)
		if err != nil {
			return err
		}
		sale.Number = number
		if err := tx.Insert(ctx, sale); err != nil {
			return err
		}
		return tx.InsertLines(ctx, sale.ID, sale.Lines)
	})
	if err != nil {
		return Sale{}, err
	}
	s.logger.Info("sale created", "number", sale.Number, "total", sale.Total.String())
	return sale, nil
}

// Update replaces a draft sale's content. Non-draft documents are immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Sale, error) {
	if err := in.Validate(); err != nil {
		return Sale{}, err
	}
	lines, err := s.snapshotLines(ctx, in.Lines)
	if err != nil {
		return Sale{}, err
	}
	var out Sale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sale.Status != StatusDraft {
			return shared.InvalidStatef("only draft sales can be updated, sale %s is %s", sale.Number, sale.Status)
		}
		sale.Date = in.Date
		if !in.DueDate.IsZero() {
			sale.DueDate = in.DueDate
		}
		sale.CustomerName = in.CustomerName
		sale.CustomerAddress = in.CustomerAddress
		sale.CustomerPhone = in.CustomerPhone
		sale.TaxRate = in.TaxRate
		sale.Notes = in.Notes
		sale.Lines = lines
		sale.Recalculate()
		if err := tx.Update(ctx, sale); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, sale.ID); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, sale.ID, sale.Lines); err != nil {
			return err
		}
		out = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return out, nil
}

// Delete removes a draft sale.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sale.Status != StatusDraft {
			return shared.InvalidStatef("only draft sales can be deleted, sale %s is %s", sale.Number, sale.Status)
		}
		return tx.Delete(ctx, id)
	})
}

// Approve issues stock and posts the sales journal through the bridge, then
// marks the document approved. If the document update fails after the bridge
// succeeded, the bridge work is compensated; a failed compensation surfaces
// as a partial failure for manual reconciliation.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, approvedBy string) (Sale, error) {
	sale, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	switch sale.Status {
	case StatusCancelled:
		return Sale{}, shared.InvalidStatef("cannot approve cancelled sale %s", sale.Number)
	case StatusApproved, StatusCompleted:
		return Sale{}, shared.InvalidStatef("sale %s is already approved", sale.Number)
	}

	journalID, err := s.bridge.SaleApproved(ctx, sale)
	if err != nil {
		return Sale{}, err
	}

	now := time.Now()
	sale.Status = StatusApproved
	sale.ApprovedBy = approvedBy
	sale.ApprovedAt = &now
	sale.JournalID = &journalID
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateState(ctx, sale)
	})
	if err != nil {
		if comp := s.bridge.SaleCancelled(ctx, sale, "approval rollback"); comp != nil {
			return Sale{}, &shared.PartialFailureError{Op: "approve sale " + sale.Number, Cause: err, Compensation: comp}
		}
		return Sale{}, err
	}
	s.logger.Info("sale approved", "number", sale.Number, "journal", journalID.String())
	return sale, nil
}

// Complete closes an approved, fully paid sale.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (Sale, error) {
	var out Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sale.Status != StatusApproved {
			return shared.InvalidStatef("sale %s must be approved before completion", sale.Number)
		}
		if sale.PaymentStatus != PaymentPaid {
			return shared.InvalidStatef("sale %s must be fully paid to complete", sale.Number)
		}
		sale.Status = StatusCompleted
		if err := tx.UpdateState(ctx, sale); err != nil {
			return err
		}
		out = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return out, nil
}

// Cancel voids the sale. Approved and completed sales have their stock
// restored and journal voided through the bridge; paid sales cannot be
// cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (Sale, error) {
	if reason == "" {
		return Sale{}, shared.Validationf("cancellation reason is required")
	}
	sale, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	if sale.Status == StatusCancelled {
		return Sale{}, shared.InvalidStatef("sale %s is already cancelled", sale.Number)
	}
	if sale.PaymentStatus == PaymentPaid {
		return Sale{}, shared.InvalidStatef("cannot cancel paid sale %s", sale.Number)
	}

	if sale.Status == StatusApproved || sale.Status == StatusCompleted {
		if err := s.bridge.SaleCancelled(ctx, sale, reason); err != nil {
			return Sale{}, err
		}
	}

	now := time.Now()
	sale.Status = StatusCancelled
	sale.CancelledBy = cancelledBy
	sale.CancelledAt = &now
	sale.CancelReason = reason
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateState(ctx, sale)
	})
	if err != nil {
		return Sale{}, err
	}
	s.logger.Info("sale cancelled", "number", sale.Number, "reason", reason)
	return sale, nil
}

// RecordPayment adds a payment and re-derives the payment status.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, in PaymentInput) (Sale, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Sale{}, err
	}
	if !in.Amount.IsPositive() {
		return Sale{}, shared.Validationf("payment amount must be greater than zero")
	}
	var out Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sale.Status == StatusDraft || sale.Status == StatusCancelled {
			return shared.InvalidStatef("cannot record payment on %s sale %s", sale.Status, sale.Number)
		}
		if in.Amount.GreaterThan(sale.RemainingBalance()) {
			return shared.Validationf("payment %s exceeds remaining balance %s",
				in.Amount.String(), sale.RemainingBalance().String())
		}
		sale.PaidAmount = sale.PaidAmount.Add(in.Amount)
		sale.Recalculate()
		if err := tx.UpdateState(ctx, sale); err != nil {
			return err
		}
		out = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.logger.Info("payment recorded", "number", out.Number, "amount", in.Amount.String(), "status", string(out.PaymentStatus))
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Sale, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, shared.Pagination, error) {
	return s.repo.List(ctx, filter)
}

// Outstanding lists approved or completed sales that still carry a balance.
func (s *Service) Outstanding(ctx context.Context) ([]Sale, error) {
	return s.repo.Outstanding(ctx)
}

// AgingBucket groups outstanding invoices with their remaining balance.
type AgingBucket struct {
	Sales []Sale          `json:"sales"`
	Total decimal.Decimal `json:"total"`
}

// AgingReport buckets receivables by days overdue.
type AgingReport struct {
	Current    AgingBucket     `json:"current"`
	Days1To30  AgingBucket     `json:"days1to30"`
	Days31To60 AgingBucket     `json:"days31to60"`
	Days61To90 AgingBucket     `json:"days61to90"`
	Days90Plus AgingBucket     `json:"days90plus"`
	Total      decimal.Decimal `json:"total"`
}

// Aging buckets outstanding receivables by days overdue as of now.
func (s *Service) Aging(ctx context.Context, now time.Time) (AgingReport, error) {
	outstanding, err := s.repo.Outstanding(ctx)
	if err != nil {
		return AgingReport{}, err
	}
	report := AgingReport{Total: decimal.Zero}
	add := func(b *AgingBucket, sale Sale) {
		b.Sales = append(b.Sales, sale)
		b.Total = b.Total.Add(sale.RemainingBalance())
	}
	for _, sale := range outstanding {
		days := sale.DaysOverdue(now)
		switch {
		case days <= 0:
			add(&report.Current, sale)
		case days <= 30:
			add(&report.Days1To30, sale)
		case days <= 60:
			add(&report.Days31To60, sale)
		case days <= 90:
			add(&report.Days61To90, sale)
		default:
			add(&report.Days90Plus, sale)
		}
		report.Total = report.Total.Add(sale.RemainingBalance())
	}
	return report, nil
}

// snapshotLines resolves items, verifies availability and freezes the item
// identity onto each line.
func (s *Service) snapshotLines(ctx context.Context, inputs []LineInput) ([]SaleLine, error) {
	lines := make([]SaleLine, 0, len(inputs))
	for i, in := range inputs {
		item, err := s.items.GetItem(ctx, in.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.IsActive {
			return nil, shared.Validationf("item %s is not active", item.Name)
		}
		if !item.HasStock(in.Quantity) {
			return nil, &shared.InsufficientStockError{
				ItemName:  item.Name,
				Available: item.CurrentStock,
				Required:  in.Quantity,
			}
		}
		lines = append(lines, SaleLine{
			ItemID:         item.ID,
			ItemSKU:        item.SKU,
			ItemName:       item.Name,
			Unit:           item.Unit,
			Quantity:       in.Quantity,
			UnitPrice:      in.UnitPrice,
			DiscountAmount: in.DiscountAmount,
			Position:       i,
		})
	}
	return lines, nil
}
