package procurement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/inventory"
	"github.com/brightline-erp/brightline/internal/shared"
)

// Bridge posts the accounting journal and receives stock when a purchase
// changes state. The integration package provides the production
// implementation.
type Bridge interface {
	// PurchaseApproved posts the purchase journal and receives stock at the
	// purchase unit price, returning the journal entry id.
	PurchaseApproved(ctx context.Context, p Purchase) (uuid.UUID, error)
	// PurchaseCancelled removes the received stock and voids the linked
	// journal.
	PurchaseCancelled(ctx context.Context, p Purchase, reason string) error
}

// ItemSource resolves items for line snapshots.
type ItemSource interface {
	GetItem(ctx context.Context, id uuid.UUID) (inventory.Item, error)
}

// Service owns the purchase document lifecycle.
type Service struct {
	repo   Repository
	items  ItemSource
	bridge Bridge
	prefix string
	logger *slog.Logger
}

// NewService constructs the procurement service.
func NewService(repo Repository, items ItemSource, bridge Bridge, prefix string, logger *slog.Logger) *Service {
	if prefix == "" {
		prefix = "PO"
	}
	return &Service{repo: repo, items: items, bridge: bridge, prefix: prefix, logger: logger}
}

// Create persists a new draft purchase with item snapshots. Stock is not
// touched until approval.
func (s *Service) Create(ctx context.Context, in CreateInput) (Purchase, error) {
	if err := in.Validate(); err != nil {
		return Purchase{}, err
	}
	lines, err := s.snapshotLines(ctx, in.Lines)
	if err != nil {
		return Purchase{}, err
	}
	dueDate := in.DueDate
	if dueDate.IsZero() {
		dueDate = in.Date.AddDate(0, 0, 30)
	}
	purchase := Purchase{
		ID:              uuid.New(),
		Date:            in.Date,
		DueDate:         dueDate,
		SupplierName:    in.SupplierName,
		SupplierAddress: in.SupplierAddress,
		SupplierPhone:   in.SupplierPhone,
		TaxRate:         in.TaxRate,
		Lines:           lines,
		Status:          StatusDraft,
		Notes:           in.Notes,
		CreatedBy:       in.CreatedBy,
	}
	purchase.Recalculate()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, s.prefix, purchase.Date)
		if err != nil {
			return err
		}
		purchase.Number = number
		if err := tx.Insert(ctx, purchase); err != nil {
			return err
		}
		return tx.InsertLines(ctx, purchase.ID, purchase.Lines)
	})
	if err != nil {
		return Purchase{}, err
	}
	s.logger.Info("purchase created", "number", purchase.Number, "total", purchase.Total.String())
	return purchase, nil
}

// Update replaces a draft purchase's content.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Purchase, error) {
	if err := in.Validate(); err != nil {
		return Purchase{}, err
	}
	lines, err := s.snapshotLines(ctx, in.Lines)
	if err != nil {
		return Purchase{}, err
	}
	var out Purchase
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		purchase, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if purchase.Status != StatusDraft {
			return shared.InvalidStatef("only draft purchases can be updated, purchase %s is %s", purchase.Number, purchase.Status)
		}
		purchase.Date = in.Date
		if !in.DueDate.IsZero() {
			purchase.DueDate = in.DueDate
		}
		purchase.SupplierName = in.SupplierName
		purchase.SupplierAddress = in.SupplierAddress
		purchase.SupplierPhone = in.SupplierPhone
		purchase.TaxRate = in.TaxRate
		purchase.Notes = in.Notes
		purchase.Lines = lines
		purchase.Recalculate()
		if err := tx.Update(ctx, purchase); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, purchase.ID); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, purchase.ID, purchase.Lines); err != nil {
			return err
		}
		out = purchase
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	return out, nil
}

// Delete removes a draft purchase.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		purchase, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if purchase.Status != StatusDraft {
			return shared.InvalidStatef("only draft purchases can be deleted, purchase %s is %s", purchase.Number, purchase.Status)
		}
		return tx.Delete(ctx, id)
	})
}

// Approve receives stock and posts the purchase journal through the bridge,
// then marks the document approved. Failed state updates are compensated
// the same way as on the sales side.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, approvedBy string) (Purchase, error) {
	purchase, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	switch purchase.Status {
	case StatusCancelled:
		return Purchase{}, shared.InvalidStatef("cannot approve cancelled purchase %s", purchase.Number)
	case StatusApproved, StatusReceived:
		return Purchase{}, shared.InvalidStatef("purchase %s is already approved", purchase.Number)
	}

	journalID, err := s.bridge.PurchaseApproved(ctx, purchase)
	if err != nil {
		return Purchase{}, err
	}

	now := time.Now()
	purchase.Status = StatusApproved
	purchase.ApprovedBy = approvedBy
	purchase.ApprovedAt = &now
	purchase.JournalID = &journalID
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateState(ctx, purchase)
	})
	if err != nil {
		if comp := s.bridge.PurchaseCancelled(ctx, purchase, "approval rollback"); comp != nil {
			return Purchase{}, &shared.PartialFailureError{Op: "approve purchase " + purchase.Number, Cause: err, Compensation: comp}
		}
		return Purchase{}, err
	}
	s.logger.Info("purchase approved", "number", purchase.Number, "journal", journalID.String())
	return purchase, nil
}

// Receive marks an approved purchase as physically received.
func (s *Service) Receive(ctx context.Context, id uuid.UUID, receivedBy string) (Purchase, error) {
	var out Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		purchase, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if purchase.Status != StatusApproved {
			return shared.InvalidStatef("purchase %s must be approved before receiving", purchase.Number)
		}
		now := time.Now()
		purchase.Status = StatusReceived
		purchase.ReceivedBy = receivedBy
		purchase.ReceivedAt = &now
		if err := tx.UpdateState(ctx, purchase); err != nil {
			return err
		}
		out = purchase
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	return out, nil
}

// Cancel voids the purchase. Approved and received purchases have their
// stock removed and journal voided through the bridge; paid purchases
// cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (Purchase, error) {
	if reason == "" {
		return Purchase{}, shared.Validationf("cancellation reason is required")
	}
	purchase, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Purchase{}, err
	}
	if purchase.Status == StatusCancelled {
		return Purchase{}, shared.InvalidStatef("purchase %s is already cancelled", purchase.Number)
	}
	if purchase.PaymentStatus == PaymentPaid {
		return Purchase{}, shared.InvalidStatef("cannot cancel paid purchase %s", purchase.Number)
	}

	if purchase.Status == StatusApproved || purchase.Status == StatusReceived {
		if err := s.bridge.PurchaseCancelled(ctx, purchase, reason); err != nil {
			return Purchase{}, err
		}
	}

	now := time.Now()
	purchase.Status = StatusCancelled
	purchase.CancelledBy = cancelledBy
	purchase.CancelledAt = &now
	purchase.CancelReason = reason
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateState(ctx, purchase)
	})
	if err != nil {
		return Purchase{}, err
	}
	s.logger.Info("purchase cancelled", "number", purchase.Number, "reason", reason)
	return purchase, nil
}

// RecordPayment adds a payment and re-derives the payment status.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, in PaymentInput) (Purchase, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Purchase{}, err
	}
	if !in.Amount.IsPositive() {
		return Purchase{}, shared.Validationf("payment amount must be greater than zero")
	}
	var out Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		purchase, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if purchase.Status == StatusDraft || purchase.Status == StatusCancelled {
			return shared.InvalidStatef("cannot record payment on %s purchase %s", purchase.Status, purchase.Number)
		}
		if in.Amount.GreaterThan(purchase.RemainingBalance()) {
			return shared.Validationf("payment %s exceeds remaining balance %s",
				in.Amount.String(), purchase.RemainingBalance().String())
		}
		purchase.PaidAmount = purchase.PaidAmount.Add(in.Amount)
		purchase.Recalculate()
		if err := tx.UpdateState(ctx, purchase); err != nil {
			return err
		}
		out = purchase
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	s.logger.Info("payment recorded", "number", out.Number, "amount", in.Amount.String(), "status", string(out.PaymentStatus))
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Purchase, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Purchase, shared.Pagination, error) {
	return s.repo.List(ctx, filter)
}

// Outstanding lists approved or received purchases that still carry a
// balance.
func (s *Service) Outstanding(ctx context.Context) ([]Purchase, error) {
	return s.repo.Outstanding(ctx)
}

// AgingBucket groups outstanding purchases with their remaining balance.
type AgingBucket struct {
	Purchases []Purchase      `json:"purchases"`
	Total     decimal.Decimal `json:"total"`
}

// AgingReport buckets payables by days overdue.
type AgingReport struct {
	Current    AgingBucket     `json:"current"`
	Days1To30  AgingBucket     `json:"days1to30"`
	Days31To60 AgingBucket     `json:"days31to60"`
	Days61To90 AgingBucket     `json:"days61to90"`
	Days90Plus AgingBucket     `json:"days90plus"`
	Total      decimal.Decimal `json:"total"`
}

// Aging buckets outstanding payables by days overdue as of now.
func (s *Service) Aging(ctx context.Context, now time.Time) (AgingReport, error) {
	outstanding, err := s.repo.Outstanding(ctx)
	if err != nil {
		return AgingReport{}, err
	}
	report := AgingReport{Total: decimal.Zero}
	add := func(b *AgingBucket, p Purchase) {
		b.Purchases = append(b.Purchases, p)
		b.Total = b.Total.Add(p.RemainingBalance())
	}
	for _, purchase := range outstanding {
		days := purchase.DaysOverdue(now)
		switch {
		case days <= 0:
			add(&report.Current, purchase)
		case days <= 30:
			add(&report.Days1To30, purchase)
		case days <= 60:
			add(&report.Days31To60, purchase)
		case days <= 90:
			add(&report.Days61To90, purchase)
		default:
			add(&report.Days90Plus, purchase)
		}
		report.Total = report.Total.Add(purchase.RemainingBalance())
	}
	return report, nil
}

// snapshotLines resolves items and freezes their identity onto each line.
// Unlike the sales side there is no stock check: purchases bring stock in.
func (s *Service) snapshotLines(ctx context.Context, inputs []LineInput) ([]PurchaseLine, error) {
	lines := make([]PurchaseLine, 0, len(inputs))
	for i, in := range inputs {
		item, err := s.items.GetItem(ctx, in.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.IsActive {
			return nil, shared.Validationf("item %s is not active", item.Name)
		}
		lines = append(lines, PurchaseLine{
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
