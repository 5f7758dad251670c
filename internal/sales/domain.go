// Package sales manages customer invoices from draft through approval,
// payment and cancellation.
package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the sale document lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus is derived from the paid amount against the total.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// SaleLine is one invoice line with the item snapshot taken at write time.
type SaleLine struct {
	ID             uuid.UUID
	SaleID         uuid.UUID
	ItemID         uuid.UUID
	ItemSKU        string
	ItemName       string
	Unit           string
	Quantity       float64
	UnitPrice      decimal.Decimal
	DiscountAmount decimal.Decimal
	Subtotal       decimal.Decimal
	Position       int
}

// Sale is a customer invoice. Totals and the payment status are derived
// from the lines and paid amount via Recalculate, never stored by hand.
type Sale struct {
	ID              uuid.UUID
	Number          string
	Date            time.Time
	DueDate         time.Time
	CustomerName    string
	CustomerAddress string
	CustomerPhone   string
	Lines           []SaleLine
	Subtotal        decimal.Decimal
	DiscountTotal   decimal.Decimal
	TaxRate         decimal.Decimal
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal
	PaidAmount      decimal.Decimal
	Status          Status
	PaymentStatus   PaymentStatus
	JournalID       *uuid.UUID
	Notes           string
	CreatedBy       string
	ApprovedBy      string
	ApprovedAt      *time.Time
	CancelledBy     string
	CancelledAt     *time.Time
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Recalculate derives totals and the payment status from the lines, tax
// rate and paid amount.
func (s *Sale) Recalculate() {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for i := range s.Lines {
		line := &s.Lines[i]
		gross := line.UnitPrice.Mul(decimal.NewFromFloat(line.Quantity))
		line.Subtotal = gross.Sub(line.DiscountAmount)
		subtotal = subtotal.Add(gross)
		discount = discount.Add(line.DiscountAmount)
	}
	s.Subtotal = subtotal
	s.DiscountTotal = discount
	afterDiscount := subtotal.Sub(discount)
	s.TaxAmount = afterDiscount.Mul(s.TaxRate).Div(decimal.NewFromInt(100))
	s.Total = afterDiscount.Add(s.TaxAmount)

	switch {
	case s.PaidAmount.IsZero():
		s.PaymentStatus = PaymentUnpaid
	case s.PaidAmount.GreaterThanOrEqual(s.Total):
		s.PaymentStatus = PaymentPaid
	default:
		s.PaymentStatus = PaymentPartial
	}
}

// RemainingBalance returns the unpaid portion of the total.
func (s Sale) RemainingBalance() decimal.Decimal {
	return s.Total.Sub(s.PaidAmount)
}

// DaysOverdue returns full days past the due date, zero when not overdue
// or already paid.
func (s Sale) DaysOverdue(now time.Time) int {
	if s.PaymentStatus == PaymentPaid || !now.After(s.DueDate) {
		return 0
	}
	return int(now.Sub(s.DueDate).Hours() / 24)
}
