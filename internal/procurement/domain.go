// Package procurement manages purchase orders from draft through approval,
// receipt, payment and cancellation.
package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the purchase document lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus is derived from the paid amount against the total.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

// PurchaseLine is one order line with the item snapshot taken at write time.
// The unit price doubles as the receiving cost for the stock ledger.
type PurchaseLine struct {
	ID             uuid.UUID
	PurchaseID     uuid.UUID
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

// Purchase is a purchase order. Totals and the payment status are derived
// via Recalculate.
type Purchase struct {
	ID              uuid.UUID
	Number          string
	Date            time.Time
	DueDate         time.Time
	SupplierName    string
	SupplierAddress string
	SupplierPhone   string
	Lines           []PurchaseLine
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
	ReceivedBy      string
	ReceivedAt      *time.Time
	CancelledBy     string
	CancelledAt     *time.Time
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Recalculate derives totals and the payment status from the lines, tax
// rate and paid amount.
func (p *Purchase) Recalculate() {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for i := range p.Lines {
		line := &p.Lines[i]
		gross := line.UnitPrice.Mul(decimal.NewFromFloat(line.Quantity))
		line.Subtotal = gross.Sub(line.DiscountAmount)
		subtotal = subtotal.Add(gross)
		discount = discount.Add(line.DiscountAmount)
	}
	p.Subtotal = subtotal
	p.DiscountTotal = discount
	afterDiscount := subtotal.Sub(discount)
	p.TaxAmount = afterDiscount.Mul(p.TaxRate).Div(decimal.NewFromInt(100))
	p.Total = afterDiscount.Add(p.TaxAmount)

	switch {
	case p.PaidAmount.IsZero():
		p.PaymentStatus = PaymentUnpaid
	case p.PaidAmount.GreaterThanOrEqual(p.Total):
		p.PaymentStatus = PaymentPaid
	default:
		p.PaymentStatus = PaymentPartial
	}
}

// RemainingBalance returns the unpaid portion of the total.
func (p Purchase) RemainingBalance() decimal.Decimal {
	return p.Total.Sub(p.PaidAmount)
}

// DaysOverdue returns full days past the due date, zero when not overdue
// or already paid.
func (p Purchase) DaysOverdue(now time.Time) int {
	if p.PaymentStatus == PaymentPaid || !now.After(p.DueDate) {
		return 0
	}
	return int(now.Sub(p.DueDate).Hours() / 24)
}
