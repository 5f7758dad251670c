package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/shared"
)

// LineInput is one requested invoice line. Item snapshots are resolved by
// the service at write time.
type LineInput struct {
	ItemID         uuid.UUID       `json:"itemId" validate:"required"`
	Quantity       float64         `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// CreateInput carries the payload for a new sale.
type CreateInput struct {
	Date            time.Time       `json:"date" validate:"required"`
	DueDate         time.Time       `json:"dueDate"`
	CustomerName    string          `json:"customerName" validate:"required"`
	CustomerAddress string          `json:"customerAddress"`
	CustomerPhone   string          `json:"customerPhone"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	Notes           string          `json:"notes"`
	CreatedBy       string          `json:"createdBy"`
	Lines           []LineInput     `json:"lines" validate:"required,min=1,dive"`
}

// Validate checks structural validity of the input.
func (in CreateInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.TaxRate.IsNegative() {
		return shared.Validationf("tax rate must not be negative")
	}
	for i, line := range in.Lines {
		if line.Quantity <= 0 {
			return shared.Validationf("line %d: quantity must be greater than zero", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return shared.Validationf("line %d: unit price must not be negative", i+1)
		}
		if line.DiscountAmount.IsNegative() {
			return shared.Validationf("line %d: discount must not be negative", i+1)
		}
	}
	return nil
}

// UpdateInput replaces the whole draft; the same rules as create apply.
type UpdateInput = CreateInput

// PaymentInput records a payment against an invoice.
type PaymentInput struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required"`
	Date   time.Time       `json:"date"`
	Note   string          `json:"note"`
}

// ListFilter narrows a sale listing.
type ListFilter struct {
	Status        Status
	PaymentStatus PaymentStatus
	Range         shared.DateRange
	Page          int
	PerPage       int
}
