package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/shared"
)

// LineInput describes one journal line in a create or update request.
type LineInput struct {
	AccountID uuid.UUID       `json:"accountId" validate:"required"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo"`
}

// CreateInput groups fields required to create a journal entry.
type CreateInput struct {
	Date         time.Time   `json:"date" validate:"required"`
	Description  string      `json:"description" validate:"required"`
	Kind         JournalKind `json:"kind"`
	Post         bool        `json:"post"`
	SourceModule string      `json:"sourceModule"`
	SourceID     *uuid.UUID  `json:"sourceId"`
	CreatedBy    string      `json:"createdBy"`
	Lines        []LineInput `json:"lines" validate:"required,min=2"`
}

// Validate enforces the double-entry rules: at least two lines, every line
// single-sided and non-negative, totals non-zero and balanced within
// BalanceTolerance.
func (in CreateInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.Kind != "" && !ValidKind(in.Kind) {
		return shared.Validationf("unknown journal kind %q", in.Kind)
	}
	var debit, credit decimal.Decimal
	for idx, line := range in.Lines {
		if line.AccountID == uuid.Nil {
			return shared.Validationf("line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return shared.Validationf("line %d has a negative amount", idx)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return shared.Validationf("line %d cannot be both debit and credit", idx)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return shared.Validationf("line %d has no amount", idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if debit.IsZero() && credit.IsZero() {
		return shared.Validationf("journal amounts must be non-zero")
	}
	if debit.Sub(credit).Abs().GreaterThan(BalanceTolerance) {
		return shared.Validationf("journal is unbalanced: debit %s vs credit %s", debit.StringFixed(2), credit.StringFixed(2))
	}
	return nil
}

// UpdateInput replaces the editable fields of a draft entry. Lines are
// replaced wholesale and account snapshots re-resolved.
type UpdateInput struct {
	Date        time.Time   `json:"date" validate:"required"`
	Description string      `json:"description" validate:"required"`
	Kind        JournalKind `json:"kind"`
	Lines       []LineInput `json:"lines" validate:"required,min=2"`
}

// Validate applies the same line rules as CreateInput.
func (in UpdateInput) Validate() error {
	return CreateInput{
		Date:        in.Date,
		Description: in.Description,
		Kind:        in.Kind,
		Lines:       in.Lines,
	}.Validate()
}

// VoidInput wraps parameters for voiding a posted entry.
type VoidInput struct {
	EntryID uuid.UUID
	Actor   string
	Reason  string `validate:"required"`
}

// ListFilter narrows journal listings.
type ListFilter struct {
	Status  JournalStatus
	Kind    JournalKind
	Range   shared.DateRange
	Page    int
	PerPage int
}
