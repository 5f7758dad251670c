package accounts

import (
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/shared"
)

// CreateInput groups fields for creating an account.
type CreateInput struct {
	Code           string          `json:"code" validate:"required"`
	Name           string          `json:"name" validate:"required,min=2"`
	Category       Category        `json:"category" validate:"required"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Description    string          `json:"description"`
}

// Validate checks the code format, derives the type from the leading digit
// and pins the normal balance to the type.
func (in CreateInput) Validate() (Account, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Account{}, err
	}
	accountType, ok := TypeForCode(in.Code)
	if !ok {
		return Account{}, shared.Validationf("account code %q does not match the numbering scheme", in.Code)
	}
	if !ValidCategory(in.Category) {
		return Account{}, shared.Validationf("unknown account category %q", in.Category)
	}
	return Account{
		Code:           in.Code,
		Name:           in.Name,
		Type:           accountType,
		Category:       in.Category,
		NormalBalance:  NormalBalanceFor(accountType),
		OpeningBalance: in.OpeningBalance,
		Description:    in.Description,
		IsActive:       true,
	}, nil
}

// UpdateInput groups administratively editable fields. Code, type and
// polarity are immutable once the account exists.
type UpdateInput struct {
	Name           string          `json:"name" validate:"required,min=2"`
	Category       Category        `json:"category" validate:"required"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Description    string          `json:"description"`
}

// Validate checks the update payload.
func (in UpdateInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if !ValidCategory(in.Category) {
		return shared.Validationf("unknown account category %q", in.Category)
	}
	return nil
}
