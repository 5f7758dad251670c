// Package accounts manages the chart of accounts.
package accounts

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// NormalBalance names the side that increases an account.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// Category is a functional role tag used by the statement generators and the
// inventory bridge to find accounts without hard-coding account codes.
type Category string

const (
	CategoryCash             Category = "cash"
	CategoryBank             Category = "bank"
	CategoryReceivable       Category = "receivable"
	CategoryInventory        Category = "inventory"
	CategoryFixedAsset       Category = "fixed_asset"
	CategoryPayable          Category = "payable"
	CategoryPayableLongterm  Category = "payable_longterm"
	CategoryCapital          Category = "capital"
	CategoryRetainedEarnings Category = "retained_earnings"
	CategorySales            Category = "sales"
	CategoryConsignment      Category = "consignment"
	CategoryOtherIncome      Category = "other_income"
	CategoryCOGS             Category = "cogs"
	CategoryOperatingExpense Category = "operating_expense"
	CategoryOtherExpense     Category = "other_expense"
	CategoryFinanceCost      Category = "finance_cost"
	CategoryTax              Category = "tax"
	CategoryAssociateLoss    Category = "associate_loss"
	CategoryOCI              Category = "oci"
	CategoryOther            Category = "other"
)

// Account models a chart of accounts node.
type Account struct {
	ID             uuid.UUID
	Code           string
	Name           string
	Type           AccountType
	Category       Category
	NormalBalance  NormalBalance
	OpeningBalance decimal.Decimal
	Description    string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// codePattern is the account numbering scheme: the leading digit encodes the
// type (1 asset .. 5 expense), followed by a 4-5 digit identifier.
var codePattern = regexp.MustCompile(`^[1-5]-\d{4,5}$`)

// ValidCode reports whether code follows the numbering scheme.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// TypeForCode returns the account type implied by the code's leading digit.
func TypeForCode(code string) (AccountType, bool) {
	if !ValidCode(code) {
		return "", false
	}
	switch code[0] {
	case '1':
		return AccountTypeAsset, true
	case '2':
		return AccountTypeLiability, true
	case '3':
		return AccountTypeEquity, true
	case '4':
		return AccountTypeRevenue, true
	case '5':
		return AccountTypeExpense, true
	}
	return "", false
}

// NormalBalanceFor returns the polarity an account type must carry.
func NormalBalanceFor(t AccountType) NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// ValidCategory reports whether c is a known category tag.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryCash, CategoryBank, CategoryReceivable, CategoryInventory,
		CategoryFixedAsset, CategoryPayable, CategoryPayableLongterm,
		CategoryCapital, CategoryRetainedEarnings, CategorySales,
		CategoryConsignment, CategoryOtherIncome, CategoryCOGS,
		CategoryOperatingExpense, CategoryOtherExpense, CategoryFinanceCost,
		CategoryTax, CategoryAssociateLoss, CategoryOCI, CategoryOther:
		return true
	}
	return false
}
