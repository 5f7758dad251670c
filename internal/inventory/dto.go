package inventory

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/shared"
)

// CreateItemInput carries the payload for registering a new item.
type CreateItemInput struct {
	SKU          string          `json:"sku" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Unit         string          `json:"unit"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellPrice    decimal.Decimal `json:"sellPrice"`
	CurrentStock float64         `json:"currentStock"`
	MinimumStock float64         `json:"minimumStock"`
}

func (in CreateItemInput) Validate() (Item, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return Item{}, err
	}
	if in.CostPrice.IsNegative() || in.SellPrice.IsNegative() {
		return Item{}, shared.Validationf("prices must not be negative")
	}
	if in.CurrentStock < 0 {
		return Item{}, shared.Validationf("opening stock must not be negative")
	}
	unit := in.Unit
	if unit == "" {
		unit = "pcs"
	}
	return Item{
		SKU:          strings.TrimSpace(in.SKU),
		Name:         strings.TrimSpace(in.Name),
		Unit:         unit,
		CostPrice:    in.CostPrice,
		SellPrice:    in.SellPrice,
		CurrentStock: in.CurrentStock,
		MinimumStock: in.MinimumStock,
		IsActive:     true,
	}, nil
}

// UpdateItemInput edits item master data. Stock is never edited directly;
// use an adjustment instead.
type UpdateItemInput struct {
	Name         string          `json:"name" validate:"required"`
	Unit         string          `json:"unit"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellPrice    decimal.Decimal `json:"sellPrice"`
	MinimumStock float64         `json:"minimumStock"`
}

func (in UpdateItemInput) Validate() error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if in.CostPrice.IsNegative() || in.SellPrice.IsNegative() {
		return shared.Validationf("prices must not be negative")
	}
	return nil
}

// MovementInput describes a single stock mutation.
type MovementInput struct {
	Quantity  float64
	UnitCost  decimal.Decimal
	Reference Reference
	Note      string
	CreatedBy string
}

// AdjustInput sets an item's stock to an absolute level.
type AdjustInput struct {
	NewStock  float64 `json:"newStock"`
	Note      string  `json:"note"`
	CreatedBy string  `json:"createdBy"`
}

// HistoryFilter narrows a stock transaction listing.
type HistoryFilter struct {
	Type    StockTxType
	Range   shared.DateRange
	Page    int
	PerPage int
}
