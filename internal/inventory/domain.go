// Package inventory maintains the perpetual stock ledger.
package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockTxType enumerates stock movement kinds.
type StockTxType string

const (
	StockIn     StockTxType = "IN"
	StockOut    StockTxType = "OUT"
	StockAdjust StockTxType = "ADJUST"
)

// Item is a stocked product. Master-data editing lives elsewhere; the stock
// ledger owns currentStock and reads costPrice for valuation.
type Item struct {
	ID           uuid.UUID
	SKU          string
	Name         string
	Unit         string
	CostPrice    decimal.Decimal
	SellPrice    decimal.Decimal
	CurrentStock float64
	MinimumStock float64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasStock reports whether qty units are available.
func (i Item) HasStock(qty float64) bool {
	return i.CurrentStock >= qty
}

// Reference points a stock movement back at the document that caused it.
type Reference struct {
	Module string     `json:"module"`
	ID     *uuid.UUID `json:"id"`
	Number string     `json:"number"`
}

// StockTransaction is one immutable stock ledger row. Quantity is signed:
// positive for IN, negative for OUT, either for ADJUST. The invariant
// NewStock == PreviousStock + Quantity always holds and NewStock never goes
// negative.
type StockTransaction struct {
	ID            uuid.UUID
	ItemID        uuid.UUID
	ItemSKU       string
	ItemName      string
	Type          StockTxType
	Quantity      float64
	PreviousStock float64
	NewStock      float64
	UnitCost      decimal.Decimal
	TotalCost     decimal.Decimal
	Reference     Reference
	Note          string
	CreatedBy     string
	CreatedAt     time.Time
}
