package inventory

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/shared"
)

// Service owns item master data and every stock movement. All mutations go
// through the stock ledger so current stock is always reconstructible from
// the transaction history.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the inventory service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateItem registers a new item. An opening stock greater than zero is
// recorded as an initial IN movement so the ledger stays complete.
func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (Item, error) {
	item, err := in.Validate()
	if err != nil {
		return Item{}, err
	}
	item.ID = uuid.New()
	opening := item.CurrentStock
	item.CurrentStock = 0
	if err := s.repo.InsertItem(ctx, item); err != nil {
		return Item{}, err
	}
	if opening > 0 {
		tx, err := s.AddStock(ctx, item.ID, MovementInput{
			Quantity:  opening,
			UnitCost:  item.CostPrice,
			Reference: Reference{Module: "opening_balance", Number: item.SKU},
			Note:      "Opening stock",
		})
		if err != nil {
			return Item{}, err
		}
		item.CurrentStock = tx.NewStock
	}
	s.logger.Info("item created", "sku", item.SKU, "name", item.Name)
	return item, nil
}

// UpdateItem edits master data. Stock levels are untouched.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, in UpdateItemInput) (Item, error) {
	if err := in.Validate(); err != nil {
		return Item{}, err
	}
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	item.Name = in.Name
	if in.Unit != "" {
		item.Unit = in.Unit
	}
	item.CostPrice = in.CostPrice
	item.SellPrice = in.SellPrice
	item.MinimumStock = in.MinimumStock
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) GetItemBySKU(ctx context.Context, sku string) (Item, error) {
	return s.repo.GetItemBySKU(ctx, sku)
}

func (s *Service) ListItems(ctx context.Context, includeInactive bool) ([]Item, error) {
	return s.repo.ListItems(ctx, includeInactive)
}

// LowStock returns active items at or below their minimum stock level.
func (s *Service) LowStock(ctx context.Context) ([]Item, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetItemActive(ctx, id, false)
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetItemActive(ctx, id, true)
}

// HasStock reports whether the item currently holds at least qty units.
func (s *Service) HasStock(ctx context.Context, id uuid.UUID, qty float64) (bool, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return false, err
	}
	return item.HasStock(qty), nil
}

// AddStock receives qty units into stock. The unit cost defaults to the
// item's cost price when the caller does not supply one; cost prices are not
// recalculated on receipt.
func (s *Service) AddStock(ctx context.Context, itemID uuid.UUID, in MovementInput) (StockTransaction, error) {
	if in.Quantity <= 0 {
		return StockTransaction{}, shared.Validationf("quantity must be greater than zero")
	}
	return s.move(ctx, itemID, StockIn, in.Quantity, in)
}

// ReduceStock issues qty units out of stock. The movement is refused when
// fewer units than requested are on hand, and the ledger row stores a
// negative quantity.
func (s *Service) ReduceStock(ctx context.Context, itemID uuid.UUID, in MovementInput) (StockTransaction, error) {
	if in.Quantity <= 0 {
		return StockTransaction{}, shared.Validationf("quantity must be greater than zero")
	}
	return s.move(ctx, itemID, StockOut, -in.Quantity, in)
}

// AdjustStock sets the item's stock to an absolute level, recording the
// delta as an ADJUST movement.
func (s *Service) AdjustStock(ctx context.Context, itemID uuid.UUID, in AdjustInput) (StockTransaction, error) {
	if in.NewStock < 0 {
		return StockTransaction{}, shared.Validationf("stock level must not be negative")
	}
	var out StockTransaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		delta := in.NewStock - item.CurrentStock
		rec := StockTransaction{
			ID:            uuid.New(),
			ItemID:        item.ID,
			ItemSKU:       item.SKU,
			ItemName:      item.Name,
			Type:          StockAdjust,
			Quantity:      delta,
			PreviousStock: item.CurrentStock,
			NewStock:      in.NewStock,
			UnitCost:      item.CostPrice,
			TotalCost:     decimal.NewFromFloat(delta).Mul(item.CostPrice),
			Reference:     Reference{Module: "manual_adjustment"},
			Note:          in.Note,
			CreatedBy:     in.CreatedBy,
		}
		if err := tx.InsertTransaction(ctx, rec); err != nil {
			return err
		}
		if err := tx.UpdateItemStock(ctx, item.ID, in.NewStock); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return StockTransaction{}, err
	}
	s.logger.Info("stock adjusted", "sku", out.ItemSKU, "from", out.PreviousStock, "to", out.NewStock)
	return out, nil
}

// History lists the stock ledger for an item, newest first.
func (s *Service) History(ctx context.Context, itemID uuid.UUID, filter HistoryFilter) ([]StockTransaction, shared.Pagination, error) {
	return s.repo.History(ctx, itemID, filter)
}

// move applies one signed stock mutation under a row lock.
func (s *Service) move(ctx context.Context, itemID uuid.UUID, txType StockTxType, signedQty float64, in MovementInput) (StockTransaction, error) {
	var out StockTransaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		newStock := item.CurrentStock + signedQty
		if newStock < 0 {
			return &shared.InsufficientStockError{
				ItemName:  item.Name,
				Available: item.CurrentStock,
				Required:  -signedQty,
			}
		}
		unitCost := in.UnitCost
		if unitCost.IsZero() {
			unitCost = item.CostPrice
		}
		rec := StockTransaction{
			ID:            uuid.New(),
			ItemID:        item.ID,
			ItemSKU:       item.SKU,
			ItemName:      item.Name,
			Type:          txType,
			Quantity:      signedQty,
			PreviousStock: item.CurrentStock,
			NewStock:      newStock,
			UnitCost:      unitCost,
			TotalCost:     decimal.NewFromFloat(signedQty).Mul(unitCost),
			Reference:     in.Reference,
			Note:          in.Note,
			CreatedBy:     in.CreatedBy,
		}
		if err := tx.InsertTransaction(ctx, rec); err != nil {
			return err
		}
		if err := tx.UpdateItemStock(ctx, item.ID, newStock); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return StockTransaction{}, err
	}
	s.logger.Info("stock moved", "sku", out.ItemSKU, "type", string(out.Type),
		"quantity", out.Quantity, "stock", out.NewStock)
	return out, nil
}
