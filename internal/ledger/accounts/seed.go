package accounts

import (
	"context"
	"errors"

	"github.com/brightline-erp/brightline/internal/shared"
)

// defaultChart is the starter chart of accounts for a small trading company.
// Seeding is additive: existing codes are left untouched.
var defaultChart = []CreateInput{
	{Code: "1-1100", Name: "Kas", Category: CategoryCash},
	{Code: "1-1200", Name: "Bank", Category: CategoryBank},
	{Code: "1-1300", Name: "Piutang Usaha", Category: CategoryReceivable},
	{Code: "1-1400", Name: "Persediaan Barang", Category: CategoryInventory},
	{Code: "1-2100", Name: "Peralatan", Category: CategoryFixedAsset},
	{Code: "2-1100", Name: "Hutang Usaha", Category: CategoryPayable},
	{Code: "2-2100", Name: "Hutang Jangka Panjang", Category: CategoryPayableLongterm},
	{Code: "3-1000", Name: "Modal Pemilik", Category: CategoryCapital},
	{Code: "3-2000", Name: "Laba Ditahan", Category: CategoryRetainedEarnings},
	{Code: "4-1000", Name: "Penjualan", Category: CategorySales},
	{Code: "4-2000", Name: "Penjualan Konsinyasi", Category: CategoryConsignment},
	{Code: "4-9000", Name: "Pendapatan Lain-lain", Category: CategoryOtherIncome},
	{Code: "5-1000", Name: "Harga Pokok Penjualan", Category: CategoryCOGS},
	{Code: "5-2000", Name: "Beban Operasional", Category: CategoryOperatingExpense},
	{Code: "5-3000", Name: "Beban Lain-lain", Category: CategoryOtherExpense},
	{Code: "5-4000", Name: "Beban Bunga", Category: CategoryFinanceCost},
	{Code: "5-5000", Name: "Beban Pajak", Category: CategoryTax},
}

// Seed inserts the default chart, skipping codes that already exist.
func (s *Service) Seed(ctx context.Context) error {
	for _, in := range defaultChart {
		if _, err := s.Create(ctx, in); err != nil {
			if errors.Is(err, shared.ErrDuplicate) {
				continue
			}
			return err
		}
	}
	return nil
}
