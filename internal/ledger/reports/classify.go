package reports

import "github.com/brightline-erp/brightline/internal/ledger/accounts"

// FlowCategory names a cash flow statement section.
type FlowCategory string

const (
	FlowOperating FlowCategory = "OPERATING"
	FlowInvesting FlowCategory = "INVESTING"
	FlowFinancing FlowCategory = "FINANCING"
)

// cashRoles are the account roles whose movement constitutes cash flow.
func isCashRole(c accounts.Category) bool {
	return c == accounts.CategoryCash || c == accounts.CategoryBank
}

// ClassifyEntry decides the cash flow category of a posted entry from its
// non-cash counter lines. The first line matching a rule decides the whole
// entry; rule order is significant and mirrors the bookkeeping convention:
// revenue, routine expenses and working-capital accounts are operating,
// fixed assets are investing, capital and long-term debt are financing.
// Entries with no matching counter line default to operating.
func ClassifyEntry(lines []PostedLine) FlowCategory {
	for _, line := range lines {
		if isCashRole(line.Category) {
			continue
		}
		switch line.Category {
		case accounts.CategorySales, accounts.CategoryConsignment, accounts.CategoryOtherIncome:
			return FlowOperating
		case accounts.CategoryCOGS, accounts.CategoryOperatingExpense, accounts.CategoryTax, accounts.CategoryFinanceCost:
			return FlowOperating
		case accounts.CategoryPayable:
			return FlowOperating
		case accounts.CategoryReceivable, accounts.CategoryInventory:
			return FlowOperating
		case accounts.CategoryFixedAsset:
			return FlowInvesting
		case accounts.CategoryCapital, accounts.CategoryRetainedEarnings:
			return FlowFinancing
		case accounts.CategoryPayableLongterm:
			return FlowFinancing
		}
	}
	return FlowOperating
}
