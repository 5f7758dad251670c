package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/shared"
)

// CashFlowEntry is one posted entry's net effect on cash.
type CashFlowEntry struct {
	Number      string
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Category    FlowCategory
}

// CashFlowSection groups classified entries with their total.
type CashFlowSection struct {
	Label   string
	Entries []CashFlowEntry
	Total   decimal.Decimal
}

// CashFlowStatement is the classified statement of cash flows.
type CashFlowStatement struct {
	Period      shared.DateRange
	Operating   CashFlowSection
	Investing   CashFlowSection
	Financing   CashFlowSection
	OpeningCash decimal.Decimal
	NetChange   decimal.Decimal
	ClosingCash decimal.Decimal
}

// BuildCashFlow nets each posted entry's cash movement (debits to cash-role
// accounts minus credits), classifies the entry by its counter lines and
// totals the sections. Entries that never touch a cash-role account are
// skipped; entries whose cash lines net to zero contribute nothing but are
// still listed under their category.
func BuildCashFlow(entries []PostedEntry, openingCash decimal.Decimal, period shared.DateRange) CashFlowStatement {
	st := CashFlowStatement{
		Period:      period,
		Operating:   CashFlowSection{Label: "Operating Activities"},
		Investing:   CashFlowSection{Label: "Investing Activities"},
		Financing:   CashFlowSection{Label: "Financing Activities"},
		OpeningCash: openingCash,
	}
	for _, entry := range entries {
		var cashDelta decimal.Decimal
		touchesCash := false
		for _, line := range entry.Lines {
			if !isCashRole(line.Category) {
				continue
			}
			touchesCash = true
			cashDelta = cashDelta.Add(line.Debit).Sub(line.Credit)
		}
		if !touchesCash {
			continue
		}
		flow := CashFlowEntry{
			Number:      entry.Number,
			Date:        entry.Date,
			Description: entry.Description,
			Amount:      cashDelta,
			Category:    ClassifyEntry(entry.Lines),
		}
		section := st.section(flow.Category)
		section.Entries = append(section.Entries, flow)
		section.Total = section.Total.Add(flow.Amount)
	}
	st.NetChange = st.Operating.Total.Add(st.Investing.Total).Add(st.Financing.Total)
	st.ClosingCash = st.OpeningCash.Add(st.NetChange)
	return st
}

func (st *CashFlowStatement) section(c FlowCategory) *CashFlowSection {
	switch c {
	case FlowInvesting:
		return &st.Investing
	case FlowFinancing:
		return &st.Financing
	default:
		return &st.Operating
	}
}
