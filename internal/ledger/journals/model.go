// Package journals implements the double-entry journal and its lifecycle.
package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "DRAFT"
	JournalStatusPosted JournalStatus = "POSTED"
	JournalStatusVoid   JournalStatus = "VOID"
)

// JournalKind classifies the business event behind an entry.
type JournalKind string

const (
	KindGeneral          JournalKind = "GENERAL"
	KindSales            JournalKind = "SALES"
	KindPurchase         JournalKind = "PURCHASE"
	KindCashIn           JournalKind = "CASH_IN"
	KindCashOut          JournalKind = "CASH_OUT"
	KindAdjustment       JournalKind = "ADJUSTMENT"
	KindSalesReversal    JournalKind = "SALES_REVERSAL"
	KindPurchaseReversal JournalKind = "PURCHASE_REVERSAL"
)

// ValidKind reports whether k is a known journal kind.
func ValidKind(k JournalKind) bool {
	switch k {
	case KindGeneral, KindSales, KindPurchase, KindCashIn, KindCashOut,
		KindAdjustment, KindSalesReversal, KindPurchaseReversal:
		return true
	}
	return false
}

// BalanceTolerance is the maximum acceptable |debit − credit| for a journal
// to be considered balanced.
var BalanceTolerance = decimal.NewFromFloat(0.01)

// JournalEntry captures one double-entry document and its lines.
type JournalEntry struct {
	ID           uuid.UUID
	Number       string
	Date         time.Time
	Description  string
	Kind         JournalKind
	Status       JournalStatus
	SourceModule string
	SourceID     *uuid.UUID
	CreatedBy    string
	PostedAt     *time.Time
	VoidedAt     *time.Time
	VoidReason   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lines        []JournalLine
}

// JournalLine stores a debit or credit amount against an account, with the
// account code and name snapshotted at write time so historical statements
// survive later renames.
type JournalLine struct {
	ID          uuid.UUID
	JournalID   uuid.UUID
	AccountID   uuid.UUID
	AccountCode string
	AccountName string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Memo        string
	Position    int
}

// Totals sums the debit and credit columns.
func (e *JournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// Balanced reports whether the entry's sides agree within BalanceTolerance.
func (e *JournalEntry) Balanced() bool {
	debit, credit := e.Totals()
	return debit.Sub(credit).Abs().LessThanOrEqual(BalanceTolerance)
}
