package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/balance"
)

// LedgerLine is one posted movement with the running balance after it.
type LedgerLine struct {
	Date        time.Time
	Number      string
	Description string
	Memo        string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Running     decimal.Decimal
}

// LedgerAccount is the general ledger card for one account.
type LedgerAccount struct {
	Code    string
	Name    string
	Type    accounts.AccountType
	Opening decimal.Decimal
	Lines   []LedgerLine
	Closing decimal.Decimal
}

// BuildLedgerAccount walks an account's posted lines chronologically,
// accumulating the polarity-aware running balance seeded from the opening
// position.
func BuildLedgerAccount(account accounts.Account, opening decimal.Decimal, lines []PostedLine) LedgerAccount {
	card := LedgerAccount{
		Code:    account.Code,
		Name:    account.Name,
		Type:    account.Type,
		Opening: opening,
		Closing: opening,
	}
	running := opening
	for _, l := range lines {
		running = running.Add(balance.Signed(account.NormalBalance, l.Debit, l.Credit))
		card.Lines = append(card.Lines, LedgerLine{
			Date:        l.Date,
			Number:      l.Number,
			Description: l.Description,
			Memo:        l.Memo,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Running:     running,
		})
	}
	card.Closing = running
	return card
}

// GeneralJournal is the chronological listing of posted entries.
type GeneralJournal struct {
	Entries     []PostedEntry
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// BuildGeneralJournal totals a posted-entry listing.
func BuildGeneralJournal(entries []PostedEntry) GeneralJournal {
	gj := GeneralJournal{Entries: entries}
	for _, e := range entries {
		for _, l := range e.Lines {
			gj.TotalDebit = gj.TotalDebit.Add(l.Debit)
			gj.TotalCredit = gj.TotalCredit.Add(l.Credit)
		}
	}
	return gj
}
