package journals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brightline-erp/brightline/internal/shared"
)

// Service implements the journal lifecycle.
type Service struct {
	repo   Repository
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the service. prefix is the document-number prefix for
// manually created journals (reversal and source-module entries derive their
// own).
func NewService(repo Repository, prefix string, logger *slog.Logger) *Service {
	if prefix == "" {
		prefix = "JU"
	}
	return &Service{repo: repo, prefix: prefix, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns journal entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, shared.Pagination, error) {
	return s.repo.List(ctx, filter)
}

// Get fetches one entry with its lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByNumber fetches one entry by its document number.
func (s *Service) GetByNumber(ctx context.Context, number string) (JournalEntry, error) {
	return s.repo.GetByNumber(ctx, number)
}

// Create validates and persists a journal entry. With in.Post set the entry
// is born POSTED; otherwise it stays DRAFT and remains editable.
func (s *Service) Create(ctx context.Context, in CreateInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	kind := in.Kind
	if kind == "" {
		kind = KindGeneral
	}

	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := s.snapshotLines(ctx, tx, in.Lines)
		if err != nil {
			return err
		}
		number, err := tx.NextNumber(ctx, s.prefix, in.Date)
		if err != nil {
			return err
		}
		now := s.now()
		entry = JournalEntry{
			ID:           uuid.New(),
			Number:       number,
			Date:         in.Date,
			Description:  in.Description,
			Kind:         kind,
			Status:       JournalStatusDraft,
			SourceModule: in.SourceModule,
			SourceID:     in.SourceID,
			CreatedBy:    in.CreatedBy,
			Lines:        lines,
		}
		if in.Post {
			entry.Status = JournalStatusPosted
			entry.PostedAt = &now
		}
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		return tx.InsertLines(ctx, entry.ID, lines)
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.logger.Info("journal created",
		slog.String("number", entry.Number),
		slog.String("kind", string(entry.Kind)),
		slog.String("status", string(entry.Status)))
	return entry, nil
}

// Update replaces the editable fields of a DRAFT entry. Account snapshots are
// re-resolved so renamed accounts are reflected until posting freezes them.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return shared.InvalidStatef("journal %s is %s; only drafts can be updated", current.Number, current.Status)
		}
		lines, err := s.snapshotLines(ctx, tx, in.Lines)
		if err != nil {
			return err
		}
		current.Date = in.Date
		current.Description = in.Description
		if in.Kind != "" {
			current.Kind = in.Kind
		}
		if err := tx.UpdateEntry(ctx, current); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, id, lines); err != nil {
			return err
		}
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// Delete removes a DRAFT entry and its lines.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return shared.InvalidStatef("journal %s is %s; only drafts can be deleted", current.Number, current.Status)
		}
		return tx.DeleteEntry(ctx, id)
	})
}

// Post transitions DRAFT → POSTED after re-checking balance.
func (s *Service) Post(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch current.Status {
		case JournalStatusDraft:
		case JournalStatusPosted:
			return shared.InvalidStatef("journal %s is already posted", current.Number)
		default:
			return shared.InvalidStatef("journal %s is void and cannot be posted", current.Number)
		}
		if !current.Balanced() {
			return shared.Validationf("journal %s is unbalanced and cannot be posted", current.Number)
		}
		now := s.now()
		current.Status = JournalStatusPosted
		current.PostedAt = &now
		if err := tx.UpdateStatus(ctx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.logger.Info("journal posted", slog.String("number", entry.Number))
	return entry, nil
}

// Void transitions POSTED → VOID. Drafts are rejected: an unwanted draft is
// deleted, not voided, so the void state always marks a reversed posting.
func (s *Service) Void(ctx context.Context, in VoidInput) (JournalEntry, error) {
	if in.Reason == "" {
		return JournalEntry{}, shared.Validationf("void reason is required")
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		switch current.Status {
		case JournalStatusPosted:
		case JournalStatusDraft:
			return shared.InvalidStatef("journal %s is a draft; delete it instead of voiding", current.Number)
		default:
			return shared.InvalidStatef("journal %s is already void", current.Number)
		}
		now := s.now()
		current.Status = JournalStatusVoid
		current.VoidedAt = &now
		current.VoidReason = in.Reason
		if err := tx.UpdateStatus(ctx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.logger.Info("journal voided",
		slog.String("number", entry.Number),
		slog.String("reason", in.Reason))
	return entry, nil
}

// Reverse creates a new POSTED entry with debits and credits swapped. The
// original stays POSTED; reversal is the correction tool when voiding would
// rewrite an already-reported period.
func (s *Service) Reverse(ctx context.Context, id uuid.UUID, actor, memo string) (JournalEntry, error) {
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if original.Status != JournalStatusPosted {
			return shared.InvalidStatef("journal %s is %s; only posted entries can be reversed", original.Number, original.Status)
		}
		number, err := tx.NextNumber(ctx, s.prefix, s.now())
		if err != nil {
			return err
		}
		now := s.now()
		reversal = JournalEntry{
			ID:           uuid.New(),
			Number:       number,
			Date:         now,
			Description:  reversalMemo(memo, original.Number),
			Kind:         reversalKind(original.Kind),
			Status:       JournalStatusPosted,
			SourceModule: original.SourceModule,
			SourceID:     original.SourceID,
			CreatedBy:    actor,
			PostedAt:     &now,
			Lines:        reverseLines(original.Lines),
		}
		if err := tx.InsertEntry(ctx, reversal); err != nil {
			return err
		}
		return tx.InsertLines(ctx, reversal.ID, reversal.Lines)
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.logger.Info("journal reversed", slog.String("original", id.String()), slog.String("reversal", reversal.Number))
	return reversal, nil
}

func (s *Service) snapshotLines(ctx context.Context, tx TxRepository, inputs []LineInput) ([]JournalLine, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.AccountID)
	}
	resolved, err := tx.ResolveAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]JournalLine, 0, len(inputs))
	for i, in := range inputs {
		account := resolved[in.AccountID]
		lines = append(lines, JournalLine{
			AccountID:   in.AccountID,
			AccountCode: account.Code,
			AccountName: account.Name,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Memo:        in.Memo,
			Position:    i,
		})
	}
	return lines, nil
}

func reverseLines(lines []JournalLine) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for i, line := range lines {
		out = append(out, JournalLine{
			AccountID:   line.AccountID,
			AccountCode: line.AccountCode,
			AccountName: line.AccountName,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Memo:        line.Memo,
			Position:    i,
		})
	}
	return out
}

func reversalKind(kind JournalKind) JournalKind {
	switch kind {
	case KindSales:
		return KindSalesReversal
	case KindPurchase:
		return KindPurchaseReversal
	default:
		return KindAdjustment
	}
}

func reversalMemo(memo, number string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", number)
}
