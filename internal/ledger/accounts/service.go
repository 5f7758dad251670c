package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brightline-erp/brightline/internal/shared"
)

// Service implements chart-of-accounts use cases.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and persists a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	account, err := in.Validate()
	if err != nil {
		return Account{}, err
	}
	account.ID = uuid.New()
	return s.repo.Insert(ctx, account)
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByCode fetches an account by its ledger code.
func (s *Service) GetByCode(ctx context.Context, code string) (Account, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns the chart of accounts ordered by code.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	return s.repo.List(ctx, activeOnly)
}

// FindByType returns active accounts of the given type.
func (s *Service) FindByType(ctx context.Context, t AccountType) ([]Account, error) {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
	default:
		return nil, shared.Validationf("unknown account type %q", t)
	}
	return s.repo.FindByType(ctx, t)
}

// FindByCategory returns active accounts carrying the given role tag.
func (s *Service) FindByCategory(ctx context.Context, c Category) ([]Account, error) {
	if !ValidCategory(c) {
		return nil, shared.Validationf("unknown account category %q", c)
	}
	return s.repo.FindByCategory(ctx, c)
}

// ResolveRole returns the single active account expected to serve a role.
// Missing roles are configuration errors, not validation errors: the caller
// cannot fix them by changing the request.
func (s *Service) ResolveRole(ctx context.Context, c Category) (Account, error) {
	matches, err := s.repo.FindByCategory(ctx, c)
	if err != nil {
		return Account{}, err
	}
	if len(matches) == 0 {
		return Account{}, shared.Configurationf("no active account tagged %q", c)
	}
	return matches[0], nil
}

// Update applies administrative edits. Code, type and polarity stay fixed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	current.Name = in.Name
	current.Category = in.Category
	current.OpeningBalance = in.OpeningBalance
	current.Description = in.Description
	return s.repo.Update(ctx, current)
}

const recentActivityWindow = 90 * 24 * time.Hour

// Deactivate soft-deletes an account. When the account has posted activity
// inside recentActivityWindow the call is refused unless force is set, so a
// ledger still being written to is not silently retired.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, force bool) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return shared.InvalidStatef("account %s is already inactive", account.Code)
	}
	if !force {
		recent, err := s.repo.HasPostedLinesSince(ctx, id, s.now().Add(-recentActivityWindow))
		if err != nil {
			return err
		}
		if recent {
			return shared.InvalidStatef("account %s has recent posted activity; pass force to deactivate", account.Code)
		}
	}
	return s.repo.SetActive(ctx, id, false)
}

// Reactivate re-enables a previously deactivated account.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if account.IsActive {
		return shared.InvalidStatef("account %s is already active", account.Code)
	}
	return s.repo.SetActive(ctx, id, true)
}

// Delete hard-deletes an account that has never been journaled against.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	referenced, err := s.repo.HasLines(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return shared.InvalidStatef("account is referenced by journal lines; deactivate instead")
	}
	return s.repo.Delete(ctx, id)
}
