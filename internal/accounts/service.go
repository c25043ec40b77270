package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// AuditPort records account changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops cached reports for a scope.
type CacheInvalidator interface {
	Bump(ctx context.Context, scope string) error
}

// Service implements account management.
type Service struct {
	repo   Repository
	audit  AuditPort
	cache  CacheInvalidator
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the account service. audit and cache may be nil.
func NewService(repo Repository, audit AuditPort, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger, now: time.Now}
}

// Get returns one account with its opening for the tenant fiscal year.
func (s *Service) Get(ctx context.Context, tenant shared.Tenant, id int64) (ledger.Account, error) {
	if err := tenant.Validate(); err != nil {
		return ledger.Account{}, err
	}
	if id <= 0 {
		return ledger.Account{}, shared.Validationf("account id required")
	}
	return s.repo.FindAccount(ctx, tenant.CompanyID, tenant.FiscalYearID, id)
}

// List returns the tenant accounts, optionally restricted to groups.
func (s *Service) List(ctx context.Context, tenant shared.Tenant, filter ListFilter) ([]ledger.Account, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	return s.repo.FindAccountsByGroups(ctx, tenant.CompanyID, tenant.FiscalYearID, filter.Groups)
}

// Create inserts an account whose initial opening is pinned to the tenant fiscal year.
func (s *Service) Create(ctx context.Context, tenant shared.Tenant, input CreateInput) (ledger.Account, error) {
	if err := tenant.Validate(); err != nil {
		return ledger.Account{}, err
	}
	if err := input.Validate(); err != nil {
		return ledger.Account{}, err
	}
	var created ledger.Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		groupID, err := tx.GroupID(ctx, tenant.CompanyID, input.Group)
		if err != nil {
			return err
		}
		acc, err := tx.InsertAccount(ctx, tenant.CompanyID, tenant.FiscalYearID, groupID, input)
		if err != nil {
			return err
		}
		if err := tx.UpsertOpening(ctx, acc.ID, tenant.FiscalYearID, input.Opening); err != nil {
			return err
		}
		created = acc
		return nil
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.invalidate(ctx, tenant)
	s.record(ctx, tenant, input.ActorID, "account.create", created.ID, map[string]any{
		"name":  created.Name,
		"group": created.Group,
	})
	return created, nil
}

// SetOpeningBalance replaces the opening balance for the tenant fiscal year. It is rejected once
// active entries exist against the account in that year.
func (s *Service) SetOpeningBalance(ctx context.Context, tenant shared.Tenant, input OpeningInput) (ledger.Account, error) {
	if err := tenant.Validate(); err != nil {
		return ledger.Account{}, err
	}
	if err := input.Validate(); err != nil {
		return ledger.Account{}, err
	}
	var updated ledger.Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.LockAccount(ctx, tenant.CompanyID, tenant.FiscalYearID, input.AccountID)
		if err != nil {
			return err
		}
		n, err := tx.CountActiveEntries(ctx, acc.ID, tenant.FiscalYearID)
		if err != nil {
			return err
		}
		if n > 0 {
			return shared.Validationf("account %d has %d active entries in fiscal year %d, opening balance is locked", acc.ID, n, tenant.FiscalYearID)
		}
		if err := tx.UpsertOpening(ctx, acc.ID, tenant.FiscalYearID, input.Opening); err != nil {
			return err
		}
		if acc.InitialFiscalYearID == tenant.FiscalYearID {
			if err := tx.UpdateInitialOpening(ctx, acc.ID, input.Opening); err != nil {
				return err
			}
			acc.InitialOpening = input.Opening
		}
		acc.Opening = input.Opening
		updated = acc
		return nil
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.invalidate(ctx, tenant)
	s.record(ctx, tenant, input.ActorID, "account.opening", updated.ID, map[string]any{
		"amount": updated.Opening.Amount.StringFixed(2),
		"sign":   string(updated.Opening.Sign),
	})
	return updated, nil
}

// invalidate drops the company's cached reports; accounts and openings feed every report.
func (s *Service) invalidate(ctx context.Context, tenant shared.Tenant) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, shared.ReportCacheScope(tenant.CompanyID)); err != nil {
		s.logger.Warn("invalidate report cache", slog.Int64("company_id", tenant.CompanyID), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, tenant shared.Tenant, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	meta["fiscal_year_id"] = tenant.FiscalYearID
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: tenant.CompanyID,
		ActorID:   actorID,
		Action:    action,
		Entity:    "account",
		EntityID:  fmt.Sprintf("%d", id),
		Meta:      meta,
		At:        s.now(),
	})
	if err != nil {
		s.logger.Warn("audit account", slog.String("action", action), slog.Any("error", err))
	}
}
