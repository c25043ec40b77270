package vouchers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/calendar"
	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// AuditPort records voucher changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops cached reports for a scope.
type CacheInvalidator interface {
	Bump(ctx context.Context, scope string) error
}

// PostingRecorder observes posting outcomes.
type PostingRecorder interface {
	ObserveVoucherPosting(action, voucherType, outcome string)
}

// Options tune a Service.
type Options struct {
	// Prefixes seeds the bill prefix used when a sequence is first allocated.
	Prefixes map[ledger.VoucherType]string
}

// Service posts, updates, cancels and reactivates vouchers.
type Service struct {
	repo     Repository
	audit    AuditPort
	cache    CacheInvalidator
	metrics  PostingRecorder
	logger   *slog.Logger
	prefixes map[ledger.VoucherType]string
	now      func() time.Time
	newRef   func() uuid.UUID
}

// NewService constructs the posting service. audit, cache and metrics may be nil.
func NewService(repo Repository, audit AuditPort, cache CacheInvalidator, metrics PostingRecorder, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	prefixes := map[ledger.VoucherType]string{
		ledger.VoucherReceipt: "RV-",
		ledger.VoucherPayment: "PV-",
	}
	for vt, p := range opts.Prefixes {
		prefixes[vt] = p
	}
	return &Service{
		repo:     repo,
		audit:    audit,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		prefixes: prefixes,
		now:      time.Now,
		newRef:   uuid.New,
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create posts a new voucher and its two entries in one transaction.
func (s *Service) Create(ctx context.Context, tenant shared.Tenant, input Input) (Posting, error) {
	date, local, err := s.prepare(tenant, &input)
	if err != nil {
		s.observe("create", input.Type, err)
		return Posting{}, err
	}
	var posting Posting
	err = s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.IdempotencyKey != "" {
			id, found, err := tx.FindIdempotent(ctx, tenant.CompanyID, input.Type, input.IdempotencyKey)
			if err != nil {
				return err
			}
			if found {
				posting, err = replay(ctx, tx, tenant, input.Type, id)
				return err
			}
		}
		accs, err := tx.LockAccounts(ctx, tenant.CompanyID, tenant.FiscalYearID, sortedIDs(input.SourceAccountID, input.TargetAccountID))
		if err != nil {
			return err
		}
		bill, err := tx.NextBillNumber(ctx, tenant.CompanyID, tenant.FiscalYearID, input.Type, s.prefixes[input.Type])
		if err != nil {
			return err
		}
		v, err := tx.InsertVoucher(ctx, Voucher{
			CompanyID:       tenant.CompanyID,
			FiscalYearID:    tenant.FiscalYearID,
			Type:            input.Type,
			Bill:            bill,
			Reference:       s.newRef(),
			Date:            date,
			LocalDate:       local,
			SourceAccountID: input.SourceAccountID,
			TargetAccountID: input.TargetAccountID,
			Amount:          input.Amount,
			PaymentMode:     input.PaymentMode,
			Instrument:      input.Instrument,
			Description:     input.Description,
			Status:          StatusActive,
			IsActive:        true,
		})
		if err != nil {
			return err
		}
		posting, err = s.postEntries(ctx, tx, tenant, v, accs)
		if err != nil || input.IdempotencyKey == "" {
			return err
		}
		return tx.SaveIdempotent(ctx, tenant.CompanyID, input.Type, input.IdempotencyKey, v.ID)
	})
	s.observe("create", input.Type, err)
	if err != nil {
		return Posting{}, err
	}
	if posting.Replayed {
		return posting, nil
	}
	s.afterWrite(ctx, tenant, input.ActorID, "voucher.create", posting.Voucher)
	return posting, nil
}

// Update replaces the voucher content and its entries. The bill number and reference are kept.
func (s *Service) Update(ctx context.Context, tenant shared.Tenant, id int64, input Input) (Posting, error) {
	if id <= 0 {
		return Posting{}, shared.Validationf("voucher id required")
	}
	date, local, err := s.prepare(tenant, &input)
	if err != nil {
		s.observe("update", input.Type, err)
		return Posting{}, err
	}
	var posting Posting
	err = s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, tenant.CompanyID, input.Type, id)
		if err != nil {
			return err
		}
		if current.FiscalYearID != tenant.FiscalYearID {
			return shared.NotFoundf("%s voucher %d in fiscal year %d", input.Type, id, tenant.FiscalYearID)
		}
		if !current.IsActive {
			return shared.Validationf("voucher %s is canceled", current.Bill)
		}
		accs, err := tx.LockAccounts(ctx, tenant.CompanyID, tenant.FiscalYearID, sortedIDs(
			current.SourceAccountID, current.TargetAccountID, input.SourceAccountID, input.TargetAccountID))
		if err != nil {
			return err
		}
		if _, err := tx.DeleteEntries(ctx, current.ID); err != nil {
			return err
		}
		next := current
		next.Date = date
		next.LocalDate = local
		next.SourceAccountID = input.SourceAccountID
		next.TargetAccountID = input.TargetAccountID
		next.Amount = input.Amount
		next.PaymentMode = input.PaymentMode
		next.Instrument = input.Instrument
		next.Description = input.Description
		updated, err := tx.UpdateVoucher(ctx, next)
		if err != nil {
			return err
		}
		posting, err = s.postEntries(ctx, tx, tenant, updated, accs)
		return err
	})
	s.observe("update", input.Type, err)
	if err != nil {
		return Posting{}, err
	}
	s.afterWrite(ctx, tenant, input.ActorID, "voucher.update", posting.Voucher)
	return posting, nil
}

// Cancel deactivates the voucher with billNumber and all of its entries.
func (s *Service) Cancel(ctx context.Context, tenant shared.Tenant, vt ledger.VoucherType, billNumber int64, actorID int64) (Voucher, error) {
	return s.toggle(ctx, tenant, vt, billNumber, actorID, false)
}

// Reactivate restores a canceled voucher and its entries.
func (s *Service) Reactivate(ctx context.Context, tenant shared.Tenant, vt ledger.VoucherType, billNumber int64, actorID int64) (Voucher, error) {
	return s.toggle(ctx, tenant, vt, billNumber, actorID, true)
}

func (s *Service) toggle(ctx context.Context, tenant shared.Tenant, vt ledger.VoucherType, billNumber int64, actorID int64, active bool) (Voucher, error) {
	action := "cancel"
	if active {
		action = "reactivate"
	}
	if err := tenant.Validate(); err != nil {
		return Voucher{}, err
	}
	if !Supported(vt) {
		return Voucher{}, shared.Validationf("unsupported voucher type %q", vt)
	}
	if billNumber <= 0 {
		return Voucher{}, shared.Validationf("bill number required")
	}
	var (
		result  Voucher
		changed bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		changed = false
		v, err := tx.FindByBillForUpdate(ctx, tenant.CompanyID, tenant.FiscalYearID, vt, billNumber)
		if err != nil {
			return err
		}
		if v.IsActive == active {
			result = v
			return nil
		}
		result, err = tx.SetActive(ctx, v, active)
		changed = err == nil
		return err
	})
	s.observe(action, vt, err)
	if err != nil {
		return Voucher{}, err
	}
	if changed {
		s.afterWrite(ctx, tenant, actorID, "voucher."+action, result)
	}
	return result, nil
}

// Get returns a voucher with its entries.
func (s *Service) Get(ctx context.Context, tenant shared.Tenant, vt ledger.VoucherType, id int64) (Voucher, []ledger.Entry, error) {
	if err := tenant.Validate(); err != nil {
		return Voucher{}, nil, err
	}
	if !Supported(vt) {
		return Voucher{}, nil, shared.Validationf("unsupported voucher type %q", vt)
	}
	return s.repo.Get(ctx, tenant.CompanyID, vt, id)
}

// List returns vouchers of the tenant fiscal year, newest bill first.
func (s *Service) List(ctx context.Context, tenant shared.Tenant, filter ListFilter) ([]Voucher, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if !Supported(filter.Type) {
		return nil, shared.Validationf("unsupported voucher type %q", filter.Type)
	}
	if filter.Status != "" && !filter.Status.valid() {
		return nil, shared.Validationf("unknown status %q", filter.Status)
	}
	return s.repo.List(ctx, tenant.CompanyID, tenant.FiscalYearID, filter)
}

// prepare validates input against the tenant and resolves the voucher date.
func (s *Service) prepare(tenant shared.Tenant, input *Input) (time.Time, string, error) {
	if err := tenant.Validate(); err != nil {
		return time.Time{}, "", err
	}
	if err := input.Validate(); err != nil {
		return time.Time{}, "", err
	}
	cal, err := tenant.CalendarSystem()
	if err != nil {
		return time.Time{}, "", err
	}
	date, err := cal.Parse(input.Date)
	if err != nil {
		return time.Time{}, "", shared.Validationf("date %q: %v", input.Date, err)
	}
	if !tenant.InFiscalYear(date) {
		return time.Time{}, "", shared.Validationf("date %s outside fiscal year %d", input.Date, tenant.FiscalYearID)
	}
	local, err := cal.Format(date)
	if err != nil {
		return time.Time{}, "", shared.Validationf("date %q: %v", input.Date, err)
	}
	return calendar.Midnight(date), local, nil
}

// postEntries inserts the credit entry on the source and the debit entry on the target.
func (s *Service) postEntries(ctx context.Context, tx TxRepository, tenant shared.Tenant, v Voucher, accs map[int64]ledger.Account) (Posting, error) {
	base := ledger.Entry{
		CompanyID:    tenant.CompanyID,
		FiscalYearID: tenant.FiscalYearID,
		Debit:        decimal.Zero,
		Credit:       decimal.Zero,
		Date:         v.Date,
		LocalDate:    v.LocalDate,
		VoucherType:  v.Type,
		VoucherID:    v.ID,
		BillNumber:   v.Bill.Number,
		VoucherRef:   v.Reference,
		PaymentMode:  v.PaymentMode,
		IsActive:     true,
	}

	credit := base
	credit.AccountID = v.SourceAccountID
	credit.Credit = v.Amount
	credit.Side = ledger.SideCredit
	prev, err := s.lastBalance(ctx, tx, tenant, accs[v.SourceAccountID])
	if err != nil {
		return Posting{}, err
	}
	credit.Balance = ledger.NextBalance(prev, v.Type, credit.Debit, credit.Credit)

	debit := base
	debit.AccountID = v.TargetAccountID
	debit.Debit = v.Amount
	debit.Side = ledger.SideDebit
	prev, err = s.lastBalance(ctx, tx, tenant, accs[v.TargetAccountID])
	if err != nil {
		return Posting{}, err
	}
	debit.Balance = ledger.NextBalance(prev, v.Type, debit.Debit, debit.Credit)

	if credit, err = tx.InsertEntry(ctx, credit); err != nil {
		return Posting{}, err
	}
	if debit, err = tx.InsertEntry(ctx, debit); err != nil {
		return Posting{}, err
	}
	return Posting{Voucher: v, CreditEntry: credit, DebitEntry: debit}, nil
}

func (s *Service) lastBalance(ctx context.Context, tx TxRepository, tenant shared.Tenant, acc ledger.Account) (decimal.Decimal, error) {
	balance, ok, err := tx.LastBalance(ctx, tenant.CompanyID, tenant.FiscalYearID, acc.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return acc.Opening.Signed(), nil
	}
	return balance, nil
}

// replay loads the posting an earlier create stored under an idempotency key.
func replay(ctx context.Context, tx TxRepository, tenant shared.Tenant, vt ledger.VoucherType, id int64) (Posting, error) {
	v, err := tx.GetVoucherForUpdate(ctx, tenant.CompanyID, vt, id)
	if err != nil {
		return Posting{}, err
	}
	entries, err := tx.ListEntries(ctx, id)
	if err != nil {
		return Posting{}, err
	}
	posting := Posting{Voucher: v, Replayed: true}
	for _, e := range entries {
		if e.Side == ledger.SideCredit {
			posting.CreditEntry = e
		} else {
			posting.DebitEntry = e
		}
	}
	return posting, nil
}

// inTx runs fn in a transaction, retrying once on a concurrency conflict.
func (s *Service) inTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := s.repo.WithTx(ctx, fn)
	if errors.Is(err, shared.ErrConcurrency) {
		s.logger.Warn("voucher transaction conflict, retrying", slog.Any("error", err))
		err = s.repo.WithTx(ctx, fn)
	}
	return err
}

func (s *Service) afterWrite(ctx context.Context, tenant shared.Tenant, actorID int64, action string, v Voucher) {
	if s.cache != nil {
		if err := s.cache.Bump(ctx, shared.ReportCacheScope(tenant.CompanyID)); err != nil {
			s.logger.Warn("invalidate report cache", slog.Int64("company_id", tenant.CompanyID), slog.Any("error", err))
		}
	}
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: tenant.CompanyID,
		ActorID:   actorID,
		Action:    action,
		Entity:    "voucher",
		EntityID:  fmt.Sprintf("%d", v.ID),
		Meta: map[string]any{
			"voucher_type":   string(v.Type),
			"bill_number":    v.Bill.String(),
			"amount":         v.Amount.StringFixed(2),
			"status":         string(v.Status),
			"fiscal_year_id": v.FiscalYearID,
		},
		At: s.now(),
	})
	if err != nil {
		s.logger.Warn("audit voucher", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) observe(action string, vt ledger.VoucherType, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveVoucherPosting(action, string(vt), outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrValidation):
		return "invalid"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrConcurrency):
		return "conflict"
	default:
		return "error"
	}
}

func sortedIDs(ids ...int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
