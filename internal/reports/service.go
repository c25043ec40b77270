package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/retail-ledger/internal/calendar"
	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// ageingGroups are the account groups covered by the ageing report.
var ageingGroups = []string{ledger.GroupSundryDebtors, ledger.GroupSundryCreditors}

const defaultFetchConcurrency = 8

// Service assembles reports.
type Service struct {
	accounts    AccountReader
	entries     EntryReader
	items       ItemReader
	cache       Cache
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// NewService wires the readers with an optional cache.
func NewService(accounts AccountReader, entries EntryReader, items ItemReader, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:    accounts,
		entries:     entries,
		items:       items,
		cache:       cache,
		logger:      logger,
		concurrency: defaultFetchConcurrency,
		now:         time.Now,
	}
}

// WithNow overrides the clock used for the default reference date.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AgeingReport ages every debtor and creditor of the tenant company as of reference, or today
// when reference is nil. Accounts netting to zero are left out.
func (s *Service) AgeingReport(ctx context.Context, tenant shared.Tenant, reference *time.Time) (AgeingReport, error) {
	if err := tenant.Validate(); err != nil {
		return AgeingReport{}, err
	}
	cal, err := tenant.CalendarSystem()
	if err != nil {
		return AgeingReport{}, err
	}
	ref := calendar.Midnight(s.now())
	if reference != nil {
		ref = calendar.Midnight(*reference)
	}
	local, err := cal.Format(ref)
	if err != nil {
		return AgeingReport{}, shared.Validationf("reference date: %v", err)
	}
	build := func(ctx context.Context) (any, error) {
		return s.buildAgeingReport(ctx, tenant, cal, ref, local)
	}
	if s.cache == nil {
		return s.buildAgeingReport(ctx, tenant, cal, ref, local)
	}
	key, err := s.cache.BuildKey(ctx, shared.ReportCacheScope(tenant.CompanyID), "ageing",
		strconv.FormatInt(tenant.FiscalYearID, 10), ref.Format("2006-01-02"))
	if err != nil {
		s.logger.Warn("ageing cache key", slog.Any("error", err))
		return s.buildAgeingReport(ctx, tenant, cal, ref, local)
	}
	var report AgeingReport
	if err := s.cache.FetchJSON(ctx, key, &report, build); err != nil {
		return AgeingReport{}, err
	}
	return report, nil
}

func (s *Service) buildAgeingReport(ctx context.Context, tenant shared.Tenant, cal calendar.Calendar, ref time.Time, local string) (AgeingReport, error) {
	groups, err := s.accounts.FindGroups(ctx, tenant.CompanyID, ageingGroups)
	if err != nil {
		return AgeingReport{}, err
	}
	for _, name := range ageingGroups {
		if _, ok := groups[name]; !ok {
			return AgeingReport{}, shared.Configurationf("account group %q not configured for company %d", name, tenant.CompanyID)
		}
	}
	accs, err := s.accounts.FindAccountsByGroups(ctx, tenant.CompanyID, tenant.FiscalYearID, ageingGroups)
	if err != nil {
		return AgeingReport{}, err
	}

	rows := make([]AccountAgeingRow, len(accs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, acc := range accs {
		g.Go(func() error {
			entries, err := s.entries.ListEntries(gctx, ledger.EntryQuery{
				CompanyID:  tenant.CompanyID,
				AccountID:  acc.ID,
				To:         &ref,
				ActiveOnly: true,
			})
			if err != nil {
				return fmt.Errorf("reports: entries of account %d: %w", acc.ID, err)
			}
			opening := acc.InitialOpening.Signed()
			ageing, err := ledger.ComputeAgeing(opening, entries, ref, cal)
			if err != nil {
				return fmt.Errorf("reports: ageing of account %d: %w", acc.ID, err)
			}
			net := opening
			for _, e := range entries {
				net = net.Add(e.Net())
			}
			rows[i] = AccountAgeingRow{
				AccountID:      acc.ID,
				AccountName:    acc.Name,
				Group:          acc.Group,
				Buckets:        ageing.Buckets,
				IsReceivable:   ageing.Buckets.IsReceivable(),
				NetBalance:     net,
				OpeningBalance: opening,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AgeingReport{}, err
	}

	report := AgeingReport{
		CompanyID:     tenant.CompanyID,
		FiscalYearID:  tenant.FiscalYearID,
		ReferenceDate: ref,
		LocalDate:     local,
		PerAccount:    make([]AccountAgeingRow, 0, len(rows)),
	}
	for _, row := range rows {
		if ledger.IsSettled(row.Buckets.Total) {
			continue
		}
		report.PerAccount = append(report.PerAccount, row)
		report.Include(row.Buckets)
	}
	return report, nil
}

// AccountAgeing ages one account as of to, over entries dated on or before to, and lists the
// window activity with running balances.
func (s *Service) AccountAgeing(ctx context.Context, tenant shared.Tenant, accountID int64, from, to *time.Time) (AccountAgeing, error) {
	if err := tenant.Validate(); err != nil {
		return AccountAgeing{}, err
	}
	start, end, err := window(from, to)
	if err != nil {
		return AccountAgeing{}, err
	}
	cal, err := tenant.CalendarSystem()
	if err != nil {
		return AccountAgeing{}, err
	}
	acc, err := s.accounts.FindAccount(ctx, tenant.CompanyID, tenant.FiscalYearID, accountID)
	if err != nil {
		return AccountAgeing{}, err
	}
	before, inWindow, err := s.windowEntries(ctx, tenant.CompanyID, acc.ID, start, end)
	if err != nil {
		return AccountAgeing{}, err
	}
	opening := acc.InitialOpening.Signed()
	all := append(append(make([]ledger.Entry, 0, len(before)+len(inWindow)), before...), inWindow...)
	ageing, err := ledger.ComputeAgeing(opening, all, end, cal)
	if err != nil {
		return AccountAgeing{}, fmt.Errorf("reports: ageing of account %d: %w", acc.ID, err)
	}
	running := ledger.ComputeRunningBalance(acc.InitialOpening, before, inWindow)
	return AccountAgeing{
		AccountID:        acc.ID,
		AccountName:      acc.Name,
		From:             start,
		To:               end,
		TotalOutstanding: ageing.Buckets.Total,
		AgingBreakdown:   ageing.Buckets,
		OpeningBalance:   running.Initial,
		Transactions:     running.Entries,
	}, nil
}

// windowEntries returns the active entries dated before start and those within [start, end].
func (s *Service) windowEntries(ctx context.Context, companyID, accountID int64, start, end time.Time) ([]ledger.Entry, []ledger.Entry, error) {
	var before, inWindow []ledger.Entry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		before, err = s.entries.ListEntries(gctx, ledger.EntryQuery{CompanyID: companyID, AccountID: accountID, Before: &start, ActiveOnly: true})
		return err
	})
	g.Go(func() error {
		var err error
		inWindow, err = s.entries.ListEntries(gctx, ledger.EntryQuery{CompanyID: companyID, AccountID: accountID, From: &start, To: &end, ActiveOnly: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return before, inWindow, nil
}

func window(from, to *time.Time) (time.Time, time.Time, error) {
	if from == nil || to == nil {
		return time.Time{}, time.Time{}, shared.Validationf("from and to dates required")
	}
	start, end := calendar.Midnight(*from), calendar.Midnight(*to)
	if end.Before(start) {
		return time.Time{}, time.Time{}, shared.Validationf("to date precedes from date")
	}
	return start, end, nil
}
