package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/odyssey-erp/retail-ledger/internal/jobs"
	"github.com/odyssey-erp/retail-ledger/internal/platform/db"
	"github.com/odyssey-erp/retail-ledger/internal/reports"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// WarmupScope is one company fiscal year to warm.
type WarmupScope struct {
	CompanyID    int64
	FiscalYearID int64
}

// ScopeLister finds the open fiscal years containing a date.
type ScopeLister interface {
	OpenScopes(ctx context.Context, companyID int64, asOf time.Time) ([]WarmupScope, error)
}

// TenantResolver turns a scope into a tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, companyID, fiscalYearID int64) (shared.Tenant, error)
}

// AgeingBuilder builds, and caches, an ageing report.
type AgeingBuilder interface {
	AgeingReport(ctx context.Context, tenant shared.Tenant, reference *time.Time) (reports.AgeingReport, error)
}

// PostgresScopeLister reads open fiscal years.
type PostgresScopeLister struct {
	pool *pgxpool.Pool
}

// NewPostgresScopeLister constructs the lister.
func NewPostgresScopeLister(pool *pgxpool.Pool) *PostgresScopeLister {
	return &PostgresScopeLister{pool: pool}
}

// OpenScopes lists fiscal years that are not closed and contain asOf.
func (l *PostgresScopeLister) OpenScopes(ctx context.Context, companyID int64, asOf time.Time) ([]WarmupScope, error) {
	if l == nil || l.pool == nil {
		return nil, errors.New("ageing warmup: pool not configured")
	}
	rows, err := l.pool.Query(ctx, `SELECT company_id, id FROM fiscal_years
WHERE NOT is_closed AND start_date <= $2 AND end_date >= $2 AND ($1::bigint = 0 OR company_id = $1)
ORDER BY company_id, id`, companyID, asOf)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("ageing warmup: scopes: %w", err))
	}
	defer rows.Close()
	var scopes []WarmupScope
	for rows.Next() {
		var s WarmupScope
		if err := rows.Scan(&s.CompanyID, &s.FiscalYearID); err != nil {
			return nil, db.Classify(err)
		}
		scopes = append(scopes, s)
	}
	return scopes, db.Classify(rows.Err())
}

// AgeingWarmupJob precomputes today's ageing report for every open fiscal year.
type AgeingWarmupJob struct {
	Scopes  ScopeLister
	Tenants TenantResolver
	Reports AgeingBuilder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
	clock   func() time.Time
}

// NewAgeingWarmupJob wires dependencies for the warmup handler.
func NewAgeingWarmupJob(scopes ScopeLister, tenants TenantResolver, builder AgeingBuilder, logger *slog.Logger, metrics *jobmetrics.Metrics) *AgeingWarmupJob {
	return &AgeingWarmupJob{
		Scopes:  scopes,
		Tenants: tenants,
		Reports: builder,
		Logger:  logger,
		Metrics: metrics,
		Timeout: 20 * time.Second,
		clock:   time.Now,
	}
}

// Handle processes TaskAgeingWarmup tasks.
func (j *AgeingWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("ageing warmup: handler not configured")
	}
	var payload WarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run warms every scope and returns how many were cached. Companies without the debtor
// or creditor group are skipped.
func (j *AgeingWarmupJob) Run(ctx context.Context, payload WarmupPayload) (warmed int, err error) {
	tracker := j.Metrics.Track(TaskAgeingWarmup)
	defer func() {
		err = tracker.End(err)
	}()
	if j.Scopes == nil || j.Tenants == nil || j.Reports == nil {
		return 0, errors.New("ageing warmup: dependencies not configured")
	}

	logger := j.logger().With(slog.Int64("company_id", payload.CompanyID))
	now := j.now()
	scopes, err := j.Scopes.OpenScopes(ctx, payload.CompanyID, now)
	if err != nil {
		logger.Error("load warmup scopes", slog.Any("error", err))
		return 0, err
	}
	if len(scopes) == 0 {
		logger.Info("no open fiscal years to warm")
		return 0, nil
	}
	for _, scope := range scopes {
		scopeLogger := logger.With(slog.Int64("scope_company_id", scope.CompanyID), slog.Int64("fiscal_year_id", scope.FiscalYearID))
		if err := j.warmScope(ctx, scope); err != nil {
			if errors.Is(err, shared.ErrConfiguration) {
				scopeLogger.Warn("skip unconfigured scope", slog.Any("error", err))
				continue
			}
			scopeLogger.Error("warm scope", slog.Any("error", err))
			return warmed, err
		}
		j.Metrics.AddWarmed("ageing", scope.CompanyID)
		warmed++
	}
	logger.Info("completed ageing warmup", slog.Int("scopes", warmed), slog.Duration("duration", time.Since(now)))
	return warmed, nil
}

func (j *AgeingWarmupJob) warmScope(ctx context.Context, scope WarmupScope) error {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	tenant, err := j.Tenants.Resolve(ctx, scope.CompanyID, scope.FiscalYearID)
	if err != nil {
		return err
	}
	_, err = j.Reports.AgeingReport(ctx, tenant, nil)
	return err
}

// WithClock overrides the clock used to pick open fiscal years.
func (j *AgeingWarmupJob) WithClock(clock func() time.Time) {
	if clock != nil {
		j.clock = clock
	}
}

func (j *AgeingWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAgeingWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAgeingWarmup))
}

func (j *AgeingWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
