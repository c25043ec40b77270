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
	"github.com/shopspring/decimal"

	jobmetrics "github.com/odyssey-erp/retail-ledger/internal/jobs"
	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/platform/db"
)

// Violation kinds reported by the integrity scan.
const (
	ViolationEntryCount      = "entry_count"
	ViolationInactiveEntries = "inactive_entries"
	ViolationUnbalanced      = "unbalanced"
	ViolationAmountMismatch  = "amount_mismatch"
)

// VoucherTotals aggregates the active entries posted for one voucher.
type VoucherTotals struct {
	VoucherID    int64
	CompanyID    int64
	FiscalYearID int64
	VoucherType  ledger.VoucherType
	BillNumber   int64
	IsActive     bool
	Amount       decimal.Decimal
	ActiveCount  int
	Debit        decimal.Decimal
	Credit       decimal.Decimal
}

// Violation is a voucher whose entries break the two-leg posting rule.
type Violation struct {
	VoucherTotals
	Kinds []string `json:"kinds"`
}

// Inspect lists the rules t breaks. An active voucher carries exactly one debit and one
// credit leg of its amount; a canceled one carries no active legs.
func Inspect(t VoucherTotals) []string {
	var kinds []string
	if !t.IsActive {
		if t.ActiveCount != 0 {
			kinds = append(kinds, ViolationInactiveEntries)
		}
		return kinds
	}
	if t.ActiveCount != 2 {
		kinds = append(kinds, ViolationEntryCount)
	}
	if !ledger.IsSettled(t.Debit.Sub(t.Credit)) {
		kinds = append(kinds, ViolationUnbalanced)
	}
	if t.ActiveCount > 0 && !ledger.IsSettled(t.Debit.Sub(t.Amount)) {
		kinds = append(kinds, ViolationAmountMismatch)
	}
	return kinds
}

// IntegrityStore loads per-voucher entry totals.
type IntegrityStore interface {
	VoucherTotals(ctx context.Context, scope IntegrityPayload) ([]VoucherTotals, error)
}

// PostgresIntegrityStore reads totals from the vouchers and ledger_entries tables.
type PostgresIntegrityStore struct {
	pool *pgxpool.Pool
}

// NewPostgresIntegrityStore constructs the store.
func NewPostgresIntegrityStore(pool *pgxpool.Pool) *PostgresIntegrityStore {
	return &PostgresIntegrityStore{pool: pool}
}

// VoucherTotals returns totals only for vouchers that are likely to violate a rule.
func (s *PostgresIntegrityStore) VoucherTotals(ctx context.Context, scope IntegrityPayload) ([]VoucherTotals, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("ledger integrity: pool not configured")
	}
	rows, err := s.pool.Query(ctx, `SELECT v.id, v.company_id, v.fiscal_year_id, v.voucher_type, v.bill_number, v.is_active, v.amount,
	COUNT(e.id) FILTER (WHERE e.is_active),
	COALESCE(SUM(e.debit) FILTER (WHERE e.is_active), 0),
	COALESCE(SUM(e.credit) FILTER (WHERE e.is_active), 0)
FROM vouchers v
LEFT JOIN ledger_entries e ON e.voucher_id = v.id
WHERE ($1::bigint = 0 OR v.company_id = $1) AND ($2::bigint = 0 OR v.fiscal_year_id = $2)
GROUP BY v.id
HAVING (v.is_active AND (COUNT(e.id) FILTER (WHERE e.is_active) <> 2
		OR ABS(COALESCE(SUM(e.debit) FILTER (WHERE e.is_active), 0) - COALESCE(SUM(e.credit) FILTER (WHERE e.is_active), 0)) >= 0.01
		OR ABS(COALESCE(SUM(e.debit) FILTER (WHERE e.is_active), 0) - v.amount) >= 0.01))
	OR (NOT v.is_active AND COUNT(e.id) FILTER (WHERE e.is_active) <> 0)
ORDER BY v.company_id, v.fiscal_year_id, v.id`, scope.CompanyID, scope.FiscalYearID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("ledger integrity: query: %w", err))
	}
	defer rows.Close()

	var out []VoucherTotals
	for rows.Next() {
		var t VoucherTotals
		if err := rows.Scan(&t.VoucherID, &t.CompanyID, &t.FiscalYearID, &t.VoucherType, &t.BillNumber, &t.IsActive,
			&t.Amount, &t.ActiveCount, &t.Debit, &t.Credit); err != nil {
			return nil, db.Classify(fmt.Errorf("ledger integrity: scan: %w", err))
		}
		out = append(out, t)
	}
	return out, db.Classify(rows.Err())
}

// IntegrityJob reports vouchers whose entries do not form a balanced pair.
type IntegrityJob struct {
	Store   IntegrityStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityJob wires the job dependencies.
func NewIntegrityJob(store IntegrityStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLedgerIntegrity tasks.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run scans the scope and returns every violation found. Violations are reported, they
// do not fail the run.
func (j *IntegrityJob) Run(ctx context.Context, scope IntegrityPayload) (violations []Violation, err error) {
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() {
		err = tracker.End(err)
	}()
	if j.Store == nil {
		return nil, errors.New("ledger integrity: store not configured")
	}

	logger := j.logger().With(slog.Int64("company_id", scope.CompanyID), slog.Int64("fiscal_year_id", scope.FiscalYearID))
	start := time.Now()
	totals, err := j.Store.VoucherTotals(ctx, scope)
	if err != nil {
		logger.Error("load voucher totals", slog.Any("error", err))
		return nil, err
	}
	for _, t := range totals {
		kinds := Inspect(t)
		if len(kinds) == 0 {
			continue
		}
		violations = append(violations, Violation{VoucherTotals: t, Kinds: kinds})
		for _, kind := range kinds {
			j.Metrics.AddViolations(kind, t.CompanyID, 1)
		}
		logger.Warn("voucher entries out of balance",
			slog.Int64("voucher_id", t.VoucherID),
			slog.String("voucher_type", string(t.VoucherType)),
			slog.Int64("bill_number", t.BillNumber),
			slog.Any("kinds", kinds))
	}
	logger.Info("ledger integrity scan completed",
		slog.Int("checked", len(totals)),
		slog.Int("violations", len(violations)),
		slog.Duration("duration", time.Since(start)))
	return violations, nil
}

func (j *IntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}
