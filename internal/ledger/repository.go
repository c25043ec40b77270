package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/retail-ledger/internal/platform/db"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EntryQuery selects one account's entries within a company.
type EntryQuery struct {
	CompanyID int64
	AccountID int64
	// Before restricts to entries dated strictly before the value.
	Before *time.Time
	// From and To restrict to an inclusive date range.
	From       *time.Time
	To         *time.Time
	ActiveOnly bool
}

// EntryColumns lists ledger_entries columns in ScanEntry order.
const EntryColumns = `id, company_id, fiscal_year_id, account_id, debit, credit, date, local_date,
voucher_type, voucher_id, bill_number, voucher_ref, balance, dr_cr_note_account_type, payment_mode,
is_active, created_at`

// ScanEntry reads one row selected with EntryColumns.
func ScanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.CompanyID, &e.FiscalYearID, &e.AccountID, &e.Debit, &e.Credit, &e.Date, &e.LocalDate,
		&e.VoucherType, &e.VoucherID, &e.BillNumber, &e.VoucherRef, &e.Balance, &e.Side, &e.PaymentMode,
		&e.IsActive, &e.CreatedAt)
	return e, err
}

// QueryEntries runs q against conn ordered by date then id.
func QueryEntries(ctx context.Context, conn Querier, q EntryQuery) ([]Entry, error) {
	clauses := []string{"company_id = $1", "account_id = $2"}
	args := []any{q.CompanyID, q.AccountID}
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if q.Before != nil {
		add("date < $%d", *q.Before)
	}
	if q.From != nil {
		add("date >= $%d", *q.From)
	}
	if q.To != nil {
		add("date <= $%d", *q.To)
	}
	if q.ActiveOnly {
		clauses = append(clauses, "is_active")
	}
	sql := "SELECT " + EntryColumns + " FROM ledger_entries WHERE " + strings.Join(clauses, " AND ") + " ORDER BY date ASC, id ASC"
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := ScanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Repository provides read access to posted entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListEntries returns entries matching q.
func (r *Repository) ListEntries(ctx context.Context, q EntryQuery) ([]Entry, error) {
	entries, err := QueryEntries(ctx, r.pool, q)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("ledger: list entries: %w", err))
	}
	return entries, nil
}
