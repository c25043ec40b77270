package companies

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/retail-ledger/internal/platform/db"
)

// Repository loads companies and fiscal years.
type Repository interface {
	GetCompany(ctx context.Context, id int64) (Company, error)
	GetFiscalYear(ctx context.Context, companyID, id int64) (FiscalYear, error)
	ListFiscalYears(ctx context.Context, companyID int64) ([]FiscalYear, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetCompany(ctx context.Context, id int64) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, calendar_system, created_at FROM companies WHERE id=$1`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.Calendar, &c.CreatedAt)
	if err != nil {
		return Company{}, db.Classify(fmt.Errorf("companies: get company %d: %w", id, err))
	}
	return c, nil
}

func (r *repository) GetFiscalYear(ctx context.Context, companyID, id int64) (FiscalYear, error) {
	var fy FiscalYear
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, name, start_date, end_date, is_closed
FROM fiscal_years WHERE company_id=$1 AND id=$2`, companyID, id).
		Scan(&fy.ID, &fy.CompanyID, &fy.Name, &fy.StartDate, &fy.EndDate, &fy.IsClosed)
	if err != nil {
		return FiscalYear{}, db.Classify(fmt.Errorf("companies: get fiscal year %d: %w", id, err))
	}
	return fy, nil
}

func (r *repository) ListFiscalYears(ctx context.Context, companyID int64) ([]FiscalYear, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, name, start_date, end_date, is_closed
FROM fiscal_years WHERE company_id=$1 ORDER BY start_date DESC`, companyID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("companies: list fiscal years: %w", err))
	}
	defer rows.Close()
	var out []FiscalYear
	for rows.Next() {
		var fy FiscalYear
		if err := rows.Scan(&fy.ID, &fy.CompanyID, &fy.Name, &fy.StartDate, &fy.EndDate, &fy.IsClosed); err != nil {
			return nil, db.Classify(fmt.Errorf("companies: scan fiscal year: %w", err))
		}
		out = append(out, fy)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return out, nil
}
