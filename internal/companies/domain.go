// Package companies resolves the company and fiscal year a ledger request runs against.
package companies

import (
	"time"

	"github.com/odyssey-erp/retail-ledger/internal/calendar"
)

// Company is a tenant of the ledger.
type Company struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Calendar  calendar.System `json:"calendar_system"`
	CreatedAt time.Time       `json:"created_at"`
}

// FiscalYear bounds the entries a company posts and reports on.
type FiscalYear struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsClosed  bool      `json:"is_closed"`
}

// Contains reports whether date falls inside the fiscal year.
func (fy FiscalYear) Contains(date time.Time) bool {
	d := calendar.Midnight(date)
	return !d.Before(calendar.Midnight(fy.StartDate)) && !d.After(calendar.Midnight(fy.EndDate))
}
