package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// Statement lists an account's active entries in [from, to] with the running balance carried in
// from earlier entries.
func (s *Service) Statement(ctx context.Context, tenant shared.Tenant, accountID int64, from, to *time.Time, f *Formatter) (Statement, error) {
	if err := tenant.Validate(); err != nil {
		return Statement{}, err
	}
	start, end, err := window(from, to)
	if err != nil {
		return Statement{}, err
	}
	cal, err := tenant.CalendarSystem()
	if err != nil {
		return Statement{}, err
	}
	if f == nil {
		f = NewFormatter(language.English)
	}
	acc, err := s.accounts.FindAccount(ctx, tenant.CompanyID, tenant.FiscalYearID, accountID)
	if err != nil {
		return Statement{}, err
	}
	before, inWindow, err := s.windowEntries(ctx, tenant.CompanyID, acc.ID, start, end)
	if err != nil {
		return Statement{}, err
	}
	running := ledger.ComputeRunningBalance(acc.InitialOpening, before, inWindow)

	fromLabel, err := cal.Format(start)
	if err != nil {
		return Statement{}, shared.Validationf("from date: %v", err)
	}
	toLabel, err := cal.Format(end)
	if err != nil {
		return Statement{}, shared.Validationf("to date: %v", err)
	}
	st := Statement{
		AccountID:      acc.ID,
		AccountName:    acc.Name,
		Group:          acc.Group,
		From:           fromLabel,
		To:             toLabel,
		Opening:        running.Initial,
		Lines:          make([]StatementLine, 0, len(running.Entries)),
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
		Closing:        running.Closing,
		DisplayOpening: f.Balance(running.Initial),
		DisplayClosing: f.Balance(running.Closing),
	}
	for _, e := range running.Entries {
		local := e.LocalDate
		if local == "" {
			if local, err = cal.Format(e.Date); err != nil {
				return Statement{}, fmt.Errorf("reports: entry %d date: %w", e.ID, err)
			}
		}
		st.TotalDebit = st.TotalDebit.Add(e.Debit)
		st.TotalCredit = st.TotalCredit.Add(e.Credit)
		st.Lines = append(st.Lines, StatementLine{
			EntryID:        e.ID,
			Date:           e.Date,
			LocalDate:      local,
			VoucherType:    e.VoucherType,
			BillNumber:     e.BillNumber,
			Debit:          e.Debit,
			Credit:         e.Credit,
			Balance:        e.RunningBalance,
			DisplayDebit:   f.Amount(e.Debit),
			DisplayCredit:  f.Amount(e.Credit),
			DisplayBalance: f.Balance(e.RunningBalance),
		})
	}
	return st, nil
}
