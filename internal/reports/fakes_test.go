package reports

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

type fakeAccounts struct {
	groups   map[string]int64
	accounts []ledger.Account
}

func (f *fakeAccounts) FindAccount(_ context.Context, companyID, _ int64, id int64) (ledger.Account, error) {
	for _, a := range f.accounts {
		if a.ID == id && a.CompanyID == companyID {
			return a, nil
		}
	}
	return ledger.Account{}, shared.NotFoundf("account %d", id)
}

func (f *fakeAccounts) FindAccountsByGroups(_ context.Context, companyID, _ int64, groups []string) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, a := range f.accounts {
		if a.CompanyID == companyID && slices.Contains(groups, a.Group) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAccounts) FindGroups(_ context.Context, _ int64, names []string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, n := range names {
		if id, ok := f.groups[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

type fakeEntries struct {
	mu      sync.Mutex
	entries []ledger.Entry
	failFor int64
	calls   int
}

func (f *fakeEntries) ListEntries(_ context.Context, q ledger.EntryQuery) ([]ledger.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFor != 0 && q.AccountID == f.failFor {
		return nil, shared.ErrPersistence
	}
	var out []ledger.Entry
	for _, e := range f.entries {
		if e.CompanyID != q.CompanyID || e.AccountID != q.AccountID {
			continue
		}
		if q.ActiveOnly && !e.IsActive {
			continue
		}
		if q.Before != nil && !e.Date.Before(*q.Before) {
			continue
		}
		if q.From != nil && e.Date.Before(*q.From) {
			continue
		}
		if q.To != nil && e.Date.After(*q.To) {
			continue
		}
		out = append(out, e)
	}
	ledger.SortEntries(out)
	return out, nil
}

type fakeItems struct {
	items     map[int64]Item
	movements []Movement
}

func (f *fakeItems) GetItem(_ context.Context, _ int64, id int64) (Item, error) {
	it, ok := f.items[id]
	if !ok {
		return Item{}, shared.NotFoundf("item %d", id)
	}
	return it, nil
}

func (f *fakeItems) ListMovements(_ context.Context, q MovementQuery) ([]Movement, error) {
	var out []Movement
	for _, m := range f.movements {
		if m.ItemID != q.ItemID {
			continue
		}
		if q.Before != nil && !m.Date.Before(*q.Before) {
			continue
		}
		if q.From != nil && m.Date.Before(*q.From) {
			continue
		}
		if q.To != nil && m.Date.After(*q.To) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var nextEntryID int64

func entry(accountID int64, vt ledger.VoucherType, date time.Time, debit, credit string) ledger.Entry {
	nextEntryID++
	return ledger.Entry{
		ID:          nextEntryID,
		CompanyID:   1,
		AccountID:   accountID,
		Debit:       amt(debit),
		Credit:      amt(credit),
		Date:        date,
		VoucherType: vt,
		IsActive:    true,
	}
}

const (
	debtorA   int64 = 1
	creditorB int64 = 2
	dustC     int64 = 3
	cashD     int64 = 4
)

func fixtureAccounts() *fakeAccounts {
	return &fakeAccounts{
		groups: map[string]int64{ledger.GroupSundryDebtors: 1, ledger.GroupSundryCreditors: 2},
		accounts: []ledger.Account{
			{ID: debtorA, CompanyID: 1, Name: "A Traders", Group: ledger.GroupSundryDebtors,
				InitialOpening: ledger.OpeningBalance{Amount: amt("500"), Sign: ledger.SignDebit}},
			{ID: creditorB, CompanyID: 1, Name: "B Suppliers", Group: ledger.GroupSundryCreditors,
				InitialOpening: ledger.OpeningBalance{Amount: amt("300"), Sign: ledger.SignCredit}},
			{ID: dustC, CompanyID: 1, Name: "C Dust", Group: ledger.GroupSundryDebtors},
			{ID: cashD, CompanyID: 1, Name: "Cash", Group: ledger.GroupCashInHand,
				InitialOpening: ledger.OpeningBalance{Amount: amt("1000"), Sign: ledger.SignDebit}},
		},
	}
}

func fixtureEntries() *fakeEntries {
	canceled := entry(debtorA, ledger.VoucherReceipt, day(time.February, 20), "0", "999")
	canceled.IsActive = false
	return &fakeEntries{entries: []ledger.Entry{
		entry(debtorA, ledger.VoucherSalesBill, day(time.January, 10), "200", "0"),
		entry(debtorA, ledger.VoucherReceipt, day(time.January, 20), "0", "300"),
		entry(debtorA, ledger.VoucherReceipt, day(time.February, 15), "0", "250"),
		canceled,
		entry(dustC, ledger.VoucherSalesBill, day(time.February, 1), "0.005", "0"),
		entry(cashD, ledger.VoucherReceipt, day(time.January, 20), "300", "0"),
	}}
}

var testTenant = shared.Tenant{CompanyID: 1, FiscalYearID: 10}
