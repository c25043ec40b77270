package vouchers

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

type seqKey struct {
	company    int64
	fiscalYear int64
	vt         ledger.VoucherType
}

type idemKey struct {
	company int64
	vt      ledger.VoucherType
	key     string
}

type memoryState struct {
	vouchers  map[int64]Voucher
	entries   map[int64]ledger.Entry
	sequences map[seqKey]BillNumber
	idem      map[idemKey]int64
	nextVID   int64
	nextEID   int64
}

func (s memoryState) clone() memoryState {
	return memoryState{
		vouchers:  maps.Clone(s.vouchers),
		entries:   maps.Clone(s.entries),
		sequences: maps.Clone(s.sequences),
		idem:      maps.Clone(s.idem),
		nextVID:   s.nextVID,
		nextEID:   s.nextEID,
	}
}

// memoryStore is an in-memory Repository whose WithTx restores state when fn fails.
type memoryStore struct {
	state    memoryState
	accounts map[int64]ledger.Account
	// failures maps an operation name to errors returned by successive calls.
	failures map[string][]error
	txCount  int
	locked   [][]int64
	// hiddenKeys makes that many idempotency lookups miss, as if another writer had not committed yet.
	hiddenKeys int
}

func newMemoryStore(accs ...ledger.Account) *memoryStore {
	m := &memoryStore{
		state: memoryState{
			vouchers:  make(map[int64]Voucher),
			entries:   make(map[int64]ledger.Entry),
			sequences: make(map[seqKey]BillNumber),
			idem:      make(map[idemKey]int64),
		},
		accounts: make(map[int64]ledger.Account),
		failures: make(map[string][]error),
	}
	for _, a := range accs {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *memoryStore) failNext(op string, err error) {
	m.failures[op] = append(m.failures[op], err)
}

func (m *memoryStore) fail(op string) error {
	queue := m.failures[op]
	if len(queue) == 0 {
		return nil
	}
	m.failures[op] = queue[1:]
	return queue[0]
}

func (m *memoryStore) voucherEntries(voucherID int64) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range m.state.entries {
		if e.VoucherID == voucherID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) Get(_ context.Context, companyID int64, vt ledger.VoucherType, id int64) (Voucher, []ledger.Entry, error) {
	v, ok := m.state.vouchers[id]
	if !ok || v.CompanyID != companyID || v.Type != vt {
		return Voucher{}, nil, shared.NotFoundf("voucher %d", id)
	}
	return v, m.voucherEntries(id), nil
}

func (m *memoryStore) List(_ context.Context, companyID, fiscalYearID int64, filter ListFilter) ([]Voucher, error) {
	var out []Voucher
	for _, v := range m.state.vouchers {
		if v.CompanyID != companyID || v.FiscalYearID != fiscalYearID || v.Type != filter.Type {
			continue
		}
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bill.Number > out[j].Bill.Number })
	return out, nil
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.txCount++
	snapshot := m.state.clone()
	if err := fn(ctx, m); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memoryStore) LockAccounts(_ context.Context, companyID, fiscalYearID int64, ids []int64) (map[int64]ledger.Account, error) {
	if err := m.fail("lock"); err != nil {
		return nil, err
	}
	m.locked = append(m.locked, slices.Clone(ids))
	out := make(map[int64]ledger.Account, len(ids))
	for _, id := range ids {
		acc, ok := m.accounts[id]
		if !ok || acc.CompanyID != companyID {
			return nil, shared.NotFoundf("account %d", id)
		}
		out[id] = acc
	}
	return out, nil
}

func (m *memoryStore) NextBillNumber(_ context.Context, companyID, fiscalYearID int64, vt ledger.VoucherType, prefix string) (BillNumber, error) {
	if err := m.fail("sequence"); err != nil {
		return BillNumber{}, err
	}
	key := seqKey{companyID, fiscalYearID, vt}
	bill, ok := m.state.sequences[key]
	if !ok {
		bill = BillNumber{Prefix: prefix}
	}
	bill.Number++
	m.state.sequences[key] = bill
	return bill, nil
}

func (m *memoryStore) LastBalance(_ context.Context, companyID, fiscalYearID, accountID int64) (decimal.Decimal, bool, error) {
	var (
		last  ledger.Entry
		found bool
	)
	for _, e := range m.state.entries {
		if e.CompanyID != companyID || e.FiscalYearID != fiscalYearID || e.AccountID != accountID || !e.IsActive {
			continue
		}
		if !found || e.Date.After(last.Date) || (e.Date.Equal(last.Date) && e.ID > last.ID) {
			last, found = e, true
		}
	}
	return last.Balance, found, nil
}

func (m *memoryStore) InsertVoucher(_ context.Context, v Voucher) (Voucher, error) {
	for _, existing := range m.state.vouchers {
		if existing.CompanyID == v.CompanyID && existing.FiscalYearID == v.FiscalYearID && existing.Type == v.Type && existing.Bill.Number == v.Bill.Number {
			return Voucher{}, shared.ErrConcurrency
		}
	}
	m.state.nextVID++
	v.ID = m.state.nextVID
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	m.state.vouchers[v.ID] = v
	return v, nil
}

func (m *memoryStore) InsertEntry(_ context.Context, e ledger.Entry) (ledger.Entry, error) {
	if err := m.fail("entry:" + string(e.Side)); err != nil {
		return ledger.Entry{}, err
	}
	m.state.nextEID++
	e.ID = m.state.nextEID
	e.CreatedAt = time.Now()
	m.state.entries[e.ID] = e
	return e, nil
}

func (m *memoryStore) GetVoucherForUpdate(_ context.Context, companyID int64, vt ledger.VoucherType, id int64) (Voucher, error) {
	v, ok := m.state.vouchers[id]
	if !ok || v.CompanyID != companyID || v.Type != vt {
		return Voucher{}, shared.NotFoundf("voucher %d", id)
	}
	return v, nil
}

func (m *memoryStore) FindByBillForUpdate(_ context.Context, companyID, fiscalYearID int64, vt ledger.VoucherType, billNumber int64) (Voucher, error) {
	for _, v := range m.state.vouchers {
		if v.CompanyID == companyID && v.FiscalYearID == fiscalYearID && v.Type == vt && v.Bill.Number == billNumber {
			return v, nil
		}
	}
	return Voucher{}, shared.NotFoundf("bill %d", billNumber)
}

func (m *memoryStore) DeleteEntries(_ context.Context, voucherID int64) (int64, error) {
	var n int64
	for id, e := range m.state.entries {
		if e.VoucherID == voucherID {
			delete(m.state.entries, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) UpdateVoucher(_ context.Context, v Voucher) (Voucher, error) {
	if _, ok := m.state.vouchers[v.ID]; !ok {
		return Voucher{}, shared.NotFoundf("voucher %d", v.ID)
	}
	v.UpdatedAt = time.Now()
	m.state.vouchers[v.ID] = v
	return v, nil
}

func (m *memoryStore) SetActive(_ context.Context, v Voucher, active bool) (Voucher, error) {
	if err := m.fail("toggle"); err != nil {
		return Voucher{}, err
	}
	v.IsActive = active
	v.Status = StatusCanceled
	if active {
		v.Status = StatusActive
	}
	m.state.vouchers[v.ID] = v
	for id, e := range m.state.entries {
		if e.CompanyID == v.CompanyID && e.FiscalYearID == v.FiscalYearID && e.VoucherType == v.Type && e.BillNumber == v.Bill.Number {
			e.IsActive = active
			m.state.entries[id] = e
		}
	}
	return v, nil
}

func (m *memoryStore) ListEntries(_ context.Context, voucherID int64) ([]ledger.Entry, error) {
	return m.voucherEntries(voucherID), nil
}

func (m *memoryStore) FindIdempotent(_ context.Context, companyID int64, vt ledger.VoucherType, key string) (int64, bool, error) {
	if m.hiddenKeys > 0 {
		m.hiddenKeys--
		return 0, false, nil
	}
	id, ok := m.state.idem[idemKey{companyID, vt, key}]
	return id, ok, nil
}

func (m *memoryStore) SaveIdempotent(_ context.Context, companyID int64, vt ledger.VoucherType, key string, voucherID int64) error {
	k := idemKey{companyID, vt, key}
	if _, ok := m.state.idem[k]; ok {
		return fmt.Errorf("idempotency key %q: %w", key, shared.ErrConcurrency)
	}
	m.state.idem[k] = voucherID
	return nil
}

var errDisk = errors.New("disk failure")
