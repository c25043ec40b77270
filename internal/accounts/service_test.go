package accounts

import (
	"context"
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/platform/cache"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

type openingKey struct {
	account    int64
	fiscalYear int64
}

type memoryRepo struct {
	groups   map[string]int64
	accounts map[int64]ledger.Account
	openings map[openingKey]ledger.OpeningBalance
	entries  map[openingKey]int
	nextID   int64
	failOn   string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		groups:   map[string]int64{ledger.GroupSundryDebtors: 1, ledger.GroupCashInHand: 2},
		accounts: make(map[int64]ledger.Account),
		openings: make(map[openingKey]ledger.OpeningBalance),
		entries:  make(map[openingKey]int),
	}
}

func (m *memoryRepo) load(id, fiscalYearID int64) ledger.Account {
	acc := m.accounts[id]
	if ob, ok := m.openings[openingKey{id, fiscalYearID}]; ok {
		acc.Opening = ob
	} else {
		acc.Opening = ledger.OpeningBalance{Amount: decimal.Zero, Sign: ledger.SignDebit}
	}
	return acc
}

func (m *memoryRepo) FindAccount(_ context.Context, companyID, fiscalYearID, id int64) (ledger.Account, error) {
	acc, ok := m.accounts[id]
	if !ok || acc.CompanyID != companyID {
		return ledger.Account{}, shared.NotFoundf("account %d", id)
	}
	return m.load(id, fiscalYearID), nil
}

func (m *memoryRepo) FindAccountsByGroups(_ context.Context, companyID, fiscalYearID int64, groups []string) ([]ledger.Account, error) {
	var out []ledger.Account
	for id, acc := range m.accounts {
		if acc.CompanyID != companyID {
			continue
		}
		if len(groups) > 0 && !contains(groups, acc.Group) {
			continue
		}
		out = append(out, m.load(id, fiscalYearID))
	}
	return out, nil
}

func (m *memoryRepo) FindGroups(_ context.Context, _ int64, names []string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, n := range names {
		if id, ok := m.groups[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	accounts := maps.Clone(m.accounts)
	openings := maps.Clone(m.openings)
	next := m.nextID
	if err := fn(ctx, m); err != nil {
		m.accounts, m.openings, m.nextID = accounts, openings, next
		return err
	}
	return nil
}

func (m *memoryRepo) GroupID(_ context.Context, _ int64, name string) (int64, error) {
	id, ok := m.groups[name]
	if !ok {
		return 0, shared.NotFoundf("account group %q", name)
	}
	return id, nil
}

func (m *memoryRepo) InsertAccount(_ context.Context, companyID, fiscalYearID, _ int64, in CreateInput) (ledger.Account, error) {
	m.nextID++
	acc := ledger.Account{
		ID:                  m.nextID,
		CompanyID:           companyID,
		Name:                in.Name,
		Group:               in.Group,
		InitialOpening:      in.Opening,
		InitialFiscalYearID: fiscalYearID,
		Opening:             in.Opening,
		CreatedAt:           time.Now(),
	}
	m.accounts[acc.ID] = acc
	return acc, nil
}

func (m *memoryRepo) LockAccount(ctx context.Context, companyID, fiscalYearID, id int64) (ledger.Account, error) {
	return m.FindAccount(ctx, companyID, fiscalYearID, id)
}

func (m *memoryRepo) CountActiveEntries(_ context.Context, accountID, fiscalYearID int64) (int, error) {
	return m.entries[openingKey{accountID, fiscalYearID}], nil
}

func (m *memoryRepo) UpsertOpening(_ context.Context, accountID, fiscalYearID int64, ob ledger.OpeningBalance) error {
	if m.failOn == "opening" {
		return errors.New("disk full")
	}
	m.openings[openingKey{accountID, fiscalYearID}] = ob
	return nil
}

func (m *memoryRepo) UpdateInitialOpening(_ context.Context, accountID int64, ob ledger.OpeningBalance) error {
	acc := m.accounts[accountID]
	acc.InitialOpening = ob
	m.accounts[accountID] = acc
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var testTenant = shared.Tenant{CompanyID: 1, FiscalYearID: 10}

func TestCreateAccount(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil, nil)

	acc, err := svc.Create(context.Background(), testTenant, CreateInput{
		Name:    "  Ram Stores ",
		Group:   ledger.GroupSundryDebtors,
		Opening: ledger.OpeningBalance{Amount: decimal.RequireFromString("500.004"), Sign: ledger.SignDebit},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ram Stores", acc.Name)
	assert.Equal(t, int64(10), acc.InitialFiscalYearID)
	assert.Equal(t, "500.00", acc.InitialOpening.Amount.StringFixed(2))

	got, err := svc.Get(context.Background(), testTenant, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.Opening.Signed().Equal(decimal.NewFromInt(500)))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "account.create", audit.logs[0].Action)
}

func TestCreateAccountValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, testTenant, CreateInput{Group: ledger.GroupSundryDebtors})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, testTenant, CreateInput{Name: "X", Group: ledger.GroupSundryDebtors,
		Opening: ledger.OpeningBalance{Amount: decimal.NewFromInt(-1)}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, testTenant, CreateInput{Name: "X", Group: "Unknown"})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Create(ctx, shared.Tenant{CompanyID: 1}, CreateInput{Name: "X", Group: ledger.GroupSundryDebtors})
	require.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestCreateAccountRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	repo.failOn = "opening"
	svc := NewService(repo, nil, nil, nil)
	_, err := svc.Create(context.Background(), testTenant, CreateInput{Name: "Cash", Group: ledger.GroupCashInHand})
	require.Error(t, err)
	assert.Empty(t, repo.accounts)
}

func TestSetOpeningBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()
	acc, err := svc.Create(ctx, testTenant, CreateInput{Name: "Cash", Group: ledger.GroupCashInHand})
	require.NoError(t, err)

	updated, err := svc.SetOpeningBalance(ctx, testTenant, OpeningInput{
		AccountID: acc.ID,
		Opening:   ledger.OpeningBalance{Amount: decimal.NewFromInt(250), Sign: ledger.SignCredit},
	})
	require.NoError(t, err)
	assert.True(t, updated.Opening.Signed().Equal(decimal.NewFromInt(-250)))
	assert.True(t, repo.accounts[acc.ID].InitialOpening.Signed().Equal(decimal.NewFromInt(-250)))

	nextYear := shared.Tenant{CompanyID: 1, FiscalYearID: 11}
	_, err = svc.SetOpeningBalance(ctx, nextYear, OpeningInput{
		AccountID: acc.ID,
		Opening:   ledger.OpeningBalance{Amount: decimal.NewFromInt(90), Sign: ledger.SignDebit},
	})
	require.NoError(t, err)
	assert.True(t, repo.accounts[acc.ID].InitialOpening.Signed().Equal(decimal.NewFromInt(-250)), "initial opening stays pinned")
}

func TestSetOpeningBalanceLockedByEntries(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()
	acc, err := svc.Create(ctx, testTenant, CreateInput{Name: "Ram", Group: ledger.GroupSundryDebtors})
	require.NoError(t, err)
	repo.entries[openingKey{acc.ID, testTenant.FiscalYearID}] = 2

	_, err = svc.SetOpeningBalance(ctx, testTenant, OpeningInput{
		AccountID: acc.ID,
		Opening:   ledger.OpeningBalance{Amount: decimal.NewFromInt(1), Sign: ledger.SignDebit},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.SetOpeningBalance(ctx, testTenant, OpeningInput{AccountID: 999, Opening: ledger.OpeningBalance{Sign: ledger.SignDebit}})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

type countingCache struct {
	bumps map[string]int
}

func (c *countingCache) Bump(_ context.Context, scope string) error {
	if c.bumps == nil {
		c.bumps = make(map[string]int)
	}
	c.bumps[scope]++
	return nil
}

func TestWritesInvalidateReportCache(t *testing.T) {
	repo := newMemoryRepo()
	reports := &countingCache{}
	svc := NewService(repo, nil, reports, nil)
	ctx := context.Background()
	scope := shared.ReportCacheScope(testTenant.CompanyID)

	acc, err := svc.Create(ctx, testTenant, CreateInput{Name: "Ram", Group: ledger.GroupSundryDebtors})
	require.NoError(t, err)
	assert.Equal(t, 1, reports.bumps[scope])

	_, err = svc.SetOpeningBalance(ctx, testTenant, OpeningInput{AccountID: acc.ID,
		Opening: ledger.OpeningBalance{Amount: decimal.NewFromInt(700), Sign: ledger.SignDebit}})
	require.NoError(t, err)
	assert.Equal(t, 2, reports.bumps[scope])

	repo.failOn = "opening"
	_, err = svc.Create(ctx, testTenant, CreateInput{Name: "Sita", Group: ledger.GroupSundryDebtors})
	require.Error(t, err)
	assert.Equal(t, 2, reports.bumps[scope], "failed writes leave the cache alone")
}

func TestCachedDebtorListSeesNewAccount(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	versioned := cache.NewVersioned(client, time.Hour)

	svc := NewService(newMemoryRepo(), nil, versioned, nil)
	ctx := context.Background()
	debtors := func() []ledger.Account {
		key, err := versioned.BuildKey(ctx, shared.ReportCacheScope(testTenant.CompanyID), "debtors")
		require.NoError(t, err)
		var out []ledger.Account
		require.NoError(t, versioned.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return svc.List(ctx, testTenant, ListFilter{Groups: []string{ledger.GroupSundryDebtors}})
		}))
		return out
	}

	_, err := svc.Create(ctx, testTenant, CreateInput{Name: "Ram", Group: ledger.GroupSundryDebtors})
	require.NoError(t, err)
	require.Len(t, debtors(), 1)

	_, err = svc.Create(ctx, testTenant, CreateInput{Name: "Sita", Group: ledger.GroupSundryDebtors,
		Opening: ledger.OpeningBalance{Amount: decimal.NewFromInt(700), Sign: ledger.SignDebit}})
	require.NoError(t, err)
	assert.Len(t, debtors(), 2)
}
