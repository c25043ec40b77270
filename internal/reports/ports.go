package reports

import (
	"context"
	"time"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
)

// AccountReader loads accounts and group configuration.
type AccountReader interface {
	FindAccount(ctx context.Context, companyID, fiscalYearID, id int64) (ledger.Account, error)
	FindAccountsByGroups(ctx context.Context, companyID, fiscalYearID int64, groups []string) ([]ledger.Account, error)
	FindGroups(ctx context.Context, companyID int64, names []string) (map[string]int64, error)
}

// EntryReader loads posted entries.
type EntryReader interface {
	ListEntries(ctx context.Context, q ledger.EntryQuery) ([]ledger.Entry, error)
}

// MovementQuery selects one item's active movements.
type MovementQuery struct {
	CompanyID int64
	ItemID    int64
	Before    *time.Time
	From      *time.Time
	To        *time.Time
}

// ItemReader loads items and their movements.
type ItemReader interface {
	GetItem(ctx context.Context, companyID, id int64) (Item, error)
	ListMovements(ctx context.Context, q MovementQuery) ([]Movement, error)
}

// Cache stores rendered reports under versioned keys.
type Cache interface {
	BuildKey(ctx context.Context, scope string, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}
