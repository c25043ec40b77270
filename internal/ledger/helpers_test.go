package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func amt(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, amt(want).Equal(got), "want %s got %s", want, got.String())
}

func debitEntry(id int64, date time.Time, vt VoucherType, amount string) Entry {
	return Entry{ID: id, Date: date, VoucherType: vt, Debit: amt(amount), IsActive: true}
}

func creditEntry(id int64, date time.Time, vt VoucherType, amount string) Entry {
	return Entry{ID: id, Date: date, VoucherType: vt, Credit: amt(amount), IsActive: true}
}
