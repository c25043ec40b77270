package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNextBalanceSignRules(t *testing.T) {
	start := amt("1000")
	cases := []struct {
		name   string
		vt     VoucherType
		debit  string
		credit string
		want   string
	}{
		{"sales bill subtracts debit", VoucherSalesBill, "100", "0", "900"},
		{"sales bill ignores credit", VoucherSalesBill, "0", "100", "1000"},
		{"sales return adds credit", VoucherSalesReturn, "0", "50", "1050"},
		{"sales return ignores debit", VoucherSalesReturn, "50", "0", "1000"},
		{"purchase bill adds credit", VoucherPurchaseBill, "0", "300", "1300"},
		{"purchase return subtracts debit", VoucherPurchaseReturn, "25", "0", "975"},
		{"receipt applies both sides", VoucherReceipt, "10", "40", "1030"},
		{"payment debit", VoucherPayment, "200", "0", "800"},
		{"journal credit", VoucherJournal, "0", "5.50", "1005.50"},
		{"debit note", VoucherDebitNote, "1", "0", "999"},
		{"credit note", VoucherCreditNote, "0", "1", "1001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextBalance(start, tc.vt, amt(tc.debit), amt(tc.credit))
			requireAmount(t, tc.want, got)
		})
	}
}

func TestNextBalanceIsPure(t *testing.T) {
	prev := amt("10")
	_ = NextBalance(prev, VoucherPayment, amt("3"), decimal.Zero)
	requireAmount(t, "10", prev)
}

func TestComputeRunningBalanceFoldsEntriesBeforeWindow(t *testing.T) {
	opening := OpeningBalance{Amount: amt("500"), Sign: SignDebit}
	before := []Entry{
		creditEntry(2, day(2024, 1, 20), VoucherReceipt, "300"),
		debitEntry(1, day(2024, 1, 10), VoucherSalesBill, "200"),
	}
	window := []Entry{
		creditEntry(4, day(2024, 2, 20), VoucherReceipt, "50"),
		creditEntry(3, day(2024, 2, 15), VoucherReceipt, "250"),
	}

	result := ComputeRunningBalance(opening, before, window)

	// 500 - 200 + 300
	requireAmount(t, "600", result.Initial)
	require.Len(t, result.Entries, 2)
	require.Equal(t, int64(3), result.Entries[0].ID)
	requireAmount(t, "850", result.Entries[0].RunningBalance)
	require.Equal(t, int64(4), result.Entries[1].ID)
	requireAmount(t, "900", result.Entries[1].RunningBalance)
	requireAmount(t, "900", result.Closing)

	// inputs are not reordered
	require.Equal(t, int64(2), before[0].ID)
}

func TestComputeRunningBalanceCreditOpening(t *testing.T) {
	opening := OpeningBalance{Amount: amt("120"), Sign: SignCredit}
	result := ComputeRunningBalance(opening, nil, nil)
	requireAmount(t, "-120", result.Initial)
	require.Empty(t, result.Entries)
	requireAmount(t, "-120", result.Closing)
}

func TestSortEntriesBreaksTiesByID(t *testing.T) {
	entries := []Entry{
		debitEntry(9, day(2024, 3, 1), VoucherPayment, "1"),
		debitEntry(3, day(2024, 3, 1), VoucherPayment, "1"),
		debitEntry(5, day(2024, 2, 1), VoucherPayment, "1"),
	}
	SortEntries(entries)
	require.Equal(t, []int64{5, 3, 9}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})
}

func TestOpeningBalanceSigned(t *testing.T) {
	requireAmount(t, "75", OpeningBalance{Amount: amt("75"), Sign: SignDebit}.Signed())
	requireAmount(t, "-75", OpeningBalance{Amount: amt("75"), Sign: SignCredit}.Signed())
	require.Equal(t, SignCredit, OpeningFromSigned(amt("-3")).Sign)
	require.Equal(t, SignDebit, OpeningFromSigned(decimal.Zero).Sign)
}
