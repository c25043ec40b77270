package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/retail-ledger/internal/calendar"
)

func standard() calendar.Calendar {
	return calendar.MustFor(calendar.Standard)
}

func TestComputeAgeingScenario(t *testing.T) {
	entries := []Entry{
		debitEntry(1, day(2024, 1, 10), VoucherSalesBill, "200"),
		creditEntry(2, day(2024, 1, 20), VoucherReceipt, "300"),
		creditEntry(3, day(2024, 2, 15), VoucherReceipt, "250"),
	}

	result, err := ComputeAgeing(amt("500"), entries, day(2024, 3, 1), standard())
	require.NoError(t, err)

	b := result.Buckets
	requireAmount(t, "0", b.Days0To30)
	requireAmount(t, "150", b.Days30To60)
	requireAmount(t, "0", b.Days60To90)
	requireAmount(t, "0", b.Days90To120)
	requireAmount(t, "0", b.Over120)
	requireAmount(t, "150", b.Total)
	require.True(t, b.IsReceivable())
	requireAmount(t, "0", result.RemainingOpening)
	require.Len(t, result.Receivables, 1)
	require.Equal(t, day(2024, 1, 10), result.Receivables[0].Date)
	requireAmount(t, "150", result.Receivables[0].Amount)
	require.Empty(t, result.Payables)
}

func TestComputeAgeingIsIdempotent(t *testing.T) {
	entries := []Entry{
		debitEntry(1, day(2024, 1, 10), VoucherSalesBill, "200"),
		creditEntry(2, day(2024, 1, 20), VoucherReceipt, "80"),
		debitEntry(3, day(2023, 10, 1), VoucherSalesBill, "45.25"),
	}
	first, err := ComputeAgeing(amt("-30"), entries, day(2024, 3, 1), standard())
	require.NoError(t, err)
	second, err := ComputeAgeing(amt("-30"), entries, day(2024, 3, 1), standard())
	require.NoError(t, err)
	require.Equal(t, first.Buckets.Total.String(), second.Buckets.Total.String())
	require.Equal(t, first.Buckets.Days0To30.String(), second.Buckets.Days0To30.String())
	require.Equal(t, first.Buckets.Over120.String(), second.Buckets.Over120.String())
	require.Equal(t, int64(1), entries[0].ID, "inputs must not be reordered")
}

func TestCrossSettleFIFO(t *testing.T) {
	d1, d2, d3 := day(2024, 1, 1), day(2024, 1, 5), day(2024, 1, 9)
	receivables := []OutstandingItem{{Date: d1, Amount: amt("5")}, {Date: d2, Amount: amt("3")}}
	payables := []OutstandingItem{{Date: d3, Amount: amt("6")}}

	left, unpaid := crossSettle(receivables, payables)

	require.Len(t, left, 1)
	require.Equal(t, d2, left[0].Date)
	requireAmount(t, "2", left[0].Amount)
	require.Empty(t, unpaid)
	requireAmount(t, "5", receivables[0].Amount)
}

func TestCrossSettleLeavesUnmatchedPayable(t *testing.T) {
	receivables := []OutstandingItem{{Date: day(2024, 1, 1), Amount: amt("4")}}
	payables := []OutstandingItem{
		{Date: day(2024, 2, 1), Amount: amt("3")},
		{Date: day(2024, 1, 15), Amount: amt("2.5")},
	}
	left, unpaid := crossSettle(receivables, payables)
	require.Empty(t, left)
	require.Len(t, unpaid, 1)
	require.Equal(t, day(2024, 2, 1), unpaid[0].Date)
	requireAmount(t, "1.5", unpaid[0].Amount)
}

func TestSettleOpeningBoundary(t *testing.T) {
	entries := []datedEntry{
		{Entry: creditEntry(1, day(2024, 1, 5), VoucherReceipt, "40"), date: day(2024, 1, 5)},
	}
	remaining, receivables, payables := settleOpening(amt("100"), entries)
	requireAmount(t, "60", remaining)
	require.Empty(t, receivables)
	require.Empty(t, payables)

	entries = append(entries, datedEntry{Entry: creditEntry(2, day(2024, 1, 9), VoucherReceipt, "80"), date: day(2024, 1, 9)})
	remaining, receivables, payables = settleOpening(amt("100"), entries)
	requireAmount(t, "0", remaining)
	require.Empty(t, receivables)
	require.Len(t, payables, 1)
	require.Equal(t, day(2024, 1, 9), payables[0].Date)
	requireAmount(t, "20", payables[0].Amount)
}

func TestSettleOpeningPayableSide(t *testing.T) {
	entries := []datedEntry{
		{Entry: creditEntry(1, day(2024, 1, 2), VoucherPurchaseBill, "70"), date: day(2024, 1, 2)},
		{Entry: debitEntry(2, day(2024, 1, 3), VoucherPayment, "150"), date: day(2024, 1, 3)},
	}
	remaining, receivables, payables := settleOpening(amt("-100"), entries)
	requireAmount(t, "0", remaining)
	require.Len(t, payables, 1)
	requireAmount(t, "70", payables[0].Amount)
	require.Len(t, receivables, 1)
	requireAmount(t, "50", receivables[0].Amount)
}

func TestSettleOpeningZeroSplitsBothSides(t *testing.T) {
	e := Entry{ID: 1, Date: day(2024, 1, 2), Debit: amt("10"), Credit: amt("4"), VoucherType: VoucherJournal}
	remaining, receivables, payables := settleOpening(amt("0.004"), []datedEntry{{Entry: e, date: e.Date}})
	requireAmount(t, "0", remaining)
	require.Len(t, receivables, 1)
	require.Len(t, payables, 1)
}

func TestBucketBoundaries(t *testing.T) {
	require.Equal(t, Bucket0To30, BucketForAge(0))
	require.Equal(t, Bucket0To30, BucketForAge(30))
	require.Equal(t, Bucket30To60, BucketForAge(31))
	require.Equal(t, Bucket30To60, BucketForAge(60))
	require.Equal(t, Bucket60To90, BucketForAge(61))
	require.Equal(t, Bucket90To120, BucketForAge(120))
	require.Equal(t, BucketOver120, BucketForAge(121))
	require.Equal(t, Bucket0To30, BucketForAge(-3))

	ref := day(2024, 3, 31)
	at30, err := ComputeAgeing(decimal.Zero, []Entry{debitEntry(1, ref.AddDate(0, 0, -30), VoucherSalesBill, "10")}, ref, standard())
	require.NoError(t, err)
	requireAmount(t, "10", at30.Buckets.Days0To30)

	at31, err := ComputeAgeing(decimal.Zero, []Entry{debitEntry(1, ref.AddDate(0, 0, -31), VoucherSalesBill, "10")}, ref, standard())
	require.NoError(t, err)
	requireAmount(t, "10", at31.Buckets.Days30To60)
}

func TestComputeAgeingLeftoverOpeningIsOld(t *testing.T) {
	entries := []Entry{creditEntry(1, day(2024, 2, 20), VoucherReceipt, "30")}
	result, err := ComputeAgeing(amt("100"), entries, day(2024, 3, 1), standard())
	require.NoError(t, err)
	requireAmount(t, "70", result.Buckets.Over120)
	requireAmount(t, "70", result.Buckets.Total)
}

func TestComputeAgeingPayableIsNegative(t *testing.T) {
	entries := []Entry{creditEntry(1, day(2024, 2, 20), VoucherPurchaseBill, "500")}
	result, err := ComputeAgeing(decimal.Zero, entries, day(2024, 3, 1), standard())
	require.NoError(t, err)
	requireAmount(t, "-500", result.Buckets.Days0To30)
	require.True(t, result.Buckets.IsPayable())
}

func TestComputeAgeingNepaliCalendar(t *testing.T) {
	cal := calendar.MustFor(calendar.Nepali)
	entries := []Entry{{
		ID:          1,
		Date:        day(2023, 4, 14),
		LocalDate:   "2080-01-01",
		Debit:       amt("90"),
		VoucherType: VoucherSalesBill,
	}}
	// 2080-03-01 BS is 63 days after 2080-01-01 (31 + 32).
	ref, err := cal.Parse("2080-03-01")
	require.NoError(t, err)
	result, err := ComputeAgeing(decimal.Zero, entries, ref.Add(9*time.Hour), cal)
	require.NoError(t, err)
	requireAmount(t, "90", result.Buckets.Days60To90)

	entries[0].LocalDate = "bogus"
	_, err = ComputeAgeing(decimal.Zero, entries, ref, cal)
	require.Error(t, err)
}

func TestAgeingTotals(t *testing.T) {
	var totals AgeingTotals
	receivable := Buckets{}
	receivable.Add(Bucket0To30, amt("100"))
	payable := Buckets{}
	payable.Add(Bucket30To60, amt("-40"))
	noise := Buckets{}
	noise.Add(Bucket0To30, amt("0.005"))

	totals.Include(receivable)
	totals.Include(payable)
	totals.Include(noise)

	requireAmount(t, "100", totals.Receivable.Total)
	requireAmount(t, "40", totals.Payable.Days30To60)
	requireAmount(t, "40", totals.Payable.Total)
	requireAmount(t, "60.005", totals.Net.Total)
	require.False(t, noise.IsReceivable())
	require.False(t, noise.IsPayable())
}
