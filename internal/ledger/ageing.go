package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/calendar"
)

// SettledTolerance is the magnitude below which an amount counts as fully settled.
var SettledTolerance = decimal.New(1, -2)

// IsSettled reports whether |amount| is below SettledTolerance.
func IsSettled(amount decimal.Decimal) bool {
	return amount.Abs().LessThan(SettledTolerance)
}

// Bucket names an ageing time range.
type Bucket string

const (
	Bucket0To30   Bucket = "0-30"
	Bucket30To60  Bucket = "30-60"
	Bucket60To90  Bucket = "60-90"
	Bucket90To120 Bucket = "90-120"
	BucketOver120 Bucket = "over-120"
)

// BucketForAge places an age in days into its bucket. Upper bounds are inclusive.
func BucketForAge(days int) Bucket {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket30To60
	case days <= 90:
		return Bucket60To90
	case days <= 120:
		return Bucket90To120
	default:
		return BucketOver120
	}
}

// Buckets holds signed outstanding sums per age range. Receivables are positive.
type Buckets struct {
	Days0To30   decimal.Decimal `json:"0-30"`
	Days30To60  decimal.Decimal `json:"30-60"`
	Days60To90  decimal.Decimal `json:"60-90"`
	Days90To120 decimal.Decimal `json:"90-120"`
	Over120     decimal.Decimal `json:"over-120"`
	Total       decimal.Decimal `json:"total"`
}

// Add accumulates amount into bucket and the total.
func (b *Buckets) Add(bucket Bucket, amount decimal.Decimal) {
	switch bucket {
	case Bucket0To30:
		b.Days0To30 = b.Days0To30.Add(amount)
	case Bucket30To60:
		b.Days30To60 = b.Days30To60.Add(amount)
	case Bucket60To90:
		b.Days60To90 = b.Days60To90.Add(amount)
	case Bucket90To120:
		b.Days90To120 = b.Days90To120.Add(amount)
	default:
		b.Over120 = b.Over120.Add(amount)
	}
	b.Total = b.Days0To30.Add(b.Days30To60).Add(b.Days60To90).Add(b.Days90To120).Add(b.Over120)
}

// Plus returns the bucket-wise sum of b and other.
func (b Buckets) Plus(other Buckets) Buckets {
	return Buckets{
		Days0To30:   b.Days0To30.Add(other.Days0To30),
		Days30To60:  b.Days30To60.Add(other.Days30To60),
		Days60To90:  b.Days60To90.Add(other.Days60To90),
		Days90To120: b.Days90To120.Add(other.Days90To120),
		Over120:     b.Over120.Add(other.Over120),
		Total:       b.Total.Add(other.Total),
	}
}

// Negated flips the sign of every bucket.
func (b Buckets) Negated() Buckets {
	return Buckets{
		Days0To30:   b.Days0To30.Neg(),
		Days30To60:  b.Days30To60.Neg(),
		Days60To90:  b.Days60To90.Neg(),
		Days90To120: b.Days90To120.Neg(),
		Over120:     b.Over120.Neg(),
		Total:       b.Total.Neg(),
	}
}

// IsReceivable reports whether the account nets as a receivable.
func (b Buckets) IsReceivable() bool {
	return !IsSettled(b.Total) && b.Total.IsPositive()
}

// IsPayable reports whether the account nets as a payable.
func (b Buckets) IsPayable() bool {
	return !IsSettled(b.Total) && b.Total.IsNegative()
}

// OutstandingItem is an unsettled slice of a debit or credit.
type OutstandingItem struct {
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	FiscalYearID int64           `json:"fiscal_year_id"`
}

// Ageing is the outcome of ageing one account.
type Ageing struct {
	Buckets          Buckets           `json:"buckets"`
	RemainingOpening decimal.Decimal   `json:"remaining_opening"`
	Receivables      []OutstandingItem `json:"receivables"`
	Payables         []OutstandingItem `json:"payables"`
}

// ComputeAgeing distributes an account's outstanding amount over the ageing buckets as of
// reference. The signed opening balance is settled first by opposing entries; whatever is left
// of it is treated as older than 120 days. The remaining unsettled credits are then matched
// against the oldest unsettled debits before every surviving item is aged.
//
// Entry dates and the reference date are both read through cal.
func ComputeAgeing(opening decimal.Decimal, entries []Entry, reference time.Time, cal calendar.Calendar) (Ageing, error) {
	if cal == nil {
		cal = calendar.MustFor(calendar.Standard)
	}
	ref, err := calendar.Normalize(cal, reference)
	if err != nil {
		return Ageing{}, fmt.Errorf("ledger: reference date: %w", err)
	}
	dated := make([]datedEntry, 0, len(entries))
	for _, e := range entries {
		date, err := entryDate(cal, e)
		if err != nil {
			return Ageing{}, err
		}
		dated = append(dated, datedEntry{Entry: e, date: date})
	}
	sort.SliceStable(dated, func(i, j int) bool {
		if !dated[i].date.Equal(dated[j].date) {
			return dated[i].date.Before(dated[j].date)
		}
		return dated[i].ID < dated[j].ID
	})

	remaining, receivables, payables := settleOpening(opening, dated)
	receivables, payables = crossSettle(receivables, payables)

	var buckets Buckets
	if !remaining.IsZero() {
		buckets.Add(BucketOver120, remaining)
	}
	for _, item := range receivables {
		buckets.Add(BucketForAge(calendar.DaysBetween(item.Date, ref)), item.Amount)
	}
	for _, item := range payables {
		buckets.Add(BucketForAge(calendar.DaysBetween(item.Date, ref)), item.Amount.Neg())
	}
	return Ageing{
		Buckets:          buckets,
		RemainingOpening: remaining,
		Receivables:      receivables,
		Payables:         payables,
	}, nil
}

type datedEntry struct {
	Entry
	date time.Time
}

func entryDate(cal calendar.Calendar, e Entry) (time.Time, error) {
	if e.LocalDate != "" {
		date, err := cal.Parse(e.LocalDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("ledger: entry %d date: %w", e.ID, err)
		}
		return date, nil
	}
	return calendar.Midnight(e.Date), nil
}

// settleOpening walks entries in date order, letting each opposing side reduce the opening
// balance before it becomes an unsettled item of its own.
func settleOpening(opening decimal.Decimal, entries []datedEntry) (decimal.Decimal, []OutstandingItem, []OutstandingItem) {
	remaining := opening
	if IsSettled(remaining) {
		remaining = decimal.Zero
	}
	var receivables, payables []OutstandingItem
	for _, e := range entries {
		item := func(amount decimal.Decimal) OutstandingItem {
			return OutstandingItem{Date: e.date, Amount: amount, FiscalYearID: e.FiscalYearID}
		}
		switch {
		case remaining.IsPositive():
			if e.Credit.IsPositive() {
				settled := decimal.Min(e.Credit, remaining)
				remaining = remaining.Sub(settled)
				if leftover := e.Credit.Sub(settled); !IsSettled(leftover) {
					payables = append(payables, item(leftover))
				}
			}
			if e.Debit.IsPositive() {
				receivables = append(receivables, item(e.Debit))
			}
		case remaining.IsNegative():
			if e.Debit.IsPositive() {
				settled := decimal.Min(e.Debit, remaining.Abs())
				remaining = remaining.Add(settled)
				if leftover := e.Debit.Sub(settled); !IsSettled(leftover) {
					receivables = append(receivables, item(leftover))
				}
			}
			if e.Credit.IsPositive() {
				payables = append(payables, item(e.Credit))
			}
		default:
			if e.Debit.IsPositive() {
				receivables = append(receivables, item(e.Debit))
			}
			if e.Credit.IsPositive() {
				payables = append(payables, item(e.Credit))
			}
		}
		if IsSettled(remaining) {
			remaining = decimal.Zero
		}
	}
	return remaining, receivables, payables
}

// crossSettle lets each payable, oldest first, consume the oldest receivables. It returns the
// surviving receivables and payables.
func crossSettle(receivables, payables []OutstandingItem) ([]OutstandingItem, []OutstandingItem) {
	queue := make([]OutstandingItem, len(receivables))
	copy(queue, receivables)
	ordered := make([]OutstandingItem, len(payables))
	copy(ordered, payables)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	var leftovers []OutstandingItem
	for _, payable := range ordered {
		amount := payable.Amount
		for !IsSettled(amount) && len(queue) > 0 {
			consumed := decimal.Min(amount, queue[0].Amount)
			queue[0].Amount = queue[0].Amount.Sub(consumed)
			amount = amount.Sub(consumed)
			if IsSettled(queue[0].Amount) {
				queue = queue[1:]
			}
		}
		if !IsSettled(amount) {
			payable.Amount = amount
			leftovers = append(leftovers, payable)
		}
	}
	return queue, leftovers
}

// AgeingTotals aggregates per-account buckets across a report run.
type AgeingTotals struct {
	Receivable Buckets `json:"receivable_totals"`
	Payable    Buckets `json:"payable_totals"`
	Net        Buckets `json:"net_totals"`
}

// Include adds one account's buckets. Receivable accounts add as-is, payable accounts add
// with the sign flipped, and every account contributes to the net totals.
func (t *AgeingTotals) Include(b Buckets) {
	switch {
	case b.IsReceivable():
		t.Receivable = t.Receivable.Plus(b)
	case b.IsPayable():
		t.Payable = t.Payable.Plus(b.Negated())
	}
	t.Net = t.Net.Plus(b)
}
