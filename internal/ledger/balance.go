package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// signRule says how each side of an entry moves the running balance.
type signRule struct {
	debit  int
	credit int
}

var signRules = map[VoucherType]signRule{
	VoucherSalesBill:      {debit: -1},
	VoucherSalesReturn:    {credit: 1},
	VoucherPurchaseBill:   {credit: 1},
	VoucherPurchaseReturn: {debit: -1},
	VoucherPayment:        {debit: -1, credit: 1},
	VoucherReceipt:        {debit: -1, credit: 1},
	VoucherJournal:        {debit: -1, credit: 1},
	VoucherDebitNote:      {debit: -1, credit: 1},
	VoucherCreditNote:     {debit: -1, credit: 1},
}

var generalRule = signRule{debit: -1, credit: 1}

// NextBalance applies one entry to a running balance.
func NextBalance(previous decimal.Decimal, voucherType VoucherType, debit, credit decimal.Decimal) decimal.Decimal {
	rule, ok := signRules[voucherType]
	if !ok {
		rule = generalRule
	}
	next := previous
	if rule.debit != 0 && !debit.IsZero() {
		next = next.Add(debit.Mul(decimal.NewFromInt(int64(rule.debit))))
	}
	if rule.credit != 0 && !credit.IsZero() {
		next = next.Add(credit.Mul(decimal.NewFromInt(int64(rule.credit))))
	}
	return next
}

// SortEntries orders entries by date then id, in place.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ID < entries[j].ID
	})
}

func sortedCopy(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	SortEntries(out)
	return out
}

// BalancedEntry is an entry with the running balance right after it.
type BalancedEntry struct {
	Entry
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// RunningBalance is the result of walking an account's entries through a window.
type RunningBalance struct {
	Initial decimal.Decimal `json:"initial_balance"`
	Entries []BalancedEntry `json:"entries"`
	Closing decimal.Decimal `json:"closing_balance"`
}

// ComputeRunningBalance folds the entries dated before the window into the initial opening
// balance and then snapshots the balance after every in-window entry.
func ComputeRunningBalance(opening OpeningBalance, before, inWindow []Entry) RunningBalance {
	balance := opening.Signed()
	for _, e := range sortedCopy(before) {
		balance = NextBalance(balance, e.VoucherType, e.Debit, e.Credit)
	}
	result := RunningBalance{Initial: balance}
	window := sortedCopy(inWindow)
	result.Entries = make([]BalancedEntry, 0, len(window))
	for _, e := range window {
		balance = NextBalance(balance, e.VoucherType, e.Debit, e.Credit)
		result.Entries = append(result.Entries, BalancedEntry{Entry: e, RunningBalance: balance})
	}
	result.Closing = balance
	return result
}
