// Package reports assembles ageing, statement and item ledger reports from posted entries.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
)

// AccountAgeingRow is one account in the ageing report.
type AccountAgeingRow struct {
	AccountID      int64           `json:"account_id"`
	AccountName    string          `json:"account_name"`
	Group          string          `json:"group"`
	Buckets        ledger.Buckets  `json:"buckets"`
	IsReceivable   bool            `json:"is_receivable"`
	NetBalance     decimal.Decimal `json:"net_balance"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// AgeingReport is the debtor and creditor ageing of one company.
type AgeingReport struct {
	CompanyID     int64              `json:"company_id"`
	FiscalYearID  int64              `json:"fiscal_year_id"`
	ReferenceDate time.Time          `json:"reference_date"`
	LocalDate     string             `json:"local_reference_date"`
	PerAccount    []AccountAgeingRow `json:"per_account"`
	ledger.AgeingTotals
}

// AccountAgeing is the ageing of one account as of the window end with the window activity.
type AccountAgeing struct {
	AccountID        int64                  `json:"account_id"`
	AccountName      string                 `json:"account_name"`
	From             time.Time              `json:"from"`
	To               time.Time              `json:"to"`
	TotalOutstanding decimal.Decimal        `json:"total_outstanding"`
	AgingBreakdown   ledger.Buckets         `json:"aging_breakdown"`
	OpeningBalance   decimal.Decimal        `json:"opening_balance"`
	Transactions     []ledger.BalancedEntry `json:"transactions"`
}

// StatementLine is one entry on an account statement.
type StatementLine struct {
	EntryID        int64              `json:"entry_id"`
	Date           time.Time          `json:"date"`
	LocalDate      string             `json:"local_date"`
	VoucherType    ledger.VoucherType `json:"voucher_type"`
	BillNumber     int64              `json:"bill_number"`
	Debit          decimal.Decimal    `json:"debit"`
	Credit         decimal.Decimal    `json:"credit"`
	Balance        decimal.Decimal    `json:"balance"`
	DisplayDebit   string             `json:"display_debit"`
	DisplayCredit  string             `json:"display_credit"`
	DisplayBalance string             `json:"display_balance"`
}

// Statement is an account statement over a window.
type Statement struct {
	AccountID      int64           `json:"account_id"`
	AccountName    string          `json:"account_name"`
	Group          string          `json:"group"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Opening        decimal.Decimal `json:"opening_balance"`
	Lines          []StatementLine `json:"lines"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Closing        decimal.Decimal `json:"closing_balance"`
	DisplayOpening string          `json:"display_opening"`
	DisplayClosing string          `json:"display_closing"`
}

// Item is a stocked product.
type Item struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"company_id"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit"`
	OpeningQty  decimal.Decimal `json:"opening_qty"`
	OpeningRate decimal.Decimal `json:"opening_rate"`
}

// Movement is one stock movement caused by a voucher.
type Movement struct {
	ID          int64              `json:"id"`
	ItemID      int64              `json:"item_id"`
	Date        time.Time          `json:"date"`
	LocalDate   string             `json:"local_date"`
	VoucherType ledger.VoucherType `json:"voucher_type"`
	BillNumber  int64              `json:"bill_number"`
	QtyIn       decimal.Decimal    `json:"qty_in"`
	QtyOut      decimal.Decimal    `json:"qty_out"`
	Rate        decimal.Decimal    `json:"rate"`
}

// value is the signed stock value change of the movement.
func (m Movement) value() decimal.Decimal {
	return m.QtyIn.Sub(m.QtyOut).Mul(m.Rate)
}

// ItemLedgerLine is a movement with running stock.
type ItemLedgerLine struct {
	Movement
	RunningQty   decimal.Decimal `json:"running_qty"`
	RunningValue decimal.Decimal `json:"running_value"`
}

// ItemLedger is an item's stock card over a window.
type ItemLedger struct {
	Item         Item             `json:"item"`
	From         time.Time        `json:"from"`
	To           time.Time        `json:"to"`
	OpeningQty   decimal.Decimal  `json:"opening_qty"`
	OpeningValue decimal.Decimal  `json:"opening_value"`
	Lines        []ItemLedgerLine `json:"lines"`
	TotalIn      decimal.Decimal  `json:"total_in"`
	TotalOut     decimal.Decimal  `json:"total_out"`
	ClosingQty   decimal.Decimal  `json:"closing_qty"`
	ClosingValue decimal.Decimal  `json:"closing_value"`
}
