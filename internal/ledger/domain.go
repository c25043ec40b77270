// Package ledger holds the posted-entry model and the pure balance and ageing computations
// performed over an account's entries.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherType identifies the business document that produced an entry.
type VoucherType string

const (
	VoucherSalesBill      VoucherType = "sales_bill"
	VoucherSalesReturn    VoucherType = "sales_return"
	VoucherPurchaseBill   VoucherType = "purchase_bill"
	VoucherPurchaseReturn VoucherType = "purchase_return"
	VoucherPayment        VoucherType = "payment"
	VoucherReceipt        VoucherType = "receipt"
	VoucherJournal        VoucherType = "journal"
	VoucherDebitNote      VoucherType = "debit_note"
	VoucherCreditNote     VoucherType = "credit_note"
)

// Valid reports whether v is a known voucher type.
func (v VoucherType) Valid() bool {
	_, ok := signRules[v]
	return ok
}

// Side tags which half of a double-entry pair an entry is.
type Side string

const (
	SideDebit  Side = "Debit"
	SideCredit Side = "Credit"
)

// PaymentMode classifies how a voucher was settled.
type PaymentMode string

const (
	PaymentCash   PaymentMode = "cash"
	PaymentCredit PaymentMode = "credit"
	PaymentOther  PaymentMode = "other"
)

// BalanceSign is the Dr/Cr marker of an opening balance.
type BalanceSign string

const (
	SignDebit  BalanceSign = "Dr"
	SignCredit BalanceSign = "Cr"
)

// OpeningBalance is an unsigned amount with its Dr/Cr marker.
type OpeningBalance struct {
	Amount decimal.Decimal `json:"amount"`
	Sign   BalanceSign     `json:"sign"`
}

// Signed returns the balance with Dr positive and Cr negative.
func (o OpeningBalance) Signed() decimal.Decimal {
	if o.Sign == SignCredit {
		return o.Amount.Abs().Neg()
	}
	return o.Amount.Abs()
}

// OpeningFromSigned converts a signed amount back into an OpeningBalance.
func OpeningFromSigned(amount decimal.Decimal) OpeningBalance {
	if amount.IsNegative() {
		return OpeningBalance{Amount: amount.Abs(), Sign: SignCredit}
	}
	return OpeningBalance{Amount: amount, Sign: SignDebit}
}

// Standard account groups.
const (
	GroupSundryDebtors   = "Sundry Debtors"
	GroupSundryCreditors = "Sundry Creditors"
	GroupCashInHand      = "Cash in Hand"
	GroupBankAccounts    = "Bank Accounts"
)

// Account is a ledger subject owned by one company.
type Account struct {
	ID                  int64          `json:"id"`
	CompanyID           int64          `json:"company_id"`
	Name                string         `json:"name"`
	Group               string         `json:"group"`
	InitialOpening      OpeningBalance `json:"initial_opening"`
	InitialFiscalYearID int64          `json:"initial_fiscal_year_id"`
	// Opening is the opening balance for the fiscal year the account was loaded for.
	Opening   OpeningBalance `json:"opening"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Entry is one posted movement against one account.
type Entry struct {
	ID           int64           `json:"id"`
	CompanyID    int64           `json:"company_id"`
	FiscalYearID int64           `json:"fiscal_year_id"`
	AccountID    int64           `json:"account_id"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	Date         time.Time       `json:"date"`
	LocalDate    string          `json:"local_date"`
	VoucherType  VoucherType     `json:"voucher_type"`
	VoucherID    int64           `json:"voucher_id"`
	BillNumber   int64           `json:"bill_number"`
	VoucherRef   uuid.UUID       `json:"voucher_ref"`
	Balance      decimal.Decimal `json:"balance"`
	Side         Side            `json:"dr_cr_note_account_type"`
	PaymentMode  PaymentMode     `json:"payment_mode"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Net returns debit minus credit.
func (e Entry) Net() decimal.Decimal {
	return e.Debit.Sub(e.Credit)
}
