// Package vouchers posts receipt and payment vouchers as balanced pairs of ledger entries.
package vouchers

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// Status enumerates voucher lifecycle states.
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
)

// Supported reports whether vt is posted by this package.
func Supported(vt ledger.VoucherType) bool {
	return vt == ledger.VoucherReceipt || vt == ledger.VoucherPayment
}

// Instrument carries cheque or transfer metadata.
type Instrument struct {
	Kind     string `json:"kind,omitempty"`
	Number   string `json:"number,omitempty"`
	Date     string `json:"date,omitempty"`
	BankName string `json:"bank_name,omitempty"`
}

// BillNumber is a sequence allocation for company, fiscal year and voucher type.
type BillNumber struct {
	Prefix string `json:"prefix"`
	Number int64  `json:"number"`
}

// String renders the prefixed bill number.
func (b BillNumber) String() string {
	return b.Prefix + strconv.FormatInt(b.Number, 10)
}

// Voucher is a receipt or payment document. The target account is debited and the source
// account credited: a receipt moves value from the party (source) into cash or bank (target),
// a payment from cash or bank (source) to the party (target).
type Voucher struct {
	ID              int64              `json:"id"`
	CompanyID       int64              `json:"company_id"`
	FiscalYearID    int64              `json:"fiscal_year_id"`
	Type            ledger.VoucherType `json:"voucher_type"`
	Bill            BillNumber         `json:"bill"`
	Reference       uuid.UUID          `json:"reference"`
	Date            time.Time          `json:"date"`
	LocalDate       string             `json:"local_date"`
	SourceAccountID int64              `json:"source_account_id"`
	TargetAccountID int64              `json:"target_account_id"`
	Amount          decimal.Decimal    `json:"amount"`
	PaymentMode     ledger.PaymentMode `json:"payment_mode"`
	Instrument      Instrument         `json:"instrument"`
	Description     string             `json:"description,omitempty"`
	Status          Status             `json:"status"`
	IsActive        bool               `json:"is_active"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Posting is a voucher together with its two entries.
type Posting struct {
	Voucher     Voucher      `json:"voucher"`
	CreditEntry ledger.Entry `json:"credit_entry"`
	DebitEntry  ledger.Entry `json:"debit_entry"`
	// Replayed is set when an earlier create with the same idempotency key produced the posting.
	Replayed bool `json:"replayed,omitempty"`
}

// Input is the caller supplied content of a voucher.
type Input struct {
	Type            ledger.VoucherType
	SourceAccountID int64
	TargetAccountID int64
	Amount          decimal.Decimal
	// Date is parsed with the tenant calendar.
	Date        string
	PaymentMode ledger.PaymentMode
	Instrument  Instrument
	Description string
	ActorID     int64
	// IdempotencyKey is honoured by Create only.
	IdempotencyKey string
}

// Validate checks the input shape. Account existence is checked inside the transaction.
func (in *Input) Validate() error {
	if !Supported(in.Type) {
		return shared.Validationf("unsupported voucher type %q", in.Type)
	}
	if in.SourceAccountID <= 0 || in.TargetAccountID <= 0 {
		return shared.Validationf("source and target accounts required")
	}
	if in.SourceAccountID == in.TargetAccountID {
		return shared.Validationf("source and target accounts must differ")
	}
	in.Amount = in.Amount.Round(2)
	if !in.Amount.IsPositive() {
		return shared.Validationf("amount must be positive")
	}
	in.Date = strings.TrimSpace(in.Date)
	if in.Date == "" {
		return shared.Validationf("date required")
	}
	switch in.PaymentMode {
	case "":
		in.PaymentMode = ledger.PaymentCash
	case ledger.PaymentCash, ledger.PaymentCredit, ledger.PaymentOther:
	default:
		return shared.Validationf("unknown payment mode %q", in.PaymentMode)
	}
	in.Description = strings.TrimSpace(in.Description)
	key, err := shared.NormalizeIdempotencyKey(in.IdempotencyKey)
	if err != nil {
		return err
	}
	in.IdempotencyKey = key
	return nil
}

// ListFilter selects vouchers within the tenant fiscal year.
type ListFilter struct {
	Type   ledger.VoucherType
	Status Status
	Page   shared.Pagination
}

func (s Status) valid() bool {
	return s == StatusActive || s == StatusCanceled
}
