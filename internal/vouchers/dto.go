package vouchers

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
)

type voucherRequest struct {
	SourceAccountID int64             `json:"source_account_id" validate:"required,gt=0"`
	TargetAccountID int64             `json:"target_account_id" validate:"required,gt=0,nefield=SourceAccountID"`
	Amount          decimal.Decimal   `json:"amount"`
	Date            string            `json:"date" validate:"required"`
	PaymentMode     string            `json:"payment_mode" validate:"omitempty,oneof=cash credit other"`
	Instrument      instrumentRequest `json:"instrument"`
	Description     string            `json:"description" validate:"max=500"`
}

type instrumentRequest struct {
	Kind     string `json:"kind" validate:"omitempty,oneof=cheque rtgs neft transfer card"`
	Number   string `json:"number" validate:"max=64"`
	Date     string `json:"date" validate:"max=32"`
	BankName string `json:"bank_name" validate:"max=120"`
}

func (req voucherRequest) toInput(vt ledger.VoucherType, actorID int64, key string) Input {
	return Input{
		Type:            vt,
		SourceAccountID: req.SourceAccountID,
		TargetAccountID: req.TargetAccountID,
		Amount:          req.Amount,
		Date:            req.Date,
		PaymentMode:     ledger.PaymentMode(req.PaymentMode),
		Instrument: Instrument{
			Kind:     req.Instrument.Kind,
			Number:   req.Instrument.Number,
			Date:     req.Instrument.Date,
			BankName: req.Instrument.BankName,
		},
		Description:    req.Description,
		ActorID:        actorID,
		IdempotencyKey: key,
	}
}

type voucherResponse struct {
	Voucher Voucher        `json:"voucher"`
	Entries []ledger.Entry `json:"entries"`
}
