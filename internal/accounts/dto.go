package accounts

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
)

type createAccountRequest struct {
	Name          string          `json:"name" validate:"required,max=160"`
	Group         string          `json:"group" validate:"required,max=120"`
	OpeningAmount decimal.Decimal `json:"opening_amount"`
	OpeningSign   string          `json:"opening_sign" validate:"omitempty,oneof=Dr Cr"`
}

func (req createAccountRequest) toInput(actorID int64) CreateInput {
	return CreateInput{
		Name:    req.Name,
		Group:   req.Group,
		Opening: ledger.OpeningBalance{Amount: req.OpeningAmount, Sign: ledger.BalanceSign(req.OpeningSign)},
		ActorID: actorID,
	}
}

type openingRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Sign   string          `json:"sign" validate:"required,oneof=Dr Cr"`
}
