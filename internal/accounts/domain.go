// Package accounts manages ledger accounts and their per fiscal year opening balances.
package accounts

import (
	"strings"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// CreateInput describes a new account.
type CreateInput struct {
	Name    string
	Group   string
	Opening ledger.OpeningBalance
	ActorID int64
}

// Validate checks the input before any write.
func (in *CreateInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Group = strings.TrimSpace(in.Group)
	if in.Name == "" {
		return shared.Validationf("account name required")
	}
	if in.Group == "" {
		return shared.Validationf("account group required")
	}
	return validateOpening(&in.Opening)
}

// OpeningInput sets an account opening balance for the tenant fiscal year.
type OpeningInput struct {
	AccountID int64
	Opening   ledger.OpeningBalance
	ActorID   int64
}

// Validate checks the input before any write.
func (in *OpeningInput) Validate() error {
	if in.AccountID <= 0 {
		return shared.Validationf("account id required")
	}
	return validateOpening(&in.Opening)
}

func validateOpening(ob *ledger.OpeningBalance) error {
	if ob.Sign == "" {
		ob.Sign = ledger.SignDebit
	}
	if ob.Sign != ledger.SignDebit && ob.Sign != ledger.SignCredit {
		return shared.Validationf("opening sign must be Dr or Cr")
	}
	if ob.Amount.IsNegative() {
		return shared.Validationf("opening amount must not be negative")
	}
	ob.Amount = ob.Amount.Round(2)
	return nil
}

// ListFilter selects accounts by group.
type ListFilter struct {
	Groups []string
}
