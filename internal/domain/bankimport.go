package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementItemKind classifies one line of an imported bank statement.
type StatementItemKind string

const (
	StatementDeposit            StatementItemKind = "deposit"
	StatementWithdrawal         StatementItemKind = "withdrawal"
	StatementTransferDeposit    StatementItemKind = "transfer_deposit"
	StatementTransferWithdrawal StatementItemKind = "transfer_withdrawal"
)

// IsDeposit reports whether the item moves money into the bank account.
func (k StatementItemKind) IsDeposit() bool {
	return k == StatementDeposit || k == StatementTransferDeposit
}

// IsTransfer reports whether the item is an internal transfer.
func (k StatementItemKind) IsTransfer() bool {
	return k == StatementTransferDeposit || k == StatementTransferWithdrawal
}

// StatementItem is one candidate line from an imported bank statement.
// Amount is the statement's positive magnitude.
type StatementItem struct {
	Date        time.Time         `json:"date"`
	Amount      decimal.Decimal   `json:"amount"`
	CheckNumber string            `json:"check_number"`
	Memo        string            `json:"memo"`
	Kind        StatementItemKind `json:"kind"`
}

// CheckRange holds prefill defaults for imported checks whose number falls
// within [StartNumber, EndNumber] on a bank account.
type CheckRange struct {
	ID               int64  `json:"id" db:"id"`
	BankAccountID    int64  `json:"bank_account_id" db:"bank_account_id"`
	StartNumber      int    `json:"start_number" db:"start_number"`
	EndNumber        int    `json:"end_number" db:"end_number"`
	DefaultAccountID int64  `json:"default_account_id" db:"default_account_id"`
	DefaultPayee     string `json:"default_payee" db:"default_payee"`
	DefaultMemo      string `json:"default_memo" db:"default_memo"`
}

// Contains reports whether the numeric check number falls in the range.
func (r *CheckRange) Contains(checkNumber int) bool {
	return checkNumber >= r.StartNumber && checkNumber <= r.EndNumber
}
