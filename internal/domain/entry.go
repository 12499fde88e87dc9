package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// JournalEntry is a plain balanced group of transactions.
type JournalEntry struct {
	ID        int64     `json:"id" db:"id"`
	Date      time.Time `json:"date" db:"date"`
	Memo      string    `json:"memo" db:"memo"`
	Comments  string    `json:"comments,omitempty" db:"comments"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Number returns the formatted entry number, e.g. GJ#000042.
func (e *JournalEntry) Number() string {
	return fmt.Sprintf("GJ#%06d", e.ID)
}

// ACHNumber is the display number of bank spending entries paid by ACH.
const ACHNumber = "##ACH##"

// BankSpendingEntry records a check or ACH payment from a bank account.
// The main transaction credits the bank account while the line item
// transactions hold the offsetting debits. Exactly one of CheckNumber or
// ACHPayment must be set; check numbers are unique per bank account.
type BankSpendingEntry struct {
	ID                int64     `json:"id" db:"id"`
	Date              time.Time `json:"date" db:"date"`
	Memo              string    `json:"memo" db:"memo"`
	Comments          string    `json:"comments,omitempty" db:"comments"`
	AccountID         int64     `json:"account_id" db:"account_id"`
	CheckNumber       string    `json:"check_number,omitempty" db:"check_number"`
	ACHPayment        bool      `json:"ach_payment" db:"ach_payment"`
	Payee             string    `json:"payee,omitempty" db:"payee"`
	Void              bool      `json:"void" db:"void"`
	MainTransactionID int64     `json:"main_transaction_id" db:"main_transaction_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Number returns CD#<check number> or ##ACH## for ACH payments.
func (e *BankSpendingEntry) Number() string {
	if e.ACHPayment {
		return ACHNumber
	}
	n, err := strconv.Atoi(e.CheckNumber)
	if err != nil {
		return "CD#" + e.CheckNumber
	}
	return fmt.Sprintf("CD#%06d", n)
}

// MarkVoid flags the entry as void and stamps the memo. The caller is
// responsible for purging the line transactions and zeroing the main
// transaction; re-clearing the flag never restores them.
func (e *BankSpendingEntry) MarkVoid() {
	e.Void = true
	if !strings.Contains(e.Memo, "VOID") {
		e.Memo += " VOID"
	}
}

// BankReceivingEntry records a deposit into a bank account. The main
// transaction debits the bank account (the entered amount is stored
// negated) while the line item transactions hold the offsetting credits.
type BankReceivingEntry struct {
	ID                int64     `json:"id" db:"id"`
	Date              time.Time `json:"date" db:"date"`
	Memo              string    `json:"memo" db:"memo"`
	Comments          string    `json:"comments,omitempty" db:"comments"`
	AccountID         int64     `json:"account_id" db:"account_id"`
	Payor             string    `json:"payor" db:"payor"`
	MainTransactionID int64     `json:"main_transaction_id" db:"main_transaction_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Number returns the formatted entry number, e.g. CR#000007.
func (e *BankReceivingEntry) Number() string {
	return fmt.Sprintf("CR#%06d", e.ID)
}
