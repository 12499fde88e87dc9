package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind discriminates the owning entry of a Transaction.
type EntryKind string

const (
	KindGeneral       EntryKind = "general"
	KindBankSpending  EntryKind = "bank_spending"
	KindBankReceiving EntryKind = "bank_receiving"
)

// EntryRef is a typed reference to the entry a Transaction belongs to.
// A zero EntryRef means the transaction is a main transaction, reached
// through the owning bank entry's MainTransactionID instead.
type EntryRef struct {
	Kind EntryKind `json:"kind" db:"owner_kind"`
	ID   int64     `json:"id" db:"owner_id"`
}

// IsZero reports whether the reference is unset.
func (r EntryRef) IsZero() bool {
	return r.Kind == "" && r.ID == 0
}

// Transaction itemizes a single signed balance change against one Account.
// A positive BalanceDelta is a credit, a negative one a debit. Date is a
// denormalized copy of the owning entry's date, pulled on every save.
type Transaction struct {
	ID           int64           `json:"id" db:"id"`
	Owner        EntryRef        `json:"owner"`
	AccountID    int64           `json:"account_id" db:"account_id"`
	Detail       string          `json:"detail,omitempty" db:"detail"`
	BalanceDelta decimal.Decimal `json:"balance_delta" db:"balance_delta"`
	EventID      *int64          `json:"event_id,omitempty" db:"event_id"`
	Reconciled   bool            `json:"reconciled" db:"reconciled"`
	Date         time.Time       `json:"date" db:"date"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Newer reports whether t comes strictly after other in the ledger's total
// order: date ascending, then id ascending as the same-day tiebreak.
func (t *Transaction) Newer(other *Transaction) bool {
	if !t.Date.Equal(other.Date) {
		return t.Date.After(other.Date)
	}
	return t.ID > other.ID
}

// Totals holds the aggregate debit and credit sums for a transaction set.
// DebitTotal is always <= 0 and CreditTotal >= 0.
type Totals struct {
	DebitTotal  decimal.Decimal `json:"debit_total"`
	CreditTotal decimal.Decimal `json:"credit_total"`
	NetChange   decimal.Decimal `json:"net_change"`
}

// GetTotals sums the negative and positive deltas of a transaction set.
// An empty set yields zero totals.
func GetTotals(transactions []*Transaction) Totals {
	totals := Totals{
		DebitTotal:  decimal.Zero,
		CreditTotal: decimal.Zero,
		NetChange:   decimal.Zero,
	}
	for _, t := range transactions {
		if t.BalanceDelta.IsNegative() {
			totals.DebitTotal = totals.DebitTotal.Add(t.BalanceDelta)
		} else {
			totals.CreditTotal = totals.CreditTotal.Add(t.BalanceDelta)
		}
	}
	totals.NetChange = totals.DebitTotal.Add(totals.CreditTotal)
	return totals
}
