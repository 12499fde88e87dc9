package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies every Header and Account in the chart of accounts.
type AccountType int

const (
	TypeAsset        AccountType = 1
	TypeLiability    AccountType = 2
	TypeEquity       AccountType = 3
	TypeIncome       AccountType = 4
	TypeCostOfSales  AccountType = 5
	TypeExpense      AccountType = 6
	TypeOtherIncome  AccountType = 7
	TypeOtherExpense AccountType = 8
)

// String returns the display name of the account type.
func (t AccountType) String() string {
	switch t {
	case TypeAsset:
		return "Asset"
	case TypeLiability:
		return "Liability"
	case TypeEquity:
		return "Equity"
	case TypeIncome:
		return "Income"
	case TypeCostOfSales:
		return "Cost of Sales"
	case TypeExpense:
		return "Expense"
	case TypeOtherIncome:
		return "Other Income"
	case TypeOtherExpense:
		return "Other Expense"
	}
	return "Unknown"
}

// IsValid reports whether t is one of the eight chart types.
func (t AccountType) IsValid() bool {
	return t >= TypeAsset && t <= TypeOtherExpense
}

// FlipBalance reports whether the raw credit/debit balance must be negated
// to produce the conventional display value. Debits increase the displayed
// value of Assets, Cost of Sales, Expenses and Other Expenses.
func (t AccountType) FlipBalance() bool {
	switch t {
	case TypeAsset, TypeCostOfSales, TypeExpense, TypeOtherExpense:
		return true
	}
	return false
}

// IsStock reports whether the type carries a cumulative balance across
// fiscal years (Assets, Liabilities, Equity). The remaining types are flow
// accounts whose balances reset each period.
func (t AccountType) IsStock() bool {
	return t == TypeAsset || t == TypeLiability || t == TypeEquity
}

// StockTypes and FlowTypes partition the chart types for balance queries.
var (
	StockTypes = []AccountType{TypeAsset, TypeLiability, TypeEquity}
	FlowTypes  = []AccountType{TypeIncome, TypeCostOfSales, TypeExpense, TypeOtherIncome, TypeOtherExpense}
)

// Header is a grouping node in the chart of accounts. Headers form a tree;
// the type of a root header is inherited by every header and account below it.
type Header struct {
	ID          int64       `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Type        AccountType `json:"type" db:"type"`
	ParentID    *int64      `json:"parent_id,omitempty" db:"parent_id"`
	Active      bool        `json:"active" db:"active"`
	FullNumber  string      `json:"full_number" db:"full_number"`
	Description string      `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// Account is a leaf of the chart of accounts and holds a running balance.
// Balance carries the raw credit/debit sign (positive = credit), not the
// display sign; use Type.FlipBalance to convert.
type Account struct {
	ID                int64           `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Type              AccountType     `json:"type" db:"type"`
	ParentID          int64           `json:"parent_id" db:"parent_id"`
	Balance           decimal.Decimal `json:"balance" db:"balance"`
	ReconciledBalance decimal.Decimal `json:"reconciled_balance" db:"reconciled_balance"`
	Bank              bool            `json:"bank" db:"bank"`
	Active            bool            `json:"active" db:"active"`
	LastReconciled    *time.Time      `json:"last_reconciled,omitempty" db:"last_reconciled"`
	FullNumber        string          `json:"full_number" db:"full_number"`
	Description       string          `json:"description,omitempty" db:"description"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ValueBalance converts the raw balance to the display sign convention.
func (a *Account) ValueBalance() decimal.Decimal {
	if a.Type.FlipBalance() {
		return a.Balance.Neg()
	}
	return a.Balance
}

// Equity accounts required before a second fiscal year can be started.
const (
	CurrentYearEarningsName = "Current Year Earnings"
	RetainedEarningsName    = "Retained Earnings"
)

// HistoricalAccount is an immutable monthly snapshot created during fiscal
// year closing. Amount stores the display-sign value: the end-of-month
// balance for stock accounts (types 1-3) and the monthly net change for flow
// accounts (types 4-8). Unique on (date, name); date is the first of a month.
type HistoricalAccount struct {
	ID        int64           `json:"id" db:"id"`
	AccountID *int64          `json:"account_id,omitempty" db:"account_id"`
	Number    string          `json:"number" db:"number"`
	Name      string          `json:"name" db:"name"`
	Type      AccountType     `json:"type" db:"type"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Date      time.Time       `json:"date" db:"date"`
}

// RawAmount converts the stored display-sign amount back to the raw
// credit/debit sign.
func (h *HistoricalAccount) RawAmount() decimal.Decimal {
	if h.Type.FlipBalance() {
		return h.Amount.Neg()
	}
	return h.Amount
}
