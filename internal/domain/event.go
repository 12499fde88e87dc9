package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Event is a cross-cutting tag grouping transactions by occasion. Events
// from prior fiscal years are rolled into HistoricalEvents at close.
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Abbreviation string    `json:"abbreviation" db:"abbreviation"`
	Number       string    `json:"number" db:"number"`
	Date         time.Time `json:"date" db:"date"`
	City         string    `json:"city,omitempty" db:"city"`
	State        string    `json:"state,omitempty" db:"state"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// GenerateNumber combines the abbreviation with the event year's last two
// digits, e.g. "CAMP14". Set on every save.
func (e *Event) GenerateNumber() string {
	year := e.Date.Format("2006")
	return strings.ToUpper(e.Abbreviation) + year[2:]
}

// HistoricalEvent preserves an Event's aggregate totals after its
// transactions are purged by a fiscal year close.
type HistoricalEvent struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Number      string          `json:"number" db:"number"`
	Date        time.Time       `json:"date" db:"date"`
	City        string          `json:"city,omitempty" db:"city"`
	State       string          `json:"state,omitempty" db:"state"`
	DebitTotal  decimal.Decimal `json:"debit_total" db:"debit_total"`
	CreditTotal decimal.Decimal `json:"credit_total" db:"credit_total"`
	NetChange   decimal.Decimal `json:"net_change" db:"net_change"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
