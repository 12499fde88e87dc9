package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFlipBalance(t *testing.T) {
	flipped := []AccountType{TypeAsset, TypeCostOfSales, TypeExpense, TypeOtherExpense}
	straight := []AccountType{TypeLiability, TypeEquity, TypeIncome, TypeOtherIncome}

	for _, typ := range flipped {
		assert.True(t, typ.FlipBalance(), typ.String())
	}
	for _, typ := range straight {
		assert.False(t, typ.FlipBalance(), typ.String())
	}
}

func TestValueBalance(t *testing.T) {
	asset := &Account{Type: TypeAsset, Balance: dec("-50.00")}
	assert.True(t, asset.ValueBalance().Equal(dec("50.00")))

	income := &Account{Type: TypeIncome, Balance: dec("75.00")}
	assert.True(t, income.ValueBalance().Equal(dec("75.00")))
}

func TestHistoricalAccountRawAmount(t *testing.T) {
	// Expense snapshots store the display sign; raw is the negation.
	h := &HistoricalAccount{Type: TypeExpense, Amount: dec("120.00")}
	assert.True(t, h.RawAmount().Equal(dec("-120.00")))

	h = &HistoricalAccount{Type: TypeEquity, Amount: dec("120.00")}
	assert.True(t, h.RawAmount().Equal(dec("120.00")))
}

func TestEntryNumbers(t *testing.T) {
	gj := &JournalEntry{ID: 42}
	assert.Equal(t, "GJ#000042", gj.Number())

	cr := &BankReceivingEntry{ID: 7}
	assert.Equal(t, "CR#000007", cr.Number())

	cd := &BankSpendingEntry{ID: 3, CheckNumber: "100"}
	assert.Equal(t, "CD#000100", cd.Number())

	ach := &BankSpendingEntry{ID: 3, ACHPayment: true}
	assert.Equal(t, "##ACH##", ach.Number())
}

func TestMarkVoid(t *testing.T) {
	e := &BankSpendingEntry{Memo: "office supplies"}
	e.MarkVoid()
	assert.True(t, e.Void)
	assert.Equal(t, "office supplies VOID", e.Memo)

	// Stamping is idempotent.
	e.MarkVoid()
	assert.Equal(t, "office supplies VOID", e.Memo)
}

func TestGetTotalsEmptySet(t *testing.T) {
	totals := GetTotals(nil)
	assert.True(t, totals.DebitTotal.IsZero())
	assert.True(t, totals.CreditTotal.IsZero())
	assert.True(t, totals.NetChange.IsZero())
}

func TestGetTotals(t *testing.T) {
	totals := GetTotals([]*Transaction{
		{BalanceDelta: dec("-20.00")},
		{BalanceDelta: dec("-5.00")},
		{BalanceDelta: dec("25.00")},
		{BalanceDelta: dec("10.00")},
	})
	assert.True(t, totals.DebitTotal.Equal(dec("-25.00")))
	assert.True(t, totals.CreditTotal.Equal(dec("35.00")))
	assert.True(t, totals.NetChange.Equal(dec("10.00")))
}

func TestTransactionOrdering(t *testing.T) {
	older := &Transaction{ID: 10, Date: date(2024, time.March, 1)}
	newer := &Transaction{ID: 5, Date: date(2024, time.March, 2)}
	assert.True(t, newer.Newer(older))
	assert.False(t, older.Newer(newer))

	// Same-day entries tiebreak on id.
	sameDay := &Transaction{ID: 11, Date: date(2024, time.March, 1)}
	assert.True(t, sameDay.Newer(older))
	assert.False(t, older.Newer(sameDay))
}

func TestEventGenerateNumber(t *testing.T) {
	e := &Event{Abbreviation: "camp", Date: date(2014, time.June, 1)}
	assert.Equal(t, "CAMP14", e.GenerateNumber())
}

func TestStartOfCurrentYear(t *testing.T) {
	assert.True(t, StartOfCurrentYear(nil).IsZero())

	// Single year: period-1 months before its date.
	single := []*FiscalYear{NewFiscalYear(2024, time.December, 12)}
	assert.Equal(t, date(2024, time.January, 1), StartOfCurrentYear(single))

	// Multiple years: month after the second-latest date.
	multi := []*FiscalYear{
		NewFiscalYear(2025, time.December, 12),
		NewFiscalYear(2024, time.December, 12),
	}
	assert.Equal(t, date(2025, time.January, 1), StartOfCurrentYear(multi))
}

func TestFiscalYearEndDate(t *testing.T) {
	fy := NewFiscalYear(2024, time.February, 12)
	assert.Equal(t, date(2024, time.February, 29), fy.EndDate())
}

func TestLastDayOfMonth(t *testing.T) {
	assert.Equal(t, date(2023, time.February, 28), LastDayOfMonth(2023, time.February))
	assert.Equal(t, date(2024, time.December, 31), LastDayOfMonth(2024, time.December))
}
