package domain

import "time"

// FiscalYear marks the end of an accounting period. Date is the first day
// of the ending month; Period is the length of the year in months (12 or
// 13 for organizations using a thirteenth adjustment month).
type FiscalYear struct {
	ID        int64      `json:"id" db:"id"`
	Year      int        `json:"year" db:"year"`
	EndMonth  time.Month `json:"end_month" db:"end_month"`
	Period    int        `json:"period" db:"period"`
	Date      time.Time  `json:"date" db:"date"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// NewFiscalYear builds a FiscalYear with its Date derived from year and
// end month.
func NewFiscalYear(year int, endMonth time.Month, period int) *FiscalYear {
	return &FiscalYear{
		Year:     year,
		EndMonth: endMonth,
		Period:   period,
		Date:     time.Date(year, endMonth, 1, 0, 0, 0, 0, time.UTC),
	}
}

// EndDate returns the last calendar day of the fiscal year.
func (f *FiscalYear) EndDate() time.Time {
	return LastDayOfMonth(f.Year, f.EndMonth)
}

// StartOfCurrentYear determines the starting date of the latest fiscal
// year from the most recent FiscalYear records, newest first.
//
// With no years it returns the zero time. With a single year the start is
// period-1 months before its date. With multiple years the start is one
// month after the second-latest year's date.
func StartOfCurrentYear(latestFirst []*FiscalYear) time.Time {
	switch len(latestFirst) {
	case 0:
		return time.Time{}
	case 1:
		return latestFirst[0].Date.AddDate(0, -(latestFirst[0].Period - 1), 0)
	default:
		return latestFirst[1].Date.AddDate(0, 1, 0)
	}
}

// LastDayOfMonth returns the final calendar day of a month.
func LastDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}

// FirstOfMonth truncates a date to the first day of its month.
func FirstOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd truncates a date to the last day of its month.
func MonthEnd(date time.Time) time.Time {
	return LastDayOfMonth(date.Year(), date.Month())
}
