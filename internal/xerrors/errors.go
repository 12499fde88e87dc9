package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ParsePGErrorCode extracts the postgres error code from a pgconn error.
func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// PG error codes we act on.
const (
	PGUniqueViolation     = "23505"
	PGForeignKeyViolation = "23503"
)

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input provided")
)

// Entry validation
var (
	ErrUnbalancedEntry       = errors.New("entry transactions must sum to zero")
	ErrEmptyEntry            = errors.New("entry requires at least two line items")
	ErrSameAccount           = errors.New("source and destination accounts must differ")
	ErrCheckOrACHRequired    = errors.New("either a check number or ACH status is required")
	ErrDuplicateCheckNumber  = errors.New("check number already used for this bank account")
	ErrNotBankAccount        = errors.New("account is not marked as a bank account")
	ErrVoidEntry             = errors.New("cannot add transactions to a void entry")
	ErrDateOutsideFiscalYear = errors.New("date is before the current fiscal year")
	ErrNonPositiveAmount     = errors.New("amount must be greater than zero")
	ErrReconcileOutOfBalance = errors.New("selected transactions do not reconcile to the statement balance")
)

// Chart of accounts
var (
	ErrHeaderNotEmpty   = errors.New("header still has children")
	ErrAccountProtected = errors.New("account has transactions and cannot be deleted")
	ErrMalformedTree    = errors.New("account tree has a node with no resolvable root type")
)

// Fiscal year validation
var (
	ErrEarningsAccountsMissing = errors.New("'Current Year Earnings' and 'Retained Earnings' equity accounts are required to start a new fiscal year")
	ErrEndDateNotAfterLatest   = errors.New("the new ending date must be after the current ending date")
	ErrEndDateBeyondPeriod     = errors.New("the new ending date cannot be greater than the current ending date plus the new period")
	ErrThirteenthMonthOccupied = errors.New("when switching from a 13 to 12 month period, no transactions can be in the last year's 13th month")
	ErrInvalidPeriod           = errors.New("period must be 12 or 13 months")
)
