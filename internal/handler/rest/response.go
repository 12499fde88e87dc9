package hrest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ledger-service/internal/xerrors"

	"github.com/go-chi/chi/v5"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondUsecaseError maps domain errors onto HTTP statuses.
func respondUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xerrors.ErrDuplicateCheckNumber),
		errors.Is(err, xerrors.ErrHeaderNotEmpty),
		errors.Is(err, xerrors.ErrAccountProtected),
		errors.Is(err, xerrors.ErrThirteenthMonthOccupied):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, xerrors.ErrUnbalancedEntry),
		errors.Is(err, xerrors.ErrEmptyEntry),
		errors.Is(err, xerrors.ErrSameAccount),
		errors.Is(err, xerrors.ErrCheckOrACHRequired),
		errors.Is(err, xerrors.ErrNotBankAccount),
		errors.Is(err, xerrors.ErrVoidEntry),
		errors.Is(err, xerrors.ErrDateOutsideFiscalYear),
		errors.Is(err, xerrors.ErrNonPositiveAmount),
		errors.Is(err, xerrors.ErrReconcileOutOfBalance),
		errors.Is(err, xerrors.ErrInvalidPeriod),
		errors.Is(err, xerrors.ErrEndDateNotAfterLatest),
		errors.Is(err, xerrors.ErrEndDateBeyondPeriod),
		errors.Is(err, xerrors.ErrEarningsAccountsMissing),
		errors.Is(err, xerrors.ErrMalformedTree),
		errors.Is(err, xerrors.ErrInvalidInput),
		errors.Is(err, xerrors.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func urlID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// queryDate reads a YYYY-MM-DD query parameter, defaulting to today.
func queryDate(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", raw)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
