package hrest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ledger-service/internal/domain"

	"github.com/shopspring/decimal"
)

type closeYearJSON struct {
	Year               int     `json:"year"`
	EndMonth           int     `json:"end_month"`
	Period             int     `json:"period"`
	ExcludedAccountIDs []int64 `json:"excluded_account_ids"`
}

func (h *LedgerRestHandler) ListFiscalYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.fiscalUC.List(r.Context())
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, years)
}

func (h *LedgerRestHandler) CloseFiscalYear(w http.ResponseWriter, r *http.Request) {
	var in closeYearJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.EndMonth < 1 || in.EndMonth > 12 {
		respondError(w, http.StatusBadRequest, "end_month must be 1 through 12")
		return
	}
	year, err := h.fiscalUC.CloseYear(r.Context(), in.Year, time.Month(in.EndMonth), in.Period, in.ExcludedAccountIDs)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, year)
}

// ArchivedAccounts lists the account snapshots archived for the month of the
// date query parameter.
func (h *LedgerRestHandler) ArchivedAccounts(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	snapshots, err := h.fiscalUC.ArchivedAccountsByMonth(r.Context(), date)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshots)
}

func (h *LedgerRestHandler) ArchivedEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.fiscalUC.ArchivedEvents(r.Context())
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

type statementJSON struct {
	BankAccountID int64           `json:"bank_account_id"`
	Items         []statementItem `json:"items"`
}

type statementItem struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	CheckNumber string `json:"check_number"`
	Memo        string `json:"memo"`
	Kind        string `json:"kind"`
}

func (s statementItem) toDomain() (domain.StatementItem, error) {
	date, err := time.Parse("2006-01-02", s.Date)
	if err != nil {
		return domain.StatementItem{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s.Date)
	}
	amount, err := decimal.NewFromString(s.Amount)
	if err != nil {
		return domain.StatementItem{}, fmt.Errorf("invalid amount %q", s.Amount)
	}
	kind := domain.StatementItemKind(s.Kind)
	switch kind {
	case domain.StatementDeposit, domain.StatementWithdrawal,
		domain.StatementTransferDeposit, domain.StatementTransferWithdrawal:
	default:
		return domain.StatementItem{}, fmt.Errorf("unknown statement item kind %q", s.Kind)
	}
	return domain.StatementItem{
		Date:        date,
		Amount:      amount,
		CheckNumber: s.CheckNumber,
		Memo:        s.Memo,
		Kind:        kind,
	}, nil
}

func (h *LedgerRestHandler) ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.importUC.ListBankAccounts(r.Context())
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

func (h *LedgerRestHandler) MatchStatement(w http.ResponseWriter, r *http.Request) {
	var in statementJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	items := make([]domain.StatementItem, 0, len(in.Items))
	for _, raw := range in.Items {
		item, err := raw.toDomain()
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		items = append(items, item)
	}
	result, err := h.importUC.MatchStatement(r.Context(), in.BankAccountID, items)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type checkRangeJSON struct {
	BankAccountID    int64  `json:"bank_account_id"`
	StartNumber      int    `json:"start_number"`
	EndNumber        int    `json:"end_number"`
	DefaultAccountID int64  `json:"default_account_id"`
	DefaultPayee     string `json:"default_payee"`
	DefaultMemo      string `json:"default_memo"`
}

func (h *LedgerRestHandler) CreateCheckRange(w http.ResponseWriter, r *http.Request) {
	var in checkRangeJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	checkRange, err := h.importUC.CreateCheckRange(r.Context(), &domain.CheckRange{
		BankAccountID:    in.BankAccountID,
		StartNumber:      in.StartNumber,
		EndNumber:        in.EndNumber,
		DefaultAccountID: in.DefaultAccountID,
		DefaultPayee:     in.DefaultPayee,
		DefaultMemo:      in.DefaultMemo,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, checkRange)
}

func (h *LedgerRestHandler) ListCheckRanges(w http.ResponseWriter, r *http.Request) {
	bankAccountID := int64(queryInt(r, "bank_account_id", 0))
	if bankAccountID == 0 {
		respondError(w, http.StatusBadRequest, "bank_account_id is required")
		return
	}
	ranges, err := h.importUC.ListCheckRanges(r.Context(), bankAccountID)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ranges)
}

func (h *LedgerRestHandler) DeleteCheckRange(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid check range id")
		return
	}
	if err := h.importUC.DeleteCheckRange(r.Context(), id); err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
