package hrest

import (
	"encoding/json"
	"net/http"
	"time"

	"ledger-service/internal/usecase"

	"github.com/shopspring/decimal"
)

type generalEntryJSON struct {
	Date     string             `json:"date"`
	Memo     string             `json:"memo"`
	Comments string             `json:"comments"`
	Items    []usecase.LineItem `json:"items"`
}

func (h *LedgerRestHandler) CreateGeneralEntry(w http.ResponseWriter, r *http.Request) {
	var in generalEntryJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	entry, err := h.entryUC.CreateGeneralEntry(r.Context(), date, in.Memo, in.Comments, in.Items)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"entry": entry, "number": entry.Number()})
}

func (h *LedgerRestHandler) GetGeneralEntry(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	entry, lines, err := h.entryUC.GetGeneralEntry(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entry":        entry,
		"number":       entry.Number(),
		"transactions": lines,
	})
}

func (h *LedgerRestHandler) UpdateGeneralEntry(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	var in generalEntryJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	entry, err := h.entryUC.UpdateGeneralEntry(r.Context(), id, date, in.Memo, in.Comments, in.Items)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entry": entry, "number": entry.Number()})
}

type bankEntryJSON struct {
	Date          string             `json:"date"`
	BankAccountID int64              `json:"bank_account_id"`
	Amount        decimal.Decimal    `json:"amount"`
	Memo          string             `json:"memo"`
	Comments      string             `json:"comments"`
	CheckNumber   string             `json:"check_number"`
	ACHPayment    bool               `json:"ach_payment"`
	Payee         string             `json:"payee"`
	Payor         string             `json:"payor"`
	Items         []usecase.LineItem `json:"items"`
}

func (in bankEntryJSON) toInput() (usecase.BankEntryInput, error) {
	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return usecase.BankEntryInput{}, err
	}
	return usecase.BankEntryInput{
		Date:          date,
		BankAccountID: in.BankAccountID,
		Amount:        in.Amount,
		Memo:          in.Memo,
		Comments:      in.Comments,
		CheckNumber:   in.CheckNumber,
		ACHPayment:    in.ACHPayment,
		Payee:         in.Payee,
		Payor:         in.Payor,
		Items:         in.Items,
	}, nil
}

func (h *LedgerRestHandler) CreateBankSpendingEntry(w http.ResponseWriter, r *http.Request) {
	var in bankEntryJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input, err := in.toInput()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	entry, err := h.entryUC.CreateBankSpendingEntry(r.Context(), input)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"entry": entry, "number": entry.Number()})
}

func (h *LedgerRestHandler) GetBankSpendingEntry(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	entry, main, lines, err := h.entryUC.GetBankSpendingEntry(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entry":            entry,
		"number":           entry.Number(),
		"main_transaction": main,
		"transactions":     lines,
	})
}

type bankEntryEditJSON struct {
	Date        string `json:"date"`
	Memo        string `json:"memo"`
	Comments    string `json:"comments"`
	CheckNumber string `json:"check_number"`
	ACHPayment  bool   `json:"ach_payment"`
	Payee       string `json:"payee"`
}

func (h *LedgerRestHandler) UpdateBankSpendingEntry(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	var in bankEntryEditJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	entry, err := h.entryUC.UpdateBankSpendingEntry(r.Context(), id, usecase.BankEntryEdit{
		Date:        date,
		Memo:        in.Memo,
		Comments:    in.Comments,
		CheckNumber: in.CheckNumber,
		ACHPayment:  in.ACHPayment,
		Payee:       in.Payee,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entry": entry, "number": entry.Number()})
}

func (h *LedgerRestHandler) VoidBankSpendingEntry(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	entry, err := h.entryUC.VoidBankSpendingEntry(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entry": entry, "number": entry.Number()})
}

func (h *LedgerRestHandler) CreateBankReceivingEntry(w http.ResponseWriter, r *http.Request) {
	var in bankEntryJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input, err := in.toInput()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	entry, err := h.entryUC.CreateBankReceivingEntry(r.Context(), input)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"entry": entry, "number": entry.Number()})
}

func (h *LedgerRestHandler) GetBankReceivingEntry(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	entry, main, lines, err := h.entryUC.GetBankReceivingEntry(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entry":            entry,
		"number":           entry.Number(),
		"main_transaction": main,
		"transactions":     lines,
	})
}

type transferJSON struct {
	Date          string          `json:"date"`
	SourceID      int64           `json:"source_id"`
	DestinationID int64           `json:"destination_id"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo"`
	Detail        string          `json:"detail"`
}

func (h *LedgerRestHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var in transferJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	entry, err := h.entryUC.CreateTransfer(r.Context(), date, in.SourceID, in.DestinationID, in.Amount, in.Memo, in.Detail)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"entry": entry, "number": entry.Number()})
}
