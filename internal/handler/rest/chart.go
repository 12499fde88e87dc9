package hrest

import (
	"encoding/json"
	"net/http"

	"ledger-service/internal/domain"
)

type headerJSON struct {
	Name        string `json:"name"`
	Type        int    `json:"type"`
	ParentID    *int64 `json:"parent_id"`
	Description string `json:"description"`
}

func (h *LedgerRestHandler) CreateHeader(w http.ResponseWriter, r *http.Request) {
	var in headerJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	header, err := h.chartUC.CreateHeader(r.Context(), &domain.Header{
		Name:        in.Name,
		Type:        domain.AccountType(in.Type),
		ParentID:    in.ParentID,
		Active:      true,
		Description: in.Description,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, header)
}

func (h *LedgerRestHandler) ListHeaders(w http.ResponseWriter, r *http.Request) {
	headers, err := h.chartUC.ListHeaders(r.Context())
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, headers)
}

func (h *LedgerRestHandler) UpdateHeader(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid header id")
		return
	}
	var in headerJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	header, err := h.chartUC.UpdateHeader(r.Context(), &domain.Header{
		ID:          id,
		Name:        in.Name,
		Type:        domain.AccountType(in.Type),
		ParentID:    in.ParentID,
		Active:      true,
		Description: in.Description,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, header)
}

func (h *LedgerRestHandler) DeleteHeader(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid header id")
		return
	}
	if err := h.chartUC.DeleteHeader(r.Context(), id); err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *LedgerRestHandler) HeaderBalance(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid header id")
		return
	}
	balance, err := h.chartUC.HeaderBalance(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"header_id": id, "balance": balance})
}

type accountJSON struct {
	Name        string `json:"name"`
	ParentID    int64  `json:"parent_id"`
	Bank        bool   `json:"bank"`
	Description string `json:"description"`
}

func (h *LedgerRestHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in accountJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.chartUC.CreateAccount(r.Context(), &domain.Account{
		Name:        in.Name,
		ParentID:    in.ParentID,
		Bank:        in.Bank,
		Active:      true,
		Description: in.Description,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

func (h *LedgerRestHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.chartUC.ListAccounts(r.Context())
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

func (h *LedgerRestHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	account, err := h.chartUC.GetAccount(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *LedgerRestHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	existing, err := h.chartUC.GetAccount(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	var in accountJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	existing.Name = in.Name
	existing.ParentID = in.ParentID
	existing.Bank = in.Bank
	existing.Description = in.Description
	account, err := h.chartUC.UpdateAccount(r.Context(), existing)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *LedgerRestHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.chartUC.DeleteAccount(r.Context(), id); err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *LedgerRestHandler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	date, err := queryDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	balance, err := h.chartUC.GetBalanceByDate(r.Context(), id, date)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"date":       date.Format("2006-01-02"),
		"balance":    balance,
	})
}

func (h *LedgerRestHandler) AccountMonthlyChange(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	date, err := queryDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	change, err := h.chartUC.GetBalanceChangeByMonth(r.Context(), id, date)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"month":      date.Format("2006-01"),
		"net_change": change,
	})
}
