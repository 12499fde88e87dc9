package hrest

import (
	"encoding/json"
	"net/http"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/usecase"

	"github.com/shopspring/decimal"
)

type eventJSON struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Date         string `json:"date"`
	City         string `json:"city"`
	State        string `json:"state"`
}

func (in eventJSON) toDomain(id int64) (*domain.Event, error) {
	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return nil, err
	}
	return &domain.Event{
		ID:           id,
		Name:         in.Name,
		Abbreviation: in.Abbreviation,
		Date:         date,
		City:         in.City,
		State:        in.State,
	}, nil
}

func (h *LedgerRestHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in eventJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	event, err := in.toDomain(0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	event, err = h.eventUC.Create(r.Context(), event)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

func (h *LedgerRestHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventUC.List(r.Context())
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *LedgerRestHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	event, err := h.eventUC.Get(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (h *LedgerRestHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var in eventJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	event, err := in.toDomain(id)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	event, err = h.eventUC.Update(r.Context(), event)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (h *LedgerRestHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if err := h.eventUC.Delete(r.Context(), id); err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *LedgerRestHandler) EventLedger(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	transactions, totals, err := h.txUC.EventLedger(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": transactions,
		"totals":       totals,
	})
}

func (h *LedgerRestHandler) AccountLedger(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	transactions, totals, err := h.txUC.AccountLedger(r.Context(), id, limit, offset)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": transactions,
		"totals":       totals,
	})
}

type reconcileJSON struct {
	StatementDate    string  `json:"statement_date"`
	StatementBalance string  `json:"statement_balance"`
	TransactionIDs   []int64 `json:"transaction_ids"`
}

func (h *LedgerRestHandler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var in reconcileJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := time.Parse("2006-01-02", in.StatementDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid statement_date, expected YYYY-MM-DD")
		return
	}
	balance, err := decimal.NewFromString(in.StatementBalance)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid statement_balance")
		return
	}
	account, err := h.txUC.ReconcileAccount(r.Context(), usecase.ReconcileInput{
		AccountID:        id,
		StatementDate:    date,
		StatementBalance: balance,
		TransactionIDs:   in.TransactionIDs,
	})
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *LedgerRestHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	t, err := h.txUC.Get(r.Context(), id)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	final, err := h.txUC.FinalBalance(r.Context(), t)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	initial, err := h.txUC.InitialBalance(r.Context(), t)
	if err != nil {
		respondUsecaseError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction":     t,
		"initial_balance": initial,
		"final_balance":   final,
	})
}
