package hrest

import (
	"net/http"
	"time"

	"ledger-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LedgerRestHandler exposes the ledger over JSON HTTP.
type LedgerRestHandler struct {
	chartUC  *usecase.ChartUsecase
	entryUC  *usecase.EntryUsecase
	txUC     *usecase.TransactionUsecase
	eventUC  *usecase.EventUsecase
	fiscalUC *usecase.FiscalYearUsecase
	importUC *usecase.BankImportUsecase
}

func NewLedgerRestHandler(
	chartUC *usecase.ChartUsecase,
	entryUC *usecase.EntryUsecase,
	txUC *usecase.TransactionUsecase,
	eventUC *usecase.EventUsecase,
	fiscalUC *usecase.FiscalYearUsecase,
	importUC *usecase.BankImportUsecase,
) *LedgerRestHandler {
	return &LedgerRestHandler{
		chartUC:  chartUC,
		entryUC:  entryUC,
		txUC:     txUC,
		eventUC:  eventUC,
		fiscalUC: fiscalUC,
		importUC: importUC,
	}
}

func (h *LedgerRestHandler) registerRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Route("/headers", func(r chi.Router) {
			r.Post("/", h.CreateHeader)
			r.Get("/", h.ListHeaders)
			r.Put("/{id}", h.UpdateHeader)
			r.Delete("/{id}", h.DeleteHeader)
			r.Get("/{id}/balance", h.HeaderBalance)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/", h.ListAccounts)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Get("/{id}/balance", h.AccountBalance)
			r.Get("/{id}/change", h.AccountMonthlyChange)
			r.Get("/{id}/transactions", h.AccountLedger)
			r.Post("/{id}/reconcile", h.ReconcileAccount)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Post("/general", h.CreateGeneralEntry)
			r.Get("/general/{id}", h.GetGeneralEntry)
			r.Put("/general/{id}", h.UpdateGeneralEntry)
			r.Post("/spending", h.CreateBankSpendingEntry)
			r.Get("/spending/{id}", h.GetBankSpendingEntry)
			r.Put("/spending/{id}", h.UpdateBankSpendingEntry)
			r.Post("/spending/{id}/void", h.VoidBankSpendingEntry)
			r.Post("/receiving", h.CreateBankReceivingEntry)
			r.Get("/receiving/{id}", h.GetBankReceivingEntry)
			r.Post("/transfer", h.CreateTransfer)
		})

		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.CreateEvent)
			r.Get("/", h.ListEvents)
			r.Get("/{id}", h.GetEvent)
			r.Put("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
			r.Get("/{id}/transactions", h.EventLedger)
		})

		r.Route("/fiscal-years", func(r chi.Router) {
			r.Get("/", h.ListFiscalYears)
			r.Post("/close", h.CloseFiscalYear)
			r.Get("/archive/accounts", h.ArchivedAccounts)
			r.Get("/archive/events", h.ArchivedEvents)
		})

		r.Route("/bank-import", func(r chi.Router) {
			r.Get("/banks", h.ListBankAccounts)
			r.Post("/match", h.MatchStatement)
			r.Post("/check-ranges", h.CreateCheckRange)
			r.Get("/check-ranges", h.ListCheckRanges)
			r.Delete("/check-ranges/{id}", h.DeleteCheckRange)
		})

		r.Get("/transactions/{id}", h.GetTransaction)
	})
}

// Start serves the ledger API until the listener fails.
func (h *LedgerRestHandler) Start(addr string) error {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h.registerRoutes(r)

	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}
