package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/pub"
	"ledger-service/internal/repository"
	"ledger-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fakeTx satisfies pgx.Tx for the repositories' nil-transaction guards; none
// of its methods are ever called.
type fakeTx struct{ pgx.Tx }

// fakeTxManager runs the callbacks directly; the fake store has no real
// transactions to roll back.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(fakeTx{})
}

func (fakeTxManager) WithSerializableTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(fakeTx{})
}

// requireTx mirrors the real repositories, which reject writes outside a
// transaction.
func requireTx(tx pgx.Tx) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	return nil
}

// fakeStore is an in-memory implementation of every repository interface,
// shared by the usecase tests.
type fakeStore struct {
	headers      map[int64]*domain.Header
	accounts     map[int64]*domain.Account
	transactions map[int64]*domain.Transaction
	general      map[int64]*domain.JournalEntry
	spending     map[int64]*domain.BankSpendingEntry
	receiving    map[int64]*domain.BankReceivingEntry
	events       map[int64]*domain.Event
	histAccounts []*domain.HistoricalAccount
	histEvents   []*domain.HistoricalEvent
	years        []*domain.FiscalYear
	ranges       []*domain.CheckRange
	nextID       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		headers:      make(map[int64]*domain.Header),
		accounts:     make(map[int64]*domain.Account),
		transactions: make(map[int64]*domain.Transaction),
		general:      make(map[int64]*domain.JournalEntry),
		spending:     make(map[int64]*domain.BankSpendingEntry),
		receiving:    make(map[int64]*domain.BankReceivingEntry),
		events:       make(map[int64]*domain.Event),
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

// --- HeaderRepository ---

func (s *fakeStore) Create(ctx context.Context, tx pgx.Tx, h *domain.Header) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	h.ID = s.id()
	s.headers[h.ID] = h
	return nil
}

func (s *fakeStore) Update(ctx context.Context, tx pgx.Tx, h *domain.Header) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := s.headers[h.ID]; !ok {
		return xerrors.ErrNotFound
	}
	s.headers[h.ID] = h
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*domain.Header, error) {
	h, ok := s.headers[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return h, nil
}

func (s *fakeStore) List(ctx context.Context) ([]*domain.Header, error) {
	var headers []*domain.Header
	for _, h := range s.headers {
		headers = append(headers, h)
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].Name < headers[j].Name })
	return headers, nil
}

func (s *fakeStore) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := s.headers[id]; !ok {
		return xerrors.ErrNotFound
	}
	for _, h := range s.headers {
		if h.ParentID != nil && *h.ParentID == id {
			return xerrors.ErrHeaderNotEmpty
		}
	}
	for _, a := range s.accounts {
		if a.ParentID == id {
			return xerrors.ErrHeaderNotEmpty
		}
	}
	delete(s.headers, id)
	return nil
}

func (s *fakeStore) UpdateFullNumbers(ctx context.Context, tx pgx.Tx, numbers map[int64]string) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	for id, number := range numbers {
		if h, ok := s.headers[id]; ok {
			h.FullNumber = number
		}
	}
	return nil
}

// headerRepo/accountRepo adapters let one fakeStore satisfy both
// interfaces despite the clashing method sets.

type fakeHeaderRepo struct{ *fakeStore }

type fakeAccountRepo struct{ *fakeStore }

func (r fakeAccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	a.ID = r.fakeStore.id()
	r.accounts[a.ID] = a
	return nil
}

func (r fakeAccountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.accounts[a.ID]; !ok {
		return xerrors.ErrNotFound
	}
	r.accounts[a.ID] = a
	return nil
}

func (r fakeAccountRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return a, nil
}

func (r fakeAccountRepo) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (r fakeAccountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	var accounts []*domain.Account
	for _, a := range r.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (r fakeAccountRepo) ListByTypes(ctx context.Context, types []domain.AccountType) ([]*domain.Account, error) {
	all, _ := r.List(ctx)
	var matched []*domain.Account
	for _, a := range all {
		for _, t := range types {
			if a.Type == t {
				matched = append(matched, a)
				break
			}
		}
	}
	return matched, nil
}

func (r fakeAccountRepo) ListBanks(ctx context.Context) ([]*domain.Account, error) {
	all, _ := r.List(ctx)
	var banks []*domain.Account
	for _, a := range all {
		if a.Bank {
			banks = append(banks, a)
		}
	}
	return banks, nil
}

func (r fakeAccountRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.accounts[id]; !ok {
		return xerrors.ErrNotFound
	}
	for _, t := range r.transactions {
		if t.AccountID == id {
			return xerrors.ErrAccountProtected
		}
	}
	delete(r.accounts, id)
	return nil
}

func (r fakeAccountRepo) UpdateFullNumbers(ctx context.Context, tx pgx.Tx, numbers map[int64]string) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	for id, number := range numbers {
		if a, ok := r.accounts[id]; ok {
			a.FullNumber = number
		}
	}
	return nil
}

func (r fakeAccountRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, accountID int64, delta decimal.Decimal) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	a, ok := r.accounts[accountID]
	if !ok {
		return xerrors.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	return nil
}

func (r fakeAccountRepo) SetBalance(ctx context.Context, tx pgx.Tx, accountID int64, balance decimal.Decimal) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	a, ok := r.accounts[accountID]
	if !ok {
		return xerrors.ErrNotFound
	}
	a.Balance = balance
	return nil
}

func (r fakeAccountRepo) SetReconciled(ctx context.Context, tx pgx.Tx, accountID int64, balance decimal.Decimal, date time.Time) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	a, ok := r.accounts[accountID]
	if !ok {
		return xerrors.ErrNotFound
	}
	a.ReconciledBalance = balance
	d := date
	a.LastReconciled = &d
	return nil
}

// --- TransactionRepository ---

type fakeTransactionRepo struct{ *fakeStore }

func (r fakeTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	t.ID = r.fakeStore.id()
	r.transactions[t.ID] = t
	return nil
}

func (r fakeTransactionRepo) Update(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.transactions[t.ID]; !ok {
		return xerrors.ErrNotFound
	}
	r.transactions[t.ID] = t
	return nil
}

func (r fakeTransactionRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.transactions[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(r.transactions, id)
	return nil
}

func (r fakeTransactionRepo) DeleteByEntry(ctx context.Context, tx pgx.Tx, ref domain.EntryRef) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	for id, t := range r.transactions {
		if t.Owner == ref {
			delete(r.transactions, id)
		}
	}
	return nil
}

func (r fakeTransactionRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	t, ok := r.transactions[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return t, nil
}

func (r fakeTransactionRepo) all() []*domain.Transaction {
	var transactions []*domain.Transaction
	for _, t := range r.transactions {
		transactions = append(transactions, t)
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[j].Newer(transactions[i])
	})
	return transactions
}

func (r fakeTransactionRepo) ListByEntry(ctx context.Context, ref domain.EntryRef) ([]*domain.Transaction, error) {
	var matched []*domain.Transaction
	for _, t := range r.all() {
		if t.Owner == ref {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func (r fakeTransactionRepo) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, error) {
	var matched []*domain.Transaction
	for _, t := range r.all() {
		if t.AccountID == accountID {
			matched = append(matched, t)
		}
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r fakeTransactionRepo) ListByEvent(ctx context.Context, eventID int64) ([]*domain.Transaction, error) {
	var matched []*domain.Transaction
	for _, t := range r.all() {
		if t.EventID != nil && *t.EventID == eventID {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func (r fakeTransactionRepo) ListUnreconciledByAccounts(ctx context.Context, accountIDs []int64) ([]*domain.Transaction, error) {
	ids := make(map[int64]bool, len(accountIDs))
	for _, id := range accountIDs {
		ids[id] = true
	}
	var matched []*domain.Transaction
	for _, t := range r.all() {
		if ids[t.AccountID] && !t.Reconciled {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func (r fakeTransactionRepo) SumDeltasThrough(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range r.transactions {
		if t.AccountID == accountID && !t.Date.After(date) {
			sum = sum.Add(t.BalanceDelta)
		}
	}
	return sum, nil
}

func (r fakeTransactionRepo) SumDeltasAfter(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range r.transactions {
		if t.AccountID == accountID && t.Date.After(date) {
			sum = sum.Add(t.BalanceDelta)
		}
	}
	return sum, nil
}

func (r fakeTransactionRepo) SumDeltasInRange(ctx context.Context, accountID int64, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range r.transactions {
		if t.AccountID == accountID && !t.Date.Before(from) && !t.Date.After(to) {
			sum = sum.Add(t.BalanceDelta)
		}
	}
	return sum, nil
}

func (r fakeTransactionRepo) SumDeltasNewerThan(ctx context.Context, accountID int64, date time.Time, id int64) (decimal.Decimal, error) {
	pivot := &domain.Transaction{ID: id, Date: date}
	sum := decimal.Zero
	for _, t := range r.transactions {
		if t.AccountID == accountID && t.Newer(pivot) {
			sum = sum.Add(t.BalanceDelta)
		}
	}
	return sum, nil
}

func (r fakeTransactionRepo) SumDeltasForTypesThrough(ctx context.Context, types []domain.AccountType, date time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range r.transactions {
		if r.typeMatches(t.AccountID, types) && !t.Date.After(date) {
			sum = sum.Add(t.BalanceDelta)
		}
	}
	return sum, nil
}

func (r fakeTransactionRepo) SumDeltasForTypesInRange(ctx context.Context, types []domain.AccountType, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range r.transactions {
		if r.typeMatches(t.AccountID, types) && !t.Date.Before(from) && !t.Date.After(to) {
			sum = sum.Add(t.BalanceDelta)
		}
	}
	return sum, nil
}

func (r fakeTransactionRepo) typeMatches(accountID int64, types []domain.AccountType) bool {
	a, ok := r.accounts[accountID]
	if !ok {
		return false
	}
	for _, t := range types {
		if a.Type == t {
			return true
		}
	}
	return false
}

func (r fakeTransactionRepo) ExistsInMonth(ctx context.Context, year int, month time.Month) (bool, error) {
	for _, t := range r.transactions {
		if t.Date.Year() == year && t.Date.Month() == month {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeTransactionRepo) UpdateDatesForEntry(ctx context.Context, tx pgx.Tx, ref domain.EntryRef, date time.Time) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	for _, t := range r.transactions {
		if t.Owner == ref {
			t.Date = date
		}
	}
	return nil
}

func (r fakeTransactionRepo) ListByCheckNumber(ctx context.Context, accountID int64, delta decimal.Decimal, checkNumber string) ([]*domain.Transaction, error) {
	var matched []*domain.Transaction
	for _, e := range r.spending {
		if e.AccountID != accountID || e.CheckNumber != checkNumber {
			continue
		}
		if t, ok := r.transactions[e.MainTransactionID]; ok && t.BalanceDelta.Equal(delta) && !t.Reconciled {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[j].Newer(matched[i]) })
	return matched, nil
}

func (r fakeTransactionRepo) ListForMatching(ctx context.Context, accountID int64, delta decimal.Decimal, from, to time.Time) ([]*domain.Transaction, error) {
	var matched []*domain.Transaction
	for _, t := range r.all() {
		if t.AccountID == accountID && t.BalanceDelta.Equal(delta) && !t.Reconciled &&
			!t.Date.Before(from) && !t.Date.After(to) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func (r fakeTransactionRepo) MarkReconciled(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	for _, id := range ids {
		t, ok := r.transactions[id]
		if !ok {
			return xerrors.ErrNotFound
		}
		t.Reconciled = true
	}
	return nil
}

// --- EntryRepository ---

type fakeEntryRepo struct{ *fakeStore }

func (r fakeEntryRepo) CreateGeneral(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	e.ID = r.fakeStore.id()
	r.general[e.ID] = e
	return nil
}

func (r fakeEntryRepo) UpdateGeneral(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.general[e.ID]; !ok {
		return xerrors.ErrNotFound
	}
	r.general[e.ID] = e
	return nil
}

func (r fakeEntryRepo) GetGeneral(ctx context.Context, id int64) (*domain.JournalEntry, error) {
	e, ok := r.general[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return e, nil
}

func (r fakeEntryRepo) DeleteGeneral(ctx context.Context, tx pgx.Tx, id int64) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.general[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(r.general, id)
	return nil
}

func (r fakeEntryRepo) ListGeneralThrough(ctx context.Context, date time.Time) ([]*domain.JournalEntry, error) {
	var matched []*domain.JournalEntry
	for _, e := range r.general {
		if !e.Date.After(date) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (r fakeEntryRepo) CreateBankSpending(ctx context.Context, tx pgx.Tx, e *domain.BankSpendingEntry) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if e.CheckNumber != "" {
		for _, other := range r.spending {
			if other.AccountID == e.AccountID && other.CheckNumber == e.CheckNumber {
				return xerrors.ErrDuplicateCheckNumber
			}
		}
	}
	e.ID = r.fakeStore.id()
	r.spending[e.ID] = e
	return nil
}

func (r fakeEntryRepo) UpdateBankSpending(ctx context.Context, tx pgx.Tx, e *domain.BankSpendingEntry) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.spending[e.ID]; !ok {
		return xerrors.ErrNotFound
	}
	r.spending[e.ID] = e
	return nil
}

func (r fakeEntryRepo) GetBankSpending(ctx context.Context, id int64) (*domain.BankSpendingEntry, error) {
	e, ok := r.spending[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return e, nil
}

func (r fakeEntryRepo) DeleteBankSpending(ctx context.Context, tx pgx.Tx, id int64) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.spending[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(r.spending, id)
	return nil
}

func (r fakeEntryRepo) ListBankSpendingThrough(ctx context.Context, date time.Time) ([]*domain.BankSpendingEntry, error) {
	var matched []*domain.BankSpendingEntry
	for _, e := range r.spending {
		if !e.Date.After(date) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (r fakeEntryRepo) CheckNumberInUse(ctx context.Context, accountID int64, checkNumber string, excludeEntryID int64) (bool, error) {
	for _, e := range r.spending {
		if e.AccountID == accountID && e.CheckNumber == checkNumber && e.ID != excludeEntryID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeEntryRepo) CreateBankReceiving(ctx context.Context, tx pgx.Tx, e *domain.BankReceivingEntry) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	e.ID = r.fakeStore.id()
	r.receiving[e.ID] = e
	return nil
}

func (r fakeEntryRepo) UpdateBankReceiving(ctx context.Context, tx pgx.Tx, e *domain.BankReceivingEntry) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.receiving[e.ID]; !ok {
		return xerrors.ErrNotFound
	}
	r.receiving[e.ID] = e
	return nil
}

func (r fakeEntryRepo) GetBankReceiving(ctx context.Context, id int64) (*domain.BankReceivingEntry, error) {
	e, ok := r.receiving[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return e, nil
}

func (r fakeEntryRepo) DeleteBankReceiving(ctx context.Context, tx pgx.Tx, id int64) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.receiving[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(r.receiving, id)
	return nil
}

func (r fakeEntryRepo) ListBankReceivingThrough(ctx context.Context, date time.Time) ([]*domain.BankReceivingEntry, error) {
	var matched []*domain.BankReceivingEntry
	for _, e := range r.receiving {
		if !e.Date.After(date) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (r fakeEntryRepo) SuggestSpendingByMemo(ctx context.Context, memo string, day int) (*repository.EntrySuggestion, error) {
	transactions := fakeTransactionRepo{r.fakeStore}
	var newest *domain.BankSpendingEntry
	for _, e := range r.spending {
		if !strings.Contains(strings.ToLower(e.Memo), strings.ToLower(memo)) {
			continue
		}
		if day != 0 && e.Date.Day() != day {
			continue
		}
		lines, _ := transactions.ListByEntry(ctx, domain.EntryRef{Kind: domain.KindBankSpending, ID: e.ID})
		if len(lines) != 1 {
			continue
		}
		if newest == nil || e.Date.After(newest.Date) {
			newest = e
		}
	}
	if newest == nil {
		return nil, nil
	}
	lines, _ := transactions.ListByEntry(ctx, domain.EntryRef{Kind: domain.KindBankSpending, ID: newest.ID})
	return &repository.EntrySuggestion{AccountID: lines[0].AccountID, Counterparty: newest.Payee}, nil
}

func (r fakeEntryRepo) SuggestReceivingByMemo(ctx context.Context, memo string, day int) (*repository.EntrySuggestion, error) {
	transactions := fakeTransactionRepo{r.fakeStore}
	var newest *domain.BankReceivingEntry
	for _, e := range r.receiving {
		if !strings.Contains(strings.ToLower(e.Memo), strings.ToLower(memo)) {
			continue
		}
		if day != 0 && e.Date.Day() != day {
			continue
		}
		lines, _ := transactions.ListByEntry(ctx, domain.EntryRef{Kind: domain.KindBankReceiving, ID: e.ID})
		if len(lines) != 1 {
			continue
		}
		if newest == nil || e.Date.After(newest.Date) {
			newest = e
		}
	}
	if newest == nil {
		return nil, nil
	}
	lines, _ := transactions.ListByEntry(ctx, domain.EntryRef{Kind: domain.KindBankReceiving, ID: newest.ID})
	return &repository.EntrySuggestion{AccountID: lines[0].AccountID, Counterparty: newest.Payor}, nil
}

// --- EventRepository ---

type fakeEventRepo struct{ *fakeStore }

func (r fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	e.ID = r.fakeStore.id()
	e.Number = e.GenerateNumber()
	r.events[e.ID] = e
	return nil
}

func (r fakeEventRepo) Update(ctx context.Context, e *domain.Event) error {
	if _, ok := r.events[e.ID]; !ok {
		return xerrors.ErrNotFound
	}
	e.Number = e.GenerateNumber()
	r.events[e.ID] = e
	return nil
}

func (r fakeEventRepo) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return e, nil
}

func (r fakeEventRepo) List(ctx context.Context) ([]*domain.Event, error) {
	var events []*domain.Event
	for _, e := range r.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (r fakeEventRepo) ListThrough(ctx context.Context, date time.Time) ([]*domain.Event, error) {
	all, _ := r.List(ctx)
	var matched []*domain.Event
	for _, e := range all {
		if !e.Date.After(date) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func (r fakeEventRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	if _, ok := r.events[id]; !ok {
		return xerrors.ErrNotFound
	}
	for _, t := range r.transactions {
		if t.EventID != nil && *t.EventID == id {
			t.EventID = nil
		}
	}
	delete(r.events, id)
	return nil
}

// --- HistoricalRepository ---

type fakeHistoricalRepo struct{ *fakeStore }

func (r fakeHistoricalRepo) InsertAccounts(ctx context.Context, tx pgx.Tx, snapshots []*domain.HistoricalAccount) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	for _, s := range snapshots {
		s.ID = r.fakeStore.id()
		r.fakeStore.histAccounts = append(r.fakeStore.histAccounts, s)
	}
	return nil
}

func (r fakeHistoricalRepo) InsertEvent(ctx context.Context, tx pgx.Tx, he *domain.HistoricalEvent) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	he.ID = r.fakeStore.id()
	r.fakeStore.histEvents = append(r.fakeStore.histEvents, he)
	return nil
}

func (r fakeHistoricalRepo) LatestForAccountOnOrBefore(ctx context.Context, accountID int64, date time.Time) (*domain.HistoricalAccount, error) {
	var latest *domain.HistoricalAccount
	for _, s := range r.histAccounts {
		if s.AccountID == nil || *s.AccountID != accountID || s.Date.After(date) {
			continue
		}
		if latest == nil || s.Date.After(latest.Date) {
			latest = s
		}
	}
	return latest, nil
}

func (r fakeHistoricalRepo) ListAccountsByMonth(ctx context.Context, date time.Time) ([]*domain.HistoricalAccount, error) {
	month := domain.FirstOfMonth(date)
	var matched []*domain.HistoricalAccount
	for _, s := range r.histAccounts {
		if domain.FirstOfMonth(s.Date).Equal(month) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Number < matched[j].Number })
	return matched, nil
}

func (r fakeHistoricalRepo) ListEvents(ctx context.Context) ([]*domain.HistoricalEvent, error) {
	return r.histEvents, nil
}

// --- FiscalYearRepository ---

type fakeFiscalYearRepo struct{ *fakeStore }

func (r fakeFiscalYearRepo) Create(ctx context.Context, tx pgx.Tx, fy *domain.FiscalYear) error {
	if err := requireTx(tx); err != nil {
		return err
	}
	fy.ID = r.fakeStore.id()
	r.fakeStore.years = append(r.fakeStore.years, fy)
	return nil
}

func (r fakeFiscalYearRepo) latestFirst() []*domain.FiscalYear {
	years := append([]*domain.FiscalYear(nil), r.years...)
	sort.Slice(years, func(i, j int) bool { return years[i].Date.After(years[j].Date) })
	return years
}

func (r fakeFiscalYearRepo) LatestTwo(ctx context.Context) ([]*domain.FiscalYear, error) {
	years := r.latestFirst()
	if len(years) > 2 {
		years = years[:2]
	}
	return years, nil
}

func (r fakeFiscalYearRepo) List(ctx context.Context) ([]*domain.FiscalYear, error) {
	return r.latestFirst(), nil
}

// --- CheckRangeRepository ---

type fakeCheckRangeRepo struct{ *fakeStore }

func (r fakeCheckRangeRepo) Create(ctx context.Context, cr *domain.CheckRange) error {
	cr.ID = r.fakeStore.id()
	r.fakeStore.ranges = append(r.fakeStore.ranges, cr)
	return nil
}

func (r fakeCheckRangeRepo) Delete(ctx context.Context, id int64) error {
	for i, cr := range r.ranges {
		if cr.ID == id {
			r.fakeStore.ranges = append(r.fakeStore.ranges[:i], r.fakeStore.ranges[i+1:]...)
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (r fakeCheckRangeRepo) ListByBankAccount(ctx context.Context, bankAccountID int64) ([]*domain.CheckRange, error) {
	var matched []*domain.CheckRange
	for _, cr := range r.ranges {
		if cr.BankAccountID == bankAccountID {
			matched = append(matched, cr)
		}
	}
	return matched, nil
}

func (r fakeCheckRangeRepo) FindForCheck(ctx context.Context, bankAccountID int64, checkNumber int) (*domain.CheckRange, error) {
	for _, cr := range r.ranges {
		if cr.BankAccountID == bankAccountID && cr.Contains(checkNumber) {
			return cr, nil
		}
	}
	return nil, nil
}

// testEnv wires every usecase against one shared fake store.
type testEnv struct {
	store   *fakeStore
	chart   *ChartUsecase
	entries *EntryUsecase
	years   *FiscalYearUsecase
	imports *BankImportUsecase
	ledger  *TransactionUsecase
	events  *EventUsecase
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	logger := zap.NewNop()
	chart := NewChartUsecase(
		fakeTxManager{}, fakeHeaderRepo{store}, fakeAccountRepo{store},
		fakeTransactionRepo{store}, fakeHistoricalRepo{store}, nil, logger,
	)
	entries := NewEntryUsecase(
		fakeTxManager{}, fakeAccountRepo{store}, fakeTransactionRepo{store},
		fakeEntryRepo{store}, fakeFiscalYearRepo{store}, nil, pub.NopPublisher{}, logger,
	)
	years := NewFiscalYearUsecase(
		fakeTxManager{}, chart, fakeAccountRepo{store}, fakeTransactionRepo{store},
		fakeEntryRepo{store}, fakeEventRepo{store}, fakeHistoricalRepo{store},
		fakeFiscalYearRepo{store}, nil, pub.NopPublisher{}, logger,
	)
	imports := NewBankImportUsecase(
		fakeAccountRepo{store}, fakeTransactionRepo{store}, fakeEntryRepo{store},
		fakeCheckRangeRepo{store}, logger,
	)
	ledger := NewTransactionUsecase(fakeTxManager{}, fakeAccountRepo{store}, fakeTransactionRepo{store})
	events := NewEventUsecase(fakeTxManager{}, fakeEventRepo{store})
	return &testEnv{
		store:   store,
		chart:   chart,
		entries: entries,
		years:   years,
		imports: imports,
		ledger:  ledger,
		events:  events,
	}
}

// addHeader seeds a header directly, without renumbering.
func (env *testEnv) addHeader(name string, typ domain.AccountType, parentID *int64) *domain.Header {
	h := &domain.Header{Name: name, Type: typ, ParentID: parentID, Active: true}
	h.ID = env.store.id()
	env.store.headers[h.ID] = h
	return h
}

// addAccount seeds an account directly, bypassing the chart tree.
func (env *testEnv) addAccount(name string, typ domain.AccountType, bank bool) *domain.Account {
	a := &domain.Account{
		Name:    name,
		Type:    typ,
		Balance: decimal.Zero,
		Bank:    bank,
		Active:  true,
	}
	a.ID = env.store.id()
	env.store.accounts[a.ID] = a
	return a
}

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
