package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ledger-service/internal/cache"
	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
	"ledger-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChartUsecase manages the chart of accounts tree, its derived numbering and
// point-in-time balance queries.
type ChartUsecase struct {
	txm          repository.TxManager
	headers      repository.HeaderRepository
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	historical   repository.HistoricalRepository
	cache        *cache.BalanceCache
	logger       *zap.Logger
}

func NewChartUsecase(
	txm repository.TxManager,
	headers repository.HeaderRepository,
	accounts repository.AccountRepository,
	transactions repository.TransactionRepository,
	historical repository.HistoricalRepository,
	balanceCache *cache.BalanceCache,
	logger *zap.Logger,
) *ChartUsecase {
	return &ChartUsecase{
		txm:          txm,
		headers:      headers,
		accounts:     accounts,
		transactions: transactions,
		historical:   historical,
		cache:        balanceCache,
		logger:       logger,
	}
}

// CreateHeader inserts a header, inheriting the type from its parent, and
// renumbers the tree. The insert and the renumbering commit together.
func (uc *ChartUsecase) CreateHeader(ctx context.Context, h *domain.Header) (*domain.Header, error) {
	if h.ParentID != nil {
		parent, err := uc.headers.GetByID(ctx, *h.ParentID)
		if err != nil {
			return nil, err
		}
		h.Type = parent.Type
	}
	if !h.Type.IsValid() {
		return nil, xerrors.ErrMalformedTree
	}
	headers, accounts, err := uc.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.headers.Create(ctx, tx, h); err != nil {
			return err
		}
		return uc.renumber(ctx, tx, append(headers, h), accounts)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateHeader persists a header edit. A reparent that would leave a child
// with a different type fails the renumbering and rolls the edit back.
func (uc *ChartUsecase) UpdateHeader(ctx context.Context, h *domain.Header) (*domain.Header, error) {
	if h.ParentID != nil {
		parent, err := uc.headers.GetByID(ctx, *h.ParentID)
		if err != nil {
			return nil, err
		}
		h.Type = parent.Type
	}
	headers, accounts, err := uc.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	for i, existing := range headers {
		if existing.ID == h.ID {
			headers[i] = h
		}
	}
	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.headers.Update(ctx, tx, h); err != nil {
			return err
		}
		return uc.renumber(ctx, tx, headers, accounts)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// DeleteHeader removes a childless header. Populated headers surface
// ErrHeaderNotEmpty from the storage layer.
func (uc *ChartUsecase) DeleteHeader(ctx context.Context, id int64) error {
	headers, accounts, err := uc.loadTree(ctx)
	if err != nil {
		return err
	}
	kept := headers[:0:0]
	for _, h := range headers {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	return uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.headers.Delete(ctx, tx, id); err != nil {
			return err
		}
		return uc.renumber(ctx, tx, kept, accounts)
	})
}

// CreateAccount inserts an account under a header, inheriting the header's
// type, and renumbers the tree.
func (uc *ChartUsecase) CreateAccount(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	parent, err := uc.headers.GetByID(ctx, a.ParentID)
	if err != nil {
		return nil, err
	}
	a.Type = parent.Type
	headers, accounts, err := uc.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.accounts.Create(ctx, tx, a); err != nil {
			return err
		}
		return uc.renumber(ctx, tx, headers, append(accounts, a))
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAccount persists an account edit. Moving the account under a header
// of another type carries the new type onto the stored row.
func (uc *ChartUsecase) UpdateAccount(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	parent, err := uc.headers.GetByID(ctx, a.ParentID)
	if err != nil {
		return nil, err
	}
	a.Type = parent.Type
	headers, accounts, err := uc.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	for i, existing := range accounts {
		if existing.ID == a.ID {
			accounts[i] = a
		}
	}
	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.accounts.Update(ctx, tx, a); err != nil {
			return err
		}
		return uc.renumber(ctx, tx, headers, accounts)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAccount removes an account that owns no transactions. Referenced
// accounts surface ErrAccountProtected from the storage layer.
func (uc *ChartUsecase) DeleteAccount(ctx context.Context, id int64) error {
	headers, accounts, err := uc.loadTree(ctx)
	if err != nil {
		return err
	}
	kept := accounts[:0:0]
	for _, a := range accounts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	return uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.accounts.Delete(ctx, tx, id); err != nil {
			return err
		}
		return uc.renumber(ctx, tx, headers, kept)
	})
}

func (uc *ChartUsecase) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return uc.accounts.GetByID(ctx, id)
}

func (uc *ChartUsecase) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return uc.accounts.List(ctx)
}

func (uc *ChartUsecase) ListHeaders(ctx context.Context) ([]*domain.Header, error) {
	return uc.headers.List(ctx)
}

func (uc *ChartUsecase) loadTree(ctx context.Context) ([]*domain.Header, []*domain.Account, error) {
	headers, err := uc.headers.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	accounts, err := uc.accounts.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return headers, accounts, nil
}

// renumber recomputes every full number from the given tree snapshot and
// persists the changed ones inside the mutation's transaction. The snapshot
// already carries the pending mutation, so a tree the snapshot makes
// malformed rolls the whole mutation back.
func (uc *ChartUsecase) renumber(ctx context.Context, tx pgx.Tx, headers []*domain.Header, accounts []*domain.Account) error {
	headerNumbers, accountNumbers, err := ComputeFullNumbers(headers, accounts)
	if err != nil {
		return err
	}
	for _, h := range headers {
		if headerNumbers[h.ID] == h.FullNumber {
			delete(headerNumbers, h.ID)
		}
	}
	for _, a := range accounts {
		if accountNumbers[a.ID] == a.FullNumber {
			delete(accountNumbers, a.ID)
		}
	}
	if len(headerNumbers) > 0 {
		if err := uc.headers.UpdateFullNumbers(ctx, tx, headerNumbers); err != nil {
			return err
		}
	}
	if len(accountNumbers) > 0 {
		if err := uc.accounts.UpdateFullNumbers(ctx, tx, accountNumbers); err != nil {
			return err
		}
	}
	return nil
}

// ComputeFullNumbers derives the full number for every header and account
// from tree position. A root header's number is its type's two-digit prefix
// (Asset "10", Liability "20", ...); each level below appends a two-digit
// segment for the node's position among its name-ordered siblings.
func ComputeFullNumbers(headers []*domain.Header, accounts []*domain.Account) (map[int64]string, map[int64]string, error) {
	byID := make(map[int64]*domain.Header, len(headers))
	children := make(map[int64][]*domain.Header)
	var roots []*domain.Header
	for _, h := range headers {
		byID[h.ID] = h
	}
	for _, h := range headers {
		if h.ParentID == nil {
			roots = append(roots, h)
			continue
		}
		if _, ok := byID[*h.ParentID]; !ok {
			return nil, nil, fmt.Errorf("header %q: parent %d missing: %w",
				h.Name, *h.ParentID, xerrors.ErrMalformedTree)
		}
		children[*h.ParentID] = append(children[*h.ParentID], h)
	}
	accountsByHeader := make(map[int64][]*domain.Account)
	for _, a := range accounts {
		if _, ok := byID[a.ParentID]; !ok {
			return nil, nil, fmt.Errorf("account %q: header %d missing: %w",
				a.Name, a.ParentID, xerrors.ErrMalformedTree)
		}
		accountsByHeader[a.ParentID] = append(accountsByHeader[a.ParentID], a)
	}

	sortHeaders := func(hs []*domain.Header) {
		sort.Slice(hs, func(i, j int) bool { return hs[i].Name < hs[j].Name })
	}
	sortHeaders(roots)
	for _, hs := range children {
		sortHeaders(hs)
	}
	for _, as := range accountsByHeader {
		sort.Slice(as, func(i, j int) bool { return as[i].Name < as[j].Name })
	}

	headerNumbers := make(map[int64]string, len(headers))
	accountNumbers := make(map[int64]string, len(accounts))

	var walk func(h *domain.Header, prefix string) error
	walk = func(h *domain.Header, prefix string) error {
		headerNumbers[h.ID] = prefix
		for i, child := range children[h.ID] {
			if child.Type != h.Type {
				return fmt.Errorf("header %q: type differs from parent: %w",
					child.Name, xerrors.ErrMalformedTree)
			}
			if err := walk(child, fmt.Sprintf("%s%02d", prefix, i+1)); err != nil {
				return err
			}
		}
		for i, a := range accountsByHeader[h.ID] {
			if a.Type != h.Type {
				return fmt.Errorf("account %q: type differs from header: %w",
					a.Name, xerrors.ErrMalformedTree)
			}
			accountNumbers[a.ID] = fmt.Sprintf("%s%02d", prefix, i+1)
		}
		return nil
	}
	for _, root := range roots {
		if !root.Type.IsValid() {
			return nil, nil, fmt.Errorf("header %q: no resolvable type: %w",
				root.Name, xerrors.ErrMalformedTree)
		}
		if err := walk(root, fmt.Sprintf("%02d", int(root.Type)*10)); err != nil {
			return nil, nil, err
		}
	}
	// A cycle leaves its members unreachable from any root.
	if len(headerNumbers) != len(headers) {
		return nil, nil, fmt.Errorf("unreachable headers in tree: %w", xerrors.ErrMalformedTree)
	}
	return headerNumbers, accountNumbers, nil
}

// GetBalanceByDate reconstructs the account's balance at the end of the
// given date, in the raw credit/debit sign. For stock accounts it is the
// latest archived snapshot plus deltas since; for flow accounts, and for any
// account with no snapshot, it is the sum of deltas alone. The Current Year
// Earnings account is a pseudo-balance summing every flow account.
func (uc *ChartUsecase) GetBalanceByDate(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, error) {
	account, err := uc.accounts.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if account.Name == domain.CurrentYearEarningsName {
		return uc.transactions.SumDeltasForTypesThrough(ctx, domain.FlowTypes, date)
	}

	if balance, ok := uc.cache.GetBalance(ctx, accountID, date); ok {
		return balance, nil
	}

	snapshot, err := uc.historical.LatestForAccountOnOrBefore(ctx, accountID, date)
	if err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	switch {
	case snapshot == nil:
		balance, err = uc.transactions.SumDeltasThrough(ctx, accountID, date)
	case account.Type.IsStock():
		// Snapshot amounts cover through the end of their month.
		var delta decimal.Decimal
		from := domain.MonthEnd(snapshot.Date).AddDate(0, 0, 1)
		delta, err = uc.transactions.SumDeltasInRange(ctx, accountID, from, date)
		balance = snapshot.RawAmount().Add(delta)
	default:
		// Flow accounts report net change since the archived period.
		from := domain.MonthEnd(snapshot.Date).AddDate(0, 0, 1)
		balance, err = uc.transactions.SumDeltasInRange(ctx, accountID, from, date)
	}
	if err != nil {
		return decimal.Zero, err
	}

	uc.cache.SetBalance(ctx, accountID, date, balance)
	return balance, nil
}

// GetBalanceChangeByMonth sums the account's deltas within the calendar
// month of the given date, in the raw sign.
func (uc *ChartUsecase) GetBalanceChangeByMonth(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, error) {
	account, err := uc.accounts.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	first := domain.FirstOfMonth(date)
	last := domain.MonthEnd(date)
	if account.Name == domain.CurrentYearEarningsName {
		return uc.transactions.SumDeltasForTypesInRange(ctx, domain.FlowTypes, first, last)
	}
	return uc.transactions.SumDeltasInRange(ctx, accountID, first, last)
}

// HeaderBalance sums the display-sign value balance of every account in the
// header's subtree.
func (uc *ChartUsecase) HeaderBalance(ctx context.Context, headerID int64) (decimal.Decimal, error) {
	if _, err := uc.headers.GetByID(ctx, headerID); err != nil {
		return decimal.Zero, err
	}
	headers, err := uc.headers.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	accounts, err := uc.accounts.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	children := make(map[int64][]int64)
	for _, h := range headers {
		if h.ParentID != nil {
			children[*h.ParentID] = append(children[*h.ParentID], h.ID)
		}
	}
	accountsByHeader := make(map[int64][]*domain.Account)
	var flowTotal decimal.Decimal
	for _, a := range accounts {
		accountsByHeader[a.ParentID] = append(accountsByHeader[a.ParentID], a)
		if !a.Type.IsStock() {
			flowTotal = flowTotal.Add(a.Balance)
		}
	}

	balance := decimal.Zero
	stack := []int64{headerID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, children[id]...)
		for _, a := range accountsByHeader[id] {
			if a.Name == domain.CurrentYearEarningsName {
				balance = balance.Add(flowTotal)
				continue
			}
			balance = balance.Add(a.ValueBalance())
		}
	}
	return balance, nil
}
