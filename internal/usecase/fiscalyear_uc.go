package usecase

import (
	"context"
	"time"

	"ledger-service/internal/cache"
	"ledger-service/internal/domain"
	"ledger-service/internal/pub"
	"ledger-service/internal/repository"
	"ledger-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FiscalYearUsecase starts new fiscal years and performs the end-of-period
// close: monthly snapshots, event archival, entry purge and the earnings
// rollover, all inside one serializable storage transaction.
type FiscalYearUsecase struct {
	txm          repository.TxManager
	chart        *ChartUsecase
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	entries      repository.EntryRepository
	events       repository.EventRepository
	historical   repository.HistoricalRepository
	fiscalYears  repository.FiscalYearRepository
	cache        *cache.BalanceCache
	publisher    pub.Publisher
	logger       *zap.Logger
}

func NewFiscalYearUsecase(
	txm repository.TxManager,
	chart *ChartUsecase,
	accounts repository.AccountRepository,
	transactions repository.TransactionRepository,
	entries repository.EntryRepository,
	events repository.EventRepository,
	historical repository.HistoricalRepository,
	fiscalYears repository.FiscalYearRepository,
	balanceCache *cache.BalanceCache,
	publisher pub.Publisher,
	logger *zap.Logger,
) *FiscalYearUsecase {
	return &FiscalYearUsecase{
		txm:          txm,
		chart:        chart,
		accounts:     accounts,
		transactions: transactions,
		entries:      entries,
		events:       events,
		historical:   historical,
		fiscalYears:  fiscalYears,
		cache:        balanceCache,
		publisher:    publisher,
		logger:       logger,
	}
}

func (uc *FiscalYearUsecase) List(ctx context.Context) ([]*domain.FiscalYear, error) {
	return uc.fiscalYears.List(ctx)
}

// CloseYear validates and starts a new fiscal year. When a previous year
// exists it archives that year's monthly balances and events, purges every
// entry not protected by an excluded account, rebuilds account balances and
// rolls Current Year Earnings into Retained Earnings.
//
// Validation happens before any write. The mutating steps run in a single
// serializable transaction; a failure at any point rolls back the whole
// close.
func (uc *FiscalYearUsecase) CloseYear(ctx context.Context, year int, endMonth time.Month, period int, excludedAccountIDs []int64) (*domain.FiscalYear, error) {
	if period != 12 && period != 13 {
		return nil, xerrors.ErrInvalidPeriod
	}
	newYear := domain.NewFiscalYear(year, endMonth, period)

	latest, err := uc.fiscalYears.LatestTwo(ctx)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
			return uc.fiscalYears.Create(ctx, tx, newYear)
		})
		if err != nil {
			return nil, err
		}
		uc.logger.Info("first fiscal year started", zap.Int("year", year))
		return newYear, nil
	}

	previous := latest[0]
	if err := uc.validateNewYear(ctx, newYear, previous); err != nil {
		return nil, err
	}

	startOfPrevious := domain.StartOfCurrentYear(latest)
	endOfPrevious := previous.EndDate()

	var purged int
	err = uc.txm.WithSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := uc.archiveEvents(ctx, tx, endOfPrevious); err != nil {
			return err
		}
		snapshots, err := uc.archiveMonthlyBalances(ctx, tx, startOfPrevious, endOfPrevious)
		if err != nil {
			return err
		}
		excluded, err := uc.excludedTransactionIDs(ctx, excludedAccountIDs)
		if err != nil {
			return err
		}
		purged, err = uc.purgeEntries(ctx, tx, endOfPrevious, excluded)
		if err != nil {
			return err
		}
		if err := uc.rebuildBalances(ctx, tx, endOfPrevious, snapshots); err != nil {
			return err
		}
		if err := uc.transferEarnings(ctx, tx, endOfPrevious, snapshots); err != nil {
			return err
		}
		return uc.fiscalYears.Create(ctx, tx, newYear)
	})
	if err != nil {
		return nil, err
	}

	accounts, err := uc.accounts.List(ctx)
	if err == nil {
		ids := make([]int64, 0, len(accounts))
		for _, a := range accounts {
			ids = append(ids, a.ID)
		}
		uc.cache.Bump(ctx, ids...)
	}
	uc.publisher.FiscalYearClosed(ctx, year, endOfPrevious, purged)
	uc.logger.Info("fiscal year closed",
		zap.Int("year", previous.Year),
		zap.Int("new_year", year),
		zap.Int("purged_entries", purged),
	)
	return newYear, nil
}

// validateNewYear enforces the period rules against the latest year. Dates
// compare as first-of-month markers, matching the stored FiscalYear date.
func (uc *FiscalYearUsecase) validateNewYear(ctx context.Context, newYear, previous *domain.FiscalYear) error {
	if !newYear.Date.After(previous.Date) {
		return xerrors.ErrEndDateNotAfterLatest
	}
	if newYear.Date.After(previous.Date.AddDate(0, newYear.Period, 0)) {
		return xerrors.ErrEndDateBeyondPeriod
	}

	if err := uc.requireEarningsAccounts(ctx); err != nil {
		return err
	}

	if previous.Period == 13 && newYear.Period == 12 {
		occupied, err := uc.transactions.ExistsInMonth(ctx, previous.Year, previous.EndMonth)
		if err != nil {
			return err
		}
		if occupied {
			return xerrors.ErrThirteenthMonthOccupied
		}
	}
	return nil
}

// requireEarningsAccounts checks that both earnings accounts exist among the
// equity accounts; an account carrying the name under any other type does
// not qualify.
func (uc *FiscalYearUsecase) requireEarningsAccounts(ctx context.Context) error {
	equity, err := uc.accounts.ListByTypes(ctx, []domain.AccountType{domain.TypeEquity})
	if err != nil {
		return err
	}
	found := make(map[string]bool, len(equity))
	for _, a := range equity {
		found[a.Name] = true
	}
	if !found[domain.CurrentYearEarningsName] || !found[domain.RetainedEarningsName] {
		return xerrors.ErrEarningsAccountsMissing
	}
	return nil
}

// ArchivedAccountsByMonth returns the balance snapshots archived for the
// month of the given date.
func (uc *FiscalYearUsecase) ArchivedAccountsByMonth(ctx context.Context, date time.Time) ([]*domain.HistoricalAccount, error) {
	return uc.historical.ListAccountsByMonth(ctx, date)
}

// ArchivedEvents returns the event snapshots written by past closes.
func (uc *FiscalYearUsecase) ArchivedEvents(ctx context.Context) ([]*domain.HistoricalEvent, error) {
	return uc.historical.ListEvents(ctx)
}

// archiveMonthlyBalances writes one HistoricalAccount per account per month
// of the closing year. Stock accounts snapshot their end-of-month balance;
// flow accounts snapshot the month's net change. Amounts are stored in the
// display sign. Returns the final month's snapshots keyed by account id.
func (uc *FiscalYearUsecase) archiveMonthlyBalances(ctx context.Context, tx pgx.Tx, start, end time.Time) (map[int64]*domain.HistoricalAccount, error) {
	accounts, err := uc.accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	lastMonth := make(map[int64]*domain.HistoricalAccount, len(accounts))
	var snapshots []*domain.HistoricalAccount
	for month := domain.FirstOfMonth(start); !month.After(end); month = month.AddDate(0, 1, 0) {
		lastDay := domain.MonthEnd(month)
		for _, account := range accounts {
			var amount decimal.Decimal
			if account.Type.IsStock() {
				amount, err = uc.chart.GetBalanceByDate(ctx, account.ID, lastDay)
			} else {
				amount, err = uc.chart.GetBalanceChangeByMonth(ctx, account.ID, lastDay)
			}
			if err != nil {
				return nil, err
			}
			if account.Type.FlipBalance() {
				amount = amount.Neg()
			}
			accountID := account.ID
			snapshot := &domain.HistoricalAccount{
				AccountID: &accountID,
				Number:    account.FullNumber,
				Name:      account.Name,
				Type:      account.Type,
				Amount:    amount,
				Date:      month,
			}
			snapshots = append(snapshots, snapshot)
			lastMonth[account.ID] = snapshot
		}
	}
	if err := uc.historical.InsertAccounts(ctx, tx, snapshots); err != nil {
		return nil, err
	}
	return lastMonth, nil
}

// archiveEvents snapshots and deletes every event dated in or before the
// closing year. Transactions referencing a deleted event keep existing with
// their event reference cleared.
func (uc *FiscalYearUsecase) archiveEvents(ctx context.Context, tx pgx.Tx, end time.Time) error {
	events, err := uc.events.ListThrough(ctx, end)
	if err != nil {
		return err
	}
	for _, event := range events {
		transactions, err := uc.transactions.ListByEvent(ctx, event.ID)
		if err != nil {
			return err
		}
		totals := domain.GetTotals(transactions)
		snapshot := &domain.HistoricalEvent{
			Name:        event.Name,
			Number:      event.Number,
			Date:        event.Date,
			City:        event.City,
			State:       event.State,
			DebitTotal:  totals.DebitTotal,
			CreditTotal: totals.CreditTotal,
			NetChange:   totals.NetChange,
		}
		if err := uc.historical.InsertEvent(ctx, tx, snapshot); err != nil {
			return err
		}
		if err := uc.events.Delete(ctx, tx, event.ID); err != nil {
			return err
		}
	}
	return nil
}

func (uc *FiscalYearUsecase) excludedTransactionIDs(ctx context.Context, accountIDs []int64) (map[int64]bool, error) {
	excluded := make(map[int64]bool)
	if len(accountIDs) == 0 {
		return excluded, nil
	}
	transactions, err := uc.transactions.ListUnreconciledByAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	for _, t := range transactions {
		excluded[t.ID] = true
	}
	return excluded, nil
}

// purgeEntries deletes every entry dated in or before the closing year
// whose transactions are all clear of the excluded set. Protection is
// all-or-nothing per entry: one excluded transaction, including a main
// transaction, keeps the whole entry.
func (uc *FiscalYearUsecase) purgeEntries(ctx context.Context, tx pgx.Tx, end time.Time, excluded map[int64]bool) (int, error) {
	purged := 0

	anyExcluded := func(ref domain.EntryRef, mainID int64) (bool, error) {
		if mainID != 0 && excluded[mainID] {
			return true, nil
		}
		lines, err := uc.transactions.ListByEntry(ctx, ref)
		if err != nil {
			return false, err
		}
		for _, t := range lines {
			if excluded[t.ID] {
				return true, nil
			}
		}
		return false, nil
	}

	general, err := uc.entries.ListGeneralThrough(ctx, end)
	if err != nil {
		return 0, err
	}
	for _, entry := range general {
		ref := domain.EntryRef{Kind: domain.KindGeneral, ID: entry.ID}
		protected, err := anyExcluded(ref, 0)
		if err != nil {
			return 0, err
		}
		if protected {
			continue
		}
		if err := uc.transactions.DeleteByEntry(ctx, tx, ref); err != nil {
			return 0, err
		}
		if err := uc.entries.DeleteGeneral(ctx, tx, entry.ID); err != nil {
			return 0, err
		}
		purged++
	}

	spending, err := uc.entries.ListBankSpendingThrough(ctx, end)
	if err != nil {
		return 0, err
	}
	for _, entry := range spending {
		ref := domain.EntryRef{Kind: domain.KindBankSpending, ID: entry.ID}
		protected, err := anyExcluded(ref, entry.MainTransactionID)
		if err != nil {
			return 0, err
		}
		if protected {
			continue
		}
		if err := uc.transactions.DeleteByEntry(ctx, tx, ref); err != nil {
			return 0, err
		}
		if err := uc.entries.DeleteBankSpending(ctx, tx, entry.ID); err != nil {
			return 0, err
		}
		if err := uc.transactions.Delete(ctx, tx, entry.MainTransactionID); err != nil {
			return 0, err
		}
		purged++
	}

	receiving, err := uc.entries.ListBankReceivingThrough(ctx, end)
	if err != nil {
		return 0, err
	}
	for _, entry := range receiving {
		ref := domain.EntryRef{Kind: domain.KindBankReceiving, ID: entry.ID}
		protected, err := anyExcluded(ref, entry.MainTransactionID)
		if err != nil {
			return 0, err
		}
		if protected {
			continue
		}
		if err := uc.transactions.DeleteByEntry(ctx, tx, ref); err != nil {
			return 0, err
		}
		if err := uc.entries.DeleteBankReceiving(ctx, tx, entry.ID); err != nil {
			return 0, err
		}
		if err := uc.transactions.Delete(ctx, tx, entry.MainTransactionID); err != nil {
			return 0, err
		}
		purged++
	}

	return purged, nil
}

// rebuildBalances recomputes every stored balance after the purge. Stock
// accounts carry the final snapshot forward plus any new-year deltas; flow
// accounts reset to their new-year deltas alone.
func (uc *FiscalYearUsecase) rebuildBalances(ctx context.Context, tx pgx.Tx, end time.Time, snapshots map[int64]*domain.HistoricalAccount) error {
	accounts, err := uc.accounts.List(ctx)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		newYearSum, err := uc.transactions.SumDeltasAfter(ctx, account.ID, end)
		if err != nil {
			return err
		}
		balance := newYearSum
		if account.Type.IsStock() {
			snapshot, ok := snapshots[account.ID]
			if !ok {
				return xerrors.ErrNotFound
			}
			// For Current Year Earnings the snapshot holds the flow-account
			// sum; the earnings transfer booked next zeroes it out.
			balance = snapshot.RawAmount().Add(newYearSum)
		}
		if err := uc.accounts.SetBalance(ctx, tx, account.ID, balance); err != nil {
			return err
		}
	}
	return nil
}

// transferEarnings books the closing year's Current Year Earnings into
// Retained Earnings with a journal entry dated the day after year end.
func (uc *FiscalYearUsecase) transferEarnings(ctx context.Context, tx pgx.Tx, end time.Time, snapshots map[int64]*domain.HistoricalAccount) error {
	currentEarnings, err := uc.accounts.GetByName(ctx, domain.CurrentYearEarningsName)
	if err != nil {
		return err
	}
	retainedEarnings, err := uc.accounts.GetByName(ctx, domain.RetainedEarningsName)
	if err != nil {
		return err
	}
	snapshot, ok := snapshots[currentEarnings.ID]
	if !ok {
		return xerrors.ErrNotFound
	}
	amount := snapshot.RawAmount()

	entry := &domain.JournalEntry{
		Date: end.AddDate(0, 0, 1),
		Memo: "End of Fiscal Year Adjustment",
	}
	if err := uc.entries.CreateGeneral(ctx, tx, entry); err != nil {
		return err
	}
	ref := domain.EntryRef{Kind: domain.KindGeneral, ID: entry.ID}
	for _, line := range []struct {
		account *domain.Account
		delta   decimal.Decimal
	}{
		{currentEarnings, amount.Neg()},
		{retainedEarnings, amount},
	} {
		t := &domain.Transaction{
			Owner:        ref,
			AccountID:    line.account.ID,
			BalanceDelta: line.delta,
			Date:         entry.Date,
		}
		if err := uc.transactions.Create(ctx, tx, t); err != nil {
			return err
		}
		if err := uc.accounts.AdjustBalance(ctx, tx, line.account.ID, line.delta); err != nil {
			return err
		}
	}
	return nil
}
