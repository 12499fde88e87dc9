package usecase

import (
	"context"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
	"ledger-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionUsecase answers running-balance queries over the transaction
// history and drives account reconciliation.
type TransactionUsecase struct {
	txm          repository.TxManager
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
}

func NewTransactionUsecase(
	txm repository.TxManager,
	accounts repository.AccountRepository,
	transactions repository.TransactionRepository,
) *TransactionUsecase {
	return &TransactionUsecase{txm: txm, accounts: accounts, transactions: transactions}
}

func (uc *TransactionUsecase) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	return uc.transactions.GetByID(ctx, id)
}

// AccountLedger lists an account's transactions with their aggregate totals.
func (uc *TransactionUsecase) AccountLedger(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, domain.Totals, error) {
	transactions, err := uc.transactions.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, domain.Totals{}, err
	}
	return transactions, domain.GetTotals(transactions), nil
}

// EventLedger lists an event's transactions with their aggregate totals.
func (uc *TransactionUsecase) EventLedger(ctx context.Context, eventID int64) ([]*domain.Transaction, domain.Totals, error) {
	transactions, err := uc.transactions.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, domain.Totals{}, err
	}
	return transactions, domain.GetTotals(transactions), nil
}

// FinalBalance returns the account's display-sign running balance
// immediately after the given transaction: the stored balance minus every
// delta strictly newer in the (date, id) order, sign-flipped per type.
func (uc *TransactionUsecase) FinalBalance(ctx context.Context, t *domain.Transaction) (decimal.Decimal, error) {
	account, err := uc.accounts.GetByID(ctx, t.AccountID)
	if err != nil {
		return decimal.Zero, err
	}
	newer, err := uc.transactions.SumDeltasNewerThan(ctx, t.AccountID, t.Date, t.ID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := account.Balance.Sub(newer)
	if account.Type.FlipBalance() {
		balance = balance.Neg()
	}
	return balance, nil
}

// InitialBalance returns the display-sign running balance immediately
// before the given transaction applied.
func (uc *TransactionUsecase) InitialBalance(ctx context.Context, t *domain.Transaction) (decimal.Decimal, error) {
	final, err := uc.FinalBalance(ctx, t)
	if err != nil {
		return decimal.Zero, err
	}
	account, err := uc.accounts.GetByID(ctx, t.AccountID)
	if err != nil {
		return decimal.Zero, err
	}
	if account.Type.FlipBalance() {
		return final.Add(t.BalanceDelta), nil
	}
	return final.Sub(t.BalanceDelta), nil
}

// ReconcileInput clears a batch of transactions against a paper statement.
// StatementBalance uses the display sign shown to the user.
type ReconcileInput struct {
	AccountID        int64
	StatementDate    time.Time
	StatementBalance decimal.Decimal
	TransactionIDs   []int64
}

// ReconcileAccount verifies that the previously reconciled balance plus the
// selected transactions equals the statement balance, then marks the batch
// reconciled and advances the account's reconciliation watermark.
func (uc *TransactionUsecase) ReconcileAccount(ctx context.Context, in ReconcileInput) (*domain.Account, error) {
	account, err := uc.accounts.GetByID(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	if in.StatementDate.IsZero() || len(in.TransactionIDs) == 0 {
		return nil, xerrors.ErrInvalidInput
	}

	rawStatement := in.StatementBalance
	if account.Type.FlipBalance() {
		rawStatement = rawStatement.Neg()
	}

	selected := decimal.Zero
	for _, id := range in.TransactionIDs {
		t, err := uc.transactions.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if t.AccountID != account.ID || t.Reconciled {
			return nil, xerrors.ErrInvalidInput
		}
		selected = selected.Add(t.BalanceDelta)
	}
	if !account.ReconciledBalance.Add(selected).Equal(rawStatement) {
		return nil, xerrors.ErrReconcileOutOfBalance
	}

	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.transactions.MarkReconciled(ctx, tx, in.TransactionIDs); err != nil {
			return err
		}
		return uc.accounts.SetReconciled(ctx, tx, account.ID, rawStatement, in.StatementDate)
	})
	if err != nil {
		return nil, err
	}
	return uc.accounts.GetByID(ctx, account.ID)
}
