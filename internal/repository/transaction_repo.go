package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	Update(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	DeleteByEntry(ctx context.Context, tx pgx.Tx, ref domain.EntryRef) error
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	ListByEntry(ctx context.Context, ref domain.EntryRef) ([]*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, error)
	ListByEvent(ctx context.Context, eventID int64) ([]*domain.Transaction, error)
	ListUnreconciledByAccounts(ctx context.Context, accountIDs []int64) ([]*domain.Transaction, error)

	// Aggregations over the (date, id) total order.
	SumDeltasThrough(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, error)
	SumDeltasAfter(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, error)
	SumDeltasInRange(ctx context.Context, accountID int64, from, to time.Time) (decimal.Decimal, error)
	SumDeltasNewerThan(ctx context.Context, accountID int64, date time.Time, id int64) (decimal.Decimal, error)
	SumDeltasForTypesThrough(ctx context.Context, types []domain.AccountType, date time.Time) (decimal.Decimal, error)
	SumDeltasForTypesInRange(ctx context.Context, types []domain.AccountType, from, to time.Time) (decimal.Decimal, error)

	ExistsInMonth(ctx context.Context, year int, month time.Month) (bool, error)
	// UpdateDatesForEntry pulls the owning entry's date onto its line
	// transactions after an entry edit.
	UpdateDatesForEntry(ctx context.Context, tx pgx.Tx, ref domain.EntryRef, date time.Time) error

	// Statement-import matching.
	ListByCheckNumber(ctx context.Context, accountID int64, delta decimal.Decimal, checkNumber string) ([]*domain.Transaction, error)
	ListForMatching(ctx context.Context, accountID int64, delta decimal.Decimal, from, to time.Time) ([]*domain.Transaction, error)

	// MarkReconciled flags a cleared batch inside a reconciliation pass.
	MarkReconciled(ctx context.Context, tx pgx.Tx, ids []int64) error
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepo(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

const transactionColumns = `id, owner_kind, owner_id, account_id, detail,
	balance_delta, event_id, reconciled, date, created_at`

func (r *transactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	var kind *domain.EntryKind
	var ownerID *int64
	if !t.Owner.IsZero() {
		kind = &t.Owner.Kind
		ownerID = &t.Owner.ID
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (owner_kind, owner_id, account_id, detail,
			balance_delta, event_id, reconciled, date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at
	`, kind, ownerID, t.AccountID, t.Detail, t.BalanceDelta, t.EventID,
		t.Reconciled, t.Date).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating ledger transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) Update(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET account_id=$2, detail=$3, balance_delta=$4, event_id=$5, reconciled=$6, date=$7
		WHERE id=$1
	`, t.ID, t.AccountID, t.Detail, t.BalanceDelta, t.EventID, t.Reconciled, t.Date)
	if err != nil {
		return fmt.Errorf("updating ledger transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *transactionRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("deleting ledger transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *transactionRepo) DeleteByEntry(ctx context.Context, tx pgx.Tx, ref domain.EntryRef) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	_, err := tx.Exec(ctx, `
		DELETE FROM transactions WHERE owner_kind=$1 AND owner_id=$2
	`, ref.Kind, ref.ID)
	if err != nil {
		return fmt.Errorf("deleting entry transactions: %w", err)
	}
	return nil
}

func (r *transactionRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id=$1`, id)
	return scanTransaction(row)
}

func (r *transactionRepo) ListByEntry(ctx context.Context, ref domain.EntryRef) ([]*domain.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE owner_kind=$1 AND owner_id=$2
		ORDER BY date, id
	`, ref.Kind, ref.ID)
}

func (r *transactionRepo) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*domain.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE account_id=$1
		ORDER BY date, id
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
}

func (r *transactionRepo) ListByEvent(ctx context.Context, eventID int64) ([]*domain.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE event_id=$1
		ORDER BY date, id
	`, eventID)
}

func (r *transactionRepo) ListUnreconciledByAccounts(ctx context.Context, accountIDs []int64) ([]*domain.Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = ANY($1) AND NOT reconciled
		ORDER BY date, id
	`, accountIDs)
}

func (r *transactionRepo) SumDeltasThrough(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(balance_delta), 0) FROM transactions
		WHERE account_id=$1 AND date <= $2
	`, accountID, date)
}

func (r *transactionRepo) SumDeltasAfter(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(balance_delta), 0) FROM transactions
		WHERE account_id=$1 AND date > $2
	`, accountID, date)
}

func (r *transactionRepo) SumDeltasInRange(ctx context.Context, accountID int64, from, to time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(balance_delta), 0) FROM transactions
		WHERE account_id=$1 AND date >= $2 AND date <= $3
	`, accountID, from, to)
}

func (r *transactionRepo) SumDeltasNewerThan(ctx context.Context, accountID int64, date time.Time, id int64) (decimal.Decimal, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(balance_delta), 0) FROM transactions
		WHERE account_id=$1 AND (date > $2 OR (date = $2 AND id > $3))
	`, accountID, date, id)
}

func (r *transactionRepo) SumDeltasForTypesThrough(ctx context.Context, types []domain.AccountType, date time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(t.balance_delta), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.type = ANY($1) AND t.date <= $2
	`, typeInts(types), date)
}

func (r *transactionRepo) SumDeltasForTypesInRange(ctx context.Context, types []domain.AccountType, from, to time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `
		SELECT COALESCE(SUM(t.balance_delta), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.type = ANY($1) AND t.date >= $2 AND t.date <= $3
	`, typeInts(types), from, to)
}

func (r *transactionRepo) ExistsInMonth(ctx context.Context, year int, month time.Month) (bool, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := domain.LastDayOfMonth(year, month)
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE date >= $1 AND date <= $2)
	`, first, last).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking month for transactions: %w", err)
	}
	return exists, nil
}

func (r *transactionRepo) UpdateDatesForEntry(ctx context.Context, tx pgx.Tx, ref domain.EntryRef, date time.Time) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	_, err := tx.Exec(ctx, `
		UPDATE transactions SET date=$3 WHERE owner_kind=$1 AND owner_id=$2
	`, ref.Kind, ref.ID, date)
	if err != nil {
		return fmt.Errorf("updating entry transaction dates: %w", err)
	}
	return nil
}

func (r *transactionRepo) ListByCheckNumber(ctx context.Context, accountID int64, delta decimal.Decimal, checkNumber string) ([]*domain.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions t
		WHERE t.account_id=$1 AND t.balance_delta=$2 AND NOT t.reconciled AND EXISTS (
			SELECT 1 FROM bank_spending_entries e
			WHERE e.main_transaction_id = t.id AND e.check_number = $3
		)
		ORDER BY t.date, t.id
	`, accountID, delta, checkNumber)
}

func (r *transactionRepo) ListForMatching(ctx context.Context, accountID int64, delta decimal.Decimal, from, to time.Time) ([]*domain.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE account_id=$1 AND balance_delta=$2 AND NOT reconciled
			AND date >= $3 AND date <= $4
		ORDER BY date, id
	`, accountID, delta, from, to)
}

func (r *transactionRepo) MarkReconciled(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	if len(ids) == 0 {
		return nil
	}
	tag, err := tx.Exec(ctx, `
		UPDATE transactions SET reconciled = TRUE WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("marking transactions reconciled: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *transactionRepo) list(ctx context.Context, sql string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *transactionRepo) sum(ctx context.Context, sql string, args ...any) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("summing balance deltas: %w", err)
	}
	return total, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var kind *domain.EntryKind
	var ownerID *int64
	err := row.Scan(&t.ID, &kind, &ownerID, &t.AccountID, &t.Detail,
		&t.BalanceDelta, &t.EventID, &t.Reconciled, &t.Date, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	if kind != nil && ownerID != nil {
		t.Owner = domain.EntryRef{Kind: *kind, ID: *ownerID}
	}
	return &t, nil
}

func typeInts(types []domain.AccountType) []int {
	ints := make([]int, len(types))
	for i, t := range types {
		ints[i] = int(t)
	}
	return ints
}
