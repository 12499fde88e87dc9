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

type AccountRepository interface {
	// Chart mutations run inside the caller's transaction so a mutation and
	// the renumbering it triggers commit or roll back together.
	Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error
	Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	UpdateFullNumbers(ctx context.Context, tx pgx.Tx, numbers map[int64]string) error

	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByName(ctx context.Context, name string) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	ListByTypes(ctx context.Context, types []domain.AccountType) ([]*domain.Account, error)
	ListBanks(ctx context.Context) ([]*domain.Account, error)

	// AdjustBalance applies a delta to the stored running balance inside
	// the caller's transaction.
	AdjustBalance(ctx context.Context, tx pgx.Tx, accountID int64, delta decimal.Decimal) error
	// SetBalance overwrites the stored running balance; used by the fiscal
	// year close when balances are recomputed from scratch.
	SetBalance(ctx context.Context, tx pgx.Tx, accountID int64, balance decimal.Decimal) error
	// SetReconciled records the statement balance and date after a
	// reconciliation pass clears a batch of transactions.
	SetReconciled(ctx context.Context, tx pgx.Tx, accountID int64, balance decimal.Decimal, date time.Time) error
}

type accountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepo(db *pgxpool.Pool) AccountRepository {
	return &accountRepo{db: db}
}

const accountColumns = `id, name, type, parent_id, balance, reconciled_balance,
	bank, active, last_reconciled, full_number, description, created_at, updated_at`

func (r *accountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO accounts (name, type, parent_id, balance, reconciled_balance,
			bank, active, last_reconciled, full_number, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at
	`, a.Name, a.Type, a.ParentID, a.Balance, a.ReconciledBalance,
		a.Bank, a.Active, a.LastReconciled, a.FullNumber, a.Description).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}
	return nil
}

func (r *accountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE accounts
		SET name=$2, type=$3, parent_id=$4, reconciled_balance=$5, bank=$6, active=$7,
			last_reconciled=$8, full_number=$9, description=$10, updated_at=now()
		WHERE id=$1
	`, a.ID, a.Name, a.Type, a.ParentID, a.ReconciledBalance, a.Bank, a.Active,
		a.LastReconciled, a.FullNumber, a.Description)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
	return scanAccount(row)
}

func (r *accountRepo) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE name=$1`, name)
	return scanAccount(row)
}

func (r *accountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name`)
}

func (r *accountRepo) ListByTypes(ctx context.Context, types []domain.AccountType) ([]*domain.Account, error) {
	ints := make([]int, len(types))
	for i, t := range types {
		ints[i] = int(t)
	}
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts WHERE type = ANY($1) ORDER BY name`, ints)
}

func (r *accountRepo) ListBanks(ctx context.Context) ([]*domain.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts WHERE bank ORDER BY name`)
}

// Delete removes an account with no transaction history. Transactions
// reference accounts with ON DELETE RESTRICT, so an account that has ever
// been charged surfaces as ErrAccountProtected.
func (r *accountRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		if xerrors.ParsePGErrorCode(err) == xerrors.PGForeignKeyViolation {
			return xerrors.ErrAccountProtected
		}
		return fmt.Errorf("deleting account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *accountRepo) UpdateFullNumbers(ctx context.Context, tx pgx.Tx, numbers map[int64]string) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	batch := &pgx.Batch{}
	for id, number := range numbers {
		batch.Queue(`UPDATE accounts SET full_number=$2, updated_at=now() WHERE id=$1`, id, number)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("renumbering accounts: %w", err)
	}
	return nil
}

func (r *accountRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, accountID int64, delta decimal.Decimal) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET balance = balance + $2, updated_at=now() WHERE id=$1
	`, accountID, delta)
	if err != nil {
		return fmt.Errorf("adjusting balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *accountRepo) SetBalance(ctx context.Context, tx pgx.Tx, accountID int64, balance decimal.Decimal) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET balance = $2, updated_at=now() WHERE id=$1
	`, accountID, balance)
	if err != nil {
		return fmt.Errorf("setting balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *accountRepo) SetReconciled(ctx context.Context, tx pgx.Tx, accountID int64, balance decimal.Decimal, date time.Time) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET reconciled_balance = $2, last_reconciled = $3, updated_at=now() WHERE id=$1
	`, accountID, balance, date)
	if err != nil {
		return fmt.Errorf("setting reconciled balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *accountRepo) list(ctx context.Context, sql string, args ...any) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.ParentID, &a.Balance,
		&a.ReconciledBalance, &a.Bank, &a.Active, &a.LastReconciled,
		&a.FullNumber, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
