package repository

import (
	"context"
	"errors"
	"fmt"

	"ledger-service/internal/domain"
	"ledger-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CheckRangeRepository interface {
	Create(ctx context.Context, cr *domain.CheckRange) error
	Delete(ctx context.Context, id int64) error
	ListByBankAccount(ctx context.Context, bankAccountID int64) ([]*domain.CheckRange, error)
	// FindForCheck returns the first range on the bank account containing the
	// check number, or nil when none does.
	FindForCheck(ctx context.Context, bankAccountID int64, checkNumber int) (*domain.CheckRange, error)
}

type checkRangeRepo struct {
	db *pgxpool.Pool
}

func NewCheckRangeRepo(db *pgxpool.Pool) CheckRangeRepository {
	return &checkRangeRepo{db: db}
}

func (r *checkRangeRepo) Create(ctx context.Context, cr *domain.CheckRange) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO check_ranges (bank_account_id, start_number, end_number,
			default_account_id, default_payee, default_memo)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, cr.BankAccountID, cr.StartNumber, cr.EndNumber,
		cr.DefaultAccountID, cr.DefaultPayee, cr.DefaultMemo).Scan(&cr.ID)
	if err != nil {
		return fmt.Errorf("creating check range: %w", err)
	}
	return nil
}

func (r *checkRangeRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM check_ranges WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("deleting check range: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *checkRangeRepo) ListByBankAccount(ctx context.Context, bankAccountID int64) ([]*domain.CheckRange, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, bank_account_id, start_number, end_number,
			default_account_id, default_payee, default_memo
		FROM check_ranges
		WHERE bank_account_id=$1
		ORDER BY start_number
	`, bankAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranges []*domain.CheckRange
	for rows.Next() {
		cr, err := scanCheckRange(rows)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, cr)
	}
	return ranges, rows.Err()
}

func (r *checkRangeRepo) FindForCheck(ctx context.Context, bankAccountID int64, checkNumber int) (*domain.CheckRange, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, bank_account_id, start_number, end_number,
			default_account_id, default_payee, default_memo
		FROM check_ranges
		WHERE bank_account_id=$1 AND start_number <= $2 AND end_number >= $2
		ORDER BY start_number
		LIMIT 1
	`, bankAccountID, checkNumber)
	cr, err := scanCheckRange(row)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, nil
	}
	return cr, err
}

func scanCheckRange(row pgx.Row) (*domain.CheckRange, error) {
	var cr domain.CheckRange
	err := row.Scan(&cr.ID, &cr.BankAccountID, &cr.StartNumber, &cr.EndNumber,
		&cr.DefaultAccountID, &cr.DefaultPayee, &cr.DefaultMemo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return &cr, nil
}
