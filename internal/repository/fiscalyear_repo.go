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

type FiscalYearRepository interface {
	Create(ctx context.Context, tx pgx.Tx, fy *domain.FiscalYear) error
	// LatestTwo returns up to the two most recent fiscal years, newest first.
	LatestTwo(ctx context.Context) ([]*domain.FiscalYear, error)
	List(ctx context.Context) ([]*domain.FiscalYear, error)
}

type fiscalYearRepo struct {
	db *pgxpool.Pool
}

func NewFiscalYearRepo(db *pgxpool.Pool) FiscalYearRepository {
	return &fiscalYearRepo{db: db}
}

func (r *fiscalYearRepo) Create(ctx context.Context, tx pgx.Tx, fy *domain.FiscalYear) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO fiscal_years (year, end_month, period, date)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at
	`, fy.Year, fy.EndMonth, fy.Period, fy.Date).
		Scan(&fy.ID, &fy.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating fiscal year: %w", err)
	}
	return nil
}

func (r *fiscalYearRepo) LatestTwo(ctx context.Context) ([]*domain.FiscalYear, error) {
	return r.query(ctx, `
		SELECT id, year, end_month, period, date, created_at
		FROM fiscal_years
		ORDER BY date DESC
		LIMIT 2
	`)
}

func (r *fiscalYearRepo) List(ctx context.Context) ([]*domain.FiscalYear, error) {
	return r.query(ctx, `
		SELECT id, year, end_month, period, date, created_at
		FROM fiscal_years
		ORDER BY date DESC
	`)
}

func (r *fiscalYearRepo) query(ctx context.Context, sql string) ([]*domain.FiscalYear, error) {
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var years []*domain.FiscalYear
	for rows.Next() {
		var fy domain.FiscalYear
		err := rows.Scan(&fy.ID, &fy.Year, &fy.EndMonth, &fy.Period, &fy.Date, &fy.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, xerrors.ErrNotFound
			}
			return nil, err
		}
		years = append(years, &fy)
	}
	return years, rows.Err()
}
