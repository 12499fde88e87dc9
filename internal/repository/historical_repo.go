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
)

type HistoricalRepository interface {
	// InsertAccounts bulk-inserts one month of account snapshots.
	InsertAccounts(ctx context.Context, tx pgx.Tx, snapshots []*domain.HistoricalAccount) error
	InsertEvent(ctx context.Context, tx pgx.Tx, he *domain.HistoricalEvent) error
	// LatestForAccountOnOrBefore returns the newest snapshot for the account
	// dated on or before the given date, or nil when no snapshot exists.
	LatestForAccountOnOrBefore(ctx context.Context, accountID int64, date time.Time) (*domain.HistoricalAccount, error)
	ListAccountsByMonth(ctx context.Context, date time.Time) ([]*domain.HistoricalAccount, error)
	ListEvents(ctx context.Context) ([]*domain.HistoricalEvent, error)
}

type historicalRepo struct {
	db *pgxpool.Pool
}

func NewHistoricalRepo(db *pgxpool.Pool) HistoricalRepository {
	return &historicalRepo{db: db}
}

func (r *historicalRepo) InsertAccounts(ctx context.Context, tx pgx.Tx, snapshots []*domain.HistoricalAccount) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	if len(snapshots) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []any{s.AccountID, s.Number, s.Name, s.Type, s.Amount, s.Date})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"historical_accounts"},
		[]string{"account_id", "number", "name", "type", "amount", "date"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("archiving account snapshots: %w", err)
	}
	return nil
}

func (r *historicalRepo) InsertEvent(ctx context.Context, tx pgx.Tx, he *domain.HistoricalEvent) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO historical_events (name, number, date, city, state,
			debit_total, credit_total, net_change)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at
	`, he.Name, he.Number, he.Date, he.City, he.State,
		he.DebitTotal, he.CreditTotal, he.NetChange).
		Scan(&he.ID, &he.CreatedAt)
	if err != nil {
		return fmt.Errorf("archiving event: %w", err)
	}
	return nil
}

func (r *historicalRepo) LatestForAccountOnOrBefore(ctx context.Context, accountID int64, date time.Time) (*domain.HistoricalAccount, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_id, number, name, type, amount, date
		FROM historical_accounts
		WHERE account_id=$1 AND date <= $2
		ORDER BY date DESC
		LIMIT 1
	`, accountID, date)
	h, err := scanHistoricalAccount(row)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, nil
	}
	return h, err
}

func (r *historicalRepo) ListAccountsByMonth(ctx context.Context, date time.Time) ([]*domain.HistoricalAccount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, number, name, type, amount, date
		FROM historical_accounts
		WHERE date_trunc('month', date) = date_trunc('month', $1::date)
		ORDER BY number
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.HistoricalAccount
	for rows.Next() {
		h, err := scanHistoricalAccount(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, h)
	}
	return snapshots, rows.Err()
}

func (r *historicalRepo) ListEvents(ctx context.Context) ([]*domain.HistoricalEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, number, date, city, state, debit_total, credit_total,
			net_change, created_at
		FROM historical_events
		ORDER BY date, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.HistoricalEvent
	for rows.Next() {
		var he domain.HistoricalEvent
		err := rows.Scan(&he.ID, &he.Name, &he.Number, &he.Date, &he.City,
			&he.State, &he.DebitTotal, &he.CreditTotal, &he.NetChange, &he.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, &he)
	}
	return events, rows.Err()
}

func scanHistoricalAccount(row pgx.Row) (*domain.HistoricalAccount, error) {
	var h domain.HistoricalAccount
	err := row.Scan(&h.ID, &h.AccountID, &h.Number, &h.Name, &h.Type, &h.Amount, &h.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}
