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

type EventRepository interface {
	Create(ctx context.Context, e *domain.Event) error
	Update(ctx context.Context, e *domain.Event) error
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
	List(ctx context.Context) ([]*domain.Event, error)
	ListThrough(ctx context.Context, date time.Time) ([]*domain.Event, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
}

type eventRepo struct {
	db *pgxpool.Pool
}

func NewEventRepo(db *pgxpool.Pool) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(ctx context.Context, e *domain.Event) error {
	e.Number = e.GenerateNumber()
	err := r.db.QueryRow(ctx, `
		INSERT INTO events (name, abbreviation, number, date, city, state)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, e.Name, e.Abbreviation, e.Number, e.Date, e.City, e.State).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

func (r *eventRepo) Update(ctx context.Context, e *domain.Event) error {
	e.Number = e.GenerateNumber()
	tag, err := r.db.Exec(ctx, `
		UPDATE events
		SET name=$2, abbreviation=$3, number=$4, date=$5, city=$6, state=$7
		WHERE id=$1
	`, e.ID, e.Name, e.Abbreviation, e.Number, e.Date, e.City, e.State)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *eventRepo) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, abbreviation, number, date, city, state, created_at
		FROM events
		WHERE id=$1
	`, id)
	return scanEvent(row)
}

func (r *eventRepo) List(ctx context.Context) ([]*domain.Event, error) {
	return r.query(ctx, `
		SELECT id, name, abbreviation, number, date, city, state, created_at
		FROM events
		ORDER BY date, id
	`)
}

// ListThrough returns events dated on or before the given date, used by the
// fiscal year close to find events whose transactions are up for purging.
func (r *eventRepo) ListThrough(ctx context.Context, date time.Time) ([]*domain.Event, error) {
	return r.query(ctx, `
		SELECT id, name, abbreviation, number, date, city, state, created_at
		FROM events
		WHERE date <= $1
		ORDER BY date, id
	`, date)
}

func (r *eventRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *eventRepo) query(ctx context.Context, sql string, args ...any) ([]*domain.Event, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	err := row.Scan(&e.ID, &e.Name, &e.Abbreviation, &e.Number, &e.Date,
		&e.City, &e.State, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}
