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

type HeaderRepository interface {
	// Chart mutations run inside the caller's transaction so a mutation and
	// the renumbering it triggers commit or roll back together.
	Create(ctx context.Context, tx pgx.Tx, h *domain.Header) error
	Update(ctx context.Context, tx pgx.Tx, h *domain.Header) error
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	UpdateFullNumbers(ctx context.Context, tx pgx.Tx, numbers map[int64]string) error

	GetByID(ctx context.Context, id int64) (*domain.Header, error)
	List(ctx context.Context) ([]*domain.Header, error)
}

type headerRepo struct {
	db *pgxpool.Pool
}

func NewHeaderRepo(db *pgxpool.Pool) HeaderRepository {
	return &headerRepo{db: db}
}

func (r *headerRepo) Create(ctx context.Context, tx pgx.Tx, h *domain.Header) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO headers (name, type, parent_id, active, full_number, description)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at
	`, h.Name, h.Type, h.ParentID, h.Active, h.FullNumber, h.Description).
		Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating header: %w", err)
	}
	return nil
}

func (r *headerRepo) Update(ctx context.Context, tx pgx.Tx, h *domain.Header) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE headers
		SET name=$2, type=$3, parent_id=$4, active=$5, full_number=$6, description=$7, updated_at=now()
		WHERE id=$1
	`, h.ID, h.Name, h.Type, h.ParentID, h.Active, h.FullNumber, h.Description)
	if err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *headerRepo) GetByID(ctx context.Context, id int64) (*domain.Header, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, type, parent_id, active, full_number, description, created_at, updated_at
		FROM headers
		WHERE id=$1
	`, id)
	return scanHeader(row)
}

func (r *headerRepo) List(ctx context.Context) ([]*domain.Header, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, type, parent_id, active, full_number, description, created_at, updated_at
		FROM headers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var headers []*domain.Header
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, rows.Err()
}

// Delete removes a childless header. Child headers and accounts reference
// their parent with ON DELETE RESTRICT, so deleting a populated header
// surfaces as ErrHeaderNotEmpty.
func (r *headerRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM headers WHERE id=$1`, id)
	if err != nil {
		if xerrors.ParsePGErrorCode(err) == xerrors.PGForeignKeyViolation {
			return xerrors.ErrHeaderNotEmpty
		}
		return fmt.Errorf("deleting header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *headerRepo) UpdateFullNumbers(ctx context.Context, tx pgx.Tx, numbers map[int64]string) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	batch := &pgx.Batch{}
	for id, number := range numbers {
		batch.Queue(`UPDATE headers SET full_number=$2, updated_at=now() WHERE id=$1`, id, number)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("renumbering headers: %w", err)
	}
	return nil
}

func scanHeader(row pgx.Row) (*domain.Header, error) {
	var h domain.Header
	err := row.Scan(&h.ID, &h.Name, &h.Type, &h.ParentID, &h.Active,
		&h.FullNumber, &h.Description, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}
