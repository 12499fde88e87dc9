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

// EntrySuggestion carries account/counterparty prefill data derived from
// prior entries during statement import.
type EntrySuggestion struct {
	AccountID    int64
	Counterparty string
}

type EntryRepository interface {
	CreateGeneral(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error
	UpdateGeneral(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error
	GetGeneral(ctx context.Context, id int64) (*domain.JournalEntry, error)
	DeleteGeneral(ctx context.Context, tx pgx.Tx, id int64) error
	ListGeneralThrough(ctx context.Context, date time.Time) ([]*domain.JournalEntry, error)

	CreateBankSpending(ctx context.Context, tx pgx.Tx, e *domain.BankSpendingEntry) error
	UpdateBankSpending(ctx context.Context, tx pgx.Tx, e *domain.BankSpendingEntry) error
	GetBankSpending(ctx context.Context, id int64) (*domain.BankSpendingEntry, error)
	DeleteBankSpending(ctx context.Context, tx pgx.Tx, id int64) error
	ListBankSpendingThrough(ctx context.Context, date time.Time) ([]*domain.BankSpendingEntry, error)
	CheckNumberInUse(ctx context.Context, accountID int64, checkNumber string, excludeEntryID int64) (bool, error)

	CreateBankReceiving(ctx context.Context, tx pgx.Tx, e *domain.BankReceivingEntry) error
	UpdateBankReceiving(ctx context.Context, tx pgx.Tx, e *domain.BankReceivingEntry) error
	GetBankReceiving(ctx context.Context, id int64) (*domain.BankReceivingEntry, error)
	DeleteBankReceiving(ctx context.Context, tx pgx.Tx, id int64) error
	ListBankReceivingThrough(ctx context.Context, date time.Time) ([]*domain.BankReceivingEntry, error)

	// Prefill suggestions for statement imports, sourced from prior
	// single-line entries with a matching memo.
	SuggestSpendingByMemo(ctx context.Context, memo string, day int) (*EntrySuggestion, error)
	SuggestReceivingByMemo(ctx context.Context, memo string, day int) (*EntrySuggestion, error)
}

type entryRepo struct {
	db *pgxpool.Pool
}

func NewEntryRepo(db *pgxpool.Pool) EntryRepository {
	return &entryRepo{db: db}
}

// --- General journal entries ---

func (r *entryRepo) CreateGeneral(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO journal_entries (date, memo, comments)
		VALUES ($1,$2,$3)
		RETURNING id, created_at, updated_at
	`, e.Date, e.Memo, e.Comments).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating journal entry: %w", err)
	}
	return nil
}

func (r *entryRepo) UpdateGeneral(ctx context.Context, tx pgx.Tx, e *domain.JournalEntry) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE journal_entries SET date=$2, memo=$3, comments=$4, updated_at=now() WHERE id=$1
	`, e.ID, e.Date, e.Memo, e.Comments)
	if err != nil {
		return fmt.Errorf("updating journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *entryRepo) GetGeneral(ctx context.Context, id int64) (*domain.JournalEntry, error) {
	var e domain.JournalEntry
	err := r.db.QueryRow(ctx, `
		SELECT id, date, memo, comments, created_at, updated_at
		FROM journal_entries WHERE id=$1
	`, id).Scan(&e.ID, &e.Date, &e.Memo, &e.Comments, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *entryRepo) DeleteGeneral(ctx context.Context, tx pgx.Tx, id int64) error {
	return r.deleteEntry(ctx, tx, `DELETE FROM journal_entries WHERE id=$1`, id)
}

func (r *entryRepo) ListGeneralThrough(ctx context.Context, date time.Time) ([]*domain.JournalEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, date, memo, comments, created_at, updated_at
		FROM journal_entries WHERE date <= $1
		ORDER BY date, id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Memo, &e.Comments, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// --- Bank spending entries ---

const bankSpendingColumns = `id, date, memo, comments, account_id, check_number,
	ach_payment, payee, void, main_transaction_id, created_at, updated_at`

func (r *entryRepo) CreateBankSpending(ctx context.Context, tx pgx.Tx, e *domain.BankSpendingEntry) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO bank_spending_entries (date, memo, comments, account_id,
			check_number, ach_payment, payee, void, main_transaction_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at
	`, e.Date, e.Memo, e.Comments, e.AccountID, nullIfEmpty(e.CheckNumber),
		e.ACHPayment, e.Payee, e.Void, e.MainTransactionID).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if xerrors.ParsePGErrorCode(err) == xerrors.PGUniqueViolation {
			return xerrors.ErrDuplicateCheckNumber
		}
		return fmt.Errorf("creating bank spending entry: %w", err)
	}
	return nil
}

func (r *entryRepo) UpdateBankSpending(ctx context.Context, tx pgx.Tx, e *domain.BankSpendingEntry) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE bank_spending_entries
		SET date=$2, memo=$3, comments=$4, account_id=$5, check_number=$6,
			ach_payment=$7, payee=$8, void=$9, updated_at=now()
		WHERE id=$1
	`, e.ID, e.Date, e.Memo, e.Comments, e.AccountID, nullIfEmpty(e.CheckNumber),
		e.ACHPayment, e.Payee, e.Void)
	if err != nil {
		if xerrors.ParsePGErrorCode(err) == xerrors.PGUniqueViolation {
			return xerrors.ErrDuplicateCheckNumber
		}
		return fmt.Errorf("updating bank spending entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *entryRepo) GetBankSpending(ctx context.Context, id int64) (*domain.BankSpendingEntry, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bankSpendingColumns+` FROM bank_spending_entries WHERE id=$1
	`, id)
	return scanBankSpending(row)
}

func (r *entryRepo) DeleteBankSpending(ctx context.Context, tx pgx.Tx, id int64) error {
	return r.deleteEntry(ctx, tx, `DELETE FROM bank_spending_entries WHERE id=$1`, id)
}

func (r *entryRepo) ListBankSpendingThrough(ctx context.Context, date time.Time) ([]*domain.BankSpendingEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bankSpendingColumns+` FROM bank_spending_entries WHERE date <= $1
		ORDER BY date, id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.BankSpendingEntry
	for rows.Next() {
		e, err := scanBankSpending(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *entryRepo) CheckNumberInUse(ctx context.Context, accountID int64, checkNumber string, excludeEntryID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bank_spending_entries
			WHERE account_id=$1 AND check_number=$2 AND id != $3
		)
	`, accountID, checkNumber, excludeEntryID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking check number: %w", err)
	}
	return exists, nil
}

// --- Bank receiving entries ---

const bankReceivingColumns = `id, date, memo, comments, account_id, payor,
	main_transaction_id, created_at, updated_at`

func (r *entryRepo) CreateBankReceiving(ctx context.Context, tx pgx.Tx, e *domain.BankReceivingEntry) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO bank_receiving_entries (date, memo, comments, account_id, payor, main_transaction_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at
	`, e.Date, e.Memo, e.Comments, e.AccountID, e.Payor, e.MainTransactionID).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating bank receiving entry: %w", err)
	}
	return nil
}

func (r *entryRepo) UpdateBankReceiving(ctx context.Context, tx pgx.Tx, e *domain.BankReceivingEntry) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, `
		UPDATE bank_receiving_entries
		SET date=$2, memo=$3, comments=$4, account_id=$5, payor=$6, updated_at=now()
		WHERE id=$1
	`, e.ID, e.Date, e.Memo, e.Comments, e.AccountID, e.Payor)
	if err != nil {
		return fmt.Errorf("updating bank receiving entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *entryRepo) GetBankReceiving(ctx context.Context, id int64) (*domain.BankReceivingEntry, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bankReceivingColumns+` FROM bank_receiving_entries WHERE id=$1
	`, id)
	return scanBankReceiving(row)
}

func (r *entryRepo) DeleteBankReceiving(ctx context.Context, tx pgx.Tx, id int64) error {
	return r.deleteEntry(ctx, tx, `DELETE FROM bank_receiving_entries WHERE id=$1`, id)
}

func (r *entryRepo) ListBankReceivingThrough(ctx context.Context, date time.Time) ([]*domain.BankReceivingEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bankReceivingColumns+` FROM bank_receiving_entries WHERE date <= $1
		ORDER BY date, id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.BankReceivingEntry
	for rows.Next() {
		e, err := scanBankReceiving(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Import suggestions ---

func (r *entryRepo) SuggestSpendingByMemo(ctx context.Context, memo string, day int) (*EntrySuggestion, error) {
	return r.suggest(ctx, `
		SELECT t.account_id, e.payee
		FROM bank_spending_entries e
		JOIN transactions t ON t.owner_kind='bank_spending' AND t.owner_id=e.id
		WHERE e.memo ILIKE '%' || $1 || '%'
			AND ($2 = 0 OR EXTRACT(DAY FROM e.date) = $2)
			AND (SELECT COUNT(*) FROM transactions x
				 WHERE x.owner_kind='bank_spending' AND x.owner_id=e.id) = 1
		ORDER BY e.date DESC
		LIMIT 1
	`, memo, day)
}

func (r *entryRepo) SuggestReceivingByMemo(ctx context.Context, memo string, day int) (*EntrySuggestion, error) {
	return r.suggest(ctx, `
		SELECT t.account_id, e.payor
		FROM bank_receiving_entries e
		JOIN transactions t ON t.owner_kind='bank_receiving' AND t.owner_id=e.id
		WHERE e.memo ILIKE '%' || $1 || '%'
			AND ($2 = 0 OR EXTRACT(DAY FROM e.date) = $2)
			AND (SELECT COUNT(*) FROM transactions x
				 WHERE x.owner_kind='bank_receiving' AND x.owner_id=e.id) = 1
		ORDER BY e.date DESC
		LIMIT 1
	`, memo, day)
}

func (r *entryRepo) suggest(ctx context.Context, sql, memo string, day int) (*EntrySuggestion, error) {
	var s EntrySuggestion
	err := r.db.QueryRow(ctx, sql, memo, day).Scan(&s.AccountID, &s.Counterparty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *entryRepo) deleteEntry(ctx context.Context, tx pgx.Tx, sql string, id int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	tag, err := tx.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func scanBankSpending(row pgx.Row) (*domain.BankSpendingEntry, error) {
	var e domain.BankSpendingEntry
	var checkNumber *string
	err := row.Scan(&e.ID, &e.Date, &e.Memo, &e.Comments, &e.AccountID,
		&checkNumber, &e.ACHPayment, &e.Payee, &e.Void, &e.MainTransactionID,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	if checkNumber != nil {
		e.CheckNumber = *checkNumber
	}
	return &e, nil
}

func scanBankReceiving(row pgx.Row) (*domain.BankReceivingEntry, error) {
	var e domain.BankReceivingEntry
	err := row.Scan(&e.ID, &e.Date, &e.Memo, &e.Comments, &e.AccountID,
		&e.Payor, &e.MainTransactionID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
