package usecase

import (
	"context"
	"strings"
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

// LineItem is one validated line of an entry being created. Amount carries
// the raw credit/debit sign for general entries and a positive magnitude for
// bank entries.
type LineItem struct {
	AccountID int64           `json:"account_id"`
	Detail    string          `json:"detail"`
	Amount    decimal.Decimal `json:"amount"`
	EventID   *int64          `json:"event_id,omitempty"`
}

// BankEntryInput carries the fields shared by spending and receiving entry
// creation. Amount is the positive total magnitude moved through the bank
// account.
type BankEntryInput struct {
	Date          time.Time       `json:"date"`
	BankAccountID int64           `json:"bank_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo"`
	Comments      string          `json:"comments"`
	CheckNumber   string          `json:"check_number"`
	ACHPayment    bool            `json:"ach_payment"`
	Payee         string          `json:"payee"`
	Payor         string          `json:"payor"`
	Items         []LineItem      `json:"items"`
}

// EntryUsecase builds, validates and persists balanced entries. Every
// creation is one storage transaction covering the entry, its line
// transactions and the incremental account balance updates.
type EntryUsecase struct {
	txm          repository.TxManager
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	entries      repository.EntryRepository
	fiscalYears  repository.FiscalYearRepository
	cache        *cache.BalanceCache
	publisher    pub.Publisher
	logger       *zap.Logger
}

func NewEntryUsecase(
	txm repository.TxManager,
	accounts repository.AccountRepository,
	transactions repository.TransactionRepository,
	entries repository.EntryRepository,
	fiscalYears repository.FiscalYearRepository,
	balanceCache *cache.BalanceCache,
	publisher pub.Publisher,
	logger *zap.Logger,
) *EntryUsecase {
	return &EntryUsecase{
		txm:          txm,
		accounts:     accounts,
		transactions: transactions,
		entries:      entries,
		fiscalYears:  fiscalYears,
		cache:        balanceCache,
		publisher:    publisher,
		logger:       logger,
	}
}

// CreateGeneralEntry persists a balanced journal entry. Items carry signed
// deltas; they must number at least two and sum to exactly zero.
func (uc *EntryUsecase) CreateGeneralEntry(ctx context.Context, date time.Time, memo, comments string, items []LineItem) (*domain.JournalEntry, error) {
	items = dropZeroItems(items)
	if len(items) < 2 {
		return nil, xerrors.ErrEmptyEntry
	}
	if !sumAmounts(items).IsZero() {
		return nil, xerrors.ErrUnbalancedEntry
	}
	if err := uc.checkDateInCurrentYear(ctx, date); err != nil {
		return nil, err
	}

	entry := &domain.JournalEntry{Date: date, Memo: memo, Comments: comments}
	err := uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.entries.CreateGeneral(ctx, tx, entry); err != nil {
			return err
		}
		ref := domain.EntryRef{Kind: domain.KindGeneral, ID: entry.ID}
		return uc.createLineTransactions(ctx, tx, ref, date, items)
	})
	if err != nil {
		return nil, err
	}

	uc.cache.Bump(ctx, accountIDs(items)...)
	uc.publisher.EntryCreated(ctx, domain.EntryRef{Kind: domain.KindGeneral, ID: entry.ID},
		entry.Number(), entry.Memo, entry.Date)
	uc.logger.Info("journal entry created",
		zap.Int64("entry_id", entry.ID),
		zap.String("number", entry.Number()),
		zap.Int("lines", len(items)),
	)
	return entry, nil
}

// UpdateGeneralEntry replaces an entry's memo, date and full line set. The
// old lines are reversed out of their account balances and the new set is
// written in their place, all within one storage transaction.
func (uc *EntryUsecase) UpdateGeneralEntry(ctx context.Context, entryID int64, date time.Time, memo, comments string, items []LineItem) (*domain.JournalEntry, error) {
	items = dropZeroItems(items)
	if len(items) < 2 {
		return nil, xerrors.ErrEmptyEntry
	}
	if !sumAmounts(items).IsZero() {
		return nil, xerrors.ErrUnbalancedEntry
	}
	if err := uc.checkDateInCurrentYear(ctx, date); err != nil {
		return nil, err
	}

	entry, err := uc.entries.GetGeneral(ctx, entryID)
	if err != nil {
		return nil, err
	}
	ref := domain.EntryRef{Kind: domain.KindGeneral, ID: entry.ID}
	old, err := uc.transactions.ListByEntry(ctx, ref)
	if err != nil {
		return nil, err
	}

	entry.Date = date
	entry.Memo = memo
	entry.Comments = comments
	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.entries.UpdateGeneral(ctx, tx, entry); err != nil {
			return err
		}
		for _, t := range old {
			if err := uc.accounts.AdjustBalance(ctx, tx, t.AccountID, t.BalanceDelta.Neg()); err != nil {
				return err
			}
		}
		if err := uc.transactions.DeleteByEntry(ctx, tx, ref); err != nil {
			return err
		}
		return uc.createLineTransactions(ctx, tx, ref, date, items)
	})
	if err != nil {
		return nil, err
	}

	touched := accountIDs(items)
	for _, t := range old {
		touched = append(touched, t.AccountID)
	}
	uc.cache.Bump(ctx, touched...)
	uc.publisher.EntryUpdated(ctx, ref, entry.Number(), entry.Memo, entry.Date)
	return entry, nil
}

// CreateBankSpendingEntry persists a withdrawal from a bank account. The
// main transaction credits the bank account by the total amount; each line
// item debits its account. Exactly one of check number or ACH must be set.
func (uc *EntryUsecase) CreateBankSpendingEntry(ctx context.Context, in BankEntryInput) (*domain.BankSpendingEntry, error) {
	bank, items, err := uc.validateBankInput(ctx, in)
	if err != nil {
		return nil, err
	}
	hasCheck := strings.TrimSpace(in.CheckNumber) != ""
	if hasCheck == in.ACHPayment {
		return nil, xerrors.ErrCheckOrACHRequired
	}
	if hasCheck {
		inUse, err := uc.entries.CheckNumberInUse(ctx, bank.ID, in.CheckNumber, 0)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, xerrors.ErrDuplicateCheckNumber
		}
	}

	entry := &domain.BankSpendingEntry{
		Date:        in.Date,
		Memo:        in.Memo,
		Comments:    in.Comments,
		AccountID:   bank.ID,
		CheckNumber: strings.TrimSpace(in.CheckNumber),
		ACHPayment:  in.ACHPayment,
		Payee:       in.Payee,
	}
	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		// A withdrawal credits the bank account in the raw sign.
		main := &domain.Transaction{
			AccountID:    bank.ID,
			Detail:       in.Memo,
			BalanceDelta: in.Amount,
			Date:         in.Date,
		}
		if err := uc.transactions.Create(ctx, tx, main); err != nil {
			return err
		}
		if err := uc.accounts.AdjustBalance(ctx, tx, bank.ID, main.BalanceDelta); err != nil {
			return err
		}
		entry.MainTransactionID = main.ID
		if err := uc.entries.CreateBankSpending(ctx, tx, entry); err != nil {
			return err
		}
		ref := domain.EntryRef{Kind: domain.KindBankSpending, ID: entry.ID}
		return uc.createLineTransactions(ctx, tx, ref, in.Date, negateItems(items))
	})
	if err != nil {
		return nil, err
	}

	uc.cache.Bump(ctx, append(accountIDs(items), bank.ID)...)
	uc.publisher.EntryCreated(ctx, domain.EntryRef{Kind: domain.KindBankSpending, ID: entry.ID},
		entry.Number(), entry.Memo, entry.Date)
	uc.logger.Info("bank spending entry created",
		zap.Int64("entry_id", entry.ID),
		zap.String("number", entry.Number()),
		zap.String("bank_account", bank.Name),
	)
	return entry, nil
}

// CreateBankReceivingEntry persists a deposit into a bank account. The
// entered positive amount is stored negated on the main transaction; each
// line item credits its account.
func (uc *EntryUsecase) CreateBankReceivingEntry(ctx context.Context, in BankEntryInput) (*domain.BankReceivingEntry, error) {
	bank, items, err := uc.validateBankInput(ctx, in)
	if err != nil {
		return nil, err
	}

	entry := &domain.BankReceivingEntry{
		Date:      in.Date,
		Memo:      in.Memo,
		Comments:  in.Comments,
		AccountID: bank.ID,
		Payor:     in.Payor,
	}
	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		// A deposit debits the bank account in the raw sign.
		main := &domain.Transaction{
			AccountID:    bank.ID,
			Detail:       in.Memo,
			BalanceDelta: in.Amount.Neg(),
			Date:         in.Date,
		}
		if err := uc.transactions.Create(ctx, tx, main); err != nil {
			return err
		}
		if err := uc.accounts.AdjustBalance(ctx, tx, bank.ID, main.BalanceDelta); err != nil {
			return err
		}
		entry.MainTransactionID = main.ID
		if err := uc.entries.CreateBankReceiving(ctx, tx, entry); err != nil {
			return err
		}
		ref := domain.EntryRef{Kind: domain.KindBankReceiving, ID: entry.ID}
		return uc.createLineTransactions(ctx, tx, ref, in.Date, items)
	})
	if err != nil {
		return nil, err
	}

	uc.cache.Bump(ctx, append(accountIDs(items), bank.ID)...)
	uc.publisher.EntryCreated(ctx, domain.EntryRef{Kind: domain.KindBankReceiving, ID: entry.ID},
		entry.Number(), entry.Memo, entry.Date)
	return entry, nil
}

// CreateTransfer moves an amount between two accounts as a two-line journal
// entry debiting the source and crediting the destination.
func (uc *EntryUsecase) CreateTransfer(ctx context.Context, date time.Time, sourceID, destinationID int64, amount decimal.Decimal, memo, detail string) (*domain.JournalEntry, error) {
	if sourceID == destinationID {
		return nil, xerrors.ErrSameAccount
	}
	if !amount.IsPositive() {
		return nil, xerrors.ErrNonPositiveAmount
	}
	return uc.CreateGeneralEntry(ctx, date, memo, "", []LineItem{
		{AccountID: sourceID, Detail: detail, Amount: amount.Neg()},
		{AccountID: destinationID, Detail: detail, Amount: amount},
	})
}

// VoidBankSpendingEntry moves an entry from Active to Void: its line
// transactions are deleted, the main transaction's delta is zeroed and the
// memo is stamped. Voiding is one-directional; the deleted lines are never
// restored. Voiding an already-void entry is a no-op.
func (uc *EntryUsecase) VoidBankSpendingEntry(ctx context.Context, entryID int64) (*domain.BankSpendingEntry, error) {
	entry, err := uc.entries.GetBankSpending(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Void {
		return entry, nil
	}

	ref := domain.EntryRef{Kind: domain.KindBankSpending, ID: entry.ID}
	lines, err := uc.transactions.ListByEntry(ctx, ref)
	if err != nil {
		return nil, err
	}
	main, err := uc.transactions.GetByID(ctx, entry.MainTransactionID)
	if err != nil {
		return nil, err
	}

	entry.MarkVoid()
	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		for _, t := range lines {
			if err := uc.accounts.AdjustBalance(ctx, tx, t.AccountID, t.BalanceDelta.Neg()); err != nil {
				return err
			}
		}
		if err := uc.transactions.DeleteByEntry(ctx, tx, ref); err != nil {
			return err
		}
		if err := uc.accounts.AdjustBalance(ctx, tx, main.AccountID, main.BalanceDelta.Neg()); err != nil {
			return err
		}
		main.BalanceDelta = decimal.Zero
		if err := uc.transactions.Update(ctx, tx, main); err != nil {
			return err
		}
		return uc.entries.UpdateBankSpending(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	touched := []int64{main.AccountID}
	for _, t := range lines {
		touched = append(touched, t.AccountID)
	}
	uc.cache.Bump(ctx, touched...)
	uc.publisher.EntryVoided(ctx, ref, entry.Number())
	uc.logger.Info("bank spending entry voided",
		zap.Int64("entry_id", entry.ID),
		zap.String("number", entry.Number()),
	)
	return entry, nil
}

// BankEntryEdit carries the spending entry fields that stay editable after
// creation. Amounts are fixed; void the entry and recreate it to change them.
type BankEntryEdit struct {
	Date        time.Time `json:"date"`
	Memo        string    `json:"memo"`
	Comments    string    `json:"comments"`
	CheckNumber string    `json:"check_number"`
	ACHPayment  bool      `json:"ach_payment"`
	Payee       string    `json:"payee"`
}

// UpdateBankSpendingEntry edits a spending entry's date, memo, payment
// details and payee, pulling the new date onto the entry's transactions.
// Void entries reject edits.
func (uc *EntryUsecase) UpdateBankSpendingEntry(ctx context.Context, entryID int64, in BankEntryEdit) (*domain.BankSpendingEntry, error) {
	entry, err := uc.entries.GetBankSpending(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Void {
		return nil, xerrors.ErrVoidEntry
	}
	checkNumber := strings.TrimSpace(in.CheckNumber)
	hasCheck := checkNumber != ""
	if hasCheck == in.ACHPayment {
		return nil, xerrors.ErrCheckOrACHRequired
	}
	if hasCheck {
		inUse, err := uc.entries.CheckNumberInUse(ctx, entry.AccountID, checkNumber, entry.ID)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, xerrors.ErrDuplicateCheckNumber
		}
	}
	if err := uc.checkDateInCurrentYear(ctx, in.Date); err != nil {
		return nil, err
	}

	main, err := uc.transactions.GetByID(ctx, entry.MainTransactionID)
	if err != nil {
		return nil, err
	}
	ref := domain.EntryRef{Kind: domain.KindBankSpending, ID: entry.ID}
	lines, err := uc.transactions.ListByEntry(ctx, ref)
	if err != nil {
		return nil, err
	}

	entry.Date = in.Date
	entry.Memo = in.Memo
	entry.Comments = in.Comments
	entry.CheckNumber = checkNumber
	entry.ACHPayment = in.ACHPayment
	entry.Payee = in.Payee
	err = uc.txm.WithTx(ctx, func(tx pgx.Tx) error {
		if err := uc.entries.UpdateBankSpending(ctx, tx, entry); err != nil {
			return err
		}
		main.Detail = in.Memo
		main.Date = in.Date
		if err := uc.transactions.Update(ctx, tx, main); err != nil {
			return err
		}
		return uc.transactions.UpdateDatesForEntry(ctx, tx, ref, in.Date)
	})
	if err != nil {
		return nil, err
	}

	touched := []int64{main.AccountID}
	for _, t := range lines {
		touched = append(touched, t.AccountID)
	}
	uc.cache.Bump(ctx, touched...)
	uc.publisher.EntryUpdated(ctx, ref, entry.Number(), entry.Memo, entry.Date)
	return entry, nil
}

// GetGeneralEntry returns an entry with its line transactions.
func (uc *EntryUsecase) GetGeneralEntry(ctx context.Context, id int64) (*domain.JournalEntry, []*domain.Transaction, error) {
	entry, err := uc.entries.GetGeneral(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := uc.transactions.ListByEntry(ctx, domain.EntryRef{Kind: domain.KindGeneral, ID: id})
	if err != nil {
		return nil, nil, err
	}
	return entry, lines, nil
}

// GetBankSpendingEntry returns an entry with its main and line transactions.
func (uc *EntryUsecase) GetBankSpendingEntry(ctx context.Context, id int64) (*domain.BankSpendingEntry, *domain.Transaction, []*domain.Transaction, error) {
	entry, err := uc.entries.GetBankSpending(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	main, err := uc.transactions.GetByID(ctx, entry.MainTransactionID)
	if err != nil {
		return nil, nil, nil, err
	}
	lines, err := uc.transactions.ListByEntry(ctx, domain.EntryRef{Kind: domain.KindBankSpending, ID: id})
	if err != nil {
		return nil, nil, nil, err
	}
	return entry, main, lines, nil
}

// GetBankReceivingEntry returns an entry with its main and line transactions.
func (uc *EntryUsecase) GetBankReceivingEntry(ctx context.Context, id int64) (*domain.BankReceivingEntry, *domain.Transaction, []*domain.Transaction, error) {
	entry, err := uc.entries.GetBankReceiving(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	main, err := uc.transactions.GetByID(ctx, entry.MainTransactionID)
	if err != nil {
		return nil, nil, nil, err
	}
	lines, err := uc.transactions.ListByEntry(ctx, domain.EntryRef{Kind: domain.KindBankReceiving, ID: id})
	if err != nil {
		return nil, nil, nil, err
	}
	return entry, main, lines, nil
}

// validateBankInput runs the checks shared by spending and receiving
// creation: a positive total, at least one positive line item summing to the
// total, a bank-flagged account and a date inside the current fiscal year.
func (uc *EntryUsecase) validateBankInput(ctx context.Context, in BankEntryInput) (*domain.Account, []LineItem, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, xerrors.ErrNonPositiveAmount
	}
	items := dropZeroItems(in.Items)
	if len(items) < 1 {
		return nil, nil, xerrors.ErrEmptyEntry
	}
	for _, item := range items {
		if !item.Amount.IsPositive() {
			return nil, nil, xerrors.ErrNonPositiveAmount
		}
	}
	if !sumAmounts(items).Equal(in.Amount) {
		return nil, nil, xerrors.ErrUnbalancedEntry
	}
	if err := uc.checkDateInCurrentYear(ctx, in.Date); err != nil {
		return nil, nil, err
	}
	bank, err := uc.accounts.GetByID(ctx, in.BankAccountID)
	if err != nil {
		return nil, nil, err
	}
	if !bank.Bank {
		return nil, nil, xerrors.ErrNotBankAccount
	}
	return bank, items, nil
}

// checkDateInCurrentYear rejects entry dates before the current fiscal
// year's start. With no fiscal years recorded, any date is allowed.
func (uc *EntryUsecase) checkDateInCurrentYear(ctx context.Context, date time.Time) error {
	latest, err := uc.fiscalYears.LatestTwo(ctx)
	if err != nil {
		return err
	}
	if len(latest) == 0 {
		return nil
	}
	if date.Before(domain.StartOfCurrentYear(latest)) {
		return xerrors.ErrDateOutsideFiscalYear
	}
	return nil
}

func (uc *EntryUsecase) createLineTransactions(ctx context.Context, tx pgx.Tx, ref domain.EntryRef, date time.Time, items []LineItem) error {
	for _, item := range items {
		t := &domain.Transaction{
			Owner:        ref,
			AccountID:    item.AccountID,
			Detail:       item.Detail,
			BalanceDelta: item.Amount,
			EventID:      item.EventID,
			Date:         date,
		}
		if err := uc.transactions.Create(ctx, tx, t); err != nil {
			return err
		}
		if err := uc.accounts.AdjustBalance(ctx, tx, item.AccountID, item.Amount); err != nil {
			return err
		}
	}
	return nil
}

func dropZeroItems(items []LineItem) []LineItem {
	kept := items[:0:0]
	for _, item := range items {
		if !item.Amount.IsZero() {
			kept = append(kept, item)
		}
	}
	return kept
}

func sumAmounts(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount)
	}
	return sum
}

func negateItems(items []LineItem) []LineItem {
	negated := make([]LineItem, len(items))
	for i, item := range items {
		item.Amount = item.Amount.Neg()
		negated[i] = item
	}
	return negated
}

func accountIDs(items []LineItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.AccountID)
	}
	return ids
}
