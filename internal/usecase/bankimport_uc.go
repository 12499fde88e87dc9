package usecase

import (
	"context"
	"strconv"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
	"ledger-service/internal/xerrors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// matchDateFuzz is how far a statement line's date may drift from an
// existing transaction and still match.
const matchDateFuzz = 7 * 24 * time.Hour

// TransferPrefill seeds a transfer form for an unmatched statement line.
type TransferPrefill struct {
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo"`
	SourceID      int64           `json:"source_id,omitempty"`
	DestinationID int64           `json:"destination_id,omitempty"`
}

// SpendingPrefill seeds a bank spending entry form for an unmatched
// withdrawal.
type SpendingPrefill struct {
	Date             time.Time       `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	Memo             string          `json:"memo"`
	BankAccountID    int64           `json:"bank_account_id"`
	CheckNumber      string          `json:"check_number,omitempty"`
	ACHPayment       bool            `json:"ach_payment"`
	ExpenseAccountID int64           `json:"expense_account_id,omitempty"`
	Payee            string          `json:"payee,omitempty"`
}

// ReceivingPrefill seeds a bank receiving entry form for an unmatched
// deposit.
type ReceivingPrefill struct {
	Date               time.Time       `json:"date"`
	Amount             decimal.Decimal `json:"amount"`
	Memo               string          `json:"memo"`
	BankAccountID      int64           `json:"bank_account_id"`
	ReceivingAccountID int64           `json:"receiving_account_id,omitempty"`
	Payor              string          `json:"payor,omitempty"`
}

// MatchResult is the outcome of reconciling a statement against the ledger.
type MatchResult struct {
	Matched     []*domain.Transaction `json:"matched"`
	Transfers   []TransferPrefill     `json:"transfers"`
	Withdrawals []SpendingPrefill     `json:"withdrawals"`
	Deposits    []ReceivingPrefill    `json:"deposits"`
}

// BankImportUsecase reconciles imported bank statement lines against
// existing transactions and builds prefill data for the rest.
type BankImportUsecase struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	entries      repository.EntryRepository
	checkRanges  repository.CheckRangeRepository
	logger       *zap.Logger
}

func NewBankImportUsecase(
	accounts repository.AccountRepository,
	transactions repository.TransactionRepository,
	entries repository.EntryRepository,
	checkRanges repository.CheckRangeRepository,
	logger *zap.Logger,
) *BankImportUsecase {
	return &BankImportUsecase{
		accounts:     accounts,
		transactions: transactions,
		entries:      entries,
		checkRanges:  checkRanges,
		logger:       logger,
	}
}

// ListBankAccounts returns the bank-flagged accounts a statement can be
// imported against.
func (uc *BankImportUsecase) ListBankAccounts(ctx context.Context) ([]*domain.Account, error) {
	return uc.accounts.ListBanks(ctx)
}

// MatchStatement pairs statement lines with existing transactions on the
// bank account. A line matches on check number first, then exact date, then
// within a seven day window, always against the same signed amount; each
// existing transaction is consumed by at most one line. Unmatched lines come
// back as prefill data for new entries.
func (uc *BankImportUsecase) MatchStatement(ctx context.Context, bankAccountID int64, items []domain.StatementItem) (*MatchResult, error) {
	bank, err := uc.accounts.GetByID(ctx, bankAccountID)
	if err != nil {
		return nil, err
	}
	if !bank.Bank {
		return nil, xerrors.ErrNotBankAccount
	}

	result := &MatchResult{}
	taken := make(map[int64]bool)
	for _, item := range items {
		match, err := uc.matchItem(ctx, bank.ID, item, taken)
		if err != nil {
			return nil, err
		}
		if match != nil {
			taken[match.ID] = true
			result.Matched = append(result.Matched, match)
			continue
		}
		if err := uc.appendPrefill(ctx, bank.ID, item, result); err != nil {
			return nil, err
		}
	}
	uc.logger.Info("bank statement matched",
		zap.Int64("bank_account_id", bank.ID),
		zap.Int("lines", len(items)),
		zap.Int("matched", len(result.Matched)),
	)
	return result, nil
}

func (uc *BankImportUsecase) matchItem(ctx context.Context, bankAccountID int64, item domain.StatementItem, taken map[int64]bool) (*domain.Transaction, error) {
	// Deposits debit the bank account, so the ledger delta is negated.
	delta := item.Amount
	if item.Kind.IsDeposit() {
		delta = delta.Neg()
	}

	var candidates []*domain.Transaction
	var err error
	if item.CheckNumber != "" && item.CheckNumber != "0" {
		candidates, err = uc.transactions.ListByCheckNumber(ctx, bankAccountID, delta, item.CheckNumber)
	} else {
		candidates, err = uc.transactions.ListForMatching(ctx, bankAccountID, delta, item.Date, item.Date)
	}
	if err != nil {
		return nil, err
	}
	if match := firstFree(candidates, taken); match != nil {
		return match, nil
	}

	from := item.Date.Add(-matchDateFuzz)
	to := item.Date.Add(matchDateFuzz)
	candidates, err = uc.transactions.ListForMatching(ctx, bankAccountID, delta, from, to)
	if err != nil {
		return nil, err
	}
	return firstFree(candidates, taken), nil
}

func firstFree(candidates []*domain.Transaction, taken map[int64]bool) *domain.Transaction {
	for _, t := range candidates {
		if !taken[t.ID] {
			return t
		}
	}
	return nil
}

func (uc *BankImportUsecase) appendPrefill(ctx context.Context, bankAccountID int64, item domain.StatementItem, result *MatchResult) error {
	switch {
	case item.Kind.IsTransfer():
		result.Transfers = append(result.Transfers, buildTransferPrefill(bankAccountID, item))
	case item.Kind.IsDeposit():
		prefill, err := uc.buildReceivingPrefill(ctx, bankAccountID, item)
		if err != nil {
			return err
		}
		result.Deposits = append(result.Deposits, prefill)
	default:
		prefill, err := uc.buildSpendingPrefill(ctx, bankAccountID, item)
		if err != nil {
			return err
		}
		result.Withdrawals = append(result.Withdrawals, prefill)
	}
	return nil
}

func buildTransferPrefill(bankAccountID int64, item domain.StatementItem) TransferPrefill {
	prefill := TransferPrefill{
		Date:   item.Date,
		Amount: item.Amount.Abs(),
		Memo:   item.Memo,
	}
	if item.Kind.IsDeposit() {
		prefill.DestinationID = bankAccountID
	} else {
		prefill.SourceID = bankAccountID
	}
	return prefill
}

// buildSpendingPrefill fills a withdrawal form. A check number inside a
// configured range supplies the range's defaults; otherwise prior
// single-line entries with a similar memo suggest the expense account and
// payee.
func (uc *BankImportUsecase) buildSpendingPrefill(ctx context.Context, bankAccountID int64, item domain.StatementItem) (SpendingPrefill, error) {
	prefill := SpendingPrefill{
		Date:          item.Date,
		Amount:        item.Amount.Abs(),
		Memo:          item.Memo,
		BankAccountID: bankAccountID,
		ACHPayment:    item.CheckNumber == "" || item.CheckNumber == "0",
	}
	if !prefill.ACHPayment {
		prefill.CheckNumber = item.CheckNumber
		if number, err := strconv.Atoi(item.CheckNumber); err == nil {
			checkRange, err := uc.checkRanges.FindForCheck(ctx, bankAccountID, number)
			if err != nil {
				return SpendingPrefill{}, err
			}
			if checkRange != nil {
				prefill.ExpenseAccountID = checkRange.DefaultAccountID
				prefill.Memo = checkRange.DefaultMemo
				prefill.Payee = checkRange.DefaultPayee
				return prefill, nil
			}
		}
	}
	if prefill.Memo != "" {
		suggestion, err := uc.suggestSpending(ctx, prefill.Memo, item.Date.Day())
		if err != nil {
			return SpendingPrefill{}, err
		}
		if suggestion != nil {
			prefill.ExpenseAccountID = suggestion.AccountID
			prefill.Payee = suggestion.Counterparty
		}
	}
	return prefill, nil
}

func (uc *BankImportUsecase) buildReceivingPrefill(ctx context.Context, bankAccountID int64, item domain.StatementItem) (ReceivingPrefill, error) {
	prefill := ReceivingPrefill{
		Date:          item.Date,
		Amount:        item.Amount.Abs(),
		Memo:          item.Memo,
		BankAccountID: bankAccountID,
	}
	if prefill.Memo != "" {
		suggestion, err := uc.suggestReceiving(ctx, prefill.Memo, item.Date.Day())
		if err != nil {
			return ReceivingPrefill{}, err
		}
		if suggestion != nil {
			prefill.ReceivingAccountID = suggestion.AccountID
			prefill.Payor = suggestion.Counterparty
		}
	}
	return prefill, nil
}

// CreateCheckRange registers prefill defaults for a span of check numbers
// on a bank account.
func (uc *BankImportUsecase) CreateCheckRange(ctx context.Context, cr *domain.CheckRange) (*domain.CheckRange, error) {
	if cr.StartNumber > cr.EndNumber {
		return nil, xerrors.ErrInvalidInput
	}
	bank, err := uc.accounts.GetByID(ctx, cr.BankAccountID)
	if err != nil {
		return nil, err
	}
	if !bank.Bank {
		return nil, xerrors.ErrNotBankAccount
	}
	if _, err := uc.accounts.GetByID(ctx, cr.DefaultAccountID); err != nil {
		return nil, err
	}
	if err := uc.checkRanges.Create(ctx, cr); err != nil {
		return nil, err
	}
	return cr, nil
}

func (uc *BankImportUsecase) ListCheckRanges(ctx context.Context, bankAccountID int64) ([]*domain.CheckRange, error) {
	return uc.checkRanges.ListByBankAccount(ctx, bankAccountID)
}

func (uc *BankImportUsecase) DeleteCheckRange(ctx context.Context, id int64) error {
	return uc.checkRanges.Delete(ctx, id)
}

// suggestSpending prefers an entry from the same day of the month, falling
// back to any day.
func (uc *BankImportUsecase) suggestSpending(ctx context.Context, memo string, day int) (*repository.EntrySuggestion, error) {
	suggestion, err := uc.entries.SuggestSpendingByMemo(ctx, memo, day)
	if err != nil || suggestion != nil {
		return suggestion, err
	}
	return uc.entries.SuggestSpendingByMemo(ctx, memo, 0)
}

func (uc *BankImportUsecase) suggestReceiving(ctx context.Context, memo string, day int) (*repository.EntrySuggestion, error) {
	suggestion, err := uc.entries.SuggestReceivingByMemo(ctx, memo, day)
	if err != nil || suggestion != nil {
		return suggestion, err
	}
	return uc.entries.SuggestReceivingByMemo(ctx, memo, 0)
}
