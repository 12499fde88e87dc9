package usecase

import (
	"context"
	"testing"
	"time"

	"ledger-service/internal/domain"
	"ledger-service/internal/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchStatementRejectsNonBankAccount(t *testing.T) {
	env := newTestEnv()
	cash := env.addAccount("Petty Cash", domain.TypeAsset, false)

	_, err := env.imports.MatchStatement(context.Background(), cash.ID, nil)
	assert.ErrorIs(t, err, xerrors.ErrNotBankAccount)
}

func TestListBankAccounts(t *testing.T) {
	env := newTestEnv()
	env.addAccount("Petty Cash", domain.TypeAsset, false)
	env.addAccount("Checking", domain.TypeAsset, true)
	env.addAccount("Savings", domain.TypeAsset, true)

	banks, err := env.imports.ListBankAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, "Checking", banks[0].Name)
	assert.Equal(t, "Savings", banks[1].Name)
}

func TestMatchStatementByCheckNumber(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	bank := env.addAccount("Checking", domain.TypeAsset, true)
	expense := env.addAccount("Supplies", domain.TypeExpense, false)

	entry, err := env.entries.CreateBankSpendingEntry(ctx, BankEntryInput{
		Date:          date(2014, time.June, 2),
		BankAccountID: bank.ID,
		Amount:        dec("50.00"),
		Memo:          "office supplies",
		CheckNumber:   "1001",
		Items:         []LineItem{{AccountID: expense.ID, Amount: dec("50.00")}},
	})
	require.NoError(t, err)

	// The statement clears the check weeks later; the number still matches.
	result, err := env.imports.MatchStatement(ctx, bank.ID, []domain.StatementItem{
		{Date: date(2014, time.July, 20), Amount: dec("50.00"), CheckNumber: "1001", Kind: domain.StatementWithdrawal},
	})
	require.NoError(t, err)
	require.Len(t, result.Matched, 1)
	assert.Equal(t, entry.MainTransactionID, result.Matched[0].ID)
	assert.Empty(t, result.Withdrawals)
}

func TestMatchStatementByDate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	bank := env.addAccount("Checking", domain.TypeAsset, true)
	income := env.addAccount("Donations", domain.TypeIncome, false)

	entry, err := env.entries.CreateBankReceivingEntry(ctx, BankEntryInput{
		Date:          date(2014, time.June, 10),
		BankAccountID: bank.ID,
		Amount:        dec("200.00"),
		Memo:          "collection",
		Payor:         "Congregation",
		Items:         []LineItem{{AccountID: income.ID, Amount: dec("200.00")}},
	})
	require.NoError(t, err)

	// Same day matches exactly; three days off falls into the fuzz window.
	for _, day := range []int{10, 13} {
		result, err := env.imports.MatchStatement(ctx, bank.ID, []domain.StatementItem{
			{Date: date(2014, time.June, day), Amount: dec("200.00"), Kind: domain.StatementDeposit},
		})
		require.NoError(t, err)
		require.Len(t, result.Matched, 1)
		assert.Equal(t, entry.MainTransactionID, result.Matched[0].ID)
	}

	// Eight days off is out of range.
	result, err := env.imports.MatchStatement(ctx, bank.ID, []domain.StatementItem{
		{Date: date(2014, time.June, 18), Amount: dec("200.00"), Kind: domain.StatementDeposit},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Matched)
	assert.Len(t, result.Deposits, 1)
}

func TestMatchStatementConsumesTransactionsOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	bank := env.addAccount("Checking", domain.TypeAsset, true)
	income := env.addAccount("Donations", domain.TypeIncome, false)

	_, err := env.entries.CreateBankReceivingEntry(ctx, BankEntryInput{
		Date:          date(2014, time.June, 10),
		BankAccountID: bank.ID,
		Amount:        dec("200.00"),
		Payor:         "Congregation",
		Items:         []LineItem{{AccountID: income.ID, Amount: dec("200.00")}},
	})
	require.NoError(t, err)

	item := domain.StatementItem{Date: date(2014, time.June, 10), Amount: dec("200.00"), Kind: domain.StatementDeposit}
	result, err := env.imports.MatchStatement(ctx, bank.ID, []domain.StatementItem{item, item})
	require.NoError(t, err)

	// One statement line takes the transaction; the duplicate becomes a
	// prefill instead of matching the same row twice.
	assert.Len(t, result.Matched, 1)
	assert.Len(t, result.Deposits, 1)
}

func TestMatchStatementCheckRangePrefill(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	bank := env.addAccount("Checking", domain.TypeAsset, true)
	utilities := env.addAccount("Utilities", domain.TypeExpense, false)

	env.store.ranges = append(env.store.ranges, &domain.CheckRange{
		ID:               env.store.id(),
		BankAccountID:    bank.ID,
		StartNumber:      2000,
		EndNumber:        2099,
		DefaultAccountID: utilities.ID,
		DefaultPayee:     "Power Co",
		DefaultMemo:      "monthly electric",
	})

	result, err := env.imports.MatchStatement(ctx, bank.ID, []domain.StatementItem{
		{Date: date(2014, time.June, 5), Amount: dec("80.00"), CheckNumber: "2004", Memo: "CHK 2004", Kind: domain.StatementWithdrawal},
	})
	require.NoError(t, err)
	require.Len(t, result.Withdrawals, 1)

	prefill := result.Withdrawals[0]
	assert.Equal(t, "2004", prefill.CheckNumber)
	assert.False(t, prefill.ACHPayment)
	assert.Equal(t, utilities.ID, prefill.ExpenseAccountID)
	assert.Equal(t, "Power Co", prefill.Payee)
	assert.Equal(t, "monthly electric", prefill.Memo)
}

func TestMatchStatementMemoSuggestion(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	bank := env.addAccount("Checking", domain.TypeAsset, true)
	utilities := env.addAccount("Utilities", domain.TypeExpense, false)

	// A prior single-line payment seeds the suggestion.
	_, err := env.entries.CreateBankSpendingEntry(ctx, BankEntryInput{
		Date:          date(2014, time.May, 3),
		BankAccountID: bank.ID,
		Amount:        dec("80.00"),
		Memo:          "electric bill",
		ACHPayment:    true,
		Payee:         "Power Co",
		Items:         []LineItem{{AccountID: utilities.ID, Amount: dec("80.00")}},
	})
	require.NoError(t, err)

	// A check number of "0" means ACH on most statement exports.
	result, err := env.imports.MatchStatement(ctx, bank.ID, []domain.StatementItem{
		{Date: date(2014, time.June, 17), Amount: dec("82.50"), CheckNumber: "0", Memo: "electric bill", Kind: domain.StatementWithdrawal},
	})
	require.NoError(t, err)
	require.Len(t, result.Withdrawals, 1)

	prefill := result.Withdrawals[0]
	assert.True(t, prefill.ACHPayment)
	assert.Empty(t, prefill.CheckNumber)
	assert.Equal(t, utilities.ID, prefill.ExpenseAccountID)
	assert.Equal(t, "Power Co", prefill.Payee)
}

func TestMatchStatementTransferPrefill(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	bank := env.addAccount("Checking", domain.TypeAsset, true)

	result, err := env.imports.MatchStatement(ctx, bank.ID, []domain.StatementItem{
		{Date: date(2014, time.June, 1), Amount: dec("500.00"), Kind: domain.StatementTransferWithdrawal},
		{Date: date(2014, time.June, 1), Amount: dec("400.00"), Kind: domain.StatementTransferDeposit},
	})
	require.NoError(t, err)
	require.Len(t, result.Transfers, 2)

	assert.Equal(t, bank.ID, result.Transfers[0].SourceID)
	assert.Zero(t, result.Transfers[0].DestinationID)
	assert.Equal(t, bank.ID, result.Transfers[1].DestinationID)
	assert.Zero(t, result.Transfers[1].SourceID)
}
