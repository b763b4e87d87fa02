package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pointmart/backend/internal/database"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_Debit_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewLedgerService(database.New(db, database.Postgres), logger.NewNop())
	userID := int64(42)

	t.Run("successful purchase debit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_accounts").
			WithArgs(userID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT user_id, balance, total_spent, version, last_updated FROM ledger_accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "total_spent", "version", "last_updated"}).
				AddRow(userID, "5", "2", 3, time.Now()))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(userID, "-1", "purchase", "Purchased asset 2301326979", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE ledger_accounts SET balance = \\$1, total_spent = \\$2, version = version \\+ 1, last_updated = \\$3 WHERE user_id = \\$4 AND version = \\$5").
			WithArgs("4", "3", sqlmock.AnyArg(), userID, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		balance, err := service.Debit(context.Background(), userID, decimal.NewFromInt(1), models.TxKindPurchase, "Purchased asset 2301326979")
		assert.NoError(t, err)
		assert.Equal(t, "4", balance.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_accounts").
			WithArgs(userID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT user_id, balance, total_spent, version, last_updated FROM ledger_accounts WHERE user_id = \\$1 FOR UPDATE").
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "total_spent", "version", "last_updated"}).
				AddRow(userID, "0.5", "0", 1, time.Now()))
		mock.ExpectRollback()

		_, err := service.Debit(context.Background(), userID, decimal.NewFromInt(1), models.TxKindPurchase, "x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInsufficientFunds))

		var short *models.InsufficientFundsError
		require.True(t, errors.As(err, &short))
		assert.Equal(t, "0.5", short.Balance.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("optimistic lock failure is a storage error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_accounts").
			WithArgs(userID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT user_id, balance").
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "total_spent", "version", "last_updated"}).
				AddRow(userID, "5", "0", 7, time.Now()))
		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE ledger_accounts").
			WithArgs("3", "0", sqlmock.AnyArg(), userID, 7).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := service.Debit(context.Background(), userID, decimal.NewFromInt(2), models.TxKindAdminAdjust, "x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrStorage))
		assert.Contains(t, err.Error(), "optimistic lock failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure aborts", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_accounts").
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := service.Credit(context.Background(), userID, decimal.NewFromInt(1), models.TxKindReferral, "x")
		assert.True(t, errors.Is(err, models.ErrStorage))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_Validation(t *testing.T) {
	service := NewLedgerService(newTestDB(t), logger.NewNop())
	ctx := context.Background()

	_, err := service.Credit(ctx, 1, decimal.Zero, models.TxKindReferral, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = service.Debit(ctx, 1, decimal.NewFromInt(-3), models.TxKindPurchase, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = service.Credit(ctx, 1, decimal.NewFromInt(1), models.TxKind("gift"), "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = service.Adjust(ctx, 1, decimal.Zero, "", false)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestLedgerService_GetBalanceCreatesAccount(t *testing.T) {
	db := newTestDB(t)
	service := NewLedgerService(db, logger.NewNop())
	ctx := context.Background()

	_, err := service.Lookup(ctx, 77)
	assert.ErrorIs(t, err, models.ErrNotFound)

	acct, err := service.GetBalance(ctx, 77)
	require.NoError(t, err)
	assert.True(t, acct.Balance.IsZero())
	assert.True(t, acct.TotalSpent.IsZero())

	again, err := service.GetBalance(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, acct.Version, again.Version)
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM ledger_accounts"))
	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM transactions"))
}

func TestLedgerService_AdjustUnknownUser(t *testing.T) {
	db := newTestDB(t)
	service := NewLedgerService(db, logger.NewNop())
	ctx := context.Background()

	balance, err := service.Adjust(ctx, 555, decimal.NewFromInt(50), "Admin adjustment", false)
	require.NoError(t, err)
	assert.Equal(t, "50", balance.String())

	txs, err := service.RecentTransactions(ctx, 555, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxKindAdminAdjust, txs[0].Kind)
	assert.Equal(t, "50", txs[0].Amount.String())
}

func TestLedgerService_AdjustNegative(t *testing.T) {
	service := NewLedgerService(newTestDB(t), logger.NewNop())
	ctx := context.Background()

	_, err := service.Credit(ctx, 8, decimal.NewFromInt(3), models.TxKindAdminAdjust, "top up")
	require.NoError(t, err)

	_, err = service.Adjust(ctx, 8, decimal.NewFromInt(-5), "too much", false)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	acct, err := service.GetBalance(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "3", acct.Balance.String())

	balance, err := service.Adjust(ctx, 8, decimal.NewFromInt(-5), "forced", true)
	require.NoError(t, err)
	assert.Equal(t, "-2", balance.String())
}

func TestLedgerService_TotalSpentAndRefund(t *testing.T) {
	service := NewLedgerService(newTestDB(t), logger.NewNop())
	ctx := context.Background()

	_, err := service.Credit(ctx, 3, decimal.NewFromInt(10), models.TxKindAdminAdjust, "top up")
	require.NoError(t, err)
	_, err = service.Debit(ctx, 3, decimal.NewFromInt(2), models.TxKindPurchase, "buy")
	require.NoError(t, err)
	_, err = service.Credit(ctx, 3, decimal.NewFromInt(1), models.TxKindRefund, "refund")
	require.NoError(t, err)

	acct, err := service.GetBalance(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "9", acct.Balance.String())
	assert.Equal(t, "1", acct.TotalSpent.String())

	txs, err := service.RecentTransactions(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TxKindRefund, txs[0].Kind)
	assert.Equal(t, models.TxKindPurchase, txs[1].Kind)
	assert.Equal(t, "-2", txs[1].Amount.String())
}

func TestLedgerService_ConcurrentDebits(t *testing.T) {
	service := NewLedgerService(newTestDB(t), logger.NewNop())
	ctx := context.Background()
	userID := int64(1001)

	_, err := service.Credit(ctx, userID, decimal.NewFromInt(1), models.TxKindAdminAdjust, "seed")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Debit(ctx, userID, decimal.NewFromInt(1), models.TxKindPurchase, "race")
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, models.ErrInsufficientFunds):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)

	acct, err := service.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, acct.Balance.IsZero())
	assert.Zero(t, service.locks.Len())
}

func TestLedgerService_BalanceNeverNegative(t *testing.T) {
	service := NewLedgerService(newTestDB(t), logger.NewNop())
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		userID := int64(rng.Intn(3) + 1)
		amount := decimal.New(int64(rng.Intn(50)+1), -1) // 0.1 .. 5.0
		var err error
		switch rng.Intn(3) {
		case 0:
			_, err = service.Credit(ctx, userID, amount, models.TxKindReferral, "credit")
		case 1:
			_, err = service.Debit(ctx, userID, amount, models.TxKindPurchase, "debit")
		default:
			if rng.Intn(2) == 0 {
				amount = amount.Neg()
			}
			_, err = service.Adjust(ctx, userID, amount, "adjust", false)
		}
		if err != nil {
			require.ErrorIs(t, err, models.ErrInsufficientFunds)
		}

		acct, err := service.GetBalance(ctx, userID)
		require.NoError(t, err)
		require.False(t, acct.Balance.IsNegative(), "step %d: balance %s", i, acct.Balance)
	}
}
