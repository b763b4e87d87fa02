package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pointmart/backend/internal/database"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
	"github.com/shopspring/decimal"
)

// TxHook runs extra statements inside a ledger mutation's transaction,
// after the account lock is held and before the balance changes. An error
// aborts the whole mutation.
type TxHook func(ctx context.Context, tx *sql.Tx) error

// LedgerService owns point balances and the transaction log. Every
// mutation runs under a per-user lock and a single SQL transaction.
type LedgerService struct {
	db    *database.DB
	locks *KeyedMutex[int64]
	log   *logger.Logger
	now   func() time.Time
}

func NewLedgerService(db *database.DB, log *logger.Logger) *LedgerService {
	return &LedgerService{
		db:    db,
		locks: NewKeyedMutex[int64](),
		log:   log.With("service", "LedgerService"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type mutation struct {
	userID        int64
	delta         decimal.Decimal
	kind          models.TxKind
	description   string
	allowNegative bool
	hook          TxHook
}

// GetBalance returns the account, creating a zero account on first use.
func (s *LedgerService) GetBalance(ctx context.Context, userID int64) (models.Account, error) {
	if _, err := s.db.ExecContext(ctx, s.db.Q(ensureAccountSQL), userID, s.now()); err != nil {
		return models.Account{}, models.Storage("ensure account", err)
	}
	return s.Lookup(ctx, userID)
}

// Lookup returns the account without creating it.
func (s *LedgerService) Lookup(ctx context.Context, userID int64) (models.Account, error) {
	var acct models.Account
	err := s.db.QueryRowContext(ctx, s.db.Q(`
		SELECT user_id, balance, total_spent, version, last_updated
		FROM ledger_accounts
		WHERE user_id = ?`), userID).
		Scan(&acct.UserID, &acct.Balance, &acct.TotalSpent, &acct.Version, &acct.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("account %d: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return models.Account{}, models.Storage("lookup account", err)
	}
	return acct, nil
}

// Credit adds a positive amount and returns the new balance.
func (s *LedgerService) Credit(ctx context.Context, userID int64, amount decimal.Decimal, kind models.TxKind, description string) (decimal.Decimal, error) {
	return s.CreditWithin(ctx, userID, amount, kind, description, nil)
}

// CreditWithin is Credit with hook executed in the same transaction.
func (s *LedgerService) CreditWithin(ctx context.Context, userID int64, amount decimal.Decimal, kind models.TxKind, description string, hook TxHook) (decimal.Decimal, error) {
	if err := validateMovement(amount, kind); err != nil {
		return decimal.Zero, err
	}
	return s.apply(ctx, mutation{userID: userID, delta: amount, kind: kind, description: description, hook: hook})
}

// Debit removes a positive amount, failing with InsufficientFundsError
// rather than going negative.
func (s *LedgerService) Debit(ctx context.Context, userID int64, amount decimal.Decimal, kind models.TxKind, description string) (decimal.Decimal, error) {
	if err := validateMovement(amount, kind); err != nil {
		return decimal.Zero, err
	}
	return s.apply(ctx, mutation{userID: userID, delta: amount.Neg(), kind: kind, description: description})
}

// Adjust applies an admin delta. A result below zero is rejected unless force is set.
func (s *LedgerService) Adjust(ctx context.Context, userID int64, signed decimal.Decimal, description string, force bool) (decimal.Decimal, error) {
	if signed.IsZero() {
		return decimal.Zero, models.NewValidationError("amount", "must not be zero")
	}
	return s.apply(ctx, mutation{
		userID:        userID,
		delta:         signed,
		kind:          models.TxKindAdminAdjust,
		description:   description,
		allowNegative: force,
	})
}

func validateMovement(amount decimal.Decimal, kind models.TxKind) error {
	if !amount.IsPositive() {
		return models.NewValidationError("amount", "must be positive")
	}
	if !kind.Valid() {
		return models.NewValidationError("kind", fmt.Sprintf("unknown transaction kind %q", kind))
	}
	return nil
}

func (s *LedgerService) apply(ctx context.Context, m mutation) (decimal.Decimal, error) {
	unlock := s.locks.Lock(m.userID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, models.Storage("begin ledger tx", err)
	}
	defer tx.Rollback()

	if m.hook != nil {
		if err := m.hook(ctx, tx); err != nil {
			return decimal.Zero, err
		}
	}

	acct, err := s.lockAccount(ctx, tx, m.userID)
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := acct.Balance.Add(m.delta)
	if newBalance.IsNegative() && !m.allowNegative {
		return decimal.Zero, &models.InsufficientFundsError{Balance: acct.Balance, Required: m.delta.Neg()}
	}

	totalSpent := acct.TotalSpent
	switch m.kind {
	case models.TxKindPurchase:
		if m.delta.IsNegative() {
			totalSpent = totalSpent.Add(m.delta.Neg())
		}
	case models.TxKindRefund:
		totalSpent = decimal.Max(decimal.Zero, totalSpent.Sub(m.delta))
	}

	if err := s.createTransaction(ctx, tx, m); err != nil {
		return decimal.Zero, err
	}
	if err := s.updateAccountBalance(ctx, tx, m.userID, newBalance, totalSpent, acct.Version); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, models.Storage("commit ledger tx", err)
	}

	s.log.Debug("ledger mutation applied",
		"user_id", m.userID, "kind", m.kind, "delta", m.delta.String(), "balance", newBalance.String())
	return newBalance, nil
}

const ensureAccountSQL = `
	INSERT INTO ledger_accounts (user_id, balance, total_spent, version, last_updated)
	VALUES (?, 0, 0, 0, ?)
	ON CONFLICT (user_id) DO NOTHING`

func (s *LedgerService) lockAccount(ctx context.Context, tx *sql.Tx, userID int64) (*models.Account, error) {
	if _, err := tx.ExecContext(ctx, s.db.Q(ensureAccountSQL), userID, s.now()); err != nil {
		return nil, models.Storage("ensure account", err)
	}

	var acct models.Account
	err := tx.QueryRowContext(ctx, s.db.Q(`
		SELECT user_id, balance, total_spent, version, last_updated
		FROM ledger_accounts
		WHERE user_id = ?`+s.db.Dialect.ForUpdate()), userID).
		Scan(&acct.UserID, &acct.Balance, &acct.TotalSpent, &acct.Version, &acct.LastUpdated)
	if err != nil {
		return nil, models.Storage("lock account", err)
	}
	return &acct, nil
}

func (s *LedgerService) createTransaction(ctx context.Context, tx *sql.Tx, m mutation) error {
	_, err := tx.ExecContext(ctx, s.db.Q(`
		INSERT INTO transactions (user_id, amount, kind, description, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		m.userID, m.delta, string(m.kind), m.description, s.now())
	return models.Storage("insert transaction", err)
}

func (s *LedgerService) updateAccountBalance(ctx context.Context, tx *sql.Tx, userID int64, balance, totalSpent decimal.Decimal, version int64) error {
	result, err := tx.ExecContext(ctx, s.db.Q(`
		UPDATE ledger_accounts
		SET balance = ?, total_spent = ?, version = version + 1, last_updated = ?
		WHERE user_id = ? AND version = ?`),
		balance, totalSpent, s.now(), userID, version)
	if err != nil {
		return models.Storage("update balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return models.Storage("update balance", err)
	}
	if rowsAffected == 0 {
		return models.Storage("update balance", fmt.Errorf("optimistic lock failed for user %d", userID))
	}
	return nil
}

// RecentTransactions returns the newest transactions first.
func (s *LedgerService) RecentTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Q(`
		SELECT id, user_id, amount, kind, description, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?`), userID, limit)
	if err != nil {
		return nil, models.Storage("list transactions", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var kind string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &kind, &t.Description, &t.CreatedAt); err != nil {
			return nil, models.Storage("scan transaction", err)
		}
		t.Kind = models.TxKind(kind)
		txs = append(txs, t)
	}
	return txs, models.Storage("list transactions", rows.Err())
}

// UserIDs lists every user with a ledger account.
func (s *LedgerService) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM ledger_accounts ORDER BY user_id`)
	if err != nil {
		return nil, models.Storage("list users", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, models.Storage("scan user", err)
		}
		ids = append(ids, id)
	}
	return ids, models.Storage("list users", rows.Err())
}
