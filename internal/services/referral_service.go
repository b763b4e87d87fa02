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

// ReferralService records who invited whom and pays the inviter once per
// invited user.
type ReferralService struct {
	db      *database.DB
	ledger  *LedgerService
	audit   *AuditLogger
	locks   *KeyedMutex[int64]
	log     *logger.Logger
	reward  decimal.Decimal
	botName string
	now     func() time.Time
}

func NewReferralService(db *database.DB, ledger *LedgerService, audit *AuditLogger, reward decimal.Decimal, botName string, log *logger.Logger) *ReferralService {
	return &ReferralService{
		db:      db,
		ledger:  ledger,
		audit:   audit,
		locks:   NewKeyedMutex[int64](),
		log:     log.With("service", "ReferralService"),
		reward:  reward,
		botName: botName,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Reward is the configured credit per referral.
func (s *ReferralService) Reward() decimal.Decimal {
	return s.reward
}

// Register credits referrerID for bringing in referredID. A user can be
// referred at most once; the record and the credit commit together.
func (s *ReferralService) Register(ctx context.Context, referrerID, referredID int64) (models.RegisterOutcome, error) {
	if referrerID <= 0 || referredID <= 0 {
		return "", models.NewValidationError("user id", "must be positive")
	}
	if referrerID == referredID {
		return models.ReferralSelfReferral, nil
	}

	unlock := s.locks.Lock(referredID)
	defer unlock()

	insert := func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, s.db.Q(`
			INSERT INTO referrals (referrer_id, referred_id, rewarded, reward, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`),
			referrerID, referredID, s.reward.IsPositive(), s.reward, s.now())
		if err != nil {
			return models.Storage("insert referral", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return models.Storage("insert referral", err)
		}
		if n == 0 {
			return models.ErrAlreadyReferred
		}
		return nil
	}

	var err error
	if s.reward.IsPositive() {
		_, err = s.ledger.CreditWithin(ctx, referrerID, s.reward, models.TxKindReferral,
			fmt.Sprintf("Referral bonus for user %d", referredID), insert)
	} else {
		err = s.recordOnly(ctx, insert)
	}
	if errors.Is(err, models.ErrAlreadyReferred) {
		return models.ReferralAlreadyReferred, nil
	}
	if err != nil {
		return "", err
	}

	s.log.Info("referral registered", "referrer_id", referrerID, "referred_id", referredID, "reward", s.reward.String())
	s.audit.ReferralCredited(ctx, referrerID, referredID, s.reward)
	return models.ReferralCredited, nil
}

// recordOnly runs insert in its own transaction when there is nothing to credit.
func (s *ReferralService) recordOnly(ctx context.Context, insert TxHook) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Storage("begin referral tx", err)
	}
	defer tx.Rollback()

	if err := insert(ctx, tx); err != nil {
		return err
	}
	return models.Storage("commit referral tx", tx.Commit())
}

// Stats returns how many users userID referred and what that earned.
func (s *ReferralService) Stats(ctx context.Context, userID int64) (models.ReferralStats, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Q(`
		SELECT rewarded, reward FROM referrals WHERE referrer_id = ?`), userID)
	if err != nil {
		return models.ReferralStats{}, models.Storage("referral stats", err)
	}
	defer rows.Close()

	stats := models.ReferralStats{Earned: decimal.Zero}
	for rows.Next() {
		var (
			rewarded bool
			reward   decimal.Decimal
		)
		if err := rows.Scan(&rewarded, &reward); err != nil {
			return models.ReferralStats{}, models.Storage("scan referral", err)
		}
		stats.Count++
		if rewarded {
			stats.Earned = stats.Earned.Add(reward)
		}
	}
	return stats, models.Storage("referral stats", rows.Err())
}

// Recent lists the newest referrals made by userID.
func (s *ReferralService) Recent(ctx context.Context, userID int64, limit int) ([]models.ReferralRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Q(`
		SELECT referrer_id, referred_id, rewarded, reward, created_at
		FROM referrals
		WHERE referrer_id = ?
		ORDER BY created_at DESC, referred_id DESC
		LIMIT ?`), userID, limit)
	if err != nil {
		return nil, models.Storage("list referrals", err)
	}
	defer rows.Close()

	var records []models.ReferralRecord
	for rows.Next() {
		var r models.ReferralRecord
		if err := rows.Scan(&r.ReferrerID, &r.ReferredID, &r.Rewarded, &r.Reward, &r.CreatedAt); err != nil {
			return nil, models.Storage("scan referral", err)
		}
		records = append(records, r)
	}
	return records, models.Storage("list referrals", rows.Err())
}

// ReferralLink is the deep link that starts the bot with userID as referrer.
func (s *ReferralService) ReferralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", s.botName, userID)
}
