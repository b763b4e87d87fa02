package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
	"github.com/pointmart/backend/internal/transport"
	"github.com/shopspring/decimal"
)

// EscrowService holds a user's intent to buy one asset between the search
// reply and the confirm button. Confirmation debits once and delivers once.
type EscrowService struct {
	catalog   *CatalogService
	ledger    *LedgerService
	pending   PendingStore
	messenger transport.Messenger
	audit     *AuditLogger
	messages  *Messages
	locks     *KeyedMutex[int64]
	log       *logger.Logger

	cost   decimal.Decimal
	maxAge time.Duration
	now    func() time.Time
}

type EscrowDeps struct {
	Catalog   *CatalogService
	Ledger    *LedgerService
	Pending   PendingStore
	Messenger transport.Messenger
	Audit     *AuditLogger
	Messages  *Messages
}

func NewEscrowService(deps EscrowDeps, cost decimal.Decimal, maxAge time.Duration, log *logger.Logger) *EscrowService {
	return &EscrowService{
		catalog:   deps.Catalog,
		ledger:    deps.Ledger,
		pending:   deps.Pending,
		messenger: deps.Messenger,
		audit:     deps.Audit,
		messages:  deps.Messages,
		locks:     NewKeyedMutex[int64](),
		log:       log.With("service", "EscrowService"),
		cost:      cost,
		maxAge:    maxAge,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Cost is the configured price of one asset.
func (s *EscrowService) Cost() decimal.Decimal {
	return s.cost
}

// Reserve records that userID intends to buy assetID, replacing any earlier
// reservation. It returns the user's current balance. A user who cannot
// afford the asset gets InsufficientFundsError and no reservation.
func (s *EscrowService) Reserve(ctx context.Context, userID int64, assetID string) (models.PendingPurchase, decimal.Decimal, error) {
	entry, err := s.catalog.Lookup(ctx, assetID)
	if err != nil {
		return models.PendingPurchase{}, decimal.Zero, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	acct, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return models.PendingPurchase{}, decimal.Zero, err
	}
	if acct.Balance.LessThan(s.cost) {
		return models.PendingPurchase{}, acct.Balance, &models.InsufficientFundsError{Balance: acct.Balance, Required: s.cost}
	}

	p := models.PendingPurchase{
		UserID:        userID,
		ReservationID: uuid.NewString(),
		AssetID:       entry.AssetID,
		ContentHandle: entry.ContentHandle,
		DisplayName:   entry.DisplayName,
		CreatedAt:     s.now(),
	}
	if err := s.pending.Put(ctx, p); err != nil {
		return models.PendingPurchase{}, decimal.Zero, err
	}

	s.log.Debug("purchase reserved", "user_id", userID, "asset_id", assetID, "reservation_id", p.ReservationID)
	return p, acct.Balance, nil
}

// Confirm completes the reservation for assetID and sends the asset to
// chatID. The reservation is taken out of the store before the debit, so it
// is fulfilled at most once even when the store is shared between processes.
// A repeated or late confirm returns ErrExpired; a confirm for a different
// asset returns ErrMismatch and leaves the reservation in place.
func (s *EscrowService) Confirm(ctx context.Context, chatID, userID int64, username, assetID string) (models.Receipt, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	p, ok, err := s.pending.Take(ctx, userID)
	if err != nil {
		return models.Receipt{}, err
	}
	if !ok {
		return models.Receipt{}, models.ErrExpired
	}
	if s.now().Sub(p.CreatedAt) > s.maxAge {
		return models.Receipt{}, models.ErrExpired
	}
	if p.AssetID != assetID {
		if err := s.pending.Put(ctx, p); err != nil {
			s.log.Warn("failed to restore pending purchase", "user_id", userID, "error", err)
		}
		return models.Receipt{}, models.ErrMismatch
	}

	balance, err := s.ledger.Debit(ctx, userID, s.cost, models.TxKindPurchase, fmt.Sprintf("Purchased image %s", assetID))
	if err != nil {
		return models.Receipt{}, err
	}

	receipt := models.Receipt{AssetID: assetID, Cost: s.cost, NewBalance: balance}
	if err := s.messenger.SendDocument(ctx, chatID, p.ContentHandle, s.messages.PurchaseCaption(receipt)); err != nil {
		return models.Receipt{}, s.refund(ctx, userID, assetID, err)
	}

	s.audit.Purchase(ctx, userID, username, assetID, s.cost, balance)
	s.log.Info("purchase completed", "user_id", userID, "asset_id", assetID, "balance", balance.String())
	return receipt, nil
}

// refund credits the cost back after a failed delivery.
func (s *EscrowService) refund(ctx context.Context, userID int64, assetID string, cause error) error {
	s.log.Error("asset delivery failed, refunding", "user_id", userID, "asset_id", assetID, "error", cause)
	if _, err := s.ledger.Credit(ctx, userID, s.cost, models.TxKindRefund, fmt.Sprintf("Refund for image %s", assetID)); err != nil {
		s.log.Error("refund failed", "user_id", userID, "asset_id", assetID, "error", err)
		return errors.Join(fmt.Errorf("deliver %s: %w", assetID, models.ErrDeliveryFailed), err)
	}
	return fmt.Errorf("deliver %s: %w: %v", assetID, models.ErrDeliveryFailed, cause)
}

// Cancel drops the user's reservation, if any.
func (s *EscrowService) Cancel(ctx context.Context, userID int64) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.pending.Delete(ctx, userID)
}

