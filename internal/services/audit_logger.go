package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
	"github.com/pointmart/backend/internal/transport"
	"github.com/shopspring/decimal"
)

type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    int64             `json:"user_id,omitempty"`
	AssetID   string            `json:"asset_id,omitempty"`
	Amount    string            `json:"amount,omitempty"`
	Status    string            `json:"status"`
	Details   map[string]string `json:"details,omitempty"`
}

// AuditLogger writes audit events to the log and mirrors a readable line
// to the audit chat when one is configured.
type AuditLogger struct {
	log       *logger.Logger
	messenger transport.Messenger
	chatID    int64
	now       func() time.Time
}

func NewAuditLogger(log *logger.Logger, messenger transport.Messenger, chatID int64) *AuditLogger {
	return &AuditLogger{
		log:       log.With("service", "AuditLogger"),
		messenger: messenger,
		chatID:    chatID,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuditLogger) UserJoined(ctx context.Context, userID int64, username string) {
	a.record(ctx, AuditEvent{
		EventType: "USER_JOINED",
		UserID:    userID,
		Status:    "SUCCESS",
		Details:   map[string]string{"username": username},
	}, fmt.Sprintf("🆕 New user joined\nUser: %s\nID: %d", displayUser(username, userID), userID))
}

func (a *AuditLogger) ReferralCredited(ctx context.Context, referrerID, referredID int64, reward decimal.Decimal) {
	a.record(ctx, AuditEvent{
		EventType: "REFERRAL",
		UserID:    referrerID,
		Amount:    reward.String(),
		Status:    "SUCCESS",
		Details:   map[string]string{"referred_id": fmt.Sprint(referredID)},
	}, fmt.Sprintf("🤝 Referral credited\nReferrer: %d\nNew user: %d\nReward: %s points", referrerID, referredID, reward))
}

func (a *AuditLogger) Purchase(ctx context.Context, userID int64, username, assetID string, cost, balance decimal.Decimal) {
	a.record(ctx, AuditEvent{
		EventType: "PURCHASE",
		UserID:    userID,
		AssetID:   assetID,
		Amount:    cost.Neg().String(),
		Status:    "SUCCESS",
		Details:   map[string]string{"balance": balance.String()},
	}, fmt.Sprintf("🛒 Image purchased\nUser: %s\nImage ID: %s\nCost: %s points\nRemaining: %s points",
		displayUser(username, userID), assetID, cost, balance))
}

func (a *AuditLogger) AssetNotFound(ctx context.Context, userID int64, username, assetID string) {
	a.record(ctx, AuditEvent{
		EventType: "ASSET_NOT_FOUND",
		UserID:    userID,
		AssetID:   assetID,
		Status:    "FAILED",
	}, fmt.Sprintf("🔍 Image not found\nUser: %s\nImage ID: %s", displayUser(username, userID), assetID))
}

func (a *AuditLogger) BalanceUpdated(ctx context.Context, adminID, userID int64, delta, balance decimal.Decimal) {
	a.record(ctx, AuditEvent{
		EventType: "BALANCE_UPDATED",
		UserID:    userID,
		Amount:    delta.String(),
		Status:    "SUCCESS",
		Details:   map[string]string{"admin_id": fmt.Sprint(adminID), "balance": balance.String()},
	}, fmt.Sprintf("💰 Balance updated\nAdmin: %d\nUser: %d\nChange: %s points\nNew balance: %s points",
		adminID, userID, signed(delta), balance))
}

func (a *AuditLogger) AssetIndexed(ctx context.Context, assetID, name, source string) {
	a.record(ctx, AuditEvent{
		EventType: "ASSET_INDEXED",
		AssetID:   assetID,
		Status:    "SUCCESS",
		Details:   map[string]string{"name": name, "source": source},
	}, fmt.Sprintf("📥 Auto-indexed file\nImage ID: %s\nFile: %s", assetID, name))
}

func (a *AuditLogger) PermissionDenied(ctx context.Context, userID int64, action string) {
	a.record(ctx, AuditEvent{
		EventType: "PERMISSION_DENIED",
		UserID:    userID,
		Status:    "DENIED",
		Details:   map[string]string{"action": action},
	}, "")
}

func (a *AuditLogger) Broadcast(ctx context.Context, adminID int64, result models.BroadcastResult) {
	a.record(ctx, AuditEvent{
		ID:        result.JobID,
		EventType: "BROADCAST",
		UserID:    adminID,
		Status:    "COMPLETED",
		Details: map[string]string{
			"success": fmt.Sprint(result.Success),
			"failure": fmt.Sprint(result.Failure),
		},
	}, fmt.Sprintf("📢 Broadcast finished\nAdmin: %d\nDelivered: %d\nFailed: %d", adminID, result.Success, result.Failure))
}

// record logs event and, if text is set, posts it to the audit chat.
// Audit delivery never fails the caller.
func (a *AuditLogger) record(ctx context.Context, event AuditEvent, text string) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.Timestamp = a.now()

	data, _ := json.Marshal(event)
	a.log.Info("AUDIT", "event", string(data))

	if text == "" || a.chatID == 0 || a.messenger == nil {
		return
	}
	if err := a.messenger.SendText(ctx, a.chatID, text, nil); err != nil {
		a.log.Warn("audit chat delivery failed", "event_type", event.EventType, "error", err)
	}
}

func displayUser(username string, userID int64) string {
	if username != "" {
		return "@" + username
	}
	return fmt.Sprintf("user %d", userID)
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}
