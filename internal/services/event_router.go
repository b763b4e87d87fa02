package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/logger"
	"github.com/pointmart/backend/internal/models"
	"github.com/pointmart/backend/internal/transport"
)

const (
	historyLimit       = 10
	recentReferralsMax = 5
)

// EventRouter picks the one handler responsible for an inbound event.
type EventRouter struct {
	bot       config.BotConfig
	sessions  SessionStore
	catalog   *CatalogService
	ledger    *LedgerService
	escrow    *EscrowService
	referrals *ReferralService
	broadcast *BroadcastService
	stats     *StatsService
	collector FileCollector
	limiter   SearchLimiter
	qr        *QRService
	audit     *AuditLogger
	messenger transport.Messenger
	messages  *Messages
	log       *logger.Logger
}

type RouterDeps struct {
	Sessions  SessionStore
	Catalog   *CatalogService
	Ledger    *LedgerService
	Escrow    *EscrowService
	Referrals *ReferralService
	Broadcast *BroadcastService
	Stats     *StatsService
	Collector FileCollector
	Limiter   SearchLimiter
	QR        *QRService
	Audit     *AuditLogger
	Messenger transport.Messenger
	Messages  *Messages
}

func NewEventRouter(bot config.BotConfig, deps RouterDeps, log *logger.Logger) *EventRouter {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = NoopSearchLimiter{}
	}
	return &EventRouter{
		bot:       bot,
		sessions:  deps.Sessions,
		catalog:   deps.Catalog,
		ledger:    deps.Ledger,
		escrow:    deps.Escrow,
		referrals: deps.Referrals,
		broadcast: deps.Broadcast,
		stats:     deps.Stats,
		collector: deps.Collector,
		limiter:   limiter,
		qr:        deps.QR,
		audit:     deps.Audit,
		messenger: deps.Messenger,
		messages:  deps.Messages,
		log:       log.With("service", "EventRouter"),
	}
}

// Dispatch handles ev. Handler errors and panics are logged and answered
// with a generic notice; they never reach the caller.
func (r *EventRouter) Dispatch(ctx context.Context, ev models.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in event handler",
				"kind", ev.Kind, "user_id", ev.UserID, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			r.notify(ctx, ev, r.messages.GenericError())
		}
	}()

	if err := r.route(ctx, ev); err != nil {
		r.fail(ctx, ev, err)
	}
}

func (r *EventRouter) route(ctx context.Context, ev models.Event) error {
	if r.bot.SourceChannelID != 0 && ev.ChatID == r.bot.SourceChannelID {
		return r.ingestFromChannel(ctx, ev)
	}

	switch ev.Kind {
	case models.EventCommand:
		return r.handleCommand(ctx, ev)
	case models.EventCallback:
		return r.handleCallback(ctx, ev)
	case models.EventText:
		return r.handleText(ctx, ev)
	case models.EventFile:
		return r.handleFile(ctx, ev)
	}

	r.log.Debug("event dropped", "kind", ev.Kind, "chat_id", ev.ChatID)
	return nil
}

func (r *EventRouter) fail(ctx context.Context, ev models.Event, err error) {
	switch models.Classify(err) {
	case models.ClassPermissionDenied:
		r.audit.PermissionDenied(ctx, ev.UserID, describe(ev))
		r.notify(ctx, ev, r.messages.PermissionDenied())
	case models.ClassRateLimited:
		r.notify(ctx, ev, r.messages.RateLimited())
	default:
		r.log.Error("event handler failed", "kind", ev.Kind, "user_id", ev.UserID, "action", describe(ev), "error", err)
		r.notify(ctx, ev, r.messages.GenericError())
	}
}

// notify answers the sender; channel posts have nobody to answer.
func (r *EventRouter) notify(ctx context.Context, ev models.Event, text string) {
	if ev.UserID == 0 || ev.Kind == models.EventChannelPost {
		return
	}
	r.reply(ctx, ev, text, nil)
}

func (r *EventRouter) reply(ctx context.Context, ev models.Event, text string, kb models.Keyboard) {
	if err := r.messenger.SendText(ctx, ev.ChatID, text, kb); err != nil {
		r.log.Warn("reply failed", "chat_id", ev.ChatID, "error", err)
	}
}

func (r *EventRouter) requireAdmin(ev models.Event) error {
	if !r.bot.IsAdmin(ev.UserID) {
		return fmt.Errorf("%s by %d: %w", describe(ev), ev.UserID, models.ErrPermissionDenied)
	}
	return nil
}

func describe(ev models.Event) string {
	switch ev.Kind {
	case models.EventCommand:
		return "/" + ev.Command
	case models.EventCallback:
		return "callback " + ev.CallbackData
	}
	return string(ev.Kind)
}

func (r *EventRouter) handleCommand(ctx context.Context, ev models.Event) error {
	switch strings.ToLower(ev.Command) {
	case "start":
		return r.start(ctx, ev)
	case "help":
		return r.help(ctx, ev)
	case "balance":
		return r.showBalance(ctx, ev)
	case "search":
		return r.startSearch(ctx, ev)
	case "history":
		return r.showHistory(ctx, ev)
	case "referrals":
		return r.showReferralLink(ctx, ev)
	case "addbalance":
		r.reply(ctx, ev, r.messages.AddPoints(), r.contactKeyboard())
		return nil
	case "cancel":
		return r.cancel(ctx, ev)

	case "index", "indexdone", "stats", "editbalance", "checkbalance", "broadcast", "admin":
		if err := r.requireAdmin(ev); err != nil {
			return err
		}
		return r.handleAdminCommand(ctx, ev)
	}

	r.log.Debug("unknown command dropped", "command", ev.Command, "user_id", ev.UserID)
	return nil
}

func (r *EventRouter) handleCallback(ctx context.Context, ev models.Event) error {
	data := ev.CallbackData
	if assetID, ok := strings.CutPrefix(data, CallbackConfirmPrefix); ok {
		return r.confirmPurchase(ctx, ev, assetID)
	}

	switch data {
	case CallbackMainMenu:
		if err := r.sessions.Clear(ctx, ev.UserID); err != nil {
			return err
		}
		r.reply(ctx, ev, r.messages.Welcome(), r.messages.MainMenuKeyboard(r.bot.IsAdmin(ev.UserID)))
		return nil
	case CallbackSearchImage:
		return r.startSearch(ctx, ev)
	case CallbackCheckBalance:
		return r.showBalance(ctx, ev)
	case CallbackAddPoints:
		r.reply(ctx, ev, r.messages.AddPoints(), r.contactKeyboard())
		return nil
	case CallbackReferralLink:
		return r.showReferralLink(ctx, ev)
	case CallbackReferralQR:
		return r.sendReferralQR(ctx, ev)
	case CallbackTransactionHistory:
		return r.showHistory(ctx, ev)
	case CallbackReferralStats:
		return r.showReferralStats(ctx, ev)
	case CallbackHelp:
		return r.help(ctx, ev)
	case CallbackContactAdmin:
		text, kb := r.messages.ContactAdmin()
		r.reply(ctx, ev, text, kb)
		return nil
	case CallbackCancelPurchase:
		if err := r.escrow.Cancel(ctx, ev.UserID); err != nil {
			return err
		}
		r.reply(ctx, ev, r.messages.PurchaseCancelled(), backKeyboard())
		return nil

	case CallbackAdminPanel, CallbackBalanceManagement, CallbackAddBalanceAdmin, CallbackRemoveBalanceAdmin,
		CallbackCheckBalanceAdmin, CallbackBroadcastMessage, CallbackViewStats:
		if err := r.requireAdmin(ev); err != nil {
			return err
		}
		return r.handleAdminCallback(ctx, ev)
	}

	r.log.Debug("unknown callback dropped", "data", data, "user_id", ev.UserID)
	return nil
}

// handleText routes free text by session mode: search, then broadcast
// capture, then the admin balance flows. Each prompt is consumed by at most
// one reply.
func (r *EventRouter) handleText(ctx context.Context, ev models.Event) error {
	sess, err := r.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}

	switch {
	case sess.Mode.Kind == models.ModeSearching:
		if ok, err := r.sessions.TakeMode(ctx, ev.UserID, sess.Mode); err != nil || !ok {
			return err
		}
		return r.search(ctx, ev)
	case sess.Mode.Kind == models.ModeAwaitingBroadcastText:
		if err := r.requireAdmin(ev); err != nil {
			return err
		}
		if ok, err := r.sessions.TakeMode(ctx, ev.UserID, sess.Mode); err != nil || !ok {
			return err
		}
		return r.broadcastText(ctx, ev)
	case sess.Mode.IsAdmin():
		if err := r.requireAdmin(ev); err != nil {
			return err
		}
		if ok, err := r.sessions.TakeMode(ctx, ev.UserID, sess.Mode); err != nil || !ok {
			return err
		}
		return r.adminBalanceText(ctx, ev, sess.Mode)
	}
	return nil
}

func (r *EventRouter) handleFile(ctx context.Context, ev models.Event) error {
	if ev.File == nil || !r.bot.IsAdmin(ev.UserID) {
		return nil
	}
	sess, err := r.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if sess.Mode.Kind != models.ModeCollectingFiles {
		return nil
	}
	return r.collectFile(ctx, ev)
}

func (r *EventRouter) start(ctx context.Context, ev models.Event) error {
	if _, err := r.ledger.GetBalance(ctx, ev.UserID); err != nil {
		return err
	}
	if err := r.sessions.Clear(ctx, ev.UserID); err != nil {
		return err
	}

	first, err := r.stats.RecordJoin(ctx, ev.UserID, ev.Username)
	if err != nil {
		return err
	}
	if first {
		r.audit.UserJoined(ctx, ev.UserID, ev.Username)
	}

	r.reply(ctx, ev, r.messages.Welcome(), r.messages.MainMenuKeyboard(r.bot.IsAdmin(ev.UserID)))

	if len(ev.Args) > 0 {
		if referrerID, err := strconv.ParseInt(ev.Args[0], 10, 64); err == nil && referrerID > 0 {
			return r.registerReferral(ctx, ev, referrerID)
		}
	}
	return nil
}

func (r *EventRouter) registerReferral(ctx context.Context, ev models.Event, referrerID int64) error {
	outcome, err := r.referrals.Register(ctx, referrerID, ev.UserID)
	if err != nil {
		return err
	}
	r.log.Info("referral processed", "referrer_id", referrerID, "referred_id", ev.UserID, "outcome", outcome)
	if outcome != models.ReferralCredited {
		return nil
	}

	r.reply(ctx, ev, r.messages.ReferredWelcome(referrerID), nil)
	if err := r.messenger.SendText(ctx, referrerID, r.messages.ReferrerRewarded(r.referrals.Reward(), ev.UserID), nil); err != nil {
		r.log.Warn("referrer notification failed", "referrer_id", referrerID, "error", err)
	}
	return nil
}

func (r *EventRouter) help(ctx context.Context, ev models.Event) error {
	text := r.messages.Help()
	if r.bot.IsAdmin(ev.UserID) {
		text += "\n\n" + r.messages.AdminHelp()
	}
	r.reply(ctx, ev, text, backKeyboard())
	return nil
}

func (r *EventRouter) showBalance(ctx context.Context, ev models.Event) error {
	acct, err := r.ledger.GetBalance(ctx, ev.UserID)
	if err != nil {
		return err
	}
	kb := models.Keyboard{
		{{Text: "➕ Add Points", Data: CallbackAddPoints}, {Text: "📊 History", Data: CallbackTransactionHistory}},
		{{Text: "🔙 Back to Main", Data: CallbackMainMenu}},
	}
	r.reply(ctx, ev, r.messages.Balance(acct), kb)
	return nil
}

func (r *EventRouter) showHistory(ctx context.Context, ev models.Event) error {
	txs, err := r.ledger.RecentTransactions(ctx, ev.UserID, historyLimit)
	if err != nil {
		return err
	}
	r.reply(ctx, ev, r.messages.TransactionHistory(txs), backKeyboard())
	return nil
}

func (r *EventRouter) showReferralLink(ctx context.Context, ev models.Event) error {
	stats, err := r.referrals.Stats(ctx, ev.UserID)
	if err != nil {
		return err
	}
	link := r.referrals.ReferralLink(ev.UserID)
	r.reply(ctx, ev, r.messages.ReferralInfo(link, stats), r.messages.ReferralKeyboard(link))
	return nil
}

func (r *EventRouter) showReferralStats(ctx context.Context, ev models.Event) error {
	stats, err := r.referrals.Stats(ctx, ev.UserID)
	if err != nil {
		return err
	}
	recent, err := r.referrals.Recent(ctx, ev.UserID, recentReferralsMax)
	if err != nil {
		return err
	}
	r.reply(ctx, ev, r.messages.ReferralStats(stats, recent), backKeyboard())
	return nil
}

func (r *EventRouter) sendReferralQR(ctx context.Context, ev models.Event) error {
	link, img, err := r.qr.ReferralQR(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if err := r.messenger.SendPhoto(ctx, ev.ChatID, img, r.messages.ReferralQRCaption(link)); err != nil {
		r.log.Warn("referral qr delivery failed", "user_id", ev.UserID, "error", err)
	}
	return nil
}

func (r *EventRouter) contactKeyboard() models.Keyboard {
	_, kb := r.messages.ContactAdmin()
	return kb
}

func (r *EventRouter) cancel(ctx context.Context, ev models.Event) error {
	sess, err := r.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if sess.Mode.Kind == models.ModeCollectingFiles {
		if err := r.collector.Reset(ctx, ev.UserID); err != nil {
			return err
		}
	}
	if err := r.sessions.Clear(ctx, ev.UserID); err != nil {
		return err
	}
	if err := r.escrow.Cancel(ctx, ev.UserID); err != nil {
		return err
	}
	r.reply(ctx, ev, r.messages.Cancelled(), backKeyboard())
	return nil
}

func (r *EventRouter) startSearch(ctx context.Context, ev models.Event) error {
	if err := r.sessions.SetMode(ctx, ev.UserID, models.SearchingMode()); err != nil {
		return err
	}
	r.reply(ctx, ev, r.messages.SearchPrompt(), backKeyboard())
	return nil
}

// search resolves the text to an asset and offers it for purchase. The
// caller has already ended the searching mode.
func (r *EventRouter) search(ctx context.Context, ev models.Event) error {
	if err := r.limiter.Allow(ctx, ev.UserID); err != nil {
		return err
	}

	assetID, err := r.catalog.ExtractAssetID(ev.Text)
	if err != nil {
		r.recordSearch(ctx, ev, "", false)
		r.reply(ctx, ev, r.messages.InvalidAssetID(), backKeyboard())
		return nil
	}

	pending, balance, err := r.escrow.Reserve(ctx, ev.UserID, assetID)
	var insufficient *models.InsufficientFundsError
	switch {
	case errors.Is(err, models.ErrNotFound):
		r.recordSearch(ctx, ev, assetID, false)
		r.audit.AssetNotFound(ctx, ev.UserID, ev.Username, assetID)
		r.reply(ctx, ev, r.messages.AssetNotFound(assetID), backKeyboard())
		return nil
	case errors.As(err, &insufficient):
		r.recordSearch(ctx, ev, assetID, true)
		r.reply(ctx, ev, r.messages.InsufficientBalance(insufficient.Required, insufficient.Balance), r.contactKeyboard())
		return nil
	case err != nil:
		return err
	}

	r.recordSearch(ctx, ev, assetID, true)
	text, kb := r.messages.PurchaseConfirmation(pending.AssetID, r.escrow.Cost(), balance)
	r.reply(ctx, ev, text, kb)
	return nil
}

func (r *EventRouter) recordSearch(ctx context.Context, ev models.Event, assetID string, found bool) {
	err := r.catalog.RecordSearch(ctx, models.SearchRecord{
		UserID:  ev.UserID,
		Query:   ev.Text,
		AssetID: assetID,
		Found:   found,
	})
	if err != nil {
		r.log.Warn("search history write failed", "user_id", ev.UserID, "error", err)
	}
}

func (r *EventRouter) confirmPurchase(ctx context.Context, ev models.Event, assetID string) error {
	_, err := r.escrow.Confirm(ctx, ev.ChatID, ev.UserID, ev.Username, assetID)
	var insufficient *models.InsufficientFundsError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrExpired):
		r.reply(ctx, ev, r.messages.PurchaseExpired(), backKeyboard())
	case errors.Is(err, models.ErrMismatch):
		r.reply(ctx, ev, r.messages.PurchaseMismatch(), nil)
	case errors.As(err, &insufficient):
		r.reply(ctx, ev, r.messages.InsufficientBalance(insufficient.Required, insufficient.Balance), r.contactKeyboard())
	case errors.Is(err, models.ErrDeliveryFailed):
		r.reply(ctx, ev, r.messages.DeliveryFailed(), backKeyboard())
	default:
		return err
	}
	return nil
}

// ingestFromChannel indexes a file posted to the source channel. Posts
// without a file are ignored, as are files already indexed.
func (r *EventRouter) ingestFromChannel(ctx context.Context, ev models.Event) error {
	if ev.File == nil {
		return nil
	}
	name := ev.File.Name
	assetID, err := r.catalog.AssetIDFromFileName(name)
	if err != nil {
		assetID = name
	}

	outcome, err := r.catalog.IngestStreaming(ctx, models.CatalogEntry{
		AssetID:       assetID,
		ContentHandle: ev.File.Handle,
		DisplayName:   name,
		FileSize:      ev.File.Size,
		MediaType:     ev.File.MediaType,
		MessageID:     ev.MessageID,
	})
	if errors.Is(err, models.ErrValidation) {
		r.log.Warn("channel file not indexed", "name", name, "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	if outcome == models.IngestInserted {
		r.audit.AssetIndexed(ctx, assetID, name, "channel")
	}
	return nil
}
