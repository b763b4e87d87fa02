package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pointmart/backend/internal/models"
	"github.com/shopspring/decimal"
)

const editBalanceUsage = "Usage: /editbalance <user id> <amount> [force]"

// handleAdminCommand runs an admin command. The caller has checked membership.
func (r *EventRouter) handleAdminCommand(ctx context.Context, ev models.Event) error {
	switch strings.ToLower(ev.Command) {
	case "index":
		if err := r.collector.Reset(ctx, ev.UserID); err != nil {
			return err
		}
		if err := r.sessions.SetMode(ctx, ev.UserID, models.CollectingFilesMode()); err != nil {
			return err
		}
		r.reply(ctx, ev, r.messages.IndexStarted(), nil)
		return nil
	case "indexdone":
		return r.finishIndex(ctx, ev)
	case "stats":
		return r.showStats(ctx, ev)
	case "editbalance":
		return r.editBalanceCommand(ctx, ev)
	case "checkbalance":
		if len(ev.Args) != 1 {
			r.reply(ctx, ev, r.messages.InvalidAdminInput("Usage: /checkbalance <user id>"), nil)
			return nil
		}
		return r.checkBalance(ctx, ev, ev.Args[0])
	case "broadcast":
		if err := r.sessions.SetMode(ctx, ev.UserID, models.AwaitingBroadcastTextMode()); err != nil {
			return err
		}
		r.reply(ctx, ev, r.messages.BroadcastPrompt(), nil)
		return nil
	case "admin":
		text, kb := r.messages.AdminPanel()
		r.reply(ctx, ev, text, kb)
		return nil
	}
	return nil
}

// handleAdminCallback runs an admin menu action. The caller has checked membership.
func (r *EventRouter) handleAdminCallback(ctx context.Context, ev models.Event) error {
	switch ev.CallbackData {
	case CallbackAdminPanel:
		text, kb := r.messages.AdminPanel()
		r.reply(ctx, ev, text, kb)
	case CallbackBalanceManagement:
		text, kb := r.messages.BalanceManagement()
		r.reply(ctx, ev, text, kb)
	case CallbackAddBalanceAdmin:
		return r.promptAdminAmount(ctx, ev, models.AdminActionAdd)
	case CallbackRemoveBalanceAdmin:
		return r.promptAdminAmount(ctx, ev, models.AdminActionRemove)
	case CallbackCheckBalanceAdmin:
		if err := r.sessions.SetMode(ctx, ev.UserID, models.AwaitingAdminTargetIDMode()); err != nil {
			return err
		}
		r.reply(ctx, ev, r.messages.AdminTargetPrompt(), nil)
	case CallbackBroadcastMessage:
		if err := r.sessions.SetMode(ctx, ev.UserID, models.AwaitingBroadcastTextMode()); err != nil {
			return err
		}
		r.reply(ctx, ev, r.messages.BroadcastPrompt(), nil)
	case CallbackViewStats:
		return r.showStats(ctx, ev)
	}
	return nil
}

func (r *EventRouter) promptAdminAmount(ctx context.Context, ev models.Event, action models.AdminAction) error {
	if err := r.sessions.SetMode(ctx, ev.UserID, models.AdminAmountMode(action)); err != nil {
		return err
	}
	r.reply(ctx, ev, r.messages.AdminAmountPrompt(action), nil)
	return nil
}

func (r *EventRouter) showStats(ctx context.Context, ev models.Event) error {
	stats, err := r.stats.Stats(ctx)
	if err != nil {
		return err
	}
	r.reply(ctx, ev, r.messages.Stats(stats), nil)
	return nil
}

func (r *EventRouter) finishIndex(ctx context.Context, ev models.Event) error {
	if err := r.sessions.Clear(ctx, ev.UserID); err != nil {
		return err
	}
	files, err := r.collector.Drain(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		r.reply(ctx, ev, r.messages.IndexEmpty(), nil)
		return nil
	}

	entries := make([]models.CatalogEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, models.CatalogEntry{
			AssetID:       f.AssetID,
			ContentHandle: f.Handle,
			DisplayName:   f.Name,
			FileSize:      f.Size,
			MediaType:     f.MediaType,
		})
	}
	n, err := r.catalog.IngestBatch(ctx, entries)
	if err != nil {
		return err
	}
	r.log.Info("batch index saved", "admin_id", ev.UserID, "entries", n)
	r.reply(ctx, ev, r.messages.IndexSaved(n), nil)
	return nil
}

func (r *EventRouter) collectFile(ctx context.Context, ev models.Event) error {
	name := ev.File.Name
	if !r.catalog.HasFilePrefix(name) {
		r.reply(ctx, ev, r.messages.FileRejected(name), nil)
		return nil
	}
	assetID, err := r.catalog.AssetIDFromFileName(name)
	if err != nil {
		r.reply(ctx, ev, r.messages.FileRejected(name), nil)
		return nil
	}

	count, err := r.collector.Add(ctx, ev.UserID, models.CollectedFile{
		AssetID:   assetID,
		Handle:    ev.File.Handle,
		Name:      name,
		Size:      ev.File.Size,
		MediaType: ev.File.MediaType,
	})
	if err != nil {
		return err
	}
	r.reply(ctx, ev, r.messages.FileCollected(name, count), nil)
	return nil
}

func (r *EventRouter) editBalanceCommand(ctx context.Context, ev models.Event) error {
	if len(ev.Args) < 2 || len(ev.Args) > 3 {
		r.reply(ctx, ev, r.messages.InvalidAdminInput(editBalanceUsage), nil)
		return nil
	}
	force := false
	if len(ev.Args) == 3 {
		if !strings.EqualFold(ev.Args[2], "force") {
			r.reply(ctx, ev, r.messages.InvalidAdminInput(editBalanceUsage), nil)
			return nil
		}
		force = true
	}

	userID, delta, err := parseTargetAmount(ev.Args[0], ev.Args[1])
	if err != nil {
		r.reply(ctx, ev, r.messages.InvalidAdminInput(err.Error()), nil)
		return nil
	}
	return r.adjust(ctx, ev, userID, delta, force)
}

// adminBalanceText handles the reply to an admin balance prompt, which the
// caller has already taken out of the session.
func (r *EventRouter) adminBalanceText(ctx context.Context, ev models.Event, mode models.Mode) error {
	fields := strings.Fields(ev.Text)
	if mode.Kind == models.ModeAwaitingAdminTargetID {
		if len(fields) != 1 {
			r.reply(ctx, ev, r.messages.InvalidAdminInput("Send a single user ID."), nil)
			return nil
		}
		return r.checkBalance(ctx, ev, fields[0])
	}

	if len(fields) != 2 {
		r.reply(ctx, ev, r.messages.InvalidAdminInput("Send: <user id> <amount>"), nil)
		return nil
	}
	userID, amount, err := parseTargetAmount(fields[0], fields[1])
	if err != nil {
		r.reply(ctx, ev, r.messages.InvalidAdminInput(err.Error()), nil)
		return nil
	}
	if !amount.IsPositive() {
		r.reply(ctx, ev, r.messages.InvalidAdminInput("The amount must be positive."), nil)
		return nil
	}
	if mode.Action == models.AdminActionRemove {
		amount = amount.Neg()
	}
	return r.adjust(ctx, ev, userID, amount, false)
}

func (r *EventRouter) adjust(ctx context.Context, ev models.Event, userID int64, delta decimal.Decimal, force bool) error {
	desc := fmt.Sprintf("Balance update by admin %d", ev.UserID)
	balance, err := r.ledger.Adjust(ctx, userID, delta, desc, force)
	var insufficient *models.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		r.reply(ctx, ev, r.messages.NegativeBalanceRefused(insufficient.Balance, delta), nil)
		return nil
	case errors.Is(err, models.ErrValidation):
		r.reply(ctx, ev, r.messages.InvalidAdminInput(err.Error()), nil)
		return nil
	case err != nil:
		return err
	}

	r.audit.BalanceUpdated(ctx, ev.UserID, userID, delta, balance)
	r.reply(ctx, ev, r.messages.AdminBalanceUpdated(userID, delta, balance), nil)
	if err := r.messenger.SendText(ctx, userID, r.messages.UserBalanceUpdated(delta, balance), nil); err != nil {
		r.log.Warn("balance notification failed", "user_id", userID, "error", err)
	}
	return nil
}

func (r *EventRouter) checkBalance(ctx context.Context, ev models.Event, rawID string) error {
	userID, err := parseUserID(rawID)
	if err != nil {
		r.reply(ctx, ev, r.messages.InvalidAdminInput(err.Error()), nil)
		return nil
	}
	acct, err := r.ledger.Lookup(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		r.reply(ctx, ev, r.messages.AccountNotFound(userID), nil)
		return nil
	}
	if err != nil {
		return err
	}
	r.reply(ctx, ev, r.messages.AdminAccount(acct), nil)
	return nil
}

func (r *EventRouter) broadcastText(ctx context.Context, ev models.Event) error {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		r.reply(ctx, ev, r.messages.InvalidAdminInput("The broadcast message is empty."), nil)
		return nil
	}

	recipients, err := r.ledger.UserIDs(ctx)
	if err != nil {
		return err
	}
	r.reply(ctx, ev, r.messages.BroadcastStarted(len(recipients)), nil)

	result := r.broadcast.Broadcast(ctx, recipients, text)
	r.audit.Broadcast(ctx, ev.UserID, result)
	r.reply(ctx, ev, r.messages.BroadcastFinished(result), nil)
	return nil
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("user id", fmt.Sprintf("%q is not a user ID", raw))
	}
	return id, nil
}

func parseTargetAmount(rawID, rawAmount string) (int64, decimal.Decimal, error) {
	userID, err := parseUserID(rawID)
	if err != nil {
		return 0, decimal.Zero, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil {
		return 0, decimal.Zero, models.NewValidationError("amount", fmt.Sprintf("%q is not a number", rawAmount))
	}
	if amount.IsZero() {
		return 0, decimal.Zero, models.NewValidationError("amount", "must not be zero")
	}
	return userID, amount, nil
}
