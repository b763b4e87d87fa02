package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Callback tags carried by inline buttons.
const (
	CallbackMainMenu           = "main_menu"
	CallbackSearchImage        = "search_image"
	CallbackCheckBalance       = "check_balance"
	CallbackAddPoints          = "add_points"
	CallbackReferralLink       = "referral_link"
	CallbackReferralQR         = "referral_qr"
	CallbackTransactionHistory = "transaction_history"
	CallbackReferralStats      = "referral_stats"
	CallbackHelp               = "help"
	CallbackContactAdmin       = "contact_admin"
	CallbackConfirmPrefix      = "confirm_"
	CallbackCancelPurchase     = "cancel_purchase"

	CallbackAdminPanel         = "admin_panel"
	CallbackBalanceManagement  = "balance_management"
	CallbackAddBalanceAdmin    = "add_balance_admin"
	CallbackRemoveBalanceAdmin = "remove_balance_admin"
	CallbackCheckBalanceAdmin  = "check_balance_admin"
	CallbackBroadcastMessage   = "broadcast_message"
	CallbackViewStats          = "view_stats"
)

// Messages renders every user facing text. Numbers are grouped the
// English way ("1,234").
type Messages struct {
	pricing  config.PricingConfig
	referral config.ReferralConfig
	bot      config.BotConfig
	catalog  config.CatalogConfig
	printer  *message.Printer
}

func NewMessages(cfg *config.Config) *Messages {
	return &Messages{
		pricing:  cfg.Pricing,
		referral: cfg.Referral,
		bot:      cfg.Bot,
		catalog:  cfg.Catalog,
		printer:  message.NewPrinter(language.English),
	}
}

func backKeyboard() models.Keyboard {
	return models.Keyboard{{{Text: "🔙 Back to Main", Data: CallbackMainMenu}}}
}

func (m *Messages) MainMenuKeyboard(isAdmin bool) models.Keyboard {
	kb := models.Keyboard{
		{{Text: "🔍 Search Image", Data: CallbackSearchImage}},
		{{Text: "💰 Check Balance", Data: CallbackCheckBalance}, {Text: "➕ Add Points", Data: CallbackAddPoints}},
		{{Text: "👥 Referral Link", Data: CallbackReferralLink}, {Text: "📷 Referral QR", Data: CallbackReferralQR}},
		{{Text: "📊 History", Data: CallbackTransactionHistory}, {Text: "🏆 Referral Stats", Data: CallbackReferralStats}},
		{{Text: "❓ Help", Data: CallbackHelp}, {Text: "📞 Contact Admin", Data: CallbackContactAdmin}},
	}
	if isAdmin {
		kb = append(kb, []models.Button{{Text: "👑 Admin Panel", Data: CallbackAdminPanel}})
	}
	return kb
}

func (m *Messages) Welcome() string {
	var b strings.Builder
	b.WriteString("👋 *Welcome to PointMart!*\n\n")
	b.WriteString("Search for an image by its ID or link, pay with points and get the file right here.\n\n")
	b.WriteString("💎 *Pricing*\n")
	fmt.Fprintf(&b, "• 1 image = %s %s\n", m.pricing.ImageCost, pointWord(m.pricing.ImageCost))
	fmt.Fprintf(&b, "• 1 point = %s %s\n", m.pricing.PointValue, m.pricing.Currency)
	fmt.Fprintf(&b, "• Minimum recharge: %s points\n\n", m.pricing.MinRecharge)
	b.WriteString("🎁 *Referrals*\n")
	fmt.Fprintf(&b, "Share your link and earn %s points for every new user.\n\n", m.referral.Reward)
	b.WriteString("Use the buttons below to get started.")
	return b.String()
}

func (m *Messages) Help() string {
	return "🤖 *Commands*\n\n" +
		"• /search - search for an image\n" +
		"• /balance - show your balance\n" +
		"• /history - recent transactions\n" +
		"• /referrals - your referral earnings\n" +
		"• /addbalance - how to add points\n" +
		"• /cancel - stop the current action\n\n" +
		"You can also send an image ID or link at any time after /search.\n\n" +
		"Need help? Use 📞 Contact Admin."
}

func (m *Messages) AdminHelp() string {
	return "👑 *Admin commands*\n\n" +
		"• /stats - bot statistics\n" +
		"• /index - start collecting files, /indexdone to save them\n" +
		"• /editbalance <user id> <amount> [force]\n" +
		"• /checkbalance <user id>\n" +
		"• /broadcast - message every user\n" +
		"• /admin - admin panel"
}

func (m *Messages) Balance(acct models.Account) string {
	var b strings.Builder
	b.WriteString("💰 *Your Balance*\n\n")
	fmt.Fprintf(&b, "Available points: %s\n", acct.Balance)
	fmt.Fprintf(&b, "Total spent: %s\n", acct.TotalSpent)
	fmt.Fprintf(&b, "1 point = %s %s\n\n", m.pricing.PointValue, m.pricing.Currency)
	fmt.Fprintf(&b, "Each image costs %s %s.", m.pricing.ImageCost, pointWord(m.pricing.ImageCost))
	return b.String()
}

func (m *Messages) AddPoints() string {
	var b strings.Builder
	b.WriteString("➕ *Add Points*\n\n")
	fmt.Fprintf(&b, "1 point = %s %s\n", m.pricing.PointValue, m.pricing.Currency)
	fmt.Fprintf(&b, "Minimum recharge: %s points (%s %s)\n\n",
		m.pricing.MinRecharge, m.pricing.MinRecharge.Mul(m.pricing.PointValue), m.pricing.Currency)
	b.WriteString("Contact the admin to pay and your points will be added to your account.")
	return b.String()
}

func (m *Messages) ContactAdmin() (string, models.Keyboard) {
	var b strings.Builder
	b.WriteString("📞 *Contact Admin*\n\n")
	var kb models.Keyboard
	if m.bot.AdminUsername != "" {
		fmt.Fprintf(&b, "• Telegram: %s\n", m.bot.AdminUsername)
		kb = append(kb, []models.Button{{Text: "📱 Telegram", URL: "https://t.me/" + strings.TrimPrefix(m.bot.AdminUsername, "@")}})
	}
	if m.bot.AdminWhatsApp != "" {
		fmt.Fprintf(&b, "• WhatsApp: %s\n", m.bot.AdminWhatsApp)
		kb = append(kb, []models.Button{{Text: "📞 WhatsApp", URL: "https://wa.me/" + strings.NewReplacer(" ", "", "+", "").Replace(m.bot.AdminWhatsApp)}})
	}
	b.WriteString("\nWrite to us to add points, report a problem or ask anything.")
	kb = append(kb, backKeyboard()...)
	return b.String(), kb
}

func (m *Messages) SearchPrompt() string {
	return "🔍 *Search for Images*\n\n" +
		"Send the image ID or its link.\n\n" +
		"Examples:\n" +
		"• 2301326979\n" +
		"• https://www." + m.catalog.URLHost + "/image-vector/...-2301326979\n\n" +
		"Send /cancel to stop searching."
}

func (m *Messages) InvalidAssetID() string {
	return "❌ That doesn't look like an image ID or link.\n\nSend a number with at least six digits, for example 2301326979."
}

func (m *Messages) AssetNotFound(assetID string) string {
	return fmt.Sprintf("❌ Image %s is not in our catalog.\n\nCheck the ID and try again.", assetID)
}

func (m *Messages) PurchaseConfirmation(assetID string, cost, balance decimal.Decimal) (string, models.Keyboard) {
	text := fmt.Sprintf("🛒 *Purchase Confirmation*\n\nImage ID: %s\nCost: %s %s\nYour balance: %s points\n\nPress Confirm to buy.",
		assetID, cost, pointWord(cost), balance)
	kb := models.Keyboard{{
		{Text: "✅ Confirm Purchase", Data: CallbackConfirmPrefix + assetID},
		{Text: "❌ Cancel", Data: CallbackCancelPurchase},
	}}
	return text, kb
}

func (m *Messages) InsufficientBalance(required, balance decimal.Decimal) string {
	return fmt.Sprintf("❌ Insufficient balance.\n\nRequired: %s %s\nYour balance: %s points\n\nUse /addbalance to add more points.",
		required, pointWord(required), balance)
}

// PurchaseCaption is attached to the delivered file.
func (m *Messages) PurchaseCaption(r models.Receipt) string {
	return fmt.Sprintf("✅ Purchase successful!\nImage ID: %s\nCost: %s %s\nRemaining balance: %s points",
		r.AssetID, r.Cost, pointWord(r.Cost), r.NewBalance)
}

func (m *Messages) PurchaseExpired() string {
	return "⌛ This purchase has expired. Search for the image again."
}

func (m *Messages) PurchaseMismatch() string {
	return "❌ This button belongs to an older search. Use the latest confirmation."
}

func (m *Messages) PurchaseCancelled() string {
	return "Purchase cancelled."
}

func (m *Messages) DeliveryFailed() string {
	return "❌ We could not send the file. Your points have been refunded."
}

func (m *Messages) ReferralInfo(link string, stats models.ReferralStats) string {
	var b strings.Builder
	b.WriteString("👥 *Refer & Earn*\n\n")
	fmt.Fprintf(&b, "Earn %s points for every new user who joins with your link.\n\n", m.referral.Reward)
	fmt.Fprintf(&b, "Your link:\n%s\n\n", link)
	fmt.Fprintf(&b, "Referrals: %s\nEarned: %s points", m.printer.Sprintf("%d", stats.Count), stats.Earned)
	return b.String()
}

func (m *Messages) ReferralKeyboard(link string) models.Keyboard {
	return models.Keyboard{
		{{Text: "📤 Share Link", URL: "https://t.me/share/url?url=" + url.QueryEscape(link)}},
		{{Text: "📷 QR Code", Data: CallbackReferralQR}, {Text: "🏆 Referral Stats", Data: CallbackReferralStats}},
		{{Text: "🔙 Back to Main", Data: CallbackMainMenu}},
	}
}

func (m *Messages) ReferralStats(stats models.ReferralStats, recent []models.ReferralRecord) string {
	var b strings.Builder
	b.WriteString("🏆 *Referral Stats*\n\n")
	fmt.Fprintf(&b, "Referrals: %s\nEarned: %s points", m.printer.Sprintf("%d", stats.Count), stats.Earned)
	if len(recent) > 0 {
		b.WriteString("\n\nRecent:")
		for _, r := range recent {
			fmt.Fprintf(&b, "\n• user %d (+%s) %s", r.ReferredID, r.Reward, r.CreatedAt.UTC().Format("2006-01-02"))
		}
	}
	return b.String()
}

func (m *Messages) ReferralQRCaption(link string) string {
	return "📷 Scan to join PointMart\n" + link
}

func (m *Messages) ReferredWelcome(referrerID int64) string {
	return fmt.Sprintf("🎉 Welcome! You joined through user %d's invite.", referrerID)
}

func (m *Messages) ReferrerRewarded(reward decimal.Decimal, referredID int64) string {
	return fmt.Sprintf("🎉 You earned %s points for inviting user %d!", reward, referredID)
}

func (m *Messages) TransactionHistory(txs []models.Transaction) string {
	var b strings.Builder
	b.WriteString("📊 *Transaction History*\n\n")
	if len(txs) == 0 {
		b.WriteString("No transactions yet.")
		return b.String()
	}
	for i, t := range txs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s %s\n%s", t.CreatedAt.UTC().Format("2006-01-02 15:04"), signed(t.Amount), kindLabel(t.Kind), t.Description)
	}
	return b.String()
}

func kindLabel(k models.TxKind) string {
	switch k {
	case models.TxKindPurchase:
		return "purchase"
	case models.TxKindReferral:
		return "referral bonus"
	case models.TxKindAdminAdjust:
		return "balance update"
	case models.TxKindRefund:
		return "refund"
	}
	return string(k)
}

func (m *Messages) Stats(s models.Stats) string {
	last := "never"
	if s.LastIngestedAt != nil {
		last = s.LastIngestedAt.UTC().Format(time.DateTime) + " UTC"
	}
	return m.printer.Sprintf("📊 *Bot Statistics*\n\nImages: %d\nUsers: %d\nSearches: %d\nPurchases: %d\nPoints spent: %s\nLast indexed: %s",
		s.CatalogSize, s.UserCount, s.SearchCount, s.PurchaseCount, s.PointsSpent.String(), last)
}

func (m *Messages) AdminPanel() (string, models.Keyboard) {
	kb := models.Keyboard{
		{{Text: "💰 Balance Management", Data: CallbackBalanceManagement}},
		{{Text: "📢 Broadcast", Data: CallbackBroadcastMessage}, {Text: "📊 Statistics", Data: CallbackViewStats}},
		{{Text: "🔙 Back to Main", Data: CallbackMainMenu}},
	}
	return "👑 *Admin Panel*\n\nChoose an option:", kb
}

func (m *Messages) BalanceManagement() (string, models.Keyboard) {
	kb := models.Keyboard{
		{{Text: "➕ Add Balance", Data: CallbackAddBalanceAdmin}, {Text: "➖ Remove Balance", Data: CallbackRemoveBalanceAdmin}},
		{{Text: "🔎 Check Balance", Data: CallbackCheckBalanceAdmin}},
		{{Text: "🔙 Back", Data: CallbackAdminPanel}},
	}
	return "💰 *Balance Management*\n\nChoose an action:", kb
}

func (m *Messages) AdminAmountPrompt(action models.AdminAction) string {
	verb := "add to"
	if action == models.AdminActionRemove {
		verb = "remove from"
	}
	return fmt.Sprintf("Send the user ID and the points to %s their balance:\n<user id> <amount>\n\nExample: 123456789 10\nSend /cancel to stop.", verb)
}

func (m *Messages) AdminTargetPrompt() string {
	return "Send the user ID to look up.\nSend /cancel to stop."
}

func (m *Messages) AdminBalanceUpdated(userID int64, delta, balance decimal.Decimal) string {
	return fmt.Sprintf("✅ Balance updated\nUser: %d\nChange: %s points\nNew balance: %s points", userID, signed(delta), balance)
}

func (m *Messages) UserBalanceUpdated(delta, balance decimal.Decimal) string {
	return fmt.Sprintf("💰 Your balance was updated by %s points.\nNew balance: %s points", signed(delta), balance)
}

func (m *Messages) AdminAccount(acct models.Account) string {
	return fmt.Sprintf("👤 User %d\nBalance: %s points\nTotal spent: %s points\nLast updated: %s",
		acct.UserID, acct.Balance, acct.TotalSpent, acct.LastUpdated.UTC().Format(time.DateTime))
}

func (m *Messages) AccountNotFound(userID int64) string {
	return fmt.Sprintf("❌ User %d has no account yet.", userID)
}

func (m *Messages) NegativeBalanceRefused(balance, delta decimal.Decimal) string {
	return fmt.Sprintf("❌ The balance is %s points; a change of %s would make it negative.\nAdd \"force\" to /editbalance to apply it anyway.",
		balance, signed(delta))
}

func (m *Messages) InvalidAdminInput(reason string) string {
	return "❌ " + reason
}

func (m *Messages) BroadcastPrompt() string {
	return "📢 Send the message to broadcast to every user.\nSend /cancel to stop."
}

func (m *Messages) BroadcastStarted(recipients int) string {
	return m.printer.Sprintf("📢 Broadcasting to %d users...", recipients)
}

func (m *Messages) BroadcastFinished(r models.BroadcastResult) string {
	return m.printer.Sprintf("✅ Broadcast finished\nDelivered: %d\nFailed: %d", r.Success, r.Failure)
}

func (m *Messages) IndexStarted() string {
	return "🔄 Collecting files.\n\nSend the files to index, then /indexdone to save them or /cancel to stop."
}

func (m *Messages) FileCollected(name string, count int) string {
	return m.printer.Sprintf("📥 %s added (%d collected)", name, count)
}

func (m *Messages) FileRejected(name string) string {
	return fmt.Sprintf("⚠️ %s skipped: file names must look like %s<id>.<ext>", name, m.catalog.FilePrefix)
}

func (m *Messages) IndexEmpty() string {
	return "❌ No files collected. Use /index to start."
}

func (m *Messages) IndexSaved(n int) string {
	return m.printer.Sprintf("✅ Saved %d files to the catalog.", n)
}

func (m *Messages) Cancelled() string {
	return "Cancelled."
}

func (m *Messages) PermissionDenied() string {
	return "❌ You don't have permission to use this command."
}

func (m *Messages) RateLimited() string {
	return "⏳ You have reached the search limit. Please try again later."
}

func (m *Messages) GenericError() string {
	return "⚠️ Something went wrong. Please try again later."
}

func pointWord(d decimal.Decimal) string {
	if d.Equal(decimal.NewFromInt(1)) {
		return "point"
	}
	return "points"
}
