package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/aircrouching/delator/internal/ledger"
	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/internal/payments"
	"github.com/aircrouching/delator/pkg/logger"
)

// Bot is the conversational front-end. All real work is delegated to the
// account pool, the ledger and the payment components; the bot only renders
// menus and drives per-user flows.
type Bot struct {
	logger *logger.Logger

	b          *bot.Bot
	ledger     *ledger.Ledger
	pool       models.ReportPool
	oracle     models.PaymentOracle
	reconciler *payments.Reconciler
	states     *StateTable
}

func NewBot(
	token string,
	ledger *ledger.Ledger,
	pool models.ReportPool,
	oracle models.PaymentOracle,
	reconciler *payments.Reconciler,
	logger *logger.Logger,
) (*Bot, error) {
	t := &Bot{
		logger:     logger,
		ledger:     ledger,
		pool:       pool,
		oracle:     oracle,
		reconciler: reconciler,
		states:     NewStateTable(),
	}

	opts := []bot.Option{
		bot.WithMiddlewares(t.banGate),
		bot.WithDefaultHandler(t.handleMessage),
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	t.b = b

	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, t.handleStart)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/adm", bot.MatchTypeExact, t.handleAdminPanel)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/promo", bot.MatchTypePrefix, t.handlePromoCommand)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "report_", bot.MatchTypePrefix, t.handleReportReason)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "buy_", bot.MatchTypePrefix, t.handlePurchase)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "admin_", bot.MatchTypePrefix, t.handleAdminAction)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "new_report", bot.MatchTypeExact, t.handleNewReport)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cancel_report", bot.MatchTypeExact, t.handleCancelReport)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "profile", bot.MatchTypeExact, t.handleProfile)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "prices", bot.MatchTypeExact, t.handlePrices)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "promo_enter", bot.MatchTypeExact, t.handlePromoEnter)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "info", bot.MatchTypeExact, t.handleInfo)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "back_to_main", bot.MatchTypeExact, t.handleBackToMain)

	return t, nil
}

// Start runs the long-polling loop until the context is canceled.
func (t *Bot) Start(ctx context.Context) {
	t.logger.Info("Telegram bot started")
	t.b.Start(ctx)
}

// Notify sends a short message to a user. Used by the reconciliation loop
// to confirm credited payments.
func (t *Bot) Notify(ctx context.Context, userID int64, text string) {
	t.send(ctx, userID, text, nil)
}

func (t *Bot) send(ctx context.Context, chatID int64, text string, markup tgModels.ReplyMarkup) {
	_, err := t.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		t.logger.Error("Failed to send message ", "chat ", chatID, " error ", err)
	}
}

func (t *Bot) answer(ctx context.Context, queryID, text string, alert bool) {
	_, err := t.b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		t.logger.Error("Failed to answer callback query ", "error ", err)
	}
}

// updateUser extracts the acting user and the chat to reply into.
func updateUser(update *tgModels.Update) (userID int64, chatID int64, ok bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.Chat.ID, true
	case update.CallbackQuery != nil:
		userID = update.CallbackQuery.From.ID
		chatID = userID
		if msg := update.CallbackQuery.Message.Message; msg != nil {
			chatID = msg.Chat.ID
		}
		return userID, chatID, true
	}
	return 0, 0, false
}

// banGate blocks banned users from every flow. Admins bypass the check
// unconditionally.
func (t *Bot) banGate(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *tgModels.Update) {
		userID, chatID, ok := updateUser(update)
		if !ok {
			next(ctx, b, update)
			return
		}
		if t.ledger.IsAdmin(userID) || !t.ledger.IsBanned(userID) {
			next(ctx, b, update)
			return
		}

		text := "🚫 Вы заблокированы!"
		if ban := t.ledger.BanInfo(userID); ban != nil {
			text = fmt.Sprintf(
				"🚫 Вы заблокированы!\n📅 Дата бана: %s\n📝 Причина: %s\n👨‍💼 Администратор: %s",
				ban.BannedAt.Format("2006-01-02 15:04"),
				ban.Reason,
				t.ledger.AdminName(ban.BannedBy),
			)
		}

		if update.CallbackQuery != nil {
			t.answer(ctx, update.CallbackQuery.ID, text, true)
			return
		}
		t.send(ctx, chatID, text, nil)
	}
}
