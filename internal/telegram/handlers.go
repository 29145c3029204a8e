package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/internal/reporter"
)

const welcomeText = "👋 Добро пожаловать!\n\n" +
	"Бот отправляет жалобы на сообщения со всех подключенных аккаунтов.\n" +
	"Для работы нужна активная подписка."

func (t *Bot) handleStart(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	t.states.Clear(userID)
	t.send(ctx, chatID, welcomeText, mainMenuKeyboard())
}

// handleMessage routes plain text by the user's current flow state.
func (t *Bot) handleMessage(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	switch flow := t.states.Get(userID); flow.State {
	case StateAwaitingLink:
		t.handleLinkInput(ctx, chatID, userID, text)
	case StateAwaitingPromo:
		t.states.Clear(userID)
		t.redeemPromo(ctx, chatID, userID, text)
	case StateAwaitingBanInput, StateAwaitingUnbanInput, StateAwaitingGrantInput,
		StateAwaitingRevokeInput, StateAwaitingPromoDays, StateAwaitingPromoUses:
		t.handleAdminInput(ctx, chatID, userID, text, flow)
	default:
		t.send(ctx, chatID, "Выберите действие:", mainMenuKeyboard())
	}
}

func (t *Bot) handleNewReport(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	t.answer(ctx, update.CallbackQuery.ID, "", false)

	if !t.ledger.IsAdmin(userID) && !t.ledger.HasActiveSubscription(userID) {
		t.send(ctx, chatID,
			"❌ У вас нет активной подписки.\nОформите подписку, чтобы отправлять жалобы.",
			pricesKeyboard())
		return
	}

	t.states.Set(userID, Flow{State: StateAwaitingLink})
	t.send(ctx, chatID,
		"🔗 Отправьте ссылку на сообщение.\n\nПоддерживаются ссылки вида:\n"+
			"https://t.me/c/1234567/89\nhttps://t.me/username/89",
		backKeyboard())
}

func (t *Bot) handleLinkInput(ctx context.Context, chatID, userID int64, text string) {
	if _, err := reporter.ParseMessageLink(text); err != nil {
		t.send(ctx, chatID, "❌ Неверная ссылка. Отправьте ссылку на сообщение вида https://t.me/c/1234567/89", nil)
		return
	}
	t.states.Set(userID, Flow{State: StateAwaitingReason, Link: text})
	t.send(ctx, chatID, "⚠️ Выберите причину жалобы:", reportReasonsKeyboard())
}

// callbackReasons maps callback suffixes to report reasons.
var callbackReasons = map[string]models.ReportReason{
	"spam":     models.ReasonSpam,
	"porn":     models.ReasonPornography,
	"violence": models.ReasonViolence,
}

func (t *Bot) handleReportReason(ctx context.Context, b *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}

	flow := t.states.Get(userID)
	if flow.State != StateAwaitingReason || flow.Link == "" {
		t.answer(ctx, update.CallbackQuery.ID, "Неверное состояние. Пожалуйста, начните заново.", false)
		t.states.Clear(userID)
		return
	}

	reason, ok := callbackReasons[strings.TrimPrefix(update.CallbackQuery.Data, "report_")]
	if !ok {
		t.answer(ctx, update.CallbackQuery.ID, "❌ Неверная причина жалобы", false)
		return
	}
	t.answer(ctx, update.CallbackQuery.ID, "", false)
	t.states.Clear(userID)

	progress, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "🔄 Отправка жалоб..."})
	if err != nil {
		t.logger.Error("Failed to send progress message ", "error ", err)
		return
	}

	// The sweep blocks until every account finishes; run it off the update
	// loop and edit the progress message with the outcome.
	go func() {
		result := t.pool.Dispatch(ctx, flow.Link, reason)
		_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   progress.ID,
			Text:        formatDispatchResult(result),
			ReplyMarkup: backKeyboard(),
		})
		if err != nil {
			t.logger.Error("Failed to edit report result ", "error ", err)
		}
	}()
}

// formatDispatchResult renders the sweep outcome with up to 3 unique errors.
func formatDispatchResult(result *models.AggregateResult) string {
	var sb strings.Builder
	if result.Success > 0 {
		fmt.Fprintf(&sb, "✅ Успешно отправлено %d из %d жалоб", result.Success, result.Total)
	} else {
		sb.WriteString("❌ Не удалось отправить жалобы")
	}

	if len(result.Errors) > 0 {
		unique := result.UniqueErrors()
		if len(unique) > 3 {
			unique = unique[:3]
		}
		sb.WriteString("\n\nОшибки:\n" + strings.Join(unique, "\n"))
		if len(result.Errors) > 3 {
			fmt.Fprintf(&sb, "\n...и еще %d ошибок", len(result.Errors)-3)
		}
	}
	return sb.String()
}

func (t *Bot) handleCancelReport(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	t.states.Clear(userID)
	t.answer(ctx, update.CallbackQuery.ID, "", false)
	t.send(ctx, chatID, "Жалоба отменена.", mainMenuKeyboard())
}

func (t *Bot) handleProfile(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	t.answer(ctx, update.CallbackQuery.ID, "", false)

	_, label := t.ledger.Status(userID)
	t.send(ctx, chatID, fmt.Sprintf("👤 Профиль\n\n🆔 ID: %d\n📅 Подписка: %s", userID, label), backKeyboard())
}

func (t *Bot) handlePrices(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	_, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	t.answer(ctx, update.CallbackQuery.ID, "", false)
	t.send(ctx, chatID, "💳 Выберите тариф:", pricesKeyboard())
}

func (t *Bot) handlePurchase(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}

	tariff, ok := models.Tariffs[strings.TrimPrefix(update.CallbackQuery.Data, "buy_")]
	if !ok {
		t.answer(ctx, update.CallbackQuery.ID, "❌ Неизвестный тариф", false)
		return
	}
	t.answer(ctx, update.CallbackQuery.ID, "", false)

	invoice, err := t.oracle.CreateInvoice(ctx, userID, tariff.Price, "Подписка: "+tariff.Title)
	if err != nil {
		t.send(ctx, chatID, "❌ Не удалось создать счет. Пожалуйста, попробуйте позже.", backKeyboard())
		return
	}

	t.reconciler.Track(models.PendingInvoice{
		InvoiceID: invoice.InvoiceID,
		UserID:    userID,
		Days:      tariff.Days,
		CreatedAt: timeNow(),
	})

	t.send(ctx, chatID,
		fmt.Sprintf("💳 Счет на %.0f USDT создан.\n\nОплатите в течение 30 минут — подписка активируется автоматически.", tariff.Price),
		payKeyboard(invoice.PayURL))
}

func (t *Bot) handlePromoEnter(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	t.answer(ctx, update.CallbackQuery.ID, "", false)
	t.states.Set(userID, Flow{State: StateAwaitingPromo})
	t.send(ctx, chatID, "🎟 Введите промокод:", backKeyboard())
}

func (t *Bot) handlePromoCommand(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	parts := strings.Fields(update.Message.Text)
	if len(parts) != 2 {
		t.send(ctx, chatID, "Использование: /promo КОД", nil)
		return
	}
	t.redeemPromo(ctx, chatID, userID, parts[1])
}

func (t *Bot) redeemPromo(ctx context.Context, chatID, userID int64, code string) {
	if code == "" {
		t.send(ctx, chatID, "❌ Промокод не может быть пустым.", backKeyboard())
		return
	}
	if !t.ledger.Redeem(code, userID) {
		t.send(ctx, chatID, "❌ Промокод не найден, истек или исчерпан.", backKeyboard())
		return
	}
	_, label := t.ledger.Status(userID)
	t.send(ctx, chatID, "✅ Промокод активирован!\n📅 Подписка: "+label, backKeyboard())
}

func (t *Bot) handleInfo(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	_, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	t.answer(ctx, update.CallbackQuery.ID, "", false)
	t.send(ctx, chatID,
		"ℹ️ Жалобы отправляются со всех подключенных аккаунтов одновременно.\n"+
			"По вопросам: @aircrouching",
		backKeyboard())
}

func (t *Bot) handleBackToMain(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	t.states.Clear(userID)
	t.answer(ctx, update.CallbackQuery.ID, "", false)
	t.send(ctx, chatID, "Выберите действие:", mainMenuKeyboard())
}
