package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/aircrouching/delator/internal/ledger"
)

// timeNow is a seam for tests.
var timeNow = time.Now

// promoValidDays is how long a freshly created promo code stays redeemable.
const promoValidDays = 30

func (t *Bot) handleAdminPanel(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	if !t.ledger.IsAdmin(userID) {
		t.send(ctx, chatID, "‼️У вас нет доступа к админ панели.", nil)
		return
	}
	t.send(ctx, chatID, "👑 Админ панель:", adminKeyboard())
}

func (t *Bot) handleAdminAction(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	userID, chatID, ok := updateUser(update)
	if !ok {
		return
	}
	if !t.ledger.IsAdmin(userID) {
		t.answer(ctx, update.CallbackQuery.ID, "У вас нет доступа к админ панели.", false)
		return
	}
	t.answer(ctx, update.CallbackQuery.ID, "", false)

	switch strings.TrimPrefix(update.CallbackQuery.Data, "admin_") {
	case "ban":
		t.states.Set(userID, Flow{State: StateAwaitingBanInput})
		t.send(ctx, chatID, "Введите ID пользователя и причину бана через пробел (например: 123456 Нарушение правил):", nil)
	case "unban":
		t.states.Set(userID, Flow{State: StateAwaitingUnbanInput})
		t.send(ctx, chatID, "Введите ID пользователя для разбана:", nil)
	case "add_sub":
		t.states.Set(userID, Flow{State: StateAwaitingGrantInput})
		t.send(ctx, chatID, "Введите ID пользователя и количество дней через пробел (например: 123456 30):", nil)
	case "remove_sub":
		t.states.Set(userID, Flow{State: StateAwaitingRevokeInput})
		t.send(ctx, chatID, "Введите ID пользователя для удаления подписки:", nil)
	case "create_promo":
		t.states.Set(userID, Flow{State: StateAwaitingPromoDays})
		t.send(ctx, chatID, "Введите количество дней подписки для промокода:", nil)
	}
}

// handleAdminInput processes the text answers of the admin flows. Invalid
// input keeps the state so the admin can retry.
func (t *Bot) handleAdminInput(ctx context.Context, chatID, userID int64, text string, flow Flow) {
	if !t.ledger.IsAdmin(userID) {
		t.states.Clear(userID)
		return
	}

	switch flow.State {
	case StateAwaitingBanInput:
		parts := strings.SplitN(text, " ", 2)
		target, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || target <= 0 {
			t.send(ctx, chatID, "❌ Неверный формат. Введите ID и причину через пробел.", nil)
			return
		}
		reason := "Не указана"
		if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
			reason = strings.TrimSpace(parts[1])
		}
		t.states.Clear(userID)
		if t.ledger.Ban(target, reason, userID) {
			t.send(ctx, chatID, "✅ Пользователь забанен.", nil)
		} else {
			t.send(ctx, chatID, "❌ Не удалось забанить пользователя.", nil)
		}

	case StateAwaitingUnbanInput:
		target, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil || target <= 0 {
			t.send(ctx, chatID, "❌ Неверный формат. Введите положительное число.", nil)
			return
		}
		t.states.Clear(userID)
		if t.ledger.Unban(target) {
			t.send(ctx, chatID, "✅ Пользователь разбанен.", nil)
		} else {
			t.send(ctx, chatID, "❌ Пользователь не был забанен.", nil)
		}

	case StateAwaitingGrantInput:
		parts := strings.Fields(text)
		if len(parts) != 2 {
			t.send(ctx, chatID, "❌ Неверный формат. Введите ID и количество дней через пробел.", nil)
			return
		}
		target, err1 := strconv.ParseInt(parts[0], 10, 64)
		days, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || target <= 0 || days <= 0 {
			t.send(ctx, chatID, "❌ Неверный формат. Введите положительное число.", nil)
			return
		}
		t.states.Clear(userID)
		if t.ledger.Grant(target, days) {
			t.send(ctx, chatID, "✅ Подписка выдана.", nil)
		} else {
			t.send(ctx, chatID, "❌ Не удалось выдать подписку.", nil)
		}

	case StateAwaitingRevokeInput:
		target, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil || target <= 0 {
			t.send(ctx, chatID, "❌ Неверный формат. Введите положительное число.", nil)
			return
		}
		t.states.Clear(userID)
		if t.ledger.Revoke(target) {
			t.send(ctx, chatID, "✅ Подписка удалена.", nil)
		} else {
			t.send(ctx, chatID, "❌ У пользователя нет подписки.", nil)
		}

	case StateAwaitingPromoDays:
		days, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || days <= 0 {
			t.send(ctx, chatID, "❌ Неверный формат. Введите положительное число.", nil)
			return
		}
		t.states.Set(userID, Flow{State: StateAwaitingPromoUses, PromoDays: days})
		t.send(ctx, chatID, "Введите максимальное количество активаций для промокода на "+strconv.Itoa(days)+" дней:", nil)

	case StateAwaitingPromoUses:
		maxUses, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || maxUses <= 0 {
			t.send(ctx, chatID, "❌ Неверный формат. Введите положительное число.", nil)
			return
		}
		t.states.Clear(userID)

		code := ledger.GeneratePromoCode()
		if !t.ledger.CreatePromo(code, flow.PromoDays, maxUses, userID, promoValidDays) {
			t.send(ctx, chatID, "❌ Ошибка при создании промокода", nil)
			return
		}
		expires := timeNow().Add(promoValidDays * 24 * time.Hour).Format("2006-01-02 15:04:05")
		t.send(ctx, chatID,
			"✅ Промокод создан!\n\n"+
				"🔑 Код: "+code+"\n"+
				"📅 Дней: "+strconv.Itoa(flow.PromoDays)+"\n"+
				"🔄 Активаций: "+strconv.Itoa(maxUses)+"\n"+
				"⏳ Действует до: "+expires+"\n\n"+
				"Отправьте пользователю: /promo "+code,
			nil)
	}
}
