package telegram

import (
	"fmt"

	tgModels "github.com/go-telegram/bot/models"

	"github.com/aircrouching/delator/internal/models"
)

func mainMenuKeyboard() *tgModels.InlineKeyboardMarkup {
	return &tgModels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgModels.InlineKeyboardButton{
			{{Text: "🚨 Отправить жалобу", CallbackData: "new_report"}},
			{{Text: "👤 Профиль", CallbackData: "profile"}, {Text: "💳 Тарифы", CallbackData: "prices"}},
			{{Text: "🎟 Промокод", CallbackData: "promo_enter"}, {Text: "ℹ️ Инфо", CallbackData: "info"}},
		},
	}
}

func reportReasonsKeyboard() *tgModels.InlineKeyboardMarkup {
	return &tgModels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgModels.InlineKeyboardButton{
			{
				{Text: "Spam", CallbackData: "report_spam"},
				{Text: "Pornography", CallbackData: "report_porn"},
				{Text: "Violence", CallbackData: "report_violence"},
			},
			{{Text: "Отмена", CallbackData: "cancel_report"}},
		},
	}
}

func pricesKeyboard() *tgModels.InlineKeyboardMarkup {
	rows := make([][]tgModels.InlineKeyboardButton, 0, len(tariffOrder)+1)
	for _, id := range tariffOrder {
		tariff := models.Tariffs[id]
		rows = append(rows, []tgModels.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s — %.0f USDT", tariff.Title, tariff.Price),
			CallbackData: "buy_" + tariff.ID,
		}})
	}
	rows = append(rows, []tgModels.InlineKeyboardButton{{Text: "Назад", CallbackData: "back_to_main"}})
	return &tgModels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// tariffOrder fixes the display order of the plan buttons.
var tariffOrder = []string{"1day", "3days", "7days", "30days", "forever"}

func backKeyboard() *tgModels.InlineKeyboardMarkup {
	return &tgModels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgModels.InlineKeyboardButton{
			{{Text: "Вернуться в меню", CallbackData: "back_to_main"}},
		},
	}
}

func payKeyboard(payURL string) *tgModels.InlineKeyboardMarkup {
	return &tgModels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgModels.InlineKeyboardButton{
			{{Text: "💳 Оплатить", URL: payURL}},
			{{Text: "Вернуться в меню", CallbackData: "back_to_main"}},
		},
	}
}

func adminKeyboard() *tgModels.InlineKeyboardMarkup {
	return &tgModels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgModels.InlineKeyboardButton{
			{{Text: "🔨 Забанить пользователя", CallbackData: "admin_ban"}},
			{{Text: "🔓 Разбанить пользователя", CallbackData: "admin_unban"}},
			{{Text: "🎟 Выдать подписку", CallbackData: "admin_add_sub"}},
			{{Text: "❌ Забрать подписку", CallbackData: "admin_remove_sub"}},
			{{Text: "🎫 Создать промокод", CallbackData: "admin_create_promo"}},
		},
	}
}
