package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackCheckSubscription = "check_subscription"
	callbackBroadcastConfirm  = "broadcast_confirm"
	callbackBroadcastCancel   = "broadcast_cancel"
)

// subscriptionKeyboard собирает кнопки подписки на канал и перепроверки.
func subscriptionKeyboard(channelLink string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📢 Подписаться на канал", channelLink),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Я подписался", callbackCheckSubscription),
		),
	)
}

// articleKeyboard собирает кнопку со ссылкой на статью.
func articleKeyboard(articleLink string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📖 Читать статью", articleLink),
		),
	)
}

// broadcastConfirmKeyboard собирает кнопки подтверждения рассылки.
func broadcastConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Отправить", callbackBroadcastConfirm),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", callbackBroadcastCancel),
		),
	)
}
