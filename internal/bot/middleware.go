package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// throttled гасит обновление, если пользователь превысил лимит частоты.
// Администратор не ограничивается.
func (b *Bot) throttled(ctx context.Context, userID int64, update tgbotapi.Update) bool {
	if b.isAdmin(userID) {
		return false
	}
	if b.stateService.AllowUpdate(ctx, userID) {
		return false
	}

	b.logger.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
	if update.Message != nil {
		b.sendText(update.Message.Chat.ID, "⚠️ Вы отправляете сообщения слишком часто. Пожалуйста, подождите немного.")
	}
	return true
}
