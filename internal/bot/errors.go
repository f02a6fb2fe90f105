package bot

import (
	"errors"

	"funnelbot/internal/database"
	"funnelbot/internal/service"
)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, database.ErrUserNotFound) {
		return "⚠️ Пользователь не найден. Отправьте /start, чтобы зарегистрироваться."
	}

	if errors.Is(err, service.ErrNotAdmin) {
		return "⛔ У вас нет доступа к этой команде."
	}

	if errors.Is(err, service.ErrBroadcastRunning) {
		return "⚠️ Предыдущая рассылка еще не завершена. Подождите ее окончания."
	}

	// Default error message
	return "❌ Произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте позже."
}
