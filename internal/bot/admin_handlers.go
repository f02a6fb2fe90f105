package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"funnelbot/internal/models"
	"funnelbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleStats отвечает на команду /stats статистикой по воронке.
func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.sendText(msg.Chat.ID, "⛔ У вас нет доступа к этой команде.")
		return
	}

	stats, err := b.userService.GetStats(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Ошибка получения статистики")
		b.sendText(msg.Chat.ID, b.getErrorMessage(err))
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Статистика бота</b>\n\n")
	fmt.Fprintf(&sb, "👥 Всего пользователей: <b>%d</b>\n", stats.TotalUsers)
	fmt.Fprintf(&sb, "✅ Подписались: <b>%d</b>\n", stats.SubscribedUsers)
	fmt.Fprintf(&sb, "📎 Получили файл: <b>%d</b>\n", stats.ReceivedContent)
	fmt.Fprintf(&sb, "💬 Всего сообщений: <b>%d</b>\n", stats.TotalMessages)

	if stats.TotalUsers > 0 {
		sb.WriteString("\n📈 <b>Конверсия:</b>\n")
		fmt.Fprintf(&sb, "• В подписку: <b>%.1f%%</b>\n", stats.SubscriptionRate())
		fmt.Fprintf(&sb, "• Получили файл: <b>%.1f%%</b>", stats.ContentRate())
	}

	b.sendHTML(msg.Chat.ID, sb.String())
	b.logger.Info().Int64("admin_id", msg.From.ID).Msg("Администратор запросил статистику")
}

// handleUsers показывает последних зарегистрированных пользователей.
func (b *Bot) handleUsers(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.sendText(msg.Chat.ID, "⛔ У вас нет доступа к этой команде.")
		return
	}

	users, err := b.userService.ListRecent(ctx, models.RecentUsersLimit)
	if err != nil {
		b.logger.Error().Err(err).Msg("Ошибка получения списка пользователей")
		b.sendText(msg.Chat.ID, b.getErrorMessage(err))
		return
	}

	if len(users) == 0 {
		b.sendText(msg.Chat.ID, "Пока ни одного пользователя.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 <b>Последние %d пользователей</b>\n\n", len(users))
	for _, u := range users {
		name := u.FullName()
		if name == "" {
			name = "Без имени"
		}
		username := "нет"
		if u.Username != "" {
			username = "@" + u.Username
		}
		flags := ""
		if u.IsSubscribed {
			flags += " ✅"
		}
		if u.HasReceivedContent {
			flags += " 📎"
		}
		fmt.Fprintf(&sb, "• %s (%s) [ID: %d]%s\n  %s\n",
			name, username, u.TelegramID, flags, u.CreatedAt.Format("02.01.2006 15:04"))
	}

	b.sendHTML(msg.Chat.ID, sb.String())
}

// handleBroadcast принимает /broadcast <текст>. Текст придерживается до
// подтверждения кнопкой.
func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.sendText(msg.Chat.ID, "⛔ У вас нет доступа к этой команде.")
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.sendText(msg.Chat.ID, "Использование: /broadcast <текст сообщения>")
		return
	}

	b.pendingMu.Lock()
	b.pendingBroadcast = text
	b.pendingMu.Unlock()

	preview := "📣 <b>Подтвердите рассылку</b>\n\n" + text
	previewMsg := tgbotapi.NewMessage(msg.Chat.ID, preview)
	previewMsg.ParseMode = models.ParseModeHTML
	previewMsg.ReplyMarkup = broadcastConfirmKeyboard()
	if _, err := b.tgService.Send(previewMsg); err != nil {
		b.logger.Error().Err(err).Msg("Не удалось отправить предпросмотр рассылки")
	}
}

func (b *Bot) handleBroadcastConfirm(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if !b.isAdmin(callback.From.ID) {
		_ = b.tgService.AnswerCallback(callback.ID, "⛔ Нет доступа.", true)
		return
	}

	b.pendingMu.Lock()
	text := b.pendingBroadcast
	b.pendingBroadcast = ""
	b.pendingMu.Unlock()

	b.removeKeyboard(callback)

	if text == "" {
		_ = b.tgService.AnswerCallback(callback.ID, "Нет отложенной рассылки.", true)
		return
	}

	_ = b.tgService.AnswerCallback(callback.ID, "Рассылка запущена ⏳", false)

	// Рассылка может занять минуты; не держим контекст обновления.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		summary, err := b.broadcast.Run(ctx, callback.From.ID, text)
		if b.metrics != nil {
			b.metrics.BroadcastSent.Add(float64(summary.Sent))
			b.metrics.BroadcastFailed.Add(float64(summary.Failed))
		}

		switch {
		case errors.Is(err, service.ErrNoRecipients):
			b.sendText(b.config.Telegram.AdminID, "Рассылать некому: в базе нет пользователей.")
		case errors.Is(err, service.ErrBroadcastRunning):
			b.sendText(b.config.Telegram.AdminID, "⚠️ Предыдущая рассылка еще не завершена.")
		case err != nil:
			b.logger.Error().Err(err).Msg("Рассылка завершилась с ошибкой")
			b.sendText(b.config.Telegram.AdminID,
				fmt.Sprintf("⚠️ Рассылка прервана. Отправлено: %d, ошибок: %d.", summary.Sent, summary.Failed))
		default:
			b.sendText(b.config.Telegram.AdminID,
				fmt.Sprintf("✅ Рассылка завершена. Отправлено: %d, ошибок: %d.", summary.Sent, summary.Failed))
		}
	}()
}

func (b *Bot) handleBroadcastCancel(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if !b.isAdmin(callback.From.ID) {
		_ = b.tgService.AnswerCallback(callback.ID, "⛔ Нет доступа.", true)
		return
	}

	b.pendingMu.Lock()
	b.pendingBroadcast = ""
	b.pendingMu.Unlock()

	b.removeKeyboard(callback)
	_ = b.tgService.AnswerCallback(callback.ID, "Рассылка отменена.", false)
}

// handleAdminReply доставляет ответ администратора через reply на
// пересланное сообщение с маркером [ID: ...].
func (b *Bot) handleAdminReply(ctx context.Context, msg *tgbotapi.Message) {
	replied := msg.ReplyToMessage.Text
	if replied == "" {
		replied = msg.ReplyToMessage.Caption
	}

	targetID, err := b.relay.Relay(ctx, msg.From.ID, replied, "💬 Ответ от администратора:\n\n"+msg.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMalformedReference):
			b.sendText(msg.Chat.ID,
				"⚠️ Не удалось определить пользователя. "+
					"Отвечайте только на сообщения от пользователей.")
		case errors.Is(err, service.ErrDeliveryFailed):
			b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Ошибка отправки сообщения пользователю %d.", targetID))
		default:
			b.logger.Error().Err(err).Msg("Ошибка пересылки ответа")
			b.sendText(msg.Chat.ID, b.getErrorMessage(err))
		}
		return
	}

	b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Сообщение отправлено пользователю %d", targetID))
}

// handleExportUsers выгружает пользователей в Excel файл.
func (b *Bot) handleExportUsers(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.sendText(msg.Chat.ID, "⛔ У вас нет доступа к этой команде.")
		return
	}

	filePath, err := b.exportUsersToExcel(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Ошибка экспорта пользователей")
		b.sendText(msg.Chat.ID, "❌ Не удалось сформировать файл экспорта.")
		return
	}

	if err := b.tgService.SendDocument(msg.Chat.ID, filePath, "Выгрузка пользователей"); err != nil {
		b.logger.Error().Err(err).Str("file_path", filePath).Msg("Не удалось отправить файл экспорта")
		b.sendText(msg.Chat.ID, "❌ Не удалось отправить файл.")
	}
}

// handleSyncUsers ставит в очередь синхронизацию в Google Sheets.
func (b *Bot) handleSyncUsers(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.sendText(msg.Chat.ID, "⛔ У вас нет доступа к этой команде.")
		return
	}

	if b.sheetsWorker == nil {
		b.sendText(msg.Chat.ID, "⚠️ Синхронизация с Google Sheets не настроена.")
		return
	}

	if err := b.sheetsWorker.EnqueueUserSync(ctx); err != nil {
		b.logger.Error().Err(err).Msg("Не удалось поставить синхронизацию в очередь")
		b.sendText(msg.Chat.ID, "❌ Не удалось запустить синхронизацию.")
		return
	}

	b.sendText(msg.Chat.ID, "🔄 Синхронизация пользователей запущена.")
}
