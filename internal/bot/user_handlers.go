package bot

import (
	"context"
	"errors"
	"fmt"

	"funnelbot/internal/database"
	"funnelbot/internal/models"
	"funnelbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func identityFrom(from *tgbotapi.User) models.Identity {
	return models.Identity{
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}
}

// handleStart обрабатывает вход в воронку.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	outcome, err := b.funnel.OnEntry(ctx, userID, identityFrom(msg.From))
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Ошибка обработки /start")
		b.sendText(msg.Chat.ID, b.getErrorMessage(err))
		return
	}

	b.countOutcome(outcome)
	b.logger.Info().Int64("user_id", userID).Str("outcome", outcome.String()).Msg("Пользователь запустил бота")

	switch outcome {
	case service.OutcomeAlreadyDelivered:
		b.sendText(msg.Chat.ID,
			"Привет! 👋\n\n"+
				"Ты уже получал материалы ранее.\n"+
				"Если есть вопросы - просто напиши мне!")

	case service.OutcomeGrantAccess:
		b.sendArticle(msg.Chat.ID, "Привет!\n\nВот обещанная статья, приятного прочтения 🖤")

	case service.OutcomeDeliveryPending:
		b.sendText(msg.Chat.ID, "Материалы уже в пути, подожди немного 🖤")

	case service.OutcomePromptSubscription:
		b.promptSubscription(msg.Chat.ID)

	case service.OutcomeCheckUnavailable:
		b.sendText(msg.Chat.ID,
			"⚠️ Не получилось проверить подписку, Telegram не отвечает.\n"+
				"Попробуй еще раз через пару минут.")
	}
}

// handleCheckSubscription обрабатывает нажатие кнопки "Я подписался".
func (b *Bot) handleCheckSubscription(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID

	// У callback'ов старше 48 часов Message может быть nil; в личном
	// диалоге chat id совпадает с id пользователя.
	chatID := userID
	if callback.Message != nil {
		chatID = callback.Message.Chat.ID
	}

	_ = b.tgService.AnswerCallback(callback.ID, "Проверяю подписку... ⏳", false)

	outcome, err := b.funnel.OnRecheck(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Ошибка перепроверки подписки")
		b.sendText(chatID, b.getErrorMessage(err))
		return
	}

	b.countOutcome(outcome)

	switch outcome {
	case service.OutcomeAlreadyDelivered:
		b.removeKeyboard(callback)
		b.sendText(chatID,
			"Ты уже получал материалы ранее.\n"+
				"Если есть вопросы - просто напиши мне!")

	case service.OutcomeGrantAccess:
		b.removeKeyboard(callback)
		b.sendArticle(chatID, "Супер! Вот твоя статья, приятного прочтения 🖤")

	case service.OutcomeDeliveryPending:
		b.removeKeyboard(callback)
		b.sendText(chatID, "Материалы уже в пути, подожди немного 🖤")

	case service.OutcomePromptSubscription:
		_ = b.tgService.AnswerCallback(callback.ID,
			"❌ Вы еще не подписались на канал!\n\n"+
				"Подпишитесь и нажмите кнопку еще раз.", true)

	case service.OutcomeCheckUnavailable:
		_ = b.tgService.AnswerCallback(callback.ID,
			"⚠️ Проверка подписки временно недоступна. Попробуйте позже.", true)
	}
}

// handleUserMessage пересылает сообщение пользователя администратору
// с маркером [ID: ...] для ответа через reply.
func (b *Bot) handleUserMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Text == "" {
		return
	}

	userID := msg.From.ID
	b.userService.LogIncoming(ctx, userID, msg.Text)

	userInfo := "Нет username"
	if msg.From.UserName != "" {
		userInfo = "@" + msg.From.UserName
	}

	subscribed, received := "Нет", "Нет"
	user, err := b.userService.GetByTelegramID(ctx, userID)
	if err != nil && !errors.Is(err, database.ErrUserNotFound) {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Не удалось получить профиль пользователя")
	}
	if user != nil {
		if user.IsSubscribed {
			subscribed = "Да"
		}
		if user.HasReceivedContent {
			received = "Да"
		}
	}

	adminMessage := fmt.Sprintf(
		"📩 <b>Новое сообщение от пользователя</b>\n\n"+
			"👤 <b>Пользователь:</b> %s\n"+
			"🔗 <b>Username:</b> %s\n"+
			"🆔 <b>[ID: %d]</b>\n"+
			"✅ <b>Подписан:</b> %s\n"+
			"📎 <b>Получил файл:</b> %s\n\n"+
			"💬 <b>Сообщение:</b>\n%s\n\n"+
			"<i>Чтобы ответить, используйте Reply на это сообщение</i>",
		identityFrom(msg.From).FullName(), userInfo, userID, subscribed, received, msg.Text,
	)

	if err := b.tgService.SendHTML(b.config.Telegram.AdminID, adminMessage); err != nil {
		b.logger.Error().Err(err).Msg("Ошибка отправки сообщения администратору")
	}

	b.sendText(msg.Chat.ID,
		"✅ Ваше сообщение получено!\n\n"+
			"Администратор ответит вам в ближайшее время.")
}

func (b *Bot) sendArticle(chatID int64, text string) {
	if err := b.tgService.SendWithInlineKeyboard(chatID, text, articleKeyboard(b.config.Funnel.ArticleLink)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось отправить статью")
	}
}

func (b *Bot) promptSubscription(chatID int64) {
	text := "Привет!\n\n" +
		"Для получения статьи \"Твой первый проект за 6 шагов\" - подпишись на мой канал."
	if err := b.tgService.SendWithInlineKeyboard(chatID, text, subscriptionKeyboard(b.config.Telegram.ChannelLink)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось отправить приглашение подписаться")
	}
}

func (b *Bot) removeKeyboard(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	if err := b.tgService.RemoveInlineKeyboard(callback.Message.Chat.ID, callback.Message.MessageID); err != nil {
		b.logger.Debug().Err(err).Msg("Не удалось убрать клавиатуру")
	}
}

func (b *Bot) countOutcome(outcome service.Outcome) {
	if b.metrics == nil {
		return
	}
	b.metrics.FunnelOutcomes.WithLabelValues(outcome.String()).Inc()
	if outcome == service.OutcomeCheckUnavailable {
		b.metrics.MembershipCheckFailures.Inc()
	}
}
