package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"funnelbot/internal/domain"
	"funnelbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService adapts the Bot API to the narrow contracts of the core:
// domain.Notifier and domain.MembershipChecker.
type TelegramService struct {
	bot domain.TelegramSender
}

func NewTelegramService(bot domain.TelegramSender) *TelegramService {
	return &TelegramService{
		bot: bot,
	}
}

func (s *TelegramService) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.bot.Send(c)
}

func (s *TelegramService) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return s.bot.Request(c)
}

func (s *TelegramService) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := s.bot.Send(msg)
	return err
}

func (s *TelegramService) SendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeHTML
	_, err := s.bot.Send(msg)
	return err
}

func (s *TelegramService) SendDocument(chatID int64, filePath, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filePath))
	doc.Caption = caption
	_, err := s.bot.Send(doc)
	return err
}

func (s *TelegramService) SendWithInlineKeyboard(
	chatID int64,
	text string,
	keyboard tgbotapi.InlineKeyboardMarkup,
) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := s.bot.Send(msg)
	return err
}

func (s *TelegramService) AnswerCallback(callbackID, text string, alert bool) error {
	callback := tgbotapi.NewCallback(callbackID, text)
	callback.ShowAlert = alert
	_, err := s.bot.Request(callback)
	return err
}

func (s *TelegramService) RemoveInlineKeyboard(chatID int64, messageID int) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, err := s.bot.Request(edit)
	return err
}

// GetMembership спрашивает у Telegram текущий статус пользователя в канале.
// channelID принимает @username либо числовой идентификатор вида -100123456789.
func (s *TelegramService) GetMembership(ctx context.Context, channelID string, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	chatCfg := tgbotapi.ChatConfigWithUser{UserID: userID}
	if strings.HasPrefix(channelID, "@") {
		chatCfg.SuperGroupUsername = channelID
	} else {
		chatID, err := strconv.ParseInt(channelID, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid channel id %q: %w", channelID, err)
		}
		chatCfg.ChatID = chatID
	}

	member, err := s.bot.GetChatMember(tgbotapi.GetChatMemberConfig{ChatConfigWithUser: chatCfg})
	if err != nil {
		return "", fmt.Errorf("get chat member: %w", err)
	}

	return member.Status, nil
}

func (s *TelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.bot.GetUpdatesChan(config)
}

func (s *TelegramService) GetSelf() tgbotapi.User {
	return s.bot.GetSelf()
}

func (s *TelegramService) StopReceivingUpdates() {
	s.bot.StopReceivingUpdates()
}
