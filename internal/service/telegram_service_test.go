package service

import (
	"context"
	"errors"
	"testing"

	"funnelbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockTelegramSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *mockTelegramSender) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.ChatMember), args.Error(1)
}

func (m *mockTelegramSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockTelegramSender) GetSelf() tgbotapi.User {
	args := m.Called()
	return args.Get(0).(tgbotapi.User)
}

func (m *mockTelegramSender) StopReceivingUpdates() {
	m.Called()
}

func TestTelegramService(t *testing.T) {
	mockSender := new(mockTelegramSender)
	svc := NewTelegramService(mockSender)

	t.Run("SendText", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.Text == "привет" && msg.ChatID == 123
		})).Return(tgbotapi.Message{}, nil).Once()

		err := svc.SendText(123, "привет")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("SendHTML", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ParseMode == models.ParseModeHTML
		})).Return(tgbotapi.Message{}, nil).Once()

		err := svc.SendHTML(123, "<b>жирный</b>")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("SendDocument", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			doc, ok := c.(tgbotapi.DocumentConfig)
			return ok && doc.Caption == "бонус"
		})).Return(tgbotapi.Message{}, nil).Once()

		err := svc.SendDocument(123, "/tmp/bonus.pdf", "бонус")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("AnswerCallback", func(t *testing.T) {
		mockSender.On("Request", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			cb, ok := c.(tgbotapi.CallbackConfig)
			return ok && cb.CallbackQueryID == "cb123"
		})).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()

		err := svc.AnswerCallback("cb123", "ок", false)
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})
}

func TestTelegramService_GetMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("ByUsername", func(t *testing.T) {
		mockSender := new(mockTelegramSender)
		svc := NewTelegramService(mockSender)

		mockSender.On("GetChatMember", mock.MatchedBy(func(c tgbotapi.GetChatMemberConfig) bool {
			return c.SuperGroupUsername == "@channel" && c.UserID == 7
		})).Return(tgbotapi.ChatMember{Status: models.MemberStatusMember}, nil).Once()

		status, err := svc.GetMembership(ctx, "@channel", 7)
		require.NoError(t, err)
		assert.Equal(t, models.MemberStatusMember, status)
	})

	t.Run("ByNumericID", func(t *testing.T) {
		mockSender := new(mockTelegramSender)
		svc := NewTelegramService(mockSender)

		mockSender.On("GetChatMember", mock.MatchedBy(func(c tgbotapi.GetChatMemberConfig) bool {
			return c.ChatID == -100123456789 && c.UserID == 7
		})).Return(tgbotapi.ChatMember{Status: models.MemberStatusLeft}, nil).Once()

		status, err := svc.GetMembership(ctx, "-100123456789", 7)
		require.NoError(t, err)
		assert.Equal(t, models.MemberStatusLeft, status)
	})

	t.Run("InvalidChannelID", func(t *testing.T) {
		mockSender := new(mockTelegramSender)
		svc := NewTelegramService(mockSender)

		_, err := svc.GetMembership(ctx, "not-a-channel", 7)
		assert.Error(t, err)
		mockSender.AssertNotCalled(t, "GetChatMember", mock.Anything)
	})

	t.Run("APIError", func(t *testing.T) {
		mockSender := new(mockTelegramSender)
		svc := NewTelegramService(mockSender)

		mockSender.On("GetChatMember", mock.Anything).
			Return(tgbotapi.ChatMember{}, errors.New("Bad Gateway")).Once()

		_, err := svc.GetMembership(ctx, "@channel", 7)
		assert.Error(t, err)
	})
}
