package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"funnelbot/internal/config"
	"funnelbot/internal/database"
	"funnelbot/internal/events"
	"funnelbot/internal/models"
	"funnelbot/internal/repository"
	"funnelbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminID int64 = 42

// fakeSender записывает все исходящие вызовы Bot API и отдает
// настроенный статус подписки.
type fakeSender struct {
	mu           sync.Mutex
	sent         []tgbotapi.Chattable
	requests     []tgbotapi.Chattable
	memberStatus string
	memberErr    error
	updatesChan  chan tgbotapi.Update
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return tgbotapi.ChatMember{Status: f.memberStatus}, f.memberErr
}

func (f *fakeSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updatesChan
}

func (f *fakeSender) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "funnel_test_bot"}
}

func (f *fakeSender) StopReceivingUpdates() {}

func (f *fakeSender) sentMessages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

type testBot struct {
	bot    *Bot
	sender *fakeSender
	db     *database.DB
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sender := &fakeSender{
		memberStatus: models.MemberStatusMember,
		updatesChan:  make(chan tgbotapi.Update, 4),
	}
	tgService := service.NewTelegramService(sender)

	cfg := &config.Config{
		Telegram: config.TelegramConfig{
			BotToken:    "test",
			AdminID:     testAdminID,
			ChannelID:   "@testchannel",
			ChannelLink: "https://t.me/testchannel",
		},
		Funnel: config.FunnelConfig{
			ArticleLink:         "https://example.org/article",
			AssetPath:           "/nonexistent/bonus.pdf",
			BonusDelaySeconds:   1,
			ContactDelaySeconds: 1,
		},
		Exports: config.ExportConfig{Path: t.TempDir()},
	}

	eventBus := events.NewEventBus()
	sequencer := service.NewDelayedSequencer(&logger)
	t.Cleanup(sequencer.Shutdown)

	plan := service.NewDeliveryPlan(db, tgService, eventBus,
		cfg.Funnel.AssetPath, cfg.Funnel.BonusDelay(), cfg.Funnel.ContactDelay(), &logger)
	funnel := service.NewFunnelEngine(db, tgService, sequencer, eventBus,
		plan.Steps, cfg.Telegram.ChannelID, &logger)
	broadcast := service.NewBroadcastDispatcher(db, tgService, eventBus,
		testAdminID, time.Millisecond, &logger)
	relay := service.NewReplyRelay(db, tgService, testAdminID, &logger)
	userService := service.NewUserService(db, testAdminID, &logger)
	stateService := service.NewStateService(repository.NewMemoryStateRepository(), &logger, 100, time.Minute)

	b, err := NewBot(tgService, cfg, funnel, broadcast, relay,
		userService, stateService, nil, eventBus, nil, &logger)
	require.NoError(t, err)

	return &testBot{bot: b, sender: sender, db: db}
}

func userMessage(userID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, UserName: "testuser", FirstName: "Тест"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.TrimPrefix(strings.Fields(text)[0], "/")
		msg.Entities = []tgbotapi.MessageEntity{{
			Type:   "bot_command",
			Offset: 0,
			Length: len(cmd) + 1,
		}}
	}
	return msg
}

func TestHandleStart_Subscribed(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleStart(ctx, userMessage(100, "/start"))

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Вот обещанная статья")
	require.NotNil(t, msgs[0].ReplyMarkup)

	user, err := tb.db.GetUserByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, user.IsSubscribed)
}

func TestHandleStart_NotSubscribed(t *testing.T) {
	tb := newTestBot(t)
	tb.sender.memberStatus = models.MemberStatusLeft
	ctx := context.Background()

	tb.bot.handleStart(ctx, userMessage(100, "/start"))

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "подпишись на мой канал")

	user, err := tb.db.GetUserByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.False(t, user.IsSubscribed)
}

func TestHandleStart_CheckUnavailable(t *testing.T) {
	tb := newTestBot(t)
	tb.sender.memberErr = errors.New("Bad Gateway")
	ctx := context.Background()

	tb.bot.handleStart(ctx, userMessage(100, "/start"))

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Не получилось проверить подписку")

	// Сбой проверки подписки не выдает доступ.
	user, err := tb.db.GetUserByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.False(t, user.IsSubscribed)
}

func TestHandleStart_AlreadyDelivered(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, tb.db.UpsertUser(ctx, 100, models.Identity{Username: "testuser"}))
	require.NoError(t, tb.db.SetContentReceived(ctx, 100))

	tb.bot.handleStart(ctx, userMessage(100, "/start"))

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "уже получал материалы")
}

func TestHandleCheckSubscription_ExpiredCallbackMessage(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, tb.db.UpsertUser(ctx, 100, models.Identity{Username: "testuser"}))

	// Telegram не прикладывает Message к callback'ам старше 48 часов:
	// ответ уходит в личный чат по id пользователя.
	callback := &tgbotapi.CallbackQuery{
		ID:   "cb-old",
		From: &tgbotapi.User{ID: 100, UserName: "testuser"},
		Data: callbackCheckSubscription,
	}
	tb.bot.handleCheckSubscription(ctx, callback)

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(100), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "Вот твоя статья")

	user, err := tb.db.GetUserByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.True(t, user.IsSubscribed)
}

func TestHandleUserMessage_ForwardsToAdmin(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleUserMessage(ctx, userMessage(100, "Здравствуйте, есть вопрос"))

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 2)

	adminMsg := msgs[0]
	assert.Equal(t, testAdminID, adminMsg.ChatID)
	assert.Contains(t, adminMsg.Text, "[ID: 100]")
	assert.Contains(t, adminMsg.Text, "Здравствуйте, есть вопрос")

	userMsg := msgs[1]
	assert.Equal(t, int64(100), userMsg.ChatID)
	assert.Contains(t, userMsg.Text, "Ваше сообщение получено")

	// Входящее сообщение попало в журнал.
	logged, err := tb.db.GetUserMessages(ctx, 100, 10)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.False(t, logged[0].FromAdmin)
}

func TestHandleAdminReply(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	reply := userMessage(testAdminID, "Отвечаю на ваш вопрос")
	reply.ReplyToMessage = &tgbotapi.Message{
		Text: "📩 Новое сообщение от пользователя [ID: 100]",
	}

	tb.bot.handleAdminReply(ctx, reply)

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(100), msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "Отвечаю на ваш вопрос")
	assert.Contains(t, msgs[1].Text, "Сообщение отправлено пользователю 100")
}

func TestHandleAdminReply_Malformed(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	reply := userMessage(testAdminID, "ответ")
	reply.ReplyToMessage = &tgbotapi.Message{Text: "сообщение без маркера"}

	tb.bot.handleAdminReply(ctx, reply)

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Не удалось определить пользователя")
}

func TestHandleStats_AdminOnly(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleStats(ctx, userMessage(100, "/stats"))

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "нет доступа")
}

func TestHandleStats(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, tb.db.UpsertUser(ctx, 1, models.Identity{}))
	require.NoError(t, tb.db.UpsertUser(ctx, 2, models.Identity{}))
	require.NoError(t, tb.db.SetSubscribed(ctx, 1, true))

	tb.bot.handleStats(ctx, userMessage(testAdminID, "/stats"))

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Статистика бота")
	assert.Contains(t, msgs[0].Text, "Конверсия")
}

func TestBroadcastFlow(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, tb.db.UpsertUser(ctx, 1, models.Identity{}))
	require.NoError(t, tb.db.UpsertUser(ctx, 2, models.Identity{}))

	tb.bot.handleBroadcast(ctx, userMessage(testAdminID, "/broadcast Всем привет"))

	msgs := tb.sender.sentMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Подтвердите рассылку")

	callback := &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: testAdminID},
		Data: callbackBroadcastConfirm,
		Message: &tgbotapi.Message{
			MessageID: 1,
			Chat:      &tgbotapi.Chat{ID: testAdminID},
		},
	}
	tb.bot.handleBroadcastConfirm(ctx, callback)

	// Рассылка идет в фоне: ждем сообщений двум получателям плюс итог.
	assert.Eventually(t, func() bool {
		return len(tb.sender.sentMessages()) >= 4
	}, 2*time.Second, 10*time.Millisecond)

	final := tb.sender.sentMessages()
	last := final[len(final)-1]
	assert.Contains(t, last.Text, "Рассылка завершена")
	assert.Contains(t, last.Text, "Отправлено: 2")
}

func TestBroadcastCancel(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.bot.handleBroadcast(ctx, userMessage(testAdminID, "/broadcast текст"))

	callback := &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: testAdminID},
		Data: callbackBroadcastCancel,
		Message: &tgbotapi.Message{
			MessageID: 1,
			Chat:      &tgbotapi.Chat{ID: testAdminID},
		},
	}
	tb.bot.handleBroadcastCancel(ctx, callback)

	tb.bot.pendingMu.Lock()
	pending := tb.bot.pendingBroadcast
	tb.bot.pendingMu.Unlock()
	assert.Empty(t, pending)
}

func TestExportUsers(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	require.NoError(t, tb.db.UpsertUser(ctx, 1, models.Identity{Username: "ivan"}))

	path, err := tb.bot.exportUsersToExcel(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".xlsx"))
}

func TestBotStart_ProcessesUpdate(t *testing.T) {
	tb := newTestBot(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		tb.bot.Start(ctx)
		close(done)
	}()

	tb.sender.updatesChan <- tgbotapi.Update{Message: userMessage(100, "/start")}

	assert.Eventually(t, func() bool {
		return len(tb.sender.sentMessages()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("бот не остановился по отмене контекста")
	}
}
