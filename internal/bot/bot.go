package bot

import (
	"context"
	"os"
	"sync"
	"time"

	"funnelbot/internal/config"
	"funnelbot/internal/domain"
	"funnelbot/internal/events"
	"funnelbot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Bot struct {
	tgService    *service.TelegramService
	config       *config.Config
	funnel       *service.FunnelEngine
	broadcast    *service.BroadcastDispatcher
	relay        *service.ReplyRelay
	userService  *service.UserService
	stateService *service.StateService
	sheetsWorker domain.SyncWorker
	eventBus     domain.EventPublisher
	metrics      *Metrics
	logger       *zerolog.Logger

	// Текст рассылки между /broadcast и подтверждением кнопкой.
	pendingMu        sync.Mutex
	pendingBroadcast string
}

func NewBot(
	tgService *service.TelegramService,
	config *config.Config,
	funnel *service.FunnelEngine,
	broadcast *service.BroadcastDispatcher,
	relay *service.ReplyRelay,
	userService *service.UserService,
	stateService *service.StateService,
	sheetsWorker domain.SyncWorker,
	eventBus domain.EventPublisher,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if eventBus == nil {
		eventBus = events.NewEventBus()
	}

	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	return &Bot{
		tgService:    tgService,
		config:       config,
		funnel:       funnel,
		broadcast:    broadcast,
		relay:        relay,
		userService:  userService,
		stateService: stateService,
		sheetsWorker: sheetsWorker,
		eventBus:     eventBus,
		metrics:      metrics,
		logger:       logger,
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Контекст на обработку каждого обновления
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		var userID int64
		if update.Message != nil {
			userID = update.Message.From.ID
		} else if update.CallbackQuery != nil {
			userID = update.CallbackQuery.From.ID
		}

		if userID == 0 {
			return
		}

		if b.throttled(updateCtx, userID, update) {
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update)
			return
		}

		if update.Message == nil {
			return
		}

		if b.metrics != nil {
			b.metrics.MessagesProcessed.Inc()
		}

		b.handleMessage(updateCtx, update)
	})
}

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if b.isAdmin(msg.From.ID) && msg.ReplyToMessage != nil {
		b.handleAdminReply(ctx, msg)
		return
	}

	b.handleUserMessage(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "stats":
		b.handleStats(ctx, msg)
	case "users":
		b.handleUsers(ctx, msg)
	case "broadcast":
		b.handleBroadcast(ctx, msg)
	case "export_users":
		b.handleExportUsers(ctx, msg)
	case "sync_users":
		b.handleSyncUsers(ctx, msg)
	default:
		b.sendText(msg.Chat.ID, "Неизвестная команда. Напишите сообщение, и я передам его администратору.")
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery

	switch callback.Data {
	case callbackCheckSubscription:
		b.handleCheckSubscription(ctx, callback)
	case callbackBroadcastConfirm:
		b.handleBroadcastConfirm(ctx, callback)
	case callbackBroadcastCancel:
		b.handleBroadcastCancel(ctx, callback)
	default:
		_ = b.tgService.AnswerCallback(callback.ID, "", false)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return userID == b.config.Telegram.AdminID
}

func (b *Bot) sendText(chatID int64, text string) {
	if err := b.tgService.SendText(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось отправить сообщение")
	}
}

func (b *Bot) sendHTML(chatID int64, text string) {
	if err := b.tgService.SendHTML(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Не удалось отправить сообщение")
	}
}

// NotifyStartup сообщает администратору о запуске бота.
func (b *Bot) NotifyStartup() {
	self := b.tgService.GetSelf()
	text := "🤖 <b>Бот успешно запущен!</b>\n\n" +
		"Username: @" + self.UserName
	if err := b.tgService.SendHTML(b.config.Telegram.AdminID, text); err != nil {
		b.logger.Warn().Err(err).Msg("Не удалось отправить уведомление администратору")
	}
}

// NotifyShutdown сообщает администратору об остановке.
func (b *Bot) NotifyShutdown() {
	if err := b.tgService.SendHTML(b.config.Telegram.AdminID, "⚠️ <b>Бот остановлен</b>"); err != nil {
		b.logger.Warn().Err(err).Msg("Не удалось отправить уведомление администратору")
	}
}
