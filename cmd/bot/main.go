package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"funnelbot/internal/api"
	"funnelbot/internal/bot"
	"funnelbot/internal/config"
	"funnelbot/internal/database"
	"funnelbot/internal/domain"
	"funnelbot/internal/events"
	"funnelbot/internal/google"
	"funnelbot/internal/logging"
	"funnelbot/internal/repository"
	"funnelbot/internal/service"
	"funnelbot/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sheetsService := initGoogleSheets(ctx, cfg, &logger)
	redisClient, stateService := initStateService(ctx, cfg, &logger)
	defer func() { _ = repository.Close(redisClient) }()

	eventBus := events.NewEventBus()

	// Воркер синхронизации пользователей в Google Sheets
	var sheetsWorker *worker.UserSyncWorker
	if sheetsService != nil {
		retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
		sheetsWorker = worker.NewUserSyncWorker(db, sheetsService, retryPolicy, &logger)
		go sheetsWorker.Start(ctx)
		subscribeFunnelEvents(ctx, eventBus, sheetsWorker, &logger)
	}

	if cfg.Monitoring.Enabled {
		apiServer := api.NewHTTPServer(cfg.Monitoring.Port, db, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	return startBot(ctx, cfg, db, stateService, sheetsWorker, eventBus, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := logging.WithComponent(baseLogger, "bot-main")

	return cfg, *logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

// initGoogleSheets возвращает nil, если синхронизация не настроена:
// бот полностью работоспособен и без нее.
func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.UsersSpreadSheetID == "" {
		logger.Info().Msg("Google Sheets не настроен, синхронизация отключена")
		return nil
	}

	sheetsSvc, err := google.NewSheetsService(cfg.Google.GoogleCredentialsFile, cfg.Google.UsersSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}

	if err := sheetsSvc.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("Google Sheets service initialized successfully")
	return sheetsSvc
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primaryRepo := repository.NewRedisStateRepository(redisClient)
	fallbackRepo := repository.NewMemoryStateRepository()
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)

	window := time.Duration(cfg.Bot.RateLimitWindow) * time.Second
	return redisClient, service.NewStateService(stateRepo, logger, cfg.Bot.RateLimitMessages, window)
}

// subscribeFunnelEvents подключает фоновую синхронизацию к событиям
// воронки: выдача доступа и доставка материалов меняют таблицу users.
func subscribeFunnelEvents(ctx context.Context, bus *events.EventBus, syncWorker *worker.UserSyncWorker, logger *zerolog.Logger) {
	handler := func(ev *events.Event) error {
		var payload events.UserEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}

		if err := syncWorker.EnqueueUserSync(ctx); err != nil {
			logger.Error().Err(err).Int64("user_id", payload.UserID).Msg("event bus: enqueue user sync")
		}
		return nil
	}

	bus.Subscribe(events.EventAccessGranted, handler)
	bus.Subscribe(events.EventContentDelivered, handler)
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	stateService *service.StateService,
	sheetsWorker *worker.UserSyncWorker,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	botWrapper := bot.NewBotWrapper(botAPI)
	tgService := service.NewTelegramService(botWrapper)

	sequencer := service.NewDelayedSequencer(logger)
	defer sequencer.Shutdown()

	deliveryPlan := service.NewDeliveryPlan(
		db, tgService, eventBus,
		cfg.Funnel.AssetPath,
		cfg.Funnel.BonusDelay(), cfg.Funnel.ContactDelay(),
		logger,
	)

	funnel := service.NewFunnelEngine(
		db, tgService, sequencer, eventBus,
		deliveryPlan.Steps, cfg.Telegram.ChannelID, logger,
	)

	broadcast := service.NewBroadcastDispatcher(
		db, tgService, eventBus,
		cfg.Telegram.AdminID, cfg.Broadcast.PaceInterval(), logger,
	)

	relay := service.NewReplyRelay(db, tgService, cfg.Telegram.AdminID, logger)
	userService := service.NewUserService(db, cfg.Telegram.AdminID, logger)
	metrics := bot.NewMetrics()

	telegramBot, err := bot.NewBot(
		tgService, cfg, funnel, broadcast, relay,
		userService, stateService, syncWorkerOrNil(sheetsWorker), eventBus, metrics, logger,
	)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания бота")
		return err
	}

	logger.Info().Msg("Бот запущен...")
	telegramBot.NotifyStartup()
	telegramBot.Start(ctx)
	telegramBot.NotifyShutdown()

	logger.Info().Msg("Shutdown complete.")
	return nil
}

// syncWorkerOrNil не дает типизированному nil-указателю превратиться в
// непустой интерфейс.
func syncWorkerOrNil(w *worker.UserSyncWorker) domain.SyncWorker {
	if w == nil {
		return nil
	}
	return w
}
