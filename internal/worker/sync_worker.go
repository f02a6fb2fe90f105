package worker

import (
	"context"
	"errors"
	"time"

	"funnelbot/internal/domain"
	"funnelbot/internal/models"

	"github.com/rs/zerolog"
)

// UserSyncWorker фоновым потоком зеркалирует таблицу пользователей в
// Google Sheets. Запросы на синхронизацию идемпотентны: пока в очереди
// лежит невзятый запрос, новые схлопываются с ним.
type UserSyncWorker struct {
	repo   domain.UserRepository
	sheets domain.SheetsWriter
	retry  RetryPolicy
	queue  chan struct{}
	logger *zerolog.Logger
}

func NewUserSyncWorker(repo domain.UserRepository, sheets domain.SheetsWriter, retry RetryPolicy, logger *zerolog.Logger) *UserSyncWorker {
	return &UserSyncWorker{
		repo:   repo,
		sheets: sheets,
		retry:  retry.withDefaults(),
		queue:  make(chan struct{}, 1),
		logger: logger,
	}
}

// EnqueueUserSync ставит синхронизацию в очередь, не блокируя вызывающего.
func (w *UserSyncWorker) EnqueueUserSync(ctx context.Context) error {
	if w.sheets == nil {
		return errors.New("sheets service is not configured")
	}

	select {
	case w.queue <- struct{}{}:
	default:
		// Синхронизация уже в очереди; результат будет тот же.
	}
	return nil
}

// Start обрабатывает очередь до отмены контекста.
func (w *UserSyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Воркер синхронизации пользователей запущен")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Воркер синхронизации остановлен")
			return
		case <-w.queue:
			w.syncWithRetry(ctx)
		}
	}
}

func (w *UserSyncWorker) syncWithRetry(ctx context.Context) {
	for attempt := 1; attempt <= w.retry.MaxRetries; attempt++ {
		err := w.syncOnce(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		delay := w.retry.NextDelay(attempt)
		w.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("Синхронизация не удалась")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
	w.logger.Error().Int("max_retries", w.retry.MaxRetries).Msg("Синхронизация пользователей не удалась, попытки исчерпаны")
}

func (w *UserSyncWorker) syncOnce(ctx context.Context) error {
	syncCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	users, err := w.repo.ListUsers(syncCtx)
	if err != nil {
		return err
	}
	if users == nil {
		users = []*models.User{}
	}

	if err := w.sheets.UpdateUsersSheet(syncCtx, users); err != nil {
		return err
	}

	w.logger.Info().Int("users", len(users)).Msg("Пользователи синхронизированы в Google Sheets")
	return nil
}
