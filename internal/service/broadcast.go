package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"funnelbot/internal/domain"
	"funnelbot/internal/events"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Summary is the result of one broadcast run.
type Summary struct {
	Sent   int
	Failed int
}

// BroadcastDispatcher рассылает один текст всем известным пользователям.
// Список получателей фиксируется на момент запуска; сбой по одному
// получателю не прерывает цикл. Темп отправки ограничен limiter'ом,
// чтобы не упереться в лимиты Telegram.
type BroadcastDispatcher struct {
	repo     domain.UserRepository
	notifier domain.Notifier
	eventBus domain.EventPublisher
	adminID  int64
	pace     time.Duration
	logger   *zerolog.Logger

	running atomic.Bool
}

func NewBroadcastDispatcher(
	repo domain.UserRepository,
	notifier domain.Notifier,
	eventBus domain.EventPublisher,
	adminID int64,
	pace time.Duration,
	logger *zerolog.Logger,
) *BroadcastDispatcher {
	if pace <= 0 {
		pace = 50 * time.Millisecond
	}
	return &BroadcastDispatcher{
		repo:     repo,
		notifier: notifier,
		eventBus: eventBus,
		adminID:  adminID,
		pace:     pace,
		logger:   logger,
	}
}

// Run выполняет рассылку от имени callerID. Возвращает итог даже при
// частичных сбоях, ErrNoRecipients при пустой базе.
func (d *BroadcastDispatcher) Run(ctx context.Context, callerID int64, text string) (Summary, error) {
	if callerID != d.adminID {
		return Summary{}, ErrNotAdmin
	}

	if !d.running.CompareAndSwap(false, true) {
		return Summary{}, ErrBroadcastRunning
	}
	defer d.running.Store(false)

	targets, err := d.repo.ListUserIDs(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("snapshot recipients: %w", err)
	}

	if len(targets) == 0 {
		return Summary{}, ErrNoRecipients
	}

	jobID := uuid.New().String()
	start := time.Now()
	logger := d.logger.With().Str("job_id", jobID).Logger()
	logger.Info().Int("targets", len(targets)).Msg("Рассылка запущена")

	// Фиксированный темп; limiter заменяем на адаптивный, если канал
	// начнет сигналить о троттлинге.
	limiter := rate.NewLimiter(rate.Every(d.pace), 1)

	var summary Summary
	for _, target := range targets {
		if err := limiter.Wait(ctx); err != nil {
			logger.Warn().Err(err).Int("sent", summary.Sent).Int("failed", summary.Failed).Msg("Рассылка прервана")
			return summary, err
		}

		if err := d.notifier.SendText(target, text); err != nil {
			summary.Failed++
			logger.Error().Err(err).Int64("recipient", target).Msg("Не удалось отправить сообщение получателю")
			continue
		}
		summary.Sent++
	}

	logger.Info().
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Dur("duration", time.Since(start)).
		Msg("Рассылка завершена")

	if d.eventBus != nil {
		_ = d.eventBus.PublishJSON(events.EventBroadcastFinished, events.BroadcastEventPayload{
			JobID:  jobID,
			Sent:   summary.Sent,
			Failed: summary.Failed,
		})
	}

	return summary, nil
}
