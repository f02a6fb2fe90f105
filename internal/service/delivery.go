package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"funnelbot/internal/domain"
	"funnelbot/internal/events"

	"github.com/rs/zerolog"
)

const (
	bonusCaption = "А это бонусный материал - чеклист с вопросами для ИИ.\n\n" +
		"Поможет подробно обсудить твой проект и заранее разобраться во всех важных моментах."

	contactText = "📩 Хочешь обсудить проект или заказать разработку?\n\n" +
		"Напиши мне:\n" +
		"- Здесь (в боте)\n" +
		"- Напрямую: @kowalski_inga"
)

// DeliveryPlan строит отложенную последовательность после выдачи доступа:
// бонусный документ, затем контактное сообщение. Флаг получения материалов
// выставляется только после успешной отправки документа.
type DeliveryPlan struct {
	repo         domain.UserRepository
	notifier     domain.Notifier
	eventBus     domain.EventPublisher
	assetPath    string
	bonusDelay   time.Duration
	contactDelay time.Duration
	logger       *zerolog.Logger
}

func NewDeliveryPlan(
	repo domain.UserRepository,
	notifier domain.Notifier,
	eventBus domain.EventPublisher,
	assetPath string,
	bonusDelay, contactDelay time.Duration,
	logger *zerolog.Logger,
) *DeliveryPlan {
	return &DeliveryPlan{
		repo:         repo,
		notifier:     notifier,
		eventBus:     eventBus,
		assetPath:    assetPath,
		bonusDelay:   bonusDelay,
		contactDelay: contactDelay,
		logger:       logger,
	}
}

// Steps возвращает последовательность для пользователя. Задержки каждого
// шага отсчитываются от предыдущего.
func (p *DeliveryPlan) Steps(userID int64) []domain.SequenceStep {
	return []domain.SequenceStep{
		{
			Name:  "bonus_document",
			Delay: p.bonusDelay,
			Run: func(ctx context.Context) error {
				return p.sendBonus(ctx, userID)
			},
		},
		{
			Name:  "contact_prompt",
			Delay: p.contactDelay,
			Run: func(ctx context.Context) error {
				return p.notifier.SendText(userID, contactText)
			},
		},
	}
}

func (p *DeliveryPlan) sendBonus(ctx context.Context, userID int64) error {
	if _, err := os.Stat(p.assetPath); err != nil {
		return fmt.Errorf("%w: %s", ErrAssetMissing, p.assetPath)
	}

	if err := p.notifier.SendDocument(userID, p.assetPath, bonusCaption); err != nil {
		return fmt.Errorf("send bonus document: %w", err)
	}

	// Флаг только после фактической доставки: при сбое пользователь
	// сможет получить материалы повторным заходом в воронку.
	if err := p.repo.SetContentReceived(ctx, userID); err != nil {
		p.logger.Error().Err(err).Int64("user_id", userID).Msg("Материалы доставлены, но флаг не сохранен")
		return err
	}

	if p.eventBus != nil {
		_ = p.eventBus.PublishJSON(events.EventContentDelivered, events.UserEventPayload{UserID: userID})
	}

	p.logger.Info().Int64("user_id", userID).Msg("Бонусный материал доставлен")
	return nil
}
