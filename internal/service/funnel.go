package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"funnelbot/internal/database"
	"funnelbot/internal/domain"
	"funnelbot/internal/events"
	"funnelbot/internal/models"

	"github.com/rs/zerolog"
)

// Outcome is the decision of the funnel engine for one entry or recheck.
type Outcome int

const (
	// OutcomeAlreadyDelivered значит, что пользователь уже получил материалы.
	OutcomeAlreadyDelivered Outcome = iota
	// OutcomeGrantAccess: подписка подтверждена, материалы выдаются,
	// отложенная последовательность запланирована.
	OutcomeGrantAccess
	// OutcomePromptSubscription значит, что пользователь не подписан.
	OutcomePromptSubscription
	// OutcomeCheckUnavailable: проверка подписки недоступна, доступ не выдан, но
	// это не подтвержденный отказ.
	OutcomeCheckUnavailable
	// OutcomeDeliveryPending: доступ уже выдан ранее, последовательность
	// еще выполняется; повторная выдача не производится.
	OutcomeDeliveryPending
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyDelivered:
		return "already_delivered"
	case OutcomeGrantAccess:
		return "grant_access"
	case OutcomePromptSubscription:
		return "prompt_subscription"
	case OutcomeCheckUnavailable:
		return "check_unavailable"
	case OutcomeDeliveryPending:
		return "delivery_pending"
	}
	return "unknown"
}

// StepsFactory builds the delayed delivery sequence for a user at the
// moment access is granted.
type StepsFactory func(userID int64) []domain.SequenceStep

// FunnelEngine решает, что делать с пользователем на входе в воронку:
// выдать материалы, попросить подписаться или ответить, что всё уже
// выдано. Критическая секция проверка→выдача→планирование защищена
// per-user мьютексом: конкурентные перепроверки не могут выдать доступ
// дважды.
type FunnelEngine struct {
	repo      domain.UserRepository
	checker   domain.MembershipChecker
	sequencer domain.Sequencer
	eventBus  domain.EventPublisher
	steps     StepsFactory
	channelID string
	logger    *zerolog.Logger

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func NewFunnelEngine(
	repo domain.UserRepository,
	checker domain.MembershipChecker,
	sequencer domain.Sequencer,
	eventBus domain.EventPublisher,
	steps StepsFactory,
	channelID string,
	logger *zerolog.Logger,
) *FunnelEngine {
	return &FunnelEngine{
		repo:      repo,
		checker:   checker,
		sequencer: sequencer,
		eventBus:  eventBus,
		steps:     steps,
		channelID: channelID,
		logger:    logger,
		locks:     make(map[int64]*sync.Mutex),
	}
}

// OnEntry обрабатывает первый контакт (команду /start): обновляет
// профиль и решает исход воронки.
func (e *FunnelEngine) OnEntry(ctx context.Context, userID int64, identity models.Identity) (Outcome, error) {
	if err := e.repo.UpsertUser(ctx, userID, identity); err != nil {
		return 0, fmt.Errorf("upsert user %d: %w", userID, err)
	}

	return e.decide(ctx, userID)
}

// OnRecheck обрабатывает повторную проверку подписки (кнопка
// "Я подписался"). Идемпотентна при частых повторных нажатиях.
func (e *FunnelEngine) OnRecheck(ctx context.Context, userID int64) (Outcome, error) {
	return e.decide(ctx, userID)
}

func (e *FunnelEngine) decide(ctx context.Context, userID int64) (Outcome, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := e.repo.GetUserByTelegramID(ctx, userID)
	if err != nil {
		// Отсутствие строки не блокирует воронку, сбой хранилища блокирует.
		if !errors.Is(err, database.ErrUserNotFound) {
			return 0, fmt.Errorf("get user %d: %w", userID, err)
		}
		user = nil
	}

	if user != nil && user.HasReceivedContent {
		// Терминальное состояние: дальше только чтения, так что запись
		// в реестре мьютексов больше не нужна.
		defer e.forgetLock(userID)
		return OutcomeAlreadyDelivered, nil
	}

	if user != nil && user.IsSubscribed && e.sequencer.Scheduled(userID) {
		// Доступ уже выдан конкурентным вызовом, последовательность в пути.
		return OutcomeDeliveryPending, nil
	}

	status, err := e.checker.GetMembership(ctx, e.channelID, userID)
	if err != nil {
		// Сбой проверки не равен подтвержденному "не подписан":
		// ложный отказ блокирует легитимного пользователя.
		e.logger.Warn().Err(err).Int64("user_id", userID).Msg("Проверка подписки недоступна")
		return OutcomeCheckUnavailable, nil
	}

	if !models.IsSubscribedStatus(status) {
		e.logger.Info().Int64("user_id", userID).Str("status", status).Msg("Пользователь не подписан на канал")
		return OutcomePromptSubscription, nil
	}

	if err := e.repo.SetSubscribed(ctx, userID, true); err != nil {
		return 0, fmt.Errorf("set subscribed %d: %w", userID, err)
	}

	if err := e.sequencer.Schedule(userID, e.steps(userID)); err != nil {
		if errors.Is(err, ErrAlreadyScheduled) {
			return OutcomeDeliveryPending, nil
		}
		return 0, fmt.Errorf("schedule sequence %d: %w", userID, err)
	}

	e.logger.Info().Int64("user_id", userID).Str("status", status).Msg("Подписка подтверждена, выдаём материалы")

	if e.eventBus != nil {
		_ = e.eventBus.PublishJSON(events.EventAccessGranted, events.UserEventPayload{UserID: userID})
	}

	return OutcomeGrantAccess, nil
}

func (e *FunnelEngine) forgetLock(userID int64) {
	e.locksMu.Lock()
	delete(e.locks, userID)
	e.locksMu.Unlock()
}

func (e *FunnelEngine) userLock(userID int64) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	lock, ok := e.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[userID] = lock
	}
	return lock
}
