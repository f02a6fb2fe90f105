package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"funnelbot/internal/domain"

	"github.com/rs/zerolog"
)

// stepTimeout ограничивает каждое действие последовательности.
const stepTimeout = 30 * time.Second

// DelayedSequencer выполняет отложенные шаги доставки по одному
// пользователю, не блокируя вызывающего. Реестр по user id не даёт
// запланировать вторую последовательность, пока жива первая.
type DelayedSequencer struct {
	logger *zerolog.Logger

	mu     sync.Mutex
	active map[int64]*sequence

	wg sync.WaitGroup
}

type sequence struct {
	cancel chan struct{}
	once   sync.Once
}

func (s *sequence) stop() {
	s.once.Do(func() { close(s.cancel) })
}

func NewDelayedSequencer(logger *zerolog.Logger) *DelayedSequencer {
	return &DelayedSequencer{
		logger: logger,
		active: make(map[int64]*sequence),
	}
}

// Schedule запускает шаги для пользователя. Каждый шаг срабатывает
// после своей задержки относительно предыдущего. Возвращает
// ErrAlreadyScheduled, если последовательность уже в пути.
func (s *DelayedSequencer) Schedule(userID int64, steps []domain.SequenceStep) error {
	if len(steps) == 0 {
		return errors.New("empty sequence")
	}

	s.mu.Lock()
	if _, ok := s.active[userID]; ok {
		s.mu.Unlock()
		return ErrAlreadyScheduled
	}
	seq := &sequence{cancel: make(chan struct{})}
	s.active[userID] = seq
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(userID, seq, steps)

	s.logger.Info().Int64("user_id", userID).Int("steps", len(steps)).Msg("Отложенная последовательность запланирована")
	return nil
}

func (s *DelayedSequencer) run(userID int64, seq *sequence, steps []domain.SequenceStep) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.active, userID)
		s.mu.Unlock()
	}()

	for _, step := range steps {
		timer := time.NewTimer(step.Delay)
		select {
		case <-seq.cancel:
			timer.Stop()
			s.logger.Info().Int64("user_id", userID).Str("step", step.Name).Msg("Последовательность отменена до шага")
			return
		case <-timer.C:
		}

		if err := s.runStep(step); err != nil {
			if errors.Is(err, ErrAssetMissing) {
				// Без материала продолжать нечего: флаг доставки не
				// выставлен, повторный /start пройдет воронку заново.
				s.logger.Error().Err(err).Int64("user_id", userID).Str("step", step.Name).Msg("Материал недоступен, последовательность прервана")
				return
			}
			// Шаги независимы: сбой одного не отменяет последующие.
			s.logger.Error().Err(err).Int64("user_id", userID).Str("step", step.Name).Msg("Ошибка шага последовательности")
			continue
		}

		s.logger.Info().Int64("user_id", userID).Str("step", step.Name).Msg("Шаг последовательности выполнен")
	}
}

func (s *DelayedSequencer) runStep(step domain.SequenceStep) error {
	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	defer cancel()
	return step.Run(ctx)
}

// Cancel останавливает последовательность пользователя. Уже
// сработавшие шаги не откатываются; оставшиеся не выполнятся.
func (s *DelayedSequencer) Cancel(userID int64) bool {
	s.mu.Lock()
	seq, ok := s.active[userID]
	s.mu.Unlock()

	if !ok {
		return false
	}
	seq.stop()
	return true
}

// Scheduled сообщает, есть ли у пользователя активная последовательность.
func (s *DelayedSequencer) Scheduled(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[userID]
	return ok
}

// Shutdown отменяет все последовательности и ждет завершения их горутин.
func (s *DelayedSequencer) Shutdown() {
	s.mu.Lock()
	for _, seq := range s.active {
		seq.stop()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
