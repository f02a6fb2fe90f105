package service

import (
	"context"
	"time"

	"funnelbot/internal/domain"
	"funnelbot/internal/models"

	"github.com/rs/zerolog"
)

// StateService прячет детали хранилища состояния за простым API
// для bot-слоя. При ошибке хранилища запрос пропускается.
type StateService struct {
	repo   domain.StateRepository
	logger *zerolog.Logger
	limit  int
	window time.Duration
}

func NewStateService(repo domain.StateRepository, logger *zerolog.Logger, limit int, window time.Duration) *StateService {
	if limit <= 0 {
		limit = models.RateLimitMessages
	}
	if window <= 0 {
		window = models.RateLimitWindow * time.Second
	}
	return &StateService{
		repo:   repo,
		logger: logger,
		limit:  limit,
		window: window,
	}
}

// AllowUpdate решает, обрабатывать ли очередное обновление пользователя.
func (s *StateService) AllowUpdate(ctx context.Context, userID int64) bool {
	allowed, err := s.repo.CheckRateLimit(ctx, userID, s.limit, s.window)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("Ошибка проверки rate limit, пропускаем запрос")
		return true
	}
	return allowed
}
