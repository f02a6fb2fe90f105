package service

import (
	"context"

	"funnelbot/internal/domain"
	"funnelbot/internal/models"

	"github.com/rs/zerolog"
)

// UserService отвечает за профили пользователей и права доступа.
type UserService struct {
	repo    domain.UserRepository
	adminID int64
	logger  *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, adminID int64, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:    repo,
		adminID: adminID,
		logger:  logger,
	}
}

// IsAdmin проверяет, принадлежит ли идентификатор администратору бота.
func (s *UserService) IsAdmin(userID int64) bool {
	return userID == s.adminID
}

// Touch обновляет профиль пользователя по данным из обновления.
func (s *UserService) Touch(ctx context.Context, telegramID int64, identity models.Identity) error {
	return s.repo.UpsertUser(ctx, telegramID, identity)
}

func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.repo.GetUserByTelegramID(ctx, telegramID)
}

// ListRecent возвращает последних зарегистрированных пользователей.
func (s *UserService) ListRecent(ctx context.Context, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = models.RecentUsersLimit
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *UserService) ListAll(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *UserService) GetStats(ctx context.Context) (*models.Stats, error) {
	return s.repo.GetStats(ctx)
}

// LogIncoming пишет входящее сообщение пользователя в журнал переписки.
func (s *UserService) LogIncoming(ctx context.Context, telegramID int64, text string) {
	if err := s.repo.AppendMessage(ctx, telegramID, text, false); err != nil {
		s.logger.Error().Err(err).Int64("user_id", telegramID).Msg("Не удалось записать сообщение пользователя")
	}
}
