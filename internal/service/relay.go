package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"funnelbot/internal/domain"

	"github.com/rs/zerolog"
)

// markerPattern описывает грамматику обратной ссылки: свободный текст,
// содержащий токен вида "[ID: <digits>]" (пробел после двоеточия
// необязателен). Используется первое вхождение.
var markerPattern = regexp.MustCompile(`\[ID:\s*(\d+)\]`)

// ParseUserID извлекает идентификатор пользователя из текста-маркера.
// Возвращает ErrMalformedReference, если корректного токена нет.
func ParseUserID(marker string) (int64, error) {
	match := markerPattern.FindStringSubmatch(marker)
	if match == nil {
		return 0, ErrMalformedReference
	}

	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, ErrMalformedReference
	}
	return id, nil
}

// ReplyRelay доставляет ответ администратора пользователю, на чье
// пересланное сообщение администратор ответил.
type ReplyRelay struct {
	repo     domain.UserRepository
	notifier domain.Notifier
	adminID  int64
	logger   *zerolog.Logger
}

func NewReplyRelay(repo domain.UserRepository, notifier domain.Notifier, adminID int64, logger *zerolog.Logger) *ReplyRelay {
	return &ReplyRelay{
		repo:     repo,
		notifier: notifier,
		adminID:  adminID,
		logger:   logger,
	}
}

// Relay отправляет text пользователю, чей идентификатор зашит в marker,
// и пишет строку в журнал сообщений. Возвращает идентификатор адресата.
func (r *ReplyRelay) Relay(ctx context.Context, callerID int64, marker, text string) (int64, error) {
	if callerID != r.adminID {
		return 0, ErrNotAdmin
	}

	targetID, err := ParseUserID(marker)
	if err != nil {
		return 0, err
	}

	if err := r.notifier.SendText(targetID, text); err != nil {
		// Журнал не пишем: записи соответствуют только доставленным ответам.
		return targetID, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	if err := r.repo.AppendMessage(ctx, targetID, text, true); err != nil {
		r.logger.Error().Err(err).Int64("user_id", targetID).Msg("Ответ доставлен, но не записан в журнал")
		return targetID, err
	}

	r.logger.Info().Int64("user_id", targetID).Msg("Ответ администратора доставлен")
	return targetID, nil
}
