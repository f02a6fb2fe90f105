package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"funnelbot/internal/models"
)

// UpsertUser создает пользователя или обновляет отображаемые поля.
// Флаги is_subscribed и has_received_content при повторной вставке не
// трогаются: они меняются только явными переходами воронки.
func (db *DB) UpsertUser(ctx context.Context, telegramID int64, identity models.Identity) error {
	query := `INSERT INTO users (
				telegram_id, username, first_name, last_name,
				created_at, last_active
			) VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(telegram_id) DO UPDATE SET
                username = excluded.username,
                first_name = excluded.first_name,
                last_name = excluded.last_name,
                last_active = excluded.last_active`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		telegramID,
		identity.Username,
		identity.FirstName,
		identity.LastName,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// SetSubscribed обновляет статус подписки
func (db *DB) SetSubscribed(ctx context.Context, telegramID int64, subscribed bool) error {
	query := `UPDATE users SET is_subscribed = ?, last_active = ? WHERE telegram_id = ?`
	if _, err := db.ExecContext(ctx, query, subscribed, time.Now(), telegramID); err != nil {
		return fmt.Errorf("failed to set subscribed: %w", err)
	}
	return nil
}

// SetContentReceived отмечает, что пользователь получил материалы
func (db *DB) SetContentReceived(ctx context.Context, telegramID int64) error {
	query := `UPDATE users SET has_received_content = 1, last_active = ? WHERE telegram_id = ?`
	if _, err := db.ExecContext(ctx, query, time.Now(), telegramID); err != nil {
		return fmt.Errorf("failed to set content received: %w", err)
	}
	return nil
}

// GetUserByTelegramID возвращает пользователя по Telegram ID.
// Отсутствие строки возвращается как ErrUserNotFound, а не как сбой хранилища.
func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT id, telegram_id, username, first_name, last_name,
	                 is_subscribed, has_received_content, created_at, last_active
              FROM users WHERE telegram_id = ?`

	var user models.User
	err := db.QueryRowContext(ctx, query, telegramID).Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.FirstName, &user.LastName,
		&user.IsSubscribed, &user.HasReceivedContent, &user.CreatedAt, &user.LastActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ListUserIDs возвращает все telegram_id для рассылки
func (db *DB) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT telegram_id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	return ids, nil
}

// ListUsers возвращает всех пользователей, новые первыми
func (db *DB) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT id, telegram_id, username, first_name, last_name,
	                 is_subscribed, has_received_content, created_at, last_active
              FROM users ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		err := rows.Scan(
			&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
			&u.IsSubscribed, &u.HasReceivedContent, &u.CreatedAt, &u.LastActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
