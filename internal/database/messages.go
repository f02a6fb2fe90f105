package database

import (
	"context"
	"fmt"
	"time"

	"funnelbot/internal/models"
)

// AppendMessage добавляет запись в журнал сообщений
func (db *DB) AppendMessage(ctx context.Context, telegramID int64, text string, fromAdmin bool) error {
	query := `INSERT INTO messages (user_id, body, from_admin, created_at) VALUES (?, ?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, telegramID, text, fromAdmin, time.Now()); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// GetUserMessages возвращает последние сообщения пользователя
func (db *DB) GetUserMessages(ctx context.Context, telegramID int64, limit int) ([]*models.Message, error) {
	query := `SELECT id, user_id, body, from_admin, created_at
              FROM messages WHERE user_id = ?
              ORDER BY created_at DESC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get user messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Text, &m.FromAdmin, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get user messages: %w", err)
	}
	return messages, nil
}
