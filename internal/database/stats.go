package database

import (
	"context"
	"fmt"

	"funnelbot/internal/models"
)

// GetStats возвращает агрегированные счетчики воронки
func (db *DB) GetStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}

	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM users`, &stats.TotalUsers},
		{`SELECT COUNT(*) FROM users WHERE is_subscribed = 1`, &stats.SubscribedUsers},
		{`SELECT COUNT(*) FROM users WHERE has_received_content = 1`, &stats.ReceivedContent},
		{`SELECT COUNT(*) FROM messages`, &stats.TotalMessages},
	}

	for _, q := range queries {
		if err := db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("failed to get stats: %w", err)
		}
	}

	return stats, nil
}
