package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"funnelbot/internal/export"
)

// exportUsersToExcel выгружает пользователей в xlsx файл и возвращает
// путь к нему.
func (b *Bot) exportUsersToExcel(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.config.Exports.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	users, err := b.userService.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting users: %v", err)
	}

	f, err := export.BuildUsersWorkbook(users)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("users_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(b.config.Exports.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	b.logger.Info().Str("file_path", filePath).Int("users", len(users)).Msg("Excel file created")
	return filePath, nil
}
