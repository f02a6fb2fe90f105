package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"funnelbot/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsService зеркалирует таблицу пользователей в Google Sheets.
type SheetsService struct {
	service      *sheets.Service
	usersSheetID string
}

func NewSheetsService(credentialsFile, usersSheetID string) (*SheetsService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:      srv,
		usersSheetID: usersSheetID,
	}, nil
}

// TestConnection проверяет доступ к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.usersSheetID, "Users!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// UpdateUsersSheet полностью перезаписывает лист пользователей.
func (s *SheetsService) UpdateUsersSheet(ctx context.Context, users []*models.User) error {
	var values [][]interface{}

	headers := []interface{}{
		"ID", "Telegram ID", "Username", "First Name", "Last Name",
		"Subscribed", "Received Content", "Created At", "Last Active",
	}
	values = append(values, headers)

	for _, user := range users {
		row := []interface{}{
			user.ID,
			user.TelegramID,
			user.Username,
			user.FirstName,
			user.LastName,
			user.IsSubscribed,
			user.HasReceivedContent,
			user.CreatedAt.Format("2006-01-02 15:04:05"),
			user.LastActive.Format("2006-01-02 15:04:05"),
		}
		values = append(values, row)
	}

	rangeData := fmt.Sprintf("Users!A1:I%d", len(values))
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := s.service.Spreadsheets.Values.Update(s.usersSheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()

	return err
}
