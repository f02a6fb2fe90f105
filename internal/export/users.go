package export

import (
	"fmt"

	"funnelbot/internal/models"

	"github.com/xuri/excelize/v2"
)

const usersSheet = "Пользователи"

var userHeaders = []string{
	"Telegram ID", "Username", "Имя", "Подписан", "Получил файл", "Регистрация", "Последняя активность",
}

// BuildUsersWorkbook собирает Excel книгу со списком пользователей.
// Закрытие файла остается за вызывающим.
func BuildUsersWorkbook(users []*models.User) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(usersSheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for col, header := range userHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(usersSheet, cell, header)
		_ = f.SetCellStyle(usersSheet, cell, cell, headerStyle)
	}

	for i, user := range users {
		row := i + 2
		values := []interface{}{
			user.TelegramID,
			user.Username,
			user.FullName(),
			yesNo(user.IsSubscribed),
			yesNo(user.HasReceivedContent),
			user.CreatedAt.Format("02.01.2006 15:04"),
			user.LastActive.Format("02.01.2006 15:04"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(usersSheet, cell, value)
		}
	}

	_ = f.SetColWidth(usersSheet, "A", "B", 16)
	_ = f.SetColWidth(usersSheet, "C", "C", 25)
	_ = f.SetColWidth(usersSheet, "D", "G", 20)

	_ = f.DeleteSheet("Sheet1")

	return f, nil
}

func yesNo(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}
