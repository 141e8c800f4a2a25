// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: форматирование звёзд и чисел, отображение получателя,
// работа со временем.
package common

import (
	"fmt"
	"time"
)

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Рекурсивно добавляем разделители
	rest := n / 1000
	last := n % 1000

	if rest > 0 {
		return fmt.Sprintf("%s %03d", FormatNumber(rest), last)
	}
	return fmt.Sprintf("%d", last)
}

// FormatStars форматирует сумму в звёздах.
// Пример: FormatStars(12345) → "12 345 ★"
func FormatStars(n int64) string {
	return FormatNumber(n) + " ★"
}

// FormatTargetDisplay возвращает человекочитаемое описание получателя подарков.
//
// Варианты:
//   - получатель совпадает с владельцем → "себе (ID: ...)"
//   - указан @канал → "@channel"
//   - указан user_id → "пользователь (ID: ...)"
//   - ничего не указано → "не указан"
func FormatTargetDisplay(targetUserID *int64, targetChatID *string, ownerID int64) string {
	if targetUserID != nil && *targetUserID == ownerID {
		return fmt.Sprintf("себе (ID: %d)", *targetUserID)
	}
	if targetChatID != nil && *targetChatID != "" {
		return *targetChatID
	}
	if targetUserID != nil {
		return fmt.Sprintf("пользователь (ID: %d)", *targetUserID)
	}
	return "не указан"
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения времени покупок в логе.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("02.01.2006 15:04")
}

// Truncate обрезает строку до n рун, добавляя многоточие.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
