// Package purchase — sender_bot.go отправляет подарки через Bot API.
// Метод sendGift выполняется через MakeRequest, ошибки Telegram
// переводятся в классификацию исполнителя.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotSender отправляет подарки от имени основного бота.
type BotSender struct {
	api *tgbotapi.BotAPI
}

// NewBotSender создаёт отправителя через Bot API.
func NewBotSender(api *tgbotapi.BotAPI) *BotSender {
	return &BotSender{api: api}
}

// SendGift выполняет sendGift. Ровно один из userID/chatID должен быть задан —
// это гарантирует исполнитель.
func (s *BotSender) SendGift(ctx context.Context, giftID string, userID int64, chatID string) error {
	params := make(tgbotapi.Params)
	params.AddNonEmpty("gift_id", giftID)
	params.AddNonZero64("user_id", userID)
	params.AddNonEmpty("chat_id", chatID)

	_, err := s.api.MakeRequest("sendGift", params)
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.RetryAfter > 0 {
			return &FloodError{RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
		}
		switch apiErr.Code {
		case 400, 401, 403:
			return &PermanentError{Reason: apiErr.Message, Err: err}
		}
	}

	// Сетевые и прочие ошибки считаем транзиентными
	return fmt.Errorf("ошибка sendGift: %w", err)
}
