// Package catalog — bot_source.go получает каталог подарков основного бота
// через Bot API (getAvailableGifts). Биндинг tgbotapi не знает про подарки,
// поэтому ответ разбирается вручную из MakeRequest.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotSource — синхронный источник каталога основного бота.
// Кэша нет: движок запрашивает его на каждом цикле.
type BotSource struct {
	api *tgbotapi.BotAPI
}

// NewBotSource создаёт источник каталога основного бота.
func NewBotSource(api *tgbotapi.BotAPI) *BotSource {
	return &BotSource{api: api}
}

// apiGift — подарок в формате Bot API.
type apiGift struct {
	ID      string `json:"id"`
	Sticker struct {
		FileID string `json:"file_id"`
		Emoji  string `json:"emoji"`
	} `json:"sticker"`
	StarCount      int64 `json:"star_count"`
	TotalCount     int64 `json:"total_count"`
	RemainingCount int64 `json:"remaining_count"`
}

// AvailableGifts возвращает отфильтрованный список подарков,
// отсортированный по убыванию цены.
func (s *BotSource) AvailableGifts(ctx context.Context, f Filter) ([]Gift, error) {
	resp, err := s.api.MakeRequest("getAvailableGifts", nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса каталога: %w", err)
	}

	var payload struct {
		Gifts []apiGift `json:"gifts"`
	}
	if err := json.Unmarshal(resp.Result, &payload); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа getAvailableGifts: %w", err)
	}

	gifts := make([]Gift, 0, len(payload.Gifts))
	for _, g := range payload.Gifts {
		gifts = append(gifts, Gift{
			ID:            g.ID,
			Price:         g.StarCount,
			Supply:        g.TotalCount,
			Left:          g.RemainingCount,
			StickerFileID: g.Sticker.FileID,
			Emoji:         g.Sticker.Emoji,
		})
	}

	filtered := f.Apply(gifts)
	SortByPriceDesc(filtered)
	return filtered, nil
}
