// Package accounts — balance_bot.go получает баланс звёзд основного бота
// через Bot API. Метода getMyStarBalance нет в биндинге tgbotapi,
// поэтому запрос выполняется через MakeRequest.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotBalanceSource читает баланс звёзд бота из Bot API.
type BotBalanceSource struct {
	api *tgbotapi.BotAPI
}

// NewBotBalanceSource создаёт источник баланса основного бота.
func NewBotBalanceSource(api *tgbotapi.BotAPI) *BotBalanceSource {
	return &BotBalanceSource{api: api}
}

// StarBalance возвращает текущий баланс звёзд бота.
func (s *BotBalanceSource) StarBalance(ctx context.Context) (int64, error) {
	resp, err := s.api.MakeRequest("getMyStarBalance", nil)
	if err != nil {
		return 0, fmt.Errorf("ошибка запроса баланса: %w", err)
	}

	var amount struct {
		Amount int64 `json:"amount"`
	}
	if err := json.Unmarshal(resp.Result, &amount); err != nil {
		return 0, fmt.Errorf("ошибка разбора ответа getMyStarBalance: %w", err)
	}
	return amount.Amount, nil
}
