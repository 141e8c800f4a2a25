// Package userbot — клиент моста юзербота.
//
// MTProto-сессия юзербота живёт в отдельном sidecar-процессе («мост»),
// который выставляет маленький HTTP API: каталог подарков, баланс звёзд,
// статус сессии и отправку подарка. Бот потребляет этот API, не зная
// ничего про протокол и авторизацию сессии.
//
// Идемпотентные GET-запросы ходят через retryablehttp; отправка подарка —
// через обычный http.Client, потому что ретраями покупки управляет
// исполнитель со своей классификацией ошибок.
package userbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"giftsninja.ru/gifts-bot/internal/features/catalog"
	"giftsninja.ru/gifts-bot/internal/features/purchase"
)

// Client — HTTP-клиент моста юзербота.
type Client struct {
	baseURL string
	get     *retryablehttp.Client
	send    *http.Client
}

// NewClient создаёт клиент моста по базовому адресу.
func NewClient(baseURL string) *Client {
	get := retryablehttp.NewClient()
	get.RetryMax = 3
	get.HTTPClient.Timeout = 10 * time.Second
	get.Logger = nil

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		get:     get,
		send: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status — состояние сессии юзербота на мосте.
type Status struct {
	Authorized bool   `json:"authorized"`
	Username   string `json:"username"`
	Phone      string `json:"phone"`
}

// bridgeGift — подарок в формате моста.
type bridgeGift struct {
	ID            string `json:"id"`
	Price         int64  `json:"price"`
	Supply        int64  `json:"supply"`
	Left          int64  `json:"left"`
	StickerFileID string `json:"sticker_file_id"`
	Emoji         string `json:"emoji"`
	SoldOut       bool   `json:"sold_out"`
}

// getJSON выполняет GET и разбирает JSON-ответ в out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}

	resp, err := c.get.Do(req)
	if err != nil {
		return fmt.Errorf("запрос %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("мост ответил %d на %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("разбор ответа %s: %w", path, err)
	}
	return nil
}

// AvailableGifts возвращает каталог юзербота, прошедший фильтр.
// Распроданные позиции отбрасываются до фильтрации.
func (c *Client) AvailableGifts(ctx context.Context, f catalog.Filter) ([]catalog.Gift, error) {
	var payload struct {
		Gifts []bridgeGift `json:"gifts"`
	}
	if err := c.getJSON(ctx, "/gifts", &payload); err != nil {
		return nil, err
	}

	gifts := make([]catalog.Gift, 0, len(payload.Gifts))
	for _, g := range payload.Gifts {
		if g.SoldOut {
			continue
		}
		gifts = append(gifts, catalog.Gift{
			ID:            g.ID,
			Price:         g.Price,
			Supply:        g.Supply,
			Left:          g.Left,
			StickerFileID: g.StickerFileID,
			Emoji:         g.Emoji,
		})
	}

	filtered := f.Apply(gifts)
	catalog.SortByPriceDesc(filtered)
	return filtered, nil
}

// StarBalance возвращает баланс звёзд сессии юзербота.
func (c *Client) StarBalance(ctx context.Context) (int64, error) {
	var payload struct {
		Amount int64 `json:"amount"`
	}
	if err := c.getJSON(ctx, "/balance", &payload); err != nil {
		return 0, err
	}
	return payload.Amount, nil
}

// SessionStatus возвращает состояние сессии (для меню юзербота).
func (c *Client) SessionStatus(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.getJSON(ctx, "/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SendGift отправляет подарок через сессию юзербота.
// HTTP-статусы моста переводятся в классификацию исполнителя:
// 429 — флуд-контроль, 400/401/403 — перманентная ошибка,
// остальное — транзиент.
func (c *Client) SendGift(ctx context.Context, giftID string, userID int64, chatID string) error {
	body, err := json.Marshal(map[string]any{
		"gift_id": giftID,
		"user_id": userID,
		"chat_id": chatID,
	})
	if err != nil {
		return fmt.Errorf("кодирование запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gifts/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send.Do(req)
	if err != nil {
		return fmt.Errorf("отправка подарка через мост: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 5 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &purchase.FloodError{RetryAfter: retryAfter}

	case resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden:
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &purchase.PermanentError{
			Reason: fmt.Sprintf("мост ответил %d: %s", resp.StatusCode, e.Error),
		}

	default:
		return fmt.Errorf("мост ответил %d", resp.StatusCode)
	}
}
