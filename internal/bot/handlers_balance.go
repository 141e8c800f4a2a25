// Package bot — handlers_balance.go обрабатывает пополнение и возврат звёзд.
//
// Пополнение идёт через Telegram Invoice в валюте XTR. Возврат — методом
// refundStarPayment по ID транзакции; /withdraw_all подбирает жадно
// комбинацию депозитов, чтобы вывести максимум с текущего баланса.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/common"
)

// maxDeposit — ограничение Telegram на один инвойс в звёздах.
const maxDeposit = 1_000_000

// handleDepositMenu запрашивает сумму пополнения.
func (b *Bot) handleDepositMenu(query *tgbotapi.CallbackQuery) {
	s := b.wizard.get(query.From.ID)
	s.step = stepDepositAmount

	b.answerCallback(query.ID, "")
	b.sendMessage(query.Message.Chat.ID,
		"💰 Введите <b>сумму пополнения</b> в звёздах:\n\n/cancel — отмена")
}

// handleDepositAmountInput обрабатывает введённую сумму и шлёт инвойс.
func (b *Bot) handleDepositAmountInput(message *tgbotapi.Message) {
	amount, err := strconv.ParseInt(strings.TrimSpace(message.Text), 10, 64)
	if err != nil || amount <= 0 || amount > maxDeposit {
		b.sendMessage(message.Chat.ID,
			fmt.Sprintf("🚫 Введите целое число от 1 до %s.\n\n/cancel — отмена", common.FormatNumber(maxDeposit)))
		return
	}

	b.wizard.Clear(message.From.ID)

	invoice := tgbotapi.NewInvoice(
		message.Chat.ID,
		"Пополнение баланса",
		fmt.Sprintf("Пополнение баланса бота на %s", common.FormatStars(amount)),
		"stars_deposit",
		"",    // звёзды не требуют provider token
		"deposit",
		"XTR",
		[]tgbotapi.LabeledPrice{{Label: "XTR", Amount: int(amount)}},
	)
	invoice.SuggestedTipAmounts = []int{}
	if _, err := b.api.Send(invoice); err != nil {
		log.WithError(err).Error("Ошибка отправки инвойса")
		b.sendMessage(message.Chat.ID, "🚫 Не удалось выставить счёт, попробуйте ещё раз.")
	}
}

// handleSuccessfulPayment фиксирует успешное пополнение.
func (b *Bot) handleSuccessfulPayment(ctx context.Context, message *tgbotapi.Message) {
	payment := message.SuccessfulPayment
	log.WithFields(log.Fields{
		"amount":    payment.TotalAmount,
		"charge_id": payment.TelegramPaymentChargeID,
	}).Info("Баланс пополнен")

	b.sendMessage(message.Chat.ID, "✅ Баланс успешно пополнен.")

	if _, err := b.accounts.RefreshBalances(ctx, b.cfg.OwnerUserID); err != nil {
		log.WithError(err).Warn("Не удалось сверить балансы после пополнения")
	}
	b.updateMenu(ctx, message.Chat.ID)
}

// handleRefundMenu запрашивает ID транзакции для возврата.
func (b *Bot) handleRefundMenu(query *tgbotapi.CallbackQuery) {
	s := b.wizard.get(query.From.ID)
	s.step = stepRefundID

	b.answerCallback(query.ID, "")
	b.sendMessage(query.Message.Chat.ID,
		"↩️ Введите <b>ID транзакции</b> для возврата звёзд.\n\n"+
			"/withdraw_all — вывести весь баланс.\n"+
			"/refund <code>[user_id]</code> <code>[id транзакции]</code> — вернуть звёзды другому пользователю.\n\n"+
			"🚫 Вывести звёзды юзербота через бота нельзя.\n\n"+
			"/cancel — отмена")
}

// handleRefundIDInput возвращает звёзды по введённому ID транзакции.
func (b *Bot) handleRefundIDInput(ctx context.Context, message *tgbotapi.Message) {
	chargeID := strings.TrimSpace(message.Text)
	b.wizard.Clear(message.From.ID)

	if err := b.refundStarPayment(b.cfg.OwnerUserID, chargeID); err != nil {
		b.sendMessage(message.Chat.ID, fmt.Sprintf("🚫 Ошибка возврата:\n<code>%s</code>", err))
		return
	}

	b.sendMessage(message.Chat.ID, "✅ Возврат выполнен.")
	if _, err := b.accounts.RefreshBalances(ctx, b.cfg.OwnerUserID); err != nil {
		log.WithError(err).Warn("Не удалось сверить балансы после возврата")
	}
	b.updateMenu(ctx, message.Chat.ID)
}

// handleRefundCommand — /refund [user_id] [id транзакции].
func (b *Bot) handleRefundCommand(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.sendMessage(chatID, "🚫 Формат: /refund <code>[user_id]</code> <code>[id транзакции]</code>")
		return
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.sendMessage(chatID, "🚫 user_id должен быть числом.")
		return
	}

	if err := b.refundStarPayment(userID, args[1]); err != nil {
		b.sendMessage(chatID, fmt.Sprintf("🚫 Ошибка возврата:\n<code>%s</code>", err))
		return
	}

	b.sendMessage(chatID, "✅ Возврат выполнен.")
	if _, err := b.accounts.RefreshBalances(ctx, b.cfg.OwnerUserID); err != nil {
		log.WithError(err).Warn("Не удалось сверить балансы после возврата")
	}
}

// starTransaction — минимальный срез ответа getStarTransactions.
type starTransaction struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Source *struct {
		User *struct {
			ID int64 `json:"id"`
		} `json:"user"`
	} `json:"source"`
}

// handleWithdrawAll возвращает максимум звёзд с баланса бота.
//
// Возврат в Telegram возможен только целыми депозитами, поэтому жадно
// набираем невозвращённые депозиты по убыванию суммы, пока хватает баланса.
func (b *Bot) handleWithdrawAll(ctx context.Context, chatID int64) {
	balance, err := b.accounts.RefreshBalances(ctx, b.cfg.OwnerUserID)
	if err != nil {
		b.sendMessage(chatID, "🚫 Не удалось получить баланс, попробуйте позже.")
		return
	}
	if balance <= 0 {
		b.sendMessage(chatID, "💰 Баланс пуст, выводить нечего.")
		return
	}

	txns, err := b.starTransactions()
	if err != nil {
		log.WithError(err).Error("Ошибка получения списка транзакций")
		b.sendMessage(chatID, "🚫 Не удалось получить список транзакций.")
		return
	}

	// Депозиты — транзакции с источником-пользователем; уже возвращённые
	// встречаются в списке второй раз без источника
	refunded := make(map[string]bool)
	var deposits []starTransaction
	for _, t := range txns {
		if t.Source == nil {
			refunded[t.ID] = true
		}
	}
	for _, t := range txns {
		if t.Source != nil && t.Source.User != nil && !refunded[t.ID] {
			deposits = append(deposits, t)
		}
	}

	sort.Slice(deposits, func(i, j int) bool { return deposits[i].Amount > deposits[j].Amount })

	var total int64
	var count int
	for _, t := range deposits {
		if total+t.Amount > balance {
			continue
		}
		if err := b.refundStarPayment(t.Source.User.ID, t.ID); err != nil {
			log.WithError(err).WithField("txn_id", t.ID).Warn("Ошибка возврата депозита")
			continue
		}
		total += t.Amount
		count++
	}

	if count == 0 {
		b.sendMessage(chatID, "🚫 Не нашлось депозитов, которые можно вернуть с текущего баланса.")
		return
	}

	left := balance - total
	text := fmt.Sprintf("✅ Возвращено %s (%d транзакций).", common.FormatStars(total), count)
	if left > 0 {
		text += fmt.Sprintf("\n💰 Остаток на балансе: %s.", common.FormatStars(left))
	}
	b.sendMessage(chatID, text)

	if _, err := b.accounts.RefreshBalances(ctx, b.cfg.OwnerUserID); err != nil {
		log.WithError(err).Warn("Не удалось сверить балансы после вывода")
	}
	b.updateMenu(ctx, chatID)
}

// starTransactions выгружает все транзакции постранично.
func (b *Bot) starTransactions() ([]starTransaction, error) {
	const pageSize = 100
	var all []starTransaction

	for offset := 0; ; offset += pageSize {
		params := tgbotapi.Params{}
		params.AddNonZero("offset", offset)
		params.AddNonZero("limit", pageSize)

		resp, err := b.api.MakeRequest("getStarTransactions", params)
		if err != nil {
			return nil, err
		}

		var payload struct {
			Transactions []starTransaction `json:"transactions"`
		}
		if err := json.Unmarshal(resp.Result, &payload); err != nil {
			return nil, fmt.Errorf("разбор списка транзакций: %w", err)
		}
		if len(payload.Transactions) == 0 {
			return all, nil
		}
		all = append(all, payload.Transactions...)
	}
}

// refundStarPayment возвращает звёзды по ID транзакции.
func (b *Bot) refundStarPayment(userID int64, chargeID string) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("user_id", userID)
	params["telegram_payment_charge_id"] = chargeID

	if _, err := b.api.MakeRequest("refundStarPayment", params); err != nil {
		return err
	}
	return nil
}
