// Package bot — handlers_catalog.go показывает каталог подарков
// и ведёт диалог ручной покупки.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/common"
	"giftsninja.ru/gifts-bot/internal/features/accounts"
	"giftsninja.ru/gifts-bot/internal/features/catalog"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
	"giftsninja.ru/gifts-bot/internal/features/purchase"
)

// catalogFilter — каталог целиком, включая безлимитные подарки.
func catalogFilter() catalog.Filter {
	f := catalog.WideOpen()
	f.AllowUnlimited = true
	return f
}

// giftButtonText — подпись кнопки подарка в каталоге.
func giftButtonText(g catalog.Gift) string {
	if g.Unlimited() {
		return fmt.Sprintf("%s — ★%s", g.Emoji, common.FormatNumber(g.Price))
	}
	return fmt.Sprintf("%s из %s — ★%s",
		common.FormatNumber(g.Left), common.FormatNumber(g.Supply), common.FormatNumber(g.Price))
}

// handleCatalog показывает каталог подарков кнопками.
func (b *Bot) handleCatalog(ctx context.Context, query *tgbotapi.CallbackQuery) {
	gifts := b.catalog.BestList(ctx, catalogFilter())

	var limited, unlimited int
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range gifts {
		if g.Unlimited() {
			unlimited++
		} else {
			limited++
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(giftButtonText(g), "catalog_gift_"+g.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("☰ Меню", "catalog_main_menu"),
	))

	b.answerCallback(query.ID, "")
	msg := tgbotapi.NewMessage(query.Message.Chat.ID,
		fmt.Sprintf("🧸 Обычные подарки: <b>%d</b>\n👜 Лимитированные подарки: <b>%d</b>", unlimited, limited))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки каталога")
	}
}

// handleCatalogGiftSelected запоминает выбранный подарок и просит количество.
func (b *Bot) handleCatalogGiftSelected(ctx context.Context, query *tgbotapi.CallbackQuery, giftID string) {
	gifts := b.catalog.BestList(ctx, catalogFilter())

	var selected *catalog.Gift
	for i := range gifts {
		if gifts[i].ID == giftID {
			selected = &gifts[i]
			break
		}
	}
	if selected == nil {
		b.answerCallback(query.ID, "Каталог устарел, откройте заново")
		b.safeEditText(query.Message.Chat.ID, query.Message.MessageID, "🚫 Каталог устарел. Откройте заново.")
		return
	}

	s := b.wizard.get(query.From.ID)
	s.gift = selected
	s.step = stepCatalogQty

	b.answerCallback(query.ID, "")
	b.safeEditText(query.Message.Chat.ID, query.Message.MessageID,
		fmt.Sprintf("🎯 Вы выбрали: <b>%s</b> за %s\n🎁 Введите <b>количество</b> для покупки:\n\n/cancel — отмена",
			giftDisplay(*selected), common.FormatStars(selected.Price)))
}

// giftDisplay — отображение подарка в диалоге покупки.
func giftDisplay(g catalog.Gift) string {
	if g.Unlimited() {
		return g.Emoji
	}
	return fmt.Sprintf("%s из %s", common.FormatNumber(g.Left), common.FormatNumber(g.Supply))
}

// handleCatalogQtyInput обрабатывает введённое количество.
func (b *Bot) handleCatalogQtyInput(message *tgbotapi.Message) {
	s := b.wizard.get(message.From.ID)
	if s.gift == nil {
		b.wizard.Clear(message.From.ID)
		return
	}

	qty, ok := parsePositive(message.Text)
	if !ok {
		b.sendMessage(message.Chat.ID, "🚫 Введите положительное целое число!\n\n/cancel — отмена")
		return
	}

	s.qty = int(qty)
	s.step = stepCatalogRecipient
	b.sendMessage(message.Chat.ID, targetPrompt(b.cfg.OwnerUserID))
}

// handleCatalogRecipientInput обрабатывает получателя и просит отправителя.
func (b *Bot) handleCatalogRecipientInput(message *tgbotapi.Message) {
	s := b.wizard.get(message.From.ID)
	if s.gift == nil {
		b.wizard.Clear(message.From.ID)
		return
	}

	userID, chatUsername, _, ok := parseTarget(message.Text)
	if !ok {
		b.sendMessage(message.Chat.ID, "🚫 Получатель-аккаунт — ID числом, канал — @юзернейм. Попробуйте ещё раз.\n\n/cancel — отмена")
		return
	}

	s.targetUserID = userID
	s.targetChatID = chatUsername
	s.step = stepNone
	b.sendSenderKeyboard(message.Chat.ID, "catalog_sender_")
}

// handleCatalogSenderSelected показывает сводку покупки с подтверждением.
func (b *Bot) handleCatalogSenderSelected(ctx context.Context, query *tgbotapi.CallbackQuery, sender string) {
	s := b.wizard.get(query.From.ID)
	if s.gift == nil || s.qty <= 0 {
		b.answerCallback(query.ID, "Диалог устарел, начните заново")
		return
	}
	if sender != profiles.SenderBot && sender != profiles.SenderUserbot {
		b.answerCallback(query.ID, "")
		return
	}
	s.sender = sender

	senderText := "🤖 Бот"
	if sender == profiles.SenderUserbot {
		senderText = "👤 Юзербот"
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", "confirm_purchase"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel_purchase"),
		),
	)

	b.answerCallback(query.ID, "✅ Отправитель выбран")
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		query.Message.Chat.ID, query.Message.MessageID,
		fmt.Sprintf(
			"📦 Подарок: <b>%s</b>\n"+
				"🎁 Количество: <b>%d</b>\n"+
				"💵 Цена подарка: <b>%s</b>\n"+
				"💰 Общая сумма: <b>%s</b>\n"+
				"👤 Получатель: %s\n"+
				"📤 Отправитель: %s",
			giftDisplay(*s.gift), s.qty,
			common.FormatStars(s.gift.Price),
			common.FormatStars(s.gift.Price*int64(s.qty)),
			common.FormatTargetDisplay(s.targetUserID, s.targetChatID, b.cfg.OwnerUserID),
			senderText,
		),
		keyboard,
	)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		log.WithError(err).Error("Ошибка отправки сводки покупки")
	}
}

// handleConfirmPurchase выполняет ручную покупку из каталога.
// Цикл останавливается на первой неудаче; при недоборе скупка гасится,
// как и в фоновом движке.
func (b *Bot) handleConfirmPurchase(ctx context.Context, query *tgbotapi.CallbackQuery) {
	s := b.wizard.get(query.From.ID)
	if s.gift == nil || s.qty <= 0 || s.sender == "" {
		b.answerCallback(query.ID, "Диалог устарел, начните заново")
		return
	}

	gift := *s.gift
	qty := s.qty
	targetUserID := s.targetUserID
	targetChatID := s.targetChatID

	identity := accounts.IdentityBot
	if s.sender == profiles.SenderUserbot {
		identity = accounts.IdentityUserbot
	}
	b.wizard.Clear(query.From.ID)

	chatID := query.Message.Chat.ID
	b.answerCallback(query.ID, "")
	b.safeEditText(chatID, query.Message.MessageID, "⏳ Выполняем покупку подарков...")

	bought := 0
buying:
	for bought < qty {
		ok := b.executor.Buy(ctx, purchase.Request{
			Identity:     identity,
			GiftID:       gift.ID,
			Price:        gift.Price,
			TargetUserID: targetUserID,
			TargetChatID: targetChatID,
		})
		if !ok {
			break
		}
		bought++

		select {
		case <-ctx.Done():
			break buying
		case <-time.After(b.cfg.PurchaseCooldown):
		}
	}

	recipient := common.FormatTargetDisplay(targetUserID, targetChatID, b.cfg.OwnerUserID)
	if bought >= qty {
		b.sendMessage(chatID, fmt.Sprintf(
			"✅ Покупка <b>%s</b> выполнена!\n🎁 Куплено подарков: <b>%d</b> из <b>%d</b>\n👤 Получатель: %s",
			giftDisplay(gift), bought, qty, recipient))
	} else {
		b.sendMessage(chatID, fmt.Sprintf(
			"⚠️ Покупка <b>%s</b> остановлена.\n🎁 Куплено подарков: <b>%d</b> из <b>%d</b>\n👤 Получатель: %s\n"+
				"💰 Пополните баланс! Проверьте адрес получателя!\n📦 Проверьте наличие подарка!\n🚦 Статус изменён на 🔴 (остановлена).",
			giftDisplay(gift), bought, qty, recipient))
		if err := b.accounts.SetActive(ctx, b.cfg.OwnerUserID, false); err != nil {
			log.WithError(err).Error("Ошибка остановки скупки после неудачной покупки")
		}
	}

	if _, err := b.accounts.RefreshBalances(ctx, b.cfg.OwnerUserID); err != nil {
		log.WithError(err).Warn("Не удалось сверить балансы после ручной покупки")
	}
	b.updateMenu(ctx, chatID)
}
