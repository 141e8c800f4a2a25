// Package bot — menu.go рендерит главное меню и клавиатуры.
// Меню всегда одно: перед отправкой нового предыдущее удаляется.
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/common"
	"giftsninja.ru/gifts-bot/internal/features/accounts"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
)

// menuKeyboard — клавиатура главного меню.
func menuKeyboard(active bool) tgbotapi.InlineKeyboardMarkup {
	toggleText := "🟢 Включить"
	if active {
		toggleText = "🔴 Выключить"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleText, "toggle_active"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Профили", "profiles_menu"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("♻️ Сброс", "reset_bought"),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Юзербот", "userbot_menu"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Пополнить", "deposit_menu"),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Вывести", "refund_menu"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎏 Каталог", "catalog"),
			tgbotapi.NewInlineKeyboardButtonData("❓ Помощь", "show_help"),
		),
	)
}

// menuText собирает сводку: статус, балансы и все профили.
func menuText(acct *accounts.Account, profs []profiles.Profile, ownerID int64) string {
	var b strings.Builder

	status := "🔴 Остановлена"
	if acct.Active {
		status = "🟢 Работает"
	}

	b.WriteString("<b>🥷 GiftsNinja</b>\n\n")
	fmt.Fprintf(&b, "<b>Скупка:</b> %s\n", status)
	fmt.Fprintf(&b, "<b>Баланс бота:</b> %s\n", common.FormatStars(acct.Balance))
	if acct.UserbotEnabled {
		fmt.Fprintf(&b, "<b>Юзербот:</b> включён (%s)\n", common.FormatStars(acct.UserbotBalance))
	}

	b.WriteString("\n<b>📋 Профили:</b>\n")
	for i := range profs {
		p := &profs[i]

		statusIcon := "🔴"
		if p.Done {
			statusIcon = "✅"
		} else if acct.Active {
			statusIcon = "🟢"
		}

		senderIcon := "🤖"
		if p.Sender == profiles.SenderUserbot {
			senderIcon = "👤"
		}

		fmt.Fprintf(&b, "\n%s <b>%d. %s</b>\n", statusIcon, i+1, p.DisplayName(i))
		fmt.Fprintf(&b, "├👤 <b>Получатель:</b> %s\n", common.FormatTargetDisplay(p.TargetUserID, p.TargetChatID, ownerID))
		fmt.Fprintf(&b, "├💰 <b>Цена:</b> %s–%s ★\n", common.FormatNumber(p.MinPrice), common.FormatNumber(p.MaxPrice))
		fmt.Fprintf(&b, "├📊 <b>Тираж:</b> %s–%s\n", common.FormatNumber(p.MinSupply), common.FormatNumber(p.MaxSupply))
		fmt.Fprintf(&b, "├%s <b>Отправитель:</b> %s\n", senderIcon, p.Sender)
		fmt.Fprintf(&b, "└🎁 <b>Прогресс:</b> %d/%d (%s/%s ★)",
			p.Bought, p.Count, common.FormatNumber(p.Spent), common.FormatNumber(p.Limit))
		b.WriteString("\n")
	}

	return b.String()
}

// updateMenu удаляет предыдущее меню и отправляет свежее.
func (b *Bot) updateMenu(ctx context.Context, chatID int64) {
	acct, err := b.accounts.Get(ctx, b.cfg.OwnerUserID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения аккаунта для меню")
		return
	}
	profs, err := b.profiles.List(ctx, b.cfg.OwnerUserID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения профилей для меню")
		return
	}

	b.deleteLastMenu(ctx, chatID)

	msg := tgbotapi.NewMessage(chatID, menuText(acct, profs, b.cfg.OwnerUserID))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = menuKeyboard(acct.Active)

	sent, err := b.api.Send(msg)
	if err != nil {
		log.WithError(err).Error("Ошибка отправки меню")
		return
	}
	if err := b.accounts.SetLastMenuMessageID(ctx, b.cfg.OwnerUserID, sent.MessageID); err != nil {
		log.WithError(err).Warn("Не удалось сохранить id сообщения меню")
	}
}

// deleteLastMenu удаляет прошлое сообщение меню, если оно было.
// Telegram не даёт удалять сообщения старше 48 часов — это не ошибка.
func (b *Bot) deleteLastMenu(ctx context.Context, chatID int64) {
	acct, err := b.accounts.Get(ctx, b.cfg.OwnerUserID)
	if err != nil || acct.LastMenuMessageID == nil {
		return
	}
	del := tgbotapi.NewDeleteMessage(chatID, *acct.LastMenuMessageID)
	if _, err := b.api.Request(del); err != nil {
		log.WithError(err).Debug("Не удалось удалить прошлое меню")
	}
}

// editMenu перерисовывает меню на месте (после toggle/reset).
func (b *Bot) editMenu(ctx context.Context, chatID int64, messageID int) {
	acct, err := b.accounts.Get(ctx, b.cfg.OwnerUserID)
	if err != nil {
		return
	}
	profs, err := b.profiles.List(ctx, b.cfg.OwnerUserID)
	if err != nil {
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(
		chatID, messageID,
		menuText(acct, profs, b.cfg.OwnerUserID),
		menuKeyboard(acct.Active),
	)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		// "message is not modified" — штатный случай при повторном нажатии
		if !strings.Contains(err.Error(), "message is not modified") {
			log.WithError(err).Debug("Не удалось перерисовать меню")
		}
	}
}
