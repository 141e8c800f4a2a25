// Package bot — handlers_menu.go обрабатывает кнопки главного меню.
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// routeCallback маршрутизирует нажатие inline-кнопки к обработчику.
func (b *Bot) routeCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	data := query.Data
	chatID := query.Message.Chat.ID

	switch {
	case data == "main_menu" || data == "profiles_main_menu" ||
		data == "catalog_main_menu" || data == "userbot_main_menu":
		b.wizard.Clear(query.From.ID)
		b.answerCallback(query.ID, "")
		b.updateMenu(ctx, chatID)

	case data == "toggle_active":
		b.handleToggleActive(ctx, query)

	case data == "reset_bought":
		b.handleResetBought(ctx, query)

	case data == "show_help":
		b.handleShowHelp(ctx, query)

	case data == "userbot_menu":
		b.handleUserbotMenu(ctx, query)

	case data == "userbot_enable":
		b.handleUserbotToggle(ctx, query, true)

	case data == "userbot_disable":
		b.handleUserbotToggle(ctx, query, false)

	case data == "deposit_menu":
		b.handleDepositMenu(query)

	case data == "refund_menu":
		b.handleRefundMenu(query)

	case data == "catalog":
		b.handleCatalog(ctx, query)

	case strings.HasPrefix(data, "catalog_gift_"):
		b.handleCatalogGiftSelected(ctx, query, strings.TrimPrefix(data, "catalog_gift_"))

	case strings.HasPrefix(data, "catalog_sender_"):
		b.handleCatalogSenderSelected(ctx, query, strings.TrimPrefix(data, "catalog_sender_"))

	case data == "confirm_purchase":
		b.handleConfirmPurchase(ctx, query)

	case data == "cancel_purchase":
		b.wizard.Clear(query.From.ID)
		b.answerCallback(query.ID, "")
		b.safeEditText(chatID, query.Message.MessageID, "🚫 Действие отменено.")
		b.updateMenu(ctx, chatID)

	case data == "profiles_menu":
		b.answerCallback(query.ID, "")
		b.showProfilesMenu(ctx, chatID)

	case data == "profile_add":
		b.handleProfileAdd(ctx, query)

	case strings.HasPrefix(data, "profile_edit_"):
		b.handleProfileEdit(ctx, query, strings.TrimPrefix(data, "profile_edit_"))

	case strings.HasPrefix(data, "profile_delete_confirm_"):
		b.handleProfileDeleteFinal(ctx, query, strings.TrimPrefix(data, "profile_delete_confirm_"))

	case data == "profile_delete_cancel":
		b.answerCallback(query.ID, "")
		b.showProfilesMenu(ctx, chatID)

	case strings.HasPrefix(data, "profile_delete_"):
		b.handleProfileDeleteConfirm(ctx, query, strings.TrimPrefix(data, "profile_delete_"))

	case strings.HasPrefix(data, "edit_profile_"):
		b.handleProfileFieldEdit(ctx, query, strings.TrimPrefix(data, "edit_profile_"))

	case strings.HasPrefix(data, "profile_sender_"):
		b.handleProfileSenderSelected(ctx, query, strings.TrimPrefix(data, "profile_sender_"))

	default:
		log.WithField("data", data).Debug("Неизвестный callback")
		b.answerCallback(query.ID, "")
	}
}

// handleToggleActive переключает глобальный флаг скупки.
func (b *Bot) handleToggleActive(ctx context.Context, query *tgbotapi.CallbackQuery) {
	acct, err := b.accounts.Get(ctx, b.cfg.OwnerUserID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения аккаунта")
		b.answerCallback(query.ID, "Ошибка, попробуйте ещё раз")
		return
	}

	newActive := !acct.Active
	if err := b.accounts.SetActive(ctx, b.cfg.OwnerUserID, newActive); err != nil {
		log.WithError(err).Error("Ошибка переключения скупки")
		b.answerCallback(query.ID, "Ошибка, попробуйте ещё раз")
		return
	}

	b.answerCallback(query.ID, "Статус обновлён")
	b.editMenu(ctx, query.Message.Chat.ID, query.Message.MessageID)
}

// handleResetBought сбрасывает прогресс всех профилей и останавливает скупку.
func (b *Bot) handleResetBought(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if err := b.profiles.ResetAll(ctx, b.cfg.OwnerUserID); err != nil {
		log.WithError(err).Error("Ошибка сброса прогресса")
		b.answerCallback(query.ID, "Ошибка, попробуйте ещё раз")
		return
	}
	if err := b.accounts.SetActive(ctx, b.cfg.OwnerUserID, false); err != nil {
		log.WithError(err).Error("Ошибка остановки скупки после сброса")
	}

	b.answerCallback(query.ID, "Счётчики покупок сброшены")
	b.editMenu(ctx, query.Message.Chat.ID, query.Message.MessageID)
}

// handleShowHelp показывает инструкцию по работе с ботом.
func (b *Bot) handleShowHelp(ctx context.Context, query *tgbotapi.CallbackQuery) {
	helpText := "<b>🛠 Управление ботом:</b>\n\n" +
		"<b>🟢 Включить / 🔴 Выключить</b> — запускает или останавливает скупку.\n" +
		"<b>✏️ Профили</b> — добавление и настройка профилей скупки.\n" +
		"<b>♻️ Сброс</b> — обнуляет счётчики купленных подарков во всех профилях.\n" +
		"<b>⚙️ Юзербот</b> — управление второй личностью (аккаунтом).\n" +
		"<b>💰 Пополнить</b> — пополнение баланса бота звёздами.\n" +
		"<b>↩️ Вывести</b> — возврат звёзд по ID транзакции или всех сразу: /withdraw_all.\n" +
		"<b>🎏 Каталог</b> — список доступных подарков с ручной покупкой.\n\n" +
		"<b>📌 Подсказки:</b>\n\n" +
		"❗️ Получатель-<b>аккаунт</b> — укажите <b>ID</b> пользователя (узнать: @userinfobot).\n" +
		"❗️ Получатель-<b>канал</b> — укажите <b>@юзернейм</b> канала.\n" +
		"❗️ Чтобы отправить подарок другому аккаунту, между аккаунтами должна быть переписка.\n" +
		"❗️ <b>ID транзакции</b> для возврата: нажмите на сообщение об оплате в чате с ботом."

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("☰ Меню", "main_menu"),
		),
	)

	b.answerCallback(query.ID, "")
	msg := tgbotapi.NewMessage(query.Message.Chat.ID, helpText)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки справки")
	}
}

// handleUserbotMenu показывает состояние моста юзербота.
func (b *Bot) handleUserbotMenu(ctx context.Context, query *tgbotapi.CallbackQuery) {
	b.answerCallback(query.ID, "")
	chatID := query.Message.Chat.ID

	if b.userbot == nil {
		b.sendMessage(chatID, "⚙️ <b>Юзербот</b>\n\nМост юзербота не настроен (USERBOT_BRIDGE_URL пуст).")
		return
	}

	acct, err := b.accounts.Get(ctx, b.cfg.OwnerUserID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения аккаунта")
		return
	}

	var text strings.Builder
	text.WriteString("⚙️ <b>Юзербот</b>\n\n")

	status, err := b.userbot.SessionStatus(ctx)
	switch {
	case err != nil:
		text.WriteString("🚫 Мост недоступен, проверьте sidecar.\n")
	case !status.Authorized:
		text.WriteString("🔐 Сессия не авторизована. Авторизуйте её на мосте.\n")
	default:
		fmt.Fprintf(&text, "👤 Сессия: @%s (%s)\n", status.Username, status.Phone)
		if acct.UserbotEnabled {
			text.WriteString("🟢 Покупки через юзербота включены.\n")
		} else {
			text.WriteString("🔴 Покупки через юзербота выключены.\n")
		}
	}

	toggle := tgbotapi.NewInlineKeyboardButtonData("🟢 Включить", "userbot_enable")
	if acct.UserbotEnabled {
		toggle = tgbotapi.NewInlineKeyboardButtonData("🔴 Выключить", "userbot_disable")
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			toggle,
			tgbotapi.NewInlineKeyboardButtonData("☰ Меню", "userbot_main_menu"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки меню юзербота")
	}
}

// handleUserbotToggle включает или выключает покупки через юзербота.
func (b *Bot) handleUserbotToggle(ctx context.Context, query *tgbotapi.CallbackQuery, enable bool) {
	if enable {
		if b.userbot == nil {
			b.answerCallback(query.ID, "Мост юзербота не настроен")
			return
		}
		status, err := b.userbot.SessionStatus(ctx)
		if err != nil || !status.Authorized {
			b.answerCallback(query.ID, "Сессия юзербота не авторизована")
			return
		}
	}

	if err := b.accounts.SetUserbotEnabled(ctx, b.cfg.OwnerUserID, enable); err != nil {
		log.WithError(err).Error("Ошибка переключения юзербота")
		b.answerCallback(query.ID, "Ошибка, попробуйте ещё раз")
		return
	}
	if enable {
		if _, err := b.accounts.RefreshBalances(ctx, b.cfg.OwnerUserID); err != nil {
			log.WithError(err).Warn("Не удалось сверить балансы после включения юзербота")
		}
	}

	b.answerCallback(query.ID, "Готово")
	b.updateMenu(ctx, query.Message.Chat.ID)
}

// safeEditText редактирует текст сообщения, убирая клавиатуру.
// Устаревшие и удалённые сообщения — штатный случай.
func (b *Bot) safeEditText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		log.WithError(err).Debug("Не удалось отредактировать сообщение")
	}
}
