// Package bot — handlers_profiles.go обрабатывает меню профилей:
// карточки, добавление, удаление и вход в редактирование полей.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/common"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
)

// showProfilesMenu показывает список профилей с кнопками управления.
func (b *Bot) showProfilesMenu(ctx context.Context, chatID int64) {
	profs, err := b.profiles.List(ctx, b.cfg.OwnerUserID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения профилей")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := range profs {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ "+profs[i].DisplayName(i), fmt.Sprintf("profile_edit_%d", i)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", fmt.Sprintf("profile_delete_%d", i)),
		))
	}
	if len(profs) < b.cfg.MaxProfiles {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить", "profile_add"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("☰ Меню", "profiles_main_menu"),
	))

	var lines []string
	for i := range profs {
		p := &profs[i]
		branch := "├"
		switch {
		case len(profs) == 1:
			branch = ""
		case i == 0:
			branch = "┌"
		case i == len(profs)-1:
			branch = "└"
		}
		lines = append(lines, fmt.Sprintf("%s🏷️ <b>%s</b> (%s) → %s",
			branch, p.DisplayName(i), senderDisplay(p.Sender),
			common.FormatTargetDisplay(p.TargetUserID, p.TargetChatID, b.cfg.OwnerUserID)))
	}

	text := fmt.Sprintf("📝 <b>Управление профилями (максимум %d):</b>\n\n%s\n\n👉 Нажмите ✏️ для редактирования.",
		b.cfg.MaxProfiles, strings.Join(lines, "\n"))

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки меню профилей")
	}
}

// profileText — карточка профиля для экрана редактирования.
func profileText(p *profiles.Profile, idx int, ownerID int64) string {
	return fmt.Sprintf(
		"✏️ <b>Редактирование: %s</b>\n\n"+
			"┌💰 <b>Цена:</b> %s – %s ★\n"+
			"├📦 <b>Тираж:</b> %s – %s\n"+
			"├🎁 <b>Куплено:</b> %d / %d\n"+
			"├⭐️ <b>Лимит:</b> %s / %s ★\n"+
			"├👤 <b>Получатель:</b> %s\n"+
			"└📤 <b>Отправитель:</b> <code>%s</code>",
		p.DisplayName(idx),
		common.FormatNumber(p.MinPrice), common.FormatNumber(p.MaxPrice),
		common.FormatNumber(p.MinSupply), common.FormatNumber(p.MaxSupply),
		p.Bought, p.Count,
		common.FormatNumber(p.Spent), common.FormatNumber(p.Limit),
		common.FormatTargetDisplay(p.TargetUserID, p.TargetChatID, ownerID),
		p.Sender,
	)
}

// profileEditKeyboard — кнопки правки полей профиля.
func profileEditKeyboard(idx int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Цена", fmt.Sprintf("edit_profile_price_%d", idx)),
			tgbotapi.NewInlineKeyboardButtonData("📦 Тираж", fmt.Sprintf("edit_profile_supply_%d", idx)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Количество", fmt.Sprintf("edit_profile_count_%d", idx)),
			tgbotapi.NewInlineKeyboardButtonData("⭐️ Лимит", fmt.Sprintf("edit_profile_limit_%d", idx)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 Получатель", fmt.Sprintf("edit_profile_target_%d", idx)),
			tgbotapi.NewInlineKeyboardButtonData("📤 Отправитель", fmt.Sprintf("edit_profile_sender_%d", idx)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏷️ Имя", fmt.Sprintf("edit_profile_name_%d", idx)),
			tgbotapi.NewInlineKeyboardButtonData("☰ Меню", "profiles_main_menu"),
		),
	)
}

// profileByIndex возвращает профиль по позиции в списке.
func (b *Bot) profileByIndex(ctx context.Context, idx int) (*profiles.Profile, error) {
	profs, err := b.profiles.List(ctx, b.cfg.OwnerUserID)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(profs) {
		return nil, common.ErrProfileNotFound
	}
	return &profs[idx], nil
}

// handleProfileEdit показывает карточку профиля.
func (b *Bot) handleProfileEdit(ctx context.Context, query *tgbotapi.CallbackQuery, idxStr string) {
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		b.answerCallback(query.ID, "")
		return
	}
	p, err := b.profileByIndex(ctx, idx)
	if err != nil {
		b.answerCallback(query.ID, "Профиль не найден, откройте список заново")
		return
	}

	b.answerCallback(query.ID, "")
	msg := tgbotapi.NewMessage(query.Message.Chat.ID, profileText(p, idx, b.cfg.OwnerUserID))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = profileEditKeyboard(idx)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки карточки профиля")
	}
}

// handleProfileAdd запускает мастер создания профиля.
func (b *Bot) handleProfileAdd(ctx context.Context, query *tgbotapi.CallbackQuery) {
	profs, err := b.profiles.List(ctx, b.cfg.OwnerUserID)
	if err != nil {
		b.answerCallback(query.ID, "Ошибка, попробуйте ещё раз")
		return
	}
	if len(profs) >= b.cfg.MaxProfiles {
		b.answerCallback(query.ID, fmt.Sprintf("Максимум %d профиля", b.cfg.MaxProfiles))
		return
	}

	draft := profiles.Default(b.cfg.OwnerUserID)
	s := b.wizard.get(query.From.ID)
	s.draft = &draft
	s.profileIndex = -1
	s.singleField = false
	s.step = stepMinPrice

	b.answerCallback(query.ID, "")
	b.sendMessage(query.Message.Chat.ID,
		"➕ <b>Новый профиль</b>\n\n💰 Введите <b>минимальную цену</b> подарка в звёздах:\n\n/cancel — отмена")
}

// handleProfileFieldEdit входит в правку одного поля профиля.
// rest имеет вид "<поле>_<индекс>", например "price_0".
func (b *Bot) handleProfileFieldEdit(ctx context.Context, query *tgbotapi.CallbackQuery, rest string) {
	cut := strings.LastIndex(rest, "_")
	if cut < 0 {
		b.answerCallback(query.ID, "")
		return
	}
	field := rest[:cut]
	idx, err := strconv.Atoi(rest[cut+1:])
	if err != nil {
		b.answerCallback(query.ID, "")
		return
	}

	p, err := b.profileByIndex(ctx, idx)
	if err != nil {
		b.answerCallback(query.ID, "Профиль не найден, откройте список заново")
		return
	}

	draft := *p
	s := b.wizard.get(query.From.ID)
	s.draft = &draft
	s.profileIndex = idx
	s.singleField = true

	chatID := query.Message.Chat.ID
	b.answerCallback(query.ID, "")

	switch field {
	case "price":
		s.step = stepMinPrice
		b.sendMessage(chatID, "💰 Введите <b>минимальную цену</b> подарка в звёздах:\n\n/cancel — отмена")
	case "supply":
		s.step = stepMinSupply
		b.sendMessage(chatID, "📦 Введите <b>минимальный тираж</b> подарка:\n\n/cancel — отмена")
	case "count":
		s.step = stepCount
		b.sendMessage(chatID, "🎁 Введите <b>максимум подарков</b> для покупки:\n\n/cancel — отмена")
	case "limit":
		s.step = stepLimit
		b.sendMessage(chatID, "⭐️ Введите <b>лимит трат</b> в звёздах:\n\n/cancel — отмена")
	case "target":
		s.step = stepTarget
		b.sendMessage(chatID, targetPrompt(b.cfg.OwnerUserID))
	case "name":
		s.step = stepName
		b.sendMessage(chatID, "🏷️ Введите <b>имя профиля</b> (до 12 символов: буквы, цифры, пробел):\n\n/cancel — отмена")
	case "sender":
		s.step = stepNone
		b.sendSenderKeyboard(chatID, "profile_sender_")
	default:
		b.wizard.Clear(query.From.ID)
	}
}

// targetPrompt — подсказка по вводу получателя.
func targetPrompt(ownerID int64) string {
	return fmt.Sprintf(
		"📥 Введите <b>получателя</b> подарков:\n\n"+
			"➤ <b>ID пользователя</b> (например, ваш: <code>%d</code>)\n"+
			"➤ <b>@юзернейм канала</b> (например, <code>@durov</code>)\n\n"+
			"🔎 Узнать ID: @userinfobot\n"+
			"⚠️ Для отправки другому аккаунту между аккаунтами должна быть переписка.\n\n"+
			"/cancel — отмена", ownerID)
}

// sendSenderKeyboard шлёт выбор отправителя с заданным префиксом callback.
func (b *Bot) sendSenderKeyboard(chatID int64, prefix string) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤖 Бот", prefix+"bot"),
			tgbotapi.NewInlineKeyboardButtonData("👤 Юзербот", prefix+"userbot"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel_purchase"),
		),
	)
	msg := tgbotapi.NewMessage(chatID,
		"📤 Выберите <b>отправителя</b> подарков:\n\n"+
			"🤖 <code>Бот</code> — покупки с баланса бота\n"+
			"👤 <code>Юзербот</code> — покупки с баланса юзербота\n\n"+
			"/cancel — отмена")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки выбора отправителя")
	}
}

// handleProfileSenderSelected сохраняет выбранного отправителя профиля.
func (b *Bot) handleProfileSenderSelected(ctx context.Context, query *tgbotapi.CallbackQuery, sender string) {
	s := b.wizard.get(query.From.ID)
	if s.draft == nil {
		b.answerCallback(query.ID, "Диалог устарел, начните заново")
		return
	}
	if sender != profiles.SenderBot && sender != profiles.SenderUserbot {
		b.answerCallback(query.ID, "")
		return
	}

	s.draft.Sender = sender
	b.answerCallback(query.ID, "✅ Отправитель выбран")
	b.finishProfileDraft(ctx, query.Message.Chat.ID, query.From.ID)
}

// handleProfileDeleteConfirm спрашивает подтверждение удаления.
func (b *Bot) handleProfileDeleteConfirm(ctx context.Context, query *tgbotapi.CallbackQuery, idxStr string) {
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		b.answerCallback(query.ID, "")
		return
	}
	p, err := b.profileByIndex(ctx, idx)
	if err != nil {
		b.answerCallback(query.ID, "Профиль не найден, откройте список заново")
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", fmt.Sprintf("profile_delete_confirm_%d", idx)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "profile_delete_cancel"),
		),
	)

	b.answerCallback(query.ID, "")
	msg := tgbotapi.NewMessage(query.Message.Chat.ID,
		fmt.Sprintf("🗑 Удалить профиль <b>%s</b>? Его лог покупок тоже будет удалён.", p.DisplayName(idx)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки подтверждения удаления")
	}
}

// handleProfileDeleteFinal удаляет профиль после подтверждения.
func (b *Bot) handleProfileDeleteFinal(ctx context.Context, query *tgbotapi.CallbackQuery, idxStr string) {
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		b.answerCallback(query.ID, "")
		return
	}
	p, err := b.profileByIndex(ctx, idx)
	if err != nil {
		b.answerCallback(query.ID, "Профиль не найден, откройте список заново")
		return
	}

	if err := b.profiles.Delete(ctx, b.cfg.OwnerUserID, p.ID); err != nil {
		log.WithError(err).Error("Ошибка удаления профиля")
		b.answerCallback(query.ID, "Ошибка, попробуйте ещё раз")
		return
	}

	b.answerCallback(query.ID, "Профиль удалён")
	b.showProfilesMenu(ctx, query.Message.Chat.ID)
}

// senderDisplay — человекочитаемое имя отправителя.
func senderDisplay(sender string) string {
	if sender == profiles.SenderUserbot {
		return "юзербот"
	}
	return "бот"
}
