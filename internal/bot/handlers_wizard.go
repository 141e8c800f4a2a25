// Package bot — handlers_wizard.go обрабатывает текстовый ввод пошаговых
// диалогов: мастер профиля, пополнение, возврат, ручная покупка.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/common"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
)

// handleWizardInput направляет текстовый ввод в текущий шаг диалога.
func (b *Bot) handleWizardInput(ctx context.Context, message *tgbotapi.Message) {
	s := b.wizard.get(message.From.ID)

	switch s.step {
	case stepDepositAmount:
		b.handleDepositAmountInput(message)
	case stepRefundID:
		b.handleRefundIDInput(ctx, message)
	case stepCatalogQty:
		b.handleCatalogQtyInput(message)
	case stepCatalogRecipient:
		b.handleCatalogRecipientInput(message)
	case stepMinPrice, stepMaxPrice, stepMinSupply, stepMaxSupply,
		stepCount, stepLimit, stepTarget, stepName:
		b.handleProfileStepInput(ctx, message, s)
	}
}

// parsePositive разбирает положительное целое из ввода.
func parsePositive(text string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// handleProfileStepInput обрабатывает один шаг мастера профиля.
// В полном прогоне шаги идут цепочкой; при правке одного поля
// цепочка обрывается после связанных шагов (цена и тираж — парные).
func (b *Bot) handleProfileStepInput(ctx context.Context, message *tgbotapi.Message, s *session) {
	chatID := message.Chat.ID
	if s.draft == nil {
		b.wizard.Clear(message.From.ID)
		return
	}

	switch s.step {
	case stepMinPrice:
		v, ok := parsePositive(message.Text)
		if !ok {
			b.sendMessage(chatID, "🚫 Введите положительное целое число!\n\n/cancel — отмена")
			return
		}
		s.draft.MinPrice = v
		s.step = stepMaxPrice
		b.sendMessage(chatID, "💰 Введите <b>максимальную цену</b> подарка в звёздах:\n\n/cancel — отмена")

	case stepMaxPrice:
		v, ok := parsePositive(message.Text)
		if !ok || v < s.draft.MinPrice {
			b.sendMessage(chatID, "🚫 Максимальная цена должна быть числом не меньше минимальной!\n\n/cancel — отмена")
			return
		}
		s.draft.MaxPrice = v
		if s.singleField {
			b.finishProfileDraft(ctx, chatID, message.From.ID)
			return
		}
		s.step = stepMinSupply
		b.sendMessage(chatID, "📦 Введите <b>минимальный тираж</b> подарка:\n\n/cancel — отмена")

	case stepMinSupply:
		v, ok := parsePositive(message.Text)
		if !ok {
			b.sendMessage(chatID, "🚫 Введите положительное целое число!\n\n/cancel — отмена")
			return
		}
		s.draft.MinSupply = v
		s.step = stepMaxSupply
		b.sendMessage(chatID, "📦 Введите <b>максимальный тираж</b> подарка:\n\n/cancel — отмена")

	case stepMaxSupply:
		v, ok := parsePositive(message.Text)
		if !ok || v < s.draft.MinSupply {
			b.sendMessage(chatID, "🚫 Максимальный тираж должен быть числом не меньше минимального!\n\n/cancel — отмена")
			return
		}
		s.draft.MaxSupply = v
		if s.singleField {
			b.finishProfileDraft(ctx, chatID, message.From.ID)
			return
		}
		s.step = stepCount
		b.sendMessage(chatID, "🎁 Введите <b>максимум подарков</b> для покупки:\n\n/cancel — отмена")

	case stepCount:
		v, ok := parsePositive(message.Text)
		if !ok {
			b.sendMessage(chatID, "🚫 Введите положительное целое число!\n\n/cancel — отмена")
			return
		}
		s.draft.Count = int(v)
		if s.singleField {
			b.finishProfileDraft(ctx, chatID, message.From.ID)
			return
		}
		s.step = stepLimit
		b.sendMessage(chatID, "⭐️ Введите <b>лимит трат</b> в звёздах:\n\n/cancel — отмена")

	case stepLimit:
		v, ok := parsePositive(message.Text)
		if !ok {
			b.sendMessage(chatID, "🚫 Введите положительное целое число!\n\n/cancel — отмена")
			return
		}
		s.draft.Limit = v
		if s.singleField {
			b.finishProfileDraft(ctx, chatID, message.From.ID)
			return
		}
		s.step = stepTarget
		b.sendMessage(chatID, targetPrompt(b.cfg.OwnerUserID))

	case stepTarget:
		userID, chatUsername, targetType, ok := parseTarget(message.Text)
		if !ok {
			b.sendMessage(chatID, "🚫 Получатель-аккаунт — ID числом, канал — @юзернейм. Попробуйте ещё раз.\n\n/cancel — отмена")
			return
		}
		s.draft.TargetUserID = userID
		s.draft.TargetChatID = chatUsername
		s.draft.TargetType = &targetType
		if s.singleField {
			b.finishProfileDraft(ctx, chatID, message.From.ID)
			return
		}
		// Финальный шаг полного мастера — выбор отправителя кнопками
		s.step = stepNone
		b.sendSenderKeyboard(chatID, "profile_sender_")

	case stepName:
		name := strings.TrimSpace(message.Text)
		if err := profiles.ValidateName(name); err != nil {
			b.sendMessage(chatID, "🚫 Имя — до 12 символов: буквы, цифры, пробел.\n\n/cancel — отмена")
			return
		}
		s.draft.Name = &name
		b.finishProfileDraft(ctx, chatID, message.From.ID)
	}
}

// parseTarget разбирает получателя: число — ID пользователя,
// @юзернейм — канал.
func parseTarget(text string) (*int64, *string, string, bool) {
	input := strings.TrimSpace(text)

	if strings.HasPrefix(input, "@") && len(input) > 1 {
		return nil, &input, profiles.TargetTypeChannel, true
	}
	if v, err := strconv.ParseInt(input, 10, 64); err == nil && v > 0 {
		return &v, nil, profiles.TargetTypeUserID, true
	}
	return nil, nil, "", false
}

// finishProfileDraft валидирует и сохраняет черновик профиля.
func (b *Bot) finishProfileDraft(ctx context.Context, chatID, userID int64) {
	s := b.wizard.get(userID)
	draft := s.draft
	isNew := s.profileIndex == -1
	b.wizard.Clear(userID)

	if draft == nil {
		return
	}

	var err error
	if isNew {
		_, err = b.profiles.Create(ctx, draft)
	} else {
		err = b.profiles.Update(ctx, draft)
	}

	switch {
	case errors.Is(err, common.ErrTooManyProfiles):
		b.sendMessage(chatID, "🚫 Достигнут лимит профилей.")
	case err != nil:
		log.WithError(err).Error("Ошибка сохранения профиля")
		b.sendMessage(chatID, "🚫 Не удалось сохранить профиль: проверьте значения и попробуйте ещё раз.")
	default:
		b.sendMessage(chatID, "✅ Профиль сохранён.")
	}

	b.showProfilesMenu(ctx, chatID)
}
