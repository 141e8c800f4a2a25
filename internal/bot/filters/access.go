// Package filters содержит фильтры доступа к боту.
package filters

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// OwnerFilter пропускает только владельца бота и только в личке.
// Бот однопользовательский: чужие сообщения молча игнорируются,
// чтобы не выдавать сам факт существования бота.
type OwnerFilter struct {
	ownerID int64
}

func NewOwnerFilter(ownerID int64) *OwnerFilter {
	return &OwnerFilter{ownerID: ownerID}
}

// CheckAccess возвращает true, если сообщение пришло от владельца в личке.
func (f *OwnerFilter) CheckAccess(message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil || message.From == nil {
		return false
	}
	if !message.Chat.IsPrivate() {
		return false
	}
	if message.From.ID != f.ownerID {
		log.WithFields(log.Fields{
			"component": "OwnerFilter",
			"user_id":   message.From.ID,
		}).Info("deny: не владелец")
		return false
	}
	return true
}

// CheckCallbackAccess — то же для нажатий inline-кнопок.
func (f *OwnerFilter) CheckCallbackAccess(query *tgbotapi.CallbackQuery) bool {
	if query == nil || query.From == nil {
		return false
	}
	if query.From.ID != f.ownerID {
		log.WithFields(log.Fields{
			"component": "OwnerFilter",
			"user_id":   query.From.ID,
		}).Info("deny: callback не от владельца")
		return false
	}
	return true
}
