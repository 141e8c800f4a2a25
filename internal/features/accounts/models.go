// Package accounts управляет аккаунтом владельца: глобальные флаги скупки
// и кэшированные балансы звёзд обеих покупающих личностей.
// models.go описывает структуры для таблицы users.
package accounts

import "time"

// Identity — личность, от которой отправляется подарок.
type Identity string

const (
	// IdentityBot — основной бот (Bot API)
	IdentityBot Identity = "bot"
	// IdentityUserbot — юзербот (отдельная MTProto-сессия через мост)
	IdentityUserbot Identity = "userbot"
)

// Account представляет запись владельца бота.
// Балансы здесь — кэш; источник истины живёт на стороне Telegram
// и пересинхронизируется через RefreshBalances.
type Account struct {
	UserID            int64     `db:"user_id"`             // Telegram user ID владельца
	Balance           int64     `db:"balance"`             // Кэш баланса звёзд бота
	UserbotBalance    int64     `db:"userbot_balance"`     // Кэш баланса звёзд юзербота
	Active            bool      `db:"active"`              // Глобальный флаг «скупка включена»
	UserbotEnabled    bool      `db:"userbot_enabled"`     // Флаг «юзербот включён»
	LastMenuMessageID *int      `db:"last_menu_message_id"` // ID последнего сообщения меню
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// BalanceFor возвращает кэшированный баланс указанной личности.
func (a *Account) BalanceFor(identity Identity) int64 {
	if identity == IdentityUserbot {
		return a.UserbotBalance
	}
	return a.Balance
}
