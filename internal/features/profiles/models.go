// Package profiles управляет профилями скупки: фильтр подарков, лимиты,
// получатель, отправитель и прогресс. models.go описывает структуры
// для таблиц profiles и purchases.
package profiles

import (
	"fmt"
	"time"

	"giftsninja.ru/gifts-bot/internal/features/catalog"
)

// Отправитель подарков в профиле.
const (
	SenderBot     = "bot"     // основной бот
	SenderUserbot = "userbot" // юзербот
)

// Способ, которым был введён получатель.
const (
	TargetTypeUserID   = "user_id"  // числовой ID пользователя
	TargetTypeUsername = "username" // @юзернейм, разрешённый в ID
	TargetTypeChannel  = "channel"  // @канал
)

// Profile — одна политика скупки.
// Прогресс (bought/spent/done) монотонно растёт до явного сброса.
type Profile struct {
	ID     int64   `db:"id"`
	UserID int64   `db:"user_id"` // владелец
	Name   *string `db:"name"`    // отображаемое имя, до 12 символов

	// Фильтр подарков
	MinPrice  int64 `db:"min_price"`
	MaxPrice  int64 `db:"max_price"`
	MinSupply int64 `db:"min_supply"`
	MaxSupply int64 `db:"max_supply"`

	// Лимиты
	Count int   `db:"gift_count"`  // максимум подарков
	Limit int64 `db:"spend_limit"` // максимум звёзд

	// Получатель: ровно одно из TargetUserID/TargetChatID
	TargetUserID *int64  `db:"target_user_id"`
	TargetChatID *string `db:"target_chat_id"`
	TargetType   *string `db:"target_type"`

	Sender string `db:"sender"` // bot | userbot

	// Прогресс
	Bought int   `db:"bought"`
	Spent  int64 `db:"spent"`
	Done   bool  `db:"done"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Purchase — одна успешная покупка в логе профиля.
// Сумма цен лога с момента последнего сброса равна spent профиля.
type Purchase struct {
	ID        int64     `db:"id"`
	ProfileID int64     `db:"profile_id"`
	GiftID    string    `db:"gift_id"`
	Price     int64     `db:"price"`
	CreatedAt time.Time `db:"created_at"`
}

// Default возвращает профиль с настройками по умолчанию:
// дорогие лимитированные подарки себе, отправитель — бот.
func Default(userID int64) Profile {
	target := userID
	return Profile{
		UserID:       userID,
		MinPrice:     5000,
		MaxPrice:     10000,
		MinSupply:    1000,
		MaxSupply:    10000,
		Count:        5,
		Limit:        1000000,
		TargetUserID: &target,
		Sender:       SenderBot,
	}
}

// Filter собирает фильтр каталога из границ профиля.
func (p *Profile) Filter() catalog.Filter {
	return catalog.Filter{
		MinPrice:  p.MinPrice,
		MaxPrice:  p.MaxPrice,
		MinSupply: p.MinSupply,
		MaxSupply: p.MaxSupply,
	}
}

// CapsReached сообщает, что профиль упёрся в один из лимитов.
func (p *Profile) CapsReached() bool {
	return p.Bought >= p.Count || p.Spent >= p.Limit
}

// DisplayName возвращает имя профиля для меню.
func (p *Profile) DisplayName(index int) string {
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	return fmt.Sprintf("Профиль %d", index+1)
}
