// Package bot — wizard.go хранит состояние пошаговых диалогов.
//
// Аналог FSM: на владельца — одна сессия с текущим шагом и черновиком.
// Черновик профиля валидируется и сохраняется целиком на последнем шаге,
// промежуточных состояний в БД не бывает.
package bot

import (
	"sync"

	"giftsninja.ru/gifts-bot/internal/features/catalog"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
)

// step — текущий шаг диалога.
type step int

const (
	stepNone step = iota

	// Мастер профиля (полный прогон или правка одного поля)
	stepMinPrice
	stepMaxPrice
	stepMinSupply
	stepMaxSupply
	stepCount
	stepLimit
	stepTarget
	stepName

	// Баланс
	stepDepositAmount
	stepRefundID

	// Ручная покупка из каталога
	stepCatalogQty
	stepCatalogRecipient
)

// session — состояние одного диалога.
type session struct {
	step step

	// Черновик профиля. profileIndex = -1 означает новый профиль.
	draft        *profiles.Profile
	profileIndex int
	// singleField: после сохранения шага вернуться к карточке профиля,
	// а не идти дальше по мастеру
	singleField bool

	// Ручная покупка из каталога
	gift         *catalog.Gift
	qty          int
	targetUserID *int64
	targetChatID *string
	sender       string
}

// Wizard — потокобезопасное хранилище сессий.
type Wizard struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

func NewWizard() *Wizard {
	return &Wizard{sessions: make(map[int64]*session)}
}

// get возвращает сессию владельца, создавая пустую при необходимости.
func (w *Wizard) get(userID int64) *session {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[userID]
	if !ok {
		s = &session{profileIndex: -1}
		w.sessions[userID] = s
	}
	return s
}

// Clear сбрасывает диалог владельца.
func (w *Wizard) Clear(userID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sessions, userID)
}

// Active сообщает, ждёт ли диалог текстового ввода.
func (w *Wizard) Active(userID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[userID]
	return ok && s.step != stepNone
}
