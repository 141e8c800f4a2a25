// Package purchase — executor.go реализует исполнителя покупки.
//
// Политика ретраев (по умолчанию 3 попытки):
//   - флуд-контроль: спим указанное время, попытку не тратим;
//   - транзиентная ошибка: экспоненциальная пауза 2,4,8... секунд, попытка тратится;
//   - перманентная ошибка: немедленный отказ без ретраев.
//
// Исполнитель никогда не возвращает ошибку вызывающему: ожидаемые сбои — это
// просто false, движок решает, что с этим делать.
package purchase

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/features/accounts"
)

// Sender отправляет один подарок от имени одной личности.
// userID == 0 означает «не задан», chatID == "" означает «не задан».
type Sender interface {
	SendGift(ctx context.Context, giftID string, userID int64, chatID string) error
}

// Ledger списывает звёзды с кэшированного баланса личности после покупки.
type Ledger interface {
	AdjustBalance(ctx context.Context, userID int64, identity accounts.Identity, delta int64) (int64, error)
}

// Request описывает одну покупку.
type Request struct {
	Identity     accounts.Identity
	GiftID       string
	Price        int64
	TargetUserID *int64
	TargetChatID *string
}

// Executor выполняет покупки с ретраями и списанием с баланса.
type Executor struct {
	ownerID int64
	ledger  Ledger
	senders map[accounts.Identity]Sender
	retries int

	// dryRun: случайный исход без сети и без списаний —
	// для проверки ветвлений движка независимо от Telegram
	dryRun bool

	// хуки для тестов
	sleep func(ctx context.Context, d time.Duration) bool
	randN func(n int) int
}

// NewExecutor создаёт исполнителя покупок.
func NewExecutor(ownerID int64, ledger Ledger, senders map[accounts.Identity]Sender, retries int, dryRun bool) *Executor {
	return &Executor{
		ownerID: ownerID,
		ledger:  ledger,
		senders: senders,
		retries: retries,
		dryRun:  dryRun,
		sleep:   sleepCtx,
		randN:   rand.Intn,
	}
}

// Buy пытается купить один подарок. Возвращает true при подтверждённой покупке.
//
// Предусловие «баланса хватает» проверяет вызывающий; здесь проверяется
// только корректность получателя: ровно одно из user_id/chat_id.
func (e *Executor) Buy(ctx context.Context, req Request) bool {
	if e.dryRun {
		result := e.randN(4) > 0 // успех с вероятностью 3/4
		log.WithFields(log.Fields{
			"gift_id": req.GiftID,
			"price":   req.Price,
			"result":  result,
		}).Info("[TEST] Симуляция покупки, баланс не тронут")
		return result
	}

	userID, chatID, ok := resolveTarget(req)
	if !ok {
		log.WithField("gift_id", req.GiftID).Warn("Получатель задан неверно (нужен ровно один из user_id/chat_id)")
		return false
	}

	sender, ok := e.senders[req.Identity]
	if !ok {
		log.WithField("identity", req.Identity).Error("Нет отправителя для личности")
		return false
	}

	attempt := 0
	for attempt < e.retries {
		err := sender.SendGift(ctx, req.GiftID, userID, chatID)
		if err == nil {
			newBalance, debitErr := e.ledger.AdjustBalance(ctx, e.ownerID, req.Identity, -req.Price)
			if debitErr != nil {
				log.WithError(debitErr).Error("Покупка прошла, но списание с кэша баланса не удалось")
			}
			log.WithFields(log.Fields{
				"gift_id":  req.GiftID,
				"price":    req.Price,
				"identity": req.Identity,
				"balance":  newBalance,
			}).Info("Подарок куплен")
			return true
		}

		var flood *FloodError
		var perm *PermanentError
		switch {
		case errors.As(err, &flood):
			// Флуд-пауза не тратит попытку
			log.WithField("retry_after", flood.RetryAfter).Error("Флуд-контроль, ждём")
			if !e.sleep(ctx, flood.RetryAfter) {
				return false
			}

		case errors.As(err, &perm):
			log.WithError(err).WithField("gift_id", req.GiftID).Error("Перманентная ошибка, ретраи отменены")
			return false

		default:
			attempt++
			delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			log.WithError(err).WithFields(log.Fields{
				"attempt": attempt,
				"retries": e.retries,
				"delay":   delay,
			}).Error("Ошибка покупки, повторяем")
			if attempt < e.retries && !e.sleep(ctx, delay) {
				return false
			}
		}
	}

	log.WithFields(log.Fields{
		"gift_id": req.GiftID,
		"retries": e.retries,
	}).Error("Подарок не куплен: попытки исчерпаны")
	return false
}

// resolveTarget извлекает получателя и проверяет, что задан ровно один.
func resolveTarget(req Request) (userID int64, chatID string, ok bool) {
	if req.TargetUserID != nil {
		userID = *req.TargetUserID
	}
	if req.TargetChatID != nil {
		chatID = *req.TargetChatID
	}

	hasUser := userID != 0
	hasChat := chatID != ""
	if hasUser == hasChat {
		return 0, "", false
	}
	return userID, chatID, true
}

// sleepCtx спит d или до отмены контекста. false — контекст отменён.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
