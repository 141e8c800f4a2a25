// Package sniper содержит движок скупки — фоновый цикл, который ведёт
// все профили к завершению, не нарушая их лимитов.
//
// Профили внутри цикла обслуживаются строго последовательно, в порядке
// списка: две покупки одного профиля никогда не летят параллельно, и
// каждая следующая проверка лимитов видит счётчики после предыдущей
// покупки. Это же избавляет от блокировок на общем балансе.
package sniper

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/features/accounts"
	"giftsninja.ru/gifts-bot/internal/features/catalog"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
	"giftsninja.ru/gifts-bot/internal/features/purchase"
)

// ProfileStore — операции с профилями, нужные движку.
type ProfileStore interface {
	List(ctx context.Context, userID int64) ([]profiles.Profile, error)
	ApplyPurchase(ctx context.Context, profileID int64, giftID string, price int64) (int, int64, error)
	MarkDone(ctx context.Context, profileID int64) error
}

// AccountStore — операции с аккаунтом владельца, нужные движку.
type AccountStore interface {
	Get(ctx context.Context, userID int64) (*accounts.Account, error)
	SetActive(ctx context.Context, userID int64, active bool) error
	SetUserbotEnabled(ctx context.Context, userID int64, enabled bool) error
	RefreshBalances(ctx context.Context, userID int64) (int64, error)
}

// Buyer выполняет одну покупку с ретраями (исполнитель из пакета purchase).
type Buyer interface {
	Buy(ctx context.Context, req purchase.Request) bool
}

// Candidates отдаёт лучший список кандидатов для фильтра профиля.
type Candidates interface {
	BestList(ctx context.Context, f catalog.Filter) []catalog.Gift
}

// Notifier доставляет владельцу отчёты. Fire-and-forget: ошибки доставки
// движок не волнуют.
type Notifier interface {
	Notify(userID int64, text string)
}

// Options — тайминги движка.
type Options struct {
	OwnerID          int64
	PurchaseCooldown time.Duration // пауза между покупками одного профиля
	CycleDelay       time.Duration // пауза между циклами
	IdleDelay        time.Duration // пауза, когда скупка выключена
	ErrorDelay       time.Duration // пауза после ошибки цикла
}

// Engine — движок скупки.
type Engine struct {
	opts     Options
	accounts AccountStore
	profiles ProfileStore
	catalog  Candidates
	buyer    Buyer
	notifier Notifier
}

// New создаёт движок скупки.
func New(opts Options, acc AccountStore, prof ProfileStore, cat Candidates, buyer Buyer, notifier Notifier) *Engine {
	return &Engine{
		opts:     opts,
		accounts: acc,
		profiles: prof,
		catalog:  cat,
		buyer:    buyer,
		notifier: notifier,
	}
}

// Run крутит циклы скупки до отмены контекста. Сам цикл никогда
// не роняет процесс: паника и ошибки гасятся на границе цикла.
func (e *Engine) Run(ctx context.Context) {
	log.Info("Движок скупки запущен")
	for ctx.Err() == nil {
		delay := e.safeCycle(ctx)
		if !sleepCtx(ctx, delay) {
			break
		}
	}
	log.Info("Движок скупки остановлен")
}

// safeCycle выполняет один цикл, перехватывая панику и ошибки.
func (e *Engine) safeCycle(ctx context.Context) (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("ПАНИКА в цикле скупки — восстановлено")
			delay = e.opts.ErrorDelay
		}
	}()

	d, err := e.cycle(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка цикла скупки")
		return e.opts.ErrorDelay
	}
	return d
}

// cycleOutcome — итог обслуживания одного профиля за цикл.
type cycleOutcome struct {
	progress bool // счётчики профиля выросли
	failed   bool // хотя бы одна попытка покупки провалилась
}

// cycle — один полный проход по профилям.
//
// Глобальное отключение: если за цикл была хотя бы одна неудачная попытка
// покупки и ни один профиль не продвинулся — флаг скупки гасится и владелец
// получает уведомление. «Нет кандидатов» отключение не вызывает: это не
// сбой, а пустой рынок.
func (e *Engine) cycle(ctx context.Context) (time.Duration, error) {
	acct, err := e.accounts.Get(ctx, e.opts.OwnerID)
	if err != nil {
		return 0, err
	}
	if !acct.Active {
		return e.opts.IdleDelay, nil
	}

	profs, err := e.profiles.List(ctx, e.opts.OwnerID)
	if err != nil {
		return 0, err
	}

	// Локальный кэш балансов на цикл: быстрые проверки «хватит ли звёзд»
	// без похода в БД перед каждой покупкой
	balances := map[accounts.Identity]int64{
		accounts.IdentityBot:     acct.Balance,
		accounts.IdentityUserbot: acct.UserbotBalance,
	}

	anyProgress := false
	anyFailure := false

	for i := range profs {
		p := &profs[i]
		if p.Done {
			continue
		}
		if p.Sender == profiles.SenderUserbot && !acct.UserbotEnabled {
			continue
		}

		outcome := e.serveProfile(ctx, i, p, balances)
		anyProgress = anyProgress || outcome.progress
		anyFailure = anyFailure || outcome.failed

		if outcome.progress {
			if _, err := e.accounts.RefreshBalances(ctx, e.opts.OwnerID); err != nil {
				log.WithError(err).Error("Не удалось сверить балансы после покупок")
			}
		}
	}

	if anyFailure && !anyProgress {
		log.Warn("Ни одной успешной покупки ни в одном профиле — скупка отключается")
		if err := e.accounts.SetActive(ctx, e.opts.OwnerID, false); err != nil {
			return 0, err
		}
		e.notifier.Notify(e.opts.OwnerID, autoStopNotice())
	}

	return e.opts.CycleDelay, nil
}

// serveProfile ведёт один профиль в пределах одного цикла.
//
// Кандидаты перебираются по убыванию цены; на каждом кандидате покупки
// повторяются, пока позволяют оба лимита. Первая неудачная покупка
// останавливает профиль до следующего цикла — перехода к более дешёвому
// кандидату в том же цикле нет.
func (e *Engine) serveProfile(ctx context.Context, index int, p *profiles.Profile, balances map[accounts.Identity]int64) cycleOutcome {
	var out cycleOutcome

	gifts := e.catalog.BestList(ctx, p.Filter())
	if len(gifts) == 0 {
		return out
	}

	identity := identityFor(p.Sender)
	beforeBought, beforeSpent := p.Bought, p.Spent
	var purchased []catalog.Gift

candidates:
	for _, gift := range gifts {
		for p.Bought < p.Count && p.Spent+gift.Price <= p.Limit {
			// Быстрый отказ: на кэшированном балансе не хватает звёзд.
			// Исполнитель не вызывается, личность отключается сразу.
			if balances[identity] < gift.Price {
				e.disableIdentity(ctx, identity, gift.Price, balances[identity])
				out.failed = true
				break candidates
			}

			ok := e.buyer.Buy(ctx, purchase.Request{
				Identity:     identity,
				GiftID:       gift.ID,
				Price:        gift.Price,
				TargetUserID: p.TargetUserID,
				TargetChatID: p.TargetChatID,
			})
			if !ok {
				out.failed = true
				break candidates
			}

			balances[identity] -= gift.Price

			// Персистим сразу после каждой покупки: при падении процесса
			// теряется максимум одна покупка «в полёте»
			bought, spent, err := e.profiles.ApplyPurchase(ctx, p.ID, gift.ID, gift.Price)
			if err != nil {
				log.WithError(err).WithField("profile_id", p.ID).Error("Ошибка сохранения прогресса — профиль отложен до следующего цикла")
				break candidates
			}
			p.Bought, p.Spent = bought, spent
			purchased = append(purchased, gift)

			if !sleepCtx(ctx, e.opts.PurchaseCooldown) {
				break candidates
			}
		}

		if p.CapsReached() {
			break
		}
	}

	out.progress = p.Bought > beforeBought || p.Spent > beforeSpent

	if p.CapsReached() && !p.Done {
		p.Done = true
		if err := e.profiles.MarkDone(ctx, p.ID); err != nil {
			log.WithError(err).WithField("profile_id", p.ID).Error("Ошибка завершения профиля")
		}
		log.WithField("profile", index+1).Info("Профиль завершён")
		e.notifier.Notify(e.opts.OwnerID, profileSummary(index, p, purchased, true, e.opts.OwnerID))
		return out
	}

	if out.progress {
		log.WithField("profile", index+1).Warn("Профиль продвинулся, но не завершён")
		e.notifier.Notify(e.opts.OwnerID, profileSummary(index, p, purchased, false, e.opts.OwnerID))
	}

	return out
}

// disableIdentity отключает личность, которой не хватило звёзд,
// и уведомляет владельца.
func (e *Engine) disableIdentity(ctx context.Context, identity accounts.Identity, price, balance int64) {
	log.WithFields(log.Fields{
		"identity": identity,
		"price":    price,
		"balance":  balance,
	}).Error("Недостаточно звёзд для покупки")

	var err error
	if identity == accounts.IdentityUserbot {
		err = e.accounts.SetUserbotEnabled(ctx, e.opts.OwnerID, false)
	} else {
		err = e.accounts.SetActive(ctx, e.opts.OwnerID, false)
	}
	if err != nil {
		log.WithError(err).Error("Не удалось отключить личность")
	}

	e.notifier.Notify(e.opts.OwnerID, lowBalanceNotice(identity, price, balance))
}

// identityFor переводит отправителя профиля в личность аккаунта.
func identityFor(sender string) accounts.Identity {
	if sender == profiles.SenderUserbot {
		return accounts.IdentityUserbot
	}
	return accounts.IdentityBot
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
