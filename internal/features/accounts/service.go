// Package accounts — service.go содержит бизнес-логику аккаунта:
// флаги скупки/юзербота и сверку кэшированных балансов с источником истины.
package accounts

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// BalanceSource отдаёт актуальный баланс звёзд одной личности
// из внешнего источника истины (Bot API или мост юзербота).
type BalanceSource interface {
	StarBalance(ctx context.Context) (int64, error)
}

// store — операции репозитория, нужные сервису.
type store interface {
	Ensure(ctx context.Context, userID int64) error
	Get(ctx context.Context, userID int64) (*Account, error)
	SetActive(ctx context.Context, userID int64, active bool) error
	SetUserbotEnabled(ctx context.Context, userID int64, enabled bool) error
	AdjustBalance(ctx context.Context, userID int64, identity Identity, delta int64) (int64, error)
	SetBalance(ctx context.Context, userID int64, identity Identity, value int64) error
	SetLastMenuMessageID(ctx context.Context, userID int64, messageID int) error
}

// Service управляет аккаунтом владельца.
type Service struct {
	repo      store
	primary   BalanceSource // баланс бота
	secondary BalanceSource // баланс юзербота, nil если мост не настроен
}

// NewService создаёт сервис аккаунтов.
// secondary может быть nil — тогда баланс юзербота всегда сбрасывается в 0.
func NewService(repo store, primary, secondary BalanceSource) *Service {
	return &Service{repo: repo, primary: primary, secondary: secondary}
}

// Ensure гарантирует существование записи владельца.
func (s *Service) Ensure(ctx context.Context, userID int64) error {
	return s.repo.Ensure(ctx, userID)
}

// Get возвращает аккаунт владельца.
func (s *Service) Get(ctx context.Context, userID int64) (*Account, error) {
	return s.repo.Get(ctx, userID)
}

// SetActive переключает глобальный флаг скупки.
func (s *Service) SetActive(ctx context.Context, userID int64, active bool) error {
	return s.repo.SetActive(ctx, userID, active)
}

// SetUserbotEnabled переключает флаг юзербота.
func (s *Service) SetUserbotEnabled(ctx context.Context, userID int64, enabled bool) error {
	return s.repo.SetUserbotEnabled(ctx, userID, enabled)
}

// AdjustBalance изменяет кэшированный баланс личности, не допуская минуса.
func (s *Service) AdjustBalance(ctx context.Context, userID int64, identity Identity, delta int64) (int64, error) {
	return s.repo.AdjustBalance(ctx, userID, identity, delta)
}

// SetLastMenuMessageID сохраняет id последнего сообщения меню.
func (s *Service) SetLastMenuMessageID(ctx context.Context, userID int64, messageID int) error {
	return s.repo.SetLastMenuMessageID(ctx, userID, messageID)
}

// RefreshBalances пересинхронизирует кэшированные балансы с источниками истины
// и возвращает актуальный баланс бота.
//
// Ошибка получения баланса юзербота не фатальна: кэш сбрасывается в 0,
// чтобы скупка через юзербота не стартовала на устаревших данных.
func (s *Service) RefreshBalances(ctx context.Context, userID int64) (int64, error) {
	if s.secondary != nil {
		userbotBalance, err := s.secondary.StarBalance(ctx)
		if err != nil {
			log.WithError(err).Error("Не удалось получить баланс юзербота")
			userbotBalance = 0
		}
		if err := s.repo.SetBalance(ctx, userID, IdentityUserbot, userbotBalance); err != nil {
			return 0, err
		}
	} else {
		if err := s.repo.SetBalance(ctx, userID, IdentityUserbot, 0); err != nil {
			return 0, err
		}
	}

	balance, err := s.primary.StarBalance(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.repo.SetBalance(ctx, userID, IdentityBot, balance); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"balance": balance,
	}).Debug("Балансы сверены с источником истины")

	return balance, nil
}
