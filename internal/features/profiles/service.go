// Package profiles — service.go содержит бизнес-логику профилей:
// валидацию, создание/редактирование, сброс прогресса и учёт покупок.
package profiles

import (
	"context"
	"regexp"

	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/common"
)

// nameRe — до 12 символов: буквы, цифры, пробел.
var nameRe = regexp.MustCompile(`^[\p{L}\p{N} ]{1,12}$`)

// store — операции репозитория, нужные сервису.
type store interface {
	List(ctx context.Context, userID int64) ([]Profile, error)
	Get(ctx context.Context, profileID int64) (*Profile, error)
	Create(ctx context.Context, p *Profile) (int64, error)
	Update(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, profileID int64) error
	ApplyPurchase(ctx context.Context, profileID int64, giftID string, price int64) (int, int64, error)
	MarkDone(ctx context.Context, profileID int64) error
	ResetAll(ctx context.Context, userID int64) error
	Purchases(ctx context.Context, profileID int64) ([]Purchase, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
}

// Service управляет профилями скупки.
type Service struct {
	repo        store
	maxProfiles int
}

// NewService создаёт сервис профилей.
func NewService(repo store, maxProfiles int) *Service {
	return &Service{repo: repo, maxProfiles: maxProfiles}
}

// ValidateName проверяет отображаемое имя профиля.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return common.ErrInvalidProfileName
	}
	return nil
}

// Validate проверяет целостность профиля перед сохранением.
func Validate(p *Profile) error {
	if p.MinPrice <= 0 || p.MaxPrice <= 0 || p.Count <= 0 || p.Limit <= 0 {
		return common.ErrInvalidAmount
	}
	if p.MinPrice > p.MaxPrice {
		return common.ErrInvalidPriceRange
	}
	if p.MinSupply > p.MaxSupply {
		return common.ErrInvalidSupplyRange
	}
	if p.Name != nil {
		if err := ValidateName(*p.Name); err != nil {
			return err
		}
	}

	hasUser := p.TargetUserID != nil && *p.TargetUserID != 0
	hasChat := p.TargetChatID != nil && *p.TargetChatID != ""
	if hasUser && hasChat {
		return common.ErrAmbiguousTarget
	}
	if !hasUser && !hasChat {
		return common.ErrNoTarget
	}

	if p.Sender != SenderBot && p.Sender != SenderUserbot {
		return common.ErrUnknownIdentity
	}
	return nil
}

// List возвращает профили владельца в порядке обслуживания.
// Если профилей нет — создаёт профиль по умолчанию: без профилей бот не живёт.
func (s *Service) List(ctx context.Context, userID int64) ([]Profile, error) {
	result, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		def := Default(userID)
		if _, err := s.repo.Create(ctx, &def); err != nil {
			return nil, err
		}
		return s.repo.List(ctx, userID)
	}
	return result, nil
}

// Get возвращает профиль по id.
func (s *Service) Get(ctx context.Context, profileID int64) (*Profile, error) {
	return s.repo.Get(ctx, profileID)
}

// Create валидирует и сохраняет новый профиль с нулевым прогрессом.
func (s *Service) Create(ctx context.Context, p *Profile) (int64, error) {
	count, err := s.repo.CountByUser(ctx, p.UserID)
	if err != nil {
		return 0, err
	}
	if count >= s.maxProfiles {
		return 0, common.ErrTooManyProfiles
	}

	// Новый профиль всегда стартует с чистым прогрессом
	p.Bought = 0
	p.Spent = 0
	p.Done = false

	if err := Validate(p); err != nil {
		return 0, err
	}
	return s.repo.Create(ctx, p)
}

// Update валидирует и перезаписывает профиль.
// Каждый шаг мастера сохраняет целиком валидный профиль —
// промежуточных состояний снаружи не видно.
func (s *Service) Update(ctx context.Context, p *Profile) error {
	if err := Validate(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// Delete удаляет профиль. Последний профиль не удаляется, а заменяется
// профилем по умолчанию: у владельца всегда есть хотя бы один.
func (s *Service) Delete(ctx context.Context, userID, profileID int64) error {
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return err
	}

	if count <= 1 {
		current, err := s.repo.Get(ctx, profileID)
		if err != nil {
			return err
		}
		def := Default(userID)
		def.ID = current.ID
		log.WithField("profile_id", profileID).Info("Последний профиль заменён профилем по умолчанию")
		return s.repo.Update(ctx, &def)
	}

	return s.repo.Delete(ctx, profileID)
}

// ResetAll обнуляет прогресс всех профилей владельца.
func (s *Service) ResetAll(ctx context.Context, userID int64) error {
	return s.repo.ResetAll(ctx, userID)
}

// ApplyPurchase фиксирует успешную покупку и возвращает свежие счётчики.
func (s *Service) ApplyPurchase(ctx context.Context, profileID int64, giftID string, price int64) (int, int64, error) {
	return s.repo.ApplyPurchase(ctx, profileID, giftID, price)
}

// MarkDone помечает профиль завершённым.
func (s *Service) MarkDone(ctx context.Context, profileID int64) error {
	return s.repo.MarkDone(ctx, profileID)
}

// Purchases возвращает лог покупок профиля.
func (s *Service) Purchases(ctx context.Context, profileID int64) ([]Purchase, error) {
	return s.repo.Purchases(ctx, profileID)
}
