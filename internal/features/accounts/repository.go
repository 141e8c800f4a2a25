// Package accounts — repository.go выполняет все операции с таблицей users.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"giftsninja.ru/gifts-bot/internal/common"
)

// Repository предоставляет методы для работы с аккаунтом владельца.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий аккаунтов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ensure создаёт запись владельца, если её ещё нет.
// Начальное состояние: нулевые балансы, скупка выключена.
func (r *Repository) Ensure(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO users (user_id, balance, userbot_balance, active, userbot_enabled)
		VALUES ($1, 0, 0, FALSE, FALSE)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("ошибка создания аккаунта: %w", err)
	}
	return nil
}

// Get возвращает аккаунт владельца.
func (r *Repository) Get(ctx context.Context, userID int64) (*Account, error) {
	query := `
		SELECT user_id, balance, userbot_balance, active, userbot_enabled,
		       last_menu_message_id, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`
	var a Account
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&a.UserID, &a.Balance, &a.UserbotBalance, &a.Active, &a.UserbotEnabled,
		&a.LastMenuMessageID, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения аккаунта: %w", err)
	}
	return &a, nil
}

// SetActive переключает глобальный флаг скупки.
func (r *Repository) SetActive(ctx context.Context, userID int64, active bool) error {
	query := `UPDATE users SET active = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.db.Exec(ctx, query, userID, active); err != nil {
		return fmt.Errorf("ошибка переключения скупки: %w", err)
	}
	return nil
}

// SetUserbotEnabled переключает флаг юзербота.
func (r *Repository) SetUserbotEnabled(ctx context.Context, userID int64, enabled bool) error {
	query := `UPDATE users SET userbot_enabled = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.db.Exec(ctx, query, userID, enabled); err != nil {
		return fmt.Errorf("ошибка переключения юзербота: %w", err)
	}
	return nil
}

// AdjustBalance изменяет кэшированный баланс личности на delta.
// Результат зажимается на нуле прямо в SQL: реальный баланс живёт
// на стороне Telegram, локальный кэш не должен уходить в минус.
func (r *Repository) AdjustBalance(ctx context.Context, userID int64, identity Identity, delta int64) (int64, error) {
	column := "balance"
	if identity == IdentityUserbot {
		column = "userbot_balance"
	}
	query := fmt.Sprintf(`
		UPDATE users
		SET %s = GREATEST(0, %s + $2), updated_at = NOW()
		WHERE user_id = $1
		RETURNING %s
	`, column, column, column)

	var balance int64
	if err := r.db.QueryRow(ctx, query, userID, delta).Scan(&balance); err != nil {
		return 0, fmt.Errorf("ошибка изменения баланса (%s): %w", identity, err)
	}
	return balance, nil
}

// SetBalance выставляет кэшированный баланс личности в абсолютное значение.
// Единственный путь, которым кэш может вырасти извне покупок/пополнений.
func (r *Repository) SetBalance(ctx context.Context, userID int64, identity Identity, value int64) error {
	column := "balance"
	if identity == IdentityUserbot {
		column = "userbot_balance"
	}
	query := fmt.Sprintf(`
		UPDATE users SET %s = GREATEST(0, $2), updated_at = NOW() WHERE user_id = $1
	`, column)
	if _, err := r.db.Exec(ctx, query, userID, value); err != nil {
		return fmt.Errorf("ошибка записи баланса (%s): %w", identity, err)
	}
	return nil
}

// SetLastMenuMessageID сохраняет id последнего сообщения меню.
func (r *Repository) SetLastMenuMessageID(ctx context.Context, userID int64, messageID int) error {
	query := `UPDATE users SET last_menu_message_id = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.db.Exec(ctx, query, userID, messageID); err != nil {
		return fmt.Errorf("ошибка записи id меню: %w", err)
	}
	return nil
}
