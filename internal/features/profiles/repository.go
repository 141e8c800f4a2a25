// Package profiles — repository.go выполняет все операции с таблицами
// profiles и purchases. Обновление прогресса и запись в лог покупок
// идут в одной транзакции БД: при падении процесса теряется максимум
// одна покупка «в полёте», двойного учёта не бывает.
package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"giftsninja.ru/gifts-bot/internal/common"
)

// Repository предоставляет методы для работы с профилями и логом покупок.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий профилей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const profileColumns = `
	id, user_id, name,
	min_price, max_price, min_supply, max_supply,
	gift_count, spend_limit,
	target_user_id, target_chat_id, target_type,
	sender, bought, spent, done,
	created_at, updated_at
`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name,
		&p.MinPrice, &p.MaxPrice, &p.MinSupply, &p.MaxSupply,
		&p.Count, &p.Limit,
		&p.TargetUserID, &p.TargetChatID, &p.TargetType,
		&p.Sender, &p.Bought, &p.Spent, &p.Done,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List возвращает профили владельца в порядке создания.
// Движок обслуживает профили строго в этом порядке.
func (r *Repository) List(ctx context.Context, userID int64) ([]Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения профилей: %w", err)
	}
	defer rows.Close()

	var result []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования профиля: %w", err)
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// Get возвращает профиль по id.
func (r *Repository) Get(ctx context.Context, profileID int64) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRow(ctx, query, profileID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения профиля: %w", err)
	}
	return p, nil
}

// Create сохраняет новый профиль и возвращает его id.
func (r *Repository) Create(ctx context.Context, p *Profile) (int64, error) {
	query := `
		INSERT INTO profiles (
			user_id, name,
			min_price, max_price, min_supply, max_supply,
			gift_count, spend_limit,
			target_user_id, target_chat_id, target_type,
			sender, bought, spent, done
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		p.UserID, p.Name,
		p.MinPrice, p.MaxPrice, p.MinSupply, p.MaxSupply,
		p.Count, p.Limit,
		p.TargetUserID, p.TargetChatID, p.TargetType,
		p.Sender, p.Bought, p.Spent, p.Done,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания профиля: %w", err)
	}
	return id, nil
}

// Update перезаписывает профиль целиком (last-write-wins).
func (r *Repository) Update(ctx context.Context, p *Profile) error {
	query := `
		UPDATE profiles SET
			name = $2,
			min_price = $3, max_price = $4, min_supply = $5, max_supply = $6,
			gift_count = $7, spend_limit = $8,
			target_user_id = $9, target_chat_id = $10, target_type = $11,
			sender = $12, bought = $13, spent = $14, done = $15,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		p.ID, p.Name,
		p.MinPrice, p.MaxPrice, p.MinSupply, p.MaxSupply,
		p.Count, p.Limit,
		p.TargetUserID, p.TargetChatID, p.TargetType,
		p.Sender, p.Bought, p.Spent, p.Done,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления профиля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrProfileNotFound
	}
	return nil
}

// Delete удаляет профиль вместе с его логом покупок.
func (r *Repository) Delete(ctx context.Context, profileID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM purchases WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("ошибка удаления лога покупок: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, profileID); err != nil {
		return fmt.Errorf("ошибка удаления профиля: %w", err)
	}
	return tx.Commit(ctx)
}

// ApplyPurchase фиксирует одну успешную покупку: инкрементирует счётчики
// и дописывает лог в одной транзакции. Возвращает свежие значения
// счётчиков — движок проверяет лимиты именно по ним.
func (r *Repository) ApplyPurchase(ctx context.Context, profileID int64, giftID string, price int64) (int, int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var bought int
	var spent int64
	err = tx.QueryRow(ctx, `
		UPDATE profiles
		SET bought = bought + 1, spent = spent + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING bought, spent
	`, profileID, price).Scan(&bought, &spent)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, common.ErrProfileNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка обновления прогресса: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO purchases (profile_id, gift_id, price)
		VALUES ($1, $2, $3)
	`, profileID, giftID, price); err != nil {
		return 0, 0, fmt.Errorf("ошибка записи в лог покупок: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("ошибка фиксации покупки: %w", err)
	}
	return bought, spent, nil
}

// MarkDone помечает профиль завершённым.
func (r *Repository) MarkDone(ctx context.Context, profileID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE profiles SET done = TRUE, updated_at = NOW() WHERE id = $1
	`, profileID)
	if err != nil {
		return fmt.Errorf("ошибка завершения профиля: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrProfileNotFound
	}
	return nil
}

// ResetAll обнуляет прогресс всех профилей владельца и чистит их логи покупок.
// После сброса spent снова равен сумме цен (пустого) лога.
func (r *Repository) ResetAll(ctx context.Context, userID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM purchases
		WHERE profile_id IN (SELECT id FROM profiles WHERE user_id = $1)
	`, userID); err != nil {
		return fmt.Errorf("ошибка очистки лога покупок: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE profiles
		SET bought = 0, spent = 0, done = FALSE, updated_at = NOW()
		WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("ошибка сброса прогресса: %w", err)
	}

	return tx.Commit(ctx)
}

// Purchases возвращает лог покупок профиля в порядке записи.
func (r *Repository) Purchases(ctx context.Context, profileID int64) ([]Purchase, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, profile_id, gift_id, price, created_at
		FROM purchases
		WHERE profile_id = $1
		ORDER BY id
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения лога покупок: %w", err)
	}
	defer rows.Close()

	var result []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.ProfileID, &p.GiftID, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования покупки: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// CountByUser возвращает число профилей владельца.
func (r *Repository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта профилей: %w", err)
	}
	return count, nil
}
