// Package catalog отвечает за получение списка доступных подарков
// из двух источников: Bot API (синхронно) и мост юзербота (через кэш).
// models.go описывает подарок, фильтр профиля и общую фильтрацию/сортировку.
package catalog

import (
	"context"
	"sort"
)

// Gift — снимок одного подарка из каталога.
// Движок не владеет подарками: каждый цикл получает свежий срез.
type Gift struct {
	ID            string // ID подарка в каталоге
	Price         int64  // Цена в звёздах
	Supply        int64  // Общий тираж, 0 = безлимитный
	Left          int64  // Остаток тиража
	StickerFileID string // file_id стикера подарка
	Emoji         string // Эмодзи-подпись
}

// Unlimited сообщает, что у подарка нет ограничения тиража.
func (g Gift) Unlimited() bool {
	return g.Supply == 0
}

// Filter — границы отбора подарков.
type Filter struct {
	MinPrice  int64
	MaxPrice  int64
	MinSupply int64
	MaxSupply int64
	// AllowUnlimited: безлимитные подарки проходят фильтр
	// без проверки границ тиража.
	AllowUnlimited bool
}

// Source отдаёт список подарков, прошедших фильтр.
type Source interface {
	AvailableGifts(ctx context.Context, f Filter) ([]Gift, error)
}

// Match проверяет один подарок против фильтра.
func (f Filter) Match(g Gift) bool {
	if g.Price < f.MinPrice || g.Price > f.MaxPrice {
		return false
	}
	if f.AllowUnlimited && g.Unlimited() {
		return true
	}
	return g.Supply >= f.MinSupply && g.Supply <= f.MaxSupply
}

// Apply фильтрует срез подарков.
func (f Filter) Apply(gifts []Gift) []Gift {
	filtered := make([]Gift, 0, len(gifts))
	for _, g := range gifts {
		if f.Match(g) {
			filtered = append(filtered, g)
		}
	}
	return filtered
}

// SortByPriceDesc сортирует подарки по убыванию цены.
// Движок скупки сначала тратит бюджет на самые дорогие позиции.
func SortByPriceDesc(gifts []Gift) {
	sort.SliceStable(gifts, func(i, j int) bool {
		return gifts[i].Price > gifts[j].Price
	})
}

// WideOpen — фильтр «всё подряд», используется кэшем юзербота,
// чтобы держать полный снимок каталога и фильтровать его в памяти.
func WideOpen() Filter {
	return Filter{
		MinPrice:  1,
		MaxPrice:  10_000_000,
		MinSupply: 1,
		MaxSupply: 100_000_000,
	}
}
