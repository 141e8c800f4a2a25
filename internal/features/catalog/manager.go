// Package catalog — manager.go сводит два источника каталога в один список
// кандидатов для движка скупки.
package catalog

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Manager выбирает лучший список кандидатов между синхронным каталогом бота
// и кэшированным каталогом юзербота.
type Manager struct {
	primary Source
	cache   *Cache // nil, если юзербот не настроен
}

// NewManager создаёт менеджер каталога. cache может быть nil.
func NewManager(primary Source, cache *Cache) *Manager {
	return &Manager{primary: primary, cache: cache}
}

// BestList возвращает список кандидатов для фильтра профиля.
//
// Каталог бота запрашивается синхронно; каталог юзербота берётся из кэша
// и фильтруется в памяти. Кэшированный список выигрывает, только если он
// свежий И строго длиннее — несвежему снимку доверять нельзя, а при равной
// длине предпочтение у прямого источника.
//
// Оба списка приходят отсортированными по убыванию цены.
func (m *Manager) BestList(ctx context.Context, f Filter) []Gift {
	botGifts, err := m.primary.AvailableGifts(ctx, f)
	if err != nil {
		log.WithError(err).Error("Ошибка получения каталога бота")
		botGifts = nil
	}

	if m.cache == nil {
		return botGifts
	}

	userbotGifts := m.cache.Snapshot(f)
	if m.cache.Fresh() && len(userbotGifts) > len(botGifts) {
		log.WithFields(log.Fields{
			"userbot": len(userbotGifts),
			"bot":     len(botGifts),
		}).Debug("Выбран кэшированный каталог юзербота")
		return userbotGifts
	}

	return botGifts
}
