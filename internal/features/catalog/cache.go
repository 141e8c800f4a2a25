// Package catalog — cache.go держит фоновый снимок каталога юзербота.
// Снимок обновляется по таймеру с джиттером; при ошибке обновления
// старый снимок сохраняется (лучше несвежий, чем пустой).
package catalog

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// jitterMax — верхняя граница случайной добавки к интервалу обновления.
// Та же величина даёт снимку один цикл обновления запаса свежести.
const jitterMax = 10 * time.Second

// Cache — фоновый кэш каталога юзербота.
type Cache struct {
	source   Source
	interval time.Duration

	mu        sync.RWMutex
	snapshot  []Gift
	updatedAt time.Time

	// переопределяется в тестах
	now func() time.Time
}

// NewCache создаёт кэш каталога для указанного источника.
// interval — базовая пауза между обновлениями; фактическая пауза
// случайна в диапазоне [interval, interval+10s].
func NewCache(source Source, interval time.Duration) *Cache {
	return &Cache{
		source:   source,
		interval: interval,
		now:      time.Now,
	}
}

// Run запускает цикл обновления. Блокируется до отмены контекста.
func (c *Cache) Run(ctx context.Context) {
	log.WithField("interval", c.interval).Info("Кэш каталога юзербота запущен")
	for {
		c.refresh(ctx)

		delay := c.interval + time.Duration(rand.Int63n(int64(jitterMax)))
		select {
		case <-ctx.Done():
			log.Info("Кэш каталога юзербота остановлен")
			return
		case <-time.After(delay):
		}
	}
}

// refresh забирает полный каталог юзербота и подменяет снимок.
func (c *Cache) refresh(ctx context.Context) {
	gifts, err := c.source.AvailableGifts(ctx, WideOpen())
	if err != nil {
		// Снимок не трогаем: предыдущий каталог полезнее пустого
		log.WithError(err).Error("Ошибка обновления каталога юзербота")
		return
	}

	c.mu.Lock()
	c.snapshot = gifts
	c.updatedAt = c.now()
	c.mu.Unlock()

	log.WithField("gifts", len(gifts)).Debug("Каталог юзербота обновлён")
}

// Snapshot возвращает текущий снимок каталога, отфильтрованный по f
// и отсортированный по убыванию цены.
func (c *Cache) Snapshot(f Filter) []Gift {
	c.mu.RLock()
	defer c.mu.RUnlock()

	filtered := f.Apply(c.snapshot)
	SortByPriceDesc(filtered)
	return filtered
}

// Fresh сообщает, что снимку меньше одного цикла обновления (база + 10с).
func (c *Cache) Fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.updatedAt.IsZero() {
		return false
	}
	return c.now().Sub(c.updatedAt) < c.interval+jitterMax
}
