// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: периодическую сверку кэшированных
// балансов звёзд с источником истины.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/features/accounts"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron       *cron.Cron
	accounts   *accounts.Service
	ownerID    int64
	resyncSpec string
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(accountsService *accounts.Service, ownerID int64, resyncSpec string) *Scheduler {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Europe/Moscow, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		accounts:   accountsService,
		ownerID:    ownerID,
		resyncSpec: resyncSpec,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Сверка балансов: кэш в БД дрейфует от возвратов и пополнений,
	// сделанных мимо бота
	s.cron.AddFunc(s.resyncSpec, func() {
		log.Debug("[CRON] Сверка балансов звёзд")
		if _, err := s.accounts.RefreshBalances(ctx, s.ownerID); err != nil {
			log.WithError(err).Error("[CRON] Ошибка сверки балансов")
		}
	})

	s.cron.Start()
	log.WithField("spec", s.resyncSpec).Info("Планировщик задач запущен (Europe/Moscow)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
