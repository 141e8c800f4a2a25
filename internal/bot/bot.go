// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go создаёт все компоненты, маршрутизирует апдейты и запускает polling.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/bot/filters"
	"giftsninja.ru/gifts-bot/internal/bot/middleware"
	"giftsninja.ru/gifts-bot/internal/config"
	"giftsninja.ru/gifts-bot/internal/features/accounts"
	"giftsninja.ru/gifts-bot/internal/features/catalog"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
	"giftsninja.ru/gifts-bot/internal/features/purchase"
	"giftsninja.ru/gifts-bot/internal/userbot"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	ownerFilter *filters.OwnerFilter
	rateLimiter *middleware.RateLimiter
	wizard      *Wizard

	accounts *accounts.Service
	profiles *profiles.Service
	catalog  *catalog.Manager
	executor *purchase.Executor
	userbot  *userbot.Client // nil, если мост не настроен

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
// userbotClient может быть nil — тогда разделы юзербота недоступны.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	accountsService *accounts.Service,
	profilesService *profiles.Service,
	catalogManager *catalog.Manager,
	executor *purchase.Executor,
	userbotClient *userbot.Client,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:         api,
		cfg:         cfg,
		ownerFilter: filters.NewOwnerFilter(cfg.OwnerUserID),
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		wizard:      NewWizard(),
		accounts:    accountsService,
		profiles:    profilesService,
		catalog:     catalogManager,
		executor:    executor,
		userbot:     userbotClient,
		inflight:    make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	// Предоплата по инвойсу: подтверждаем всегда, итог придёт
	// отдельным SuccessfulPayment
	if update.PreCheckoutQuery != nil {
		b.answerPreCheckout(update.PreCheckoutQuery)
		return
	}

	if update.CallbackQuery != nil {
		if !b.ownerFilter.CheckCallbackAccess(update.CallbackQuery) {
			return
		}
		middleware.LogCallback(update.CallbackQuery)
		b.routeCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}
	message := update.Message

	middleware.LogMessage(message)

	if !b.ownerFilter.CheckAccess(message) {
		return
	}
	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	if message.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(ctx, message)
		return
	}
	if message.Text == "" {
		return
	}

	if message.IsCommand() {
		b.routeCommand(ctx, message)
		return
	}

	// Не команда: возможно, диалог ждёт ввода
	if b.wizard.Active(message.From.ID) {
		b.handleWizardInput(ctx, message)
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *tgbotapi.Message) {
	cmd := message.Command()
	log.WithField("cmd", cmd).Debug("routing command")

	switch cmd {
	case "start":
		b.wizard.Clear(message.From.ID)
		if err := b.accounts.Ensure(ctx, b.cfg.OwnerUserID); err != nil {
			log.WithError(err).Error("Ошибка создания аккаунта владельца")
			return
		}
		if _, err := b.accounts.RefreshBalances(ctx, b.cfg.OwnerUserID); err != nil {
			log.WithError(err).Warn("Не удалось сверить балансы на /start")
		}
		b.updateMenu(ctx, message.Chat.ID)

	case "cancel":
		b.wizard.Clear(message.From.ID)
		b.sendMessage(message.Chat.ID, "🚫 Действие отменено.")
		b.updateMenu(ctx, message.Chat.ID)

	case "withdraw_all":
		b.handleWithdrawAll(ctx, message.Chat.ID)

	case "refund":
		b.handleRefundCommand(ctx, message.Chat.ID, strings.Fields(message.CommandArguments()))

	default:
		b.sendMessage(message.Chat.ID, "Неизвестная команда. Откройте меню: /start")
	}
}

// Notify отправляет владельцу HTML-сообщение. Реализует sniper.Notifier.
func (b *Bot) Notify(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить уведомление")
	}
}

// sendMessage — утилита для отправки HTML-сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// answerCallback закрывает "часики" на кнопке, опционально с тостом.
func (b *Bot) answerCallback(queryID, text string) {
	callback := tgbotapi.NewCallback(queryID, text)
	if _, err := b.api.Request(callback); err != nil {
		log.WithError(err).Debug("Не удалось ответить на callback")
	}
}

// answerPreCheckout подтверждает предоплату по инвойсу.
func (b *Bot) answerPreCheckout(query *tgbotapi.PreCheckoutQuery) {
	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	}
	if _, err := b.api.Request(cfg); err != nil {
		log.WithError(err).Error("Ошибка подтверждения предоплаты")
	}
}
