// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, исполнителя
// покупок, движок скупки и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"giftsninja.ru/gifts-bot/internal/bot"
	"giftsninja.ru/gifts-bot/internal/config"
	"giftsninja.ru/gifts-bot/internal/db/postgres"
	"giftsninja.ru/gifts-bot/internal/features/accounts"
	"giftsninja.ru/gifts-bot/internal/features/catalog"
	"giftsninja.ru/gifts-bot/internal/features/profiles"
	"giftsninja.ru/gifts-bot/internal/features/purchase"
	"giftsninja.ru/gifts-bot/internal/features/sniper"
	"giftsninja.ru/gifts-bot/internal/jobs"
	"giftsninja.ru/gifts-bot/internal/userbot"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Engine    *sniper.Engine
	Scheduler *jobs.Scheduler
	// Cache — кэш каталога юзербота; nil, если мост не настроен.
	Cache  *catalog.Cache
	DB     *pgxpool.Pool
	BotAPI *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Мост юзербота (опционально) ===
	var userbotClient *userbot.Client
	if cfg.UserbotBridgeURL != "" {
		userbotClient = userbot.NewClient(cfg.UserbotBridgeURL)
		log.WithField("url", cfg.UserbotBridgeURL).Info("Мост юзербота настроен")
	}

	// === 4. Репозитории ===
	accountsRepo := accounts.NewRepository(pool)
	profilesRepo := profiles.NewRepository(pool)

	// === 5. Сервисы ===
	var secondaryBalance accounts.BalanceSource
	if userbotClient != nil {
		secondaryBalance = userbotClient
	}
	accountsService := accounts.NewService(accountsRepo, accounts.NewBotBalanceSource(botAPI), secondaryBalance)
	profilesService := profiles.NewService(profilesRepo, cfg.MaxProfiles)

	if err := accountsService.Ensure(ctx, cfg.OwnerUserID); err != nil {
		return nil, fmt.Errorf("ошибка создания аккаунта владельца: %w", err)
	}

	// === 6. Каталог: прямой источник бота + кэш юзербота ===
	var cache *catalog.Cache
	if userbotClient != nil {
		cache = catalog.NewCache(userbotClient, cfg.UserbotRefreshInterval)
	}
	catalogManager := catalog.NewManager(catalog.NewBotSource(botAPI), cache)

	// === 7. Исполнитель покупок ===
	senders := map[accounts.Identity]purchase.Sender{
		accounts.IdentityBot: purchase.NewBotSender(botAPI),
	}
	if userbotClient != nil {
		senders[accounts.IdentityUserbot] = userbotClient
	}
	executor := purchase.NewExecutor(cfg.OwnerUserID, accountsService, senders, cfg.BuyRetries, cfg.DevMode)
	if cfg.DevMode {
		log.Warn("DEV_MODE: покупки симулируются, баланс не тратится")
	}

	// === 8. Бот ===
	b := bot.New(botAPI, cfg, accountsService, profilesService, catalogManager, executor, userbotClient)

	// === 9. Движок скупки ===
	engine := sniper.New(
		sniper.Options{
			OwnerID:          cfg.OwnerUserID,
			PurchaseCooldown: cfg.PurchaseCooldown,
			CycleDelay:       cfg.CycleDelay,
			IdleDelay:        cfg.IdleDelay,
			ErrorDelay:       cfg.ErrorDelay,
		},
		accountsService, profilesService, catalogManager, executor, b,
	)

	// === 10. Планировщик задач ===
	scheduler := jobs.NewScheduler(accountsService, cfg.OwnerUserID, cfg.BalanceResyncSpec)

	return &App{
		Bot:       b,
		Engine:    engine,
		Scheduler: scheduler,
		Cache:     cache,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
		{2, migration002Profiles},
		{3, migration003Purchases},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    user_id BIGINT PRIMARY KEY,
    balance BIGINT NOT NULL DEFAULT 0,
    userbot_balance BIGINT NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT FALSE,
    userbot_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    last_menu_message_id INTEGER,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
`

var migration002Profiles = `
CREATE TABLE IF NOT EXISTS profiles (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(user_id),
    name VARCHAR(64),
    min_price BIGINT NOT NULL,
    max_price BIGINT NOT NULL,
    min_supply BIGINT NOT NULL,
    max_supply BIGINT NOT NULL,
    gift_count INTEGER NOT NULL,
    spend_limit BIGINT NOT NULL,
    target_user_id BIGINT,
    target_chat_id VARCHAR(255),
    target_type VARCHAR(32),
    sender VARCHAR(16) NOT NULL DEFAULT 'bot',
    bought INTEGER NOT NULL DEFAULT 0,
    spent BIGINT NOT NULL DEFAULT 0,
    done BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_profiles_user_id ON profiles(user_id);
`

var migration003Purchases = `
CREATE TABLE IF NOT EXISTS purchases (
    id BIGSERIAL PRIMARY KEY,
    profile_id BIGINT NOT NULL REFERENCES profiles(id),
    gift_id VARCHAR(64) NOT NULL,
    price BIGINT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_purchases_profile_id ON purchases(profile_id);
`
