// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Владелец бота — единственный пользователь, которому разрешён доступ
	OwnerUserID int64 `envconfig:"TELEGRAM_USER_ID" required:"true"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"gifts_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// DEV_MODE включает симуляцию покупок: баланс не трогается,
	// сеть не используется, успех случайный.
	DevMode bool `envconfig:"DEV_MODE" default:"false"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Скупщик подарков ---
	// Пауза между двумя покупками внутри одного профиля
	PurchaseCooldown time.Duration `envconfig:"PURCHASE_COOLDOWN" default:"300ms"`
	// Пауза между циклами воркера
	CycleDelay time.Duration `envconfig:"CYCLE_DELAY" default:"1500ms"`
	// Пауза, когда скупка выключена
	IdleDelay time.Duration `envconfig:"IDLE_DELAY" default:"1s"`
	// Пауза после ошибки цикла
	ErrorDelay time.Duration `envconfig:"ERROR_DELAY" default:"5s"`
	// Число попыток покупки одного подарка
	BuyRetries int `envconfig:"BUY_RETRIES" default:"3"`
	// Лимит профилей на владельца (длина сообщения меню ограничена)
	MaxProfiles int `envconfig:"MAX_PROFILES" default:"3"`

	// --- Userbot ---
	// Адрес моста юзербота (sidecar с MTProto-сессией). Пусто — юзербот выключен.
	UserbotBridgeURL string `envconfig:"USERBOT_BRIDGE_URL" default:""`
	// Базовый интервал обновления кэша каталога юзербота,
	// фактическая пауза — от базы до базы+10с
	UserbotRefreshInterval time.Duration `envconfig:"USERBOT_REFRESH_INTERVAL" default:"50s"`

	// --- Jobs ---
	// Расписание фоновой сверки балансов с источником истины
	BalanceResyncSpec string `envconfig:"BALANCE_RESYNC_SPEC" default:"*/10 * * * *"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.OwnerUserID == 0 {
		return fmt.Errorf("TELEGRAM_USER_ID не задан или равен 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.PurchaseCooldown < 0 || c.CycleDelay <= 0 || c.IdleDelay <= 0 || c.ErrorDelay <= 0 {
		return fmt.Errorf("некорректные паузы воркера")
	}
	if c.BuyRetries <= 0 {
		return fmt.Errorf("BUY_RETRIES должен быть > 0")
	}
	if c.MaxProfiles <= 0 {
		return fmt.Errorf("MAX_PROFILES должен быть > 0")
	}
	if c.UserbotRefreshInterval < 10*time.Second {
		return fmt.Errorf("USERBOT_REFRESH_INTERVAL должен быть не меньше 10s")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
