package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env         string `env:"ENV" env-default:"local"`
	AliasesFile string `env:"ALIASES_FILE"`
	HTTP        HTTPConfig
	Database    DBConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Security    SecConfig
	Prices      PricesConfig
	Sync        SyncConfig
	Session     SessionConfig
}

type HTTPConfig struct {
	Port    uint16        `env:"HTTP_PORT" env-default:"8080"`
	Timeout time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
}

type DBConfig struct {
	Driver     string `env:"DB_DRIVER" env-default:"postgres"`
	Host       string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port       uint16 `env:"POSTGRES_PORT" env-default:"5432"`
	User       string `env:"POSTGRES_USER" env-default:"postgres"`
	Password   string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName     string `env:"POSTGRES_DB" env-default:"cryptovault"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"cryptovault.db"`
}

// RedisConfig is optional: with an empty address the price cache is disabled
// and identity events stay in-process.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Channel  string `env:"REDIS_EVENTS_CHANNEL" env-default:"cryptovault.identity"`
}

type KafkaConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS" env-separator:","`
	Topic        string        `env:"KAFKA_TOPIC" env-default:"cryptovault.prices"`
	BatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT" env-default:"2s"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" env-default:"10s"`
	MaxAttempts  int           `env:"KAFKA_MAX_ATTEMPTS" env-default:"3"`
}

type SecConfig struct {
	JWTSecret         string        `env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	ResetTokenTTL     time.Duration `env:"RESET_TOKEN_TTL" env-default:"1h"`
	RecentLoginWindow time.Duration `env:"RECENT_LOGIN_WINDOW" env-default:"5m"`
	CleanupInterval   time.Duration `env:"TOKEN_CLEANUP_INTERVAL" env-default:"1h"`
}

type PricesConfig struct {
	BaseURL      string        `env:"PRICES_BASE_URL" env-default:"https://api.coingecko.com/api/v3"`
	APIKey       string        `env:"PRICES_API_KEY"`
	PollInterval time.Duration `env:"PRICES_POLL_INTERVAL" env-default:"60s"`
	Timeout      time.Duration `env:"PRICES_TIMEOUT" env-default:"10s"`
	CacheTTL     time.Duration `env:"PRICES_CACHE_TTL" env-default:"30s"`
}

type SyncConfig struct {
	Debounce time.Duration `env:"SYNC_DEBOUNCE" env-default:"500ms"`
	Timeout  time.Duration `env:"SYNC_TIMEOUT" env-default:"10s"`
}

type SessionConfig struct {
	IdleTTL        time.Duration `env:"SESSION_IDLE_TTL" env-default:"30m"`
	SweepInterval  time.Duration `env:"SESSION_SWEEP_INTERVAL" env-default:"1m"`
	CookieName     string        `env:"SESSION_COOKIE" env-default:"cv_session"`
	LangCookieName string        `env:"LANG_COOKIE" env-default:"cv_lang"`
	CookieSecure   bool          `env:"COOKIE_SECURE" env-default:"false"`
}

func MustLoad() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment variables")
	}

	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("failed to read environment variables", "error", err)
		os.Exit(1)
	}

	return &cfg
}
