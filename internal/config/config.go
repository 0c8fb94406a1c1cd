package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"kasturi-ledger/pkg/logger"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Auth   AuthConfig
	Redis  RedisConfig
	Ledger LedgerConfig
	Seed   SeedConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"Kasturi Ledger v1.0"`
	Port     string `envconfig:"PORT" default:"3000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// StoreTimezone decides what "today" means for manufacturing dates
	// and the stock-movement report.
	StoreTimezone string `envconfig:"STORE_TIMEZONE" default:"Asia/Kolkata"`
}

type DBConfig struct {
	// Driver is "postgres" in production; "sqlite" runs against a local file.
	Driver     string `envconfig:"DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"DB_SQLITE_PATH" default:"kasturi.db"`

	URL      string `envconfig:"DATABASE_URL"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME" default:"kasturi"`

	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from DB_*.
func (c DBConfig) DSN(timezone string) string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, timezone,
	)
}

type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET" default:"your-super-secret-key-change-in-production"`
	TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"24h"`
}

type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL  time.Duration `envconfig:"LOCK_TTL" default:"10s"`
}

// Enabled reports whether aggregate locks should go through Redis.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type LedgerConfig struct {
	TierSilver        int64 `envconfig:"TIER_SILVER" default:"200"`
	TierGold          int64 `envconfig:"TIER_GOLD" default:"1000"`
	LowStockThreshold int   `envconfig:"LOW_STOCK_THRESHOLD" default:"10"`
}

type SeedConfig struct {
	AdminEmail    string `envconfig:"SEED_ADMIN_EMAIL" default:"admin@kasturimasale.in"`
	AdminPassword string `envconfig:"SEED_ADMIN_PASSWORD" default:"admin123"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn(".env file not found, relying on system env")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Ledger.TierSilver <= 0 || cfg.Ledger.TierGold <= cfg.Ledger.TierSilver {
		return nil, fmt.Errorf("load config: tier thresholds must satisfy 0 < TIER_SILVER < TIER_GOLD")
	}
	return &cfg, nil
}

// Location resolves the store timezone, falling back to IST when tzdata
// is unavailable.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}
