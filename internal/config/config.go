// Package config содержит логику чтения конфигурации сервиса маркетплейса.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultRunAddress   = "localhost:8080"
	defaultTokenTTL     = 72 * time.Hour
	defaultMinTopUp     = "5"
	defaultRedeemLimit  = 10
	defaultRedeemWindow = 10 * time.Minute
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress    string        `env:"RUN_ADDRESS"`
	DatabaseURI   string        `env:"DATABASE_URI"`
	AuthSecret    string        `env:"AUTH_SECRET"`
	AuthTokenTTL  time.Duration `env:"AUTH_TOKEN_TTL"`
	RedisURL      string        `env:"REDIS_URL"`
	AdminLogin    string        `env:"ADMIN_LOGIN"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`

	MinTopUpAmount  decimal.Decimal
	CashbackPercent decimal.Decimal

	RedeemRateLimit  int64         `env:"REDEEM_RATE_LIMIT"`
	RedeemRateWindow time.Duration `env:"REDEEM_RATE_WINDOW"`
}

type moneyEnv struct {
	MinTopUp string `env:"MIN_TOPUP_AMOUNT"`
	Cashback string `env:"CASHBACK_PERCENT"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Значения переменных окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	var money moneyEnv
	if err := env.Parse(&money); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envRedisURL := cfg.RedisURL

	var minTopUp, cashback string
	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret used to sign auth tokens")
	flag.StringVar(&cfg.RedisURL, "r", "", "redis URL for idempotency and rate limiting")
	flag.StringVar(&minTopUp, "min-topup", defaultMinTopUp, "minimum top-up amount")
	flag.StringVar(&cashback, "cashback", "0", "cashback percent credited on purchases")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envRedisURL != "" {
		cfg.RedisURL = envRedisURL
	}
	if money.MinTopUp != "" {
		minTopUp = money.MinTopUp
	}
	if money.Cashback != "" {
		cashback = money.Cashback
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.AuthTokenTTL <= 0 {
		cfg.AuthTokenTTL = defaultTokenTTL
	}
	if cfg.RedeemRateLimit <= 0 {
		cfg.RedeemRateLimit = defaultRedeemLimit
	}
	if cfg.RedeemRateWindow <= 0 {
		cfg.RedeemRateWindow = defaultRedeemWindow
	}

	var err error
	if cfg.MinTopUpAmount, err = parseAmount(minTopUp, defaultMinTopUp); err != nil {
		return nil, fmt.Errorf("parse min top-up amount: %w", err)
	}
	if cfg.CashbackPercent, err = parseAmount(cashback, "0"); err != nil {
		return nil, fmt.Errorf("parse cashback percent: %w", err)
	}
	if cfg.CashbackPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("cashback percent must not exceed 100")
	}

	return cfg, nil
}

func parseAmount(raw, fallback string) (decimal.Decimal, error) {
	if raw == "" {
		raw = fallback
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("value %s must not be negative", raw)
	}
	return v, nil
}
