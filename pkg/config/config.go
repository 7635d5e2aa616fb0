package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	// EnvPrefix is empty: every variable carries the WALLET_ prefix in its tag.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Withdrawals  WithdrawalsConfig
	Conversion   ConversionConfig
	Accrual      AccrualConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Withdrawals.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Conversion.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WALLET_APP_ENV" required:"true"`
	Port         string `envconfig:"WALLET_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"WALLET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WALLET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"WALLET_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"WALLET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WALLET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WALLET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WALLET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WALLET_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"WALLET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WALLET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WALLET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WALLET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WALLET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig configures token verification only. The engine never mints
// tokens; identity is an external collaborator.
type JWTConfig struct {
	Secret string `envconfig:"WALLET_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"WALLET_JWT_ISSUER" required:"true"`
}

// WithdrawalsConfig carries the per-currency UTC-day withdrawal caps. Caps
// cover amount + fee of pending and approved requests combined.
type WithdrawalsConfig struct {
	DailyCapUSD  decimal.Decimal `envconfig:"WALLET_WITHDRAWAL_DAILY_CAP_USD" default:"10000"`
	DailyCapUSDT decimal.Decimal `envconfig:"WALLET_WITHDRAWAL_DAILY_CAP_USDT" default:"10000"`
}

func (w WithdrawalsConfig) validate() error {
	if w.DailyCapUSD.IsNegative() || w.DailyCapUSDT.IsNegative() {
		return fmt.Errorf("withdrawal daily caps must be non-negative")
	}
	return nil
}

// ConversionConfig is the fee schedule for USDT to USD conversions.
type ConversionConfig struct {
	FxRate      decimal.Decimal `envconfig:"WALLET_CONVERSION_FX_RATE" default:"1.0"`
	MarkupPct   decimal.Decimal `envconfig:"WALLET_CONVERSION_MARKUP_PCT" default:"0.5"`
	FeeFixedUsd decimal.Decimal `envconfig:"WALLET_CONVERSION_FEE_FIXED_USD" default:"1.0"`
	FeePct      decimal.Decimal `envconfig:"WALLET_CONVERSION_FEE_PCT" default:"0.1"`
}

func (c ConversionConfig) validate() error {
	if !c.FxRate.IsPositive() {
		return fmt.Errorf("conversion fx rate must be positive")
	}
	if c.MarkupPct.IsNegative() || c.FeePct.IsNegative() || c.FeeFixedUsd.IsNegative() {
		return fmt.Errorf("conversion fees must be non-negative")
	}
	return nil
}

type AccrualConfig struct {
	Interval time.Duration `envconfig:"WALLET_ACCRUAL_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"WALLET_ACCRUAL_LOCK_TTL" default:"2h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"WALLET_AUTO_MIGRATE" default:"false"`
}
