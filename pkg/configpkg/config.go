// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the ledger and payments services.
//
// The values are read by viper from a config file or environment variables.
// Each service reads its own file and ignores the keys it does not use.
type Config struct {
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	Environement        string        `mapstructure:"GO_ENV"`

	// Ledger service.
	InitialBalance int64         `mapstructure:"INITIAL_BALANCE"`
	RedisAddress   string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`

	// Payments service.
	LedgerURL              string        `mapstructure:"LEDGER_URL"`
	LedgerTimeout          time.Duration `mapstructure:"LEDGER_TIMEOUT"`
	SettlementDelay        time.Duration `mapstructure:"SETTLEMENT_DELAY"`
	SchedulerInterval      time.Duration `mapstructure:"SCHEDULER_INTERVAL"`
	SchedulerConcurrency   int           `mapstructure:"SCHEDULER_CONCURRENCY"`
	SchedulerTokenDuration time.Duration `mapstructure:"SCHEDULER_TOKEN_DURATION"`
	StalePendingAfter      time.Duration `mapstructure:"STALE_PENDING_AFTER"`
}

// ErrInvalidConfig indicates configuration values that cannot work together.
var ErrInvalidConfig = errors.New("invalid config")

// TransferDeadline is the longest a transfer can stay PENDING while it is
// still in flight: the settlement delay plus a balance read and a debit.
func (c Config) TransferDeadline() time.Duration {
	return c.SettlementDelay + 2*c.LedgerTimeout
}

// ValidatePayments checks the payments service configuration.
// A zero STALE_PENDING_AFTER disables the sweep.
func (c Config) ValidatePayments() error {
	if c.StalePendingAfter > 0 && c.StalePendingAfter <= c.TransferDeadline() {
		return fmt.Errorf("%w: STALE_PENDING_AFTER %s must exceed SETTLEMENT_DELAY + 2*LEDGER_TIMEOUT (%s)",
			ErrInvalidConfig, c.StalePendingAfter, c.TransferDeadline())
	}

	return nil
}

// Load reads the configuration named name (without the .env extension)
// from path. Environment variables take precedence over the file.
func Load(path, name string) (Config, error) {
	var c Config

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(name)
	v.SetConfigType("env")

	setDefaults(v)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("ACCESS_TOKEN_DURATION", time.Hour)
	v.SetDefault("INITIAL_BALANCE", 10_000)
	v.SetDefault("IDEMPOTENCY_TTL", 24*time.Hour)
	v.SetDefault("LEDGER_TIMEOUT", 5*time.Second)
	v.SetDefault("SETTLEMENT_DELAY", 30*time.Second)
	v.SetDefault("SCHEDULER_INTERVAL", 24*time.Hour)
	v.SetDefault("SCHEDULER_CONCURRENCY", 4)
	v.SetDefault("SCHEDULER_TOKEN_DURATION", 5*time.Minute)
	v.SetDefault("STALE_PENDING_AFTER", time.Hour)
}
