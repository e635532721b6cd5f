package feed

import (
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// Config selects the kline stream to subscribe to. Values come from the
// environment (prefix STREAMQUANT_), optionally seeded from a .env file.
type Config struct {
	Symbol   string `envconfig:"SYMBOL" validate:"required"`
	Interval string `envconfig:"INTERVAL" default:"1m" validate:"required,oneof=1s 1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1M"`
}

var configValidator = validator.New()

// LoadConfig reads the feed configuration from the environment. A missing
// .env file is not an error; a missing symbol or an unsupported interval is.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var config Config
	if err := envconfig.Process("STREAMQUANT", &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFeedConfig, "failed to read feed environment", err)
	}

	if err := configValidator.Struct(&config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFeedConfig, "invalid feed config", err)
	}

	return &config, nil
}
