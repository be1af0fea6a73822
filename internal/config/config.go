package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/manage.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	RedisURL string     `env:"REDIS_URL"`

	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	JWTExpire time.Duration `env:"JWT_EXPIRE" envDefault:"12h"`

	// GuestTypes maps each guest type to its wristband prefix, e.g.
	// "GuestBlue:GB,Student:ST".
	GuestTypes map[string]string `env:"GUEST_TYPES" envDefault:"GuestBlue:GB,GuestRed:GR,Student:ST,Parent:PA" envKeyValSeparator:":"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"10m"`
	SeedDemo       bool          `env:"SEED_DEMO" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if len(cfg.GuestTypes) == 0 {
		return nil, fmt.Errorf("GUEST_TYPES must name at least one guest type")
	}
	return &cfg, nil
}
