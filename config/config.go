package config

import (
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	Port     int    `env:"PORT,default=3333"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// Empty DatabaseURL disables the retro CRUD API; the process then
	// runs as a pure relay.
	DatabaseURL string `env:"DATABASE_URL"`

	// Empty RedisAddr disables cross-instance fan-out.
	RedisAddr string `env:"REDIS_ADDR"`
	RedisDB   int    `env:"REDIS_DB,default=0"`

	CORSAllow string `env:"CORS_ALLOW,default=*"`

	RateLimit       int           `env:"RATE_LIMIT,default=120"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

func Load() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AllowedOrigins splits the CORS allowlist into individual origins.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, s := range strings.Split(c.CORSAllow, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
