package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=user password=password dbname=pairchatdb port=5432 sslmode=disable"

type Config struct {
	HTTPAddr      string `env:"HTTP_ADDR,default=:8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN,default=*"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`

	DatabaseDSN   string `env:"DATABASE_DSN"`
	RedisAddr     string `env:"REDIS_ADDR,default=localhost:6380"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	JWTSecret string `env:"JWT_SECRET,required=true"`
	JWTIssuer string `env:"JWT_ISSUER,default=pairchat-service"`

	QueueTimeout     time.Duration `env:"QUEUE_TIMEOUT,default=45s"`
	SessionRetention time.Duration `env:"SESSION_RETENTION,default=10m"`
	SendBufferSize   int           `env:"SEND_BUFFER_SIZE,default=256"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = defaultDSN
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = DefaultQueueTimeout
	}
	if cfg.SessionRetention <= 0 {
		cfg.SessionRetention = DefaultSessionRetention
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = DefaultSendBufferSize
	}
	return cfg, nil
}
