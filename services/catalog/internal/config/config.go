// Package config loads the catalog service settings from the environment.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	S3        S3Config
	Auth      AuthConfig
	Aggregate AggregateConfig
	Outbox    OutboxConfig
	HTTP      HTTPConfig
}

type DBConfig struct {
	URL      string `env:"DATABASE_URL" env-required:"true"`
	MaxConns int32  `env:"DB_MAX_CONNS" env-default:"10"`
}

type RedisConfig struct {
	// Empty URL disables the filter cache.
	URL        string        `env:"REDIS_URL"`
	FiltersTTL time.Duration `env:"FILTERS_CACHE_TTL" env-default:"5m"`
}

type NATSConfig struct {
	URL           string        `env:"NATS_URL" env-default:"nats://nats:4222"`
	MaxReconnects int           `env:"NATS_MAX_RECONNECTS" env-default:"5"`
	ReconnectWait time.Duration `env:"NATS_RECONNECT_WAIT" env-default:"2s"`
	FactsStream   string        `env:"NATS_FACTS_STREAM" env-default:"USER_FACTS"`
	CommentTopic  string        `env:"NATS_COMMENT_SUBJECT" env-default:"comment"`
	Durable       string        `env:"NATS_COMMENT_DURABLE" env-default:"catalog-comments"`
	FactWait      time.Duration `env:"COMMENT_FACT_WAIT" env-default:"5s"`
}

type S3Config struct {
	Region          string        `env:"S3_REGION" env-default:"us-east-1"`
	Bucket          string        `env:"S3_BUCKET" env-required:"true"`
	AccessKeyID     string        `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"S3_SECRET_ACCESS_KEY"`
	Endpoint        string        `env:"S3_ENDPOINT"`
	UsePathStyle    bool          `env:"S3_USE_PATH_STYLE" env-default:"false"`
	PresignTTL      time.Duration `env:"S3_PRESIGN_TTL" env-default:"36000s"`
	CallTimeout     time.Duration `env:"S3_CALL_TIMEOUT" env-default:"3s"`

	CBMaxRequests      uint32        `env:"S3_CB_MAX_REQUESTS" env-default:"3"`
	CBInterval         time.Duration `env:"S3_CB_INTERVAL" env-default:"60s"`
	CBTimeout          time.Duration `env:"S3_CB_TIMEOUT" env-default:"30s"`
	CBFailureThreshold uint32        `env:"S3_CB_FAILURE_THRESHOLD" env-default:"5"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET" env-required:"true"`
	JWTIssuer string `env:"JWT_ISSUER"`
}

type AggregateConfig struct {
	Concurrency   int           `env:"AGGREGATE_CONCURRENCY" env-default:"16"`
	LookupTimeout time.Duration `env:"STORAGE_LOOKUP_TIMEOUT" env-default:"3s"`
	PageSize      int           `env:"LIST_PAGE_SIZE" env-default:"25"`
	MaxPageSize   int           `env:"LIST_MAX_PAGE_SIZE" env-default:"100"`
}

type OutboxConfig struct {
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" env-default:"100"`
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" env-default:"2s"`
}

type HTTPConfig struct {
	CORSOrigins string `env:"CORS_ALLOWED_ORIGINS"`
}

// Load reads the environment once. The result is passed to constructors and
// never re-read.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	// env-required accepts a variable that is set but empty.
	if strings.TrimSpace(c.DB.URL) == "" {
		return errors.New("DATABASE_URL must not be empty")
	}
	if strings.TrimSpace(c.S3.Bucket) == "" {
		return errors.New("S3_BUCKET must not be empty")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 bytes")
	}
	if c.Aggregate.PageSize <= 0 || c.Aggregate.MaxPageSize < c.Aggregate.PageSize {
		return errors.New("LIST_PAGE_SIZE must be positive and not exceed LIST_MAX_PAGE_SIZE")
	}
	if c.NATS.FactWait <= 0 {
		return errors.New("COMMENT_FACT_WAIT must be positive")
	}
	return nil
}
