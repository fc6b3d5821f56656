package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "DOCPIPE"

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL         string        `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns          int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMaxConnIdleTime   time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"5m"`
	DBMaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"1024"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	OpenAIAPIKey         string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL        string `envconfig:"OPENAI_BASE_URL"`
	OpenAIEmbeddingModel string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	OpenAIChatModel      string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-5"`

	LlamaParseAPIKey  string        `envconfig:"LLAMAPARSE_API_KEY"`
	LlamaParseBaseURL string        `envconfig:"LLAMAPARSE_BASE_URL" default:"https://api.cloud.llamaindex.ai"`
	LlamaParseAuto    bool          `envconfig:"LLAMAPARSE_AUTO_MODE" default:"true"`
	LlamaParseRPS     float64       `envconfig:"LLAMAPARSE_RPS" default:"2"`
	ParseTimeout      time.Duration `envconfig:"PARSE_TIMEOUT" default:"10m"`

	S3Endpoint  string        `envconfig:"S3_ENDPOINT"`
	S3AccessKey string        `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string        `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string        `envconfig:"S3_BUCKET" default:"docpipe-staging"`
	S3Region    string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3URLExpiry time.Duration `envconfig:"S3_URL_EXPIRY" default:"30m"`
	StagingDir  string        `envconfig:"STAGING_DIR"`

	WorkerSchedule      string        `envconfig:"WORKER_SCHEDULE" default:"*/15 * * * *"`
	WorkerBatchSize     int           `envconfig:"WORKER_BATCH_SIZE" default:"0"`
	WorkerLease         time.Duration `envconfig:"WORKER_LEASE" default:"30m"`
	WorkerMaxAttempts   int           `envconfig:"WORKER_MAX_ATTEMPTS" default:"3"`
	WorkerConcurrency   int           `envconfig:"WORKER_DISCOVERY_CONCURRENCY" default:"8"`
	WorkerCycleTimeout  time.Duration `envconfig:"WORKER_CYCLE_TIMEOUT" default:"0"`
	VectorizerEnabled   bool          `envconfig:"VECTORIZER_ENABLED" default:"true"`
	VectorizerInterval  time.Duration `envconfig:"VECTORIZER_INTERVAL" default:"30s"`
	VectorizerBatchSize int           `envconfig:"VECTORIZER_BATCH_SIZE" default:"10"`

	EmbeddingCacheSize int           `envconfig:"EMBEDDING_CACHE_SIZE" default:"1024"`
	EmbeddingCacheTTL  time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"10m"`

	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool size: min %d, max %d", c.DBMinConns, c.DBMaxConns)
	}
	if c.EmbeddingDimensions < 1 {
		return errors.New("EMBEDDING_DIMENSIONS must be positive")
	}
	if c.WorkerMaxAttempts < 1 {
		return errors.New("WORKER_MAX_ATTEMPTS must be at least 1")
	}
	if c.WorkerLease <= c.ParseTimeout {
		return fmt.Errorf("WORKER_LEASE (%s) must exceed PARSE_TIMEOUT (%s)", c.WorkerLease, c.ParseTimeout)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasLlamaParse() bool {
	return c.LlamaParseAPIKey != ""
}

func (c *Config) HasJWT() bool {
	return c.JWTSecret != ""
}
