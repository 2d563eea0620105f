package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Optional separate backend for the keyword mirror. When empty the main
	// database is reused; the index stays best-effort either way.
	KeywordDatabaseURL string `envconfig:"KEYWORD_DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"memoir-raw"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"1536"`
	CompletionModel    string `envconfig:"COMPLETION_MODEL" default:"gpt-4o-mini"`

	RedisAddr      string `envconfig:"REDIS_ADDR"`
	CacheTTLSecs   int    `envconfig:"CACHE_TTL_SECONDS" default:"300"`
	MirrorRepair   bool   `envconfig:"MIRROR_REPAIR" default:"true"`
	ChunkMaxTokens int    `envconfig:"CHUNK_MAX_TOKENS" default:"512"`

	// Static bearer token protecting the API. Empty disables auth.
	APIKey string `envconfig:"API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MEMOIR", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
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

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}
