package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env  string
	Port string

	DB        DBConfig
	Embedder  EmbedderConfig
	Groq      GroqConfig
	Pipeline  PipelineConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
}

// DSN renders the pgx connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type EmbedderConfig struct {
	URL     string
	Model   string
	Timeout int // seconds
}

type GroqConfig struct {
	URL               string
	Model             string
	APIKey            string
	Timeout           int // seconds
	RequestsPerMinute int
}

type PipelineConfig struct {
	SearchK            int
	MaxSearchK         int
	RetryKMultiplier   int
	MaxVariants        int
	SynonymDecay       float64
	RetryLatencyBudget int // milliseconds
	MaxTokens          int
	PromptVersion      string
}

type CacheConfig struct {
	Size int
}

type TelemetryConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "claims-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "claims_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "claims_password"),
			Name:     getEnv("DB_NAME", "claims_db"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 2),
		},
		Embedder: EmbedderConfig{
			URL:     getEnv("EMBEDDER_URL", "http://embedder:11434"),
			Model:   getEnv("EMBEDDING_MODEL", "embeddinggemma"),
			Timeout: getEnvInt("EMBEDDER_TIMEOUT", 30),
		},
		Groq: GroqConfig{
			URL:               getEnv("GROQ_URL", "https://api.groq.com/openai/v1"),
			Model:             getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			APIKey:            getSecret("GROQ_API_KEY", "GROQ_API_KEY_FILE", ""),
			Timeout:           getEnvInt("GROQ_TIMEOUT", 120),
			RequestsPerMinute: getEnvInt("GROQ_REQUESTS_PER_MINUTE", 30),
		},
		Pipeline: PipelineConfig{
			SearchK:            getEnvInt("PIPELINE_SEARCH_K", 10),
			MaxSearchK:         getEnvInt("PIPELINE_MAX_SEARCH_K", 50),
			RetryKMultiplier:   getEnvInt("PIPELINE_RETRY_K_MULTIPLIER", 2),
			MaxVariants:        getEnvInt("PIPELINE_MAX_VARIANTS", 5),
			SynonymDecay:       getEnvFloat("PIPELINE_SYNONYM_DECAY", 0.8),
			RetryLatencyBudget: getEnvInt("PIPELINE_RETRY_LATENCY_BUDGET_MS", 2000),
			MaxTokens:          getEnvInt("PIPELINE_MAX_TOKENS", 1024),
			PromptVersion:      getEnv("PIPELINE_PROMPT_VERSION", "claims-v1"),
		},
		Cache: CacheConfig{
			Size: getEnvInt("ANSWER_CACHE_SIZE", 256),
		},
		Telemetry: TelemetryConfig{
			Enabled:  getEnvBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://otel-collector:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
