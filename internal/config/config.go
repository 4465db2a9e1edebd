package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingAPIKey    = errors.New("OPENAI_API_KEY is required")
	ErrMissingServerURL = errors.New("SERVER_URL is required")
	ErrMissingToken     = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingDB        = errors.New("DATABASE_URL is required for postgres store")
	ErrInvalidProvider  = errors.New("invalid llm provider")
	ErrInvalidStore     = errors.New("invalid store type")
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// ServerConfig - конфиг прокси-сервера
type ServerConfig struct {
	HTTP      HTTPConfig
	LLM       LLMConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ClientConfig covers the CLI and the telegram bot.
type ClientConfig struct {
	ServerURL string
	// MetricsAddr пустой - бот не поднимает /metrics
	MetricsAddr string
	Store       StoreConfig
	Telegram    TelegramConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
}

type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
	MetricsEnabled bool
}

type LLMConfig struct {
	Provider       string
	APIKey         string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	MaxConcurrency int
}

type StoreConfig struct {
	Type        string
	Path        string
	DatabaseURL string
	Redis       RedisConfig
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type TelegramConfig struct {
	Token string
	Debug bool
}

type LogConfig struct {
	Level string
	// Service добавляется полем в каждую запись
	Service string
	// Stderr уводит логи со stdout (нужно CLI, stdout занят историями)
	Stderr bool
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

func LoadServer() (*ServerConfig, error) {
	loadDotEnv()

	cfg := &ServerConfig{
		HTTP: HTTPConfig{
			Addr:           getEnvOrDefault("HTTP_ADDR", ":8080"),
			AllowedOrigins: getEnvListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
			MetricsEnabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
		},
		LLM: LLMConfig{
			Provider:       getEnvOrDefault("LLM_PROVIDER", ProviderOpenAI),
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			Model:          getEnvOrDefault("LLM_MODEL", "gpt-3.5-turbo"),
			BaseURL:        getEnvOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
			Timeout:        time.Duration(getEnvIntOrDefault("LLM_TIMEOUT_SEC", 60)) * time.Second,
			MaxConcurrency: getEnvIntOrDefault("UPSTREAM_MAX_CONCURRENCY", 0),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 0),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ServerConfig) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.APIKey == "" {
			return ErrMissingAPIKey
		}
	case ProviderMock:
	default:
		return ErrInvalidProvider
	}
	return nil
}

func LoadClient() (*ClientConfig, error) {
	loadDotEnv()

	cfg := &ClientConfig{
		ServerURL:   strings.TrimRight(os.Getenv("SERVER_URL"), "/"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		Store: StoreConfig{
			Type:        getEnvOrDefault("STORE_TYPE", StoreSQLite),
			Path:        getEnvOrDefault("STORE_PATH", defaultStorePath()),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Redis: RedisConfig{
				Addr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
				Password:  os.Getenv("REDIS_PASSWORD"),
				DB:        getEnvIntOrDefault("REDIS_DB", 0),
				KeyPrefix: getEnvOrDefault("STORE_KEY_PREFIX", "fantasy-tales:"),
			},
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
			Debug: getEnvBoolOrDefault("TELEGRAM_DEBUG", false),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return ErrMissingServerURL
	}
	switch c.Store.Type {
	case StoreMemory, StoreSQLite, StoreRedis:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return ErrMissingDB
		}
	default:
		return ErrInvalidStore
	}
	return nil
}

// ValidateBot adds the bot-only requirements on top of Validate.
func (c *ClientConfig) ValidateBot() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// .env опционален, ошибку чтения игнорируем
func loadDotEnv() {
	_ = godotenv.Load()
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "stories.db"
	}
	return filepath.Join(home, ".fantasy-tales", "stories.db")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
