package config

import (
	"errors"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppHost string
	AppPort int
	GinMode string

	JWTSecret string
	JWTExpire time.Duration

	// store
	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisCacheTTL time.Duration
	RateLimitQPS  int

	// AI provider
	AIProvider        string
	GeminiAPIKey      string
	GeminiTextModel   string
	GeminiImageModel  string
	OllamaBaseURL     string
	OllamaModel       string
	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterSiteURL string
	OpenRouterAppName string
	GatewayTimeout    time.Duration

	// rabbitMQ
	RabbitURL         string
	RabbitQueue       string
	WorkerConcurrency int
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.AppHost, strconv.Itoa(c.AppPort))
}

func (c Config) RedisEnabled() bool  { return strings.TrimSpace(c.RedisAddr) != "" }
func (c Config) RabbitEnabled() bool { return strings.TrimSpace(c.RabbitURL) != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_HOST", "0.0.0.0")
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("GIN_MODE", "debug")

	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("JWT_EXPIRE_MINUTES", 24*60)

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "file:chat.db?_pragma=busy_timeout(5000)")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CACHE_TTL_SECONDS", 600)
	v.SetDefault("RATE_LIMIT_QPS", 5)

	v.SetDefault("AI_PROVIDER", "gemini")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_TEXT_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-preview-image-generation")
	v.SetDefault("OLLAMA_BASE_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "llama3:latest")
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("OPENROUTER_API_KEY", "")
	v.SetDefault("OPENROUTER_MODEL", "openrouter/auto")
	v.SetDefault("OPENROUTER_SITE_URL", "")
	v.SetDefault("OPENROUTER_APP_NAME", "")
	v.SetDefault("GATEWAY_TIMEOUT_SECONDS", 60)

	v.SetDefault("RABBIT_URL", "")
	v.SetDefault("RABBIT_QUEUE", "chat_jobs")
	v.SetDefault("WORKER_CONCURRENCY", 2)
}

// Load reads defaults, then CONFIG_FILE when set, then the environment.
// A .env file in the working directory is applied to the environment first.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Config] .env ignored: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.Printf("[Config] config file %s ignored: %v", path, err)
		} else {
			log.Printf("[Config] merged config file %s", path)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	cfg := Config{
		AppHost: v.GetString("APP_HOST"),
		AppPort: v.GetInt("APP_PORT"),
		GinMode: v.GetString("GIN_MODE"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTExpire: time.Duration(v.GetInt("JWT_EXPIRE_MINUTES")) * time.Minute,

		DBDriver: strings.ToLower(v.GetString("DB_DRIVER")),
		DBDSN:    v.GetString("DB_DSN"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		RedisCacheTTL: time.Duration(v.GetInt("REDIS_CACHE_TTL_SECONDS")) * time.Second,
		RateLimitQPS:  v.GetInt("RATE_LIMIT_QPS"),

		AIProvider:        strings.ToLower(v.GetString("AI_PROVIDER")),
		GeminiAPIKey:      v.GetString("GEMINI_API_KEY"),
		GeminiTextModel:   v.GetString("GEMINI_TEXT_MODEL"),
		GeminiImageModel:  v.GetString("GEMINI_IMAGE_MODEL"),
		OllamaBaseURL:     v.GetString("OLLAMA_BASE_URL"),
		OllamaModel:       v.GetString("OLLAMA_MODEL"),
		OpenRouterBaseURL: v.GetString("OPENROUTER_BASE_URL"),
		OpenRouterAPIKey:  v.GetString("OPENROUTER_API_KEY"),
		OpenRouterModel:   v.GetString("OPENROUTER_MODEL"),
		OpenRouterSiteURL: v.GetString("OPENROUTER_SITE_URL"),
		OpenRouterAppName: v.GetString("OPENROUTER_APP_NAME"),
		GatewayTimeout:    time.Duration(v.GetInt("GATEWAY_TIMEOUT_SECONDS")) * time.Second,

		RabbitURL:         v.GetString("RABBIT_URL"),
		RabbitQueue:       v.GetString("RABBIT_QUEUE"),
		WorkerConcurrency: v.GetInt("WORKER_CONCURRENCY"),
	}

	if cfg.JWTExpire <= 0 {
		cfg.JWTExpire = 24 * time.Hour
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 60 * time.Second
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 2
	}
	if cfg.WorkerConcurrency > 50 {
		cfg.WorkerConcurrency = 50
	}
	if cfg.AIProvider == "gemini" && cfg.GeminiAPIKey == "" {
		log.Printf("[Config] GEMINI_API_KEY is not set, generation requests will fail")
	}
	return cfg
}
