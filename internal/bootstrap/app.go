package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/viVeK21111/chatgpt-clone/internal/ai"
	"github.com/viVeK21111/chatgpt-clone/internal/auth"
	"github.com/viVeK21111/chatgpt-clone/internal/chat"
	"github.com/viVeK21111/chatgpt-clone/internal/config"
	"github.com/viVeK21111/chatgpt-clone/internal/db"
	"github.com/viVeK21111/chatgpt-clone/internal/httpapi/handlers"
	"github.com/viVeK21111/chatgpt-clone/internal/httpapi/middleware"
	"github.com/viVeK21111/chatgpt-clone/internal/store/rabbitmq"
	"github.com/viVeK21111/chatgpt-clone/internal/store/redisstore"
)

type App struct {
	Config    config.Config
	DB        *gorm.DB
	Redis     *redisstore.Store
	Publisher *rabbitmq.Publisher

	Repo    *chat.Repo
	ChatSvc *chat.Service
	AuthSvc *auth.Service
	Gateway *ai.Gateway

	StartedAt time.Time
}

// NewRegistry registers every provider the configuration can reach.
func NewRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()
	reg.Register("gemini", ai.NewGeminiFactory(cfg.GeminiAPIKey))
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" || strings.HasPrefix(m, "gemini") {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})
	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" || strings.HasPrefix(m, "gemini") {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})
	return reg
}

func NewGateway(cfg config.Config) *ai.Gateway {
	return ai.NewGateway(NewRegistry(cfg), ai.GatewayConfig{
		Provider:   cfg.AIProvider,
		TextModel:  cfg.GeminiTextModel,
		ImageModel: cfg.GeminiImageModel,
		Timeout:    cfg.GatewayTimeout,
	})
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	gdb, err := db.Connect(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: gdb, StartedAt: time.Now()}

	var (
		cache     chat.ExchangeCache
		publisher chat.JobPublisher
	)
	if cfg.RedisEnabled() {
		rds, err := redisstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisCacheTTL)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Redis = rds
		cache = rds
	} else {
		log.Printf("[Bootstrap] REDIS_ADDR empty, exchange cache and rate limit disabled")
	}

	if cfg.RabbitEnabled() {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("connect rabbitmq failed: %w", err)
		}
		app.Publisher = pub
		publisher = pub
	} else {
		log.Printf("[Bootstrap] RABBIT_URL empty, session title jobs disabled")
	}

	app.Repo = chat.NewRepo(gdb)
	app.ChatSvc = chat.NewService(app.Repo, cache, publisher)
	app.AuthSvc = auth.NewService(gdb, cfg.JWTSecret, cfg.JWTExpire)
	app.Gateway = NewGateway(cfg)
	return app, nil
}

func (a *App) Handler() *handlers.Handler {
	checks := []handlers.DependencyCheck{
		{Name: "database", Check: func(ctx context.Context) error { return db.Ping(ctx, a.DB) }},
	}
	if a.Redis != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Check: a.Redis.Ping})
	}
	if a.Publisher != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "rabbitmq", Check: func(context.Context) error { return a.Publisher.Healthy() }})
	}
	h := handlers.NewHandler(a.AuthSvc, a.ChatSvc, a.Gateway, checks...)
	h.StartedAt = a.StartedAt
	return h
}

// Limiter returns nil when Redis is disabled.
func (a *App) Limiter() middleware.Limiter {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.RateLimiter(a.Config.RateLimitQPS)
}

func (a *App) Close() error {
	var closeErr error
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
