package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/executor"
	"github.com/easyislanders/concierge/internal/gateway"
	"github.com/easyislanders/concierge/internal/handler"
	"github.com/easyislanders/concierge/internal/middleware"
	"github.com/easyislanders/concierge/internal/pkg/database"
	pgrepo "github.com/easyislanders/concierge/internal/repository/postgres"
	"github.com/easyislanders/concierge/internal/search"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	// Connections
	Postgres *database.PostgresDB
	Redis    *redis.Client

	// Repositories
	ThreadRepo *pgrepo.ThreadRepository
	TurnRepo   *pgrepo.TurnRepository

	// Gateway
	Hub        *gateway.Hub
	Bridge     *gateway.Bridge
	Publisher  *gateway.Publisher
	Rehydrator *gateway.Rehydrator

	// Search
	SearchClient *search.BreakerClient

	// Handlers
	HealthHandler *handler.HealthHandler
	ThreadHandler *handler.ThreadHandler
	StreamHandler *handler.StreamHandler

	// Middleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// Asynq client
	AsynqClient *asynq.Client
}

// initDependencies initializes all dependencies
func initDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	ctx := context.Background()

	pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	deps.Postgres = pgDB

	redisDB, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		pgDB.Close()
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	deps.Redis = redisDB.Client

	deps.ThreadRepo = pgrepo.NewThreadRepository(pgDB)
	deps.TurnRepo = pgrepo.NewTurnRepository(pgDB)

	deps.Hub = gateway.NewHub(cfg.Gateway.SchemaVersion, cfg.Gateway.ChannelBuffer)
	deps.Bridge = gateway.NewBridge(deps.Redis, deps.Hub)
	deps.Publisher = gateway.NewPublisher(deps.Redis)
	deps.Rehydrator = gateway.NewRehydrator(deps.ThreadRepo, deps.TurnRepo, cfg.Gateway)

	deps.SearchClient = search.NewBreakerClient(search.NewHTTPClient(cfg.Search), cfg.Search)

	deps.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	deps.HealthHandler = handler.NewHealthHandler(pgDB.Pool, deps.Redis, deps.SearchClient, appVersion)
	deps.ThreadHandler = handler.NewThreadHandler(
		deps.ThreadRepo,
		deps.TurnRepo,
		executor.NewEnqueuer(deps.AsynqClient),
		deps.Rehydrator,
		deps.Publisher,
		cfg.Gateway.SchemaVersion,
		logger,
	)
	deps.StreamHandler = handler.NewStreamHandler(
		deps.Hub,
		deps.ThreadRepo,
		deps.Rehydrator,
		cfg.Gateway.SchemaVersion,
		cfg.Gateway.Heartbeat(),
		logger,
	)

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimit.RequestsPerMinute > 0 {
		rateLimitCfg.Max = cfg.RateLimit.RequestsPerMinute
	}
	deps.RateLimitMiddleware = middleware.NewRateLimitMiddleware(deps.Redis, rateLimitCfg)

	return deps, nil
}

// Close releases all held connections
func (d *Dependencies) Close() {
	if d.AsynqClient != nil {
		d.AsynqClient.Close()
	}
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.Postgres != nil {
		d.Postgres.Close()
	}
}
