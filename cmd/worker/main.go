package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/agent"
	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/executor"
	"github.com/easyislanders/concierge/internal/gateway"
	"github.com/easyislanders/concierge/internal/memory"
	"github.com/easyislanders/concierge/internal/pkg/database"
	"github.com/easyislanders/concierge/internal/pkg/logger"
	pgrepo "github.com/easyislanders/concierge/internal/repository/postgres"
	"github.com/easyislanders/concierge/internal/search"
	"github.com/easyislanders/concierge/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	log.Info("starting worker service")

	deps, cleanup, err := initWorkerDependencies(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer cleanup()

	workerServer, err := executor.NewServer(log, cfg, deps)
	if err != nil {
		log.Fatal("failed to create worker server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- workerServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down worker...")
		workerServer.Stop()
	case err := <-errCh:
		if err != nil {
			log.Error("worker server error", zap.Error(err))
		}
	}

	log.Info("worker stopped")
}

// initWorkerDependencies initializes dependencies for the worker
func initWorkerDependencies(cfg *config.Config, log *zap.Logger) (*executor.WorkerDependencies, func(), error) {
	ctx := context.Background()

	pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	redisDB, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		pgDB.Close()
		return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	threadRepo := pgrepo.NewThreadRepository(pgDB)
	turnRepo := pgrepo.NewTurnRepository(pgDB)
	factRepo := pgrepo.NewFactRepository(pgDB)
	sessionRepo := pgrepo.NewSessionMemoryRepository(pgDB)

	buffer := memory.NewShortTermBuffer(cfg.Memory.BufferTurns)
	fusion := memory.NewFusion(sessionRepo, factRepo, buffer, cfg.Memory)

	searchClient := search.NewBreakerClient(search.NewHTTPClient(cfg.Search), cfg.Search)
	registry := agent.NewRegistry(
		agent.NewRealEstateAgent(searchClient),
		agent.NewVehicleRentalAgent(searchClient),
	)

	sup := supervisor.New(registry, fusion, factRepo, sessionRepo, buffer, cfg.Supervisor)

	deps := &executor.WorkerDependencies{
		DB:         pgDB,
		Redis:      redisDB.Client,
		TurnRepo:   turnRepo,
		ThreadRepo: threadRepo,
		FactRepo:   factRepo,
		Processor:  sup,
		Publisher:  gateway.NewPublisher(redisDB.Client),
	}

	cleanup := func() {
		_ = redisDB.Close()
		pgDB.Close()
	}

	return deps, cleanup, nil
}
