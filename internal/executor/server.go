package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/easyislanders/concierge/internal/config"
	"github.com/easyislanders/concierge/internal/pkg/database"
)

// Server is the worker server
type Server struct {
	logger    *zap.Logger
	config    *config.Config
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	client    *asynq.Client
}

// WorkerDependencies holds dependencies for workers
type WorkerDependencies struct {
	DB         *database.PostgresDB
	Redis      *redis.Client
	TurnRepo   TurnRepository
	ThreadRepo ThreadRepository
	FactRepo   FactPruner
	Processor  TurnProcessor
	Publisher  EnvelopePublisher
}

// NewServer creates a new worker server
func NewServer(
	logger *zap.Logger,
	cfg *config.Config,
	deps *WorkerDependencies,
) (*Server, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
			Logger: &asynqLogger{logger: logger},
		},
	)

	lease := NewThreadLease(deps.Redis, cfg.Worker.LeaseTTL)

	turnWorker := NewTurnWorker(
		logger,
		deps.DB,
		deps.TurnRepo,
		deps.ThreadRepo,
		deps.Processor,
		deps.Publisher,
		lease,
		cfg.Gateway.SchemaVersion,
	)

	compactionWorker := NewFactCompactionWorker(logger, deps.FactRepo)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTurnProcess, turnWorker.ProcessTask)
	mux.HandleFunc(TypeFactCompaction, compactionWorker.ProcessTask)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	client := asynq.NewClient(redisOpt)

	return &Server{
		logger:    logger,
		config:    cfg,
		server:    server,
		mux:       mux,
		scheduler: scheduler,
		client:    client,
	}, nil
}

// Start starts the worker server
func (s *Server) Start() error {
	if err := s.registerScheduledTasks(); err != nil {
		return fmt.Errorf("failed to register scheduled tasks: %w", err)
	}

	go func() {
		if err := s.scheduler.Run(); err != nil {
			s.logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	s.logger.Info("starting worker server",
		zap.Int("concurrency", s.config.Worker.Concurrency),
	)

	return s.server.Run(s.mux)
}

// Stop stops the worker server
func (s *Server) Stop() {
	s.server.Shutdown()
	s.scheduler.Shutdown()
	s.client.Close()
}

// Client returns the asynq client for enqueuing tasks
func (s *Server) Client() *asynq.Client {
	return s.client
}

// registerScheduledTasks registers periodic tasks with the scheduler
func (s *Server) registerScheduledTasks() error {
	payload, err := json.Marshal(&FactCompactionPayload{
		RetentionDays: s.config.Worker.CompactionRetentionDays,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal compaction payload: %w", err)
	}

	// Nightly fact compaction at 4 AM UTC
	_, err = s.scheduler.Register(
		"0 4 * * *",
		asynq.NewTask(TypeFactCompaction, payload),
		asynq.Queue("low"),
	)
	if err != nil {
		return fmt.Errorf("failed to register fact compaction task: %w", err)
	}

	return nil
}

// asynqLogger adapts zap.Logger to asynq.Logger
type asynqLogger struct {
	logger *zap.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
