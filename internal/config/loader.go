package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Optionally read from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/concierge")

	// Ignore error if config file not found
	_ = v.ReadInConfig()

	var cfg Config

	// Server
	cfg.Server.Host = v.GetString("server_host")
	cfg.Server.Port = v.GetInt("server_port")
	cfg.Server.Env = v.GetString("server_env")

	// PostgreSQL
	cfg.Postgres.Host = v.GetString("postgres_host")
	cfg.Postgres.Port = v.GetInt("postgres_port")
	cfg.Postgres.User = v.GetString("postgres_user")
	cfg.Postgres.Password = v.GetString("postgres_password")
	cfg.Postgres.Database = v.GetString("postgres_db")
	cfg.Postgres.SSLMode = v.GetString("postgres_ssl_mode")
	cfg.Postgres.MaxConns = int32(v.GetInt("postgres_max_conns"))
	cfg.Postgres.MinConns = int32(v.GetInt("postgres_min_conns"))

	// Redis
	cfg.Redis.Host = v.GetString("redis_host")
	cfg.Redis.Port = v.GetInt("redis_port")
	cfg.Redis.Password = v.GetString("redis_password")
	cfg.Redis.DB = v.GetInt("redis_db")

	// Rate limiting
	cfg.RateLimit.Enabled = v.GetBool("rate_limit_enabled")
	cfg.RateLimit.RequestsPerMinute = v.GetInt("rate_limit_requests_per_minute")
	cfg.RateLimit.Burst = v.GetInt("rate_limit_burst")

	// Worker
	cfg.Worker.Concurrency = v.GetInt("worker_concurrency")
	cfg.Worker.QueueCritical = v.GetString("worker_queue_critical")
	cfg.Worker.QueueDefault = v.GetString("worker_queue_default")
	cfg.Worker.QueueLow = v.GetString("worker_queue_low")
	cfg.Worker.LeaseTTLSeconds = v.GetInt("worker_lease_ttl_seconds")
	cfg.Worker.LeaseTTL = time.Duration(cfg.Worker.LeaseTTLSeconds) * time.Second
	cfg.Worker.CompactionRetentionDays = v.GetInt("worker_compaction_retention_days")

	// Logging
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")

	// Sentry
	cfg.Sentry.Enabled = v.GetBool("sentry_enabled")
	cfg.Sentry.DSN = v.GetString("sentry_dsn")
	cfg.Sentry.Environment = v.GetString("sentry_environment")
	cfg.Sentry.SampleRate = v.GetFloat64("sentry_sample_rate")

	// Supervisor
	cfg.Supervisor.ConfidenceFloor = v.GetFloat64("supervisor_confidence_floor")
	cfg.Supervisor.TieMargin = v.GetFloat64("supervisor_tie_margin")
	cfg.Supervisor.SlotOverwriteThreshold = v.GetFloat64("supervisor_slot_overwrite_threshold")
	cfg.Supervisor.HandoffConfidence = v.GetFloat64("supervisor_handoff_confidence")

	// Memory fusion
	cfg.Memory.FusionBudgetMs = v.GetInt("memory_fusion_budget_ms")
	cfg.Memory.SourceTimeoutMs = v.GetInt("memory_source_timeout_ms")
	cfg.Memory.BufferTurns = v.GetInt("memory_buffer_turns")
	cfg.Memory.RecallLimit = v.GetInt("memory_recall_limit")
	cfg.Memory.FactLimit = v.GetInt("memory_fact_limit")

	// Listing search
	cfg.Search.BaseURL = v.GetString("search_base_url")
	cfg.Search.TimeoutMs = v.GetInt("search_timeout_ms")
	cfg.Search.BreakerMaxFailures = v.GetInt("search_breaker_max_failures")
	cfg.Search.BreakerCooldownMs = v.GetInt("search_breaker_cooldown_ms")

	// Gateway
	cfg.Gateway.SchemaVersion = v.GetString("gateway_schema_version")
	cfg.Gateway.ChannelBuffer = v.GetInt("gateway_channel_buffer")
	cfg.Gateway.HeartbeatSeconds = v.GetInt("gateway_heartbeat_seconds")
	cfg.Gateway.RehydrationTurns = v.GetInt("gateway_rehydration_turns")

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_env", "development")

	// PostgreSQL defaults
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "concierge")
	v.SetDefault("postgres_password", "concierge")
	v.SetDefault("postgres_db", "concierge")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("postgres_max_conns", 25)
	v.SetDefault("postgres_min_conns", 5)

	// Redis defaults
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	// Rate limiting defaults
	v.SetDefault("rate_limit_enabled", true)
	v.SetDefault("rate_limit_requests_per_minute", 60)
	v.SetDefault("rate_limit_burst", 20)

	// Worker defaults
	v.SetDefault("worker_concurrency", 10)
	v.SetDefault("worker_queue_critical", "critical")
	v.SetDefault("worker_queue_default", "default")
	v.SetDefault("worker_queue_low", "low")
	v.SetDefault("worker_lease_ttl_seconds", 30)
	v.SetDefault("worker_compaction_retention_days", 90)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Sentry defaults
	v.SetDefault("sentry_enabled", false)
	v.SetDefault("sentry_sample_rate", 1.0)

	// Supervisor defaults
	v.SetDefault("supervisor_confidence_floor", 0.55)
	v.SetDefault("supervisor_tie_margin", 0.1)
	v.SetDefault("supervisor_slot_overwrite_threshold", 0.1)
	v.SetDefault("supervisor_handoff_confidence", 0.75)

	// Memory fusion defaults
	v.SetDefault("memory_fusion_budget_ms", 800)
	v.SetDefault("memory_source_timeout_ms", 300)
	v.SetDefault("memory_buffer_turns", 10)
	v.SetDefault("memory_recall_limit", 5)
	v.SetDefault("memory_fact_limit", 20)

	// Listing search defaults
	v.SetDefault("search_base_url", "http://localhost:9090")
	v.SetDefault("search_timeout_ms", 2000)
	v.SetDefault("search_breaker_max_failures", 5)
	v.SetDefault("search_breaker_cooldown_ms", 30000)

	// Gateway defaults
	v.SetDefault("gateway_schema_version", "1.0")
	v.SetDefault("gateway_channel_buffer", 64)
	v.SetDefault("gateway_heartbeat_seconds", 30)
	v.SetDefault("gateway_rehydration_turns", 10)
}

func validate(cfg *Config) error {
	if cfg.Supervisor.ConfidenceFloor <= 0 || cfg.Supervisor.ConfidenceFloor >= 1 {
		return fmt.Errorf("supervisor confidence floor must be in (0, 1), got %f", cfg.Supervisor.ConfidenceFloor)
	}
	if cfg.Memory.SourceTimeoutMs > cfg.Memory.FusionBudgetMs {
		return fmt.Errorf("memory source timeout (%dms) exceeds fusion budget (%dms)",
			cfg.Memory.SourceTimeoutMs, cfg.Memory.FusionBudgetMs)
	}
	return nil
}
