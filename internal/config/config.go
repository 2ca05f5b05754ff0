package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Worker     WorkerConfig
	Log        LogConfig
	Sentry     SentryConfig
	Supervisor SupervisorConfig
	Memory     MemoryConfig
	Search     SearchConfig
	Gateway    GatewayConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// DSN returns the PostgreSQL connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Concurrency   int    `mapstructure:"concurrency"`
	QueueCritical string `mapstructure:"queue_critical"`
	QueueDefault  string `mapstructure:"queue_default"`
	QueueLow      string `mapstructure:"queue_low"`
	// LeaseTTL bounds how long one worker may own a thread's turn
	LeaseTTL time.Duration `mapstructure:"-"`
	// LeaseTTLSeconds is the raw config value backing LeaseTTL
	LeaseTTLSeconds int `mapstructure:"lease_ttl_seconds"`
	// CompactionRetentionDays controls how long superseded memory facts are kept
	CompactionRetentionDays int `mapstructure:"compaction_retention_days"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SentryConfig holds Sentry error reporting configuration
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// SupervisorConfig holds intent routing and slot-filling tuning.
// The margins are operational tuning constants, not correctness constants:
// adjust them from observed routing quality rather than hard-coding new values.
type SupervisorConfig struct {
	// ConfidenceFloor below which classification yields a clarify act
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`
	// TieMargin within which the pinned domain wins over a rival domain
	TieMargin float64 `mapstructure:"tie_margin"`
	// SlotOverwriteThreshold is the minimum confidence advantage a new slot
	// value needs to replace an already-filled one
	SlotOverwriteThreshold float64 `mapstructure:"slot_overwrite_threshold"`
	// HandoffConfidence is the minimum confidence for switching domains mid-conversation
	HandoffConfidence float64 `mapstructure:"handoff_confidence"`
}

// MemoryConfig holds memory fusion configuration
type MemoryConfig struct {
	// FusionBudgetMs bounds the total memory fusion time per turn
	FusionBudgetMs int `mapstructure:"fusion_budget_ms"`
	// SourceTimeoutMs bounds each individual memory source read
	SourceTimeoutMs int `mapstructure:"source_timeout_ms"`
	// BufferTurns is the short-term buffer depth per thread
	BufferTurns int `mapstructure:"buffer_turns"`
	// RecallLimit bounds the session memory result size
	RecallLimit int `mapstructure:"recall_limit"`
	// FactLimit bounds the knowledge graph result size
	FactLimit int `mapstructure:"fact_limit"`
}

// FusionBudget returns the fusion budget as a duration
func (c MemoryConfig) FusionBudget() time.Duration {
	return time.Duration(c.FusionBudgetMs) * time.Millisecond
}

// SourceTimeout returns the per-source timeout as a duration
func (c MemoryConfig) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutMs) * time.Millisecond
}

// SearchConfig holds listing repository client configuration
type SearchConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
	// BreakerMaxFailures is the consecutive failure count that opens the circuit
	BreakerMaxFailures int `mapstructure:"breaker_max_failures"`
	// BreakerCooldownMs is the open-state cooldown before a probe is allowed
	BreakerCooldownMs int `mapstructure:"breaker_cooldown_ms"`
}

// Timeout returns the search call timeout as a duration
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// BreakerCooldown returns the breaker cooldown as a duration
func (c SearchConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownMs) * time.Millisecond
}

// GatewayConfig holds transport gateway configuration
type GatewayConfig struct {
	// SchemaVersion is stamped on and validated against every outbound envelope
	SchemaVersion string `mapstructure:"schema_version"`
	// ChannelBuffer is the per-subscriber envelope buffer size
	ChannelBuffer int `mapstructure:"channel_buffer"`
	// HeartbeatSeconds is the SSE keep-alive interval
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds"`
	// RehydrationTurns is how many recent turns the rehydration frame carries
	RehydrationTurns int `mapstructure:"rehydration_turns"`
}

// Heartbeat returns the heartbeat interval as a duration
func (c GatewayConfig) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

// IsDevelopment returns true if running in development mode
func (c Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}
