package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Queue          QueueConfig
	Logging        LoggingConfig
	Routing        RoutingConfig
	Management     ManagementConfig
	CircuitBreaker CircuitBreakerConfig
	Tracing        TracingConfig

	// DefaultDomain names the business domain used when a message carries
	// no domain of its own. It must be a key of Domains.
	DefaultDomain string                  `mapstructure:"default_domain"`
	Domains       map[string]DomainConfig `mapstructure:"domains"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool   `mapstructure:"run_migrations"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// LockTTLSeconds bounds the per-message processing lease.
	LockTTLSeconds int `mapstructure:"lock_ttl_seconds"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// QueueConfig describes the Kafka link queues the connector consumes from
// and submits to.
type QueueConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`

	// Inbound topics.
	BackendSubmissionTopic string `mapstructure:"backend_submission_topic"`
	GatewayDeliveryTopic   string `mapstructure:"gateway_delivery_topic"`

	// Outbound link topics.
	GatewayLinkTopic string `mapstructure:"gateway_link_topic"`
	BackendLinkTopic string `mapstructure:"backend_link_topic"`

	DLQTopic string      `mapstructure:"dlq_topic"`
	Retry    RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RoutingConfig controls the routing-rule snapshot reload.
type RoutingConfig struct {
	Reload ReloadConfig `mapstructure:"reload"`
}

type ReloadConfig struct {
	IntervalSeconds       int `mapstructure:"interval_seconds"`
	JitterMaxMilliseconds int `mapstructure:"jitter_max_milliseconds"`
}

type ManagementConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

// DomainConfig is the per-business-domain (lane) configuration of the
// connector core.
type DomainConfig struct {
	EbmsIDGeneratorEnabled bool   `mapstructure:"ebms_id_generator_enabled"`
	EbmsIDSuffix           string `mapstructure:"ebms_id_suffix"`

	BackendRoutingEnabled bool                `mapstructure:"backend_routing_enabled"`
	DefaultBackendName    string              `mapstructure:"default_backend_name"`
	DefaultGatewayName    string              `mapstructure:"default_gateway_name"`
	BackendRoutingRules   []RoutingRuleConfig `mapstructure:"backend_routing_rules"`

	OutgoingPModeVerificationMode string `mapstructure:"outgoing_pmode_verification_mode"`
	IncomingPModeVerificationMode string `mapstructure:"incoming_pmode_verification_mode"`
	EnforceServiceActionNames     bool   `mapstructure:"enforce_service_action_names"`

	SendGeneratedEvidencesToBackend bool `mapstructure:"send_generated_evidences_to_backend"`
}

// RoutingRuleConfig seeds a backend routing rule from static configuration.
// Expression is a CEL predicate over the message details.
type RoutingRuleConfig struct {
	RuleID     string `mapstructure:"rule_id"`
	LinkName   string `mapstructure:"link_name"`
	Expression string `mapstructure:"expression"`
	Priority   int    `mapstructure:"priority"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
