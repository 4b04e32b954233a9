package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is the full bridge configuration, decoded from the environment.
// Every knob has a default so a bare environment yields a runnable (if
// mostly disabled) bridge; ledger endpoints have no defaults on purpose.
type Config struct {
	Environment string `env:"BRIDGE_ENVIRONMENT,default=development"`

	Logging    LoggingConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Witness    WitnessConfig
	AppCall    AppCallConfig
	Settlement SettlementConfig
	Relay      RelayConfig
	Payments   PaymentsConfig
}

// LoggingConfig controls log level and destination.
type LoggingConfig struct {
	Level  string `env:"BRIDGE_LOG_LEVEL,default=info"`
	Format string `env:"BRIDGE_LOG_FORMAT,default=text"`
	Output string `env:"BRIDGE_LOG_OUTPUT,default=stdout"`
}

// ServerConfig controls the HTTP API listener. AuditLog, when set, appends
// every request to a JSONL file on top of the in-memory trail. A zero RPS
// disables per-client rate limiting; CORSOrigins is a comma-separated origin
// list and stays off when empty.
type ServerConfig struct {
	Host         string        `env:"BRIDGE_HTTP_HOST,default=0.0.0.0"`
	Port         int           `env:"BRIDGE_HTTP_PORT,default=8080"`
	AuthToken    string        `env:"BRIDGE_HTTP_AUTH_TOKEN"`
	ReadTimeout  time.Duration `env:"BRIDGE_HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"BRIDGE_HTTP_WRITE_TIMEOUT,default=30s"`
	AuditLog     string        `env:"BRIDGE_HTTP_AUDIT_LOG"`
	AuditLimit   int           `env:"BRIDGE_HTTP_AUDIT_LIMIT,default=200"`
	RPS          float64       `env:"BRIDGE_HTTP_RPS,default=0"`
	Burst        int           `env:"BRIDGE_HTTP_RPS_BURST,default=0"`
	CORSOrigins  string        `env:"BRIDGE_HTTP_CORS_ORIGINS"`
}

// Origins splits the comma-separated CORS origin list.
func (c ServerConfig) Origins() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Addr returns the host:port the HTTP server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig controls the optional Postgres store. With no DSN the
// bridge keeps checkpoints and payments in memory.
type DatabaseConfig struct {
	DSN             string        `env:"BRIDGE_DATABASE_DSN"`
	MaxOpenConns    int           `env:"BRIDGE_DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `env:"BRIDGE_DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"BRIDGE_DATABASE_CONN_MAX_LIFETIME,default=30m"`
}

// RedisConfig controls the optional Redis store, used instead of memory when
// set and no database DSN is configured.
type RedisConfig struct {
	Addr     string `env:"BRIDGE_REDIS_ADDR"`
	Password string `env:"BRIDGE_REDIS_PASSWORD"`
	DB       int    `env:"BRIDGE_REDIS_DB,default=0"`
}

// WitnessConfig points at the source-ledger mirror the relay polls.
type WitnessConfig struct {
	MirrorURL         string        `env:"BRIDGE_WITNESS_MIRROR_URL"`
	APIKey            string        `env:"BRIDGE_WITNESS_API_KEY"`
	Timeout           time.Duration `env:"BRIDGE_WITNESS_TIMEOUT,default=10s"`
	RequestsPerSecond float64       `env:"BRIDGE_WITNESS_RPS,default=10"`
}

// AppCallConfig points at the destination-ledger gateway that signs and
// submits application calls.
type AppCallConfig struct {
	GatewayURL string        `env:"BRIDGE_APPCALL_GATEWAY_URL"`
	AuthToken  string        `env:"BRIDGE_APPCALL_AUTH_TOKEN"`
	AppID      uint64        `env:"BRIDGE_APPCALL_APP_ID,default=0"`
	Timeout    time.Duration `env:"BRIDGE_APPCALL_TIMEOUT,default=30s"`
}

// SettlementConfig points at the settlement-ledger JSON-RPC endpoint.
type SettlementConfig struct {
	RPCURL    string        `env:"BRIDGE_SETTLEMENT_RPC_URL"`
	AuthToken string        `env:"BRIDGE_SETTLEMENT_AUTH_TOKEN"`
	Timeout   time.Duration `env:"BRIDGE_SETTLEMENT_TIMEOUT,default=60s"`
}

// RelayConfig carries the relay defaults and the channel wiring. ChannelID
// binds a single channel straight from the environment; ChannelsFile points
// at a YAML document for multi-channel deployments.
type RelayConfig struct {
	PollInterval time.Duration `env:"BRIDGE_RELAY_POLL_INTERVAL,default=5s"`
	BatchSize    int           `env:"BRIDGE_RELAY_BATCH_SIZE,default=10"`
	ChannelID    string        `env:"BRIDGE_RELAY_CHANNEL_ID"`
	ChannelsFile string        `env:"BRIDGE_RELAY_CHANNELS_FILE"`
}

// PaymentsConfig controls the settlement cache. A zero retention keeps
// cached outcomes forever and leaves the sweeper disabled.
type PaymentsConfig struct {
	CacheRetention time.Duration `env:"BRIDGE_PAYMENTS_CACHE_RETENTION,default=0s"`
	SweepSchedule  string        `env:"BRIDGE_PAYMENTS_SWEEP_SCHEDULE"`
}

// Load decodes the configuration from the environment and normalizes it.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate clamps out-of-range knobs to their defaults and rejects values
// that cannot be papered over.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.Server.Port)
	}
	if c.Relay.PollInterval <= 0 {
		c.Relay.PollInterval = 5 * time.Second
	}
	if c.Relay.BatchSize <= 0 {
		c.Relay.BatchSize = 10
	}
	if c.Witness.RequestsPerSecond <= 0 {
		c.Witness.RequestsPerSecond = 10
	}
	if c.Payments.CacheRetention < 0 {
		c.Payments.CacheRetention = 0
	}
	if c.Server.RPS < 0 {
		c.Server.RPS = 0
	}
	return nil
}
