package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "doccenter/pkg/platform/strings"
)

const envPrefix = "DOCCENTER_"

// Config is the full runtime configuration, read once at startup.
type Config struct {
	Server   Server
	Database Database
	Redis    RedisConfig
	Kafka    Kafka
	Lending  Lending
	Mail     Mail
	Tracing  Tracing
	LogLevel string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	AdminToken    string
	// RateLimit is the sustained number of mutating lending requests per
	// second allowed for one actor; RateBurst bounds bursts.
	RateLimit float64
	RateBurst int
}

// Database selects the store. Driver is one of postgres, sqlite or memory.
type Database struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	TxTimeout    time.Duration
}

// RedisConfig configures the idempotency guard backend. An empty URL falls
// back to the in-process guard.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit outbox relay. No brokers disables the relay.
type Kafka struct {
	Brokers       []string
	AuditTopic    string
	RelayInterval time.Duration
	RelayBatch    int
}

// Lending holds the engine's policy knobs.
type Lending struct {
	SweepInterval     time.Duration
	DueSoonDays       int
	IdempotencyWindow time.Duration
	DueSoonWindow     time.Duration
	OverdueWindow     time.Duration
}

// Mail configures best-effort email delivery. An empty host disables it.
type Mail struct {
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    string
	From        string
	CenterEmail string
}

// Tracing configures OTLP span export. An empty endpoint disables export.
type Tracing struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

// FromEnv builds the configuration from DOCCENTER_* environment variables so
// main stays lean. Unset variables take development defaults.
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}

// Load is FromEnv over an arbitrary lookup, for tests.
func Load(getenv func(string) string) (Config, error) {
	e := env{get: getenv}
	cfg := Config{
		Server: Server{
			Addr:          e.str("ADDR", ":8080"),
			JWTSigningKey: e.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			AdminToken:    e.str("ADMIN_TOKEN", ""),
			RateLimit:     e.float("RATE_LIMIT", 5),
			RateBurst:     e.int("RATE_BURST", 10),
		},
		Database: Database{
			Driver:       e.str("DB_DRIVER", "memory"),
			DSN:          e.str("DB_DSN", ""),
			MaxOpenConns: e.int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: e.int("DB_MAX_IDLE_CONNS", 5),
			TxTimeout:    e.duration("DB_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:       e.list("KAFKA_BROKERS"),
			AuditTopic:    e.str("KAFKA_AUDIT_TOPIC", "doccenter.audit"),
			RelayInterval: e.duration("OUTBOX_RELAY_INTERVAL", 2*time.Second),
			RelayBatch:    e.int("OUTBOX_RELAY_BATCH", 100),
		},
		Lending: Lending{
			SweepInterval:     e.duration("SWEEP_INTERVAL", time.Hour),
			DueSoonDays:       e.int("DUE_SOON_DAYS", 2),
			IdempotencyWindow: e.duration("IDEMPOTENCY_WINDOW", 10*time.Second),
			DueSoonWindow:     e.duration("DUE_SOON_WINDOW", 24*time.Hour),
			OverdueWindow:     e.duration("OVERDUE_WINDOW", 72*time.Hour),
		},
		Mail: Mail{
			SMTPHost:    e.str("SMTP_HOST", ""),
			SMTPPort:    e.int("SMTP_PORT", 587),
			Username:    e.str("SMTP_USERNAME", ""),
			Password:    e.str("SMTP_PASSWORD", ""),
			From:        e.str("MAIL_FROM", "no-reply@doccenter.local"),
			CenterEmail: e.str("CENTER_EMAIL", ""),
		},
		Tracing: Tracing{
			Endpoint:    e.str("OTLP_ENDPOINT", ""),
			Insecure:    e.bool("OTLP_INSECURE", true),
			SampleRatio: e.float("TRACE_SAMPLE_RATIO", 1),
		},
		LogLevel: e.str("LOG_LEVEL", "info"),
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("%sDB_DSN is required for driver %q", envPrefix, c.Database.Driver)
		}
	default:
		return fmt.Errorf("%sDB_DRIVER: unsupported driver %q", envPrefix, c.Database.Driver)
	}
	if c.Lending.DueSoonDays < 0 {
		return fmt.Errorf("%sDUE_SOON_DAYS must not be negative", envPrefix)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%sTRACE_SAMPLE_RATIO must be within [0, 1]", envPrefix)
	}
	if c.Server.RateLimit <= 0 || c.Server.RateBurst < 1 {
		return fmt.Errorf("%sRATE_LIMIT and %sRATE_BURST must be positive", envPrefix, envPrefix)
	}
	return nil
}

// env reads prefixed variables and keeps the first parse error.
type env struct {
	get func(string) string
	err error
}

func (e *env) raw(key string) string {
	return strings.TrimSpace(e.get(envPrefix + key))
}

func (e *env) str(key, def string) string {
	if v := e.raw(key); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := e.raw(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := e.raw(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return f
}

func (e *env) bool(key string, def bool) bool {
	v := e.raw(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.raw(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *env) list(key string) []string {
	return pkgstrings.SplitList(e.raw(key), ",")
}

func (e *env) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
}
