package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SLA          SLAConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token verification parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SLAConfig drives the policy registry and the background jobs.
type SLAConfig struct {
	PolicyFile            string
	ScanIntervalSeconds   int
	ScanBatchSize         int
	TerminalLookbackHours int
	ReportCron            string
	DefaultBudgets        BudgetDefaults
}

// BudgetDefaults are the per-tier budgets used when no policy file is set.
type BudgetDefaults struct {
	HighResponseMinutes     int
	HighResolutionMinutes   int
	MediumResponseMinutes   int
	MediumResolutionMinutes int
	LowResponseMinutes      int
	LowResolutionMinutes    int
}

// NotificationLogBackend selects where sent breach notifications are remembered.
type NotificationLogBackend string

const (
	NotificationLogRedis    NotificationLogBackend = "redis"
	NotificationLogPostgres NotificationLogBackend = "postgres"
	NotificationLogMemory   NotificationLogBackend = "memory"
)

// NotificationConfig holds outbound breach channels.
type NotificationConfig struct {
	WebhookURL            string
	WebhookTimeoutSeconds int
	KafkaBrokers          []string
	KafkaTopic            string
	LogBackend            NotificationLogBackend
	LogCacheTTLSeconds    int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-sla-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SLA: SLAConfig{
			PolicyFile:            os.Getenv("SLA_POLICY_FILE"),
			ScanIntervalSeconds:   getEnvAsInt("SLA_SCAN_INTERVAL_SECONDS", 60),
			ScanBatchSize:         getEnvAsInt("SLA_SCAN_BATCH_SIZE", 200),
			TerminalLookbackHours: getEnvAsInt("SLA_SCAN_TERMINAL_LOOKBACK_HOURS", 24),
			ReportCron:            getEnv("SLA_REPORT_CRON", "@every 15m"),
			DefaultBudgets: BudgetDefaults{
				HighResponseMinutes:     getEnvAsInt("SLA_DEFAULT_HIGH_RESPONSE_MINUTES", 60),
				HighResolutionMinutes:   getEnvAsInt("SLA_DEFAULT_HIGH_RESOLUTION_MINUTES", 240),
				MediumResponseMinutes:   getEnvAsInt("SLA_DEFAULT_MEDIUM_RESPONSE_MINUTES", 240),
				MediumResolutionMinutes: getEnvAsInt("SLA_DEFAULT_MEDIUM_RESOLUTION_MINUTES", 1440),
				LowResponseMinutes:      getEnvAsInt("SLA_DEFAULT_LOW_RESPONSE_MINUTES", 1440),
				LowResolutionMinutes:    getEnvAsInt("SLA_DEFAULT_LOW_RESOLUTION_MINUTES", 4320),
			},
		},
		Notification: NotificationConfig{
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
			KafkaBrokers:          getEnvAsList("NOTIFY_KAFKA_BROKERS"),
			KafkaTopic:            getEnv("NOTIFY_KAFKA_TOPIC", "sla-breaches"),
			LogBackend:            NotificationLogBackend(strings.ToLower(getEnv("NOTIFY_LOG_BACKEND", string(NotificationLogRedis)))),
			LogCacheTTLSeconds:    getEnvAsInt("NOTIFY_LOG_CACHE_TTL_SECONDS", 600),
		},
	}

	switch cfg.Notification.LogBackend {
	case NotificationLogRedis, NotificationLogPostgres, NotificationLogMemory:
	default:
		return nil, fmt.Errorf("invalid NOTIFY_LOG_BACKEND: %q", cfg.Notification.LogBackend)
	}
	if cfg.SLA.ScanIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid SLA_SCAN_INTERVAL_SECONDS: %d", cfg.SLA.ScanIntervalSeconds)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ScanInterval returns the breach scanner cadence.
func (s SLAConfig) ScanInterval() time.Duration {
	return time.Duration(s.ScanIntervalSeconds) * time.Second
}

// TerminalLookback bounds how far back closed tickets are rescanned.
func (s SLAConfig) TerminalLookback() time.Duration {
	return time.Duration(s.TerminalLookbackHours) * time.Hour
}

// WebhookTimeout returns the outbound webhook timeout.
func (n NotificationConfig) WebhookTimeout() time.Duration {
	if n.WebhookTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(n.WebhookTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
