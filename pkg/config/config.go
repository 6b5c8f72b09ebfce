package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduling SchedulingConfig
	Billing    BillingConfig
	Worker     WorkerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to verify tokens issued by the auth service.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig governs session materialization and conflict checks.
type SchedulingConfig struct {
	Enabled           bool
	Timezone          string
	DefaultWeeksAhead int
	MaxRangeDays      int
	Workers           int
	LockTTL           time.Duration
}

// BillingConfig governs periodic charge generation.
type BillingConfig struct {
	Enabled         bool
	DefaultCurrency string
	MaxPopulation   int
	FeeCacheTTL     time.Duration
	FeeCacheSize    int

	StatementDir       string
	StatementLinkTTL   time.Duration
	StatementRetention time.Duration
}

// WorkerConfig drives the cron-triggered scheduler worker.
type WorkerConfig struct {
	MaterializeCron string
	ChargesCron     string
	OverdueCron     string
	PruneCron       string
	WeeksAhead      int
	Concurrency     int
	Retries         int
	RetryDelay      time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduling = SchedulingConfig{
		Enabled:           v.GetBool("ENABLE_SCHEDULING"),
		Timezone:          v.GetString("SCHEDULING_TIMEZONE"),
		DefaultWeeksAhead: positiveOr(v.GetInt("SCHEDULING_DEFAULT_WEEKS_AHEAD"), 4),
		MaxRangeDays:      positiveOr(v.GetInt("SCHEDULING_MAX_RANGE_DAYS"), 365),
		Workers:           positiveOr(v.GetInt("SCHEDULING_WORKERS"), 4),
		LockTTL:           parseDuration(v.GetString("SCHEDULING_LOCK_TTL"), 2*time.Minute),
	}

	cfg.Billing = BillingConfig{
		Enabled:         v.GetBool("ENABLE_BILLING"),
		DefaultCurrency: strings.ToUpper(v.GetString("BILLING_DEFAULT_CURRENCY")),
		MaxPopulation:   positiveOr(v.GetInt("BILLING_MAX_POPULATION"), 1000),
		FeeCacheTTL:     parseDuration(v.GetString("BILLING_FEE_CACHE_TTL"), 5*time.Minute),
		FeeCacheSize:    positiveOr(v.GetInt("BILLING_FEE_CACHE_SIZE"), 512),

		StatementDir:       v.GetString("BILLING_STATEMENT_DIR"),
		StatementLinkTTL:   parseDuration(v.GetString("BILLING_STATEMENT_LINK_TTL"), 24*time.Hour),
		StatementRetention: parseDuration(v.GetString("BILLING_STATEMENT_RETENTION"), 30*24*time.Hour),
	}

	cfg.Worker = WorkerConfig{
		MaterializeCron: v.GetString("WORKER_MATERIALIZE_CRON"),
		ChargesCron:     v.GetString("WORKER_CHARGES_CRON"),
		OverdueCron:     v.GetString("WORKER_OVERDUE_CRON"),
		PruneCron:       v.GetString("WORKER_PRUNE_CRON"),
		WeeksAhead:      positiveOr(v.GetInt("WORKER_WEEKS_AHEAD"), cfg.Scheduling.DefaultWeeksAhead),
		Concurrency:     positiveOr(v.GetInt("WORKER_CONCURRENCY"), 1),
		Retries:         positiveOr(v.GetInt("WORKER_RETRIES"), 3),
		RetryDelay:      parseDuration(v.GetString("WORKER_RETRY_DELAY"), 30*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULING", true)
	v.SetDefault("SCHEDULING_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULING_DEFAULT_WEEKS_AHEAD", 4)
	v.SetDefault("SCHEDULING_MAX_RANGE_DAYS", 365)
	v.SetDefault("SCHEDULING_WORKERS", 4)
	v.SetDefault("SCHEDULING_LOCK_TTL", "2m")

	v.SetDefault("ENABLE_BILLING", true)
	v.SetDefault("BILLING_DEFAULT_CURRENCY", "BRL")
	v.SetDefault("BILLING_MAX_POPULATION", 1000)
	v.SetDefault("BILLING_FEE_CACHE_TTL", "5m")
	v.SetDefault("BILLING_FEE_CACHE_SIZE", 512)
	v.SetDefault("BILLING_STATEMENT_DIR", "./statements")
	v.SetDefault("BILLING_STATEMENT_LINK_TTL", "24h")
	v.SetDefault("BILLING_STATEMENT_RETENTION", "720h")

	v.SetDefault("WORKER_MATERIALIZE_CRON", "0 2 * * *")
	v.SetDefault("WORKER_CHARGES_CRON", "30 3 1 * *")
	v.SetDefault("WORKER_OVERDUE_CRON", "0 4 * * *")
	v.SetDefault("WORKER_PRUNE_CRON", "0 5 * * 0")
	v.SetDefault("WORKER_WEEKS_AHEAD", 4)
	v.SetDefault("WORKER_CONCURRENCY", 1)
	v.SetDefault("WORKER_RETRIES", 3)
	v.SetDefault("WORKER_RETRY_DELAY", "30s")
}

// Location resolves the scheduling timezone, falling back to UTC.
func (c SchedulingConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
