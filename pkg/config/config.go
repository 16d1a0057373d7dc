package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Classification scales accepted by ATTAINMENT_CLASSIFICATION_SCALE.
const (
	ScaleLegacy  = "legacy"
	ScaleCeiling = "ceiling"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Attainment AttainmentConfig
	Rescoring  RescoringConfig
	Exports    ExportsConfig
	RateLimit  RateLimitConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string

	// File enables a rotating JSON sink next to stdout when set.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AttainmentConfig tunes the scoring engine and report caching.
type AttainmentConfig struct {
	ClassificationScale string
	ScoringWorkers      int
	ReportCacheEnabled  bool
	ReportCacheTTL      time.Duration
	CatalogCacheTTL     time.Duration
}

// RescoringConfig sizes the background queue that rescores records after mapping edits.
type RescoringConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// ExportsConfig toggles CSV/PDF export of cohort reports.
type ExportsConfig struct {
	Enabled bool
}

// RateLimitConfig throttles mark submission endpoints.
type RateLimitConfig struct {
	SubmissionsPerSecond float64
	Burst                int
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
	}

	scale := strings.ToLower(strings.TrimSpace(v.GetString("ATTAINMENT_CLASSIFICATION_SCALE")))
	if scale != ScaleCeiling {
		scale = ScaleLegacy
	}
	workers := v.GetInt("ATTAINMENT_SCORING_WORKERS")
	if workers <= 0 {
		workers = 4
	}
	cfg.Attainment = AttainmentConfig{
		ClassificationScale: scale,
		ScoringWorkers:      workers,
		ReportCacheEnabled:  v.GetBool("ENABLE_REPORT_CACHE"),
		ReportCacheTTL:      parseDuration(v.GetString("REPORT_CACHE_TTL"), 5*time.Minute),
		CatalogCacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), time.Hour),
	}

	cfg.Rescoring = RescoringConfig{
		Workers:    v.GetInt("RESCORE_WORKERS"),
		Retries:    v.GetInt("RESCORE_RETRIES"),
		RetryDelay: parseDuration(v.GetString("RESCORE_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Exports = ExportsConfig{Enabled: v.GetBool("ENABLE_EXPORTS")}

	cfg.RateLimit = RateLimitConfig{
		SubmissionsPerSecond: v.GetFloat64("SUBMISSION_RATE_PER_SEC"),
		Burst:                v.GetInt("SUBMISSION_BURST"),
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
	v.SetDefault("DB_NAME", "obe_attainment")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)

	v.SetDefault("ATTAINMENT_CLASSIFICATION_SCALE", ScaleLegacy)
	v.SetDefault("ATTAINMENT_SCORING_WORKERS", 4)
	v.SetDefault("ENABLE_REPORT_CACHE", false)
	v.SetDefault("REPORT_CACHE_TTL", "5m")
	v.SetDefault("CATALOG_CACHE_TTL", "1h")

	v.SetDefault("RESCORE_WORKERS", 2)
	v.SetDefault("RESCORE_RETRIES", 3)
	v.SetDefault("RESCORE_RETRY_DELAY", "2s")

	v.SetDefault("ENABLE_EXPORTS", true)

	v.SetDefault("SUBMISSION_RATE_PER_SEC", 20)
	v.SetDefault("SUBMISSION_BURST", 40)
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
