package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig aggregates runtime settings. Everything comes from the environment,
// optionally seeded from configs/.env.
type AppConfig struct {
	Port     string
	GinMode  string
	LogLevel string

	DatabaseURL string

	RedisURL string

	JWTSecret            string
	JWTRefreshSecret     string
	JWTExpiration        time.Duration
	JWTRefreshExpiration time.Duration
	ResetTokenTTL        time.Duration

	MLServiceURL string
	MLTimeout    time.Duration

	CORSOrigins []string

	// Redis Stream used as the background job queue
	JobStream   string
	JobGroup    string
	JobConsumer string

	// Optional Kafka export of order status events
	KafkaBrokers    []string
	KafkaOrderTopic string

	WSJoinOwnershipCheck bool
}

// Load reads configs/.env when present and then validates the environment.
func Load() (AppConfig, error) {
	_ = godotenv.Load("configs/.env")
	return FromEnv()
}

// FromEnv builds the config from the current process environment only.
func FromEnv() (AppConfig, error) {
	cfg := AppConfig{
		Port:             getEnv("PORT", "3001"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		MLServiceURL:     strings.TrimRight(getEnv("ML_SERVICE_URL", "http://localhost:8000"), "/"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		JobStream:        getEnv("JOB_STREAM", "supplylink:jobs"),
		JobGroup:         getEnv("JOB_GROUP", "supplylink-workers"),
		JobConsumer:      getEnv("JOB_CONSUMER", hostnameOr("supplylink-worker-1")),
		KafkaBrokers:     splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaOrderTopic:  getEnv("KAFKA_ORDER_TOPIC", "supplylink.order-status"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts()
	}

	var err error
	if cfg.JWTExpiration, err = getEnvDuration("JWT_EXPIRATION", 15*time.Minute); err != nil {
		return AppConfig{}, err
	}
	if cfg.JWTRefreshExpiration, err = getEnvDuration("JWT_REFRESH_EXPIRATION", 7*24*time.Hour); err != nil {
		return AppConfig{}, err
	}
	if cfg.ResetTokenTTL, err = getEnvDuration("RESET_TOKEN_TTL", time.Hour); err != nil {
		return AppConfig{}, err
	}
	if cfg.MLTimeout, err = getEnvDuration("ML_TIMEOUT", 10*time.Second); err != nil {
		return AppConfig{}, err
	}
	if cfg.WSJoinOwnershipCheck, err = getEnvBool("WS_JOIN_OWNERSHIP_CHECK", true); err != nil {
		return AppConfig{}, err
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		if cfg.GinMode == "release" {
			return AppConfig{}, errors.New("JWT_SECRET and JWT_REFRESH_SECRET are required in release mode")
		}
		// Development fallback only
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = "dev_access_secret"
		}
		if cfg.JWTRefreshSecret == "" {
			cfg.JWTRefreshSecret = "dev_refresh_secret"
		}
	}
	if cfg.JWTSecret == cfg.JWTRefreshSecret {
		return AppConfig{}, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if cfg.JobStream == "" || cfg.JobGroup == "" || cfg.JobConsumer == "" {
		return AppConfig{}, errors.New("JOB_STREAM, JOB_GROUP and JOB_CONSUMER must not be empty")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaOrderTopic == "" {
		return AppConfig{}, errors.New("KAFKA_ORDER_TOPIC must not be empty when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// IsRelease reports whether gin runs in release mode.
func (c AppConfig) IsRelease() bool {
	return c.GinMode == "release"
}

func dsnFromParts() string {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	name := getEnv("DB_NAME", "supplylink")
	sslMode := getEnv("DB_SSLMODE", "disable")
	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + name + "?sslmode=" + sslMode
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := parseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return d, nil
}

// parseDuration accepts Go durations plus a "d" day suffix ("7d").
func parseDuration(v string) (time.Duration, error) {
	if strings.HasSuffix(v, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
		if err != nil {
			return 0, err
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hostnameOr(fallback string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return fallback
}
