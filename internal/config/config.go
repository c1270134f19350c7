package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string

	StoreDriver string
	DatabaseURL string
	DBHost      string
	DBUser      string
	DBPass      string
	DBName      string
	DBPort      string
	RedisURL    string
	AMQPURL     string

	NotificationChannel  string
	NotificationExchange string
	StudentRole          string
	AuthorRoles          []string
	AuthorCooldown       time.Duration
	ExpirySweepSchedule  string
	SeedDemo             bool

	MeiliSearchHost string
	MeiliMasterKey  string

	JWTSecret       string
	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPass:      os.Getenv("DB_PASS"),
		DBName:      getEnv("DB_NAME", "uniconnect"),
		DBPort:      getEnv("DB_PORT", "5432"),
		RedisURL:    os.Getenv("REDIS_URL"),
		AMQPURL:     os.Getenv("AMQP_URL"),

		NotificationChannel:  getEnv("NOTIFICATION_CHANNEL", "notifications:changed"),
		NotificationExchange: getEnv("NOTIFICATION_EXCHANGE", "notifications.changed"),
		StudentRole:          getEnv("STUDENT_ROLE", "student"),
		AuthorRoles:          splitList(getEnv("AUTHOR_ROLES", "lecturer,admin")),
		ExpirySweepSchedule:  getEnv("EXPIRY_SWEEP_SCHEDULE", "@every 1m"),
		SeedDemo:             getEnv("SEED_DEMO", "false") == "true",

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", cfg.StoreDriver, StoreDriverPostgres, StoreDriverMemory)
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv != "development" {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "development-secret"
	}

	// Parsing durations
	var err error
	cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.AuthorCooldown, err = time.ParseDuration(getEnv("AUTHOR_COOLDOWN", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTHOR_COOLDOWN: %w", err)
	}

	return cfg, nil
}

// DSN returns the postgres connection string, preferring DATABASE_URL.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
