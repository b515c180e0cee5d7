package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Addr     string
	GinMode  string
	LogLevel string

	DBDriver   string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBPath     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	APIKey       string
	QuoteBaseURL string
	QuoteTimeout time.Duration

	StartingCash decimal.Decimal
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:     getEnvString("ADDR", ":8080"),
		GinMode:  getEnvString("GIN_MODE", "release"),
		LogLevel: getEnvString("LOG_LEVEL", "info"),

		DBDriver:   getEnvString("DB_DRIVER", "postgres"),
		DBHost:     getEnvString("DB_HOST", "localhost"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnvString("DB_NAME", "finance"),
		DBPort:     getEnvString("DB_PORT", "5432"),
		DBPath:     getEnvString("DB_PATH", "finance.db"),

		RedisAddr:     getEnvString("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SessionSecret: os.Getenv("SESSION_SECRET"),

		APIKey:       os.Getenv("API_KEY"),
		QuoteBaseURL: getEnvString("QUOTE_BASE_URL", "https://www.alphavantage.co/query"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SecureCookies, err = getEnvBool("SECURE_COOKIES", false); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.QuoteTimeout, err = getEnvDuration("QUOTE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	cash := getEnvString("STARTING_CASH", "10000.00")
	if cfg.StartingCash, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH %q: %w", cash, err)
	}
	if !cfg.StartingCash.IsPositive() {
		return nil, fmt.Errorf("STARTING_CASH must be positive, got %s", cash)
	}

	if cfg.APIKey == "" {
		return nil, errors.New("API_KEY not set")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET not set")
	}
	return cfg, nil
}

// OpenDB connects to the configured relational store.
func OpenDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
		)
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBPath + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	return db, nil
}

// OpenRedis connects to the session store and checks it answers.
func OpenRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration reads a positive duration.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		if duration <= 0 {
			return 0, fmt.Errorf("%s must be positive, got %q", key, value)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		}
		return intValue, nil
	}
	return defaultValue, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %q (%w)", key, value, err)
		}
		return boolValue, nil
	}
	return defaultValue, nil
}
