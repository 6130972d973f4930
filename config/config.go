package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mpesa    MpesaConfig
	Bank     BankConfig
	Orders   OrdersConfig
	Redis    RedisConfig

	// BaseCallbackURL is the public base under which the Daraja webhook is
	// reachable.
	BaseCallbackURL string

	// StalePendingAfter is the horizon used by the timeout sweep: pending
	// attempts older than this are failed with reason "timeout".
	StalePendingAfter time.Duration
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type MpesaConfig struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret string
	Passkey        string
	ShortCode      string
	Timeout        time.Duration
}

// BankConfig is the static account detail shown to customers choosing a bank
// transfer.
type BankConfig struct {
	BankName      string
	AccountName   string
	AccountNumber string
	Branch        string
	SwiftCode     string
}

// OrdersConfig points at the order subsystem's internal API.
type OrdersConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func Load() (*Config, error) {
	// .env is optional, real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8031"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "shop_payments"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Mpesa: MpesaConfig{
			Environment:    getEnv("MPESA_ENVIRONMENT", "sandbox"),
			ConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
			Passkey:        getEnv("MPESA_PASSKEY", ""),
			ShortCode:      getEnv("MPESA_SHORT_CODE", ""),
			Timeout:        getEnvDuration("MPESA_TIMEOUT", 15*time.Second),
		},
		Bank: BankConfig{
			BankName:      getEnv("BANK_NAME", ""),
			AccountName:   getEnv("BANK_ACCOUNT_NAME", ""),
			AccountNumber: getEnv("BANK_ACCOUNT_NUMBER", ""),
			Branch:        getEnv("BANK_BRANCH", ""),
			SwiftCode:     getEnv("BANK_SWIFT_CODE", ""),
		},
		Orders: OrdersConfig{
			BaseURL:   getEnv("ORDERS_BASE_URL", "http://localhost:8020"),
			APIKey:    getEnv("ORDERS_API_KEY", ""),
			APISecret: getEnv("ORDERS_API_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		BaseCallbackURL:   getEnv("CALLBACK_BASE_URL", "http://localhost:8031"),
		StalePendingAfter: getEnvDuration("STALE_PENDING_AFTER", 6*time.Hour),
	}

	if cfg.Server.Env == "production" {
		if cfg.Mpesa.ConsumerKey == "" || cfg.Mpesa.ConsumerSecret == "" {
			return nil, fmt.Errorf("MPESA_CONSUMER_KEY and MPESA_CONSUMER_SECRET are required in production")
		}
		if cfg.Mpesa.ShortCode == "" || cfg.Mpesa.Passkey == "" {
			return nil, fmt.Errorf("MPESA_SHORT_CODE and MPESA_PASSKEY are required in production")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
