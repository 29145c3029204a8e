package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	// Telegram configuration
	TelegramBotToken string
	// Reporting accounts configuration
	SessionsDir      string
	ReportGatewayURL string
	ReportTimeout    time.Duration
	// CryptoPay configuration
	CryptoPayToken string
	CryptoPayURL   string
	CryptoPayAsset string
	// Seeded admin allow-list
	AdminIDs []int64
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:      getEnvAsBool("DEVELOPMENT", false),
		APIPort:          getEnvAsInt("API_PORT", 6533),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:       getEnv("POSTGRES_DB", "delator"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		SessionsDir:      getEnv("SESSIONS_DIR", "sessions"),
		ReportGatewayURL: getEnv("REPORT_GATEWAY_URL", "http://localhost:8070"),
		ReportTimeout:    getEnvAsDuration("REPORT_TIMEOUT", 30*time.Second),
		CryptoPayToken:   getEnv("CRYPTO_BOT_TOKEN", ""),
		CryptoPayURL:     getEnv("CRYPTO_BOT_API_URL", "https://pay.crypt.bot/api/"),
		CryptoPayAsset:   getEnv("CRYPTO_BOT_ASSET", "USDT"),
		AdminIDs:         getEnvAsInt64Slice("ADMIN_IDS", nil),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	if c.CryptoPayToken == "" {
		return fmt.Errorf("CRYPTO_BOT_TOKEN is required")
	}

	if c.CryptoPayURL == "" {
		return fmt.Errorf("CRYPTO_BOT_API_URL is required")
	}

	if c.ReportGatewayURL == "" {
		return fmt.Errorf("REPORT_GATEWAY_URL is required")
	}

	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt64Slice(name string, defaultValue []int64) []int64 {
	valueStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultValue
	}
	var ids []int64
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return defaultValue
		}
		ids = append(ids, id)
	}
	return ids
}
