package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	BaseURL string

	SeedAdmin         bool
	SeedAdminName     string
	SeedAdminPassword string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	PayPayAPIKey     string
	PayPayAPISecret  string
	PayPayMerchantID string
	PayPayBaseURL    string

	LINEChannelAccessToken string
	LINEChannelSecret      string
	LINELoginChannelID     string
	LINELoginChannelSecret string

	VisionAPIKey   string
	VisionEndpoint string
	VisionModel    string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "suiren"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":3000"),
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),

		BaseURL: getenv("APP_URL", "http://localhost:3000"),

		SeedAdmin:         getenvBool("SEED_ADMIN", true),
		SeedAdminName:     getenv("SEED_ADMIN_NAME", "admin"),
		SeedAdminPassword: strings.TrimSpace(getenv("SEED_ADMIN_PASSWORD", "")),

		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "suiren"),
		DBUser:            getenv("DATABASE_USER", "suiren"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "data/suiren.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		PayPayAPIKey:     strings.TrimSpace(getenv("PAYPAY_API_KEY", "")),
		PayPayAPISecret:  strings.TrimSpace(getenv("PAYPAY_API_SECRET", "")),
		PayPayMerchantID: strings.TrimSpace(getenv("PAYPAY_MERCHANT_ID", "")),
		PayPayBaseURL:    getenv("PAYPAY_BASE_URL", "https://stg-api.sandbox.paypay.ne.jp"),

		LINEChannelAccessToken: strings.TrimSpace(getenv("LINE_CHANNEL_ACCESS_TOKEN", "")),
		LINEChannelSecret:      strings.TrimSpace(getenv("LINE_CHANNEL_SECRET", "")),
		LINELoginChannelID:     strings.TrimSpace(getenv("LINE_LOGIN_CHANNEL_ID", "")),
		LINELoginChannelSecret: strings.TrimSpace(getenv("LINE_LOGIN_CHANNEL_SECRET", "")),

		VisionAPIKey:   strings.TrimSpace(getenv("VISION_API_KEY", "")),
		VisionEndpoint: getenv("VISION_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		VisionModel:    getenv("VISION_MODEL", "gpt-4o-mini"),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
