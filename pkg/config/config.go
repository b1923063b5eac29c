package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	StorageBackend string // postgres, memory
	Database       DatabaseConfig

	// Redis
	Redis RedisConfig

	// Collaborators
	Angel        AngelConfig
	LLM          LLMConfig
	NSE          NSEConfig
	AlphaVantage AlphaVantageConfig
	Sentiment    SentimentConfig
	Telegram     TelegramConfig

	// Dashboard API auth
	Auth AuthConfig

	// Credential backend
	SecretsBackend string // env, gcp
	GCPProjectID   string

	// Secrets holds raw credential values keyed by env name.
	// Clients never read these directly; they go through pkg/secrets.
	Secrets map[string]string

	Timeouts TimeoutConfig
	Market   MarketConfig
	Charges  ChargesConfig

	// AlertFailureStreak is the number of consecutive runs with the same
	// failure pattern before an alert is sent.
	AlertFailureStreak int

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// AngelConfig holds Angel One SmartAPI configuration
type AngelConfig struct {
	BaseURL  string
	Mode     string // live, paper
	ClientIP string
	MAC      string

	// Requests per second allowed against SmartAPI
	RateLimit float64

	// Starting cash of the paper broker
	PaperCash float64
}

// IsPaper reports whether orders are routed to the in-process paper broker
func (a AngelConfig) IsPaper() bool {
	return a.Mode == "paper"
}

// LLMConfig holds the OpenAI-compatible advisory endpoint configuration
type LLMConfig struct {
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   int
	RateLimit   float64 // requests per second
}

// NSEConfig holds NSE public API configuration
type NSEConfig struct {
	BaseURL string
}

// AlphaVantageConfig holds technical indicator provider configuration
type AlphaVantageConfig struct {
	BaseURL string
	Enabled bool
}

// SentimentConfig points at an HTML page carrying a market mood label
type SentimentConfig struct {
	URL      string
	Selector string
}

// TelegramConfig holds notification targets
type TelegramConfig struct {
	BaseURL string
	ChatIDs []string
}

// AuthConfig holds dashboard API auth settings
type AuthConfig struct {
	JWTSecret     string
	AdminPassword string
	TokenTTL      time.Duration
}

// Enabled reports whether bearer auth is enforced on /api routes
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// TimeoutConfig holds per-collaborator call timeouts
type TimeoutConfig struct {
	Session    time.Duration
	Enrichment time.Duration
	Advisory   time.Duration
	Brokerage  time.Duration
	Notify     time.Duration
}

// MarketConfig holds market calendar settings
type MarketConfig struct {
	Timezone     string
	DefaultIndex string
	Exchange     string
}

// Location resolves the configured timezone, falling back to IST.
func (m MarketConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// ChargesConfig holds the simulated delivery-equity charge schedule.
// Rates are fractions (0.001 = 0.1%).
type ChargesConfig struct {
	BrokerageFlat    float64
	BrokerageRate    float64
	STTRate          float64
	ExchangeTxnRate  float64
	SEBIRate         float64
	StampDutyRate    float64
	GSTRate          float64
	DPChargePerSell  float64
}

// secretKeys are the credential env vars collected into Config.Secrets
var secretKeys = []string{
	"ANGEL_API_KEY",
	"ANGEL_CLIENT_ID",
	"ANGEL_PASSWORD",
	"ANGEL_TOTP_SECRET",
	"LLM_API_KEY",
	"TELEGRAM_BOT_TOKEN",
	"ALPHAVANTAGE_API_KEY",
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		StorageBackend: getEnv("STORAGE_BACKEND", "postgres"),
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Angel: AngelConfig{
			BaseURL:   getEnv("ANGEL_BASE_URL", "https://apiconnect.angelone.in"),
			Mode:      getEnv("BROKER_MODE", "paper"),
			ClientIP:  getEnv("ANGEL_CLIENT_IP", "127.0.0.1"),
			MAC:       getEnv("ANGEL_MAC_ADDRESS", "00:00:00:00:00:00"),
			RateLimit: getEnvAsFloat("ANGEL_RATE_LIMIT", 3),
			PaperCash: getEnvAsFloat("PAPER_STARTING_CASH", 100000),
		},

		LLM: LLMConfig{
			Endpoint:    getEnv("LLM_ENDPOINT", "https://api.openai.com/v1"),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 400),
			RateLimit:   getEnvAsFloat("LLM_RATE_LIMIT", 1),
		},

		NSE: NSEConfig{
			BaseURL: getEnv("NSE_BASE_URL", "https://www.nseindia.com"),
		},

		AlphaVantage: AlphaVantageConfig{
			BaseURL: getEnv("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co"),
			Enabled: getEnvAsBool("ALPHAVANTAGE_ENABLED", true),
		},

		Sentiment: SentimentConfig{
			URL:      getEnv("SENTIMENT_URL", ""),
			Selector: getEnv("SENTIMENT_SELECTOR", ""),
		},

		Telegram: TelegramConfig{
			BaseURL: getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
			ChatIDs: getEnvAsList("TELEGRAM_CHAT_IDS"),
		},

		Auth: AuthConfig{
			JWTSecret:     getEnv("AUTH_JWT_SECRET", ""),
			AdminPassword: getEnv("AUTH_ADMIN_PASSWORD", ""),
			TokenTTL:      getEnvAsDuration("AUTH_TOKEN_TTL", "12h"),
		},

		SecretsBackend: getEnv("SECRETS_BACKEND", "env"),
		GCPProjectID:   getEnv("GCP_PROJECT_ID", ""),
		Secrets:        make(map[string]string),

		Timeouts: TimeoutConfig{
			Session:    getEnvAsDuration("TIMEOUT_SESSION", "10s"),
			Enrichment: getEnvAsDuration("TIMEOUT_ENRICHMENT", "10s"),
			Advisory:   getEnvAsDuration("TIMEOUT_ADVISORY", "60s"),
			Brokerage:  getEnvAsDuration("TIMEOUT_BROKERAGE", "30s"),
			Notify:     getEnvAsDuration("TIMEOUT_NOTIFY", "10s"),
		},

		Market: MarketConfig{
			Timezone:     getEnv("MARKET_TIMEZONE", "Asia/Kolkata"),
			DefaultIndex: getEnv("MARKET_DEFAULT_INDEX", "NIFTY 50"),
			Exchange:     getEnv("MARKET_EXCHANGE", "NSE"),
		},

		// Discount-broker delivery schedule (NSE)
		Charges: ChargesConfig{
			BrokerageFlat:   getEnvAsFloat("CHARGES_BROKERAGE_FLAT", 20),
			BrokerageRate:   getEnvAsFloat("CHARGES_BROKERAGE_RATE", 0.001),
			STTRate:         getEnvAsFloat("CHARGES_STT_RATE", 0.001),
			ExchangeTxnRate: getEnvAsFloat("CHARGES_EXCHANGE_TXN_RATE", 0.0000297),
			SEBIRate:        getEnvAsFloat("CHARGES_SEBI_RATE", 0.000001),
			StampDutyRate:   getEnvAsFloat("CHARGES_STAMP_DUTY_RATE", 0.00015),
			GSTRate:         getEnvAsFloat("CHARGES_GST_RATE", 0.18),
			DPChargePerSell: getEnvAsFloat("CHARGES_DP_PER_SELL", 15.93),
		},

		AlertFailureStreak: getEnvAsInt("ALERT_FAILURE_STREAK", 3),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	for _, key := range secretKeys {
		if value := os.Getenv(key); value != "" {
			cfg.Secrets[key] = value
		}
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.StorageBackend != "postgres" && c.StorageBackend != "memory" {
		return fmt.Errorf("STORAGE_BACKEND must be one of: postgres, memory")
	}
	if c.StorageBackend == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Angel.Mode != "live" && c.Angel.Mode != "paper" {
		return fmt.Errorf("BROKER_MODE must be one of: live, paper")
	}

	if c.SecretsBackend != "env" && c.SecretsBackend != "gcp" {
		return fmt.Errorf("SECRETS_BACKEND must be one of: env, gcp")
	}
	if c.SecretsBackend == "gcp" && c.GCPProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required when SECRETS_BACKEND=gcp")
	}

	if c.Auth.Enabled() && c.Auth.AdminPassword == "" {
		return fmt.Errorf("AUTH_ADMIN_PASSWORD is required when AUTH_JWT_SECRET is set")
	}

	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("MARKET_TIMEZONE is invalid: %w", err)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
