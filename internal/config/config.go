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
	Port        string
	DatabaseURL string
	EnableDB    bool
	LogLevel    string

	JWTSecret    string
	AuthDisabled bool
	CORSOrigins  []string

	ReportsDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	HTTPTimeout    time.Duration
	WebhookTimeout time.Duration
	RetryAttempts  int
	RetryMinWait   time.Duration
	RetryMaxWait   time.Duration

	N8NIQVIAURL           string
	N8NEXIMURL            string
	N8NAnalysisWebhookURL string
	N8NReportWebhookURL   string

	FreeTierLimit int
}

// Load reads the environment and validates it for the server.
func Load() (*Config, error) {
	cfg := read()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOffline is Load for callers that never open the database. ENABLE_DB is
// forced off before validation, so DATABASE_URL and JWT_SECRET are not
// required.
func LoadOffline() (*Config, error) {
	cfg := read()
	cfg.EnableDB = false
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		EnableDB:    strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		AuthDisabled: strings.EqualFold(getEnv("AUTH_DISABLED", "false"), "true"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		ReportsDir: getEnv("REPORTS_DIR", "reports"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		CacheTTL:      getDuration("CACHE_TTL", 24*time.Hour),

		HTTPTimeout:    getDuration("HTTP_TIMEOUT", 15*time.Second),
		WebhookTimeout: getDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		RetryAttempts:  getInt("RETRY_ATTEMPTS", 3),
		RetryMinWait:   getDuration("RETRY_MIN_WAIT", 2*time.Second),
		RetryMaxWait:   getDuration("RETRY_MAX_WAIT", 10*time.Second),

		N8NIQVIAURL:           os.Getenv("N8N_IQVIA_URL"),
		N8NEXIMURL:            os.Getenv("N8N_EXIM_URL"),
		N8NAnalysisWebhookURL: os.Getenv("N8N_WEBHOOK_ANALYSIS_URL"),
		N8NReportWebhookURL:   os.Getenv("N8N_WEBHOOK_REPORT_URL"),

		FreeTierLimit: getInt("FREE_TIER_LIMIT", 5),
	}
	return cfg
}

func (cfg *Config) validate() error {
	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if cfg.EnableDB && !cfg.AuthDisabled && cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENABLE_DB=true unless AUTH_DISABLED=true")
	}
	if cfg.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", cfg.RetryAttempts)
	}
	if cfg.RetryMaxWait < cfg.RetryMinWait {
		return fmt.Errorf("RETRY_MAX_WAIT (%s) is shorter than RETRY_MIN_WAIT (%s)", cfg.RetryMaxWait, cfg.RetryMinWait)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
