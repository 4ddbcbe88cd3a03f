package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// Upstream CRM
	CRMEndpoint       string
	RecordingsFeedKey string
	SalesFeedKey      string
	FetchWorkers      int
	FetchTimeout      time.Duration
	FetchRate         float64 // detail fetches per second

	// Dashboard
	RosterPath      string
	Timezone        string
	CacheTTL        time.Duration
	RefreshInterval time.Duration
	LastDaysDefault int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CRMEndpoint:       getEnv("CRM_ENDPOINT", ""),
		RecordingsFeedKey: getEnv("RECORDINGS_FEED_KEY", ""),
		SalesFeedKey:      getEnv("SALES_FEED_KEY", ""),
		RosterPath:        getEnv("ROSTER_PATH", "roster.json"),
		Timezone:          getEnv("DASHBOARD_TZ", "America/New_York"),
	}

	workers, err := strconv.Atoi(getEnv("FETCH_WORKERS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_WORKERS: %w", err)
	}
	if workers < 1 {
		workers = 1
	}
	config.FetchWorkers = workers

	fetchTimeout, err := strconv.Atoi(getEnv("FETCH_TIMEOUT", "12"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}
	config.FetchTimeout = time.Duration(fetchTimeout) * time.Second

	fetchRate, err := strconv.ParseFloat(getEnv("FETCH_RATE", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_RATE: %w", err)
	}
	config.FetchRate = fetchRate

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	config.CacheTTL = time.Duration(cacheTTL) * time.Second

	refresh, err := strconv.Atoi(getEnv("REFRESH_INTERVAL", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	config.RefreshInterval = time.Duration(refresh) * time.Second

	lastDays, err := strconv.Atoi(getEnv("LAST_DAYS_DEFAULT", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid LAST_DAYS_DEFAULT: %w", err)
	}
	config.LastDaysDefault = lastDays

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
