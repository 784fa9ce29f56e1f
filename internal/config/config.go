package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Redis settings
	RedisAddr string

	// HTTP API settings
	APIAddr       string
	APIKey        string
	TriggerSecret string
	DevMode       bool

	// Directory service (identity <-> wallet lookups)
	DirectoryBaseURL string
	DirectoryAPIKey  string

	// Trade event source (indexer GraphQL API)
	IndexerGraphQLURL string
	IndexerSecret     string

	// Push delivery sink
	NotifyBaseURL string
	NotifyAPIKey  string

	// Deep-link base for notification target URLs
	AppURL string

	// Engine tuning
	PollInterval    time.Duration
	BatchLimit      int
	GraphTTL        time.Duration
	DedupTTL        time.Duration
	WebhookDedupTTL time.Duration
	Cooldown        time.Duration
	MaxFollowPages  int

	// Outbound HTTP client settings
	HTTPTimeout time.Duration
}

func Load() *Config {
	return &Config{
		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// API
		APIAddr:       getEnv("API_ADDR", ":8090"),
		APIKey:        getEnv("API_KEY", ""),
		TriggerSecret: getEnv("TRIGGER_SECRET", ""),
		DevMode:       getBoolEnv("DEV_MODE", false),

		// Directory
		DirectoryBaseURL: getEnv("DIRECTORY_BASE_URL", "https://api.neynar.com/v2"),
		DirectoryAPIKey:  getEnv("DIRECTORY_API_KEY", ""),

		// Indexer
		IndexerGraphQLURL: getEnv("INDEXER_GRAPHQL_URL", "http://localhost:8080/v1/graphql"),
		IndexerSecret:     getEnv("INDEXER_ADMIN_SECRET", "testing"),

		// Delivery
		NotifyBaseURL: getEnv("NOTIFY_BASE_URL", ""),
		NotifyAPIKey:  getEnv("NOTIFY_API_KEY", ""),

		// Deep links
		AppURL: getEnv("APP_URL", "https://monsignal.xyz"),

		// Engine
		PollInterval:    getDurationEnv("POLL_INTERVAL", 30*time.Second),
		BatchLimit:      getIntEnv("BATCH_LIMIT", 100),
		GraphTTL:        getDurationEnv("GRAPH_TTL", time.Hour),
		DedupTTL:        getDurationEnv("DEDUP_TTL", 24*time.Hour),
		WebhookDedupTTL: getDurationEnv("WEBHOOK_DEDUP_TTL", 7*24*time.Hour),
		Cooldown:        getDurationEnv("COOLDOWN", 30*time.Second),
		MaxFollowPages:  getIntEnv("MAX_FOLLOW_PAGES", 10),

		// HTTP
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 12*time.Second),
	}
}

func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.AppURL == "" {
		return fmt.Errorf("APP_URL is required")
	}
	if c.BatchLimit < 1 {
		return fmt.Errorf("BATCH_LIMIT must be positive, got %d", c.BatchLimit)
	}
	if c.MaxFollowPages < 1 {
		return fmt.Errorf("MAX_FOLLOW_PAGES must be positive, got %d", c.MaxFollowPages)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
