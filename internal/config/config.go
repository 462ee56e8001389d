// Package config loads process settings from the environment and the tenant
// list from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DedupSemantic = "semantic"
	DedupLexical  = "lexical"

	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 12_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/124.0.0.0 Safari/537.36 CityBot/0.1"
)

type Config struct {
	// Telegram settings
	TelegramToken string

	// Gemini settings
	GeminiAPIKey      string
	EmbedModel        string
	SummaryModel      string
	MaxGeminiRequests int // per provider per day (0 = unlimited)

	// Tenants / feeds
	TenantsConfigPath string
	UserAgent         string

	// Timeouts
	FetchTimeout   time.Duration
	EmbedTimeout   time.Duration
	SummaryTimeout time.Duration
	RunTimeout     time.Duration

	// Dedup settings
	RecencyWindow       time.Duration
	SimilarityThreshold float64
	DedupStrategy       string // semantic | lexical
	LexicalKeyWords     int
	EmbedInputMaxChars  int

	SummaryConcurrency int

	// Scheduling and monitoring
	ScheduleSlots        []string // HH:MM in each tenant's zone
	EnableHTTPMonitoring bool
	MonitoringPort       string

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		EmbedModel:          "text-embedding-004",
		SummaryModel:        "gemini-1.5-flash",
		TenantsConfigPath:   "configs/tenants.yaml",
		UserAgent:           defaultUserAgent,
		FetchTimeout:        15 * time.Second,
		EmbedTimeout:        10 * time.Second,
		SummaryTimeout:      20 * time.Second,
		RunTimeout:          3 * time.Minute,
		RecencyWindow:       24 * time.Hour,
		SimilarityThreshold: 0.93,
		DedupStrategy:       DedupSemantic,
		LexicalKeyWords:     8,
		EmbedInputMaxChars:  1000,
		SummaryConcurrency:  4,
		ScheduleSlots:       []string{"08:00", "11:00", "14:00", "18:00", "21:00"},
		MonitoringPort:      "8080",
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	cfg.EmbedModel = getEnvOrDefault("EMBED_MODEL", cfg.EmbedModel)
	cfg.SummaryModel = getEnvOrDefault("SUMMARY_MODEL", cfg.SummaryModel)
	cfg.TenantsConfigPath = getEnvOrDefault("TENANTS_CONFIG_PATH", cfg.TenantsConfigPath)
	cfg.UserAgent = getEnvOrDefault("USER_AGENT", cfg.UserAgent)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)
	cfg.DedupStrategy = strings.ToLower(getEnvOrDefault("DEDUP_STRATEGY", cfg.DedupStrategy))

	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", 0)
	cfg.FetchTimeout = getEnvSecondsOrDefault("FETCH_TIMEOUT_SEC", cfg.FetchTimeout)
	cfg.EmbedTimeout = getEnvSecondsOrDefault("EMBED_TIMEOUT_SEC", cfg.EmbedTimeout)
	cfg.SummaryTimeout = getEnvSecondsOrDefault("SUMMARY_TIMEOUT_SEC", cfg.SummaryTimeout)
	cfg.RunTimeout = getEnvSecondsOrDefault("RUN_TIMEOUT_SEC", cfg.RunTimeout)
	cfg.RecencyWindow = time.Duration(getEnvIntOrDefault("RECENCY_WINDOW_HOURS", 24)) * time.Hour
	cfg.LexicalKeyWords = getEnvIntOrDefault("LEXICAL_KEY_WORDS", cfg.LexicalKeyWords)
	cfg.EmbedInputMaxChars = getEnvIntOrDefault("EMBED_INPUT_MAX_CHARS", cfg.EmbedInputMaxChars)
	cfg.SummaryConcurrency = getEnvIntOrDefault("SUMMARY_CONCURRENCY", cfg.SummaryConcurrency)

	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SimilarityThreshold = val
		}
	}

	if v := os.Getenv("SCHEDULE_SLOTS"); v != "" {
		cfg.ScheduleSlots = splitList(v)
	}

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		cfg.EnableHTTPMonitoring = true
	}
	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.DedupStrategy != DedupSemantic && c.DedupStrategy != DedupLexical {
		return fmt.Errorf("DEDUP_STRATEGY must be '%s' or '%s'", DedupSemantic, DedupLexical)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.RecencyWindow <= 0 {
		return fmt.Errorf("RECENCY_WINDOW_HOURS must be positive")
	}
	if c.LexicalKeyWords <= 0 {
		return fmt.Errorf("LEXICAL_KEY_WORDS must be positive")
	}
	if c.EmbedInputMaxChars <= 0 {
		return fmt.Errorf("EMBED_INPUT_MAX_CHARS must be positive")
	}
	if c.SummaryConcurrency <= 0 {
		return fmt.Errorf("SUMMARY_CONCURRENCY must be positive")
	}
	for _, slot := range c.ScheduleSlots {
		if _, _, err := ParseSlot(slot); err != nil {
			return err
		}
	}
	return nil
}

// ParseSlot extracts hour and minute from HH:MM.
func ParseSlot(t string) (int, int, error) {
	if len(t) != 5 || t[2] != ':' {
		return 0, 0, fmt.Errorf("invalid slot %q: must be HH:MM", t)
	}

	hour, errH := strconv.Atoi(t[:2])
	minute, errM := strconv.Atoi(t[3:])
	if errH != nil || errM != nil {
		return 0, 0, fmt.Errorf("invalid slot %q: must be HH:MM", t)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid slot %q: hour 0-23, minute 0-59", t)
	}

	return hour, minute, nil
}
