// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/extrato-relay/internal/identifier"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Defaults
const (
	DefaultFileMarker       = "ext_"
	DefaultLookbackDays     = 1
	DefaultCronSpec         = "*/1 * * * *"
	DefaultScheduleTimezone = "America/Sao_Paulo"
	DefaultReadTimezone     = "UTC"
	DefaultBatchSize        = 2
	DefaultBatchDelayMS     = 2000
	DefaultServiceDelayMS   = 1000
	DefaultRequestTimeoutMS = 30000
	DefaultIngestPath       = "/api/ext-salva-movimentacoes-externas"
)

// Config holds application configuration
type Config struct {
	OFXDir               string // Directory scanned for statement files
	FileMarker           string // Substring a file name must contain
	LookbackDays         int    // Also accept files dated this many days back
	CronSpec             string // Standard 5-field cron expression
	ScheduleTimezone     string // Timezone for the schedule and filename date tokens
	ReadTimezone         string // Timezone for the read timestamp
	BatchSize            int    // Statements per delivery request
	DelayBetweenBatches  time.Duration
	DelayBetweenServices time.Duration
	RequestTimeout       time.Duration
	DestinationURLs      []string // Ordered base URLs
	IngestPath           string
	IdentifierStrategy   string
	LegacyHeaderBranch   bool // Take the branch from header line columns instead of the filename
	RunOnStart           bool
	StatusPort           int // 0 disables the status server
	LogLevel             string
	LogPretty            bool

	// Resolved from the timezone names by Load
	ScheduleLocation *time.Location
	ReadLocation     *time.Location
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv builds and validates a Config from the current environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		OFXDir:               getEnv("OFX_DIR", ""),
		FileMarker:           getEnv("FILE_MARKER", DefaultFileMarker),
		LookbackDays:         getEnvAsInt("LOOKBACK_DAYS", DefaultLookbackDays),
		CronSpec:             getEnv("CRON_STR", DefaultCronSpec),
		ScheduleTimezone:     getEnv("SCHEDULE_TIMEZONE", DefaultScheduleTimezone),
		ReadTimezone:         getEnv("READ_TIMEZONE", DefaultReadTimezone),
		BatchSize:            getEnvAsInt("BATCH_SIZE", DefaultBatchSize),
		DelayBetweenBatches:  getEnvAsMillis("DELAY_BETWEEN_BATCHES_MS", DefaultBatchDelayMS),
		DelayBetweenServices: getEnvAsMillis("DELAY_BETWEEN_SERVICES_MS", DefaultServiceDelayMS),
		RequestTimeout:       getEnvAsMillis("REQUEST_TIMEOUT_MS", DefaultRequestTimeoutMS),
		DestinationURLs:      splitList(getEnv("DESTINATION_URLS", "")),
		IngestPath:           getEnv("INGEST_PATH", DefaultIngestPath),
		IdentifierStrategy:   getEnv("IDENTIFIER_STRATEGY", identifier.Hashed),
		LegacyHeaderBranch:   getEnvAsBool("LEGACY_HEADER_BRANCH", false),
		RunOnStart:           getEnvAsBool("RUN_ON_START", false),
		StatusPort:           getEnvAsInt("STATUS_PORT", 0),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogPretty:            getEnvAsBool("LOG_PRETTY", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validate already proved both names load
	cfg.ScheduleLocation, _ = time.LoadLocation(cfg.ScheduleTimezone)
	cfg.ReadLocation, _ = time.LoadLocation(cfg.ReadTimezone)

	return cfg, nil
}

// Validate checks that the configuration can drive a run. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.OFXDir == "" {
		errs = append(errs, errors.New("OFX_DIR is required"))
	}

	if len(c.DestinationURLs) == 0 {
		errs = append(errs, errors.New("DESTINATION_URLS must list at least one URL"))
	}
	for _, raw := range c.DestinationURLs {
		if err := validateURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("DESTINATION_URLS: %w", err))
		}
	}

	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be at least 1, got %d", c.BatchSize))
	}
	if c.DelayBetweenBatches < 0 {
		errs = append(errs, errors.New("DELAY_BETWEEN_BATCHES_MS must not be negative"))
	}
	if c.DelayBetweenServices < 0 {
		errs = append(errs, errors.New("DELAY_BETWEEN_SERVICES_MS must not be negative"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT_MS must be positive"))
	}
	if c.LookbackDays < 0 {
		errs = append(errs, fmt.Errorf("LOOKBACK_DAYS must not be negative, got %d", c.LookbackDays))
	}
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		errs = append(errs, fmt.Errorf("STATUS_PORT out of range: %d", c.StatusPort))
	}

	if _, err := identifier.FromName(c.IdentifierStrategy); err != nil {
		errs = append(errs, fmt.Errorf("IDENTIFIER_STRATEGY: %w", err))
	}
	if _, err := time.LoadLocation(c.ScheduleTimezone); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULE_TIMEZONE: %w", err))
	}
	if _, err := time.LoadLocation(c.ReadTimezone); err != nil {
		errs = append(errs, fmt.Errorf("READ_TIMEZONE: %w", err))
	}
	if _, err := cron.ParseStandard(c.CronSpec); err != nil {
		errs = append(errs, fmt.Errorf("CRON_STR: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Millisecond
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
