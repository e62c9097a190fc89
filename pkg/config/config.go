package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the follower sync tool
type Config struct {
	// GitHub API settings
	GitHub GitHubConfig `yaml:"github" json:"github"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Batch run settings
	Run RunConfig `yaml:"run" json:"run"`

	// Candidate filtering rules
	Filter FilterConfig `yaml:"filter" json:"filter"`

	// Persistence settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics endpoint (empty disables the listener)
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// GitHubConfig holds GitHub-specific configuration
type GitHubConfig struct {
	Token   string        `yaml:"token" json:"token"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// MaxPages bounds pagination per collection endpoint; 0 means unbounded.
	MaxPages int `yaml:"max_pages" json:"max_pages"`
}

// RateLimitConfig holds rate limiting and retry configuration
type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// Cooldown applied before the single re-issue after an unexpected 429.
	SecondaryCooldown time.Duration `yaml:"secondary_cooldown" json:"secondary_cooldown"`
}

// RunConfig holds batch orchestration settings
type RunConfig struct {
	Workers        int           `yaml:"workers" json:"workers"`
	BatchSize      int           `yaml:"batch_size" json:"batch_size"`
	MaxOpsPerRun   int           `yaml:"max_ops_per_run" json:"max_ops_per_run"`
	DryRun         bool          `yaml:"dry_run" json:"dry_run"`
	Delay          time.Duration `yaml:"delay" json:"delay"`
	Strategy       string        `yaml:"strategy" json:"strategy"`
	ErrorThreshold int           `yaml:"error_threshold" json:"error_threshold"`
	TargetAccounts []string      `yaml:"target_accounts" json:"target_accounts"`
}

// FilterConfig holds candidate filtering rules
type FilterConfig struct {
	Enabled           bool     `yaml:"enabled" json:"enabled"`
	Whitelist         []string `yaml:"whitelist" json:"whitelist"`
	Blacklist         []string `yaml:"blacklist" json:"blacklist"`
	Languages         []string `yaml:"languages" json:"languages"`
	MinRepos          int      `yaml:"min_repos" json:"min_repos"`
	MaxRepos          int      `yaml:"max_repos" json:"max_repos"`
	MinFollowers      int      `yaml:"min_followers" json:"min_followers"`
	MaxFollowers      int      `yaml:"max_followers" json:"max_followers"`
	MinFollowing      int      `yaml:"min_following" json:"min_following"`
	RequiredKeywords  []string `yaml:"required_keywords" json:"required_keywords"`
	ExcludedKeywords  []string `yaml:"excluded_keywords" json:"excluded_keywords"`
	MinAccountAgeDays int      `yaml:"min_account_age_days" json:"min_account_age_days"`
}

// StorageConfig holds persistence settings
type StorageConfig struct {
	OutputFile       string        `yaml:"output_file" json:"output_file"`
	Autosave         bool          `yaml:"autosave" json:"autosave"`
	AutosaveInterval time.Duration `yaml:"autosave_interval" json:"autosave_interval"`
	BackupStrategy   string        `yaml:"backup_strategy" json:"backup_strategy"`
	MaxBackups       int           `yaml:"max_backups" json:"max_backups"`
	FallbackFormats  []string      `yaml:"fallback_formats" json:"fallback_formats"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			BaseURL:  "https://api.github.com",
			Timeout:  30 * time.Second,
			MaxPages: 0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         10,
			MaxRetries:        3,
			RetryDelay:        5 * time.Second,
			SecondaryCooldown: 60 * time.Second,
		},
		Run: RunConfig{
			Workers:        5,
			BatchSize:      50,
			MaxOpsPerRun:   100,
			DryRun:         false,
			Delay:          time.Second,
			Strategy:       "balanced",
			ErrorThreshold: 0,
		},
		Filter: FilterConfig{
			Enabled:      false,
			MaxRepos:     999999,
			MaxFollowers: 999999,
		},
		Storage: StorageConfig{
			OutputFile:       "out/profiles.csv",
			Autosave:         true,
			AutosaveInterval: 5 * time.Second,
			BackupStrategy:   "timestamped",
			MaxBackups:       5,
			FallbackFormats:  []string{".csv", ".json", ".ndjson"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.GitHub.Token = token
	}
	if baseURL := os.Getenv("GITHUB_API_URL"); baseURL != "" {
		c.GitHub.BaseURL = baseURL
	}
	if workers := os.Getenv("GHSYNC_MAX_WORKERS"); workers != "" {
		if v, err := strconv.Atoi(workers); err == nil && v > 0 {
			c.Run.Workers = v
		}
	}
	if rps := os.Getenv("GHSYNC_REQUESTS_PER_SECOND"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil && v > 0 {
			c.RateLimit.RequestsPerSecond = v
		}
	}
	if maxOps := os.Getenv("GHSYNC_MAX_OPS_PER_RUN"); maxOps != "" {
		if v, err := strconv.Atoi(maxOps); err == nil && v > 0 {
			c.Run.MaxOpsPerRun = v
		}
	}
	if dryRun := os.Getenv("GHSYNC_DRY_RUN"); dryRun != "" {
		c.Run.DryRun = strings.ToLower(dryRun) == "true"
	}
	if strategy := os.Getenv("GHSYNC_STRATEGY"); strategy != "" {
		c.Run.Strategy = strategy
	}
	if output := os.Getenv("GHSYNC_OUTPUT_FILE"); output != "" {
		c.Storage.OutputFile = output
	}
	if logLevel := os.Getenv("GHSYNC_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if addr := os.Getenv("GHSYNC_METRICS_ADDR"); addr != "" {
		c.MetricsAddr = addr
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".ghsync.yaml",
		".ghsync.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "ghsync", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "ghsync", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".ghsync.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.GitHub.Token == "" {
		errs = append(errs, errors.New("GitHub token is required"))
	}
	if c.GitHub.Timeout < 5*time.Second {
		errs = append(errs, errors.New("request timeout must be at least 5 seconds"))
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	if c.Run.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if c.Run.Workers > 50 {
		errs = append(errs, errors.New("workers should not exceed 50"))
	}
	validStrategies := map[string]bool{
		"fast": true, "balanced": true, "comprehensive": true,
	}
	if !validStrategies[strings.ToLower(c.Run.Strategy)] {
		errs = append(errs, errors.New("strategy must be one of: fast, balanced, comprehensive"))
	}

	if c.Filter.Enabled {
		if c.Filter.MinRepos > c.Filter.MaxRepos {
			errs = append(errs, errors.New("min repos cannot be greater than max repos"))
		}
		if c.Filter.MinFollowers > c.Filter.MaxFollowers {
			errs = append(errs, errors.New("min followers cannot be greater than max followers"))
		}
	}

	if c.Storage.OutputFile == "" {
		errs = append(errs, errors.New("output file is required"))
	}
	validBackupStrategies := map[string]bool{
		"timestamped": true, "rolling": true, "versioned": true,
	}
	if !validBackupStrategies[strings.ToLower(c.Storage.BackupStrategy)] {
		errs = append(errs, errors.New("invalid backup strategy"))
	}
	if c.Storage.MaxBackups < 1 {
		errs = append(errs, errors.New("max backups must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["token"].(string); ok && token != "" {
		c.GitHub.Token = token
	}
	if output, ok := flags["output"].(string); ok && output != "" {
		c.Storage.OutputFile = output
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Run.Workers = workers
	}
	if maxOps, ok := flags["max-ops"].(int); ok && maxOps > 0 {
		c.Run.MaxOpsPerRun = maxOps
	}
	if dryRun, ok := flags["dry-run"].(bool); ok {
		c.Run.DryRun = dryRun
	}
	if delay, ok := flags["delay"].(time.Duration); ok && delay > 0 {
		c.Run.Delay = delay
	}
	if strategy, ok := flags["strategy"].(string); ok && strategy != "" {
		c.Run.Strategy = strategy
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.MetricsAddr = addr
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".ghsync.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
