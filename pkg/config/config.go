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

// Config holds all configuration options for the xhs automation tool
type Config struct {
	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Cookie persistence
	Cookies CookieConfig `yaml:"cookies" json:"cookies"`

	// Navigation pacing
	Throttle ThrottleConfig `yaml:"throttle" json:"throttle"`

	// Strategy document location
	Strategy StrategyConfig `yaml:"strategy" json:"strategy"`

	// Plan defaults
	SOP SOPConfig `yaml:"sop" json:"sop"`

	// State extraction retries
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`
}

// BrowserConfig holds browser launch settings
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	UserDataDir    string        `yaml:"user_data_dir" json:"user_data_dir"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	Bin            string        `yaml:"bin" json:"bin"`
}

// CookieConfig holds cookie store settings
type CookieConfig struct {
	Path           string `yaml:"path" json:"path"`
	Encrypt        bool   `yaml:"encrypt" json:"encrypt"`
	PassphraseFile string `yaml:"passphrase_file" json:"passphrase_file"`
}

// ThrottleConfig holds the navigation pacing parameters
type ThrottleConfig struct {
	MinInterval    time.Duration `yaml:"min_interval" json:"min_interval"`
	MaxInterval    time.Duration `yaml:"max_interval" json:"max_interval"`
	BurstThreshold int           `yaml:"burst_threshold" json:"burst_threshold"`
	BurstCooldown  time.Duration `yaml:"burst_cooldown" json:"burst_cooldown"`
	BurstJitter    time.Duration `yaml:"burst_jitter" json:"burst_jitter"`
}

// StrategyConfig holds the strategy document location
type StrategyConfig struct {
	Path string `yaml:"path" json:"path"`
}

// SOPConfig holds the defaults used when building action plans
type SOPConfig struct {
	CommentCooldownMin float64 `yaml:"comment_cooldown_min" json:"comment_cooldown_min"`
	CommentCooldownMax float64 `yaml:"comment_cooldown_max" json:"comment_cooldown_max"`
	FeedCount          int     `yaml:"feed_count" json:"feed_count"`
	LikeProbability    float64 `yaml:"like_probability" json:"like_probability"`
	CollectProbability float64 `yaml:"collect_probability" json:"collect_probability"`
	CommentProbability float64 `yaml:"comment_probability" json:"comment_probability"`
	IntervalMin        float64 `yaml:"interval_min" json:"interval_min"`
	IntervalMax        float64 `yaml:"interval_max" json:"interval_max"`
	Seed               int64   `yaml:"seed" json:"seed"`
}

// RetryConfig holds state extraction retry settings
type RetryConfig struct {
	StateAttempts       int           `yaml:"state_attempts" json:"state_attempts"`
	StateBackoff        time.Duration `yaml:"state_backoff" json:"state_backoff"`
	InitialStateTimeout time.Duration `yaml:"initial_state_timeout" json:"initial_state_timeout"`
	InitialStateReloads int           `yaml:"initial_state_reloads" json:"initial_state_reloads"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	JSON  bool   `yaml:"json" json:"json"`
}

// OutputConfig holds artifact output configuration
type OutputConfig struct {
	ArtifactDirectory string `yaml:"artifact_directory" json:"artifact_directory"`
	Pretty            bool   `yaml:"pretty" json:"pretty"`
}

// DefaultUserAgent is the desktop Chrome identity presented to the site
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HomeDir returns the per-user data directory (~/.xiaohongshu)
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".xiaohongshu")
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	base := HomeDir()
	return &Config{
		Browser: BrowserConfig{
			Headless:       true,
			Timeout:        60 * time.Second,
			UserDataDir:    "",
			UserAgent:      DefaultUserAgent,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
		},
		Cookies: CookieConfig{
			Path:    filepath.Join(base, "cookies.json"),
			Encrypt: false,
		},
		Throttle: ThrottleConfig{
			MinInterval:    3 * time.Second,
			MaxInterval:    6 * time.Second,
			BurstThreshold: 5,
			BurstCooldown:  10 * time.Second,
			BurstJitter:    3 * time.Second,
		},
		Strategy: StrategyConfig{
			Path: filepath.Join(base, "strategy.json"),
		},
		SOP: SOPConfig{
			CommentCooldownMin: 15,
			CommentCooldownMax: 30,
			FeedCount:          10,
			LikeProbability:    0.3,
			CollectProbability: 0.1,
			CommentProbability: 0.05,
			IntervalMin:        5,
			IntervalMax:        10,
		},
		Retry: RetryConfig{
			StateAttempts:       3,
			StateBackoff:        2 * time.Second,
			InitialStateTimeout: 30 * time.Second,
			InitialStateReloads: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Output: OutputConfig{
			ArtifactDirectory: base,
			Pretty:            true,
		},
	}
}

// LoadFromEnv loads configuration from XHS_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// Browser
	if v := os.Getenv("XHS_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("XHS_HEADLESS: %w", err))
		} else {
			c.Browser.Headless = b
		}
	}
	if v := os.Getenv("XHS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("XHS_TIMEOUT: %w", err))
		} else {
			c.Browser.Timeout = d
		}
	}
	if v := os.Getenv("XHS_USER_DATA_DIR"); v != "" {
		c.Browser.UserDataDir = v
	}
	if v := os.Getenv("XHS_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}
	if v := os.Getenv("XHS_CHROME_BIN"); v != "" {
		c.Browser.Bin = v
	}

	// Cookies
	if v := os.Getenv("XHS_COOKIE_PATH"); v != "" {
		c.Cookies.Path = v
	}
	if v := os.Getenv("XHS_COOKIE_ENCRYPT"); v != "" {
		c.Cookies.Encrypt = strings.ToLower(v) == "true"
	}

	// Strategy
	if v := os.Getenv("XHS_STRATEGY_PATH"); v != "" {
		c.Strategy.Path = v
	}

	// SOP seed
	if v := os.Getenv("XHS_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("XHS_SEED: %w", err))
		} else {
			c.SOP.Seed = seed
		}
	}

	// Logging
	if v := os.Getenv("XHS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("XHS_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	// Output
	if v := os.Getenv("XHS_OUTPUT_DIR"); v != "" {
		c.Output.ArtifactDirectory = v
	}

	return errors.Join(errs...)
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
		".xhs.yaml",
		".xhs.yml",
		filepath.Join(HomeDir(), "config.yaml"),
		filepath.Join(HomeDir(), "config.yml"),
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

	// Browser
	if c.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("browser timeout must be positive"))
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, errors.New("viewport dimensions must be positive"))
	}

	// Paths
	if c.Cookies.Path == "" {
		errs = append(errs, errors.New("cookie path is required"))
	}
	if c.Strategy.Path == "" {
		errs = append(errs, errors.New("strategy path is required"))
	}

	// Throttle
	if c.Throttle.MinInterval < 0 {
		errs = append(errs, errors.New("throttle min interval cannot be negative"))
	}
	if c.Throttle.MaxInterval < c.Throttle.MinInterval {
		errs = append(errs, errors.New("throttle max interval must not be below min interval"))
	}
	if c.Throttle.BurstThreshold <= 0 {
		errs = append(errs, errors.New("burst threshold must be positive"))
	}
	if c.Throttle.BurstCooldown < 0 || c.Throttle.BurstJitter < 0 {
		errs = append(errs, errors.New("burst cooldown and jitter cannot be negative"))
	}

	// SOP
	for name, p := range map[string]float64{
		"like":    c.SOP.LikeProbability,
		"collect": c.SOP.CollectProbability,
		"comment": c.SOP.CommentProbability,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("%s probability must be within [0, 1]", name))
		}
	}
	if c.SOP.CommentCooldownMin < 0 || c.SOP.CommentCooldownMax < c.SOP.CommentCooldownMin {
		errs = append(errs, errors.New("invalid comment cooldown range"))
	}
	if c.SOP.IntervalMin < 0 || c.SOP.IntervalMax < c.SOP.IntervalMin {
		errs = append(errs, errors.New("invalid explore interval range"))
	}
	if c.SOP.FeedCount < 0 {
		errs = append(errs, errors.New("feed count cannot be negative"))
	}

	// Retry
	if c.Retry.StateAttempts <= 0 {
		errs = append(errs, errors.New("state attempts must be positive"))
	}
	if c.Retry.InitialStateReloads < 0 {
		errs = append(errs, errors.New("initial state reloads cannot be negative"))
	}

	// Logging
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

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Browser.Timeout = timeout
	}
	if dir, ok := flags["user-data-dir"].(string); ok && dir != "" {
		c.Browser.UserDataDir = dir
	}
	if path, ok := flags["cookies"].(string); ok && path != "" {
		c.Cookies.Path = path
	}
	if path, ok := flags["strategy"].(string); ok && path != "" {
		c.Strategy.Path = path
	}
	if seed, ok := flags["seed"].(int64); ok {
		c.SOP.Seed = seed
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.ArtifactDirectory = outputDir
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(HomeDir(), ".env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
