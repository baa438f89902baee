package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "BOJFX"

// Config represents the complete application configuration
type Config struct {
	Logging      LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Browser      BrowserConfig    `yaml:"browser" envconfig:"BROWSER"`
	Extraction   ExtractionConfig `yaml:"extraction" envconfig:"EXTRACTION"`
	Download     DownloadConfig   `yaml:"download" envconfig:"DOWNLOAD"`
	TimingRetry  RetryConfig      `yaml:"timing_retry" envconfig:"TIMING_RETRY"`
	NetworkRetry RetryConfig      `yaml:"network_retry" envconfig:"NETWORK_RETRY"`
	Telemetry    TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// BrowserConfig describes the local browser the navigation session drives.
type BrowserConfig struct {
	ExecPath       string        `yaml:"exec_path" envconfig:"EXEC_PATH"`
	Headless       bool          `yaml:"headless" envconfig:"HEADLESS"`
	PortalURL      string        `yaml:"portal_url" envconfig:"PORTAL_URL" validate:"required,url"`
	ElementTimeout time.Duration `yaml:"element_timeout" envconfig:"ELEMENT_TIMEOUT" validate:"gt=0"`
	WindowTimeout  time.Duration `yaml:"window_timeout" envconfig:"WINDOW_TIMEOUT" validate:"gt=0"`
	PollInterval   time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL" validate:"gt=0"`
	ActionInterval time.Duration `yaml:"action_interval" envconfig:"ACTION_INTERVAL" validate:"gte=0"`
}

// ExtractionConfig selects what GetData pulls from the portal.
type ExtractionConfig struct {
	Currency         string `yaml:"currency" envconfig:"CURRENCY" validate:"oneof=USD EUR"`
	CalendarFeatures bool   `yaml:"calendar_features" envconfig:"CALENDAR_FEATURES"`
}

// DownloadConfig controls the CSV fetch.
type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	MaxBytes  int64         `yaml:"max_bytes" envconfig:"MAX_BYTES" validate:"gt=0"`
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// RetryConfig defines bounded exponential backoff
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" validate:"gte=1,lte=10"`
	InitialDelay time.Duration `yaml:"initial_delay" envconfig:"INITIAL_DELAY" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay" envconfig:"MAX_DELAY" validate:"gte=0"`
	Multiplier   float64       `yaml:"multiplier" envconfig:"MULTIPLIER" validate:"gte=1"`
}

// TelemetryConfig toggles tracing and metrics export
type TelemetryConfig struct {
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. An empty path searches the
// usual locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields carry no default tags, so envconfig only touches what is set.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints and normalizes logging settings.
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	c.Extraction.Currency = strings.ToUpper(c.Extraction.Currency)

	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging output %q requires a file path", c.Logging.Output)
	}

	for name, r := range map[string]RetryConfig{"timing_retry": c.TimingRetry, "network_retry": c.NetworkRetry} {
		if r.MaxDelay < r.InitialDelay {
			return fmt.Errorf("%s: max delay %s is shorter than initial delay %s", name, r.MaxDelay, r.InitialDelay)
		}
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"bojfx.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Browser: BrowserConfig{
			Headless:       true,
			PortalURL:      PortalURL,
			ElementTimeout: DefaultElementTimeout,
			WindowTimeout:  DefaultWindowTimeout,
			PollInterval:   DefaultPollInterval,
			ActionInterval: DefaultActionInterval,
		},
		Extraction: ExtractionConfig{
			Currency: "USD",
		},
		Download: DownloadConfig{
			Timeout:   DefaultHTTPTimeout,
			MaxBytes:  MaxDownloadBytes,
			UserAgent: DefaultUserAgent,
		},
		TimingRetry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     8 * time.Second,
			Multiplier:   2.0,
		},
		NetworkRetry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 2 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}
