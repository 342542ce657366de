package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "silverpulse/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Sources   SourcesConfig   `yaml:"sources" envconfig:"SOURCES"`
	History   HistoryConfig   `yaml:"history" envconfig:"HISTORY"`
	Scheduler SchedulerConfig `yaml:"scheduler" envconfig:"SCHEDULER"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RefreshTimeout  time.Duration `yaml:"refresh_timeout" envconfig:"REFRESH_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output     string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" envconfig:"COMPRESS"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// SourcesConfig configures the upstream adapters and the fetch executor
type SourcesConfig struct {
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT" validate:"required"`
	CacheTTL  time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL" validate:"gt=0"`
	Disabled  []string      `yaml:"disabled" envconfig:"DISABLED"`

	WarehouseURL     string        `yaml:"warehouse_url" envconfig:"WAREHOUSE_URL" validate:"required,url"`
	WarehouseTimeout time.Duration `yaml:"warehouse_timeout" envconfig:"WAREHOUSE_TIMEOUT" validate:"gt=0"`
	RetryAttempts    int           `yaml:"retry_attempts" envconfig:"RETRY_ATTEMPTS" validate:"min=1,max=10"`
	RetryDelay       time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" validate:"gte=0"`

	ETFURL      string        `yaml:"etf_url" envconfig:"ETF_URL" validate:"required,url"`
	ETFRenderJS bool          `yaml:"etf_render_js" envconfig:"ETF_RENDER_JS"`
	PageTimeout time.Duration `yaml:"page_timeout" envconfig:"PAGE_TIMEOUT" validate:"gt=0"`

	QuoteURL     string        `yaml:"quote_url" envconfig:"QUOTE_URL" validate:"required,url"`
	QuotePageURL string        `yaml:"quote_page_url" envconfig:"QUOTE_PAGE_URL"`
	Ticker       string        `yaml:"ticker" envconfig:"TICKER" validate:"required"`
	QuoteTimeout time.Duration `yaml:"quote_timeout" envconfig:"QUOTE_TIMEOUT" validate:"gt=0"`

	BenchmarkURL        string  `yaml:"benchmark_url" envconfig:"BENCHMARK_URL" validate:"required,url"`
	BenchmarkWindowDays int     `yaml:"benchmark_window_days" envconfig:"BENCHMARK_WINDOW_DAYS" validate:"min=1"`
	FXURL               string  `yaml:"fx_url" envconfig:"FX_URL"`
	FXFallbackRate      float64 `yaml:"fx_fallback_rate" envconfig:"FX_FALLBACK_RATE" validate:"gt=0"`

	VaultBaseURL string        `yaml:"vault_base_url" envconfig:"VAULT_BASE_URL" validate:"required,url"`
	VaultDaysBack int          `yaml:"vault_days_back" envconfig:"VAULT_DAYS_BACK" validate:"min=1,max=60"`
	VaultTimeout time.Duration `yaml:"vault_timeout" envconfig:"VAULT_TIMEOUT" validate:"gt=0"`
}

// HistoryConfig configures the historical store and backfill
type HistoryConfig struct {
	FileName         string        `yaml:"file_name" envconfig:"FILE_NAME" validate:"required"`
	MinSpan          time.Duration `yaml:"min_span" envconfig:"MIN_SPAN" validate:"gte=0"`
	ArchiveURL       string        `yaml:"archive_url" envconfig:"ARCHIVE_URL" validate:"omitempty,url"`
	SyntheticEnabled bool          `yaml:"synthetic_enabled" envconfig:"SYNTHETIC_ENABLED"`
	BackfillEnabled  bool          `yaml:"backfill_enabled" envconfig:"BACKFILL_ENABLED"`
}

// SchedulerConfig configures periodic refreshes
type SchedulerConfig struct {
	Enabled    bool   `yaml:"enabled" envconfig:"ENABLED"`
	Schedule   string `yaml:"schedule" envconfig:"SCHEDULE"`
	RunOnStart bool   `yaml:"run_on_start" envconfig:"RUN_ON_START"`
}

// TelemetryConfig configures OpenTelemetry exporters
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Load builds the configuration from defaults, then the YAML file if one is
// found, then SILVER_* environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays keys present in the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration. Failures are ErrTypeConfig errors.
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("invalid configuration", err)
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return apperrors.NewConfigError("rate limit rps and burst must be positive when enabled", nil)
	}

	if c.Scheduler.Enabled && c.Scheduler.Schedule == "" {
		return apperrors.NewConfigError("scheduler enabled without a schedule", nil)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    3 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RefreshTimeout:  2 * time.Minute,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			Output:     "both",
			FilePath:   "app.log",
			MaxSizeMB:  MaxLogFileSizeMB,
			MaxBackups: MaxLogFileBackups,
			MaxAgeDays: MaxLogFileAgeDays,
			Compress:   true,
		},
		Paths: PathsConfig{
			DataDir: "data",
			LogsDir: "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Sources: SourcesConfig{
			UserAgent:           DefaultUserAgent,
			CacheTTL:            FetchCacheDuration,
			WarehouseURL:        DefaultWarehouseURL,
			WarehouseTimeout:    WarehouseFetchTimeout,
			RetryAttempts:       WarehouseRetryAttempts,
			RetryDelay:          WarehouseRetryDelay,
			ETFURL:              DefaultETFURL,
			PageTimeout:         PageFetchTimeout,
			QuoteURL:            DefaultQuoteURL,
			QuotePageURL:        DefaultQuotePageURL,
			Ticker:              DefaultTicker,
			QuoteTimeout:        QuoteFetchTimeout,
			BenchmarkURL:        DefaultBenchmarkURL,
			BenchmarkWindowDays: BenchmarkWindowDays,
			FXURL:               DefaultFXURL,
			FXFallbackRate:      FXFallbackCNYPerUSD,
			VaultBaseURL:        DefaultVaultBaseURL,
			VaultDaysBack:       VaultDaysBack,
			VaultTimeout:        VaultFetchTimeout,
		},
		History: HistoryConfig{
			FileName:         HistoryFileName,
			MinSpan:          HistoryMinSpan,
			SyntheticEnabled: true,
			BackfillEnabled:  true,
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			Schedule:   DefaultRefreshSchedule,
			RunOnStart: true,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}

// SourceEnabled reports whether the adapter id is not listed in Sources.Disabled
func (c *Config) SourceEnabled(id string) bool {
	for _, d := range c.Sources.Disabled {
		if d == id {
			return false
		}
	}
	return true
}
