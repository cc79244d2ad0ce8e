package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Report    ReportConfig    `mapstructure:"report"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// AnthropicConfig holds Claude API settings
type AnthropicConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// SourcesConfig holds all content source configurations
type SourcesConfig struct {
	Video VideoConfig `mapstructure:"video"`
	RSS   RSSConfig   `mapstructure:"rss"`
}

// VideoConfig holds video platform API settings
type VideoConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	APIBase   string         `mapstructure:"api_base"`
	WatchURL  string         `mapstructure:"watch_url"`
	MaxVideos int            `mapstructure:"max_videos"`
	Creators  []VideoCreator `mapstructure:"creators"`
}

// VideoCreator identifies one monitored uploader
type VideoCreator struct {
	Name string `mapstructure:"name"`
	ID   string `mapstructure:"id"`
}

// RSSConfig holds RSS feed settings
type RSSConfig struct {
	Enabled bool      `mapstructure:"enabled"`
	Feeds   []RSSFeed `mapstructure:"feeds"`
}

// RSSFeed represents a single RSS feed
type RSSFeed struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// MonitorConfig holds monitoring pass settings
type MonitorConfig struct {
	CheckDelay time.Duration `mapstructure:"check_delay"` // pause between source checks
	SeenCap    int           `mapstructure:"seen_cap"`    // max remembered IDs per source
	StateFile  string        `mapstructure:"state_file"`
}

// ReportConfig holds report generation settings
type ReportConfig struct {
	Title               string        `mapstructure:"title"`
	MinImportance       float64       `mapstructure:"min_importance"`
	MaxItemsPerCategory int           `mapstructure:"max_items_per_category"`
	Lookback            time.Duration `mapstructure:"lookback"` // item age window for a report
}

// ArchiveConfig holds report archive settings
type ArchiveConfig struct {
	Dir           string `mapstructure:"dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	Mode        string        `mapstructure:"mode"` // cron or interval
	MonitorCron string        `mapstructure:"monitor_cron"`
	ReportCron  string        `mapstructure:"report_cron"`
	CleanupCron string        `mapstructure:"cleanup_cron"`
	Interval    time.Duration `mapstructure:"interval"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	AnthropicRequestsPerMinute int     `mapstructure:"anthropic_requests_per_minute"`
	VideoRequestsPerSecond     float64 `mapstructure:"video_requests_per_second"`
	RSSRequestsPerSecond       float64 `mapstructure:"rss_requests_per_second"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".feedwatch"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("FEEDWATCH")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("anthropic.api_key", "FEEDWATCH_ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.enabled", "FEEDWATCH_ANTHROPIC_ENABLED")
	v.BindEnv("anthropic.model", "FEEDWATCH_ANTHROPIC_MODEL")
	v.BindEnv("database.driver", "FEEDWATCH_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "FEEDWATCH_DATABASE_DSN")
	v.BindEnv("sources.video.api_base", "FEEDWATCH_SOURCES_VIDEO_API_BASE")
	v.BindEnv("monitor.state_file", "FEEDWATCH_MONITOR_STATE_FILE")
	v.BindEnv("archive.dir", "FEEDWATCH_ARCHIVE_DIR")
	v.BindEnv("logging.level", "FEEDWATCH_LOGGING_LEVEL")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/feedwatch.db")

	// Anthropic defaults
	v.SetDefault("anthropic.enabled", false)
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.7)

	// Sources defaults
	v.SetDefault("sources.video.enabled", false)
	v.SetDefault("sources.video.api_base", "https://api.bilibili.com/x/space")
	v.SetDefault("sources.video.watch_url", "https://www.bilibili.com/video")
	v.SetDefault("sources.video.max_videos", 10)

	v.SetDefault("sources.rss.enabled", true)

	// Monitor defaults
	v.SetDefault("monitor.check_delay", "2s")
	v.SetDefault("monitor.seen_cap", 1000)
	v.SetDefault("monitor.state_file", "./data/monitor_state.json")

	// Report defaults
	v.SetDefault("report.title", "")
	v.SetDefault("report.min_importance", 0.0)
	v.SetDefault("report.max_items_per_category", 10)
	v.SetDefault("report.lookback", "24h")

	// Archive defaults
	v.SetDefault("archive.dir", "./data/archive")
	v.SetDefault("archive.retention_days", 90)

	// Scheduler defaults
	v.SetDefault("scheduler.mode", "cron")
	v.SetDefault("scheduler.monitor_cron", "*/30 * * * *") // Every 30 minutes
	v.SetDefault("scheduler.report_cron", "0 8 * * *")     // 8am daily
	v.SetDefault("scheduler.cleanup_cron", "0 0 * * 0")    // Weekly cleanup
	v.SetDefault("scheduler.interval", "30m")

	// Rate limit defaults
	v.SetDefault("rate_limit.anthropic_requests_per_minute", 10)
	v.SetDefault("rate_limit.video_requests_per_second", 0.5)
	v.SetDefault("rate_limit.rss_requests_per_second", 1.0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Anthropic.Enabled && c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required when anthropic.enabled is true")
	}
	if !c.Sources.Video.Enabled && !c.Sources.RSS.Enabled {
		return fmt.Errorf("at least one source must be enabled")
	}
	if c.Sources.Video.Enabled && len(c.Sources.Video.Creators) == 0 {
		return fmt.Errorf("sources.video.creators is required when video monitoring is enabled")
	}
	if c.Sources.RSS.Enabled && len(c.Sources.RSS.Feeds) == 0 {
		return fmt.Errorf("sources.rss.feeds is required when rss monitoring is enabled")
	}
	if c.Monitor.SeenCap <= 0 {
		return fmt.Errorf("monitor.seen_cap must be positive")
	}
	if c.Report.MinImportance < 0 || c.Report.MinImportance > 1 {
		return fmt.Errorf("report.min_importance must be in [0, 1]")
	}
	switch c.Scheduler.Mode {
	case "cron", "interval":
	default:
		return fmt.Errorf("scheduler.mode must be cron or interval, got %q", c.Scheduler.Mode)
	}
	return nil
}
