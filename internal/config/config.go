package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Gmail    GmailConfig    `mapstructure:"gmail"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Sending  SendingConfig  `mapstructure:"sending"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Drafts   DraftsConfig   `mapstructure:"drafts"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds the SQLite database location
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// GmailConfig holds Gmail API configuration
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
	UseIMAP      bool   `mapstructure:"use_imap"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
}

// HasCredentials reports whether the Gmail API transport can be constructed.
func (c *GmailConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// GeminiConfig holds generative-AI gateway configuration
type GeminiConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Models         []string      `mapstructure:"models"`
	WindowRequests int           `mapstructure:"window_requests"`
	Window         time.Duration `mapstructure:"window"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBase      time.Duration `mapstructure:"retry_base"`
}

// SendingConfig holds send scheduler pacing configuration
type SendingConfig struct {
	DailyLimit    int           `mapstructure:"daily_limit"`
	MinDelay      time.Duration `mapstructure:"min_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	CountdownTick time.Duration `mapstructure:"countdown_tick"`
}

// PollerConfig holds inbox poller configuration
type PollerConfig struct {
	IntervalMS int           `mapstructure:"interval_ms"`
	Lookback   time.Duration `mapstructure:"lookback"`
	PageSize   int64         `mapstructure:"page_size"`
}

// Interval returns the poll interval as a duration.
func (c *PollerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// DraftsConfig holds draft worker pool configuration
type DraftsConfig struct {
	Workers      int    `mapstructure:"workers"`
	Brief        bool   `mapstructure:"brief"`
	ExtraContext string `mapstructure:"extra_context"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.path", "outreach.db")

	viper.SetDefault("gmail.use_imap", false)
	viper.SetDefault("gmail.imap_host", "imap.gmail.com")
	viper.SetDefault("gmail.imap_port", 993)

	viper.SetDefault("gemini.models", []string{
		"gemini-3-flash-preview",
		"gemini-2.5-flash",
		"gemini-2.0-flash",
	})
	viper.SetDefault("gemini.window_requests", 9)
	viper.SetDefault("gemini.window", "60s")
	viper.SetDefault("gemini.max_retries", 3)
	viper.SetDefault("gemini.retry_base", "10s")

	viper.SetDefault("sending.daily_limit", 100)
	viper.SetDefault("sending.min_delay", "10s")
	viper.SetDefault("sending.max_delay", "30s")
	viper.SetDefault("sending.cooldown", "60s")
	viper.SetDefault("sending.countdown_tick", "1s")

	viper.SetDefault("poller.interval_ms", 180000)
	viper.SetDefault("poller.lookback", "24h")
	viper.SetDefault("poller.page_size", 50)

	viper.SetDefault("drafts.workers", 4)
	viper.SetDefault("drafts.brief", true)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("database.path", "DB_PATH")

	viper.BindEnv("gmail.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("gmail.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("gmail.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("gmail.user_email", "GMAIL_USER_EMAIL")
	viper.BindEnv("gmail.use_imap", "GMAIL_USE_IMAP")
	viper.BindEnv("gmail.imap_host", "GMAIL_IMAP_HOST")
	viper.BindEnv("gmail.imap_port", "GMAIL_IMAP_PORT")
	viper.BindEnv("gmail.imap_user", "GMAIL_IMAP_USER")
	viper.BindEnv("gmail.imap_password", "GMAIL_IMAP_PASSWORD")

	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.window_requests", "GEMINI_WINDOW_REQUESTS")
	viper.BindEnv("gemini.max_retries", "GEMINI_MAX_RETRIES")

	viper.BindEnv("sending.daily_limit", "SENDING_DAILY_LIMIT")
	viper.BindEnv("sending.min_delay", "SENDING_MIN_DELAY")
	viper.BindEnv("sending.max_delay", "SENDING_MAX_DELAY")
	viper.BindEnv("sending.cooldown", "SENDING_COOLDOWN")

	viper.BindEnv("poller.interval_ms", "POLLER_INTERVAL_MS")
	viper.BindEnv("poller.lookback", "POLLER_LOOKBACK")
	viper.BindEnv("poller.page_size", "POLLER_PAGE_SIZE")

	viper.BindEnv("drafts.workers", "DRAFTS_WORKERS")
	viper.BindEnv("drafts.brief", "DRAFTS_BRIEF")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Gmail.UseIMAP {
		if c.Gmail.IMAPUser == "" || c.Gmail.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when using IMAP")
		}
	}

	if c.Sending.DailyLimit <= 0 {
		return fmt.Errorf("sending daily limit must be greater than 0")
	}
	if c.Sending.MinDelay <= 0 || c.Sending.MaxDelay < c.Sending.MinDelay {
		return fmt.Errorf("sending delay bounds are invalid")
	}

	if c.Poller.IntervalMS <= 0 {
		return fmt.Errorf("poller interval must be greater than 0")
	}

	if c.Gemini.WindowRequests <= 0 || c.Gemini.Window <= 0 {
		return fmt.Errorf("gemini rate window is invalid")
	}

	return nil
}
