package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Version is the application version, overridden at build time.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Discord   DiscordConfig   `mapstructure:"discord"`
	Overseerr OverseerrConfig `mapstructure:"overseerr"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// DiscordConfig holds Discord bot configuration.
type DiscordConfig struct {
	Token           string `mapstructure:"token"`
	GuildID         string `mapstructure:"guild_id"`          // restrict command registration to one guild
	ManagerUserID   string `mapstructure:"manager_user_id"`   // the only user allowed to approve requests
	NotifyChannelID string `mapstructure:"notify_channel_id"` // channel for pending/approved notices
	Command         string `mapstructure:"command"`           // slash command trigger name
	EmbedColor      int    `mapstructure:"embed_color"`
}

// OverseerrConfig holds Overseerr backend configuration.
//
// Email and Password authenticate the local session used for request
// submission. APIKey is the administrative credential used for everything
// else, including approval.
type OverseerrConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Timeout  int    `mapstructure:"timeout"` // seconds
}

// PolicyConfig holds quality-matching policy configuration.
// An empty SheetURL disables the policy sync subsystem entirely.
type PolicyConfig struct {
	SheetURL       string `mapstructure:"sheet_url"`       // published CSV export of the policy spreadsheet
	RefreshCron    string `mapstructure:"refresh_cron"`    // cron expression for periodic refresh
	DefaultProfile string `mapstructure:"default_profile"` // fallback profile name when no rule matches, optional
}

// ServerConfig holds webhook HTTP server configuration.
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	WebhookPath string `mapstructure:"webhook_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "console" or "json"
	Path       string `mapstructure:"path"`   // directory for log files, empty for stdout only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig holds request-history database configuration.
// An empty Path disables the history subsystem entirely.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Discord: DiscordConfig{
			Command:    "request",
			EmbedColor: 0x5865F2,
		},
		Overseerr: OverseerrConfig{
			Timeout: 30,
		},
		Policy: PolicyConfig{
			RefreshCron: "0 * * * *",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8383,
			WebhookPath: "/overseerr",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.cinequest")
	}

	v.SetEnvPrefix("CINEQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the required credentials are present.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return errors.New("discord.token is required")
	}
	if c.Overseerr.BaseURL == "" {
		return errors.New("overseerr.base_url is required")
	}
	if c.Overseerr.APIKey == "" {
		return errors.New("overseerr.api_key is required")
	}
	return nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.command", "request")
	v.SetDefault("discord.embed_color", 0x5865F2)

	v.SetDefault("overseerr.timeout", 30)

	v.SetDefault("policy.refresh_cron", "0 * * * *")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8383)
	v.SetDefault("server.webhook_path", "/overseerr")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
