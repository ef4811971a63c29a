package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type TelegramConfig struct {
	BotToken        string        `mapstructure:"bot_token"`
	PollingTimeout  int           `mapstructure:"polling_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	GatewayTimeout  time.Duration `mapstructure:"gateway_timeout"`
	WelcomeTemplate string        `mapstructure:"welcome_template"`
	PendingTemplate string        `mapstructure:"pending_template"`
	SupportURL      string        `mapstructure:"support_url"`
}

type WebhookConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ListenAddr   string        `mapstructure:"listen_addr"`
	PublicURL    string        `mapstructure:"public_url"`
	Secret       string        `mapstructure:"secret"`
	MaxInFlight  int           `mapstructure:"max_in_flight"`
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	JSONFormat bool   `mapstructure:"json_format"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults. String keys default to empty so environment-only
	// values are visible to Unmarshal.
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.support_url", "")
	v.SetDefault("webhook.public_url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("telegram.polling_timeout", 60)
	v.SetDefault("telegram.request_timeout", "30s")
	v.SetDefault("telegram.gateway_timeout", "10s")
	v.SetDefault("telegram.welcome_template", "Welcome, %s! Your join request has been approved.")
	v.SetDefault("telegram.pending_template", "%s, your request to join has been received and is awaiting admin approval.")
	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.listen_addr", ":8080")
	v.SetDefault("webhook.max_in_flight", 64)
	v.SetDefault("webhook.drain_timeout", "25s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json_format", false)

	// Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/join-gate-bot")

	// Environment variables
	v.SetEnvPrefix("JOINGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// The webhook path carries the secret; mint one when not configured.
	if cfg.Webhook.Secret == "" {
		cfg.Webhook.Secret = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.GatewayTimeout <= 0 {
		return fmt.Errorf("telegram.gateway_timeout must be positive")
	}
	if !strings.Contains(c.Telegram.WelcomeTemplate, "%s") {
		return fmt.Errorf("telegram.welcome_template must contain a %%s placeholder")
	}
	if !strings.Contains(c.Telegram.PendingTemplate, "%s") {
		return fmt.Errorf("telegram.pending_template must contain a %%s placeholder")
	}
	if c.Webhook.Enabled {
		if c.Webhook.PublicURL == "" {
			return fmt.Errorf("webhook.public_url is required when webhook.enabled is true")
		}
		if c.Webhook.ListenAddr == "" {
			return fmt.Errorf("webhook.listen_addr is required when webhook.enabled is true")
		}
	}
	return nil
}

// CallbackURL returns the full webhook URL registered with Telegram.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.Webhook.PublicURL, "/") + "/webhook/" + c.Webhook.Secret
}
