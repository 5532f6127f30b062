package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hostedid/sesmail/internal/email"
)

// Config holds all configuration for the application
type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Email EmailConfig `mapstructure:"email"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EmailConfig holds email sending configuration
type EmailConfig struct {
	// Provider is the email provider to use: "aws-ses" or "gmail"
	Provider string `mapstructure:"provider"`
	// AppName is the application name shown in test messages
	AppName string `mapstructure:"app_name"`
	// Timeout bounds a single send call (0 disables it)
	Timeout time.Duration      `mapstructure:"timeout"`
	SES     SESEmailConfig     `mapstructure:"ses"`
	Gmail   GmailEmailConfig   `mapstructure:"gmail"`
	Send    SendDefaultsConfig `mapstructure:"send"`
}

// SESEmailConfig holds AWS SES configuration
type SESEmailConfig struct {
	// Region is optional; empty means the AWS default resolution chain
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	// Endpoint overrides the SES endpoint (LocalStack and friends)
	Endpoint string `mapstructure:"endpoint"`
}

// GmailEmailConfig holds Gmail API configuration
type GmailEmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json"`
	// ClientID for OAuth2 token-based auth (alternative to service account)
	ClientID string `mapstructure:"client_id"`
	// ClientSecret for OAuth2 token-based auth
	ClientSecret string `mapstructure:"client_secret"`
	// RefreshToken for OAuth2 token-based auth
	RefreshToken string `mapstructure:"refresh_token"`
	// Mailbox is the account messages are sent as
	Mailbox string `mapstructure:"mailbox"`
}

// SendDefaultsConfig is the per-realm sender identity the platform would
// pass on each send call.
type SendDefaultsConfig struct {
	From               string `mapstructure:"from"`
	FromDisplayName    string `mapstructure:"from_display_name"`
	ReplyTo            string `mapstructure:"reply_to"`
	ReplyToDisplayName string `mapstructure:"reply_to_display_name"`
	AllowUTF8          bool   `mapstructure:"allow_utf8"`
}

// SendConfig converts the defaults into the map handed to a Sender.
// Empty optional values are left out.
func (c SendDefaultsConfig) SendConfig() email.SendConfig {
	cfg := email.SendConfig{}
	set := func(key, value string) {
		if value != "" {
			cfg[key] = value
		}
	}

	set(email.KeyFrom, c.From)
	set(email.KeyFromDisplayName, c.FromDisplayName)
	set(email.KeyReplyTo, c.ReplyTo)
	set(email.KeyReplyToDisplayName, c.ReplyToDisplayName)
	cfg[email.KeyAllowUTF8] = strconv.FormatBool(c.AllowUTF8)

	return cfg
}

// Load reads configuration from file and environment variables.
// An empty path searches the default locations; a missing default file is fine.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sesmail")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sesmail")
	}

	// Set defaults
	setDefaults(v)

	// Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables
	v.SetEnvPrefix("SESMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Email defaults; every key is registered so AutomaticEnv can see it
	v.SetDefault("email.provider", "aws-ses")
	v.SetDefault("email.app_name", "HostedID")
	v.SetDefault("email.timeout", "30s")

	v.SetDefault("email.ses.region", "")
	v.SetDefault("email.ses.access_key_id", "")
	v.SetDefault("email.ses.secret_access_key", "")
	v.SetDefault("email.ses.session_token", "")
	v.SetDefault("email.ses.endpoint", "")

	v.SetDefault("email.gmail.credentials_json", "")
	v.SetDefault("email.gmail.client_id", "")
	v.SetDefault("email.gmail.client_secret", "")
	v.SetDefault("email.gmail.refresh_token", "")
	v.SetDefault("email.gmail.mailbox", "")

	v.SetDefault("email.send.from", "")
	v.SetDefault("email.send.from_display_name", "")
	v.SetDefault("email.send.reply_to", "")
	v.SetDefault("email.send.reply_to_display_name", "")
	v.SetDefault("email.send.allow_utf8", false)
}
