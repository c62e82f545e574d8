package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Keycloak   KeycloakConfig
	Redis      RedisConfig
	Alerting   AlertingConfig
	Twilio     TwilioConfig
	Collector  CollectorConfig
	Retention  RetentionConfig
	Monitoring MonitoringConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	TimescaleDB PostgresConfig `mapstructure:"timescaledb"`
	AppDB       PostgresConfig `mapstructure:"postgres_app"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type KeycloakConfig struct {
	URL          string `mapstructure:"url"`
	Realm        string `mapstructure:"realm"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AlertingConfig carries the spoilage thresholds and per-kind cooldown
// windows. RatioWarning must not exceed RatioFresh.
type AlertingConfig struct {
	RatioFresh      float64       `mapstructure:"ratio_fresh"`
	RatioWarning    float64       `mapstructure:"ratio_warning"`
	CooldownSpoiled time.Duration `mapstructure:"cooldown_spoiled"`
	CooldownWarning time.Duration `mapstructure:"cooldown_warning"`
}

type TwilioConfig struct {
	AccountSID  string        `mapstructure:"account_sid"`
	AuthToken   string        `mapstructure:"auth_token"`
	PhoneNumber string        `mapstructure:"phone_number"`
	WebhookURL  string        `mapstructure:"webhook_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether voice alerting is configured. Missing
// credentials disable call dispatch without failing startup.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != ""
}

type CollectorConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CollectTimeout time.Duration `mapstructure:"collect_timeout"`
}

type RetentionConfig struct {
	MaxAge   time.Duration `mapstructure:"max_age"`
	Interval time.Duration `mapstructure:"interval"`
}

type MonitoringConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("SPOILSENSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.timescaledb.sslmode", "disable")
	viper.SetDefault("database.postgres_app.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cache_ttl", "5m")

	// Alerting defaults
	viper.SetDefault("alerting.ratio_fresh", 0.8)
	viper.SetDefault("alerting.ratio_warning", 0.5)
	viper.SetDefault("alerting.cooldown_spoiled", "30m")
	viper.SetDefault("alerting.cooldown_warning", "60m")

	// Twilio defaults
	viper.SetDefault("twilio.timeout", "10s")

	// Collector defaults
	viper.SetDefault("collector.poll_interval", "5s")
	viper.SetDefault("collector.request_timeout", "3s")
	viper.SetDefault("collector.collect_timeout", "30s")

	// Retention defaults
	viper.SetDefault("retention.max_age", "720h")
	viper.SetDefault("retention.interval", "1h")

	// Monitoring defaults
	viper.SetDefault("monitoring.log_level", "info")
}

func validateConfig(config *Config) error {
	if config.Database.TimescaleDB.Host == "" {
		return fmt.Errorf("timescaledb host is required")
	}
	if config.Database.AppDB.Host == "" {
		return fmt.Errorf("postgres app host is required")
	}
	return ValidateAlerting(config.Alerting, config.Twilio)
}

// ValidateAlerting checks the threshold ordering invariant and the Twilio
// credential shape. Called at startup; the alert engine assumes a valid
// configuration at runtime.
func ValidateAlerting(alerting AlertingConfig, twilio TwilioConfig) error {
	if alerting.RatioWarning > alerting.RatioFresh {
		return fmt.Errorf("ratio_warning (%.3f) must not exceed ratio_fresh (%.3f)",
			alerting.RatioWarning, alerting.RatioFresh)
	}
	if alerting.CooldownSpoiled <= 0 || alerting.CooldownWarning <= 0 {
		return fmt.Errorf("cooldown windows must be positive")
	}
	if twilio.AccountSID != "" && !strings.HasPrefix(twilio.AccountSID, "AC") {
		return fmt.Errorf("invalid twilio account SID")
	}
	return nil
}
