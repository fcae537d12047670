// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.kip/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Model: provider model name, temperature, max output tokens
//   - Conversation: history bound, feedback loop and turn limit
//   - Storage: conversation snapshot backend (file or postgres)
//   - Tracing: optional OTLP trace export
//
// Security: sensitive data (passwords) are masked in MarshalJSON; the config
// directory uses 0750 permissions.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultModelName is the Gemini model the widget talks to.
	DefaultModelName = "gemini-2.0-flash-exp"

	// DefaultMaxHistoryMessages bounds both the display log and the
	// model-turn log. Oldest entries are discarded first.
	DefaultMaxHistoryMessages = 50

	// MaxAllowedHistoryMessages is the absolute cap to prevent unbounded
	// payload growth.
	MaxAllowedHistoryMessages = 1000

	// DefaultMaxTurns bounds the function-result feedback loop within one
	// cycle.
	DefaultMaxTurns = 4

	// DefaultModelRPS is the sustained model request rate.
	DefaultModelRPS = 10

	// DefaultModelBurst is the model request burst allowance.
	DefaultModelBurst = 30
)

// Storage backend identifiers used in Config.StorageBackend.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Model configuration
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
	ModelRPS    float64 `mapstructure:"model_rps" json:"model_rps"`
	ModelBurst  int     `mapstructure:"model_burst" json:"model_burst"`

	// Conversation configuration
	MaxHistoryMessages int  `mapstructure:"max_history_messages" json:"max_history_messages"`
	MaxTurns           int  `mapstructure:"max_turns" json:"max_turns"`
	FeedbackResults    bool `mapstructure:"feedback_results" json:"feedback_results"`

	// Storage configuration
	StorageBackend string `mapstructure:"storage_backend" json:"storage_backend"`
	StorageDir     string `mapstructure:"storage_dir" json:"storage_dir"`

	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Tracing configuration (optional OTLP export)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// TracingConfig configures OTLP trace export. Disabled by default; when
// enabled, one span is recorded per conversation cycle.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".kip")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)
	viper.SetDefault("model_rps", DefaultModelRPS)
	viper.SetDefault("model_burst", DefaultModelBurst)

	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)
	viper.SetDefault("max_turns", DefaultMaxTurns)
	viper.SetDefault("feedback_results", true)

	viper.SetDefault("storage_backend", StorageFile)
	viper.SetDefault("storage_dir", filepath.Join(configDir, "conversations"))

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "kip")
	viper.SetDefault("postgres_password", "kip_dev_password")
	viper.SetDefault("postgres_db_name", "kip")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.service_name", "kip")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly.
//
// NOTE: GEMINI_API_KEY is read directly by the Genkit Google AI plugin, not
// via Viper; ValidateAPIKey() only checks its presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "KIP_MODEL_NAME")
	mustBind("storage_backend", "KIP_STORAGE_BACKEND")
	mustBind("storage_dir", "KIP_STORAGE_DIR")
	mustBind("postgres_host", "KIP_POSTGRES_HOST")
	mustBind("postgres_password", "KIP_POSTGRES_PASSWORD")
	mustBind("tracing.enabled", "KIP_TRACING_ENABLED")
	mustBind("tracing.endpoint", "KIP_TRACING_ENDPOINT")
}

// FullModelName returns the provider-qualified model name for Genkit.
// Example: "googleai/gemini-2.0-flash-exp". A ModelName that already
// contains "/" is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return "googleai/" + c.ModelName
}

// PostgresURL returns the postgres:// connection URL for the configured
// database. Used by both the pgx pool and golang-migrate.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:   "/" + c.PostgresDBName,
	}
	q := u.Query()
	q.Set("sslmode", c.PostgresSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking. When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
