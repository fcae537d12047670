package config

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for configuration validation, checked with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the GEMINI_API_KEY environment variable is
	// not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidModelRPS indicates the model request rate is out of range.
	ErrInvalidModelRPS = errors.New("invalid model request rate")

	// ErrInvalidModelBurst indicates the model request burst is out of range.
	ErrInvalidModelBurst = errors.New("invalid model request burst")

	// ErrInvalidHistoryBound indicates max_history_messages is out of range.
	ErrInvalidHistoryBound = errors.New("invalid history bound")

	// ErrInvalidMaxTurns indicates max_turns is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidStorageBackend indicates an unknown storage backend name.
	ErrInvalidStorageBackend = errors.New("invalid storage backend")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates an unsupported PostgreSQL SSL mode.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidStorageDir indicates the storage directory is empty when the
	// file backend is selected.
	ErrInvalidStorageDir = errors.New("invalid storage directory")
)

// Validate performs fail-fast validation of the whole configuration.
// It is called by Load(); callers constructing Config directly (tests)
// should call it themselves.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens <= 0 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: %d (must be in (0, 65536])", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.ModelRPS <= 0 || c.ModelRPS > 1000 {
		return fmt.Errorf("%w: %v (must be in (0, 1000])", ErrInvalidModelRPS, c.ModelRPS)
	}

	if c.ModelBurst <= 0 || c.ModelBurst > 10000 {
		return fmt.Errorf("%w: %d (must be in (0, 10000])", ErrInvalidModelBurst, c.ModelBurst)
	}

	if c.MaxHistoryMessages <= 0 || c.MaxHistoryMessages > MaxAllowedHistoryMessages {
		return fmt.Errorf("%w: %d (must be in (0, %d])",
			ErrInvalidHistoryBound, c.MaxHistoryMessages, MaxAllowedHistoryMessages)
	}

	if c.MaxTurns <= 0 || c.MaxTurns > 25 {
		return fmt.Errorf("%w: %d (must be in (0, 25])", ErrInvalidMaxTurns, c.MaxTurns)
	}

	switch c.StorageBackend {
	case StorageFile:
		if c.StorageDir == "" {
			return fmt.Errorf("%w: storage_dir is empty", ErrInvalidStorageDir)
		}
	case StoragePostgres:
		if err := c.validatePostgres(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidStorageBackend, c.StorageBackend, StorageFile, StoragePostgres)
	}

	return nil
}

// validatePostgres checks PostgreSQL connection parameters. Only called when
// the postgres backend is selected; the file backend ignores these fields.
func (c *Config) validatePostgres() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host is empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be in (0, 65535])", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name is empty", ErrInvalidPostgresDBName)
	}

	switch c.PostgresSSLMode {
	case "disable", "require", "verify-ca", "verify-full":
		return nil
	default:
		return fmt.Errorf("%w: %q (expected disable, require, verify-ca or verify-full)",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
}

// ValidateAPIKey checks that the Gemini API key is present in the
// environment. Separated from Validate so that commands which never talk to
// the model (history inspection) can skip it.
func (c *Config) ValidateAPIKey() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}
