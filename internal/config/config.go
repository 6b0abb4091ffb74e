// Package config provides configuration management for the vault updater.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the vault updater.
type Config struct {
	// Log contains structured logging settings.
	Log LogConfig `mapstructure:"log"`
	// Run contains update-run pacing and batching settings.
	Run RunConfig `mapstructure:"run"`
	// Store contains record-store connection settings.
	Store StoreConfig `mapstructure:"store"`
	// Contact is the operator email embedded in User-Agent strings.
	// Crossref admits requests carrying a mailto contact to its polite pool.
	Contact string `mapstructure:"contact" validate:"omitempty,email"`
	// GitHub contains GitHub API client settings.
	GitHub GitHubConfig `mapstructure:"github"`
	// Crossref contains Crossref API client settings.
	Crossref RegistryConfig `mapstructure:"crossref"`
	// EuropePMC contains Europe PMC API client settings.
	EuropePMC RegistryConfig `mapstructure:"europepmc"`
	// Arxiv contains arXiv API client settings.
	Arxiv RegistryConfig `mapstructure:"arxiv"`
	// Biorxiv contains bioRxiv API client settings.
	Biorxiv RegistryConfig `mapstructure:"biorxiv"`
	// Impact contains impact-factor classifier settings.
	Impact ImpactConfig `mapstructure:"impact"`
	// Debug contains the optional debug HTTP listener settings.
	Debug DebugConfig `mapstructure:"debug"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic"`
	// Format is the output format (json, console, pretty, auto). With auto,
	// pretty output is selected when the destination is a terminal.
	Format string `mapstructure:"format" validate:"oneof=json console pretty auto"`
	// Output is the output destination (stdout, stderr).
	Output string `mapstructure:"output" validate:"oneof=stdout stderr"`
}

// RunConfig holds update-run pacing and batching configuration.
type RunConfig struct {
	// BatchSize is the number of records processed concurrently per batch.
	BatchSize int `mapstructure:"batch_size" validate:"gte=1"`
	// BatchDelay is the pause between consecutive batches.
	BatchDelay time.Duration `mapstructure:"batch_delay" validate:"gte=0"`
	// WriteRetries is the attempt ceiling for one record write-back.
	WriteRetries int `mapstructure:"write_retries" validate:"gte=1"`
	// PageSize caps the rows fetched per store query. The hosted store
	// truncates responses beyond 1000 rows.
	PageSize int `mapstructure:"page_size" validate:"gte=1,lte=1000"`
	// LockFile is the run lock path preventing concurrent runs against the
	// same vault.
	LockFile string `mapstructure:"lock_file" validate:"required"`
}

// StoreConfig holds record-store connection configuration.
type StoreConfig struct {
	// Backend selects the store implementation (postgrest, postgres).
	Backend string `mapstructure:"backend" validate:"oneof=postgrest postgres"`
	// URL is the PostgREST endpoint root, e.g.
	// "https://example.supabase.co/rest/v1". Required for the postgrest
	// backend.
	URL string `mapstructure:"url" validate:"required_if=Backend postgrest,omitempty,url"`
	// APIKey authenticates PostgREST requests (loaded from
	// VAULT_STORE_API_KEY).
	APIKey string `mapstructure:"-"`
	// DSN is the Postgres connection string for the postgres backend
	// (loaded from VAULT_STORE_DSN).
	DSN string `mapstructure:"-" validate:"required_if=Backend postgres"`
	// Table is the catalog table name.
	Table string `mapstructure:"table" validate:"required"`
	// Timeout bounds a single store round trip.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// GitHubConfig holds GitHub API client configuration.
type GitHubConfig struct {
	// BaseURL is the GitHub REST API base URL.
	BaseURL string `mapstructure:"base_url" validate:"url"`
	// Token is a personal access token for elevated rate limits (loaded
	// from VAULT_GITHUB_TOKEN). Unauthenticated requests work but are
	// subject to much lower quotas.
	Token string `mapstructure:"-"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size" validate:"gte=1"`
}

// RegistryConfig holds configuration for a single scholarly-registry API.
type RegistryConfig struct {
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url" validate:"url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size" validate:"gte=1"`
}

// ImpactConfig holds impact-factor classifier configuration.
type ImpactConfig struct {
	// DataFile is a CSV of journal,impact-factor rows. Empty disables
	// impact-factor lookups.
	DataFile string `mapstructure:"data_file"`
	// CacheSize bounds the per-journal lookup cache.
	CacheSize int `mapstructure:"cache_size" validate:"gte=1"`
}

// DebugConfig holds the optional debug HTTP listener configuration.
type DebugConfig struct {
	// ListenAddr is the address serving /healthz and /metrics. Empty
	// disables the listener.
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	return load("")
}

// LoadFile loads configuration like Load but reads the config file at path
// instead of searching the default locations. A missing file is an error.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("VAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/vault-updater")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found is OK, we'll use env vars and defaults
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Store.APIKey = os.Getenv("VAULT_STORE_API_KEY")
	cfg.Store.DSN = os.Getenv("VAULT_STORE_DSN")
	cfg.GitHub.Token = os.Getenv("VAULT_GITHUB_TOKEN")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")

	// Run defaults
	v.SetDefault("run.batch_size", 50)
	v.SetDefault("run.batch_delay", "5s")
	v.SetDefault("run.write_retries", 3)
	v.SetDefault("run.page_size", 1000)
	v.SetDefault("run.lock_file", filepath.Join(os.TempDir(), "vault-updater.lock"))

	// Store defaults
	v.SetDefault("store.backend", "postgrest")
	v.SetDefault("store.url", "")
	v.SetDefault("store.table", "packages")
	v.SetDefault("store.timeout", "30s")

	// GitHub defaults
	// Token is loaded exclusively from the environment (see loadSecrets).
	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.timeout", "30s")
	v.SetDefault("github.rate_limit", 1.0)
	v.SetDefault("github.burst_size", 1)

	// Crossref defaults
	v.SetDefault("crossref.base_url", "https://api.crossref.org")
	v.SetDefault("crossref.timeout", "30s")
	v.SetDefault("crossref.rate_limit", 2.0)
	v.SetDefault("crossref.burst_size", 2)

	// Europe PMC defaults
	v.SetDefault("europepmc.base_url", "https://www.ebi.ac.uk/europepmc/webservices/rest")
	v.SetDefault("europepmc.timeout", "30s")
	v.SetDefault("europepmc.rate_limit", 2.0)
	v.SetDefault("europepmc.burst_size", 2)

	// arXiv defaults: the API asks for no more than one request every
	// three seconds.
	v.SetDefault("arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("arxiv.timeout", "30s")
	v.SetDefault("arxiv.rate_limit", 0.5)
	v.SetDefault("arxiv.burst_size", 1)

	// bioRxiv defaults
	v.SetDefault("biorxiv.base_url", "https://api.biorxiv.org")
	v.SetDefault("biorxiv.timeout", "30s")
	v.SetDefault("biorxiv.rate_limit", 1.0)
	v.SetDefault("biorxiv.burst_size", 1)

	// Impact factor defaults
	v.SetDefault("impact.data_file", "")
	v.SetDefault("impact.cache_size", 1000)

	// Debug listener defaults (disabled)
	v.SetDefault("debug.listen_addr", "")
}

// Validate validates the configuration against its struct tags.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// describeFieldError renders one validation failure as a readable message.
func describeFieldError(fe validator.FieldError) string {
	// Trim the type name so messages read "Store.DSN", not "Config.Store.DSN".
	field := strings.TrimPrefix(fe.Namespace(), "Config.")

	switch fe.Tag() {
	case "required", "required_if":
		switch field {
		case "Store.URL":
			return "store.url is required for the postgrest backend"
		case "Store.DSN":
			return "VAULT_STORE_DSN is required for the postgres backend"
		default:
			return fmt.Sprintf("%s is required", field)
		}
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
