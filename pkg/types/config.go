// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pmid2nct/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// NCBIConfig holds settings for the E-utilities efetch client.
type NCBIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the efetch endpoint. Tests point it at an httptest server.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Email is the contact address NCBI requires from every E-utilities caller.
	Email string `json:"email" yaml:"email" mapstructure:"email"`

	// Tool names this application to NCBI (default "pmid2nct").
	Tool string `json:"tool" yaml:"tool" mapstructure:"tool"`

	// APIKey is an optional NCBI API key for higher request-rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BatchSize is the number of PMIDs requested per efetch call (default 200).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// BatchDelay is the pause between consecutive efetch calls (default 0).
	BatchDelay time.Duration `json:"batch_delay" yaml:"batch_delay" mapstructure:"batch_delay"`

	// RateLimitRetries is how many times an HTTP 429 response is retried.
	// Zero disables retries; every other failure aborts the run.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
}

// IngestConfig holds settings for reading uploaded spreadsheets.
type IngestConfig struct {
	// Column is the header naming the PMID column (default "PMID", matched case-insensitively).
	Column string `json:"column" yaml:"column" mapstructure:"column"`
}

// ServerConfig holds settings for the web UI.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes caps the size of an uploaded spreadsheet (default 32 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	// Path is the SQLite database file. Empty keeps runs in memory for the
	// lifetime of the process.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// Config groups all settings for the application.
type Config struct {
	NCBI   NCBIConfig   `json:"ncbi" yaml:"ncbi" mapstructure:"ncbi"`
	Ingest IngestConfig `json:"ingest" yaml:"ingest" mapstructure:"ingest"`
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	Store  StoreConfig  `json:"store" yaml:"store" mapstructure:"store"`
	Log    LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}

// Defaults applied by DefaultConfig.
const (
	DefaultEFetchURL      = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
	DefaultTool           = "pmid2nct"
	DefaultBatchSize      = 200
	DefaultTimeout        = 60 * time.Second
	DefaultUserAgent      = "pmid2nct/0.1"
	DefaultColumn         = "PMID"
	DefaultAddr           = ":8080"
	DefaultMaxUploadBytes = 32 << 20
)

// DefaultConfig returns the configuration used when no file, flag, or
// environment variable overrides a value.
func DefaultConfig() Config {
	return Config{
		NCBI: NCBIConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultTimeout,
				UserAgent: DefaultUserAgent,
			},
			BaseURL:   DefaultEFetchURL,
			Tool:      DefaultTool,
			BatchSize: DefaultBatchSize,
		},
		Ingest: IngestConfig{Column: DefaultColumn},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Log: LogConfig{Level: "info"},
	}
}
