package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Data        DataConfig        `yaml:"data"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Auth        AuthConfig        `yaml:"auth"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Merger      MergerConfig      `yaml:"merger"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Versions    VersionsConfig    `yaml:"versions"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"app", &c.App},
		{"data", &c.Data},
		{"sqlite", &c.SQLite},
		{"auth", &c.Auth},
		{"transcriber", &c.Transcriber},
		{"merger", &c.Merger},
		{"pipeline", &c.Pipeline},
		{"versions", &c.Versions},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig holds the root of the data directory (documents, fragments, audio, versions).
type DataConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TranscriberConfig selects the speech-to-text backend.
type TranscriberConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the transcriber configuration.
// An API key may be omitted only for a self-hosted base URL.
func (c *TranscriberConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In("openai", "gemini")),
		validation.Field(&c.APIKey, validation.When(c.BaseURL == "", validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// MergerConfig selects the LLM that merges fragments into sections, and
// how hard the merge engine retries it.
type MergerConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	Attempts          int           `yaml:"attempts"`
	Backoff           time.Duration `yaml:"backoff"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Concurrency       int           `yaml:"concurrency"`
}

// Validate validates the merger configuration.
func (c *MergerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In("anthropic", "gemini", "openai")),
		validation.Field(&c.APIKey, validation.When(c.BaseURL == "", validation.Required)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.MaxTokens, validation.Min(0)),
		validation.Field(&c.Attempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.RequestsPerMinute, validation.Min(0)),
		validation.Field(&c.Concurrency, validation.Min(0), validation.Max(8)),
	)
}

// PipelineConfig tunes the ingestion workers.
type PipelineConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Validate validates the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PollInterval, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// VersionsConfig controls document snapshot retention.
type VersionsConfig struct {
	MaxPerProject int `yaml:"max_per_project"`
}

// Validate validates the versions configuration.
func (c *VersionsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxPerProject, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Path: "./data",
		},
		SQLite: SQLiteConfig{
			Path: "./scribe.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Transcriber: TranscriberConfig{
			Provider: "openai",
			Timeout:  2 * time.Minute,
		},
		Merger: MergerConfig{
			Provider:    "openai",
			Temperature: 0.3,
			MaxTokens:   1000,
			Attempts:    2,
			Backoff:     time.Second,
			Timeout:     time.Minute,
		},
		Pipeline: PipelineConfig{
			PollInterval: time.Second,
		},
		Versions: VersionsConfig{
			MaxPerProject: 50,
		},
	}
}
