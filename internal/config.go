package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/vaultport/internal/apperr"
	"github.com/starford/vaultport/internal/frontmatter"
	"github.com/starford/vaultport/internal/geocode"
	"github.com/starford/vaultport/internal/relocate"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Vault       VaultConfig       `yaml:"vault"`
	FrontMatter FrontMatterConfig `yaml:"frontmatter"`
	Geocoder    GeocoderConfig    `yaml:"geocoder"`
	Journal     JournalConfig     `yaml:"journal"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.FrontMatter.Validate(); err != nil {
		return err
	}
	return c.Geocoder.Validate()
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

// HTTPConfig holds the watch-mode HTTP server configuration.
// A zero port disables the server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Enabled reports whether the HTTP server should be started.
func (c *HTTPConfig) Enabled() bool {
	return c.Port != 0
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
	)
}

// VaultConfig holds the vault directory and the shared resource store name.
type VaultConfig struct {
	Path        string `yaml:"path"`
	ResourceDir string `yaml:"resource_dir"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.ResourceDir, validation.Required, validation.By(plainName)),
	)
}

// plainName rejects names that are not a single path element.
func plainName(value any) error {
	s, _ := value.(string)
	if s == "." || s == ".." {
		return fmt.Errorf("must be a plain directory name")
	}
	for _, r := range s {
		if r == '/' || r == '\\' {
			return fmt.Errorf("must be a plain directory name")
		}
	}
	return nil
}

// FrontMatterConfig selects the metadata edits.
type FrontMatterConfig struct {
	StripLocation   bool   `yaml:"strip_location"`
	ConvertLocation bool   `yaml:"convert_location"`
	AddSource       bool   `yaml:"add_source"`
	SourceValue     string `yaml:"source_value"`
}

// Validate rejects conflicting location modes.
func (c *FrontMatterConfig) Validate() error {
	if c.StripLocation && c.ConvertLocation {
		return apperr.ErrConflictingModes
	}
	return nil
}

// Enabled reports whether the front-matter step has anything to do.
func (c *FrontMatterConfig) Enabled() bool {
	return c.StripLocation || c.ConvertLocation || c.AddSource
}

// Options converts the section into rewriter options.
func (c *FrontMatterConfig) Options() frontmatter.Options {
	return frontmatter.Options{
		StripCoordinates:   c.StripLocation,
		ConvertCoordinates: c.ConvertLocation,
		AddSource:          c.AddSource,
		SourceValue:        c.SourceValue,
	}
}

// GeocoderConfig configures the reverse geocoding service used by
// convert mode.
type GeocoderConfig struct {
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	Email       string        `yaml:"email"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RatePause   time.Duration `yaml:"rate_pause"`
	RetryPause  time.Duration `yaml:"retry_pause"`
}

// Validate validates the geocoder configuration.
func (c *GeocoderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.UserAgent, validation.Required),
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.RatePause, validation.Min(time.Duration(0))),
		validation.Field(&c.RetryPause, validation.Min(time.Duration(0))),
	)
}

// JournalConfig points at the optional SQLite journal. An empty path
// disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether a journal should be opened.
func (c *JournalConfig) Enabled() bool {
	return c.Path != ""
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Vault: VaultConfig{
			Path:        ".",
			ResourceDir: relocate.DefaultStoreDir,
		},
		FrontMatter: FrontMatterConfig{
			SourceValue: frontmatter.DefaultSourceValue,
		},
		Geocoder: GeocoderConfig{
			BaseURL:     geocode.DefaultBaseURL,
			UserAgent:   geocode.DefaultUserAgent,
			Timeout:     geocode.DefaultTimeout,
			MaxAttempts: geocode.DefaultMaxAttempts,
			RatePause:   geocode.DefaultRatePause,
			RetryPause:  geocode.DefaultRetryPause,
		},
	}
}
