package internal

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/vaultport/internal/apperr"
	"github.com/starford/vaultport/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.App.HTTP.Enabled() {
		t.Error("HTTP should be disabled by default")
	}
	if cfg.Journal.Enabled() {
		t.Error("journal should be disabled by default")
	}
	if cfg.FrontMatter.Enabled() {
		t.Error("front matter step should be off by default")
	}
}

func TestFrontMatterConfig_ConflictingModes(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.FrontMatter.StripLocation = true
	cfg.FrontMatter.ConvertLocation = true
	err := cfg.Validate()
	if !errors.Is(err, apperr.ErrConflictingModes) {
		t.Fatalf("err = %v, want ErrConflictingModes", err)
	}
}

func TestVaultConfig_ResourceDirMustBePlain(t *testing.T) {
	for _, name := range []string{"", "a/b", "..", `x\y`} {
		cfg := NewDefaultConfig()
		cfg.Vault.ResourceDir = name
		if err := cfg.Validate(); err == nil {
			t.Errorf("resource_dir %q should fail validation", name)
		}
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	cfg := HTTPConfig{Port: 70000}
	if err := cfg.Validate(); err == nil {
		t.Error("out of range port should fail")
	}
	cfg.Port = 9090
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid port failed: %v", err)
	}
	if cfg.Address() != ":9090" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestGeocoderConfig_Invalid(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Geocoder.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max_attempts should fail")
	}

	cfg = NewDefaultConfig()
	cfg.Geocoder.Email = "not-an-email"
	if err := cfg.Validate(); err == nil {
		t.Error("bad email should fail")
	}
}

func TestConfig_LoadYAML(t *testing.T) {
	t.Setenv("VAULTPORT_TEST_UA", "tester/2.0")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `app:
  log_level: debug
  http:
    port: 9100
vault:
  path: /tmp/vault
frontmatter:
  convert_location: true
geocoder:
  user_agent: ${VAULTPORT_TEST_UA}
  timeout: 5s
  max_attempts: 4
journal:
  path: /tmp/journal.db
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := config.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.Vault.Path != "/tmp/vault" || cfg.Vault.ResourceDir != "_resources" {
		t.Errorf("vault = %+v", cfg.Vault)
	}
	if !cfg.FrontMatter.ConvertLocation || cfg.FrontMatter.SourceValue != "joplin" {
		t.Errorf("frontmatter = %+v", cfg.FrontMatter)
	}
	if cfg.Geocoder.UserAgent != "tester/2.0" || cfg.Geocoder.Timeout != 5*time.Second || cfg.Geocoder.MaxAttempts != 4 {
		t.Errorf("geocoder = %+v", cfg.Geocoder)
	}
	if !cfg.Journal.Enabled() {
		t.Error("journal should be enabled")
	}
	opts := cfg.FrontMatter.Options()
	if !opts.ConvertCoordinates || opts.StripCoordinates {
		t.Errorf("options = %+v", opts)
	}
}
