package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.CMRURL != DefaultCMRURL {
		t.Errorf("expected default CMR URL %s, got %s", DefaultCMRURL, cfg.CMRURL)
	}
	if cfg.Tool != "podaac-data-downloader" {
		t.Errorf("expected default tool podaac-data-downloader, got %s", cfg.Tool)
	}
	if cfg.ArchiveSuffix != ".zip" {
		t.Errorf("expected default archive suffix .zip, got %s", cfg.ArchiveSuffix)
	}
	if cfg.Retry.Attempts != 5 {
		t.Errorf("expected default retry attempts 5, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != time.Second {
		t.Errorf("expected default retry backoff 1s, got %v", cfg.Retry.Backoff)
	}
	if cfg.Retry.MaxBackoff != 30*time.Second {
		t.Errorf("expected default retry max backoff 30s, got %v", cfg.Retry.MaxBackoff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
collection: SWOT_L2_HR_Raster_D
start: "2025-05-01 00:00:00"
end: "2025-05-30 23:59:59"
bounding_box: "115.98,28.90,116.38,29.20"
dir: data_downloads/PoYangHu_data
prefer_direct: true
timeout: 2m
credentials:
  username: hydro
  password: secret
retry:
  attempts: 10
  backoff: 2s
  max_backoff: 60s
log:
  format: json
  level: debug
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Collection != "SWOT_L2_HR_Raster_D" {
		t.Errorf("expected collection SWOT_L2_HR_Raster_D, got %s", cfg.Collection)
	}
	if cfg.BoundingBox != "115.98,28.90,116.38,29.20" {
		t.Errorf("unexpected bounding box %s", cfg.BoundingBox)
	}
	if cfg.Dir != "data_downloads/PoYangHu_data" {
		t.Errorf("unexpected dir %s", cfg.Dir)
	}
	if !cfg.PreferDirect {
		t.Error("expected prefer_direct true")
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("expected timeout 2m, got %v", cfg.Timeout)
	}
	if cfg.Credentials.Username != "hydro" || cfg.Credentials.Password != "secret" {
		t.Errorf("unexpected credentials %+v", cfg.Credentials)
	}
	if cfg.Retry.Attempts != 10 {
		t.Errorf("expected retry attempts 10, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 2*time.Second {
		t.Errorf("expected retry backoff 2s, got %v", cfg.Retry.Backoff)
	}
	if cfg.Retry.MaxBackoff != 60*time.Second {
		t.Errorf("expected retry max backoff 60s, got %v", cfg.Retry.MaxBackoff)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	// Untouched fields keep their defaults.
	if cfg.Provider != "POCLOUD" {
		t.Errorf("expected default provider, got %s", cfg.Provider)
	}
}

func TestLoadFromYAMLInvalidDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("retry:\n  backoff: soon\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid backoff")
	}
}

func TestLoadFromYAMLRetriesOff(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("retry:\n  attempts: 0\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Retry.Attempts != 0 {
		t.Errorf("expected retries off, got %d attempts", cfg.Retry.Attempts)
	}

	// an absent key keeps the default
	if err := os.WriteFile(configPath, []byte("retry:\n  backoff: 1s\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	cfg, err = LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Retry.Attempts != 5 {
		t.Errorf("expected default 5 attempts, got %d", cfg.Retry.Attempts)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SWOT_COLLECTION", "SWOT_L2_HR_LakeSP_D")
	t.Setenv("SWOT_LIMIT", "10")
	t.Setenv("SWOT_STRICT_BOUNDS", "true")
	t.Setenv("SWOT_RETRY_ATTEMPTS", "3")
	t.Setenv("SWOT_RETRY_BACKOFF", "500ms")
	t.Setenv("SWOT_RETRY_MAX_BACKOFF", "10s")
	t.Setenv("EARTHDATA_USERNAME", "hydro")
	t.Setenv("EARTHDATA_PASSWORD", "secret")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Collection != "SWOT_L2_HR_LakeSP_D" {
		t.Errorf("expected collection from env, got %s", cfg.Collection)
	}
	if cfg.Limit != 10 {
		t.Errorf("expected limit 10, got %d", cfg.Limit)
	}
	if !cfg.StrictBounds {
		t.Error("expected strict bounds true")
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected retry attempts 3, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 500*time.Millisecond {
		t.Errorf("expected retry backoff 500ms, got %v", cfg.Retry.Backoff)
	}
	if cfg.Retry.MaxBackoff != 10*time.Second {
		t.Errorf("expected retry max backoff 10s, got %v", cfg.Retry.MaxBackoff)
	}
	if cfg.Credentials.Username != "hydro" || cfg.Credentials.Password != "secret" {
		t.Errorf("unexpected credentials %+v", cfg.Credentials)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("SWOT_LIMIT", "many")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for invalid SWOT_LIMIT")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing dir", func(c *Config) { c.Dir = "" }, true},
		{"bad cmr url", func(c *Config) { c.CMRURL = "not a url" }, true},
		{"missing tool", func(c *Config) { c.Tool = "" }, true},
		{"negative limit", func(c *Config) { c.Limit = -1 }, true},
		{"negative retries", func(c *Config) { c.Retry.Attempts = -1 }, true},
		{"username without password", func(c *Config) { c.Credentials.Username = "hydro" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.Collection = "SWOT_L2_HR_PIXC_D"

	merged := base.Merge(Config{
		Collection:  "SWOT_L2_HR_RiverSP_D",
		NoExtract:   true,
		Credentials: Credentials{Token: "edl"},
		Retry:       RetryConfig{Attempts: 2},
	})

	if merged.Collection != "SWOT_L2_HR_RiverSP_D" {
		t.Errorf("expected override collection, got %s", merged.Collection)
	}
	if !merged.NoExtract {
		t.Error("expected no_extract true")
	}
	if merged.Credentials.Token != "edl" {
		t.Errorf("expected token override, got %q", merged.Credentials.Token)
	}
	if merged.Retry.Attempts != 2 {
		t.Errorf("expected retry attempts 2, got %d", merged.Retry.Attempts)
	}
	if merged.Retry.Backoff != time.Second {
		t.Errorf("expected untouched backoff, got %v", merged.Retry.Backoff)
	}
	if base.Collection != "SWOT_L2_HR_PIXC_D" {
		t.Error("Merge must not modify the receiver")
	}
}

func TestHTTPOptions(t *testing.T) {
	cfg := Default()
	cfg.Credentials = Credentials{Username: "hydro", Password: "secret"}
	cfg.Retry.Attempts = 7

	opts := cfg.HTTPOptions()
	if opts.RetryAttempts != 7 {
		t.Errorf("expected 7 retry attempts, got %d", opts.RetryAttempts)
	}
	if opts.Credentials.Username != "hydro" || opts.Credentials.Password != "secret" {
		t.Errorf("credentials not carried: %+v", opts.Credentials)
	}
}

func TestCredentialsString(t *testing.T) {
	c := Credentials{Username: "hydro", Password: "secret"}
	if strings.Contains(c.String(), "secret") {
		t.Errorf("password leaked: %s", c.String())
	}
	if s := (Credentials{Token: "abc"}).String(); strings.Contains(s, "abc") {
		t.Errorf("token leaked: %s", s)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Format: "json", Level: "warn"}.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "granule", "G1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, `"granule":"G1"`) {
		t.Errorf("expected JSON attribute in output, got %s", out)
	}
}
