package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	swothttp "github.com/745739396/SWOT-program/internal/http"
)

// DefaultCMRURL is the production Common Metadata Repository.
const DefaultCMRURL = "https://cmr.earthdata.nasa.gov"

// DefaultTool is the external downloader invoked by the podaac command.
const DefaultTool = "podaac-data-downloader"

// Config defines configuration for the swot CLI.
type Config struct {
	CMRURL        string        `yaml:"cmr_url"`
	Provider      string        `yaml:"provider"`
	Collection    string        `yaml:"collection"`
	Start         string        `yaml:"start"`
	End           string        `yaml:"end"`
	BoundingBox   string        `yaml:"bounding_box"`
	GranuleName   string        `yaml:"granule_name"`
	Limit         int           `yaml:"limit"`
	Dir           string        `yaml:"dir"`
	NoExtract     bool          `yaml:"no_extract"`
	ArchiveSuffix string        `yaml:"archive_suffix"`
	PreferDirect  bool          `yaml:"prefer_direct"`
	S3Query       string        `yaml:"s3_query"`
	StrictBounds  bool          `yaml:"strict_bounds"`
	Tool          string        `yaml:"tool"`
	Timeout       time.Duration `yaml:"timeout"`
	Credentials   Credentials   `yaml:"credentials"`
	Retry         RetryConfig   `yaml:"retry"`
	Log           LogConfig     `yaml:"log"`
}

// Credentials for Earthdata Login.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Token    string `yaml:"token"`
}

// String hides secrets so credentials can be logged safely.
func (c Credentials) String() string {
	switch {
	case c.Token != "":
		return "token:***"
	case c.Username != "":
		return c.Username + ":***"
	default:
		return "anonymous"
	}
}

// RetryConfig defines retry behavior of the HTTP session.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `yaml:"format"` // text or json
	Level  string `yaml:"level"`  // debug, info, warn, error
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		CMRURL:        DefaultCMRURL,
		Provider:      "POCLOUD",
		Dir:           "data_downloads",
		ArchiveSuffix: ".zip",
		S3Query:       "region=us-west-2",
		Tool:          DefaultTool,
		Timeout:       10 * time.Minute,
		Retry: RetryConfig{
			Attempts:   5,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	CMRURL        string          `yaml:"cmr_url"`
	Provider      string          `yaml:"provider"`
	Collection    string          `yaml:"collection"`
	Start         string          `yaml:"start"`
	End           string          `yaml:"end"`
	BoundingBox   string          `yaml:"bounding_box"`
	GranuleName   string          `yaml:"granule_name"`
	Limit         int             `yaml:"limit"`
	Dir           string          `yaml:"dir"`
	NoExtract     bool            `yaml:"no_extract"`
	ArchiveSuffix string          `yaml:"archive_suffix"`
	PreferDirect  bool            `yaml:"prefer_direct"`
	S3Query       string          `yaml:"s3_query"`
	StrictBounds  bool            `yaml:"strict_bounds"`
	Tool          string          `yaml:"tool"`
	Timeout       string          `yaml:"timeout"`
	Credentials   Credentials     `yaml:"credentials"`
	Retry         yamlRetryConfig `yaml:"retry"`
	Log           LogConfig       `yaml:"log"`
}

type yamlRetryConfig struct {
	Attempts   *int   `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default().Merge(Config{
		CMRURL:        yc.CMRURL,
		Provider:      yc.Provider,
		Collection:    yc.Collection,
		Start:         yc.Start,
		End:           yc.End,
		BoundingBox:   yc.BoundingBox,
		GranuleName:   yc.GranuleName,
		Limit:         yc.Limit,
		Dir:           yc.Dir,
		NoExtract:     yc.NoExtract,
		ArchiveSuffix: yc.ArchiveSuffix,
		PreferDirect:  yc.PreferDirect,
		S3Query:       yc.S3Query,
		StrictBounds:  yc.StrictBounds,
		Tool:          yc.Tool,
		Credentials:   yc.Credentials,
		Log:           yc.Log,
	})

	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	// attempts: 0 turns retries off, so it is not left to Merge
	if yc.Retry.Attempts != nil {
		cfg.Retry.Attempts = *yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Settings use the SWOT_ prefix; credentials use the Earthdata variable names.
func (c *Config) LoadFromEnv() error {
	strs := map[string]*string{
		"SWOT_CMR_URL":        &c.CMRURL,
		"SWOT_PROVIDER":       &c.Provider,
		"SWOT_COLLECTION":     &c.Collection,
		"SWOT_START":          &c.Start,
		"SWOT_END":            &c.End,
		"SWOT_BOUNDING_BOX":   &c.BoundingBox,
		"SWOT_GRANULE_NAME":   &c.GranuleName,
		"SWOT_DIR":            &c.Dir,
		"SWOT_ARCHIVE_SUFFIX": &c.ArchiveSuffix,
		"SWOT_S3_QUERY":       &c.S3Query,
		"SWOT_TOOL":           &c.Tool,
		"SWOT_LOG_FORMAT":     &c.Log.Format,
		"SWOT_LOG_LEVEL":      &c.Log.Level,
		"EARTHDATA_USERNAME":  &c.Credentials.Username,
		"EARTHDATA_PASSWORD":  &c.Credentials.Password,
		"EARTHDATA_TOKEN":     &c.Credentials.Token,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"SWOT_NO_EXTRACT":    &c.NoExtract,
		"SWOT_PREFER_DIRECT": &c.PreferDirect,
		"SWOT_STRICT_BOUNDS": &c.StrictBounds,
	}
	for name, dst := range bools {
		if v := os.Getenv(name); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	ints := map[string]*int{
		"SWOT_LIMIT":          &c.Limit,
		"SWOT_RETRY_ATTEMPTS": &c.Retry.Attempts,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"SWOT_TIMEOUT":           &c.Timeout,
		"SWOT_RETRY_BACKOFF":     &c.Retry.Backoff,
		"SWOT_RETRY_MAX_BACKOFF": &c.Retry.MaxBackoff,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*dst = d
		}
	}

	return nil
}

// Validate validates the configuration. Query parameters are checked by the
// catalog and podaac packages, which know their formats.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("config: dir is required")
	}
	if c.CMRURL == "" {
		return errors.New("config: cmr_url is required")
	}
	if u, err := url.Parse(c.CMRURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid cmr_url %q", c.CMRURL)
	}
	if c.Tool == "" {
		return errors.New("config: tool is required")
	}
	if c.Limit < 0 {
		return errors.New("config: limit must not be negative")
	}
	if c.Retry.Attempts < 0 {
		return errors.New("config: retry.attempts must not be negative")
	}
	if c.Credentials.Username != "" && c.Credentials.Password == "" {
		return errors.New("config: password is required when username is set")
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		return fmt.Errorf("config: unknown log format %q", f)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.CMRURL != "" {
		c.CMRURL = override.CMRURL
	}
	if override.Provider != "" {
		c.Provider = override.Provider
	}
	if override.Collection != "" {
		c.Collection = override.Collection
	}
	if override.Start != "" {
		c.Start = override.Start
	}
	if override.End != "" {
		c.End = override.End
	}
	if override.BoundingBox != "" {
		c.BoundingBox = override.BoundingBox
	}
	if override.GranuleName != "" {
		c.GranuleName = override.GranuleName
	}
	if override.Limit != 0 {
		c.Limit = override.Limit
	}
	if override.Dir != "" {
		c.Dir = override.Dir
	}
	if override.NoExtract {
		c.NoExtract = true
	}
	if override.ArchiveSuffix != "" {
		c.ArchiveSuffix = override.ArchiveSuffix
	}
	if override.PreferDirect {
		c.PreferDirect = true
	}
	if override.S3Query != "" {
		c.S3Query = override.S3Query
	}
	if override.StrictBounds {
		c.StrictBounds = true
	}
	if override.Tool != "" {
		c.Tool = override.Tool
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.Credentials.Username != "" {
		c.Credentials.Username = override.Credentials.Username
	}
	if override.Credentials.Password != "" {
		c.Credentials.Password = override.Credentials.Password
	}
	if override.Credentials.Token != "" {
		c.Credentials.Token = override.Credentials.Token
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	return c
}

// HTTPOptions returns the HTTP session settings derived from c.
func (c Config) HTTPOptions() swothttp.Options {
	opts := swothttp.DefaultOptions()
	opts.Timeout = c.Timeout
	opts.RetryAttempts = c.Retry.Attempts
	opts.RetryBackoff = c.Retry.Backoff
	opts.RetryMaxBackoff = c.Retry.MaxBackoff
	opts.Credentials = swothttp.Credentials{
		Username: c.Credentials.Username,
		Password: c.Credentials.Password,
		Token:    c.Credentials.Token,
	}
	return opts
}

// NewLogger builds the slog logger described by the log settings.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}
	hopts := &slog.HandlerOptions{Level: level}
	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("config: unknown log format %q", l.Format)
	}
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("config: unknown log level %q", l.Level)
	}
	return level, nil
}
