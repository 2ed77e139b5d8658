// Package config defines configuration structures for the swot CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (SWOT_ prefix, plus EARTHDATA_USERNAME,
//     EARTHDATA_PASSWORD and EARTHDATA_TOKEN for credentials)
//   - YAML configuration file
//
// Values are layered in that order of precedence: flags override the
// environment, which overrides the file, which overrides [Default].
// The environment is only read, never written.
//
// # Structure
//
//	type Config struct {
//	    CMRURL       string
//	    Provider     string
//	    Collection   string
//	    Start, End   string
//	    BoundingBox  string
//	    GranuleName  string
//	    Limit        int
//	    Dir          string
//	    NoExtract    bool
//	    PreferDirect bool
//	    StrictBounds bool
//	    Tool         string
//	    Credentials  Credentials
//	    Retry        RetryConfig
//	    Log          LogConfig
//	}
package config
