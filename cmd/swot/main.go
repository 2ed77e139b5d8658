package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/745739396/SWOT-program/internal/config"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitCatalogError     = 3
	ExitStorageError     = 5
	ExitPartialBatch     = 6
	ExitValidationFailed = 7
	ExitToolFailed       = 8
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exit(code int, err error) error {
	return &exitError{code: code, err: err}
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}

	// everything else comes from cobra's flag and argument parsing
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitInvalidArgs
}

// cli holds the flag values shared by all commands.
type cli struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	override   config.Config
	root       *cobra.Command
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "swot",
		Short: "Fetch SWOT hydrology granules from the PO.DAAC archive.",
		Long: `swot searches the NASA CMR for SWOT granules of a collection inside a
bounding box and time window, downloads them into a local directory and
unpacks any zip archives. The podaac command delegates the whole job to
podaac-data-downloader instead.

Earthdata credentials are read from the config file or from
EARTHDATA_USERNAME/EARTHDATA_PASSWORD or EARTHDATA_TOKEN.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.root = root
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&c.override.Log.Format, "log-format", "", "log format: text or json")
	pf.StringVar(&c.override.Log.Level, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&c.override.CMRURL, "cmr-url", "", "CMR base URL (default "+config.DefaultCMRURL+")")
	pf.DurationVar(&c.override.Timeout, "timeout", 0, "timeout for each HTTP request (default 10m)")
	pf.IntVar(&c.override.Retry.Attempts, "retry-attempts", 0, "retries for 5xx responses and connection errors, 0 to disable (default 5)")

	root.AddCommand(
		newFetchCmd(c),
		newSearchCmd(c),
		newExtractCmd(c),
		newPodaacCmd(c),
	)
	return root
}

// addQueryFlags registers the granule selection flags.
func (c *cli) addQueryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&c.override.Collection, "collection", "c", "", "collection short name, e.g. SWOT_L2_HR_Raster_D")
	f.StringVar(&c.override.Start, "start", "", "start of the time window, e.g. 2025-05-01T00:00:00Z")
	f.StringVar(&c.override.End, "end", "", "end of the time window, e.g. 2025-05-30T23:59:59Z")
	f.StringVarP(&c.override.BoundingBox, "bbox", "b", "", "bounding box as west,south,east,north")
	f.StringVarP(&c.override.GranuleName, "granule-name", "g", "", "granule name wildcard, e.g. *Obs_033_228*")
	f.IntVar(&c.override.Limit, "limit", 0, "maximum number of granules (0 for all)")
	f.StringVar(&c.override.Provider, "provider", "", "archive provider (default POCLOUD)")
}

// load builds the effective configuration: defaults, then the config file,
// then the environment, then flags.
func (c *cli) load() (config.Config, *slog.Logger, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(c.configPath)
		if err != nil {
			return cfg, nil, exit(ExitInvalidArgs, err)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, nil, exit(ExitInvalidArgs, err)
	}
	cfg = cfg.Merge(c.override)
	if c.root.PersistentFlags().Changed("retry-attempts") {
		cfg.Retry.Attempts = c.override.Retry.Attempts
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, exit(ExitInvalidArgs, err)
	}

	logger, err := cfg.Log.NewLogger(c.stderr)
	if err != nil {
		return cfg, nil, exit(ExitInvalidArgs, err)
	}
	return cfg, logger, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func (c *cli) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(c.stderr, "\n[swot] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
