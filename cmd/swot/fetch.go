package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/745739396/SWOT-program/internal/archive"
	"github.com/745739396/SWOT-program/internal/catalog"
	"github.com/745739396/SWOT-program/internal/config"
	"github.com/745739396/SWOT-program/internal/downloader"
	"github.com/745739396/SWOT-program/internal/progress"
)

func newFetchCmd(c *cli) *cobra.Command {
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Search the catalog, download every granule and unpack archives",
		Example: `  swot fetch -c SWOT_L2_HR_Raster_D --start 2025-05-01T00:00:00Z \
    --end 2025-05-30T23:59:59Z -b 115.98,28.90,116.38,29.20 -d data_downloads`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			ctx, cancel := c.signalContext(cmd.Context())
			defer cancel()
			return c.fetch(ctx, cfg, logger, showProgress)
		},
	}

	c.addQueryFlags(cmd)
	f := cmd.Flags()
	f.StringVarP(&c.override.Dir, "dir", "d", "", "download directory, created if missing (default data_downloads)")
	f.BoolVar(&c.override.NoExtract, "no-extract", false, "leave archives packed")
	f.StringVar(&c.override.ArchiveSuffix, "archive-suffix", "", "file suffix of archives to unpack (default .zip)")
	f.BoolVar(&c.override.PreferDirect, "prefer-direct", false, "read s3:// links directly (in-region only)")
	f.StringVar(&c.override.S3Query, "s3-query", "", "query appended to direct-access bucket URLs (default region=us-west-2)")
	f.BoolVar(&showProgress, "progress", false, "show progress output")
	return cmd
}

func (c *cli) fetch(ctx context.Context, cfg config.Config, logger *slog.Logger, showProgress bool) error {
	granules, err := c.search(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if len(granules) == 0 {
		fmt.Fprintln(c.stdout, "[swot] No granules found")
		// archives left by earlier runs are still unpacked
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return exit(ExitStorageError, err)
		}
		failed, err := c.extractArchives(cfg, logger)
		if err != nil {
			return err
		}
		if failed {
			return exit(ExitPartialBatch, nil)
		}
		return nil
	}

	if cfg.Credentials.Username == "" && cfg.Credentials.Token == "" {
		logger.Warn("no Earthdata credentials configured, protected downloads will fail")
	}

	var reporter *progress.Reporter
	if showProgress {
		var total int64
		for _, g := range granules {
			total += g.Size()
		}
		reporter = progress.NewReporter(progress.Options{
			Collection:     cfg.Collection,
			TotalGranules:  len(granules),
			TotalSize:      total,
			Output:         c.stderr,
			UpdateInterval: 5 * time.Second,
		})
		reporter.Start()
		defer reporter.Stop()
	}

	transfer := downloader.NewGranuleTransfer(logger, downloader.TransferOptions{
		HTTP:         cfg.HTTPOptions(),
		PreferDirect: cfg.PreferDirect,
		BucketQuery:  cfg.S3Query,
	})
	report, err := downloader.Download(ctx, logger, granules, cfg.Dir, downloader.Options{
		Transfer: transfer,
		Progress: reporter,
	})
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintf(c.stderr, "[swot] Download interrupted after %d of %d granules\n", len(report.Outcomes), len(granules))
			return exit(ExitGeneralError, nil)
		}
		return exit(ExitStorageError, err)
	}

	extractFailed, err := c.extractArchives(cfg, logger)
	if err != nil {
		return err
	}

	c.printReport(report)

	if report.Failed() > 0 || extractFailed {
		return exit(ExitPartialBatch, nil)
	}
	return nil
}

// extractArchives unpacks the archives in cfg.Dir unless NoExtract is set.
// It reports whether any archive failed; err is set only when the directory
// could not be read.
func (c *cli) extractArchives(cfg config.Config, logger *slog.Logger) (bool, error) {
	if cfg.NoExtract {
		return false, nil
	}
	result, err := archive.Extract(cfg.Dir, archive.Options{Suffix: cfg.ArchiveSuffix, Logger: logger})
	if result == nil {
		return false, exit(ExitStorageError, err)
	}
	fmt.Fprintf(c.stdout, "[swot] Extracted %d archives (%d files)\n", len(result.Extracted), result.Files)
	return err != nil, nil
}

func (c *cli) printReport(report *downloader.Report) {
	fmt.Fprintf(c.stdout, "[swot] Run %s: %d succeeded, %d failed (%d transient) | %s\n",
		report.RunID, report.Succeeded(), report.Failed(), report.Transient(), progress.FormatBytes(report.Bytes()))
	for _, o := range report.Outcomes {
		if o.Status != downloader.StatusSucceeded {
			fmt.Fprintf(c.stdout, "[swot]   %s %s: %v\n", o.Status, o.Granule, o.Err)
		}
	}
}

// search runs the catalog query described by cfg.
func (c *cli) search(ctx context.Context, cfg config.Config, logger *slog.Logger) ([]catalog.Granule, error) {
	q, err := buildQuery(cfg)
	if err != nil {
		return nil, exit(ExitInvalidArgs, err)
	}

	client := catalog.NewClient(logger, catalog.Options{
		BaseURL: cfg.CMRURL,
		HTTP:    cfg.HTTPOptions(),
	})
	granules, err := client.Search(ctx, q)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidQuery) {
			return nil, exit(ExitInvalidArgs, err)
		}
		return nil, exit(ExitCatalogError, err)
	}
	return granules, nil
}

func buildQuery(cfg config.Config) (catalog.Query, error) {
	q := catalog.Query{
		ShortName:   cfg.Collection,
		GranuleName: cfg.GranuleName,
		Provider:    cfg.Provider,
		Limit:       cfg.Limit,
	}

	var err error
	if cfg.Start != "" {
		if q.Temporal.Start, err = catalog.ParseTime(cfg.Start); err != nil {
			return q, fmt.Errorf("start: %w", err)
		}
	}
	if cfg.End != "" {
		if q.Temporal.End, err = catalog.ParseTime(cfg.End); err != nil {
			return q, fmt.Errorf("end: %w", err)
		}
	}
	if cfg.BoundingBox != "" {
		if q.BoundingBox, err = catalog.ParseBoundingBox(cfg.BoundingBox); err != nil {
			return q, fmt.Errorf("bbox: %w", err)
		}
	}
	return q, nil
}
