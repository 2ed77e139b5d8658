package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/745739396/SWOT-program/internal/catalog"
	swothttp "github.com/745739396/SWOT-program/internal/http"
	"github.com/745739396/SWOT-program/internal/progress"
)

// Status is the final state of one granule.
type Status string

const (
	StatusSucceeded        Status = "succeeded"
	StatusTransientFailure Status = "transient-failure"
	StatusPermanentFailure Status = "permanent-failure"
)

// Transfer fetches every file of a granule into dir.
type Transfer interface {
	Fetch(ctx context.Context, g catalog.Granule, dir string) (files []string, bytes int64, err error)
}

// Options configures a batch.
type Options struct {
	// Transfer fetches a single granule. Required.
	Transfer Transfer

	// Progress is an optional progress reporter.
	Progress *progress.Reporter
}

// Outcome records what happened to one granule.
type Outcome struct {
	Granule  catalog.Granule
	Status   Status
	Files    []string
	Bytes    int64
	Duration time.Duration
	Err      error
}

// Report is the result of a batch, one Outcome per attempted granule in
// catalog order.
type Report struct {
	RunID    uuid.UUID
	Outcomes []Outcome
}

// Succeeded returns the number of granules that were fetched.
func (r *Report) Succeeded() int {
	return r.count(StatusSucceeded)
}

// Failed returns the number of granules that failed for any reason.
func (r *Report) Failed() int {
	return r.count(StatusTransientFailure) + r.count(StatusPermanentFailure)
}

// Transient returns the number of granules that failed on connectivity.
func (r *Report) Transient() int {
	return r.count(StatusTransientFailure)
}

// Bytes returns the total bytes written.
func (r *Report) Bytes() int64 {
	var n int64
	for _, o := range r.Outcomes {
		n += o.Bytes
	}
	return n
}

func (r *Report) count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Download fetches granules into dir, creating it if needed. Per-granule
// failures are recorded in the report and never abort the batch. The
// returned error is non-nil only if dir cannot be created or ctx is done,
// in which case the report holds the granules attempted so far.
func Download(ctx context.Context, logger *slog.Logger, granules []catalog.Granule, dir string, opts Options) (*Report, error) {
	if opts.Transfer == nil {
		return nil, fmt.Errorf("downloader: no transfer configured")
	}

	report := &Report{RunID: uuid.New()}
	logger = logger.With("run", report.RunID.String())

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report, fmt.Errorf("create directory %s: %w", dir, err)
	}

	logger.Info("downloading granules", "count", len(granules), "dir", dir)

	for i, g := range granules {
		if err := ctx.Err(); err != nil {
			logger.Warn("batch interrupted", "attempted", i, "remaining", len(granules)-i)
			return report, err
		}

		outcome := fetch(ctx, logger, g, dir, opts)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	logger.Info("batch complete",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"bytes", progress.FormatBytes(report.Bytes()),
	)
	return report, nil
}

// fetch runs one transfer and classifies its result.
func fetch(ctx context.Context, logger *slog.Logger, g catalog.Granule, dir string, opts Options) Outcome {
	if opts.Progress != nil {
		opts.Progress.GranuleStarted()
	}

	start := time.Now()
	files, n, err := opts.Transfer.Fetch(ctx, g, dir)
	outcome := Outcome{
		Granule:  g,
		Files:    files,
		Bytes:    n,
		Duration: time.Since(start),
		Err:      err,
	}

	if opts.Progress != nil {
		opts.Progress.BytesWritten(n)
	}

	switch {
	case err == nil:
		outcome.Status = StatusSucceeded
		logger.Info("granule downloaded", "granule", g.String(), "files", len(files), "bytes", n)
		if opts.Progress != nil {
			opts.Progress.GranuleCompleted()
		}
		return outcome
	case swothttp.IsConnectionError(err):
		outcome.Status = StatusTransientFailure
		logger.Error("connection error, skipping granule", "granule", g.String(), "err", err)
	default:
		outcome.Status = StatusPermanentFailure
		logger.Error("failed to download granule", "granule", g.String(), "err", err)
	}

	if opts.Progress != nil {
		opts.Progress.GranuleFailed()
	}
	return outcome
}
