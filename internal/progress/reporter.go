package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// Collection is the short name being fetched (for display).
	Collection string

	// TotalGranules is the number of granules in the batch.
	TotalGranules int

	// TotalSize is the expected size in bytes, or 0 if unknown.
	TotalSize int64

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 1s
	UpdateInterval time.Duration
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options

	mu                sync.Mutex
	completedBytes    atomic.Int64
	completedGranules atomic.Int32
	failedGranules    atomic.Int32
	inProgress        atomic.Int32
	startTime         time.Time
	lastUpdate        time.Time
	lastBytes         int64
	stopCh            chan struct{}
	doneCh            chan struct{}
	started           bool
	stopped           bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = time.Second
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.started = true
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	r.mu.Unlock()

	size := "unknown"
	if r.opts.TotalSize > 0 {
		size = formatBytes(r.opts.TotalSize)
	}
	fmt.Fprintf(r.opts.Output, "[swot] Fetching: %s | Granules: %d | Size: %s\n",
		r.opts.Collection, r.opts.TotalGranules, size)

	go r.updateLoop()
}

// Stop stops the reporter and prints the final status. It waits for the
// final line to be written.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// GranuleStarted marks a granule as in progress.
func (r *Reporter) GranuleStarted() {
	r.inProgress.Add(1)
}

// BytesWritten records n transferred bytes.
func (r *Reporter) BytesWritten(n int64) {
	r.completedBytes.Add(n)
}

// GranuleCompleted marks the in-progress granule as done.
func (r *Reporter) GranuleCompleted() {
	r.completedGranules.Add(1)
	r.inProgress.Add(-1)
}

// GranuleFailed marks the in-progress granule as failed.
func (r *Reporter) GranuleFailed() {
	r.failedGranules.Add(1)
	r.inProgress.Add(-1)
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	now := time.Now()
	completed := r.completedBytes.Load()

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(completed-r.lastBytes) / elapsed

	r.lastUpdate = now
	r.lastBytes = completed

	fmt.Fprintf(r.opts.Output, "[swot] Progress: %d/%d granules | %d failed | %s | Speed: %s/s\n",
		r.completedGranules.Load(),
		r.opts.TotalGranules,
		r.failedGranules.Load(),
		formatBytes(completed),
		formatBytes(int64(speed)),
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	completed := r.completedBytes.Load()
	duration := time.Since(r.startTime)
	avgSpeed := float64(completed) / max(duration.Seconds(), 0.001)

	fmt.Fprintf(r.opts.Output, "[swot] Done: %d/%d granules | %d failed | %s\n",
		r.completedGranules.Load(),
		r.opts.TotalGranules,
		r.failedGranules.Load(),
		formatBytes(completed),
	)
	fmt.Fprintf(r.opts.Output, "[swot] Total time: %s | Average speed: %s/s\n",
		formatDuration(duration),
		formatBytes(int64(avgSpeed)),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KiB = 1024
		MiB = KiB * 1024
		GiB = MiB * 1024
		TiB = GiB * 1024
	)

	switch {
	case b >= TiB:
		return fmt.Sprintf("%.2f TiB", float64(b)/float64(TiB))
	case b >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(KiB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}
