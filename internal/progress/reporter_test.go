package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KiB"},
		{1536, "1.50 KiB"},
		{1024 * 1024, "1.00 MiB"},
		{256 * 1024 * 1024, "256.00 MiB"},
		{1024 * 1024 * 1024, "1.00 GiB"},
		{2.5 * 1024 * 1024 * 1024 * 1024, "2.50 TiB"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{12 * time.Second, "12s"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{time.Hour + 3*time.Minute + 7*time.Second, "1h 3m 7s"},
	}

	for _, tt := range tests {
		if result := formatDuration(tt.input); result != tt.expected {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestReporterGranuleTracking(t *testing.T) {
	reporter := NewReporter(Options{
		TotalGranules:  3,
		UpdateInterval: 100 * time.Millisecond,
	})

	reporter.GranuleStarted()
	if reporter.inProgress.Load() != 1 {
		t.Errorf("expected 1 in-progress, got %d", reporter.inProgress.Load())
	}

	reporter.BytesWritten(256)
	reporter.GranuleCompleted()
	if reporter.inProgress.Load() != 0 {
		t.Errorf("expected 0 in-progress after complete, got %d", reporter.inProgress.Load())
	}
	if reporter.completedGranules.Load() != 1 {
		t.Errorf("expected 1 completed, got %d", reporter.completedGranules.Load())
	}
	if reporter.completedBytes.Load() != 256 {
		t.Errorf("expected 256 bytes, got %d", reporter.completedBytes.Load())
	}

	reporter.GranuleStarted()
	reporter.GranuleFailed()
	if reporter.inProgress.Load() != 0 {
		t.Errorf("expected 0 in-progress after fail, got %d", reporter.inProgress.Load())
	}
	if reporter.failedGranules.Load() != 1 {
		t.Errorf("expected 1 failed, got %d", reporter.failedGranules.Load())
	}
}

func TestReporterStartStop(t *testing.T) {
	var out bytes.Buffer
	reporter := NewReporter(Options{
		Collection:     "SWOT_L2_HR_Raster_D",
		TotalGranules:  2,
		TotalSize:      512 * 1024,
		Output:         &out,
		UpdateInterval: 10 * time.Millisecond,
	})

	reporter.Start()

	reporter.GranuleStarted()
	reporter.BytesWritten(256 * 1024)
	reporter.GranuleCompleted()

	reporter.GranuleStarted()
	reporter.GranuleFailed()

	time.Sleep(50 * time.Millisecond)

	reporter.Stop()
	reporter.Stop()

	got := out.String()
	if !strings.Contains(got, "[swot] Fetching: SWOT_L2_HR_Raster_D | Granules: 2 | Size: 512.00 KiB") {
		t.Errorf("missing header line in %q", got)
	}
	if !strings.Contains(got, "[swot] Done: 1/2 granules | 1 failed | 256.00 KiB") {
		t.Errorf("missing final line in %q", got)
	}
}

func TestReporterStopWithoutStart(t *testing.T) {
	var out bytes.Buffer
	reporter := NewReporter(Options{Output: &out})
	reporter.Stop()
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}
