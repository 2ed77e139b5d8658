package podaac_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/745739396/SWOT-program/internal/podaac"
)

func lakeRequest(dir string) podaac.Request {
	return podaac.Request{
		Collection:  "SWOT_L2_HR_LakeSP_D",
		OutputDir:   dir,
		StartDate:   "2025-05-27T00:00:00Z",
		EndDate:     "2025-05-28T00:00:00Z",
		BoundingBox: "116,28.9,116.4,29.2",
		GranuleName: "*Obs_033_228*",
	}
}

func TestIsValidISODate(t *testing.T) {
	for _, s := range []string{
		"2025-05-01T00:00:00Z",
		"2025-05-30T23:59:59Z",
		"2022-08-01T00:00:00+00:00",
		"2025-05-01",
		"2025-05-01 12:00:00",
	} {
		assert.True(t, podaac.IsValidISODate(s), s)
	}

	for _, s := range []string{"", "2025/05/01", "01-05-2025", "2025-05-01T24:61:00Z", "tomorrow"} {
		assert.False(t, podaac.IsValidISODate(s), s)
	}
}

func TestBoundsPattern(t *testing.T) {
	assert.True(t, podaac.BoundsPattern.MatchString("116,28.9,116.4,29.2"))
	assert.True(t, podaac.BoundsPattern.MatchString("-106.62,38.809,-106.54,38.859"))
	assert.False(t, podaac.BoundsPattern.MatchString("116,28.9,116.4"))
	assert.False(t, podaac.BoundsPattern.MatchString("116, 28.9, 116.4, 29.2"))
	assert.False(t, podaac.BoundsPattern.MatchString("116,28.9,116.4,29.2,1"))
}

func TestValidate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloader_data")

	problems := podaac.Validate(lakeRequest(dir), podaac.Options{})
	assert.Empty(t, problems)
	assert.DirExists(t, dir, "output directory is created")
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	req := lakeRequest(t.TempDir())
	req.Collection = ""
	req.StartDate = "2025/05/27"
	req.EndDate = "yesterday"

	problems := podaac.Validate(req, podaac.Options{})
	assert.Equal(t, []string{
		"collection short-name (-c) must not be empty",
		"start_date has invalid format: '2025/05/27', expected 2022-08-01T00:00:00Z",
		"end_date has invalid format: 'yesterday', expected 2022-08-01T00:00:00Z",
	}, problems)
}

func TestValidateOutputDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	problems := podaac.Validate(lakeRequest(filepath.Join(file, "sub")), podaac.Options{})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "cannot create directory")
}

func TestValidateBoundingBox(t *testing.T) {
	req := lakeRequest(t.TempDir())
	req.BoundingBox = "116,28.9,116.4"

	assert.Empty(t, podaac.Validate(req, podaac.Options{}), "lenient by default")

	problems := podaac.Validate(req, podaac.Options{StrictBounds: true})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "bounding box has invalid format")
}

func TestValidateOptionalFields(t *testing.T) {
	req := lakeRequest(t.TempDir())
	req.Limit = -1
	req.DirLayout = "weekly"

	problems := podaac.Validate(req, podaac.Options{})
	assert.Len(t, problems, 2)
}

func TestArgs(t *testing.T) {
	dir := filepath.Join("data_downloads", "downloader_data")
	assert.Equal(t, []string{
		"-c", "SWOT_L2_HR_LakeSP_D",
		"-d", dir,
		"--start-date", "2025-05-27T00:00:00Z",
		"--end-date", "2025-05-28T00:00:00Z",
		"-b=116,28.9,116.4,29.2",
		"-gr", "*Obs_033_228*",
	}, podaac.Args(lakeRequest(dir)))
}

func TestArgsAllFlags(t *testing.T) {
	req := podaac.Request{
		Collection:  "SWOT_L2_HR_PIXC_D",
		OutputDir:   "out",
		StartDate:   "2025-05-01T00:00:00Z",
		EndDate:     "2025-05-30T00:00:00Z",
		BoundingBox: "-106.62,38.809,-106.54,38.859",
		Extensions:  ".nc",
		GranuleName: "*PIXC*",
		Force:       true,
		Verbose:     true,
		DryRun:      true,
		Limit:       10,
		ProcessCmd:  "gzip",
		Provider:    "POCLOUD",
		Cycles:      []int{33, 34},
		Offset:      8,
		DirLayout:   "cycle",
	}

	assert.Equal(t, []string{
		"-c", "SWOT_L2_HR_PIXC_D",
		"-d", "out",
		"--start-date", "2025-05-01T00:00:00Z",
		"--end-date", "2025-05-30T00:00:00Z",
		"-b=-106.62,38.809,-106.54,38.859",
		"-e", ".nc",
		"-gr", "*PIXC*",
		"-f",
		"--verbose",
		"--dry-run",
		"--limit", "10",
		"--process", "gzip",
		"-p", "POCLOUD",
		"--cycle", "33",
		"--cycle", "34",
		"--offset", "8",
		"-dc",
	}, podaac.Args(req))
}
