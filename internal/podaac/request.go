package podaac

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/745739396/SWOT-program/internal/catalog"
)

// BoundsPattern is the accepted form of a bounding box: four decimal numbers,
// west,south,east,north.
var BoundsPattern = regexp.MustCompile(`^-?\d+(\.\d+)?,-?\d+(\.\d+)?,-?\d+(\.\d+)?,-?\d+(\.\d+)?$`)

// DateExample is shown in date format errors.
const DateExample = "2022-08-01T00:00:00Z"

// Directory layouts understood by the tool.
var dirLayoutFlags = map[string]string{
	"cycle": "-dc",
	"doy":   "-dydoy",
	"ymd":   "-dymd",
	"year":  "-dy",
}

// Request describes one run of the tool. Collection, OutputDir, StartDate
// and EndDate are required.
type Request struct {
	Collection  string
	OutputDir   string
	StartDate   string
	EndDate     string
	BoundingBox string // west,south,east,north
	Extensions  string // regular expression on file names
	GranuleName string // wildcard pattern
	Force       bool
	Verbose     bool
	DryRun      bool
	Limit       int
	ProcessCmd  string

	Provider  string
	Cycles    []int
	Offset    int    // hours
	DirLayout string // cycle, doy, ymd or year
}

// IsValidISODate reports whether s is an ISO 8601 date or date-time.
func IsValidISODate(s string) bool {
	_, err := catalog.ParseTime(s)
	return err == nil
}

// Validate returns every problem with req, or nil. It creates OutputDir if it
// does not exist. A malformed bounding box is only a problem with
// opts.StrictBounds.
func Validate(req Request, opts Options) []string {
	var problems []string

	if req.Collection == "" {
		problems = append(problems, "collection short-name (-c) must not be empty")
	}

	if req.OutputDir == "" {
		problems = append(problems, "output directory (-d) must not be empty")
	} else if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create directory %s: %v", req.OutputDir, err))
	}

	for _, d := range []struct{ label, value string }{
		{"start_date", req.StartDate},
		{"end_date", req.EndDate},
	} {
		if !IsValidISODate(d.value) {
			problems = append(problems, fmt.Sprintf("%s has invalid format: '%s', expected %s", d.label, d.value, DateExample))
		}
	}

	if opts.StrictBounds && req.BoundingBox != "" && !BoundsPattern.MatchString(req.BoundingBox) {
		problems = append(problems, fmt.Sprintf("bounding box has invalid format: '%s', expected lonW,latS,lonE,latN", req.BoundingBox))
	}

	if req.Limit < 0 {
		problems = append(problems, fmt.Sprintf("limit must not be negative: %d", req.Limit))
	}
	if req.DirLayout != "" {
		if _, ok := dirLayoutFlags[req.DirLayout]; !ok {
			problems = append(problems, fmt.Sprintf("unknown directory layout '%s', expected cycle, doy, ymd or year", req.DirLayout))
		}
	}

	return problems
}

// Args returns the tool arguments for req, without the tool name.
func Args(req Request) []string {
	args := []string{
		"-c", req.Collection,
		"-d", req.OutputDir,
		"--start-date", req.StartDate,
		"--end-date", req.EndDate,
	}

	// a separate argument would be parsed as a flag for a negative west bound
	if req.BoundingBox != "" {
		args = append(args, "-b="+req.BoundingBox)
	}
	if req.Extensions != "" {
		args = append(args, "-e", req.Extensions)
	}
	if req.GranuleName != "" {
		args = append(args, "-gr", req.GranuleName)
	}
	if req.Force {
		args = append(args, "-f")
	}
	if req.Verbose {
		args = append(args, "--verbose")
	}
	if req.DryRun {
		args = append(args, "--dry-run")
	}
	if req.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(req.Limit))
	}
	if req.ProcessCmd != "" {
		args = append(args, "--process", req.ProcessCmd)
	}

	if req.Provider != "" {
		args = append(args, "-p", req.Provider)
	}
	for _, c := range req.Cycles {
		args = append(args, "--cycle", strconv.Itoa(c))
	}
	if req.Offset != 0 {
		args = append(args, "--offset", strconv.Itoa(req.Offset))
	}
	if flag, ok := dirLayoutFlags[req.DirLayout]; ok {
		args = append(args, flag)
	}

	return args
}
