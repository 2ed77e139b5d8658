package podaac

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultTool is the executable looked up in PATH.
const DefaultTool = "podaac-data-downloader"

// Kind classifies the result of a run.
type Kind int

const (
	// Invalid means the request failed validation and the tool was not started.
	Invalid Kind = iota
	Succeeded
	// ExitFailure means the tool ran and exited non-zero.
	ExitFailure
	// ToolNotFound means the executable could not be found.
	ToolNotFound
	// Failed covers any other error, including cancellation.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Succeeded:
		return "succeeded"
	case ExitFailure:
		return "exit-failure"
	case ToolNotFound:
		return "tool-not-found"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures the invoker.
type Options struct {
	// Tool is the executable name or path.
	// Default: podaac-data-downloader
	Tool string

	// StrictBounds turns a malformed bounding box into a validation error
	// instead of a warning.
	StrictBounds bool
}

// Result reports the outcome of Run.
type Result struct {
	Kind     Kind
	Problems []string // validation problems, for Invalid
	Args     []string // arguments passed to the tool
	ExitCode int      // for ExitFailure
	Err      error
}

// Invoker runs the tool.
type Invoker struct {
	logger *slog.Logger
	opts   Options
}

// NewInvoker creates an invoker.
func NewInvoker(logger *slog.Logger, opts Options) *Invoker {
	if opts.Tool == "" {
		opts.Tool = DefaultTool
	}
	return &Invoker{logger: logger, opts: opts}
}

// Run validates req and, if it is valid, runs the tool to completion. The
// tool's stdout and stderr are logged line by line.
func (i *Invoker) Run(ctx context.Context, req Request) Result {
	if problems := Validate(req, i.opts); len(problems) > 0 {
		for _, p := range problems {
			i.logger.Error("invalid request", "problem", p)
		}
		return Result{Kind: Invalid, Problems: problems}
	}

	if req.BoundingBox != "" && !BoundsPattern.MatchString(req.BoundingBox) {
		i.logger.Warn("bounding box should be lonW,latS,lonE,latN", "bbox", req.BoundingBox)
	}

	args := Args(req)
	i.logger.Info("running tool", "cmd", i.opts.Tool+" "+strings.Join(args, " "))

	result := Result{Args: args}
	err := i.run(ctx, args)
	switch {
	case err == nil:
		result.Kind = Succeeded
		i.logger.Info("download complete", "collection", req.Collection, "dir", req.OutputDir)
	case ctx.Err() != nil:
		result.Kind = Failed
		result.Err = ctx.Err()
		i.logger.Error("tool interrupted", "err", ctx.Err())
	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		result.Kind = ToolNotFound
		result.Err = err
		i.logger.Error("tool not found, check that it is installed", "tool", i.opts.Tool, "err", err)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Kind = ExitFailure
			result.ExitCode = exitErr.ExitCode()
			i.logger.Error("download failed", "exit_code", result.ExitCode, "err", err)
		} else {
			result.Kind = Failed
			i.logger.Error("unexpected error running tool", "err", err)
		}
		result.Err = err
	}
	return result
}

func (i *Invoker) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, i.opts.Tool, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	// Wait closes the pipes, so the readers must finish first
	var g errgroup.Group
	g.Go(func() error { return i.pump(stdout, slog.LevelInfo, "stdout") })
	g.Go(func() error { return i.pump(stderr, slog.LevelWarn, "stderr") })
	if err := g.Wait(); err != nil {
		// lost output does not change how the tool exited
		i.logger.Warn("reading tool output failed", "err", err)
	}

	return cmd.Wait()
}

func (i *Invoker) pump(r io.Reader, level slog.Level, stream string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		i.logger.Log(context.Background(), level, scanner.Text(), "tool", "podaac", "stream", stream)
	}
	if err := scanner.Err(); err != nil {
		// keep the child from blocking on a full pipe
		io.Copy(io.Discard, r)
		return err
	}
	return nil
}
