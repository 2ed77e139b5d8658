package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSuffix selects zip archives.
const DefaultSuffix = ".zip"

// ErrUnsafePath is returned for archives with entries that resolve outside
// the extraction directory.
var ErrUnsafePath = errors.New("archive: entry escapes target directory")

// Options configures Extract.
type Options struct {
	// Suffix selects archives by file name, case-insensitively.
	// Default: ".zip"
	Suffix string

	// Logger receives one line per archive.
	// Default: discard
	Logger *slog.Logger
}

// Result lists what Extract did.
type Result struct {
	Extracted []string // archives unpacked
	Failed    []string // archives skipped because of an error
	Files     int      // regular files written
}

// Extract unpacks every archive directly inside dir into dir. A failing
// archive does not stop the others; their errors are joined in the returned
// error. An error reading dir itself is returned with a nil Result.
func Extract(dir string, opts Options) (*Result, error) {
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", dir, err)
	}

	result := &Result{}
	var errs []error
	suffix := strings.ToLower(opts.Suffix)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		n, err := unzip(dir, path)
		if err != nil {
			logger.Error("failed to extract archive", "archive", path, "err", err)
			result.Failed = append(result.Failed, path)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}

		logger.Info("archive extracted", "archive", path, "files", n)
		result.Extracted = append(result.Extracted, path)
		result.Files += n
	}

	return result, errors.Join(errs...)
}

// unzip writes the entries of the archive at src below dst and returns the
// number of files written.
func unzip(dst, src string) (int, error) {
	zr, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return 0, fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		return 0, err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := checkEntry(f); err != nil {
			return 0, err
		}
	}

	n := 0
	for _, f := range zr.File {
		path := filepath.Join(dst, filepath.FromSlash(f.Name))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return n, err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return n, err
		}
		if err := writeEntry(path, f); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func checkEntry(f *zip.File) error {
	name := filepath.FromSlash(f.Name)
	if name == "" || !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)
	}
	if f.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("%w: symlink %q", ErrUnsafePath, f.Name)
	}
	return nil
}

func writeEntry(path string, f *zip.File) error {
	fr, err := f.Open()
	if err != nil {
		return err
	}
	defer fr.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	fw, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(fw, fr); err != nil {
		fw.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return fw.Close()
}
