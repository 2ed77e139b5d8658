package downloader

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/745739396/SWOT-program/internal/catalog"
	swothttp "github.com/745739396/SWOT-program/internal/http"
)

// Transfer errors.
var (
	ErrNoLinks          = errors.New("downloader: granule has no data links")
	ErrChecksumMismatch = errors.New("downloader: checksum mismatch")
	ErrObjectNotFound   = errors.New("downloader: object not found")
	ErrBadFileName      = errors.New("downloader: link has no usable file name")
)

const partialSuffix = ".download"

// TransferOptions configures GranuleTransfer.
type TransferOptions struct {
	// HTTP configures the Earthdata session used for HTTPS links.
	HTTP swothttp.Options

	// PreferDirect reads s3:// and gs:// links through gocloud.dev/blob
	// instead of the HTTPS links. Only works from inside the archive's
	// cloud region.
	PreferDirect bool

	// BucketQuery is appended to the bucket URL of direct links,
	// e.g. "region=us-west-2".
	BucketQuery string

	// OpenBucket opens a bucket URL.
	// Default: blob.OpenBucket
	OpenBucket func(ctx context.Context, urlstr string) (*blob.Bucket, error)
}

// GranuleTransfer is the default Transfer.
type GranuleTransfer struct {
	logger *slog.Logger
	client *swothttp.Client
	opts   TransferOptions
}

// NewGranuleTransfer creates a transfer that fetches granules over HTTPS or,
// with PreferDirect, from object storage.
func NewGranuleTransfer(logger *slog.Logger, opts TransferOptions) *GranuleTransfer {
	if opts.OpenBucket == nil {
		opts.OpenBucket = blob.OpenBucket
	}
	return &GranuleTransfer{
		logger: logger,
		client: swothttp.NewClient(opts.HTTP),
		opts:   opts,
	}
}

// Fetch writes every file of g into dir. It stops at the first failing file;
// files already written stay in place.
func (t *GranuleTransfer) Fetch(ctx context.Context, g catalog.Granule, dir string) ([]string, int64, error) {
	links := g.Links
	if t.opts.PreferDirect && len(g.DirectLinks) > 0 {
		links = g.DirectLinks
	}
	if len(links) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoLinks, g)
	}

	var (
		files []string
		total int64
	)
	for _, link := range links {
		dest, n, err := t.fetchFile(ctx, g, link, dir)
		total += n
		if err != nil {
			return files, total, err
		}
		files = append(files, dest)
	}
	return files, total, nil
}

func (t *GranuleTransfer) fetchFile(ctx context.Context, g catalog.Granule, link, dir string) (string, int64, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", 0, fmt.Errorf("parse link %q: %w", link, err)
	}
	name := path.Base(u.Path)
	if name == "." || !filepath.IsLocal(name) || strings.ContainsRune(name, filepath.Separator) {
		return "", 0, fmt.Errorf("%w: %q", ErrBadFileName, link)
	}

	dest := filepath.Join(dir, name)
	partial := dest + partialSuffix

	f, err := os.Create(partial)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", partial, err)
	}

	var w io.Writer = f
	meta, hasMeta := g.File(name)
	var h hash.Hash
	if hasMeta && meta.Checksum != "" {
		if h = newHash(meta.Algorithm); h != nil {
			w = io.MultiWriter(f, h)
		} else {
			t.logger.Debug("unsupported checksum algorithm", "file", name, "algorithm", meta.Algorithm)
		}
	}

	t.logger.Debug("fetching file", "granule", g.String(), "file", name)

	var n int64
	switch u.Scheme {
	case "http", "https":
		n, err = t.client.Download(ctx, link, w)
	case "s3", "gs", "file", "mem":
		n, err = t.readObject(ctx, u, w)
	default:
		err = fmt.Errorf("unsupported link scheme %q", u.Scheme)
	}

	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", partial, closeErr)
	}
	if err == nil && h != nil {
		if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, meta.Checksum) {
			err = fmt.Errorf("%w: %s %s: got %s, want %s", ErrChecksumMismatch, name, meta.Algorithm, got, meta.Checksum)
		}
	}
	if err != nil {
		os.Remove(partial)
		return "", n, err
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return "", n, fmt.Errorf("rename %s: %w", partial, err)
	}
	return dest, n, nil
}

// readObject copies a single object from its bucket. The bucket URL is the
// link's scheme and host plus BucketQuery.
func (t *GranuleTransfer) readObject(ctx context.Context, u *url.URL, w io.Writer) (int64, error) {
	bucketURL := u.Scheme + "://" + u.Host
	if t.opts.BucketQuery != "" {
		bucketURL += "?" + t.opts.BucketQuery
	}
	key := strings.TrimPrefix(u.Path, "/")

	bucket, err := t.opts.OpenBucket(ctx, bucketURL)
	if err != nil {
		return 0, fmt.Errorf("open bucket %s: %w", u.Host, err)
	}
	defer bucket.Close()

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return 0, fmt.Errorf("%w: %s", ErrObjectNotFound, u.Redacted())
		}
		return 0, fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	n, err := io.Copy(w, r)
	if err != nil {
		return n, fmt.Errorf("read object %s: %w", key, err)
	}
	return n, nil
}

// newHash returns a hash for a UMM checksum algorithm name, or nil.
func newHash(algorithm string) hash.Hash {
	switch strings.ToUpper(strings.ReplaceAll(algorithm, "-", "")) {
	case "MD5":
		return md5.New()
	case "SHA256":
		return sha256.New()
	case "SHA512":
		return sha512.New()
	default:
		return nil
	}
}
