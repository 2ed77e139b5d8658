//go:build integration

// Package testutils provides shared test infrastructure for integration tests.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/blob"
)

// TestGranule defines a granule served by the fake catalog and archive.
type TestGranule struct {
	Name string
	Data []byte
}

// FileName is the name the archive serves the granule under.
func (g TestGranule) FileName() string {
	return g.Name + ".nc"
}

// GenerateTestData generates deterministic test data of the given size.
func GenerateTestData(t *testing.T, size int64) []byte {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// StartArchiveServer starts an HTTP server that serves each granule file at
// /<FileName>. Unknown paths return 404.
func StartArchiveServer(t *testing.T, granules []TestGranule) *httptest.Server {
	t.Helper()

	fileMap := make(map[string][]byte)
	for _, g := range granules {
		fileMap["/"+g.FileName()] = g.Data
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := fileMap[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

// StartCatalogServer starts a fake CMR that answers every granule search
// with granules, in a single page. HTTPS links point at archiveURL and
// direct links at directBucket (s3://<directBucket>/<file>) when set.
func StartCatalogServer(t *testing.T, granules []TestGranule, archiveURL, directBucket string) *httptest.Server {
	t.Helper()

	items := make([]map[string]any, 0, len(granules))
	for i, g := range granules {
		urls := []map[string]any{
			{"URL": archiveURL + "/" + g.FileName(), "Type": "GET DATA"},
		}
		if directBucket != "" {
			urls = append(urls, map[string]any{
				"URL":  fmt.Sprintf("s3://%s/%s", directBucket, g.FileName()),
				"Type": "GET DATA VIA DIRECT ACCESS",
			})
		}
		items = append(items, map[string]any{
			"meta": map[string]any{"concept-id": fmt.Sprintf("G%d-TEST", i)},
			"umm": map[string]any{
				"GranuleUR":   g.Name,
				"RelatedUrls": urls,
				"DataGranule": map[string]any{
					"ArchiveAndDistributionInformation": []map[string]any{
						{"Name": g.FileName(), "SizeInBytes": len(g.Data)},
					},
				},
			},
		})
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/search/granules.umm_json") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.nasa.cmr.umm_results+json")
		json.NewEncoder(w).Encode(map[string]any{"hits": len(items), "items": items})
	}))
	t.Cleanup(server.Close)
	return server
}

// MinioEnv contains connection information for a Minio test environment.
type MinioEnv struct {
	Container testcontainers.Container
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Query is the gocloud s3blob query string that points a bucket URL at
// this Minio instance.
func (e *MinioEnv) Query() string {
	return fmt.Sprintf("awssdk=v2&endpoint=http://%s&use_path_style=true&disable_https=true&region=us-east-1", e.Endpoint)
}

// BucketURL is the gocloud URL of the pre-created bucket.
func (e *MinioEnv) BucketURL() string {
	return fmt.Sprintf("s3://%s?%s", e.Bucket, e.Query())
}

// Close terminates the Minio container.
func (e *MinioEnv) Close(ctx context.Context) error {
	if e.Container != nil {
		return e.Container.Terminate(ctx)
	}
	return nil
}

// OpenBucket opens a gocloud bucket connection to the Minio environment.
func (e *MinioEnv) OpenBucket(ctx context.Context) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, e.BucketURL())
}

// Upload stores each granule file in the bucket under its FileName.
func (e *MinioEnv) Upload(t *testing.T, ctx context.Context, granules []TestGranule) {
	t.Helper()

	bucket, err := e.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	for _, g := range granules {
		if err := bucket.WriteAll(ctx, g.FileName(), g.Data, nil); err != nil {
			t.Fatalf("upload %s: %v", g.FileName(), err)
		}
	}
}

// StartMinioContainer starts a Minio container with a pre-created bucket.
func StartMinioContainer(t *testing.T, ctx context.Context, bucketName string) *MinioEnv {
	t.Helper()

	const (
		accessKey = "minioadmin"
		secretKey = "minioadmin"
	)

	// mc reaches minio over a dedicated network
	networkName := fmt.Sprintf("swot-test-net-%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name: networkName,
		},
	})
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	t.Cleanup(func() { network.Remove(ctx) })

	minioReq := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Networks:     []string{networkName},
		NetworkAliases: map[string][]string{
			networkName: {"minio"},
		},
		Env: map[string]string{
			"MINIO_ROOT_USER":     accessKey,
			"MINIO_ROOT_PASSWORD": secretKey,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000"),
	}

	minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: minioReq,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}

	createBucketWithMC(t, ctx, networkName, accessKey, secretKey, bucketName)

	host, err := minioContainer.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}

	port, err := minioContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	// s3blob reads credentials from the AWS environment
	t.Setenv("AWS_ACCESS_KEY_ID", accessKey)
	t.Setenv("AWS_SECRET_ACCESS_KEY", secretKey)

	return &MinioEnv{
		Container: minioContainer,
		Bucket:    bucketName,
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

// createBucketWithMC creates a bucket using a short-lived minio/mc container.
func createBucketWithMC(t *testing.T, ctx context.Context, networkName, accessKey, secretKey, bucketName string) {
	t.Helper()

	mcReq := testcontainers.ContainerRequest{
		Image:      "minio/mc:latest",
		Networks:   []string{networkName},
		Entrypoint: []string{"/bin/sh", "-c"},
		Cmd: []string{
			fmt.Sprintf(
				"/usr/bin/mc alias set myminio http://minio:9000 %s %s && "+
					"/usr/bin/mc mb myminio/%s; "+
					"exit 0",
				accessKey, secretKey, bucketName,
			),
		},
		WaitingFor: wait.ForExit(),
	}

	mcContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: mcReq,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mc container: %v", err)
	}
	defer mcContainer.Terminate(ctx)
}

// CompareReaderToData reads r to the end and compares it with expected.
func CompareReaderToData(t *testing.T, r io.Reader, expected []byte) {
	t.Helper()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, expected) {
		t.Fatalf("data mismatch: got %d bytes, want %d", len(got), len(expected))
	}
}
