package archive_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/745739396/SWOT-program/internal/archive"
)

type entry struct {
	name string
	data string
}

func writeZip(t *testing.T, path string, entries ...entry) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "SWOT_L2_HR_LakeSP_Obs_033_228_NA.zip"),
		entry{"lakes.shp", "shp"},
		entry{"lakes.dbf", "dbf"},
		entry{"meta/", ""},
		entry{"meta/lakes.xml", "<xml/>"},
	)

	result, err := archive.Extract(dir, archive.Options{})
	require.NoError(t, err)
	assert.Len(t, result.Extracted, 1)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 3, result.Files)

	assert.Equal(t, "shp", readFile(t, filepath.Join(dir, "lakes.shp")))
	assert.Equal(t, "dbf", readFile(t, filepath.Join(dir, "lakes.dbf")))
	assert.Equal(t, "<xml/>", readFile(t, filepath.Join(dir, "meta", "lakes.xml")))
	assert.FileExists(t, filepath.Join(dir, "SWOT_L2_HR_LakeSP_Obs_033_228_NA.zip"), "archive is kept")
}

func TestExtractIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "a.zip"), entry{"a.txt", "first"}, entry{"sub/b.txt", "second"})

	_, err := archive.Extract(dir, archive.Options{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("modified and longer"), 0o644))

	result, err := archive.Extract(dir, archive.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, "first", readFile(t, filepath.Join(dir, "a.txt")))
	assert.Equal(t, "second", readFile(t, filepath.Join(dir, "sub", "b.txt")))
}

func TestExtractUnsafePath(t *testing.T) {
	testCases := map[string]string{
		"parent traversal": "../escape.txt",
		"nested traversal": "sub/../../escape.txt",
		"absolute":         "/tmp/escape.txt",
	}

	for scenario, name := range testCases {
		t.Run(scenario, func(t *testing.T) {
			root := t.TempDir()
			dir := filepath.Join(root, "data")
			require.NoError(t, os.Mkdir(dir, 0o755))
			writeZip(t, filepath.Join(dir, "bad.zip"), entry{"ok.txt", "ok"}, entry{name, "x"})

			result, err := archive.Extract(dir, archive.Options{})
			assert.ErrorIs(t, err, archive.ErrUnsafePath)
			require.NotNil(t, result)
			assert.Len(t, result.Failed, 1)
			assert.NoFileExists(t, filepath.Join(dir, "ok.txt"), "nothing written before validation")
			assert.NoFileExists(t, filepath.Join(root, "escape.txt"))
		})
	}
}

func TestExtractContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_corrupt.zip"), []byte("not a zip"), 0o644))
	writeZip(t, filepath.Join(dir, "b_good.ZIP"), entry{"good.txt", "good"})

	result, err := archive.Extract(dir, archive.Options{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "a_corrupt.zip")
	assert.Equal(t, []string{filepath.Join(dir, "b_good.ZIP")}, result.Extracted)
	assert.Equal(t, []string{filepath.Join(dir, "a_corrupt.zip")}, result.Failed)
	assert.Equal(t, "good", readFile(t, filepath.Join(dir, "good.txt")))
}

func TestExtractNonRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeZip(t, filepath.Join(sub, "inner.zip"), entry{"inner.txt", "inner"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "granule.nc"), []byte("nc"), 0o644))

	result, err := archive.Extract(dir, archive.Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Extracted)
	assert.NoFileExists(t, filepath.Join(dir, "inner.txt"))
	assert.NoFileExists(t, filepath.Join(sub, "inner.txt"))
}

func TestExtractSuffix(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "a.zip"), entry{"a.txt", "a"})
	writeZip(t, filepath.Join(dir, "b.pkg"), entry{"b.txt", "b"})

	result, err := archive.Extract(dir, archive.Options{Suffix: ".PKG"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.pkg")}, result.Extracted)
	assert.FileExists(t, filepath.Join(dir, "b.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
}

func TestExtractMissingDir(t *testing.T) {
	result, err := archive.Extract(filepath.Join(t.TempDir(), "missing"), archive.Options{})
	assert.Error(t, err)
	assert.Nil(t, result)
}
