package artifact

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// zipped builds a zip archive in memory holding files, name to contents.
func zipped(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, contents := range files {
		w, err := writer.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return buf.Bytes()
}

// tarred builds a tar.gz archive in memory holding files, name to contents.
func tarred(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	compressor := gzip.NewWriter(&buf)
	writer := tar.NewWriter(compressor)
	for name, contents := range files {
		require.NoError(t, writer.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(contents)),
			Typeflag: tar.TypeReg,
		}))
		_, err := writer.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	require.NoError(t, compressor.Close())

	return buf.Bytes()
}
